// Package catalog caches the reference data activities point at:
// categories, organizations, locations and bookable rooms.
package catalog

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	appLog "actcal/internal/log"
	"actcal/internal/model"
)

// Source is the subset of the backend the catalog reads from.
type Source interface {
	ListCategories(ctx context.Context) ([]model.Category, error)
	ListOrganizations(ctx context.Context) ([]model.Organization, error)
	ListLocations(ctx context.Context) ([]model.Location, error)
	ListGraphRooms(ctx context.Context) ([]model.GraphRoom, error)
	GraphSchedule(ctx context.Context, req model.GraphScheduleRequest) ([]model.GraphScheduleResponse, error)
}

// Catalog is safe for concurrent use. Reads never hit the network.
type Catalog struct {
	src        Source
	syncedName string

	mu            sync.RWMutex
	categories    []model.Category
	organizations []model.Organization
	locations     []model.Location
	rooms         []model.GraphRoom
}

// New returns a catalog that marks the category named syncedCategory as
// owned by the external calendar.
func New(src Source, syncedCategory string) *Catalog {
	return &Catalog{src: src, syncedName: syncedCategory}
}

// LoadCategories fetches categories, assigns their roles and caches them.
// On failure the previous cache is kept.
func (c *Catalog) LoadCategories(ctx context.Context) ([]model.Category, error) {
	cats, err := c.src.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}

	synced := 0
	for i := range cats {
		if cats[i].Name == c.syncedName {
			cats[i].Role = model.RoleExternalSynced
			synced++
		} else {
			cats[i].Role = model.RoleLocal
		}
	}
	if synced == 0 && c.syncedName != "" {
		appLog.Warn("synced category not found among categories", "name", c.syncedName, "count", len(cats))
	}

	c.mu.Lock()
	c.categories = cats
	c.mu.Unlock()

	return c.Categories(), nil
}

// Categories returns a copy of the cached categories.
func (c *Catalog) Categories() []model.Category {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.Category(nil), c.categories...)
}

func (c *Catalog) CategoryByID(id string) (model.Category, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, cat := range c.categories {
		if cat.ID == id {
			return cat, true
		}
	}
	return model.Category{}, false
}

func (c *Catalog) CategoryByName(name string) (model.Category, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, cat := range c.categories {
		if cat.Name == name {
			return cat, true
		}
	}
	return model.Category{}, false
}

// SyncedCategory returns the category whose events live in the external
// calendar.
func (c *Catalog) SyncedCategory() (model.Category, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, cat := range c.categories {
		if cat.ExternallySynced() {
			return cat, true
		}
	}
	return model.Category{}, false
}

// LoadLookups fetches organizations, locations and rooms in parallel. The
// caches are replaced only if all three succeed.
func (c *Catalog) LoadLookups(ctx context.Context) error {
	var (
		orgs  []model.Organization
		locs  []model.Location
		rooms []model.GraphRoom
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		orgs, err = c.src.ListOrganizations(gctx)
		if err != nil {
			return fmt.Errorf("load organizations: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		locs, err = c.src.ListLocations(gctx)
		if err != nil {
			return fmt.Errorf("load locations: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		rooms, err = c.src.ListGraphRooms(gctx)
		if err != nil {
			return fmt.Errorf("load graph rooms: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	c.mu.Lock()
	c.organizations = orgs
	c.locations = locs
	c.rooms = rooms
	c.mu.Unlock()

	appLog.Info("lookups loaded", "organizations", len(orgs), "locations", len(locs), "rooms", len(rooms))
	return nil
}

func (c *Catalog) Organizations() []model.Organization {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.Organization(nil), c.organizations...)
}

func (c *Catalog) Locations() []model.Location {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.Location(nil), c.locations...)
}

func (c *Catalog) GraphRooms() []model.GraphRoom {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.GraphRoom(nil), c.rooms...)
}

// Schedule returns free/busy for the rooms in req.
func (c *Catalog) Schedule(ctx context.Context, req model.GraphScheduleRequest) ([]model.GraphScheduleResponse, error) {
	out, err := c.src.GraphSchedule(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("graph schedule: %w", err)
	}
	return out, nil
}
