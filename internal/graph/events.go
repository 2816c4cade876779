package graph

import (
	"context"
	"net/http"
	"net/url"

	"actcal/internal/model"
)

type eventPage struct {
	Value    []model.GraphEvent `json:"value"`
	NextLink string             `json:"@odata.nextLink"`
}

// ListEvents returns the group calendar's events ordered by start time.
// Follow-up pages are fetched until the provider stops returning a next
// link.
func (c *Client) ListEvents(ctx context.Context) ([]model.GraphEvent, error) {
	out := make([]model.GraphEvent, 0)
	next := c.eventsPath() + c.listQuery()

	for page := 0; next != "" && page < maxPages; page++ {
		var p eventPage
		if err := c.do(ctx, http.MethodGet, next, nil, &p); err != nil {
			return nil, err
		}
		out = append(out, p.Value...)
		next = p.NextLink
	}
	return out, nil
}

func (c *Client) GetEvent(ctx context.Context, id string) (model.GraphEvent, error) {
	p, err := c.eventPath(id)
	if err != nil {
		return model.GraphEvent{}, err
	}
	var ev model.GraphEvent
	if err := c.do(ctx, http.MethodGet, p, nil, &ev); err != nil {
		return model.GraphEvent{}, err
	}
	return ev, nil
}

// CreateEvent creates ev and returns it as stored, including the id the
// provider assigned.
func (c *Client) CreateEvent(ctx context.Context, ev model.GraphEvent) (model.GraphEvent, error) {
	ev.ID = ""
	var created model.GraphEvent
	if err := c.do(ctx, http.MethodPost, c.eventsPath(), ev, &created); err != nil {
		return model.GraphEvent{}, err
	}
	return created, nil
}

// UpdateEvent patches the event identified by ev.ID.
func (c *Client) UpdateEvent(ctx context.Context, ev model.GraphEvent) error {
	p, err := c.eventPath(ev.ID)
	if err != nil {
		return err
	}
	ev.ID = ""
	return c.do(ctx, http.MethodPatch, p, ev, nil)
}

func (c *Client) DeleteEvent(ctx context.Context, id string) error {
	p, err := c.eventPath(id)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, p, nil, nil)
}

// CurrentUser returns the configured user, or /me when none is set.
func (c *Client) CurrentUser(ctx context.Context) (model.GraphUser, error) {
	p := "/me"
	if c.user != "" {
		p = "/users/" + url.PathEscape(c.user)
	}
	var u model.GraphUser
	if err := c.do(ctx, http.MethodGet, p, nil, &u); err != nil {
		return model.GraphUser{}, err
	}
	return u, nil
}
