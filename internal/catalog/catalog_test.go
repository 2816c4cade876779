package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"actcal/internal/model"
)

type fakeSource struct {
	categories []model.Category
	catErr     error
	orgs       []model.Organization
	locs       []model.Location
	rooms      []model.GraphRoom
	roomsErr   error
	schedule   []model.GraphScheduleResponse
	lastReq    model.GraphScheduleRequest
}

func (f *fakeSource) ListCategories(context.Context) ([]model.Category, error) {
	if f.catErr != nil {
		return nil, f.catErr
	}
	return append([]model.Category(nil), f.categories...), nil
}

func (f *fakeSource) ListOrganizations(context.Context) ([]model.Organization, error) {
	return f.orgs, nil
}

func (f *fakeSource) ListLocations(context.Context) ([]model.Location, error) {
	return f.locs, nil
}

func (f *fakeSource) ListGraphRooms(context.Context) ([]model.GraphRoom, error) {
	return f.rooms, f.roomsErr
}

func (f *fakeSource) GraphSchedule(_ context.Context, req model.GraphScheduleRequest) ([]model.GraphScheduleResponse, error) {
	f.lastReq = req
	return f.schedule, nil
}

func sampleCategories() []model.Category {
	return []model.Category{
		{ID: "c1", Name: "Academic Calendar"},
		{ID: "c2", Name: "CSL Calendar"},
		{ID: "c3", Name: "Chapel"},
	}
}

func TestLoadCategoriesAssignsRoles(t *testing.T) {
	c := New(&fakeSource{categories: sampleCategories()}, "Academic Calendar")

	cats, err := c.LoadCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 3)
	assert.Equal(t, model.RoleExternalSynced, cats[0].Role)
	assert.Equal(t, model.RoleLocal, cats[1].Role)
	assert.Equal(t, model.RoleLocal, cats[2].Role)

	synced, ok := c.SyncedCategory()
	require.True(t, ok)
	assert.Equal(t, "c1", synced.ID)

	byID, ok := c.CategoryByID("c3")
	require.True(t, ok)
	assert.Equal(t, "Chapel", byID.Name)

	byName, ok := c.CategoryByName("CSL Calendar")
	require.True(t, ok)
	assert.Equal(t, "c2", byName.ID)

	_, ok = c.CategoryByName("ASEP Calendar")
	assert.False(t, ok)
}

func TestSyncedCategoryFollowsConfiguredName(t *testing.T) {
	c := New(&fakeSource{categories: sampleCategories()}, "Chapel")
	_, err := c.LoadCategories(context.Background())
	require.NoError(t, err)

	synced, ok := c.SyncedCategory()
	require.True(t, ok)
	assert.Equal(t, "c3", synced.ID)

	academic, _ := c.CategoryByName("Academic Calendar")
	assert.False(t, academic.ExternallySynced())
}

func TestLoadCategoriesFailureKeepsCache(t *testing.T) {
	src := &fakeSource{categories: sampleCategories()}
	c := New(src, "Academic Calendar")
	_, err := c.LoadCategories(context.Background())
	require.NoError(t, err)

	src.catErr = errors.New("backend down")
	_, err = c.LoadCategories(context.Background())
	assert.Error(t, err)
	assert.Len(t, c.Categories(), 3)
}

func TestCategoriesReturnsCopy(t *testing.T) {
	c := New(&fakeSource{categories: sampleCategories()}, "Academic Calendar")
	_, err := c.LoadCategories(context.Background())
	require.NoError(t, err)

	cats := c.Categories()
	cats[0].Name = "mutated"

	again, _ := c.CategoryByID("c1")
	assert.Equal(t, "Academic Calendar", again.Name)
}

func TestLoadLookups(t *testing.T) {
	src := &fakeSource{
		orgs:  []model.Organization{{ID: "o1", Name: "Registrar"}},
		locs:  []model.Location{{ID: "l1", Name: "Hall"}},
		rooms: []model.GraphRoom{{ID: "r1", EmailAddress: "room@example.edu"}},
	}
	c := New(src, "Academic Calendar")

	require.NoError(t, c.LoadLookups(context.Background()))
	assert.Equal(t, src.orgs, c.Organizations())
	assert.Equal(t, src.locs, c.Locations())
	assert.Equal(t, src.rooms, c.GraphRooms())
}

func TestLoadLookupsFailureLeavesCachesUnchanged(t *testing.T) {
	src := &fakeSource{
		orgs:     []model.Organization{{ID: "o1"}},
		locs:     []model.Location{{ID: "l1"}},
		roomsErr: errors.New("rooms unavailable"),
	}
	c := New(src, "Academic Calendar")

	err := c.LoadLookups(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load graph rooms")
	assert.Empty(t, c.Organizations())
	assert.Empty(t, c.Locations())
}

func TestSchedule(t *testing.T) {
	src := &fakeSource{schedule: []model.GraphScheduleResponse{{ScheduleID: "room@example.edu", AvailabilityView: "000"}}}
	c := New(src, "Academic Calendar")

	req := model.GraphScheduleRequest{Schedules: []string{"room@example.edu"}, StartTime: "2024-01-01T09:00:00", EndTime: "2024-01-01T10:30:00"}
	out, err := c.Schedule(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, src.schedule, out)
	assert.Equal(t, req, src.lastReq)
}
