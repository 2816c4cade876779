package backend

import (
	"context"
	"net/http"

	"actcal/internal/model"
)

func (c *Client) ListActivities(ctx context.Context) ([]model.WireActivity, error) {
	var out []model.WireActivity
	if err := c.do(ctx, http.MethodGet, "/activities", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetActivity(ctx context.Context, id string) (model.WireActivity, error) {
	p, err := escape(id)
	if err != nil {
		return model.WireActivity{}, err
	}
	var out model.WireActivity
	if err := c.do(ctx, http.MethodGet, "/activities/"+p, nil, &out); err != nil {
		return model.WireActivity{}, err
	}
	return out, nil
}

// CreateActivity posts a new activity. The backend usually answers with an
// empty body; when it echoes the stored record it is returned, otherwise
// the result is nil.
func (c *Client) CreateActivity(ctx context.Context, a model.WireActivity) (*model.WireActivity, error) {
	var out model.WireActivity
	if err := c.do(ctx, http.MethodPost, "/activities", a, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, nil
	}
	return &out, nil
}

func (c *Client) UpdateActivity(ctx context.Context, id string, a model.WireActivity) error {
	p, err := escape(id)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPut, "/activities/"+p, a, nil)
}

func (c *Client) DeleteActivity(ctx context.Context, id string) error {
	p, err := escape(id)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, "/activities/"+p, nil, nil)
}

// ReserveNonDepartmentRoom asks the backend to book a room outside the
// department's resources. The backend answers with a status string.
func (c *Client) ReserveNonDepartmentRoom(ctx context.Context, req model.NonDepartmentRoomReservationRequest) (string, error) {
	var out string
	if err := c.do(ctx, http.MethodPost, "/activities/reserveNonDepartmentRoom", req, &out); err != nil {
		return "", err
	}
	return out, nil
}

func (c *Client) ListCategories(ctx context.Context) ([]model.Category, error) {
	var out []model.Category
	if err := c.do(ctx, http.MethodGet, "/categories", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListOrganizations(ctx context.Context) ([]model.Organization, error) {
	var out []model.Organization
	if err := c.do(ctx, http.MethodGet, "/organizations", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListLocations(ctx context.Context) ([]model.Location, error) {
	var out []model.Location
	if err := c.do(ctx, http.MethodGet, "/locations", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListGraphRooms(ctx context.Context) ([]model.GraphRoom, error) {
	var out []model.GraphRoom
	if err := c.do(ctx, http.MethodGet, "/graphrooms", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GraphSchedule returns room free/busy information for the request window.
func (c *Client) GraphSchedule(ctx context.Context, req model.GraphScheduleRequest) ([]model.GraphScheduleResponse, error) {
	var out []model.GraphScheduleResponse
	if err := c.do(ctx, http.MethodPost, "/graphschedule", req, &out); err != nil {
		return nil, err
	}
	return out, nil
}
