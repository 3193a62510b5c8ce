package api

import (
	"context"
	"errors"
	"net/url"

	"github.com/yanizio/mieszkaniownik/internal/alert"
)

// FetchAlert loads one alert snapshot.  Fails with *NotFoundError,
// *NetworkError, or ErrUnauthorized.
func (c *Client) FetchAlert(ctx context.Context, id string) (*alert.Record, error) {
	if id == "" {
		return nil, errors.New("api: empty alert id")
	}
	var rec alert.Record
	if err := c.Get(ctx, alertPath(id), &rec); err != nil {
		return nil, err
	}
	if rec.ID == "" {
		rec.ID = id
	}
	return &rec, nil
}

// UpdateAlert sends a partial update.  Only fields present in p change
// server-side.  Fails with *ValidationError, *NetworkError, *NotFoundError,
// or ErrUnauthorized.
func (c *Client) UpdateAlert(ctx context.Context, id string, p alert.Patch) error {
	if id == "" {
		return errors.New("api: empty alert id")
	}
	return c.Patch(ctx, alertPath(id), p, nil)
}

func alertPath(id string) string { return "/alerts/" + url.PathEscape(id) }
