// Package notion fetches database records from the Notion API through a
// configurable transport, with a single fallback on transport failure.
package notion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jomei/notionapi"
)

type Client struct {
	primary  Transport
	fallback Transport
	logger   *slog.Logger
}

// NewClient returns a client using primary, and fallback (may be nil) once
// when primary cannot be reached.
func NewClient(primary, fallback Transport, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		primary:  primary,
		fallback: fallback,
		logger:   logger.With("component", "notion"),
	}
}

// FetchRecords returns the first page of records of a database. Pagination
// cursors are not followed.
func (c *Client) FetchRecords(ctx context.Context, token, databaseID string) ([]notionapi.Page, error) {
	if token == "" {
		return nil, ErrNotConfigured
	}
	if databaseID == "" {
		return nil, ErrMissingDatabaseID
	}

	resp, err := c.primary.Query(ctx, token, databaseID)
	if err != nil && c.fallback != nil && errors.Is(err, ErrTransport) && ctx.Err() == nil {
		c.logger.WarnContext(ctx, "Notion unreachable, trying fallback transport",
			"via", c.primary.Name(),
			"fallback", c.fallback.Name(),
			"error", err)
		resp, err = c.fallback.Query(ctx, token, databaseID)
	}
	if err != nil {
		return nil, fmt.Errorf("query database %s: %w", databaseID, err)
	}

	if resp == nil || resp.Results == nil {
		return []notionapi.Page{}, nil
	}
	c.logger.DebugContext(ctx, "Fetched Notion records",
		"database_id", databaseID,
		"count", len(resp.Results),
		"has_more", resp.HasMore)
	return resp.Results, nil
}
