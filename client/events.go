package client

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/cyp0633/schedcore/protocol"
	"github.com/emersion/go-ical"
)

const eventsPath = "events"

func eventPath(id string) string {
	return eventsPath + "/" + url.PathEscape(id)
}

// GetEvent returns the stored series with its exceptions and its ETag
func (c *schedClient) GetEvent(ctx context.Context, id string) (*protocol.Series, string, error) {
	var resp protocol.SeriesResponse
	etag, err := c.httpClient.DoJSON(ctx, http.MethodGet, eventPath(id), nil, nil, &resp)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get event %s: %w", id, err)
	}
	return &resp.Event, etag, nil
}

// CreateEvent creates a new series. The response lists overlapping
// occurrences; they never prevent the write.
func (c *schedClient) CreateEvent(ctx context.Context, req protocol.CreateEventRequest) (*protocol.EventResponse, error) {
	var resp protocol.EventResponse
	if _, err := c.httpClient.DoJSON(ctx, http.MethodPost, eventsPath, nil, req, &resp); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return &resp, nil
}

// UpdateEvent edits the part of series id selected by req.EditScope
func (c *schedClient) UpdateEvent(ctx context.Context, id string, req protocol.UpdateEventRequest) (*protocol.EventResponse, error) {
	var resp protocol.EventResponse
	if _, err := c.httpClient.DoJSON(ctx, http.MethodPut, eventPath(id), nil, req, &resp); err != nil {
		return nil, fmt.Errorf("failed to update event %s: %w", id, err)
	}
	return &resp, nil
}

// DeleteEvent removes the part of series id selected by req.DeleteScope
func (c *schedClient) DeleteEvent(ctx context.Context, id string, req protocol.DeleteEventRequest) error {
	if _, err := c.httpClient.DoJSON(ctx, http.MethodDelete, eventPath(id), nil, req, nil); err != nil {
		return fmt.Errorf("failed to delete event %s: %w", id, err)
	}
	return nil
}

// CheckConflicts reports the occurrences overlapping a span without writing
func (c *schedClient) CheckConflicts(ctx context.Context, req protocol.ConflictCheckRequest) ([]protocol.Event, error) {
	var resp protocol.ConflictsResponse
	if _, err := c.httpClient.DoJSON(ctx, http.MethodPost, eventsPath+"/conflicts", nil, req, &resp); err != nil {
		return nil, fmt.Errorf("failed to check conflicts: %w", err)
	}
	return resp.Conflicts, nil
}

// ExportCalendar fetches series id as iCalendar
func (c *schedClient) ExportCalendar(ctx context.Context, id string) (*ical.Calendar, error) {
	data, _, err := c.httpClient.DoGET(ctx, eventPath(id)+"/ics", "text/calendar")
	if err != nil {
		return nil, fmt.Errorf("failed to export event %s: %w", id, err)
	}
	cal, err := ical.NewDecoder(bytes.NewReader(data)).Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to parse calendar: %w", err)
	}
	return cal, nil
}
