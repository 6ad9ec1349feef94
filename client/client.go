// Package client talks to a schedcore server over its JSON events API.
package client

import (
	"context"
	"time"

	"github.com/cyp0633/schedcore/internal/httpclient"
	"github.com/cyp0633/schedcore/protocol"
	"github.com/emersion/go-ical"
)

// SchedClient interface defines the events API operations
type SchedClient interface {
	// Occurrences returns a filter listing the occurrences in [start, end].
	Occurrences(start, end time.Time) EventFilter
	GetEvent(ctx context.Context, id string) (*protocol.Series, string, error)
	CreateEvent(ctx context.Context, req protocol.CreateEventRequest) (*protocol.EventResponse, error)
	UpdateEvent(ctx context.Context, id string, req protocol.UpdateEventRequest) (*protocol.EventResponse, error)
	DeleteEvent(ctx context.Context, id string, req protocol.DeleteEventRequest) error
	CheckConflicts(ctx context.Context, req protocol.ConflictCheckRequest) ([]protocol.Event, error)
	ExportCalendar(ctx context.Context, id string) (*ical.Calendar, error)
}

type schedClient struct {
	httpClient httpclient.HttpClientWrapper
}

// NewSchedClient creates a new events API client
func NewSchedClient(httpClient httpclient.HttpClientWrapper) SchedClient {
	return &schedClient{httpClient: httpClient}
}
