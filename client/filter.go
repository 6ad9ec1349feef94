package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/cyp0633/schedcore/protocol"
)

// EventFilter narrows a listed window of occurrences. The window is
// expanded by the server; the remaining criteria are applied locally.
type EventFilter interface {
	Domains(domains ...string) EventFilter
	Summary(substr string) EventFilter
	Location(substr string) EventFilter
	RecurringOnly() EventFilter
	ExceptionsOnly() EventFilter
	// AgendaOnly drops occurrences hidden from the agenda.
	AgendaOnly() EventFilter
	Limit(limit int) EventFilter
	Do(ctx context.Context) ([]protocol.Event, error)
}

type eventFilter struct {
	client     *schedClient
	start, end time.Time
	domains    []string
	summary    string
	location   string
	recurring  bool
	exceptions bool
	agenda     bool
	limit      int
}

// Occurrences returns a filter over the occurrences in [start, end]
func (c *schedClient) Occurrences(start, end time.Time) EventFilter {
	return &eventFilter{client: c, start: start, end: end}
}

func (f *eventFilter) Domains(domains ...string) EventFilter {
	f.domains = domains
	return f
}

func (f *eventFilter) Summary(substr string) EventFilter {
	f.summary = strings.ToLower(substr)
	return f
}

func (f *eventFilter) Location(substr string) EventFilter {
	f.location = strings.ToLower(substr)
	return f
}

func (f *eventFilter) RecurringOnly() EventFilter {
	f.recurring = true
	return f
}

func (f *eventFilter) ExceptionsOnly() EventFilter {
	f.exceptions = true
	return f
}

func (f *eventFilter) AgendaOnly() EventFilter {
	f.agenda = true
	return f
}

func (f *eventFilter) Limit(limit int) EventFilter {
	f.limit = limit
	return f
}

func (f *eventFilter) Do(ctx context.Context) ([]protocol.Event, error) {
	if f.start.IsZero() || f.end.IsZero() {
		return nil, fmt.Errorf("time range is required")
	}
	if f.end.Before(f.start) {
		return nil, fmt.Errorf("end time must be after start time")
	}

	query := url.Values{
		"start": {protocol.FormatTime(f.start)},
		"end":   {protocol.FormatTime(f.end)},
	}
	var resp protocol.ListEventsResponse
	if _, err := f.client.httpClient.DoJSON(ctx, http.MethodGet, eventsPath, query, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	var out []protocol.Event
	for _, e := range resp.Events {
		if !f.matches(e) {
			continue
		}
		out = append(out, e)
		if f.limit > 0 && len(out) == f.limit {
			break
		}
	}
	return out, nil
}

func (f *eventFilter) matches(e protocol.Event) bool {
	if len(f.domains) > 0 && !slices.Contains(f.domains, e.Domain) {
		return false
	}
	if f.summary != "" && !strings.Contains(strings.ToLower(e.Title), f.summary) {
		return false
	}
	if f.location != "" && !strings.Contains(strings.ToLower(e.Location), f.location) {
		return false
	}
	if f.recurring && !e.IsRecurring {
		return false
	}
	if f.exceptions && !e.IsException {
		return false
	}
	if f.agenda && e.HideFromAgenda {
		return false
	}
	return true
}
