// Package protocol defines the JSON documents exchanged over the events API.
// Dates are ISO-8601 instants; all-day occurrences run from 00:00:00Z on
// their first day to 23:59:59Z on their last.
package protocol

import (
	"encoding/json"
	"time"
)

// Scope names accepted in editScope and deleteScope.
const (
	ScopeThis      = "this"
	ScopeFollowing = "following"
	ScopeAll       = "all"
)

// Error codes carried in ErrorResponse.Code.
const (
	CodeBadRequest   = "bad_request"
	CodeValidation   = "validation"
	CodeInvalidScope = "invalid_scope"
	CodeNotFound     = "not_found"
	CodeUnauthorized = "unauthorized"
	CodeInternal     = "internal"
)

// Event is one materialized occurrence. ID and SeriesID both name the series
// it belongs to; OccurrenceDate is the key used to address it in scoped edits.
type Event struct {
	ID                   string      `json:"id"`
	SeriesID             string      `json:"seriesId"`
	OccurrenceDate       time.Time   `json:"occurrenceDate"`
	Title                string      `json:"title"`
	Domain               string      `json:"domain"`
	Location             string      `json:"location,omitempty"`
	Description          string      `json:"description,omitempty"`
	StartDate            time.Time   `json:"startDate"`
	EndDate              time.Time   `json:"endDate"`
	IsAllDay             bool        `json:"isAllDay"`
	IsRecurring          bool        `json:"isRecurring"`
	Recurrence           string      `json:"recurrence"`
	RecurrenceDays       WeekdayList `json:"recurrenceDays,omitempty"`
	RecurrenceDayOfMonth int         `json:"recurrenceDayOfMonth,omitempty"`
	RecurrenceMonth      int         `json:"recurrenceMonth,omitempty"`
	HideFromAgenda       bool        `json:"hideFromAgenda"`
	IsException          bool        `json:"isException"`
}

// Series is the stored definition of an event with its exceptions.
type Series struct {
	ID                   string       `json:"id"`
	OwnerID              string       `json:"ownerId"`
	Title                string       `json:"title"`
	Domain               string       `json:"domain"`
	Location             string       `json:"location,omitempty"`
	Description          string       `json:"description,omitempty"`
	StartDate            time.Time    `json:"startDate"`
	EndDate              time.Time    `json:"endDate"`
	IsAllDay             bool         `json:"isAllDay"`
	IsRecurring          bool         `json:"isRecurring"`
	Recurrence           string       `json:"recurrence"`
	RecurrenceDays       WeekdayList  `json:"recurrenceDays,omitempty"`
	RecurrenceDayOfMonth int          `json:"recurrenceDayOfMonth,omitempty"`
	RecurrenceMonth      int          `json:"recurrenceMonth,omitempty"`
	RecurrenceEnd        OptionalTime `json:"recurrenceEnd"`
	HideFromAgenda       bool         `json:"hideFromAgenda"`
	TimeZone             string       `json:"timeZone"`
	SplitFrom            string       `json:"splitFrom,omitempty"`
	Exceptions           []Exception  `json:"exceptions"`
	CreatedAt            time.Time    `json:"createdAt"`
	UpdatedAt            time.Time    `json:"updatedAt"`
	Revision             int64        `json:"revision"`
}

// Exception is a per-occurrence override or deletion. Only overridden fields
// are set.
type Exception struct {
	OccurrenceDate time.Time  `json:"occurrenceDate"`
	Type           string     `json:"type"`
	Title          *string    `json:"title,omitempty"`
	Domain         *string    `json:"domain,omitempty"`
	Location       *string    `json:"location,omitempty"`
	Description    *string    `json:"description,omitempty"`
	StartDate      *time.Time `json:"startDate,omitempty"`
	EndDate        *time.Time `json:"endDate,omitempty"`
	IsAllDay       *bool      `json:"isAllDay,omitempty"`
	HideFromAgenda *bool      `json:"hideFromAgenda,omitempty"`
}

// CreateEventRequest is the body of POST /events.
type CreateEventRequest struct {
	Title                string       `json:"title"`
	Domain               string       `json:"domain"`
	StartDate            OptionalTime `json:"startDate"`
	EndDate              OptionalTime `json:"endDate"`
	IsAllDay             bool         `json:"isAllDay"`
	Recurrence           string       `json:"recurrence,omitempty"`
	RecurrenceDays       WeekdayList  `json:"recurrenceDays,omitempty"`
	RecurrenceDayOfMonth int          `json:"recurrenceDayOfMonth,omitempty"`
	RecurrenceMonth      int          `json:"recurrenceMonth,omitempty"`
	RecurrenceEnd        OptionalTime `json:"recurrenceEnd"`
	Location             string       `json:"location,omitempty"`
	Description          string       `json:"description,omitempty"`
	HideFromAgenda       bool         `json:"hideFromAgenda"`
	TimeZone             string       `json:"timeZone,omitempty"`
}

// UnmarshalJSON also accepts the allDay and recurrenceType spellings older
// clients send.
func (r *CreateEventRequest) UnmarshalJSON(data []byte) error {
	type plain CreateEventRequest
	aux := struct {
		*plain
		AllDay         *bool   `json:"allDay"`
		RecurrenceType *string `json:"recurrenceType"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.AllDay != nil && !r.IsAllDay {
		r.IsAllDay = *aux.AllDay
	}
	if aux.RecurrenceType != nil && r.Recurrence == "" {
		r.Recurrence = *aux.RecurrenceType
	}
	return nil
}

// UpdateEventRequest is the body of PUT /events/{id}. Absent fields keep their
// current value. The recurrence fields only apply when Recurrence is set and
// are ignored by single-occurrence edits.
type UpdateEventRequest struct {
	EditScope      string       `json:"editScope"`
	OccurrenceDate OptionalTime `json:"occurrenceDate"`

	Title          *string      `json:"title,omitempty"`
	Domain         *string      `json:"domain,omitempty"`
	Location       *string      `json:"location,omitempty"`
	Description    *string      `json:"description,omitempty"`
	StartDate      OptionalTime `json:"startDate"`
	EndDate        OptionalTime `json:"endDate"`
	IsAllDay       *bool        `json:"isAllDay,omitempty"`
	HideFromAgenda *bool        `json:"hideFromAgenda,omitempty"`

	Recurrence           *string      `json:"recurrence,omitempty"`
	RecurrenceDays       WeekdayList  `json:"recurrenceDays,omitempty"`
	RecurrenceDayOfMonth int          `json:"recurrenceDayOfMonth,omitempty"`
	RecurrenceMonth      int          `json:"recurrenceMonth,omitempty"`
	RecurrenceEnd        OptionalTime `json:"recurrenceEnd"`
	ClearRecurrenceEnd   bool         `json:"clearRecurrenceEnd,omitempty"`
	TimeZone             *string      `json:"timeZone,omitempty"`
}

// UnmarshalJSON also accepts the allDay and recurrenceType spellings older
// clients send.
func (r *UpdateEventRequest) UnmarshalJSON(data []byte) error {
	type plain UpdateEventRequest
	aux := struct {
		*plain
		AllDay         *bool   `json:"allDay"`
		RecurrenceType *string `json:"recurrenceType"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if r.IsAllDay == nil {
		r.IsAllDay = aux.AllDay
	}
	if r.Recurrence == nil {
		r.Recurrence = aux.RecurrenceType
	}
	return nil
}

// DeleteEventRequest is the body of DELETE /events/{id}. The same fields may
// be given as query parameters.
type DeleteEventRequest struct {
	DeleteScope    string       `json:"deleteScope"`
	OccurrenceDate OptionalTime `json:"occurrenceDate"`
}

// ConflictCheckRequest is the body of POST /events/conflicts. ExcludeSeriesID
// drops that series from the check, or with OccurrenceDate only that one
// occurrence of it.
type ConflictCheckRequest struct {
	StartDate       OptionalTime `json:"startDate"`
	EndDate         OptionalTime `json:"endDate"`
	IsAllDay        bool         `json:"isAllDay"`
	Domain          string       `json:"domain,omitempty"`
	TimeZone        string       `json:"timeZone,omitempty"`
	ExcludeSeriesID string       `json:"excludeSeriesId,omitempty"`
	OccurrenceDate  OptionalTime `json:"occurrenceDate"`
}

// ListEventsResponse answers GET /events.
type ListEventsResponse struct {
	Events []Event `json:"events"`
}

// EventResponse answers writes. Event.ID names the series now holding the
// event, which after a split is the new successor. Conflicts are advisory.
type EventResponse struct {
	Event     Event   `json:"event"`
	Conflicts []Event `json:"conflicts"`
}

// SeriesResponse answers GET /events/{id}.
type SeriesResponse struct {
	Event Series `json:"event"`
}

// ConflictsResponse answers POST /events/conflicts.
type ConflictsResponse struct {
	Conflicts []Event `json:"conflicts"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
