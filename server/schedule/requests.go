package schedule

import (
	"strings"
	"time"

	"github.com/cyp0633/schedcore/server/occurrence"
	"github.com/cyp0633/schedcore/server/recurrence"
	"github.com/cyp0633/schedcore/server/storage"
	"github.com/samber/mo"
)

// CreateRequest describes a new series. Start and End span its first
// occurrence.
type CreateRequest struct {
	OwnerID        string
	Title          string
	Domain         storage.Domain
	Location       string
	Description    string
	Start          time.Time
	End            time.Time
	IsAllDay       bool
	Recurrence     recurrence.Rule
	RecurrenceEnd  mo.Option[time.Time]
	HideFromAgenda bool
	// TimeZone is an IANA zone name. Empty selects the service default.
	TimeZone string
}

// Changes is a partial update. Absent fields keep their current value.
type Changes struct {
	Title          mo.Option[string]
	Domain         mo.Option[storage.Domain]
	Location       mo.Option[string]
	Description    mo.Option[string]
	Start          mo.Option[time.Time]
	End            mo.Option[time.Time]
	IsAllDay       mo.Option[bool]
	HideFromAgenda mo.Option[bool]

	// The remaining fields apply to whole series only and are ignored by
	// single-occurrence edits.
	Recurrence         mo.Option[recurrence.Rule]
	RecurrenceEnd      mo.Option[time.Time]
	ClearRecurrenceEnd bool
	TimeZone           mo.Option[string]
}

// UpdateRequest applies Changes to the part of a series Scope selects.
type UpdateRequest struct {
	OwnerID  string
	SeriesID string
	Scope    Scope
	Changes  Changes
}

// DeleteRequest removes the part of a series Scope selects.
type DeleteRequest struct {
	OwnerID  string
	SeriesID string
	Scope    Scope
}

// ConflictQuery checks a span against an owner's schedule without writing.
type ConflictQuery struct {
	OwnerID  string
	Start    time.Time
	End      time.Time
	IsAllDay bool
	Domain   storage.Domain
	TimeZone string
	// ExcludeSeries drops a whole series from the check, or with
	// ExcludeOccurrence only that one occurrence of it.
	ExcludeSeries     string
	ExcludeOccurrence mo.Option[time.Time]
}

// Result is returned by successful writes.
type Result struct {
	// Series is the series holding Event after the write. For a split it
	// is the new successor.
	Series *storage.Series
	// Event is the edited or created occurrence as it now materializes.
	Event occurrence.Occurrence
	// Conflicts lists the owner's other occurrences overlapping the result.
	// They never block the write.
	Conflicts []occurrence.Occurrence
}

func (c Changes) validate() error {
	if title, ok := c.Title.Get(); ok && strings.TrimSpace(title) == "" {
		return invalid("title", "must not be empty")
	}
	if d, ok := c.Domain.Get(); ok && !d.Valid() {
		return invalid("domain", "unknown domain %q", d)
	}
	if rule, ok := c.Recurrence.Get(); ok {
		if err := rule.Validate(); err != nil {
			return invalid("recurrence", "%v", err)
		}
	}
	if c.ClearRecurrenceEnd && c.RecurrenceEnd.IsPresent() {
		return invalid("recurrenceEnd", "cannot both set and clear")
	}
	return nil
}

// applyDetails copies the descriptive fields of c onto s.
func (c Changes) applyDetails(s *storage.Series) {
	if title, ok := c.Title.Get(); ok {
		s.Title = strings.TrimSpace(title)
	}
	s.Domain = c.Domain.OrElse(s.Domain)
	s.Location = c.Location.OrElse(s.Location)
	s.Description = c.Description.OrElse(s.Description)
	s.HideFromAgenda = c.HideFromAgenda.OrElse(s.HideFromAgenda)
	s.Recurrence = c.Recurrence.OrElse(s.Recurrence)
}

// mergeInto layers c over an existing occurrence override.
func (c Changes) mergeInto(ov storage.Override) storage.Override {
	if title, ok := c.Title.Get(); ok {
		ov.Title = mo.Some(strings.TrimSpace(title))
	}
	if c.Domain.IsPresent() {
		ov.Domain = c.Domain
	}
	if c.Location.IsPresent() {
		ov.Location = c.Location
	}
	if c.Description.IsPresent() {
		ov.Description = c.Description
	}
	if c.Start.IsPresent() {
		ov.Start = c.Start
		if c.End.IsAbsent() {
			ov.End = mo.None[time.Time]()
		}
	}
	if c.End.IsPresent() {
		ov.End = c.End
	}
	if c.IsAllDay.IsPresent() {
		ov.IsAllDay = c.IsAllDay
	}
	if c.HideFromAgenda.IsPresent() {
		ov.HideFromAgenda = c.HideFromAgenda
	}
	return ov
}

// wholeSeriesOnly reports whether c carries fields a single-occurrence edit
// ignores.
func (c Changes) wholeSeriesOnly() bool {
	return c.Recurrence.IsPresent() || c.RecurrenceEnd.IsPresent() || c.ClearRecurrenceEnd || c.TimeZone.IsPresent()
}
