// Package occurrence materializes series into concrete occurrences and finds
// overlaps between them. Everything here is pure: the same inputs always give
// the same output and nothing is cached between calls except by the engine.
package occurrence

import (
	"sort"
	"time"

	"github.com/cyp0633/schedcore/server/recurrence"
	"github.com/cyp0633/schedcore/server/storage"
)

// Occurrence is one materialized instance of a series. It is never stored.
type Occurrence struct {
	SeriesID string
	OwnerID  string
	// OccurrenceDate is the unmodified start the series produced, which is
	// the key exceptions and scoped mutations address.
	OccurrenceDate time.Time
	Start          time.Time
	End            time.Time
	IsAllDay       bool

	Title          string
	Domain         storage.Domain
	Location       string
	Description    string
	HideFromAgenda bool

	Recurrence  recurrence.Rule
	IsException bool
}

// IsRecurring reports whether the occurrence belongs to a repeating series.
func (o Occurrence) IsRecurring() bool {
	return o.Recurrence.IsRecurring()
}

// Ref identifies an occurrence independent of any override.
type Ref struct {
	SeriesID       string
	OccurrenceDate time.Time
}

// Ref returns the identity of o.
func (o Occurrence) Ref() Ref {
	return Ref{SeriesID: o.SeriesID, OccurrenceDate: o.OccurrenceDate}
}

// Matches reports whether r addresses the same occurrence as o.
func (r Ref) Matches(o Occurrence) bool {
	return r.SeriesID == o.SeriesID && r.OccurrenceDate.Equal(o.OccurrenceDate)
}

// Base builds the unmodified occurrence a series produces at start.
func Base(s *storage.Series, start time.Time) Occurrence {
	return Occurrence{
		SeriesID:       s.ID,
		OwnerID:        s.OwnerID,
		OccurrenceDate: start,
		Start:          start,
		End:            start.Add(s.Duration()),
		IsAllDay:       s.IsAllDay,
		Title:          s.Title,
		Domain:         s.Domain,
		Location:       s.Location,
		Description:    s.Description,
		HideFromAgenda: s.HideFromAgenda,
		Recurrence:     s.Recurrence,
	}
}

// apply layers a modified exception's overrides over o.
func apply(o Occurrence, ov storage.Override) Occurrence {
	if start, ok := ov.Start.Get(); ok {
		d := o.End.Sub(o.Start)
		o.Start = start
		if ov.End.IsAbsent() {
			o.End = start.Add(d)
		}
	}
	o.End = ov.End.OrElse(o.End)
	o.Title = ov.Title.OrElse(o.Title)
	o.Domain = ov.Domain.OrElse(o.Domain)
	o.Location = ov.Location.OrElse(o.Location)
	o.Description = ov.Description.OrElse(o.Description)
	o.IsAllDay = ov.IsAllDay.OrElse(o.IsAllDay)
	o.HideFromAgenda = ov.HideFromAgenda.OrElse(o.HideFromAgenda)
	o.IsException = true
	return o
}

// Sort orders occurrences by start, then series id, then occurrence date.
func Sort(occs []Occurrence) {
	sort.SliceStable(occs, func(i, j int) bool {
		a, b := occs[i], occs[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		if a.SeriesID != b.SeriesID {
			return a.SeriesID < b.SeriesID
		}
		return a.OccurrenceDate.Before(b.OccurrenceDate)
	})
}

// civil is a calendar date without a zone.
type civil struct {
	y int
	m time.Month
	d int
}

func civilOf(t time.Time) civil {
	y, m, d := t.Date()
	return civil{y, m, d}
}

func (c civil) before(o civil) bool {
	if c.y != o.y {
		return c.y < o.y
	}
	if c.m != o.m {
		return c.m < o.m
	}
	return c.d < o.d
}

// dateRange returns the inclusive civil dates an occurrence covers. All-day
// spans are read in UTC, where they are stored. Timed spans are read in the
// start's zone and are half-open, so an event ending at midnight does not
// cover the next day.
func dateRange(o Occurrence) (first, last civil) {
	if o.IsAllDay {
		return civilOf(o.Start.UTC()), civilOf(o.End.UTC())
	}
	loc := o.Start.Location()
	end := o.End.In(loc)
	if end.After(o.Start) {
		end = end.Add(-time.Nanosecond)
	}
	return civilOf(o.Start), civilOf(end)
}

func datesIntersect(aFirst, aLast, bFirst, bLast civil) bool {
	return !aLast.before(bFirst) && !bLast.before(aFirst)
}
