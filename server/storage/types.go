package storage

import (
	"slices"
	"time"

	"github.com/cyp0633/schedcore/server/recurrence"
	"github.com/samber/mo"
)

// Domain is the category tag of a series.
type Domain string

const (
	DomainWork          Domain = "Work"
	DomainUniversity    Domain = "University"
	DomainPersonal      Domain = "Personal"
	DomainCodingTime    Domain = "Coding Time"
	DomainStudy         Domain = "Study"
	DomainHealth        Domain = "Health"
	DomainSocial        Domain = "Social"
	DomainHolidays      Domain = "Holidays"
	DomainTravel        Domain = "Travel"
	DomainMaintenance   Domain = "Maintenance"
	DomainEntertainment Domain = "Entertainment"
	DomainFamily        Domain = "Family"
)

// Domains lists every accepted domain in display order.
var Domains = []Domain{
	DomainWork, DomainUniversity, DomainPersonal, DomainCodingTime,
	DomainStudy, DomainHealth, DomainSocial, DomainHolidays,
	DomainTravel, DomainMaintenance, DomainEntertainment, DomainFamily,
}

// Valid reports whether d is one of Domains.
func (d Domain) Valid() bool {
	return slices.Contains(Domains, d)
}

// Series is the stored definition of a possibly recurring event. Rows are
// treated as immutable values: writers clone, change and put the copy back.
type Series struct {
	ID          string
	OwnerID     string
	Title       string
	Domain      Domain
	Location    string
	Description string

	// AnchorStart and AnchorEnd span the first occurrence. AnchorStart's
	// location is the zone all recurrence arithmetic runs in.
	AnchorStart time.Time
	AnchorEnd   time.Time
	IsAllDay    bool

	Recurrence recurrence.Rule
	// RecurrenceEnd is an exclusive bound on occurrence starts.
	RecurrenceEnd  mo.Option[time.Time]
	HideFromAgenda bool
	TimeZone       string

	// SplitFrom names the series this one was split off from, if any.
	SplitFrom string

	Created  time.Time
	Modified time.Time
	// Revision increments on every write and backs the HTTP ETag.
	Revision int64
}

// Duration is the span every unmodified occurrence inherits.
func (s *Series) Duration() time.Duration {
	return s.AnchorEnd.Sub(s.AnchorStart)
}

// Clone returns a deep copy.
func (s *Series) Clone() *Series {
	if s == nil {
		return nil
	}
	c := *s
	c.Recurrence.Weekdays = slices.Clone(s.Recurrence.Weekdays)
	return &c
}

// ExceptionKind distinguishes deleted from modified occurrences.
type ExceptionKind int

const (
	ExceptionDeleted ExceptionKind = iota + 1
	ExceptionModified
)

func (k ExceptionKind) String() string {
	switch k {
	case ExceptionDeleted:
		return "deleted"
	case ExceptionModified:
		return "modified"
	default:
		return "unknown"
	}
}

// Override carries the fields a modified occurrence replaces. Absent fields
// fall through to the series.
type Override struct {
	Title          mo.Option[string]
	Domain         mo.Option[Domain]
	Location       mo.Option[string]
	Description    mo.Option[string]
	Start          mo.Option[time.Time]
	End            mo.Option[time.Time]
	IsAllDay       mo.Option[bool]
	HideFromAgenda mo.Option[bool]
}

// IsEmpty reports whether no field is overridden.
func (o Override) IsEmpty() bool {
	return o.Title.IsAbsent() && o.Domain.IsAbsent() && o.Location.IsAbsent() &&
		o.Description.IsAbsent() && o.Start.IsAbsent() && o.End.IsAbsent() &&
		o.IsAllDay.IsAbsent() && o.HideFromAgenda.IsAbsent()
}

// Exception overrides a single occurrence of a series. OccurrenceDate is the
// unmodified start instant the series would produce.
type Exception struct {
	SeriesID       string
	OccurrenceDate time.Time
	Kind           ExceptionKind
	Override       Override
}

// Key identifies the exception within its series.
func (e *Exception) Key() ExceptionKey {
	return KeyFor(e.SeriesID, e.OccurrenceDate)
}

// ExceptionKey is the (series, occurrence date) pair an exception is unique on.
type ExceptionKey struct {
	SeriesID string
	// Date is OccurrenceDate in UTC with nanoseconds dropped.
	Date time.Time
}

// KeyFor normalizes an occurrence date so equal instants in different zones
// map to the same key.
func KeyFor(seriesID string, occurrenceDate time.Time) ExceptionKey {
	return ExceptionKey{SeriesID: seriesID, Date: occurrenceDate.UTC().Truncate(time.Second)}
}

// Record is a series together with all of its exceptions, read at one point
// in time.
type Record struct {
	Series     *Series
	Exceptions []*Exception
}

// ExceptionAt returns the exception for occurrenceDate, if any.
func (r *Record) ExceptionAt(occurrenceDate time.Time) *Exception {
	key := KeyFor(r.Series.ID, occurrenceDate)
	for _, ex := range r.Exceptions {
		if ex.Key() == key {
			return ex
		}
	}
	return nil
}
