package occurrence

import (
	"testing"
	"time"

	"github.com/cyp0633/schedcore/server/storage"
	"github.com/stretchr/testify/assert"
)

func timed(id string, start, end time.Time) Occurrence {
	return Occurrence{
		SeriesID:       id,
		OwnerID:        "alice",
		OccurrenceDate: start,
		Start:          start,
		End:            end,
		Domain:         storage.DomainWork,
	}
}

func allDay(id string, first, last time.Time) Occurrence {
	o := timed(id, first, last.Add(23*time.Hour+59*time.Minute+59*time.Second))
	o.IsAllDay = true
	return o
}

func TestOverlaps(t *testing.T) {
	a := timed("A", at(2025, 6, 2, 10, 0), at(2025, 6, 2, 11, 0))
	b := timed("B", at(2025, 6, 2, 10, 30), at(2025, 6, 2, 11, 30))
	c := timed("C", at(2025, 6, 2, 11, 0), at(2025, 6, 2, 12, 0))
	d := timed("D", at(2025, 6, 2, 9, 0), at(2025, 6, 2, 13, 0))
	midnight := timed("M", at(2025, 6, 1, 22, 0), at(2025, 6, 2, 0, 0))
	holiday := allDay("H", at(2025, 6, 2, 0, 0), at(2025, 6, 2, 0, 0))
	trip := allDay("T", at(2025, 6, 1, 0, 0), at(2025, 6, 3, 0, 0))
	nextDay := allDay("N", at(2025, 6, 3, 0, 0), at(2025, 6, 3, 0, 0))

	tests := []struct {
		name string
		a, b Occurrence
		want bool
	}{
		{"partial overlap", a, b, true},
		{"back to back", a, c, false},
		{"containment", a, d, true},
		{"all-day with timed on same date", holiday, a, true},
		{"all-day ranges intersect", holiday, trip, true},
		{"all-day adjacent dates", holiday, nextDay, false},
		{"timed ending at midnight does not touch next day", midnight, holiday, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(tt.a, tt.b))
			assert.Equal(t, tt.want, Overlaps(tt.b, tt.a), "overlap must be symmetric")
		})
	}
}

func TestFindConflicts_Symmetry(t *testing.T) {
	a := timed("A", at(2025, 6, 2, 10, 0), at(2025, 6, 2, 11, 0))
	b := timed("B", at(2025, 6, 2, 10, 30), at(2025, 6, 2, 11, 30))
	c := timed("C", at(2025, 6, 2, 11, 0), at(2025, 6, 2, 12, 0))
	all := []Occurrence{a, b, c}

	forA := FindConflicts([]Occurrence{a}, all, Exclusion{})
	forB := FindConflicts([]Occurrence{b}, all, Exclusion{})
	forC := FindConflicts([]Occurrence{c}, all, Exclusion{})

	assert.Equal(t, []Occurrence{b}, forA)
	assert.Equal(t, []Occurrence{a, c}, forB)
	assert.Equal(t, []Occurrence{b}, forC)
}

func TestFindConflicts_Filters(t *testing.T) {
	cand := timed("new", at(2025, 6, 2, 10, 0), at(2025, 6, 2, 11, 0))
	same := timed("X", at(2025, 6, 2, 10, 0), at(2025, 6, 2, 11, 0))
	other := same
	other.SeriesID, other.OwnerID = "Y", "bob"
	holiday := allDay("H", at(2025, 6, 2, 0, 0), at(2025, 6, 2, 0, 0))
	holiday.Domain = storage.DomainHolidays
	later := timed("X", at(2025, 6, 3, 10, 0), at(2025, 6, 3, 11, 0))

	existing := []Occurrence{same, other, holiday, later}

	assert.Equal(t, []Occurrence{same}, FindConflicts([]Occurrence{cand}, existing, Exclusion{}),
		"other owners and holidays are ignored")
	assert.Empty(t, FindConflicts([]Occurrence{cand}, existing, Exclusion{Series: []string{"X"}}))
	assert.Empty(t, FindConflicts([]Occurrence{cand}, existing, Exclusion{Occurrences: []Ref{same.Ref()}}))

	holidayCand := cand
	holidayCand.Domain = storage.DomainHolidays
	assert.Empty(t, FindConflicts([]Occurrence{holidayCand}, existing, Exclusion{}))
}

func TestFindConflicts_Deduplicates(t *testing.T) {
	long := timed("L", at(2025, 6, 2, 8, 0), at(2025, 6, 2, 18, 0))
	c1 := timed("new", at(2025, 6, 2, 9, 0), at(2025, 6, 2, 10, 0))
	c2 := timed("new", at(2025, 6, 2, 14, 0), at(2025, 6, 2, 15, 0))

	got := FindConflicts([]Occurrence{c1, c2}, []Occurrence{long}, Exclusion{})
	assert.Equal(t, []Occurrence{long}, got)
}

func TestFindConflicts_SkipsCandidateItself(t *testing.T) {
	a := timed("A", at(2025, 6, 2, 10, 0), at(2025, 6, 2, 11, 0))
	assert.Empty(t, FindConflicts([]Occurrence{a}, []Occurrence{a}, Exclusion{}))
}
