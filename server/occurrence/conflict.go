package occurrence

import (
	"github.com/cyp0633/schedcore/server/storage"
)

// Overlaps reports whether two occurrences share time. Timed spans are
// half-open, so back-to-back occurrences do not overlap. When either side is
// all-day the comparison is by covered dates.
func Overlaps(a, b Occurrence) bool {
	if a.IsAllDay || b.IsAllDay {
		aFirst, aLast := dateRange(a)
		bFirst, bLast := dateRange(b)
		return datesIntersect(aFirst, aLast, bFirst, bLast)
	}
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Exclusion filters occurrences out of a conflict check, typically the ones
// being edited.
type Exclusion struct {
	// Series excludes every occurrence of these series.
	Series []string
	// Occurrences excludes single occurrences.
	Occurrences []Ref
}

func (e Exclusion) excludes(o Occurrence) bool {
	for _, id := range e.Series {
		if id == o.SeriesID {
			return true
		}
	}
	for _, ref := range e.Occurrences {
		if ref.Matches(o) {
			return true
		}
	}
	return false
}

// ignored reports whether o never takes part in conflicts. Holidays mark
// days rather than occupy time.
func ignored(o Occurrence) bool {
	return o.Domain == storage.DomainHolidays
}

// FindConflicts returns the members of existing that overlap any candidate,
// in sorted order and without duplicates. Existing occurrences owned by
// someone other than the candidate's owner are never reported.
func FindConflicts(candidates []Occurrence, existing []Occurrence, exclude Exclusion) []Occurrence {
	var out []Occurrence
	seen := make(map[Ref]bool)
	for _, c := range candidates {
		if ignored(c) {
			continue
		}
		for _, o := range existing {
			if ignored(o) || exclude.excludes(o) || o.OwnerID != c.OwnerID {
				continue
			}
			if c.Ref().Matches(o) {
				continue
			}
			ref := Ref{SeriesID: o.SeriesID, OccurrenceDate: o.OccurrenceDate.UTC()}
			if seen[ref] || !Overlaps(c, o) {
				continue
			}
			seen[ref] = true
			out = append(out, o)
		}
	}
	Sort(out)
	return out
}
