package schedule

import (
	"time"

	"github.com/cyp0633/schedcore/server/occurrence"
	"github.com/cyp0633/schedcore/server/recurrence"
	"github.com/cyp0633/schedcore/server/storage"
	"github.com/samber/mo"
)

// normalizeSpan validates a start/end pair. Timed spans are moved into loc
// and truncated to seconds. All-day spans become UTC dates running from
// 00:00:00 on the first day to 23:59:59 on the last, where each date is read
// in the offset the caller sent it with.
func normalizeSpan(start, end time.Time, allDay bool, loc *time.Location) (time.Time, time.Time, error) {
	if start.IsZero() {
		return start, end, invalid("startDate", "is required")
	}
	if end.IsZero() {
		return start, end, invalid("endDate", "is required")
	}
	if allDay {
		sy, sm, sd := start.Date()
		ey, em, ed := end.Date()
		start = time.Date(sy, sm, sd, 0, 0, 0, 0, time.UTC)
		end = time.Date(ey, em, ed, 23, 59, 59, 0, time.UTC)
		if end.Before(start) {
			return start, end, invalid("endDate", "must not be before startDate")
		}
		return start, end, nil
	}
	start = start.In(loc).Truncate(time.Second)
	end = end.In(loc).Truncate(time.Second)
	if !end.After(start) {
		return start, end, invalid("endDate", "must be after startDate")
	}
	return start, end, nil
}

// normalizeUntil drops the end bound of non-recurring rules and requires it
// to lie after the anchor otherwise.
func normalizeUntil(rule recurrence.Rule, until mo.Option[time.Time], anchor time.Time) (mo.Option[time.Time], error) {
	end, ok := until.Get()
	if !rule.IsRecurring() || !ok {
		return mo.None[time.Time](), nil
	}
	end = end.Truncate(time.Second)
	if !end.After(anchor) {
		return until, invalid("recurrenceEnd", "must be after startDate")
	}
	return mo.Some(end), nil
}

// shift moves instants by whole civil days and onto a new wall-clock time,
// possibly in another zone. It maps the occurrence dates of a series whose
// anchor moved onto the dates of the moved series.
type shift struct {
	days           int
	hour, min, sec int
	from, to       *time.Location
}

// newShift builds the shift taking src, read in fromLoc, to dst, read in toLoc.
func newShift(src time.Time, fromLoc *time.Location, dst time.Time, toLoc *time.Location) shift {
	sy, sm, sd := src.In(fromLoc).Date()
	dst = dst.In(toLoc)
	dy, dm, dd := dst.Date()
	days := int(time.Date(dy, dm, dd, 0, 0, 0, 0, time.UTC).Sub(time.Date(sy, sm, sd, 0, 0, 0, 0, time.UTC)).Hours() / 24)
	h, m, s := dst.Clock()
	return shift{days: days, hour: h, min: m, sec: s, from: fromLoc, to: toLoc}
}

func (sh shift) apply(t time.Time) time.Time {
	y, m, d := t.In(sh.from).Date()
	return time.Date(y, m, d+sh.days, sh.hour, sh.min, sh.sec, 0, sh.to)
}

// prune drops override fields that equal the occurrence they apply to.
func prune(ov storage.Override, base occurrence.Occurrence) storage.Override {
	if v, ok := ov.Title.Get(); ok && v == base.Title {
		ov.Title = mo.None[string]()
	}
	if v, ok := ov.Domain.Get(); ok && v == base.Domain {
		ov.Domain = mo.None[storage.Domain]()
	}
	if v, ok := ov.Location.Get(); ok && v == base.Location {
		ov.Location = mo.None[string]()
	}
	if v, ok := ov.Description.Get(); ok && v == base.Description {
		ov.Description = mo.None[string]()
	}
	if v, ok := ov.IsAllDay.Get(); ok && v == base.IsAllDay {
		ov.IsAllDay = mo.None[bool]()
	}
	if v, ok := ov.HideFromAgenda.Get(); ok && v == base.HideFromAgenda {
		ov.HideFromAgenda = mo.None[bool]()
	}

	start := ov.Start.OrElse(base.Start)
	end := ov.End.OrElse(start.Add(base.End.Sub(base.Start)))
	if start.Equal(base.Start) {
		ov.Start = mo.None[time.Time]()
	}
	if end.Equal(base.End) && ov.Start.IsAbsent() {
		ov.End = mo.None[time.Time]()
	}
	return ov
}

// remapExceptions carries exceptions over to a changed series. Each date is
// moved by sh and kept only if the series still produces it; modified
// exceptions whose overrides became redundant are dropped.
func remapExceptions(engine *recurrence.Engine, next *storage.Series, exceptions []*storage.Exception, sh shift) ([]*storage.Exception, error) {
	if !next.Recurrence.IsRecurring() {
		return nil, nil
	}
	var kept []*storage.Exception
	for _, ex := range exceptions {
		date := sh.apply(ex.OccurrenceDate)
		ok, err := engine.Produces(next.Recurrence, next.AnchorStart, next.RecurrenceEnd, date)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		moved := &storage.Exception{SeriesID: next.ID, OccurrenceDate: date, Kind: ex.Kind}
		if ex.Kind == storage.ExceptionModified {
			moved.Override = prune(ex.Override, occurrence.Base(next, date))
			if moved.Override.IsEmpty() {
				continue
			}
		}
		kept = append(kept, moved)
	}
	return kept, nil
}
