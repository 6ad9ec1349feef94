package schedule

import (
	"context"
	"time"

	"github.com/cyp0633/schedcore/server/occurrence"
	"github.com/cyp0633/schedcore/server/storage"
	"github.com/samber/mo"
)

// updateThis records the changes as an override of one occurrence. The
// series row itself is only re-stamped.
func (s *Service) updateThis(ctx context.Context, rec *storage.Record, scope This, c Changes) (*Result, error) {
	series := rec.Series
	date, err := s.target(rec, scope, scope.OccurrenceDate)
	if err != nil {
		return nil, err
	}
	if c.wholeSeriesOnly() {
		s.logger.Debug("ignoring series-wide fields on single occurrence edit",
			"series_id", series.ID,
			"occurrence_date", date)
	}

	base := occurrence.Base(series, date)
	existing := rec.ExceptionAt(date)
	var ov storage.Override
	if existing != nil {
		ov = existing.Override
	}
	ov = c.mergeInto(ov)

	start := ov.Start.OrElse(base.Start)
	end := ov.End.OrElse(start.Add(base.End.Sub(base.Start)))
	start, end, err = normalizeSpan(start, end, ov.IsAllDay.OrElse(base.IsAllDay), series.AnchorStart.Location())
	if err != nil {
		return nil, err
	}
	ov.Start, ov.End = mo.Some(start), mo.Some(end)
	ov = prune(ov, base)

	next := series.Clone()
	batch := &storage.Batch{PutSeries: []*storage.Series{next}}
	key := storage.KeyFor(series.ID, date)
	var exceptions []*storage.Exception
	for _, ex := range rec.Exceptions {
		if ex.Key() != key {
			exceptions = append(exceptions, ex)
		}
	}
	if ov.IsEmpty() {
		if existing != nil {
			batch.DeleteExceptions = []storage.ExceptionKey{key}
		}
	} else {
		ex := &storage.Exception{
			SeriesID:       series.ID,
			OccurrenceDate: date,
			Kind:           storage.ExceptionModified,
			Override:       ov,
		}
		batch.PutExceptions = []*storage.Exception{ex}
		exceptions = append(exceptions, ex)
	}

	if err := s.commit(ctx, batch); err != nil {
		return nil, err
	}

	event := s.eventAt(&storage.Record{Series: next, Exceptions: exceptions}, date)
	conflicts := s.occurrenceConflicts(ctx, event, occurrence.Exclusion{Occurrences: []occurrence.Ref{event.Ref()}})
	s.logger.Info("occurrence updated",
		"series_id", series.ID,
		"owner_id", series.OwnerID,
		"occurrence_date", date,
		"override", !ov.IsEmpty(),
		"conflicts", len(conflicts))

	return &Result{Series: next, Event: event, Conflicts: conflicts}, nil
}

// updateAll rewrites the series in place. A new start moves every occurrence
// by the same number of days onto the new wall-clock time; exceptions follow
// their occurrence or are dropped when it no longer exists.
func (s *Service) updateAll(ctx context.Context, rec *storage.Record, scope All, c Changes) (*Result, error) {
	old := rec.Series
	from, err := s.firstOccurrence(old)
	if err != nil {
		return nil, err
	}
	if ref, ok := scope.Reference.Get(); ok && old.Recurrence.IsRecurring() {
		date, err := s.target(rec, scope, ref)
		if err != nil {
			return nil, err
		}
		from = date
	}

	next := old.Clone()
	c.applyDetails(next)
	ns, ne, err := s.reshape(next, from, c)
	if err != nil {
		return nil, err
	}
	sh := newShift(from, old.AnchorStart.Location(), ns, ns.Location())
	next.AnchorStart = sh.apply(old.AnchorStart)
	next.AnchorEnd = next.AnchorStart.Add(ne.Sub(ns))
	if next.RecurrenceEnd, err = normalizeUntil(next.Recurrence, c.until(old.RecurrenceEnd), next.AnchorStart); err != nil {
		return nil, err
	}

	kept, err := remapExceptions(s.expander.Engine(), next, rec.Exceptions, sh)
	if err != nil {
		return nil, err
	}
	batch := &storage.Batch{
		PutSeries:        []*storage.Series{next},
		DeleteExceptions: keysFrom(rec.Exceptions, time.Time{}),
		PutExceptions:    kept,
	}
	if err := s.commit(ctx, batch); err != nil {
		return nil, err
	}

	updated := &storage.Record{Series: next, Exceptions: kept}
	event := s.eventAt(updated, sh.apply(from))
	conflicts := s.seriesConflicts(ctx, updated, event.OccurrenceDate, occurrence.Exclusion{Series: []string{next.ID}})
	s.logger.Info("series updated",
		"series_id", next.ID,
		"owner_id", next.OwnerID,
		"exceptions_kept", len(kept),
		"exceptions_dropped", len(rec.Exceptions)-len(kept),
		"conflicts", len(conflicts))

	return &Result{Series: next, Event: event, Conflicts: conflicts}, nil
}

// updateFollowing splits the series at the addressed occurrence. The original
// is truncated to end right before it and a successor carrying the changes
// takes over from there, inheriting the exceptions from that date on.
func (s *Service) updateFollowing(ctx context.Context, rec *storage.Record, scope ThisAndFollowing, c Changes) (*Result, error) {
	old := rec.Series
	date, err := s.target(rec, scope, scope.OccurrenceDate)
	if err != nil {
		return nil, err
	}
	first, err := s.isFirst(old, date)
	if err != nil {
		return nil, err
	}
	if first {
		return s.updateAll(ctx, rec, All{Reference: mo.Some(date)}, c)
	}

	truncated := old.Clone()
	truncated.RecurrenceEnd = mo.Some(date)

	succ := old.Clone()
	succ.ID = s.newID()
	succ.SplitFrom = old.ID
	succ.Created = time.Time{}
	succ.Revision = 0
	c.applyDetails(succ)
	ns, ne, err := s.reshape(succ, date, c)
	if err != nil {
		return nil, err
	}
	if civilBefore(ns, date) {
		return nil, invalid("startDate", "must not move before the occurrence being split")
	}
	succ.AnchorStart = ns
	succ.AnchorEnd = ne
	if succ.RecurrenceEnd, err = normalizeUntil(succ.Recurrence, c.until(old.RecurrenceEnd), ns); err != nil {
		return nil, err
	}

	var tail []*storage.Exception
	for _, ex := range rec.Exceptions {
		if !ex.OccurrenceDate.Before(date) {
			tail = append(tail, ex)
		}
	}
	sh := newShift(date, old.AnchorStart.Location(), ns, ns.Location())
	migrated, err := remapExceptions(s.expander.Engine(), succ, tail, sh)
	if err != nil {
		return nil, err
	}

	batch := &storage.Batch{
		PutSeries:        []*storage.Series{truncated, succ},
		DeleteExceptions: keysFrom(rec.Exceptions, date),
		PutExceptions:    migrated,
	}
	if err := s.commit(ctx, batch); err != nil {
		return nil, err
	}

	split := &storage.Record{Series: succ, Exceptions: migrated}
	event := s.eventAt(split, succ.AnchorStart)
	conflicts := s.seriesConflicts(ctx, split, succ.AnchorStart, occurrence.Exclusion{Series: []string{old.ID, succ.ID}})
	s.logger.Info("series split",
		"series_id", old.ID,
		"successor_id", succ.ID,
		"owner_id", old.OwnerID,
		"occurrence_date", date,
		"exceptions_migrated", len(migrated),
		"conflicts", len(conflicts))

	return &Result{Series: succ, Event: event, Conflicts: conflicts}, nil
}

// reshape applies the zone, all-day and span changes of c to next, a copy of
// the stored series, with from as the occurrence being edited. It returns the
// normalized span that occurrence takes.
func (s *Service) reshape(next *storage.Series, from time.Time, c Changes) (time.Time, time.Time, error) {
	loc, err := s.location(c.TimeZone.OrElse(next.TimeZone))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	allDay := c.IsAllDay.OrElse(next.IsAllDay)
	start := c.Start.OrElse(from)
	end := c.End.OrElse(start.Add(next.Duration()))
	start, end, err = normalizeSpan(start, end, allDay, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	next.IsAllDay = allDay
	next.TimeZone = loc.String()
	return start, end, nil
}

// until resolves the recurrence end after c is applied.
func (c Changes) until(current mo.Option[time.Time]) mo.Option[time.Time] {
	if c.ClearRecurrenceEnd {
		return mo.None[time.Time]()
	}
	if c.RecurrenceEnd.IsPresent() {
		return c.RecurrenceEnd
	}
	return current
}

// civilBefore reports whether a falls on an earlier calendar date than b,
// each read in its own zone.
func civilBefore(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC).Before(time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC))
}
