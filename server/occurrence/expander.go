package occurrence

import (
	"fmt"
	"time"

	"github.com/cyp0633/schedcore/server/recurrence"
	"github.com/cyp0633/schedcore/server/storage"
)

// Expander combines a series' rule with its exceptions.
type Expander struct {
	engine *recurrence.Engine
}

// NewExpander returns an expander evaluating rules with engine. A nil engine
// gets a default one.
func NewExpander(engine *recurrence.Engine) *Expander {
	if engine == nil {
		engine = recurrence.NewEngine()
	}
	return &Expander{engine: engine}
}

// Engine exposes the rule evaluator the expander uses.
func (x *Expander) Engine() *recurrence.Engine {
	return x.engine
}

// Materialize returns the occurrences of rec visible in [windowStart,
// windowEnd], sorted. Timed occurrences are visible when their start lies in
// the window. All-day occurrences are visible when any of their dates falls
// on a date of the window, taken in the window's own zone. Deleted dates never
// appear; modified dates are shown with their overrides, which may move them
// into or out of the window.
func (x *Expander) Materialize(rec *storage.Record, windowStart, windowEnd time.Time) ([]Occurrence, error) {
	s := rec.Series
	if windowEnd.Before(windowStart) {
		return nil, nil
	}

	// Base occurrences visible in the window start no earlier than one span
	// (plus a day of zone slack for all-day dates) before it.
	slack := s.Duration() + 24*time.Hour
	candidates, err := x.engine.Expand(s.Recurrence, s.AnchorStart, s.RecurrenceEnd,
		windowStart.Add(-slack), windowEnd.Add(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("expand series %s: %w", s.ID, err)
	}

	excepted := make(map[storage.ExceptionKey]*storage.Exception, len(rec.Exceptions))
	for _, ex := range rec.Exceptions {
		excepted[ex.Key()] = ex
	}

	var out []Occurrence
	for _, start := range candidates {
		if _, ok := excepted[storage.KeyFor(s.ID, start)]; ok {
			continue
		}
		if o := Base(s, start); visible(o, windowStart, windowEnd) {
			out = append(out, o)
		}
	}

	// Modified occurrences are checked by their final span, wherever the
	// override moved them. Exceptions on dates the rule no longer produces
	// are stale and ignored.
	for _, ex := range rec.Exceptions {
		if ex.Kind != storage.ExceptionModified {
			continue
		}
		ok, err := x.engine.Produces(s.Recurrence, s.AnchorStart, s.RecurrenceEnd, ex.OccurrenceDate.In(s.AnchorStart.Location()))
		if err != nil {
			return nil, fmt.Errorf("check exception of series %s: %w", s.ID, err)
		}
		if !ok {
			continue
		}
		o := apply(Base(s, ex.OccurrenceDate.In(s.AnchorStart.Location())), ex.Override)
		if visible(o, windowStart, windowEnd) {
			out = append(out, o)
		}
	}

	Sort(out)
	return out, nil
}

// MaterializeAll materializes every record and merges the results in order.
func (x *Expander) MaterializeAll(records []*storage.Record, windowStart, windowEnd time.Time) ([]Occurrence, error) {
	var out []Occurrence
	for _, rec := range records {
		occs, err := x.Materialize(rec, windowStart, windowEnd)
		if err != nil {
			return nil, err
		}
		out = append(out, occs...)
	}
	Sort(out)
	return out, nil
}

// At materializes the single occurrence rec produces at occurrenceDate. The
// second result is false when the rule does not produce that instant or the
// occurrence has been deleted.
func (x *Expander) At(rec *storage.Record, occurrenceDate time.Time) (Occurrence, bool, error) {
	s := rec.Series
	date := occurrenceDate.In(s.AnchorStart.Location())
	ok, err := x.engine.Produces(s.Recurrence, s.AnchorStart, s.RecurrenceEnd, date)
	if err != nil || !ok {
		return Occurrence{}, false, err
	}
	o := Base(s, date)
	if ex := rec.ExceptionAt(date); ex != nil {
		if ex.Kind == storage.ExceptionDeleted {
			return Occurrence{}, false, nil
		}
		o = apply(o, ex.Override)
	}
	return o, true, nil
}

// visible applies the window rule documented on Materialize.
func visible(o Occurrence, windowStart, windowEnd time.Time) bool {
	if !o.IsAllDay {
		return !o.Start.Before(windowStart) && !o.Start.After(windowEnd)
	}
	first, last := dateRange(o)
	return datesIntersect(first, last, civilOf(windowStart), civilOf(windowEnd.In(windowStart.Location())))
}
