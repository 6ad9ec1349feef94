package recurrence

import (
	"errors"
	"fmt"
	"time"

	"github.com/samber/mo"
	"github.com/teambition/rrule-go"
)

// ErrExpansionLimit is returned when a window would yield more starts than
// EngineConfig.MaxOccurrences.
var ErrExpansionLimit = errors.New("recurrence expansion exceeds occurrence limit")

// Engine evaluates recurrence rules. It holds no per-series state; the
// optional cache only memoizes pure results.
type Engine struct {
	cache  *Cache
	config EngineConfig
}

// NewEngine creates a new recurrence engine instance
func NewEngine() *Engine {
	return NewEngineWithConfig(DefaultEngineConfig)
}

// Expand returns the ascending start instants the rule produces from anchor
// that lie in [windowStart, windowEnd] and strictly before until, if set.
// The anchor itself is only yielded when it matches the rule's selectors. A
// non-recurring rule yields only the anchor and ignores until. All arithmetic runs in anchor's location, so
// wall-clock time of day is preserved across DST transitions.
func (e *Engine) Expand(rule Rule, anchor time.Time, until mo.Option[time.Time], windowStart, windowEnd time.Time) ([]time.Time, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	anchor = anchor.Truncate(time.Second)
	if windowEnd.Before(windowStart) {
		return nil, nil
	}
	inBounds := func(t time.Time) bool {
		if t.Before(windowStart) || t.After(windowEnd) {
			return false
		}
		if end, ok := until.Get(); ok && !t.Before(end) {
			return false
		}
		return true
	}

	if !rule.IsRecurring() {
		if !anchor.Before(windowStart) && !anchor.After(windowEnd) {
			return []time.Time{anchor}, nil
		}
		return nil, nil
	}

	hi := windowEnd
	if end, ok := until.Get(); ok && end.Before(hi) {
		hi = end
	}
	if hi.Before(anchor) || hi.Before(windowStart) {
		return nil, nil
	}

	var key string
	if e.cache != nil {
		key = cacheKey(rule, anchor, until, windowStart, windowEnd)
		if starts, ok := e.cache.Get(key); ok {
			return starts, nil
		}
	}

	opt, err := rule.Resolve(anchor).options(anchor)
	if err != nil {
		return nil, err
	}
	rr, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("failed to build rrule: %w", err)
	}

	var starts []time.Time
	for _, t := range rr.Between(windowStart, hi, true) {
		if !inBounds(t) {
			continue
		}
		starts = append(starts, t)
		if len(starts) > e.config.MaxOccurrences {
			return nil, fmt.Errorf("%w (%d)", ErrExpansionLimit, e.config.MaxOccurrences)
		}
	}

	if e.cache != nil {
		e.cache.Set(key, starts)
	}
	return starts, nil
}

// First returns the earliest instant the rule produces from anchor, or None
// when until cuts the series off before its first occurrence.
func (e *Engine) First(rule Rule, anchor time.Time, until mo.Option[time.Time]) (mo.Option[time.Time], error) {
	if err := rule.Validate(); err != nil {
		return mo.None[time.Time](), err
	}
	anchor = anchor.Truncate(time.Second)
	if !rule.IsRecurring() {
		return mo.Some(anchor), nil
	}
	opt, err := rule.Resolve(anchor).options(anchor)
	if err != nil {
		return mo.None[time.Time](), err
	}
	rr, err := rrule.NewRRule(opt)
	if err != nil {
		return mo.None[time.Time](), fmt.Errorf("failed to build rrule: %w", err)
	}
	first := rr.After(anchor, true)
	if first.IsZero() {
		return mo.None[time.Time](), nil
	}
	if end, ok := until.Get(); ok && !first.Before(end) {
		return mo.None[time.Time](), nil
	}
	return mo.Some(first), nil
}

// Produces reports whether t is exactly one of the instants the rule yields.
func (e *Engine) Produces(rule Rule, anchor time.Time, until mo.Option[time.Time], t time.Time) (bool, error) {
	starts, err := e.Expand(rule, anchor, until, t, t)
	if err != nil {
		return false, err
	}
	return len(starts) == 1 && starts[0].Equal(t), nil
}

// CacheStats returns the statistics of the expansion cache, or zero values
// when caching is disabled.
func (e *Engine) CacheStats() CacheStats {
	if e.cache == nil {
		return CacheStats{}
	}
	return e.cache.Stats()
}
