package recurrence

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

func days(ts []time.Time) []int {
	out := make([]int, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.Day())
	}
	return out
}

func TestEngine_Expand(t *testing.T) {
	engine := NewEngineWithConfig(DisabledCacheConfig)

	tests := []struct {
		name        string
		rule        Rule
		anchor      time.Time
		until       mo.Option[time.Time]
		windowStart time.Time
		windowEnd   time.Time
		expected    []time.Time
	}{
		{
			name:        "Non-recurring anchor in window",
			rule:        None(),
			anchor:      date(2025, 1, 10, 9, 0),
			windowStart: date(2025, 1, 1, 0, 0),
			windowEnd:   date(2025, 1, 31, 0, 0),
			expected:    []time.Time{date(2025, 1, 10, 9, 0)},
		},
		{
			name:        "Non-recurring anchor outside window",
			rule:        None(),
			anchor:      date(2025, 2, 10, 9, 0),
			windowStart: date(2025, 1, 1, 0, 0),
			windowEnd:   date(2025, 1, 31, 0, 0),
		},
		{
			name:        "Non-recurring ignores until",
			rule:        None(),
			anchor:      date(2025, 1, 10, 9, 0),
			until:       mo.Some(date(2025, 1, 10, 9, 0)),
			windowStart: date(2025, 1, 1, 0, 0),
			windowEnd:   date(2025, 1, 31, 0, 0),
			expected:    []time.Time{date(2025, 1, 10, 9, 0)},
		},
		{
			name:        "Daily filtered to window",
			rule:        Daily(),
			anchor:      date(2025, 3, 1, 8, 30),
			windowStart: date(2025, 3, 3, 0, 0),
			windowEnd:   date(2025, 3, 5, 23, 59),
			expected: []time.Time{
				date(2025, 3, 3, 8, 30),
				date(2025, 3, 4, 8, 30),
				date(2025, 3, 5, 8, 30),
			},
		},
		{
			name:        "Daily until is exclusive",
			rule:        Daily(),
			anchor:      date(2025, 3, 1, 8, 30),
			until:       mo.Some(date(2025, 3, 3, 8, 30)),
			windowStart: date(2025, 3, 1, 0, 0),
			windowEnd:   date(2025, 3, 31, 0, 0),
			expected: []time.Time{
				date(2025, 3, 1, 8, 30),
				date(2025, 3, 2, 8, 30),
			},
		},
		{
			name:        "Window before anchor",
			rule:        Daily(),
			anchor:      date(2025, 3, 1, 8, 30),
			windowStart: date(2025, 2, 1, 0, 0),
			windowEnd:   date(2025, 2, 28, 0, 0),
		},
		{
			name:        "Window bounds are inclusive",
			rule:        Daily(),
			anchor:      date(2025, 3, 1, 8, 30),
			windowStart: date(2025, 3, 2, 8, 30),
			windowEnd:   date(2025, 3, 3, 8, 30),
			expected: []time.Time{
				date(2025, 3, 2, 8, 30),
				date(2025, 3, 3, 8, 30),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.Expand(tt.rule, tt.anchor, tt.until, tt.windowStart, tt.windowEnd)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestEngine_WeeklyMondayWednesday(t *testing.T) {
	engine := NewEngine()

	got, err := engine.Expand(
		Weekly(time.Monday, time.Wednesday),
		date(2025, 1, 6, 9, 0),
		mo.None[time.Time](),
		date(2025, 1, 1, 0, 0),
		date(2025, 1, 31, 23, 59),
	)
	require.NoError(t, err)
	assert.Equal(t, []int{6, 8, 13, 15, 20, 22, 27, 29}, days(got))
	for _, start := range got {
		assert.Equal(t, 9, start.Hour())
	}
}

func TestEngine_WeeklyDefaultsToAnchorWeekday(t *testing.T) {
	engine := NewEngine()

	got, err := engine.Expand(Weekly(), date(2025, 1, 7, 9, 0), mo.None[time.Time](),
		date(2025, 1, 1, 0, 0), date(2025, 1, 31, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, []int{7, 14, 21, 28}, days(got))
}

func TestEngine_OffSelectorAnchor(t *testing.T) {
	engine := NewEngineWithConfig(DisabledCacheConfig)

	tests := []struct {
		name        string
		rule        Rule
		anchor      time.Time
		windowStart time.Time
		windowEnd   time.Time
		expected    []time.Time
	}{
		{
			name:        "Weekly anchor on an unselected weekday",
			rule:        Weekly(time.Monday, time.Wednesday),
			anchor:      date(2025, 1, 7, 9, 0), // Tuesday
			windowStart: date(2025, 1, 1, 0, 0),
			windowEnd:   date(2025, 1, 16, 0, 0),
			expected: []time.Time{
				date(2025, 1, 8, 9, 0),
				date(2025, 1, 13, 9, 0),
				date(2025, 1, 15, 9, 0),
			},
		},
		{
			name:        "Weekly Friday only",
			rule:        Weekly(time.Friday),
			anchor:      date(2025, 1, 7, 9, 0),
			windowStart: date(2025, 1, 1, 0, 0),
			windowEnd:   date(2025, 1, 20, 0, 0),
			expected: []time.Time{
				date(2025, 1, 10, 9, 0),
				date(2025, 1, 17, 9, 0),
			},
		},
		{
			name:        "Monthly anchor on another day",
			rule:        Monthly(31),
			anchor:      date(2025, 1, 15, 12, 0),
			windowStart: date(2025, 1, 1, 0, 0),
			windowEnd:   date(2025, 4, 30, 23, 59),
			expected: []time.Time{
				date(2025, 1, 31, 12, 0),
				date(2025, 3, 31, 12, 0),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.Expand(tt.rule, tt.anchor, mo.None[time.Time](), tt.windowStart, tt.windowEnd)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)

			ok, err := engine.Produces(tt.rule, tt.anchor, mo.None[time.Time](), tt.anchor)
			require.NoError(t, err)
			assert.False(t, ok, "anchor is not an occurrence")
		})
	}
}

func TestEngine_First(t *testing.T) {
	engine := NewEngine()

	first, err := engine.First(Weekly(time.Friday), date(2025, 1, 7, 9, 0), mo.None[time.Time]())
	require.NoError(t, err)
	assert.Equal(t, mo.Some(date(2025, 1, 10, 9, 0)), first)

	first, err = engine.First(Daily(), date(2025, 1, 7, 9, 0), mo.None[time.Time]())
	require.NoError(t, err)
	assert.Equal(t, mo.Some(date(2025, 1, 7, 9, 0)), first)

	first, err = engine.First(Monthly(31), date(2025, 2, 1, 9, 0), mo.Some(date(2025, 3, 1, 0, 0)))
	require.NoError(t, err)
	assert.True(t, first.IsAbsent(), "until falls before the first occurrence")
}

func TestEngine_MonthlySkipsShortMonths(t *testing.T) {
	engine := NewEngine()

	got, err := engine.Expand(Monthly(31), date(2025, 1, 31, 12, 0), mo.None[time.Time](),
		date(2025, 1, 1, 0, 0), date(2025, 4, 30, 23, 59))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, date(2025, 1, 31, 12, 0), got[0])
	assert.Equal(t, date(2025, 3, 31, 12, 0), got[1])
}

func TestEngine_MonthlyDerivesDayFromAnchor(t *testing.T) {
	engine := NewEngine()

	got, err := engine.Expand(Monthly(0), date(2025, 1, 15, 12, 0), mo.None[time.Time](),
		date(2025, 1, 1, 0, 0), date(2025, 3, 31, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, []int{15, 15, 15}, days(got))
}

func TestEngine_YearlyLeapDay(t *testing.T) {
	engine := NewEngine()

	got, err := engine.Expand(Yearly(time.February, 29), date(2024, 2, 29, 0, 0), mo.None[time.Time](),
		date(2024, 1, 1, 0, 0), date(2032, 12, 31, 0, 0))
	require.NoError(t, err)
	years := make([]int, 0, len(got))
	for _, start := range got {
		assert.Equal(t, time.February, start.Month())
		assert.Equal(t, 29, start.Day())
		years = append(years, start.Year())
	}
	assert.Equal(t, []int{2024, 2028, 2032}, years)
}

func TestEngine_DSTKeepsWallClock(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	engine := NewEngine()

	// US DST starts 2025-03-09 02:00 local.
	anchor := time.Date(2025, 3, 7, 9, 0, 0, 0, loc)
	got, err := engine.Expand(Daily(), anchor, mo.None[time.Time](),
		time.Date(2025, 3, 7, 0, 0, 0, 0, loc), time.Date(2025, 3, 10, 23, 0, 0, 0, loc))
	require.NoError(t, err)
	require.Len(t, got, 4)

	for _, start := range got {
		assert.Equal(t, 9, start.In(loc).Hour(), "wall clock should stay at 09:00 local")
	}
	assert.Equal(t, 14, got[1].UTC().Hour(), "EST occurrence")
	assert.Equal(t, 13, got[2].UTC().Hour(), "EDT occurrence")
	assert.Equal(t, 23*time.Hour, got[2].Sub(got[1]))
}

func TestEngine_Produces(t *testing.T) {
	engine := NewEngine()
	anchor := date(2025, 3, 1, 10, 0)

	ok, err := engine.Produces(Daily(), anchor, mo.None[time.Time](), date(2025, 3, 5, 10, 0))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = engine.Produces(Daily(), anchor, mo.None[time.Time](), date(2025, 3, 5, 11, 0))
	require.NoError(t, err)
	assert.False(t, ok, "wrong time of day")

	ok, err = engine.Produces(Daily(), anchor, mo.Some(date(2025, 3, 5, 10, 0)), date(2025, 3, 5, 10, 0))
	require.NoError(t, err)
	assert.False(t, ok, "at the exclusive end bound")

	ok, err = engine.Produces(Monthly(31), date(2025, 1, 31, 10, 0), mo.None[time.Time](), date(2025, 2, 28, 10, 0))
	require.NoError(t, err)
	assert.False(t, ok, "never clamped to month end")
}

func TestEngine_InvalidRule(t *testing.T) {
	engine := NewEngine()

	_, err := engine.Expand(Yearly(time.February, 30), date(2025, 1, 1, 0, 0), mo.None[time.Time](),
		date(2025, 1, 1, 0, 0), date(2026, 1, 1, 0, 0))
	assert.ErrorIs(t, err, ErrInvalidRule)

	_, err = engine.Expand(Monthly(32), date(2025, 1, 1, 0, 0), mo.None[time.Time](),
		date(2025, 1, 1, 0, 0), date(2026, 1, 1, 0, 0))
	assert.ErrorIs(t, err, ErrInvalidRule)
}

func TestEngine_ExpansionLimit(t *testing.T) {
	engine := NewEngineWithConfig(EngineConfig{MaxOccurrences: 5})

	_, err := engine.Expand(Daily(), date(2025, 1, 1, 0, 0), mo.None[time.Time](),
		date(2025, 1, 1, 0, 0), date(2025, 2, 1, 0, 0))
	assert.ErrorIs(t, err, ErrExpansionLimit)
}

func TestEngine_ExpandIsRepeatable(t *testing.T) {
	engine := NewEngine()
	rule := Weekly(time.Tuesday, time.Thursday)
	anchor := date(2025, 1, 2, 18, 0)

	first, err := engine.Expand(rule, anchor, mo.None[time.Time](), date(2025, 1, 1, 0, 0), date(2025, 2, 1, 0, 0))
	require.NoError(t, err)
	second, err := engine.Expand(rule, anchor, mo.None[time.Time](), date(2025, 1, 1, 0, 0), date(2025, 2, 1, 0, 0))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	stats := engine.CacheStats()
	assert.Equal(t, 1, stats.Hits)
	assert.Equal(t, 1, stats.Misses)

	// Callers may not corrupt cached results.
	second[0] = time.Time{}
	third, err := engine.Expand(rule, anchor, mo.None[time.Time](), date(2025, 1, 1, 0, 0), date(2025, 2, 1, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, first, third)
}
