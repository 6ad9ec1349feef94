package recurrence

import (
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrequency(t *testing.T) {
	tests := []struct {
		in      string
		want    Frequency
		wantErr bool
	}{
		{"", FreqNone, false},
		{"none", FreqNone, false},
		{"Daily", FreqDaily, false},
		{" weekly ", FreqWeekly, false},
		{"monthly", FreqMonthly, false},
		{"yearly", FreqYearly, false},
		{"fortnightly", FreqNone, true},
	}
	for _, tt := range tests {
		got, err := ParseFrequency(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidRule, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseWeekday(t *testing.T) {
	d, err := ParseWeekday("Monday")
	require.NoError(t, err)
	assert.Equal(t, time.Monday, d)

	d, err = ParseWeekday("sun")
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, d)

	_, err = ParseWeekday("someday")
	assert.Error(t, err)

	assert.Equal(t, "wednesday", WeekdayName(time.Wednesday))
}

func TestRule_Resolve(t *testing.T) {
	anchor := date(2025, 5, 14, 9, 0) // Wednesday

	assert.Equal(t, []time.Weekday{time.Wednesday}, Weekly().Resolve(anchor).Weekdays)
	assert.Equal(t, []time.Weekday{time.Monday, time.Friday},
		Weekly(time.Friday, time.Monday, time.Friday).Resolve(anchor).Weekdays)
	assert.Equal(t, 14, Monthly(0).Resolve(anchor).MonthDay)
	assert.Equal(t, 3, Monthly(3).Resolve(anchor).MonthDay)

	y := Yearly(0, 0).Resolve(anchor)
	assert.Equal(t, time.May, y.Month)
	assert.Equal(t, 14, y.MonthDay)
}

func TestRule_Equal(t *testing.T) {
	assert.True(t, Weekly(time.Monday, time.Wednesday).Equal(Weekly(time.Wednesday, time.Monday)))
	assert.False(t, Weekly(time.Monday).Equal(Weekly(time.Tuesday)))
	assert.False(t, Daily().Equal(None()))
	assert.True(t, Monthly(5).Equal(Monthly(5)))
}

func TestRule_RRule(t *testing.T) {
	anchor := date(2025, 1, 6, 9, 0)

	tests := []struct {
		name  string
		rule  Rule
		until mo.Option[time.Time]
		want  string
	}{
		{"none", None(), mo.None[time.Time](), ""},
		{"daily", Daily(), mo.None[time.Time](), "FREQ=DAILY"},
		{"weekly", Weekly(time.Wednesday, time.Monday), mo.None[time.Time](), "FREQ=WEEKLY;BYDAY=MO,WE"},
		{"monthly derived", Monthly(0), mo.None[time.Time](), "FREQ=MONTHLY;BYMONTHDAY=6"},
		{"yearly", Yearly(time.February, 29), mo.None[time.Time](), "FREQ=YEARLY;BYMONTH=2;BYMONTHDAY=29"},
		{"daily until", Daily(), mo.Some(date(2025, 1, 10, 9, 0)), "FREQ=DAILY;UNTIL=20250110T085959Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rule.RRule(anchor, tt.until))
		})
	}
}

func TestParseRRule(t *testing.T) {
	rule, until, err := ParseRRule("RRULE:FREQ=WEEKLY;BYDAY=MO,WE")
	require.NoError(t, err)
	assert.Equal(t, FreqWeekly, rule.Freq)
	assert.Equal(t, []time.Weekday{time.Monday, time.Wednesday}, rule.Weekdays)
	assert.True(t, until.IsAbsent())

	rule, _, err = ParseRRule("FREQ=YEARLY;BYMONTH=2;BYMONTHDAY=29")
	require.NoError(t, err)
	assert.Equal(t, Yearly(time.February, 29), rule)

	rule, until, err = ParseRRule("FREQ=DAILY;UNTIL=20250110T085959Z")
	require.NoError(t, err)
	assert.Equal(t, Daily(), rule)
	end, ok := until.Get()
	require.True(t, ok)
	assert.True(t, end.Equal(date(2025, 1, 10, 9, 0)))

	for _, bad := range []string{
		"FREQ=DAILY;INTERVAL=2",
		"FREQ=DAILY;COUNT=3",
		"FREQ=HOURLY",
		"FREQ=MONTHLY;BYMONTHDAY=1,15",
		"FREQ=WEEKLY;BYDAY=1MO",
		"not a rule",
	} {
		_, _, err := ParseRRule(bad)
		assert.ErrorIs(t, err, ErrInvalidRule, bad)
	}
}

func TestRRuleRoundTrip(t *testing.T) {
	anchor := date(2025, 1, 6, 9, 0)
	for _, rule := range []Rule{Daily(), Weekly(time.Sunday, time.Saturday), Monthly(31), Yearly(time.March, 1)} {
		parsed, _, err := ParseRRule(rule.RRule(anchor, mo.None[time.Time]()))
		require.NoError(t, err)
		assert.True(t, rule.Equal(parsed), rule.Freq.String())
	}
}
