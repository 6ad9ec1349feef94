package recurrence

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Frequency is the repetition period of a Rule.
type Frequency int

const (
	FreqNone Frequency = iota
	FreqDaily
	FreqWeekly
	FreqMonthly
	FreqYearly
)

var frequencyNames = map[Frequency]string{
	FreqNone:    "none",
	FreqDaily:   "daily",
	FreqWeekly:  "weekly",
	FreqMonthly: "monthly",
	FreqYearly:  "yearly",
}

func (f Frequency) String() string {
	if name, ok := frequencyNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Frequency(%d)", int(f))
}

// ParseFrequency accepts the lowercase names used on the wire. An empty
// string means no recurrence.
func ParseFrequency(s string) (Frequency, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FreqNone, nil
	}
	for f, name := range frequencyNames {
		if name == s {
			return f, nil
		}
	}
	return FreqNone, fmt.Errorf("%w: unknown recurrence %q", ErrInvalidRule, s)
}

// ErrInvalidRule is returned for rules that can never produce a valid date.
var ErrInvalidRule = errors.New("invalid recurrence rule")

// Rule describes how a series repeats. Zero-valued selector fields are
// derived from the anchor at evaluation time, so moving the anchor moves the
// derived day as well.
type Rule struct {
	Freq Frequency
	// Weekdays applies to FreqWeekly. Empty means the anchor's weekday.
	Weekdays []time.Weekday
	// MonthDay applies to FreqMonthly and FreqYearly. Zero means the anchor's day.
	MonthDay int
	// Month applies to FreqYearly. Zero means the anchor's month.
	Month time.Month
}

func None() Rule  { return Rule{} }
func Daily() Rule { return Rule{Freq: FreqDaily} }

func Weekly(days ...time.Weekday) Rule {
	return Rule{Freq: FreqWeekly, Weekdays: days}
}

func Monthly(day int) Rule { return Rule{Freq: FreqMonthly, MonthDay: day} }

func Yearly(month time.Month, day int) Rule {
	return Rule{Freq: FreqYearly, Month: month, MonthDay: day}
}

// IsRecurring reports whether the rule produces more than the anchor.
func (r Rule) IsRecurring() bool {
	return r.Freq != FreqNone
}

// Validate rejects selectors that are out of range or name a calendar date
// that never exists. February 29 is allowed.
func (r Rule) Validate() error {
	switch r.Freq {
	case FreqNone, FreqDaily:
		return nil
	case FreqWeekly:
		for _, d := range r.Weekdays {
			if d < time.Sunday || d > time.Saturday {
				return fmt.Errorf("%w: weekday %d out of range", ErrInvalidRule, d)
			}
		}
		return nil
	case FreqMonthly:
		if r.MonthDay < 0 || r.MonthDay > 31 {
			return fmt.Errorf("%w: day of month %d out of range", ErrInvalidRule, r.MonthDay)
		}
		return nil
	case FreqYearly:
		if r.Month < 0 || r.Month > time.December {
			return fmt.Errorf("%w: month %d out of range", ErrInvalidRule, r.Month)
		}
		if r.MonthDay < 0 || r.MonthDay > 31 {
			return fmt.Errorf("%w: day of month %d out of range", ErrInvalidRule, r.MonthDay)
		}
		if r.Month != 0 && r.MonthDay > daysIn(r.Month, 2000) {
			return fmt.Errorf("%w: %s has no day %d", ErrInvalidRule, r.Month, r.MonthDay)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown frequency %d", ErrInvalidRule, r.Freq)
	}
}

// Resolve fills selectors left at zero from the anchor and returns a rule
// with sorted, de-duplicated weekdays.
func (r Rule) Resolve(anchor time.Time) Rule {
	out := Rule{Freq: r.Freq}
	switch r.Freq {
	case FreqWeekly:
		days := slices.Clone(r.Weekdays)
		if len(days) == 0 {
			days = []time.Weekday{anchor.Weekday()}
		}
		slices.Sort(days)
		out.Weekdays = slices.Compact(days)
	case FreqMonthly:
		out.MonthDay = r.MonthDay
		if out.MonthDay == 0 {
			out.MonthDay = anchor.Day()
		}
	case FreqYearly:
		out.Month, out.MonthDay = r.Month, r.MonthDay
		if out.Month == 0 {
			out.Month = anchor.Month()
		}
		if out.MonthDay == 0 {
			out.MonthDay = anchor.Day()
		}
	}
	return out
}

// Equal compares two rules field by field, ignoring weekday order.
func (r Rule) Equal(o Rule) bool {
	if r.Freq != o.Freq || r.MonthDay != o.MonthDay || r.Month != o.Month {
		return false
	}
	a, b := slices.Clone(r.Weekdays), slices.Clone(o.Weekdays)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(slices.Compact(a), slices.Compact(b))
}

var weekdayNames = []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// WeekdayName returns the lowercase English name used on the wire.
func WeekdayName(d time.Weekday) string {
	if d < time.Sunday || d > time.Saturday {
		return ""
	}
	return weekdayNames[d]
}

// ParseWeekday accepts full names and the common three letter abbreviations,
// case-insensitively.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range weekdayNames {
		if s == name || (len(s) == 3 && strings.HasPrefix(name, s)) {
			return time.Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown weekday %q", ErrInvalidRule, s)
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
