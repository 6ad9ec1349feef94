package recurrence

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/mo"
	"github.com/teambition/rrule-go"
)

// rrule-go weekdays indexed by time.Weekday.
var rruleWeekdays = []rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

var rruleDayCodes = []string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

// options converts a resolved rule into rrule-go options anchored at dtstart.
// Until is left unset; the engine applies the exclusive end bound itself.
func (r Rule) options(dtstart time.Time) (rrule.ROption, error) {
	opt := rrule.ROption{Dtstart: dtstart, Interval: 1}
	switch r.Freq {
	case FreqDaily:
		opt.Freq = rrule.DAILY
	case FreqWeekly:
		opt.Freq = rrule.WEEKLY
		for _, d := range r.Weekdays {
			opt.Byweekday = append(opt.Byweekday, rruleWeekdays[d])
		}
	case FreqMonthly:
		opt.Freq = rrule.MONTHLY
		opt.Bymonthday = []int{r.MonthDay}
	case FreqYearly:
		opt.Freq = rrule.YEARLY
		opt.Bymonth = []int{int(r.Month)}
		opt.Bymonthday = []int{r.MonthDay}
	default:
		return opt, fmt.Errorf("%w: frequency %s has no rrule form", ErrInvalidRule, r.Freq)
	}
	return opt, nil
}

// RRule renders the rule as an RFC 5545 RRULE value (without the "RRULE:"
// prefix), resolving derived selectors against anchor. A non-recurring rule
// renders as the empty string. until, when present, is emitted as UNTIL one
// second before the exclusive bound.
func (r Rule) RRule(anchor time.Time, until mo.Option[time.Time]) string {
	if !r.IsRecurring() {
		return ""
	}
	res := r.Resolve(anchor)
	parts := []string{"FREQ=" + strings.ToUpper(res.Freq.String())}
	switch res.Freq {
	case FreqWeekly:
		codes := make([]string, 0, len(res.Weekdays))
		for _, d := range res.Weekdays {
			codes = append(codes, rruleDayCodes[d])
		}
		parts = append(parts, "BYDAY="+strings.Join(codes, ","))
	case FreqMonthly:
		parts = append(parts, fmt.Sprintf("BYMONTHDAY=%d", res.MonthDay))
	case FreqYearly:
		parts = append(parts, fmt.Sprintf("BYMONTH=%d", int(res.Month)), fmt.Sprintf("BYMONTHDAY=%d", res.MonthDay))
	}
	if end, ok := until.Get(); ok {
		parts = append(parts, "UNTIL="+end.Add(-time.Second).UTC().Format("20060102T150405Z"))
	}
	return strings.Join(parts, ";")
}

// ParseRRule reads the subset of RRULE this package can evaluate: FREQ of
// DAILY, WEEKLY, MONTHLY or YEARLY with interval 1, plain BYDAY codes, a single
// BYMONTHDAY and a single BYMONTH. UNTIL is returned as an exclusive bound.
func ParseRRule(s string) (Rule, mo.Option[time.Time], error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "RRULE:")
	opt, err := rrule.StrToROption(s)
	if err != nil {
		return Rule{}, mo.None[time.Time](), fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	if opt.Interval > 1 || opt.Count > 0 || len(opt.Bysetpos) > 0 || len(opt.Byyearday) > 0 ||
		len(opt.Byweekno) > 0 || len(opt.Byhour) > 0 || len(opt.Byminute) > 0 || len(opt.Bysecond) > 0 {
		return Rule{}, mo.None[time.Time](), fmt.Errorf("%w: unsupported rule parts in %q", ErrInvalidRule, s)
	}
	if len(opt.Bymonthday) > 1 || len(opt.Bymonth) > 1 {
		return Rule{}, mo.None[time.Time](), fmt.Errorf("%w: only one BYMONTHDAY and BYMONTH are supported", ErrInvalidRule)
	}

	var rule Rule
	switch opt.Freq {
	case rrule.DAILY:
		rule.Freq = FreqDaily
	case rrule.WEEKLY:
		rule.Freq = FreqWeekly
		for i := range opt.Byweekday {
			if opt.Byweekday[i].N() != 0 {
				return Rule{}, mo.None[time.Time](), fmt.Errorf("%w: ordinal weekdays are not supported", ErrInvalidRule)
			}
			// rrule-go numbers Monday as 0.
			rule.Weekdays = append(rule.Weekdays, time.Weekday((opt.Byweekday[i].Day()+1)%7))
		}
	case rrule.MONTHLY:
		rule.Freq = FreqMonthly
	case rrule.YEARLY:
		rule.Freq = FreqYearly
		if len(opt.Bymonth) == 1 {
			rule.Month = time.Month(opt.Bymonth[0])
		}
	default:
		return Rule{}, mo.None[time.Time](), fmt.Errorf("%w: unsupported frequency in %q", ErrInvalidRule, s)
	}
	if len(opt.Bymonthday) == 1 && (rule.Freq == FreqMonthly || rule.Freq == FreqYearly) {
		rule.MonthDay = opt.Bymonthday[0]
	}
	if err := rule.Validate(); err != nil {
		return Rule{}, mo.None[time.Time](), err
	}

	until := mo.None[time.Time]()
	if !opt.Until.IsZero() {
		until = mo.Some(opt.Until.Add(time.Second))
	}
	return rule, until, nil
}
