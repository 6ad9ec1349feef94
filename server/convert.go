package server

import (
	"time"

	"github.com/cyp0633/schedcore/protocol"
	"github.com/cyp0633/schedcore/server/occurrence"
	"github.com/cyp0633/schedcore/server/recurrence"
	"github.com/cyp0633/schedcore/server/schedule"
	"github.com/cyp0633/schedcore/server/storage"
	"github.com/samber/mo"
)

// ruleFrom builds a recurrence rule from its wire fields. Selectors left at
// zero are derived from the anchor.
func ruleFrom(name string, days protocol.WeekdayList, monthDay, month int) (recurrence.Rule, error) {
	freq, err := recurrence.ParseFrequency(name)
	if err != nil {
		return recurrence.Rule{}, &schedule.ValidationError{Field: "recurrence", Message: err.Error()}
	}
	rule := recurrence.Rule{Freq: freq}
	switch freq {
	case recurrence.FreqWeekly:
		rule.Weekdays = []time.Weekday(days)
	case recurrence.FreqMonthly:
		rule.MonthDay = monthDay
	case recurrence.FreqYearly:
		rule.MonthDay = monthDay
		rule.Month = time.Month(month)
	}
	return rule, nil
}

func createRequest(ownerID string, body protocol.CreateEventRequest) (schedule.CreateRequest, error) {
	rule, err := ruleFrom(body.Recurrence, body.RecurrenceDays, body.RecurrenceDayOfMonth, body.RecurrenceMonth)
	if err != nil {
		return schedule.CreateRequest{}, err
	}
	return schedule.CreateRequest{
		OwnerID:        ownerID,
		Title:          body.Title,
		Domain:         storage.Domain(body.Domain),
		Location:       body.Location,
		Description:    body.Description,
		Start:          body.StartDate.OrZero(),
		End:            body.EndDate.OrZero(),
		IsAllDay:       body.IsAllDay,
		Recurrence:     rule,
		RecurrenceEnd:  body.RecurrenceEnd.Option(),
		HideFromAgenda: body.HideFromAgenda,
		TimeZone:       body.TimeZone,
	}, nil
}

func changesFrom(body protocol.UpdateEventRequest) (schedule.Changes, error) {
	c := schedule.Changes{
		Title:              optionOf(body.Title),
		Location:           optionOf(body.Location),
		Description:        optionOf(body.Description),
		Start:              body.StartDate.Option(),
		End:                body.EndDate.Option(),
		IsAllDay:           optionOf(body.IsAllDay),
		HideFromAgenda:     optionOf(body.HideFromAgenda),
		RecurrenceEnd:      body.RecurrenceEnd.Option(),
		ClearRecurrenceEnd: body.ClearRecurrenceEnd,
		TimeZone:           optionOf(body.TimeZone),
	}
	if body.Domain != nil {
		c.Domain = mo.Some(storage.Domain(*body.Domain))
	}
	if body.Recurrence != nil {
		rule, err := ruleFrom(*body.Recurrence, body.RecurrenceDays, body.RecurrenceDayOfMonth, body.RecurrenceMonth)
		if err != nil {
			return schedule.Changes{}, err
		}
		c.Recurrence = mo.Some(rule)
	}
	return c, nil
}

func toEvent(o occurrence.Occurrence) protocol.Event {
	e := protocol.Event{
		ID:             o.SeriesID,
		SeriesID:       o.SeriesID,
		OccurrenceDate: o.OccurrenceDate,
		Title:          o.Title,
		Domain:         string(o.Domain),
		Location:       o.Location,
		Description:    o.Description,
		StartDate:      o.Start,
		EndDate:        o.End,
		IsAllDay:       o.IsAllDay,
		IsRecurring:    o.IsRecurring(),
		Recurrence:     o.Recurrence.Freq.String(),
		HideFromAgenda: o.HideFromAgenda,
		IsException:    o.IsException,
	}
	e.RecurrenceDays, e.RecurrenceDayOfMonth, e.RecurrenceMonth = selectors(o.Recurrence)
	return e
}

// toEvents never returns nil so empty lists encode as [].
func toEvents(occs []occurrence.Occurrence) []protocol.Event {
	events := make([]protocol.Event, 0, len(occs))
	for _, o := range occs {
		events = append(events, toEvent(o))
	}
	return events
}

func toEventResponse(res *schedule.Result) protocol.EventResponse {
	return protocol.EventResponse{
		Event:     toEvent(res.Event),
		Conflicts: toEvents(res.Conflicts),
	}
}

func toSeries(rec *storage.Record) protocol.Series {
	s := rec.Series
	out := protocol.Series{
		ID:             s.ID,
		OwnerID:        s.OwnerID,
		Title:          s.Title,
		Domain:         string(s.Domain),
		Location:       s.Location,
		Description:    s.Description,
		StartDate:      s.AnchorStart,
		EndDate:        s.AnchorEnd,
		IsAllDay:       s.IsAllDay,
		IsRecurring:    s.Recurrence.IsRecurring(),
		Recurrence:     s.Recurrence.Freq.String(),
		RecurrenceEnd:  protocol.FromOption(s.RecurrenceEnd),
		HideFromAgenda: s.HideFromAgenda,
		TimeZone:       s.TimeZone,
		SplitFrom:      s.SplitFrom,
		Exceptions:     make([]protocol.Exception, 0, len(rec.Exceptions)),
		CreatedAt:      s.Created,
		UpdatedAt:      s.Modified,
		Revision:       s.Revision,
	}
	out.RecurrenceDays, out.RecurrenceDayOfMonth, out.RecurrenceMonth = selectors(s.Recurrence)
	for _, ex := range rec.Exceptions {
		out.Exceptions = append(out.Exceptions, toException(ex))
	}
	return out
}

func toException(ex *storage.Exception) protocol.Exception {
	ov := ex.Override
	out := protocol.Exception{
		OccurrenceDate: ex.OccurrenceDate,
		Type:           ex.Kind.String(),
		Title:          pointerOf(ov.Title),
		Location:       pointerOf(ov.Location),
		Description:    pointerOf(ov.Description),
		StartDate:      pointerOf(ov.Start),
		EndDate:        pointerOf(ov.End),
		IsAllDay:       pointerOf(ov.IsAllDay),
		HideFromAgenda: pointerOf(ov.HideFromAgenda),
	}
	if d, ok := ov.Domain.Get(); ok {
		name := string(d)
		out.Domain = &name
	}
	return out
}

// selectors returns the explicit selectors of rule as sent on the wire.
func selectors(rule recurrence.Rule) (protocol.WeekdayList, int, int) {
	switch rule.Freq {
	case recurrence.FreqWeekly:
		return protocol.WeekdayList(rule.Weekdays), 0, 0
	case recurrence.FreqMonthly:
		return nil, rule.MonthDay, 0
	case recurrence.FreqYearly:
		return nil, rule.MonthDay, int(rule.Month)
	}
	return nil, 0, 0
}

func pointerOf[T any](o mo.Option[T]) *T {
	v, ok := o.Get()
	if !ok {
		return nil
	}
	return &v
}
