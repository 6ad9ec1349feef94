package storage

import (
	"bytes"
	"fmt"
	"time"

	"github.com/emersion/go-ical"
)

const (
	icalProductID      = "-//schedcore//Recurring Schedule//EN"
	propHideFromAgenda = "X-SCHEDCORE-HIDE-FROM-AGENDA"
	propRecurrenceID   = "RECURRENCE-ID"
)

// RecordToICS renders a series as a VCALENDAR. The master VEVENT carries the
// RRULE and an EXDATE per deleted occurrence; each modified occurrence becomes
// its own VEVENT with a RECURRENCE-ID.
func RecordToICS(rec *Record, stamp time.Time) (string, error) {
	cal := RecordToCalendar(rec, stamp)

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return "", fmt.Errorf("failed to encode calendar: %w", err)
	}
	return buf.String(), nil
}

// RecordToCalendar builds the go-ical tree RecordToICS encodes.
func RecordToCalendar(rec *Record, stamp time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, icalProductID)

	s := rec.Series
	master := ical.NewEvent()
	master.Props.SetText(ical.PropUID, s.ID)
	master.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	setSpan(master.Props, s.AnchorStart, s.AnchorEnd, s.IsAllDay)
	setDetails(master.Props, s.Title, s.Domain, s.Location, s.Description, s.HideFromAgenda)
	if !s.Modified.IsZero() {
		master.Props.SetDateTime(ical.PropLastModified, s.Modified.UTC())
	}

	if s.Recurrence.IsRecurring() {
		rule := ical.NewProp(ical.PropRecurrenceRule)
		rule.Value = s.Recurrence.RRule(s.AnchorStart, s.RecurrenceEnd)
		master.Props.Set(rule)
	}
	cal.Children = append(cal.Children, master.Component)

	for _, ex := range rec.Exceptions {
		switch ex.Kind {
		case ExceptionDeleted:
			master.Props.Add(dateProp(ical.PropExceptionDates, ex.OccurrenceDate, s.IsAllDay))
		case ExceptionModified:
			cal.Children = append(cal.Children, overrideEvent(s, ex, stamp).Component)
		}
	}
	return cal
}

func overrideEvent(s *Series, ex *Exception, stamp time.Time) *ical.Event {
	o := ex.Override
	start := o.Start.OrElse(ex.OccurrenceDate)
	end := o.End.OrElse(start.Add(s.Duration()))
	allDay := o.IsAllDay.OrElse(s.IsAllDay)

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, s.ID)
	event.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	event.Props.Set(dateProp(propRecurrenceID, ex.OccurrenceDate, s.IsAllDay))
	setSpan(event.Props, start, end, allDay)
	setDetails(event.Props,
		o.Title.OrElse(s.Title),
		o.Domain.OrElse(s.Domain),
		o.Location.OrElse(s.Location),
		o.Description.OrElse(s.Description),
		o.HideFromAgenda.OrElse(s.HideFromAgenda))
	return event
}

// setSpan writes DTSTART and DTEND. All-day spans are DATE values with an
// exclusive DTEND on the day after the last covered date.
func setSpan(props ical.Props, start, end time.Time, allDay bool) {
	if allDay {
		props.SetDate(ical.PropDateTimeStart, start)
		props.SetDate(ical.PropDateTimeEnd, end.AddDate(0, 0, 1))
		return
	}
	props.SetDateTime(ical.PropDateTimeStart, start)
	props.SetDateTime(ical.PropDateTimeEnd, end)
}

func setDetails(props ical.Props, title string, domain Domain, location, description string, hide bool) {
	props.SetText(ical.PropSummary, title)
	if domain != "" {
		props.SetText(ical.PropCategories, string(domain))
	}
	if location != "" {
		props.SetText(ical.PropLocation, location)
	}
	if description != "" {
		props.SetText(ical.PropDescription, description)
	}
	if hide {
		props.SetText(propHideFromAgenda, "TRUE")
	}
}

func dateProp(name string, t time.Time, allDay bool) *ical.Prop {
	prop := ical.NewProp(name)
	if allDay {
		prop.SetDate(t)
	} else {
		prop.SetDateTime(t)
	}
	return prop
}
