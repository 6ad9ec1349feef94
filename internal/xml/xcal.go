// Package xml renders series as xCal documents (RFC 6321).
package xml

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/cyp0633/schedcore/server/storage"
)

const (
	productID = "-//schedcore//Recurring Schedule//EN"

	layoutDate      = "2006-01-02"
	layoutLocal     = "2006-01-02T15:04:05"
	layoutUTC       = "2006-01-02T15:04:05Z"
	layoutRRuleTime = "20060102T150405Z"
)

// Common xCal element names
const (
	TagICalendar  = "icalendar"
	TagVCalendar  = "vcalendar"
	TagVEvent     = "vevent"
	TagProperties = "properties"
	TagParameters = "parameters"
	TagComponents = "components"
	TagText       = "text"
	TagDate       = "date"
	TagDateTime   = "date-time"
	TagRecur      = "recur"
)

// Encode builds the xCal document for a series. The master vevent carries the
// rule and one exdate per deleted occurrence; modified occurrences become
// separate vevents with a recurrence-id.
func Encode(rec *storage.Record, stamp time.Time) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement(TagICalendar)
	AddNamespaces(doc)

	vcal := root.CreateElement(TagVCalendar)
	props := vcal.CreateElement(TagProperties)
	textProp(props, "version", "2.0")
	textProp(props, "prodid", productID)
	components := vcal.CreateElement(TagComponents)

	s := rec.Series
	master := components.CreateElement(TagVEvent)
	mp := master.CreateElement(TagProperties)
	textProp(mp, "uid", s.ID)
	timeProp(mp, "dtstamp", stamp.UTC(), false)
	span(mp, s.AnchorStart, s.AnchorEnd, s.IsAllDay)
	details(mp, s.Title, s.Domain, s.Location, s.Description, s.HideFromAgenda)
	if !s.Modified.IsZero() {
		timeProp(mp, "last-modified", s.Modified.UTC(), false)
	}
	if s.Recurrence.IsRecurring() {
		recur(mp, s.Recurrence.RRule(s.AnchorStart, s.RecurrenceEnd))
	}

	for _, ex := range rec.Exceptions {
		switch ex.Kind {
		case storage.ExceptionDeleted:
			timeProp(mp, "exdate", ex.OccurrenceDate, s.IsAllDay)
		case storage.ExceptionModified:
			override(components, s, ex, stamp)
		}
	}
	return doc
}

// Write encodes rec and writes it indented to w.
func Write(w io.Writer, rec *storage.Record, stamp time.Time) error {
	doc := Encode(rec, stamp)
	doc.Indent(2)
	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write xCal: %w", err)
	}
	return nil
}

func override(components *etree.Element, s *storage.Series, ex *storage.Exception, stamp time.Time) {
	o := ex.Override
	start := o.Start.OrElse(ex.OccurrenceDate)
	end := o.End.OrElse(start.Add(s.Duration()))

	props := components.CreateElement(TagVEvent).CreateElement(TagProperties)
	textProp(props, "uid", s.ID)
	timeProp(props, "dtstamp", stamp.UTC(), false)
	timeProp(props, "recurrence-id", ex.OccurrenceDate, s.IsAllDay)
	span(props, start, end, o.IsAllDay.OrElse(s.IsAllDay))
	details(props,
		o.Title.OrElse(s.Title),
		o.Domain.OrElse(s.Domain),
		o.Location.OrElse(s.Location),
		o.Description.OrElse(s.Description),
		o.HideFromAgenda.OrElse(s.HideFromAgenda))
}

// span writes dtstart and dtend. All-day spans end exclusively on the day
// after the last covered date.
func span(props *etree.Element, start, end time.Time, allDay bool) {
	if allDay {
		timeProp(props, "dtstart", start, true)
		timeProp(props, "dtend", end.AddDate(0, 0, 1), true)
		return
	}
	timeProp(props, "dtstart", start, false)
	timeProp(props, "dtend", end, false)
}

func details(props *etree.Element, title string, domain storage.Domain, location, description string, hide bool) {
	textProp(props, "summary", title)
	if domain != "" {
		textProp(props, "categories", string(domain))
	}
	if location != "" {
		textProp(props, "location", location)
	}
	if description != "" {
		textProp(props, "description", description)
	}
	if hide {
		prop := props.CreateElement("X:hide-from-agenda")
		prop.CreateElement("boolean").SetText("true")
	}
}

func textProp(props *etree.Element, name, value string) {
	props.CreateElement(name).CreateElement(TagText).SetText(value)
}

// timeProp writes a date or date-time value. Times outside UTC are written
// as local time with a tzid parameter.
func timeProp(props *etree.Element, name string, t time.Time, dateOnly bool) {
	prop := props.CreateElement(name)
	if dateOnly {
		prop.CreateElement(TagDate).SetText(t.Format(layoutDate))
		return
	}
	if t.Location() == time.UTC {
		prop.CreateElement(TagDateTime).SetText(t.Format(layoutUTC))
		return
	}
	params := prop.CreateElement(TagParameters)
	params.CreateElement("tzid").CreateElement(TagText).SetText(t.Location().String())
	prop.CreateElement(TagDateTime).SetText(t.Format(layoutLocal))
}

// recur converts an RRULE value into the structured recur element.
func recur(props *etree.Element, rule string) {
	r := props.CreateElement("rrule").CreateElement(TagRecur)
	for _, part := range strings.Split(rule, ";") {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		name := strings.ToLower(key)
		switch name {
		case "until":
			if t, err := time.Parse(layoutRRuleTime, value); err == nil {
				value = t.Format(layoutUTC)
			}
			r.CreateElement(name).SetText(value)
		case "byday", "bymonthday", "bymonth":
			for _, v := range strings.Split(value, ",") {
				r.CreateElement(name).SetText(v)
			}
		default:
			r.CreateElement(name).SetText(value)
		}
	}
}
