package schedule

import (
	"strings"
	"time"

	"github.com/samber/mo"
)

// Scope is the breadth of an update or delete against a series. Exactly one
// of This, ThisAndFollowing and All implements it.
type Scope interface {
	String() string
	scope()
}

// This targets a single occurrence.
type This struct {
	OccurrenceDate time.Time
}

// ThisAndFollowing targets an occurrence and every later one.
type ThisAndFollowing struct {
	OccurrenceDate time.Time
}

// All targets the whole series. Reference optionally names the occurrence the
// caller was looking at; new start and end times are then read relative to
// it rather than to the series anchor.
type All struct {
	Reference mo.Option[time.Time]
}

func (This) scope()             {}
func (ThisAndFollowing) scope() {}
func (All) scope()              {}

func (This) String() string             { return "this" }
func (ThisAndFollowing) String() string { return "following" }
func (All) String() string              { return "all" }

// ParseScope builds a Scope from its wire name and the optional occurrence
// date. "following" and "thisAndFollowing" are synonyms. An empty name means
// All.
func ParseScope(name string, occurrenceDate mo.Option[time.Time]) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "this":
		date, ok := occurrenceDate.Get()
		if !ok {
			return nil, invalidScope(This{}, "occurrenceDate is required")
		}
		return This{OccurrenceDate: date}, nil
	case "following", "thisandfollowing", "this_and_following":
		date, ok := occurrenceDate.Get()
		if !ok {
			return nil, invalidScope(ThisAndFollowing{}, "occurrenceDate is required")
		}
		return ThisAndFollowing{OccurrenceDate: date}, nil
	case "all", "":
		return All{Reference: occurrenceDate}, nil
	default:
		return nil, invalid("scope", "unknown scope %q", name)
	}
}
