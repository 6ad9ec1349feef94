package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/samber/mo"
)

// dateLayout is accepted on input for all-day values.
const dateLayout = "2006-01-02"

// OptionalTime is an ISO-8601 instant that may be absent. It decodes null and
// the empty string as absent and encodes absent as null.
type OptionalTime struct {
	Time  time.Time
	Valid bool
}

// SomeTime wraps a present instant.
func SomeTime(t time.Time) OptionalTime {
	return OptionalTime{Time: t, Valid: true}
}

// FromOption converts an mo.Option.
func FromOption(o mo.Option[time.Time]) OptionalTime {
	t, ok := o.Get()
	return OptionalTime{Time: t, Valid: ok}
}

// Option converts to an mo.Option.
func (o OptionalTime) Option() mo.Option[time.Time] {
	if !o.Valid {
		return mo.None[time.Time]()
	}
	return mo.Some(o.Time)
}

// OrZero returns the instant, or the zero time when absent.
func (o OptionalTime) OrZero() time.Time {
	if !o.Valid {
		return time.Time{}
	}
	return o.Time
}

func (o OptionalTime) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Time.Format(time.RFC3339))
}

func (o *OptionalTime) UnmarshalJSON(data []byte) error {
	*o = OptionalTime{}
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if s == "" {
		return nil
	}
	t, err := ParseTime(s)
	if err != nil {
		return err
	}
	*o = SomeTime(t)
	return nil
}

// ParseTime parses an RFC 3339 instant or a bare date, which is taken as
// midnight UTC.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want RFC 3339", s)
	}
	return t, nil
}

// FormatTime renders t the way every date on the wire is rendered.
func FormatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}
