package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cyp0633/schedcore/server/recurrence"
)

// WeekdayList is the day set of a weekly rule. It is encoded as a JSON array
// of lower-case day names. For older clients a string holding that array, or
// a comma separated list, is accepted on input.
type WeekdayList []time.Weekday

func (l WeekdayList) MarshalJSON() ([]byte, error) {
	names := make([]string, 0, len(l))
	for _, d := range l {
		names = append(names, recurrence.WeekdayName(d))
	}
	return json.Marshal(names)
}

func (l *WeekdayList) UnmarshalJSON(data []byte) error {
	*l = nil
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var names []string
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		switch {
		case s == "":
			return nil
		case strings.HasPrefix(s, "["):
			if err := json.Unmarshal([]byte(s), &names); err != nil {
				return fmt.Errorf("recurrenceDays: %w", err)
			}
		default:
			names = strings.Split(s, ",")
		}
	} else if err := json.Unmarshal(data, &names); err != nil {
		return fmt.Errorf("recurrenceDays: %w", err)
	}

	days := make(WeekdayList, 0, len(names))
	for _, name := range names {
		d, err := recurrence.ParseWeekday(name)
		if err != nil {
			return err
		}
		days = append(days, d)
	}
	*l = days
	return nil
}
