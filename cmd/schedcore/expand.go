package main

import (
	"fmt"
	"io"
	"time"

	"github.com/cyp0633/schedcore/protocol"
	"github.com/cyp0633/schedcore/server/recurrence"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
)

var (
	expandStart string
	expandRRule string
	expandUntil string
	expandFrom  string
	expandTo    string
	expandTZ    string
)

var expandCmd = &cobra.Command{
	Use:   "expand",
	Short: "Print the occurrence starts of a recurrence rule",
	Long: `expand evaluates an RRULE against an anchor without a server, for example:

  schedcore expand --start 2025-01-31T10:00:00 --tz Europe/Berlin --rrule FREQ=MONTHLY`,
	Args: cobra.NoArgs,
	RunE: runExpand,
}

func init() {
	expandCmd.Flags().StringVar(&expandStart, "start", "", "Anchor (first occurrence) start, RFC 3339 or local date-time")
	expandCmd.Flags().StringVar(&expandRRule, "rrule", "", "Rule such as FREQ=WEEKLY;BYDAY=MO,WE; empty for a single occurrence")
	expandCmd.Flags().StringVar(&expandUntil, "until", "", "Exclusive end of the series, overriding UNTIL")
	expandCmd.Flags().StringVar(&expandFrom, "from", "", "Window start (default: the anchor)")
	expandCmd.Flags().StringVar(&expandTo, "to", "", "Window end (default: 31 days after the window start)")
	expandCmd.Flags().StringVar(&expandTZ, "tz", "UTC", "Zone the rule is evaluated in")
	expandCmd.MarkFlagRequired("start")
}

func runExpand(cmd *cobra.Command, args []string) error {
	loc, err := time.LoadLocation(expandTZ)
	if err != nil {
		return fmt.Errorf("--tz: %w", err)
	}
	anchor, err := parseLocal(expandStart, loc)
	if err != nil {
		return fmt.Errorf("--start: %w", err)
	}

	rule := recurrence.None()
	until := mo.None[time.Time]()
	if expandRRule != "" {
		if rule, until, err = recurrence.ParseRRule(expandRRule); err != nil {
			return err
		}
	}
	if expandUntil != "" {
		t, err := parseLocal(expandUntil, loc)
		if err != nil {
			return fmt.Errorf("--until: %w", err)
		}
		until = mo.Some(t)
	}

	from := anchor
	if expandFrom != "" {
		if from, err = parseLocal(expandFrom, loc); err != nil {
			return fmt.Errorf("--from: %w", err)
		}
	}
	to := from.AddDate(0, 0, 31)
	if expandTo != "" {
		if to, err = parseLocal(expandTo, loc); err != nil {
			return fmt.Errorf("--to: %w", err)
		}
	}

	starts, err := recurrence.NewEngine().Expand(rule, anchor, until, from, to)
	if err != nil {
		return err
	}
	printStarts(cmd.OutOrStdout(), starts)
	return nil
}

// parseLocal accepts RFC 3339, or a date-time without offset read in loc.
func parseLocal(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	t, err := protocol.ParseTime(s)
	if err != nil {
		return time.Time{}, err
	}
	return t.In(loc), nil
}

func printStarts(w io.Writer, starts []time.Time) {
	if len(starts) == 0 {
		fmt.Fprintln(w, "No occurrences.")
		return
	}
	for _, t := range starts {
		fmt.Fprintln(w, t.Format("Mon 2006-01-02 15:04 MST"))
	}
}
