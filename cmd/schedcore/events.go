package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/cyp0633/schedcore/client"
	"github.com/cyp0633/schedcore/internal/httpclient"
	"github.com/cyp0633/schedcore/internal/logging"
	"github.com/cyp0633/schedcore/protocol"
	"github.com/cyp0633/schedcore/server/auth"
	"github.com/emersion/go-ical"
	"github.com/spf13/cobra"
)

var (
	eventsServer   string
	eventsOwner    string
	eventsUser     string
	eventsPassword string

	listFrom   string
	listTo     string
	listDomain []string

	deleteScope      string
	deleteOccurrence string
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect and edit events on a running server",
}

var eventsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List occurrences in a window",
	Args:  cobra.NoArgs,
	RunE:  runEventsList,
}

var eventsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print a series with its exceptions as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runEventsGet,
}

var eventsExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Print a series as iCalendar",
	Args:  cobra.ExactArgs(1),
	RunE:  runEventsExport,
}

var eventsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a series, one occurrence or an occurrence and all after it",
	Args:  cobra.ExactArgs(1),
	RunE:  runEventsDelete,
}

func init() {
	flags := eventsCmd.PersistentFlags()
	flags.StringVar(&eventsServer, "server", "http://localhost:8080", "Server base URL")
	flags.StringVar(&eventsOwner, "owner", "", "Owner id sent in the X-User-ID header")
	flags.StringVar(&eventsUser, "user", "", "Basic auth username")
	flags.StringVar(&eventsPassword, "password", "", "Basic auth password")

	eventsListCmd.Flags().StringVar(&listFrom, "from", "", "Window start (default: start of today)")
	eventsListCmd.Flags().StringVar(&listTo, "to", "", "Window end (default: 7 days after --from)")
	eventsListCmd.Flags().StringSliceVar(&listDomain, "domain", nil, "Only show these domains")

	eventsDeleteCmd.Flags().StringVar(&deleteScope, "scope", protocol.ScopeAll, "this, following or all")
	eventsDeleteCmd.Flags().StringVar(&deleteOccurrence, "occurrence", "", "Occurrence date for this and following")

	eventsCmd.AddCommand(eventsListCmd, eventsGetCmd, eventsExportCmd, eventsDeleteCmd)
}

func newClient() (client.SchedClient, error) {
	level := logLevel
	if level == "" {
		level = "warn"
	}
	logger, err := logging.New(level, logFormat, os.Stderr)
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(strings.TrimSuffix(eventsServer, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("--server: %w", err)
	}

	var transport http.RoundTripper
	switch {
	case eventsUser != "":
		transport = httpclient.NewBasicAuthTransport(eventsUser, eventsPassword, nil, logger)
	case eventsOwner != "":
		transport = httpclient.NewOwnerTransport(auth.DefaultHeader, eventsOwner, nil, logger)
	}
	hc := &http.Client{Transport: transport, Timeout: 30 * time.Second}

	wrapper, err := httpclient.NewHttpClientWrapper(hc, *base, logger)
	if err != nil {
		return nil, err
	}
	return client.NewSchedClient(wrapper), nil
}

func runEventsList(cmd *cobra.Command, args []string) error {
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	var err error
	if listFrom != "" {
		if from, err = parseLocal(listFrom, time.Local); err != nil {
			return fmt.Errorf("--from: %w", err)
		}
	}
	to := from.AddDate(0, 0, 7)
	if listTo != "" {
		if to, err = parseLocal(listTo, time.Local); err != nil {
			return fmt.Errorf("--to: %w", err)
		}
	}

	c, err := newClient()
	if err != nil {
		return err
	}
	filter := c.Occurrences(from, to)
	if len(listDomain) > 0 {
		filter = filter.Domains(listDomain...)
	}
	events, err := filter.Do(cmd.Context())
	if err != nil {
		return err
	}
	printEvents(cmd.OutOrStdout(), events)
	return nil
}

// printEvents groups occurrences by local date.
func printEvents(w io.Writer, events []protocol.Event) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No events found.")
		return
	}

	var currentDay string
	for _, e := range events {
		start := e.StartDate
		if !e.IsAllDay {
			start = start.Local()
		}
		day := start.Format("2006-01-02")
		if day != currentDay {
			fmt.Fprintln(w, day)
			currentDay = day
		}

		when := "all day    "
		if !e.IsAllDay {
			when = start.Format("15:04") + "-" + e.EndDate.Local().Format("15:04")
		}
		marker := ""
		if e.IsException {
			marker = " *"
		}
		fmt.Fprintf(w, "  %s  %s [%s]%s  (%s)\n", when, e.Title, e.Domain, marker, e.SeriesID)
	}
}

func runEventsGet(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	series, _, err := c.GetEvent(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(series)
}

func runEventsExport(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	cal, err := c.ExportCalendar(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return ical.NewEncoder(cmd.OutOrStdout()).Encode(cal)
}

func runEventsDelete(cmd *cobra.Command, args []string) error {
	req := protocol.DeleteEventRequest{DeleteScope: deleteScope}
	if deleteOccurrence != "" {
		t, err := protocol.ParseTime(deleteOccurrence)
		if err != nil {
			return fmt.Errorf("--occurrence: %w", err)
		}
		req.OccurrenceDate = protocol.SomeTime(t)
	}

	c, err := newClient()
	if err != nil {
		return err
	}
	if err := c.DeleteEvent(cmd.Context(), args[0], req); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Deleted.")
	return nil
}
