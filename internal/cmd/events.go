package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/doctag/internal/api"
	"github.com/felixgeelhaar/doctag/internal/apierr"
	"github.com/felixgeelhaar/doctag/internal/status"
	"github.com/felixgeelhaar/doctag/internal/ux"
)

// defaultEventLimit matches the dashboard feed
const defaultEventLimit = 10

func eventsTable(events []api.Event) *ux.Table {
	t := &ux.Table{
		Headers: []string{"WHEN", "TYPE", "NAME", "ACTION", "PROJECT"},
		Empty:   "Nothing happened yet.",
	}
	for _, ev := range events {
		kind := ev.Type
		if kind == "" {
			kind = "project"
			if ev.DocumentID != nil {
				kind = "document"
			}
		}
		t.Rows = append(t.Rows, []string{
			formatTime(ev.Timestamp), kind, ev.Name, ev.Action, strconv.Itoa(ev.ProjectID),
		})
	}
	return t
}

func limitEvents(events []api.Event, n int) []api.Event {
	if n > 0 && len(events) > n {
		return events[:n]
	}
	return events
}

func newEventsCmd(r *runner) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show recent activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := r.load(cmd, appOptions{})
			if err != nil {
				return err
			}
			if err := a.requireLogin(); err != nil {
				return err
			}

			events, err := a.client.Events(cmd.Context())
			if err != nil {
				return err
			}
			events = limitEvents(events, limit)
			return a.output(cmd.OutOrStdout(), events, eventsTable(events))
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", defaultEventLimit, "number of events to show (0 for all)")
	return cmd
}

// dashboardView renders both dashboard sections. A failed section shows an
// inline message in place of its content.
type dashboardView struct {
	d    api.Dashboard
	user string
}

// dashboardData is the structured form of the dashboard
type dashboardData struct {
	User          string        `json:"user,omitempty" yaml:"user,omitempty"`
	Projects      []api.Project `json:"projects" yaml:"projects"`
	Events        []api.Event   `json:"events" yaml:"events"`
	ProjectsError string        `json:"projects_error,omitempty" yaml:"projects_error,omitempty"`
	EventsError   string        `json:"events_error,omitempty" yaml:"events_error,omitempty"`
}

func (v dashboardView) RenderText(w io.Writer) error {
	if v.user != "" {
		fmt.Fprintf(w, "Welcome back, %s.\n\n", v.user)
	}

	fmt.Fprintln(w, "Projects")
	if v.d.ProjectsErr != nil {
		fmt.Fprintln(w, inlineMessage("Fetch Projects", v.d.ProjectsErr))
	} else {
		t := &ux.Table{Headers: []string{"ID", "NAME", "DOCUMENTS"}, Empty: "No projects yet."}
		for _, p := range v.d.Projects {
			t.Rows = append(t.Rows, []string{strconv.Itoa(p.ID), p.Name, strconv.Itoa(len(p.Documents))})
		}
		if err := t.RenderText(w); err != nil {
			return err
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Recent Activity")
	if v.d.EventsErr != nil {
		_, err := fmt.Fprintln(w, inlineMessage("Fetch Events", v.d.EventsErr))
		return err
	}
	return eventsTable(v.d.Events).RenderText(w)
}

// inlineMessage renders a failed fetch, e.g. "[500] Fetch Events - Internal Server Error!"
func inlineMessage(title string, err error) string {
	apiErr, ok := apierr.As(err)
	if !ok {
		return err.Error()
	}
	if apiErr.IsBusiness() {
		return apiErr.Message
	}
	return status.Inline(title, apiErr.Status)
}

func newHomeCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "home",
		Short: "Show the dashboard: projects and recent activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := r.load(cmd, appOptions{})
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			d := api.LoadDashboard(ctx, a.client)
			d.Events = limitEvents(d.Events, defaultEventLimit)

			a.store.Wait()
			user := a.store.Snapshot().Username()

			data := dashboardData{User: user, Projects: d.Projects, Events: d.Events}
			if d.ProjectsErr != nil {
				data.ProjectsError = inlineMessage("Fetch Projects", d.ProjectsErr)
			}
			if d.EventsErr != nil {
				data.EventsError = inlineMessage("Fetch Events", d.EventsErr)
			}
			return a.output(cmd.OutOrStdout(), data, dashboardView{d: d, user: user})
		},
	}
}
