package api

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// Dashboard is the data behind the home screen.
type Dashboard struct {
	Projects    []Project
	Events      []Event
	ProjectsErr error
	EventsErr   error
}

// Err joins the per-section failures
func (d Dashboard) Err() error {
	return errors.Join(d.ProjectsErr, d.EventsErr)
}

// LoadDashboard fetches the project tree and the event feed concurrently.
// A failure in one section does not cancel the other; each failure is
// published by the client on its own.
func LoadDashboard(ctx context.Context, c *Client) Dashboard {
	var (
		d Dashboard
		g errgroup.Group
	)

	g.Go(func() error {
		d.Projects, d.ProjectsErr = c.Projects(ctx)
		return nil
	})
	g.Go(func() error {
		d.Events, d.EventsErr = c.Events(ctx)
		return nil
	})
	_ = g.Wait()

	return d
}
