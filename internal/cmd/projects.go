package cmd

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/doctag/internal/api"
	"github.com/felixgeelhaar/doctag/internal/tui"
	"github.com/felixgeelhaar/doctag/internal/ux"
)

// errNotConfirmed is returned when a delete runs non-interactively without --yes
var errNotConfirmed = errors.New("refusing to delete without confirmation: pass --yes")

func newProjectsCmd(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"project"},
		Short:   "List, show and delete projects",
		Long: `Work with the projects you have access to.

Examples:
  # List projects with document counts and your permission
  doctag projects list

  # Show the documents of project 3
  doctag projects show 3

  # Delete project 3 without a prompt
  doctag projects delete 3 --yes
`,
	}
	cmd.AddCommand(newProjectsListCmd(r), newProjectsShowCmd(r), newProjectsDeleteCmd(r))
	return cmd
}

// projectsView renders the project listing
type projectsView struct {
	projects []api.Project
	user     api.User
}

func (v projectsView) RenderText(w io.Writer) error {
	t := &ux.Table{
		Headers: []string{"ID", "NAME", "DOCUMENTS", "ACCESS", "UPDATED"},
		Empty:   "No projects yet.",
	}
	for _, p := range v.projects {
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(p.ID),
			p.Name,
			strconv.Itoa(len(p.Documents)),
			access(v.user, p.ID),
			formatTime(p.UpdatedAt),
		})
	}
	return t.RenderText(w)
}

func access(user api.User, projectID int) string {
	p, ok := user.PermissionFor(projectID)
	if !ok {
		return "-"
	}
	return string(p)
}

func newProjectsListCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := r.load(cmd, appOptions{})
			if err != nil {
				return err
			}
			if err := a.requireLogin(); err != nil {
				return err
			}
			ctx := cmd.Context()

			projects, err := a.client.Projects(ctx)
			if err != nil {
				return err
			}
			return a.output(cmd.OutOrStdout(), projects, projectsView{projects: projects, user: a.identity(ctx)})
		},
	}
}

// projectView renders one project with its documents
type projectView struct {
	project api.Project
}

func (v projectView) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "%s (#%d)\n", v.project.Name, v.project.ID)
	fmt.Fprintf(w, "Created %s, updated %s\n\n", formatTime(v.project.CreatedAt), formatTime(v.project.UpdatedAt))

	t := &ux.Table{
		Headers: []string{"ID", "NAME", "UPDATED"},
		Empty:   "This project has no documents.",
	}
	for _, d := range v.project.Documents {
		t.Rows = append(t.Rows, []string{strconv.Itoa(d.ID), d.Name, formatTime(d.UpdatedAt)})
	}
	return t.RenderText(w)
}

func newProjectsShowCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show a project and its documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("project", args[0])
			if err != nil {
				return err
			}
			a, err := r.load(cmd, appOptions{})
			if err != nil {
				return err
			}
			if err := a.requireLogin(); err != nil {
				return err
			}

			project, err := a.client.Project(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.output(cmd.OutOrStdout(), project, projectView{project: project})
		},
	}
}

func newProjectsDeleteCmd(r *runner) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete a project and all of its documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("project", args[0])
			if err != nil {
				return err
			}
			a, err := r.load(cmd, appOptions{})
			if err != nil {
				return err
			}
			if err := a.requireLogin(); err != nil {
				return err
			}
			ctx := cmd.Context()

			if !a.identity(ctx).CanWrite(id) {
				return fmt.Errorf("you do not have permission to delete project %d", id)
			}

			project, err := a.client.Project(ctx, id)
			if err != nil {
				return err
			}
			if err := confirm(yes, fmt.Sprintf("Are you sure you want to delete the project: %s?", project.Name)); err != nil {
				return err
			}

			if err := a.client.DeleteProject(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted project %q.\n", project.Name)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "delete without asking")
	return cmd
}

// confirm asks before a destructive action unless yes is set. Without a
// terminal the action is refused.
func confirm(yes bool, question string) error {
	if yes {
		return nil
	}
	if !tui.ShouldPrompt() {
		return errNotConfirmed
	}
	ok, err := tui.PromptForConfirmation(question, false)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("cancelled")
	}
	return nil
}

func parseID(kind, arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid argument %q: %s id must be a positive number", arg, kind)
	}
	return id, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
