package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/doctag/internal/api"
)

// message is a one-line text rendering
type message string

func (m message) RenderText(w io.Writer) error {
	_, err := fmt.Fprintln(w, string(m))
	return err
}

func newSubmitCmd(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a document or create a project",
		Long: `Submit a document for tagging or create a new project.

Examples:
  # Submit a file to project 3
  doctag submit document --project 3 --name report --file report.txt

  # Submit text from stdin
  cat notes.txt | doctag submit document --project 3 --name notes --file -

  # Create a project that bob may edit and alice may read
  doctag submit project --name research --permissions custom --custom alice:r,bob:w
`,
	}
	cmd.AddCommand(newSubmitDocumentCmd(r), newSubmitProjectCmd(r))
	return cmd
}

func newSubmitDocumentCmd(r *runner) *cobra.Command {
	var (
		projectID int
		name      string
		text      string
		file      string
	)

	cmd := &cobra.Command{
		Use:   "document",
		Short: "Submit a document to a project for tagging",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file != "" {
				data, err := readInput(cmd.InOrStdin(), file)
				if err != nil {
					return err
				}
				text = data
			}
			doc := api.NewDocument{Name: name, Text: text}
			if projectID > 0 {
				doc.Project = strconv.Itoa(projectID)
			}
			if err := doc.Validate(); err != nil {
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

			if !a.identity(ctx).CanWrite(projectID) {
				return fmt.Errorf("you do not have write access to project %d", projectID)
			}

			created, err := a.client.CreateDocument(ctx, doc)
			if err != nil {
				return err
			}
			return a.output(cmd.OutOrStdout(), created, message(fmt.Sprintf(
				"Document %q submitted to project #%d. Tagging runs in the background.", created.Name, created.ProjectID)))
		},
	}

	cmd.Flags().IntVar(&projectID, "project", 0, "project id")
	cmd.Flags().StringVar(&name, "name", "", "document name")
	cmd.Flags().StringVar(&text, "text", "", "document text")
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the text from a file ('-' for stdin)")
	cmd.MarkFlagsMutuallyExclusive("text", "file")
	return cmd
}

func newSubmitProjectCmd(r *runner) *cobra.Command {
	var (
		name        string
		permissions string
		custom      string
	)

	cmd := &cobra.Command{
		Use:   "project",
		Short: "Create a project",
		Long: `Create a project. --permissions controls what other users may do:
  none    only you
  read    everyone can read
  write   everyone can read and add documents
  custom  per user, given with --custom user:r,user:w`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			project := api.NewProject{Name: name, Permissions: api.ProjectVisibility(permissions)}
			switch project.Permissions {
			case api.VisibilityNone, api.VisibilityRead, api.VisibilityWrite:
			case api.VisibilityCustom:
				project.CustomPermissions = api.ParsePermissions(custom)
			default:
				return fmt.Errorf("invalid argument %q: permissions must be none, read, write or custom", permissions)
			}
			if err := project.Validate(); err != nil {
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

			if !a.identity(ctx).CreateProjects {
				return errors.New("you do not have permission to create projects")
			}

			created, err := a.client.CreateProject(ctx, project)
			if err != nil {
				return err
			}
			return a.output(cmd.OutOrStdout(), created, message(fmt.Sprintf("Project %q created (#%d).", created.Name, created.ID)))
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "project name")
	cmd.Flags().StringVar(&permissions, "permissions", string(api.VisibilityNone), "access for other users: none, read, write, custom")
	cmd.Flags().StringVar(&custom, "custom", "", "custom permissions, e.g. alice:r,bob:w")
	return cmd
}

// readInput reads a whole file, or stdin for "-"
func readInput(stdin io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}
