package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/doctag/internal/api"
	"github.com/felixgeelhaar/doctag/internal/tagview"
)

func newDocumentsCmd(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "documents",
		Aliases: []string{"document", "docs"},
		Short:   "Show and delete documents",
		Long: `Work with the documents of a project.

Examples:
  # Show document 7 of project 3 with its entities
  doctag documents show 3 7

  # Print the raw tagged markup as JSON
  doctag documents show 3 7 --format json

  # Delete document 7 of project 3
  doctag documents delete 3 7 --yes
`,
	}
	cmd.AddCommand(newDocumentsShowCmd(r), newDocumentsDeleteCmd(r))
	return cmd
}

// documentView renders a document with its recognized entities
type documentView struct {
	document api.Document
}

func (v documentView) RenderText(w io.Writer) error {
	d := v.document
	fmt.Fprintf(w, "%s (#%d)\n", d.Name, d.ID)
	fmt.Fprintf(w, "Created %s, updated %s\n\n", formatTime(d.CreatedAt), formatTime(d.UpdatedAt))

	if !d.Tagged() {
		fmt.Fprintln(w, d.Text)
		fmt.Fprintln(w)
		_, err := fmt.Fprintln(w, "Tagging in progress.")
		return err
	}
	return writeTagged(w, d.TaggedText)
}

// writeTagged prints tagged markup as plain text followed by the entity labels
func writeTagged(w io.Writer, markup string) error {
	segments, err := tagview.Parse(markup)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, tagview.Plain(segments))
	if labels := tagview.Labels(segments); len(labels) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Entities: %v\n", labels)
	}
	return nil
}

func newDocumentsShowCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "show <project-id> <document-id>",
		Short: "Show a document and its entities",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, documentID, err := parseDocumentArgs(args)
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

			doc, err := a.client.Document(cmd.Context(), projectID, documentID)
			if err != nil {
				return err
			}
			return a.output(cmd.OutOrStdout(), doc, documentView{document: doc})
		},
	}
}

func newDocumentsDeleteCmd(r *runner) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <project-id> <document-id>",
		Short: "Delete a document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, documentID, err := parseDocumentArgs(args)
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

			if !a.identity(ctx).CanWrite(projectID) {
				return fmt.Errorf("you do not have permission to delete documents of project %d", projectID)
			}

			doc, err := a.client.Document(ctx, projectID, documentID)
			if err != nil {
				return err
			}
			if err := confirm(yes, fmt.Sprintf("Are you sure you want to delete the document: %s?", doc.Name)); err != nil {
				return err
			}

			if err := a.client.DeleteDocument(ctx, projectID, documentID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted document %q.\n", doc.Name)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "delete without asking")
	return cmd
}

func parseDocumentArgs(args []string) (int, int, error) {
	projectID, err := parseID("project", args[0])
	if err != nil {
		return 0, 0, err
	}
	documentID, err := parseID("document", args[1])
	if err != nil {
		return 0, 0, err
	}
	return projectID, documentID, nil
}
