package cmd

import (
	"io"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/doctag/internal/api"
)

// taggedView renders tag output as plain text with labels
type taggedView struct {
	tagged api.TaggedDocument
}

func (v taggedView) RenderText(w io.Writer) error {
	return writeTagged(w, v.tagged.TaggedText)
}

func newTagCmd(r *runner) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "tag [text]",
		Short: "Recognize named entities in a text",
		Long: `Send a short text (up to 5000 characters) to the tagger and print the
recognized entities. Longer texts can be submitted as documents.

Examples:
  doctag tag "Sebastian Thrun started working on self-driving cars at Google in 2007."
  echo "Angela Merkel visited Paris." | doctag tag --file -
`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var text string
			switch {
			case file != "":
				data, err := readInput(cmd.InOrStdin(), file)
				if err != nil {
					return err
				}
				text = data
			case len(args) == 1:
				text = args[0]
			}
			if n := utf8.RuneCountInString(text); strings.TrimSpace(text) == "" || n > api.MaxTagLength {
				return api.ErrTextTooLong
			}

			a, err := r.load(cmd, appOptions{})
			if err != nil {
				return err
			}
			if err := a.requireLogin(); err != nil {
				return err
			}

			tagged, err := a.client.Tag(cmd.Context(), text)
			if err != nil {
				return err
			}
			return a.output(cmd.OutOrStdout(), tagged, taggedView{tagged: tagged})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "read the text from a file ('-' for stdin)")
	return cmd
}
