package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/doctag/internal/ux"
	"github.com/felixgeelhaar/doctag/internal/version"
)

// versionView renders version info in short or verbose form
type versionView struct {
	info    version.Info
	verbose bool
}

func (v versionView) RenderText(w io.Writer) error {
	if v.verbose {
		_, err := fmt.Fprintln(w, v.info.String())
		return err
	}
	_, err := fmt.Fprintf(w, "doctag %s\n", v.info.Short())
	return err
}

func newVersionCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: `Print version information including version number, git commit,
build date, Go version, and platform.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return fmt.Errorf("failed to create command context: %w", err)
			}
			info := version.GetInfo()
			return ux.Write(cmdCtx.Format, &ux.FormatterOptions{Writer: cmd.OutOrStdout()},
				ux.Output{Data: info, Text: versionView{info: info, verbose: verbose}})
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show detailed version information")
	return cmd
}
