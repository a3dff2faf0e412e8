package cmd

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// runner carries the lazily built app through one command execution.
type runner struct {
	app    *app
	stderr io.Writer
}

// load builds the app on first use. Commands that only touch local files
// never call it.
func (r *runner) load(cmd *cobra.Command, opts appOptions) (*app, error) {
	if r.app != nil {
		return r.app, nil
	}
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return nil, err
	}
	opts.stderr = r.stderr
	a, err := newApp(cmd.Context(), cc, opts)
	if err != nil {
		return nil, err
	}
	r.app = a
	return a, nil
}

func (r *runner) finish(err error) {
	if r.app == nil {
		return
	}
	if !r.app.interactive {
		r.app.drain(r.stderr, err)
	}
	r.app.close()
	r.app = nil
}

// newRootCommand builds the doctag command tree.
func newRootCommand() (*cobra.Command, *runner) {
	r := &runner{stderr: os.Stderr}

	root := &cobra.Command{
		Use:   "doctag",
		Short: "Named entity tagging from the terminal",
		Long: `doctag is a terminal client for the document tagging service.
It manages projects and documents, submits text for named entity
recognition and shows the tagged results.

Run 'doctag ui' for the full-screen interface.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "config file (default is $HOME/.doctag/config.yaml)")
	root.PersistentFlags().String("api", "", "tagging service URL (overrides DOCTAG_API_URL)")
	root.PersistentFlags().String("format", "", "output format: text, json, yaml")
	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().Bool("no-color", false, "disable colored output")

	root.AddCommand(
		newLoginCmd(r),
		newLogoutCmd(r),
		newWhoamiCmd(r),
		newProjectsCmd(r),
		newDocumentsCmd(r),
		newSubmitCmd(r),
		newTagCmd(r),
		newEventsCmd(r),
		newHomeCmd(r),
		newUICmd(r),
		newVersionCmd(),
		newConfigCmd(),
	)
	return root, r
}

// ExecuteContext runs the CLI with os.Args.
func ExecuteContext(ctx context.Context) error {
	return execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root, r := newRootCommand()
	r.stderr = stderr
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	r.finish(err)
	return err
}
