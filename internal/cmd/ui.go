package cmd

import (
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/doctag/internal/tui"
)

func newUICmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "ui",
		Short: "Start the full-screen interface",
		Long: `Start the full-screen terminal interface. Logs are written to
~/.doctag/doctag.log while it runs.

Keys:
  h home   p projects   s submit   t tag   l login   o logout
  d dismiss the newest notification   q quit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := r.load(cmd, appOptions{interactive: true})
			if err != nil {
				return err
			}
			a.logger.Info("starting ui", "base_url", a.cfg.BaseURL)

			return tui.Run(cmd.Context(), tui.Deps{
				Client:   a.client,
				Session:  a.store,
				Notifier: a.notifier,
				Logger:   a.logger,
			})
		},
	}
}
