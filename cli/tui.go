// ABOUTME: Interactive terminal UI subcommand
// ABOUTME: Opens the pipeline board; the charm backend also gets the sync view
package cli

import (
	"github.com/harperreed/dealdesk/charm"
	"github.com/harperreed/dealdesk/tui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newTUICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "tui",
		Aliases: []string{"board"},
		Short:   "Open the interactive pipeline board",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Log lines on stderr would tear the full-screen display.
			if !a.cfg.Verbose {
				a.logger = zap.NewNop()
			}

			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}

			var opts []tui.Option
			if cs, ok := a.store.(*charm.Store); ok {
				opts = append(opts, tui.WithSyncer(cs.Client()))
			}
			return tui.Run(cmd.Context(), svc, opts...)
		},
	}
}
