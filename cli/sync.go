// ABOUTME: Charm KV sync CLI commands
// ABOUTME: Status, manual sync, auto-sync toggle and wipe; auth is by SSH key so there is no login
package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/harperreed/dealdesk/charm"
	"github.com/spf13/cobra"
)

func newSyncCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync the charm backend with the charm server",
		Long: `These commands act on the charm KV store used by --backend charm.
Charm authenticates with your SSH key, so there is nothing to log in to.`,
	}
	cmd.AddCommand(
		newSyncStatusCmd(a),
		newSyncNowCmd(a),
		newSyncAutoCmd(a),
		newSyncWipeCmd(a),
	)
	return cmd
}

func newSyncStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show sync configuration and connection status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := openCharmClient(a.cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			w := out(cmd)
			ccfg := client.Config()
			fmt.Fprintln(w, "Charm Sync Status")
			fmt.Fprintln(w, "─────────────────")
			fmt.Fprintf(w, "Server:    %s\n", ccfg.Host)
			fmt.Fprintf(w, "Auto-sync: %v\n", ccfg.AutoSync)
			if last := client.LastSync(); !last.IsZero() {
				fmt.Fprintf(w, "Last sync: %s\n", humanize.Time(last))
			} else {
				fmt.Fprintln(w, "Last sync: never")
			}

			if id, err := client.ID(); err != nil {
				fmt.Fprintln(w, "\nStatus: Not connected")
			} else {
				fmt.Fprintln(w, "\nStatus: Connected")
				fmt.Fprintf(w, "ID:        %s\n", id)
			}

			if keys, err := client.Keys(); err == nil {
				fmt.Fprintf(w, "Keys:      %d\n", len(keys))
			}
			return nil
		},
	}
}

func newSyncNowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "now",
		Short: "Push and pull changes immediately",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := openCharmClient(a.cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.Sync(); err != nil {
				return fmt.Errorf("sync failed: %w", err)
			}
			fmt.Fprintf(out(cmd), "✓ Synced with %s\n", client.Config().Host)
			return nil
		},
	}
}

func newSyncAutoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "auto <on|off>",
		Short:     "Turn syncing after every write on or off",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var enabled bool
			switch args[0] {
			case "on":
				enabled = true
			case "off":
			default:
				return fmt.Errorf("expected on or off, got %q", args[0])
			}

			ccfg, err := charm.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load charm config: %w", err)
			}
			if err := ccfg.SetAutoSync(enabled); err != nil {
				return fmt.Errorf("failed to save charm config: %w", err)
			}
			fmt.Fprintf(out(cmd), "✓ Auto-sync: %v\n", enabled)
			return nil
		},
	}
}

func newSyncWipeCmd(a *app) *cobra.Command {
	var confirm bool
	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Delete every record in the local charm store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := out(cmd)
			if !confirm {
				fmt.Fprintln(w, "WARNING: This will delete ALL local data!")
				fmt.Fprintln(w)
				fmt.Fprintln(w, "To confirm, run:")
				fmt.Fprintln(w, "  dealdesk sync wipe --confirm")
				return nil
			}

			client, err := openCharmClient(a.cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.Reset(); err != nil {
				return fmt.Errorf("failed to reset KV store: %w", err)
			}
			fmt.Fprintln(w, "✓ All data wiped")
			return nil
		},
	}
	cmd.Flags().BoolVar(&confirm, "confirm", false, "Confirm data wipe")
	return cmd
}
