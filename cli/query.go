// ABOUTME: Read-only views across the whole CRM plus the seed command
// ABOUTME: pipeline, dashboard and search print summaries; seed loads demo data
package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/harperreed/dealdesk/config"
	"github.com/harperreed/dealdesk/fixtures"
	"github.com/harperreed/dealdesk/viz"
	"github.com/spf13/cobra"
)

func newPipelineCmd(a *app) *cobra.Command {
	var showDeals bool
	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Show deals grouped by stage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			view, err := svc.Pipeline(cmd.Context())
			if err != nil {
				return err
			}

			w := out(cmd)
			fmt.Fprint(w, viz.RenderPipeline(view.Summary))
			fmt.Fprintf(w, "\nOpen: %d deals, %s\n", view.ActiveCount, viz.Money(view.PipelineValue))
			fmt.Fprintf(w, "Won:  %d deals, %s\n", view.WonCount, viz.Money(view.ClosedRevenue))
			fmt.Fprintf(w, "Lost: %d deals\n", view.LostCount)

			if !showDeals {
				return nil
			}
			for _, g := range view.Stages {
				if g.Count == 0 {
					continue
				}
				fmt.Fprintf(w, "\n%s (%d)\n", strings.ToUpper(g.Label), g.Count)
				for _, d := range g.Deals {
					fmt.Fprintf(w, "  %-32s %-20s %12s\n", d.Title, view.CompanyNames[d.ID], viz.Money(d.Value))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showDeals, "deals", true, "List the deals in each stage")
	return cmd
}

func newDashboardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show record counts, pipeline bars and stale deals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			stats, err := viz.GenerateDashboardStats(cmd.Context(), svc, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprint(out(cmd), viz.RenderDashboard(stats))
			return nil
		},
	}
}

func newSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search companies, contacts and deals",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			if strings.TrimSpace(query) == "" {
				return errors.New("query is required")
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			res, err := svc.Search(cmd.Context(), query)
			if err != nil {
				return err
			}

			total := len(res.Companies) + len(res.Contacts) + len(res.Deals)
			if total == 0 {
				fmt.Fprintf(out(cmd), "No results for %q\n", query)
				return nil
			}

			w := tabwriter.NewWriter(out(cmd), 0, 0, 2, ' ', 0)
			for _, c := range res.Companies {
				fmt.Fprintf(w, "company\t%s\t%s\t%s\n", c.Name, dash(c.Industry), c.ID)
			}
			for _, c := range res.Contacts {
				fmt.Fprintf(w, "contact\t%s\t%s\t%s\n", c.FullName(), c.CompanyName, c.ID)
			}
			for _, d := range res.Deals {
				fmt.Fprintf(w, "deal\t%s\t%s\t%s\n", d.Title, d.Stage.Label(), d.ID)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "\n%d results\n", total)
			return nil
		},
	}
}

func newSeedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the demo companies, contacts and deals",
		Long: `Writes the demo data set into the configured store. Records that
already exist are left alone, so seeding twice is harmless.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.service(cmd.Context()); err != nil {
				return err
			}
			counts, err := fixtures.Apply(cmd.Context(), a.store)
			if err != nil {
				return err
			}

			w := out(cmd)
			fmt.Fprintf(w, "✓ Seeded %d companies, %d contacts, %d deals\n", counts.Companies, counts.Contacts, counts.Deals)
			if a.cfg.Backend == config.BackendMemory {
				fmt.Fprintln(w, "  Note: the memory backend forgets everything when the command exits")
			}
			return nil
		},
	}
}
