// ABOUTME: Company CLI commands
// ABOUTME: Human-friendly commands for adding, listing, showing, updating and deleting companies
package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/harperreed/dealdesk/models"
	"github.com/harperreed/dealdesk/viz"
	"github.com/spf13/cobra"
)

func newCompanyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "company",
		Aliases: []string{"companies"},
		Short:   "Manage companies",
	}
	cmd.AddCommand(
		newCompanyAddCmd(a),
		newCompanyListCmd(a),
		newCompanyShowCmd(a),
		newCompanyUpdateCmd(a),
		newCompanyDeleteCmd(a),
	)
	return cmd
}

func newCompanyAddCmd(a *app) *cobra.Command {
	var company models.Company
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a company",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			created, err := svc.CreateCompany(cmd.Context(), &company)
			if err != nil {
				return err
			}

			w := out(cmd)
			fmt.Fprintf(w, "✓ Company created: %s (ID: %s)\n", created.Name, created.ID)
			if created.Industry != "" {
				fmt.Fprintf(w, "  Industry: %s\n", created.Industry)
			}
			if created.Website != "" {
				fmt.Fprintf(w, "  Website: %s\n", created.Website)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&company.Name, "name", "", "Company name (required)")
	cmd.Flags().StringVar(&company.Industry, "industry", "", "Industry")
	cmd.Flags().StringVar(&company.Website, "website", "", "Website URL")
	cmd.Flags().StringVar(&company.Notes, "notes", "", "Notes about the company")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newCompanyListCmd(a *app) *cobra.Command {
	var (
		query string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List companies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			companies, err := svc.ListCompanies(cmd.Context(), query)
			if err != nil {
				return err
			}
			if len(companies) == 0 {
				fmt.Fprintln(out(cmd), "No companies found")
				return nil
			}
			if limit > 0 && len(companies) > limit {
				companies = companies[:limit]
			}

			w := tabwriter.NewWriter(out(cmd), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tINDUSTRY\tWEBSITE\tID")
			fmt.Fprintln(w, "----\t--------\t-------\t--")
			for _, c := range companies {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.Name, dash(c.Industry), dash(c.Website), c.ID)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "\n%d companies\n", len(companies))
			return nil
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "Search by name or industry")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum results")
	return cmd
}

func newCompanyShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a company with its contacts and deals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			detail, err := svc.CompanyDetail(cmd.Context(), id)
			if err != nil {
				return err
			}

			w := out(cmd)
			c := detail.Company
			fmt.Fprintf(w, "%s\n", c.Name)
			fmt.Fprintf(w, "  ID:       %s\n", c.ID)
			fmt.Fprintf(w, "  Industry: %s\n", dash(c.Industry))
			fmt.Fprintf(w, "  Website:  %s\n", dash(c.Website))
			fmt.Fprintf(w, "  Added:    %s\n", humanize.Time(c.CreatedAt))
			if c.Notes != "" {
				fmt.Fprintf(w, "  Notes:    %s\n", c.Notes)
			}

			fmt.Fprintf(w, "\nContacts (%d)\n", len(detail.Contacts))
			for _, p := range detail.Contacts {
				fmt.Fprintf(w, "  • %s, %s <%s>\n", p.FullName(), dash(p.Role), dash(p.Email))
			}

			fmt.Fprintf(w, "\nDeals (%d)\n", len(detail.Deals))
			for _, d := range detail.Deals {
				fmt.Fprintf(w, "  • %s: %s (%s)\n", d.Title, viz.Money(d.Value), d.Stage.Label())
			}
			fmt.Fprintf(w, "\nTotal value: %s  Active: %d  Won: %d\n",
				viz.Money(detail.Stats.TotalValue), detail.Stats.ActiveCount, detail.Stats.WonCount)
			return nil
		},
	}
}

func newCompanyUpdateCmd(a *app) *cobra.Command {
	var name, industry, website, notes string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a company; only the flags given are changed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var patch models.CompanyPatch
			flags := cmd.Flags()
			if flags.Changed("name") {
				patch.Name = &name
			}
			if flags.Changed("industry") {
				patch.Industry = &industry
			}
			if flags.Changed("website") {
				patch.Website = &website
			}
			if flags.Changed("notes") {
				patch.Notes = &notes
			}

			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			updated, err := svc.UpdateCompany(cmd.Context(), id, patch)
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "✓ Company updated: %s\n", updated.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringVar(&industry, "industry", "", "New industry")
	cmd.Flags().StringVar(&website, "website", "", "New website")
	cmd.Flags().StringVar(&notes, "notes", "", "New notes")
	return cmd
}

func newCompanyDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a company; its contacts are kept without a company",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.DeleteCompany(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "✓ Company deleted: %s\n", id)
			return nil
		},
	}
}
