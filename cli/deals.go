// ABOUTME: Deal CLI commands
// ABOUTME: Create, list, show, update, move between stages and delete deals
package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/glamour"
	"github.com/dustin/go-humanize"
	"github.com/harperreed/dealdesk/models"
	"github.com/harperreed/dealdesk/viz"
	"github.com/spf13/cobra"
)

func newDealCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "deal",
		Aliases: []string{"deals"},
		Short:   "Manage deals",
	}
	cmd.AddCommand(
		newDealAddCmd(a),
		newDealListCmd(a),
		newDealShowCmd(a),
		newDealUpdateCmd(a),
		newDealMoveCmd(a),
		newDealDeleteCmd(a),
	)
	return cmd
}

func newDealAddCmd(a *app) *cobra.Command {
	var (
		title, value, stage, company, notes string
		contacts                            []string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a deal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cents, err := viz.ParseMoney(value)
			if err != nil {
				return err
			}
			deal := &models.Deal{Title: title, Value: cents, Notes: notes}
			if stage != "" {
				if deal.Stage, err = models.ParseStage(stage); err != nil {
					return err
				}
			}

			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			if company != "" {
				id, err := resolveCompany(cmd.Context(), svc, company)
				if err != nil {
					return err
				}
				deal.CompanyID = &id
			}
			if deal.ContactIDs, err = resolveContacts(cmd.Context(), svc, contacts); err != nil {
				return err
			}

			created, err := svc.CreateDeal(cmd.Context(), deal)
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "✓ Deal created: %s (ID: %s)\n", created.Title, created.ID)
			fmt.Fprintf(out(cmd), "  Value: %s  Stage: %s\n", viz.Money(created.Value), created.Stage.Label())
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Deal title (required)")
	cmd.Flags().StringVar(&value, "value", "0", "Deal value in dollars, e.g. 12500 or 12,500.50")
	cmd.Flags().StringVar(&stage, "stage", "", "Stage: lead, negotiation, closed-won, closed-lost (default lead)")
	cmd.Flags().StringVar(&company, "company", "", "Company ID or name")
	cmd.Flags().StringSliceVar(&contacts, "contact", nil, "Contact ID or full name (repeatable)")
	cmd.Flags().StringVar(&notes, "notes", "", "Notes, markdown allowed")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newDealListCmd(a *app) *cobra.Command {
	var query, stage string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List deals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var want models.Stage
			if stage != "" {
				var err error
				if want, err = models.ParseStage(stage); err != nil {
					return err
				}
			}

			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			deals, err := svc.ListDeals(cmd.Context(), query)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(out(cmd), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TITLE\tCOMPANY\tSTAGE\tVALUE\tUPDATED\tID")
			fmt.Fprintln(w, "-----\t-------\t-----\t-----\t-------\t--")
			shown := 0
			for _, d := range deals {
				if want != "" && d.Stage != want {
					continue
				}
				shown++
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					d.Title, d.CompanyName, d.Stage, viz.Money(d.Value), humanize.Time(d.UpdatedAt), d.ID)
			}
			if shown == 0 {
				fmt.Fprintln(out(cmd), "No deals found")
				return nil
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "Search title, company or contact names")
	cmd.Flags().StringVar(&stage, "stage", "", "Only deals in this stage")
	return cmd
}

func newDealShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a deal with contacts, timeline and notes",
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
			detail, err := svc.DealDetail(cmd.Context(), id)
			if err != nil {
				return err
			}

			w := out(cmd)
			d := detail.Deal
			fmt.Fprintf(w, "%s\n", d.Title)
			fmt.Fprintf(w, "  ID:      %s\n", d.ID)
			fmt.Fprintf(w, "  Value:   %s\n", viz.Money(d.Value))
			fmt.Fprintf(w, "  Stage:   %s\n", d.Stage.Label())
			fmt.Fprintf(w, "  Company: %s\n", detail.CompanyName)

			names := make([]string, len(detail.Contacts))
			for i := range detail.Contacts {
				names[i] = detail.Contacts[i].FullName()
			}
			fmt.Fprintf(w, "  Contacts: %s\n", dash(strings.Join(names, ", ")))

			fmt.Fprintln(w, "\nTimeline")
			for _, ev := range detail.Timeline {
				fmt.Fprintf(w, "  %s  %-8s %s\n", ev.At.Format("2006-01-02 15:04"), ev.Kind, humanize.Time(ev.At))
			}

			if d.Notes != "" {
				fmt.Fprintln(w, "\nNotes")
				fmt.Fprint(w, renderNotes(d.Notes))
			}
			return nil
		},
	}
}

// renderNotes formats markdown notes for the terminal, falling back to the
// raw text if rendering fails.
func renderNotes(notes string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return notes + "\n"
	}
	rendered, err := r.Render(notes)
	if err != nil {
		return notes + "\n"
	}
	return rendered
}

func newDealUpdateCmd(a *app) *cobra.Command {
	var (
		title, value, stage, company, notes string
		contacts                            []string
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a deal; only the flags given are changed",
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

			var patch models.DealPatch
			flags := cmd.Flags()
			if flags.Changed("title") {
				patch.Title = &title
			}
			if flags.Changed("value") {
				cents, err := viz.ParseMoney(value)
				if err != nil {
					return err
				}
				patch.Value = &cents
			}
			if flags.Changed("stage") {
				st, err := models.ParseStage(stage)
				if err != nil {
					return err
				}
				patch.Stage = &st
			}
			if flags.Changed("company") {
				companyID, err := resolveCompany(cmd.Context(), svc, company)
				if err != nil {
					return err
				}
				patch.CompanyID = &companyID
			}
			if flags.Changed("contact") {
				ids, err := resolveContacts(cmd.Context(), svc, contacts)
				if err != nil {
					return err
				}
				patch.ContactIDs = &ids
			}
			if flags.Changed("notes") {
				patch.Notes = &notes
			}

			updated, err := svc.UpdateDeal(cmd.Context(), id, patch)
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "✓ Deal updated: %s (%s, %s)\n", updated.Title, viz.Money(updated.Value), updated.Stage.Label())
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&value, "value", "", "New value in dollars")
	cmd.Flags().StringVar(&stage, "stage", "", "New stage")
	cmd.Flags().StringVar(&company, "company", "", "New company ID or name, or none")
	cmd.Flags().StringSliceVar(&contacts, "contact", nil, "Replacement contact IDs or names (repeatable)")
	cmd.Flags().StringVar(&notes, "notes", "", "New notes")
	return cmd
}

func newDealMoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <stage>",
		Short: "Move a deal to another stage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			stage, err := models.ParseStage(args[1])
			if err != nil {
				return err
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			moved, err := svc.MoveDeal(cmd.Context(), id, stage)
			if err != nil {
				return err
			}

			fmt.Fprintf(out(cmd), "✓ %s moved to %s\n", moved.Title, moved.Stage.Label())
			if moved.ClosedAt != nil {
				fmt.Fprintf(out(cmd), "  Closed: %s\n", moved.ClosedAt.Format("2006-01-02"))
			}
			return nil
		},
	}
}

func newDealDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a deal",
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
			if err := svc.DeleteDeal(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "✓ Deal deleted: %s\n", id)
			return nil
		},
	}
}
