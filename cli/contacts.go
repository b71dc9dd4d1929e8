// ABOUTME: Contact CLI commands
// ABOUTME: Human-friendly commands for managing the people at companies
package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/harperreed/dealdesk/models"
	"github.com/harperreed/dealdesk/viz"
	"github.com/spf13/cobra"
)

func newContactCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "contact",
		Aliases: []string{"contacts"},
		Short:   "Manage contacts",
	}
	cmd.AddCommand(
		newContactAddCmd(a),
		newContactListCmd(a),
		newContactShowCmd(a),
		newContactUpdateCmd(a),
		newContactDeleteCmd(a),
	)
	return cmd
}

func newContactAddCmd(a *app) *cobra.Command {
	var (
		contact models.Contact
		company string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a contact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			if company != "" {
				id, err := resolveCompany(cmd.Context(), svc, company)
				if err != nil {
					return err
				}
				contact.CompanyID = &id
			}

			created, err := svc.CreateContact(cmd.Context(), &contact)
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "✓ Contact created: %s (ID: %s)\n", created.FullName(), created.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&contact.FirstName, "first", "", "First name (required)")
	cmd.Flags().StringVar(&contact.LastName, "last", "", "Last name (required)")
	cmd.Flags().StringVar(&contact.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&contact.Phone, "phone", "", "Phone number")
	cmd.Flags().StringVar(&contact.Role, "role", "", "Job title or role")
	cmd.Flags().StringVar(&company, "company", "", "Company ID or name")
	_ = cmd.MarkFlagRequired("first")
	_ = cmd.MarkFlagRequired("last")
	return cmd
}

func newContactListCmd(a *app) *cobra.Command {
	var (
		query string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List contacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			contacts, err := svc.ListContacts(cmd.Context(), query)
			if err != nil {
				return err
			}
			if len(contacts) == 0 {
				fmt.Fprintln(out(cmd), "No contacts found")
				return nil
			}
			if limit > 0 && len(contacts) > limit {
				contacts = contacts[:limit]
			}

			w := tabwriter.NewWriter(out(cmd), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tROLE\tCOMPANY\tEMAIL\tID")
			fmt.Fprintln(w, "----\t----\t-------\t-----\t--")
			for _, c := range contacts {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.FullName(), dash(c.Role), c.CompanyName, dash(c.Email), c.ID)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "Search by name, email, role or company")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum results")
	return cmd
}

func newContactShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a contact and the deals they are on",
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
			detail, err := svc.ContactDetail(cmd.Context(), id)
			if err != nil {
				return err
			}

			w := out(cmd)
			c := detail.Contact
			fmt.Fprintf(w, "%s\n", c.FullName())
			fmt.Fprintf(w, "  ID:      %s\n", c.ID)
			fmt.Fprintf(w, "  Role:    %s\n", dash(c.Role))
			fmt.Fprintf(w, "  Company: %s\n", detail.CompanyName)
			fmt.Fprintf(w, "  Email:   %s\n", dash(c.Email))
			fmt.Fprintf(w, "  Phone:   %s\n", dash(c.Phone))

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

func newContactUpdateCmd(a *app) *cobra.Command {
	var first, last, email, phone, role, company string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a contact; only the flags given are changed",
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

			var patch models.ContactPatch
			flags := cmd.Flags()
			if flags.Changed("first") {
				patch.FirstName = &first
			}
			if flags.Changed("last") {
				patch.LastName = &last
			}
			if flags.Changed("email") {
				patch.Email = &email
			}
			if flags.Changed("phone") {
				patch.Phone = &phone
			}
			if flags.Changed("role") {
				patch.Role = &role
			}
			if flags.Changed("company") {
				companyID, err := resolveCompany(cmd.Context(), svc, company)
				if err != nil {
					return err
				}
				patch.CompanyID = &companyID
			}

			updated, err := svc.UpdateContact(cmd.Context(), id, patch)
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "✓ Contact updated: %s\n", updated.FullName())
			return nil
		},
	}
	cmd.Flags().StringVar(&first, "first", "", "New first name")
	cmd.Flags().StringVar(&last, "last", "", "New last name")
	cmd.Flags().StringVar(&email, "email", "", "New email")
	cmd.Flags().StringVar(&phone, "phone", "", "New phone")
	cmd.Flags().StringVar(&role, "role", "", "New role")
	cmd.Flags().StringVar(&company, "company", "", "New company ID or name, or none")
	return cmd
}

func newContactDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a contact and remove them from deals",
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
			if err := svc.DeleteContact(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "✓ Contact deleted: %s\n", id)
			return nil
		},
	}
}
