// ABOUTME: Argument parsing shared by the record commands
// ABOUTME: IDs or names for companies and contacts, and table cells
package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/dealdesk/crm"
)

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q: %w", raw, err)
	}
	return id, nil
}

// resolveCompany accepts a company ID or an exact name, ignoring case.
// "none" resolves to uuid.Nil, which clears the reference on update.
func resolveCompany(ctx context.Context, svc *crm.Service, raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "none" {
		return uuid.Nil, nil
	}
	if id, err := uuid.Parse(raw); err == nil {
		return id, nil
	}

	companies, err := svc.ListCompanies(ctx, raw)
	if err != nil {
		return uuid.Nil, err
	}
	for _, c := range companies {
		if strings.EqualFold(c.Name, raw) {
			return c.ID, nil
		}
	}
	return uuid.Nil, fmt.Errorf("no company named %q", raw)
}

// resolveContacts accepts contact IDs or full names.
func resolveContacts(ctx context.Context, svc *crm.Service, raws []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raws))
	var contacts []crm.ContactView
	for _, raw := range raws {
		raw = strings.TrimSpace(raw)
		if id, err := uuid.Parse(raw); err == nil {
			ids = append(ids, id)
			continue
		}

		if contacts == nil {
			var err error
			if contacts, err = svc.ListContacts(ctx, ""); err != nil {
				return nil, err
			}
		}
		found := false
		for _, c := range contacts {
			if strings.EqualFold(c.FullName(), raw) {
				ids = append(ids, c.ID)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("no contact named %q", raw)
		}
	}
	return ids, nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
