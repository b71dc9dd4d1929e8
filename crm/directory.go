// ABOUTME: Name lookups for companies and contacts by ID
// ABOUTME: Resolves weak references with fallback labels for dangling IDs
package crm

import (
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/dealdesk/models"
)

type directory struct {
	companies map[uuid.UUID]models.Company
	contacts  map[uuid.UUID]models.Contact
}

func newDirectory(companies []models.Company, contacts []models.Contact) *directory {
	d := &directory{
		companies: make(map[uuid.UUID]models.Company, len(companies)),
		contacts:  make(map[uuid.UUID]models.Contact, len(contacts)),
	}
	for _, c := range companies {
		d.companies[c.ID] = c
	}
	for _, c := range contacts {
		d.contacts[c.ID] = c
	}
	return d
}

func (d *directory) companyName(id *uuid.UUID) string {
	if id == nil {
		return NoCompany
	}
	if c, ok := d.companies[*id]; ok {
		return c.Name
	}
	return NoCompany
}

func (d *directory) contactName(id uuid.UUID) string {
	if c, ok := d.contacts[id]; ok {
		return c.FullName()
	}
	return UnknownContact
}

func (d *directory) contactNames(ids []uuid.UUID) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, d.contactName(id))
	}
	return names
}

// resolveContacts returns the contacts that exist, in deal order.
func (d *directory) resolveContacts(ids []uuid.UUID) []models.Contact {
	out := make([]models.Contact, 0, len(ids))
	for _, id := range ids {
		if c, ok := d.contacts[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

func joinNames(names []string) string {
	return strings.Join(names, ", ")
}
