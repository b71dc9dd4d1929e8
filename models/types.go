// ABOUTME: Data models for CRM entities
// ABOUTME: Defines Company, Contact and Deal records plus their partial-update patches
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Company struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Industry  string    `json:"industry,omitempty" db:"industry"`
	Website   string    `json:"website,omitempty" db:"website"`
	Notes     string    `json:"notes,omitempty" db:"notes"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Contact struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	FirstName string     `json:"first_name" db:"first_name"`
	LastName  string     `json:"last_name" db:"last_name"`
	Email     string     `json:"email,omitempty" db:"email"`
	Phone     string     `json:"phone,omitempty" db:"phone"`
	Role      string     `json:"role,omitempty" db:"role"`
	CompanyID *uuid.UUID `json:"company_id,omitempty" db:"company_id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// FullName joins first and last name, skipping empty parts.
func (c *Contact) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

type Deal struct {
	ID         uuid.UUID   `json:"id" db:"id"`
	Title      string      `json:"title" db:"title"`
	Value      int64       `json:"value" db:"value"` // in cents
	Stage      Stage       `json:"stage" db:"stage"`
	CompanyID  *uuid.UUID  `json:"company_id,omitempty" db:"company_id"`
	ContactIDs []uuid.UUID `json:"contact_ids" db:"-"`
	Notes      string      `json:"notes,omitempty" db:"notes"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at" db:"updated_at"`
	ClosedAt   *time.Time  `json:"closed_at,omitempty" db:"closed_at"`
}

// HasContact reports whether id is among the deal's contacts.
func (d *Deal) HasContact(id uuid.UUID) bool {
	for _, cid := range d.ContactIDs {
		if cid == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can't mutate shared slices or pointers.
func (d Deal) Clone() Deal {
	out := d
	if d.ContactIDs != nil {
		out.ContactIDs = append([]uuid.UUID(nil), d.ContactIDs...)
	}
	if d.CompanyID != nil {
		id := *d.CompanyID
		out.CompanyID = &id
	}
	if d.ClosedAt != nil {
		t := *d.ClosedAt
		out.ClosedAt = &t
	}
	return out
}

// Clone returns a copy with its own CompanyID pointer.
func (c Contact) Clone() Contact {
	out := c
	if c.CompanyID != nil {
		id := *c.CompanyID
		out.CompanyID = &id
	}
	return out
}

// Patches carry partial updates: a nil field is left untouched.
// For optional references a pointer to uuid.Nil clears the link.

type CompanyPatch struct {
	Name     *string `json:"name,omitempty"`
	Industry *string `json:"industry,omitempty"`
	Website  *string `json:"website,omitempty"`
	Notes    *string `json:"notes,omitempty"`
}

// Apply copies the set fields onto c.
func (p CompanyPatch) Apply(c *Company) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Industry != nil {
		c.Industry = *p.Industry
	}
	if p.Website != nil {
		c.Website = *p.Website
	}
	if p.Notes != nil {
		c.Notes = *p.Notes
	}
}

type ContactPatch struct {
	FirstName *string    `json:"first_name,omitempty"`
	LastName  *string    `json:"last_name,omitempty"`
	Email     *string    `json:"email,omitempty"`
	Phone     *string    `json:"phone,omitempty"`
	Role      *string    `json:"role,omitempty"`
	CompanyID *uuid.UUID `json:"company_id,omitempty"`
}

// Apply copies the set fields onto c.
func (p ContactPatch) Apply(c *Contact) {
	if p.FirstName != nil {
		c.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		c.LastName = *p.LastName
	}
	if p.Email != nil {
		c.Email = *p.Email
	}
	if p.Phone != nil {
		c.Phone = *p.Phone
	}
	if p.Role != nil {
		c.Role = *p.Role
	}
	if p.CompanyID != nil {
		c.CompanyID = refOrNil(*p.CompanyID)
	}
}

type DealPatch struct {
	Title      *string      `json:"title,omitempty"`
	Value      *int64       `json:"value,omitempty"`
	Stage      *Stage       `json:"stage,omitempty"`
	CompanyID  *uuid.UUID   `json:"company_id,omitempty"`
	ContactIDs *[]uuid.UUID `json:"contact_ids,omitempty"`
	Notes      *string      `json:"notes,omitempty"`
	// ClosedAt can be set but never cleared.
	ClosedAt *time.Time `json:"closed_at,omitempty"`
}

// Apply copies the set fields onto d.
func (p DealPatch) Apply(d *Deal) {
	if p.Title != nil {
		d.Title = *p.Title
	}
	if p.Value != nil {
		d.Value = *p.Value
	}
	if p.Stage != nil {
		d.Stage = *p.Stage
	}
	if p.CompanyID != nil {
		d.CompanyID = refOrNil(*p.CompanyID)
	}
	if p.ContactIDs != nil {
		d.ContactIDs = append([]uuid.UUID{}, (*p.ContactIDs)...)
	}
	if p.Notes != nil {
		d.Notes = *p.Notes
	}
	if p.ClosedAt != nil {
		t := *p.ClosedAt
		d.ClosedAt = &t
	}
}

func refOrNil(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

// Ref returns a pointer to a copy of v, handy for building patches.
func Ref[T any](v T) *T {
	return &v
}
