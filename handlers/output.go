// ABOUTME: Flat, string-typed MCP output records and conversions from models
// ABOUTME: IDs and timestamps are rendered as strings so tool schemas stay simple
package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/dealdesk/crm"
	"github.com/harperreed/dealdesk/models"
	"github.com/harperreed/dealdesk/pipeline"
)

type CompanyOutput struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Industry  string `json:"industry,omitempty"`
	Website   string `json:"website,omitempty"`
	Notes     string `json:"notes,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type ContactOutput struct {
	ID          string `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Role        string `json:"role,omitempty"`
	CompanyID   string `json:"company_id,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type DealOutput struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Value        int64    `json:"value"`
	Stage        string   `json:"stage"`
	CompanyID    string   `json:"company_id,omitempty"`
	CompanyName  string   `json:"company_name,omitempty"`
	ContactIDs   []string `json:"contact_ids"`
	ContactNames []string `json:"contact_names,omitempty"`
	Notes        string   `json:"notes,omitempty"`
	CreatedAt    string   `json:"created_at"`
	UpdatedAt    string   `json:"updated_at"`
	ClosedAt     string   `json:"closed_at,omitempty"`
}

type StageOutput struct {
	Stage string `json:"stage"`
	Label string `json:"label"`
	Count int    `json:"count"`
	Value int64  `json:"value"`
}

type StatsOutput struct {
	TotalValue  int64 `json:"total_value"`
	WonCount    int   `json:"won_count"`
	ActiveCount int   `json:"active_count"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func idString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func companyToOutput(c *models.Company) CompanyOutput {
	return CompanyOutput{
		ID:        c.ID.String(),
		Name:      c.Name,
		Industry:  c.Industry,
		Website:   c.Website,
		Notes:     c.Notes,
		CreatedAt: formatTime(c.CreatedAt),
		UpdatedAt: formatTime(c.UpdatedAt),
	}
}

func contactToOutput(c *models.Contact, companyName string) ContactOutput {
	return ContactOutput{
		ID:          c.ID.String(),
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		Email:       c.Email,
		Phone:       c.Phone,
		Role:        c.Role,
		CompanyID:   idString(c.CompanyID),
		CompanyName: companyName,
		CreatedAt:   formatTime(c.CreatedAt),
		UpdatedAt:   formatTime(c.UpdatedAt),
	}
}

func dealToOutput(d *models.Deal) DealOutput {
	out := DealOutput{
		ID:         d.ID.String(),
		Title:      d.Title,
		Value:      d.Value,
		Stage:      string(d.Stage),
		CompanyID:  idString(d.CompanyID),
		ContactIDs: make([]string, len(d.ContactIDs)),
		Notes:      d.Notes,
		CreatedAt:  formatTime(d.CreatedAt),
		UpdatedAt:  formatTime(d.UpdatedAt),
	}
	for i, id := range d.ContactIDs {
		out.ContactIDs[i] = id.String()
	}
	if d.ClosedAt != nil {
		out.ClosedAt = formatTime(*d.ClosedAt)
	}
	return out
}

func dealViewToOutput(v crm.DealView) DealOutput {
	out := dealToOutput(&v.Deal)
	out.CompanyName = v.CompanyName
	out.ContactNames = v.ContactNames
	return out
}

func stagesToOutput(sum pipeline.Summary) []StageOutput {
	out := make([]StageOutput, len(sum.Stages))
	for i, g := range sum.Stages {
		out[i] = StageOutput{Stage: string(g.Stage), Label: g.Label, Count: g.Count, Value: g.Value}
	}
	return out
}

func statsToOutput(s pipeline.EntityStats) StatsOutput {
	return StatsOutput{TotalValue: s.TotalValue, WonCount: s.WonCount, ActiveCount: s.ActiveCount}
}

func parseID(field, raw string) (uuid.UUID, error) {
	if strings.TrimSpace(raw) == "" {
		return uuid.Nil, fmt.Errorf("%s is required", field)
	}
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", field, err)
	}
	return id, nil
}

// optionalRef parses an ID that may be blank. Blank stays nil; "none"
// yields uuid.Nil, which clears a reference in a patch.
func optionalRef(field, raw string) (*uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	switch raw {
	case "":
		return nil, nil
	case "none":
		none := uuid.Nil
		return &none, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", field, err)
	}
	return &id, nil
}
