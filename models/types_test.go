// ABOUTME: Tests for CRM data models
// ABOUTME: Validates stage parsing, terminal rules and patch application
package models

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestStagesOrder(t *testing.T) {
	got := Stages()
	want := []Stage{StageLead, StageNegotiation, StageClosedWon, StageClosedLost}
	if len(got) != len(want) {
		t.Fatalf("expected %d stages, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("stage %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	// Callers get their own copy
	got[0] = "mutated"
	if Stages()[0] != StageLead {
		t.Error("Stages() returned shared backing array")
	}
}

func TestStageIsTerminal(t *testing.T) {
	cases := map[Stage]bool{
		StageLead:        false,
		StageNegotiation: false,
		StageClosedWon:   true,
		StageClosedLost:  true,
	}
	for stage, want := range cases {
		if stage.IsTerminal() != want {
			t.Errorf("%s.IsTerminal() = %v, want %v", stage, !want, want)
		}
	}
}

func TestParseStage(t *testing.T) {
	cases := []struct {
		in   string
		want Stage
	}{
		{"lead", StageLead},
		{"Negotiation", StageNegotiation},
		{"closed-won", StageClosedWon},
		{"closed_lost", StageClosedLost},
		{"  CLOSED-WON ", StageClosedWon},
	}
	for _, tc := range cases {
		got, err := ParseStage(tc.in)
		if err != nil {
			t.Errorf("ParseStage(%q) failed: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseStage(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestParseStageInvalid(t *testing.T) {
	_, err := ParseStage("prospecting")
	if err == nil {
		t.Fatal("expected error for unknown stage")
	}

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if verr.Field != "stage" {
		t.Errorf("expected field 'stage', got %q", verr.Field)
	}
}

func TestStageLabel(t *testing.T) {
	if StageClosedWon.Label() != "Closed Won" {
		t.Errorf("unexpected label %q", StageClosedWon.Label())
	}
	if Stage("mystery").Label() != "mystery" {
		t.Error("unknown stage should label as itself")
	}
}

func TestContactFullName(t *testing.T) {
	c := &Contact{FirstName: "Ada", LastName: "Lovelace"}
	if c.FullName() != "Ada Lovelace" {
		t.Errorf("unexpected full name %q", c.FullName())
	}

	c = &Contact{FirstName: "Cher"}
	if c.FullName() != "Cher" {
		t.Errorf("unexpected full name %q", c.FullName())
	}
}

func TestContactPatchClearsCompany(t *testing.T) {
	companyID := uuid.New()
	c := &Contact{FirstName: "Ada", CompanyID: &companyID}

	ContactPatch{CompanyID: Ref(uuid.Nil)}.Apply(c)
	if c.CompanyID != nil {
		t.Error("uuid.Nil should clear the company reference")
	}

	ContactPatch{CompanyID: Ref(companyID), Role: Ref("CTO")}.Apply(c)
	if c.CompanyID == nil || *c.CompanyID != companyID {
		t.Error("company reference was not set")
	}
	if c.Role != "CTO" || c.FirstName != "Ada" {
		t.Errorf("unexpected contact after patch: %+v", c)
	}
}

func TestDealPatchNeverClearsClosedAt(t *testing.T) {
	closed := time.Now()
	d := &Deal{Title: "Renewal", Stage: StageClosedWon, ClosedAt: &closed}

	DealPatch{Stage: Ref(StageLead)}.Apply(d)
	if d.ClosedAt == nil {
		t.Fatal("ClosedAt was cleared by a patch without ClosedAt")
	}
	if d.Stage != StageLead {
		t.Errorf("expected stage lead, got %s", d.Stage)
	}
}

func TestDealCloneIsDeep(t *testing.T) {
	contactID := uuid.New()
	d := Deal{ContactIDs: []uuid.UUID{contactID}}

	clone := d.Clone()
	clone.ContactIDs[0] = uuid.New()

	if d.ContactIDs[0] != contactID {
		t.Error("clone shares ContactIDs with original")
	}
	if !d.HasContact(contactID) {
		t.Error("HasContact should find the original contact")
	}
}
