// ABOUTME: Deal stage enumeration and validation
// ABOUTME: Fixed pipeline order, terminal-stage rules and human labels
package models

import (
	"fmt"
	"strings"
)

type Stage string

const (
	StageLead        Stage = "lead"
	StageNegotiation Stage = "negotiation"
	StageClosedWon   Stage = "closed-won"
	StageClosedLost  Stage = "closed-lost"
)

var stageOrder = []Stage{StageLead, StageNegotiation, StageClosedWon, StageClosedLost}

// Stages returns the pipeline stages in display order.
func Stages() []Stage {
	return append([]Stage(nil), stageOrder...)
}

// Valid reports whether s is one of the four known stages.
func (s Stage) Valid() bool {
	for _, st := range stageOrder {
		if s == st {
			return true
		}
	}
	return false
}

// IsTerminal is true for closed-won and closed-lost.
func (s Stage) IsTerminal() bool {
	return s == StageClosedWon || s == StageClosedLost
}

func (s Stage) Label() string {
	switch s {
	case StageLead:
		return "Lead"
	case StageNegotiation:
		return "Negotiation"
	case StageClosedWon:
		return "Closed Won"
	case StageClosedLost:
		return "Closed Lost"
	}
	return string(s)
}

// Index is the stage's position in the pipeline, or -1 if unknown.
func (s Stage) Index() int {
	for i, st := range stageOrder {
		if s == st {
			return i
		}
	}
	return -1
}

// ParseStage accepts the canonical value, case-insensitively.
// Underscores are tolerated ("closed_won").
func ParseStage(raw string) (Stage, error) {
	s := Stage(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "_", "-"))
	if !s.Valid() {
		return "", &ValidationError{
			Field:   "stage",
			Message: fmt.Sprintf("invalid stage %q (valid: %s)", raw, stageList()),
		}
	}
	return s, nil
}

func stageList() string {
	names := make([]string, len(stageOrder))
	for i, s := range stageOrder {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

// ValidationError reports a caller-supplied value that breaks a field rule.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
