// ABOUTME: Groups deals by pipeline stage and computes summary metrics
// ABOUTME: Pure single-pass aggregation shared by the API, MCP tools, CLI, TUI and viz
package pipeline

import (
	"github.com/harperreed/dealdesk/models"
)

// StageGroup is one pipeline column.
type StageGroup struct {
	Stage models.Stage  `json:"stage"`
	Label string        `json:"label"`
	Deals []models.Deal `json:"deals"`
	Count int           `json:"count"`
	Value int64         `json:"value"`
}

// Summary is the aggregated pipeline view. Stages always holds all four
// stages in pipeline order, empty ones included.
type Summary struct {
	Stages        []StageGroup `json:"stages"`
	ActiveCount   int          `json:"active_count"`
	PipelineValue int64        `json:"pipeline_value"`
	ClosedRevenue int64        `json:"closed_revenue"`
	WonCount      int          `json:"won_count"`
	LostCount     int          `json:"lost_count"`
	TotalCount    int          `json:"total_count"`
	TotalValue    int64        `json:"total_value"`
}

// Group returns the column for stage, or a zero group if the stage is unknown.
func (s Summary) Group(stage models.Stage) StageGroup {
	for _, g := range s.Stages {
		if g.Stage == stage {
			return g
		}
	}
	return StageGroup{Stage: stage, Label: stage.Label(), Deals: []models.Deal{}}
}

// Aggregate groups deals by stage. Deals keep their relative order inside
// each group. Deals with an unknown stage count toward the totals only.
func Aggregate(deals []models.Deal) Summary {
	stages := models.Stages()
	sum := Summary{Stages: make([]StageGroup, len(stages))}
	for i, st := range stages {
		sum.Stages[i] = StageGroup{Stage: st, Label: st.Label(), Deals: []models.Deal{}}
	}

	for _, d := range deals {
		sum.TotalCount++
		sum.TotalValue += d.Value

		if i := d.Stage.Index(); i >= 0 {
			g := &sum.Stages[i]
			g.Deals = append(g.Deals, d)
			g.Count++
			g.Value += d.Value
		}

		switch {
		case d.Stage == models.StageClosedWon:
			sum.WonCount++
			sum.ClosedRevenue += d.Value
		case d.Stage == models.StageClosedLost:
			sum.LostCount++
		default:
			sum.ActiveCount++
			sum.PipelineValue += d.Value
		}
	}

	return sum
}

// EntityStats is the per-company or per-contact deal rollup.
type EntityStats struct {
	TotalValue  int64 `json:"total_value"`
	WonCount    int   `json:"won_count"`
	ActiveCount int   `json:"active_count"`
}

// Summarize rolls up a subset of deals, e.g. those belonging to one company.
func Summarize(deals []models.Deal) EntityStats {
	var stats EntityStats
	for _, d := range deals {
		stats.TotalValue += d.Value
		if d.Stage == models.StageClosedWon {
			stats.WonCount++
		}
		if !d.Stage.IsTerminal() {
			stats.ActiveCount++
		}
	}
	return stats
}
