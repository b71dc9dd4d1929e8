// ABOUTME: Terminal dashboard statistics and rendering
// ABOUTME: ASCII pipeline bars, record counts and deals that need attention
package viz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/harperreed/dealdesk/crm"
	"github.com/harperreed/dealdesk/pipeline"
)

// StaleAfter is how long an open deal can go without an update before the
// dashboard flags it.
const StaleAfter = 14 * 24 * time.Hour

type StaleDeal struct {
	Title     string
	Company   string
	UpdatedAt time.Time
	DaysSince int
}

type DashboardStats struct {
	*crm.Dashboard
	StaleDeals []StaleDeal
	Now        time.Time
}

// GenerateDashboardStats loads the dashboard and finds open deals untouched
// for longer than StaleAfter.
func GenerateDashboardStats(ctx context.Context, svc *crm.Service, now time.Time) (*DashboardStats, error) {
	dash, err := svc.Dashboard(ctx)
	if err != nil {
		return nil, err
	}
	view, err := svc.Pipeline(ctx)
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{Dashboard: dash, Now: now}
	for _, g := range view.Stages {
		if g.Stage.IsTerminal() {
			continue
		}
		for _, d := range g.Deals {
			if now.Sub(d.UpdatedAt) <= StaleAfter {
				continue
			}
			stats.StaleDeals = append(stats.StaleDeals, StaleDeal{
				Title:     d.Title,
				Company:   view.CompanyNames[d.ID],
				UpdatedAt: d.UpdatedAt,
				DaysSince: int(now.Sub(d.UpdatedAt).Hours() / 24),
			})
		}
	}
	return stats, nil
}

func RenderDashboard(stats *DashboardStats) string {
	var out strings.Builder

	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	out.WriteString("  DEALDESK DASHBOARD\n")
	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	out.WriteString("PIPELINE OVERVIEW\n")
	out.WriteString(RenderPipeline(stats.Pipeline))
	out.WriteString("\n")

	out.WriteString("STATS\n")
	out.WriteString(fmt.Sprintf("  🏢 %d companies  📇 %d contacts  💼 %d deals\n",
		stats.CompanyCount, stats.ContactCount, stats.DealCount))
	out.WriteString(fmt.Sprintf("  Open pipeline: %s across %d deals\n", Money(stats.Pipeline.PipelineValue), stats.Pipeline.ActiveCount))
	out.WriteString(fmt.Sprintf("  Closed revenue: %s (%d won, %d lost)\n\n",
		Money(stats.ClosedRevenue), stats.Pipeline.WonCount, stats.Pipeline.LostCount))

	if len(stats.StaleDeals) > 0 {
		out.WriteString("NEEDS ATTENTION\n")
		out.WriteString(fmt.Sprintf("  ⚠️  %d deals - stale (no activity in 14+ days)\n", len(stats.StaleDeals)))
		for _, d := range stats.StaleDeals {
			out.WriteString(fmt.Sprintf("     • %s (%s), last touched %s\n",
				d.Title, d.Company, humanize.RelTime(d.UpdatedAt, stats.Now, "ago", "from now")))
		}
	}

	return out.String()
}

// RenderPipeline draws one bar per stage scaled to the busiest stage.
func RenderPipeline(sum pipeline.Summary) string {
	var out strings.Builder

	maxCount := 0
	for _, g := range sum.Stages {
		if g.Count > maxCount {
			maxCount = g.Count
		}
	}
	if maxCount == 0 {
		maxCount = 1
	}

	for _, g := range sum.Stages {
		barLength := (g.Count * 10) / maxCount
		bar := strings.Repeat("█", barLength) + strings.Repeat("░", 10-barLength)
		out.WriteString(fmt.Sprintf("  %-13s %s  %2d (%s)\n", g.Label, bar, g.Count, MoneyShort(g.Value)))
	}
	return out.String()
}
