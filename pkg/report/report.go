// Package report renders planning output as markdown and aligned plain
// text: the plan decision, solver-match and availability tables, calibration
// stats, and the value ranking.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/planwork/pkg/dispatch"
	"github.com/vanderheijden86/planwork/pkg/history"
	"github.com/vanderheijden86/planwork/pkg/model"
)

// PlanDecision renders the human-readable explanation of one planning call:
// the immediate batch, the recommended path's metrics, and the first ten
// steps of the execution order.
func PlanDecision(req *model.PlanRequest, recommended *model.PlanPath, batch []string) string {
	summaries := make(map[string]string, len(req.Tasks))
	for _, t := range req.Tasks {
		summaries[t.ID] = t.Summary
	}

	var lines []string
	lines = append(lines, "## Planning Decision", "")

	if len(batch) > 0 {
		lines = append(lines, fmt.Sprintf("### Immediate Batch (%d tasks)", len(batch)))
		for _, id := range batch {
			lines = append(lines, fmt.Sprintf("- **%s**: %s", id, summaries[id]))
		}
		lines = append(lines, "")
	}

	if recommended != nil {
		lines = append(lines,
			"### Recommended Path",
			fmt.Sprintf("- Total duration: %dh", recommended.TotalHours),
			fmt.Sprintf("- Goals completed: %d", len(recommended.GoalsCompleted)),
			fmt.Sprintf("- Speed score: %.1f/100", recommended.SpeedScore),
			fmt.Sprintf("- Coverage score: %.1f/100", recommended.CoverageScore),
			"",
			"### Execution Order",
		)
		limit := len(recommended.Sequence)
		if limit > 10 {
			limit = 10
		}
		for i, id := range recommended.Sequence[:limit] {
			lines = append(lines, fmt.Sprintf("%d. %s: %s", i+1, id, summaries[id]))
		}
		if rest := len(recommended.Sequence) - 10; rest > 0 {
			lines = append(lines, fmt.Sprintf("... and %d more", rest))
		}
	}

	return strings.Join(lines, "\n")
}

// MatchTable renders solver matches as a markdown table, tasks sorted by id.
func MatchTable(matches map[string]model.SolverMatch) string {
	ids := make([]string, 0, len(matches))
	for id := range matches {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	b.WriteString("## Solver Matches\n\n")
	b.WriteString("| Task | Solver | Confidence | Reason | Fallback |\n")
	b.WriteString("|------|--------|-----------|--------|----------|\n")
	for _, id := range ids {
		m := matches[id]
		fmt.Fprintf(&b, "| %s | %s | %.2f | %s | %s |\n", id, m.Solver, m.Confidence, m.Reason, m.Fallback)
	}
	return b.String()
}

// AvailabilityTable renders probe results as a markdown table.
func AvailabilityTable(probes []dispatch.Availability) string {
	var b strings.Builder
	b.WriteString("## Solver Availability\n\n")
	b.WriteString("| Solver | Status | Reason |\n")
	b.WriteString("|--------|--------|--------|\n")
	for _, p := range probes {
		status := "Unavailable"
		if p.Available {
			status = "Available"
		}
		fmt.Fprintf(&b, "| %s | %s | %s |\n", p.Solver, status, p.Reason)
	}
	return b.String()
}

// CalibrationTable renders history stats: the overall row plus one row per
// solver, sorted by name.
func CalibrationTable(stats history.Stats) string {
	var b strings.Builder
	b.WriteString("## Estimate Calibration\n\n")
	fmt.Fprintf(&b, "- Samples: %d\n", stats.Samples)
	fmt.Fprintf(&b, "- Mean ratio: %.2f\n", stats.MeanRatio)
	fmt.Fprintf(&b, "- Std dev: %.2f\n", stats.StdDev)
	b.WriteString("\n| Solver | Samples | Mean Ratio | Success Rate |\n")
	b.WriteString("|--------|---------|-----------|--------------|\n")

	names := make([]string, 0, len(stats.PerSolver))
	for name := range stats.PerSolver {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s := stats.PerSolver[name]
		fmt.Fprintf(&b, "| %s | %d | %.2f | %.0f%% |\n", name, s.Samples, s.MeanRatio, s.SuccessRate*100)
	}
	return b.String()
}

// ValueRanking renders the top impacts, highest value first. limit <= 0
// renders all.
func ValueRanking(impacts []model.ValueImpact, limit int) string {
	if limit > 0 && limit < len(impacts) {
		impacts = impacts[:limit]
	}
	var b strings.Builder
	b.WriteString("## Highest Value Tasks\n\n")
	b.WriteString("| Rank | Task | Summary | Score | Blocked Hours | Blocked Goals |\n")
	b.WriteString("|------|------|---------|-------|---------------|---------------|\n")
	for i, imp := range impacts {
		fmt.Fprintf(&b, "| %d | %s | %s | %.1f | %d | %s |\n",
			i+1, imp.TaskID, runewidth.Truncate(imp.Summary, 40, "..."),
			imp.Score, imp.BlockedHours, strings.Join(imp.BlockedGoals, ", "))
	}
	return b.String()
}

// TextTable renders rows as aligned plain text. Cell widths use
// runewidth.StringWidth so wide runes line up.
func TextTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				if w := runewidth.StringWidth(cell); w > widths[i] {
					widths[i] = w
				}
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		for i, cell := range cells {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(cell)
			if pad := widths[i] - runewidth.StringWidth(cell); pad > 0 && i < len(cells)-1 {
				b.WriteString(strings.Repeat(" ", pad))
			}
		}
		b.WriteByte('\n')
	}
	writeRow(headers)
	sep := make([]string, len(headers))
	for i := range sep {
		sep[i] = strings.Repeat("-", widths[i])
	}
	writeRow(sep)
	for _, row := range rows {
		writeRow(row)
	}
	return b.String()
}

// AvailabilityText is the plain-text variant of AvailabilityTable.
func AvailabilityText(probes []dispatch.Availability) string {
	rows := make([][]string, 0, len(probes))
	for _, p := range probes {
		status := "unavailable"
		if p.Available {
			status = "available"
		}
		rows = append(rows, []string{p.Solver, status, p.Reason})
	}
	return TextTable([]string{"SOLVER", "STATUS", "REASON"}, rows)
}

// MatchText is the plain-text variant of MatchTable.
func MatchText(matches map[string]model.SolverMatch) string {
	ids := make([]string, 0, len(matches))
	for id := range matches {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		m := matches[id]
		rows = append(rows, []string{id, m.Solver, fmt.Sprintf("%.2f", m.Confidence), m.Reason})
	}
	return TextTable([]string{"TASK", "SOLVER", "CONF", "REASON"}, rows)
}
