package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"pjimarket/internal/analysis"
	"pjimarket/internal/config"
	"pjimarket/internal/types"
)

// renderSummary builds the terminal summary printed after an analysis:
// market estimates, tier distribution, and the top hospitals.
func renderSummary(cfg *config.Config, result *types.Result) string {
	accent := lipgloss.Color(cfg.Export.AccentHex)
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	dimStyle := lipgloss.NewStyle().Faint(true)

	var b strings.Builder
	b.WriteString(titleStyle.Render(cfg.Export.Title))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("run %s · %d hospitals scored", result.RunID, len(result.Hospitals))))
	b.WriteString("\n\n")

	for _, m := range result.Market {
		b.WriteString(fmt.Sprintf("TAM @ %.1f%%: %.0f infections → €%.0f\n",
			m.Rate*100, m.Infections, m.ValueEUR))
	}

	counts := analysis.TierCounts(result)
	b.WriteString(fmt.Sprintf("Tiers: A=%d B=%d C=%d\n\n",
		counts[types.TierA], counts[types.TierB], counts[types.TierC]))

	top := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(accent)).
		Headers("HOSPITAL", "STATE", "VOLUME", "AAI", "SCORE", "TIER")

	for i, h := range result.Hospitals {
		if i >= cfg.Export.TopN {
			break
		}
		top.Row(h.Name, h.State, fmt.Sprintf("%d", h.Volume),
			h.AAI.String(), h.Score.String(), string(h.Tier))
	}
	b.WriteString(top.String())

	if len(result.Limitations) > 0 {
		b.WriteString("\n\n")
		b.WriteString(dimStyle.Render("Limitations:"))
		for _, l := range result.Limitations {
			b.WriteString("\n")
			b.WriteString(dimStyle.Render("  - " + l))
		}
	}
	return b.String()
}
