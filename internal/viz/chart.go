// Package viz renders trajectories in the terminal: static asciigraph
// charts and a bubbletea live view.
package viz

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/episim/internal/epidemic"
	"github.com/san-kum/episim/internal/ode"
	"github.com/san-kum/episim/internal/scenario"
)

var (
	headerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	subtitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	graphStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
)

var compartmentTitles = map[string]string{
	"s": "susceptible",
	"i": "infected",
	"r": "recovered",
}

// Subtitle is the human-readable parameter summary shown under chart
// headers.
func Subtitle(sc scenario.Scenario) string {
	return fmt.Sprintf("beta=%.2f gamma=%.2f pi=%.2f P=%.2f | s0=%.2f i0=%.2f r0=%.2f",
		sc.Params.Beta, sc.Params.Gamma, sc.Params.Pi, sc.Params.Coverage,
		sc.Init[0], sc.Init[1], sc.Init[2])
}

// Chart renders one compartment series.
func Chart(series []float64, caption string) string {
	return asciigraph.Plot(series,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(caption),
	)
}

// ChartTrajectory renders all three compartments of a scenario trajectory,
// stacked, with a styled header and the parameter subtitle.
func ChartTrajectory(sc scenario.Scenario, traj *ode.Trajectory) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(sc.Name))
	b.WriteString("\n")
	b.WriteString(subtitleStyle.Render(Subtitle(sc)))
	b.WriteString("\n")

	horizon := sc.Horizon()
	for idx, name := range epidemic.Compartments {
		caption := fmt.Sprintf("%s (%s), t in [0, %g]", name, compartmentTitles[name], horizon)
		b.WriteString(graphStyle.Render(Chart(traj.Series(idx), caption)))
		b.WriteString("\n")
	}

	return b.String()
}
