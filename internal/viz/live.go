package viz

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/episim/internal/epidemic"
	"github.com/san-kum/episim/internal/integrators"
	"github.com/san-kum/episim/internal/ode"
	"github.com/san-kum/episim/internal/scenario"
)

const historyCapacity = 600

var (
	statsStyle       = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(42)
	labelStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	activeParamStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	helpStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type TickMsg time.Time

// Model steps the epidemic in real time and plots the compartment history.
type Model struct {
	dyn       *epidemic.SIRV
	solver    *integrators.Solver
	name      string
	state     ode.State
	initial   ode.State
	t, dt     float64
	history   [3][]float64
	running   bool
	paramKeys []string
	selected  int
	failed    error
}

// NewModel initializes the live view from a scenario.
func NewModel(sc scenario.Scenario, opts integrators.Options) Model {
	dyn := epidemic.New(sc.Params)

	keys := make([]string, 0, len(dyn.GetParams()))
	for k := range dyn.GetParams() {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return Model{
		dyn:       dyn,
		solver:    integrators.NewSolver(opts),
		name:      sc.Name,
		state:     sc.Init.Clone(),
		initial:   sc.Init.Clone(),
		t:         sc.T0,
		dt:        0.05,
		running:   true,
		paramKeys: keys,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "tab":
			m.selected = (m.selected + 1) % len(m.paramKeys)
		case "up", "k":
			m.adjustParam(1.05)
		case "down", "j":
			m.adjustParam(0.95)
		}
	case TickMsg:
		if m.running && m.failed == nil {
			m.step()
		}
		return m, tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
	}
	return m, nil
}

func (m *Model) step() {
	traj, err := m.solver.Solve(context.Background(), m.dyn, m.state, m.t, []float64{m.t + m.dt})
	if err != nil {
		m.failed = err
		m.running = false
		return
	}

	m.state = traj.States[0]
	m.t += m.dt

	for i := range m.history {
		m.history[i] = append(m.history[i], m.state[i])
		if len(m.history[i]) > historyCapacity {
			m.history[i] = m.history[i][1:]
		}
	}
}

func (m *Model) reset() {
	m.state = m.initial.Clone()
	m.t = 0
	m.failed = nil
	for i := range m.history {
		m.history[i] = nil
	}
}

func (m *Model) adjustParam(factor float64) {
	key := m.paramKeys[m.selected]
	value := m.dyn.GetParams()[key]
	if value == 0 {
		value = 1e-3
	}
	if err := m.dyn.SetParam(key, value*factor); err != nil {
		m.failed = err
	}
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("episim live: " + m.name))
	b.WriteString("\n")

	if len(m.history[0]) > 1 {
		graph := asciigraph.PlotMany(
			[][]float64{m.history[0], m.history[1], m.history[2]},
			asciigraph.Height(12),
			asciigraph.Width(80),
			asciigraph.SeriesColors(asciigraph.Blue, asciigraph.Red, asciigraph.Green),
			asciigraph.Caption("s=blue i=red r=green"),
		)
		b.WriteString(graphStyle.Render(graph))
		b.WriteString("\n")
	}

	b.WriteString(m.statsView())
	if m.failed != nil {
		b.WriteString("\n")
		b.WriteString(activeParamStyle.Render("solver error: " + m.failed.Error()))
	}
	b.WriteString(helpStyle.Render("space pause  r reset  tab select param  up/down adjust  q quit"))

	return b.String()
}

func (m Model) statsView() string {
	var rows []string

	rows = append(rows, labelStyle.Render("t")+valueStyle.Render(fmt.Sprintf("%.2f", m.t)))
	for i, name := range epidemic.Compartments {
		rows = append(rows, labelStyle.Render(name)+valueStyle.Render(fmt.Sprintf("%.4f", m.state[i])))
	}
	rows = append(rows, labelStyle.Render("sum")+valueStyle.Render(fmt.Sprintf("%.6f", m.state.Sum())))
	rows = append(rows, labelStyle.Render("R0")+valueStyle.Render(fmt.Sprintf("%.3f", m.dyn.Params.R0())))
	rows = append(rows, labelStyle.Render("Rv")+valueStyle.Render(fmt.Sprintf("%.3f", m.dyn.Params.Rv())))

	params := m.dyn.GetParams()
	for i, key := range m.paramKeys {
		line := labelStyle.Render(key) + valueStyle.Render(fmt.Sprintf("%.4f", params[key]))
		if i == m.selected {
			line = activeParamStyle.Render("> ") + line
		} else {
			line = "  " + line
		}
		rows = append(rows, line)
	}

	return statsStyle.Render(strings.Join(rows, "\n"))
}

// RunLive starts the interactive view.
func RunLive(m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
