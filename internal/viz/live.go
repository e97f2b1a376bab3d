package viz

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/ionlab/internal/exchange"
)

const (
	chartWidth   = 60
	chartHeight  = 8
	framesPerSec = 30
)

type TickMsg time.Time

// Model replays a finished trajectory in the terminal: play, pause,
// scrub, and cycle the charted ion.
type Model struct {
	traj     *exchange.Trajectory
	target   *exchange.ExchangeSystem
	metrics  map[string]float64
	ionIDs   []string
	selected int
	playHead int
	running  bool
	showHelp bool
}

// NewModel builds the replay view. target holds the equilibrium the
// run relaxed toward and may be nil.
func NewModel(traj *exchange.Trajectory, target *exchange.ExchangeSystem, metrics map[string]float64) Model {
	m := Model{
		traj:    traj,
		target:  target,
		metrics: metrics,
		running: true,
	}
	if initial := traj.Initial(); initial != nil {
		for _, sp := range initial.Species {
			m.ionIDs = append(m.ionIDs, sp.Ion.ID)
		}
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Tick(time.Second/framesPerSec, func(t time.Time) tea.Msg { return TickMsg(t) })
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
			m.playHead = 0
		case "[":
			m.running = false
			m.scrub(-1)
		case "]":
			m.running = false
			m.scrub(1)
		case "tab":
			if len(m.ionIDs) > 0 {
				m.selected = (m.selected + 1) % len(m.ionIDs)
			}
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running && m.playHead < len(m.traj.Samples)-1 {
			m.playHead++
		}
		return m, tea.Tick(time.Second/framesPerSec, func(t time.Time) tea.Msg { return TickMsg(t) })
	}
	return m, nil
}

func (m *Model) scrub(dir int) {
	m.playHead += dir
	if m.playHead < 0 {
		m.playHead = 0
	}
	if m.playHead > len(m.traj.Samples)-1 {
		m.playHead = len(m.traj.Samples) - 1
	}
}

func (m Model) View() string {
	if len(m.traj.Samples) == 0 || len(m.ionIDs) == 0 {
		return "no trajectory\n"
	}

	sample := m.traj.Samples[m.playHead]
	sys := &sample.System

	status := statusRunning.Render("PLAYING")
	if !m.running {
		status = statusPaused.Render("PAUSED")
	}
	if m.playHead == len(m.traj.Samples)-1 {
		status = statusPaused.Render("END")
	}

	var chart string
	id := m.ionIDs[m.selected]
	_, loadings := m.traj.Series(id)
	if m.playHead+1 >= 2 {
		chart = asciigraph.Plot(loadings[:m.playHead+1],
			asciigraph.Height(chartHeight),
			asciigraph.Width(chartWidth),
			asciigraph.Caption(fmt.Sprintf("%s loading (eq)", id)))
	}

	var s strings.Builder
	s.WriteString(headerStyle.Render("ION EXCHANGE") + "\n")
	s.WriteString(fmt.Sprintf("%s  t=%.2fs  sample %d/%d\n",
		status, sample.Time, m.playHead+1, len(m.traj.Samples)))

	capacity := sys.Resin.EffectiveCapacity()
	s.WriteString(labelStyle.Render("Utilization") +
		valueStyle.Render(fmt.Sprintf("%.1f%%", 100*sys.TotalLoading()/capacity)) + "\n")
	if m.traj.Converged {
		s.WriteString(labelStyle.Render("Converged") + valueStyle.Render("yes") + "\n")
	}
	names := make([]string, 0, len(m.metrics))
	for name := range m.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s.WriteString(labelStyle.Render(name) + valueStyle.Render(fmt.Sprintf("%.4g", m.metrics[name])) + "\n")
	}

	s.WriteString("\nLOADINGS\n")
	for i, sp := range sys.Species {
		bar := ProgressBar(sp.Loading/capacity, 16)
		line := fmt.Sprintf("%-6s %s %.3f", sp.Ion.ID, bar, sp.Loading)
		if m.target != nil {
			if j := m.target.Lookup(sp.Ion.ID); j >= 0 {
				line += fmt.Sprintf(" / %.3f", m.target.Species[j].Loading)
			}
		}
		if i == m.selected {
			s.WriteString(activeStyle.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + labelStyle.Render(line) + "\n")
		}
	}

	s.WriteString(helpStyle.Render("\nSP:Pause R:Restart Q:Quit Tab:Ion [ ]:Scrub ?:Help"))

	stats := statsStyle.Render(s.String())
	main := stats
	if chart != "" {
		main = lipgloss.JoinHorizontal(lipgloss.Top, graphStyle.Render(chart), stats)
	}

	if m.showHelp {
		help := "Space pause/resume, R restart, Tab cycle charted ion,\n" +
			"[ and ] step one sample, Q quit."
		return help + "\n\n" + main
	}
	return main
}
