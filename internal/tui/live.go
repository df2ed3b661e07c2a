package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/pidtune/internal/sim"
	"github.com/san-kum/pidtune/internal/statistics"
)

const (
	historyCapacity = 600
	frameRate       = 30
	maxTicksPerFrame = 10000
)

var (
	panelStyle  = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(36)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type TickMsg time.Time

// Options tune the dashboard. Speed is simulated seconds per wall-clock
// second; zero means real time.
type Options struct {
	Title        string
	Speed        float64
	SetpointStep float64
	Collector    *statistics.LoopCollector
}

// Dashboard drives a live loop from the bubbletea frame clock and plots
// its recent history.
type Dashboard struct {
	live    *sim.Live
	opts    Options
	running bool
	speed   float64
	carry   float64
	last    sim.Tick
	ticked  bool

	y, sp, u []float64

	showHelp bool
	width    int
}

func NewDashboard(live *sim.Live, opts Options) Dashboard {
	if opts.Speed <= 0 {
		opts.Speed = 1
	}
	if opts.SetpointStep <= 0 {
		opts.SetpointStep = math.Max(0.05, 0.05*math.Abs(live.Setpoint()))
	}
	if opts.Title == "" {
		opts.Title = "pidtune live"
	}
	return Dashboard{
		live:    live,
		opts:    opts,
		running: true,
		speed:   opts.Speed,
		y:       make([]float64, 0, historyCapacity),
		sp:      make([]float64, 0, historyCapacity),
		u:       make([]float64, 0, historyCapacity),
		width:   80,
	}
}

func frame() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Dashboard) Init() tea.Cmd {
	return frame()
}

func (m Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ", "p":
			m.running = !m.running
		case "r":
			m.reset()
		case "up", "k":
			m.live.SetSetpoint(m.live.Setpoint() + m.opts.SetpointStep)
		case "down", "j":
			m.live.SetSetpoint(m.live.Setpoint() - m.opts.SetpointStep)
		case "+", "=":
			m.speed = math.Min(m.speed*2, 256)
		case "-", "_":
			m.speed = math.Max(m.speed/2, 0.125)
		case "0":
			m.speed = m.opts.Speed
		case "?":
			m.showHelp = !m.showHelp
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case TickMsg:
		if m.running {
			m.advance(m.ticksPerFrame())
		}
		return m, frame()
	}
	return m, nil
}

// ticksPerFrame converts the speed into whole loop ticks, carrying the
// remainder to the next frame.
func (m *Dashboard) ticksPerFrame() int {
	dt := m.live.Config().Dt
	m.carry += m.speed / frameRate / dt
	n := math.Floor(m.carry)
	m.carry -= n
	return int(math.Min(n, maxTicksPerFrame))
}

func (m *Dashboard) advance(n int) {
	for i := 0; i < n; i++ {
		m.record(m.live.Next())
	}
}

func (m *Dashboard) record(tk sim.Tick) {
	m.last, m.ticked = tk, true
	m.y = appendBounded(m.y, tk.Y)
	m.sp = appendBounded(m.sp, tk.SP)
	m.u = appendBounded(m.u, tk.U)
	if m.opts.Collector != nil {
		m.opts.Collector.Observe(tk)
	}
}

func appendBounded(xs []float64, v float64) []float64 {
	xs = append(xs, v)
	if len(xs) > historyCapacity {
		xs = xs[1:]
	}
	return xs
}

// reset restores the loop's initial condition and clears the history.
func (m *Dashboard) reset() {
	m.live.Reset()
	m.y, m.sp, m.u = m.y[:0], m.sp[:0], m.u[:0]
	m.last, m.ticked, m.carry = sim.Tick{}, false, 0
}

func (m Dashboard) status() string {
	if !m.running {
		return "PAUSED"
	}
	return fmt.Sprintf("RUNNING x%g", m.speed)
}

func (m Dashboard) View() string {
	plotWidth := max(30, m.width-50)

	var charts strings.Builder
	if len(m.y) > 1 {
		charts.WriteString(asciigraph.PlotMany([][]float64{m.y, m.sp},
			asciigraph.Height(10), asciigraph.Width(plotWidth),
			asciigraph.SeriesColors(asciigraph.Green, asciigraph.Yellow),
			asciigraph.Caption("PV / SP")))
		charts.WriteString("\n\n")
		charts.WriteString(asciigraph.Plot(m.u,
			asciigraph.Height(5), asciigraph.Width(plotWidth),
			asciigraph.Caption("OP %")))
	} else {
		charts.WriteString("waiting for data...")
	}

	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.opts.Title)) + "\n")
	s.WriteString(m.status() + "\n\n")
	row := func(label, format string, v float64) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(fmt.Sprintf(format, v)) + "\n")
	}
	tk := m.last
	row("Time", "%.2fs", tk.T)
	row("SP", "%.4g", m.live.Setpoint())
	row("PV", "%.4g", tk.Y)
	row("OP", "%.2f%%", tk.U)
	row("Valve", "%.2f%%", tk.Position)
	row("Dist", "%.4g", tk.D)
	s.WriteString("\n")
	row("P", "%.3f", tk.Terms.P)
	row("I", "%.3f", tk.Terms.I)
	row("D", "%.3f", tk.Terms.D)
	if m.opts.Collector != nil {
		s.WriteString("\n")
		row("|e| mean", "%.4g", m.opts.Collector.MeanAbsError())
	}
	s.WriteString(helpStyle.Render("─────────────────────\nSPACE pause  R reset  Q quit\n↑↓ setpoint  +- speed  ? help"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, panelStyle.Render(charts.String()), statsStyle.Render(s.String()))
	if m.showHelp {
		return helpText + "\n" + mainView
	}
	return mainView
}

const helpText = `
  Space    pause or resume
  R        reset loop to its initial condition
  Up/K     raise the setpoint
  Down/J   lower the setpoint
  + / -    double or halve the speed
  0        restore the initial speed
  Q        quit
`

// RunLive shows the dashboard full screen until the user quits.
func RunLive(live *sim.Live, opts Options) error {
	p := tea.NewProgram(NewDashboard(live, opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
