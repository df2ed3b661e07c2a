package tui

import (
	"fmt"
	"math"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/pidtune/internal/config"
	"github.com/san-kum/pidtune/internal/sim"
)

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
)

type state int

const (
	stateMenu state = iota
	stateConfig
	stateSim
)

type presetEntry struct {
	kind, name string
}

func (e presetEntry) String() string { return e.kind + "/" + e.name }

// App is the preset picker. It edits the tuning of the chosen loop and
// then hands the loop to a Dashboard.
type App struct {
	state   state
	cursor  int
	presets []presetEntry
	cfg     *config.Config

	params      map[string]float64
	paramNames  []string
	paramCursor int
	editing     bool
	editBuf     string
	err         error

	dash Dashboard

	width  int
	height int
}

func NewInteractiveApp() *App {
	var entries []presetEntry
	for _, kind := range config.Kinds() {
		for _, name := range config.ListPresets(kind) {
			entries = append(entries, presetEntry{kind: kind, name: name})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].String() < entries[j].String() })
	return &App{
		state:      stateMenu,
		presets:    entries,
		paramNames: []string{"kp", "ti", "td", "sp", "noise", "speed"},
		width:      80,
		height:     24,
	}
}

func (m App) Init() tea.Cmd { return nil }

func (m App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.state == stateSim {
			d, cmd := m.dash.Update(msg)
			m.dash = d.(Dashboard)
			return m, cmd
		}
		return m, nil
	case TickMsg:
		if m.state != stateSim {
			return m, nil
		}
		d, cmd := m.dash.Update(msg)
		m.dash = d.(Dashboard)
		return m, cmd
	}
	return m, nil
}

func (m App) handleKey(msg tea.KeyMsg) (App, tea.Cmd) {
	switch m.state {
	case stateMenu:
		return m.menuKey(msg)
	case stateConfig:
		return m.configKey(msg)
	case stateSim:
		return m.simKey(msg)
	}
	return m, nil
}

func (m App) menuKey(msg tea.KeyMsg) (App, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.presets)-1 {
			m.cursor++
		}
	case "enter", " ":
		if len(m.presets) == 0 {
			return m, nil
		}
		e := m.presets[m.cursor]
		m.cfg = config.GetPreset(e.kind, e.name)
		m.state = stateConfig
		m.paramCursor = 0
		m.err = nil
		m.loadParams()
	}
	return m, nil
}

func (m *App) loadParams() {
	c := m.cfg.Simulation
	m.params = map[string]float64{
		"kp":    c.Controller.Kp,
		"ti":    c.Controller.Ti,
		"td":    c.Controller.Td,
		"sp":    c.SP,
		"noise": c.NoiseStd,
		"speed": math.Max(1, math.Round(c.TEnd/60)),
	}
}

func (m App) configKey(msg tea.KeyMsg) (App, tea.Cmd) {
	if m.editing {
		switch msg.String() {
		case "enter":
			var val float64
			if _, err := fmt.Sscanf(m.editBuf, "%f", &val); err == nil {
				m.params[m.paramNames[m.paramCursor]] = val
			}
			m.editing = false
			m.editBuf = ""
		case "esc":
			m.editing = false
			m.editBuf = ""
		case "backspace":
			if len(m.editBuf) > 0 {
				m.editBuf = m.editBuf[:len(m.editBuf)-1]
			}
		default:
			if len(msg.String()) == 1 {
				c := msg.String()[0]
				if (c >= '0' && c <= '9') || c == '.' || c == '-' || c == 'e' {
					m.editBuf += string(c)
				}
			}
		}
		return m, nil
	}

	name := m.paramNames[m.paramCursor]
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "q", "esc":
		m.state = stateMenu
	case "up", "k":
		if m.paramCursor > 0 {
			m.paramCursor--
		}
	case "down", "j":
		if m.paramCursor < len(m.paramNames)-1 {
			m.paramCursor++
		}
	case "enter", " ":
		m.editing = true
		m.editBuf = fmt.Sprintf("%g", m.params[name])
	case "left", "h":
		m.params[name] = nudge(m.params[name], -1)
	case "right", "l":
		m.params[name] = nudge(m.params[name], 1)
	case "s":
		if err := m.start(); err != nil {
			m.err = err
			return m, nil
		}
		m.state = stateSim
		return m, tea.Batch(tea.ClearScreen, m.dash.Init())
	}
	return m, nil
}

// nudge moves v by ten percent of its magnitude, or by 0.1 near zero.
func nudge(v, dir float64) float64 {
	step := math.Max(0.1, math.Abs(v)*0.1)
	return v + dir*step
}

func (m *App) start() error {
	c := m.cfg.Simulation
	c.Controller.Kp = m.params["kp"]
	c.Controller.Ti = m.params["ti"]
	c.Controller.Td = m.params["td"]
	c.SP = m.params["sp"]
	c.NoiseStd = math.Max(0, m.params["noise"])
	live, err := sim.NewLive(c)
	if err != nil {
		return err
	}
	m.err = nil
	m.dash = NewDashboard(live, Options{
		Title: m.cfg.Name,
		Speed: math.Max(0.125, m.params["speed"]),
	})
	m.dash.width = m.width
	return nil
}

func (m App) simKey(msg tea.KeyMsg) (App, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		m.state = stateMenu
		return m, tea.ClearScreen
	case "c":
		m.state = stateConfig
		return m, tea.ClearScreen
	}
	d, cmd := m.dash.Update(msg)
	m.dash = d.(Dashboard)
	return m, cmd
}

func (m App) View() string {
	switch m.state {
	case stateMenu:
		return m.viewMenu()
	case stateConfig:
		return m.viewConfig()
	case stateSim:
		return m.viewSim()
	}
	return ""
}

func (m App) viewMenu() string {
	var b strings.Builder
	b.WriteString("\n  " + cyan.Render("pidtune") + dim.Render("  loop presets") + "\n\n")
	for i, e := range m.presets {
		cursor := "  "
		name := dim.Render(e.String())
		if i == m.cursor {
			cursor = green.Render("▸ ")
			name = white.Render(e.String())
		}
		b.WriteString("  " + cursor + name + "\n")
	}
	b.WriteString("\n  " + dimmer.Render("↑↓ select  enter configure  q quit") + "\n")
	return b.String()
}

func (m App) viewConfig() string {
	var b strings.Builder
	rec := m.cfg.Simulation.Model
	b.WriteString("\n  " + cyan.Render(m.cfg.Name) + dim.Render("  "+rec.Type) + "\n\n")
	for i, name := range m.paramNames {
		cursor := "  "
		label := dim.Render(fmt.Sprintf("%-6s", name))
		val := white.Render(fmt.Sprintf("%10.4g", m.params[name]))
		if i == m.paramCursor {
			cursor = green.Render("▸ ")
			label = white.Render(fmt.Sprintf("%-6s", name))
			if m.editing {
				val = yellow.Render(fmt.Sprintf("%10s_", m.editBuf))
			}
		}
		b.WriteString("  " + cursor + label + " " + val + "\n")
	}
	if m.err != nil {
		b.WriteString("\n  " + magenta.Render(m.err.Error()) + "\n")
	}
	b.WriteString("\n  " + dimmer.Render("↑↓ select  ←→ adjust  enter edit  s start  esc back") + "\n")
	return b.String()
}

func (m App) viewSim() string {
	errs := make([]float64, len(m.dash.y))
	for i := range errs {
		errs[i] = math.Abs(m.dash.sp[i] - m.dash.y[i])
	}
	return m.dash.View() + "\n  " + dim.Render("|e| ") + magenta.Render(sparkline(errs, 60)) +
		"\n  " + dimmer.Render("c configure  esc menu") + "\n"
}

func sparkline(data []float64, width int) string {
	if len(data) == 0 {
		return ""
	}
	chars := []rune("▁▂▃▄▅▆▇█")
	if len(data) > width {
		data = data[len(data)-width:]
	}
	lo, hi := data[0], data[0]
	for _, v := range data {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	span := hi - lo
	var b strings.Builder
	for _, v := range data {
		idx := 0
		if span > 0 {
			idx = int((v - lo) / span * float64(len(chars)-1))
		}
		b.WriteRune(chars[idx])
	}
	return b.String()
}

// RunInteractive starts the preset picker full screen.
func RunInteractive() error {
	p := tea.NewProgram(NewInteractiveApp(), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
