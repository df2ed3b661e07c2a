package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestInteractiveMenuToSim(t *testing.T) {
	app := NewInteractiveApp()
	if len(app.presets) == 0 {
		t.Fatal("no presets listed")
	}
	m := tea.Model(*app)
	if !strings.Contains(m.View(), "fopdt/flow") {
		t.Errorf("menu missing fopdt/flow:\n%s", m.View())
	}

	m = press(m, "enter")
	a := m.(App)
	if a.state != stateConfig || a.cfg == nil {
		t.Fatalf("state = %v, want config", a.state)
	}
	first := a.presets[0]
	if a.cfg.Name != first.name {
		t.Errorf("config name = %q, want %q", a.cfg.Name, first.name)
	}
	kp := a.params["kp"]
	m = press(m, "l")
	if got := m.(App).params["kp"]; got <= kp {
		t.Errorf("kp after nudge = %g, want > %g", got, kp)
	}

	m = press(m, "s")
	a = m.(App)
	if a.state != stateSim {
		t.Fatalf("state = %v, want sim (err %v)", a.state, a.err)
	}
	m = frames(m, 5)
	if len(m.(App).dash.y) == 0 {
		t.Error("dashboard did not advance")
	}
	if !strings.Contains(m.View(), "|e|") {
		t.Error("sim view missing error sparkline")
	}

	m = press(m, "c")
	if m.(App).state != stateConfig {
		t.Error("c did not return to config")
	}
	m = press(m, "esc")
	if m.(App).state != stateMenu {
		t.Error("esc did not return to menu")
	}
}

func TestInteractiveEditParam(t *testing.T) {
	m := tea.Model(*NewInteractiveApp())
	m = press(m, "enter")
	m = press(m, "enter")
	if !m.(App).editing {
		t.Fatal("enter did not start editing")
	}
	for range 32 {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	}
	m = press(m, "2")
	m = press(m, ".")
	m = press(m, "5")
	m = press(m, "enter")
	if got := m.(App).params["kp"]; got != 2.5 {
		t.Errorf("kp = %g, want 2.5", got)
	}
}

func TestSparkline(t *testing.T) {
	if s := sparkline(nil, 10); s != "" {
		t.Errorf("empty sparkline = %q", s)
	}
	s := sparkline([]float64{0, 1, 2, 3, 4, 5, 6, 7}, 10)
	if s != "▁▂▃▄▅▆▇█" {
		t.Errorf("sparkline = %q", s)
	}
	if n := len([]rune(sparkline(make([]float64, 100), 20))); n != 20 {
		t.Errorf("width = %d, want 20", n)
	}
}
