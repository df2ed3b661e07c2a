package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/pidtune/internal/model"
	"github.com/san-kum/pidtune/internal/sim"
	"github.com/san-kum/pidtune/internal/statistics"
)

func newTestLive(t *testing.T) *sim.Live {
	t.Helper()
	cfg := sim.DefaultConfig()
	cfg.Model = model.FOPDT{K: 1, Tau: 2, Theta: 0.2}.Record()
	cfg.Dt = 0.1
	cfg.SP = 0.5
	live, err := sim.NewLive(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return live
}

func press(m tea.Model, key string) tea.Model {
	var msg tea.KeyMsg
	switch key {
	case " ":
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	m, _ = m.Update(msg)
	return m
}

func frames(m tea.Model, n int) tea.Model {
	for i := 0; i < n; i++ {
		m, _ = m.Update(TickMsg(time.Now()))
	}
	return m
}

func TestDashboardAdvancesWithSpeed(t *testing.T) {
	// 3 sim seconds per wall second at dt 0.1 is one tick per frame
	m := tea.Model(NewDashboard(newTestLive(t), Options{Speed: 3}))
	m = frames(m, 30)
	d := m.(Dashboard)
	if len(d.y) != 30 {
		t.Fatalf("ticks = %d, want 30", len(d.y))
	}
	if d.last.K != 29 {
		t.Errorf("last tick = %d, want 29", d.last.K)
	}
}

func TestDashboardPause(t *testing.T) {
	m := tea.Model(NewDashboard(newTestLive(t), Options{Speed: 3}))
	m = press(m, " ")
	m = frames(m, 10)
	if n := len(m.(Dashboard).y); n != 0 {
		t.Fatalf("paused dashboard advanced %d ticks", n)
	}
	if !strings.Contains(m.View(), "PAUSED") {
		t.Error("view does not show paused state")
	}
	m = press(m, " ")
	m = frames(m, 10)
	if n := len(m.(Dashboard).y); n != 10 {
		t.Fatalf("resumed ticks = %d, want 10", n)
	}
}

func TestDashboardSetpointAndReset(t *testing.T) {
	live := newTestLive(t)
	m := tea.Model(NewDashboard(live, Options{Speed: 3, SetpointStep: 0.1}))
	m = press(m, "up")
	m = press(m, "up")
	if sp := live.Setpoint(); sp < 0.69 || sp > 0.71 {
		t.Errorf("setpoint = %g, want 0.7", sp)
	}
	m = press(m, "down")
	if sp := live.Setpoint(); sp < 0.59 || sp > 0.61 {
		t.Errorf("setpoint = %g, want 0.6", sp)
	}
	m = frames(m, 5)
	m = press(m, "r")
	d := m.(Dashboard)
	if len(d.y) != 0 || d.ticked {
		t.Error("reset kept history")
	}
	m = frames(m, 1)
	if k := m.(Dashboard).last.K; k != 0 {
		t.Errorf("first tick after reset = %d, want 0", k)
	}
}

func TestDashboardSpeedKeys(t *testing.T) {
	m := tea.Model(NewDashboard(newTestLive(t), Options{Speed: 2}))
	m = press(m, "+")
	if s := m.(Dashboard).speed; s != 4 {
		t.Errorf("speed = %g, want 4", s)
	}
	m = press(m, "-")
	m = press(m, "-")
	if s := m.(Dashboard).speed; s != 1 {
		t.Errorf("speed = %g, want 1", s)
	}
	m = press(m, "0")
	if s := m.(Dashboard).speed; s != 2 {
		t.Errorf("speed = %g, want 2", s)
	}
}

func TestDashboardQuit(t *testing.T) {
	m := tea.Model(NewDashboard(newTestLive(t), Options{}))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("quit key returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("quit key did not quit")
	}
}

func TestDashboardFeedsCollector(t *testing.T) {
	c := statistics.NewLoopCollector("test", 50)
	m := tea.Model(NewDashboard(newTestLive(t), Options{Speed: 3, Collector: c}))
	m = frames(m, 20)
	if c.Ticks() != 20 {
		t.Errorf("collector ticks = %d, want 20", c.Ticks())
	}
	view := m.View()
	for _, want := range []string{"PV", "OP", "|e| mean"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestDashboardHelp(t *testing.T) {
	m := tea.Model(NewDashboard(newTestLive(t), Options{}))
	if strings.Contains(m.View(), "double or halve") {
		t.Fatal("help shown before toggle")
	}
	m = press(m, "?")
	if !strings.Contains(m.View(), "double or halve") {
		t.Error("help not shown after toggle")
	}
}
