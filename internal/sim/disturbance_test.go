package sim

import "testing"

func TestStepDisturbance(t *testing.T) {
	d := StepDisturbance(2, 5)
	if d(4.99) != 0 || d(5) != 2 || d(100) != 2 {
		t.Error("step disturbance should switch on at t=5")
	}
}

func TestScheduleDisturbance(t *testing.T) {
	d := ScheduleDisturbance([]Breakpoint{{T: 20, D: -1}, {T: 10, D: 3}})

	tests := []struct {
		t    float64
		want float64
	}{
		{0, 0},
		{10, 3},
		{15, 3},
		{20, -1},
		{1e6, -1},
	}
	for _, tt := range tests {
		if got := d(tt.t); got != tt.want {
			t.Errorf("d(%g) = %g, expected %g", tt.t, got, tt.want)
		}
	}
}

func TestDisturbanceSelection(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Disturbance = DisturbanceConfig{Step: 1, At: 0, Schedule: []Breakpoint{{T: 0, D: 5}}}
	if got := cfg.disturbance()(1); got != 5 {
		t.Errorf("schedule should win over step, got %f", got)
	}

	cfg.DisturbanceFunc = func(t float64) float64 { return -t }
	if got := cfg.disturbance()(2); got != -2 {
		t.Errorf("function should win over schedule, got %f", got)
	}
}
