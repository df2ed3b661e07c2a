package config

import (
	"sort"
	"strings"

	"github.com/san-kum/pidtune/internal/control"
	"github.com/san-kum/pidtune/internal/model"
	"github.com/san-kum/pidtune/internal/tuning"
	"github.com/san-kum/pidtune/internal/valve"
)

// Presets are typical loops per process type. Model gains are per unit of
// valve flow.
var Presets = map[string]map[string]func() *Config{
	"fopdt": {
		"flow": func() *Config {
			return preset("flow", model.FOPDT{K: 1, Tau: 2, Theta: 0.5}, 0.05, 30, valve.Nonlinearity{Deadband: 0.2, Stiction: 0.5})
		},
		"temperature": func() *Config {
			return preset("temperature", model.FOPDT{K: 80, Tau: 120, Theta: 20}, 1, 1200, valve.Nonlinearity{})
		},
		"pressure": func() *Config {
			return preset("pressure", model.FOPDT{K: 5, Tau: 8, Theta: 1}, 0.1, 80, valve.Nonlinearity{Deadband: 0.1})
		},
	},
	"sopdt": {
		"heat-exchanger": func() *Config {
			return preset("heat-exchanger", model.SOPDT{K: 40, Tau1: 60, Tau2: 15, Theta: 10}, 0.5, 900, valve.Nonlinearity{})
		},
		"composition": func() *Config {
			return preset("composition", model.SOPDT{K: 2, Tau1: 300, Tau2: 100, Theta: 60}, 2, 4000, valve.Nonlinearity{})
		},
	},
	"integrating": {
		"level": func() *Config {
			return preset("level", model.Integrator{K: 1, Ki: 0.05, Theta: 2}, 0.2, 600, valve.Nonlinearity{Deadband: 0.5})
		},
		"level-leaky": func() *Config {
			return preset("level-leaky", model.Integrator{K: 1, Ki: 0.05, Leak: 0.002, Theta: 2}, 0.2, 600, valve.Nonlinearity{})
		},
	},
}

// preset builds a config whose controller is the default SIMC tuning of m,
// converted to a controller output in percent.
func preset(name string, m model.Model, dt, tEnd float64, nl valve.Nonlinearity) *Config {
	cfg := DefaultConfig()
	cfg.Name = name
	cfg.Identify.Type = string(m.Kind())
	cfg.Simulation.Model = m.Record()
	cfg.Simulation.Dt = dt
	cfg.Simulation.TEnd = tEnd
	cfg.Simulation.Disturbance.At = tEnd / 2
	cfg.Simulation.Valve.Nonlinearity = nl
	cfg.Simulation.Valve.Characteristic = string(valve.Linear)

	p := control.DefaultParams()
	if s, err := tuning.FromModel(model.ScaleGain(m, 0.01), tuning.SIMC, 0); err == nil {
		p = s.Apply(p)
	}
	cfg.Simulation.Controller = p

	// hold the loop at a mid-range operating point
	cfg.Simulation.SP = 0.5 * gain(m)
	return cfg
}

func gain(m model.Model) float64 {
	switch m := m.(type) {
	case model.FOPDT:
		return m.K
	case model.SOPDT:
		return m.K
	}
	// integrating processes have no steady-state gain
	return 2
}

// GetPreset returns a fresh copy of the named preset, or nil.
func GetPreset(kind, preset string) *Config {
	modelPresets, ok := Presets[strings.ToLower(kind)]
	if !ok {
		return nil
	}
	build, ok := modelPresets[preset]
	if !ok {
		return nil
	}
	return build()
}

func ListPresets(kind string) []string {
	modelPresets, ok := Presets[strings.ToLower(kind)]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Kinds lists the process types that have presets.
func Kinds() []string {
	kinds := make([]string, 0, len(Presets))
	for k := range Presets {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
