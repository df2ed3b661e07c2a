package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/pidtune/internal/control"
	"github.com/san-kum/pidtune/internal/identify"
	"github.com/san-kum/pidtune/internal/model"
	"github.com/san-kum/pidtune/internal/sim"
	"github.com/san-kum/pidtune/internal/tuning"
)

const (
	DefaultDt   = 0.1
	DefaultTEnd = 100.0
	DefaultSP   = 1.0
	DefaultRule = tuning.SIMC
)

// Config is a pidtune project file: how to identify, how to tune and the
// closed loop to simulate.
type Config struct {
	Name       string         `yaml:"name,omitempty"`
	Identify   IdentifyConfig `yaml:"identify"`
	Tuning     TuningConfig   `yaml:"tuning"`
	Simulation sim.Config     `yaml:"simulation"`
}

type IdentifyConfig struct {
	Type  string               `yaml:"type"`
	Steps identify.StepOptions `yaml:"steps"`
	Fit   identify.FitOptions  `yaml:"fit"`
}

type TuningConfig struct {
	Rule string `yaml:"rule"`
	// Knob is tau_c for SIMC or lambda for Lambda. Zero picks the default.
	Knob float64 `yaml:"knob"`
}

func DefaultConfig() *Config {
	s := sim.DefaultConfig()
	s.Dt = DefaultDt
	s.TEnd = DefaultTEnd
	s.SP = DefaultSP
	return &Config{
		Identify: IdentifyConfig{
			Type:  string(model.KindFOPDT),
			Steps: identify.DefaultStepOptions(),
		},
		Tuning:     TuningConfig{Rule: string(DefaultRule)},
		Simulation: s,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes yaml over the defaults and normalises enumerated fields.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	// a model given in the file replaces the default one instead of
	// merging keys into it
	var probe struct {
		Simulation struct {
			Model *model.Record `yaml:"model"`
		} `yaml:"simulation"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, err
	}
	if probe.Simulation.Model != nil {
		cfg.Simulation.Model = *probe.Simulation.Model
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Normalize canonicalises names written in any case and validates the
// result.
func (c *Config) Normalize() error {
	p := &c.Simulation.Controller
	var err error
	if p.Form, err = control.ParseForm(string(p.Form)); err != nil {
		return err
	}
	if p.DerivOn, err = control.ParseDerivativeOn(string(p.DerivOn)); err != nil {
		return err
	}
	if p.Vendor, err = control.ParseVendor(string(p.Vendor)); err != nil {
		return err
	}

	kind, err := model.ParseKind(c.Identify.Type)
	if err != nil {
		return err
	}
	c.Identify.Type = string(kind)

	rule, err := tuning.ParseRule(c.Tuning.Rule)
	if err != nil {
		return err
	}
	c.Tuning.Rule = string(rule)

	if err := c.Simulation.Validate(); err != nil {
		return fmt.Errorf("simulation: %w", err)
	}
	return nil
}

// Model returns the simulated process model.
func (c *Config) Model() (model.Model, error) {
	return model.FromRecord(c.Simulation.Model)
}

func (c *Config) Rule() tuning.Rule {
	return tuning.Rule(c.Tuning.Rule)
}

// GetControllerParams returns the flat controller record.
func (c *Config) GetControllerParams() map[string]float64 {
	p := c.Simulation.Controller
	return map[string]float64{
		"Kp":   p.Kp,
		"Ti":   p.Ti,
		"Td":   p.Td,
		"N":    p.N,
		"beta": p.Beta,
		"umin": p.UMin,
		"umax": p.UMax,
	}
}
