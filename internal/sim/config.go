package sim

import (
	"fmt"
	"math"

	"github.com/san-kum/pidtune/internal/control"
	"github.com/san-kum/pidtune/internal/dynamo"
	"github.com/san-kum/pidtune/internal/model"
	"github.com/san-kum/pidtune/internal/valve"
)

type ValveConfig struct {
	Characteristic     string  `json:"characteristic" yaml:"characteristic"`
	Rangeability       float64 `json:"rangeability" yaml:"rangeability"`
	valve.Nonlinearity `yaml:",inline"`
}

// Breakpoint switches the disturbance to D from time T onwards.
type Breakpoint struct {
	T float64 `json:"t" yaml:"t"`
	D float64 `json:"d" yaml:"d"`
}

// DisturbanceConfig is either a single step of Step at time At, or a
// piecewise-constant Schedule. A non-empty schedule wins.
type DisturbanceConfig struct {
	Step     float64      `json:"step" yaml:"step"`
	At       float64      `json:"at" yaml:"at"`
	Schedule []Breakpoint `json:"schedule,omitempty" yaml:"schedule,omitempty"`
}

// Config describes one closed-loop run.
type Config struct {
	Model      model.Record   `json:"model" yaml:"model"`
	Controller control.Params `json:"controller" yaml:"controller"`
	Valve      ValveConfig    `json:"valve" yaml:"valve"`

	Dt   float64 `json:"dt" yaml:"dt"`
	TEnd float64 `json:"t_end" yaml:"t_end"`
	SP   float64 `json:"sp" yaml:"sp"`
	U0   float64 `json:"u0" yaml:"u0"`
	Y0   float64 `json:"y0" yaml:"y0"`

	// DeadTime is transport delay added to the model's own dead time.
	DeadTime    float64           `json:"deadtime" yaml:"deadtime"`
	Disturbance DisturbanceConfig `json:"disturbance" yaml:"disturbance"`
	NoiseStd    float64           `json:"noise_std" yaml:"noise_std"`
	Seed        int64             `json:"seed" yaml:"seed"`

	// Integrator overrides the plant's default stepping method.
	Integrator string `json:"integrator,omitempty" yaml:"integrator,omitempty"`

	// DisturbanceFunc, when set, replaces Disturbance.
	DisturbanceFunc func(t float64) float64 `json:"-" yaml:"-"`
}

func DefaultConfig() Config {
	return Config{
		Model:      model.FOPDT{K: 1, Tau: 10, Theta: 2}.Record(),
		Controller: control.DefaultParams(),
		Valve: ValveConfig{
			Characteristic: string(valve.Linear),
			Rangeability:   valve.DefaultRangeability,
		},
		Dt:          0.1,
		TEnd:        100,
		SP:          1,
		Disturbance: DisturbanceConfig{At: 50},
	}
}

// Validate rejects configurations that cannot be simulated. It runs before
// any instance is built so a bad run fails before its first tick.
func (c Config) Validate() error {
	if !(c.Dt > 0) || math.IsInf(c.Dt, 0) {
		return fmt.Errorf("%w: dt must be positive, got %g", dynamo.ErrInvalidParameter, c.Dt)
	}
	if c.TEnd < 0 || math.IsNaN(c.TEnd) {
		return fmt.Errorf("%w: t_end must be non-negative, got %g", dynamo.ErrInvalidParameter, c.TEnd)
	}
	if c.DeadTime < 0 {
		return fmt.Errorf("%w: deadtime must be non-negative, got %g", dynamo.ErrInvalidParameter, c.DeadTime)
	}
	if c.NoiseStd < 0 {
		return fmt.Errorf("%w: noise_std must be non-negative, got %g", dynamo.ErrInvalidParameter, c.NoiseStd)
	}
	if _, err := model.FromRecord(c.Model); err != nil {
		return err
	}
	if _, err := valve.ParseCharacteristic(c.Valve.Characteristic); err != nil {
		return fmt.Errorf("%w: %v", dynamo.ErrInvalidParameter, err)
	}
	return c.Controller.Validate()
}

// Steps is the number of ticks of a batch run, including t = 0.
func (c Config) Steps() int {
	return int(c.TEnd/c.Dt) + 1
}
