package sim

import (
	"context"

	"github.com/san-kum/pidtune/internal/metrics"
)

// Trajectory holds time-aligned arrays of a run.
type Trajectory struct {
	T        []float64 `json:"t"`
	SP       []float64 `json:"sp"`
	Y        []float64 `json:"y"`
	U        []float64 `json:"u"`
	D        []float64 `json:"d"`
	Position []float64 `json:"valve_position"`
	Flow     []float64 `json:"valve_output"`
}

func newTrajectory(n int) Trajectory {
	return Trajectory{
		T:        make([]float64, 0, n),
		SP:       make([]float64, 0, n),
		Y:        make([]float64, 0, n),
		U:        make([]float64, 0, n),
		D:        make([]float64, 0, n),
		Position: make([]float64, 0, n),
		Flow:     make([]float64, 0, n),
	}
}

func (tr *Trajectory) append(tk Tick) {
	tr.T = append(tr.T, tk.T)
	tr.SP = append(tr.SP, tk.SP)
	tr.Y = append(tr.Y, tk.Y)
	tr.U = append(tr.U, tk.U)
	tr.D = append(tr.D, tk.D)
	tr.Position = append(tr.Position, tk.Position)
	tr.Flow = append(tr.Flow, tk.Flow)
}

func (tr *Trajectory) Len() int { return len(tr.T) }

// Samples converts the trajectory for metric evaluation.
func (tr *Trajectory) Samples() []metrics.Sample {
	out := make([]metrics.Sample, len(tr.T))
	for i := range tr.T {
		out[i] = metrics.Sample{T: tr.T[i], SP: tr.SP[i], Y: tr.Y[i], U: tr.U[i]}
	}
	return out
}

type Result struct {
	Trajectory Trajectory         `json:"trajectory"`
	Metrics    map[string]float64 `json:"metrics"`
}

// Run simulates the loop over [0, TEnd] in steps of Dt. Each call builds
// its own controller, valve, delay line and plant, so runs never share
// state. With NoiseStd = 0 the result depends only on cfg.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	l, err := newLoop(cfg)
	if err != nil {
		return nil, err
	}

	steps := cfg.Steps()
	result := &Result{Trajectory: newTrajectory(steps)}
	for i := 0; i < steps; i++ {
		if i%1024 == 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			default:
			}
		}
		result.Trajectory.append(l.tick())
	}

	result.Metrics = metrics.Evaluate(metrics.Standard(), result.Trajectory.Samples())
	return result, nil
}
