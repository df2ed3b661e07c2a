package sim

import (
	"math"
	"math/rand"

	"github.com/san-kum/pidtune/internal/control"
	"github.com/san-kum/pidtune/internal/integrators"
	"github.com/san-kum/pidtune/internal/model"
	"github.com/san-kum/pidtune/internal/process"
	"github.com/san-kum/pidtune/internal/signal"
	"github.com/san-kum/pidtune/internal/valve"
)

// Tick is one sample of a closed loop. Position is the effective valve
// stroke and Flow the characterised valve output, both in percent.
type Tick struct {
	K        int           `json:"k"`
	T        float64       `json:"t"`
	SP       float64       `json:"sp"`
	Y        float64       `json:"y"`
	U        float64       `json:"u"`
	D        float64       `json:"d"`
	Position float64       `json:"valve_position"`
	Flow     float64       `json:"valve_output"`
	Terms    control.Terms `json:"terms"`
}

// loop owns one private set of controller, valve, delay line and plant.
type loop struct {
	cfg   Config
	pid   control.Params
	state control.State
	valve *valve.Valve
	delay *signal.DeadTime
	plant *process.Plant
	dist  Disturbance
	rng   *rand.Rand
	yPrev float64
	k     int
}

func newLoop(cfg Config) (*loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m, err := model.FromRecord(cfg.Model)
	if err != nil {
		return nil, err
	}

	var opts []process.Option
	if cfg.Integrator != "" {
		integ, err := integrators.ByName(cfg.Integrator)
		if err != nil {
			return nil, err
		}
		opts = append(opts, process.WithIntegrator(integ))
	}
	plant, err := process.New(m, opts...)
	if err != nil {
		return nil, err
	}

	ch, _ := valve.ParseCharacteristic(cfg.Valve.Characteristic)
	v := valve.New(ch, cfg.Valve.Rangeability, cfg.Valve.Nonlinearity)

	l := &loop{
		cfg:   cfg,
		pid:   cfg.Controller,
		valve: v,
		delay: signal.DeadTimeFor(m.DeadTime()+cfg.DeadTime, cfg.Dt),
		plant: plant,
		dist:  cfg.disturbance(),
		rng:   rand.New(rand.NewSource(cfg.Seed)),
	}
	l.reset()
	return l, nil
}

func (l *loop) reset() {
	l.plant.Reset(l.cfg.Y0)
	l.state = l.pid.Reset(l.cfg.U0, 0)
	l.valve.Reset(l.cfg.U0)
	l.delay.Reset(0)
	l.yPrev = l.cfg.Y0
	l.k = 0
}

// tick runs the controller on the previous measurement, then the valve,
// the delay line and the plant, in that order.
func (l *loop) tick() Tick {
	t := float64(l.k) * l.cfg.Dt
	sp := l.cfg.SP
	d := l.dist(t)

	var u float64
	l.state, u = l.pid.Step(l.state, sp, l.yPrev, l.cfg.Dt)
	pos, flow := l.valve.Apply(u)

	delayed := l.delay.Push(flow / 100)
	y := l.plant.Step(delayed, d, l.cfg.Dt)
	if l.cfg.NoiseStd > 0 {
		y += l.rng.NormFloat64() * l.cfg.NoiseStd
	}

	tick := Tick{
		K:        l.k,
		T:        t,
		SP:       sp,
		Y:        y,
		U:        u,
		D:        d,
		Position: pos,
		Flow:     flow,
		Terms:    l.state.Last,
	}
	l.yPrev = y
	l.k++
	return tick
}

// setpoint changes the target for subsequent ticks.
func (l *loop) setpoint(sp float64) {
	if !math.IsNaN(sp) {
		l.cfg.SP = sp
	}
}
