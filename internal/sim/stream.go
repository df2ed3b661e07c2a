package sim

import (
	"context"
	"iter"
	"time"
)

// Live is an open-ended loop driven by its consumer.
type Live struct {
	l *loop
}

func NewLive(cfg Config) (*Live, error) {
	l, err := newLoop(cfg)
	if err != nil {
		return nil, err
	}
	return &Live{l: l}, nil
}

// Next advances one tick.
func (lv *Live) Next() Tick { return lv.l.tick() }

func (lv *Live) Setpoint() float64 { return lv.l.cfg.SP }

func (lv *Live) SetSetpoint(sp float64) { lv.l.setpoint(sp) }

// Reset returns every component to its initial condition.
func (lv *Live) Reset() { lv.l.reset() }

func (lv *Live) Config() Config { return lv.l.cfg }

// Ticks yields ticks forever, pacing them to dt/speed of wall-clock time.
// A speed of zero runs uncapped. The sequence ends when the consumer stops
// or ctx is done.
func (lv *Live) Ticks(ctx context.Context, speed float64) iter.Seq[Tick] {
	return func(yield func(Tick) bool) {
		start := time.Now()
		for n := 1; ; n++ {
			if ctx.Err() != nil {
				return
			}
			if !yield(lv.Next()) {
				return
			}
			if speed <= 0 {
				continue
			}
			due := start.Add(time.Duration(float64(n) * lv.l.cfg.Dt / speed * float64(time.Second)))
			wait := time.Until(due)
			if wait <= 0 {
				continue
			}
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}
}

// Stream is NewLive followed by Ticks. Configuration errors surface here,
// before the first tick.
func Stream(ctx context.Context, cfg Config, speed float64) (iter.Seq[Tick], error) {
	lv, err := NewLive(cfg)
	if err != nil {
		return nil, err
	}
	return lv.Ticks(ctx, speed), nil
}
