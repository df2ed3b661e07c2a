// Package control implements the vendor-flavoured PID controllers found on
// industrial DCS platforms.
//
// Configuration and running memory are separate values:
//
//   - [Params]: gains, limits, form and vendor. Never mutated by a step.
//   - [State]: integral, derivative filter and previous samples.
//
// The pure form threads state explicitly:
//
//	p := control.Tuned(2.0, 10.0, 0.5)
//	s := p.Reset(0, 0)
//	s, u := p.Step(s, sp, pv, dt)
//
// [Controller] wraps both for callers that prefer a mutable object, and
// implements [dynamo.Configurable] for live tuning.
package control
