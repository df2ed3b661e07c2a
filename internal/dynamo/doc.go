// Package dynamo provides the shared primitives of the tuner.
//
// The package defines the data contracts that flow between the numerical
// components:
//
//   - [State]: integrated state vector of a process model
//   - [System]: interface for process dynamics (dX/dt = f(X, u, d))
//   - [Integrator]: numerical stepping interface
//   - [Series]: step-test data (t, u, y)
//   - [StepEvent]: a step found in a drive signal
//
// # Errors
//
// Failures are reported through sentinel errors such as [ErrInsufficientData]
// and [ErrInvalidModel]; use errors.Is to test for them. Near-zero
// denominators are guarded numerically and never reported.
//
// # Thread Safety
//
// Nothing in this package holds shared state. Types that carry running state
// elsewhere (controllers, processes, valves) must not be shared between
// concurrent simulations.
package dynamo
