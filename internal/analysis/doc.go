// Package analysis diagnoses recorded loop behaviour.
//
//   - [Spectrum]: one-sided power spectrum of a sampled signal
//   - [DetectOscillation]: sustained oscillation in the control error
//   - [PVOP]: the PV against OP portrait used to spot valve stiction
//
// # Oscillation Detection
//
// A loop is reported as oscillating when its error keeps crossing zero and
// most of its power sits at one frequency:
//
//	osc, err := analysis.DetectOscillation(tr.T, errs, analysis.DefaultOscillationOptions())
//	if err == nil && osc.Oscillating {
//	    // retune, or check the valve
//	}
package analysis
