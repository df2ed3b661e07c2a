package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/san-kum/pidtune/internal/dynamo"
)

// Record is the flat, model-tagged form exchanged with collaborators:
// {"type": "FOPDT", "K": 2, "tau": 10, "theta": 2, ...}. Extra keys such as
// fit diagnostics are carried along untouched.
type Record struct {
	Type   string             `yaml:"type"`
	Params map[string]float64 `yaml:",inline"`
}

func (r Record) Get(key string) (float64, bool) {
	v, ok := r.Params[key]
	return v, ok
}

func (r Record) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(r.Params)+1)
	for k, v := range r.Params {
		flat[k] = v
	}
	flat["type"] = r.Type
	return json.Marshal(flat)
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	r.Params = make(map[string]float64, len(flat))
	for k, raw := range flat {
		if k == "type" {
			if err := json.Unmarshal(raw, &r.Type); err != nil {
				return fmt.Errorf("%w: type: %v", dynamo.ErrInvalidModel, err)
			}
			continue
		}
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			// non-numeric extras are not part of the model
			continue
		}
		r.Params[k] = v
	}
	return nil
}

func (m FOPDT) Record() Record {
	return Record{Type: string(KindFOPDT), Params: map[string]float64{"K": m.K, "tau": m.Tau, "theta": m.Theta}}
}

func (m SOPDT) Record() Record {
	return Record{Type: string(KindSOPDT), Params: map[string]float64{"K": m.K, "tau1": m.Tau1, "tau2": m.Tau2, "theta": m.Theta}}
}

func (m Integrator) Record() Record {
	return Record{Type: string(KindIntegrator), Params: map[string]float64{
		"K": m.K, "Ki": m.Ki, "leak": m.Leak, "y_ss": m.YSS, "theta": m.Theta,
	}}
}

// ParseKind accepts the type tags used by the different front ends.
func ParseKind(tag string) (Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(tag)) {
	case "FOPDT":
		return KindFOPDT, nil
	case "SOPDT":
		return KindSOPDT, nil
	case "INTEGRATING", "INTEGRATOR", "INTEGRATORLEAK":
		return KindIntegrator, nil
	}
	return "", fmt.Errorf("%w: unknown model type %q", dynamo.ErrInvalidModel, tag)
}

// FromRecord builds and validates a model from its record. Missing required
// fields and unknown tags yield ErrInvalidModel; out-of-range values yield
// ErrInvalidParameter.
func FromRecord(r Record) (Model, error) {
	kind, err := ParseKind(r.Type)
	if err != nil {
		return nil, err
	}

	var m Model
	switch kind {
	case KindFOPDT:
		v, err := requireKeys(r, kind, "K", "tau", "theta")
		if err != nil {
			return nil, err
		}
		m = FOPDT{K: v[0], Tau: v[1], Theta: v[2]}
	case KindSOPDT:
		if _, ok := r.Get("tau1"); !ok {
			// single-tau records name the dominant pole "tau"
			if tau, ok := r.Get("tau"); ok {
				r = r.with("tau1", tau)
			}
		}
		v, err := requireKeys(r, kind, "K", "tau1", "tau2", "theta")
		if err != nil {
			return nil, err
		}
		m = SOPDT{K: v[0], Tau1: v[1], Tau2: v[2], Theta: v[3]}.Ordered()
	case KindIntegrator:
		k, hasK := r.Get("K")
		ki, hasKi := r.Get("Ki")
		if !hasK && !hasKi {
			return nil, fmt.Errorf("%w: %s record needs K or Ki", dynamo.ErrInvalidModel, kind)
		}
		if !hasK {
			k = 1
		}
		if !hasKi {
			ki = 1
		}
		m = Integrator{K: k, Ki: ki, Leak: r.Params["leak"], YSS: r.Params["y_ss"], Theta: r.Params["theta"]}
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (r Record) with(key string, v float64) Record {
	params := make(map[string]float64, len(r.Params)+1)
	for k, val := range r.Params {
		params[k] = val
	}
	params[key] = v
	return Record{Type: r.Type, Params: params}
}

func requireKeys(r Record, kind Kind, keys ...string) ([]float64, error) {
	out := make([]float64, len(keys))
	for i, k := range keys {
		v, ok := r.Get(k)
		if !ok {
			return nil, fmt.Errorf("%w: %s record missing %q", dynamo.ErrInvalidModel, kind, k)
		}
		out[i] = v
	}
	return out, nil
}
