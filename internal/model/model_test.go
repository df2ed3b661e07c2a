package model

import (
	"encoding/json"
	"testing"

	"github.com/san-kum/pidtune/internal/dynamo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		model   Model
		wantErr bool
	}{
		{"fopdt ok", FOPDT{K: 2, Tau: 10, Theta: 2}, false},
		{"fopdt zero tau", FOPDT{K: 2, Tau: 0, Theta: 2}, true},
		{"fopdt negative theta", FOPDT{K: 2, Tau: 1, Theta: -0.1}, true},
		{"sopdt ok", SOPDT{K: 1, Tau1: 5, Tau2: 2, Theta: 0}, false},
		{"sopdt zero tau2", SOPDT{K: 1, Tau1: 5, Tau2: 0, Theta: 0}, true},
		{"integrator ok", Integrator{K: 1, Ki: 0.2}, false},
		{"integrator negative leak", Integrator{K: 1, Ki: 0.2, Leak: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.model.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, dynamo.ErrInvalidParameter)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFromRecordRoundTrip(t *testing.T) {
	models := []Model{
		FOPDT{K: 2, Tau: 10, Theta: 2},
		SOPDT{K: -1.5, Tau1: 8, Tau2: 3, Theta: 1},
		Integrator{K: 0.5, Ki: 0.2, Leak: 0.01, YSS: 3, Theta: 4},
	}
	for _, m := range models {
		got, err := FromRecord(m.Record())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
}

func TestFromRecordErrors(t *testing.T) {
	// GIVEN
	missing := Record{Type: "FOPDT", Params: map[string]float64{"K": 1, "tau": 3}}
	unknown := Record{Type: "ARX", Params: map[string]float64{"K": 1}}
	badTau := Record{Type: "fopdt", Params: map[string]float64{"K": 1, "tau": -3, "theta": 0}}

	// WHEN
	_, errMissing := FromRecord(missing)
	_, errUnknown := FromRecord(unknown)
	_, errTau := FromRecord(badTau)

	// THEN
	assert.ErrorIs(t, errMissing, dynamo.ErrInvalidModel)
	assert.ErrorIs(t, errUnknown, dynamo.ErrInvalidModel)
	assert.ErrorIs(t, errTau, dynamo.ErrInvalidParameter)
}

func TestFromRecordAliases(t *testing.T) {
	m, err := FromRecord(Record{Type: "SOPDT", Params: map[string]float64{"K": 1, "tau": 2, "tau2": 6, "theta": 0}})
	require.NoError(t, err)
	assert.Equal(t, SOPDT{K: 1, Tau1: 6, Tau2: 2, Theta: 0}, m, "poles are reordered so tau1 >= tau2")

	m, err = FromRecord(Record{Type: "Integrator", Params: map[string]float64{"Ki": 0.3, "theta": 1}})
	require.NoError(t, err)
	assert.InDelta(t, 0.3, m.(Integrator).Slope(), 1e-12)
}

func TestRecordJSON(t *testing.T) {
	data, err := json.Marshal(FOPDT{K: 2, Tau: 10, Theta: 2}.Record())
	require.NoError(t, err)

	var flat map[string]any
	require.NoError(t, json.Unmarshal(data, &flat))
	assert.Equal(t, "FOPDT", flat["type"])
	assert.Equal(t, 10.0, flat["tau"])

	var back Record
	require.NoError(t, json.Unmarshal([]byte(`{"type":"FOPDT","K":2,"tau":10,"theta":2,"note":"from step 3"}`), &back))
	assert.Equal(t, "FOPDT", back.Type)
	assert.Len(t, back.Params, 3)
}

func TestRecordYAML(t *testing.T) {
	var r Record
	require.NoError(t, yaml.Unmarshal([]byte("type: SOPDT\nK: 1\ntau1: 4\ntau2: 2\ntheta: 0.5\n"), &r))

	m, err := FromRecord(r)
	require.NoError(t, err)
	assert.Equal(t, KindSOPDT, m.Kind())
	assert.Equal(t, 0.5, m.DeadTime())
}

func TestScaleGain(t *testing.T) {
	assert.Equal(t, FOPDT{K: 200, Tau: 10, Theta: 2}, ScaleGain(FOPDT{K: 2, Tau: 10, Theta: 2}, 100))
	assert.Equal(t, 0.5, ScaleGain(SOPDT{K: 50, Tau1: 2, Tau2: 1}, 0.01).(SOPDT).K)
	assert.Equal(t, 3.0, ScaleGain(Integrator{K: 1, Ki: 2}, 3).(Integrator).Slope()/2)
}
