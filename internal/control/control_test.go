package control

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/pidtune/internal/dynamo"
)

func TestPIOutputGrowsWithConstantError(t *testing.T) {
	// GIVEN
	p := Tuned(1, 5, 0)
	s := p.Reset(0, 0)

	// WHEN
	var outputs []float64
	for i := 0; i < 5; i++ {
		var u float64
		s, u = p.Step(s, 1, 0, 1)
		outputs = append(outputs, u)
	}

	// THEN
	want := []float64{1.2, 1.4, 1.6, 1.8, 2.0}
	for i := range want {
		assert.InDelta(t, want[i], outputs[i], 1e-9)
	}
}

func TestStepDoesNotMutateParams(t *testing.T) {
	p := Tuned(2, 3, 1)
	before := p
	s := p.Reset(0, 0)
	for i := 0; i < 10; i++ {
		s, _ = p.Step(s, 5, float64(i), 0.1)
	}
	assert.Equal(t, before, p)
}

func TestAntiWindupKeepsIntegralBounded(t *testing.T) {
	// GIVEN
	p := Tuned(1, 2, 0)
	p.UMax = 10
	s := p.Reset(0, 0)

	// WHEN
	var u float64
	var integrals []float64
	for i := 0; i < 500; i++ {
		s, u = p.Step(s, 100, 0, 0.5)
		integrals = append(integrals, s.I)
	}

	// THEN
	assert.Equal(t, 10.0, u)
	last := integrals[len(integrals)-1]
	assert.InDelta(t, integrals[len(integrals)-2], last, 1e-9)
	assert.Less(t, math.Abs(last), 200.0)
}

func TestOutputRespectsLimits(t *testing.T) {
	for _, vendor := range []VendorKind{ISA, Emerson, Honeywell, Yokogawa} {
		p := Tuned(50, 1, 0.5)
		p.Vendor = vendor
		p.UMin, p.UMax = -5, 5
		s := p.Reset(0, 0)
		for i := 0; i < 50; i++ {
			var u float64
			sp := 10.0
			if i%10 < 5 {
				sp = -10
			}
			s, u = p.Step(s, sp, 0, 0.1)
			assert.GreaterOrEqual(t, u, -5.0, "vendor %s", vendor)
			assert.LessOrEqual(t, u, 5.0, "vendor %s", vendor)
		}
	}
}

func TestProportionalOnlyHasNoIntegral(t *testing.T) {
	p := Tuned(2, 0, 0)
	require.Equal(t, FormP, p.Form)
	s := p.Reset(0, 0)
	for i := 0; i < 5; i++ {
		var u float64
		s, u = p.Step(s, 3, 1, 1)
		assert.InDelta(t, 4.0, u, 1e-12)
	}
	assert.Zero(t, s.I)
}

func TestSetpointWeighting(t *testing.T) {
	p := Tuned(1, 0, 0)
	p.Beta = 0.5
	s := p.Reset(0, 0)
	s, u := p.Step(s, 10, 2, 1)
	assert.InDelta(t, 3.0, u, 1e-12)
	assert.InDelta(t, 8.0, s.Last.Error, 1e-12)
}

func TestDerivativeOnPVIgnoresSetpointStep(t *testing.T) {
	p := Tuned(1, 0, 2)
	p.Form = FormPID
	s := p.Reset(0, 0)
	s, _ = p.Step(s, 0, 0, 0.1)
	s, _ = p.Step(s, 5, 0, 0.1)
	assert.Zero(t, s.Last.D)

	p.DerivOn = OnError
	s = p.Reset(0, 0)
	s, _ = p.Step(s, 0, 0, 0.1)
	s, _ = p.Step(s, 5, 0, 0.1)
	assert.Greater(t, s.Last.D, 0.0)
}

func TestDerivativeFilter(t *testing.T) {
	// Td=1, N=10, dt=0.1: a = 1/(1+1) = 0.5. A unit PV step has rate 10,
	// so the first tick gives (1-a)*Kp*Td*10 = 5 for every vendor.
	tests := []struct {
		name   string
		params Params
	}{
		{"isa", Tuned(1, 0, 1)},
		{"emerson", NewEmerson(1, 0, 1, false)},
		{"honeywell", NewHoneywell(1, 0, 1, 0)},
		{"yokogawa", NewYokogawa(1, 0, 1, false)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.params
			s := p.Reset(0, 0)
			s, _ = p.Step(s, 0, 0, 0.1)
			s, _ = p.Step(s, 0, 1, 0.1)
			assert.InDelta(t, -5.0, s.Last.D, 1e-9)
			s, _ = p.Step(s, 0, 1, 0.1)
			assert.InDelta(t, -2.5, s.Last.D, 1e-9)
		})
	}
}

func TestDerivativeSettlesAtIdealGain(t *testing.T) {
	// GIVEN a PV ramping at 2 units per second
	p := Tuned(3, 0, 0.5)
	s := p.Reset(0, 0)

	// WHEN the filter has had many time constants to settle
	for k := 0; k <= 200; k++ {
		s, _ = p.Step(s, 0, 2*float64(k)*0.1, 0.1)
	}

	// THEN D equals -Kp*Td*rate regardless of N
	assert.InDelta(t, -3*0.5*2, s.Last.D, 1e-9)
}

func TestInputFiltersStartAtFirstSample(t *testing.T) {
	p := Tuned(1, 0, 0)
	p.TauSP, p.TauPV = 5, 5
	s := p.Reset(0, 0)
	s, u := p.Step(s, 10, 4, 0.1)
	assert.InDelta(t, 6.0, u, 1e-12)

	s, u = p.Step(s, 20, 4, 0.1)
	assert.Greater(t, u, 6.0)
	assert.Less(t, u, 16.0)
}

func TestResetRestoresIntegral(t *testing.T) {
	c, err := New(Tuned(1, 1, 0))
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		c.Step(1, 0, 1)
	}
	require.NotZero(t, c.State().I)

	c.Reset(30, 25)
	assert.Equal(t, 25.0, c.State().I)
	assert.Equal(t, 30.0, c.State().U)
	assert.False(t, c.State().Primed)
	assert.InDelta(t, 25.0, c.Step(0, 0, 1), 1e-12)
}

func TestEmersonErrorSquared(t *testing.T) {
	// GIVEN
	p := NewEmerson(1, 1, 0, true)
	p.UMin = -100
	s := p.Reset(0, 0)

	// WHEN
	s, _ = p.Step(s, 4, 0, 1)

	// THEN error 4 adds 4*4*0.1 to the integral
	assert.InDelta(t, 1.6, s.I, 1e-12)

	s = p.Reset(0, 0)
	s, _ = p.Step(s, 0, 4, 1)
	assert.InDelta(t, -1.6, s.I, 1e-12)
}

func TestHoneywellGap(t *testing.T) {
	p := NewHoneywell(2, 1, 0, 0.5)
	p.UMin = -100
	s := p.Reset(0, 0)

	s, u := p.Step(s, 1, 0.8, 1)
	assert.Zero(t, u)
	assert.Zero(t, s.I)

	s, u = p.Step(s, 1, 0, 1)
	assert.InDelta(t, 2.0+2.0, u, 1e-12)
}

func TestYokogawaVelocityIsBumpless(t *testing.T) {
	// GIVEN a controller reset to the current output
	p := NewYokogawa(1, 0, 0, true)
	s := p.Reset(40, 0)

	// WHEN the loop sits at setpoint
	s, u := p.Step(s, 50, 50, 1)

	// THEN the output does not move
	assert.Equal(t, 40.0, u)

	// AND a setpoint step moves it by Kp times the change
	s, u = p.Step(s, 55, 50, 1)
	assert.InDelta(t, 45.0, u, 1e-12)
	_, u = p.Step(s, 55, 50, 1)
	assert.InDelta(t, 45.0, u, 1e-12)
}

func TestYokogawaVelocityIntegrates(t *testing.T) {
	p := NewYokogawa(1, 2, 0, true)
	s := p.Reset(10, 0)
	s, u1 := p.Step(s, 2, 0, 1)
	_, u2 := p.Step(s, 2, 0, 1)
	assert.InDelta(t, 11.0, u1, 1e-12)
	assert.InDelta(t, 12.0, u2, 1e-12)
}

func TestYokogawaPositionMatchesISA(t *testing.T) {
	y := NewYokogawa(1.5, 4, 0.3, false)
	i := y
	i.Vendor = ISA
	sy, si := y.Reset(0, 0), i.Reset(0, 0)
	for k := 0; k < 30; k++ {
		pv := math.Sin(float64(k) / 5)
		var uy, ui float64
		sy, uy = y.Step(sy, 1, pv, 0.2)
		si, ui = i.Step(si, 1, pv, 0.2)
		assert.Equal(t, ui, uy)
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, DefaultParams().Validate())

	cases := []struct {
		name   string
		mutate func(p *Params)
		want   error
	}{
		{"negative Ti", func(p *Params) { p.Ti = -1 }, dynamo.ErrInvalidParameter},
		{"zero N", func(p *Params) { p.N = 0 }, dynamo.ErrInvalidParameter},
		{"beta above 2", func(p *Params) { p.Beta = 2.5 }, dynamo.ErrInvalidParameter},
		{"inverted limits", func(p *Params) { p.UMin = 100; p.UMax = 0 }, dynamo.ErrInvalidParameter},
		{"unknown vendor", func(p *Params) { p.Vendor = "ABB" }, dynamo.ErrUnknownVendor},
		{"nan gain", func(p *Params) { p.Kp = math.NaN() }, dynamo.ErrInvalidParameter},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultParams()
			tc.mutate(&p)
			err := p.Validate()
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestParseVendor(t *testing.T) {
	v, err := ParseVendor("deltav")
	require.NoError(t, err)
	assert.Equal(t, Emerson, v)

	_, err = ParseVendor("siemens")
	assert.ErrorIs(t, err, dynamo.ErrUnknownVendor)
}

func TestControllerSetParam(t *testing.T) {
	c, err := New(DefaultParams())
	require.NoError(t, err)

	require.NoError(t, c.SetParam("Kp", 3))
	require.NoError(t, c.SetParam("alpha", 0.2))
	assert.Equal(t, 3.0, c.GetParams()["Kp"])
	assert.InDelta(t, 5.0, c.GetParams()["N"], 1e-12)

	assert.Error(t, c.SetParam("bogus", 1))
	assert.Error(t, c.SetParam("umax", -1))
	assert.Equal(t, 100.0, c.Params().UMax)
}
