package valve

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCharacteristicFlow(t *testing.T) {
	assert.InDelta(t, 40.0, Linear.Flow(40, 0), 1e-12)
	assert.InDelta(t, 100.0, Linear.Flow(150, 0), 1e-12)
	assert.InDelta(t, 0.0, Linear.Flow(-5, 0), 1e-12)

	assert.InDelta(t, 0.0, EqualPercentage.Flow(0, 50), 1e-12)
	assert.InDelta(t, 100.0, EqualPercentage.Flow(100, 50), 1e-9)
	assert.InDelta(t, 100*(math.Sqrt(50)-1)/49, EqualPercentage.Flow(50, 50), 1e-9)
	assert.InDelta(t, EqualPercentage.Flow(50, DefaultRangeability), EqualPercentage.Flow(50, 0), 1e-12)

	assert.InDelta(t, 50.0, QuickOpening.Flow(25, 0), 1e-12)
}

func TestParseCharacteristic(t *testing.T) {
	for in, want := range map[string]Characteristic{
		"Linear":           Linear,
		"":                 Linear,
		"Equal Percentage": EqualPercentage,
		"equal-percentage": EqualPercentage,
		"quick_opening":    QuickOpening,
	} {
		got, err := ParseCharacteristic(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseCharacteristic("butterfly")
	assert.Error(t, err)
}

func TestDeadbandIdempotence(t *testing.T) {
	for _, deadband := range []float64{0, 0.5, 5, 50} {
		// GIVEN
		a := NewActuator(Nonlinearity{Deadband: deadband})
		a.Reset(30)

		// WHEN
		for i := 0; i < 10; i++ {
			a.Apply(30)
		}

		// THEN
		assert.Equal(t, 30.0, a.Position(), "deadband %v", deadband)
	}
}

func TestDeadbandAbsorbsSmallMoves(t *testing.T) {
	a := NewActuator(Nonlinearity{Deadband: 2})
	a.Reset(50)

	assert.Equal(t, 50.0, a.Apply(51.5))
	assert.Equal(t, 53.0, a.Apply(53))
}

func TestStictionHoldsSmallReversal(t *testing.T) {
	// GIVEN
	a := NewActuator(Nonlinearity{Stiction: 3})
	a.Reset(50)
	require.Equal(t, 55.0, a.Apply(55))

	// WHEN
	stuck := a.Apply(53)
	moved := a.Apply(45)

	// THEN
	assert.Equal(t, 55.0, stuck)
	assert.Equal(t, 45.0, moved)
}

func TestOvershootInDirectionOfTravel(t *testing.T) {
	a := NewActuator(Nonlinearity{Overshoot: 1})
	a.Reset(50)

	assert.Equal(t, 61.0, a.Apply(60))
	assert.Equal(t, 39.0, a.Apply(40))
	assert.Equal(t, 100.0, a.Apply(100), "overshoot is clamped to the stroke")
}

func TestValveChainsActuatorAndCurve(t *testing.T) {
	v := New(QuickOpening, 0, Nonlinearity{})
	v.Reset(0)

	pos, flow := v.Apply(25)
	assert.Equal(t, 25.0, pos)
	assert.InDelta(t, 50.0, flow, 1e-12)
}
