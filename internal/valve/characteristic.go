package valve

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/pidtune/internal/signal"
)

// Characteristic is the inherent flow curve of a valve trim.
type Characteristic string

const (
	Linear          Characteristic = "Linear"
	EqualPercentage Characteristic = "Equal Percentage"
	QuickOpening    Characteristic = "Quick Opening"
)

const DefaultRangeability = 50.0

// ParseCharacteristic accepts the display names as well as short forms such
// as "linear", "equal-percentage" or "quick".
func ParseCharacteristic(name string) (Characteristic, error) {
	key := strings.NewReplacer(" ", "", "-", "", "_", "").Replace(strings.ToLower(name))
	switch key {
	case "", "linear", "lin":
		return Linear, nil
	case "equalpercentage", "equalpercent", "eqp", "ep":
		return EqualPercentage, nil
	case "quickopening", "quick", "qo":
		return QuickOpening, nil
	}
	return "", fmt.Errorf("unknown valve characteristic: %s", name)
}

// Flow maps a commanded opening in percent to flow in percent. R is the
// rangeability of an equal-percentage trim; values <= 1 fall back to the default.
func (c Characteristic) Flow(opPercent, r float64) float64 {
	x := signal.Clamp(opPercent/100, 0, 1)
	var y float64
	switch c {
	case EqualPercentage:
		if r <= 1 {
			r = DefaultRangeability
		}
		y = (math.Pow(r, x) - 1) / (r - 1)
	case QuickOpening:
		y = math.Sqrt(x)
	default:
		y = x
	}
	return 100 * y
}
