package valve

// Valve chains the actuator with the flow characteristic.
type Valve struct {
	Actuator       *Actuator
	Characteristic Characteristic
	Rangeability   float64
}

func New(c Characteristic, rangeability float64, nl Nonlinearity) *Valve {
	return &Valve{Actuator: NewActuator(nl), Characteristic: c, Rangeability: rangeability}
}

// Apply returns the effective position and the resulting flow, both in percent.
func (v *Valve) Apply(op float64) (position, flow float64) {
	position = v.Actuator.Apply(op)
	return position, v.Characteristic.Flow(position, v.Rangeability)
}

func (v *Valve) Reset(position float64) { v.Actuator.Reset(position) }
