package sim

import (
	"sync/atomic"

	"github.com/roach88/mpsl/internal/clock"
)

// Thermometer is a settable die temperature in 0.25 °C units.
type Thermometer struct {
	v atomic.Int32
}

var _ clock.Thermometer = (*Thermometer)(nil)

// NewThermometer returns a thermometer reading temp.
func NewThermometer(temp int32) *Thermometer {
	t := &Thermometer{}
	t.v.Store(temp)
	return t
}

// Set changes the reading.
func (t *Thermometer) Set(temp int32) {
	t.v.Store(temp)
}

// Temperature returns the current reading.
func (t *Thermometer) Temperature() int32 {
	return t.v.Load()
}
