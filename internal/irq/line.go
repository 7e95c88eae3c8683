package irq

import "fmt"

// Line identifies one of the fixed interrupt sources.
type Line uint8

const (
	// LineRadio is the radio peripheral interrupt.
	LineRadio Line = iota
	// LineRTC0 is the real-time counter interrupt.
	LineRTC0
	// LineTimer0 is the general-purpose timer interrupt.
	LineTimer0
	// LineClock is the power/clock peripheral interrupt.
	LineClock

	// NumLines is the number of interrupt lines.
	NumLines
)

// HighPriority is the interrupt priority of every line. It is reserved for
// the core and for code running inside a radio timeslot.
const HighPriority = 0

// Lines lists every line in vector order.
var Lines = []Line{LineRadio, LineRTC0, LineTimer0, LineClock}

var lineNames = [NumLines]string{
	LineRadio:  "radio",
	LineRTC0:   "rtc0",
	LineTimer0: "timer0",
	LineClock:  "clock",
}

// Valid reports whether l is one of the fixed lines.
func (l Line) Valid() bool {
	return l < NumLines
}

func (l Line) String() string {
	if l.Valid() {
		return lineNames[l]
	}
	return fmt.Sprintf("line(%d)", uint8(l))
}

// ParseLine maps a line name back to its Line.
func ParseLine(name string) (Line, error) {
	for _, l := range Lines {
		if lineNames[l] == name {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown interrupt line %q", name)
}

// Signal is the number of the software-pendable interrupt used to request
// low-priority processing.
type Signal uint16

// Pender pends a software interrupt. Pend must not block.
type Pender interface {
	Pend(sig Signal)
}

// PenderFunc adapts a function to the Pender interface.
type PenderFunc func(sig Signal)

// Pend calls f(sig).
func (f PenderFunc) Pend(sig Signal) {
	f(sig)
}
