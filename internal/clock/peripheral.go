package clock

import "strings"

// Events is the set of pending clock peripheral events.
type Events uint8

const (
	// EventHFStarted reports the HF crystal oscillator reached running state.
	EventHFStarted Events = 1 << iota
	// EventLFStarted reports the LF clock reached running state.
	EventLFStarted
	// EventCalibrationDone reports the end of an RC calibration.
	EventCalibrationDone
)

// Has reports whether every event in e2 is set in e.
func (e Events) Has(e2 Events) bool {
	return e&e2 == e2
}

// String lists the set events, e.g. "hf_started|cal_done".
func (e Events) String() string {
	if e == 0 {
		return "none"
	}
	var parts []string
	if e.Has(EventHFStarted) {
		parts = append(parts, "hf_started")
	}
	if e.Has(EventLFStarted) {
		parts = append(parts, "lf_started")
	}
	if e.Has(EventCalibrationDone) {
		parts = append(parts, "cal_done")
	}
	return strings.Join(parts, "|")
}

// HFOscillator is the part of the clock peripheral the Arbiter drives.
// StartHF only triggers the start; completion is signalled by EventHFStarted.
type HFOscillator interface {
	StartHF()
	StopHF()
	HFRunning() bool
}

// Peripheral is the full clock peripheral.
type Peripheral interface {
	HFOscillator

	StartLF(src Source)
	StopLF()
	LFRunning() bool

	// Calibrate starts an RC calibration. Completion is signalled by
	// EventCalibrationDone.
	Calibrate()

	// TakeEvents returns and clears the pending events.
	TakeEvents() Events
}

// Thermometer reads the die temperature in units of 0.25 °C.
type Thermometer interface {
	Temperature() int32
}
