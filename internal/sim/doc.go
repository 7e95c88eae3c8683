// Package sim provides simulated peripherals for running the service layer
// off-target: the clock controller, the die thermometer, the low-priority
// signal line and the RTC calibration timer.
//
// The clock peripheral never raises its interrupt from inside a call made by
// the layer. Events are completed either explicitly (manual mode, used by
// tests and scenarios) or by timers on their own goroutines (timed mode).
package sim
