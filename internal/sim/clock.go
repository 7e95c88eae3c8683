package sim

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/mpsl/internal/clock"
)

// ClockOption configures a Clock.
type ClockOption func(*Clock)

// WithHFStartup completes HF starts automatically after d.
func WithHFStartup(d time.Duration) ClockOption {
	return func(c *Clock) {
		c.hfStartup = d
	}
}

// WithLFStartup completes LF starts automatically after d.
func WithLFStartup(d time.Duration) ClockOption {
	return func(c *Clock) {
		c.lfStartup = d
	}
}

// WithCalibrationTime completes calibrations automatically after d.
func WithCalibrationTime(d time.Duration) ClockOption {
	return func(c *Clock) {
		c.calTime = d
	}
}

// Clock simulates the clock controller. A zero duration for an operation
// selects manual mode for it: the operation stays in progress until the
// matching Complete method is called.
//
// Thread-safety: all methods are safe for concurrent use. The interrupt is
// raised outside the internal lock.
type Clock struct {
	mu sync.Mutex

	hfStartup time.Duration
	lfStartup time.Duration
	calTime   time.Duration

	irq func()

	hfRunning  atomic.Bool
	hfStarting bool
	hfGen      uint64

	lfRunning  atomic.Bool
	lfStarting bool
	lfSource   clock.Source
	lfGen      uint64

	calibrating bool
	events      clock.Events

	hfStarts     atomic.Int64
	calibrations atomic.Int64
}

var _ clock.Peripheral = (*Clock)(nil)

// NewClock creates a stopped clock controller.
func NewClock(opts ...ClockOption) *Clock {
	c := &Clock{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Attach sets the function that raises the clock interrupt, typically the
// layer's IRQClock.
func (c *Clock) Attach(irq func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.irq = irq
}

// StartHF begins an HF oscillator start. No-op if running or starting.
func (c *Clock) StartHF() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hfRunning.Load() || c.hfStarting {
		return
	}
	c.hfStarting = true
	c.hfGen++
	c.hfStarts.Add(1)
	slog.Debug("sim: hf start", "gen", c.hfGen)

	if c.hfStartup > 0 {
		gen := c.hfGen
		time.AfterFunc(c.hfStartup, func() { c.completeHF(gen) })
	}
}

// StopHF stops the HF oscillator and cancels a start in progress.
func (c *Clock) StopHF() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.hfStarting = false
	c.hfRunning.Store(false)
	c.hfGen++
	c.events &^= clock.EventHFStarted
	slog.Debug("sim: hf stop")
}

// HFRunning reports whether the HF oscillator is running.
func (c *Clock) HFRunning() bool {
	return c.hfRunning.Load()
}

// CompleteHFStart finishes a start in progress and raises the interrupt.
// Returns false if no start was in progress.
func (c *Clock) CompleteHFStart() bool {
	c.mu.Lock()
	gen := c.hfGen
	c.mu.Unlock()
	return c.completeHF(gen)
}

func (c *Clock) completeHF(gen uint64) bool {
	c.mu.Lock()
	if !c.hfStarting || gen != c.hfGen {
		c.mu.Unlock()
		return false
	}
	c.hfStarting = false
	c.hfRunning.Store(true)
	c.events |= clock.EventHFStarted
	irq := c.irq
	c.mu.Unlock()

	if irq != nil {
		irq()
	}
	return true
}

// StartLF begins an LF clock start from src.
func (c *Clock) StartLF(src clock.Source) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lfSource = src
	c.lfStarting = true
	c.lfGen++
	slog.Debug("sim: lf start", "source", src)

	if c.lfStartup > 0 {
		gen := c.lfGen
		time.AfterFunc(c.lfStartup, func() { c.completeLF(gen) })
	}
}

// StopLF stops the LF clock.
func (c *Clock) StopLF() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lfStarting = false
	c.lfRunning.Store(false)
	c.lfGen++
	c.calibrating = false
	c.events = 0
}

// LFRunning reports whether the LF clock is running.
func (c *Clock) LFRunning() bool {
	return c.lfRunning.Load()
}

// LFSource returns the source of the last LF start.
func (c *Clock) LFSource() clock.Source {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lfSource
}

// CompleteLFStart finishes an LF start in progress and raises the interrupt.
func (c *Clock) CompleteLFStart() bool {
	c.mu.Lock()
	gen := c.lfGen
	c.mu.Unlock()
	return c.completeLF(gen)
}

func (c *Clock) completeLF(gen uint64) bool {
	c.mu.Lock()
	if !c.lfStarting || gen != c.lfGen {
		c.mu.Unlock()
		return false
	}
	c.lfStarting = false
	c.lfRunning.Store(true)
	c.events |= clock.EventLFStarted
	irq := c.irq
	c.mu.Unlock()

	if irq != nil {
		irq()
	}
	return true
}

// Calibrate begins an RC calibration. Ignored unless HF is running.
func (c *Clock) Calibrate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.hfRunning.Load() {
		slog.Warn("sim: calibration requested with hf stopped")
		return
	}
	c.calibrating = true
	c.calibrations.Add(1)

	if c.calTime > 0 {
		time.AfterFunc(c.calTime, func() { c.CompleteCalibration() })
	}
}

// Calibrating reports whether a calibration is in progress.
func (c *Clock) Calibrating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calibrating
}

// CompleteCalibration finishes a calibration in progress and raises the
// interrupt.
func (c *Clock) CompleteCalibration() bool {
	c.mu.Lock()
	if !c.calibrating {
		c.mu.Unlock()
		return false
	}
	c.calibrating = false
	c.events |= clock.EventCalibrationDone
	irq := c.irq
	c.mu.Unlock()

	if irq != nil {
		irq()
	}
	return true
}

// TakeEvents returns and clears the latched events.
func (c *Clock) TakeEvents() clock.Events {
	c.mu.Lock()
	defer c.mu.Unlock()

	ev := c.events
	c.events = 0
	return ev
}

// HFStarts returns how many HF starts were begun.
func (c *Clock) HFStarts() int64 {
	return c.hfStarts.Load()
}

// Calibrations returns how many calibrations were begun.
func (c *Clock) Calibrations() int64 {
	return c.calibrations.Load()
}
