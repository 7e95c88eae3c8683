package clock

import (
	"errors"
	"sync"
)

// ErrReleaseUnderflow is returned by Release when no request is outstanding.
var ErrReleaseUnderflow = errors.New("hf clock released with no outstanding request")

// ErrUnholdUnderflow is returned by Unhold when no internal hold is outstanding.
var ErrUnholdUnderflow = errors.New("hf clock hold dropped with none outstanding")

// ReadyFunc is called once the HF oscillator is running. It always runs in
// the low-priority context.
type ReadyFunc func()

// Arbiter reference-counts the HF oscillator.
//
// Two kinds of users keep the oscillator on: external requests (Request /
// Release) and internal holds (Hold / Unhold) taken by the layer itself for
// RC calibration, a synthesized LF clock, or radio activity still pending in
// the low tier (HoldIfOn). The oscillator is started by the first user and
// stopped when both counts reach zero.
//
// Ready callbacks move through two lists. A callback waits until the
// oscillator is observed running (Started, or already running at Request
// time); it is then due, and the notify hook is called so that the owner
// schedules a low-priority drain which collects it with TakeReady.
//
// Thread-safety: all methods are safe for concurrent use. The lock order is
// caller lock, then the arbiter lock; the oscillator is driven under the
// arbiter lock and must not call back into the Arbiter synchronously.
type Arbiter struct {
	mu     sync.Mutex
	osc    HFOscillator
	notify func()

	requests uint32
	holds    uint32
	on       bool

	waiting []ReadyFunc
	due     []ReadyFunc
}

// NewArbiter creates an arbiter driving osc. notify is called, outside the
// arbiter lock, whenever callbacks become due.
func NewArbiter(osc HFOscillator, notify func()) *Arbiter {
	return &Arbiter{
		osc:    osc,
		notify: notify,
	}
}

// Request registers one more user of the HF oscillator and starts it if it is
// the first. ready may be nil.
func (a *Arbiter) Request(ready ReadyFunc) {
	a.mu.Lock()
	a.requests++
	if ready != nil {
		a.waiting = append(a.waiting, ready)
	}
	a.ensureOnLocked()

	// Already running: no start event will come, so the callback is due now.
	promoted := 0
	if a.osc.HFRunning() {
		promoted = a.promoteLocked()
	}
	a.mu.Unlock()

	if promoted > 0 {
		a.fireNotify()
	}
}

// Release drops one request. The oscillator stops when no request and no
// hold remain.
func (a *Arbiter) Release() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.requests == 0 {
		return ErrReleaseUnderflow
	}
	a.requests--
	a.maybeStopLocked()
	return nil
}

// Hold takes an internal reference on the oscillator.
func (a *Arbiter) Hold() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.holds++
	a.ensureOnLocked()
}

// HoldIfOn takes an internal reference only while the oscillator is started
// or starting, and reports whether it did. It never starts the oscillator.
func (a *Arbiter) HoldIfOn() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.on {
		return false
	}
	a.holds++
	return true
}

// Unhold drops an internal reference.
func (a *Arbiter) Unhold() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.holds == 0 {
		return ErrUnholdUnderflow
	}
	a.holds--
	a.maybeStopLocked()
	return nil
}

// Started is called when the oscillator reports running. Waiting callbacks
// become due in registration order. Returns the number of callbacks made due.
func (a *Arbiter) Started() int {
	a.mu.Lock()
	promoted := a.promoteLocked()
	a.mu.Unlock()

	if promoted > 0 {
		a.fireNotify()
	}
	return promoted
}

// TakeReady removes and returns the due callbacks.
func (a *Arbiter) TakeReady() []ReadyFunc {
	a.mu.Lock()
	defer a.mu.Unlock()

	ready := a.due
	a.due = nil
	return ready
}

// IsRunning reports the oscillator state.
func (a *Arbiter) IsRunning() bool {
	return a.osc.HFRunning()
}

// Requests returns the number of outstanding external requests.
func (a *Arbiter) Requests() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.requests
}

// Holds returns the number of outstanding internal holds.
func (a *Arbiter) Holds() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.holds
}

// Waiting returns the number of callbacks registered but not yet due.
func (a *Arbiter) Waiting() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.waiting)
}

// Reset stops the oscillator and forgets every request, hold and callback.
func (a *Arbiter) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.on {
		a.on = false
		a.osc.StopHF()
	}
	a.requests = 0
	a.holds = 0
	a.waiting = nil
	a.due = nil
}

func (a *Arbiter) ensureOnLocked() {
	if a.on {
		return
	}
	a.on = true
	a.osc.StartHF()
}

func (a *Arbiter) maybeStopLocked() {
	if a.requests > 0 || a.holds > 0 || !a.on {
		return
	}
	a.on = false
	a.osc.StopHF()
}

func (a *Arbiter) promoteLocked() int {
	n := len(a.waiting)
	if n == 0 {
		return 0
	}
	a.due = append(a.due, a.waiting...)
	a.waiting = nil
	return n
}

func (a *Arbiter) fireNotify() {
	if a.notify != nil {
		a.notify()
	}
}
