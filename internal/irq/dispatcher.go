package irq

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Trace record kinds emitted by the dispatcher.
const (
	KindFired     = "irq"
	KindIgnored   = "irq_ignored"
	KindDeferred  = "deferred"
	KindExecuted  = "executed"
	KindViolation = "violation"
)

var (
	// ErrArmed is returned by Bind once the lines are armed.
	ErrArmed = errors.New("interrupt lines are armed")

	// ErrInvalidLine is returned for a line outside the fixed set.
	ErrInvalidLine = errors.New("invalid interrupt line")

	// ErrReentrantDrain is reported when Drain is entered while already draining.
	ErrReentrantDrain = errors.New("low-priority processing entered concurrently")
)

// Handler runs a line's high-priority work.
type Handler func()

// Recorder receives trace records. Record is called from both tiers and must
// not block.
type Recorder interface {
	Record(seq int64, kind, subject, detail string)
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithRecorder sets the trace recorder.
func WithRecorder(r Recorder) DispatcherOption {
	return func(d *Dispatcher) {
		d.recorder = r
	}
}

// WithViolationHandler sets the function notified of caller contract
// violations detected by the dispatcher (re-entrant drain).
func WithViolationHandler(fn func(error)) DispatcherOption {
	return func(d *Dispatcher) {
		d.onViolation = fn
	}
}

// Dispatcher routes the fixed interrupt lines to their handlers and owns the
// pending work queue.
//
// Thread-safety model:
//   - Fire: any goroutine; handlers are serialized by the high-priority lock
//   - Mask: low tier; excludes handlers while fn runs
//   - Defer: either tier; never takes the high-priority lock
//   - Drain: exactly one low-priority flow at a time
//
// INVARIANTS:
//   - handlers never change while armed
//   - each work item runs exactly once, in enqueue order
type Dispatcher struct {
	hi sync.Mutex

	handlers [NumLines]Handler
	armed    atomic.Bool
	fired    [NumLines]atomic.Uint64

	pender Pender
	signal atomic.Uint32

	queue    *workQueue
	seq      *Sequence
	draining atomic.Bool

	recorder    Recorder
	onViolation func(error)
}

// NewDispatcher creates a disarmed dispatcher that pends low-priority
// processing through pender.
func NewDispatcher(pender Pender, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		pender: pender,
		queue:  newWorkQueue(),
		seq:    NewSequence(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Bind attaches h to line. Lines can only be bound while disarmed.
func (d *Dispatcher) Bind(line Line, h Handler) error {
	if !line.Valid() {
		return fmt.Errorf("bind %s: %w", line, ErrInvalidLine)
	}

	d.hi.Lock()
	defer d.hi.Unlock()

	if d.armed.Load() {
		return fmt.Errorf("bind %s: %w", line, ErrArmed)
	}
	d.handlers[line] = h
	return nil
}

// Arm enables every line. Deferred work pends sig.
func (d *Dispatcher) Arm(sig Signal) {
	d.hi.Lock()
	defer d.hi.Unlock()

	d.signal.Store(uint32(sig))
	d.armed.Store(true)
	slog.Debug("interrupt lines armed", "signal", sig, "priority", HighPriority)
}

// Disarm disables every line. When Disarm returns no handler is running and
// none will start until the next Arm.
func (d *Dispatcher) Disarm() {
	d.hi.Lock()
	defer d.hi.Unlock()

	d.armed.Store(false)
	slog.Debug("interrupt lines disarmed")
}

// Armed reports whether the lines are armed.
func (d *Dispatcher) Armed() bool {
	return d.armed.Load()
}

// Signal returns the software interrupt pended for low-priority processing.
func (d *Dispatcher) Signal() Signal {
	return Signal(d.signal.Load())
}

// Fire is the interrupt entry point for line.
func (d *Dispatcher) Fire(line Line) {
	if !line.Valid() {
		slog.Warn("interrupt on unknown line ignored", "line", line)
		return
	}

	d.hi.Lock()
	defer d.hi.Unlock()

	if !d.armed.Load() {
		d.Note(KindIgnored, line.String(), "disarmed")
		slog.Debug("interrupt ignored: lines disarmed", "line", line)
		return
	}

	d.fired[line].Add(1)
	d.Note(KindFired, line.String(), "")

	if h := d.handlers[line]; h != nil {
		h()
	}
}

// Fired returns how many times line was dispatched to its handler.
func (d *Dispatcher) Fired(line Line) uint64 {
	if !line.Valid() {
		return 0
	}
	return d.fired[line].Load()
}

// Mask runs fn with every line masked.
// fn must not call Fire, Bind, Arm, Disarm or Mask.
func (d *Dispatcher) Mask(fn func()) {
	d.hi.Lock()
	defer d.hi.Unlock()
	fn()
}

// Defer queues fn for the low tier and pends the low-priority signal.
func (d *Dispatcher) Defer(name string, line Line, fn func()) {
	w := Work{
		Seq:  d.seq.Next(),
		Name: name,
		Line: line,
		Run:  fn,
	}
	d.queue.Enqueue(w)
	d.record(w.Seq, KindDeferred, name, line.String())

	if d.pender != nil {
		d.pender.Pend(d.Signal())
	}
}

// Drain runs every pending work item in FIFO order, including items queued
// while draining, and returns how many ran. An empty queue is a no-op.
//
// Drain must not be entered concurrently with itself. A re-entrant call is
// reported to the violation handler and returns 0 without running anything.
func (d *Dispatcher) Drain() int {
	if !d.draining.CompareAndSwap(false, true) {
		d.Note(KindViolation, "drain", ErrReentrantDrain.Error())
		slog.Error("low-priority processing re-entered", "error", ErrReentrantDrain)
		if d.onViolation != nil {
			d.onViolation(ErrReentrantDrain)
		}
		return 0
	}
	defer d.draining.Store(false)

	n := 0
	for {
		w, ok := d.queue.TryDequeue()
		if !ok {
			return n
		}
		d.Note(KindExecuted, w.Name, fmt.Sprintf("work=%d", w.Seq))
		if w.Run != nil {
			w.Run()
		}
		n++
	}
}

// Pending returns the number of queued work items.
func (d *Dispatcher) Pending() int {
	return d.queue.Len()
}

// Reset drops all pending work and the fire counters. Call only while
// disarmed.
func (d *Dispatcher) Reset() {
	d.queue.Reset()
	for i := range d.fired {
		d.fired[i].Store(0)
	}
}

// Sequence returns the logical sequence used for stamping.
func (d *Dispatcher) Sequence() *Sequence {
	return d.seq
}

// Note stamps and records a trace record.
func (d *Dispatcher) Note(kind, subject, detail string) {
	if d.recorder == nil {
		return
	}
	d.record(d.seq.Next(), kind, subject, detail)
}

func (d *Dispatcher) record(seq int64, kind, subject, detail string) {
	if d.recorder != nil {
		d.recorder.Record(seq, kind, subject, detail)
	}
}
