package mpsl

import (
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/roach88/mpsl/internal/clock"
	"github.com/roach88/mpsl/internal/irq"
)

// Trace record kinds emitted by the layer, in addition to the dispatcher's.
const (
	KindInitialize   = "initialize"
	KindUninitialize = "uninitialize"
	KindHFRequest    = "hf_request"
	KindHFRelease    = "hf_release"
	KindHFStarted    = "hf_started"
	KindHFReady      = "hf_ready"
	KindLFStarted    = "lf_started"
	KindCalibration  = "calibration"
)

// ISRHook is the protocol-facing part of a radio or timer interrupt. It runs
// in the high tier and may return a continuation to run in the low tier.
type ISRHook func() func()

// Option configures a Layer.
type Option func(*Layer)

// WithRecorder sets the trace recorder passed to the dispatcher.
func WithRecorder(r irq.Recorder) Option {
	return func(l *Layer) {
		l.recorder = r
	}
}

// WithSessionGenerator sets the generator for session identifiers.
// Default: UUIDv7Generator.
func WithSessionGenerator(g SessionGenerator) Option {
	return func(l *Layer) {
		l.sessions = g
	}
}

// WithISRHook attaches hook to the radio, RTC0 or TIMER0 line. Hooks on the
// clock line are ignored; that line belongs to the layer.
func WithISRHook(line irq.Line, hook ISRHook) Option {
	return func(l *Layer) {
		if line.Valid() && line != irq.LineClock {
			l.hooks[line] = hook
		}
	}
}

// WithThermometer sets the die temperature source used by RC calibration.
// Without one the temperature reads as constant.
func WithThermometer(t clock.Thermometer) Option {
	return func(l *Layer) {
		l.thermo = t
	}
}

// Layer is the service layer state for one device.
//
// Thread-safety model:
//   - Initialize, Uninitialize: serialized by the lifecycle lock
//   - IRQ*: high tier, any goroutine
//   - ProcessPending, HFRequest, HFRelease: one low-priority flow
//   - IsInitialized, HFIsRunning: any goroutine
//
// INVARIANTS:
//   - the captured configuration never changes while initialized
//   - interrupt handlers do work only while initialized
type Layer struct {
	life        sync.Mutex
	initialized atomic.Bool
	epoch       atomic.Uint64 // bumped by every Uninitialize

	periph clock.Peripheral
	thermo clock.Thermometer
	disp   *irq.Dispatcher
	hf     *clock.Arbiter
	hooks  [irq.NumLines]ISRHook

	// cal is touched only in the high tier or under Mask.
	cal *clock.Calibrator

	sessions SessionGenerator
	recorder irq.Recorder

	lf      clock.LFConfig
	signal  irq.Signal
	session string

	assertMu sync.Mutex
	assert   AssertHandler
}

// New creates an uninitialized layer for the given peripherals. pender
// requests low-priority processing; the application answers it by calling
// ProcessPending.
func New(periph clock.Peripheral, pender irq.Pender, opts ...Option) *Layer {
	l := &Layer{
		periph:   periph,
		sessions: UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(l)
	}

	l.disp = irq.NewDispatcher(pender,
		irq.WithRecorder(l.recorder),
		irq.WithViolationHandler(l.dispatchViolation),
	)
	l.hf = clock.NewArbiter(periph, l.scheduleReady)
	l.cal = clock.NewCalibrator(clock.LFConfig{})

	handlers := map[irq.Line]irq.Handler{
		irq.LineRadio:  l.onRadio,
		irq.LineRTC0:   l.onRTC0,
		irq.LineTimer0: l.onTimer0,
		irq.LineClock:  l.onClock,
	}
	for line, h := range handlers {
		if err := l.disp.Bind(line, h); err != nil {
			panic(fmt.Sprintf("mpsl: bind %s: %v", line, err))
		}
	}
	return l
}

// Initialize brings the layer up. lf may be nil for the default LF clock
// configuration. signal is the software interrupt pended for low-priority
// processing. handler receives contract violations.
//
// Calling Initialize again with the same parameters succeeds without side
// effects. Different parameters fail with ErrAlreadyInitialized and leave the
// captured configuration untouched.
func (l *Layer) Initialize(lf *clock.LFConfig, signal irq.Signal, handler AssertHandler) error {
	cfg := clock.Effective(lf)

	l.life.Lock()
	defer l.life.Unlock()

	if l.initialized.Load() {
		l.assertMu.Lock()
		same := cfg == l.lf && signal == l.signal && sameAssertHandler(handler, l.assert)
		l.assertMu.Unlock()
		if same {
			slog.Debug("initialize: already initialized with same configuration", "session", l.session)
			return nil
		}

		slog.Warn("initialize rejected: configuration conflict",
			"session", l.session,
			"current", l.lf.String(),
			"requested", cfg.String(),
			"current_signal", l.signal,
			"requested_signal", signal,
		)
		return newError(CodeAlreadyInitialized, "already initialized with different configuration", nil, map[string]string{
			"current":   l.lf.String(),
			"requested": cfg.String(),
			"signal":    strconv.Itoa(int(l.signal)),
		})
	}

	if err := cfg.Validate(); err != nil {
		return newError(CodeInvalidConfig, "invalid LF clock configuration", err, map[string]string{
			"config": cfg.String(),
		})
	}

	l.assertMu.Lock()
	l.assert = handler
	l.assertMu.Unlock()

	l.lf = cfg
	l.signal = signal
	l.session = l.sessions.Generate()
	l.cal = clock.NewCalibrator(cfg)
	l.disp.Reset()

	l.periph.StartLF(cfg.Source)
	if cfg.Source == clock.SourceSynth {
		// The synthesized LF clock is derived from HF for the whole session.
		l.hf.Hold()
	}

	l.disp.Arm(signal)
	l.initialized.Store(true)

	l.disp.Note(KindInitialize, l.session, fmt.Sprintf("lf=%s signal=%d", cfg, signal))
	slog.Info("service layer initialized",
		"session", l.session,
		"lf", cfg.String(),
		"signal", signal,
		"calibration_period", cfg.CalibrationPeriod(),
	)
	return nil
}

// Uninitialize tears the layer down. It is a no-op when not initialized.
//
// Outstanding HF clock requests are a contract violation: the assert handler
// is notified and teardown proceeds. Callbacks that have not run are dropped.
func (l *Layer) Uninitialize() {
	l.life.Lock()
	defer l.life.Unlock()

	if !l.initialized.Load() {
		slog.Debug("uninitialize: not initialized")
		return
	}

	if n := l.hf.Requests(); n > 0 {
		l.violation(newError(CodeContractViolation, "uninitialize with outstanding HF clock requests", nil, map[string]string{
			"requests": strconv.FormatUint(uint64(n), 10),
		}))
	}

	l.disp.Disarm()
	l.initialized.Store(false)
	l.epoch.Add(1)

	l.hf.Reset()
	l.periph.StopLF()
	l.cal.Reset()
	dropped := l.disp.Pending()
	l.disp.Reset()

	l.disp.Note(KindUninitialize, l.session, fmt.Sprintf("dropped=%d", dropped))
	slog.Info("service layer uninitialized", "session", l.session, "dropped_work", dropped)

	l.session = ""
	l.lf = clock.LFConfig{}
	l.signal = 0
	l.assertMu.Lock()
	l.assert = nil
	l.assertMu.Unlock()
}

// IsInitialized reports whether the layer is initialized.
func (l *Layer) IsInitialized() bool {
	return l.initialized.Load()
}

// IRQRadio is the RADIO interrupt entry point.
func (l *Layer) IRQRadio() {
	l.disp.Fire(irq.LineRadio)
}

// IRQRTC0 is the RTC0 interrupt entry point.
func (l *Layer) IRQRTC0() {
	l.disp.Fire(irq.LineRTC0)
}

// IRQTimer0 is the TIMER0 interrupt entry point.
func (l *Layer) IRQTimer0() {
	l.disp.Fire(irq.LineTimer0)
}

// IRQClock is the POWER_CLOCK interrupt entry point.
func (l *Layer) IRQClock() {
	l.disp.Fire(irq.LineClock)
}

// IRQ dispatches to the entry point for line.
func (l *Layer) IRQ(line irq.Line) {
	l.disp.Fire(line)
}

// ProcessPending runs all work deferred to the low tier, in order, and
// returns how many items ran. It must be called in response to the
// low-priority signal and never concurrently with itself.
func (l *Layer) ProcessPending() int {
	return l.disp.Drain()
}

// HFRequest registers a user of the HF oscillator. ready, if not nil, is
// called from ProcessPending once the oscillator is running; if it is already
// running, ready is scheduled immediately.
func (l *Layer) HFRequest(ready clock.ReadyFunc) error {
	if !l.initialized.Load() {
		return ErrNotInitialized
	}

	var requests uint32
	l.disp.Mask(func() {
		l.hf.Request(ready)
		requests = l.hf.Requests()
	})

	l.disp.Note(KindHFRequest, "app", fmt.Sprintf("requests=%d", requests))
	slog.Debug("hf clock requested", "requests", requests, "running", l.hf.IsRunning())
	return nil
}

// HFRelease drops one HF oscillator user. The oscillator stops when no
// request or internal hold remains. Releasing without an outstanding request
// is a contract violation.
func (l *Layer) HFRelease() error {
	if !l.initialized.Load() {
		return ErrNotInitialized
	}

	var (
		err      error
		requests uint32
	)
	l.disp.Mask(func() {
		err = l.hf.Release()
		requests = l.hf.Requests()
	})
	if err != nil {
		verr := newError(CodeContractViolation, "hf clock release without request", err, nil)
		l.violation(verr)
		return verr
	}

	l.disp.Note(KindHFRelease, "app", fmt.Sprintf("requests=%d", requests))
	slog.Debug("hf clock released", "requests", requests)
	return nil
}

// HFIsRunning reports whether the HF oscillator is running. It reflects the
// hardware, not the request count.
func (l *Layer) HFIsRunning() bool {
	return l.hf.IsRunning()
}

// Stats is a point-in-time snapshot of the layer.
type Stats struct {
	Initialized bool
	Session     string
	LF          clock.LFConfig
	Signal      irq.Signal
	HFRequests  uint32
	HFHolds     uint32
	HFRunning   bool
	HFWaiting   int
	Pending     int
	Fired       map[string]uint64
	// Armed is true while the interrupt lines accept events.
	Armed bool
	// Seq is the last issued trace and work sequence number.
	Seq int64
}

// Stats returns a snapshot for diagnostics. Call it from the low tier.
func (l *Layer) Stats() Stats {
	l.life.Lock()
	defer l.life.Unlock()

	s := Stats{
		Initialized: l.initialized.Load(),
		Session:     l.session,
		LF:          l.lf,
		Signal:      l.signal,
		HFRequests:  l.hf.Requests(),
		HFHolds:     l.hf.Holds(),
		HFRunning:   l.hf.IsRunning(),
		HFWaiting:   l.hf.Waiting(),
		Pending:     l.disp.Pending(),
		Fired:       make(map[string]uint64, irq.NumLines),
		Armed:       l.disp.Armed(),
		Seq:         l.disp.Sequence().Current(),
	}
	for _, line := range irq.Lines {
		s.Fired[line.String()] = l.disp.Fired(line)
	}
	return s
}

func (l *Layer) dispatchViolation(err error) {
	l.violation(newError(CodeContractViolation, "low-priority processing re-entered", err, nil))
}

// violation reports err to the assert handler with the location of the
// check that detected it.
func (l *Layer) violation(err error) {
	_, file, line, _ := runtime.Caller(1)

	l.assertMu.Lock()
	defer l.assertMu.Unlock()

	slog.Error("contract violation", "error", err, "file", file, "line", line)
	l.disp.Note(irq.KindViolation, "layer", err.Error())

	if l.assert != nil {
		l.assert.Assert(file, uint32(line))
	}
}
