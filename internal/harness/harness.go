package harness

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/roach88/mpsl/internal/irq"
	"github.com/roach88/mpsl/internal/mpsl"
	"github.com/roach88/mpsl/internal/sim"
	"github.com/roach88/mpsl/internal/testutil"
	"github.com/roach88/mpsl/internal/trace"
)

const defaultSignal irq.Signal = 5

// Assert handler selectors for initialize steps.
const (
	handlerDefault = "default"
	handlerOther   = "other"
	handlerNone    = "none"
)

// countingAssert counts assert handler calls.
type countingAssert struct {
	n atomic.Int64
}

func (c *countingAssert) Assert(string, uint32) {
	c.n.Add(1)
}

// Harness holds the device under test for one scenario run.
type Harness struct {
	layer   *mpsl.Layer
	clk     *sim.Clock
	thermo  *sim.Thermometer
	buf     *trace.Buffer
	calls   *testutil.CallbackLog
	asserts *countingAssert
	other   *countingAssert
}

// New creates a harness with a fresh layer and manual-mode peripherals.
func New(s *Scenario) *Harness {
	prefix := s.Session
	if prefix == "" {
		prefix = s.Name
	}

	h := &Harness{
		clk:     sim.NewClock(),
		thermo:  sim.NewThermometer(s.Temperature),
		buf:     trace.NewBuffer(),
		calls:   testutil.NewCallbackLog(),
		asserts: &countingAssert{},
		other:   &countingAssert{},
	}
	h.layer = mpsl.New(h.clk, sim.NewSignalLine(),
		mpsl.WithRecorder(h.buf),
		mpsl.WithThermometer(h.thermo),
		mpsl.WithSessionGenerator(testutil.NewSessionGenerator(prefix)),
	)
	h.clk.Attach(h.layer.IRQClock)
	return h
}

// Layer returns the layer under test.
func (h *Harness) Layer() *mpsl.Layer {
	return h.layer
}

// Run executes a scenario on a fresh harness and returns the result.
// The returned error is reserved for scenarios that cannot be executed at
// all; step and assertion failures are reported in the result.
func Run(s *Scenario) (*Result, error) {
	if err := validateScenario(s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	h := New(s)
	result := NewResult()

	for i, st := range s.Steps {
		if err := h.execute(st); err != nil {
			result.AddError(fmt.Sprintf("steps[%d] %s: %v", i, st.Op, err))
		}
	}

	result.Trace = h.buf.Events()
	result.Callbacks = h.calls.Names()
	result.Asserts = int(h.asserts.n.Load() + h.other.n.Load())
	result.Final = h.layer.Stats()

	for i, a := range s.Assertions {
		if err := checkAssertion(result, a); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}

	return result, nil
}

func (h *Harness) execute(st Step) error {
	switch st.Op {
	case OpInitialize:
		signal := defaultSignal
		if st.Signal != nil {
			signal = *st.Signal
		}
		return expect(st, h.layer.Initialize(st.LFClock, signal, h.handler(st.Handler)))

	case OpUninitialize:
		h.layer.Uninitialize()
		return nil

	case OpHFRequest:
		var ready func()
		if st.Callback != "" {
			ready = h.calls.Func(st.Callback)
		}
		return expect(st, h.layer.HFRequest(ready))

	case OpHFRelease:
		return expect(st, h.layer.HFRelease())

	case OpIRQ:
		line, err := irq.ParseLine(st.Line)
		if err != nil {
			return err
		}
		n := st.Count
		if n == 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			h.layer.IRQ(line)
		}
		return nil

	case OpProcessPending:
		n := h.layer.ProcessPending()
		if st.ExpectWork != nil && *st.ExpectWork != n {
			return fmt.Errorf("ran %d work items, expected %d", n, *st.ExpectWork)
		}
		return nil

	case OpCompleteHFStart:
		return completed(h.clk.CompleteHFStart(), "no HF start in progress")

	case OpCompleteLFStart:
		return completed(h.clk.CompleteLFStart(), "no LF start in progress")

	case OpCompleteCalibration:
		return completed(h.clk.CompleteCalibration(), "no calibration in progress")

	case OpSetTemperature:
		h.thermo.Set(st.Value)
		return nil
	}
	return fmt.Errorf("unknown op %q", st.Op)
}

func (h *Harness) handler(name string) mpsl.AssertHandler {
	switch name {
	case handlerOther:
		return h.other
	case handlerNone:
		return nil
	default:
		return h.asserts
	}
}

// expect compares an operation's error with the step's expected code.
func expect(st Step, err error) error {
	if st.ExpectError == "" {
		return err
	}
	if err == nil {
		return fmt.Errorf("succeeded, expected %s", st.ExpectError)
	}

	var mErr *mpsl.Error
	if !errors.As(err, &mErr) {
		return fmt.Errorf("unexpected error type: %w", err)
	}
	if string(mErr.Code) != st.ExpectError {
		return fmt.Errorf("got %s, expected %s", mErr.Code, st.ExpectError)
	}
	return nil
}

func completed(ok bool, msg string) error {
	if !ok {
		return errors.New(msg)
	}
	return nil
}
