package mpsl

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mpsl/internal/clock"
	"github.com/roach88/mpsl/internal/irq"
	"github.com/roach88/mpsl/internal/sim"
)

const testSignal irq.Signal = 5

// assertLog records assert handler invocations.
type assertLog struct {
	mu    sync.Mutex
	calls []string
}

func (a *assertLog) Assert(file string, line uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, file)
}

func (a *assertLog) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

type fixture struct {
	layer   *Layer
	clk     *sim.Clock
	line    *sim.SignalLine
	thermo  *sim.Thermometer
	asserts *assertLog
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	f := &fixture{
		clk:     sim.NewClock(),
		line:    sim.NewSignalLine(),
		thermo:  sim.NewThermometer(100),
		asserts: &assertLog{},
	}
	opts = append([]Option{
		WithSessionGenerator(NewFixedGenerator("session-1", "session-2", "session-3")),
		WithThermometer(f.thermo),
	}, opts...)
	f.layer = New(f.clk, f.line, opts...)
	f.clk.Attach(f.layer.IRQClock)
	return f
}

func (f *fixture) init(t *testing.T, lf *clock.LFConfig) {
	t.Helper()
	require.NoError(t, f.layer.Initialize(lf, testSignal, f.asserts))
}

func TestLayer_InitializeIdempotent(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.layer.Initialize(nil, testSignal, f.asserts))
	assert.True(t, f.layer.IsInitialized())

	rc := clock.LFConfig{Source: clock.SourceRC, RCInterval: 16, RCTempInterval: 2}
	require.NoError(t, f.layer.Initialize(&rc, testSignal, f.asserts))

	xtal := clock.LFConfig{Source: clock.SourceXTAL}
	err := f.layer.Initialize(&xtal, testSignal, f.asserts)
	require.Error(t, err)
	assert.True(t, IsAlreadyInitialized(err))

	var mErr *Error
	require.ErrorAs(t, err, &mErr)
	assert.Equal(t, int32(-1), mErr.Errno())
	assert.Equal(t, "{xtal,0,0}", mErr.Details["requested"])

	stats := f.layer.Stats()
	assert.Equal(t, clock.DefaultLFConfig(), stats.LF)
	assert.Equal(t, "session-1", stats.Session)
	assert.Equal(t, testSignal, stats.Signal)
}

func TestLayer_InitializeConflicts(t *testing.T) {
	tests := []struct {
		name    string
		signal  irq.Signal
		handler func(f *fixture) AssertHandler
	}{
		{
			name:    "different signal",
			signal:  6,
			handler: func(f *fixture) AssertHandler { return f.asserts },
		},
		{
			name:    "different handler",
			signal:  testSignal,
			handler: func(f *fixture) AssertHandler { return &assertLog{} },
		},
		{
			name:    "nil handler",
			signal:  testSignal,
			handler: func(f *fixture) AssertHandler { return nil },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.init(t, nil)

			err := f.layer.Initialize(nil, tt.signal, tt.handler(f))
			assert.ErrorIs(t, err, ErrAlreadyInitialized)
			assert.Equal(t, testSignal, f.layer.Stats().Signal)
		})
	}
}

func TestLayer_InitializeFuncHandler(t *testing.T) {
	f := newFixture(t)
	h := AssertFunc(func(string, uint32) {})

	require.NoError(t, f.layer.Initialize(nil, testSignal, h))
	require.NoError(t, f.layer.Initialize(nil, testSignal, h))
}

func TestLayer_InitializeStructHandler(t *testing.T) {
	f := newFixture(t)
	h := taggedHandler{tags: []string{"radio", "rtc0"}}

	require.NoError(t, f.layer.Initialize(nil, testSignal, h))
	require.NoError(t, f.layer.Initialize(nil, testSignal, h))

	err := f.layer.Initialize(nil, testSignal, taggedHandler{tags: []string{"radio"}})
	assert.ErrorIs(t, err, ErrAlreadyInitialized)
}

func TestLayer_InitializeInvalidConfig(t *testing.T) {
	f := newFixture(t)

	bad := clock.LFConfig{Source: clock.SourceXTAL, RCInterval: 4}
	err := f.layer.Initialize(&bad, testSignal, f.asserts)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.False(t, f.layer.IsInitialized())

	var mErr *Error
	require.ErrorAs(t, err, &mErr)
	assert.Equal(t, int32(-22), mErr.Errno())
}

func TestLayer_ConcurrentInitialize(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.layer.Initialize(nil, testSignal, f.asserts)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, "session-1", f.layer.Stats().Session)
}

func TestLayer_NotInitialized(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.layer.HFRequest(nil), ErrNotInitialized)
	assert.ErrorIs(t, f.layer.HFRelease(), ErrNotInitialized)
	assert.False(t, f.layer.HFIsRunning())

	// Interrupts before initialization are ignored.
	f.layer.IRQRadio()
	f.layer.IRQClock()
	assert.Equal(t, 0, f.layer.ProcessPending())

	// Uninitialize is a no-op.
	f.layer.Uninitialize()
	assert.False(t, f.layer.IsInitialized())
}

func TestLayer_HFRequestReleaseScenario(t *testing.T) {
	f := newFixture(t)
	f.init(t, &clock.LFConfig{Source: clock.SourceXTAL})

	var order []string
	require.NoError(t, f.layer.HFRequest(func() { order = append(order, "cb1") }))
	assert.Equal(t, uint32(1), f.layer.Stats().HFRequests)
	assert.Equal(t, int64(1), f.clk.HFStarts())

	require.NoError(t, f.layer.HFRequest(func() { order = append(order, "cb2") }))
	assert.Equal(t, uint32(2), f.layer.Stats().HFRequests)

	require.NoError(t, f.layer.HFRelease())
	assert.Equal(t, uint32(1), f.layer.Stats().HFRequests)
	assert.Equal(t, int64(1), f.clk.HFStarts())

	require.True(t, f.clk.CompleteHFStart())
	assert.True(t, f.layer.HFIsRunning())
	assert.Empty(t, order, "callbacks never run in the high tier")

	f.layer.ProcessPending()
	assert.Equal(t, []string{"cb1", "cb2"}, order)

	f.layer.ProcessPending()
	assert.Equal(t, []string{"cb1", "cb2"}, order, "callbacks run exactly once")
	assert.Equal(t, 0, f.asserts.count())
}

func TestLayer_HFRequestWhileRunning(t *testing.T) {
	f := newFixture(t)
	f.init(t, &clock.LFConfig{Source: clock.SourceXTAL})

	require.NoError(t, f.layer.HFRequest(nil))
	f.clk.CompleteHFStart()
	f.layer.ProcessPending()

	called := 0
	require.NoError(t, f.layer.HFRequest(func() { called++ }))
	assert.Equal(t, 0, called, "deferred even when already running")
	assert.Equal(t, int64(1), f.clk.HFStarts())

	f.layer.ProcessPending()
	assert.Equal(t, 1, called)
}

func TestLayer_HFStopsWhenIdle(t *testing.T) {
	f := newFixture(t)
	f.init(t, &clock.LFConfig{Source: clock.SourceXTAL})

	require.NoError(t, f.layer.HFRequest(nil))
	f.clk.CompleteHFStart()
	require.True(t, f.layer.HFIsRunning())

	require.NoError(t, f.layer.HFRelease())
	assert.False(t, f.layer.HFIsRunning())
}

func TestLayer_ReleaseUnderflow(t *testing.T) {
	f := newFixture(t)
	f.init(t, nil)

	err := f.layer.HFRelease()
	require.Error(t, err)
	assert.True(t, IsContractViolation(err))
	assert.ErrorIs(t, err, clock.ErrReleaseUnderflow)
	assert.Equal(t, 1, f.asserts.count())
	assert.Equal(t, uint32(0), f.layer.Stats().HFRequests)
}

func TestLayer_SynthHoldsHF(t *testing.T) {
	f := newFixture(t)
	f.init(t, &clock.LFConfig{Source: clock.SourceSynth})

	assert.Equal(t, int64(1), f.clk.HFStarts())
	f.clk.CompleteHFStart()
	assert.Equal(t, uint32(1), f.layer.Stats().HFHolds)

	require.NoError(t, f.layer.HFRequest(nil))
	require.NoError(t, f.layer.HFRelease())
	assert.True(t, f.layer.HFIsRunning(), "synthesized LF keeps HF running")

	f.layer.Uninitialize()
	assert.False(t, f.layer.HFIsRunning())
}

func TestLayer_UninitializeOutstanding(t *testing.T) {
	f := newFixture(t)
	f.init(t, nil)

	called := false
	require.NoError(t, f.layer.HFRequest(func() { called = true }))

	f.layer.Uninitialize()
	assert.False(t, f.layer.IsInitialized())
	assert.Equal(t, 1, f.asserts.count())
	assert.False(t, f.layer.HFIsRunning())

	// A late start completion is dropped by the stopped oscillator.
	assert.False(t, f.clk.CompleteHFStart())
	f.layer.ProcessPending()
	assert.False(t, called)

	// A different configuration is accepted after teardown.
	require.NoError(t, f.layer.Initialize(&clock.LFConfig{Source: clock.SourceXTAL}, 7, nil))
	assert.Equal(t, "session-2", f.layer.Stats().Session)
	assert.Equal(t, uint32(0), f.layer.Stats().HFRequests)
}

func TestLayer_RadioActivityHoldsHF(t *testing.T) {
	var f *fixture
	var heldDuringContinuation bool
	f = newFixture(t, WithISRHook(irq.LineRadio, func() func() {
		return func() { heldDuringContinuation = f.layer.HFIsRunning() }
	}))
	f.init(t, &clock.LFConfig{Source: clock.SourceXTAL})

	require.NoError(t, f.layer.HFRequest(nil))
	require.True(t, f.clk.CompleteHFStart())
	f.layer.ProcessPending()

	f.layer.IRQRadio()
	assert.Equal(t, uint32(1), f.layer.Stats().HFHolds)

	require.NoError(t, f.layer.HFRelease())
	assert.True(t, f.layer.HFIsRunning(), "radio continuation still pending")

	assert.Equal(t, 1, f.layer.ProcessPending())
	assert.True(t, heldDuringContinuation)
	assert.Zero(t, f.layer.Stats().HFHolds)
	assert.False(t, f.layer.HFIsRunning())
	assert.Zero(t, f.asserts.count())
}

func TestLayer_RadioWithoutHFTakesNoHold(t *testing.T) {
	ran := false
	f := newFixture(t, WithISRHook(irq.LineRadio, func() func() {
		return func() { ran = true }
	}))
	f.init(t, &clock.LFConfig{Source: clock.SourceXTAL})

	f.layer.IRQRadio()
	assert.Zero(t, f.layer.Stats().HFHolds)
	assert.Zero(t, f.clk.HFStarts())

	assert.Equal(t, 1, f.layer.ProcessPending())
	assert.True(t, ran)
}

func TestLayer_RadioContinuationUninitializes(t *testing.T) {
	var f *fixture
	f = newFixture(t, WithISRHook(irq.LineRadio, func() func() {
		return func() {
			require.NoError(t, f.layer.HFRelease())
			f.layer.Uninitialize()
			f.init(t, &clock.LFConfig{Source: clock.SourceXTAL})
		}
	}))
	f.init(t, &clock.LFConfig{Source: clock.SourceXTAL})

	require.NoError(t, f.layer.HFRequest(nil))
	f.layer.IRQRadio()
	assert.Equal(t, 1, f.layer.ProcessPending())

	assert.Zero(t, f.asserts.count(), "stale radio hold is not dropped")
	assert.Equal(t, "session-2", f.layer.Stats().Session)
}

func TestLayer_StatsArmedAndSeq(t *testing.T) {
	f := newFixture(t)
	assert.False(t, f.layer.Stats().Armed)

	f.init(t, nil)
	assert.True(t, f.layer.Stats().Armed)
	before := f.layer.Stats().Seq

	require.NoError(t, f.layer.HFRequest(func() {}))
	require.True(t, f.clk.CompleteHFStart())
	assert.Greater(t, f.layer.Stats().Seq, before)
	assert.Equal(t, 1, f.layer.ProcessPending())

	require.NoError(t, f.layer.HFRelease())
	f.layer.Uninitialize()
	assert.False(t, f.layer.Stats().Armed)
	assert.Zero(t, f.asserts.count())
}

func TestLayer_AssertHandlerCancels(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, f.layer.Initialize(nil, testSignal, AssertFunc(func(string, uint32) { cancel() })))

	err := f.layer.HFRelease()
	assert.True(t, IsContractViolation(err))
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.True(t, f.layer.IsInitialized())
}

func TestLayer_ReentrantDrain(t *testing.T) {
	f := newFixture(t)
	f.init(t, &clock.LFConfig{Source: clock.SourceXTAL})

	inner := -1
	require.NoError(t, f.layer.HFRequest(func() { inner = f.layer.ProcessPending() }))
	f.clk.CompleteHFStart()
	f.layer.ProcessPending()

	assert.Equal(t, 0, inner)
	assert.Equal(t, 1, f.asserts.count())
}

func TestLayer_ISRHookContinuation(t *testing.T) {
	var order []string
	hook := func(name string) ISRHook {
		return func() func() {
			order = append(order, name+":isr")
			return func() { order = append(order, name+":low") }
		}
	}

	f := newFixture(t,
		WithISRHook(irq.LineRadio, hook("radio")),
		WithISRHook(irq.LineTimer0, hook("timer0")),
		WithISRHook(irq.LineClock, hook("clock")),
	)
	f.init(t, &clock.LFConfig{Source: clock.SourceXTAL})

	f.layer.IRQRadio()
	f.layer.IRQTimer0()
	assert.Equal(t, []string{"radio:isr", "timer0:isr"}, order)

	assert.Equal(t, 2, f.layer.ProcessPending())
	assert.Equal(t, []string{"radio:isr", "timer0:isr", "radio:low", "timer0:low"}, order)

	f.layer.IRQClock()
	assert.Len(t, order, 4, "clock line hooks are not installed")

	stats := f.layer.Stats()
	assert.Equal(t, uint64(1), stats.Fired["radio"])
	assert.Equal(t, uint64(1), stats.Fired["clock"])
}
