package sim

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mpsl/internal/clock"
)

func TestClock_ManualHFStart(t *testing.T) {
	c := NewClock()
	var irqs atomic.Int32
	c.Attach(func() { irqs.Add(1) })

	assert.False(t, c.CompleteHFStart(), "nothing to complete")

	c.StartHF()
	c.StartHF()
	assert.Equal(t, int64(1), c.HFStarts())
	assert.False(t, c.HFRunning())
	assert.Equal(t, int32(0), irqs.Load(), "start never raises the interrupt itself")

	require.True(t, c.CompleteHFStart())
	assert.True(t, c.HFRunning())
	assert.Equal(t, int32(1), irqs.Load())
	assert.Equal(t, clock.EventHFStarted, c.TakeEvents())
	assert.Equal(t, clock.Events(0), c.TakeEvents())
}

func TestClock_StopCancelsStart(t *testing.T) {
	c := NewClock()

	c.StartHF()
	c.StopHF()
	assert.False(t, c.CompleteHFStart())
	assert.False(t, c.HFRunning())

	c.StartHF()
	require.True(t, c.CompleteHFStart())
	c.StopHF()
	assert.False(t, c.HFRunning())
	assert.False(t, c.TakeEvents().Has(clock.EventHFStarted))
}

func TestClock_LFStart(t *testing.T) {
	c := NewClock()

	c.StartLF(clock.SourceXTAL)
	assert.Equal(t, clock.SourceXTAL, c.LFSource())
	assert.False(t, c.LFRunning())

	require.True(t, c.CompleteLFStart())
	assert.True(t, c.LFRunning())
	assert.True(t, c.TakeEvents().Has(clock.EventLFStarted))

	c.StopLF()
	assert.False(t, c.LFRunning())
}

func TestClock_CalibrationNeedsHF(t *testing.T) {
	c := NewClock()

	c.Calibrate()
	assert.False(t, c.Calibrating())
	assert.Equal(t, int64(0), c.Calibrations())

	c.StartHF()
	c.CompleteHFStart()
	c.TakeEvents()

	c.Calibrate()
	assert.True(t, c.Calibrating())
	require.True(t, c.CompleteCalibration())
	assert.Equal(t, clock.EventCalibrationDone, c.TakeEvents())
}

func TestClock_TimedMode(t *testing.T) {
	c := NewClock(
		WithHFStartup(time.Millisecond),
		WithCalibrationTime(time.Millisecond),
	)
	done := make(chan struct{}, 4)
	c.Attach(func() { done <- struct{}{} })

	c.StartHF()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("hf start did not complete")
	}
	assert.True(t, c.HFRunning())

	c.Calibrate()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("calibration did not complete")
	}
	assert.Equal(t, clock.EventHFStarted|clock.EventCalibrationDone, c.TakeEvents())
}
