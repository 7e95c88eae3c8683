package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mpsl/internal/trace"
)

var sampleTrace = []trace.Event{
	{Seq: 1, Kind: "irq", Subject: "clock"},
	{Seq: 2, Kind: "deferred", Subject: "hf_ready", Detail: "clock"},
	{Seq: 3, Kind: "irq", Subject: "radio"},
	{Seq: 4, Kind: "executed", Subject: "hf_ready", Detail: "work=2"},
}

func TestAssertTraceOrder(t *testing.T) {
	ok := Assertion{Type: AssertTraceOrder, Events: []string{"irq:clock", "executed:hf_ready"}}
	assert.NoError(t, assertTraceOrder(sampleTrace, ok))

	reversed := Assertion{Type: AssertTraceOrder, Events: []string{"executed:hf_ready", "irq:clock"}}
	err := assertTraceOrder(sampleTrace, reversed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "irq:clock not found after [executed:hf_ready]")
	assert.Contains(t, err.Error(), "Full trace:")
}

func TestAssertTraceCount(t *testing.T) {
	assert.NoError(t, assertTraceCount(sampleTrace, Assertion{Event: "irq:clock", Count: intPtr(1)}))
	assert.Error(t, assertTraceCount(sampleTrace, Assertion{Event: "irq:clock", Count: intPtr(2)}))
	assert.NoError(t, assertTraceCount(sampleTrace, Assertion{Event: "irq:timer0", Count: intPtr(0)}))
}

func TestAssertTraceContains(t *testing.T) {
	assert.NoError(t, assertTraceContains(sampleTrace, Assertion{Event: "irq:radio"}))

	err := assertTraceContains(sampleTrace, Assertion{Event: "irq:rtc0"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found in trace")
}

func TestCheckAssertion_State(t *testing.T) {
	r := NewResult()
	r.Callbacks = []string{"cb1"}
	r.Asserts = 1
	r.Final.HFRunning = true
	r.Final.HFRequests = 2

	assert.NoError(t, checkAssertion(r, Assertion{Type: AssertCallbacks, Callbacks: []string{"cb1"}}))
	assert.Error(t, checkAssertion(r, Assertion{Type: AssertCallbacks, Callbacks: []string{}}))
	assert.NoError(t, checkAssertion(r, Assertion{Type: AssertHFRunning, Value: boolPtr(true)}))
	assert.Error(t, checkAssertion(r, Assertion{Type: AssertInitialized, Value: boolPtr(true)}))
	assert.NoError(t, checkAssertion(r, Assertion{Type: AssertHFRequests, Count: intPtr(2)}))
	assert.NoError(t, checkAssertion(r, Assertion{Type: AssertAsserts, Count: intPtr(1)}))
}
