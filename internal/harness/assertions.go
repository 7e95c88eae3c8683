package harness

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/mpsl/internal/trace"
)

// AssertionError is returned when an assertion fails.
// It includes the full trace to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []trace.Event
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		buf.Write(trace.Text(e.Trace))
	}
	return buf.String()
}

func checkAssertion(r *Result, a Assertion) error {
	switch a.Type {
	case AssertTraceContains:
		return assertTraceContains(r.Trace, a)
	case AssertTraceOrder:
		return assertTraceOrder(r.Trace, a)
	case AssertTraceCount:
		return assertTraceCount(r.Trace, a)
	case AssertCallbacks:
		if !reflect.DeepEqual(r.Callbacks, a.Callbacks) {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%v", a.Callbacks),
				Actual:   fmt.Sprintf("%v", r.Callbacks),
			}
		}
	case AssertHFRunning:
		return assertBool(a, r.Final.HFRunning)
	case AssertInitialized:
		return assertBool(a, r.Final.Initialized)
	case AssertHFRequests:
		return assertCount(a, int(r.Final.HFRequests))
	case AssertAsserts:
		return assertCount(a, r.Asserts)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

// assertTraceContains checks that some event is labeled a.Event.
func assertTraceContains(events []trace.Event, a Assertion) error {
	for _, e := range events {
		if e.Label() == a.Event {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: a.Event,
		Actual:   "not found in trace",
		Trace:    events,
	}
}

// assertTraceOrder checks that a.Events appear in order. Events don't need
// to be consecutive and each expected event consumes the first match after
// the previous one.
func assertTraceOrder(events []trace.Event, a Assertion) error {
	next := 0
	for _, e := range events {
		if next < len(a.Events) && e.Label() == a.Events[next] {
			next++
		}
	}
	if next == len(a.Events) {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: strings.Join(a.Events, " -> "),
		Actual:   fmt.Sprintf("%s not found after %v", a.Events[next], a.Events[:next]),
		Trace:    events,
	}
}

// assertTraceCount checks that a.Event appears exactly *a.Count times.
func assertTraceCount(events []trace.Event, a Assertion) error {
	n := 0
	for _, e := range events {
		if e.Label() == a.Event {
			n++
		}
	}
	if n == *a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceCount,
		Expected: fmt.Sprintf("%s x%d", a.Event, *a.Count),
		Actual:   fmt.Sprintf("x%d", n),
		Trace:    events,
	}
}

func assertBool(a Assertion, got bool) error {
	if got == *a.Value {
		return nil
	}
	return &AssertionError{Type: a.Type, Expected: fmt.Sprint(*a.Value), Actual: fmt.Sprint(got)}
}

func assertCount(a Assertion, got int) error {
	if got == *a.Count {
		return nil
	}
	return &AssertionError{Type: a.Type, Expected: fmt.Sprint(*a.Count), Actual: fmt.Sprint(got)}
}
