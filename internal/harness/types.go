package harness

import (
	"github.com/roach88/mpsl/internal/mpsl"
	"github.com/roach88/mpsl/internal/trace"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every step met its expectation and
	// every assertion held.
	Pass bool `json:"pass"`

	// Trace contains every recorded event in seq order.
	Trace []trace.Event `json:"trace"`

	// Callbacks lists the ready callbacks that ran, in order.
	Callbacks []string `json:"callbacks"`

	// Asserts is how many times the assert handler was called.
	Asserts int `json:"asserts"`

	// Errors contains step and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Final is the layer state after the last step.
	Final mpsl.Stats `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Trace:     []trace.Event{},
		Callbacks: []string{},
		Errors:    []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
