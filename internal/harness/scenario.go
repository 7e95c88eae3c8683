package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/mpsl/internal/clock"
	"github.com/roach88/mpsl/internal/irq"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Session is the session id prefix. Defaults to Name.
	Session string `yaml:"session,omitempty"`

	// Temperature is the initial die temperature in 0.25 °C units.
	Temperature int32 `yaml:"temperature,omitempty"`

	// Steps are executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the trace and final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one operation. Which fields apply depends on Op.
type Step struct {
	Op string `yaml:"op"`

	// LFClock, Signal and Handler are used by initialize. A nil LFClock
	// selects the default configuration. Handler is "default", "other" or
	// "none".
	LFClock *clock.LFConfig `yaml:"lf_clock,omitempty"`
	Signal  *irq.Signal     `yaml:"signal,omitempty"`
	Handler string          `yaml:"handler,omitempty"`

	// Callback names the ready callback registered by hf_request. Empty
	// registers none.
	Callback string `yaml:"callback,omitempty"`

	// Line and Count are used by irq.
	Line  string `yaml:"line,omitempty"`
	Count int    `yaml:"count,omitempty"`

	// Value is used by set_temperature.
	Value int32 `yaml:"value,omitempty"`

	// ExpectError is the expected error code (e.g. ALREADY_INITIALIZED).
	// Empty expects success.
	ExpectError string `yaml:"expect_error,omitempty"`

	// ExpectWork is the number of items process_pending must run.
	ExpectWork *int `yaml:"expect_work,omitempty"`
}

// Step operations.
const (
	OpInitialize          = "initialize"
	OpUninitialize        = "uninitialize"
	OpHFRequest           = "hf_request"
	OpHFRelease           = "hf_release"
	OpIRQ                 = "irq"
	OpProcessPending      = "process_pending"
	OpCompleteHFStart     = "complete_hf_start"
	OpCompleteLFStart     = "complete_lf_start"
	OpCompleteCalibration = "complete_calibration"
	OpSetTemperature      = "set_temperature"
)

var validOps = map[string]bool{
	OpInitialize:          true,
	OpUninitialize:        true,
	OpHFRequest:           true,
	OpHFRelease:           true,
	OpIRQ:                 true,
	OpProcessPending:      true,
	OpCompleteHFStart:     true,
	OpCompleteLFStart:     true,
	OpCompleteCalibration: true,
	OpSetTemperature:      true,
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": Event appears in the trace
	// - "trace_order": Events appear in order (not necessarily adjacent)
	// - "trace_count": Event appears exactly Count times
	// - "callbacks": ready callbacks ran exactly as Callbacks
	// - "hf_running", "initialized": final state equals Value
	// - "hf_requests", "asserts": final counter equals Count
	Type string `yaml:"type"`

	// Event is "kind:subject" (trace_contains, trace_count).
	Event string `yaml:"event,omitempty"`

	// Events is the expected order (trace_order).
	Events []string `yaml:"events,omitempty"`

	// Callbacks is the expected callback order (callbacks).
	Callbacks []string `yaml:"callbacks,omitempty"`

	Count *int  `yaml:"count,omitempty"`
	Value *bool `yaml:"value,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertCallbacks     = "callbacks"
	AssertHFRunning     = "hf_running"
	AssertInitialized   = "initialized"
	AssertHFRequests    = "hf_requests"
	AssertAsserts       = "asserts"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, st *Step) error {
	if st.Op == "" {
		return fmt.Errorf("steps[%d]: op is required", index)
	}
	if !validOps[st.Op] {
		return fmt.Errorf("steps[%d]: unknown op %q", index, st.Op)
	}

	switch st.Op {
	case OpInitialize:
		if st.LFClock != nil {
			if err := st.LFClock.Validate(); err != nil && st.ExpectError == "" {
				return fmt.Errorf("steps[%d]: lf_clock: %w", index, err)
			}
		}
		switch st.Handler {
		case "", handlerDefault, handlerOther, handlerNone:
		default:
			return fmt.Errorf("steps[%d]: unknown handler %q", index, st.Handler)
		}
	case OpIRQ:
		if _, err := irq.ParseLine(st.Line); err != nil {
			return fmt.Errorf("steps[%d]: %w", index, err)
		}
		if st.Count < 0 {
			return fmt.Errorf("steps[%d]: count must not be negative", index)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Event == "" || a.Count == nil {
			return fmt.Errorf("assertions[%d]: event and count are required for trace_count", index)
		}
	case AssertCallbacks:
		if a.Callbacks == nil {
			return fmt.Errorf("assertions[%d]: callbacks list is required (use [] for none)", index)
		}
	case AssertHFRunning, AssertInitialized:
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for %s", index, a.Type)
		}
	case AssertHFRequests, AssertAsserts:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for %s", index, a.Type)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown type %q", index, a.Type)
	}
	return nil
}
