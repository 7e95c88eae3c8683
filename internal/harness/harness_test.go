package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func TestRun_GoldenScenarios(t *testing.T) {
	for _, name := range []string{"hf_request_release", "init_conflict", "rc_calibration"} {
		t.Run(name, func(t *testing.T) {
			result, err := RunWithGolden(t, loadTestScenario(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass)
		})
	}
}

func TestRun_AllScenariosPass(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			s, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	s := loadTestScenario(t, "rc_calibration")

	r1, err := Run(s)
	require.NoError(t, err)
	r2, err := Run(s)
	require.NoError(t, err)

	assert.Equal(t, r1.Trace, r2.Trace)
}

func TestRun_StepFailures(t *testing.T) {
	work := 3
	s := &Scenario{
		Name:        "failing",
		Description: "every step misses its expectation",
		Steps: []Step{
			{Op: OpHFRequest},
			{Op: OpInitialize, ExpectError: "ALREADY_INITIALIZED"},
			{Op: OpCompleteCalibration},
			{Op: OpProcessPending, ExpectWork: &work},
		},
		Assertions: []Assertion{
			{Type: AssertInitialized, Value: boolPtr(false)},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 5)
	assert.Contains(t, result.Errors[0], "NOT_INITIALIZED")
	assert.Contains(t, result.Errors[1], "succeeded, expected ALREADY_INITIALIZED")
	assert.Contains(t, result.Errors[2], "no calibration in progress")
	assert.Contains(t, result.Errors[3], "ran 0 work items, expected 3")
	assert.Contains(t, result.Errors[4], "Assertion failed: initialized")
}

func TestRun_InvalidScenario(t *testing.T) {
	_, err := Run(&Scenario{Name: "x"})
	assert.Error(t, err)
}

func boolPtr(v bool) *bool { return &v }

func intPtr(v int) *int { return &v }
