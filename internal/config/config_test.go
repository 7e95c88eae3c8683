package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mpsl/internal/clock"
	"github.com/roach88/mpsl/internal/irq"
)

func TestLoad_File(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "device.yaml"))
	require.NoError(t, err)

	require.NotNil(t, cfg.LFClock)
	assert.Equal(t, clock.LFConfig{Source: clock.SourceXTAL}, *cfg.LFClock)
	assert.Equal(t, irq.Signal(7), cfg.LowPrioritySignal)
	assert.Equal(t, 3*time.Millisecond, cfg.Simulation.HFStartup)
	assert.Equal(t, 500*time.Microsecond, cfg.Simulation.CalibrationTime)
	assert.Equal(t, int32(96), cfg.Simulation.Temperature)
	assert.Equal(t, clock.CalibrationTick, cfg.Simulation.RTCPeriod, "default kept")
	assert.Equal(t, "bench", cfg.Trace.Label)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 5, cfg.Log.MaxSizeMB)
	assert.Equal(t, 3, cfg.Log.MaxBackups, "default kept")
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "missing.yaml"))
	assert.Error(t, err)
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)

	assert.Nil(t, cfg.LFClock)
	assert.Equal(t, clock.DefaultLFConfig(), cfg.EffectiveLF())
	assert.Equal(t, DefaultSignal, cfg.LowPrioritySignal)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name:    "unknown top-level key",
			doc:     "radio: on\n",
			wantErr: "schema",
		},
		{
			name:    "unknown source",
			doc:     "lf_clock:\n  source: ceramic\n",
			wantErr: "schema",
		},
		{
			name:    "temp interval out of range",
			doc:     "lf_clock:\n  source: rc\n  rc_ctiv: 16\n  rc_temp_ctiv: 34\n",
			wantErr: "schema",
		},
		{
			name:    "calibration fields on xtal",
			doc:     "lf_clock:\n  source: xtal\n  rc_ctiv: 16\n",
			wantErr: "lf_clock",
		},
		{
			name:    "bad duration",
			doc:     "simulation:\n  hf_startup: soon\n",
			wantErr: "schema",
		},
		{
			name:    "bad log level",
			doc:     "log:\n  level: chatty\n",
			wantErr: "schema",
		},
		{
			name:    "malformed yaml",
			doc:     "lf_clock: [\n",
			wantErr: "parse YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParse_SynthSource(t *testing.T) {
	cfg, err := Parse([]byte("lf_clock:\n  source: synth\n"))
	require.NoError(t, err)
	assert.Equal(t, clock.LFConfig{Source: clock.SourceSynth}, cfg.EffectiveLF())
}
