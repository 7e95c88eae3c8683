package cli

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mpsl/internal/config"
)

func TestSetupLoggingStderr(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	buf := &bytes.Buffer{}
	cfg := config.Default().Log
	cfg.Format = "json"

	closer, err := setupLogging(cfg, false, buf)
	require.NoError(t, err)
	defer closer.Close()

	slog.Debug("hidden")
	slog.Info("shown", "line", "radio")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"line":"radio"`)
}

func TestSetupLoggingVerbose(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	buf := &bytes.Buffer{}
	closer, err := setupLogging(config.Default().Log, true, buf)
	require.NoError(t, err)
	defer closer.Close()

	slog.Debug("drain")
	assert.Contains(t, buf.String(), "msg=drain")
}

func TestSetupLoggingFile(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	path := filepath.Join(t.TempDir(), "mpsl.log")
	cfg := config.Default().Log
	cfg.File = path

	stderr := &bytes.Buffer{}
	closer, err := setupLogging(cfg, false, stderr)
	require.NoError(t, err)

	slog.Warn("calibration skipped")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "calibration skipped")
	assert.Empty(t, stderr.String())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
