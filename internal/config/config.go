package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/mpsl/internal/clock"
	"github.com/roach88/mpsl/internal/irq"
)

//go:embed schema.cue
var schemaCUE string

// DefaultSignal is the low-priority software interrupt used when none is
// configured.
const DefaultSignal irq.Signal = 5

// Config is a device configuration.
type Config struct {
	// LFClock is nil for the layer's default LF clock configuration.
	LFClock           *clock.LFConfig `yaml:"lf_clock,omitempty" json:"lf_clock,omitempty"`
	LowPrioritySignal irq.Signal      `yaml:"low_priority_signal" json:"low_priority_signal"`
	Simulation        Simulation      `yaml:"simulation" json:"simulation"`
	Trace             Trace           `yaml:"trace" json:"trace"`
	Log               Log             `yaml:"log" json:"log"`
}

// Simulation configures the simulated peripherals.
type Simulation struct {
	HFStartup       time.Duration `yaml:"hf_startup" json:"hf_startup"`
	LFStartup       time.Duration `yaml:"lf_startup" json:"lf_startup"`
	CalibrationTime time.Duration `yaml:"calibration_time" json:"calibration_time"`
	RTCPeriod       time.Duration `yaml:"rtc_period" json:"rtc_period"`
	RunFor          time.Duration `yaml:"run_for" json:"run_for"`
	Temperature     int32         `yaml:"temperature" json:"temperature"`
}

// Trace configures trace persistence. An empty Path disables it.
type Trace struct {
	Path  string `yaml:"path" json:"path,omitempty"`
	Label string `yaml:"label" json:"label,omitempty"`
}

// Log configures logging. An empty File logs to stderr.
type Log struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"`
	File       string `yaml:"file" json:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" json:"max_age_days"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

// Default returns the configuration used for omitted values.
func Default() Config {
	return Config{
		LowPrioritySignal: DefaultSignal,
		Simulation: Simulation{
			HFStartup:       2 * time.Millisecond,
			LFStartup:       time.Millisecond,
			CalibrationTime: time.Millisecond,
			RTCPeriod:       clock.CalibrationTick,
			RunFor:          2 * time.Second,
			Temperature:     100,
		},
		Log: Log{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates a configuration document.
func Parse(data []byte) (*Config, error) {
	if err := checkSchema(data); err != nil {
		return nil, err
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks semantic constraints the schema cannot express.
func (c *Config) Validate() error {
	if c.LFClock != nil {
		if err := c.LFClock.Validate(); err != nil {
			return fmt.Errorf("lf_clock: %w", err)
		}
	}
	if c.Simulation.RTCPeriod < 0 || c.Simulation.HFStartup < 0 ||
		c.Simulation.LFStartup < 0 || c.Simulation.CalibrationTime < 0 {
		return fmt.Errorf("simulation: durations must not be negative")
	}
	return nil
}

// EffectiveLF returns the LF clock configuration the layer will use.
func (c *Config) EffectiveLF() clock.LFConfig {
	return clock.Effective(c.LFClock)
}

// checkSchema validates the raw document against the CUE schema.
func checkSchema(data []byte) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse YAML: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}

	doc, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode for schema check: %w", err)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	value := ctx.CompileBytes(doc, cue.Filename("config.json"))
	if err := value.Err(); err != nil {
		return fmt.Errorf("load document: %w", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return nil
}
