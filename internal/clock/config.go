package clock

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Source selects the low-frequency oscillator.
type Source uint8

const (
	// SourceRC is the internal RC oscillator. Needs periodic calibration.
	SourceRC Source = 0
	// SourceXTAL is the 32.768 kHz crystal oscillator.
	SourceXTAL Source = 1
	// SourceSynth synthesizes the LF clock from the HF crystal.
	SourceSynth Source = 2
)

// Recommended RC calibration settings: calibrate every 4 s when the
// temperature moves and at least every 8 s regardless.
const (
	RecommendedRCInterval     = 16
	RecommendedRCTempInterval = 2
)

// MaxRCTempInterval is the largest accepted RCTempInterval.
const MaxRCTempInterval = 33

// CalibrationTick is the unit of RCInterval.
const CalibrationTick = 250 * time.Millisecond

var sourceNames = map[Source]string{
	SourceRC:    "rc",
	SourceXTAL:  "xtal",
	SourceSynth: "synth",
}

// String returns the lower-case name used in configuration files.
func (s Source) String() string {
	if name, ok := sourceNames[s]; ok {
		return name
	}
	return fmt.Sprintf("source(%d)", uint8(s))
}

// ParseSource accepts a source name ("rc", "xtal", "synth") or its numeric value.
func ParseSource(text string) (Source, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	for src, name := range sourceNames {
		if text == name {
			return src, nil
		}
	}
	n, err := strconv.ParseUint(text, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("unknown LF clock source %q", text)
	}
	src := Source(n)
	if _, ok := sourceNames[src]; !ok {
		return 0, fmt.Errorf("unknown LF clock source %d", n)
	}
	return src, nil
}

// MarshalText implements encoding.TextMarshaler.
func (s Source) MarshalText() ([]byte, error) {
	if _, ok := sourceNames[s]; !ok {
		return nil, fmt.Errorf("unknown LF clock source %d", uint8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Source) UnmarshalText(text []byte) error {
	src, err := ParseSource(string(text))
	if err != nil {
		return err
	}
	*s = src
	return nil
}

// LFConfig is the low-frequency clock configuration captured at
// initialization.
//
// RCInterval is the calibration timer interval in 0.25 s units. RCTempInterval
// controls how often calibration is forced when the temperature is stable:
//
//	0     always calibrate
//	1     calibrate only when the temperature changed
//	2-33  calibrate when the temperature changed, and every RCTempInterval
//	      intervals regardless
//
// Both fields must be zero unless Source is SourceRC.
type LFConfig struct {
	Source         Source `yaml:"source" json:"source"`
	RCInterval     uint8  `yaml:"rc_ctiv" json:"rc_ctiv"`
	RCTempInterval uint8  `yaml:"rc_temp_ctiv" json:"rc_temp_ctiv"`
}

// DefaultLFConfig returns the configuration used when none is supplied.
func DefaultLFConfig() LFConfig {
	return LFConfig{
		Source:         SourceRC,
		RCInterval:     RecommendedRCInterval,
		RCTempInterval: RecommendedRCTempInterval,
	}
}

// Validate checks the source and the calibration field invariants.
func (c LFConfig) Validate() error {
	if _, ok := sourceNames[c.Source]; !ok {
		return fmt.Errorf("unknown LF clock source %d", uint8(c.Source))
	}
	if c.Source != SourceRC {
		if c.RCInterval != 0 || c.RCTempInterval != 0 {
			return fmt.Errorf("calibration fields must be zero for source %s (rc_ctiv=%d, rc_temp_ctiv=%d)",
				c.Source, c.RCInterval, c.RCTempInterval)
		}
		return nil
	}
	if c.RCTempInterval > MaxRCTempInterval {
		return fmt.Errorf("rc_temp_ctiv %d out of range [0, %d]", c.RCTempInterval, MaxRCTempInterval)
	}
	return nil
}

// CalibrationPeriod is the wall-clock length of one calibration interval.
// Zero means periodic calibration is disabled.
func (c LFConfig) CalibrationPeriod() time.Duration {
	if c.Source != SourceRC {
		return 0
	}
	return time.Duration(c.RCInterval) * CalibrationTick
}

// String renders the configuration as {source,ctiv,temp_ctiv}.
func (c LFConfig) String() string {
	return fmt.Sprintf("{%s,%d,%d}", c.Source, c.RCInterval, c.RCTempInterval)
}

// Effective resolves an optional configuration: nil means DefaultLFConfig.
func Effective(c *LFConfig) LFConfig {
	if c == nil {
		return DefaultLFConfig()
	}
	return *c
}
