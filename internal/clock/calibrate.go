package clock

// TempChangeThreshold is the temperature delta, in 0.25 °C units, that
// counts as a temperature change (0.5 °C).
const TempChangeThreshold = 2

// Calibrator schedules RC oscillator calibration.
//
// It is driven by calibration timer ticks (one per 0.25 s) and decides at the
// end of every interval whether a calibration is due. It also tracks the
// request/run state of the calibration so that a calibration is started only
// once the HF oscillator it depends on is running.
//
// Calibrator is not safe for concurrent use; callers serialize access.
type Calibrator struct {
	interval     uint8
	tempInterval uint8

	ticks      uint8
	sinceLast  int
	lastTemp   int32
	calibrated bool

	pending bool
	running bool
}

// NewCalibrator returns a calibrator for cfg. It is disabled unless the
// source is RC with a non-zero interval.
func NewCalibrator(cfg LFConfig) *Calibrator {
	c := &Calibrator{}
	if cfg.Source == SourceRC {
		c.interval = cfg.RCInterval
		c.tempInterval = cfg.RCTempInterval
	}
	return c
}

// Enabled reports whether periodic calibration is configured.
func (c *Calibrator) Enabled() bool {
	return c.interval > 0
}

// Tick advances the calibration timer by one tick and reports whether an
// interval just elapsed.
func (c *Calibrator) Tick() bool {
	if !c.Enabled() {
		return false
	}
	c.ticks++
	if c.ticks < c.interval {
		return false
	}
	c.ticks = 0
	return true
}

// Decide is called once per elapsed interval with the current temperature
// and reports whether the oscillator must be calibrated now.
// The first decision always calibrates.
func (c *Calibrator) Decide(temp int32) bool {
	c.sinceLast++

	changed := !c.calibrated || abs32(temp-c.lastTemp) >= TempChangeThreshold

	var due bool
	switch c.tempInterval {
	case 0:
		due = true
	case 1:
		due = changed
	default:
		due = changed || c.sinceLast >= int(c.tempInterval)
	}

	if due {
		c.sinceLast = 0
		c.lastTemp = temp
		c.calibrated = true
	}
	return due
}

// Request marks a calibration as wanted. Returns false if one is already
// pending or running.
func (c *Calibrator) Request() bool {
	if c.pending || c.running {
		return false
	}
	c.pending = true
	return true
}

// Pending reports whether a requested calibration has not started yet.
func (c *Calibrator) Pending() bool {
	return c.pending
}

// Running reports whether a calibration is in progress.
func (c *Calibrator) Running() bool {
	return c.running
}

// Start moves a pending calibration to running. Returns false if nothing
// was pending.
func (c *Calibrator) Start() bool {
	if !c.pending {
		return false
	}
	c.pending = false
	c.running = true
	return true
}

// Done ends a running calibration. Returns false if none was running.
func (c *Calibrator) Done() bool {
	if !c.running {
		return false
	}
	c.running = false
	return true
}

// Reset clears tick, decision and run state.
func (c *Calibrator) Reset() {
	*c = Calibrator{interval: c.interval, tempInterval: c.tempInterval}
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
