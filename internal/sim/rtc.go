package sim

import (
	"context"
	"time"

	"github.com/roach88/mpsl/internal/clock"
)

// RTC drives the calibration timer interrupt at a fixed period.
type RTC struct {
	period time.Duration
	irq    func()
}

// NewRTC creates a timer raising irq every period. A zero period uses
// clock.CalibrationTick.
func NewRTC(period time.Duration, irq func()) *RTC {
	if period <= 0 {
		period = clock.CalibrationTick
	}
	return &RTC{period: period, irq: irq}
}

// Run raises the interrupt until ctx is done.
func (r *RTC) Run(ctx context.Context) error {
	t := time.NewTicker(r.period)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			r.irq()
		}
	}
}
