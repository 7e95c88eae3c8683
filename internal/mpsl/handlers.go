package mpsl

import (
	"fmt"
	"log/slog"

	"github.com/roach88/mpsl/internal/clock"
	"github.com/roach88/mpsl/internal/irq"
)

// Work item names.
const (
	workHFReady          = "hf_ready"
	workCalibrationCheck = "calibration_check"
	workRadioHook        = "radio_hook"
)

// onRadio runs the radio hook. While its continuation is pending the radio
// is still active, so the HF oscillator, if on, is held until it has run.
func (l *Layer) onRadio() {
	hook := l.hooks[irq.LineRadio]
	if hook == nil {
		return
	}
	cont := hook()
	if cont == nil {
		return
	}
	if !l.hf.HoldIfOn() {
		l.disp.Defer(workRadioHook, irq.LineRadio, cont)
		return
	}
	epoch := l.epoch.Load()
	l.disp.Defer(workRadioHook, irq.LineRadio, func() {
		defer l.dropRadioHold(epoch)
		cont()
	})
}

// dropRadioHold runs in the low tier. Uninitialize clears every hold, so a
// continuation that tore the layer down has nothing left to drop.
func (l *Layer) dropRadioHold(epoch uint64) {
	l.disp.Mask(func() {
		if !l.initialized.Load() || l.epoch.Load() != epoch {
			return
		}
		if err := l.hf.Unhold(); err != nil {
			l.violation(fmt.Errorf("radio activity done: %w", err))
		}
	})
}

func (l *Layer) onTimer0() {
	l.runHook(irq.LineTimer0)
}

// onRTC0 counts calibration ticks and runs the protocol hook.
func (l *Layer) onRTC0() {
	if l.cal.Tick() {
		l.disp.Defer(workCalibrationCheck, irq.LineRTC0, l.checkCalibration)
	}
	l.runHook(irq.LineRTC0)
}

// onClock collects oscillator events.
func (l *Layer) onClock() {
	ev := l.periph.TakeEvents()

	if ev.Has(clock.EventHFStarted) {
		n := l.hf.Started()
		l.disp.Note(KindHFStarted, "hfclk", fmt.Sprintf("due=%d", n))
		l.startCalibration()
	}

	if ev.Has(clock.EventLFStarted) {
		l.disp.Note(KindLFStarted, "lfclk", l.lf.Source.String())
		slog.Debug("lf clock started", "source", l.lf.Source)
	}

	if ev.Has(clock.EventCalibrationDone) {
		if !l.cal.Done() {
			slog.Warn("calibration done event with no calibration running")
			return
		}
		if err := l.hf.Unhold(); err != nil {
			l.violation(fmt.Errorf("calibration done: %w", err))
			return
		}
		l.disp.Note(KindCalibration, "lfclk", "done")
		slog.Debug("rc calibration done")
	}
}

func (l *Layer) runHook(line irq.Line) {
	hook := l.hooks[line]
	if hook == nil {
		return
	}
	if cont := hook(); cont != nil {
		l.disp.Defer(line.String()+"_hook", line, cont)
	}
}

// scheduleReady is the arbiter's notify hook. Due callbacks run from the
// low tier.
func (l *Layer) scheduleReady() {
	l.disp.Defer(workHFReady, irq.LineClock, l.runReady)
}

func (l *Layer) runReady() {
	for _, ready := range l.hf.TakeReady() {
		l.disp.Note(KindHFReady, "app", "")
		ready()
	}
}

// checkCalibration runs in the low tier after a calibration interval elapsed.
func (l *Layer) checkCalibration() {
	temp := l.temperature()

	l.disp.Mask(func() {
		if !l.initialized.Load() || l.cal.Pending() || l.cal.Running() {
			return
		}
		if !l.cal.Decide(temp) {
			l.disp.Note(KindCalibration, "lfclk", fmt.Sprintf("skipped temp=%d", temp))
			return
		}

		l.cal.Request()
		l.hf.Hold()
		l.disp.Note(KindCalibration, "lfclk", fmt.Sprintf("requested temp=%d", temp))
		l.startCalibration()
	})
}

// startCalibration starts a requested calibration once HF is running.
// Runs in the high tier or under Mask.
func (l *Layer) startCalibration() {
	if !l.hf.IsRunning() || !l.cal.Start() {
		return
	}
	l.periph.Calibrate()
	l.disp.Note(KindCalibration, "lfclk", "started")
	slog.Debug("rc calibration started")
}

func (l *Layer) temperature() int32 {
	if l.thermo == nil {
		return 0
	}
	return l.thermo.Temperature()
}
