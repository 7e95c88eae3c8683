package sim

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/roach88/mpsl/internal/irq"
)

// SignalLine is the low-priority software interrupt. Pends coalesce: while
// one is outstanding, further pends only bump the counter.
type SignalLine struct {
	ch      chan irq.Signal
	pended  atomic.Int64
	handled atomic.Int64
}

var _ irq.Pender = (*SignalLine)(nil)

// NewSignalLine creates an idle signal line.
func NewSignalLine() *SignalLine {
	return &SignalLine{ch: make(chan irq.Signal, 1)}
}

// Pend raises the line. It never blocks.
func (s *SignalLine) Pend(sig irq.Signal) {
	s.pended.Add(1)
	select {
	case s.ch <- sig:
	default:
	}
}

// C delivers raised signals.
func (s *SignalLine) C() <-chan irq.Signal {
	return s.ch
}

// Pended returns how many times the line was raised.
func (s *SignalLine) Pended() int64 {
	return s.pended.Load()
}

// Handled returns how many times Serve ran process.
func (s *SignalLine) Handled() int64 {
	return s.handled.Load()
}

// Serve is the low-priority context: it calls process each time the line is
// raised until ctx is done. process is never called concurrently.
func (s *SignalLine) Serve(ctx context.Context, process func() int) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig := <-s.ch:
			n := process()
			s.handled.Add(1)
			slog.Debug("sim: low-priority signal handled", "signal", sig, "work", n)
		}
	}
}
