// Package irq implements the two-tier interrupt model of the radio core.
//
// ARCHITECTURE:
//
// High tier:
// Four fixed interrupt lines (radio, RTC0, TIMER0, POWER/CLOCK) run at the
// same, highest priority. Dispatcher.Fire is the entry point a vector table
// (or a simulated peripheral) calls. Every handler runs while holding the
// high-priority lock, so handlers never preempt one another and a line is
// never re-entered. Handlers do the time-critical minimum and hand anything
// else to the low tier with Defer.
//
// Low tier:
// Deferred work items are appended to a FIFO queue and the configured
// software interrupt (Signal) is pended. The application observes the signal
// and calls Drain, which runs every queued item in enqueue order, exactly
// once. Low-priority code that must not interleave with a handler wraps the
// access in Mask, the hosted equivalent of disabling interrupts.
//
// Ordering:
// Work items and trace records are stamped from a single logical Sequence.
// Wall-clock time is never used for ordering.
//
// Lines are bound to handlers once, while disarmed. Arm enables all lines,
// Disarm disables them; a fire on a disarmed line is recorded and dropped.
package irq
