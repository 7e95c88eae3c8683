// Package clock owns the shared oscillators of the radio core.
//
// Two clock domains are modeled:
//
//   - The low-frequency (LF) clock runs for the whole session. Its source is
//     chosen once at initialization (LFConfig) and, for the RC source, is
//     periodically recalibrated according to the Calibrator policy.
//   - The high-frequency (HF) crystal oscillator is reference counted by the
//     Arbiter. Protocol stacks request and release it independently; the
//     oscillator runs while at least one request or internal hold is
//     outstanding.
//
// Readiness of the HF oscillator is never awaited. Callers register a
// ReadyFunc which the Arbiter hands to the deferral hook once the oscillator
// is observed running; the owner of the hook (the low-priority drain) invokes
// it. The Arbiter itself never runs caller code.
//
// Hardware access goes through the Peripheral interface. Implementations must
// not raise the clock interrupt synchronously from StartHF, StopHF, StartLF or
// Calibrate: the interrupt is delivered later, from another context.
package clock
