// Package mpsl is the multiprotocol service layer: it arbitrates one radio
// and its clocks among protocol stacks that do not coordinate with each
// other.
//
// A Layer is the single state object for one device. It is created once with
// the device's peripherals and then moves between two states:
//
//	Uninitialized --Initialize--> Initialized --Uninitialize--> Uninitialized
//
// Initialize may be called by every stack. The first call captures the LF
// clock configuration, the low-priority signal and the assert handler; later
// calls succeed only when they pass the same parameters.
//
// EXECUTION CONTEXTS:
//
// The four IRQ* methods are interrupt entry points and run in the high tier
// (see package irq). Everything else, including ProcessPending and the HF
// clock API, belongs to the low tier and must be called from one logical flow
// at a time. HF ready callbacks are always run by ProcessPending.
//
// ERRORS:
//
// Expected conditions (configuration conflict, invalid configuration, use
// before initialization) are returned as *Error values. Caller contract
// violations are also reported to the assert handler, which is expected to
// stop the system; behavior after an assert is undefined.
package mpsl
