package mpsl

import "reflect"

// AssertHandler is notified when the layer detects a broken caller contract
// or an internal inconsistency. It receives the source location of the check.
//
// The handler is expected not to return control to normal operation (reset,
// halt or test failure). The layer never calls it concurrently with itself.
//
// Assert runs with the layer's assert lock held and, for violations found in
// an interrupt handler, inside the high tier. It must not call back into the
// Layer: Initialize, Uninitialize, the IRQ entry points and the HF API can all
// block on one of those locks and deadlock.
type AssertHandler interface {
	Assert(file string, line uint32)
}

// AssertFunc adapts a function to AssertHandler.
type AssertFunc func(file string, line uint32)

// Assert calls f.
func (f AssertFunc) Assert(file string, line uint32) {
	f(file, line)
}

// sameAssertHandler reports whether a and b denote the same handler.
// Function handlers compare by code pointer. Comparable handlers compare with
// ==; the rest (structs holding slices or maps) compare deeply.
func sameAssertHandler(a, b AssertHandler) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	if va.Kind() == reflect.Func {
		return va.Pointer() == vb.Pointer()
	}
	if !va.Comparable() || !vb.Comparable() {
		return reflect.DeepEqual(a, b)
	}
	return va.Equal(vb)
}
