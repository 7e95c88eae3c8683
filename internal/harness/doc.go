// Package harness runs conformance scenarios against the service layer.
//
// A scenario is a YAML file listing layer operations and simulated hardware
// completions in order, followed by assertions on the recorded trace, the
// ready callbacks that ran and the final layer state. Every scenario runs on
// a fresh layer with manual-mode peripherals and numbered session ids, so the
// trace is deterministic and can be compared against a golden file.
//
//	name: hf_request_release
//	description: two requests share one oscillator start
//	steps:
//	  - op: initialize
//	    lf_clock: {source: xtal}
//	  - op: hf_request
//	    callback: cb1
//	  - op: complete_hf_start
//	  - op: process_pending
//	assertions:
//	  - type: callbacks
//	    callbacks: [cb1]
package harness
