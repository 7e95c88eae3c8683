// Package config loads the YAML configuration for a simulated device.
//
// A configuration file is checked twice: structurally against the embedded
// CUE schema (types, ranges, unknown keys) and then semantically by Validate
// (LF clock field invariants). Omitted values take their defaults.
//
//	lf_clock:
//	  source: rc
//	  rc_ctiv: 16
//	  rc_temp_ctiv: 2
//	low_priority_signal: 5
//	simulation:
//	  hf_startup: 2ms
//	  calibration_time: 1ms
//	trace:
//	  path: trace.db
//	log:
//	  level: info
package config
