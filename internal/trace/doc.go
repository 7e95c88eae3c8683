// Package trace records and persists what the service layer did.
//
// A trace is the ordered list of Events stamped by the dispatcher's logical
// sequence: interrupts, deferred work, low-priority executions, clock
// transitions and contract violations. Buffer collects events in memory
// while the layer runs; Store persists sessions and their events in SQLite
// for later inspection with the trace command.
//
// Events are always read back in seq order, so two runs of the same scenario
// produce byte-identical traces.
package trace
