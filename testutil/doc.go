// Package testutil provides testing utilities for streamkit subscription
// chains.
//
// # Core Components
//
// RecordingConsumer - a flow.Consumer that records every signal in delivery
// order:
//   - drive demand manually through Request/Cancel, or auto-request on
//     subscription with WithAutoRequest
//   - assert on Items, TerminalError, Completed, or the raw Signals slice
//   - WaitTerminal blocks until the subscription terminates
//
// ManualScheduler - a flow.Scheduler on virtual time:
//   - Schedule registers tasks against a virtual clock
//   - Advance fires due tasks deterministically, no real sleeping
//   - substitutes for flow.TimerScheduler in Interval and Retry tests
package testutil
