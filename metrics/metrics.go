// Package metrics defines the instrumentation surface of the engine.
package metrics

import "time"

type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}

// Counter names emitted by the engine.
const (
	CounterPaymentsCreated   = "payments_created"
	CounterPaymentsCompleted = "payments_completed"
	CounterPaymentsExpired   = "payments_expired"
	CounterPaymentsUnderpaid = "payments_underpaid"
	CounterSweepsSubmitted   = "sweeps_submitted"
	CounterSweepsDeferred    = "sweeps_deferred"
	CounterSweepsFailed      = "sweeps_failed"
	CounterSweepsConfirmed   = "sweeps_confirmed"
)

// Operation names for latency observations.
const (
	OpCheckStatus = "check_status"
	OpSweep       = "sweep"
	OpConfirm     = "confirm"
)
