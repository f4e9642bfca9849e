package types

import (
	"time"

	"github.com/wqlog/wqlog/pkg/sheets"
)

// LoopState is the phase the acquisition loop is in.
type LoopState string

const (
	LoopIdle       LoopState = "idle"
	LoopSampling   LoopState = "sampling"
	LoopDelivering LoopState = "delivering"
	LoopSleeping   LoopState = "sleeping"
)

// Outcome is how a cycle ended.
type Outcome string

const (
	// OutcomeDelivered means the row was appended.
	OutcomeDelivered Outcome = "delivered"
	// OutcomeSkipped means a sensor or the sheet failed and the row was dropped.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFailed means the loop stopped.
	OutcomeFailed Outcome = "failed"
)

// CycleResult describes one pass of the loop.
// This struct is shared between the daemon and client packages.
type CycleResult struct {
	Outcome    Outcome                `json:"outcome"`
	Stage      string                 `json:"stage,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Row        *sheets.MeasurementRow `json:"row,omitempty"`
	Values     []any                  `json:"values,omitempty"`
	StartedAt  time.Time              `json:"startedAt"`
	FinishedAt time.Time              `json:"finishedAt"`
}

// Duration is how long the cycle took.
func (r CycleResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
