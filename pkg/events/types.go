package events

import "encoding/json"

// Event name constants
const (
	CycleCompleted      = "cycle.completed"
	StateChanged        = "loop.state"
	CalibrationReloaded = "calibration.reloaded"
)

// Event is a generic SSE event from daemon.
type Event struct {
	Name string          // SSE event name
	Data json.RawMessage // Raw JSON payload
}

// StateChangedEvent is the typed payload for loop.state.
type StateChangedEvent struct {
	From string `json:"from"`
	To   string `json:"to"`
	Ts   int64  `json:"ts"`
}

// CycleCompletedEvent is the typed payload for cycle.completed.
type CycleCompletedEvent struct {
	Outcome string `json:"outcome"`
	Stage   string `json:"stage,omitempty"`
	Error   string `json:"error,omitempty"`
	Row     []any  `json:"row,omitempty"`
	Ts      int64  `json:"ts"`
}

// DecodeAs decodes the event payload into the caller-specified generic type T.
// If Data is empty, it returns the zero value of T with a nil error.
//
// Example:
//
//	payload, err := events.DecodeAs[events.CycleCompletedEvent](ev)
//	if err != nil { /* handle */ }
//	fmt.Println(payload.Outcome)
func DecodeAs[T any](e Event) (T, error) {
	var zero T
	if len(e.Data) == 0 {
		return zero, nil
	}
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return zero, err
	}
	return v, nil
}

// CalibrationReloadedEvent is the typed payload for calibration.reloaded.
type CalibrationReloadedEvent struct {
	Sensors []string `json:"sensors"`
	Ts      int64    `json:"ts"`
}
