package types

import (
	"time"

	"github.com/wqlog/wqlog/pkg/calibration"
)

// Status is returned by the daemon's /status endpoint.
type Status struct {
	State              LoopState     `json:"state"`
	Driver             string        `json:"driver"`
	Target             string        `json:"target"`
	Interval           time.Duration `json:"interval"`
	LastResult         *CycleResult  `json:"lastResult,omitempty"`
	LastDelivered      *time.Time    `json:"lastDelivered,omitempty"`
	ConsecutiveSkipped int           `json:"consecutiveSkipped"`
	History            []CycleResult `json:"history,omitempty"`
}

// Calibration is returned by the daemon's /calibration/:sensor endpoint.
type Calibration struct {
	Sensor     string             `json:"sensor"`
	File       string             `json:"file"`
	Calibrated bool               `json:"calibrated"`
	State      *calibration.State `json:"state,omitempty"`
	// Voltage and Value are a live sample taken while serving the request.
	Voltage float64 `json:"voltage,omitempty"`
	Value   float64 `json:"value,omitempty"`
	Error   string  `json:"error,omitempty"`
}
