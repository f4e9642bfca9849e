package calibration

import (
	"errors"
	"fmt"
)

// ErrNotCalibrated is returned when a value is requested before any
// calibration state has been loaded or computed.
var ErrNotCalibrated = errors.New("sensor is not calibrated")

// Error reports degenerate calibration input. The calibration has to be run
// again with better reference placements.
type Error struct {
	Sensor string
	msg    string
}

func (e *Error) Error() string {
	if e.Sensor == "" {
		return "calibration failed: " + e.msg
	}
	return fmt.Sprintf("calibration of %s failed: %s", e.Sensor, e.msg)
}

func newError(format string, args ...any) *Error {
	return &Error{msg: fmt.Sprintf(format, args...)}
}
