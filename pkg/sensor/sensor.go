// Package sensor reads the logger's probes: analog pH and depth probes behind
// an ADS1115 converter, and a DS18B20 temperature probe on the 1-wire bus.
package sensor

import (
	"fmt"
)

// Reader returns one reading in physical units.
type Reader interface {
	Read() (float64, error)
}

// RawReader returns one raw converter count.
type RawReader interface {
	ReadRaw() (int32, error)
}

// ReadError reports a failed hardware read. The acquisition loop treats it
// as recoverable and skips the cycle.
type ReadError struct {
	Sensor string
	Err    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("failed to read %s sensor: %v", e.Sensor, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}
