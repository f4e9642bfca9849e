package sensor

import (
	"errors"

	"github.com/wqlog/wqlog/pkg/calibration"
)

const (
	// DefaultReferenceVoltage matches the ADS1115 ±4.096 V gain setting.
	DefaultReferenceVoltage = 4.096
	// DefaultResolution is the positive range of the ADS1115 16-bit output.
	DefaultResolution = 32768
)

// Analog converts raw counts into volts: reference × raw / resolution.
type Analog struct {
	name       string
	raw        RawReader
	reference  float64
	resolution float64
}

var _ calibration.VoltageSource = (*Analog)(nil)

// NewAnalog returns an analog input. Zero reference or resolution fall back
// to the ADS1115 defaults.
func NewAnalog(name string, raw RawReader, reference, resolution float64) *Analog {
	if reference == 0 {
		reference = DefaultReferenceVoltage
	}
	if resolution == 0 {
		resolution = DefaultResolution
	}
	return &Analog{
		name:       name,
		raw:        raw,
		reference:  reference,
		resolution: resolution,
	}
}

func (a *Analog) Voltage() (float64, error) {
	raw, err := a.raw.ReadRaw()
	if err != nil {
		var rerr *ReadError
		if errors.As(err, &rerr) {
			return 0, err
		}
		return 0, &ReadError{Sensor: a.name, Err: err}
	}
	return a.reference * float64(raw) / a.resolution, nil
}

// Calibrated reads a probe through its calibration engine.
type Calibrated struct {
	engine *calibration.Engine
}

var _ Reader = (*Calibrated)(nil)

func NewCalibrated(engine *calibration.Engine) *Calibrated {
	return &Calibrated{engine: engine}
}

func (c *Calibrated) Name() string { return c.engine.Name() }

func (c *Calibrated) Read() (float64, error) {
	return c.engine.ReadPhysicalValue()
}
