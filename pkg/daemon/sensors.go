package daemon

import (
	"context"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/wqlog/wqlog/pkg/calibration"
	"github.com/wqlog/wqlog/pkg/config"
	"github.com/wqlog/wqlog/pkg/sensor"
	"github.com/wqlog/wqlog/pkg/storage"
)

// Nominal reference voltages used to seed the simulated probes, low to high.
var (
	simulatedPHVolts    = [3]float64{2.03, 1.50, 0.97}
	simulatedDepthVolts = [3]float64{0.5, 1.5, 2.7}
)

// Hardware is the opened probe set with its calibration engines.
type Hardware struct {
	PH          *calibration.Engine
	Depth       *calibration.Engine
	Temperature sensor.Reader

	closer func() error
}

// Probes returns the readers sampled by the loop.
func (h *Hardware) Probes() Probes {
	return Probes{
		Temperature: h.Temperature,
		Depth:       sensor.NewCalibrated(h.Depth),
		PH:          sensor.NewCalibrated(h.PH),
	}
}

// Engines returns the calibration engines by sensor name.
func (h *Hardware) Engines() map[string]*calibration.Engine {
	return map[string]*calibration.Engine{
		h.PH.Name():    h.PH,
		h.Depth.Name(): h.Depth,
	}
}

// Close releases the converter.
func (h *Hardware) Close() error {
	if h.closer == nil {
		return nil
	}
	return h.closer()
}

// LoadCalibrations loads every stored calibration. With the simulated driver
// missing calibrations are seeded with nominal values, otherwise the operator
// is walked through them with p.
func (h *Hardware) LoadCalibrations(ctx context.Context, driver string, p calibration.Prompter) error {
	seeds := map[*calibration.Engine][3]float64{
		h.PH:    simulatedPHVolts,
		h.Depth: simulatedDepthVolts,
	}
	for _, e := range []*calibration.Engine{h.PH, h.Depth} {
		if driver != config.DriverSimulated {
			if err := e.LoadOrCalibrate(ctx, p); err != nil {
				return err
			}
			continue
		}

		ok, err := e.Load()
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		v := seeds[e]
		if err := e.Restore(v[0], v[1], v[2]); err != nil {
			return err
		}
		logrus.WithField("sensor", e.Name()).Info("seeded nominal calibration for simulated probe")
	}
	return nil
}

// OpenHardware opens the probes described by c. Calibration files are kept in
// store. Calibrations are not loaded.
func OpenHardware(c config.Config, store storage.Store) (*Hardware, error) {
	s := c.Sensors

	var (
		phRaw, depthRaw sensor.RawReader
		temp            sensor.Reader
		closer          func() error
	)

	switch s.Driver {
	case config.DriverSimulated:
		seed := time.Now().UnixNano()
		phRaw = sensor.NewSimulated(countsFor(1.5, s.PH), countsFor(0.3, s.PH), countsFor(0.01, s.PH), seed)
		depthRaw = sensor.NewSimulated(countsFor(1.5, s.Depth), countsFor(0.6, s.Depth), countsFor(0.01, s.Depth), seed+1)
		temp = sensor.NewSimulated(18, 3, 0.2, seed+2)
	case config.DriverADS1115:
		adc, err := sensor.OpenADS1115(s.I2CBus, s.I2CAddress)
		if err != nil {
			return nil, err
		}
		closer = adc.Close
		if phRaw, err = adc.Channel(s.PH.Channel); err != nil {
			_ = adc.Close()
			return nil, pkgerrors.Wrap(err, "failed to open pH channel")
		}
		if depthRaw, err = adc.Channel(s.Depth.Channel); err != nil {
			_ = adc.Close()
			return nil, pkgerrors.Wrap(err, "failed to open depth channel")
		}
		temp = sensor.NewTemperature(afero.NewOsFs(), s.Temperature.W1Dir, s.Temperature.Device)
	default:
		return nil, &config.Error{Field: "sensors.driver", Reason: "unknown driver " + s.Driver}
	}

	ph := sensor.NewAnalog("ph", phRaw, s.PH.ReferenceVoltage, s.PH.Resolution)
	depth := sensor.NewAnalog("depth", depthRaw, s.Depth.ReferenceVoltage, s.Depth.Resolution)

	h := &Hardware{
		PH:          calibration.NewEngine("ph", calibration.PH, ph, store, calibration.WithFile(s.PH.CalibrationFile)),
		Depth:       calibration.NewEngine("depth", calibration.Depth, depth, store, calibration.WithFile(s.Depth.CalibrationFile)),
		Temperature: temp,
		closer:      closer,
	}
	logrus.WithFields(logrus.Fields{
		"driver":    s.Driver,
		"phFile":    h.PH.File(),
		"depthFile": h.Depth.File(),
	}).Debug("probes opened")
	return h, nil
}

// countsFor converts volts to converter counts for the analog input a.
func countsFor(volts float64, a config.AnalogConfig) float64 {
	ref, res := a.ReferenceVoltage, a.Resolution
	if ref == 0 {
		ref = sensor.DefaultReferenceVoltage
	}
	if res == 0 {
		res = sensor.DefaultResolution
	}
	return volts * res / ref
}
