package calibration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/wqlog/wqlog/pkg/storage"
)

// VoltageSource samples the probe's analog input.
type VoltageSource interface {
	Voltage() (float64, error)
}

// Engine owns the calibration of a single probe. It is the only writer of
// the probe's calibration file.
type Engine struct {
	name   string
	file   string
	ref    Reference
	source VoltageSource
	store  storage.Store
	clock  clock.Clock

	mu    sync.RWMutex
	state *State
}

// Option configures an Engine.
type Option func(*Engine)

// UseClock sets the clock used to stamp new calibrations.
func UseClock(c clock.Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithFile overrides the calibration file name, which defaults to
// "<name>_calibration.json".
func WithFile(file string) Option {
	return func(e *Engine) {
		if file != "" {
			e.file = file
		}
	}
}

// NewEngine returns an uncalibrated engine. Call Load or LoadOrCalibrate
// before reading values.
func NewEngine(name string, ref Reference, source VoltageSource, store storage.Store, opts ...Option) *Engine {
	e := &Engine{
		name:   name,
		file:   name + "_calibration.json",
		ref:    ref,
		source: source,
		store:  store,
		clock:  clock.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Name() string { return e.name }

func (e *Engine) File() string { return e.file }

func (e *Engine) Reference() Reference { return e.ref }

// State returns a copy of the active calibration.
func (e *Engine) State() (State, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.state == nil {
		return State{}, false
	}
	return *e.state, true
}

// Voltage samples the probe without applying the calibration.
func (e *Engine) Voltage() (float64, error) {
	v, err := e.source.Voltage()
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "failed to read %s voltage", e.name)
	}
	return v, nil
}

// ReadPhysicalValue samples the probe and converts the voltage with the
// active segment.
func (e *Engine) ReadPhysicalValue() (float64, error) {
	st, ok := e.State()
	if !ok {
		return 0, fmt.Errorf("%s: %w", e.name, ErrNotCalibrated)
	}

	v, err := e.Voltage()
	if err != nil {
		return 0, err
	}

	value := st.Value(v)
	logrus.WithFields(logrus.Fields{
		"sensor":  e.name,
		"voltage": v,
		"value":   value,
	}).Trace("converted probe voltage")
	return value, nil
}

// Load reads the persisted calibration and makes it active. It reports false
// when no calibration has been stored yet.
func (e *Engine) Load() (bool, error) {
	st, ok, err := e.ReadStored()
	if err != nil || !ok {
		return false, err
	}
	e.Activate(st)
	return true, nil
}

// ReadStored reads and validates the persisted calibration without touching
// the active one.
func (e *Engine) ReadStored() (State, bool, error) {
	ok, err := e.store.Exists(e.file)
	if err != nil {
		return State{}, false, err
	}
	if !ok {
		return State{}, false, nil
	}

	b, err := e.store.Read(e.file)
	if err != nil {
		return State{}, false, err
	}
	var st State
	if err := json.Unmarshal(b, &st); err != nil {
		return State{}, false, pkgerrors.Wrapf(err, "failed to parse calibration file %s", e.file)
	}
	if err := st.Validate(); err != nil {
		var cerr *Error
		if errors.As(err, &cerr) {
			cerr.Sensor = e.name
		}
		return State{}, false, pkgerrors.Wrapf(err, "invalid calibration file %s", e.file)
	}
	return st, true, nil
}

// Activate makes st the state used for conversions.
func (e *Engine) Activate(st State) {
	e.mu.Lock()
	e.state = &st
	e.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"sensor":    e.name,
		"file":      e.file,
		"threshold": st.ThresholdVoltage,
	}).Info("calibration loaded")
}

func (e *Engine) save(st State) error {
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to marshal %s calibration", e.name)
	}
	if err := e.store.Write(e.file, b); err != nil {
		return pkgerrors.Wrapf(err, "failed to persist %s calibration", e.name)
	}
	return nil
}

// Calibrate walks the operator through the low, mid and high reference
// placements, fits both segments, persists the result and makes it active.
func (e *Engine) Calibrate(ctx context.Context, p Prompter) error {
	p.Report(fmt.Sprintf("Calibrating %s sensor...", e.name))

	var volts [3]float64
	for i, point := range e.ref.Points() {
		msg := fmt.Sprintf("Place the %s sensor at %.2f %s and press Enter...", e.name, point, e.ref.Unit)
		if err := p.Wait(ctx, msg); err != nil {
			return err
		}
		v, err := e.Voltage()
		if err != nil {
			return err
		}
		volts[i] = v
		p.Report(fmt.Sprintf("Voltage at %.2f %s: %.3f V", point, e.ref.Unit, v))
	}

	st, err := e.commit(volts[0], volts[1], volts[2])
	if err != nil {
		return err
	}

	p.Report("Calibration complete.")
	p.Report(fmt.Sprintf("Slope (%.2f to %.2f): %.3f", e.ref.Low, e.ref.Mid, st.SegmentASlope))
	p.Report(fmt.Sprintf("Intercept (%.2f to %.2f): %.3f", e.ref.Low, e.ref.Mid, st.SegmentAIntercept))
	p.Report(fmt.Sprintf("Slope (%.2f to %.2f): %.3f", e.ref.Mid, e.ref.High, st.SegmentBSlope))
	p.Report(fmt.Sprintf("Intercept (%.2f to %.2f): %.3f", e.ref.Mid, e.ref.High, st.SegmentBIntercept))

	logrus.WithFields(logrus.Fields{
		"sensor": e.name,
		"file":   e.file,
	}).Info("calibration saved")
	return nil
}

// Restore fits the given reference voltages without operator interaction,
// persists the result and makes it active.
func (e *Engine) Restore(vLow, vMid, vHigh float64) error {
	_, err := e.commit(vLow, vMid, vHigh)
	return err
}

func (e *Engine) commit(vLow, vMid, vHigh float64) (State, error) {
	st, err := Fit(e.ref, vLow, vMid, vHigh)
	if err != nil {
		var cerr *Error
		if errors.As(err, &cerr) {
			cerr.Sensor = e.name
		}
		return State{}, err
	}
	st.Sensor = e.name
	st.CalibratedAt = e.clock.Now().UTC().Round(0)

	if err := e.save(st); err != nil {
		return State{}, err
	}
	e.appendHistory(st)

	e.mu.Lock()
	e.state = &st
	e.mu.Unlock()
	return st, nil
}

// HistoryFile collects every calibration made, one JSON object per line.
const HistoryFile = "calibration_history.jsonl"

type appender interface {
	Append(name string, data []byte) error
}

// appendHistory is best effort. The calibration file is authoritative.
func (e *Engine) appendHistory(st State) {
	a, ok := e.store.(appender)
	if !ok {
		return
	}
	b, err := json.Marshal(st)
	if err == nil {
		err = a.Append(HistoryFile, append(b, '\n'))
	}
	if err != nil {
		logrus.WithError(err).WithField("sensor", e.name).Warn("failed to record calibration history")
	}
}

// LoadOrCalibrate loads the stored calibration, running Calibrate when none
// exists. It blocks on the operator and must only be used at startup.
func (e *Engine) LoadOrCalibrate(ctx context.Context, p Prompter) error {
	ok, err := e.Load()
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	logrus.WithField("sensor", e.name).Warn("no stored calibration, starting interactive calibration")
	return e.Calibrate(ctx, p)
}
