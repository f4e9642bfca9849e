package daemon

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/wqlog/wqlog/pkg/events"
	"github.com/wqlog/wqlog/pkg/sensor"
	"github.com/wqlog/wqlog/pkg/sheets"
	"github.com/wqlog/wqlog/pkg/types"
)

// DefaultInterval is the pause between two cycles.
const DefaultInterval = 900 * time.Second

// RowAppender delivers one row to the sheet.
type RowAppender interface {
	AppendRow(ctx context.Context, t sheets.Target, row []any) ([]byte, error)
}

// Probes are the three readers sampled every cycle, in sampling order.
type Probes struct {
	Temperature sensor.Reader
	Depth       sensor.Reader
	PH          sensor.Reader
}

// Loop samples the probes and appends one row per cycle.
type Loop struct {
	probes     Probes
	appender   RowAppender
	target     sheets.Target
	clock      clock.Clock
	interval   time.Duration
	dateOffset int64
	recorder   *CycleRecorder
	metrics    *Metrics
	hub        *events.EventHub
	logger     logrus.FieldLogger

	// cycleMu serializes cycles between the timer and on-demand triggers.
	cycleMu sync.Mutex

	mu    sync.RWMutex
	state types.LoopState
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// UseClock sets the clock used for timestamps and sleeping.
func UseClock(c clock.Clock) LoopOption {
	return func(l *Loop) {
		if c != nil {
			l.clock = c
		}
	}
}

// WithInterval sets the pause between cycles.
func WithInterval(d time.Duration) LoopOption {
	return func(l *Loop) {
		if d > 0 {
			l.interval = d
		}
	}
}

// WithDateOffset sets the offset used in the date formula cell.
func WithDateOffset(offset int64) LoopOption {
	return func(l *Loop) {
		l.dateOffset = offset
	}
}

// WithRecorder keeps cycle results in r.
func WithRecorder(r *CycleRecorder) LoopOption {
	return func(l *Loop) {
		l.recorder = r
	}
}

// WithMetrics reports cycles to m.
func WithMetrics(m *Metrics) LoopOption {
	return func(l *Loop) {
		l.metrics = m
	}
}

// WithEventHub publishes state changes and cycle results to h.
func WithEventHub(h *events.EventHub) LoopOption {
	return func(l *Loop) {
		l.hub = h
	}
}

// NewLoop returns an idle loop.
func NewLoop(probes Probes, appender RowAppender, target sheets.Target, opts ...LoopOption) *Loop {
	l := &Loop{
		probes:     probes,
		appender:   appender,
		target:     target,
		clock:      clock.New(),
		interval:   DefaultInterval,
		dateOffset: sheets.DefaultDateOffset,
		recorder:   NewCycleRecorder(96),
		logger:     logrus.WithField("component", "loop"),
		state:      types.LoopIdle,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// State returns the current phase.
func (l *Loop) State() types.LoopState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Interval returns the pause between cycles.
func (l *Loop) Interval() time.Duration {
	return l.interval
}

// Recorder returns the cycle history.
func (l *Loop) Recorder() *CycleRecorder {
	return l.recorder
}

// LastResult returns the most recent cycle result.
func (l *Loop) LastResult() (types.CycleResult, bool) {
	return l.recorder.GetLastRecord()
}

func (l *Loop) setState(s types.LoopState) {
	l.mu.Lock()
	from := l.state
	l.state = s
	l.mu.Unlock()

	if from == s {
		return
	}
	l.logger.WithFields(logrus.Fields{"from": from, "to": s}).Trace("loop state changed")
	l.hub.Publish(events.StateChanged, events.StateChangedEvent{
		From: string(from),
		To:   string(s),
		Ts:   l.clock.Now().Unix(),
	})
}

// recoverable reports whether a cycle error should only skip the row.
// Sensor failures and delivery failures are expected in the field. Anything
// else, such as a signing failure, ends the loop.
func recoverable(err error) bool {
	var readErr *sensor.ReadError
	if errors.As(err, &readErr) {
		return true
	}
	var deliveryErr *sheets.DeliveryError
	return errors.As(err, &deliveryErr)
}

func (l *Loop) sample() (sheets.MeasurementRow, error) {
	row := sheets.MeasurementRow{Timestamp: l.clock.Now()}

	var err error
	if row.Temperature, err = l.probes.Temperature.Read(); err != nil {
		return row, err
	}
	if row.Depth, err = l.probes.Depth.Read(); err != nil {
		return row, err
	}
	if row.PH, err = l.probes.PH.Read(); err != nil {
		return row, err
	}
	return row, nil
}

// RunCycle samples all probes and appends the row. A recoverable failure is
// reported in the result with a nil error. Any other failure is returned.
func (l *Loop) RunCycle(ctx context.Context) (types.CycleResult, error) {
	l.cycleMu.Lock()
	defer l.cycleMu.Unlock()

	// A cycle triggered while the loop sleeps returns it to sleeping.
	after := types.LoopIdle
	if l.State() == types.LoopSleeping {
		after = types.LoopSleeping
	}

	res := types.CycleResult{StartedAt: l.clock.Now()}
	defer func() {
		l.setState(after)
		l.record(res)
	}()

	l.setState(types.LoopSampling)
	row, err := l.sample()
	if err != nil {
		return l.finish(&res, "sampling", err)
	}
	res.Row = &row
	res.Values = row.Values(l.dateOffset)
	l.metrics.observeRow(row)

	l.setState(types.LoopDelivering)
	if _, err := l.appender.AppendRow(ctx, l.target, res.Values); err != nil {
		return l.finish(&res, "delivering", err)
	}

	res.Outcome = types.OutcomeDelivered
	res.FinishedAt = l.clock.Now()
	l.logger.WithFields(logrus.Fields{
		"temperature": row.Temperature,
		"depth":       row.Depth,
		"ph":          row.PH,
	}).Info("row delivered")
	return res, nil
}

func (l *Loop) finish(res *types.CycleResult, stage string, err error) (types.CycleResult, error) {
	res.Stage = stage
	res.Error = err.Error()
	res.FinishedAt = l.clock.Now()

	if recoverable(err) {
		res.Outcome = types.OutcomeSkipped
		l.logger.WithError(err).WithField("stage", stage).Warn("cycle skipped")
		return *res, nil
	}
	res.Outcome = types.OutcomeFailed
	return *res, pkgerrors.Wrapf(err, "cycle failed while %s", stage)
}

func (l *Loop) record(res types.CycleResult) {
	l.recorder.AddRecord(res)
	l.metrics.observeCycle(res)

	ev := events.CycleCompletedEvent{
		Outcome: string(res.Outcome),
		Stage:   res.Stage,
		Error:   res.Error,
		Row:     res.Values,
		Ts:      res.FinishedAt.Unix(),
	}
	l.hub.Publish(events.CycleCompleted, ev)
}

// TriggerCycle runs one cycle out of schedule, waiting for a running cycle
// to finish first.
func (l *Loop) TriggerCycle(ctx context.Context) (types.CycleResult, error) {
	l.logger.Info("cycle triggered")
	return l.RunCycle(ctx)
}

// Run runs cycles until ctx is done or a cycle fails with an unrecoverable
// error. It returns nil on cancellation.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.WithField("interval", l.interval).Info("loop started")
	for {
		if missed := l.recorder.MissedCycles(l.clock.Now(), l.interval); missed > 0 {
			l.logger.WithField("missed", missed).Info("cycles were missed, the host may have been suspended")
		}

		if _, err := l.RunCycle(ctx); err != nil {
			l.setState(types.LoopIdle)
			return err
		}

		timer := l.clock.Timer(l.interval)
		l.setState(types.LoopSleeping)
		select {
		case <-ctx.Done():
			timer.Stop()
			l.setState(types.LoopIdle)
			l.logger.Info("loop stopped")
			return nil
		case <-timer.C:
		}
	}
}
