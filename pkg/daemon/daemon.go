package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/wqlog/wqlog/pkg/calibration"
	"github.com/wqlog/wqlog/pkg/config"
	"github.com/wqlog/wqlog/pkg/credentials"
	"github.com/wqlog/wqlog/pkg/events"
	"github.com/wqlog/wqlog/pkg/powerinfo"
	"github.com/wqlog/wqlog/pkg/sheets"
	"github.com/wqlog/wqlog/pkg/storage"
)

// Daemon serves the local API for a running loop.
type Daemon struct {
	driver   string
	target   sheets.Target
	loop     *Loop
	hardware *Hardware
	hub      *events.EventHub
	registry *prometheus.Registry
	power    func() (powerinfo.Snapshot, error)
}

// NewSheetsClient builds an authenticated Sheets client from c.
func NewSheetsClient(c config.Config) (*sheets.Client, error) {
	account, err := c.ServiceAccountIdentity()
	if err != nil {
		return nil, err
	}
	tokens := credentials.NewManager(account)
	transport := sheets.NewHTTPTransport(nil, c.Sheets.Timeout)
	return sheets.NewClient(tokens, transport, sheets.WithBaseURL(c.Sheets.BaseURL)), nil
}

// headlessPrompter refuses to calibrate when nobody is at the console.
type headlessPrompter struct{}

func (headlessPrompter) Wait(context.Context, string) error {
	return errors.New("no stored calibration and no terminal attached, run `wqlog calibrate <sensor>` first")
}

func (headlessPrompter) Report(msg string) {
	logrus.Info(msg)
}

func startupPrompter() calibration.Prompter {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return calibration.NewConsolePrompter(os.Stdin, os.Stdout)
	}
	return headlessPrompter{}
}

// reloadCalibrations re-reads every calibration file. Nothing is swapped in
// unless all of them are valid.
func (d *Daemon) reloadCalibrations() error {
	engines := []*calibration.Engine{d.hardware.PH, d.hardware.Depth}
	states := make([]calibration.State, len(engines))
	for i, e := range engines {
		st, ok, err := e.ReadStored()
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s: %w", e.Name(), calibration.ErrNotCalibrated)
		}
		states[i] = st
	}

	var names []string
	for i, e := range engines {
		e.Activate(states[i])
		names = append(names, e.Name())
	}

	d.hub.Publish(events.CalibrationReloaded, events.CalibrationReloadedEvent{
		Sensors: names,
		Ts:      time.Now().Unix(),
	})
	return nil
}

func listen(unixSocketPath string, allowNonRoot bool) (net.Listener, error) {
	// A socket left behind by an unclean exit blocks Listen.
	if _, err := os.Stat(unixSocketPath); err == nil {
		logrus.Warnf("removing stale socket %s", unixSocketPath)
		if err := os.Remove(unixSocketPath); err != nil {
			return nil, err
		}
	}

	l, err := net.Listen("unix", unixSocketPath)
	if err != nil {
		return nil, err
	}

	if allowNonRoot {
		logrus.Infof("non-root access is allowed, changing permissions of %s to 0777", unixSocketPath)
		if err := os.Chmod(unixSocketPath, 0777); err != nil {
			_ = l.Close()
			return nil, err
		}
	}
	return l, nil
}

// Run loads the configuration, calibrates the probes if needed and runs the
// acquisition loop until SIGINT or SIGTERM. It returns an error when startup
// fails or the loop hits an unrecoverable error.
func Run(configPath string, unixSocketPath string, allowNonRoot bool) error {
	conf, err := config.NewFile(configPath)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to parse config during startup")
	}
	logrus.WithFields(conf.LogrusFields()).Infof("config loaded")

	c := conf.Config()
	if err := c.Validate(); err != nil {
		return err
	}
	if unixSocketPath == "" {
		unixSocketPath = c.Daemon.Socket
	}

	store, err := storage.Open(c.Storage.Root)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open storage at %s", c.Storage.Root)
	}

	hw, err := OpenHardware(c, store)
	if err != nil {
		return err
	}
	defer func() {
		if err := hw.Close(); err != nil {
			logrus.Errorf("failed to close sensors: %v", err)
		}
	}()

	// Handle common process-killing signals, so we can gracefully shut down.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := hw.LoadCalibrations(ctx, c.Sensors.Driver, startupPrompter()); err != nil {
		return err
	}

	sheetsClient, err := NewSheetsClient(c)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	hub := events.NewEventHub()

	loop := NewLoop(hw.Probes(), sheetsClient, c.Target(),
		WithInterval(c.Loop.Interval),
		WithDateOffset(c.Loop.DateOffset),
		WithRecorder(NewCycleRecorder(c.Loop.History)),
		WithMetrics(NewMetrics(registry)),
		WithEventHub(hub),
	)

	d := &Daemon{
		driver:   c.Sensors.Driver,
		target:   c.Target(),
		loop:     loop,
		hardware: hw,
		hub:      hub,
		registry: registry,
		power:    powerinfo.Read,
	}

	l, err := listen(unixSocketPath, c.Daemon.AllowNonRootAccess || allowNonRoot)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler: d.setupRoutes(),
	}

	// Serve HTTP on unix socket
	go func() {
		logrus.Infof("http server listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Errorf("http server stopped: %v", err)
		}
	}()

	// Receive SIGHUP to reload calibrations written by `wqlog calibrate`.
	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	defer signal.Stop(sighup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-sighup:
				if err := d.reloadCalibrations(); err != nil {
					logrus.Errorf("failed to reload calibrations: %v", err)
					continue
				}
				logrus.Infof("calibrations reloaded")
			}
		}
	}()

	loopErr := loop.Run(ctx)
	if loopErr != nil {
		logrus.Errorf("loop exited: %v", loopErr)
	} else {
		logrus.Info("caught signal: shutting down.")
	}

	logrus.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("failed to shutdown http server: %v", err)
	}

	return loopErr
}
