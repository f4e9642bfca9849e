package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wqlog/wqlog/pkg/calibration"
	"github.com/wqlog/wqlog/pkg/client"
	"github.com/wqlog/wqlog/pkg/daemon"
	"github.com/wqlog/wqlog/pkg/storage"
	"github.com/wqlog/wqlog/pkg/types"
)

func NewCalibrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "calibrate <ph|depth>",
		Short:   "Calibrate a probe against three reference points",
		GroupID: gBasic,
		Long: `Calibrate a probe interactively.

You will be asked to place the probe at the low, mid and high reference points
(pH 4, 7 and 10, or 1, 6 and 12 inches of depth) and press Enter at each one.
The fitted calibration replaces the stored one. A running daemon is told to
reload it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := parseSensorArg(args)
			if err != nil {
				return err
			}

			c, err := loadConfig()
			if err != nil {
				return err
			}
			if err := c.ValidateSensors(); err != nil {
				return err
			}

			store, err := storage.Open(c.Storage.Root)
			if err != nil {
				return pkgerrors.Wrapf(err, "failed to open storage at %s", c.Storage.Root)
			}
			hw, err := daemon.OpenHardware(c, store)
			if err != nil {
				return err
			}
			defer func() {
				if err := hw.Close(); err != nil {
					logrus.Warnf("failed to close sensors: %v", err)
				}
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			engine := hw.Engines()[name]
			p := calibration.NewConsolePrompter(os.Stdin, cmd.OutOrStdout())
			if err := engine.Calibrate(ctx, p); err != nil {
				return pkgerrors.Wrapf(err, "failed to calibrate %s", name)
			}

			if _, err := apiClient.ReloadCalibrations(); err != nil {
				if errors.Is(err, client.ErrDaemonNotRunning) {
					logrus.Info("daemon is not running, the new calibration is used on its next start")
					return nil
				}
				logrus.Warnf("calibration saved but the daemon did not reload it: %v", err)
				return nil
			}
			logrus.Info("daemon reloaded calibrations")
			return nil
		},
	}
}

func printCalibration(cmd *cobra.Command, cal *types.Calibration) {
	cmd.Println(bold("%s calibration:", cal.Sensor))
	cmd.Printf("  File: %s\n", cal.File)
	cmd.Printf("  Calibrated: %s\n", bool2Text(cal.Calibrated))
	if cal.State == nil {
		return
	}
	st := cal.State
	if !st.CalibratedAt.IsZero() {
		cmd.Printf("  Calibrated at: %s\n", st.CalibratedAt.Local().Format("2006-01-02 15:04:05"))
	}
	cmd.Printf("  Threshold: %s\n", bold("%.3f V", st.ThresholdVoltage))
	cmd.Printf("  Above threshold: %s\n", bold("%.3f × V %+.3f", st.SegmentASlope, st.SegmentAIntercept))
	cmd.Printf("  At or below threshold: %s\n", bold("%.3f × V %+.3f", st.SegmentBSlope, st.SegmentBIntercept))
	if cal.Error != "" {
		cmd.Printf("  Live reading: %s\n", cal.Error)
		return
	}
	cmd.Printf("  Live reading: %s\n", bold("%.3f V → %.2f", cal.Voltage, cal.Value))
}

func NewCalibrationCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "calibration",
		Short:   "Inspect the calibrations used by the daemon",
		GroupID: gAdvanced,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:         "show [ph|depth]",
			Short:       "Show the active calibration and a live reading",
			Args:        cobra.MaximumNArgs(1),
			Annotations: daemonClient,
			RunE: func(cmd *cobra.Command, args []string) error {
				names := sensorNames
				if len(args) == 1 {
					name, err := parseSensorArg(args)
					if err != nil {
						return err
					}
					names = []string{name}
				}
				for i, name := range names {
					cal, err := apiClient.GetCalibration(name)
					if err != nil {
						return err
					}
					if i > 0 {
						cmd.Println()
					}
					printCalibration(cmd, cal)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:         "reload",
			Short:       "Make the daemon re-read the calibration files",
			Annotations: daemonClient,
			RunE: func(_ *cobra.Command, _ []string) error {
				ret, err := apiClient.ReloadCalibrations()
				if err != nil {
					return err
				}
				logrus.Infof("daemon responded: %s", ret)
				return nil
			},
		},
	)

	return cmd
}
