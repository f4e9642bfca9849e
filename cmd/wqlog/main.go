package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wqlog/wqlog/pkg/client"
	"github.com/wqlog/wqlog/pkg/config"
)

var (
	logLevel       = "info"
	unixSocketPath = "/var/run/wqlog.sock"
	configPath     = "/etc/wqlog/config.yaml"
)

var (
	gBasic        = "Basic:"
	gAdvanced     = "Advanced:"
	gInstallation = "Installation:"
	commandGroups = []string{
		gBasic,
		gAdvanced,
		gInstallation,
	}
)

var apiClient = client.NewClient(unixSocketPath)

func setupLogger() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{})
	if term.IsTerminal(int(os.Stderr.Fd())) {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.Kitchen,
		})
	}

	return nil
}

func handleCmdError(err error) {
	var confErr *config.Error
	switch {
	case errors.Is(err, client.ErrDaemonNotRunning):
		fmt.Fprintln(os.Stderr, "\nError: wqlog daemon is not running")
		fmt.Fprintln(os.Stderr, "Is the daemon running? Have you installed it with 'wqlog install'?")
	case errors.Is(err, client.ErrPermissionDenied):
		fmt.Fprintln(os.Stderr, "\nError: Permission Denied")
		fmt.Fprintln(os.Stderr, "  - Try running the command again with 'sudo'")
		fmt.Fprintln(os.Stderr, "  - Or reinstall the daemon with the '--allow-non-root-access' flag to grant permissions to your user")
	case errors.As(err, &confErr):
		fmt.Fprintf(os.Stderr, "\nCheck %s or the environment variables it can be overridden with.\n", configPath)
	}
}

func main() {
	cmd := NewCommand()
	if err := cmd.Execute(); err != nil {
		handleCmdError(err)
		os.Exit(1)
	}
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wqlog",
		Short: "wqlog samples water quality probes and appends them to a Google Sheet",
		Long: `wqlog samples a pH probe, a depth probe and a DS18B20 thermometer at a fixed
interval and appends one row per sample to a Google Sheet.

Run 'wqlog calibrate ph' and 'wqlog calibrate depth' once with the probes in
reference solutions, then 'wqlog install' to run the logger as a service.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			err := setupLogger()
			if err != nil {
				return err
			}

			apiClient = client.NewClient(unixSocketPath)

			if cmd.Annotations[annotationDaemonClient] == "" {
				return nil
			}
			if clientVersion, daemonVersion, err := getVersion(); err == nil && daemonVersion != clientVersion {
				logrus.WithFields(logrus.Fields{
					"clientVersion": clientVersion,
					"daemonVersion": daemonVersion,
				}).Warn("Version mismatch between client and daemon. Reinstall the daemon with 'wqlog install' after upgrading.")
			}

			return nil
		},
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVarP(&logLevel, "log-level", "l", "info", "log level (trace, debug, info, warn, error, fatal, panic)")
	globalFlags.StringVar(&configPath, "config", configPath, "config file path")
	globalFlags.StringVar(&unixSocketPath, "daemon-socket", unixSocketPath, "wqlog daemon unix socket path")

	for _, i := range commandGroups {
		cmd.AddGroup(&cobra.Group{
			ID:    i,
			Title: i,
		})
	}

	cmd.AddCommand(
		NewDaemonCommand(),
		NewVersionCommand(),
		NewStatusCommand(),
		NewCycleCommand(),
		NewCalibrateCommand(),
		NewCalibrationCommand(),
		NewSheetCommand(),
		NewStorageCommand(),
		NewConfigCommand(),
		NewInstallCommand(),
		NewUninstallCommand(),
	)

	return cmd
}
