package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wqlog/wqlog/pkg/daemon"
	"github.com/wqlog/wqlog/pkg/version"
)

// NewDaemonCommand .
func NewDaemonCommand() *cobra.Command {
	alwaysAllowNonRootAccess := false

	cmd := &cobra.Command{
		Use:     "daemon",
		Hidden:  true,
		Short:   "Run wqlog daemon in the foreground",
		GroupID: gAdvanced,
		Long: `Run the acquisition loop in the foreground.

Probes without a stored calibration are calibrated interactively when a
terminal is attached. Otherwise the daemon refuses to start.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			logrus.WithFields(logrus.Fields{
				"version": version.Version,
				"commit":  version.GitCommit,
			}).Info("wqlog daemon starting")
			return daemon.Run(configPath, unixSocketPath, alwaysAllowNonRootAccess)
		},
	}

	cmd.Flags().BoolVar(&alwaysAllowNonRootAccess, "always-allow-non-root-access", false,
		"Always allow non-root users to access the daemon.")

	return cmd
}

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s %s\n", version.Version, version.GitCommit)
		},
	}
}
