package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	daemonutils "github.com/wqlog/wqlog/pkg/utils/daemon"
)

// NewInstallCommand .
func NewInstallCommand() *cobra.Command {
	allowNonRootAccess := false
	skipValidation := false

	cmd := &cobra.Command{
		Use:     "install",
		Short:   "Install wqlog as a systemd service",
		GroupID: gInstallation,
		Long: `Install the wqlog daemon as a systemd service (system-wide).

This makes wqlog run in the background, start on boot and restart after an
unrecoverable error. You must run this command as root.

Calibrate both probes with 'wqlog calibrate' before installing: the service has
no terminal to calibrate on.

By default, only root user is allowed to access the wqlog daemon. If you want to allow non-root users to check the status or trigger cycles, use the --allow-non-root-access flag.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !skipValidation {
				c, err := loadConfig()
				if err != nil {
					return err
				}
				if err := c.Validate(); err != nil {
					return fmt.Errorf("refusing to install with an invalid config, fix it or use --skip-validation: %w", err)
				}
			}

			if allowNonRootAccess {
				logrus.Info("non-root users are allowed to access the wqlog daemon.")
			} else {
				logrus.Info("only root user is allowed to access the wqlog daemon.")
			}

			err := daemonutils.Install(daemonutils.Options{
				ConfigPath:         configPath,
				SocketPath:         unixSocketPath,
				AllowNonRootAccess: allowNonRootAccess,
			})
			if err != nil {
				// check if current user is root
				if os.Geteuid() != 0 {
					logrus.Errorf("you must run this command as root")
				}
				return fmt.Errorf("failed to install daemon: %v", err)
			}

			logrus.Infof("installation succeeded")

			exePath, _ := os.Executable()

			cmd.Printf("systemd will use the current binary (%s) at startup so please make sure you do not move this binary. Once this binary is moved or deleted, you will need to run `wqlog install' again.\n", exePath)

			return nil
		},
	}

	cmd.Flags().BoolVar(&allowNonRootAccess, "allow-non-root-access", false, "Allow non-root users to access wqlog daemon.")
	cmd.Flags().BoolVar(&skipValidation, "skip-validation", false, "Install even if the config file is incomplete.")

	return cmd
}

// NewUninstallCommand .
func NewUninstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "uninstall",
		Short:   "Uninstall the wqlog service",
		GroupID: gInstallation,
		Long: `Stop the wqlog daemon and remove its systemd unit.

You must run this command as root.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := daemonutils.Uninstall()
			if err != nil {
				// check if current user is root
				if os.Geteuid() != 0 {
					logrus.Errorf("you must run this command as root")
				}
				return fmt.Errorf("failed to uninstall daemon: %v", err)
			}

			cmd.Println("successfully uninstalled")
			cmd.Printf("Your config is kept in %s and calibrations are kept on the data volume, in case you want to use `wqlog' again.\n", configPath)

			return nil
		},
	}
}
