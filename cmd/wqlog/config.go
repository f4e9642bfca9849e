package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wqlog/wqlog/pkg/config"
)

// redacted hides secrets when printing the configuration.
func redacted(c config.Config) config.Config {
	if c.ServiceAccount.PrivateKey != "" {
		c.ServiceAccount.PrivateKey = "<redacted>"
	}
	return c
}

func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		Short:   "Create or print the configuration file",
		GroupID: gAdvanced,
	}

	force := false
	simulated := false
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with default values",
		Long: fmt.Sprintf(`Write a configuration file with default values to the --config path.

The service account and spreadsheet can be filled in later or provided through
%s, %s, %s and %s.`, config.EnvEmail, config.EnvPrivateKey, config.EnvSpreadsheetID, config.EnvTab),
		RunE: func(_ *cobra.Command, _ []string) error {
			if _, err := os.Stat(configPath); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite it", configPath)
			}

			c := config.Default()
			if simulated {
				c.Sensors.Driver = config.DriverSimulated
			}
			if err := config.NewFileFromConfig(c, configPath).Save(); err != nil {
				return err
			}
			logrus.Infof("wrote %s", configPath)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file.")
	initCmd.Flags().BoolVar(&simulated, "simulated", false, "Use simulated sensors instead of the ADS1115.")

	validate := false
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long:  `Print the configuration after defaults and environment overrides are applied. The private key is redacted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := loadConfig()
			if err != nil {
				return err
			}
			b, err := yaml.Marshal(redacted(c))
			if err != nil {
				return err
			}
			cmd.Print(string(b))

			if validate {
				if err := c.Validate(); err != nil {
					return err
				}
				cmd.Printf("\nConfiguration is valid: %s\n", bool2Text(true))
			}
			return nil
		},
	}
	showCmd.Flags().BoolVar(&validate, "validate", false, "Also check that the daemon can start with it.")

	cmd.AddCommand(initCmd, showCmd)

	return cmd
}
