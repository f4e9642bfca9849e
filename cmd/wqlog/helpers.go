package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/wqlog/wqlog/pkg/config"
	"github.com/wqlog/wqlog/pkg/version"
)

// annotationDaemonClient marks commands that talk to the daemon, so the
// version check only runs for them.
const annotationDaemonClient = "wqlog/daemon-client"

var daemonClient = map[string]string{annotationDaemonClient: "true"}

var sensorNames = []string{"ph", "depth"}

func parseSensorArg(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("expected one sensor, one of %s", strings.Join(sensorNames, ", "))
	}
	name := strings.ToLower(args[0])
	for _, s := range sensorNames {
		if s == name {
			return name, nil
		}
	}
	return "", fmt.Errorf("unknown sensor %q, expected one of %s", args[0], strings.Join(sensorNames, ", "))
}

// loadConfig reads the config file with environment overrides applied.
func loadConfig() (config.Config, error) {
	f, err := config.NewFile(configPath)
	if err != nil {
		return config.Config{}, err
	}
	return f.Config(), nil
}

func getVersion() (string, string, error) {
	daemonVersion, err := apiClient.GetVersion()
	if err != nil {
		return version.Version, "", err
	}
	return version.Version, daemonVersion, nil
}

func bool2Text(b bool) string {
	if b {
		return color.New(color.Bold, color.FgGreen).Sprint("✔")
	}
	return color.New(color.Bold, color.FgRed).Sprint("✘")
}

func bold(format string, a ...interface{}) string {
	return color.New(color.Bold).Sprintf(format, a...)
}
