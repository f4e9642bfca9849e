// Package daemon installs the wqlog daemon as a systemd service.
package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	unitName = "wqlog.service"
	unitPath = "/etc/systemd/system/" + unitName

	// runSystemctl is replaced in tests.
	runSystemctl = func(args ...string) error {
		out, err := exec.Command("systemctl", args...).CombinedOutput()
		if err != nil {
			return fmt.Errorf("systemctl %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
		}
		return nil
	}
)

// Options are written into the unit's command line.
type Options struct {
	ConfigPath         string
	SocketPath         string
	AllowNonRootAccess bool
}

func renderUnit(exePath string, opts Options) string {
	args := ""
	if opts.AllowNonRootAccess {
		args = "--always-allow-non-root-access"
	}
	// Earlier pairs win, so the socket placeholder goes before the binary's.
	r := strings.NewReplacer(
		"/path/to/wqlog.sock", opts.SocketPath,
		"/path/to/config.yaml", opts.ConfigPath,
		"/path/to/wqlog", exePath,
		" ARGS", strings.TrimRight(" "+args, " "),
	)
	return r.Replace(unitTemplate)
}

func Install(opts Options) error {
	// Get the path to the current executable
	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get the path to the current executable: %w", err)
	}
	exePath, err = filepath.Abs(exePath)
	if err != nil {
		return fmt.Errorf("failed to get the absolute path to the current executable: %w", err)
	}

	err = os.Chmod(exePath, 0755)
	if err != nil {
		return fmt.Errorf("failed to chmod the current executable to 0755: %w", err)
	}

	logrus.Infof("current executable path: %s", exePath)

	return install(exePath, opts)
}

func install(exePath string, opts Options) error {
	logrus.Infof("writing systemd unit to %s", unitPath)

	if err := os.MkdirAll(filepath.Dir(unitPath), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(unitPath), err)
	}

	// warn if the file already exists
	if _, err := os.Stat(unitPath); err == nil {
		logrus.Warnf("%s already exists, overwriting", unitPath)
	}

	if err := os.WriteFile(unitPath, []byte(renderUnit(exePath, opts)), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w. Are you root?", unitPath, err)
	}

	if err := runSystemctl("daemon-reload"); err != nil {
		return err
	}

	logrus.Infof("starting wqlog")

	return runSystemctl("enable", "--now", unitName)
}
