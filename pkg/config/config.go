package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/wqlog/wqlog/pkg/credentials"
	"github.com/wqlog/wqlog/pkg/sheets"
)

// Sensor drivers.
const (
	DriverADS1115   = "ads1115"
	DriverSimulated = "simulated"
)

// Environment variables that override the file.
const (
	EnvPrivateKey    = "GOOGLE_SERVICE_ACCOUNT_PRIVATE_KEY"
	EnvEmail         = "GOOGLE_SERVICE_ACCOUNT_EMAIL"
	EnvKeyID         = "GOOGLE_SERVICE_ACCOUNT_KID"
	EnvSpreadsheetID = "GOOGLE_SHEETS_ID"
	EnvTab           = "GOOGLE_SHEETS_TAB_ID"
	EnvRange         = "GOOGLE_SHEETS_RANGE"
	// EnvTZOffset is the local UTC offset in hours, e.g. -8.
	EnvTZOffset = "TZ_OFFSET"
)

// Config is the logger configuration.
type Config struct {
	Storage        StorageConfig        `yaml:"storage"`
	Sensors        SensorsConfig        `yaml:"sensors"`
	Sheets         SheetsConfig         `yaml:"sheets"`
	ServiceAccount ServiceAccountConfig `yaml:"service_account"`
	Loop           LoopConfig           `yaml:"loop"`
	Daemon         DaemonConfig         `yaml:"daemon"`
}

// StorageConfig locates the durable store.
type StorageConfig struct {
	// Root is the mount point of the data volume.
	Root string `yaml:"root"`
}

// SensorsConfig wires the probes.
type SensorsConfig struct {
	Driver      string            `yaml:"driver"`
	I2CBus      string            `yaml:"i2c_bus"`
	I2CAddress  uint16            `yaml:"i2c_address"`
	PH          AnalogConfig      `yaml:"ph"`
	Depth       AnalogConfig      `yaml:"depth"`
	Temperature TemperatureConfig `yaml:"temperature"`
}

// AnalogConfig describes one calibrated analog probe.
type AnalogConfig struct {
	Channel          int     `yaml:"channel"`
	ReferenceVoltage float64 `yaml:"reference_voltage"`
	Resolution       float64 `yaml:"resolution"`
	CalibrationFile  string  `yaml:"calibration_file"`
}

// TemperatureConfig selects the DS18B20 probe.
type TemperatureConfig struct {
	W1Dir  string `yaml:"w1_dir"`
	Device string `yaml:"device"` // empty selects the first probe found
}

// SheetsConfig is the delivery target.
type SheetsConfig struct {
	SpreadsheetID string        `yaml:"spreadsheet_id"`
	Tab           string        `yaml:"tab"`
	Range         string        `yaml:"range"`
	BaseURL       string        `yaml:"base_url"`
	Timeout       time.Duration `yaml:"timeout"`
}

// ServiceAccountConfig holds the signing identity. PrivateKey is the
// "n, e, d, p, q" integer tuple.
type ServiceAccountConfig struct {
	Email      string `yaml:"email"`
	KeyID      string `yaml:"key_id"`
	PrivateKey string `yaml:"private_key"`
}

// LoopConfig controls the acquisition cadence.
type LoopConfig struct {
	Interval time.Duration `yaml:"interval"`
	// DateOffset is subtracted from the epoch timestamp in the date formula.
	DateOffset int64 `yaml:"date_offset"`
	// History is how many cycle results the daemon keeps for status queries.
	History int `yaml:"history"`
}

// DaemonConfig controls the local API.
type DaemonConfig struct {
	Socket             string `yaml:"socket"`
	AllowNonRootAccess bool   `yaml:"allow_non_root_access"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Root: "/var/lib/wqlog",
		},
		Sensors: SensorsConfig{
			Driver:     DriverADS1115,
			I2CAddress: 0x48,
			PH: AnalogConfig{
				Channel:          0,
				ReferenceVoltage: 4.096,
				Resolution:       32768,
				CalibrationFile:  "ph_calibration.json",
			},
			Depth: AnalogConfig{
				Channel:          1,
				ReferenceVoltage: 4.096,
				Resolution:       32768,
				CalibrationFile:  "depth_calibration.json",
			},
			Temperature: TemperatureConfig{
				W1Dir: "/sys/bus/w1/devices",
			},
		},
		Sheets: SheetsConfig{
			Range:   "A1:D1",
			BaseURL: sheets.DefaultBaseURL,
			Timeout: sheets.DefaultTimeout,
		},
		Loop: LoopConfig{
			Interval:   900 * time.Second,
			DateOffset: sheets.DefaultDateOffset,
			History:    96,
		},
		Daemon: DaemonConfig{
			Socket: "/var/run/wqlog.sock",
		},
	}
}

func (c *Config) ensureDefaults() {
	d := Default()
	if c.Storage.Root == "" {
		c.Storage.Root = d.Storage.Root
	}
	if c.Sensors.Driver == "" {
		c.Sensors.Driver = d.Sensors.Driver
	}
	if c.Sensors.I2CAddress == 0 {
		c.Sensors.I2CAddress = d.Sensors.I2CAddress
	}
	ensureAnalog(&c.Sensors.PH, d.Sensors.PH)
	ensureAnalog(&c.Sensors.Depth, d.Sensors.Depth)
	if c.Sensors.Temperature.W1Dir == "" {
		c.Sensors.Temperature.W1Dir = d.Sensors.Temperature.W1Dir
	}
	if c.Sheets.Range == "" {
		c.Sheets.Range = d.Sheets.Range
	}
	if c.Sheets.BaseURL == "" {
		c.Sheets.BaseURL = d.Sheets.BaseURL
	}
	if c.Sheets.Timeout == 0 {
		c.Sheets.Timeout = d.Sheets.Timeout
	}
	if c.Loop.Interval == 0 {
		c.Loop.Interval = d.Loop.Interval
	}
	if c.Loop.History == 0 {
		c.Loop.History = d.Loop.History
	}
	if c.Daemon.Socket == "" {
		c.Daemon.Socket = d.Daemon.Socket
	}
}

func ensureAnalog(a *AnalogConfig, d AnalogConfig) {
	if a.ReferenceVoltage == 0 {
		a.ReferenceVoltage = d.ReferenceVoltage
	}
	if a.Resolution == 0 {
		a.Resolution = d.Resolution
	}
	if a.CalibrationFile == "" {
		a.CalibrationFile = d.CalibrationFile
	}
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	set := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
	set(EnvPrivateKey, &c.ServiceAccount.PrivateKey)
	set(EnvEmail, &c.ServiceAccount.Email)
	set(EnvKeyID, &c.ServiceAccount.KeyID)
	set(EnvSpreadsheetID, &c.Sheets.SpreadsheetID)
	set(EnvTab, &c.Sheets.Tab)
	set(EnvRange, &c.Sheets.Range)

	if v, ok := lookup(EnvTZOffset); ok && strings.TrimSpace(v) != "" {
		hours, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.Abs(hours) > 14 {
			return &Error{Field: EnvTZOffset, Reason: fmt.Sprintf("%q is not a UTC offset in hours", v)}
		}
		c.Loop.DateOffset = int64(math.Round(-hours * 3600))
	}
	return nil
}

// Validate checks everything the daemon needs before entering the loop.
func (c *Config) Validate() error {
	if c.ServiceAccount.Email == "" {
		return &Error{Field: "service_account.email", Reason: "is required"}
	}
	if c.ServiceAccount.PrivateKey == "" {
		return &Error{Field: "service_account.private_key", Reason: "is required"}
	}
	if _, err := c.ServiceAccountKey(); err != nil {
		return err
	}
	if c.Sheets.SpreadsheetID == "" {
		return &Error{Field: "sheets.spreadsheet_id", Reason: "is required"}
	}
	if err := c.ValidateTarget(); err != nil {
		return err
	}
	if c.Loop.Interval <= 0 {
		return &Error{Field: "loop.interval", Reason: "must be positive"}
	}
	return c.ValidateSensors()
}

// ValidateTarget checks the tab and range.
func (c *Config) ValidateTarget() error {
	if c.Sheets.Tab == "" {
		return &Error{Field: "sheets.tab", Reason: "is required"}
	}
	if c.Sheets.Range == "" {
		return &Error{Field: "sheets.range", Reason: "is required"}
	}
	return nil
}

// ValidateSensors checks the probe wiring.
func (c *Config) ValidateSensors() error {
	switch c.Sensors.Driver {
	case DriverADS1115, DriverSimulated:
	default:
		return &Error{Field: "sensors.driver", Reason: fmt.Sprintf("unknown driver %q", c.Sensors.Driver)}
	}
	for name, a := range map[string]AnalogConfig{"sensors.ph": c.Sensors.PH, "sensors.depth": c.Sensors.Depth} {
		if a.Channel < 0 || a.Channel > 3 {
			return &Error{Field: name + ".channel", Reason: "must be between 0 and 3"}
		}
		if a.ReferenceVoltage <= 0 || a.Resolution <= 0 {
			return &Error{Field: name, Reason: "reference voltage and resolution must be positive"}
		}
	}
	if c.Sensors.PH.Channel == c.Sensors.Depth.Channel {
		return &Error{Field: "sensors.depth.channel", Reason: "is shared with the pH probe"}
	}
	if c.Sensors.PH.CalibrationFile == c.Sensors.Depth.CalibrationFile {
		return &Error{Field: "sensors.depth.calibration_file", Reason: "is shared with the pH probe"}
	}
	return nil
}

// ServiceAccountKey parses the configured private key tuple.
func (c *Config) ServiceAccountKey() (credentials.KeyTuple, error) {
	k, err := credentials.ParseKeyTuple(c.ServiceAccount.PrivateKey)
	if err != nil {
		return credentials.KeyTuple{}, &Error{Field: "service_account.private_key", Reason: err.Error()}
	}
	return k, nil
}

// ServiceAccountIdentity returns the signer for the token manager.
func (c *Config) ServiceAccountIdentity() (credentials.ServiceAccount, error) {
	k, err := c.ServiceAccountKey()
	if err != nil {
		return credentials.ServiceAccount{}, err
	}
	return credentials.ServiceAccount{
		Email: c.ServiceAccount.Email,
		KeyID: c.ServiceAccount.KeyID,
		Key:   k,
	}, nil
}

// Target returns the configured delivery target.
func (c *Config) Target() sheets.Target {
	return sheets.Target{
		SpreadsheetID: c.Sheets.SpreadsheetID,
		Tab:           c.Sheets.Tab,
		Range:         c.Sheets.Range,
	}
}
