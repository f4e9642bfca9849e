package config

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wqlog/wqlog/pkg/credentials"
)

func env(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func loadFile(t *testing.T, content string, vars map[string]string) (*File, error) {
	t.Helper()
	p := filepath.Join(t.TempDir(), "wqlog.yaml")
	if content != "" {
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
	f := &File{filepath: p, mu: &sync.RWMutex{}, lookup: env(vars)}
	return f, f.Load()
}

func testKey(t *testing.T) string {
	t.Helper()
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return credentials.TupleFromKey(k).String()
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	f, err := loadFile(t, "", nil)
	require.NoError(t, err)

	c := f.Config()
	assert.Equal(t, *Default(), c)
	assert.Equal(t, 900*time.Second, c.Loop.Interval)
	assert.Equal(t, int64(28800), c.Loop.DateOffset)
	assert.Equal(t, "A1:D1", c.Sheets.Range)
}

func TestLoad_File(t *testing.T) {
	f, err := loadFile(t, `
storage:
  root: /mnt/sd
sensors:
  driver: simulated
  i2c_address: 0x49
  ph:
    channel: 2
  depth:
    channel: 3
    calibration_file: depth.json
sheets:
  spreadsheet_id: abc
  tab: Readings
loop:
  interval: 5m
  date_offset: 0
`, nil)
	require.NoError(t, err)

	c := f.Config()
	assert.Equal(t, "/mnt/sd", c.Storage.Root)
	assert.Equal(t, DriverSimulated, c.Sensors.Driver)
	assert.Equal(t, uint16(0x49), c.Sensors.I2CAddress)
	assert.Equal(t, 2, c.Sensors.PH.Channel)
	assert.Equal(t, 4.096, c.Sensors.PH.ReferenceVoltage)
	assert.Equal(t, "ph_calibration.json", c.Sensors.PH.CalibrationFile)
	assert.Equal(t, "depth.json", c.Sensors.Depth.CalibrationFile)
	assert.Equal(t, 5*time.Minute, c.Loop.Interval)
	assert.Equal(t, int64(0), c.Loop.DateOffset)
	assert.Equal(t, "abc/Readings!A1:D1", c.Target().String())
}

func TestLoad_JSONFile(t *testing.T) {
	f, err := loadFile(t, `{"sheets": {"spreadsheet_id": "json-id", "tab": "Sheet1"}}`, nil)
	require.NoError(t, err)
	assert.Equal(t, "json-id", f.Config().Sheets.SpreadsheetID)
}

func TestLoad_Malformed(t *testing.T) {
	_, err := loadFile(t, "sheets: [", nil)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	tests := []struct {
		description string
		vars        map[string]string
		check       func(*assert.Assertions, Config)
		expectErr   bool
	}{
		{
			description: "credentials and target",
			vars: map[string]string{
				EnvEmail:         "svc@example.iam.gserviceaccount.com",
				EnvKeyID:         "kid",
				EnvPrivateKey:    "1, 2, 3, 4, 5",
				EnvSpreadsheetID: "sheet",
				EnvTab:           "Tab",
				EnvRange:         "A1:E1",
			},
			check: func(assert *assert.Assertions, c Config) {
				assert.Equal("svc@example.iam.gserviceaccount.com", c.ServiceAccount.Email)
				assert.Equal("kid", c.ServiceAccount.KeyID)
				assert.Equal("1, 2, 3, 4, 5", c.ServiceAccount.PrivateKey)
				assert.Equal("Tab!A1:E1", c.Target().A1())
			},
		},
		{
			description: "pacific offset",
			vars:        map[string]string{EnvTZOffset: "-8"},
			check: func(assert *assert.Assertions, c Config) {
				assert.Equal(int64(28800), c.Loop.DateOffset)
			},
		},
		{
			description: "half hour offset",
			vars:        map[string]string{EnvTZOffset: "5.5"},
			check: func(assert *assert.Assertions, c Config) {
				assert.Equal(int64(-19800), c.Loop.DateOffset)
			},
		},
		{
			description: "bad offset",
			vars:        map[string]string{EnvTZOffset: "PST"},
			expectErr:   true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			assert := assert.New(t)

			f, err := loadFile(t, "", tc.vars)
			if tc.expectErr {
				var cerr *Error
				assert.True(errors.As(err, &cerr))
				return
			}
			require.NoError(t, err)
			tc.check(assert, f.Config())
		})
	}
}

func TestValidate(t *testing.T) {
	key := testKey(t)
	valid := func() *Config {
		c := Default()
		c.ServiceAccount = ServiceAccountConfig{Email: "svc@example.com", KeyID: "kid", PrivateKey: key}
		c.Sheets.SpreadsheetID = "sheet"
		c.Sheets.Tab = "Sheet1"
		return c
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		description string
		mutate      func(*Config)
		field       string
	}{
		{"missing email", func(c *Config) { c.ServiceAccount.Email = "" }, "service_account.email"},
		{"missing key", func(c *Config) { c.ServiceAccount.PrivateKey = "" }, "service_account.private_key"},
		{"malformed key", func(c *Config) { c.ServiceAccount.PrivateKey = "not, a, key" }, "service_account.private_key"},
		{"missing sheet", func(c *Config) { c.Sheets.SpreadsheetID = "" }, "sheets.spreadsheet_id"},
		{"missing tab", func(c *Config) { c.Sheets.Tab = "" }, "sheets.tab"},
		{"zero interval", func(c *Config) { c.Loop.Interval = 0 }, "loop.interval"},
		{"unknown driver", func(c *Config) { c.Sensors.Driver = "spi" }, "sensors.driver"},
		{"shared channel", func(c *Config) { c.Sensors.Depth.Channel = 0 }, "sensors.depth.channel"},
		{"channel out of range", func(c *Config) { c.Sensors.PH.Channel = 4 }, "sensors.ph.channel"},
	}

	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			c := valid()
			tc.mutate(c)

			err := c.Validate()
			var cerr *Error
			require.True(t, errors.As(err, &cerr), "got %v", err)
			assert.Equal(t, tc.field, cerr.Field)
		})
	}

	sa, err := valid().ServiceAccountIdentity()
	require.NoError(t, err)
	assert.Equal(t, "svc@example.com", sa.Email)
	_, err = sa.Key.PrivateKey()
	assert.NoError(t, err)
}

func TestSave(t *testing.T) {
	p := filepath.Join(t.TempDir(), "wqlog.yaml")
	c := Default()
	c.Sheets.Tab = "Saved"
	require.NoError(t, NewFileFromConfig(c, p).Save())

	f := &File{filepath: p, mu: &sync.RWMutex{}, lookup: env(nil)}
	require.NoError(t, f.Load())
	assert.Equal(t, *c, f.Config())
}
