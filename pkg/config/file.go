package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// File is a Config backed by a YAML file. JSON files are accepted too.
type File struct {
	c        *Config
	mu       *sync.RWMutex
	filepath string
	lookup   func(string) (string, bool)
}

// NewFile loads configPath and applies environment overrides.
func NewFile(configPath string) (*File, error) {
	f := &File{
		filepath: configPath,
		mu:       &sync.RWMutex{},
		lookup:   os.LookupEnv,
	}
	err := f.Load()
	if err != nil {
		return nil, err
	}

	return f, nil
}

// NewFileFromConfig wraps c without reading anything. A nil c uses Default.
func NewFileFromConfig(c *Config, configPath string) *File {
	if c == nil {
		c = Default()
	}

	return &File{
		c:        c,
		mu:       &sync.RWMutex{},
		filepath: configPath,
		lookup:   os.LookupEnv,
	}
}

// Path returns the file location.
func (f *File) Path() string {
	return f.filepath
}

// Config returns a copy of the current configuration.
func (f *File) Config() Config {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c == nil {
		panic("config is nil")
	}
	return *f.c
}

func (f *File) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	conf := Default()

	fp, err := os.Open(f.filepath)
	if err != nil && !os.IsNotExist(err) {
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	if err == nil {
		defer func(fp *os.File) {
			err := fp.Close()
			if err != nil {
				logrus.Warnf("failed to close file %s", f.filepath)
			}
		}(fp)

		b, err := io.ReadAll(fp)
		if err != nil {
			return pkgerrors.Wrapf(err, "failed to read file %s", f.filepath)
		}

		// An empty file means defaults.
		if strings.TrimSpace(string(b)) != "" {
			if err := yaml.Unmarshal(b, conf); err != nil {
				return pkgerrors.Wrapf(err, "failed to unmarshal config from file %s", f.filepath)
			}
		}
	}

	conf.ensureDefaults()
	if err := conf.ApplyEnv(f.lookup); err != nil {
		return err
	}
	f.c = conf

	return nil
}

// Save writes the configuration, creating the parent directory if needed.
func (f *File) Save() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c == nil {
		return pkgerrors.New("config is nil")
	}

	b, err := yaml.Marshal(f.c)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to encode config for file %s", f.filepath)
	}
	if err := os.MkdirAll(filepath.Dir(f.filepath), 0755); err != nil {
		return pkgerrors.Wrapf(err, "failed to create directory for %s", f.filepath)
	}
	if err := os.WriteFile(f.filepath, b, 0600); err != nil {
		return pkgerrors.Wrapf(err, "failed to write file %s", f.filepath)
	}

	return nil
}

// LogrusFields returns the non-secret settings for startup logging.
func (f *File) LogrusFields() logrus.Fields {
	c := f.Config()

	return logrus.Fields{
		"storageRoot":    c.Storage.Root,
		"sensorDriver":   c.Sensors.Driver,
		"spreadsheetId":  c.Sheets.SpreadsheetID,
		"tab":            c.Sheets.Tab,
		"range":          c.Sheets.Range,
		"serviceAccount": c.ServiceAccount.Email,
		"interval":       c.Loop.Interval.String(),
		"dateOffset":     c.Loop.DateOffset,
	}
}
