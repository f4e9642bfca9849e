package sensor

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// W1Dir is where the w1-gpio kernel driver exposes 1-wire slaves.
const W1Dir = "/sys/bus/w1/devices"

// ds18b20Family is the 1-wire family code prefix of DS18B20 device ids.
const ds18b20Family = "28-"

var errNoDevice = errors.New("no DS18B20 found on the 1-wire bus")

// Temperature reads a DS18B20 probe through the w1_slave file of the
// kernel's 1-wire driver. Values are degrees Celsius and are not calibrated.
type Temperature struct {
	fs     afero.Fs
	dir    string
	device string
}

var _ Reader = (*Temperature)(nil)

// NewTemperature reads device (a "28-xxxxxxxxxxxx" id) under dir on fs. An
// empty device selects the first DS18B20 found on each read.
func NewTemperature(fs afero.Fs, dir, device string) *Temperature {
	if dir == "" {
		dir = W1Dir
	}
	return &Temperature{fs: fs, dir: dir, device: device}
}

func (t *Temperature) Name() string { return "temperature" }

func (t *Temperature) findDevice() (string, error) {
	if t.device != "" {
		return t.device, nil
	}
	infos, err := afero.ReadDir(t.fs, t.dir)
	if err != nil {
		return "", err
	}
	var ids []string
	for _, fi := range infos {
		if strings.HasPrefix(fi.Name(), ds18b20Family) {
			ids = append(ids, fi.Name())
		}
	}
	if len(ids) == 0 {
		return "", errNoDevice
	}
	sort.Strings(ids)
	return ids[0], nil
}

func (t *Temperature) Read() (float64, error) {
	id, err := t.findDevice()
	if err != nil {
		return 0, &ReadError{Sensor: t.Name(), Err: err}
	}
	b, err := afero.ReadFile(t.fs, path.Join(t.dir, id, "w1_slave"))
	if err != nil {
		return 0, &ReadError{Sensor: t.Name(), Err: err}
	}
	c, err := parseW1Slave(b)
	if err != nil {
		return 0, &ReadError{Sensor: t.Name(), Err: fmt.Errorf("%s: %w", id, err)}
	}
	return c, nil
}

// parseW1Slave parses the two-line w1_slave output:
//
//	72 01 4b 46 7f ff 0e 10 57 : crc=57 YES
//	72 01 4b 46 7f ff 0e 10 57 t=23125
func parseW1Slave(b []byte) (float64, error) {
	sc := bufio.NewScanner(bytes.NewReader(b))
	var lines []string
	for sc.Scan() {
		if l := strings.TrimSpace(sc.Text()); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) < 2 {
		return 0, fmt.Errorf("invalid w1_slave format: %q", string(b))
	}
	if !strings.HasSuffix(lines[0], "YES") {
		return 0, fmt.Errorf("crc check failed: %q", lines[0])
	}
	i := strings.LastIndex(lines[1], "t=")
	if i < 0 {
		return 0, fmt.Errorf("missing temperature: %q", lines[1])
	}
	milli, err := strconv.ParseInt(lines[1][i+2:], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid temperature: %w", err)
	}
	// 85000 is the DS18B20 power-on reset value, not a measurement.
	if milli == 85000 {
		return 0, errors.New("sensor returned power-on reset value")
	}
	return float64(milli) / 1000, nil
}
