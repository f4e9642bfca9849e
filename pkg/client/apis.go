package client

import (
	"encoding/json"
	"net/url"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"github.com/wqlog/wqlog/pkg/powerinfo"
	"github.com/wqlog/wqlog/pkg/types"
)

func (c *Client) GetStatus(withHistory bool) (*types.Status, error) {
	path := "/status"
	if withHistory {
		path += "?history=1"
	}
	ret, err := c.Get(path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get status")
	}

	var st types.Status
	if err := json.Unmarshal([]byte(ret), &st); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal status")
	}
	return &st, nil
}

// TriggerCycle asks the daemon to sample and deliver one row now. It blocks
// until the cycle finishes.
func (c *Client) TriggerCycle() (*types.CycleResult, error) {
	ret, err := c.Post("/cycle", "")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to trigger cycle")
	}

	var res types.CycleResult
	if err := json.Unmarshal([]byte(ret), &res); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal cycle result")
	}
	return &res, nil
}

func (c *Client) GetCalibration(sensor string) (*types.Calibration, error) {
	ret, err := c.Get("/calibration/" + url.PathEscape(sensor))
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get %s calibration", sensor)
	}

	var cal types.Calibration
	if err := json.Unmarshal([]byte(ret), &cal); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal calibration")
	}
	return &cal, nil
}

// ReloadCalibrations makes the daemon re-read the calibration files.
func (c *Client) ReloadCalibrations() (string, error) {
	ret, err := c.Post("/calibration/reload", "")
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to reload calibrations")
	}
	return unquote(ret), nil
}

func (c *Client) GetPower() (*powerinfo.Snapshot, error) {
	ret, err := c.Get("/power")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get power info")
	}

	var snap powerinfo.Snapshot
	if err := json.Unmarshal([]byte(ret), &snap); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal power info")
	}
	return &snap, nil
}

func (c *Client) GetVersion() (string, error) {
	ret, err := c.Get("/version")
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to get version")
	}
	return unquote(ret), nil
}

// unquote strips the quotes around a JSON string response.
func unquote(s string) string {
	var out string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return strings.Trim(strings.TrimSpace(s), `"`)
	}
	return out
}
