// Package powerinfo reports the logger host's battery or UPS state. Field
// loggers often run from a solar-charged pack, so low power explains gaps in
// the sheet.
package powerinfo

import (
	"errors"

	"github.com/distatus/battery"
)

// getAll is a seam for tests.
var getAll = battery.GetAll

func convertState(s battery.State) BatteryState {
	switch s {
	case battery.Discharging:
		return Discharging
	case battery.Charging:
		return Charging
	case battery.Full:
		return Full
	case battery.Empty:
		return Empty
	default:
		return Unknown
	}
}

// Read collects the current snapshot. Batteries that fail to report are
// skipped; the error is kept in the snapshot.
func Read() (Snapshot, error) {
	batteries, err := getAll()
	snap := Snapshot{Batteries: []Battery{}}

	if err != nil {
		var partial battery.Errors
		if !errors.As(err, &partial) {
			return snap, err
		}
		snap.Error = err.Error()
	}

	for i, bat := range batteries {
		if bat == nil {
			continue
		}
		b := Battery{
			Index:         i,
			State:         convertState(bat.State),
			Current:       bat.Current,
			Full:          bat.Full,
			Design:        bat.Design,
			ChargeRate:    bat.ChargeRate,
			Voltage:       bat.Voltage,
			DesignVoltage: bat.DesignVoltage,
		}
		if b.State == Discharging {
			b.ChargeRate = -b.ChargeRate
		}
		if bat.Full > 0 {
			b.Percent = bat.Current / bat.Full * 100
		}
		snap.Batteries = append(snap.Batteries, b)
	}
	return snap, nil
}
