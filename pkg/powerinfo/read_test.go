package powerinfo

import (
	"errors"
	"testing"

	"github.com/distatus/battery"
)

func TestRead(t *testing.T) {
	orig := getAll
	defer func() { getAll = orig }()

	getAll = func() ([]*battery.Battery, error) {
		return []*battery.Battery{
			{State: battery.Discharging, Current: 25000, Full: 50000, ChargeRate: 4000, Voltage: 12.1},
			nil,
		}, battery.Errors{nil, errors.New("no such device")}
	}

	snap, err := Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap.Batteries) != 1 {
		t.Fatalf("expected 1 battery, got %d", len(snap.Batteries))
	}
	b := snap.Batteries[0]
	if b.State != Discharging || b.Percent != 50 || b.ChargeRate != -4000 {
		t.Fatalf("unexpected battery: %+v", b)
	}
	if !snap.OnBattery() {
		t.Fatalf("expected host to be on battery")
	}
	if snap.Error == "" {
		t.Fatalf("expected partial error to be reported")
	}

	getAll = func() ([]*battery.Battery, error) {
		return nil, errors.New("boom")
	}
	if _, err := Read(); err == nil {
		t.Fatalf("expected error")
	}
}
