package powerinfo

// BatteryState represents the charging state of the host battery or UPS.
type BatteryState string

const (
	Unknown     BatteryState = "unknown"
	Discharging BatteryState = "discharging"
	Charging    BatteryState = "charging"
	Full        BatteryState = "full"
	Empty       BatteryState = "empty"
)

// Battery is the power snapshot reported by the daemon.
// Units:
// - Current, Full, Design: mWh
// - ChargeRate: mW (negative when discharging)
// - Voltage: Volts
type Battery struct {
	Index         int          `json:"index"`
	State         BatteryState `json:"state"`
	Percent       float64      `json:"percent"`
	Current       float64      `json:"current"`
	Full          float64      `json:"full"`
	Design        float64      `json:"design"`
	ChargeRate    float64      `json:"chargeRate"`
	Voltage       float64      `json:"voltage"`
	DesignVoltage float64      `json:"designVoltage"`
}

// Snapshot lists every battery the host reports. Loggers on mains power
// report none.
type Snapshot struct {
	Batteries []Battery `json:"batteries"`
	Error     string    `json:"error,omitempty"`
}

// OnBattery reports whether any battery is discharging.
func (s Snapshot) OnBattery() bool {
	for _, b := range s.Batteries {
		if b.State == Discharging {
			return true
		}
	}
	return false
}
