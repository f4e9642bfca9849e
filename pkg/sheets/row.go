package sheets

import (
	"fmt"
	"time"
)

// DefaultDateOffset is subtracted from the epoch timestamp before the sheet
// renders it as a date (UTC-8).
const DefaultDateOffset = 28800

// MeasurementRow is one sample of every probe.
type MeasurementRow struct {
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
	Depth       float64   `json:"depth"`
	PH          float64   `json:"ph"`
}

// Values renders the row as sheet cells: epoch seconds, a date formula and
// the three readings with two decimals.
func (r MeasurementRow) Values(dateOffset int64) []any {
	ts := r.Timestamp.Unix()
	return []any{
		ts,
		fmt.Sprintf("=EPOCHTODATE(%d - %d)", ts, dateOffset),
		fmt.Sprintf("%.2f", r.Temperature),
		fmt.Sprintf("%.2f", r.Depth),
		fmt.Sprintf("%.2f", r.PH),
	}
}
