package calibration

import (
	"math"
	"time"
)

// Reference holds the physical values a probe is calibrated against.
type Reference struct {
	Low  float64 `json:"low"`
	Mid  float64 `json:"mid"`
	High float64 `json:"high"`
	// Unit is used in operator prompts, e.g. "pH" or "in".
	Unit string `json:"unit"`
}

var (
	// PH is the reference set for pH buffer solutions 4.00, 7.00 and 10.00.
	PH = Reference{Low: 4, Mid: 7, High: 10, Unit: "pH"}
	// Depth is the reference set for water depth in inches.
	Depth = Reference{Low: 1, Mid: 6, High: 12, Unit: "in"}
)

// Points returns the reference values in calibration order.
func (r Reference) Points() [3]float64 {
	return [3]float64{r.Low, r.Mid, r.High}
}

// Segment is one linear piece of the mapping: value = Slope*voltage + Intercept.
type Segment struct {
	Slope     float64
	Intercept float64
}

// Apply evaluates the segment at voltage v.
func (s Segment) Apply(v float64) float64 {
	return s.Slope*v + s.Intercept
}

// State is the persisted calibration of one probe.
type State struct {
	ThresholdVoltage  float64 `json:"threshold_voltage"`
	SegmentASlope     float64 `json:"segment_a_slope"`
	SegmentAIntercept float64 `json:"segment_a_intercept"`
	SegmentBSlope     float64 `json:"segment_b_slope"`
	SegmentBIntercept float64 `json:"segment_b_intercept"`

	Sensor       string     `json:"sensor,omitempty"`
	References   *Reference `json:"references,omitempty"`
	Voltages     []float64  `json:"voltages,omitempty"`
	CalibratedAt time.Time  `json:"calibrated_at"`
}

// SegmentA is used for voltages strictly above the threshold.
func (s State) SegmentA() Segment {
	return Segment{Slope: s.SegmentASlope, Intercept: s.SegmentAIntercept}
}

// SegmentB is used for voltages at or below the threshold.
func (s State) SegmentB() Segment {
	return Segment{Slope: s.SegmentBSlope, Intercept: s.SegmentBIntercept}
}

// Select returns the segment that applies to voltage v.
func (s State) Select(v float64) Segment {
	if v > s.ThresholdVoltage {
		return s.SegmentA()
	}
	return s.SegmentB()
}

// Value converts voltage v into a physical value.
func (s State) Value(v float64) float64 {
	return s.Select(v).Apply(v)
}

// Validate checks that both segments are usable: finite coefficients and
// nonzero slopes of the same sign.
func (s State) Validate() error {
	for _, f := range []float64{s.ThresholdVoltage, s.SegmentASlope, s.SegmentAIntercept, s.SegmentBSlope, s.SegmentBIntercept} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return newError("coefficient %v is not a finite number", f)
		}
	}
	if s.SegmentASlope == 0 || s.SegmentBSlope == 0 {
		return newError("segment slopes %v and %v must be nonzero", s.SegmentASlope, s.SegmentBSlope)
	}
	if (s.SegmentASlope > 0) != (s.SegmentBSlope > 0) {
		return newError("segment slopes %v and %v are not monotonic", s.SegmentASlope, s.SegmentBSlope)
	}
	return nil
}
