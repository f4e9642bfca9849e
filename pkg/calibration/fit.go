package calibration

import "math"

// Fit computes the calibration state from the voltages captured at the low,
// mid and high reference points.
func Fit(ref Reference, vLow, vMid, vHigh float64) (State, error) {
	for _, v := range []float64{vLow, vMid, vHigh} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return State{}, newError("voltage %v is not a finite number", v)
		}
	}
	if !(ref.Low < ref.Mid && ref.Mid < ref.High) {
		return State{}, newError("reference values %v, %v, %v are not strictly increasing", ref.Low, ref.Mid, ref.High)
	}
	if vMid == vLow {
		return State{}, newError("low and mid reference points read the same voltage %.3f V", vMid)
	}
	if vHigh == vMid {
		return State{}, newError("mid and high reference points read the same voltage %.3f V", vMid)
	}

	slopeA := (ref.Mid - ref.Low) / (vMid - vLow)
	slopeB := (ref.High - ref.Mid) / (vHigh - vMid)
	if (slopeA > 0) != (slopeB > 0) {
		return State{}, newError("voltages %.3f, %.3f, %.3f V are not monotonic", vLow, vMid, vHigh)
	}

	r := ref
	return State{
		ThresholdVoltage:  vMid,
		SegmentASlope:     slopeA,
		SegmentAIntercept: ref.Mid - slopeA*vMid,
		SegmentBSlope:     slopeB,
		SegmentBIntercept: ref.High - slopeB*vHigh,
		References:        &r,
		Voltages:          []float64{vLow, vMid, vHigh},
	}, nil
}
