// Package calibration converts analog probe voltages into physical values
// using a two-segment piecewise-linear mapping. It contains:
//
//   - Reference: the three known physical values used to calibrate a probe
//   - State: the persisted threshold voltage and segment coefficients
//   - Engine: owns one probe's State, reads voltages and runs the
//     interactive three-point calibration
//
// The threshold is the voltage captured at the mid reference point. Voltages
// strictly above it use segment A (fitted between the low and mid points),
// everything else uses segment B (fitted between the mid and high points).
package calibration
