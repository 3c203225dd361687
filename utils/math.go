// Package utils contains small numeric helpers shared across packages.
package utils

import (
	"math"
)

// MillimetersPerMeter converts between the internal meter unit and the millimeters used
// by pose providers, data files and the CLI.
const MillimetersPerMeter = 1000.0

// DegToRad converts degrees to radians.
func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(radians float64) float64 {
	return radians * 180 / math.Pi
}

// MMToMeters converts millimeters to meters.
func MMToMeters(mm float64) float64 {
	return mm / MillimetersPerMeter
}

// MetersToMM converts meters to millimeters.
func MetersToMM(m float64) float64 {
	return m * MillimetersPerMeter
}
