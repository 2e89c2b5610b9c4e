// Package utils contains small numeric helpers shared by the bridge packages.
package utils

import "math"

// DegToRad converts degrees to radians.
func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(radians float64) float64 {
	return radians * 180 / math.Pi
}

// ModAngDeg wraps an angle in degrees into [0, 360).
func ModAngDeg(ang float64) float64 {
	m := math.Mod(math.Mod(ang, 360)+360, 360)
	if m >= 360 {
		return 0
	}
	return m
}

// AngleDiffDeg returns the closest difference from the two given
// angles. The arguments are commutative.
func AngleDiffDeg(a1, a2 float64) float64 {
	return 180 - math.Abs(math.Abs(ModAngDeg(a1)-ModAngDeg(a2))-180)
}

// Float64AlmostEqual compares two float64s and returns if the difference between them
// is less than epsilon.
func Float64AlmostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) <= epsilon
}
