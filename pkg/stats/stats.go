// Package stats holds the small numeric helpers shared by reports and progress.
package stats

import "math"

// Round2 rounds to 2 decimal places.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// Percent returns part/whole*100 rounded to 2 decimals, or 0 when whole is 0.
func Percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return Round2(float64(part) / float64(whole) * 100)
}

// Ratio returns part/whole capped at 1.
func Ratio(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return math.Min(float64(part)/float64(whole), 1)
}
