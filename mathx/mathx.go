// Package mathx holds small numeric helpers shared by the clock and telemetry code.
package mathx

// Round rounds a float to the nearest "unit" (1 for integers, 0.1 for tenths, and so on).
// Halves round away from zero for positive x, the same as adding 0.5 and truncating.
func Round(x, unit float64) float64 {
	return float64(int64(x/unit+0.5)) * unit
}

// WrapDiff returns a - b for two free-running 32-bit counters that wrap at the
// same modulus.  A counter that has wrapped past the other still yields the
// small positive distance between them rather than a huge negative one.
func WrapDiff(a, b uint32) uint32 {
	return a - b
}
