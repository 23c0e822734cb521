// Package loudness measures the level of 16-bit PCM frames.
package loudness

import "math"

// FullScale is the magnitude of the most negative int16 sample.
const FullScale = 32768.0

// RMS returns the root mean square of the frame.
// Samples are squared in float64 so full-scale input cannot overflow.
// An empty frame has loudness 0.
func RMS(frame []int16) float64 {
	if len(frame) == 0 {
		return 0
	}

	var sum float64
	for _, s := range frame {
		v := float64(s)
		sum += v * v
	}

	return math.Sqrt(sum / float64(len(frame)))
}

// DBFS converts an RMS value to decibels relative to full scale.
// Silence maps to -Inf.
func DBFS(rms float64) float64 {
	if rms <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(rms/FullScale)
}
