package utils

import "math"

// Float32ToInt16 clamps x to [-1,1] and scales it to a 16-bit PCM
// sample, rounding to the nearest code. Positive full scale maps to
// 32767 to avoid overflow; rounding keeps the quantization error
// within half an LSB either way.
func Float32ToInt16(x float32) int16 {
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}

	return int16(math.Round(float64(x) * 32767.0))
}

// Int16ToFloat32 is the inverse scaling used when reading rendered
// PCM back for verification.
func Int16ToFloat32(v int16) float32 {
	return float32(v) / 32768.0
}
