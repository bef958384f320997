package nn

import "math"

const defaultSaturationLimit = 1000.0

// Saturation clamps values to [-1000, 1000].
func Saturation(value float64) float64 {
	return SaturationWithSpread(value, defaultSaturationLimit)
}

// SaturationWithSpread clamps values to the symmetric range [-spread, spread].
// NaN saturates to 0.
func SaturationWithSpread(value, spread float64) float64 {
	if math.IsNaN(value) {
		return 0
	}
	spread = math.Abs(spread)
	return math.Max(-spread, math.Min(spread, value))
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

func relu(x float64) float64 {
	if x < 0 {
		return 0
	}
	return x
}

func gaussian(x float64) float64 {
	x = SaturationWithSpread(x, 10)
	return math.Exp(-x * x)
}

func step(x float64) float64 {
	if x > 0 {
		return 1
	}
	return 0
}
