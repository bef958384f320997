package genotype

import (
	"math/rand"
	"time"
)

func ensureRNG(rng *rand.Rand) *rand.Rand {
	if rng != nil {
		return rng
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// randomCentered is uniform in [-spread, spread).
func randomCentered(rng *rand.Rand, spread float64) float64 {
	return (rng.Float64()*2 - 1) * spread
}
