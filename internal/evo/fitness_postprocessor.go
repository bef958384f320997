package evo

import (
	"math"

	"trackdrive/internal/simerr"
)

const sizeProportionalEfficiency = 0.05

// FitnessPostprocessor adjusts fitness values after evaluation and before
// ranking and selection.
type FitnessPostprocessor interface {
	Name() string
	Process(scored []ScoredGenome) []ScoredGenome
}

type NoopFitnessPostprocessor struct{}

func (NoopFitnessPostprocessor) Name() string {
	return "none"
}

func (NoopFitnessPostprocessor) Process(scored []ScoredGenome) []ScoredGenome {
	return cloneScored(scored)
}

// SizeProportionalPostprocessor penalizes larger networks. Negative scores
// are scaled the other way so a bigger network never gains from a penalty.
type SizeProportionalPostprocessor struct{}

func (SizeProportionalPostprocessor) Name() string {
	return "size_proportional"
}

func (SizeProportionalPostprocessor) Process(scored []ScoredGenome) []ScoredGenome {
	out := cloneScored(scored)
	for i := range out {
		complexity := 0
		for _, s := range out[i].Genome.Synapses {
			if s.Enabled {
				complexity++
			}
		}
		complexity += len(out[i].Genome.Neurons)
		factor := math.Pow(math.Max(1, float64(complexity)), sizeProportionalEfficiency)
		if out[i].Fitness >= 0 {
			out[i].Fitness /= factor
		} else {
			out[i].Fitness *= factor
		}
	}
	return out
}

func NewPostprocessor(name string) (FitnessPostprocessor, error) {
	switch name {
	case "", "none":
		return NoopFitnessPostprocessor{}, nil
	case "size_proportional":
		return SizeProportionalPostprocessor{}, nil
	default:
		return nil, simerr.Configf("unknown fitness postprocessor %q", name)
	}
}

func cloneScored(scored []ScoredGenome) []ScoredGenome {
	out := make([]ScoredGenome, len(scored))
	copy(out, scored)
	return out
}
