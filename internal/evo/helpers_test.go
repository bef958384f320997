package evo

import (
	"context"
	"fmt"

	"trackdrive/internal/model"
	"trackdrive/internal/scape"
)

func newLinearGenome(id string, weight float64) model.Genome {
	return model.Genome{
		VersionedRecord: model.CurrentVersion(),
		ID:              id,
		InputIDs:        []string{"i"},
		OutputIDs:       []string{"o"},
		Neurons: []model.Neuron{
			{ID: "h", Activation: "identity"},
			{ID: "o", Activation: "identity"},
		},
		Synapses: []model.Synapse{
			{ID: "s1", From: "i", To: "h", Weight: weight, Enabled: true},
			{ID: "s2", From: "h", To: "o", Weight: 1, Enabled: true},
		},
	}
}

func linearPopulation(size int) []model.Genome {
	population := make([]model.Genome, size)
	for i := range population {
		population[i] = newLinearGenome(fmt.Sprintf("seed-%d", i), float64(i)*0.1)
	}
	return population
}

// gainScape scores an agent by its response to a unit input, so the
// fittest genomes carry the largest weights.
type gainScape struct{}

func (gainScape) Name() string { return "gain" }

func (gainScape) Evaluate(ctx context.Context, a scape.Agent) (scape.Fitness, scape.Trace, error) {
	runner, ok := a.(scape.StepAgent)
	if !ok {
		return 0, nil, fmt.Errorf("agent %s does not implement step runner", a.ID())
	}
	out, err := runner.RunStep(ctx, []float64{1})
	if err != nil {
		return 0, nil, err
	}
	return scape.Fitness(out[0]), scape.Trace{"gates_passed": int(out[0] * 10)}, nil
}

type failingScape struct{}

func (failingScape) Name() string { return "failing" }

func (failingScape) Evaluate(context.Context, scape.Agent) (scape.Fitness, scape.Trace, error) {
	return 0, nil, fmt.Errorf("track unavailable")
}
