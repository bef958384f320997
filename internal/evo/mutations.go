package evo

import (
	"context"
	"errors"
	"math"
	"math/rand"

	"trackdrive/internal/genotype"
	"trackdrive/internal/model"
	"trackdrive/internal/nn"
)

var (
	ErrNoSynapses       = errors.New("genome has no synapses")
	ErrNoNeurons        = errors.New("genome has no neurons")
	ErrNoMutationChoice = errors.New("no mutation choice available")
)

func checkPerturbation(rng *rand.Rand, maxDelta float64) error {
	if rng == nil {
		return errors.New("random source is required")
	}
	if maxDelta <= 0 {
		return errors.New("max delta must be > 0")
	}
	return nil
}

func uniformDelta(rng *rand.Rand, maxDelta float64) float64 {
	return (rng.Float64()*2 - 1) * maxDelta
}

// PerturbRandomWeight mutates a random synapse using uniform delta in [-MaxDelta, MaxDelta].
type PerturbRandomWeight struct {
	Rand     *rand.Rand
	MaxDelta float64
}

func (o *PerturbRandomWeight) Name() string {
	return "perturb_random_weight"
}

func (o *PerturbRandomWeight) Apply(_ context.Context, genome model.Genome) (model.Genome, error) {
	if len(genome.Synapses) == 0 {
		return model.Genome{}, ErrNoSynapses
	}
	if err := checkPerturbation(o.Rand, o.MaxDelta); err != nil {
		return model.Genome{}, err
	}

	mutated := genotype.CloneGenome(genome)
	idx := o.Rand.Intn(len(mutated.Synapses))
	mutated.Synapses[idx].Weight += uniformDelta(o.Rand, o.MaxDelta)
	return mutated, nil
}

// PerturbWeightsProportional perturbs each synapse with probability
// 1/sqrt(total synapses), and at least one synapse always.
type PerturbWeightsProportional struct {
	Rand     *rand.Rand
	MaxDelta float64
}

func (o *PerturbWeightsProportional) Name() string {
	return "perturb_weights_proportional"
}

func (o *PerturbWeightsProportional) Apply(_ context.Context, genome model.Genome) (model.Genome, error) {
	if len(genome.Synapses) == 0 {
		return model.Genome{}, ErrNoSynapses
	}
	if err := checkPerturbation(o.Rand, o.MaxDelta); err != nil {
		return model.Genome{}, err
	}

	mutated := genotype.CloneGenome(genome)
	mp := 1 / math.Sqrt(float64(len(mutated.Synapses)))
	mutatedCount := 0
	for i := range mutated.Synapses {
		if o.Rand.Float64() >= mp {
			continue
		}
		mutated.Synapses[i].Weight += uniformDelta(o.Rand, o.MaxDelta)
		mutatedCount++
	}
	if mutatedCount == 0 {
		idx := o.Rand.Intn(len(mutated.Synapses))
		mutated.Synapses[idx].Weight += uniformDelta(o.Rand, o.MaxDelta)
	}
	return mutated, nil
}

// PerturbRandomBias mutates one neuron bias.
type PerturbRandomBias struct {
	Rand     *rand.Rand
	MaxDelta float64
}

func (o *PerturbRandomBias) Name() string {
	return "perturb_random_bias"
}

func (o *PerturbRandomBias) Apply(_ context.Context, genome model.Genome) (model.Genome, error) {
	if len(genome.Neurons) == 0 {
		return model.Genome{}, ErrNoNeurons
	}
	if err := checkPerturbation(o.Rand, o.MaxDelta); err != nil {
		return model.Genome{}, err
	}

	mutated := genotype.CloneGenome(genome)
	idx := o.Rand.Intn(len(mutated.Neurons))
	mutated.Neurons[idx].Bias += uniformDelta(o.Rand, o.MaxDelta)
	return mutated, nil
}

// ChangeRandomActivation swaps the activation of one hidden neuron. Output
// neurons keep theirs so decision scores stay in range.
type ChangeRandomActivation struct {
	Rand        *rand.Rand
	Activations []string
}

func (o *ChangeRandomActivation) Name() string {
	return "change_random_activation"
}

func (o *ChangeRandomActivation) Apply(_ context.Context, genome model.Genome) (model.Genome, error) {
	if o.Rand == nil {
		return model.Genome{}, errors.New("random source is required")
	}
	outputs := make(map[string]struct{}, len(genome.OutputIDs))
	for _, id := range genome.OutputIDs {
		outputs[id] = struct{}{}
	}
	hidden := make([]int, 0, len(genome.Neurons))
	for i, n := range genome.Neurons {
		if _, isOutput := outputs[n.ID]; !isOutput {
			hidden = append(hidden, i)
		}
	}
	if len(hidden) == 0 {
		return model.Genome{}, ErrNoNeurons
	}

	activations := o.Activations
	if len(activations) == 0 {
		activations = nn.ListActivations()
	}
	idx := hidden[o.Rand.Intn(len(hidden))]
	current := genome.Neurons[idx].Activation
	choices := make([]string, 0, len(activations))
	for _, name := range activations {
		if name != "" && name != current {
			choices = append(choices, name)
		}
	}
	if len(choices) == 0 {
		return model.Genome{}, ErrNoMutationChoice
	}

	mutated := genotype.CloneGenome(genome)
	mutated.Neurons[idx].Activation = choices[o.Rand.Intn(len(choices))]
	return mutated, nil
}

// ToggleRandomSynapse flips the enabled flag of one synapse.
type ToggleRandomSynapse struct {
	Rand *rand.Rand
}

func (o *ToggleRandomSynapse) Name() string {
	return "toggle_random_synapse"
}

func (o *ToggleRandomSynapse) Apply(_ context.Context, genome model.Genome) (model.Genome, error) {
	if len(genome.Synapses) == 0 {
		return model.Genome{}, ErrNoSynapses
	}
	if o.Rand == nil {
		return model.Genome{}, errors.New("random source is required")
	}
	mutated := genotype.CloneGenome(genome)
	idx := o.Rand.Intn(len(mutated.Synapses))
	mutated.Synapses[idx].Enabled = !mutated.Synapses[idx].Enabled
	return mutated, nil
}
