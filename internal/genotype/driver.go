package genotype

import (
	"fmt"
	"math/rand"
	"strings"

	"trackdrive/internal/control"
	"trackdrive/internal/model"
	"trackdrive/internal/nn"
	"trackdrive/internal/sensing"
)

const (
	DefaultHiddenActivation = "tanh"
	DefaultOutputActivation = "sigmoid"
	DefaultWeightSpread     = 1.0
)

// DriverSpec shapes a dense seed network: observation inputs, zero or more
// hidden layers, and one output per decision score.
type DriverSpec struct {
	Decision         string
	Hidden           []int
	HiddenActivation string
	OutputActivation string
	WeightSpread     float64
}

func DefaultDriverSpec() DriverSpec {
	return DriverSpec{
		Decision:         control.ArgmaxSteerName,
		Hidden:           []int{8},
		HiddenActivation: DefaultHiddenActivation,
		OutputActivation: DefaultOutputActivation,
		WeightSpread:     DefaultWeightSpread,
	}
}

func (s DriverSpec) withDefaults() DriverSpec {
	if s.Decision == "" {
		s.Decision = control.ArgmaxSteerName
	}
	if s.HiddenActivation == "" {
		s.HiddenActivation = DefaultHiddenActivation
	}
	if s.OutputActivation == "" {
		s.OutputActivation = DefaultOutputActivation
	}
	if s.WeightSpread <= 0 {
		s.WeightSpread = DefaultWeightSpread
	}
	return s
}

// NewDriver builds a fully connected feed-forward genome mapping the
// observation to the scores the named decision adapter expects.
func NewDriver(id string, spec DriverSpec, rng *rand.Rand) (model.Genome, error) {
	if strings.TrimSpace(id) == "" {
		return model.Genome{}, fmt.Errorf("genome id is required")
	}
	spec = spec.withDefaults()
	adapter, err := control.NewAdapter(spec.Decision, control.MaxSteer)
	if err != nil {
		return model.Genome{}, err
	}
	for _, name := range []string{spec.HiddenActivation, spec.OutputActivation} {
		if _, err := nn.GetActivation(name); err != nil {
			return model.Genome{}, err
		}
	}
	for i, width := range spec.Hidden {
		if width <= 0 {
			return model.Genome{}, fmt.Errorf("hidden layer %d width must be > 0, got %d", i, width)
		}
	}
	rng = ensureRNG(rng)

	genome := model.Genome{
		VersionedRecord: model.CurrentVersion(),
		ID:              id,
		Decision:        adapter.Name(),
		InputIDs:        make([]string, sensing.ObservationSize),
	}
	for i := range genome.InputIDs {
		genome.InputIDs[i] = fmt.Sprintf("in-%02d", i)
	}

	previous := genome.InputIDs
	for layer, width := range spec.Hidden {
		ids := make([]string, width)
		for i := range ids {
			ids[i] = fmt.Sprintf("h%d-%02d", layer, i)
		}
		connectLayer(&genome, previous, ids, spec.HiddenActivation, spec.WeightSpread, rng)
		previous = ids
	}

	genome.OutputIDs = make([]string, adapter.Outputs())
	for i := range genome.OutputIDs {
		genome.OutputIDs[i] = fmt.Sprintf("out-%d", i)
	}
	connectLayer(&genome, previous, genome.OutputIDs, spec.OutputActivation, spec.WeightSpread, rng)
	return genome, nil
}

func connectLayer(genome *model.Genome, from, to []string, activation string, spread float64, rng *rand.Rand) {
	for _, target := range to {
		genome.Neurons = append(genome.Neurons, model.Neuron{
			ID:         target,
			Activation: activation,
			Bias:       randomCentered(rng, spread),
		})
		for _, source := range from {
			genome.Synapses = append(genome.Synapses, model.Synapse{
				ID:      source + ">" + target,
				From:    source,
				To:      target,
				Weight:  randomCentered(rng, spread),
				Enabled: true,
			})
		}
	}
}

// NewPopulation seeds size independent drivers named prefix-0, prefix-1, ...
func NewPopulation(prefix string, size int, spec DriverSpec, rng *rand.Rand) ([]model.Genome, error) {
	if size <= 0 {
		return nil, fmt.Errorf("population size must be > 0")
	}
	rng = ensureRNG(rng)
	population := make([]model.Genome, 0, size)
	for i := 0; i < size; i++ {
		genome, err := NewDriver(fmt.Sprintf("%s-%d", prefix, i), spec, rng)
		if err != nil {
			return nil, err
		}
		population = append(population, genome)
	}
	return population, nil
}
