package nn

import (
	"errors"
	"fmt"

	"trackdrive/internal/model"
)

var ErrInvalidTopology = errors.New("invalid network topology")

type link struct {
	from   int
	weight float64
}

type unit struct {
	bias       float64
	activation ActivationFunc
	incoming   []link
}

// Network is a genome compiled for repeated evaluation. Inputs occupy the
// first slots of the value buffer and computed neurons follow in genome
// order. A Network is not safe for concurrent use.
type Network struct {
	inputs  int
	units   []unit
	outputs []int
	values  []float64
}

// Compile resolves activations and synapse endpoints once. Synapses must
// point from an input or an earlier neuron; anything else is rejected.
func Compile(genome model.Genome) (*Network, error) {
	if len(genome.InputIDs) == 0 {
		return nil, fmt.Errorf("%w: input ids are required", ErrInvalidTopology)
	}
	if len(genome.OutputIDs) == 0 {
		return nil, fmt.Errorf("%w: output ids are required", ErrInvalidTopology)
	}

	slots := make(map[string]int, len(genome.InputIDs)+len(genome.Neurons))
	for i, id := range genome.InputIDs {
		if _, dup := slots[id]; dup {
			return nil, fmt.Errorf("%w: duplicate input %s", ErrInvalidTopology, id)
		}
		slots[id] = i
	}

	inputs := len(genome.InputIDs)
	units := make([]unit, 0, len(genome.Neurons))
	for _, neuron := range genome.Neurons {
		if slot, exists := slots[neuron.ID]; exists {
			if slot < inputs {
				continue
			}
			return nil, fmt.Errorf("%w: duplicate neuron %s", ErrInvalidTopology, neuron.ID)
		}
		fn, err := GetActivation(neuron.Activation)
		if err != nil {
			return nil, fmt.Errorf("neuron %s: %w", neuron.ID, err)
		}
		slots[neuron.ID] = inputs + len(units)
		units = append(units, unit{bias: neuron.Bias, activation: fn})
	}

	for _, synapse := range genome.Synapses {
		if !synapse.Enabled {
			continue
		}
		from, ok := slots[synapse.From]
		if !ok {
			return nil, fmt.Errorf("%w: synapse %s source %s not found", ErrInvalidTopology, synapse.ID, synapse.From)
		}
		to, ok := slots[synapse.To]
		if !ok || to < inputs {
			return nil, fmt.Errorf("%w: synapse %s target %s is not a neuron", ErrInvalidTopology, synapse.ID, synapse.To)
		}
		if from >= to {
			return nil, fmt.Errorf("%w: synapse %s is recurrent", ErrInvalidTopology, synapse.ID)
		}
		u := &units[to-inputs]
		u.incoming = append(u.incoming, link{from: from, weight: synapse.Weight})
	}

	outputs := make([]int, len(genome.OutputIDs))
	for i, id := range genome.OutputIDs {
		slot, ok := slots[id]
		if !ok {
			return nil, fmt.Errorf("%w: output %s not found", ErrInvalidTopology, id)
		}
		outputs[i] = slot
	}

	return &Network{
		inputs:  inputs,
		units:   units,
		outputs: outputs,
		values:  make([]float64, inputs+len(units)),
	}, nil
}

func (n *Network) Inputs() int  { return n.inputs }
func (n *Network) Outputs() int { return len(n.outputs) }

// Activate runs one forward pass and returns a fresh output slice.
func (n *Network) Activate(inputs []float64) ([]float64, error) {
	if len(inputs) != n.inputs {
		return nil, fmt.Errorf("input size mismatch: got=%d want=%d", len(inputs), n.inputs)
	}
	copy(n.values, inputs)
	for i, u := range n.units {
		total := u.bias
		for _, in := range u.incoming {
			total += n.values[in.from] * in.weight
		}
		n.values[n.inputs+i] = u.activation(Saturation(total))
	}

	out := make([]float64, len(n.outputs))
	for i, slot := range n.outputs {
		out[i] = n.values[slot]
	}
	return out, nil
}

// Forward evaluates genome once with inputs keyed by input id.
func Forward(genome model.Genome, inputByID map[string]float64) ([]float64, error) {
	network, err := Compile(genome)
	if err != nil {
		return nil, err
	}
	inputs := make([]float64, len(genome.InputIDs))
	for i, id := range genome.InputIDs {
		inputs[i] = inputByID[id]
	}
	return network.Activate(inputs)
}
