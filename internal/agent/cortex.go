package agent

import (
	"context"
	"fmt"

	"trackdrive/internal/model"
	"trackdrive/internal/nn"
)

// Cortex drives one genome. It satisfies race.Policy; a Cortex keeps a
// scratch buffer and must not be shared between concurrent runs.
type Cortex struct {
	id      string
	genome  model.Genome
	network *nn.Network
}

func NewCortex(id string, genome model.Genome) (*Cortex, error) {
	if id == "" {
		return nil, fmt.Errorf("agent id is required")
	}
	network, err := nn.Compile(genome)
	if err != nil {
		return nil, fmt.Errorf("compile genome %s: %w", genome.ID, err)
	}
	return &Cortex{id: id, genome: genome, network: network}, nil
}

func (c *Cortex) ID() string {
	return c.id
}

func (c *Cortex) Genome() model.Genome {
	return c.genome
}

// Outputs is the number of raw scores produced per step.
func (c *Cortex) Outputs() int {
	return c.network.Outputs()
}

func (c *Cortex) RunStep(ctx context.Context, inputs []float64) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.network.Activate(inputs)
}
