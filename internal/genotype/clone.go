package genotype

import "trackdrive/internal/model"

func CloneGenome(g model.Genome) model.Genome {
	out := g
	out.Neurons = append([]model.Neuron(nil), g.Neurons...)
	out.Synapses = append([]model.Synapse(nil), g.Synapses...)
	out.InputIDs = append([]string(nil), g.InputIDs...)
	out.OutputIDs = append([]string(nil), g.OutputIDs...)
	return out
}

// CloneAgent copies g under a new id and records g as the parent.
func CloneAgent(g model.Genome, id string) model.Genome {
	out := CloneGenome(g)
	if id != g.ID {
		out.ParentID = g.ID
	}
	out.ID = id
	return out
}
