package genotype

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"trackdrive/internal/model"
)

type TopologySummary struct {
	TotalNeurons           int            `json:"total_neurons"`
	EnabledSynapses        int            `json:"enabled_synapses"`
	DisabledSynapses       int            `json:"disabled_synapses"`
	ActivationDistribution map[string]int `json:"activation_distribution"`
}

type GenomeSignature struct {
	Fingerprint string          `json:"fingerprint"`
	Summary     TopologySummary `json:"summary"`
}

// ComputeGenomeSignature fingerprints topology and activations; weights and
// biases do not contribute.
func ComputeGenomeSignature(genome model.Genome) GenomeSignature {
	summary := TopologySummary{
		TotalNeurons:           len(genome.Neurons),
		ActivationDistribution: make(map[string]int),
	}
	disabled := make([]string, 0)
	for _, n := range genome.Neurons {
		summary.ActivationDistribution[n.Activation]++
	}
	for _, s := range genome.Synapses {
		if s.Enabled {
			summary.EnabledSynapses++
			continue
		}
		summary.DisabledSynapses++
		disabled = append(disabled, s.From+">"+s.To)
	}

	parts := []string{
		fmt.Sprintf("n=%d", summary.TotalNeurons),
		fmt.Sprintf("s=%d", summary.EnabledSynapses),
		fmt.Sprintf("in=%d", len(genome.InputIDs)),
		fmt.Sprintf("out=%d", len(genome.OutputIDs)),
	}
	for _, n := range genome.Neurons {
		parts = append(parts, n.ID+":"+n.Activation)
	}
	sort.Strings(disabled)
	parts = append(parts, disabled...)

	digest := sha1.Sum([]byte(strings.Join(parts, "|")))
	return GenomeSignature{
		Fingerprint: hex.EncodeToString(digest[:8]),
		Summary:     summary,
	}
}
