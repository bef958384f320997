package model

import "time"

const (
	SchemaVersion = 1
	CodecVersion  = 1
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

func CurrentVersion() VersionedRecord {
	return VersionedRecord{SchemaVersion: SchemaVersion, CodecVersion: CodecVersion}
}

// Genome is a feed-forward driving network. Neurons are evaluated in slice
// order; InputIDs receive the observation and OutputIDs feed the decision
// adapter named by Decision.
type Genome struct {
	VersionedRecord
	ID        string    `json:"id"`
	ParentID  string    `json:"parent_id,omitempty"`
	Decision  string    `json:"decision"`
	Neurons   []Neuron  `json:"neurons"`
	Synapses  []Synapse `json:"synapses"`
	InputIDs  []string  `json:"input_ids"`
	OutputIDs []string  `json:"output_ids"`
}

type Neuron struct {
	ID         string  `json:"id"`
	Activation string  `json:"activation"`
	Bias       float64 `json:"bias"`
}

type Synapse struct {
	ID      string  `json:"id"`
	From    string  `json:"from"`
	To      string  `json:"to"`
	Weight  float64 `json:"weight"`
	Enabled bool    `json:"enabled"`
}

// Run describes one evolution run.
type Run struct {
	VersionedRecord
	ID          string    `json:"id"`
	Track       string    `json:"track"`
	Decision    string    `json:"decision"`
	Fitness     string    `json:"fitness"`
	Population  int       `json:"population"`
	Generations int       `json:"generations"`
	Seed        int64     `json:"seed"`
	CreatedAt   time.Time `json:"created_at"`
}

// Evaluation is the persisted outcome of driving one genome once.
type Evaluation struct {
	VersionedRecord
	ID          string  `json:"id"`
	RunID       string  `json:"run_id"`
	Generation  int     `json:"generation"`
	GenomeID    string  `json:"genome_id"`
	Fitness     float64 `json:"fitness"`
	GatesPassed int     `json:"gates_passed"`
	Frames      int     `json:"frames"`
	Reason      string  `json:"reason"`
}

// GenerationSummary is the per-generation fitness distribution of a run.
type GenerationSummary struct {
	RunID        string  `json:"run_id"`
	Generation   int     `json:"generation"`
	Best         float64 `json:"best"`
	Mean         float64 `json:"mean"`
	StdDev       float64 `json:"std_dev"`
	Worst        float64 `json:"worst"`
	BestGenomeID string  `json:"best_genome_id"`
}
