package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"trackdrive/internal/model"
)

func TestDecodeGenomeFixture(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "genome_v1.json"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	genome, err := DecodeGenome(data)
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	if genome.ID != "genome-minimal-1" || genome.Decision != "argmax_steer" {
		t.Fatalf("unexpected genome: %+v", genome)
	}
	if len(genome.Synapses) != 3 || genome.Synapses[2].Enabled {
		t.Fatalf("unexpected synapses: %+v", genome.Synapses)
	}

	encoded, err := EncodeGenome(genome)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	again, err := DecodeGenome(encoded)
	if err != nil {
		t.Fatalf("decode encoded: %v", err)
	}
	if diff := cmp.Diff(genome, again); diff != "" {
		t.Fatalf("genome changed through codec (-want +got):\n%s", diff)
	}
}

func TestDecodeGenomeVersionMismatch(t *testing.T) {
	_, err := DecodeGenome([]byte(`{"schema_version": 2, "codec_version": 1, "id": "g"}`))
	if !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got: %v", err)
	}
	if _, err := DecodeGenome([]byte(`{`)); err == nil {
		t.Fatal("expected malformed payload error")
	}
}

func TestAssignEvaluationIDs(t *testing.T) {
	evaluations := []model.Evaluation{{GenomeID: "a"}, {ID: "keep", GenomeID: "b"}}
	assignEvaluationIDs(evaluations)

	if _, err := uuid.Parse(evaluations[0].ID); err != nil {
		t.Fatalf("expected uuid id, got %q: %v", evaluations[0].ID, err)
	}
	if evaluations[1].ID != "keep" {
		t.Fatalf("existing id overwritten: %s", evaluations[1].ID)
	}
	if evaluations[0].VersionedRecord != model.CurrentVersion() {
		t.Fatalf("expected current version, got %+v", evaluations[0].VersionedRecord)
	}
}
