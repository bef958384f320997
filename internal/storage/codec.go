package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"trackdrive/internal/model"
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeGenome(g model.Genome) ([]byte, error) {
	return json.Marshal(g)
}

func DecodeGenome(data []byte) (model.Genome, error) {
	var genome model.Genome
	if err := json.Unmarshal(data, &genome); err != nil {
		return model.Genome{}, err
	}
	if err := checkVersion(genome.VersionedRecord); err != nil {
		return model.Genome{}, err
	}
	return genome, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != model.SchemaVersion || v.CodecVersion != model.CodecVersion {
		return fmt.Errorf("%w: schema=%d codec=%d", ErrVersionMismatch, v.SchemaVersion, v.CodecVersion)
	}
	return nil
}

// NewID returns a random record id.
func NewID() string {
	return uuid.NewString()
}

func assignEvaluationIDs(evaluations []model.Evaluation) {
	for i := range evaluations {
		if evaluations[i].ID == "" {
			evaluations[i].ID = NewID()
		}
		if evaluations[i].SchemaVersion == 0 {
			evaluations[i].VersionedRecord = model.CurrentVersion()
		}
	}
}

func validateRun(run model.Run) error {
	if run.ID == "" {
		return errors.New("run id is required")
	}
	return nil
}

func validateGenome(genome model.Genome) error {
	if genome.ID == "" {
		return errors.New("genome id is required")
	}
	return checkVersion(genome.VersionedRecord)
}
