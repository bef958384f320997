package storage

import (
	"context"

	"trackdrive/internal/model"
)

// Store persists runs, genomes, evaluation records and per-generation
// fitness summaries.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.Run) error
	GetRun(ctx context.Context, id string) (model.Run, bool, error)
	ListRuns(ctx context.Context) ([]model.Run, error)
	SaveGenome(ctx context.Context, genome model.Genome) error
	GetGenome(ctx context.Context, id string) (model.Genome, bool, error)
	// SaveEvaluations assigns a fresh id to every record without one.
	SaveEvaluations(ctx context.Context, evaluations []model.Evaluation) error
	TopEvaluations(ctx context.Context, runID string, limit int) ([]model.Evaluation, error)
	SaveGenerationSummary(ctx context.Context, summary model.GenerationSummary) error
	FitnessHistory(ctx context.Context, runID string) ([]model.GenerationSummary, error)
}
