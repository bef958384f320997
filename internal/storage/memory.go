package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/samber/lo"

	"trackdrive/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]model.Run
	genomes     map[string]model.Genome
	evaluations map[string][]model.Evaluation
	summaries   map[string]map[int]model.GenerationSummary
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string]model.Run)
	s.genomes = make(map[string]model.Genome)
	s.evaluations = make(map[string][]model.Evaluation)
	s.summaries = make(map[string]map[int]model.GenerationSummary)
	return nil
}

func (s *MemoryStore) checkInit() error {
	if !s.initialized {
		return errors.New("store is not initialized")
	}
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.Run) error {
	if err := validateRun(run); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkInit(); err != nil {
		return err
	}

	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.Run, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkInit(); err != nil {
		return model.Run{}, false, err
	}

	run, ok := s.runs[id]
	return run, ok, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]model.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkInit(); err != nil {
		return nil, err
	}

	runs := lo.Values(s.runs)
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.After(runs[j].CreatedAt)
		}
		return runs[i].ID < runs[j].ID
	})
	return runs, nil
}

func (s *MemoryStore) SaveGenome(_ context.Context, genome model.Genome) error {
	if err := validateGenome(genome); err != nil {
		return err
	}
	payload, err := EncodeGenome(genome)
	if err != nil {
		return err
	}
	// Stored genomes share no slices with the caller.
	stored, err := DecodeGenome(payload)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkInit(); err != nil {
		return err
	}
	s.genomes[genome.ID] = stored
	return nil
}

func (s *MemoryStore) GetGenome(_ context.Context, id string) (model.Genome, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkInit(); err != nil {
		return model.Genome{}, false, err
	}

	genome, ok := s.genomes[id]
	return genome, ok, nil
}

func (s *MemoryStore) SaveEvaluations(_ context.Context, evaluations []model.Evaluation) error {
	assignEvaluationIDs(evaluations)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkInit(); err != nil {
		return err
	}
	for _, evaluation := range evaluations {
		s.evaluations[evaluation.RunID] = append(s.evaluations[evaluation.RunID], evaluation)
	}
	return nil
}

func (s *MemoryStore) TopEvaluations(_ context.Context, runID string, limit int) ([]model.Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkInit(); err != nil {
		return nil, err
	}

	top := append([]model.Evaluation(nil), s.evaluations[runID]...)
	sort.SliceStable(top, func(i, j int) bool {
		if top[i].Fitness != top[j].Fitness {
			return top[i].Fitness > top[j].Fitness
		}
		if top[i].Generation != top[j].Generation {
			return top[i].Generation < top[j].Generation
		}
		return top[i].GenomeID < top[j].GenomeID
	})
	if limit > 0 && len(top) > limit {
		top = top[:limit]
	}
	return top, nil
}

func (s *MemoryStore) SaveGenerationSummary(_ context.Context, summary model.GenerationSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkInit(); err != nil {
		return err
	}

	byGeneration, ok := s.summaries[summary.RunID]
	if !ok {
		byGeneration = make(map[int]model.GenerationSummary)
		s.summaries[summary.RunID] = byGeneration
	}
	byGeneration[summary.Generation] = summary
	return nil
}

func (s *MemoryStore) FitnessHistory(_ context.Context, runID string) ([]model.GenerationSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkInit(); err != nil {
		return nil, err
	}

	history := lo.Values(s.summaries[runID])
	sort.Slice(history, func(i, j int) bool {
		return history[i].Generation < history[j].Generation
	})
	return history, nil
}
