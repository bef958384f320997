package evo

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"

	"trackdrive/internal/agent"
	"trackdrive/internal/genotype"
	"trackdrive/internal/model"
	"trackdrive/internal/monitoring"
	"trackdrive/internal/scape"
)

type ScoredGenome struct {
	Genome  model.Genome
	Fitness float64
	Trace   scape.Trace
}

type RunResult struct {
	BestByGeneration      []float64
	GenerationDiagnostics []GenerationDiagnostics
	FinalPopulation       []ScoredGenome
	Lineage               []LineageRecord
}

// Best is the fittest genome of the final generation.
func (r RunResult) Best() (ScoredGenome, bool) {
	if len(r.FinalPopulation) == 0 {
		return ScoredGenome{}, false
	}
	return r.FinalPopulation[0], true
}

type GenerationDiagnostics struct {
	Generation           int     `json:"generation"`
	BestFitness          float64 `json:"best_fitness"`
	MeanFitness          float64 `json:"mean_fitness"`
	StdDevFitness        float64 `json:"std_dev_fitness"`
	MinFitness           float64 `json:"min_fitness"`
	MeanGatesPassed      float64 `json:"mean_gates_passed"`
	FingerprintDiversity int     `json:"fingerprint_diversity"`
	BestGenomeID         string  `json:"best_genome_id"`
}

type LineageRecord struct {
	GenomeID    string `json:"genome_id"`
	ParentID    string `json:"parent_id"`
	Generation  int    `json:"generation"`
	Operation   string `json:"operation"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

// GenerationHook observes every ranked generation before breeding. A
// returned error aborts the run.
type GenerationHook func(ctx context.Context, generation int, ranked []ScoredGenome) error

// MonitorConfig configures a PopulationMonitor. IDPrefix namespaces
// offspring ids, typically with the run id.
type MonitorConfig struct {
	Scape             scape.Scape
	Mutation          Operator
	MutationPolicy    []WeightedMutation
	Selector          Selector
	Postprocessor     FitnessPostprocessor
	PopulationSize    int
	EliteCount        int
	Generations       int
	Workers           int
	MutationsPerChild int
	Seed              int64
	IDPrefix          string
	OnGeneration      GenerationHook
}

type PopulationMonitor struct {
	cfg MonitorConfig
	rng *rand.Rand
}

func NewPopulationMonitor(cfg MonitorConfig) (*PopulationMonitor, error) {
	if cfg.Scape == nil {
		return nil, fmt.Errorf("scape is required")
	}
	if cfg.Mutation == nil && len(cfg.MutationPolicy) == 0 {
		return nil, fmt.Errorf("mutation operator or policy is required")
	}
	positivePolicyWeight := false
	for i, item := range cfg.MutationPolicy {
		if item.Operator == nil {
			return nil, fmt.Errorf("mutation policy operator is required at index %d", i)
		}
		if item.Weight < 0 {
			return nil, fmt.Errorf("mutation policy weight must be >= 0 at index %d", i)
		}
		if item.Weight > 0 {
			positivePolicyWeight = true
		}
	}
	if len(cfg.MutationPolicy) > 0 && !positivePolicyWeight {
		return nil, fmt.Errorf("mutation policy requires at least one positive weight")
	}
	if cfg.PopulationSize <= 0 {
		return nil, fmt.Errorf("population size must be > 0")
	}
	if cfg.EliteCount <= 0 || cfg.EliteCount > cfg.PopulationSize {
		return nil, fmt.Errorf("elite count must be in [1, population size]")
	}
	if cfg.Generations <= 0 {
		return nil, fmt.Errorf("generations must be > 0")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MutationsPerChild <= 0 {
		cfg.MutationsPerChild = 1
	}
	if cfg.Selector == nil {
		cfg.Selector = EliteSelector{}
	}
	if cfg.Postprocessor == nil {
		cfg.Postprocessor = NoopFitnessPostprocessor{}
	}

	return &PopulationMonitor{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Run evolves initial for the configured number of generations. Results
// depend only on the seed and the initial population, not on worker count.
func (m *PopulationMonitor) Run(ctx context.Context, initial []model.Genome) (RunResult, error) {
	if len(initial) != m.cfg.PopulationSize {
		return RunResult{}, fmt.Errorf("initial population mismatch: got=%d want=%d", len(initial), m.cfg.PopulationSize)
	}

	population := make([]model.Genome, len(initial))
	copy(population, initial)

	bestHistory := make([]float64, 0, m.cfg.Generations)
	diagnostics := make([]GenerationDiagnostics, 0, m.cfg.Generations)
	lineage := make([]LineageRecord, 0, len(initial)*(m.cfg.Generations+1))
	for _, genome := range population {
		lineage = append(lineage, LineageRecord{
			GenomeID:    genome.ID,
			Generation:  0,
			Operation:   "seed",
			Fingerprint: genotype.ComputeGenomeSignature(genome).Fingerprint,
		})
	}
	var scored []ScoredGenome

	for gen := 0; gen < m.cfg.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return RunResult{}, err
		}

		var err error
		scored, err = m.evaluatePopulation(ctx, population)
		if err != nil {
			return RunResult{}, err
		}
		scored = m.cfg.Postprocessor.Process(scored)

		sort.SliceStable(scored, func(i, j int) bool {
			return scored[i].Fitness > scored[j].Fitness
		})
		bestHistory = append(bestHistory, scored[0].Fitness)
		summary := summarizeGeneration(scored, gen+1)
		diagnostics = append(diagnostics, summary)
		monitoring.Logf("generation %d: best=%.3f mean=%.3f std=%.3f min=%.3f best_genome=%s",
			summary.Generation, summary.BestFitness, summary.MeanFitness, summary.StdDevFitness, summary.MinFitness, summary.BestGenomeID)

		if m.cfg.OnGeneration != nil {
			if err := m.cfg.OnGeneration(ctx, gen+1, scored); err != nil {
				return RunResult{}, fmt.Errorf("generation %d hook: %w", gen+1, err)
			}
		}
		if gen == m.cfg.Generations-1 {
			break
		}

		var generationLineage []LineageRecord
		population, generationLineage, err = m.nextGeneration(ctx, scored, gen)
		if err != nil {
			return RunResult{}, err
		}
		lineage = append(lineage, generationLineage...)
	}

	return RunResult{
		BestByGeneration:      bestHistory,
		GenerationDiagnostics: diagnostics,
		FinalPopulation:       scored,
		Lineage:               lineage,
	}, nil
}

func summarizeGeneration(scored []ScoredGenome, generation int) GenerationDiagnostics {
	if len(scored) == 0 {
		return GenerationDiagnostics{Generation: generation}
	}

	fitness := lo.Map(scored, func(item ScoredGenome, _ int) float64 { return item.Fitness })
	gates := lo.Map(scored, func(item ScoredGenome, _ int) float64 { return traceFloat(item.Trace, "gates_passed") })
	fingerprints := lo.Uniq(lo.Map(scored, func(item ScoredGenome, _ int) string {
		return genotype.ComputeGenomeSignature(item.Genome).Fingerprint
	}))
	mean, std := stat.MeanStdDev(fitness, nil)
	if len(fitness) < 2 {
		std = 0
	}

	return GenerationDiagnostics{
		Generation:           generation,
		BestFitness:          scored[0].Fitness,
		MeanFitness:          mean,
		StdDevFitness:        std,
		MinFitness:           lo.Min(fitness),
		MeanGatesPassed:      stat.Mean(gates, nil),
		FingerprintDiversity: len(fingerprints),
		BestGenomeID:         scored[0].Genome.ID,
	}
}

func traceFloat(trace scape.Trace, key string) float64 {
	switch v := trace[key].(type) {
	case int:
		return float64(v)
	case float64:
		return v
	default:
		return 0
	}
}

func (m *PopulationMonitor) evaluatePopulation(ctx context.Context, population []model.Genome) ([]ScoredGenome, error) {
	type job struct {
		idx    int
		genome model.Genome
	}
	type result struct {
		idx    int
		scored ScoredGenome
		err    error
	}

	jobs := make(chan job)
	results := make(chan result, len(population))

	workerCount := m.cfg.Workers
	if workerCount > len(population) {
		workerCount = len(population)
	}

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for w := 0; w < workerCount; w++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				if err := ctx.Err(); err != nil {
					results <- result{idx: j.idx, err: err}
					continue
				}
				fitness, trace, err := m.evaluateGenome(ctx, j.genome)
				if err != nil {
					results <- result{idx: j.idx, err: err}
					continue
				}
				results <- result{idx: j.idx, scored: ScoredGenome{Genome: j.genome, Fitness: fitness, Trace: trace}}
			}
		}()
	}

	for i := range population {
		jobs <- job{idx: i, genome: population[i]}
	}
	close(jobs)

	wg.Wait()
	close(results)

	scored := make([]ScoredGenome, len(population))
	var errs []error
	for res := range results {
		if res.err != nil {
			errs = append(errs, res.err)
			continue
		}
		scored[res.idx] = res.scored
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return scored, nil
}

func (m *PopulationMonitor) evaluateGenome(ctx context.Context, genome model.Genome) (float64, scape.Trace, error) {
	cortex, err := agent.NewCortex(genome.ID, genome)
	if err != nil {
		return 0, nil, err
	}
	fitness, trace, err := m.cfg.Scape.Evaluate(ctx, cortex)
	if err != nil {
		return 0, nil, err
	}
	return float64(fitness), trace, nil
}

func (m *PopulationMonitor) nextGeneration(ctx context.Context, ranked []ScoredGenome, generation int) ([]model.Genome, []LineageRecord, error) {
	next := make([]model.Genome, 0, m.cfg.PopulationSize)
	lineage := make([]LineageRecord, 0, m.cfg.PopulationSize)
	nextGeneration := generation + 1

	for i := 0; i < m.cfg.EliteCount; i++ {
		elite := genotype.CloneAgent(ranked[i].Genome, ranked[i].Genome.ID)
		next = append(next, elite)
		lineage = append(lineage, LineageRecord{
			GenomeID:    elite.ID,
			ParentID:    ranked[i].Genome.ID,
			Generation:  nextGeneration,
			Operation:   "elite_clone",
			Fingerprint: genotype.ComputeGenomeSignature(elite).Fingerprint,
		})
	}

	for len(next) < m.cfg.PopulationSize {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		parent, err := m.cfg.Selector.PickParent(m.rng, ranked, m.cfg.EliteCount)
		if err != nil {
			return nil, nil, err
		}
		child, record, err := m.mutateFromParent(ctx, parent, generation, len(next))
		if err != nil {
			return nil, nil, err
		}
		next = append(next, child)
		lineage = append(lineage, record)
	}

	return next, lineage, nil
}

func (m *PopulationMonitor) mutateFromParent(ctx context.Context, parent model.Genome, generation, nextIndex int) (model.Genome, LineageRecord, error) {
	childID := fmt.Sprintf("g%d-%d", generation+1, nextIndex)
	if m.cfg.IDPrefix != "" {
		childID = m.cfg.IDPrefix + "-" + childID
	}
	child := genotype.CloneAgent(parent, childID)

	mutated := child
	operationNames := make([]string, 0, m.cfg.MutationsPerChild)
	for step := 0; step < m.cfg.MutationsPerChild; step++ {
		operator := m.chooseMutation()
		next, opErr := operator.Apply(ctx, mutated)
		operationName := operator.Name()
		if opErr != nil && m.cfg.Mutation != nil && operator != m.cfg.Mutation {
			next, opErr = m.cfg.Mutation.Apply(ctx, mutated)
			operationName = m.cfg.Mutation.Name() + "(fallback)"
		}
		if opErr != nil {
			if errors.Is(opErr, ErrNoSynapses) || errors.Is(opErr, ErrNoNeurons) || errors.Is(opErr, ErrNoMutationChoice) {
				operationNames = append(operationNames, "noop("+operator.Name()+")")
				continue
			}
			return model.Genome{}, LineageRecord{}, opErr
		}
		mutated = next
		operationNames = append(operationNames, operationName)
	}

	return mutated, LineageRecord{
		GenomeID:    mutated.ID,
		ParentID:    parent.ID,
		Generation:  generation + 1,
		Operation:   strings.Join(operationNames, "+"),
		Fingerprint: genotype.ComputeGenomeSignature(mutated).Fingerprint,
	}, nil
}

func (m *PopulationMonitor) chooseMutation() Operator {
	if len(m.cfg.MutationPolicy) == 0 {
		return m.cfg.Mutation
	}

	total := 0.0
	for _, item := range m.cfg.MutationPolicy {
		total += item.Weight
	}
	if total <= 0 {
		return m.cfg.Mutation
	}
	pick := m.rng.Float64() * total
	acc := 0.0
	for _, item := range m.cfg.MutationPolicy {
		acc += item.Weight
		if pick <= acc {
			return item.Operator
		}
	}
	return m.cfg.MutationPolicy[len(m.cfg.MutationPolicy)-1].Operator
}
