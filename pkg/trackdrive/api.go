package trackdrive

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"time"

	"trackdrive/internal/agent"
	"trackdrive/internal/config"
	"trackdrive/internal/evo"
	"trackdrive/internal/genotype"
	"trackdrive/internal/model"
	"trackdrive/internal/monitoring"
	"trackdrive/internal/race"
	"trackdrive/internal/scape"
	"trackdrive/internal/stats"
	"trackdrive/internal/storage"
	"trackdrive/internal/track"
)

const (
	defaultExportsDir = "exports"
	defaultDBPath     = "trackdrive.db"
	defaultTopLimit   = 10
)

type Options struct {
	StoreKind  string
	DBPath     string
	ExportsDir string
}

type Client struct {
	store      storage.Store
	exportsDir string
}

type TrackItem struct {
	Name      string
	Gates     int
	Length    float64
	HalfWidth float64
}

type EvaluateRequest struct {
	Config *config.RunConfig
	// GenomeID loads a stored genome. When empty a fresh driver is seeded
	// from the configured seed.
	GenomeID string
	Genome   *model.Genome
	// TraceLimit > 0 records up to that many frames; < 0 records all.
	TraceLimit int
}

type EvaluateSummary struct {
	Track    string
	GenomeID string
	Result   race.Result
	Frames   []race.Frame
}

type RunRequest struct {
	Config *config.RunConfig
	RunID  string
}

type RunSummary struct {
	RunID            string
	BestByGeneration []float64
	FinalBestFitness float64
	BestGenomeID     string
	Best             race.Result
}

// RunRef selects a stored run by id or the most recent one.
type RunRef struct {
	RunID  string
	Latest bool
}

type TopRequest struct {
	RunRef
	Limit int
}

type PlotRequest struct {
	RunRef
	Path string
}

type ExportRequest struct {
	RunRef
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

func New(opts Options) (*Client, error) {
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}

	store, err := storage.NewStore(opts.StoreKind, dbPath)
	if err != nil {
		return nil, err
	}
	return &Client{store: store, exportsDir: exportsDir}, nil
}

func (c *Client) Init(ctx context.Context) error {
	return c.store.Init(ctx)
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// Tracks lists the registered layouts.
func Tracks() ([]TrackItem, error) {
	names := track.List()
	out := make([]TrackItem, 0, len(names))
	for _, name := range names {
		layout, err := track.Get(name)
		if err != nil {
			return nil, err
		}
		out = append(out, TrackItem{
			Name:      layout.Name(),
			Gates:     layout.TotalGates(),
			Length:    layout.Length(),
			HalfWidth: layout.HalfWidth(),
		})
	}
	return out, nil
}

func newRaceTrackScape(cfg *config.RunConfig) (*scape.RaceTrackScape, error) {
	layout, err := cfg.LoadTrack()
	if err != nil {
		return nil, err
	}
	return scape.NewRaceTrackScape(scape.RaceTrackConfig{
		Layout:        layout,
		Vehicle:       cfg.GetVehicleSpec(),
		Sensor:        cfg.GetSensor(),
		Decision:      cfg.GetDriverSpec().Decision,
		Fitness:       cfg.GetFitness(),
		FitnessParams: cfg.GetFitnessParams(),
		Loop:          cfg.GetLoopConfig(),
	})
}

func configOrDefault(cfg *config.RunConfig) (*config.RunConfig, error) {
	if cfg == nil {
		cfg = &config.RunConfig{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Evaluate drives one genome around the configured track once.
func (c *Client) Evaluate(ctx context.Context, req EvaluateRequest) (EvaluateSummary, error) {
	cfg, err := configOrDefault(req.Config)
	if err != nil {
		return EvaluateSummary{}, err
	}

	var genome model.Genome
	switch {
	case req.Genome != nil:
		genome = *req.Genome
	case req.GenomeID != "":
		stored, ok, err := c.store.GetGenome(ctx, req.GenomeID)
		if err != nil {
			return EvaluateSummary{}, err
		}
		if !ok {
			return EvaluateSummary{}, fmt.Errorf("genome not found: %s", req.GenomeID)
		}
		genome = stored
	default:
		genome, err = genotype.NewDriver("driver", cfg.GetDriverSpec(), rand.New(rand.NewSource(cfg.GetSeed())))
		if err != nil {
			return EvaluateSummary{}, err
		}
	}
	if genome.Decision != "" && cfg.Decision == nil {
		local := *cfg
		local.Decision = &genome.Decision
		cfg = &local
	}

	sc, err := newRaceTrackScape(cfg)
	if err != nil {
		return EvaluateSummary{}, err
	}
	cortex, err := agent.NewCortex(genome.ID, genome)
	if err != nil {
		return EvaluateSummary{}, err
	}

	var rec *race.Recorder
	if req.TraceLimit != 0 {
		rec = race.NewRecorder(max(req.TraceLimit, 0))
	}
	result, err := sc.Drive(ctx, cortex, rec)
	if err != nil {
		return EvaluateSummary{}, err
	}
	return EvaluateSummary{
		Track:    sc.Layout().Name(),
		GenomeID: genome.ID,
		Result:   result,
		Frames:   rec.Frames(),
	}, nil
}

// Run evolves a population on the configured track and persists the run,
// every evaluated genome, per-generation evaluations and the fitness history.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	cfg, err := configOrDefault(req.Config)
	if err != nil {
		return RunSummary{}, err
	}
	runID := req.RunID
	if runID == "" {
		runID = storage.NewID()
	}

	sc, err := newRaceTrackScape(cfg)
	if err != nil {
		return RunSummary{}, err
	}
	seed := cfg.GetSeed()
	driver := cfg.GetDriverSpec()
	initial, err := genotype.NewPopulation(runID+"-g0", cfg.GetPopulation(), driver, rand.New(rand.NewSource(seed)))
	if err != nil {
		return RunSummary{}, err
	}
	policy, err := evo.NewMutationPolicy(cfg.GetMutationWeights(), rand.New(rand.NewSource(seed+1)), cfg.GetMutationDelta())
	if err != nil {
		return RunSummary{}, err
	}
	selector, err := evo.NewSelector(cfg.GetSelection())
	if err != nil {
		return RunSummary{}, err
	}
	postprocessor, err := evo.NewPostprocessor(cfg.GetPostprocessor())
	if err != nil {
		return RunSummary{}, err
	}

	run := model.Run{
		VersionedRecord: model.CurrentVersion(),
		ID:              runID,
		Track:           sc.Layout().Name(),
		Decision:        driver.Decision,
		Fitness:         cfg.GetFitness(),
		Population:      cfg.GetPopulation(),
		Generations:     cfg.GetGenerations(),
		Seed:            seed,
		CreatedAt:       time.Now().UTC(),
	}
	if err := c.store.SaveRun(ctx, run); err != nil {
		return RunSummary{}, err
	}

	monitor, err := evo.NewPopulationMonitor(evo.MonitorConfig{
		Scape:             sc,
		MutationPolicy:    policy,
		Selector:          selector,
		Postprocessor:     postprocessor,
		PopulationSize:    cfg.GetPopulation(),
		EliteCount:        cfg.GetEliteCount(),
		Generations:       cfg.GetGenerations(),
		Workers:           cfg.GetWorkers(),
		MutationsPerChild: cfg.GetMutationsPerChild(),
		Seed:              seed,
		IDPrefix:          runID,
		OnGeneration:      c.persistGeneration(runID),
	})
	if err != nil {
		return RunSummary{}, err
	}

	monitoring.WithFields(map[string]interface{}{
		"run":        runID,
		"track":      run.Track,
		"population": run.Population,
	}).Info("run started")
	result, err := monitor.Run(ctx, initial)
	if err != nil {
		return RunSummary{}, err
	}

	for _, summary := range stats.SummarizeGenerations(runID, result.GenerationDiagnostics) {
		if err := c.store.SaveGenerationSummary(ctx, summary); err != nil {
			return RunSummary{}, err
		}
	}

	best, ok := result.Best()
	if !ok {
		return RunSummary{}, errors.New("run produced no population")
	}
	// Ranked fitness may be postprocessed; replay for the raw result.
	replay, err := c.Evaluate(ctx, EvaluateRequest{Config: cfg, Genome: &best.Genome})
	if err != nil {
		return RunSummary{}, err
	}

	return RunSummary{
		RunID:            runID,
		BestByGeneration: append([]float64(nil), result.BestByGeneration...),
		FinalBestFitness: best.Fitness,
		BestGenomeID:     best.Genome.ID,
		Best:             replay.Result,
	}, nil
}

func (c *Client) persistGeneration(runID string) evo.GenerationHook {
	return func(ctx context.Context, generation int, ranked []evo.ScoredGenome) error {
		evaluations := make([]model.Evaluation, 0, len(ranked))
		for _, scored := range ranked {
			if err := c.store.SaveGenome(ctx, scored.Genome); err != nil {
				return err
			}
			evaluations = append(evaluations, model.Evaluation{
				VersionedRecord: model.CurrentVersion(),
				RunID:           runID,
				Generation:      generation,
				GenomeID:        scored.Genome.ID,
				Fitness:         scored.Fitness,
				GatesPassed:     traceInt(scored.Trace, "gates_passed"),
				Frames:          traceInt(scored.Trace, "frames"),
				Reason:          traceString(scored.Trace, "reason"),
			})
		}
		return c.store.SaveEvaluations(ctx, evaluations)
	}
}

func traceInt(trace scape.Trace, key string) int {
	v, _ := trace[key].(int)
	return v
}

func traceString(trace scape.Trace, key string) string {
	v, _ := trace[key].(string)
	return v
}

// Runs lists stored runs, newest first.
func (c *Client) Runs(ctx context.Context, limit int) ([]model.Run, error) {
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (c *Client) resolveRun(ctx context.Context, ref RunRef) (model.Run, error) {
	if ref.RunID != "" && ref.Latest {
		return model.Run{}, errors.New("use either run id or latest")
	}
	if ref.Latest {
		runs, err := c.store.ListRuns(ctx)
		if err != nil {
			return model.Run{}, err
		}
		if len(runs) == 0 {
			return model.Run{}, errors.New("no runs available")
		}
		return runs[0], nil
	}
	if ref.RunID == "" {
		return model.Run{}, errors.New("run id or latest is required")
	}
	run, ok, err := c.store.GetRun(ctx, ref.RunID)
	if err != nil {
		return model.Run{}, err
	}
	if !ok {
		return model.Run{}, fmt.Errorf("run not found: %s", ref.RunID)
	}
	return run, nil
}

// Top returns the fittest evaluations of a run.
func (c *Client) Top(ctx context.Context, req TopRequest) ([]model.Evaluation, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	if req.Limit == 0 {
		req.Limit = defaultTopLimit
	}
	run, err := c.resolveRun(ctx, req.RunRef)
	if err != nil {
		return nil, err
	}
	return c.store.TopEvaluations(ctx, run.ID, req.Limit)
}

func (c *Client) FitnessHistory(ctx context.Context, ref RunRef) ([]model.GenerationSummary, error) {
	run, err := c.resolveRun(ctx, ref)
	if err != nil {
		return nil, err
	}
	return c.store.FitnessHistory(ctx, run.ID)
}

func (c *Client) Genome(ctx context.Context, id string) (model.Genome, bool, error) {
	return c.store.GetGenome(ctx, id)
}

// Plot renders a run's fitness history and returns the written path.
func (c *Client) Plot(ctx context.Context, req PlotRequest) (string, error) {
	run, err := c.resolveRun(ctx, req.RunRef)
	if err != nil {
		return "", err
	}
	history, err := c.store.FitnessHistory(ctx, run.ID)
	if err != nil {
		return "", err
	}
	path := req.Path
	if path == "" {
		path = run.ID + "-fitness.png"
	}
	title := fmt.Sprintf("%s on %s", run.ID, run.Track)
	if err := stats.SaveFitnessPlot(path, title, history); err != nil {
		return "", err
	}
	return filepath.Clean(path), nil
}

// Export writes a run's artifacts under OutDir.
func (c *Client) Export(ctx context.Context, req ExportRequest) (ExportSummary, error) {
	run, err := c.resolveRun(ctx, req.RunRef)
	if err != nil {
		return ExportSummary{}, err
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	history, err := c.store.FitnessHistory(ctx, run.ID)
	if err != nil {
		return ExportSummary{}, err
	}
	top, err := c.store.TopEvaluations(ctx, run.ID, defaultTopLimit)
	if err != nil {
		return ExportSummary{}, err
	}
	artifacts := stats.RunArtifacts{Run: run, History: history, TopEvaluations: top}
	if len(top) > 0 {
		genome, ok, err := c.store.GetGenome(ctx, top[0].GenomeID)
		if err != nil {
			return ExportSummary{}, err
		}
		if ok {
			artifacts.BestGenome = &genome
		}
	}

	dir, err := stats.WriteRunArtifacts(req.OutDir, artifacts)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: run.ID, Directory: filepath.Clean(dir)}, nil
}
