package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"trackdrive/internal/config"
	"trackdrive/internal/monitoring"
	tdapi "trackdrive/pkg/trackdrive"
)

type storeFlags struct {
	kind     *string
	dbPath   *string
	logLevel *string
}

func addStoreFlags(fs *flag.FlagSet) storeFlags {
	return storeFlags{
		kind:     fs.String("store", "sqlite", "store backend: memory|sqlite"),
		dbPath:   fs.String("db-path", "trackdrive.db", "sqlite database path"),
		logLevel: fs.String("log-level", "info", "log level: debug|info|warn|error"),
	}
}

func (f storeFlags) open(ctx context.Context) (*tdapi.Client, error) {
	if err := monitoring.SetLevel(*f.logLevel); err != nil {
		return nil, err
	}
	client, err := tdapi.New(tdapi.Options{StoreKind: *f.kind, DBPath: *f.dbPath})
	if err != nil {
		return nil, err
	}
	if err := client.Init(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

type runRefFlags struct {
	runID  *string
	latest *bool
}

func addRunRefFlags(fs *flag.FlagSet) runRefFlags {
	return runRefFlags{
		runID:  fs.String("run-id", "", "run id"),
		latest: fs.Bool("latest", false, "use the most recent run"),
	}
}

func (f runRefFlags) value() tdapi.RunRef {
	return tdapi.RunRef{RunID: *f.runID, Latest: *f.latest}
}

// runConfigFlags override a loaded config. Only flags set on the command
// line take effect.
type runConfigFlags struct {
	configPath    *string
	track         *string
	sensor        *string
	decision      *string
	fitness       *string
	headingTol    *float64
	headingFloor  *float64
	population    *int
	generations   *int
	eliteCount    *int
	workers       *int
	seed          *int64
	selection     *string
	postprocessor *string
	mutationDelta *float64
	maxFrames     *int
	hidden        *string
}

func addRunConfigFlags(fs *flag.FlagSet) runConfigFlags {
	return runConfigFlags{
		configPath:    fs.String("config", "", "optional run config JSON path"),
		track:         fs.String("track", config.DefaultTrack, "built-in track name or .json layout path"),
		sensor:        fs.String("sensor", "binary", "distance sensor: binary|linear"),
		decision:      fs.String("decision", "argmax_steer", "decision adapter: argmax_steer|combined_grid"),
		fitness:       fs.String("fitness", "gates", "fitness shaping: gates|squared_ratio|heading_guard"),
		headingTol:    fs.Float64("heading-tolerance", 0, "heading_guard tolerance in radians (0 selects the default)"),
		headingFloor:  fs.Float64("heading-floor", 0, "heading_guard score for an unchanged heading"),
		population:    fs.Int("pop", config.DefaultPopulation, "population size"),
		generations:   fs.Int("gens", config.DefaultGenerations, "generation count"),
		eliteCount:    fs.Int("elite", config.DefaultEliteCount, "elite count"),
		workers:       fs.Int("workers", 4, "evaluation worker count"),
		seed:          fs.Int64("seed", config.DefaultSeed, "rng seed"),
		selection:     fs.String("selection", "elite", "parent selection: elite|tournament"),
		postprocessor: fs.String("fitness-postprocessor", "none", "fitness postprocessor: none|size_proportional"),
		mutationDelta: fs.Float64("mutation-delta", config.DefaultMutationDelta, "max weight/bias perturbation"),
		maxFrames:     fs.Int("max-frames", 5000, "frame limit per evaluation"),
		hidden:        fs.String("hidden", "8", "comma-separated hidden layer widths of seed drivers"),
	}
}

func (f runConfigFlags) resolve(fs *flag.FlagSet) (*config.RunConfig, error) {
	cfg := &config.RunConfig{}
	if *f.configPath != "" {
		loaded, err := config.Load(*f.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	evolution := func() *config.EvolutionConfig {
		if cfg.Evolution == nil {
			cfg.Evolution = &config.EvolutionConfig{}
		}
		return cfg.Evolution
	}
	var err error
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "track":
			cfg.Track = f.track
		case "sensor":
			cfg.Sensor = f.sensor
		case "decision":
			cfg.Decision = f.decision
		case "fitness":
			cfg.Fitness = f.fitness
		case "heading-tolerance":
			cfg.HeadingTolerance = f.headingTol
		case "heading-floor":
			cfg.HeadingFloor = f.headingFloor
		case "pop":
			evolution().Population = f.population
		case "gens":
			evolution().Generations = f.generations
		case "elite":
			evolution().EliteCount = f.eliteCount
		case "workers":
			evolution().Workers = f.workers
		case "seed":
			evolution().Seed = f.seed
		case "selection":
			evolution().Selection = f.selection
		case "fitness-postprocessor":
			evolution().Postprocessor = f.postprocessor
		case "mutation-delta":
			evolution().MutationDelta = f.mutationDelta
		case "max-frames":
			if cfg.Loop == nil {
				cfg.Loop = &config.LoopConfig{}
			}
			cfg.Loop.MaxFrames = f.maxFrames
		case "hidden":
			var widths []int
			widths, err = parseWidths(*f.hidden)
			evolution().Hidden = widths
		}
	})
	if err != nil {
		return nil, err
	}
	if cfg.Evolution == nil || cfg.Evolution.Workers == nil {
		evolution().Workers = f.workers
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseWidths(raw string) ([]int, error) {
	var widths []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid hidden width %q: %w", part, err)
		}
		widths = append(widths, n)
	}
	return widths, nil
}
