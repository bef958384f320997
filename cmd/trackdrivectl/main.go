package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"trackdrive/internal/monitoring"
	tdapi "trackdrive/pkg/trackdrive"
)

var stdout io.Writer = os.Stdout

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "tracks":
		return runTracks(ctx, args[1:])
	case "evaluate":
		return runEvaluate(ctx, args[1:])
	case "run":
		return runRun(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "top":
		return runTop(ctx, args[1:])
	case "fitness":
		return runFitness(ctx, args[1:])
	case "plot":
		return runPlot(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func runTracks(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("tracks", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "emit tracks as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	tracks, err := tdapi.Tracks()
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(tracks)
	}
	for _, item := range tracks {
		fmt.Fprintf(stdout, "track=%s gates=%d length=%.1f half_width=%.1f\n", item.Name, item.Gates, item.Length, item.HalfWidth)
	}
	return nil
}

func runEvaluate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("evaluate", flag.ContinueOnError)
	store := addStoreFlags(fs)
	overrides := addRunConfigFlags(fs)
	genomeID := fs.String("genome-id", "", "stored genome to drive (default: a freshly seeded driver)")
	tracePath := fs.String("trace", "", "write every recorded frame to this JSON file")
	traceLimit := fs.Int("trace-limit", 0, "max frames to record with --trace (0 records all)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := overrides.resolve(fs)
	if err != nil {
		return err
	}

	client, err := store.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	limit := 0
	if *tracePath != "" {
		limit = -1
		if *traceLimit > 0 {
			limit = *traceLimit
		}
	}
	summary, err := client.Evaluate(ctx, tdapi.EvaluateRequest{Config: cfg, GenomeID: *genomeID, TraceLimit: limit})
	if err != nil {
		return err
	}
	if *tracePath != "" {
		if err := writeJSONFile(*tracePath, summary.Frames); err != nil {
			return err
		}
	}

	r := summary.Result
	fmt.Fprintf(stdout, "track=%s genome_id=%s fitness=%.6f gates_passed=%d frames=%d reason=%s distance=%.1f\n",
		summary.Track, summary.GenomeID, r.Fitness, r.GatesPassed, r.Frames, r.Reason, r.Distance)
	return nil
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	store := addStoreFlags(fs)
	overrides := addRunConfigFlags(fs)
	runID := fs.String("run-id", "", "explicit run id (default: random uuid)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := overrides.resolve(fs)
	if err != nil {
		return err
	}

	client, err := store.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Run(ctx, tdapi.RunRequest{Config: cfg, RunID: *runID})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "run_id=%s generations=%d final_best=%.6f best_genome=%s gates_passed=%d reason=%s\n",
		summary.RunID, len(summary.BestByGeneration), summary.FinalBestFitness, summary.BestGenomeID,
		summary.Best.GatesPassed, summary.Best.Reason)
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	store := addStoreFlags(fs)
	limit := fs.Int("limit", 20, "max runs to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit runs as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := store.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runs, err := client.Runs(ctx, *limit)
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(stdout, "no runs")
		return nil
	}
	for _, item := range runs {
		fmt.Fprintf(stdout, "run_id=%s created_at=%s track=%s decision=%s fitness=%s population=%d generations=%d seed=%d\n",
			item.ID, item.CreatedAt.Format("2006-01-02T15:04:05Z"), item.Track, item.Decision, item.Fitness,
			item.Population, item.Generations, item.Seed)
	}
	return nil
}

func runTop(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("top", flag.ContinueOnError)
	store := addStoreFlags(fs)
	ref := addRunRefFlags(fs)
	limit := fs.Int("limit", 5, "max evaluations to print")
	jsonOut := fs.Bool("json", false, "emit evaluations as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := store.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	top, err := client.Top(ctx, tdapi.TopRequest{RunRef: ref.value(), Limit: *limit})
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(top)
	}
	if len(top) == 0 {
		fmt.Fprintln(stdout, "no evaluations")
		return nil
	}
	for i, item := range top {
		fmt.Fprintf(stdout, "rank=%d fitness=%.6f genome_id=%s generation=%d gates_passed=%d frames=%d reason=%s\n",
			i+1, item.Fitness, item.GenomeID, item.Generation, item.GatesPassed, item.Frames, item.Reason)
	}
	return nil
}

func runFitness(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fitness", flag.ContinueOnError)
	store := addStoreFlags(fs)
	ref := addRunRefFlags(fs)
	jsonOut := fs.Bool("json", false, "emit history as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := store.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	history, err := client.FitnessHistory(ctx, ref.value())
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(history)
	}
	for _, g := range history {
		fmt.Fprintf(stdout, "generation=%d best=%.6f mean=%.6f std=%.6f worst=%.6f best_genome=%s\n",
			g.Generation, g.Best, g.Mean, g.StdDev, g.Worst, g.BestGenomeID)
	}
	return nil
}

func runPlot(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("plot", flag.ContinueOnError)
	store := addStoreFlags(fs)
	ref := addRunRefFlags(fs)
	out := fs.String("out", "", "output image path (.png|.svg|.pdf, default <run-id>-fitness.png)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := store.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	path, err := client.Plot(ctx, tdapi.PlotRequest{RunRef: ref.value(), Path: *out})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "plot=%s\n", path)
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	store := addStoreFlags(fs)
	ref := addRunRefFlags(fs)
	outDir := fs.String("out", "exports", "export directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := store.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	exported, err := client.Export(ctx, tdapi.ExportRequest{RunRef: ref.value(), OutDir: *outDir})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "exported run_id=%s dir=%s\n", exported.RunID, exported.Directory)
	return nil
}

func writeJSON(value any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func writeJSONFile(path string, value any) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(value); err != nil {
		return err
	}
	monitoring.Logger().Debugf("wrote %s", path)
	return nil
}

func usageError(msg string) error {
	return errors.New(msg + "\nusage: trackdrivectl <tracks|evaluate|run|runs|top|fitness|plot|export> [flags]")
}
