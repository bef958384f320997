package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"trackdrive/internal/model"
)

const (
	runFile            = "run.json"
	historyFile        = "fitness_history.csv"
	reportFile         = "report.json"
	topEvaluationsFile = "top_evaluations.json"
	bestGenomeFile     = "best_genome.json"
	plotFile           = "fitness.png"
)

// RunArtifacts is everything exported for one run.
type RunArtifacts struct {
	Run            model.Run
	History        []model.GenerationSummary
	TopEvaluations []model.Evaluation
	BestGenome     *model.Genome
}

// WriteRunArtifacts writes a run directory under baseDir and returns its
// path. The fitness plot is skipped for an empty history.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Run.ID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Run.ID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, runFile), artifacts.Run); err != nil {
		return "", err
	}
	if err := writeHistoryFile(filepath.Join(runDir, historyFile), artifacts.History); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, reportFile), BuildHistoryReport(artifacts.History)); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, topEvaluationsFile), artifacts.TopEvaluations); err != nil {
		return "", err
	}
	if artifacts.BestGenome != nil {
		if err := writeJSON(filepath.Join(runDir, bestGenomeFile), artifacts.BestGenome); err != nil {
			return "", err
		}
	}
	if len(artifacts.History) > 0 {
		title := fmt.Sprintf("%s on %s", artifacts.Run.ID, artifacts.Run.Track)
		if err := SaveFitnessPlot(filepath.Join(runDir, plotFile), title, artifacts.History); err != nil {
			return "", err
		}
	}
	return runDir, nil
}

func writeHistoryFile(path string, history []model.GenerationSummary) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteHistoryCSV(file, history)
}

// WriteHistoryCSV writes one row per generation.
func WriteHistoryCSV(w io.Writer, history []model.GenerationSummary) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"generation", "best", "mean", "std_dev", "worst", "best_genome_id"}); err != nil {
		return err
	}
	for _, g := range history {
		if err := writer.Write([]string{
			strconv.Itoa(g.Generation),
			formatFloat(g.Best),
			formatFloat(g.Mean),
			formatFloat(g.StdDev),
			formatFloat(g.Worst),
			g.BestGenomeID,
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadHistoryCSV parses WriteHistoryCSV output for runID.
func ReadHistoryCSV(r io.Reader, runID string) ([]model.GenerationSummary, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []model.GenerationSummary{}, nil
		}
		return nil, err
	}
	if len(header) < 6 {
		return nil, fmt.Errorf("fitness history header must have 6 columns")
	}

	history := make([]model.GenerationSummary, 0, 64)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		g := model.GenerationSummary{RunID: runID, BestGenomeID: record[5]}
		if g.Generation, err = strconv.Atoi(record[0]); err != nil {
			return nil, err
		}
		values := []*float64{&g.Best, &g.Mean, &g.StdDev, &g.Worst}
		for i, dst := range values {
			if *dst, err = strconv.ParseFloat(record[i+1], 64); err != nil {
				return nil, err
			}
		}
		history = append(history, g)
	}
	return history, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}
