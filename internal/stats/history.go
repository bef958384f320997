package stats

import (
	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"

	"trackdrive/internal/evo"
	"trackdrive/internal/model"
)

// SummarizeGenerations converts monitor diagnostics into persisted
// per-generation summaries for runID.
func SummarizeGenerations(runID string, diagnostics []evo.GenerationDiagnostics) []model.GenerationSummary {
	return lo.Map(diagnostics, func(d evo.GenerationDiagnostics, _ int) model.GenerationSummary {
		return model.GenerationSummary{
			RunID:        runID,
			Generation:   d.Generation,
			Best:         d.BestFitness,
			Mean:         d.MeanFitness,
			StdDev:       d.StdDevFitness,
			Worst:        d.MinFitness,
			BestGenomeID: d.BestGenomeID,
		}
	})
}

// HistoryReport condenses a run's best-of-generation series.
type HistoryReport struct {
	Generations  int     `json:"generations"`
	InitialBest  float64 `json:"initial_best"`
	FinalBest    float64 `json:"final_best"`
	PeakBest     float64 `json:"peak_best"`
	PeakAt       int     `json:"peak_at"`
	BestMean     float64 `json:"best_mean"`
	BestStd      float64 `json:"best_std"`
	Improvement  float64 `json:"improvement"`
	Monotonicity float64 `json:"monotonicity"`
}

// BuildHistoryReport reports on history ordered by generation. Monotonicity
// is the share of generation steps whose best did not drop.
func BuildHistoryReport(history []model.GenerationSummary) HistoryReport {
	if len(history) == 0 {
		return HistoryReport{}
	}
	best := lo.Map(history, func(g model.GenerationSummary, _ int) float64 { return g.Best })
	mean, std := stat.MeanStdDev(best, nil)
	if len(best) < 2 {
		std = 0
	}

	peak := history[0]
	for _, g := range history[1:] {
		if g.Best > peak.Best {
			peak = g
		}
	}

	monotonicity := 1.0
	if len(best) > 1 {
		steps := 0
		for i := 1; i < len(best); i++ {
			if best[i] >= best[i-1] {
				steps++
			}
		}
		monotonicity = float64(steps) / float64(len(best)-1)
	}

	return HistoryReport{
		Generations:  len(history),
		InitialBest:  best[0],
		FinalBest:    best[len(best)-1],
		PeakBest:     peak.Best,
		PeakAt:       peak.Generation,
		BestMean:     mean,
		BestStd:      std,
		Improvement:  best[len(best)-1] - best[0],
		Monotonicity: monotonicity,
	}
}
