package stats

import (
	"fmt"
	"image/color"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"trackdrive/internal/model"
)

var (
	bestColor  = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	meanColor  = color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff}
	worstColor = color.RGBA{R: 0x7f, G: 0x7f, B: 0x7f, A: 0xff}
)

// HistorySeries splits a fitness history into plottable best, mean and worst
// lines keyed by generation.
func HistorySeries(history []model.GenerationSummary) (best, mean, worst plotter.XYs) {
	best = make(plotter.XYs, 0, len(history))
	mean = make(plotter.XYs, 0, len(history))
	worst = make(plotter.XYs, 0, len(history))
	for _, g := range history {
		x := float64(g.Generation)
		best = append(best, plotter.XY{X: x, Y: g.Best})
		mean = append(mean, plotter.XY{X: x, Y: g.Mean})
		worst = append(worst, plotter.XY{X: x, Y: g.Worst})
	}
	return best, mean, worst
}

// NewFitnessPlot draws the fitness history of one run.
func NewFitnessPlot(title string, history []model.GenerationSummary) (*plot.Plot, error) {
	if len(history) == 0 {
		return nil, fmt.Errorf("fitness history is empty")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Generation"
	p.Y.Label.Text = "Fitness"

	best, mean, worst := HistorySeries(history)
	for _, series := range []struct {
		label string
		pts   plotter.XYs
		color color.Color
		width vg.Length
	}{
		{"best", best, bestColor, vg.Points(2)},
		{"mean", mean, meanColor, vg.Points(1)},
		{"worst", worst, worstColor, vg.Points(1)},
	} {
		line, err := plotter.NewLine(series.pts)
		if err != nil {
			return nil, fmt.Errorf("%s line: %w", series.label, err)
		}
		line.Color = series.color
		line.Width = series.width
		p.Add(line)
		p.Legend.Add(series.label, line)
	}
	p.Add(plotter.NewGrid())

	p.Legend.Top = true
	p.Legend.Left = true
	p.Legend.XOffs = 10
	p.Legend.YOffs = -10
	return p, nil
}

// SaveFitnessPlot renders the history to path. The extension picks the
// format (.png, .svg, .pdf).
func SaveFitnessPlot(path, title string, history []model.GenerationSummary) error {
	switch filepath.Ext(path) {
	case ".png", ".svg", ".pdf":
	default:
		return fmt.Errorf("unsupported plot format %q", filepath.Ext(path))
	}
	p, err := NewFitnessPlot(title, history)
	if err != nil {
		return err
	}
	if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("save fitness plot: %w", err)
	}
	return nil
}
