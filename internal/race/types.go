// Package race runs one vehicle around one track under one policy and
// scores the run.
package race

import (
	"context"

	"gonum.org/v1/gonum/spatial/r2"

	"trackdrive/internal/control"
	"trackdrive/internal/sensing"
	"trackdrive/internal/track"
)

// Reason names why a run stopped. Reasons are outcomes, never errors.
type Reason string

const (
	ReasonOutOfBounds Reason = "out_of_bounds"
	ReasonLapCap      Reason = "lap_cap"
	ReasonStalled     Reason = "stalled"
	ReasonFrameLimit  Reason = "frame_limit"
)

// Track is the course a run is driven on. *track.Track implements it.
type Track interface {
	CheckInBounds(points []r2.Vec) bool
	PlaceAtStart(v track.Placeable)
	CurrentGateIndex() int
	TotalGates() int
	UpdateGate(v track.Positioned)
	StartDirection() float64
}

// Vehicle is the car being driven. *vehicle.Car implements it.
type Vehicle interface {
	sensing.Body
	Outline() []r2.Vec
	Place(pos r2.Vec, angle float64)
	Apply(cmd control.Command)
}

// Policy maps an observation to raw decision scores.
type Policy interface {
	RunStep(ctx context.Context, input []float64) ([]float64, error)
}

// PolicyFunc adapts a plain function to Policy.
type PolicyFunc func(ctx context.Context, input []float64) ([]float64, error)

func (f PolicyFunc) RunStep(ctx context.Context, input []float64) ([]float64, error) {
	return f(ctx, input)
}

// Result summarizes a finished run.
type Result struct {
	Fitness      float64 `json:"fitness"`
	GatesPassed  int     `json:"gates_passed"`
	Frames       int     `json:"frames"`
	Reason       Reason  `json:"reason"`
	StartHeading float64 `json:"start_heading"`
	FinalHeading float64 `json:"final_heading"`
	FinalGate    int     `json:"final_gate"`
	Distance     float64 `json:"distance"`
}
