// Package fitness turns the raw outcome of a race into the scalar score
// handed to the optimizer.
package fitness

import (
	"math"
	"strings"

	"trackdrive/internal/geom"
	"trackdrive/internal/simerr"
)

const (
	GatesName        = "gates"
	SquaredRatioName = "squared_ratio"
	HeadingGuardName = "heading_guard"

	DefaultHeadingTolerance = 1e-6
)

// Outcome is what a finished run reports for shaping.
type Outcome struct {
	GatesPassed  int
	Frames       int
	StartHeading float64
	FinalHeading float64
}

type Shaper interface {
	Name() string
	Shape(Outcome) float64
}

// Gates scores the signed number of gates passed.
type Gates struct{}

func (Gates) Name() string { return GatesName }

func (Gates) Shape(o Outcome) float64 {
	return float64(o.GatesPassed)
}

// SquaredRatio rewards progress per frame while keeping the sign of the
// gate count.
type SquaredRatio struct{}

func (SquaredRatio) Name() string { return SquaredRatioName }

func (SquaredRatio) Shape(o Outcome) float64 {
	if o.Frames <= 0 {
		return 0
	}
	g := float64(o.GatesPassed)
	return g * math.Abs(g) / float64(o.Frames)
}

// HeadingGuard scores gates passed but returns Floor when the car ends
// pointing exactly where it started.
type HeadingGuard struct {
	Tolerance float64
	Floor     float64
}

func (HeadingGuard) Name() string { return HeadingGuardName }

func (h HeadingGuard) Shape(o Outcome) float64 {
	tolerance := h.Tolerance
	if tolerance <= 0 {
		tolerance = DefaultHeadingTolerance
	}
	if math.Abs(geom.WrapAngle(o.FinalHeading-o.StartHeading)) <= tolerance {
		return h.Floor
	}
	return float64(o.GatesPassed)
}

// Params tunes the policies that take arguments. Zero values select the
// defaults.
type Params struct {
	HeadingTolerance float64 `json:"heading_tolerance,omitempty"`
	HeadingFloor     float64 `json:"heading_floor,omitempty"`
}

func (p Params) Validate() error {
	if p.HeadingTolerance < 0 || math.IsNaN(p.HeadingTolerance) || math.IsInf(p.HeadingTolerance, 0) {
		return simerr.Configf("heading tolerance must be a finite value >= 0, got %v", p.HeadingTolerance)
	}
	if math.IsNaN(p.HeadingFloor) || math.IsInf(p.HeadingFloor, 0) {
		return simerr.Configf("heading floor must be finite, got %v", p.HeadingFloor)
	}
	return nil
}

// NewShaper resolves a shaping policy by name. The empty name selects Gates.
func NewShaper(name string) (Shaper, error) {
	return NewShaperWithParams(name, Params{})
}

func NewShaperWithParams(name string, params Params) (Shaper, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	switch strings.TrimSpace(strings.ToLower(name)) {
	case "", GatesName:
		return Gates{}, nil
	case SquaredRatioName:
		return SquaredRatio{}, nil
	case HeadingGuardName:
		tolerance := params.HeadingTolerance
		if tolerance == 0 {
			tolerance = DefaultHeadingTolerance
		}
		return HeadingGuard{Tolerance: tolerance, Floor: params.HeadingFloor}, nil
	default:
		return nil, simerr.Configf("unknown fitness shaping %q", name)
	}
}

// Names lists the supported shaping policies.
func Names() []string {
	return []string{GatesName, SquaredRatioName, HeadingGuardName}
}
