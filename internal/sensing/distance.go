// Package sensing converts a vehicle pose and a track boundary into the fixed
// observation vector consumed by a driving policy.
package sensing

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"

	"trackdrive/internal/geom"
	"trackdrive/internal/simerr"
)

const (
	BinarySearchName = "binary"
	LinearScanName   = "linear"

	// StepSize is the distance between consecutive boundary probes.
	StepSize = 4.0
)

// BoundaryProbe answers whether every given point lies on the drivable
// surface.
type BoundaryProbe interface {
	CheckInBounds(points []r2.Vec) bool
}

// BoundaryProbeFunc adapts a single-point predicate to BoundaryProbe.
type BoundaryProbeFunc func(p r2.Vec) bool

func (f BoundaryProbeFunc) CheckInBounds(points []r2.Vec) bool {
	for _, p := range points {
		if !f(p) {
			return false
		}
	}
	return true
}

// DistanceSensor measures normalized clearance from origin along a unit
// direction, in [0, 1]. 1 means nothing was hit within maxRange.
type DistanceSensor interface {
	Name() string
	Measure(origin, direction r2.Vec, probe BoundaryProbe, maxRange float64) float64
}

// NewDistanceSensor resolves a sensor strategy by name.
func NewDistanceSensor(name string) (DistanceSensor, error) {
	switch strings.TrimSpace(strings.ToLower(name)) {
	case "", BinarySearchName:
		return BinarySearchSensor{}, nil
	case LinearScanName:
		return LinearScanSensor{}, nil
	default:
		return nil, simerr.Configf("unsupported distance sensor: %s", name)
	}
}

// BinarySearchSensor locates the first out-of-bounds probe with a binary
// search over step indices. It assumes a single boundary crossing along the
// ray; with several crossings it may report any one of them.
type BinarySearchSensor struct{}

func (BinarySearchSensor) Name() string {
	return BinarySearchName
}

func (BinarySearchSensor) Measure(origin, direction r2.Vec, probe BoundaryProbe, maxRange float64) float64 {
	if !(maxRange >= 1) {
		return 0
	}
	if inBounds(probe, geom.Along(origin, direction, maxRange)) {
		return 1
	}

	// Indices below lo are in bounds; hi is out of bounds or past the range.
	lo, hi := 0, lastStepIndex(maxRange)
	for lo < hi {
		m := (lo + hi) / 2
		if inBounds(probe, geom.Along(origin, direction, float64(m)*StepSize)) {
			lo = m + 1
		} else {
			hi = m
		}
	}
	return float64(lo) * StepSize / maxRange
}

// LinearScanSensor probes every step index in order and stops at the first
// out-of-bounds point, so it never skips a crossing.
type LinearScanSensor struct{}

func (LinearScanSensor) Name() string {
	return LinearScanName
}

func (LinearScanSensor) Measure(origin, direction r2.Vec, probe BoundaryProbe, maxRange float64) float64 {
	if !(maxRange >= 1) {
		return 0
	}
	if inBounds(probe, geom.Along(origin, direction, maxRange)) {
		return 1
	}

	last := lastStepIndex(maxRange)
	idx := 0
	for ; idx < last; idx++ {
		if !inBounds(probe, geom.Along(origin, direction, float64(idx)*StepSize)) {
			break
		}
	}
	return float64(idx) * StepSize / maxRange
}

func lastStepIndex(maxRange float64) int {
	return int(math.Floor((maxRange - 1) / StepSize))
}

func inBounds(probe BoundaryProbe, p r2.Vec) bool {
	return probe.CheckInBounds([]r2.Vec{p})
}
