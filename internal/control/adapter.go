package control

import (
	"math"
	"strings"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/floats"

	"trackdrive/internal/simerr"
)

const (
	ArgmaxSteerName  = "argmax_steer"
	CombinedGridName = "combined_grid"

	// ArgmaxSteerOutputs is the minimum policy width for ArgmaxSteerAdapter.
	ArgmaxSteerOutputs = 4
	// CombinedGridOutputs is the minimum policy width for CombinedGridAdapter.
	CombinedGridOutputs = 9
)

// Adapter turns a raw policy output vector into a validated command.
// Implementations are total over finite inputs and hold no hidden state.
type Adapter interface {
	Name() string
	Outputs() int
	Decide(raw []float64) (Command, error)
}

// NewAdapter resolves an adapter by name. maxSteer is the vehicle's maximum
// front-wheel angle; it is further bounded by MaxSteer.
func NewAdapter(name string, maxSteer float64) (Adapter, error) {
	if maxSteer <= 0 || math.IsNaN(maxSteer) {
		return nil, simerr.Configf("max steer angle must be > 0, got %v", maxSteer)
	}
	limit := math.Min(maxSteer, MaxSteer)
	switch strings.TrimSpace(strings.ToLower(name)) {
	case "", ArgmaxSteerName:
		return ArgmaxSteerAdapter{MaxSteer: limit}, nil
	case CombinedGridName:
		return CombinedGridAdapter{MaxSteer: limit}, nil
	default:
		return nil, simerr.Configf("unsupported decision adapter: %s", name)
	}
}

// ArgmaxSteerAdapter picks the throttle by argmax over the first three
// outputs {none, forward, reverse} and reads the fourth output as a
// continuous steering value centred on 0.5.
type ArgmaxSteerAdapter struct {
	MaxSteer float64
}

func (ArgmaxSteerAdapter) Name() string {
	return ArgmaxSteerName
}

func (ArgmaxSteerAdapter) Outputs() int {
	return ArgmaxSteerOutputs
}

func (a ArgmaxSteerAdapter) Decide(raw []float64) (Command, error) {
	if len(raw) < ArgmaxSteerOutputs {
		return Command{}, simerr.Configf("%s requires %d outputs, got %d", ArgmaxSteerName, ArgmaxSteerOutputs, len(raw))
	}

	accel := Acceleration(floats.MaxIdx(raw[:3]))

	v := raw[3]
	if math.IsNaN(v) {
		v = 0.5
	}
	limit := steerLimit(a.MaxSteer)
	steer := lo.Clamp((v-0.5)*(math.Pi/2), -limit, limit)

	return Command{Steer: steer, Acceleration: accel}, nil
}

// CombinedGridAdapter takes a global argmax over a 3x3 grid of
// {straight, left, right} x {forward, reverse, none}.
type CombinedGridAdapter struct {
	MaxSteer float64
}

func (CombinedGridAdapter) Name() string {
	return CombinedGridName
}

func (CombinedGridAdapter) Outputs() int {
	return CombinedGridOutputs
}

var gridAcceleration = [3]Acceleration{AccelerationForward, AccelerationReverse, AccelerationNone}

func (a CombinedGridAdapter) Decide(raw []float64) (Command, error) {
	if len(raw) < CombinedGridOutputs {
		return Command{}, simerr.Configf("%s requires %d outputs, got %d", CombinedGridName, CombinedGridOutputs, len(raw))
	}

	turn, accel := GridCell(floats.MaxIdx(raw[:CombinedGridOutputs]))
	limit := steerLimit(a.MaxSteer)

	var steer float64
	switch turn {
	case TurnLeft:
		steer = -limit
	case TurnRight:
		steer = limit
	}
	return Command{Steer: steer, Acceleration: accel}, nil
}

// GridCell returns the (turn, acceleration) bucket for a grid index in
// [0, CombinedGridOutputs).
func GridCell(idx int) (Turn, Acceleration) {
	idx = lo.Clamp(idx, 0, CombinedGridOutputs-1)
	return Turn(idx / 3), gridAcceleration[idx%3]
}

func steerLimit(maxSteer float64) float64 {
	if maxSteer <= 0 || maxSteer > MaxSteer || math.IsNaN(maxSteer) {
		return MaxSteer
	}
	return maxSteer
}
