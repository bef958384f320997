package race

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"

	"trackdrive/internal/control"
	"trackdrive/internal/fitness"
	"trackdrive/internal/geom"
	"trackdrive/internal/sensing"
	"trackdrive/internal/simerr"
)

// Loop wires the sensing, decision and shaping strategies of a run. A Loop
// holds no per-run state and may drive concurrent runs.
type Loop struct {
	sensors *sensing.Array
	adapter control.Adapter
	shaper  fitness.Shaper
	config  Config
}

func NewLoop(sensors *sensing.Array, adapter control.Adapter, shaper fitness.Shaper, cfg Config) (*Loop, error) {
	if sensors == nil {
		return nil, simerr.Configf("sensor array is required")
	}
	if adapter == nil {
		return nil, simerr.Configf("decision adapter is required")
	}
	if shaper == nil {
		shaper = fitness.Gates{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Loop{sensors: sensors, adapter: adapter, shaper: shaper, config: cfg}, nil
}

func (l *Loop) Config() Config { return l.config }
func (l *Loop) Adapter() control.Adapter { return l.adapter }
func (l *Loop) Shaper() fitness.Shaper { return l.shaper }
func (l *Loop) SensorArray() *sensing.Array { return l.sensors }

// Run drives v around trk until a termination condition holds.
func (l *Loop) Run(ctx context.Context, trk Track, v Vehicle, policy Policy) (Result, error) {
	return l.RunRecorded(ctx, trk, v, policy, nil)
}

// RunRecorded is Run with every frame handed to rec. rec may be nil.
func (l *Loop) RunRecorded(ctx context.Context, trk Track, v Vehicle, policy Policy, rec *Recorder) (Result, error) {
	if trk == nil || v == nil || policy == nil {
		return Result{}, simerr.Configf("run requires a track, a vehicle and a policy")
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	totalGates := trk.TotalGates()
	if totalGates < 1 {
		return Result{}, simerr.Degeneratef("track has %d gates", totalGates)
	}

	trk.PlaceAtStart(v)
	result := Result{StartHeading: v.Angle()}
	gate := trk.CurrentGateIndex()
	position := v.Position()

	for {
		obs, err := l.sensors.Observe(v, trk)
		if err != nil {
			return Result{}, err
		}
		raw, err := policy.RunStep(ctx, obs.Values())
		if err != nil {
			return Result{}, fmt.Errorf("policy step %d: %w", result.Frames, err)
		}
		cmd, err := l.adapter.Decide(raw)
		if err != nil {
			return Result{}, err
		}
		v.Apply(cmd)
		trk.UpdateGate(v)
		result.Frames++

		next := trk.CurrentGateIndex()
		result.GatesPassed += GateDelta(gate, next, totalGates)
		gate = next

		moved := v.Position()
		result.Distance += r2.Norm(r2.Sub(moved, position))
		position = moved

		rec.record(Frame{
			Index:       result.Frames - 1,
			Position:    moved,
			Angle:       v.Angle(),
			Speed:       r2.Norm(v.Velocity()),
			Gate:        gate,
			GatesPassed: result.GatesPassed,
			Command:     cmd,
			Observation: obs,
		})

		if reason, done := l.terminated(trk, v, result, totalGates); done {
			result.Reason = reason
			break
		}
	}

	result.FinalGate = gate
	result.FinalHeading = v.Angle()
	result.Fitness = l.shaper.Shape(fitness.Outcome{
		GatesPassed:  result.GatesPassed,
		Frames:       result.Frames,
		StartHeading: result.StartHeading,
		FinalHeading: result.FinalHeading,
	})
	return result, nil
}

// terminated checks the stop conditions in priority order.
func (l *Loop) terminated(trk Track, v Vehicle, result Result, totalGates int) (Reason, bool) {
	switch {
	case !trk.CheckInBounds(v.Outline()):
		return ReasonOutOfBounds, true
	case result.GatesPassed >= totalGates+l.config.LapOvershoot:
		return ReasonLapCap, true
	case r2.Norm(v.Velocity()) < l.config.StallSpeed && result.Frames > l.config.WarmupFrames:
		return ReasonStalled, true
	case result.Frames >= l.config.MaxFrames:
		return ReasonFrameLimit, true
	}
	return "", false
}

// GateDelta is +1 when next follows prev, -1 when it precedes prev and 0
// otherwise. An unchanged index is always 0.
func GateDelta(prev, next, totalGates int) int {
	if next == prev {
		return 0
	}
	switch next {
	case geom.Mod(prev+1, totalGates):
		return 1
	case geom.Mod(prev-1, totalGates):
		return -1
	}
	return 0
}
