package scape

import (
	"context"
	"fmt"

	"trackdrive/internal/control"
	"trackdrive/internal/fitness"
	"trackdrive/internal/race"
	"trackdrive/internal/sensing"
	"trackdrive/internal/simerr"
	"trackdrive/internal/track"
	"trackdrive/internal/vehicle"
)

const RaceTrackName = "race-track"

// RaceTrackConfig selects the track, the car and every strategy of a run.
type RaceTrackConfig struct {
	Layout   *track.Layout
	Vehicle  vehicle.Spec
	Sensor   string
	Decision string
	Fitness  string
	// FitnessParams tunes the shaping policy named by Fitness.
	FitnessParams fitness.Params
	// Loop defaults to race.DefaultConfig when zero.
	Loop race.Config
}

// RaceTrackScape scores an agent by driving one fresh car around a shared
// layout. Evaluate is safe for concurrent use with distinct agents.
type RaceTrackScape struct {
	layout  *track.Layout
	vehicle vehicle.Spec
	loop    *race.Loop
}

func NewRaceTrackScape(cfg RaceTrackConfig) (*RaceTrackScape, error) {
	if cfg.Layout == nil {
		return nil, simerr.Configf("track layout is required")
	}
	if err := cfg.Vehicle.Validate(); err != nil {
		return nil, err
	}
	sensor, err := sensing.NewDistanceSensor(cfg.Sensor)
	if err != nil {
		return nil, err
	}
	decision := cfg.Decision
	if decision == "" {
		decision = control.ArgmaxSteerName
	}
	adapter, err := control.NewAdapter(decision, cfg.Vehicle.MaxSteer)
	if err != nil {
		return nil, err
	}
	shaper, err := fitness.NewShaperWithParams(cfg.Fitness, cfg.FitnessParams)
	if err != nil {
		return nil, err
	}
	limits := cfg.Loop
	if limits == (race.Config{}) {
		limits = race.DefaultConfig()
	}
	loop, err := race.NewLoop(sensing.NewArray(sensor), adapter, shaper, limits)
	if err != nil {
		return nil, err
	}
	return &RaceTrackScape{layout: cfg.Layout, vehicle: cfg.Vehicle, loop: loop}, nil
}

func (s *RaceTrackScape) Name() string {
	return RaceTrackName
}

func (s *RaceTrackScape) Layout() *track.Layout {
	return s.layout
}

func (s *RaceTrackScape) Loop() *race.Loop {
	return s.loop
}

func (s *RaceTrackScape) Evaluate(ctx context.Context, agent Agent) (Fitness, Trace, error) {
	result, err := s.Drive(ctx, agent, nil)
	if err != nil {
		return 0, nil, err
	}
	return Fitness(result.Fitness), Trace{
		"track":         s.layout.Name(),
		"gates_passed":  result.GatesPassed,
		"frames":        result.Frames,
		"reason":        string(result.Reason),
		"final_gate":    result.FinalGate,
		"distance":      result.Distance,
		"start_heading": result.StartHeading,
		"final_heading": result.FinalHeading,
	}, nil
}

// Drive runs agent once and hands every frame to rec when rec is non-nil.
func (s *RaceTrackScape) Drive(ctx context.Context, agent Agent, rec *race.Recorder) (race.Result, error) {
	runner, ok := agent.(StepAgent)
	if !ok {
		return race.Result{}, fmt.Errorf("agent %s does not implement step runner", agent.ID())
	}
	car, err := vehicle.NewCar(s.vehicle)
	if err != nil {
		return race.Result{}, err
	}
	result, err := s.loop.RunRecorded(ctx, track.New(s.layout), car, runner, rec)
	if err != nil {
		return race.Result{}, fmt.Errorf("agent %s on %s: %w", agent.ID(), s.layout.Name(), err)
	}
	return result, nil
}
