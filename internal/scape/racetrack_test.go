package scape

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"trackdrive/internal/agent"
	"trackdrive/internal/control"
	"trackdrive/internal/fitness"
	"trackdrive/internal/genotype"
	"trackdrive/internal/race"
	"trackdrive/internal/simerr"
	"trackdrive/internal/track"
	"trackdrive/internal/vehicle"
)

type scriptedStepAgent struct {
	id  string
	out []float64
}

func (a scriptedStepAgent) ID() string { return a.id }

func (a scriptedStepAgent) RunStep(context.Context, []float64) ([]float64, error) {
	return append([]float64(nil), a.out...), nil
}

type idOnlyAgent struct{}

func (idOnlyAgent) ID() string { return "id-only" }

func newOvalScape(t *testing.T, cfg RaceTrackConfig) *RaceTrackScape {
	t.Helper()
	layout, err := track.Get("oval")
	if err != nil {
		t.Fatalf("get layout: %v", err)
	}
	cfg.Layout = layout
	if cfg.Vehicle == (vehicle.Spec{}) {
		cfg.Vehicle = vehicle.DefaultSpec()
	}
	s, err := NewRaceTrackScape(cfg)
	if err != nil {
		t.Fatalf("new scape: %v", err)
	}
	return s
}

func TestRaceTrackScapeEvaluateScriptedAgent(t *testing.T) {
	s := newOvalScape(t, RaceTrackConfig{})
	if s.Name() != RaceTrackName || s.Layout().Name() != "oval" {
		t.Fatalf("unexpected scape identity: %s %s", s.Name(), s.Layout().Name())
	}

	fitness, trace, err := s.Evaluate(context.Background(), scriptedStepAgent{id: "straight", out: []float64{0, 1, 0, 0.5}})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	gates, ok := trace["gates_passed"].(int)
	if !ok {
		t.Fatalf("trace missing gates_passed: %+v", trace)
	}
	if float64(fitness) != float64(gates) || gates < 3 {
		t.Fatalf("unexpected gate fitness: fitness=%f gates=%d", fitness, gates)
	}
	if trace["reason"] != string(race.ReasonOutOfBounds) {
		t.Fatalf("unexpected reason: %+v", trace)
	}
	if trace["track"] != "oval" {
		t.Fatalf("unexpected track in trace: %+v", trace)
	}
}

func TestRaceTrackScapeEvaluateCortex(t *testing.T) {
	s := newOvalScape(t, RaceTrackConfig{Decision: control.CombinedGridName, Fitness: "squared_ratio"})
	spec := genotype.DefaultDriverSpec()
	spec.Decision = control.CombinedGridName
	genome, err := genotype.NewDriver("g0", spec, rand.New(rand.NewSource(11)))
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}
	cortex, err := agent.NewCortex(genome.ID, genome)
	if err != nil {
		t.Fatalf("new cortex: %v", err)
	}

	first, trace, err := s.Evaluate(context.Background(), cortex)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	second, _, err := s.Evaluate(context.Background(), cortex)
	if err != nil {
		t.Fatalf("evaluate again: %v", err)
	}
	if first != second {
		t.Fatalf("expected deterministic fitness, got %f then %f", first, second)
	}
	if frames, _ := trace["frames"].(int); frames <= 0 {
		t.Fatalf("expected frames in trace: %+v", trace)
	}
}

func TestRaceTrackScapeDriveRecords(t *testing.T) {
	s := newOvalScape(t, RaceTrackConfig{})
	rec := race.NewRecorder(0)
	result, err := s.Drive(context.Background(), scriptedStepAgent{id: "idle", out: []float64{1, 0, 0, 0.5}}, rec)
	if err != nil {
		t.Fatalf("drive: %v", err)
	}
	if result.Reason != race.ReasonStalled || rec.Len() != result.Frames {
		t.Fatalf("unexpected recording: reason=%s frames=%d recorded=%d", result.Reason, result.Frames, rec.Len())
	}
}

func TestRaceTrackScapeErrors(t *testing.T) {
	if _, err := NewRaceTrackScape(RaceTrackConfig{Vehicle: vehicle.DefaultSpec()}); !errors.Is(err, simerr.ErrConfiguration) {
		t.Fatalf("expected missing layout configuration error, got: %v", err)
	}
	layout, _ := track.Get("oval")
	if _, err := NewRaceTrackScape(RaceTrackConfig{Layout: layout}); !errors.Is(err, simerr.ErrConfiguration) {
		t.Fatalf("expected vehicle configuration error, got: %v", err)
	}
	if _, err := NewRaceTrackScape(RaceTrackConfig{Layout: layout, Vehicle: vehicle.DefaultSpec(), Fitness: "speed"}); !errors.Is(err, simerr.ErrConfiguration) {
		t.Fatalf("expected fitness configuration error, got: %v", err)
	}
	if _, err := NewRaceTrackScape(RaceTrackConfig{Layout: layout, Vehicle: vehicle.DefaultSpec(), Sensor: "sonar"}); !errors.Is(err, simerr.ErrConfiguration) {
		t.Fatalf("expected sensor configuration error, got: %v", err)
	}

	s := newOvalScape(t, RaceTrackConfig{})
	if _, _, err := s.Evaluate(context.Background(), idOnlyAgent{}); err == nil {
		t.Fatal("expected step runner error")
	}
	_, _, err := s.Evaluate(context.Background(), scriptedStepAgent{id: "short", out: []float64{1}})
	if !errors.Is(err, simerr.ErrConfiguration) {
		t.Fatalf("expected output length configuration error, got: %v", err)
	}
}

func TestRaceTrackScapeHeadingGuardParams(t *testing.T) {
	s := newOvalScape(t, RaceTrackConfig{
		Fitness:       fitness.HeadingGuardName,
		FitnessParams: fitness.Params{HeadingTolerance: 0.05, HeadingFloor: -1},
	})
	guard, ok := s.Loop().Shaper().(fitness.HeadingGuard)
	if !ok {
		t.Fatalf("unexpected shaper type %T", s.Loop().Shaper())
	}
	if guard.Tolerance != 0.05 || guard.Floor != -1 {
		t.Fatalf("unexpected guard params: %+v", guard)
	}

	// An idle car never turns, so the guard reports its floor.
	fit, trace, err := s.Evaluate(context.Background(), scriptedStepAgent{id: "idle", out: []float64{1, 0, 0, 0.5}})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if fit != -1 {
		t.Fatalf("expected floor fitness, got=%f", fit)
	}
	if trace["reason"] != string(race.ReasonStalled) {
		t.Fatalf("expected stalled run, got=%v", trace["reason"])
	}
}
