// Package config loads JSON run configurations. Every field is optional;
// the Get* accessors fall back to the package defaults.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"trackdrive/internal/evo"
	"trackdrive/internal/fitness"
	"trackdrive/internal/genotype"
	"trackdrive/internal/race"
	"trackdrive/internal/simerr"
	"trackdrive/internal/track"
	"trackdrive/internal/vehicle"
)

const (
	DefaultTrack         = "oval"
	DefaultPopulation    = 20
	DefaultGenerations   = 10
	DefaultEliteCount    = 4
	DefaultMutationDelta = 0.5
	DefaultSeed          = int64(1)

	maxFileSize = 1 * 1024 * 1024
)

// RunConfig is the root configuration of an evaluation or evolution run.
type RunConfig struct {
	Track    *string `json:"track,omitempty"` // built-in name or .json layout path
	Sensor   *string `json:"sensor,omitempty"`
	Decision *string `json:"decision,omitempty"`
	Fitness  *string `json:"fitness,omitempty"`
	// HeadingTolerance and HeadingFloor apply to the heading_guard policy.
	HeadingTolerance *float64 `json:"heading_tolerance,omitempty"`
	HeadingFloor     *float64 `json:"heading_floor,omitempty"`

	Vehicle   *VehicleConfig   `json:"vehicle,omitempty"`
	Loop      *LoopConfig      `json:"loop,omitempty"`
	Evolution *EvolutionConfig `json:"evolution,omitempty"`
}

type VehicleConfig struct {
	Length      *float64 `json:"length,omitempty"`
	Width       *float64 `json:"width,omitempty"`
	Power       *float64 `json:"power,omitempty"`
	Drag        *float64 `json:"drag,omitempty"`
	WheelRadius *float64 `json:"wheel_radius,omitempty"`
	MaxSteer    *float64 `json:"max_steer,omitempty"`
	Grip        *float64 `json:"grip,omitempty"`
}

type LoopConfig struct {
	StallSpeed   *float64 `json:"stall_speed,omitempty"`
	WarmupFrames *int     `json:"warmup_frames,omitempty"`
	LapOvershoot *int     `json:"lap_overshoot,omitempty"`
	MaxFrames    *int     `json:"max_frames,omitempty"`
}

type EvolutionConfig struct {
	Population        *int               `json:"population,omitempty"`
	Generations       *int               `json:"generations,omitempty"`
	Workers           *int               `json:"workers,omitempty"`
	EliteCount        *int               `json:"elite_count,omitempty"`
	Seed              *int64             `json:"seed,omitempty"`
	Selection         *string            `json:"selection,omitempty"`
	Postprocessor     *string            `json:"postprocessor,omitempty"`
	MutationDelta     *float64           `json:"mutation_delta,omitempty"`
	MutationsPerChild *int               `json:"mutations_per_child,omitempty"`
	Hidden            []int              `json:"hidden,omitempty"`
	Mutations         map[string]float64 `json:"mutations,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrInt64(v int64) *int64       { return &v }
func ptrString(v string) *string    { return &v }

// Load reads and validates a RunConfig from a .json file.
func Load(path string) (*RunConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}
	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &RunConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks every set field. Vehicle and loop values are validated by
// building them.
func (c *RunConfig) Validate() error {
	if err := c.GetVehicleSpec().Validate(); err != nil {
		return err
	}
	if err := c.GetLoopConfig().Validate(); err != nil {
		return err
	}
	if _, err := fitness.NewShaperWithParams(c.GetFitness(), c.GetFitnessParams()); err != nil {
		return err
	}
	if _, err := evo.NewSelector(c.GetSelection()); err != nil {
		return err
	}
	if _, err := evo.NewPostprocessor(c.GetPostprocessor()); err != nil {
		return err
	}

	if c.GetPopulation() < 1 {
		return simerr.Configf("population must be >= 1, got %d", c.GetPopulation())
	}
	if c.GetGenerations() < 1 {
		return simerr.Configf("generations must be >= 1, got %d", c.GetGenerations())
	}
	if e := c.GetEliteCount(); e < 1 || e > c.GetPopulation() {
		return simerr.Configf("elite count must be in [1, population], got %d", e)
	}
	if c.GetWorkers() < 0 {
		return simerr.Configf("workers must be >= 0, got %d", c.GetWorkers())
	}
	if d := c.GetMutationDelta(); !(d > 0) || math.IsInf(d, 0) {
		return simerr.Configf("mutation delta must be > 0, got %v", d)
	}
	if c.Evolution != nil {
		for _, h := range c.Evolution.Hidden {
			if h < 1 {
				return simerr.Configf("hidden layer width must be >= 1, got %d", h)
			}
		}
		for name, weight := range c.Evolution.Mutations {
			if weight < 0 {
				return simerr.Configf("mutation %q weight must be >= 0, got %v", name, weight)
			}
		}
	}
	return nil
}

func (c *RunConfig) GetTrack() string {
	if c.Track == nil || *c.Track == "" {
		return DefaultTrack
	}
	return *c.Track
}

// LoadTrack resolves the configured track name or file.
func (c *RunConfig) LoadTrack() (*track.Layout, error) {
	return track.Load(c.GetTrack())
}

func (c *RunConfig) GetSensor() string {
	if c.Sensor == nil {
		return ""
	}
	return *c.Sensor
}

func (c *RunConfig) GetDecision() string {
	if c.Decision == nil {
		return ""
	}
	return *c.Decision
}

func (c *RunConfig) GetFitness() string {
	if c.Fitness == nil {
		return fitness.GatesName
	}
	return *c.Fitness
}

func (c *RunConfig) GetFitnessParams() fitness.Params {
	var params fitness.Params
	setFloat(&params.HeadingTolerance, c.HeadingTolerance)
	setFloat(&params.HeadingFloor, c.HeadingFloor)
	return params
}

func (c *RunConfig) GetVehicleSpec() vehicle.Spec {
	spec := vehicle.DefaultSpec()
	v := c.Vehicle
	if v == nil {
		return spec
	}
	setFloat(&spec.Length, v.Length)
	setFloat(&spec.Width, v.Width)
	setFloat(&spec.Power, v.Power)
	setFloat(&spec.Drag, v.Drag)
	setFloat(&spec.WheelRadius, v.WheelRadius)
	setFloat(&spec.MaxSteer, v.MaxSteer)
	setFloat(&spec.Grip, v.Grip)
	return spec
}

func (c *RunConfig) GetLoopConfig() race.Config {
	cfg := race.DefaultConfig()
	l := c.Loop
	if l == nil {
		return cfg
	}
	setFloat(&cfg.StallSpeed, l.StallSpeed)
	setInt(&cfg.WarmupFrames, l.WarmupFrames)
	setInt(&cfg.LapOvershoot, l.LapOvershoot)
	setInt(&cfg.MaxFrames, l.MaxFrames)
	return cfg
}

// GetDriverSpec shapes seed genomes for the configured decision adapter.
func (c *RunConfig) GetDriverSpec() genotype.DriverSpec {
	spec := genotype.DefaultDriverSpec()
	if d := c.GetDecision(); d != "" {
		spec.Decision = d
	}
	if c.Evolution != nil && len(c.Evolution.Hidden) > 0 {
		spec.Hidden = append([]int(nil), c.Evolution.Hidden...)
	}
	return spec
}

func (c *RunConfig) GetPopulation() int {
	if c.Evolution == nil || c.Evolution.Population == nil {
		return DefaultPopulation
	}
	return *c.Evolution.Population
}

func (c *RunConfig) GetGenerations() int {
	if c.Evolution == nil || c.Evolution.Generations == nil {
		return DefaultGenerations
	}
	return *c.Evolution.Generations
}

// GetWorkers returns 0 when unset; the population monitor then runs one worker.
func (c *RunConfig) GetWorkers() int {
	if c.Evolution == nil || c.Evolution.Workers == nil {
		return 0
	}
	return *c.Evolution.Workers
}

func (c *RunConfig) GetEliteCount() int {
	if c.Evolution == nil || c.Evolution.EliteCount == nil {
		return min(DefaultEliteCount, c.GetPopulation())
	}
	return *c.Evolution.EliteCount
}

func (c *RunConfig) GetSeed() int64 {
	if c.Evolution == nil || c.Evolution.Seed == nil {
		return DefaultSeed
	}
	return *c.Evolution.Seed
}

func (c *RunConfig) GetSelection() string {
	if c.Evolution == nil || c.Evolution.Selection == nil {
		return ""
	}
	return *c.Evolution.Selection
}

func (c *RunConfig) GetPostprocessor() string {
	if c.Evolution == nil || c.Evolution.Postprocessor == nil {
		return ""
	}
	return *c.Evolution.Postprocessor
}

func (c *RunConfig) GetMutationDelta() float64 {
	if c.Evolution == nil || c.Evolution.MutationDelta == nil {
		return DefaultMutationDelta
	}
	return *c.Evolution.MutationDelta
}

func (c *RunConfig) GetMutationsPerChild() int {
	if c.Evolution == nil || c.Evolution.MutationsPerChild == nil {
		return 1
	}
	return *c.Evolution.MutationsPerChild
}

// GetMutationWeights returns the operator weights, or an even split over
// the weight and bias perturbations when unset.
func (c *RunConfig) GetMutationWeights() map[string]float64 {
	if c.Evolution != nil && len(c.Evolution.Mutations) > 0 {
		out := make(map[string]float64, len(c.Evolution.Mutations))
		for name, weight := range c.Evolution.Mutations {
			out[name] = weight
		}
		return out
	}
	return map[string]float64{
		"perturb_random_weight":        1,
		"perturb_weights_proportional": 1,
		"perturb_random_bias":          1,
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
