package race

import (
	"math"

	"trackdrive/internal/simerr"
)

const (
	DefaultStallSpeed   = 0.2
	DefaultWarmupFrames = 10
	DefaultLapOvershoot = 2
	DefaultMaxFrames    = 5000
)

// Config holds the termination thresholds of a run.
type Config struct {
	// StallSpeed is the speed below which a car counts as stalled once
	// WarmupFrames have elapsed.
	StallSpeed   float64 `json:"stall_speed"`
	WarmupFrames int     `json:"warmup_frames"`
	// LapOvershoot is how many gates past a full lap end the run.
	LapOvershoot int `json:"lap_overshoot"`
	MaxFrames    int `json:"max_frames"`
}

func DefaultConfig() Config {
	return Config{
		StallSpeed:   DefaultStallSpeed,
		WarmupFrames: DefaultWarmupFrames,
		LapOvershoot: DefaultLapOvershoot,
		MaxFrames:    DefaultMaxFrames,
	}
}

func (c Config) Validate() error {
	if c.StallSpeed < 0 || math.IsNaN(c.StallSpeed) || math.IsInf(c.StallSpeed, 0) {
		return simerr.Configf("stall speed must be a finite value >= 0, got %v", c.StallSpeed)
	}
	if c.WarmupFrames < 0 {
		return simerr.Configf("warmup frames must be >= 0, got %d", c.WarmupFrames)
	}
	if c.LapOvershoot < 0 {
		return simerr.Configf("lap overshoot must be >= 0, got %d", c.LapOvershoot)
	}
	if c.MaxFrames <= 0 {
		return simerr.Configf("max frames must be > 0, got %d", c.MaxFrames)
	}
	return nil
}
