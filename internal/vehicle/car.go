// Package vehicle implements the reference car driven by the evaluation
// loop: a kinematic bicycle model with linear drag and partial lateral grip.
package vehicle

import (
	"math"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/spatial/r2"

	"trackdrive/internal/control"
	"trackdrive/internal/geom"
	"trackdrive/internal/simerr"
)

// Throttle gains per acceleration intent.
const (
	ForwardGain = 1.0
	ReverseGain = -0.5
)

// Spec holds the physical constants of a car.
type Spec struct {
	Length      float64 `json:"length"`
	Width       float64 `json:"width"`
	Power       float64 `json:"power"`
	Drag        float64 `json:"drag"`
	WheelRadius float64 `json:"wheel_radius"`
	MaxSteer    float64 `json:"max_steer"`
	// Grip is the fraction of lateral velocity removed each frame, in (0, 1].
	Grip float64 `json:"grip"`
}

// DefaultSpec is a 40x20 car with a top speed of 8 units per frame.
func DefaultSpec() Spec {
	return Spec{
		Length:      40,
		Width:       20,
		Power:       2,
		Drag:        0.05,
		WheelRadius: 10,
		MaxSteer:    math.Pi / 4,
		Grip:        0.6,
	}
}

// Validate rejects non-positive or non-finite constants.
func (s Spec) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"length", s.Length},
		{"width", s.Width},
		{"power", s.Power},
		{"drag", s.Drag},
		{"wheel radius", s.WheelRadius},
		{"max steer", s.MaxSteer},
		{"grip", s.Grip},
	}
	for _, f := range fields {
		if !(f.value > 0) || math.IsInf(f.value, 0) {
			return simerr.Configf("vehicle %s must be > 0, got %v", f.name, f.value)
		}
	}
	if s.Grip > 1 {
		return simerr.Configf("vehicle grip must be <= 1, got %v", s.Grip)
	}
	return nil
}

// MaxSpeed is the terminal forward speed under full throttle.
func (s Spec) MaxSpeed() float64 {
	return 2 * s.Power * ForwardGain / (s.WheelRadius * s.Drag)
}

// Car is a single vehicle. It is not safe for concurrent use; each
// evaluation owns its own Car.
type Car struct {
	spec     Spec
	maxSpeed float64
	maxSteer float64

	position r2.Vec
	angle    float64
	velocity r2.Vec
	steer    float64
	outline  []r2.Vec
}

// NewCar validates spec and computes the derived max speed once.
func NewCar(spec Spec) (*Car, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	c := &Car{
		spec:     spec,
		maxSpeed: spec.MaxSpeed(),
		maxSteer: math.Min(spec.MaxSteer, control.MaxSteer),
		outline:  make([]r2.Vec, 8),
	}
	c.updateOutline()
	return c, nil
}

func (c *Car) Spec() Spec { return c.spec }
func (c *Car) Position() r2.Vec { return c.position }
func (c *Car) Angle() float64 { return c.angle }
func (c *Car) Velocity() r2.Vec { return c.velocity }
func (c *Car) Speed() float64 { return r2.Norm(c.velocity) }
func (c *Car) Length() float64 { return c.spec.Length }
func (c *Car) Width() float64 { return c.spec.Width }
func (c *Car) MaxSpeed() float64 { return c.maxSpeed }
func (c *Car) MaxSteerAngle() float64 { return c.maxSteer }
func (c *Car) SteerAngle() float64 { return c.steer }

// Outline returns the eight boundary points of the body, clockwise from the
// front-left corner. The slice is owned by the car and refreshed on every
// pose change.
func (c *Car) Outline() []r2.Vec {
	return c.outline
}

// Place resets the car to a standstill at pos facing angle.
func (c *Car) Place(pos r2.Vec, angle float64) {
	c.position = pos
	c.angle = geom.WrapAngle(angle)
	c.velocity = r2.Vec{}
	c.steer = 0
	c.updateOutline()
}

// Apply advances the car by one frame under cmd.
func (c *Car) Apply(cmd control.Command) {
	steer := cmd.Steer
	if math.IsNaN(steer) {
		steer = 0
	}
	c.steer = lo.Clamp(steer, -c.maxSteer, c.maxSteer)

	dir := geom.UnitFromAngle(c.angle)
	perp := geom.UnitFromAngle(c.angle + math.Pi/2)
	longitudinal := r2.Dot(c.velocity, dir)
	lateral := r2.Dot(c.velocity, perp)

	thrust := 2 * c.spec.Power * throttleGain(cmd.Acceleration) / c.spec.WheelRadius
	longitudinal += thrust - c.spec.Drag*longitudinal
	lateral *= 1 - c.spec.Grip

	c.velocity = r2.Add(r2.Scale(longitudinal, dir), r2.Scale(lateral, perp))
	c.angle = geom.WrapAngle(c.angle + longitudinal/c.spec.Length*math.Tan(c.steer))
	c.position = r2.Add(c.position, c.velocity)
	c.updateOutline()
}

func throttleGain(a control.Acceleration) float64 {
	switch a {
	case control.AccelerationForward:
		return ForwardGain
	case control.AccelerationReverse:
		return ReverseGain
	default:
		return 0
	}
}

func (c *Car) updateOutline() {
	halfLength := r2.Scale(c.spec.Length/2, geom.UnitFromAngle(c.angle))
	halfWidth := r2.Scale(c.spec.Width/2, geom.UnitFromAngle(c.angle+math.Pi/2))
	front := r2.Add(c.position, halfLength)
	back := r2.Sub(c.position, halfLength)

	c.outline[0] = r2.Sub(front, halfWidth)
	c.outline[1] = front
	c.outline[2] = r2.Add(front, halfWidth)
	c.outline[3] = r2.Add(c.position, halfWidth)
	c.outline[4] = r2.Add(back, halfWidth)
	c.outline[5] = back
	c.outline[6] = r2.Sub(back, halfWidth)
	c.outline[7] = r2.Sub(c.position, halfWidth)
}
