package sensing

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"trackdrive/internal/geom"
	"trackdrive/internal/simerr"
)

// Observation slots, in the order the policy consumes them.
const (
	Front = iota
	FrontLeft30
	FrontRight30
	FrontLeft60
	FrontRight60
	Left90
	Right90
	BackLeft135
	BackRight135
	Back
	Speed
	Drift
	Steer

	ObservationSize
	RayCount = Speed
)

// RangeFactor scales vehicle length into the maximum sensing range.
const RangeFactor = 3.0

// Observation is the 13-value sensor bundle.
type Observation [ObservationSize]float64

// Values returns the observation as a fresh slice.
func (o Observation) Values() []float64 {
	return append([]float64(nil), o[:]...)
}

// Body is the part of a vehicle the sensor array reads.
type Body interface {
	Position() r2.Vec
	Angle() float64
	Velocity() r2.Vec
	Length() float64
	Width() float64
	MaxSpeed() float64
	MaxSteerAngle() float64
	SteerAngle() float64
}

type anchor int

const (
	anchorFront anchor = iota
	anchorFrontLeft
	anchorFrontRight
	anchorBackLeft
	anchorBackRight
	anchorBack
	anchorCount
)

type ray struct {
	offset float64
	from   anchor
}

var rays = [RayCount]ray{
	Front:        {0, anchorFront},
	FrontLeft30:  {-math.Pi / 6, anchorFrontLeft},
	FrontRight30: {math.Pi / 6, anchorFrontRight},
	FrontLeft60:  {-math.Pi / 3, anchorFrontLeft},
	FrontRight60: {math.Pi / 3, anchorFrontRight},
	Left90:       {-math.Pi / 2, anchorFrontLeft},
	Right90:      {math.Pi / 2, anchorFrontRight},
	BackLeft135:  {-3 * math.Pi / 4, anchorBackLeft},
	BackRight135: {3 * math.Pi / 4, anchorBackRight},
	Back:         {math.Pi, anchorBack},
}

// Array assembles observations with a pluggable distance sensor.
type Array struct {
	sensor DistanceSensor
}

func NewArray(sensor DistanceSensor) *Array {
	if sensor == nil {
		sensor = BinarySearchSensor{}
	}
	return &Array{sensor: sensor}
}

func (a *Array) Sensor() DistanceSensor {
	return a.sensor
}

// Observe reads ten clearances and the speed, drift and steer scalars.
func (a *Array) Observe(body Body, probe BoundaryProbe) (Observation, error) {
	var obs Observation
	if body == nil || probe == nil {
		return obs, simerr.Configf("observe requires a body and a boundary probe")
	}
	length, width := body.Length(), body.Width()
	if !(length > 0) || !(width > 0) {
		return obs, simerr.Configf("vehicle dimensions must be > 0, got %vx%v", length, width)
	}
	maxSpeed, maxSteer := body.MaxSpeed(), body.MaxSteerAngle()
	if !(maxSpeed > 0) || !(maxSteer > 0) {
		return obs, simerr.Configf("vehicle max speed and max steer must be > 0, got %v and %v", maxSpeed, maxSteer)
	}

	anchors := anchorPoints(body)
	heading := body.Angle()
	maxRange := RangeFactor * length
	for i, r := range rays {
		direction := geom.UnitFromAngle(heading + r.offset)
		obs[i] = a.sensor.Measure(anchors[r.from], direction, probe, maxRange)
	}

	velocity := body.Velocity()
	speed := r2.Norm(velocity)
	obs[Speed] = speed / maxSpeed
	if speed > 0 {
		obs[Drift] = geom.WrapAngle(heading-geom.Angle(velocity)) / math.Pi
	}
	obs[Steer] = body.SteerAngle() / maxSteer
	return obs, nil
}

// anchorPoints returns the body points rays originate from.
func anchorPoints(body Body) [anchorCount]r2.Vec {
	heading := body.Angle()
	halfLength := r2.Scale(body.Length()/2, geom.UnitFromAngle(heading))
	halfWidth := r2.Scale(body.Width()/2, geom.UnitFromAngle(heading+math.Pi/2))
	front := r2.Add(body.Position(), halfLength)
	back := r2.Sub(body.Position(), halfLength)
	return [anchorCount]r2.Vec{
		anchorFront:      front,
		anchorFrontLeft:  r2.Sub(front, halfWidth),
		anchorFrontRight: r2.Add(front, halfWidth),
		anchorBackLeft:   r2.Sub(back, halfWidth),
		anchorBackRight:  r2.Add(back, halfWidth),
		anchorBack:       back,
	}
}
