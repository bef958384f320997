// Package geom collects the small planar helpers shared by the vehicle,
// track and sensing packages.
//
// Angles follow screen coordinates: y grows downward, so a positive angle
// offset turns clockwise on screen and unit(angle+pi/2) points to the
// vehicle's right-hand side.
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// UnitFromAngle returns the unit vector pointing along angle (radians).
func UnitFromAngle(angle float64) r2.Vec {
	return r2.Vec{X: math.Cos(angle), Y: math.Sin(angle)}
}

// Angle returns the direction of v in radians. The zero vector has angle 0.
func Angle(v r2.Vec) float64 {
	if v.X == 0 && v.Y == 0 {
		return 0
	}
	return math.Atan2(v.Y, v.X)
}

// WrapAngle maps angle into (-pi, pi].
func WrapAngle(angle float64) float64 {
	if math.IsNaN(angle) || math.IsInf(angle, 0) {
		return 0
	}
	wrapped := math.Mod(angle+math.Pi, 2*math.Pi)
	if wrapped <= 0 {
		wrapped += 2 * math.Pi
	}
	return wrapped - math.Pi
}

// Mod is the true modulo: the result is always in [0, n) for n > 0.
func Mod(a, n int) int {
	if n <= 0 {
		return 0
	}
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}

// Along returns origin + distance*direction.
func Along(origin, direction r2.Vec, distance float64) r2.Vec {
	return r2.Add(origin, r2.Scale(distance, direction))
}

// SegmentDistance returns the distance from p to the segment [a, b].
func SegmentDistance(p, a, b r2.Vec) float64 {
	ab := r2.Sub(b, a)
	lengthSq := r2.Dot(ab, ab)
	if lengthSq == 0 {
		return r2.Norm(r2.Sub(p, a))
	}
	t := r2.Dot(r2.Sub(p, a), ab) / lengthSq
	t = math.Max(0, math.Min(1, t))
	closest := r2.Add(a, r2.Scale(t, ab))
	return r2.Norm(r2.Sub(p, closest))
}
