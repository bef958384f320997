package track

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

const (
	defaultHalfWidth = 60
	arcSamples       = 12
)

func initializeBuiltInLayouts() {
	MustRegister(mustLayout(NewLayout("oval", ovalCenterline(), defaultHalfWidth)))
	MustRegister(mustLayout(NewLayout("square", squareCenterline(), defaultHalfWidth)))
	MustRegister(mustLayout(NewLayout("kidney", kidneyCenterline(), defaultHalfWidth)))
}

func mustLayout(layout *Layout, err error) *Layout {
	if err != nil {
		panic(err)
	}
	return layout
}

// ovalCenterline is a stadium: two 600 unit straights joined by half
// circles of radius 200, driven clockwise on screen.
func ovalCenterline() []r2.Vec {
	const (
		left     = 300.0
		right    = 900.0
		centerY  = 400.0
		radius   = 200.0
		straight = 3
	)
	points := make([]r2.Vec, 0, 2*(straight+arcSamples))
	top := centerY - radius
	bottom := centerY + radius
	for i := 0; i < straight; i++ {
		points = append(points, r2.Vec{X: left + float64(i)*(right-left)/straight, Y: top})
	}
	for i := 0; i < arcSamples; i++ {
		theta := -math.Pi/2 + math.Pi*float64(i)/arcSamples
		points = append(points, r2.Vec{X: right + radius*math.Cos(theta), Y: centerY + radius*math.Sin(theta)})
	}
	for i := 0; i < straight; i++ {
		points = append(points, r2.Vec{X: right - float64(i)*(right-left)/straight, Y: bottom})
	}
	for i := 0; i < arcSamples; i++ {
		theta := math.Pi/2 + math.Pi*float64(i)/arcSamples
		points = append(points, r2.Vec{X: left + radius*math.Cos(theta), Y: centerY + radius*math.Sin(theta)})
	}
	return points
}

// squareCenterline is an 800 unit square with a gate every 200 units.
func squareCenterline() []r2.Vec {
	const (
		origin = 100.0
		side   = 800.0
		steps  = 4
	)
	step := side / steps
	corners := []r2.Vec{
		{X: origin, Y: origin},
		{X: origin + side, Y: origin},
		{X: origin + side, Y: origin + side},
		{X: origin, Y: origin + side},
	}
	points := make([]r2.Vec, 0, len(corners)*steps)
	for i, corner := range corners {
		dir := r2.Unit(r2.Sub(corners[(i+1)%len(corners)], corner))
		for s := 0; s < steps; s++ {
			points = append(points, r2.Add(corner, r2.Scale(float64(s)*step, dir)))
		}
	}
	return points
}

// kidneyCenterline is a closed bean curve with one concave flank.
func kidneyCenterline() []r2.Vec {
	const (
		samples = 32
		cx      = 600.0
		cy      = 450.0
	)
	points := make([]r2.Vec, 0, samples)
	for i := 0; i < samples; i++ {
		theta := 2 * math.Pi * float64(i) / samples
		radius := 320 - 90*math.Cos(2*theta) - 60*math.Sin(theta)
		points = append(points, r2.Vec{
			X: cx + 1.3*radius*math.Cos(theta),
			Y: cy + radius*math.Sin(theta),
		})
	}
	return points
}
