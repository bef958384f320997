// Package track implements closed race tracks: the drivable surface, the
// ordered gate sequence and the start pose.
//
// A Layout is immutable once built and may be shared between concurrent
// evaluations. Per-run gate progress lives in a Track handle.
package track

import (
	"math"

	"github.com/dhconnelly/rtreego"
	"gonum.org/v1/gonum/spatial/r2"

	"trackdrive/internal/geom"
	"trackdrive/internal/simerr"
)

const (
	rtreeMinChildren = 4
	rtreeMaxChildren = 16
	pointTolerance   = 1e-9
)

// Gate is a checkpoint line across the track at one centerline vertex.
type Gate struct {
	Center    r2.Vec
	Tangent   r2.Vec
	HalfWidth float64
}

// Side is the signed distance of p along the gate's forward tangent.
func (g Gate) Side(p r2.Vec) float64 {
	return r2.Dot(r2.Sub(p, g.Center), g.Tangent)
}

func (g Gate) spans(p r2.Vec) bool {
	normal := r2.Vec{X: -g.Tangent.Y, Y: g.Tangent.X}
	return math.Abs(r2.Dot(r2.Sub(p, g.Center), normal)) <= g.HalfWidth
}

// Passed reports whether p lies on or beyond the gate line within the
// track width.
func (g Gate) Passed(p r2.Vec) bool {
	return g.spans(p) && g.Side(p) >= 0
}

// Behind reports whether p lies before the gate line within the track width.
func (g Gate) Behind(p r2.Vec) bool {
	return g.spans(p) && g.Side(p) < 0
}

type segment struct {
	a, b   r2.Vec
	bounds rtreego.Rect
}

func (s *segment) Bounds() rtreego.Rect {
	return s.bounds
}

// Layout is a closed centerline with a constant half-width. Gate i sits at
// centerline vertex i and the start pose is gate 0 facing gate 1.
type Layout struct {
	name       string
	centerline []r2.Vec
	halfWidth  float64
	gates      []Gate
	index      *rtreego.Rtree
}

// NewLayout validates the centerline and builds the boundary index.
func NewLayout(name string, centerline []r2.Vec, halfWidth float64) (*Layout, error) {
	if len(centerline) == 0 {
		return nil, simerr.Degeneratef("track %q has no gates", name)
	}
	if len(centerline) < 3 {
		return nil, simerr.Configf("track %q needs at least 3 centerline points, got %d", name, len(centerline))
	}
	if !(halfWidth > 0) || math.IsInf(halfWidth, 0) {
		return nil, simerr.Configf("track %q half width must be > 0, got %v", name, halfWidth)
	}

	points := append([]r2.Vec(nil), centerline...)
	n := len(points)
	spatials := make([]rtreego.Spatial, 0, n)
	for i := 0; i < n; i++ {
		a, b := points[i], points[geom.Mod(i+1, n)]
		if math.IsNaN(a.X) || math.IsNaN(a.Y) || math.IsInf(a.X, 0) || math.IsInf(a.Y, 0) {
			return nil, simerr.Configf("track %q point %d is not finite", name, i)
		}
		if a == b {
			return nil, simerr.Configf("track %q repeats point %d", name, i)
		}
		bounds, err := segmentBounds(a, b, halfWidth)
		if err != nil {
			return nil, simerr.Configf("track %q segment %d: %v", name, i, err)
		}
		spatials = append(spatials, &segment{a: a, b: b, bounds: bounds})
	}

	gates := make([]Gate, n)
	for i := range points {
		prev := points[geom.Mod(i-1, n)]
		next := points[geom.Mod(i+1, n)]
		tangent := r2.Unit(r2.Sub(next, prev))
		if math.IsNaN(tangent.X) {
			tangent = r2.Unit(r2.Sub(next, points[i]))
		}
		gates[i] = Gate{Center: points[i], Tangent: tangent, HalfWidth: halfWidth}
	}

	return &Layout{
		name:       name,
		centerline: points,
		halfWidth:  halfWidth,
		gates:      gates,
		index:      rtreego.NewTree(2, rtreeMinChildren, rtreeMaxChildren, spatials...),
	}, nil
}

func segmentBounds(a, b r2.Vec, pad float64) (rtreego.Rect, error) {
	minX, maxX := math.Min(a.X, b.X)-pad, math.Max(a.X, b.X)+pad
	minY, maxY := math.Min(a.Y, b.Y)-pad, math.Max(a.Y, b.Y)+pad
	return rtreego.NewRect(rtreego.Point{minX, minY}, []float64{maxX - minX, maxY - minY})
}

func (l *Layout) Name() string        { return l.name }
func (l *Layout) HalfWidth() float64  { return l.halfWidth }
func (l *Layout) TotalGates() int     { return len(l.gates) }
func (l *Layout) Gate(i int) Gate     { return l.gates[geom.Mod(i, len(l.gates))] }
func (l *Layout) Centerline() []r2.Vec { return append([]r2.Vec(nil), l.centerline...) }

// StartPose is gate 0 facing gate 1.
func (l *Layout) StartPose() (r2.Vec, float64) {
	start := l.centerline[0]
	return start, geom.Angle(r2.Sub(l.centerline[1], start))
}

// Contains reports whether p is strictly closer than the half-width to the
// centerline.
func (l *Layout) Contains(p r2.Vec) bool {
	query, err := rtreego.NewRect(
		rtreego.Point{p.X - pointTolerance, p.Y - pointTolerance},
		[]float64{2 * pointTolerance, 2 * pointTolerance},
	)
	if err != nil {
		return false
	}
	for _, candidate := range l.index.SearchIntersect(query) {
		seg := candidate.(*segment)
		if geom.SegmentDistance(p, seg.a, seg.b) < l.halfWidth {
			return true
		}
	}
	return false
}

// CheckInBounds reports whether every point is on the drivable surface.
func (l *Layout) CheckInBounds(points []r2.Vec) bool {
	for _, p := range points {
		if !l.Contains(p) {
			return false
		}
	}
	return true
}

// Length is the total centerline length.
func (l *Layout) Length() float64 {
	total := 0.0
	n := len(l.centerline)
	for i := range l.centerline {
		total += r2.Norm(r2.Sub(l.centerline[geom.Mod(i+1, n)], l.centerline[i]))
	}
	return total
}
