package track

import (
	"gonum.org/v1/gonum/spatial/r2"

	"trackdrive/internal/geom"
)

// Placeable is a vehicle that can be reset to a pose.
type Placeable interface {
	Place(pos r2.Vec, angle float64)
}

// Positioned is a vehicle whose position drives gate updates.
type Positioned interface {
	Position() r2.Vec
}

// Track is the per-run handle over a shared Layout. It owns the current
// gate index and is not safe for concurrent use.
type Track struct {
	layout  *Layout
	current int
}

func New(layout *Layout) *Track {
	return &Track{layout: layout}
}

func (t *Track) Layout() *Layout {
	return t.layout
}

func (t *Track) CheckInBounds(points []r2.Vec) bool {
	return t.layout.CheckInBounds(points)
}

// PlaceAtStart puts v on the start pose and resets gate progress.
func (t *Track) PlaceAtStart(v Placeable) {
	pos, angle := t.layout.StartPose()
	v.Place(pos, angle)
	t.current = 0
}

func (t *Track) CurrentGateIndex() int {
	return t.current
}

func (t *Track) TotalGates() int {
	return t.layout.TotalGates()
}

func (t *Track) StartDirection() float64 {
	_, angle := t.layout.StartPose()
	return angle
}

// UpdateGate advances to the next gate once v's position reaches it, and
// falls back to the previous gate once v is behind the current one.
func (t *Track) UpdateGate(v Positioned) {
	n := t.layout.TotalGates()
	if n == 0 {
		return
	}
	p := v.Position()
	next := geom.Mod(t.current+1, n)
	switch {
	case t.layout.gates[next].Passed(p):
		t.current = next
	case t.layout.gates[t.current].Behind(p):
		t.current = geom.Mod(t.current-1, n)
	}
}
