package race

import (
	"gonum.org/v1/gonum/spatial/r2"

	"trackdrive/internal/control"
	"trackdrive/internal/sensing"
)

// Frame is one recorded simulation step.
type Frame struct {
	Index       int                 `json:"index"`
	Position    r2.Vec              `json:"position"`
	Angle       float64             `json:"angle"`
	Speed       float64             `json:"speed"`
	Gate        int                 `json:"gate"`
	GatesPassed int                 `json:"gates_passed"`
	Command     control.Command     `json:"command"`
	Observation sensing.Observation `json:"observation"`
}

// Recorder keeps the frames of a run for playback. A zero Limit keeps
// every frame; otherwise only the first Limit frames are kept.
type Recorder struct {
	Limit  int
	frames []Frame
}

func NewRecorder(limit int) *Recorder {
	return &Recorder{Limit: limit}
}

func (r *Recorder) record(f Frame) {
	if r == nil {
		return
	}
	if r.Limit > 0 && len(r.frames) >= r.Limit {
		return
	}
	r.frames = append(r.frames, f)
}

func (r *Recorder) Frames() []Frame {
	if r == nil {
		return nil
	}
	return append([]Frame(nil), r.frames...)
}

func (r *Recorder) Len() int {
	if r == nil {
		return 0
	}
	return len(r.frames)
}

func (r *Recorder) Reset() {
	if r == nil {
		return
	}
	r.frames = r.frames[:0]
}
