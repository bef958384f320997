package track

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"

	"trackdrive/internal/simerr"
)

// FileLayout is the on-disk track description.
type FileLayout struct {
	Name       string       `json:"name"`
	HalfWidth  float64      `json:"half_width"`
	Centerline [][2]float64 `json:"centerline"`
}

// Decode reads a JSON track description.
func Decode(r io.Reader) (*Layout, error) {
	var file FileLayout
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&file); err != nil {
		return nil, simerr.Configf("decode track: %v", err)
	}
	if strings.TrimSpace(file.Name) == "" {
		return nil, simerr.Configf("track name is required")
	}
	points := make([]r2.Vec, 0, len(file.Centerline))
	for _, p := range file.Centerline {
		points = append(points, r2.Vec{X: p[0], Y: p[1]})
	}
	return NewLayout(file.Name, points, file.HalfWidth)
}

// LoadFile reads a JSON track description from path.
func LoadFile(path string) (*Layout, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open track file: %w", simerr.ErrConfiguration, err)
	}
	defer f.Close()
	return Decode(f)
}

// Load returns the registered layout for nameOrPath, falling back to a
// JSON file when the value ends in .json.
func Load(nameOrPath string) (*Layout, error) {
	if strings.HasSuffix(strings.ToLower(nameOrPath), ".json") {
		return LoadFile(nameOrPath)
	}
	return Get(nameOrPath)
}
