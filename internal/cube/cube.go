// Package cube implements the multi-band image cube used throughout the
// pipeline: a (band, row, col) float64 array with channel labels, stored as a
// single flat slice with per-band gonum matrix views over the same backing.
package cube

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrShape is the sentinel for dimension and layout violations. Wrapped errors
// carry the offending dimensions; match with errors.Is.
var ErrShape = errors.New("shape mismatch")

// Cube is a multi-band image: bands x rows x cols, band-major flat storage.
// Invariant: len(channels) == bands and len(data) == bands*rows*cols.
type Cube struct {
	channels   []string
	rows, cols int
	data       []float64
}

// New allocates a zero-filled cube with one band per channel label.
func New(channels []string, rows, cols int) (*Cube, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("%w: cube needs at least one channel", ErrShape)
	}
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: non-positive spatial shape %dx%d", ErrShape, rows, cols)
	}
	return &Cube{
		channels: append([]string(nil), channels...),
		rows:     rows,
		cols:     cols,
		data:     make([]float64, len(channels)*rows*cols),
	}, nil
}

// FromData wraps an existing band-major flat slice. The slice is retained,
// not copied.
func FromData(channels []string, rows, cols int, data []float64) (*Cube, error) {
	c, err := New(channels, rows, cols)
	if err != nil {
		return nil, err
	}
	if len(data) != len(c.data) {
		return nil, fmt.Errorf("%w: data length %d, want %d (bands=%d rows=%d cols=%d)",
			ErrShape, len(data), len(c.data), len(channels), rows, cols)
	}
	c.data = data
	return c, nil
}

// Bands returns the band count.
func (c *Cube) Bands() int { return len(c.channels) }

// Rows returns the spatial row count.
func (c *Cube) Rows() int { return c.rows }

// Cols returns the spatial column count.
func (c *Cube) Cols() int { return c.cols }

// Channels returns a copy of the channel labels.
func (c *Cube) Channels() []string {
	return append([]string(nil), c.channels...)
}

// At returns the value at (band, row, col).
func (c *Cube) At(b, r, col int) float64 {
	return c.data[c.idx(b, r, col)]
}

// Set stores a value at (band, row, col).
func (c *Cube) Set(b, r, col int, v float64) {
	c.data[c.idx(b, r, col)] = v
}

func (c *Cube) idx(b, r, col int) int {
	return (b*c.rows+r)*c.cols + col
}

// Plane returns a matrix view of one band sharing the cube's backing slice.
// Writes through the view are visible in the cube.
func (c *Cube) Plane(b int) *mat.Dense {
	start := b * c.rows * c.cols
	return mat.NewDense(c.rows, c.cols, c.data[start:start+c.rows*c.cols])
}

// Data exposes the flat band-major backing slice.
func (c *Cube) Data() []float64 { return c.data }

// BandSum returns the total flux in one band.
func (c *Cube) BandSum(b int) float64 {
	start := b * c.rows * c.cols
	sum := 0.0
	for _, v := range c.data[start : start+c.rows*c.cols] {
		sum += v
	}
	return sum
}

// TotalSum returns the total flux across all bands.
func (c *Cube) TotalSum() float64 {
	sum := 0.0
	for _, v := range c.data {
		sum += v
	}
	return sum
}

// Scale multiplies every sample in place.
func (c *Cube) Scale(s float64) {
	for i := range c.data {
		c.data[i] *= s
	}
}

// Clone returns a deep copy.
func (c *Cube) Clone() *Cube {
	out := &Cube{
		channels: append([]string(nil), c.channels...),
		rows:     c.rows,
		cols:     c.cols,
		data:     make([]float64, len(c.data)),
	}
	copy(out.data, c.data)
	return out
}

// SameShape reports whether two cubes agree in bands, rows and cols.
func (c *Cube) SameShape(o *Cube) bool {
	return o != nil && c.Bands() == o.Bands() && c.rows == o.rows && c.cols == o.cols
}
