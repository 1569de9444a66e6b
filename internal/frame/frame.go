// Package frame groups an image cube with its PSF, coordinate mapping and
// per-pixel weights into the observation packages the pipeline passes between
// stages.
package frame

import (
	"fmt"
	"math"

	"github.com/orion-data/blendscan.report/internal/cube"
	"github.com/orion-data/blendscan.report/internal/wcs"
)

// Observation is one telescope image at native resolution: multi-band data,
// the instrument PSF, the pixel-to-sky mapping, and per-pixel weights.
// Weights are nil until populated, which callers must treat as uniform.
type Observation struct {
	Images  *cube.Cube
	PSF     *cube.PSF
	WCS     wcs.Mapper
	Weights *cube.Cube
}

// NewObservation validates and packages an observation. The PSF may be nil
// (detection does not deconvolve); when present its band count must be 1 or
// match the image band count.
func NewObservation(images *cube.Cube, psf *cube.PSF, mapper wcs.Mapper) (*Observation, error) {
	if images == nil {
		return nil, fmt.Errorf("%w: observation needs an image cube", cube.ErrShape)
	}
	if mapper == nil {
		return nil, fmt.Errorf("observation needs a coordinate mapping")
	}
	if psf != nil && psf.Bands() != 1 && psf.Bands() != images.Bands() {
		return nil, fmt.Errorf("%w: PSF has %d kernels for %d image bands",
			cube.ErrShape, psf.Bands(), images.Bands())
	}
	return &Observation{Images: images, PSF: psf, WCS: mapper}, nil
}

// SetFlatWeights populates per-pixel weights as inverse variance from one RMS
// value per band. A zero RMS band (an empty or constant image) gets zero
// weight rather than an infinite one.
func (o *Observation) SetFlatWeights(rms []float64) error {
	if len(rms) != o.Images.Bands() {
		return fmt.Errorf("%w: %d RMS values for %d bands", cube.ErrShape, len(rms), o.Images.Bands())
	}

	w, err := cube.New(o.Images.Channels(), o.Images.Rows(), o.Images.Cols())
	if err != nil {
		return err
	}
	for b, sigma := range rms {
		var inv float64
		if sigma > 0 {
			inv = 1.0 / (sigma * sigma)
		}
		plane := w.Plane(b)
		for r := 0; r < w.Rows(); r++ {
			for c := 0; c < w.Cols(); c++ {
				plane.Set(r, c, inv)
			}
		}
	}
	o.Weights = w
	return nil
}

// SED samples the per-band flux at a sky coordinate, reading the nearest
// pixel in each band. An out-of-bounds position is an error rather than a
// zero spectrum so callers can distinguish "faint" from "outside the image".
func (o *Observation) SED(ra, dec float64) ([]float64, error) {
	row, col := o.WCS.ToPixel(ra, dec)
	r := int(math.Round(row))
	c := int(math.Round(col))
	if r < 0 || r >= o.Images.Rows() || c < 0 || c >= o.Images.Cols() {
		return nil, fmt.Errorf("sky position (%.6f, %.6f) maps to pixel (%d, %d) outside %dx%d image",
			ra, dec, r, c, o.Images.Rows(), o.Images.Cols())
	}

	sed := make([]float64, o.Images.Bands())
	for b := range sed {
		sed[b] = o.Images.At(b, r, c)
	}
	return sed, nil
}
