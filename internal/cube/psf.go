package cube

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// PSF holds one centered blur kernel per band, or a single kernel broadcast
// to every band. Invariant: kernel spatial dimensions are odd so the center
// pixel is well defined.
type PSF struct {
	kernels *Cube
}

// NewPSF validates and wraps kernel planes as a point spread function.
func NewPSF(kernels *Cube) (*PSF, error) {
	if kernels == nil {
		return nil, fmt.Errorf("%w: nil PSF kernels", ErrShape)
	}
	if kernels.Rows()%2 == 0 || kernels.Cols()%2 == 0 {
		return nil, fmt.Errorf("%w: PSF kernels must be odd-sized, got %dx%d",
			ErrShape, kernels.Rows(), kernels.Cols())
	}
	return &PSF{kernels: kernels}, nil
}

// Bands returns the number of kernel planes.
func (p *PSF) Bands() int { return p.kernels.Bands() }

// Kernel returns the kernel plane for band b. When the PSF carries a single
// kernel it is broadcast to all bands.
func (p *PSF) Kernel(b int) *mat.Dense {
	if p.kernels.Bands() == 1 {
		return p.kernels.Plane(0)
	}
	return p.kernels.Plane(b)
}

// Center returns the (row, col) of the kernel center pixel.
func (p *PSF) Center() (int, int) {
	return p.kernels.Rows() / 2, p.kernels.Cols() / 2
}

// Normalize scales each kernel to unit sum. Zero-sum kernels are left alone;
// the degenerate-image checks downstream will reject them if they matter.
func (p *PSF) Normalize() {
	for b := 0; b < p.kernels.Bands(); b++ {
		sum := p.kernels.BandSum(b)
		if sum == 0 {
			continue
		}
		plane := p.kernels.Plane(b)
		plane.Scale(1.0/sum, plane)
	}
}
