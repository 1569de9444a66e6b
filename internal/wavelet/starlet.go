// Package wavelet implements the starlet (isotropic undecimated, "à trous")
// transform used to separate compact sources from smooth background.
//
// Each level convolves with the B3-spline kernel [1 4 6 4 1]/16, dilated by
// 2^level, applied separably with mirrored boundaries. The detail plane at a
// level is the difference between successive smoothings, so the sum of all
// detail planes plus the final coarse plane reconstructs the input exactly.
package wavelet

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// b3 is the B3-spline smoothing kernel.
var b3 = [5]float64{1.0 / 16, 4.0 / 16, 6.0 / 16, 4.0 / 16, 1.0 / 16}

// Decompose computes a starlet decomposition with the given number of detail
// levels. The result holds levels+1 planes: details from finest to coarsest,
// then the residual coarse plane.
func Decompose(img *mat.Dense, levels int) ([]*mat.Dense, error) {
	if levels <= 0 {
		return nil, fmt.Errorf("wavelet levels must be positive, got %d", levels)
	}
	rows, cols := img.Dims()
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("cannot decompose an empty %dx%d image", rows, cols)
	}

	planes := make([]*mat.Dense, 0, levels+1)

	current := mat.DenseCopyOf(img)
	for j := 0; j < levels; j++ {
		smoothed := smooth(current, 1<<j)

		detail := mat.NewDense(rows, cols, nil)
		detail.Sub(current, smoothed)
		planes = append(planes, detail)

		current = smoothed
	}
	planes = append(planes, current)

	return planes, nil
}

// SumLevels adds the first n planes of a decomposition. n greater than the
// plane count clamps, so summing everything reconstructs the original.
func SumLevels(planes []*mat.Dense, n int) *mat.Dense {
	if n > len(planes) {
		n = len(planes)
	}
	rows, cols := planes[0].Dims()
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < n; i++ {
		out.Add(out, planes[i])
	}
	return out
}

// smooth applies the dilated B3 kernel separably along rows then columns.
func smooth(img *mat.Dense, step int) *mat.Dense {
	rows, cols := img.Dims()

	horiz := mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			sum := 0.0
			for k := -2; k <= 2; k++ {
				sum += b3[k+2] * img.At(r, mirror(c+k*step, cols))
			}
			horiz.Set(r, c, sum)
		}
	}

	out := mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			sum := 0.0
			for k := -2; k <= 2; k++ {
				sum += b3[k+2] * horiz.At(mirror(r+k*step, rows), c)
			}
			out.Set(r, c, sum)
		}
	}

	return out
}

// mirror reflects an index into [0, n) with half-sample symmetry.
func mirror(i, n int) int {
	for i < 0 || i >= n {
		if i < 0 {
			i = -i - 1
		}
		if i >= n {
			i = 2*n - i - 1
		}
	}
	return i
}
