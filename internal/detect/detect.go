// Package detect builds a joint detection image from two observations at a
// common resolution and extracts a source catalog with background noise
// estimates.
//
// The stages follow the reference pipeline: per-band flux normalization,
// band summation into a single detection image, optional starlet filtering
// keeping only the fine levels, sigma-clipped background estimation, and
// connected-component extraction above a fixed sigma threshold.
package detect

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/orion-data/blendscan.report/internal/cube"
	"github.com/orion-data/blendscan.report/internal/frame"
	"github.com/orion-data/blendscan.report/internal/monitoring"
	"github.com/orion-data/blendscan.report/internal/wavelet"
)

// Sentinel errors for the detector's failure taxonomy. Match with errors.Is.
var (
	// ErrDegenerateImage marks a band whose total flux is exactly zero, so
	// flux normalization would divide by zero.
	ErrDegenerateImage = errors.New("degenerate image: band flux sums to zero")

	// ErrExtraction marks a detection image the extractor cannot use: no
	// sources above threshold, or a constant image with no noise floor.
	ErrExtraction = errors.New("source extraction failed")
)

// Params tunes detection. The zero value is not useful; start from
// DefaultParams.
type Params struct {
	// WaveletFilter selects wavelet-filtered detection: the working image
	// becomes the sum of the first WaveletLevels detail planes.
	WaveletFilter bool
	// WaveletLevels is the number of fine detail levels to keep. Values
	// beyond the decomposition depth clamp, which reproduces the raw image.
	WaveletLevels int
	// DecompositionDepth is the total number of detail levels computed when
	// filtering.
	DecompositionDepth int

	// ThresholdSigma is the detection threshold in units of global RMS.
	ThresholdSigma float64
	// MinArea is the minimum pixel count for an extracted component.
	MinArea int

	// ClipSigma and ClipIterations control the sigma-clipped background
	// estimate: samples beyond ClipSigma from the running mean are dropped
	// for ClipIterations rounds.
	ClipSigma      float64
	ClipIterations int
}

// DefaultParams returns the reference detection settings: three wavelet
// levels, a 3-sigma threshold, and a five-round 3-sigma background clip.
func DefaultParams() Params {
	return Params{
		WaveletFilter:      false,
		WaveletLevels:      3,
		DecompositionDepth: 5,
		ThresholdSigma:     3.0,
		MinArea:            1,
		ClipSigma:          3.0,
		ClipIterations:     5,
	}
}

// Source is one detected-source record. Row and Col are the flux-weighted
// centroid in high-resolution pixel coordinates.
type Source struct {
	Row  float64 `json:"row"`
	Col  float64 `json:"col"`
	Peak float64 `json:"peak"`
	Flux float64 `json:"flux"`
	Area int     `json:"area"`
}

// Catalog is an ordered, read-only sequence of detected sources. Records are
// value types; copying the slice aliases no mutable state.
type Catalog []Source

// BackgroundStats carries the per-band background RMS of one observation.
// Single-band observations carry one entry.
type BackgroundStats struct {
	RMS []float64 `json:"rms"`
}

// Result is the detector's full output.
type Result struct {
	Catalog   Catalog
	LowStats  BackgroundStats
	HighStats BackgroundStats
	// Detection is the working detection image the catalog was extracted
	// from (wavelet-filtered when Params.WaveletFilter is set).
	Detection *mat.Dense
	// Background and RMS are the global estimates used for thresholding.
	Background float64
	RMS        float64
}

// Run executes the full detection stage. resampled is the low-resolution
// observation already evaluated on the high-resolution grid (the resampler's
// output); low and high are the original observation packages.
//
// On success the observations' weights are populated from the background
// statistics (inverse variance). Any failure aborts with the first error.
func Run(low, high *frame.Observation, resampled *cube.Cube, p Params) (*Result, error) {
	if low == nil || high == nil || resampled == nil {
		return nil, fmt.Errorf("%w: nil detector input", cube.ErrShape)
	}
	if resampled.Rows() != high.Images.Rows() || resampled.Cols() != high.Images.Cols() {
		return nil, fmt.Errorf("%w: resampled %dx%d does not match high-resolution grid %dx%d",
			cube.ErrShape, resampled.Rows(), resampled.Cols(), high.Images.Rows(), high.Images.Cols())
	}

	det, err := BuildDetectionImage(resampled, high.Images)
	if err != nil {
		return nil, err
	}

	working := det
	if p.WaveletFilter {
		planes, err := wavelet.Decompose(det, p.DecompositionDepth)
		if err != nil {
			return nil, fmt.Errorf("wavelet filtering: %w", err)
		}
		working = wavelet.SumLevels(planes, p.WaveletLevels)
	}

	background, rms, err := EstimateBackground(working, p)
	if err != nil {
		return nil, err
	}

	catalog, err := extract(working, background, rms, p)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Catalog:    catalog,
		LowStats:   BackgroundStats{RMS: EstimateBandRMS(low.Images, p)},
		HighStats:  BackgroundStats{RMS: EstimateBandRMS(high.Images, p)},
		Detection:  working,
		Background: background,
		RMS:        rms,
	}

	if err := low.SetFlatWeights(result.LowStats.RMS); err != nil {
		return nil, err
	}
	if err := high.SetFlatWeights(result.HighStats.RMS); err != nil {
		return nil, err
	}

	monitoring.Debugf("detect: %d sources, background=%.4g rms=%.4g", len(catalog), background, rms)
	return result, nil
}

// BuildDetectionImage normalizes each input by its own per-band flux sum,
// sums all normalized bands into one plane, and rescales by the total flux
// of the high-resolution image to restore physical units.
//
// Fails with ErrDegenerateImage when any band of a non-empty input sums to
// zero. An entirely zero resampled cube contributes nothing but is allowed:
// an empty low-resolution image must not break detection.
func BuildDetectionImage(resampled, high *cube.Cube) (*mat.Dense, error) {
	if resampled.Rows() != high.Rows() || resampled.Cols() != high.Cols() {
		return nil, fmt.Errorf("%w: inputs %dx%d vs %dx%d", cube.ErrShape,
			resampled.Rows(), resampled.Cols(), high.Rows(), high.Cols())
	}

	rows, cols := high.Rows(), high.Cols()
	det := mat.NewDense(rows, cols, nil)

	addNormalized := func(c *cube.Cube, skippable bool) error {
		if skippable && c.TotalSum() == 0 {
			return nil
		}
		for b := 0; b < c.Bands(); b++ {
			sum := c.BandSum(b)
			if sum == 0 {
				return fmt.Errorf("%w: band %d of %d", ErrDegenerateImage, b, c.Bands())
			}
			plane := c.Plane(b)
			for r := 0; r < rows; r++ {
				for col := 0; col < cols; col++ {
					det.Set(r, col, det.At(r, col)+plane.At(r, col)/sum)
				}
			}
		}
		return nil
	}

	if err := addNormalized(high, false); err != nil {
		return nil, err
	}
	if err := addNormalized(resampled, true); err != nil {
		return nil, err
	}

	// Restore physical units from the high-resolution image's total flux.
	det.Scale(high.TotalSum(), det)
	return det, nil
}

// EstimateBackground returns the sigma-clipped mean and RMS of a plane.
// Fails with ErrExtraction on a constant or empty image, which has no noise
// floor to threshold against.
func EstimateBackground(img *mat.Dense, p Params) (background, rms float64, err error) {
	rows, cols := img.Dims()
	samples := make([]float64, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			samples = append(samples, img.At(r, c))
		}
	}

	mean, std := clippedMeanStd(samples, p.ClipSigma, p.ClipIterations)
	if std == 0 || math.IsNaN(std) {
		return 0, 0, fmt.Errorf("%w: image is constant, no background noise to estimate", ErrExtraction)
	}
	return mean, std, nil
}

// EstimateBandRMS returns the sigma-clipped RMS of each band of a cube. The
// per-band estimates feed inverse-variance weighting downstream; bands are
// independent and processed concurrently.
func EstimateBandRMS(c *cube.Cube, p Params) []float64 {
	out := make([]float64, c.Bands())
	var wg sync.WaitGroup
	for b := 0; b < c.Bands(); b++ {
		wg.Add(1)
		go func(b int) {
			defer wg.Done()
			start := b * c.Rows() * c.Cols()
			samples := append([]float64(nil), c.Data()[start:start+c.Rows()*c.Cols()]...)
			_, std := clippedMeanStd(samples, p.ClipSigma, p.ClipIterations)
			if math.IsNaN(std) {
				std = 0
			}
			out[b] = std
		}(b)
	}
	wg.Wait()
	return out
}

// clippedMeanStd iteratively drops samples beyond clipSigma standard
// deviations from the mean. The input slice is reordered.
func clippedMeanStd(samples []float64, clipSigma float64, iterations int) (float64, float64) {
	if len(samples) == 0 {
		return 0, math.NaN()
	}

	kept := samples
	mean, std := stat.MeanStdDev(kept, nil)
	for i := 0; i < iterations; i++ {
		lo := mean - clipSigma*std
		hi := mean + clipSigma*std
		next := kept[:0]
		for _, v := range kept {
			if v >= lo && v <= hi {
				next = append(next, v)
			}
		}
		if len(next) == len(kept) || len(next) < 2 {
			break
		}
		kept = next
		mean, std = stat.MeanStdDev(kept, nil)
	}
	if math.IsNaN(std) {
		std = 0
	}
	return mean, std
}

// extract thresholds the working image at background + sigma*rms and labels
// 8-connected components. Centroids are flux weighted on the
// background-subtracted values. The catalog is ordered by (row, col) so runs
// are reproducible.
func extract(img *mat.Dense, background, rms float64, p Params) (Catalog, error) {
	rows, cols := img.Dims()
	threshold := background + p.ThresholdSigma*rms

	labels := make([]int, rows*cols) // 0 = unvisited/below threshold
	var catalog Catalog

	minArea := p.MinArea
	if minArea < 1 {
		minArea = 1
	}

	next := 0
	stack := make([][2]int, 0, 64)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if labels[r*cols+c] != 0 || img.At(r, c) < threshold {
				continue
			}

			next++
			stack = append(stack[:0], [2]int{r, c})
			labels[r*cols+c] = next

			var flux, wRow, wCol, peak float64
			area := 0
			for len(stack) > 0 {
				pt := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				pr, pc := pt[0], pt[1]

				v := img.At(pr, pc) - background
				flux += v
				wRow += v * float64(pr)
				wCol += v * float64(pc)
				if img.At(pr, pc) > peak {
					peak = img.At(pr, pc)
				}
				area++

				for dr := -1; dr <= 1; dr++ {
					for dc := -1; dc <= 1; dc++ {
						nr, nc := pr+dr, pc+dc
						if nr < 0 || nr >= rows || nc < 0 || nc >= cols {
							continue
						}
						if labels[nr*cols+nc] != 0 || img.At(nr, nc) < threshold {
							continue
						}
						labels[nr*cols+nc] = next
						stack = append(stack, [2]int{nr, nc})
					}
				}
			}

			if area < minArea || flux <= 0 {
				continue
			}
			catalog = append(catalog, Source{
				Row:  wRow / flux,
				Col:  wCol / flux,
				Peak: peak,
				Flux: flux,
				Area: area,
			})
		}
	}

	if len(catalog) == 0 {
		return nil, fmt.Errorf("%w: no sources above %.3g (background %.3g + %.1f sigma)",
			ErrExtraction, threshold, background, p.ThresholdSigma)
	}

	// Deterministic order for golden comparisons and stable run records.
	sort.Slice(catalog, func(i, j int) bool {
		if catalog[i].Row != catalog[j].Row {
			return catalog[i].Row < catalog[j].Row
		}
		return catalog[i].Col < catalog[j].Col
	})

	return catalog, nil
}
