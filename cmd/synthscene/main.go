// synthscene writes a matched pair of synthetic FITS observations: a
// single-band high-resolution image and a multi-band low-resolution image
// of the same sky patch, each with a Gaussian source at the same sky
// position. Useful for demos and end-to-end pipeline checks.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/orion-data/blendscan.report/internal/cube"
	"github.com/orion-data/blendscan.report/internal/fits"
)

var (
	outDir = flag.String("out", "scene", "output directory")
	bands  = flag.Int("bands", 5, "low-resolution band count")
	size   = flag.Int("size", 32, "low-resolution grid edge length")
	scale  = flag.Int("scale", 8, "resolution ratio (high-res pixels per low-res pixel)")
	srcRow = flag.Float64("src-row", -1, "source row in high-res pixels (default: center)")
	srcCol = flag.Float64("src-col", -1, "source column in high-res pixels (default: center)")
	sigma  = flag.Float64("sigma", 2.0, "source width in high-res pixels")
	amp    = flag.Float64("amp", 1.0, "source peak amplitude")
	noise  = flag.Float64("noise", 1e-3, "gaussian noise level")
	seed   = flag.Int64("seed", 1, "noise seed")
	psf    = flag.Bool("psf", false, "also write matching Gaussian PSF files")

	refRA  = flag.Float64("ra", 150.0, "RA at the reference pixel [deg]")
	refDec = flag.Float64("dec", 2.5, "Dec at the reference pixel [deg]")
)

const arcsec = 1.0 / 3600.0

func main() {
	flag.Parse()

	if *size < 4 || *scale < 1 || *bands < 1 {
		log.Fatal("need -size >= 4, -scale >= 1, -bands >= 1")
	}
	if err := os.MkdirAll(*outDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	highSize := *size * *scale
	row, col := *srcRow, *srcCol
	if row < 0 {
		row = float64(highSize) / 2
	}
	if col < 0 {
		col = float64(highSize) / 2
	}

	highRef := float64(highSize) / 2
	lowRef := float64(*size) / 2

	high, err := cube.New([]string{"vis"}, highSize, highSize)
	if err != nil {
		log.Fatalf("high-resolution cube: %v", err)
	}
	addGaussian(high, 0, row, col, *sigma, *amp)
	addNoise(high, *noise, *seed)

	channels := make([]string, *bands)
	for i := range channels {
		channels[i] = fmt.Sprintf("band%d", i)
	}
	low, err := cube.New(channels, *size, *size)
	if err != nil {
		log.Fatalf("low-resolution cube: %v", err)
	}
	// Same sky position on the coarse grid; amplitude falls off with band
	// index to give each band a distinct SED.
	lowRow := (row-highRef)/float64(*scale) + lowRef
	lowCol := (col-highRef)/float64(*scale) + lowRef
	for b := 0; b < *bands; b++ {
		bandAmp := *amp / float64(b+1)
		addGaussian(low, b, lowRow, lowCol, *sigma, bandAmp)
	}
	addNoise(low, *noise, *seed+1)

	highPath := filepath.Join(*outDir, "hires.fits")
	lowPath := filepath.Join(*outDir, "lowres.fits")

	if err := fits.Save(highPath, high, fits.LinearWCSCards(highRef, highRef, *refRA, *refDec, arcsec)); err != nil {
		log.Fatalf("write %s: %v", highPath, err)
	}
	if err := fits.Save(lowPath, low, fits.LinearWCSCards(lowRef, lowRef, *refRA, *refDec, float64(*scale)*arcsec)); err != nil {
		log.Fatalf("write %s: %v", lowPath, err)
	}
	fmt.Printf("wrote %s (%dx%d) and %s (%d band %dx%d)\n",
		highPath, highSize, highSize, lowPath, *bands, *size, *size)

	if *psf {
		if err := writePSFs(); err != nil {
			log.Fatalf("write PSFs: %v", err)
		}
	}
}

// writePSFs emits normalized Gaussian kernels matching the source width.
func writePSFs() error {
	highKernel, err := gaussianKernel([]string{"vis"}, 1, *sigma)
	if err != nil {
		return err
	}
	lowSigma := *sigma / float64(*scale)
	if lowSigma < 0.5 {
		lowSigma = 0.5
	}
	channels := make([]string, *bands)
	for i := range channels {
		channels[i] = fmt.Sprintf("band%d", i)
	}
	lowKernel, err := gaussianKernel(channels, *bands, lowSigma)
	if err != nil {
		return err
	}

	if err := fits.Save(filepath.Join(*outDir, "hires_psf.fits"), highKernel, nil); err != nil {
		return err
	}
	return fits.Save(filepath.Join(*outDir, "lowres_psf.fits"), lowKernel, nil)
}

func gaussianKernel(channels []string, bands int, sigma float64) (*cube.Cube, error) {
	half := int(math.Ceil(3 * sigma))
	edge := 2*half + 1
	k, err := cube.New(channels, edge, edge)
	if err != nil {
		return nil, err
	}
	for b := 0; b < bands; b++ {
		addGaussian(k, b, float64(half), float64(half), sigma, 1)
		sum := k.BandSum(b)
		plane := k.Plane(b)
		for r := 0; r < edge; r++ {
			for c := 0; c < edge; c++ {
				plane.Set(r, c, plane.At(r, c)/sum)
			}
		}
	}
	return k, nil
}

func addGaussian(c *cube.Cube, band int, row, col, sigma, amp float64) {
	plane := c.Plane(band)
	for r := 0; r < c.Rows(); r++ {
		for cl := 0; cl < c.Cols(); cl++ {
			dr := float64(r) - row
			dc := float64(cl) - col
			plane.Set(r, cl, plane.At(r, cl)+amp*math.Exp(-(dr*dr+dc*dc)/(2*sigma*sigma)))
		}
	}
}

func addNoise(c *cube.Cube, level float64, seed int64) {
	if level <= 0 {
		return
	}
	rng := rand.New(rand.NewSource(seed))
	d := c.Data()
	for i := range d {
		d[i] += rng.NormFloat64() * level
	}
}
