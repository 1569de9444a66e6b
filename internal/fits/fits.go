// Package fits loads and stores the pipeline's on-disk image containers.
//
// FITS payloads are big-endian on disk regardless of BITPIX; decoding through
// astrogo/fitsio converts every numeric load to native byte order, so images
// and PSFs share one normalization path.
package fits

import (
	"fmt"
	"os"

	"github.com/astrogo/fitsio"

	"github.com/orion-data/blendscan.report/internal/cube"
	"github.com/orion-data/blendscan.report/internal/wcs"
)

// Image is a decoded FITS primary HDU: a 2-D or 3-D numeric array in
// band-major order plus the header cards the pipeline reads WCS from.
type Image struct {
	Data  []float64
	Bands int
	Rows  int
	Cols  int

	cards map[string]interface{}
}

// Load reads the primary HDU of a FITS file. 2-D arrays come back with a
// single band; 3-D arrays keep their NAXIS3 band count.
func Load(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open FITS file: %w", err)
	}
	defer f.Close()

	fit, err := fitsio.Open(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode FITS container %s: %w", path, err)
	}
	defer fit.Close()

	hdu := fit.HDU(0)
	img, ok := hdu.(fitsio.Image)
	if !ok {
		return nil, fmt.Errorf("%w: primary HDU of %s is not an image", cube.ErrShape, path)
	}

	hdr := img.Header()
	axes := hdr.Axes()

	im := &Image{cards: make(map[string]interface{})}
	switch len(axes) {
	case 2:
		// FITS axes are fastest-first: NAXIS1=cols, NAXIS2=rows.
		im.Bands, im.Rows, im.Cols = 1, axes[1], axes[0]
	case 3:
		im.Bands, im.Rows, im.Cols = axes[2], axes[1], axes[0]
	default:
		return nil, fmt.Errorf("%w: %s has %d axes, want 2 or 3", cube.ErrShape, path, len(axes))
	}
	if im.Rows <= 0 || im.Cols <= 0 || im.Bands <= 0 {
		return nil, fmt.Errorf("%w: %s has empty axes %v", cube.ErrShape, path, axes)
	}

	n := im.Bands * im.Rows * im.Cols
	im.Data = make([]float64, n)

	// Read in the declared sample type, then widen to float64.
	switch bitpix := hdr.Bitpix(); bitpix {
	case 16:
		raw := make([]int16, n)
		if err := img.Read(&raw); err != nil {
			return nil, fmt.Errorf("failed to read FITS data: %w", err)
		}
		for i, v := range raw {
			im.Data[i] = float64(v)
		}
	case 32:
		raw := make([]int32, n)
		if err := img.Read(&raw); err != nil {
			return nil, fmt.Errorf("failed to read FITS data: %w", err)
		}
		for i, v := range raw {
			im.Data[i] = float64(v)
		}
	case 64:
		raw := make([]int64, n)
		if err := img.Read(&raw); err != nil {
			return nil, fmt.Errorf("failed to read FITS data: %w", err)
		}
		for i, v := range raw {
			im.Data[i] = float64(v)
		}
	case -32:
		raw := make([]float32, n)
		if err := img.Read(&raw); err != nil {
			return nil, fmt.Errorf("failed to read FITS data: %w", err)
		}
		for i, v := range raw {
			im.Data[i] = float64(v)
		}
	case -64:
		if err := img.Read(&im.Data); err != nil {
			return nil, fmt.Errorf("failed to read FITS data: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported BITPIX %d in %s", bitpix, path)
	}

	for _, name := range wcsCardNames {
		if card := hdr.Get(name); card != nil {
			im.cards[name] = card.Value
		}
	}

	return im, nil
}

// wcsCardNames is the set of header cards the pipeline reads. Harvested by
// name so the header can be released with the file handle.
var wcsCardNames = []string{
	"CRPIX1", "CRPIX2", "CRVAL1", "CRVAL2",
	"CD1_1", "CD1_2", "CD2_1", "CD2_2",
	"CDELT1", "CDELT2",
	"CTYPE1", "CTYPE2",
	"RADESYS", "EQUINOX",
	"BUNIT", "TELESCOP",
}

// CardFloat returns a numeric header card value.
func (im *Image) CardFloat(name string) (float64, bool) {
	v, ok := im.cards[name]
	if !ok {
		return 0, false
	}
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}

// CardString returns a string header card value.
func (im *Image) CardString(name string) (string, bool) {
	v, ok := im.cards[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Cube converts the image into a multi-band cube. channels may be nil, in
// which case bands are labeled band0..bandN-1; otherwise the label count
// must match the band count.
func (im *Image) Cube(channels []string) (*cube.Cube, error) {
	if channels == nil {
		channels = make([]string, im.Bands)
		for b := range channels {
			channels[b] = fmt.Sprintf("band%d", b)
		}
	}
	if len(channels) != im.Bands {
		return nil, fmt.Errorf("%w: %d channel labels for %d bands", cube.ErrShape, len(channels), im.Bands)
	}
	return cube.FromData(channels, im.Rows, im.Cols, im.Data)
}

// PSF converts the image into a point spread function, one kernel per band.
func (im *Image) PSF() (*cube.PSF, error) {
	c, err := im.Cube(nil)
	if err != nil {
		return nil, err
	}
	psf, err := cube.NewPSF(c)
	if err != nil {
		return nil, err
	}
	psf.Normalize()
	return psf, nil
}

// Mapper builds a coordinate mapper from the header cards. Headers with a
// TAN CTYPE and a CD matrix (or CDELT scales) produce a gnomonic projection;
// headers with only CDELT and no projection code produce a linear grid.
// FITS CRPIX values are 1-based and are shifted to the pipeline's 0-based
// convention here.
func (im *Image) Mapper() (wcs.Mapper, error) {
	crpix1, ok1 := im.CardFloat("CRPIX1")
	crpix2, ok2 := im.CardFloat("CRPIX2")
	crval1, ok3 := im.CardFloat("CRVAL1")
	crval2, ok4 := im.CardFloat("CRVAL2")
	if !(ok1 && ok2 && ok3 && ok4) {
		return nil, fmt.Errorf("header lacks CRPIX/CRVAL cards")
	}

	refCol := crpix1 - 1
	refRow := crpix2 - 1

	ref := wcs.Reference{System: "ICRS"}
	if sys, ok := im.CardString("RADESYS"); ok {
		ref.System = sys
	}
	if eq, ok := im.CardFloat("EQUINOX"); ok {
		ref.Equinox = eq
	}

	cd := [2][2]float64{}
	if cd11, ok := im.CardFloat("CD1_1"); ok {
		cd[0][0] = cd11
		cd[0][1], _ = im.CardFloat("CD1_2")
		cd[1][0], _ = im.CardFloat("CD2_1")
		cd22, ok := im.CardFloat("CD2_2")
		if !ok {
			return nil, fmt.Errorf("header has CD1_1 but no CD2_2")
		}
		cd[1][1] = cd22
	} else if cdelt1, ok := im.CardFloat("CDELT1"); ok {
		cdelt2, ok := im.CardFloat("CDELT2")
		if !ok {
			return nil, fmt.Errorf("header has CDELT1 but no CDELT2")
		}
		cd[0][0], cd[1][1] = cdelt1, cdelt2
	} else {
		return nil, fmt.Errorf("header lacks CD matrix and CDELT scales")
	}

	ctype, _ := im.CardString("CTYPE1")
	if containsTAN(ctype) {
		return wcs.NewTan(ref, refRow, refCol, crval1, crval2, cd)
	}

	// No projection code: flat linear grid. Rotated pixels are not
	// representable; reject them instead of guessing.
	if cd[0][1] != 0 || cd[1][0] != 0 {
		return nil, fmt.Errorf("non-TAN header with rotated pixels; cannot build linear mapping")
	}
	return &wcs.Linear{
		Ref:    ref,
		RefRow: refRow, RefCol: refCol,
		RefRA: crval1, RefDec: crval2,
		ScaleRA: cd[0][0], ScaleDec: cd[1][1],
	}, nil
}

func containsTAN(ctype string) bool {
	for i := 0; i+3 <= len(ctype); i++ {
		if ctype[i:i+3] == "TAN" {
			return true
		}
	}
	return false
}
