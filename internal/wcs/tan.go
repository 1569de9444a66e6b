package wcs

import (
	"fmt"
	"math"

	"github.com/orion-data/blendscan.report/internal/units"
)

// Tan is a gnomonic (TAN) projection in the FITS convention: a linear CD
// matrix maps pixel offsets from the reference pixel to intermediate world
// coordinates in degrees, which are then deprojected around the tangent
// point (CRVAL).
type Tan struct {
	ref Reference

	// Reference pixel, 0-based (FITS CRPIX is 1-based; the loader shifts).
	refRow, refCol float64
	// Tangent point in degrees.
	refRA, refDec float64
	// CD matrix: (xi, eta) = cd * (dcol, drow), degrees per pixel.
	cd [2][2]float64
	// Inverse of cd.
	inv [2][2]float64
}

// NewTan builds a TAN projection. cd is the row-major CD matrix
// [ [CD1_1, CD1_2], [CD2_1, CD2_2] ] in degrees per pixel, refRow/refCol the
// 0-based reference pixel, refRA/refDec the tangent point in degrees.
func NewTan(ref Reference, refRow, refCol, refRA, refDec float64, cd [2][2]float64) (*Tan, error) {
	det := cd[0][0]*cd[1][1] - cd[0][1]*cd[1][0]
	if det == 0 {
		return nil, fmt.Errorf("singular CD matrix %v", cd)
	}
	inv := [2][2]float64{
		{cd[1][1] / det, -cd[0][1] / det},
		{-cd[1][0] / det, cd[0][0] / det},
	}
	return &Tan{
		ref:    ref,
		refRow: refRow, refCol: refCol,
		refRA: refRA, refDec: refDec,
		cd: cd, inv: inv,
	}, nil
}

// ToSky deprojects a pixel position through the gnomonic plane.
func (t *Tan) ToSky(row, col float64) (float64, float64) {
	dcol := col - t.refCol
	drow := row - t.refRow

	// Intermediate world coordinates in radians: xi east, eta north.
	xi := units.DegToRad(t.cd[0][0]*dcol + t.cd[0][1]*drow)
	eta := units.DegToRad(t.cd[1][0]*dcol + t.cd[1][1]*drow)

	ra0 := units.DegToRad(t.refRA)
	dec0 := units.DegToRad(t.refDec)

	rho := math.Hypot(xi, eta)
	if rho == 0 {
		return t.refRA, t.refDec
	}
	c := math.Atan(rho)
	sinc, cosc := math.Sin(c), math.Cos(c)

	dec := math.Asin(cosc*math.Sin(dec0) + eta*sinc*math.Cos(dec0)/rho)
	ra := ra0 + math.Atan2(xi*sinc, rho*math.Cos(dec0)*cosc-eta*math.Sin(dec0)*sinc)

	return units.NormalizeDeg(units.RadToDeg(ra)), units.RadToDeg(dec)
}

// ToPixel projects sky coordinates onto the gnomonic plane and applies the
// inverse CD matrix.
func (t *Tan) ToPixel(ra, dec float64) (float64, float64) {
	raR := units.DegToRad(ra)
	decR := units.DegToRad(dec)
	ra0 := units.DegToRad(t.refRA)
	dec0 := units.DegToRad(t.refDec)

	cosc := math.Sin(dec0)*math.Sin(decR) + math.Cos(dec0)*math.Cos(decR)*math.Cos(raR-ra0)

	xi := math.Cos(decR) * math.Sin(raR-ra0) / cosc
	eta := (math.Cos(dec0)*math.Sin(decR) - math.Sin(dec0)*math.Cos(decR)*math.Cos(raR-ra0)) / cosc

	xiDeg := units.RadToDeg(xi)
	etaDeg := units.RadToDeg(eta)

	dcol := t.inv[0][0]*xiDeg + t.inv[0][1]*etaDeg
	drow := t.inv[1][0]*xiDeg + t.inv[1][1]*etaDeg

	return t.refRow + drow, t.refCol + dcol
}

// Reference returns the projection's sky reference.
func (t *Tan) Reference() Reference { return t.ref }

var _ Mapper = (*Tan)(nil)
