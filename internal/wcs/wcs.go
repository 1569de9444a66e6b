// Package wcs maps between pixel and sky coordinates.
//
// The Mapper interface is the only thing the resampler depends on, so
// different projection conventions can coexist: a gnomonic TAN projection
// built from FITS header cards, and a flat linear grid used for synthetic
// scenes and tests.
package wcs

import "errors"

// ErrCoordinateMismatch is returned when two mappers do not share a common
// sky reference and cannot be chained for cross-frame resampling.
var ErrCoordinateMismatch = errors.New("coordinate systems do not share a sky reference")

// Reference identifies the sky coordinate system a mapper projects into.
type Reference struct {
	// System names the celestial reference system, e.g. "ICRS" or "FK5".
	System string
	// Equinox is the reference epoch in Julian years; zero means epochless
	// systems such as ICRS.
	Equinox float64
}

// Mapper converts between 0-based pixel coordinates (row, col) and sky
// coordinates (ra, dec) in degrees. Implementations must be pure: the same
// input always maps to the same output, with no internal state.
type Mapper interface {
	// ToSky converts a (possibly fractional) pixel position to sky coordinates.
	ToSky(row, col float64) (ra, dec float64)

	// ToPixel converts sky coordinates to a fractional pixel position.
	ToPixel(ra, dec float64) (row, col float64)

	// Reference returns the sky reference this mapper projects into.
	Reference() Reference
}

// Compatible reports whether two mappers share a sky reference, i.e. whether
// pixel->sky in one followed by sky->pixel in the other is meaningful.
func Compatible(a, b Mapper) bool {
	ra, rb := a.Reference(), b.Reference()
	return ra.System == rb.System && ra.Equinox == rb.Equinox
}
