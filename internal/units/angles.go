// Package units provides angular and flux unit conversions used across the
// pipeline. Sky coordinates are carried in degrees everywhere; conversions to
// radians happen only inside projection math.
package units

import (
	"fmt"
	"math"
)

// Conversion factors between the angular units the pipeline touches.
const (
	DegPerRad    = 180.0 / math.Pi
	ArcsecPerDeg = 3600.0
	ArcminPerDeg = 60.0
)

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 { return deg / DegPerRad }

// RadToDeg converts radians to degrees.
func RadToDeg(rad float64) float64 { return rad * DegPerRad }

// DegToArcsec converts degrees to arcseconds.
func DegToArcsec(deg float64) float64 { return deg * ArcsecPerDeg }

// ArcsecToDeg converts arcseconds to degrees.
func ArcsecToDeg(as float64) float64 { return as / ArcsecPerDeg }

// NormalizeDeg wraps an angle into [0, 360).
func NormalizeDeg(deg float64) float64 {
	d := math.Mod(deg, 360.0)
	if d < 0 {
		d += 360.0
	}
	return d
}

// FormatRA renders a right ascension in sexagesimal hours (HH:MM:SS.sss).
func FormatRA(deg float64) string {
	hours := NormalizeDeg(deg) / 15.0
	h := int(hours)
	m := int((hours - float64(h)) * 60.0)
	s := (hours-float64(h))*3600.0 - float64(m)*60.0
	return fmt.Sprintf("%02d:%02d:%06.3f", h, m, s)
}

// FormatDec renders a declination in signed sexagesimal degrees (+DD:MM:SS.ss).
func FormatDec(deg float64) string {
	sign := "+"
	if deg < 0 {
		sign = "-"
		deg = -deg
	}
	d := int(deg)
	m := int((deg - float64(d)) * 60.0)
	s := (deg-float64(d))*3600.0 - float64(m)*60.0
	return fmt.Sprintf("%s%02d:%02d:%05.2f", sign, d, m, s)
}

// FluxToMag converts a flux (in arbitrary linear units) to a magnitude with
// the given zeropoint. Non-positive fluxes have no magnitude; NaN is returned.
func FluxToMag(flux, zeropoint float64) float64 {
	if flux <= 0 {
		return math.NaN()
	}
	return zeropoint - 2.5*math.Log10(flux)
}
