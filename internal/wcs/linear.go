package wcs

// Linear is a flat-sky plate mapping: sky offsets are proportional to pixel
// offsets with no projection. Adequate for the small synthetic scenes used in
// tests and demos, and exactly invertible.
type Linear struct {
	// Ref is the sky reference this mapping projects into.
	Ref Reference

	// Reference pixel, 0-based.
	RefRow, RefCol float64
	// Sky position of the reference pixel in degrees.
	RefRA, RefDec float64
	// Degrees per pixel along columns (RA) and rows (Dec).
	ScaleRA, ScaleDec float64
}

// NewLinear builds a flat-sky mapping with square pixels of the given scale
// in degrees per pixel.
func NewLinear(ref Reference, refRow, refCol, refRA, refDec, scale float64) *Linear {
	return &Linear{
		Ref:    ref,
		RefRow: refRow, RefCol: refCol,
		RefRA: refRA, RefDec: refDec,
		ScaleRA: scale, ScaleDec: scale,
	}
}

// ToSky converts a pixel position to sky coordinates.
func (l *Linear) ToSky(row, col float64) (float64, float64) {
	ra := l.RefRA + (col-l.RefCol)*l.ScaleRA
	dec := l.RefDec + (row-l.RefRow)*l.ScaleDec
	return ra, dec
}

// ToPixel converts sky coordinates to a pixel position.
func (l *Linear) ToPixel(ra, dec float64) (float64, float64) {
	col := l.RefCol + (ra-l.RefRA)/l.ScaleRA
	row := l.RefRow + (dec-l.RefDec)/l.ScaleDec
	return row, col
}

// Reference returns the mapping's sky reference.
func (l *Linear) Reference() Reference { return l.Ref }

var _ Mapper = (*Linear)(nil)
