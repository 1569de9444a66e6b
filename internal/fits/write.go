package fits

import (
	"fmt"
	"os"

	"github.com/astrogo/fitsio"

	"github.com/orion-data/blendscan.report/internal/cube"
)

// Card is a header card to store alongside the data when saving.
type Card struct {
	Name    string
	Value   interface{}
	Comment string
}

// LinearWCSCards builds the header cards for a flat linear grid with square
// pixels of the given scale (degrees per pixel) and a 0-based reference
// pixel. CRPIX is written 1-based per the FITS convention.
func LinearWCSCards(refRow, refCol, refRA, refDec, scale float64) []Card {
	return []Card{
		{Name: "CRPIX1", Value: refCol + 1, Comment: "reference pixel (column)"},
		{Name: "CRPIX2", Value: refRow + 1, Comment: "reference pixel (row)"},
		{Name: "CRVAL1", Value: refRA, Comment: "RA at reference pixel [deg]"},
		{Name: "CRVAL2", Value: refDec, Comment: "Dec at reference pixel [deg]"},
		{Name: "CDELT1", Value: scale, Comment: "column scale [deg/pixel]"},
		{Name: "CDELT2", Value: scale, Comment: "row scale [deg/pixel]"},
		{Name: "RADESYS", Value: "ICRS", Comment: "sky reference system"},
	}
}

// Save writes a cube as a 64-bit float FITS primary HDU with the given
// extra header cards. 2-D layout is used for single-band cubes so round
// trips preserve the original axis count of typical detection inputs.
func Save(path string, c *cube.Cube, cards []Card) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create FITS file: %w", err)
	}
	defer f.Close()

	fit, err := fitsio.Create(f)
	if err != nil {
		return fmt.Errorf("failed to create FITS container: %w", err)
	}
	defer fit.Close()

	axes := []int{c.Cols(), c.Rows()}
	if c.Bands() > 1 {
		axes = append(axes, c.Bands())
	}

	img := fitsio.NewImage(-64, axes)
	defer img.Close()

	fitsCards := make([]fitsio.Card, 0, len(cards))
	for _, card := range cards {
		fitsCards = append(fitsCards, fitsio.Card{
			Name:    card.Name,
			Value:   card.Value,
			Comment: card.Comment,
		})
	}
	if len(fitsCards) > 0 {
		if err := img.Header().Append(fitsCards...); err != nil {
			return fmt.Errorf("failed to append header cards: %w", err)
		}
	}

	data := c.Data()
	if err := img.Write(&data); err != nil {
		return fmt.Errorf("failed to write FITS data: %w", err)
	}
	if err := fit.Write(img); err != nil {
		return fmt.Errorf("failed to write FITS HDU: %w", err)
	}

	return nil
}
