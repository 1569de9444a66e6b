// Package render draws detection images and catalog overlays to PNG files.
package render

import (
	"fmt"
	"image/color"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/orion-data/blendscan.report/internal/detect"
	"github.com/orion-data/blendscan.report/internal/fsutil"
)

// Params controls detection-image rendering.
type Params struct {
	// SizeInches is the output edge length.
	SizeInches float64
	// Softening is the asinh stretch knee in image units. Values well below
	// it map near-linearly, values above are compressed.
	Softening float64
	// PaletteSteps is the number of discrete heatmap colors.
	PaletteSteps int
	// MarkSources overlays a ring glyph at each catalog centroid.
	MarkSources bool
}

func DefaultParams() Params {
	return Params{
		SizeInches:   8,
		Softening:    0.1,
		PaletteSteps: 64,
		MarkSources:  true,
	}
}

// heatGrid adapts a stretched detection image to the plotter grid interface.
// Y grows upward, so image rows are flipped.
type heatGrid struct {
	img *mat.Dense
}

func (g heatGrid) Dims() (int, int) {
	r, c := g.img.Dims()
	return c, r
}

func (g heatGrid) Z(c, r int) float64 {
	rows, _ := g.img.Dims()
	return g.img.At(rows-1-r, c)
}

func (g heatGrid) X(c int) float64 { return float64(c) }
func (g heatGrid) Y(r int) float64 { return float64(r) }

var _ plotter.GridXYZ = heatGrid{}

// heatPalette is a perceptual dark-to-light gradient built by blending
// anchor colors in Luv space.
type heatPalette struct {
	colors []color.Color
}

func (p heatPalette) Colors() []color.Color { return p.colors }

var _ palette.Palette = heatPalette{}

var paletteAnchors = []string{"#0d0887", "#7e03a8", "#cc4778", "#f89540", "#f0f921"}

func newHeatPalette(steps int) (heatPalette, error) {
	if steps < 2 {
		steps = 2
	}

	anchors := make([]colorful.Color, len(paletteAnchors))
	for i, hex := range paletteAnchors {
		c, err := colorful.Hex(hex)
		if err != nil {
			return heatPalette{}, fmt.Errorf("bad palette anchor %q: %w", hex, err)
		}
		anchors[i] = c
	}

	colors := make([]color.Color, steps)
	segments := len(anchors) - 1
	for i := 0; i < steps; i++ {
		t := float64(i) / float64(steps-1) * float64(segments)
		seg := int(t)
		if seg >= segments {
			seg = segments - 1
		}
		colors[i] = anchors[seg].BlendLuv(anchors[seg+1], t-float64(seg)).Clamped()
	}
	return heatPalette{colors: colors}, nil
}

// stretch returns a copy of img with an asinh stretch applied. The stretch
// keeps faint structure visible next to bright peaks.
func stretch(img *mat.Dense, softening float64) *mat.Dense {
	rows, cols := img.Dims()
	out := mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			out.Set(r, c, math.Asinh(img.At(r, c)/softening))
		}
	}
	return out
}

// SaveDetectionPNG renders the detection image as a heatmap, optionally
// overlaying catalog centroids, and writes a PNG to path via fs.
func SaveDetectionPNG(fs fsutil.FileSystem, img *mat.Dense, catalog detect.Catalog, path string, params Params) error {
	if img == nil {
		return fmt.Errorf("render: nil detection image")
	}
	if params.Softening <= 0 {
		params.Softening = DefaultParams().Softening
	}
	if params.SizeInches <= 0 {
		params.SizeInches = DefaultParams().SizeInches
	}

	pal, err := newHeatPalette(params.PaletteSteps)
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = "detection image"
	p.X.Label.Text = "column"
	p.Y.Label.Text = "row"

	heat := plotter.NewHeatMap(heatGrid{img: stretch(img, params.Softening)}, pal)
	p.Add(heat)

	if params.MarkSources && len(catalog) > 0 {
		rows, _ := img.Dims()
		pts := make(plotter.XYs, len(catalog))
		for i, s := range catalog {
			pts[i] = plotter.XY{X: s.Col, Y: float64(rows-1) - s.Row}
		}
		scatter, err := plotter.NewScatter(pts)
		if err != nil {
			return fmt.Errorf("render: source overlay: %w", err)
		}
		scatter.GlyphStyle.Shape = draw.RingGlyph{}
		scatter.GlyphStyle.Color = color.White
		scatter.GlyphStyle.Radius = vg.Points(5)
		p.Add(scatter)
	}

	size := vg.Length(params.SizeInches) * vg.Inch
	wt, err := p.WriterTo(size, size, "png")
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	f, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if _, err := wt.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("render: write %s: %w", path, err)
	}
	return f.Close()
}
