// Package report writes a static HTML summary of a detection run.
package report

import (
	"bytes"
	"fmt"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/orion-data/blendscan.report/internal/catalogdb"
	"github.com/orion-data/blendscan.report/internal/fsutil"
)

// viridisColors is the color ramp shared by the flux visual map.
var viridisColors = []string{
	"#440154", "#482777", "#3e4989", "#31688e", "#26828e",
	"#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725",
}

const fluxHistogramBins = 12

// WriteRunReport renders the run summary to path via fs: a catalog scatter
// colored by flux, a flux histogram, and per-band background RMS.
func WriteRunReport(fs fsutil.FileSystem, path string, run catalogdb.Run, sources []catalogdb.SourceRecord, stats []catalogdb.BandStat) error {
	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("blendscan run %s", run.ID)

	page.AddCharts(
		catalogScatter(run, sources),
		fluxHistogram(sources),
		bandRMSBar(stats),
	)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return fmt.Errorf("failed to render run report: %w", err)
	}

	f, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	return f.Close()
}

// catalogScatter plots source centroids in pixel coordinates, colored by flux.
func catalogScatter(run catalogdb.Run, sources []catalogdb.SourceRecord) *charts.Scatter {
	data := make([]opts.ScatterData, 0, len(sources))
	maxRow, maxCol, maxFlux := 1.0, 1.0, 1.0
	for _, s := range sources {
		if s.Row > maxRow {
			maxRow = s.Row
		}
		if s.Col > maxCol {
			maxCol = s.Col
		}
		if s.Flux > maxFlux {
			maxFlux = s.Flux
		}
		data = append(data, opts.ScatterData{Value: []interface{}{s.Col, s.Row, s.Flux}})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Detected sources",
			Subtitle: fmt.Sprintf("run=%s sources=%d threshold=%.1f sigma", run.ID, len(sources), run.ThresholdSigma),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: 0, Max: maxCol * 1.05, Name: "column (px)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: maxRow * 1.05, Name: "row (px)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxFlux),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridisColors},
		}),
	)
	scatter.AddSeries("sources", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 10}))
	return scatter
}

// fluxHistogram bins source fluxes into a bar chart.
func fluxHistogram(sources []catalogdb.SourceRecord) *charts.Bar {
	minFlux, maxFlux := math.Inf(1), math.Inf(-1)
	for _, s := range sources {
		if s.Flux < minFlux {
			minFlux = s.Flux
		}
		if s.Flux > maxFlux {
			maxFlux = s.Flux
		}
	}

	labels := make([]string, 0, fluxHistogramBins)
	counts := make([]int, fluxHistogramBins)
	if len(sources) > 0 {
		width := (maxFlux - minFlux) / fluxHistogramBins
		if width == 0 {
			width = 1
		}
		for _, s := range sources {
			bin := int((s.Flux - minFlux) / width)
			if bin >= fluxHistogramBins {
				bin = fluxHistogramBins - 1
			}
			counts[bin]++
		}
		for i := 0; i < fluxHistogramBins; i++ {
			labels = append(labels, fmt.Sprintf("%.3g", minFlux+(float64(i)+0.5)*width))
		}
	}

	bars := make([]opts.BarData, len(counts))
	for i, c := range counts {
		bars[i] = opts.BarData{Value: c}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Flux distribution"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "flux (bin center)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "count"}),
	)
	bar.SetXAxis(labels).
		AddSeries("sources", bars,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}

// bandRMSBar shows the background RMS of each observation band.
func bandRMSBar(stats []catalogdb.BandStat) *charts.Bar {
	labels := make([]string, 0, len(stats))
	bars := make([]opts.BarData, 0, len(stats))
	for _, s := range stats {
		labels = append(labels, fmt.Sprintf("%s/%s", s.Observation, s.Channel))
		bars = append(bars, opts.BarData{Value: s.RMS})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Background RMS by band"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "RMS"}),
	)
	bar.SetXAxis(labels).AddSeries("rms", bars)
	return bar
}
