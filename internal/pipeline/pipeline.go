// Package pipeline runs one end-to-end detection pass: load, resample,
// detect, persist, render. Stages fail fast and name themselves in errors.
package pipeline

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/orion-data/blendscan.report/internal/catalogdb"
	"github.com/orion-data/blendscan.report/internal/cube"
	"github.com/orion-data/blendscan.report/internal/detect"
	"github.com/orion-data/blendscan.report/internal/fits"
	"github.com/orion-data/blendscan.report/internal/frame"
	"github.com/orion-data/blendscan.report/internal/fsutil"
	"github.com/orion-data/blendscan.report/internal/monitoring"
	"github.com/orion-data/blendscan.report/internal/render"
	"github.com/orion-data/blendscan.report/internal/report"
	"github.com/orion-data/blendscan.report/internal/resample"
)

// Config names the inputs and outputs of one run.
type Config struct {
	HiresPath     string
	LowresPath    string
	HiresPSFPath  string
	LowresPSFPath string

	// LowresChannels names the low-resolution bands, finest first. Nil
	// keeps generated names.
	LowresChannels []string

	// DBPath is the catalog database; empty skips persistence.
	DBPath string
	// OutDir receives catalog.json, detection.png and report.html; empty
	// skips file outputs.
	OutDir string

	Detect   detect.Params
	Resample resample.Params
	Render   render.Params
}

// Outputs collects everything a run produced.
type Outputs struct {
	RunID     string
	Low       *frame.Observation
	High      *frame.Observation
	Resampled *cube.Cube
	Result    *detect.Result

	CatalogPath string
	ImagePath   string
	ReportPath  string
}

// catalogEntry is the JSON shape of one catalog record, enriched with sky
// coordinates and the low-resolution SED at the centroid.
type catalogEntry struct {
	detect.Source
	RA  float64   `json:"ra"`
	Dec float64   `json:"dec"`
	SED []float64 `json:"sed,omitempty"`
}

// Run executes the full pipeline for cfg, writing outputs through fs.
func Run(fs fsutil.FileSystem, cfg Config) (*Outputs, error) {
	high, err := loadObservation(cfg.HiresPath, cfg.HiresPSFPath, nil)
	if err != nil {
		return nil, fmt.Errorf("load high-resolution observation: %w", err)
	}
	low, err := loadObservation(cfg.LowresPath, cfg.LowresPSFPath, cfg.LowresChannels)
	if err != nil {
		return nil, fmt.Errorf("load low-resolution observation: %w", err)
	}

	out, err := RunObservations(low, high, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.DBPath != "" {
		if err := persist(out, cfg); err != nil {
			return nil, fmt.Errorf("persist run: %w", err)
		}
	}
	if cfg.OutDir != "" {
		if err := writeOutputs(fs, out, cfg); err != nil {
			return nil, fmt.Errorf("write outputs: %w", err)
		}
	}

	monitoring.Logf("pipeline: run %s complete, %d sources", out.RunID, len(out.Result.Catalog))
	return out, nil
}

// RunObservations runs resampling and detection on observations already in
// memory. File loading, persistence and rendering stay with Run.
func RunObservations(low, high *frame.Observation, cfg Config) (*Outputs, error) {
	resampled, err := resample.ToGrid(low, high, cfg.Resample)
	if err != nil {
		return nil, fmt.Errorf("resample: %w", err)
	}

	result, err := detect.Run(low, high, resampled, cfg.Detect)
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}

	return &Outputs{
		RunID:     uuid.NewString(),
		Low:       low,
		High:      high,
		Resampled: resampled,
		Result:    result,
	}, nil
}

// loadObservation reads an image (and optional PSF) from FITS files.
func loadObservation(imagePath, psfPath string, channels []string) (*frame.Observation, error) {
	img, err := fits.Load(imagePath)
	if err != nil {
		return nil, err
	}
	c, err := img.Cube(channels)
	if err != nil {
		return nil, err
	}
	mapper, err := img.Mapper()
	if err != nil {
		return nil, err
	}

	var psf *cube.PSF
	if psfPath != "" {
		psfImg, err := fits.Load(psfPath)
		if err != nil {
			return nil, fmt.Errorf("load PSF: %w", err)
		}
		psf, err = psfImg.PSF()
		if err != nil {
			return nil, fmt.Errorf("load PSF: %w", err)
		}
	}

	return frame.NewObservation(c, psf, mapper)
}

// entries builds the enriched catalog records for out. SED sampling
// failures leave the field empty rather than failing the run.
func entries(out *Outputs) []catalogEntry {
	recs := make([]catalogEntry, len(out.Result.Catalog))
	for i, s := range out.Result.Catalog {
		ra, dec := out.High.WCS.ToSky(s.Row, s.Col)
		recs[i] = catalogEntry{Source: s, RA: ra, Dec: dec}
		if sed, err := out.Low.SED(ra, dec); err == nil {
			recs[i].SED = sed
		}
	}
	return recs
}

func persist(out *Outputs, cfg Config) error {
	db, err := catalogdb.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	run := &catalogdb.Run{
		ID:             out.RunID,
		HiresPath:      cfg.HiresPath,
		LowresPath:     cfg.LowresPath,
		WaveletFilter:  cfg.Detect.WaveletFilter,
		WaveletLevels:  cfg.Detect.WaveletLevels,
		ThresholdSigma: cfg.Detect.ThresholdSigma,
		Background:     out.Result.Background,
		RMS:            out.Result.RMS,
	}
	if err := db.CreateRun(run); err != nil {
		return err
	}

	records := make([]catalogdb.SourceRecord, 0, len(out.Result.Catalog))
	for _, e := range entries(out) {
		records = append(records, catalogdb.SourceRecord{
			RunID: out.RunID,
			Row:   e.Row, Col: e.Col,
			RA: e.RA, Dec: e.Dec,
			Peak: e.Peak, Flux: e.Flux, Area: e.Area,
		})
	}
	if err := db.AddSources(out.RunID, records); err != nil {
		return err
	}

	return db.AddBandStats(bandStats(out))
}

func bandStats(out *Outputs) []catalogdb.BandStat {
	var stats []catalogdb.BandStat
	for b, rms := range out.Result.LowStats.RMS {
		stats = append(stats, catalogdb.BandStat{
			RunID: out.RunID, Observation: "low",
			Band: b, Channel: out.Low.Images.Channels()[b], RMS: rms,
		})
	}
	for b, rms := range out.Result.HighStats.RMS {
		stats = append(stats, catalogdb.BandStat{
			RunID: out.RunID, Observation: "high",
			Band: b, Channel: out.High.Images.Channels()[b], RMS: rms,
		})
	}
	return stats
}

func writeOutputs(fs fsutil.FileSystem, out *Outputs, cfg Config) error {
	if err := fs.MkdirAll(cfg.OutDir, 0755); err != nil {
		return err
	}

	out.CatalogPath = filepath.Join(cfg.OutDir, "catalog.json")
	data, err := json.MarshalIndent(entries(out), "", "  ")
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	if err := fs.WriteFile(out.CatalogPath, data, 0644); err != nil {
		return err
	}

	out.ImagePath = filepath.Join(cfg.OutDir, "detection.png")
	if err := render.SaveDetectionPNG(fs, out.Result.Detection, out.Result.Catalog, out.ImagePath, cfg.Render); err != nil {
		return err
	}

	out.ReportPath = filepath.Join(cfg.OutDir, "report.html")
	run := catalogdb.Run{
		ID:             out.RunID,
		HiresPath:      cfg.HiresPath,
		LowresPath:     cfg.LowresPath,
		WaveletFilter:  cfg.Detect.WaveletFilter,
		WaveletLevels:  cfg.Detect.WaveletLevels,
		ThresholdSigma: cfg.Detect.ThresholdSigma,
		Background:     out.Result.Background,
		RMS:            out.Result.RMS,
		SourceCount:    len(out.Result.Catalog),
	}
	records := make([]catalogdb.SourceRecord, 0, len(out.Result.Catalog))
	for _, e := range entries(out) {
		records = append(records, catalogdb.SourceRecord{
			RunID: out.RunID,
			Row:   e.Row, Col: e.Col,
			RA: e.RA, Dec: e.Dec,
			Peak: e.Peak, Flux: e.Flux, Area: e.Area,
		})
	}
	return report.WriteRunReport(fs, out.ReportPath, run, records, bandStats(out))
}
