package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/orion-data/blendscan.report/internal/detect"
	"github.com/orion-data/blendscan.report/internal/render"
	"github.com/orion-data/blendscan.report/internal/resample"
)

// TuningConfig holds the pipeline tuning parameters. All fields are
// pointers so a partial JSON file only overrides what it names; the Get*
// methods fall back to the package defaults for nil fields.
type TuningConfig struct {
	// Detection params
	WaveletFilter      *bool    `json:"wave,omitempty"`
	WaveletLevels      *int     `json:"wavelet_levels,omitempty"`
	DecompositionDepth *int     `json:"decomposition_depth,omitempty"`
	ThresholdSigma     *float64 `json:"threshold_sigma,omitempty"`
	MinArea            *int     `json:"min_area,omitempty"`
	ClipSigma          *float64 `json:"clip_sigma,omitempty"`
	ClipIterations     *int     `json:"clip_iterations,omitempty"`

	// Resampling params
	ResampleWindow *int `json:"resample_window,omitempty"`

	// Rendering params
	RenderSoftening    *float64 `json:"render_softening,omitempty"`
	RenderPaletteSteps *int     `json:"render_palette_steps,omitempty"`

	// Channel names for the low-resolution cube, finest band first. Nil
	// keeps the generated band0..bandN names.
	LowresChannels []string `json:"lowres_channels,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file must
// have a .json extension and stay under the size cap. Fields omitted from
// the JSON keep their defaults, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that set fields carry usable values.
func (c *TuningConfig) Validate() error {
	if c.WaveletLevels != nil && *c.WaveletLevels < 1 {
		return fmt.Errorf("wavelet_levels must be positive, got %d", *c.WaveletLevels)
	}
	if c.DecompositionDepth != nil && *c.DecompositionDepth < 1 {
		return fmt.Errorf("decomposition_depth must be positive, got %d", *c.DecompositionDepth)
	}
	if c.ThresholdSigma != nil && *c.ThresholdSigma <= 0 {
		return fmt.Errorf("threshold_sigma must be positive, got %f", *c.ThresholdSigma)
	}
	if c.MinArea != nil && *c.MinArea < 1 {
		return fmt.Errorf("min_area must be at least 1, got %d", *c.MinArea)
	}
	if c.ClipSigma != nil && *c.ClipSigma <= 0 {
		return fmt.Errorf("clip_sigma must be positive, got %f", *c.ClipSigma)
	}
	if c.ClipIterations != nil && *c.ClipIterations < 1 {
		return fmt.Errorf("clip_iterations must be at least 1, got %d", *c.ClipIterations)
	}
	if c.ResampleWindow != nil && *c.ResampleWindow < 1 {
		return fmt.Errorf("resample_window must be at least 1, got %d", *c.ResampleWindow)
	}
	if c.RenderSoftening != nil && *c.RenderSoftening <= 0 {
		return fmt.Errorf("render_softening must be positive, got %f", *c.RenderSoftening)
	}
	return nil
}

// DetectParams materializes detection parameters, falling back to
// detect.DefaultParams for unset fields.
func (c *TuningConfig) DetectParams() detect.Params {
	p := detect.DefaultParams()
	if c.WaveletFilter != nil {
		p.WaveletFilter = *c.WaveletFilter
	}
	if c.WaveletLevels != nil {
		p.WaveletLevels = *c.WaveletLevels
	}
	if c.DecompositionDepth != nil {
		p.DecompositionDepth = *c.DecompositionDepth
	}
	if c.ThresholdSigma != nil {
		p.ThresholdSigma = *c.ThresholdSigma
	}
	if c.MinArea != nil {
		p.MinArea = *c.MinArea
	}
	if c.ClipSigma != nil {
		p.ClipSigma = *c.ClipSigma
	}
	if c.ClipIterations != nil {
		p.ClipIterations = *c.ClipIterations
	}
	return p
}

// ResampleParams materializes resampling parameters.
func (c *TuningConfig) ResampleParams() resample.Params {
	p := resample.DefaultParams()
	if c.ResampleWindow != nil {
		p.Window = *c.ResampleWindow
	}
	return p
}

// RenderParams materializes rendering parameters.
func (c *TuningConfig) RenderParams() render.Params {
	p := render.DefaultParams()
	if c.RenderSoftening != nil {
		p.Softening = *c.RenderSoftening
	}
	if c.RenderPaletteSteps != nil {
		p.PaletteSteps = *c.RenderPaletteSteps
	}
	return p
}

// GetLowresChannels returns the configured channel names or nil.
func (c *TuningConfig) GetLowresChannels() []string {
	return c.LowresChannels
}
