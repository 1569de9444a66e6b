package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/orion-data/blendscan.report/internal/config"
	"github.com/orion-data/blendscan.report/internal/fsutil"
	"github.com/orion-data/blendscan.report/internal/monitoring"
	"github.com/orion-data/blendscan.report/internal/pipeline"
	"github.com/orion-data/blendscan.report/internal/version"
)

var (
	hiresPath   = flag.String("hires", "", "high-resolution FITS image (required)")
	lowresPath  = flag.String("lowres", "", "low-resolution FITS image (required)")
	hiresPSF    = flag.String("hires-psf", "", "high-resolution PSF FITS file")
	lowresPSF   = flag.String("lowres-psf", "", "low-resolution PSF FITS file")
	configPath  = flag.String("config", "", "tuning config JSON file")
	dbPath      = flag.String("db", "", "catalog database path (empty skips persistence)")
	outDir      = flag.String("out", "out", "output directory for catalog, PNG and report")
	wave        = flag.Bool("wave", false, "use wavelet-filtered detection")
	lvl         = flag.Int("lvl", 3, "number of wavelet levels to keep")
	channels    = flag.String("channels", "", "comma-separated low-resolution channel names")
	verbose     = flag.Bool("verbose", false, "enable debug logging")
	showVersion = flag.Bool("version", false, "print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if *verbose {
		monitoring.EnableDebug()
	}
	if *hiresPath == "" || *lowresPath == "" {
		log.Fatal("both -hires and -lowres are required")
	}

	cfg, err := buildConfig()
	if err != nil {
		log.Fatalf("configuration: %v", err)
	}

	out, err := pipeline.Run(fsutil.OSFileSystem{}, cfg)
	if err != nil {
		log.Fatalf("pipeline failed: %v", err)
	}

	fmt.Printf("run %s: %d sources (background %.4g, rms %.4g)\n",
		out.RunID, len(out.Result.Catalog), out.Result.Background, out.Result.RMS)
	for _, s := range out.Result.Catalog {
		fmt.Printf("  (%8.2f, %8.2f)  peak %10.4g  flux %10.4g  area %d\n",
			s.Row, s.Col, s.Peak, s.Flux, s.Area)
	}
	if out.CatalogPath != "" {
		fmt.Printf("outputs: %s, %s, %s\n", out.CatalogPath, out.ImagePath, out.ReportPath)
	}
}

func buildConfig() (pipeline.Config, error) {
	tuning := config.EmptyTuningConfig()
	if *configPath != "" {
		loaded, err := config.LoadTuningConfig(*configPath)
		if err != nil {
			return pipeline.Config{}, err
		}
		tuning = loaded
	}

	cfg := pipeline.Config{
		HiresPath:      *hiresPath,
		LowresPath:     *lowresPath,
		HiresPSFPath:   *hiresPSF,
		LowresPSFPath:  *lowresPSF,
		LowresChannels: tuning.GetLowresChannels(),
		DBPath:         *dbPath,
		OutDir:         *outDir,
		Detect:         tuning.DetectParams(),
		Resample:       tuning.ResampleParams(),
		Render:         tuning.RenderParams(),
	}

	// Explicit command-line flags override the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "wave":
			cfg.Detect.WaveletFilter = *wave
		case "lvl":
			cfg.Detect.WaveletLevels = *lvl
		}
	})
	if *channels != "" {
		cfg.LowresChannels = strings.Split(*channels, ",")
	}

	return cfg, nil
}
