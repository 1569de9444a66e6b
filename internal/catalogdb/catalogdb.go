// Package catalogdb persists detection runs and their source catalogs in a
// sqlite database.
package catalogdb

import (
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/orion-data/blendscan.report/internal/monitoring"
)

type DB struct {
	*sql.DB
}

// schema.sql bootstraps the catalog tables. Every statement is idempotent,
// so opening an already-migrated database is a no-op.
//
//go:embed schema.sql
var schemaSQL string

// New opens (creating if needed) the catalog database at path and ensures
// the schema exists.
func New(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize catalog schema: %w", err)
	}

	monitoring.Debugf("catalogdb: schema ready at %s", path)
	return &DB{db}, nil
}

// Run is one recorded detection run.
type Run struct {
	ID             string  `json:"id"`
	HiresPath      string  `json:"hires_path"`
	LowresPath     string  `json:"lowres_path"`
	WaveletFilter  bool    `json:"wavelet_filter"`
	WaveletLevels  int     `json:"wavelet_levels"`
	ThresholdSigma float64 `json:"threshold_sigma"`
	Background     float64 `json:"background"`
	RMS            float64 `json:"rms"`
	SourceCount    int     `json:"source_count"`
	CreatedUnix    float64 `json:"created_unix"`
}

// SourceRecord is one catalog entry tied to a run. Row and Col are
// high-resolution pixel coordinates, RA and Dec degrees.
type SourceRecord struct {
	ID    int64   `json:"id"`
	RunID string  `json:"run_id"`
	Row   float64 `json:"row"`
	Col   float64 `json:"col"`
	RA    float64 `json:"ra"`
	Dec   float64 `json:"dec"`
	Peak  float64 `json:"peak"`
	Flux  float64 `json:"flux"`
	Area  int     `json:"area"`
}

// BandStat is the background RMS of one band of one observation in a run.
// Observation is "low" or "high".
type BandStat struct {
	RunID       string  `json:"run_id"`
	Observation string  `json:"observation"`
	Band        int     `json:"band"`
	Channel     string  `json:"channel"`
	RMS         float64 `json:"rms"`
}

// CreateRun inserts a run record. A missing ID is assigned a fresh UUID;
// the assigned ID and creation time are written back to run.
func (db *DB) CreateRun(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	wavelet := 0
	if run.WaveletFilter {
		wavelet = 1
	}

	query := `
		INSERT INTO runs (
			id, hires_path, lowres_path, wavelet_filter, wavelet_levels,
			threshold_sigma, background, rms, source_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.Exec(query,
		run.ID, run.HiresPath, run.LowresPath, wavelet, run.WaveletLevels,
		run.ThresholdSigma, run.Background, run.RMS, run.SourceCount,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	err = db.QueryRow("SELECT created_unix FROM runs WHERE id = ?", run.ID).
		Scan(&run.CreatedUnix)
	if err != nil {
		return fmt.Errorf("failed to read back run creation time: %w", err)
	}
	return nil
}

// AddSources inserts the catalog for a run in one transaction and updates
// the run's source count.
func (db *DB) AddSources(runID string, records []SourceRecord) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO sources (run_id, row_px, col_px, ra_deg, dec_deg, peak, flux, area)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare source insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.Exec(runID, rec.Row, rec.Col, rec.RA, rec.Dec,
			rec.Peak, rec.Flux, rec.Area); err != nil {
			return fmt.Errorf("failed to insert source: %w", err)
		}
	}

	if _, err := tx.Exec("UPDATE runs SET source_count = ? WHERE id = ?",
		len(records), runID); err != nil {
		return fmt.Errorf("failed to update source count: %w", err)
	}

	return tx.Commit()
}

// AddBandStats inserts per-band background statistics for a run.
func (db *DB) AddBandStats(stats []BandStat) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO band_stats (run_id, observation, band, channel, rms)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare band stat insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range stats {
		if _, err := stmt.Exec(s.RunID, s.Observation, s.Band, s.Channel, s.RMS); err != nil {
			return fmt.Errorf("failed to insert band stat: %w", err)
		}
	}

	return tx.Commit()
}

// GetRun retrieves one run by ID.
func (db *DB) GetRun(id string) (*Run, error) {
	query := `
		SELECT id, hires_path, lowres_path, wavelet_filter, wavelet_levels,
		       threshold_sigma, background, rms, source_count, created_unix
		FROM runs WHERE id = ?
	`
	var run Run
	var wavelet int
	err := db.QueryRow(query, id).Scan(
		&run.ID, &run.HiresPath, &run.LowresPath, &wavelet, &run.WaveletLevels,
		&run.ThresholdSigma, &run.Background, &run.RMS, &run.SourceCount,
		&run.CreatedUnix,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	run.WaveletFilter = wavelet != 0
	return &run, nil
}

// RecentRuns returns up to limit runs, most recent first.
func (db *DB) RecentRuns(limit int) ([]Run, error) {
	query := `
		SELECT id, hires_path, lowres_path, wavelet_filter, wavelet_levels,
		       threshold_sigma, background, rms, source_count, created_unix
		FROM runs ORDER BY created_unix DESC LIMIT ?
	`
	rows, err := db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var wavelet int
		if err := rows.Scan(
			&run.ID, &run.HiresPath, &run.LowresPath, &wavelet, &run.WaveletLevels,
			&run.ThresholdSigma, &run.Background, &run.RMS, &run.SourceCount,
			&run.CreatedUnix,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		run.WaveletFilter = wavelet != 0
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// SourcesForRun returns a run's catalog ordered by pixel position.
func (db *DB) SourcesForRun(runID string) ([]SourceRecord, error) {
	query := `
		SELECT id, run_id, row_px, col_px, ra_deg, dec_deg, peak, flux, area
		FROM sources WHERE run_id = ?
		ORDER BY row_px, col_px
	`
	rows, err := db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer rows.Close()

	var records []SourceRecord
	for rows.Next() {
		var rec SourceRecord
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.Row, &rec.Col,
			&rec.RA, &rec.Dec, &rec.Peak, &rec.Flux, &rec.Area); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// BandStatsForRun returns a run's per-band statistics ordered by
// observation then band.
func (db *DB) BandStatsForRun(runID string) ([]BandStat, error) {
	query := `
		SELECT run_id, observation, band, channel, rms
		FROM band_stats WHERE run_id = ?
		ORDER BY observation, band
	`
	rows, err := db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query band stats: %w", err)
	}
	defer rows.Close()

	var stats []BandStat
	for rows.Next() {
		var s BandStat
		if err := rows.Scan(&s.RunID, &s.Observation, &s.Band, &s.Channel, &s.RMS); err != nil {
			return nil, fmt.Errorf("failed to scan band stat row: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
