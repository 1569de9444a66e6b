package catalogdb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("failed to create test DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreateRunAssignsID(t *testing.T) {
	db := setupTestDB(t)

	run := &Run{
		HiresPath:      "hires.fits",
		LowresPath:     "lowres.fits",
		WaveletFilter:  true,
		WaveletLevels:  3,
		ThresholdSigma: 3.0,
		Background:     0.01,
		RMS:            0.05,
	}
	if err := db.CreateRun(run); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if run.ID == "" {
		t.Error("CreateRun did not assign an ID")
	}
	if run.CreatedUnix == 0 {
		t.Error("CreateRun did not read back creation time")
	}

	got, err := db.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if !got.WaveletFilter || got.WaveletLevels != 3 {
		t.Errorf("round trip lost wavelet settings: %+v", got)
	}
	if got.ThresholdSigma != 3.0 || got.RMS != 0.05 {
		t.Errorf("round trip lost detection settings: %+v", got)
	}
}

func TestGetRunMissing(t *testing.T) {
	db := setupTestDB(t)
	if _, err := db.GetRun("no-such-run"); err == nil {
		t.Error("GetRun on a missing ID should fail")
	}
}

func TestAddSourcesUpdatesCount(t *testing.T) {
	db := setupTestDB(t)

	run := &Run{HiresPath: "h.fits", LowresPath: "l.fits", ThresholdSigma: 3}
	if err := db.CreateRun(run); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	records := []SourceRecord{
		{Row: 45.2, Col: 12.8, RA: 149.99, Dec: 2.48, Peak: 8.1, Flux: 120.5, Area: 14},
		{Row: 20.1, Col: 40.6, RA: 150.01, Dec: 2.51, Peak: 9.7, Flux: 140.2, Area: 17},
	}
	if err := db.AddSources(run.ID, records); err != nil {
		t.Fatalf("AddSources failed: %v", err)
	}

	got, err := db.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.SourceCount != 2 {
		t.Errorf("SourceCount = %d, want 2", got.SourceCount)
	}

	sources, err := db.SourcesForRun(run.ID)
	if err != nil {
		t.Fatalf("SourcesForRun failed: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("got %d sources, want 2", len(sources))
	}
	// Ordered by pixel position regardless of insert order
	if sources[0].Row > sources[1].Row {
		t.Errorf("sources not ordered by row: %v, %v", sources[0].Row, sources[1].Row)
	}
	if sources[0].Flux != 140.2 {
		t.Errorf("first source flux = %v, want 140.2", sources[0].Flux)
	}
}

func TestAddSourcesEmptyCatalog(t *testing.T) {
	db := setupTestDB(t)

	run := &Run{HiresPath: "h.fits", LowresPath: "l.fits", ThresholdSigma: 3, SourceCount: 99}
	if err := db.CreateRun(run); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if err := db.AddSources(run.ID, nil); err != nil {
		t.Fatalf("AddSources with no records failed: %v", err)
	}

	got, err := db.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.SourceCount != 0 {
		t.Errorf("SourceCount = %d, want 0 after empty insert", got.SourceCount)
	}
}

func TestBandStatsRoundTrip(t *testing.T) {
	db := setupTestDB(t)

	run := &Run{HiresPath: "h.fits", LowresPath: "l.fits", ThresholdSigma: 3}
	require.NoError(t, db.CreateRun(run))

	stats := []BandStat{
		{RunID: run.ID, Observation: "low", Band: 0, Channel: "g", RMS: 0.12},
		{RunID: run.ID, Observation: "low", Band: 1, Channel: "r", RMS: 0.09},
		{RunID: run.ID, Observation: "high", Band: 0, Channel: "vis", RMS: 0.02},
	}
	require.NoError(t, db.AddBandStats(stats))

	got, err := db.BandStatsForRun(run.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Ordered by observation then band: high before low
	assert.Equal(t, "high", got[0].Observation)
	assert.Equal(t, "vis", got[0].Channel)
	assert.Equal(t, 0, got[1].Band)
	assert.Equal(t, 1, got[2].Band)
}

func TestRecentRunsOrder(t *testing.T) {
	db := setupTestDB(t)

	for i := 0; i < 3; i++ {
		run := &Run{HiresPath: "h.fits", LowresPath: "l.fits", ThresholdSigma: 3}
		if err := db.CreateRun(run); err != nil {
			t.Fatalf("CreateRun failed: %v", err)
		}
	}

	runs, err := db.RecentRuns(2)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].CreatedUnix < runs[1].CreatedUnix {
		t.Errorf("runs not ordered most recent first")
	}
}

func TestMigrateUpAndVersion(t *testing.T) {
	db := setupTestDB(t)

	dir := "../../db/migrations"
	if err := db.MigrateUp(dir); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	version, dirty, err := db.MigrateVersion(dir)
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if dirty {
		t.Error("database dirty after clean migration")
	}
	if version != 1 {
		t.Errorf("version = %d, want 1", version)
	}

	// Up again is a no-op
	if err := db.MigrateUp(dir); err != nil {
		t.Fatalf("second MigrateUp failed: %v", err)
	}
}
