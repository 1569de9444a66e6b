package fits

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/orion-data/blendscan.report/internal/cube"
)

func writeTestCube(t *testing.T, bands, rows, cols int) (string, *cube.Cube) {
	t.Helper()

	channels := make([]string, bands)
	for b := range channels {
		channels[b] = "b"
	}
	c, err := cube.New(channels, rows, cols)
	if err != nil {
		t.Fatalf("cube.New: %v", err)
	}
	for i, d := 0, c.Data(); i < len(d); i++ {
		d[i] = float64(i) * 0.5
	}

	path := filepath.Join(t.TempDir(), "scene.fits")
	cards := LinearWCSCards(float64(rows)/2, float64(cols)/2, 150.0, 2.5, 1.0/3600.0)
	if err := Save(path, c, cards); err != nil {
		t.Fatalf("Save: %v", err)
	}
	return path, c
}

func TestSaveLoad_RoundTrip3D(t *testing.T) {
	path, want := writeTestCube(t, 3, 8, 10)

	im, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if im.Bands != 3 || im.Rows != 8 || im.Cols != 10 {
		t.Fatalf("shape = (%d,%d,%d), want (3,8,10)", im.Bands, im.Rows, im.Cols)
	}

	got, err := im.Cube(nil)
	if err != nil {
		t.Fatalf("Cube: %v", err)
	}
	for i := range want.Data() {
		if math.Abs(got.Data()[i]-want.Data()[i]) > 1e-12 {
			t.Fatalf("data[%d] = %v, want %v", i, got.Data()[i], want.Data()[i])
		}
	}
}

func TestSaveLoad_RoundTrip2D(t *testing.T) {
	path, _ := writeTestCube(t, 1, 6, 6)

	im, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if im.Bands != 1 || im.Rows != 6 || im.Cols != 6 {
		t.Errorf("shape = (%d,%d,%d), want (1,6,6)", im.Bands, im.Rows, im.Cols)
	}
}

func TestMapper_FromLinearCards(t *testing.T) {
	path, _ := writeTestCube(t, 1, 6, 6)

	im, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	m, err := im.Mapper()
	if err != nil {
		t.Fatalf("Mapper: %v", err)
	}

	// The reference pixel must land on the reference sky position.
	ra, dec := m.ToSky(3, 3)
	if math.Abs(ra-150.0) > 1e-9 || math.Abs(dec-2.5) > 1e-9 {
		t.Errorf("ToSky(refpix) = (%v,%v), want (150, 2.5)", ra, dec)
	}
	if m.Reference().System != "ICRS" {
		t.Errorf("Reference.System = %q, want ICRS", m.Reference().System)
	}
}

func TestImage_ChannelMismatch(t *testing.T) {
	path, _ := writeTestCube(t, 3, 4, 4)

	im, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := im.Cube([]string{"g", "r"}); err == nil {
		t.Error("Cube accepted 2 labels for 3 bands")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.fits")); err == nil {
		t.Error("Load(absent) returned nil error")
	}
}
