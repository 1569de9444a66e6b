package frame

import (
	"errors"
	"math"
	"testing"

	"github.com/orion-data/blendscan.report/internal/cube"
	"github.com/orion-data/blendscan.report/internal/wcs"
)

func testMapper(rows, cols int) wcs.Mapper {
	return wcs.NewLinear(wcs.Reference{System: "ICRS"},
		float64(rows)/2, float64(cols)/2, 150.0, 2.5, 1.0/3600.0)
}

func TestNewObservation_PSFBandCheck(t *testing.T) {
	img, _ := cube.New([]string{"g", "r", "i"}, 8, 8)

	two, _ := cube.New([]string{"a", "b"}, 3, 3)
	psf2, _ := cube.NewPSF(two)
	if _, err := NewObservation(img, psf2, testMapper(8, 8)); !errors.Is(err, cube.ErrShape) {
		t.Errorf("2-kernel PSF for 3 bands err = %v, want ErrShape", err)
	}

	one, _ := cube.New([]string{"all"}, 3, 3)
	psf1, _ := cube.NewPSF(one)
	if _, err := NewObservation(img, psf1, testMapper(8, 8)); err != nil {
		t.Errorf("broadcast PSF rejected: %v", err)
	}

	if _, err := NewObservation(img, nil, testMapper(8, 8)); err != nil {
		t.Errorf("nil PSF rejected: %v", err)
	}
}

func TestSetFlatWeights(t *testing.T) {
	img, _ := cube.New([]string{"g", "r"}, 4, 4)
	obs, _ := NewObservation(img, nil, testMapper(4, 4))

	if err := obs.SetFlatWeights([]float64{2.0, 0.0}); err != nil {
		t.Fatalf("SetFlatWeights: %v", err)
	}

	if got := obs.Weights.At(0, 1, 1); math.Abs(got-0.25) > 1e-12 {
		t.Errorf("weight band 0 = %v, want 0.25", got)
	}
	// Zero RMS must give zero weight, not +Inf
	if got := obs.Weights.At(1, 1, 1); got != 0 {
		t.Errorf("weight for zero-RMS band = %v, want 0", got)
	}

	if err := obs.SetFlatWeights([]float64{1.0}); !errors.Is(err, cube.ErrShape) {
		t.Errorf("wrong RMS count err = %v, want ErrShape", err)
	}
}

func TestSED(t *testing.T) {
	img, _ := cube.New([]string{"g", "r"}, 8, 8)
	img.Set(0, 4, 4, 3.5)
	img.Set(1, 4, 4, 7.0)
	obs, _ := NewObservation(img, nil, testMapper(8, 8))

	// Reference pixel (4,4) sits at (150, 2.5)
	sed, err := obs.SED(150.0, 2.5)
	if err != nil {
		t.Fatalf("SED: %v", err)
	}
	if sed[0] != 3.5 || sed[1] != 7.0 {
		t.Errorf("SED = %v, want [3.5 7]", sed)
	}

	// A position far off the grid is an error
	if _, err := obs.SED(151.0, 2.5); err == nil {
		t.Error("SED outside the image returned nil error")
	}
}
