package units

import (
	"math"
	"testing"
)

func TestDegRadRoundTrip(t *testing.T) {
	for _, deg := range []float64{0, 1, -45, 90, 180, 359.9} {
		got := RadToDeg(DegToRad(deg))
		if math.Abs(got-deg) > 1e-12 {
			t.Errorf("RadToDeg(DegToRad(%v)) = %v", deg, got)
		}
	}
}

func TestArcsecConversion(t *testing.T) {
	if got := DegToArcsec(1.0); got != 3600.0 {
		t.Errorf("DegToArcsec(1) = %v, want 3600", got)
	}
	if got := ArcsecToDeg(0.2); math.Abs(got-0.2/3600.0) > 1e-15 {
		t.Errorf("ArcsecToDeg(0.2) = %v", got)
	}
}

func TestNormalizeDeg(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{0, 0},
		{360, 0},
		{-10, 350},
		{725, 5},
	}
	for _, c := range cases {
		if got := NormalizeDeg(c.in); math.Abs(got-c.want) > 1e-9 {
			t.Errorf("NormalizeDeg(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestFormatRA(t *testing.T) {
	// 150 deg = 10h
	if got := FormatRA(150.0); got != "10:00:00.000" {
		t.Errorf("FormatRA(150) = %q", got)
	}
}

func TestFormatDec(t *testing.T) {
	if got := FormatDec(-2.5); got != "-02:30:00.00" {
		t.Errorf("FormatDec(-2.5) = %q", got)
	}
	if got := FormatDec(2.5); got != "+02:30:00.00" {
		t.Errorf("FormatDec(2.5) = %q", got)
	}
}

func TestFluxToMag(t *testing.T) {
	if got := FluxToMag(100, 25); math.Abs(got-20.0) > 1e-12 {
		t.Errorf("FluxToMag(100, 25) = %v, want 20", got)
	}
	if got := FluxToMag(0, 25); !math.IsNaN(got) {
		t.Errorf("FluxToMag(0, 25) = %v, want NaN", got)
	}
}
