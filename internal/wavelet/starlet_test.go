package wavelet

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func randomImage(rows, cols int, seed int64) *mat.Dense {
	rng := rand.New(rand.NewSource(seed))
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	return mat.NewDense(rows, cols, data)
}

func TestDecompose_ExactReconstruction(t *testing.T) {
	img := randomImage(32, 32, 1)

	planes, err := Decompose(img, 4)
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}
	if len(planes) != 5 {
		t.Fatalf("plane count = %d, want 5 (4 details + coarse)", len(planes))
	}

	recon := SumLevels(planes, len(planes))
	for r := 0; r < 32; r++ {
		for c := 0; c < 32; c++ {
			if math.Abs(recon.At(r, c)-img.At(r, c)) > 1e-10 {
				t.Fatalf("reconstruction at (%d,%d): got %v, want %v",
					r, c, recon.At(r, c), img.At(r, c))
			}
		}
	}
}

func TestSumLevels_ClampsBeyondDepth(t *testing.T) {
	img := randomImage(16, 16, 2)
	planes, err := Decompose(img, 3)
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}

	all := SumLevels(planes, len(planes))
	over := SumLevels(planes, 99)
	for r := 0; r < 16; r++ {
		for c := 0; c < 16; c++ {
			if all.At(r, c) != over.At(r, c) {
				t.Fatalf("SumLevels over depth differs at (%d,%d)", r, c)
			}
		}
	}
}

func TestDecompose_CoarseAbsorbsConstant(t *testing.T) {
	// A constant image has no detail at any scale: every detail plane is
	// zero and the coarse plane carries the constant unchanged.
	rows, cols := 24, 24
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = 3.25
	}
	img := mat.NewDense(rows, cols, data)

	planes, err := Decompose(img, 3)
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}

	for lvl := 0; lvl < 3; lvl++ {
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				if math.Abs(planes[lvl].At(r, c)) > 1e-12 {
					t.Fatalf("detail level %d non-zero at (%d,%d): %v", lvl, r, c, planes[lvl].At(r, c))
				}
			}
		}
	}
	coarse := planes[3]
	if math.Abs(coarse.At(12, 12)-3.25) > 1e-12 {
		t.Errorf("coarse plane = %v, want 3.25", coarse.At(12, 12))
	}
}

func TestDecompose_CompactSourceConcentratesInFineLevels(t *testing.T) {
	// A point-like bump should put most of its energy into the fine levels,
	// which is why detection keeps only the first few.
	rows, cols := 32, 32
	img := mat.NewDense(rows, cols, nil)
	img.Set(16, 16, 100.0)

	planes, err := Decompose(img, 4)
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}

	fine := SumLevels(planes, 2)
	if fine.At(16, 16) < 50.0 {
		t.Errorf("fine levels at peak = %v, want > 50", fine.At(16, 16))
	}
	coarse := planes[len(planes)-1]
	if coarse.At(16, 16) > 10.0 {
		t.Errorf("coarse plane at peak = %v, want < 10", coarse.At(16, 16))
	}
}

func TestDecompose_InvalidArgs(t *testing.T) {
	img := randomImage(8, 8, 3)
	if _, err := Decompose(img, 0); err == nil {
		t.Error("Decompose accepted zero levels")
	}
}

func TestMirror(t *testing.T) {
	cases := []struct{ i, n, want int }{
		{0, 8, 0},
		{-1, 8, 0},
		{-2, 8, 1},
		{8, 8, 7},
		{9, 8, 6},
		{7, 8, 7},
	}
	for _, c := range cases {
		if got := mirror(c.i, c.n); got != c.want {
			t.Errorf("mirror(%d,%d) = %d, want %d", c.i, c.n, got, c.want)
		}
	}
}
