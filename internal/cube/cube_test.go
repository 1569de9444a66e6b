package cube

import (
	"errors"
	"testing"
)

func TestNew_ChannelInvariant(t *testing.T) {
	c, err := New([]string{"g", "r", "i"}, 4, 5)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Bands() != 3 || c.Rows() != 4 || c.Cols() != 5 {
		t.Errorf("shape = (%d,%d,%d), want (3,4,5)", c.Bands(), c.Rows(), c.Cols())
	}

	if _, err := New(nil, 4, 5); !errors.Is(err, ErrShape) {
		t.Errorf("New with no channels err = %v, want ErrShape", err)
	}
	if _, err := New([]string{"g"}, 0, 5); !errors.Is(err, ErrShape) {
		t.Errorf("New with zero rows err = %v, want ErrShape", err)
	}
}

func TestFromData_LengthCheck(t *testing.T) {
	if _, err := FromData([]string{"g"}, 2, 2, make([]float64, 3)); !errors.Is(err, ErrShape) {
		t.Errorf("FromData short slice err = %v, want ErrShape", err)
	}

	data := []float64{1, 2, 3, 4}
	c, err := FromData([]string{"g"}, 2, 2, data)
	if err != nil {
		t.Fatalf("FromData: %v", err)
	}
	if c.At(0, 1, 0) != 3 {
		t.Errorf("At(0,1,0) = %v, want 3", c.At(0, 1, 0))
	}
}

func TestPlane_SharesBacking(t *testing.T) {
	c, _ := New([]string{"g", "r"}, 3, 3)
	plane := c.Plane(1)
	plane.Set(2, 2, 7.5)

	if got := c.At(1, 2, 2); got != 7.5 {
		t.Errorf("write through Plane view not visible in cube: At = %v", got)
	}
}

func TestBandSum(t *testing.T) {
	c, _ := New([]string{"g", "r"}, 2, 2)
	c.Set(0, 0, 0, 1)
	c.Set(0, 1, 1, 2)
	c.Set(1, 0, 1, 10)

	if got := c.BandSum(0); got != 3 {
		t.Errorf("BandSum(0) = %v, want 3", got)
	}
	if got := c.BandSum(1); got != 10 {
		t.Errorf("BandSum(1) = %v, want 10", got)
	}
	if got := c.TotalSum(); got != 13 {
		t.Errorf("TotalSum = %v, want 13", got)
	}
}

func TestClone_Independent(t *testing.T) {
	c, _ := New([]string{"g"}, 2, 2)
	c.Set(0, 0, 0, 1)
	d := c.Clone()
	d.Set(0, 0, 0, 9)

	if c.At(0, 0, 0) != 1 {
		t.Error("Clone shares backing with original")
	}
}

func TestNewPSF_OddInvariant(t *testing.T) {
	even, _ := New([]string{"g"}, 4, 5)
	if _, err := NewPSF(even); !errors.Is(err, ErrShape) {
		t.Errorf("NewPSF even kernel err = %v, want ErrShape", err)
	}

	odd, _ := New([]string{"g"}, 5, 5)
	p, err := NewPSF(odd)
	if err != nil {
		t.Fatalf("NewPSF: %v", err)
	}
	r, col := p.Center()
	if r != 2 || col != 2 {
		t.Errorf("Center = (%d,%d), want (2,2)", r, col)
	}
}

func TestPSF_BroadcastAndNormalize(t *testing.T) {
	k, _ := New([]string{"all"}, 3, 3)
	k.Set(0, 1, 1, 2)
	k.Set(0, 0, 1, 2)
	p, err := NewPSF(k)
	if err != nil {
		t.Fatalf("NewPSF: %v", err)
	}

	// Single kernel broadcasts to any band index
	if p.Kernel(0) == nil || p.Kernel(4) == nil {
		t.Fatal("broadcast kernel missing")
	}

	p.Normalize()
	sum := 0.0
	kernel := p.Kernel(0)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			sum += kernel.At(r, c)
		}
	}
	if sum < 0.999 || sum > 1.001 {
		t.Errorf("normalized kernel sum = %v, want 1", sum)
	}
}
