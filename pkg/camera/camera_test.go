package camera

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/liamjwang/xreg/pkg/se3"
)

func testIntrinsic() *mat.Dense {
	// 1000 mm focal length, principal point at (256, 256)
	return mat.NewDense(3, 3, []float64{
		1000, 0, 256,
		0, 1000, 256,
		0, 0, 1,
	})
}

// TestNewModelValidation verifies rejection of malformed calibrations
func TestNewModelValidation(t *testing.T) {
	if _, err := NewModel(mat.NewDense(2, 2, nil), se3.Identity(), 512, 512, 0.5, 0.5); err == nil {
		t.Error("expected an error for a non-3x3 intrinsic matrix")
	}
	if _, err := NewModel(testIntrinsic(), se3.Identity(), 0, 512, 0.5, 0.5); err == nil {
		t.Error("expected an error for zero detector rows")
	}

	degenerate := se3.Identity()
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			degenerate.Set(r, c, 0)
		}
	}
	if _, err := NewModel(testIntrinsic(), degenerate, 512, 512, 0.5, 0.5); err == nil {
		t.Error("expected an error for a singular extrinsic")
	}
}

// TestPixelRayPrincipalPoint verifies that the ray through the
// principal point is the optical axis
func TestPixelRayPrincipalPoint(t *testing.T) {
	m, err := NewModel(testIntrinsic(), se3.Identity(), 512, 512, 0.5, 0.5)
	if err != nil {
		t.Fatal(err)
	}

	d := m.PixelRay(256, 256)
	want := [3]float64{0, 0, 1}
	for i := range want {
		if math.Abs(d[i]-want[i]) > 1e-12 {
			t.Errorf("component %d: expected %f, got %f", i, want[i], d[i])
		}
	}
}

// TestPixelRayOffAxis verifies direction and normalization for an
// off-axis pixel
func TestPixelRayOffAxis(t *testing.T) {
	m, err := NewModel(testIntrinsic(), se3.Identity(), 512, 512, 0.5, 0.5)
	if err != nil {
		t.Fatal(err)
	}

	d := m.PixelRay(256, 356) // 100 pixels right of center
	norm := math.Sqrt(d[0]*d[0] + d[1]*d[1] + d[2]*d[2])
	if math.Abs(norm-1) > 1e-12 {
		t.Errorf("ray direction should be unit length, got %f", norm)
	}

	// tan of the angle off axis should be 100/1000
	if math.Abs(d[0]/d[2]-0.1) > 1e-12 {
		t.Errorf("expected x/z ratio 0.1, got %f", d[0]/d[2])
	}
	if math.Abs(d[1]) > 1e-12 {
		t.Errorf("expected zero y component, got %f", d[1])
	}
}
