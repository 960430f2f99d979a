// Package camera models the projection geometry of a single X-ray
// view: a pinhole intrinsic matrix, the camera extrinsic transform and
// the detector dimensions. The model is read-only once constructed.
package camera

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/liamjwang/xreg/pkg/se3"
)

// Model describes one calibrated projection geometry.
type Model struct {
	// Intrinsic is the 3x3 pinhole matrix mapping camera-frame
	// directions to pixel coordinates.
	Intrinsic *mat.Dense

	// Extrinsic maps the world/projection frame into the camera frame;
	// ExtrinsicInv is its cached inverse.
	Extrinsic    *se3.Transform
	ExtrinsicInv *se3.Transform

	// Detector dimensions and physical pixel spacings in millimeters.
	Rows, Cols             int
	RowSpacing, ColSpacing float64
}

// NewModel validates the calibration and caches the extrinsic inverse.
func NewModel(intrinsic *mat.Dense, extrinsic *se3.Transform, rows, cols int, rowSpacing, colSpacing float64) (*Model, error) {
	r, c := intrinsic.Dims()
	if r != 3 || c != 3 {
		return nil, fmt.Errorf("intrinsic matrix must be 3x3, got %dx%d", r, c)
	}
	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("detector dimensions must be positive, got %dx%d", rows, cols)
	}

	inv, err := extrinsic.Inverse("camera extrinsic")
	if err != nil {
		return nil, err
	}

	return &Model{
		Intrinsic:    mat.DenseCopyOf(intrinsic),
		Extrinsic:    extrinsic.Clone(),
		ExtrinsicInv: inv,
		Rows:         rows,
		Cols:         cols,
		RowSpacing:   rowSpacing,
		ColSpacing:   colSpacing,
	}, nil
}

// PixelRay returns the unit direction, in the camera projection frame,
// of the ray from the camera origin through detector pixel
// (row, col). Pixel coordinates follow the intrinsic matrix convention:
// column is the horizontal image coordinate.
func (m *Model) PixelRay(row, col float64) [3]float64 {
	fx := m.Intrinsic.At(0, 0)
	skew := m.Intrinsic.At(0, 1)
	cx := m.Intrinsic.At(0, 2)
	fy := m.Intrinsic.At(1, 1)
	cy := m.Intrinsic.At(1, 2)

	// Back-project through the upper-triangular intrinsic matrix.
	y := (row - cy) / fy
	x := (col - cx - skew*y) / fx

	n := math.Sqrt(x*x + y*y + 1)
	return [3]float64{x / n, y / n, 1 / n}
}
