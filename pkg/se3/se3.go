// Package se3 provides rigid 3D transforms and their tangent-space
// parameterization. A rigid motion near identity is represented by a
// 6-vector (three rotation generators in radians, three translations in
// millimeters) and converted to a 4x4 homogeneous matrix through the
// closed-form exponential map.
package se3

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// smallAngle is the rotation magnitude below which the exponential map
// and the angle extraction switch to their Taylor-expanded forms to
// avoid dividing by a vanishing angle.
const smallAngle = 1e-6

// Vector is an se(3) tangent vector: (rx, ry, rz) rotation generators
// in radians followed by (tx, ty, tz) translations in millimeters.
type Vector [6]float64

// Transform is a 4x4 homogeneous rigid transform: an orthonormal 3x3
// rotation block, a 3x1 translation column and a fixed [0 0 0 1]
// bottom row.
type Transform struct {
	m *mat.Dense
}

// SingularError reports a transform that could not be inverted. It
// wraps the underlying matrix condition error so callers can still
// inspect it.
type SingularError struct {
	Name string
	Err  error
}

func (e *SingularError) Error() string {
	return fmt.Sprintf("transform %q is singular or badly conditioned: %v", e.Name, e.Err)
}

func (e *SingularError) Unwrap() error { return e.Err }

// Identity returns a new identity transform.
func Identity() *Transform {
	t := &Transform{m: mat.NewDense(4, 4, nil)}
	for i := 0; i < 4; i++ {
		t.m.Set(i, i, 1)
	}
	return t
}

// FromRowMajor builds a transform from 16 row-major values. The bottom
// row is taken as given; callers loading external matrices should pass
// well-formed homogeneous data.
func FromRowMajor(vals []float64) (*Transform, error) {
	if len(vals) != 16 {
		return nil, fmt.Errorf("expected 16 matrix entries, got %d", len(vals))
	}
	cp := make([]float64, 16)
	copy(cp, vals)
	return &Transform{m: mat.NewDense(4, 4, cp)}, nil
}

// At returns the matrix entry at row r, column c.
func (t *Transform) At(r, c int) float64 { return t.m.At(r, c) }

// Set assigns the matrix entry at row r, column c.
func (t *Transform) Set(r, c int, v float64) { t.m.Set(r, c, v) }

// RowMajor returns the 16 entries of the matrix in row-major order.
func (t *Transform) RowMajor() [16]float64 {
	var out [16]float64
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			out[r*4+c] = t.m.At(r, c)
		}
	}
	return out
}

// Translation returns the translation column.
func (t *Transform) Translation() [3]float64 {
	return [3]float64{t.m.At(0, 3), t.m.At(1, 3), t.m.At(2, 3)}
}

// SetTranslation overwrites the translation column.
func (t *Transform) SetTranslation(p [3]float64) {
	t.m.Set(0, 3, p[0])
	t.m.Set(1, 3, p[1])
	t.m.Set(2, 3, p[2])
}

// Clone returns a deep copy of the transform.
func (t *Transform) Clone() *Transform {
	c := mat.NewDense(4, 4, nil)
	c.Copy(t.m)
	return &Transform{m: c}
}

// Mul returns the product a*b.
func Mul(a, b *Transform) *Transform {
	out := mat.NewDense(4, 4, nil)
	out.Mul(a.m, b.m)
	return &Transform{m: out}
}

// Inverse returns the inverse transform. The name identifies the
// transform in the error when the matrix turns out to be singular,
// which for well-formed input data should never happen.
func (t *Transform) Inverse(name string) (*Transform, error) {
	inv := mat.NewDense(4, 4, nil)
	if err := inv.Inverse(t.m); err != nil {
		return nil, &SingularError{Name: name, Err: err}
	}
	return &Transform{m: inv}, nil
}

// ApplyPoint transforms a 3D point (homogeneous coordinate 1).
func (t *Transform) ApplyPoint(p [3]float64) [3]float64 {
	var out [3]float64
	for r := 0; r < 3; r++ {
		out[r] = t.m.At(r, 0)*p[0] + t.m.At(r, 1)*p[1] + t.m.At(r, 2)*p[2] + t.m.At(r, 3)
	}
	return out
}

// ApplyVector transforms a 3D direction (homogeneous coordinate 0),
// applying only the rotation block.
func (t *Transform) ApplyVector(v [3]float64) [3]float64 {
	var out [3]float64
	for r := 0; r < 3; r++ {
		out[r] = t.m.At(r, 0)*v[0] + t.m.At(r, 1)*v[1] + t.m.At(r, 2)*v[2]
	}
	return out
}

// EqualApprox reports whether two transforms agree entrywise within tol.
func EqualApprox(a, b *Transform, tol float64) bool {
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			if math.Abs(a.m.At(r, c)-b.m.At(r, c)) > tol {
				return false
			}
		}
	}
	return true
}

// DegToRad converts degrees to radians.
func DegToRad(d float64) float64 { return d * math.Pi / 180 }

// RadToDeg converts radians to degrees.
func RadToDeg(r float64) float64 { return r * 180 / math.Pi }

// Exp converts a tangent vector into a rigid transform via the
// closed-form se(3) exponential map. The rotation generators map to a
// rotation matrix through the angle-axis (Rodrigues) formula and the
// translation couples with the rotation through the left Jacobian, so
// the tx/ty/tz components are not copied verbatim into the translation
// column unless the rotation is zero. Below smallAngle the
// trigonometric coefficients are replaced by their Taylor expansions,
// which makes the function total over all of R^6.
func Exp(v Vector) *Transform {
	wx, wy, wz := v[0], v[1], v[2]
	theta := math.Sqrt(wx*wx + wy*wy + wz*wz)

	// K is the skew-symmetric matrix of the (unnormalized) rotation
	// generators; R = I + a*K + b*K^2, t = (I + c*K + d*K^2) * u.
	k := [3][3]float64{
		{0, -wz, wy},
		{wz, 0, -wx},
		{-wy, wx, 0},
	}
	var k2 [3][3]float64
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			k2[r][c] = k[r][0]*k[0][c] + k[r][1]*k[1][c] + k[r][2]*k[2][c]
		}
	}

	var a, b, c, d float64
	if theta < smallAngle {
		// Taylor expansions about theta = 0.
		a = 1 - theta*theta/6
		b = 0.5 - theta*theta/24
		c = 0.5 - theta*theta/24
		d = 1.0/6 - theta*theta/120
	} else {
		t2 := theta * theta
		a = math.Sin(theta) / theta
		b = (1 - math.Cos(theta)) / t2
		c = b
		d = (theta - math.Sin(theta)) / (t2 * theta)
	}

	out := Identity()
	for r := 0; r < 3; r++ {
		for cc := 0; cc < 3; cc++ {
			var id float64
			if r == cc {
				id = 1
			}
			out.m.Set(r, cc, id+a*k[r][cc]+b*k2[r][cc])
		}
	}

	u := [3]float64{v[3], v[4], v[5]}
	var trans [3]float64
	for r := 0; r < 3; r++ {
		trans[r] = u[r]
		for cc := 0; cc < 3; cc++ {
			trans[r] += (c*k[r][cc] + d*k2[r][cc]) * u[cc]
		}
	}
	out.SetTranslation(trans)
	return out
}
