package se3

import (
	"errors"
	"math"
	"testing"

	"golang.org/x/exp/rand"
)

// TestExpZeroVector verifies that the exponential map of the zero
// vector is exactly the identity transform
func TestExpZeroVector(t *testing.T) {
	got := Exp(Vector{})
	want := Identity()

	if !EqualApprox(got, want, 0) {
		t.Errorf("Exp(0) should be exactly identity, got %v", got.RowMajor())
	}
}

// TestExpPureTranslation verifies that with zero rotation generators
// the translation components pass through unchanged
func TestExpPureTranslation(t *testing.T) {
	got := Exp(Vector{0, 0, 0, 1.5, -2.0, 4.25})

	trans := got.Translation()
	want := [3]float64{1.5, -2.0, 4.25}
	for i := range want {
		if math.Abs(trans[i]-want[i]) > 1e-15 {
			t.Errorf("translation component %d: expected %f, got %f", i, want[i], trans[i])
		}
	}

	// Rotation block must be identity
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			want := 0.0
			if r == c {
				want = 1.0
			}
			if math.Abs(got.At(r, c)-want) > 1e-15 {
				t.Errorf("rotation block (%d,%d): expected %f, got %f", r, c, want, got.At(r, c))
			}
		}
	}
}

// TestExpSmallAngleStability verifies numerical stability as the
// rotation magnitude approaches zero: no NaNs and a smooth limit
func TestExpSmallAngleStability(t *testing.T) {
	for _, eps := range []float64{1e-6, 1e-9, 1e-12, 1e-300} {
		got := Exp(Vector{eps, 0, 0, 1, 1, 1})
		for _, v := range got.RowMajor() {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("Exp with rotation %g produced non-finite entry %v", eps, v)
			}
		}
		// Must stay close to the pure-translation limit
		trans := got.Translation()
		for i, want := range [3]float64{1, 1, 1} {
			if math.Abs(trans[i]-want) > 1e-5 {
				t.Errorf("rotation %g: translation %d drifted to %f", eps, i, trans[i])
			}
		}
	}
}

// TestExpRotationProperties verifies that the rotation block of sampled
// exponentials is orthonormal with determinant +1
func TestExpRotationProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		v := Vector{}
		for d := 0; d < 3; d++ {
			v[d] = (rng.Float64() - 0.5) * 2 * math.Pi
			v[d+3] = (rng.Float64() - 0.5) * 100
		}
		tf := Exp(v)

		// Orthonormality: R * R^T == I
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				dot := 0.0
				for k := 0; k < 3; k++ {
					dot += tf.At(r, k) * tf.At(c, k)
				}
				want := 0.0
				if r == c {
					want = 1.0
				}
				if math.Abs(dot-want) > 1e-12 {
					t.Fatalf("sample %d: R*R^T (%d,%d) = %f, want %f", i, r, c, dot, want)
				}
			}
		}

		// Determinant of the rotation block must be +1
		det := tf.At(0, 0)*(tf.At(1, 1)*tf.At(2, 2)-tf.At(1, 2)*tf.At(2, 1)) -
			tf.At(0, 1)*(tf.At(1, 0)*tf.At(2, 2)-tf.At(1, 2)*tf.At(2, 0)) +
			tf.At(0, 2)*(tf.At(1, 0)*tf.At(2, 1)-tf.At(1, 1)*tf.At(2, 0))
		if math.Abs(det-1) > 1e-12 {
			t.Fatalf("sample %d: rotation determinant %f, want 1", i, det)
		}

		// Bottom row stays [0 0 0 1]
		for c := 0; c < 3; c++ {
			if tf.At(3, c) != 0 {
				t.Fatalf("sample %d: bottom row entry %d is %f", i, c, tf.At(3, c))
			}
		}
		if tf.At(3, 3) != 1 {
			t.Fatalf("sample %d: bottom-right entry is %f", i, tf.At(3, 3))
		}
	}
}

// TestRotationAngleMatchesGenerator verifies that the extracted total
// rotation angle equals the norm of the rotation generators
func TestRotationAngleMatchesGenerator(t *testing.T) {
	cases := []struct {
		v    Vector
		want float64
	}{
		{Vector{}, 0},
		{Vector{0.3, 0, 0, 0, 0, 0}, 0.3},
		{Vector{0, -0.25, 0, 5, 5, 5}, 0.25},
		{Vector{0.1, 0.2, 0.2, 0, 0, 0}, 0.3},
	}
	for _, tc := range cases {
		got := RotationAngle(Exp(tc.v))
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("rotation angle for %v: expected %f, got %f", tc.v, tc.want, got)
		}
	}
}

// TestTranslationMag verifies the translation magnitude on a known case
func TestTranslationMag(t *testing.T) {
	tf := Identity()
	tf.SetTranslation([3]float64{3, 4, 12})
	if got := TranslationMag(tf); math.Abs(got-13) > 1e-12 {
		t.Errorf("expected translation magnitude 13, got %f", got)
	}
}

// TestEulerRoundTrip verifies the round-trip law: reconstructing a
// transform from its Euler-XYZ decomposition and translation reproduces
// the original within 1e-6 on every matrix entry
func TestEulerRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 1000; i++ {
		v := Vector{}
		for d := 0; d < 3; d++ {
			v[d] = (rng.Float64() - 0.5) * 2 * math.Pi
			v[d+3] = (rng.Float64() - 0.5) * 200
		}
		orig := Exp(v)

		ax, ay, az := EulerXYZ(orig)
		trans := orig.Translation()
		recon := FromEuler(ax, ay, az, trans[0], trans[1], trans[2])

		if !EqualApprox(orig, recon, 1e-6) {
			t.Fatalf("round trip %d failed:\norig:  %v\nrecon: %v", i, orig.RowMajor(), recon.RowMajor())
		}
	}
}

// TestEulerGimbalLock verifies that the documented gimbal-lock
// resolution (Z angle forced to zero) still reconstructs the rotation
func TestEulerGimbalLock(t *testing.T) {
	for _, ay := range []float64{math.Pi / 2, -math.Pi / 2} {
		orig := FromEuler(0.4, ay, 0, 0, 0, 0)
		gax, gay, gaz := EulerXYZ(orig)
		if gaz != 0 {
			t.Errorf("expected zero Z angle at gimbal lock, got %f", gaz)
		}
		recon := FromEuler(gax, gay, gaz, 0, 0, 0)
		if !EqualApprox(orig, recon, 1e-6) {
			t.Errorf("gimbal-lock reconstruction failed for ay=%f", ay)
		}
	}
}

// TestInverse verifies that Inverse produces an actual inverse and that
// a degenerate matrix is reported rather than silently propagated
func TestInverse(t *testing.T) {
	tf := Exp(Vector{0.2, -0.1, 0.3, 10, -5, 2})
	inv, err := tf.Inverse("test")
	if err != nil {
		t.Fatalf("unexpected inverse error: %v", err)
	}
	if !EqualApprox(Mul(tf, inv), Identity(), 1e-12) {
		t.Error("T * T^-1 should be identity")
	}

	// All-zero matrix is singular
	zero := Identity()
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			zero.Set(r, c, 0)
		}
	}
	if _, err := zero.Inverse("degenerate"); err == nil {
		t.Error("expected an error inverting a zero matrix")
	} else {
		var se *SingularError
		if !errors.As(err, &se) {
			t.Errorf("expected SingularError, got %T", err)
		} else if se.Name != "degenerate" {
			t.Errorf("expected error to name the transform, got %q", se.Name)
		}
	}
}

// TestApplyPoint verifies that applying a transform and then its
// inverse returns the original point
func TestApplyPoint(t *testing.T) {
	tf := Exp(Vector{0, 0, math.Pi / 2, 1, 0, 0})
	got := tf.ApplyPoint([3]float64{1, 0, 0})

	inv, err := tf.Inverse("roundtrip")
	if err != nil {
		t.Fatal(err)
	}
	back := inv.ApplyPoint(got)
	for i, w := range [3]float64{1, 0, 0} {
		if math.Abs(back[i]-w) > 1e-12 {
			t.Errorf("component %d: expected %f, got %f", i, w, back[i])
		}
	}

	// A pure 90 degree rotation about Z sends (1,0,0) to (0,1,0).
	rot := FromEuler(0, 0, math.Pi/2, 0, 0, 0)
	p := rot.ApplyPoint([3]float64{1, 0, 0})
	for i, w := range [3]float64{0, 1, 0} {
		if math.Abs(p[i]-w) > 1e-12 {
			t.Errorf("pure rotation component %d: expected %f, got %f", i, w, p[i])
		}
	}
}
