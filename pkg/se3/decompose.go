package se3

import "math"

// gimbalTol is the threshold on the cosine of the Y angle below which
// the Euler-XYZ extraction is ambiguous. At that point the X and Z
// rotations share an axis; the Z angle is set to zero by convention and
// the remaining rotation is folded into X.
const gimbalTol = 1e-9

// RotationAngle returns the total rotation angle of the transform's
// rotation block in radians, i.e. the angle-axis magnitude recovered
// from the trace.
func RotationAngle(t *Transform) float64 {
	tr := t.At(0, 0) + t.At(1, 1) + t.At(2, 2)
	c := (tr - 1) / 2
	// Clamp against round-off pushing the cosine out of [-1, 1].
	if c > 1 {
		c = 1
	} else if c < -1 {
		c = -1
	}
	return math.Acos(c)
}

// TranslationMag returns the Euclidean norm of the translation column
// in millimeters.
func TranslationMag(t *Transform) float64 {
	p := t.Translation()
	return math.Sqrt(p[0]*p[0] + p[1]*p[1] + p[2]*p[2])
}

// EulerXYZ decomposes the rotation block into fixed-axis angles
// (ax, ay, az) in radians such that R = Rz(az) * Ry(ay) * Rx(ax),
// i.e. extrinsic rotations about the fixed frame axes applied X first.
// The same convention is used by FromEuler, so decomposing and
// reconstructing round-trips exactly away from gimbal lock.
func EulerXYZ(t *Transform) (ax, ay, az float64) {
	// For R = Rz*Ry*Rx: R[2][0] = -sin(ay), and cos(ay) scales the
	// first column's top two entries.
	cy := math.Hypot(t.At(0, 0), t.At(1, 0))
	ay = math.Atan2(-t.At(2, 0), cy)
	if cy < gimbalTol {
		// Gimbal lock: X and Z axes aligned. Fix az = 0.
		ax = math.Atan2(-t.At(1, 2), t.At(1, 1))
		az = 0
		return ax, ay, az
	}
	ax = math.Atan2(t.At(2, 1), t.At(2, 2))
	az = math.Atan2(t.At(1, 0), t.At(0, 0))
	return ax, ay, az
}

// FromEuler builds a rigid transform from fixed-axis Euler angles
// (radians) and a translation (millimeters) using the same convention
// as EulerXYZ: R = Rz(az) * Ry(ay) * Rx(ax).
func FromEuler(ax, ay, az, tx, ty, tz float64) *Transform {
	sx, cx := math.Sincos(ax)
	sy, cy := math.Sincos(ay)
	sz, cz := math.Sincos(az)

	t := Identity()
	t.Set(0, 0, cz*cy)
	t.Set(0, 1, cz*sy*sx-sz*cx)
	t.Set(0, 2, cz*sy*cx+sz*sx)
	t.Set(1, 0, sz*cy)
	t.Set(1, 1, sz*sy*sx+cz*cx)
	t.Set(1, 2, sz*sy*cx-cz*sx)
	t.Set(2, 0, -sy)
	t.Set(2, 1, cy*sx)
	t.Set(2, 2, cy*cx)
	t.SetTranslation([3]float64{tx, ty, tz})
	return t
}
