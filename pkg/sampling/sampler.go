// Package sampling draws se(3) tangent-space pose offsets from
// configurable distributions. Samplers borrow the random stream they
// are given rather than owning one, so a caller that seeds a single
// stream and draws in a fixed order gets reproducible batches.
package sampling

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/liamjwang/xreg/pkg/se3"
)

// PoseParamSampler draws tangent-space pose offsets. The returned
// matrix is 6 x n: one column per sample, rows ordered
// (rx, ry, rz, tx, ty, tz) with rotations in radians and translations
// in millimeters. n must be at least 1.
type PoseParamSampler interface {
	SamplePoseParams(n int, rng *rand.Rand) *mat.Dense
}

// IndepNormalSampler draws each of the six dimensions from an
// independent zero-mean normal distribution with zero cross-covariance.
type IndepNormalSampler struct {
	// stdDevs holds the per-dimension standard deviations, rotations
	// already converted to radians.
	stdDevs [6]float64
}

// NewIndepNormalSampler builds a sampler from per-axis standard
// deviations: rotations in degrees, translations in millimeters.
// Negative values are not validated here; passing them is a caller
// configuration error.
func NewIndepNormalSampler(rotXDeg, rotYDeg, rotZDeg, transXMM, transYMM, transZMM float64) *IndepNormalSampler {
	return &IndepNormalSampler{
		stdDevs: [6]float64{
			se3.DegToRad(rotXDeg),
			se3.DegToRad(rotYDeg),
			se3.DegToRad(rotZDeg),
			transXMM,
			transYMM,
			transZMM,
		},
	}
}

// StdDevs returns the per-dimension standard deviations with rotations
// in radians.
func (s *IndepNormalSampler) StdDevs() [6]float64 { return s.stdDevs }

// SamplePoseParams draws n tangent vectors. Draws are taken
// dimension-major: all n values for rx first, then ry, and so on. This
// order is part of the contract, since replaying a seeded stream must
// reproduce the same matrix.
func (s *IndepNormalSampler) SamplePoseParams(n int, rng *rand.Rand) *mat.Dense {
	out := mat.NewDense(6, n, nil)
	for dim := 0; dim < 6; dim++ {
		dist := distuv.Normal{Mu: 0, Sigma: s.stdDevs[dim], Src: rng}
		for j := 0; j < n; j++ {
			out.Set(dim, j, dist.Rand())
		}
	}
	return out
}

// ColumnVector extracts column j of a 6 x n parameter matrix as a
// tangent vector.
func ColumnVector(params *mat.Dense, j int) se3.Vector {
	var v se3.Vector
	for dim := 0; dim < 6; dim++ {
		v[dim] = params.At(dim, j)
	}
	return v
}
