package models

import (
	"github.com/liamjwang/xreg/pkg/se3"
)

// OffsetDecomp is the human-readable breakdown of one pose offset,
// with rotations in degrees and translations in millimeters
type OffsetDecomp struct {
	// TotalRotDeg is the angle-axis magnitude of the offset rotation
	TotalRotDeg float64

	// TotalTransMM is the Euclidean norm of the offset translation
	TotalTransMM float64

	// Fixed-axis Euler angles of the offset rotation
	RotXDeg, RotYDeg, RotZDeg float64

	// Raw translation components of the offset
	TransXMM, TransYMM, TransZMM float64
}

// Row flattens the decomposition in summary-table column order
func (d OffsetDecomp) Row() []float64 {
	return []float64{
		d.TotalRotDeg, d.TotalTransMM,
		d.RotXDeg, d.RotYDeg, d.RotZDeg,
		d.TransXMM, d.TransYMM, d.TransZMM,
	}
}

// Sample is one generated dataset entry: the drawn tangent-space
// parameters, the resulting transforms and the decomposition record
type Sample struct {
	// Index is the run ordinal; index 0 is always the unperturbed
	// ground-truth pose
	Index int

	// Params is the tangent vector the sample was drawn as; exactly
	// zero for index 0
	Params se3.Vector

	// Offset is the rigid offset Exp(Params), anchored about the
	// volume centroid during composition
	Offset *se3.Transform

	// CamToVol is the final composite camera-to-volume pose
	CamToVol *se3.Transform

	// Decomp is the interpretable summary of the offset
	Decomp OffsetDecomp
}
