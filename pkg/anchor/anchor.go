// Package anchor re-expresses sampled pose offsets about a chosen
// anchor point. A tangent-space offset is naturally parameterized about
// the camera projection frame's own origin; for synthetic registration
// data the rotation should instead pivot about a physically meaningful
// point, the volume centroid. The composer builds the pre/post
// transforms that shift the offset's frame accordingly and produces the
// final camera-to-volume pose for each sample.
package anchor

import (
	"github.com/liamjwang/xreg/pkg/se3"
)

// Composer holds the precomputed frame shifts for one run. All samples
// share the same camera extrinsics, ground-truth pose and anchor point,
// so the per-sample work reduces to two matrix products.
type Composer struct {
	// pre maps the projection frame into the anchor-centered frame in
	// which the sampled offset is applied.
	pre *se3.Transform

	// post maps the anchor-centered, offset-applied frame into volume
	// coordinates.
	post *se3.Transform

	// anchorCam is the anchor point expressed in the camera projection
	// frame.
	anchorCam [3]float64

	groundTruth *se3.Transform
}

// NewComposer precomputes the anchoring transforms.
//
// extrins is the camera extrinsic transform, gtCamToVol the
// ground-truth camera-extrinsic-to-volume pose, and anchorVol the
// anchor point in volume coordinates. A singular extrinsic or
// ground-truth matrix is reported as a se3.SingularError rather than
// silently producing NaNs downstream.
func NewComposer(extrins, gtCamToVol *se3.Transform, anchorVol [3]float64) (*Composer, error) {
	gtInv, err := gtCamToVol.Inverse("ground-truth cam-to-volume")
	if err != nil {
		return nil, err
	}
	extrinsInv, err := extrins.Inverse("camera extrinsic")
	if err != nil {
		return nil, err
	}

	// Anchor point in the camera projection frame:
	// extrins * gt^-1 * anchor_vol.
	anchorCam := extrins.ApplyPoint(gtInv.ApplyPoint(anchorVol))

	shiftFrom := se3.Identity()
	shiftFrom.SetTranslation(anchorCam)

	shiftTo := se3.Identity()
	shiftTo.SetTranslation([3]float64{-anchorCam[0], -anchorCam[1], -anchorCam[2]})

	return &Composer{
		pre:         se3.Mul(shiftTo, extrins),
		post:        se3.Mul(se3.Mul(gtCamToVol, extrinsInv), shiftFrom),
		anchorCam:   anchorCam,
		groundTruth: gtCamToVol.Clone(),
	}, nil
}

// Compose produces the camera-to-volume pose for one sampled offset:
// post * offset * pre. With the identity offset this is exactly the
// ground-truth pose; with a pure rotation the anchor point stays fixed.
func (c *Composer) Compose(offset *se3.Transform) *se3.Transform {
	return se3.Mul(c.post, se3.Mul(offset, c.pre))
}

// AnchorInCameraFrame returns the anchor point expressed in the camera
// projection frame.
func (c *Composer) AnchorInCameraFrame() [3]float64 { return c.anchorCam }

// GroundTruth returns a copy of the ground-truth camera-to-volume pose.
func (c *Composer) GroundTruth() *se3.Transform { return c.groundTruth.Clone() }
