// Package volume provides 3D scalar and label volumes with physical
// spacing metadata, plus the preprocessing steps a DRR pipeline needs:
// label remapping, anatomy masking, HU-to-attenuation conversion and
// trilinear sampling in physical coordinates.
package volume

import (
	"fmt"
	"math"
)

// muWaterPerMM is the linear attenuation coefficient of water in 1/mm
// at a typical diagnostic X-ray energy, used to convert Hounsfield
// units to linear attenuation.
const muWaterPerMM = 0.02683

// Volume is a 3D scalar field stored flat in x-fastest order with
// voxel spacing and physical origin in millimeters. Voxel (x, y, z)
// lives at Data[z*NX*NY + y*NX + x].
type Volume struct {
	Data       []float32
	NX, NY, NZ int
	Spacing    [3]float64
	Origin     [3]float64
}

// LabelVolume is a 3D label field with the same layout as Volume.
type LabelVolume struct {
	Data       []uint8
	NX, NY, NZ int
	Spacing    [3]float64
	Origin     [3]float64
}

// New allocates a zero-filled volume.
func New(nx, ny, nz int, spacing, origin [3]float64) *Volume {
	return &Volume{
		Data:    make([]float32, nx*ny*nz),
		NX:      nx,
		NY:      ny,
		NZ:      nz,
		Spacing: spacing,
		Origin:  origin,
	}
}

// NewLabel allocates a zero-filled label volume.
func NewLabel(nx, ny, nz int, spacing, origin [3]float64) *LabelVolume {
	return &LabelVolume{
		Data:    make([]uint8, nx*ny*nz),
		NX:      nx,
		NY:      ny,
		NZ:      nz,
		Spacing: spacing,
		Origin:  origin,
	}
}

// At returns the voxel value at integer indices.
func (v *Volume) At(x, y, z int) float32 {
	return v.Data[z*v.NX*v.NY+y*v.NX+x]
}

// Set assigns the voxel value at integer indices.
func (v *Volume) Set(x, y, z int, val float32) {
	v.Data[z*v.NX*v.NY+y*v.NX+x] = val
}

// At returns the label at integer indices.
func (v *LabelVolume) At(x, y, z int) uint8 {
	return v.Data[z*v.NX*v.NY+y*v.NX+x]
}

// CenterPhys returns the physical center of the volume: the midpoint of
// the voxel-center grid, which serves as the anchor point for pose
// sampling.
func (v *Volume) CenterPhys() [3]float64 {
	return [3]float64{
		v.Origin[0] + v.Spacing[0]*float64(v.NX-1)/2,
		v.Origin[1] + v.Spacing[1]*float64(v.NY-1)/2,
		v.Origin[2] + v.Spacing[2]*float64(v.NZ-1)/2,
	}
}

// PhysBounds returns the physical extent spanned by the voxel centers:
// the lower corner and upper corner in millimeters.
func (v *Volume) PhysBounds() (lo, hi [3]float64) {
	n := [3]int{v.NX, v.NY, v.NZ}
	for i := 0; i < 3; i++ {
		lo[i] = v.Origin[i]
		hi[i] = v.Origin[i] + v.Spacing[i]*float64(n[i]-1)
	}
	return lo, hi
}

// SampleTrilinear interpolates the volume at a physical point. The
// second return value is false when the point lies outside the voxel
// grid, in which case the sample is zero.
func (v *Volume) SampleTrilinear(p [3]float64) (float64, bool) {
	// Continuous voxel coordinates
	cx := (p[0] - v.Origin[0]) / v.Spacing[0]
	cy := (p[1] - v.Origin[1]) / v.Spacing[1]
	cz := (p[2] - v.Origin[2]) / v.Spacing[2]

	if cx < 0 || cy < 0 || cz < 0 ||
		cx > float64(v.NX-1) || cy > float64(v.NY-1) || cz > float64(v.NZ-1) {
		return 0, false
	}

	x0 := int(math.Floor(cx))
	y0 := int(math.Floor(cy))
	z0 := int(math.Floor(cz))
	x1, y1, z1 := x0+1, y0+1, z0+1
	if x1 > v.NX-1 {
		x1 = v.NX - 1
	}
	if y1 > v.NY-1 {
		y1 = v.NY - 1
	}
	if z1 > v.NZ-1 {
		z1 = v.NZ - 1
	}

	fx := cx - float64(x0)
	fy := cy - float64(y0)
	fz := cz - float64(z0)

	c000 := float64(v.At(x0, y0, z0))
	c100 := float64(v.At(x1, y0, z0))
	c010 := float64(v.At(x0, y1, z0))
	c110 := float64(v.At(x1, y1, z0))
	c001 := float64(v.At(x0, y0, z1))
	c101 := float64(v.At(x1, y0, z1))
	c011 := float64(v.At(x0, y1, z1))
	c111 := float64(v.At(x1, y1, z1))

	c00 := c000*(1-fx) + c100*fx
	c10 := c010*(1-fx) + c110*fx
	c01 := c001*(1-fx) + c101*fx
	c11 := c011*(1-fx) + c111*fx

	c0 := c00*(1-fy) + c10*fy
	c1 := c01*(1-fy) + c11*fy

	return c0*(1-fz) + c1*fz, true
}

// RemapLabels maps every label in keep to 1 and everything else to 0,
// collapsing all structures that move rigidly together into a single
// foreground label.
func RemapLabels(seg *LabelVolume, keep []uint8) *LabelVolume {
	var lut [256]uint8
	for _, k := range keep {
		lut[k] = 1
	}

	out := NewLabel(seg.NX, seg.NY, seg.NZ, seg.Spacing, seg.Origin)
	for i, l := range seg.Data {
		out.Data[i] = lut[l]
	}
	return out
}

// MaskVolume copies vol, replacing every voxel whose label differs from
// keepLabel with fill (in the same units as the volume, typically air
// HU). The volumes must share dimensions.
func MaskVolume(vol *Volume, seg *LabelVolume, keepLabel uint8, fill float64) (*Volume, error) {
	if vol.NX != seg.NX || vol.NY != seg.NY || vol.NZ != seg.NZ {
		return nil, fmt.Errorf("volume (%dx%dx%d) and label volume (%dx%dx%d) dimensions differ",
			vol.NX, vol.NY, vol.NZ, seg.NX, seg.NY, seg.NZ)
	}

	out := New(vol.NX, vol.NY, vol.NZ, vol.Spacing, vol.Origin)
	f := float32(fill)
	for i, hu := range vol.Data {
		if seg.Data[i] == keepLabel {
			out.Data[i] = hu
		} else {
			out.Data[i] = f
		}
	}
	return out, nil
}

// HUToLinAtt converts a Hounsfield-unit volume to linear attenuation in
// 1/mm: mu = mu_water * (1 + HU/1000), clamped at zero so air and
// anything below it contributes nothing to a line integral.
func HUToLinAtt(vol *Volume) *Volume {
	out := New(vol.NX, vol.NY, vol.NZ, vol.Spacing, vol.Origin)
	for i, hu := range vol.Data {
		att := muWaterPerMM * (1 + float64(hu)/1000)
		if att < 0 {
			att = 0
		}
		out.Data[i] = float32(att)
	}
	return out
}

// Image is a 2D scalar image stored row-major, used for projection
// data and rendered DRRs.
type Image struct {
	Data       []float32
	Rows, Cols int
}

// NewImage allocates a zero-filled image.
func NewImage(rows, cols int) *Image {
	return &Image{Data: make([]float32, rows*cols), Rows: rows, Cols: cols}
}

// At returns the pixel at (row, col).
func (im *Image) At(row, col int) float32 { return im.Data[row*im.Cols+col] }

// Set assigns the pixel at (row, col).
func (im *Image) Set(row, col int, v float32) { im.Data[row*im.Cols+col] = v }
