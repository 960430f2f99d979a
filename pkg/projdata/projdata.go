// Package projdata loads the run inputs from a structured HDF5 data
// file: camera calibration, the CT intensity volume, the paired label
// volume, the selected projection image and its ground-truth
// camera-to-volume pose.
//
// File layout:
//
//	/proj-params/{intrinsic,extrinsic,num-rows,num-cols,pixel-row-spacing,pixel-col-spacing}
//	/<specimen>/vol/{pixels,spacing,origin}
//	/<specimen>/vol-seg/image/{pixels,spacing,origin}
//	/<specimen>/projections/<index %03d>/image/{pixels}
//	/<specimen>/projections/<index %03d>/rot-180-for-up
//	/<specimen>/projections/<index %03d>/gt-poses/cam-to-pelvis-vol
package projdata

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/hdf5"

	"github.com/liamjwang/xreg/pkg/camera"
	"github.com/liamjwang/xreg/pkg/se3"
	"github.com/liamjwang/xreg/pkg/volume"
)

// MissingEntryError reports a group or dataset absent from the data
// file, identified by its full path.
type MissingEntryError struct {
	Path string
}

func (e *MissingEntryError) Error() string {
	return fmt.Sprintf("required entry not found in data file: %s", e.Path)
}

// Data bundles everything the sampling run needs from the file.
type Data struct {
	Cam *camera.Model

	// Vol is the CT intensity volume in Hounsfield units; Seg the
	// paired label volume.
	Vol *volume.Volume
	Seg *volume.LabelVolume

	// Proj is the measured projection image for the selected view.
	Proj *volume.Image

	// RotUp180 indicates the projection must be rotated 180 degrees to
	// put the patient upright for display.
	RotUp180 bool

	// GTCamToVol is the ground-truth camera-extrinsic-to-volume pose,
	// already adjusted by the configured ground-truth shift.
	GTCamToVol *se3.Transform
}

// Load reads the calibration, volumes, projection and ground-truth
// pose for one specimen and projection index. gtShift is pre-multiplied
// onto the stored ground-truth pose; it exists to compensate a
// historical half-voxel interpolation-indexing inconsistency in the
// stored poses and is configurable for renderers with a different
// indexing convention.
func Load(path, specimen string, projIdx int, gtShift [3]float64) (*Data, error) {
	f, err := hdf5.OpenFile(path, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, fmt.Errorf("opening data file %s: %w", path, err)
	}
	defer f.Close()

	d := &Data{}

	cam, err := loadCamera(&f.CommonFG)
	if err != nil {
		return nil, err
	}
	d.Cam = cam

	spec, err := openGroup(&f.CommonFG, specimen, specimen)
	if err != nil {
		return nil, err
	}
	defer spec.Close()

	volG, err := openGroup(&spec.CommonFG, "vol", specimen+"/vol")
	if err != nil {
		return nil, err
	}
	defer volG.Close()
	d.Vol, err = loadVolume(volG, specimen+"/vol")
	if err != nil {
		return nil, err
	}

	segG, err := openGroup(&spec.CommonFG, "vol-seg/image", specimen+"/vol-seg/image")
	if err != nil {
		return nil, err
	}
	defer segG.Close()
	d.Seg, err = loadLabelVolume(segG, specimen+"/vol-seg/image")
	if err != nil {
		return nil, err
	}

	projPath := fmt.Sprintf("%s/projections/%03d", specimen, projIdx)
	projG, err := openGroup(&spec.CommonFG, fmt.Sprintf("projections/%03d", projIdx), projPath)
	if err != nil {
		return nil, err
	}
	defer projG.Close()

	imgG, err := openGroup(&projG.CommonFG, "image", projPath+"/image")
	if err != nil {
		return nil, err
	}
	defer imgG.Close()
	d.Proj, err = loadImage(imgG, projPath+"/image")
	if err != nil {
		return nil, err
	}

	rot, err := readScalarUint8(&projG.CommonFG, "rot-180-for-up", projPath+"/rot-180-for-up")
	if err != nil {
		return nil, err
	}
	d.RotUp180 = rot != 0

	gtG, err := openGroup(&projG.CommonFG, "gt-poses", projPath+"/gt-poses")
	if err != nil {
		return nil, err
	}
	defer gtG.Close()

	gtRaw, err := readFloatMatrix(&gtG.CommonFG, "cam-to-pelvis-vol", projPath+"/gt-poses/cam-to-pelvis-vol", 4, 4)
	if err != nil {
		return nil, err
	}
	gt, err := se3.FromRowMajor(gtRaw)
	if err != nil {
		return nil, fmt.Errorf("ground-truth pose: %w", err)
	}
	d.GTCamToVol = ApplyGroundTruthShift(gt, gtShift)

	return d, nil
}

// ApplyGroundTruthShift pre-multiplies the stored ground-truth pose by
// a pure translation.
func ApplyGroundTruthShift(gt *se3.Transform, shift [3]float64) *se3.Transform {
	corr := se3.Identity()
	corr.SetTranslation(shift)
	return se3.Mul(corr, gt)
}

func loadCamera(root *hdf5.CommonFG) (*camera.Model, error) {
	g, err := openGroup(root, "proj-params", "proj-params")
	if err != nil {
		return nil, err
	}
	defer g.Close()

	intrinsicRaw, err := readFloatMatrix(&g.CommonFG, "intrinsic", "proj-params/intrinsic", 3, 3)
	if err != nil {
		return nil, err
	}
	extrinsicRaw, err := readFloatMatrix(&g.CommonFG, "extrinsic", "proj-params/extrinsic", 4, 4)
	if err != nil {
		return nil, err
	}
	numRows, err := readScalarUint64(&g.CommonFG, "num-rows", "proj-params/num-rows")
	if err != nil {
		return nil, err
	}
	numCols, err := readScalarUint64(&g.CommonFG, "num-cols", "proj-params/num-cols")
	if err != nil {
		return nil, err
	}
	rowSpacing, err := readScalarFloat64(&g.CommonFG, "pixel-row-spacing", "proj-params/pixel-row-spacing")
	if err != nil {
		return nil, err
	}
	colSpacing, err := readScalarFloat64(&g.CommonFG, "pixel-col-spacing", "proj-params/pixel-col-spacing")
	if err != nil {
		return nil, err
	}

	extrinsic, err := se3.FromRowMajor(extrinsicRaw)
	if err != nil {
		return nil, fmt.Errorf("camera extrinsic: %w", err)
	}

	return camera.NewModel(
		mat.NewDense(3, 3, intrinsicRaw),
		extrinsic,
		int(numRows), int(numCols),
		rowSpacing, colSpacing,
	)
}

func loadVolume(g *hdf5.Group, path string) (*volume.Volume, error) {
	dims, pixels, err := readFloat32Array(&g.CommonFG, "pixels", path+"/pixels", 3)
	if err != nil {
		return nil, err
	}
	spacing, err := readFloatTriple(&g.CommonFG, "spacing", path+"/spacing")
	if err != nil {
		return nil, err
	}
	origin, err := readFloatTriple(&g.CommonFG, "origin", path+"/origin")
	if err != nil {
		return nil, err
	}

	// HDF5 stores slowest-varying dimension first: (z, y, x).
	v := volume.New(int(dims[2]), int(dims[1]), int(dims[0]), spacing, origin)
	copy(v.Data, pixels)
	return v, nil
}

func loadLabelVolume(g *hdf5.Group, path string) (*volume.LabelVolume, error) {
	ds, err := g.OpenDataset("pixels")
	if err != nil {
		return nil, &MissingEntryError{Path: path + "/pixels"}
	}
	defer ds.Close()

	dims, err := datasetDims(ds, path+"/pixels", 3)
	if err != nil {
		return nil, err
	}
	labels := make([]uint8, dims[0]*dims[1]*dims[2])
	if err := ds.Read(&labels); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path+"/pixels", err)
	}

	spacing, err := readFloatTriple(&g.CommonFG, "spacing", path+"/spacing")
	if err != nil {
		return nil, err
	}
	origin, err := readFloatTriple(&g.CommonFG, "origin", path+"/origin")
	if err != nil {
		return nil, err
	}

	v := volume.NewLabel(int(dims[2]), int(dims[1]), int(dims[0]), spacing, origin)
	copy(v.Data, labels)
	return v, nil
}

func loadImage(g *hdf5.Group, path string) (*volume.Image, error) {
	dims, pixels, err := readFloat32Array(&g.CommonFG, "pixels", path+"/pixels", 2)
	if err != nil {
		return nil, err
	}
	im := volume.NewImage(int(dims[0]), int(dims[1]))
	copy(im.Data, pixels)
	return im, nil
}

func openGroup(parent *hdf5.CommonFG, name, path string) (*hdf5.Group, error) {
	g, err := parent.OpenGroup(name)
	if err != nil {
		return nil, &MissingEntryError{Path: path}
	}
	return g, nil
}

func datasetDims(ds *hdf5.Dataset, path string, wantRank int) ([]uint, error) {
	space := ds.Space()
	defer space.Close()

	dims, _, err := space.SimpleExtentDims()
	if err != nil {
		return nil, fmt.Errorf("reading extent of %s: %w", path, err)
	}
	if len(dims) != wantRank {
		return nil, fmt.Errorf("%s: expected rank %d, got %d", path, wantRank, len(dims))
	}
	return dims, nil
}

func readFloat32Array(parent *hdf5.CommonFG, name, path string, rank int) ([]uint, []float32, error) {
	ds, err := parent.OpenDataset(name)
	if err != nil {
		return nil, nil, &MissingEntryError{Path: path}
	}
	defer ds.Close()

	dims, err := datasetDims(ds, path, rank)
	if err != nil {
		return nil, nil, err
	}
	n := uint(1)
	for _, d := range dims {
		n *= d
	}
	data := make([]float32, n)
	if err := ds.Read(&data); err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return dims, data, nil
}

func readFloatMatrix(parent *hdf5.CommonFG, name, path string, rows, cols int) ([]float64, error) {
	ds, err := parent.OpenDataset(name)
	if err != nil {
		return nil, &MissingEntryError{Path: path}
	}
	defer ds.Close()

	dims, err := datasetDims(ds, path, 2)
	if err != nil {
		return nil, err
	}
	if int(dims[0]) != rows || int(dims[1]) != cols {
		return nil, fmt.Errorf("%s: expected %dx%d matrix, got %dx%d", path, rows, cols, dims[0], dims[1])
	}
	data := make([]float64, rows*cols)
	if err := ds.Read(&data); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

func readFloatTriple(parent *hdf5.CommonFG, name, path string) ([3]float64, error) {
	var out [3]float64
	ds, err := parent.OpenDataset(name)
	if err != nil {
		return out, &MissingEntryError{Path: path}
	}
	defer ds.Close()

	data := make([]float64, 3)
	if err := ds.Read(&data); err != nil {
		return out, fmt.Errorf("reading %s: %w", path, err)
	}
	copy(out[:], data)
	return out, nil
}

func readScalarUint64(parent *hdf5.CommonFG, name, path string) (uint64, error) {
	ds, err := parent.OpenDataset(name)
	if err != nil {
		return 0, &MissingEntryError{Path: path}
	}
	defer ds.Close()

	var v uint64
	if err := ds.Read(&v); err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	return v, nil
}

func readScalarFloat64(parent *hdf5.CommonFG, name, path string) (float64, error) {
	ds, err := parent.OpenDataset(name)
	if err != nil {
		return 0, &MissingEntryError{Path: path}
	}
	defer ds.Close()

	var v float64
	if err := ds.Read(&v); err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	return v, nil
}

func readScalarUint8(parent *hdf5.CommonFG, name, path string) (uint8, error) {
	ds, err := parent.OpenDataset(name)
	if err != nil {
		return 0, &MissingEntryError{Path: path}
	}
	defer ds.Close()

	var v uint8
	if err := ds.Read(&v); err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	return v, nil
}
