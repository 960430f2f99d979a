// Package render produces the per-sample image artifacts: a
// line-integral DRR (digitally reconstructed radiograph) of the
// attenuation volume under a candidate camera-to-volume pose, a binary
// edge map extracted from it, and presentation images derived from
// both.
package render

import (
	"fmt"
	"image"
	"math"
	"runtime"
	"sync"

	"github.com/liamjwang/xreg/pkg/camera"
	"github.com/liamjwang/xreg/pkg/se3"
	"github.com/liamjwang/xreg/pkg/volume"
)

// Config controls the ray caster.
type Config struct {
	// StepMM is the marching step along each ray in millimeters.
	StepMM float64

	// EdgeThreshold is the fraction of the maximum gradient magnitude
	// above which a pixel counts as an edge.
	EdgeThreshold float64

	// NumCores is the number of worker goroutines used to split the
	// detector rows. Zero means all available cores.
	NumCores int
}

// DefaultConfig returns ray-casting defaults suitable for CT-scale
// volumes.
func DefaultConfig() Config {
	return Config{
		StepMM:        1.0,
		EdgeThreshold: 0.25,
		NumCores:      runtime.NumCPU(),
	}
}

// Result carries the artifacts rendered for one pose.
type Result struct {
	// DRR is the raw line-integral image.
	DRR *volume.Image

	// Edges is the binary edge map (0 or 255).
	Edges *image.Gray
}

// Renderer renders the artifacts for one camera-to-volume pose.
type Renderer interface {
	Render(camToVol *se3.Transform) (*Result, error)
}

// RayCaster is a line-integral Renderer over a fixed camera model and
// attenuation volume. It is safe for sequential reuse across poses; the
// per-render parallelism is internal.
type RayCaster struct {
	cam *camera.Model
	vol *volume.Volume
	cfg Config
}

// NewRayCaster builds a ray caster for one camera/volume pair.
func NewRayCaster(cam *camera.Model, vol *volume.Volume, cfg Config) (*RayCaster, error) {
	if cfg.StepMM <= 0 {
		return nil, fmt.Errorf("ray marching step must be positive, got %f", cfg.StepMM)
	}
	if cfg.NumCores <= 0 {
		cfg.NumCores = runtime.NumCPU()
	}
	return &RayCaster{cam: cam, vol: vol, cfg: cfg}, nil
}

// Render casts one ray per detector pixel. The pose maps the camera
// projection frame into volume coordinates; the ray source is the
// camera origin. Detector rows are split across workers, each writing
// its own rows of the pre-sized output, so no locking is needed.
func (rc *RayCaster) Render(camToVol *se3.Transform) (*Result, error) {
	rows := rc.cam.Rows
	cols := rc.cam.Cols
	drr := volume.NewImage(rows, cols)

	srcVol := camToVol.ApplyPoint([3]float64{0, 0, 0})
	lo, hi := rc.vol.PhysBounds()

	numCores := rc.cfg.NumCores
	rowsPerCore := (rows + numCores - 1) / numCores

	var wg sync.WaitGroup
	for c := 0; c < numCores; c++ {
		wg.Add(1)

		go func(coreID int) {
			defer wg.Done()

			startRow := coreID * rowsPerCore
			endRow := startRow + rowsPerCore
			if endRow > rows {
				endRow = rows
			}

			for r := startRow; r < endRow; r++ {
				for col := 0; col < cols; col++ {
					dirCam := rc.cam.PixelRay(float64(r), float64(col))
					// A point one unit along the ray, mapped into the
					// volume frame; the difference with the source
					// gives the marching direction.
					pVol := camToVol.ApplyPoint(dirCam)
					dir := [3]float64{pVol[0] - srcVol[0], pVol[1] - srcVol[1], pVol[2] - srcVol[2]}

					drr.Set(r, col, float32(rc.integrate(srcVol, dir, lo, hi)))
				}
			}
		}(c)
	}
	wg.Wait()

	edges := ExtractEdges(drr, rc.cfg.EdgeThreshold)
	return &Result{DRR: drr, Edges: edges}, nil
}

// integrate marches along the ray src + t*dir through the volume's
// bounding box, accumulating attenuation times step length.
func (rc *RayCaster) integrate(src, dir, lo, hi [3]float64) float64 {
	tNear, tFar, ok := clipRay(src, dir, lo, hi)
	if !ok {
		return 0
	}

	dirNorm := math.Sqrt(dir[0]*dir[0] + dir[1]*dir[1] + dir[2]*dir[2])
	if dirNorm == 0 {
		return 0
	}
	// Convert the step from millimeters to ray-parameter units.
	dt := rc.cfg.StepMM / dirNorm

	sum := 0.0
	for t := tNear; t <= tFar; t += dt {
		p := [3]float64{src[0] + t*dir[0], src[1] + t*dir[1], src[2] + t*dir[2]}
		if v, inside := rc.vol.SampleTrilinear(p); inside {
			sum += v * rc.cfg.StepMM
		}
	}
	return sum
}

// clipRay intersects the ray src + t*dir (t >= 0) with the axis-aligned
// box [lo, hi] using the slab method. The returned interval is empty
// (ok == false) when the ray misses the box.
func clipRay(src, dir, lo, hi [3]float64) (tNear, tFar float64, ok bool) {
	tNear = 0
	tFar = math.Inf(1)

	for i := 0; i < 3; i++ {
		if dir[i] == 0 {
			if src[i] < lo[i] || src[i] > hi[i] {
				return 0, 0, false
			}
			continue
		}
		t0 := (lo[i] - src[i]) / dir[i]
		t1 := (hi[i] - src[i]) / dir[i]
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		if t0 > tNear {
			tNear = t0
		}
		if t1 < tFar {
			tFar = t1
		}
		if tNear > tFar {
			return 0, 0, false
		}
	}
	return tNear, tFar, true
}
