// Package dataset drives the generation of one synthetic
// initialization-error dataset: it draws the tangent-space samples,
// composes the anchored camera-to-volume pose for each, dispatches
// rendering, and accumulates the three summary tables flushed at the
// end of the run.
package dataset

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/liamjwang/xreg/internal/models"
	"github.com/liamjwang/xreg/pkg/anchor"
	"github.com/liamjwang/xreg/pkg/render"
	"github.com/liamjwang/xreg/pkg/sampling"
	"github.com/liamjwang/xreg/pkg/se3"
)

// ConfigError reports an invalid run configuration, detected before
// any sampling or output side effects.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return e.Msg }

// Params holds the run configuration.
type Params struct {
	// NumSamples is the total number of samples, including the
	// mandatory zero-offset sample at index 0. Must be positive.
	NumSamples int

	// OutDir is the directory receiving per-sample artifacts and the
	// summary tables.
	OutDir string

	// Verbose enables progress output.
	Verbose bool
}

// Deps are the collaborators the orchestrator coordinates.
type Deps struct {
	Sampler  sampling.PoseParamSampler
	Composer *anchor.Composer
	Renderer render.Renderer

	// Proj8 is the measured projection remapped to 8 bits, used as the
	// base of the per-sample edge overlays.
	Proj8 *image.Gray

	// Detector pixel spacings, recorded in the raw DRR headers.
	RowSpacing, ColSpacing float64

	// Rng is the run's single random stream. It is drawn from exactly
	// once, during the up-front batch draw.
	Rng *rand.Rand
}

// Dataset is the ordered result of a run.
type Dataset struct {
	Samples []models.Sample

	// The three accumulated tables, one row per sample in index order.
	DecompRows [][]float64
	ParamRows  [][]float64
	PoseRows   [][]float64
}

// Orchestrator runs the sampling -> composition -> render ->
// decomposition sequence and writes all outputs.
type Orchestrator struct {
	params *Params
	deps   Deps
}

// New creates an orchestrator. Validation happens in Run so that a bad
// configuration is reported as a typed error rather than a panic.
func New(params *Params, deps Deps) *Orchestrator {
	return &Orchestrator{params: params, deps: deps}
}

// Run executes the full generation sequence. Any render or write
// failure aborts the run: a partial dataset is not considered valid.
func (o *Orchestrator) Run() (*Dataset, error) {
	n := o.params.NumSamples
	if n < 1 {
		return nil, &ConfigError{Msg: fmt.Sprintf("number of samples must be positive, got %d", n)}
	}

	if err := os.MkdirAll(o.params.OutDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	// Draw every tangent vector up front from the single random
	// stream. The first sample is always the unperturbed ground truth,
	// so only n-1 columns are stochastic; with n == 1 the stream is
	// never touched.
	o.logf("setting first sample to zero...")
	params := mat.NewDense(6, n, nil)
	if n > 1 {
		o.logf("sampling remaining %d pose parameters...", n-1)
		drawn := o.deps.Sampler.SamplePoseParams(n-1, o.deps.Rng)
		for dim := 0; dim < 6; dim++ {
			for j := 1; j < n; j++ {
				params.Set(dim, j, drawn.At(dim, j-1))
			}
		}
	}

	ds := &Dataset{
		Samples:    make([]models.Sample, n),
		DecompRows: make([][]float64, 0, n),
		ParamRows:  make([][]float64, 0, n),
		PoseRows:   make([][]float64, 0, n),
	}

	for i := 0; i < n; i++ {
		o.logf("processing sample index: %d", i)

		vec := sampling.ColumnVector(params, i)

		// The offset from ground truth, expressed about the anchored
		// center of rotation in the projection frame.
		offset := se3.Exp(vec)
		decomp := decomposeOffset(offset)
		comp := o.deps.Composer.Compose(offset)

		ds.Samples[i] = models.Sample{
			Index:    i,
			Params:   vec,
			Offset:   offset,
			CamToVol: comp,
			Decomp:   decomp,
		}

		ds.DecompRows = append(ds.DecompRows, decomp.Row())
		ds.ParamRows = append(ds.ParamRows, vec[:])
		flat := comp.RowMajor()
		ds.PoseRows = append(ds.PoseRows, flat[:])

		res, err := o.deps.Renderer.Render(comp)
		if err != nil {
			return nil, fmt.Errorf("rendering sample %d: %w", i, err)
		}
		if err := o.writeSampleArtifacts(i, res); err != nil {
			return nil, fmt.Errorf("writing artifacts for sample %d: %w", i, err)
		}
	}

	o.logf("writing summary tables...")
	if err := o.writeTables(ds); err != nil {
		return nil, err
	}

	return ds, nil
}

// decomposeOffset derives the reportable magnitudes of a rigid offset.
// Angles are converted to degrees here; the underlying decomposition
// works in radians.
func decomposeOffset(offset *se3.Transform) models.OffsetDecomp {
	ax, ay, az := se3.EulerXYZ(offset)
	trans := offset.Translation()
	return models.OffsetDecomp{
		TotalRotDeg:  se3.RadToDeg(se3.RotationAngle(offset)),
		TotalTransMM: se3.TranslationMag(offset),
		RotXDeg:      se3.RadToDeg(ax),
		RotYDeg:      se3.RadToDeg(ay),
		RotZDeg:      se3.RadToDeg(az),
		TransXMM:     trans[0],
		TransYMM:     trans[1],
		TransZMM:     trans[2],
	}
}

// writeSampleArtifacts saves the four per-sample files: the raw DRR,
// its 8-bit remap, the edge map and the edge overlay.
func (o *Orchestrator) writeSampleArtifacts(idx int, res *render.Result) error {
	dir := o.params.OutDir

	o.logf("  saving raw DRR...")
	rawPath := filepath.Join(dir, fmt.Sprintf("drr_raw_%03d.mha", idx))
	if err := render.SaveMetaImage(res.DRR, o.deps.RowSpacing, o.deps.ColSpacing, rawPath); err != nil {
		return err
	}

	o.logf("  remapping and saving DRR...")
	remap := render.Remap8bpp(res.DRR)
	if err := render.SavePNG(remap, filepath.Join(dir, fmt.Sprintf("drr_remap_%03d.png", idx))); err != nil {
		return err
	}

	o.logf("  saving edges...")
	if err := render.SavePNG(res.Edges, filepath.Join(dir, fmt.Sprintf("edges_%03d.png", idx))); err != nil {
		return err
	}

	o.logf("  saving edge overlay...")
	overlay, err := render.OverlayEdges(o.deps.Proj8, res.Edges)
	if err != nil {
		return err
	}
	return render.SavePNG(overlay, filepath.Join(dir, fmt.Sprintf("edges_overlay_%03d.png", idx)))
}

func (o *Orchestrator) logf(format string, args ...interface{}) {
	if o.params.Verbose {
		fmt.Printf(format+"\n", args...)
	}
}
