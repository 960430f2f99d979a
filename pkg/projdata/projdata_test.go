package projdata

import (
	"math"
	"strings"
	"testing"

	"github.com/liamjwang/xreg/pkg/se3"
)

// TestApplyGroundTruthShift verifies that the configured correction is
// a pre-multiplied pure translation
func TestApplyGroundTruthShift(t *testing.T) {
	gt := se3.Exp(se3.Vector{0.1, 0.2, -0.1, 5, 6, 7})

	shifted := ApplyGroundTruthShift(gt, [3]float64{-0.5, -0.5, -0.5})

	// Rotation block untouched
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			if shifted.At(r, c) != gt.At(r, c) {
				t.Fatalf("rotation entry (%d,%d) changed: %v vs %v", r, c, shifted.At(r, c), gt.At(r, c))
			}
		}
	}

	// Translation offset by the shift in the target frame
	gtTrans := gt.Translation()
	shiftedTrans := shifted.Translation()
	for i := range gtTrans {
		if math.Abs(shiftedTrans[i]-(gtTrans[i]-0.5)) > 1e-12 {
			t.Errorf("translation component %d: expected %f, got %f", i, gtTrans[i]-0.5, shiftedTrans[i])
		}
	}

	// Zero shift is the identity correction
	same := ApplyGroundTruthShift(gt, [3]float64{})
	if !se3.EqualApprox(same, gt, 0) {
		t.Error("zero shift should leave the pose unchanged")
	}
}

// TestMissingEntryError verifies that the error names the absent entry
func TestMissingEntryError(t *testing.T) {
	err := &MissingEntryError{Path: "spec01/projections/003"}
	if !strings.Contains(err.Error(), "spec01/projections/003") {
		t.Errorf("error message should contain the entry path, got %q", err.Error())
	}
}

// TestLoadMissingFile verifies that a nonexistent data file is reported
func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/data.h5", "spec01", 0, [3]float64{}); err == nil {
		t.Error("expected an error for a missing data file")
	}
}
