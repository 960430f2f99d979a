package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Summary table filenames, written once per run.
const (
	OffsetTableName = "offset_amounts.csv"
	ParamTableName  = "se3_lie_params.csv"
	PoseTableName   = "cam_extrins_to_vol_poses.csv"
)

var offsetHeader = []string{
	"total rotation (deg)", "total trans. (mm)",
	"rotation X (deg)", "rotation Y (deg)", "rotation Z (deg)",
	"translation X (mm)", "translation Y (mm)", "translation Z (mm)",
}

var paramHeader = []string{
	"se3-dim-1", "se3-dim-2", "se3-dim-3", "se3-dim-4", "se3-dim-5", "se3-dim-6",
}

var poseHeader = []string{
	"row1_col1", "row1_col2", "row1_col3", "row1_col4",
	"row2_col1", "row2_col2", "row2_col3", "row2_col4",
	"row3_col1", "row3_col2", "row3_col3", "row3_col4",
	"row4_col1", "row4_col2", "row4_col3", "row4_col4",
}

// writeTables flushes the three accumulated summary tables, rows in
// sample index order.
func (o *Orchestrator) writeTables(ds *Dataset) error {
	dir := o.params.OutDir

	if err := writeCSV(filepath.Join(dir, OffsetTableName), offsetHeader, ds.DecompRows); err != nil {
		return fmt.Errorf("writing offset table: %w", err)
	}
	if err := writeCSV(filepath.Join(dir, ParamTableName), paramHeader, ds.ParamRows); err != nil {
		return fmt.Errorf("writing pose parameter table: %w", err)
	}
	if err := writeCSV(filepath.Join(dir, PoseTableName), poseHeader, ds.PoseRows); err != nil {
		return fmt.Errorf("writing composite pose table: %w", err)
	}
	return nil
}

// writeCSV writes a header plus float rows. Values use the shortest
// round-trippable decimal form, so identical runs produce byte-equal
// files.
func writeCSV(path string, header []string, rows [][]float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}

	record := make([]string, len(header))
	for _, row := range rows {
		if len(row) != len(header) {
			return fmt.Errorf("row has %d values, header has %d columns", len(row), len(header))
		}
		for i, v := range row {
			record[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
