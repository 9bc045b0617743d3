package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rewired-gh/quakestat/internal/bvalue"
	"github.com/rewired-gh/quakestat/internal/models"
)

var (
	SpatialHeader  = []string{"X_min", "X_max", "Y_min", "Y_max", "Z_min", "Z_max", "Event_count", "B_lsr", "A_lsr", "B_ml", "A_ml", "Std_err_ml"}
	TemporalHeader = []string{"Time_min", "Time_max", "Event_count", "B_lsr", "A_lsr", "B_ml", "A_ml", "Std_err_ml"}
	GridHeader     = []string{"Window_x", "Window_y", "B_lsr", "B_ml", "Event_count"}
	CurveHeader    = []string{"Magnitude", "Log_n", "Log_n_lsr", "Log_n_ml"}
)

// WriteSpatial writes one row per included spatial window. Extents are those of
// the window's events, not of its grid square.
func WriteSpatial(w io.Writer, results []models.WindowResult) error {
	return writeRows(w, SpatialHeader, results, func(r models.WindowResult) []string {
		row := []string{
			formatFloat(r.Extent.XMin), formatFloat(r.Extent.XMax),
			formatFloat(r.Extent.YMin), formatFloat(r.Extent.YMax),
			formatFloat(r.Extent.ZMin), formatFloat(r.Extent.ZMax),
			strconv.Itoa(r.EventCount),
		}
		return append(row, estimateCells(r)...)
	})
}

// WriteTemporal writes one row per included temporal window.
func WriteTemporal(w io.Writer, results []models.WindowResult) error {
	return writeRows(w, TemporalHeader, results, func(r models.WindowResult) []string {
		row := []string{
			r.TimeMin.Format(time.RFC3339Nano),
			r.TimeMax.Format(time.RFC3339Nano),
			strconv.Itoa(r.EventCount),
		}
		return append(row, estimateCells(r)...)
	})
}

// WriteGrid writes every spatial window, included or not, keyed by its centre,
// so heatmaps keep a continuous grid. Excluded windows have empty cells.
func WriteGrid(w io.Writer, results []models.WindowResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(GridHeader); err != nil {
		return err
	}
	for _, r := range results {
		x, y := r.Bounds.Center()
		row := []string{formatFloat(x), formatFloat(y), "", "", ""}
		if r.Included {
			row[2] = formatB(r.LSR)
			row[3] = formatB(r.ML)
			row[4] = strconv.Itoa(r.EventCount)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCurve writes the magnitude-frequency curve together with the fitted
// lines of either estimate, when present.
func WriteCurve(w io.Writer, points []bvalue.CurvePoint, lsr, ml *models.Estimate) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CurveHeader); err != nil {
		return err
	}
	for _, p := range points {
		row := []string{formatFloat(p.Magnitude), formatFloat(p.LogN), "", ""}
		if lsr != nil {
			row[2] = formatFloat(bvalue.Predict(lsr.A, lsr.B, p.Magnitude))
		}
		if ml != nil {
			row[3] = formatFloat(bvalue.Predict(ml.A, ml.B, p.Magnitude))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile creates path (and its directory) and hands it to write.
func WriteFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func writeRows(w io.Writer, header []string, results []models.WindowResult, row func(models.WindowResult) []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range results {
		if !r.Included {
			continue
		}
		if err := cw.Write(row(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func estimateCells(r models.WindowResult) []string {
	cells := make([]string, 5)
	if r.LSR != nil {
		cells[0] = formatFloat(r.LSR.B)
		cells[1] = formatFloat(r.LSR.A)
	}
	if r.ML != nil {
		cells[2] = formatFloat(r.ML.B)
		cells[3] = formatFloat(r.ML.A)
		cells[4] = formatFloat(r.ML.StdErr)
	}
	return cells
}

func formatB(e *models.Estimate) string {
	if e == nil {
		return ""
	}
	return formatFloat(e.B)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
