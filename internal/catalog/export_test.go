package catalog

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/quakestat/internal/bvalue"
	"github.com/rewired-gh/quakestat/internal/models"
)

func lines(t *testing.T, buf *bytes.Buffer) []string {
	t.Helper()
	return strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
}

func TestWriteSpatial(t *testing.T) {
	results := []models.WindowResult{
		{
			Included:   true,
			Extent:     models.Extent{XMin: 0.5, XMax: 9.5, YMin: 1, YMax: 8, ZMin: -12, ZMax: -2},
			EventCount: 600,
			LSR:        &models.Estimate{B: 0.95, A: 4.1},
			ML:         &models.Estimate{B: 1.02, A: 4.3, StdErr: 0.04},
		},
		{Included: false, EventCount: 3},
		{
			Included:   true,
			Extent:     models.Extent{XMin: 10, XMax: 20, YMin: 0, YMax: 10, ZMin: -5, ZMax: -1},
			EventCount: 512,
			ML:         &models.Estimate{B: 0.9, A: 3.9, StdErr: 0.05},
			LSRFailure: "degenerate regression fit",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSpatial(&buf, results))

	got := lines(t, &buf)
	require.Len(t, got, 3, "header plus included windows only")
	assert.Equal(t, "X_min,X_max,Y_min,Y_max,Z_min,Z_max,Event_count,B_lsr,A_lsr,B_ml,A_ml,Std_err_ml", got[0])
	assert.Equal(t, "0.5,9.5,1,8,-12,-2,600,0.95,4.1,1.02,4.3,0.04", got[1])
	assert.Equal(t, "10,20,0,10,-5,-1,512,,,0.9,3.9,0.05", got[2])
}

func TestWriteTemporal(t *testing.T) {
	start := time.Date(2020, 5, 1, 12, 0, 0, 0, time.UTC)
	results := []models.WindowResult{{
		Included:   true,
		TimeMin:    start,
		TimeMax:    start.Add(36 * time.Hour),
		EventCount: 250,
		LSR:        &models.Estimate{B: 1.1, A: 5},
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteTemporal(&buf, results))

	got := lines(t, &buf)
	require.Len(t, got, 2)
	assert.Equal(t, "Time_min,Time_max,Event_count,B_lsr,A_lsr,B_ml,A_ml,Std_err_ml", got[0])
	assert.Equal(t, "2020-05-01T12:00:00Z,2020-05-03T00:00:00Z,250,1.1,5,,,", got[1])
}

func TestWriteGrid_KeepsExcludedWindows(t *testing.T) {
	results := []models.WindowResult{
		{Bounds: models.Bounds{XMin: 0, XMax: 10, YMin: 0, YMax: 10}, Included: true, EventCount: 700,
			LSR: &models.Estimate{B: 1}, ML: &models.Estimate{B: 1.1}},
		{Bounds: models.Bounds{XMin: 0, XMax: 10, YMin: 10, YMax: 20}, EventCount: 4},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteGrid(&buf, results))

	got := lines(t, &buf)
	require.Len(t, got, 3)
	assert.Equal(t, "5,5,1,1.1,700", got[1])
	assert.Equal(t, "5,15,,,", got[2])
}

func TestWriteCurve(t *testing.T) {
	points := bvalue.FrequencyCurve([]float64{2, 3})
	var buf bytes.Buffer
	require.NoError(t, WriteCurve(&buf, points, &models.Estimate{A: 4, B: 1}, nil))

	got := lines(t, &buf)
	require.Len(t, got, 3)
	assert.Equal(t, "Magnitude,Log_n,Log_n_lsr,Log_n_ml", got[0])
	assert.Equal(t, "3,0,1,", got[1])
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.csv")
	err := WriteFile(path, func(w io.Writer) error {
		_, err := w.Write([]byte("ok\n"))
		return err
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ok\n", string(data))
}
