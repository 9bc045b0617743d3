package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/rewired-gh/quakestat/internal/models"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(100, ":memory:")
	if err != nil {
		t.Fatalf("failed to create test storage: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testRun(id string, createdAt time.Time) *models.Run {
	return &models.Run{
		ID:         id,
		Mode:       models.ModeSpatial,
		Source:     "catalog.csv",
		EventCount: 1200,
		Windows:    2,
		Included:   2,
		Degenerate: 1,
		Params:     `{"size":10}`,
		CreatedAt:  createdAt,
	}
}

func testResults() []models.WindowResult {
	t0 := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)
	return []models.WindowResult{
		{
			Index:      0,
			Bounds:     models.Bounds{XMin: 0, XMax: 10, YMin: 0, YMax: 10},
			Extent:     models.Extent{XMin: 1, XMax: 9, YMin: 2, YMax: 8, ZMin: -12, ZMax: -1},
			EventCount: 700,
			TimeMin:    t0,
			TimeMax:    t0.Add(48 * time.Hour),
			Included:   true,
			LSR:        &models.Estimate{B: 0.98, A: 4.1},
			ML:         &models.Estimate{B: 1.02, A: 4.3, StdErr: 0.04},
		},
		{
			Index:      1,
			EventCount: 500,
			TimeMin:    t0,
			TimeMax:    t0.Add(time.Hour),
			Included:   true,
			ML:         &models.Estimate{B: 1.1, A: 3.9, StdErr: 0.05},
			LSRFailure: "degenerate fit",
		},
	}
}

func TestStorage_SaveAndGetRun(t *testing.T) {
	s := newTestStorage(t)
	now := time.Now()

	run := testRun("run-1", now)
	if err := s.SaveRun(run, testResults()); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := s.GetRun("run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Mode != models.ModeSpatial {
		t.Errorf("got mode %s, want %s", got.Mode, models.ModeSpatial)
	}
	if got.EventCount != 1200 || got.Windows != 2 || got.Included != 2 || got.Degenerate != 1 {
		t.Errorf("counts not round-tripped: %+v", got)
	}
	if got.Params != `{"size":10}` {
		t.Errorf("got params %q", got.Params)
	}
	if !got.CreatedAt.Equal(now) {
		t.Errorf("got created_at %v, want %v", got.CreatedAt, now)
	}
}

func TestStorage_SaveRun_AssignsID(t *testing.T) {
	s := newTestStorage(t)
	run := &models.Run{Mode: models.ModeCatalog, Source: "x.csv", EventCount: 10}
	if err := s.SaveRun(run, nil); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if run.ID == "" {
		t.Fatal("expected an id to be assigned")
	}
	if run.CreatedAt.IsZero() {
		t.Error("expected created_at to be assigned")
	}
	if _, err := s.GetRun(run.ID); err != nil {
		t.Errorf("GetRun: %v", err)
	}
}

func TestStorage_GetRun_NotFound(t *testing.T) {
	s := newTestStorage(t)
	_, err := s.GetRun("nonexistent")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestStorage_WindowResults_NullEstimates(t *testing.T) {
	s := newTestStorage(t)
	want := testResults()
	if err := s.SaveRun(testRun("run-1", time.Now()), want); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := s.GetWindowResults("run-1")
	if err != nil {
		t.Fatalf("GetWindowResults: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d window results, want 2", len(got))
	}

	first := got[0]
	if first.Mode != models.ModeSpatial {
		t.Errorf("got mode %s", first.Mode)
	}
	if first.Bounds != want[0].Bounds {
		t.Errorf("got bounds %+v, want %+v", first.Bounds, want[0].Bounds)
	}
	if x, y := first.Bounds.Center(); x != 5 || y != 5 {
		t.Errorf("got centre (%v, %v), want (5, 5)", x, y)
	}
	if first.Extent != want[0].Extent {
		t.Errorf("got extent %+v, want %+v", first.Extent, want[0].Extent)
	}
	if !first.TimeMin.Equal(want[0].TimeMin) || !first.TimeMax.Equal(want[0].TimeMax) {
		t.Errorf("time range not round-tripped: %v %v", first.TimeMin, first.TimeMax)
	}
	if first.LSR == nil || *first.LSR != *want[0].LSR {
		t.Errorf("got LSR %+v, want %+v", first.LSR, want[0].LSR)
	}
	if first.ML == nil || *first.ML != *want[0].ML {
		t.Errorf("got ML %+v, want %+v", first.ML, want[0].ML)
	}

	second := got[1]
	if second.LSR != nil {
		t.Errorf("expected null LSR estimate, got %+v", second.LSR)
	}
	if second.LSRFailure != "degenerate fit" {
		t.Errorf("got failure %q", second.LSRFailure)
	}
	if !second.Degenerate() {
		t.Error("expected second window to be degenerate")
	}
}

func TestStorage_WindowResults_ZeroTime(t *testing.T) {
	s := newTestStorage(t)
	results := []models.WindowResult{{Index: 0}}
	if err := s.SaveRun(testRun("run-1", time.Now()), results); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	got, err := s.GetWindowResults("run-1")
	if err != nil {
		t.Fatalf("GetWindowResults: %v", err)
	}
	if !got[0].TimeMin.IsZero() || got[0].Included {
		t.Errorf("empty window not round-tripped: %+v", got[0])
	}
}

func TestStorage_GetWindowResults_UnknownRun(t *testing.T) {
	s := newTestStorage(t)
	if _, err := s.GetWindowResults("missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestStorage_ListRuns(t *testing.T) {
	s := newTestStorage(t)
	now := time.Now()
	for i := 0; i < 4; i++ {
		if err := s.SaveRun(testRun(fmt.Sprintf("run-%d", i), now.Add(time.Duration(i)*time.Second)), nil); err != nil {
			t.Fatalf("SaveRun %d: %v", i, err)
		}
	}

	runs, err := s.ListRuns(0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 4 {
		t.Fatalf("got %d runs, want 4", len(runs))
	}
	if runs[0].ID != "run-3" {
		t.Errorf("newest run first: got %s", runs[0].ID)
	}

	runs, _ = s.ListRuns(2)
	if len(runs) != 2 {
		t.Errorf("got %d runs with limit 2", len(runs))
	}
}

func TestStorage_SaveRun_EnforcesMaxRuns(t *testing.T) {
	s, err := New(3, ":memory:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	now := time.Now()
	for i := 0; i < 5; i++ {
		if err := s.SaveRun(testRun(fmt.Sprintf("run-%d", i), now.Add(time.Duration(i)*time.Second)), testResults()); err != nil {
			t.Fatalf("SaveRun %d: %v", i, err)
		}
	}

	runs, _ := s.ListRuns(0)
	if len(runs) != 3 {
		t.Fatalf("got %d runs, want 3", len(runs))
	}
	for _, run := range runs {
		if run.ID == "run-0" || run.ID == "run-1" {
			t.Errorf("old run %s should have been evicted", run.ID)
		}
	}

	// Cascade removes the evicted windows too.
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM window_results`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 6 {
		t.Errorf("got %d window rows, want 6", n)
	}
}

func TestStorage_RotateRuns(t *testing.T) {
	s, err := New(100, ":memory:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	now := time.Now()
	for i := 0; i < 6; i++ {
		if err := s.SaveRun(testRun(fmt.Sprintf("run-%d", i), now.Add(time.Duration(i)*time.Second)), nil); err != nil {
			t.Fatalf("SaveRun %d: %v", i, err)
		}
	}
	s.maxRuns = 2
	if err := s.RotateRuns(); err != nil {
		t.Fatalf("RotateRuns: %v", err)
	}
	runs, _ := s.ListRuns(0)
	if len(runs) != 2 {
		t.Errorf("got %d runs after rotation, want 2", len(runs))
	}
}

func TestStorage_FilePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "runs.db")
	s, err := New(10, path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.SaveRun(testRun("run-1", time.Now()), nil); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	s.Close()

	s, err = New(10, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if _, err := s.GetRun("run-1"); err != nil {
		t.Errorf("run not persisted: %v", err)
	}
}

func TestStorage_New_UnusablePath(t *testing.T) {
	// A directory cannot be opened as a database file.
	if _, err := New(10, t.TempDir()); err == nil {
		t.Error("expected error opening a directory as a database")
	}
}
