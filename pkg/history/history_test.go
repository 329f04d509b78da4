package history_test

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/planwork/pkg/history"
	"github.com/vanderheijden86/planwork/pkg/model"
)

func TestLoad(t *testing.T) {
	log := "\uFEFF" + strings.Join([]string{
		`{"task_id":"T1","estimated_hours":4,"actual_hours":6,"solver":"jules","completed_at":"2026-08-01T10:00:00Z"}`,
		``,
		`not json`,
		`{"task_id":"T2","estimated_hours":2,"actual_hours":1,"solver":"gemini","completed_at":"2026-08-02T10:00:00Z","success":false}`,
	}, "\n")

	var warnings []int
	snap, err := history.Load(strings.NewReader(log), func(line int, err error) {
		warnings = append(warnings, line)
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(snap) != 2 {
		t.Fatalf("loaded %d records, want 2", len(snap))
	}
	if snap[0].TaskID != "T1" || !snap[0].Success {
		t.Errorf("first record = %+v", snap[0])
	}
	if snap[1].Success {
		t.Error("explicit success=false lost")
	}
	if len(warnings) != 1 || warnings[0] != 3 {
		t.Errorf("warnings = %v, want [3]", warnings)
	}
}

func TestLoadFileMissing(t *testing.T) {
	snap, err := history.LoadFile(filepath.Join(t.TempDir(), "absent.jsonl"), nil)
	if err != nil {
		t.Fatalf("missing log must not error, got %v", err)
	}
	if snap != nil {
		t.Errorf("snapshot = %v, want nil", snap)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "completions.jsonl")
	data := `{"task_id":"T1","estimated_hours":4,"actual_hours":4,"solver":"jules","completed_at":"2026-08-01T10:00:00Z"}` + "\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	snap, err := history.LoadFile(path, nil)
	if err != nil || len(snap) != 1 {
		t.Fatalf("LoadFile: snap=%v err=%v", snap, err)
	}
}

func rec(solver string, est, actual float64, success bool) model.CompletionRecord {
	return model.CompletionRecord{
		TaskID: "T", EstimatedHours: est, ActualHours: actual,
		Solver: solver, Success: success,
	}
}

func TestCalibratorStats(t *testing.T) {
	snap := history.Snapshot{
		rec("jules", 4, 6, true),   // 1.5
		rec("jules", 2, 1, true),   // 0.5
		rec("gemini", 4, 4, false), // 1.0
	}
	c := history.NewCalibrator(snap, 0)
	stats := c.Stats()

	if stats.Samples != 3 {
		t.Errorf("Samples = %d, want 3", stats.Samples)
	}
	if stats.MeanRatio != 1.0 {
		t.Errorf("MeanRatio = %v, want 1.0", stats.MeanRatio)
	}
	if math.Abs(stats.StdDev-0.5) > 1e-9 {
		t.Errorf("StdDev = %v, want sample std dev 0.5", stats.StdDev)
	}

	jules := stats.PerSolver["jules"]
	if jules.Samples != 2 || jules.MeanRatio != 1.0 || jules.SuccessRate != 1.0 {
		t.Errorf("jules stats = %+v", jules)
	}
	gemini := stats.PerSolver["gemini"]
	if gemini.SuccessRate != 0 {
		t.Errorf("gemini success rate = %v, want 0", gemini.SuccessRate)
	}
}

func TestCalibrateSmallSample(t *testing.T) {
	c := history.NewCalibrator(history.Snapshot{
		rec("jules", 4, 8, true),
		rec("jules", 4, 8, true),
	}, 0)
	if got := c.Calibrate(10, "jules"); got != 10 {
		t.Errorf("Calibrate with 2 samples = %v, want passthrough 10", got)
	}
}

func TestCalibrateSolverSpecific(t *testing.T) {
	snap := history.Snapshot{
		rec("jules", 4, 8, true),  // 2.0
		rec("jules", 2, 4, true),  // 2.0
		rec("gemini", 4, 2, true), // 0.5
	}
	c := history.NewCalibrator(snap, 0)

	if got := c.Calibrate(10, "jules"); got != 20 {
		t.Errorf("Calibrate(10, jules) = %v, want 20", got)
	}
	if got := c.Calibrate(10, "gemini"); got != 5 {
		t.Errorf("Calibrate(10, gemini) = %v, want 5", got)
	}
	// Unknown solver falls back to the overall mean (2+2+0.5)/3 = 1.5.
	if got := c.Calibrate(10, "angrav"); got != 15 {
		t.Errorf("Calibrate(10, angrav) = %v, want overall 15", got)
	}
}

func TestCalibratorClampsRatios(t *testing.T) {
	snap := history.Snapshot{
		rec("jules", 1, 1000, true), // clamps to 10
		rec("jules", 1000, 1, true), // clamps to 0.1
		rec("jules", 0, 5, true),    // skipped: no estimate
	}
	c := history.NewCalibrator(snap, 1)
	stats := c.Stats()
	if math.Abs(stats.MeanRatio-5.05) > 1e-9 {
		t.Errorf("MeanRatio = %v, want clamped mean 5.05", stats.MeanRatio)
	}
}

func TestCalibratorEmpty(t *testing.T) {
	c := history.NewCalibrator(nil, 0)
	if got := c.Calibrate(7, "jules"); got != 7 {
		t.Errorf("empty history Calibrate = %v, want 7", got)
	}
	if stats := c.Stats(); stats.MeanRatio != 1.0 || stats.StdDev != 0 {
		t.Errorf("empty stats = %+v", stats)
	}
}
