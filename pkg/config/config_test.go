package config_test

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vanderheijden86/planwork/pkg/config"
	"github.com/vanderheijden86/planwork/pkg/model"
)

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	if cfg.Planner.AvailableHours != 40 || cfg.Planner.MaxParallel != 15 {
		t.Errorf("planner defaults = %+v", cfg.Planner)
	}
	if cfg.SolverDeadline() != 10*time.Second {
		t.Errorf("SolverDeadline = %v", cfg.SolverDeadline())
	}
	if cfg.History.LogPath != "completions.jsonl" || cfg.History.MinSamples != 3 {
		t.Errorf("history defaults = %+v", cfg.History)
	}
}

func TestLoadFromReader(t *testing.T) {
	yaml := `
planner:
  available_hours: 20
  weights: {speed: 2.0, coverage: 0.5, urgency: 1.0}
history:
  log_path: /var/log/completions.jsonl
solvers:
  - name: jules
    max_complexity: 10
    concurrency: 15
    summary_regex: '^(implement|create)\b'
    extensions: [.go, .py]
unknown_section:
  ignored: true
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Planner.AvailableHours != 20 {
		t.Errorf("available_hours = %d", cfg.Planner.AvailableHours)
	}
	if cfg.Planner.Weights != (model.Weights{Speed: 2.0, Coverage: 0.5, Urgency: 1.0}) {
		t.Errorf("weights = %+v", cfg.Planner.Weights)
	}
	// Unset knobs backfill from defaults.
	if cfg.Planner.MaxParallel != 15 || cfg.Planner.SolverDeadlineMS != 10_000 {
		t.Errorf("backfill failed: %+v", cfg.Planner)
	}
	if cfg.History.LogPath != "/var/log/completions.jsonl" || cfg.History.MinSamples != 3 {
		t.Errorf("history = %+v", cfg.History)
	}

	reg, err := cfg.Registry()
	if err != nil {
		t.Fatalf("Registry: %v", err)
	}
	if reg.Len() != 1 {
		t.Errorf("registry size = %d, want 1", reg.Len())
	}
	if _, ok := reg.Lookup("jules"); !ok {
		t.Error("configured solver missing from registry")
	}
}

func TestRegistryFallsBackToStock(t *testing.T) {
	reg, err := config.DefaultConfig().Registry()
	if err != nil {
		t.Fatalf("Registry: %v", err)
	}
	if reg.Len() != 5 {
		t.Errorf("stock registry size = %d, want 5", reg.Len())
	}
}

func TestRegistryNamesBadSolver(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader(`
solvers:
  - name: broken
    max_complexity: 99
`))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if _, err := cfg.Registry(); err == nil || !strings.Contains(err.Error(), "broken") {
		t.Errorf("registry error should name the solver, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Planner.AvailableHours != 40 {
		t.Errorf("missing file should yield defaults, got %+v", cfg.Planner)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "planwork.yaml")
	cfg := config.DefaultConfig()
	cfg.Planner.Seed = 7
	cfg.Planner.MaxParallel = 3
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Planner.Seed != 7 || loaded.Planner.MaxParallel != 3 {
		t.Errorf("round trip lost fields: %+v", loaded.Planner)
	}
}

func TestLoadMalformed(t *testing.T) {
	if _, err := config.LoadFromReader(strings.NewReader("planner: [not a map")); err == nil {
		t.Error("malformed YAML should fail")
	}
}
