// Package testutil provides shared fixtures for planner tests: the six-task
// demo request, deterministic clocks, and canned rate-limit views.
package testutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/planwork/pkg/model"
	"github.com/vanderheijden86/planwork/pkg/ratelimit"
)

// DemoNowMS is the fixed "now" the demo fixtures assume.
const DemoNowMS = int64(1_700_000_000_000)

// DemoRequest returns the six-task demo: an auth chain, a dashboard chain,
// and a free-standing docs task across three goals.
func DemoRequest() *model.PlanRequest {
	req := &model.PlanRequest{
		Tasks: []model.Task{
			{ID: "T1", Summary: "Setup auth module", GoalID: "G1", Priority: model.PriorityMajor, EstimateHours: 8, AffectedFiles: []string{"auth.py"}},
			{ID: "T2", Summary: "Add login endpoint", GoalID: "G1", Priority: model.PriorityNormal, EstimateHours: 4, DependsOn: []string{"T1"}, AffectedFiles: []string{"auth.py", "routes.py"}},
			{ID: "T3", Summary: "Add logout endpoint", GoalID: "G1", Priority: model.PriorityNormal, EstimateHours: 2, DependsOn: []string{"T1"}, AffectedFiles: []string{"auth.py", "routes.py"}},
			{ID: "T4", Summary: "Create user dashboard", GoalID: "G2", Priority: model.PriorityMajor, EstimateHours: 16, AffectedFiles: []string{"dashboard.tsx"}},
			{ID: "T5", Summary: "Add metrics charts", GoalID: "G2", Priority: model.PriorityNormal, EstimateHours: 8, DependsOn: []string{"T4"}, AffectedFiles: []string{"dashboard.tsx", "charts.tsx"}},
			{ID: "T6", Summary: "Write documentation", GoalID: "G3", Priority: model.PriorityMinor, EstimateHours: 4, AffectedFiles: []string{"README.md"}},
		},
		Goals: []model.Goal{
			{ID: "G1", Name: "Authentication", Priority: 3, TaskIDs: []string{"T1", "T2", "T3"}},
			{ID: "G2", Name: "Dashboard", Priority: 2, TaskIDs: []string{"T4", "T5"}},
			{ID: "G3", Name: "Documentation", Priority: 1, TaskIDs: []string{"T6"}},
		},
		AvailableHours: 40,
		MaxParallel:    5,
		Weights:        model.DefaultWeights(),
	}
	req.Normalize()
	return req
}

// FixedClock is a model.Clock pinned to one instant.
type FixedClock int64

// NowUnixMilli implements model.Clock.
func (c FixedClock) NowUnixMilli() int64 { return int64(c) }

// DemoClock returns a clock pinned to DemoNowMS.
func DemoClock() FixedClock { return FixedClock(DemoNowMS) }

// StaticLimits builds an in-memory rate-limit view from records.
func StaticLimits(records ...model.RateLimitRecord) ratelimit.View {
	return ratelimit.NewStaticView(records...)
}

// FailingLimits is a rate-limit view whose store is always unreachable.
type FailingLimits struct{}

// Get implements ratelimit.View.
func (FailingLimits) Get(string, string) (model.RateLimitRecord, bool, error) {
	return model.RateLimitRecord{}, false, errors.New("rate-limit store unreachable")
}

// LimitedRecord builds a rate-limit record that blocks modelName until
// DemoNowMS+delay.
func LimitedRecord(modelName string, delay time.Duration) model.RateLimitRecord {
	return model.RateLimitRecord{
		Model:           modelName,
		Account:         "default",
		IsLimited:       true,
		AvailableAtUnix: DemoNowMS + delay.Milliseconds(),
	}
}

// WriteCompletionLog writes records as a JSONL file under dir and returns
// its path.
func WriteCompletionLog(t *testing.T, dir string, records ...model.CompletionRecord) string {
	t.Helper()
	path := filepath.Join(dir, "completions.jsonl")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create completion log: %v", err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			t.Fatalf("encode completion record: %v", err)
		}
	}
	return path
}
