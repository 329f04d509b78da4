package schedule_test

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/vanderheijden86/planwork/pkg/analysis"
	"github.com/vanderheijden86/planwork/pkg/model"
	"github.com/vanderheijden86/planwork/pkg/schedule"
)

type fixedClock int64

func (c fixedClock) NowUnixMilli() int64 { return int64(c) }

func chainTasks() []model.Task {
	return []model.Task{
		{ID: "T1", Summary: "Setup auth module", GoalID: "G1", Priority: model.PriorityMajor, EstimateHours: 8, AffectedFiles: []string{"auth"}},
		{ID: "T2", Summary: "Add login endpoint", GoalID: "G1", Priority: model.PriorityNormal, EstimateHours: 4, DependsOn: []string{"T1"}, AffectedFiles: []string{"auth", "routes"}},
		{ID: "T3", Summary: "Add logout endpoint", GoalID: "G1", Priority: model.PriorityNormal, EstimateHours: 2, DependsOn: []string{"T1"}, AffectedFiles: []string{"auth", "routes"}},
	}
}

func chainRequest() *model.PlanRequest {
	req := &model.PlanRequest{
		Tasks:          chainTasks(),
		Goals:          []model.Goal{{ID: "G1", Name: "Auth", Priority: 3, TaskIDs: []string{"T1", "T2", "T3"}}},
		AvailableHours: 40,
		MaxParallel:    5,
		Weights:        model.DefaultWeights(),
	}
	req.Normalize()
	return req
}

func TestBuildSchedule(t *testing.T) {
	g := analysis.NewGraph(chainTasks())
	order, err := g.TopologicalOrder()
	if err != nil {
		t.Fatalf("TopologicalOrder: %v", err)
	}
	sched := schedule.BuildSchedule(g, order)

	if got := sched.Makespan(); got != 12 {
		t.Errorf("Makespan = %d, want 12", got)
	}
	want := map[string][2]int{"T1": {0, 8}, "T2": {8, 12}, "T3": {8, 10}}
	for id, hours := range want {
		slot, ok := sched.Slot(id)
		if !ok {
			t.Fatalf("Slot(%s) missing", id)
		}
		if slot.StartHour != hours[0] || slot.EndHour != hours[1] {
			t.Errorf("Slot(%s) = [%d, %d], want %v", id, slot.StartHour, slot.EndHour, hours)
		}
	}

	// Canonical order: start ascending, then priority desc, then id asc.
	if got := sched.Sequence(); !reflect.DeepEqual(got, []string{"T1", "T2", "T3"}) {
		t.Errorf("Sequence = %v, want [T1 T2 T3]", got)
	}
}

func TestSolveChain(t *testing.T) {
	req := chainRequest()
	g := analysis.NewGraph(req.Tasks)
	solver := schedule.NewSolver(schedule.Options{Clock: fixedClock(1_700_000_000_000)})

	paths, err := solver.Solve(context.Background(), g, req)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if len(paths) == 0 {
		t.Fatal("no candidate paths")
	}

	pos := map[string]int{}
	for _, p := range paths {
		if len(p.Sequence) != 3 {
			t.Fatalf("path misses tasks: %v", p.Sequence)
		}
		for i, id := range p.Sequence {
			pos[id] = i
		}
		if pos["T1"] > pos["T2"] || pos["T1"] > pos["T3"] {
			t.Errorf("dependency order violated: %v", p.Sequence)
		}
		if p.TotalHours != 12 {
			t.Errorf("TotalHours = %d, want makespan 12", p.TotalHours)
		}
	}

	rec := schedule.Recommend(schedule.ParetoFilter(paths), req.Weights)
	if rec == nil {
		t.Fatal("no recommendation")
	}
	if !reflect.DeepEqual(rec.Sequence, []string{"T1", "T2", "T3"}) {
		t.Errorf("recommended sequence = %v, want [T1 T2 T3]", rec.Sequence)
	}
}

func TestSolveCycle(t *testing.T) {
	g := analysis.NewGraph([]model.Task{
		{ID: "T1", Priority: 2, DependsOn: []string{"T2"}},
		{ID: "T2", Priority: 2, DependsOn: []string{"T1"}},
	})
	solver := schedule.NewSolver(schedule.Options{})
	if _, err := solver.Solve(context.Background(), g, &model.PlanRequest{}); err == nil {
		t.Fatal("expected cycle error")
	}
}

func TestSolveCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := chainRequest()
	solver := schedule.NewSolver(schedule.Options{})
	if _, err := solver.Solve(ctx, analysis.NewGraph(req.Tasks), req); err == nil {
		t.Fatal("expected context error")
	}
}

func TestSolveDeterministic(t *testing.T) {
	req := chainRequest()
	g := analysis.NewGraph(req.Tasks)
	opts := schedule.Options{Seed: 42, Clock: fixedClock(1_700_000_000_000), Deadline: time.Minute}

	first, err := schedule.NewSolver(opts).Solve(context.Background(), g, req)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	second, err := schedule.NewSolver(opts).Solve(context.Background(), g, req)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("same seed must produce identical candidates")
	}
}
