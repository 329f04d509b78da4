package planner_test

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/planwork/pkg/model"
	"github.com/vanderheijden86/planwork/pkg/planner"
	"github.com/vanderheijden86/planwork/pkg/testutil"
)

var priorities = []model.Priority{
	model.PriorityShowStopper,
	model.PriorityCritical,
	model.PriorityMajor,
	model.PriorityNormal,
	model.PriorityMinor,
}

var filePool = []string{"auth.go", "routes.go", "store.go", "ui.tsx", "docs.md"}

// genRequest generates acyclic requests: task i may only depend on tasks
// that come before it in the slice.
func genRequest() *rapid.Generator[*model.PlanRequest] {
	return rapid.Custom(func(t *rapid.T) *model.PlanRequest {
		n := rapid.IntRange(1, 10).Draw(t, "n")
		tasks := make([]model.Task, 0, n)
		ids := make([]string, 0, n)
		for i := 0; i < n; i++ {
			id := fmt.Sprintf("T%02d", i+1)
			task := model.Task{
				ID:            id,
				Summary:       "Implement step " + id,
				GoalID:        rapid.SampledFrom([]string{"G1", "G2"}).Draw(t, "goal"),
				Priority:      rapid.SampledFrom(priorities).Draw(t, "priority"),
				EstimateHours: rapid.IntRange(1, 16).Draw(t, "estimate"),
				AffectedFiles: rapid.SliceOfNDistinct(rapid.SampledFrom(filePool), 0, 2, rapid.ID).Draw(t, "files"),
			}
			for _, prev := range ids {
				if rapid.Bool().Draw(t, "dep") {
					task.DependsOn = append(task.DependsOn, prev)
				}
			}
			tasks = append(tasks, task)
			ids = append(ids, id)
		}
		return &model.PlanRequest{
			Tasks: tasks,
			Goals: []model.Goal{
				{ID: "G1", Name: "First", Priority: 2},
				{ID: "G2", Name: "Second", Priority: 1},
			},
			AvailableHours: 40,
			MaxParallel:    rapid.IntRange(1, 5).Draw(t, "max_parallel"),
		}
	})
}

func TestPlanProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		req := genRequest().Draw(t, "request")
		p := planner.New(planner.WithClock(testutil.DemoClock()))

		result, err := p.Plan(context.Background(), req)
		if err != nil {
			t.Fatalf("Plan: %v", err)
		}
		if result.Recommended == nil {
			t.Fatal("no recommended path")
		}

		deps := make(map[string][]string, len(req.Tasks))
		files := make(map[string][]string, len(req.Tasks))
		for _, task := range req.Tasks {
			deps[task.ID] = task.DependsOn
			files[task.ID] = task.AffectedFiles
		}

		// Every task appears exactly once in the recommended sequence.
		seen := make(map[string]int, len(req.Tasks))
		for _, id := range result.Recommended.Sequence {
			seen[id]++
		}
		if len(seen) != len(req.Tasks) {
			t.Fatalf("sequence covers %d of %d tasks", len(seen), len(req.Tasks))
		}
		for id, count := range seen {
			if count != 1 {
				t.Fatalf("task %s appears %d times", id, count)
			}
			if _, ok := deps[id]; !ok {
				t.Fatalf("sequence contains unknown task %s", id)
			}
		}

		// Prerequisites come before their dependents in every Pareto path.
		for _, path := range result.Paths {
			position := make(map[string]int, len(path.Sequence))
			for i, id := range path.Sequence {
				position[id] = i
			}
			for id, taskDeps := range deps {
				for _, dep := range taskDeps {
					if position[dep] >= position[id] {
						t.Fatalf("path %v places %s before its prerequisite %s", path.Sequence, id, dep)
					}
				}
			}
		}

		// The batch respects max_parallel, claims disjoint files, and only
		// admits tasks whose prerequisites are themselves in the batch.
		if len(result.Batch) > req.MaxParallel {
			t.Fatalf("batch %v exceeds max_parallel %d", result.Batch, req.MaxParallel)
		}
		inBatch := make(map[string]bool, len(result.Batch))
		claimed := make(map[string]bool)
		for _, id := range result.Batch {
			inBatch[id] = true
			for _, f := range files[id] {
				if claimed[f] {
					t.Fatalf("batch %v claims %s twice", result.Batch, f)
				}
				claimed[f] = true
			}
		}
		for _, id := range result.Batch {
			for _, dep := range deps[id] {
				if !inBatch[dep] {
					t.Fatalf("batch %v admits %s without its prerequisite %s", result.Batch, id, dep)
				}
			}
		}

		// No Pareto survivor dominates another.
		for i := range result.Paths {
			for j := range result.Paths {
				if i != j && result.Paths[i].Dominates(&result.Paths[j]) {
					t.Fatalf("path %d dominates surviving path %d", i, j)
				}
			}
		}

		// Path scores stay on the 0-100 scale.
		for _, path := range result.Paths {
			for _, score := range []float64{path.SpeedScore, path.CoverageScore, path.UrgencyScore} {
				if score < 0 || score > 100 {
					t.Fatalf("score %v out of range in %+v", score, path)
				}
			}
		}
	})
}

func TestValueImpactProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		req := genRequest().Draw(t, "request")
		p := planner.New(planner.WithClock(testutil.DemoClock()))

		impacts, err := p.ValueImpact(req)
		if err != nil {
			t.Fatalf("ValueImpact: %v", err)
		}
		if len(impacts) != len(req.Tasks) {
			t.Fatalf("got %d impacts for %d tasks", len(impacts), len(req.Tasks))
		}
		for i, imp := range impacts {
			if imp.Score < 0 || imp.Score > 100 {
				t.Fatalf("impact score %v out of range for %s", imp.Score, imp.TaskID)
			}
			if i > 0 && impacts[i-1].Score < imp.Score {
				t.Fatalf("impacts not sorted: %v before %v", impacts[i-1], imp)
			}
		}
	})
}

func TestPlanDeterministicProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		req := genRequest().Draw(t, "request")
		p := planner.New(planner.WithClock(testutil.DemoClock()))

		first, err := p.Plan(context.Background(), req)
		if err != nil {
			t.Fatalf("Plan: %v", err)
		}
		second, err := p.Plan(context.Background(), req)
		if err != nil {
			t.Fatalf("Plan: %v", err)
		}
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("plans diverge:\n%+v\n%+v", first, second)
		}
	})
}
