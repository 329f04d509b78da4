package analysis_test

import (
	"reflect"
	"testing"

	"github.com/vanderheijden86/planwork/pkg/analysis"
	"github.com/vanderheijden86/planwork/pkg/model"
)

func TestTransitive(t *testing.T) {
	tasks := []model.Task{
		{ID: "A", Priority: 2},
		{ID: "B", Priority: 2, DependsOn: []string{"A"}},
		{ID: "C", Priority: 2, DependsOn: []string{"B"}},
		{ID: "D", Priority: 2, DependsOn: []string{"A"}},
	}
	a := analysis.NewImpactAnalyzer(analysis.NewGraph(tasks), nil)

	if got := a.Transitive("A"); !reflect.DeepEqual(got, []string{"B", "C", "D"}) {
		t.Errorf("Transitive(A) = %v, want [B C D]", got)
	}
	if got := a.Transitive("C"); got != nil {
		t.Errorf("Transitive(C) = %v, want nil", got)
	}
	if got := a.Transitive("ghost"); got != nil {
		t.Errorf("Transitive on unknown id = %v, want nil", got)
	}
}

func TestImpactScores(t *testing.T) {
	a := analysis.NewImpactAnalyzer(analysis.NewGraph(demoTasks()), demoGoals())

	t1, ok := a.Impact("T1")
	if !ok {
		t.Fatal("Impact(T1) not found")
	}
	// 2 of 6 tasks, 6 of 42 hours, 1 of 3 goals.
	if !reflect.DeepEqual(t1.TransitiveBlocks, []string{"T2", "T3"}) {
		t.Errorf("T1 transitive = %v", t1.TransitiveBlocks)
	}
	if t1.BlockedHours != 6 {
		t.Errorf("T1 blocked hours = %d, want 6", t1.BlockedHours)
	}
	if !reflect.DeepEqual(t1.BlockedGoals, []string{"G1"}) {
		t.Errorf("T1 blocked goals = %v, want [G1]", t1.BlockedGoals)
	}
	want := 25.7 // 40*2/6 + 40*6/42 + 20*1/3, rounded
	if t1.Score != want {
		t.Errorf("T1 score = %v, want %v", t1.Score, want)
	}
	if t1.DirectBlocks != 2 {
		t.Errorf("T1 direct blocks = %d, want 2", t1.DirectBlocks)
	}

	// A leaf blocks nothing, including its own goal.
	t6, _ := a.Impact("T6")
	if t6.Score != 0 {
		t.Errorf("T6 score = %v, want 0", t6.Score)
	}
	if t6.BlockedGoals != nil {
		t.Errorf("T6 blocked goals = %v, want nil", t6.BlockedGoals)
	}
}

func TestImpactRanking(t *testing.T) {
	a := analysis.NewImpactAnalyzer(analysis.NewGraph(demoTasks()), demoGoals())
	impacts := a.ValueImpacts()

	if impacts[0].TaskID != "T1" {
		t.Errorf("highest value should be T1, got %s (%.1f)", impacts[0].TaskID, impacts[0].Score)
	}
	for i := 1; i < len(impacts); i++ {
		if impacts[i-1].Score < impacts[i].Score {
			t.Fatalf("ranking not descending at %d: %v", i, impacts)
		}
		if impacts[i-1].Score == impacts[i].Score && impacts[i-1].TaskID > impacts[i].TaskID {
			t.Fatalf("equal scores must order by id: %s before %s", impacts[i-1].TaskID, impacts[i].TaskID)
		}
	}

	top := a.HighestValue(2)
	if len(top) != 2 || top[0].TaskID != "T1" {
		t.Errorf("HighestValue(2) = %v", top)
	}
	if got := a.HighestValue(0); len(got) != 6 {
		t.Errorf("HighestValue(0) should return all, got %d", len(got))
	}
}

func TestImpactZeroDenominators(t *testing.T) {
	// No goals and zero-hour tasks must not divide by zero.
	tasks := []model.Task{
		{ID: "A", Priority: 2},
		{ID: "B", Priority: 2, DependsOn: []string{"A"}},
	}
	a := analysis.NewImpactAnalyzer(analysis.NewGraph(tasks), nil)
	impact, _ := a.Impact("A")
	if impact.Score != 20.0 { // only the 40*(1/2) task term contributes
		t.Errorf("score = %v, want 20.0", impact.Score)
	}
}
