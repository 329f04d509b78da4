package analysis

import (
	"math"
	"sort"

	"github.com/vanderheijden86/planwork/pkg/model"
)

// ImpactAnalyzer computes how much downstream work each task unlocks:
// transitively blocked tasks, their hours, and the goals that cannot finish
// until the task lands.
type ImpactAnalyzer struct {
	graph      *Graph
	goals      []model.Goal
	goalTasks  map[string]map[string]bool
	totalHours int
}

// NewImpactAnalyzer indexes goal membership. A goal's task set is the union
// of its declared TaskIDs and the tasks linking to it via goal_id.
func NewImpactAnalyzer(g *Graph, goals []model.Goal) *ImpactAnalyzer {
	a := &ImpactAnalyzer{
		graph:     g,
		goals:     goals,
		goalTasks: make(map[string]map[string]bool, len(goals)),
	}
	for _, goal := range goals {
		members := make(map[string]bool, len(goal.TaskIDs))
		for _, id := range goal.TaskIDs {
			members[id] = true
		}
		a.goalTasks[goal.ID] = members
	}
	for i := range g.tasks {
		t := &g.tasks[i]
		a.totalHours += t.EstimateHours
		if t.GoalID != "" {
			if members, ok := a.goalTasks[t.GoalID]; ok {
				members[t.ID] = true
			}
		}
	}
	return a
}

// Transitive returns every task reachable downstream of id, excluding id
// itself, sorted ascending. Traversal is an iterative stack over handles.
func (a *ImpactAnalyzer) Transitive(id string) []string {
	start, ok := a.graph.index[id]
	if !ok {
		return nil
	}
	return a.graph.handleIDs(a.transitiveHandles(start))
}

func (a *ImpactAnalyzer) transitiveHandles(start int) []int {
	visited := make(map[int]bool)
	stack := append([]int(nil), a.graph.blocks[start]...)
	var out []int
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[h] || h == start {
			continue
		}
		visited[h] = true
		out = append(out, h)
		stack = append(stack, a.graph.blocks[h]...)
	}
	return out
}

// Impact computes the value impact of one task.
func (a *ImpactAnalyzer) Impact(id string) (model.ValueImpact, bool) {
	start, ok := a.graph.index[id]
	if !ok {
		return model.ValueImpact{}, false
	}
	task := a.graph.tasks[start]
	transitive := a.transitiveHandles(start)

	blockedHours := 0
	blockedSet := make(map[string]bool, len(transitive))
	for _, h := range transitive {
		blockedHours += a.graph.tasks[h].EstimateHours
		blockedSet[a.graph.tasks[h].ID] = true
	}

	// A goal is blocked when some of its tasks sit downstream of this one.
	// The task's own goal does not count on membership alone; a leaf task
	// blocks nothing.
	var blockedGoals []string
	for _, goal := range a.goals {
		for member := range a.goalTasks[goal.ID] {
			if blockedSet[member] {
				blockedGoals = append(blockedGoals, goal.ID)
				break
			}
		}
	}
	sort.Strings(blockedGoals)

	score := 0.0
	if n := a.graph.Len(); n > 0 {
		score += 40 * float64(len(transitive)) / float64(n)
	}
	if a.totalHours > 0 {
		score += 40 * float64(blockedHours) / float64(a.totalHours)
	}
	if len(a.goals) > 0 {
		score += 20 * float64(len(blockedGoals)) / float64(len(a.goals))
	}
	score = math.Round(score*10) / 10
	if score < 0 {
		score = 0
	} else if score > 100 {
		score = 100
	}

	return model.ValueImpact{
		TaskID:           task.ID,
		Summary:          task.Summary,
		Priority:         task.Priority,
		DirectBlocks:     len(a.graph.blocks[start]),
		TransitiveBlocks: a.graph.handleIDs(transitive),
		BlockedHours:     blockedHours,
		BlockedGoals:     blockedGoals,
		Score:            score,
	}, true
}

// ValueImpacts returns every task's impact, ordered by score descending,
// ties broken by id ascending.
func (a *ImpactAnalyzer) ValueImpacts() []model.ValueImpact {
	impacts := make([]model.ValueImpact, 0, a.graph.Len())
	for _, id := range a.graph.TaskIDs() {
		impact, _ := a.Impact(id)
		impacts = append(impacts, impact)
	}
	sort.SliceStable(impacts, func(i, j int) bool {
		if impacts[i].Score != impacts[j].Score {
			return impacts[i].Score > impacts[j].Score
		}
		return impacts[i].TaskID < impacts[j].TaskID
	})
	return impacts
}

// HighestValue returns the top limit impacts; limit <= 0 means all.
func (a *ImpactAnalyzer) HighestValue(limit int) []model.ValueImpact {
	impacts := a.ValueImpacts()
	if limit > 0 && limit < len(impacts) {
		impacts = impacts[:limit]
	}
	return impacts
}
