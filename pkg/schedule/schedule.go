// Package schedule turns a dependency graph into scored candidate plans: it
// assigns start hours, enumerates linearizations, filters them to the Pareto
// frontier, and carves the immediate parallel batch.
package schedule

import (
	"sort"

	"github.com/vanderheijden86/planwork/pkg/analysis"
)

// Slot is one task's placement on the hour axis.
type Slot struct {
	TaskID    string
	StartHour int
	EndHour   int
}

// Schedule holds the earliest-start placement of every task. Slots are kept
// sorted by start hour ascending, ties by priority descending then id
// ascending, which is also the canonical emission order of the solver.
type Schedule struct {
	slots []Slot
	byID  map[string]int
}

// BuildSchedule computes earliest starts by longest-path relaxation: a task
// starts when its last prerequisite ends. order must be a topological
// linearization of g; prerequisites missing from order start at hour zero.
func BuildSchedule(g *analysis.Graph, order []string) Schedule {
	ends := make(map[string]int, len(order))
	slots := make([]Slot, 0, len(order))
	for _, id := range order {
		task, ok := g.Task(id)
		if !ok {
			continue
		}
		start := 0
		for _, dep := range g.Deps(id) {
			if end, ok := ends[dep]; ok && end > start {
				start = end
			}
		}
		end := start + task.EstimateHours
		ends[id] = end
		slots = append(slots, Slot{TaskID: id, StartHour: start, EndHour: end})
	}

	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].StartHour != slots[j].StartHour {
			return slots[i].StartHour < slots[j].StartHour
		}
		a, _ := g.Task(slots[i].TaskID)
		b, _ := g.Task(slots[j].TaskID)
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		return a.ID < b.ID
	})

	byID := make(map[string]int, len(slots))
	for i := range slots {
		byID[slots[i].TaskID] = i
	}
	return Schedule{slots: slots, byID: byID}
}

// Slots returns the placements in canonical order.
func (s Schedule) Slots() []Slot { return s.slots }

// Slot returns the placement of one task.
func (s Schedule) Slot(id string) (Slot, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Slot{}, false
	}
	return s.slots[i], true
}

// Sequence returns task ids in canonical slot order.
func (s Schedule) Sequence() []string {
	ids := make([]string, len(s.slots))
	for i := range s.slots {
		ids[i] = s.slots[i].TaskID
	}
	return ids
}

// Makespan returns the hour at which the last task ends.
func (s Schedule) Makespan() int {
	max := 0
	for i := range s.slots {
		if s.slots[i].EndHour > max {
			max = s.slots[i].EndHour
		}
	}
	return max
}
