package schedule

import (
	"github.com/vanderheijden86/planwork/pkg/analysis"
)

// SelectBatch walks order and admits tasks into the immediate parallel batch.
// A task is admitted when the batch has room, every prerequisite is already
// in the batch or in completed, and its files are disjoint from files claimed
// by earlier admissions. Dependency or file rejections skip the task and keep
// walking, so a ready task later in the order can still enter; a full batch
// stops the walk.
func SelectBatch(g *analysis.Graph, idx *analysis.ConflictIndex, order []string, completed map[string]bool, maxParallel int) []string {
	if maxParallel <= 0 {
		return nil
	}
	var batch []string
	inBatch := make(map[string]bool)
	claimed := make(map[string]bool)

	for _, id := range order {
		if len(batch) >= maxParallel {
			break
		}
		if !g.HasTask(id) || inBatch[id] || completed[id] {
			continue
		}

		ready := true
		for _, dep := range g.Deps(id) {
			if !inBatch[dep] && !completed[dep] {
				ready = false
				break
			}
		}
		if !ready {
			continue
		}

		files := idx.FilesOf(id)
		clash := false
		for _, f := range files {
			if claimed[f] {
				clash = true
				break
			}
		}
		if clash {
			continue
		}

		batch = append(batch, id)
		inBatch[id] = true
		for _, f := range files {
			claimed[f] = true
		}
	}
	return batch
}
