package analysis

import "sort"

// ConflictIndex maps touched files to the tasks touching them. Two tasks
// conflict iff they share at least one file. Paths compare by case-sensitive
// equality; any normalization is the caller's job.
type ConflictIndex struct {
	fileToTasks map[string][]int
	filesOf     [][]string
	graph       *Graph
}

// NewConflictIndex builds the file->tasks relation from the graph's tasks.
func NewConflictIndex(g *Graph) *ConflictIndex {
	idx := &ConflictIndex{
		fileToTasks: make(map[string][]int),
		filesOf:     make([][]string, len(g.tasks)),
		graph:       g,
	}
	for i := range g.tasks {
		seen := make(map[string]bool, len(g.tasks[i].AffectedFiles))
		for _, f := range g.tasks[i].AffectedFiles {
			if seen[f] {
				continue
			}
			seen[f] = true
			idx.fileToTasks[f] = append(idx.fileToTasks[f], i)
			idx.filesOf[i] = append(idx.filesOf[i], f)
		}
	}
	return idx
}

// FilesOf returns the deduplicated files touched by id, in input order.
func (idx *ConflictIndex) FilesOf(id string) []string {
	i, ok := idx.graph.index[id]
	if !ok {
		return nil
	}
	return idx.filesOf[i]
}

// Conflicts returns the ids sharing at least one file with id, sorted.
func (idx *ConflictIndex) Conflicts(id string) []string {
	i, ok := idx.graph.index[id]
	if !ok {
		return nil
	}
	hit := make(map[int]bool)
	for _, f := range idx.filesOf[i] {
		for _, other := range idx.fileToTasks[f] {
			if other != i {
				hit[other] = true
			}
		}
	}
	if len(hit) == 0 {
		return nil
	}
	ids := make([]string, 0, len(hit))
	for h := range hit {
		ids = append(ids, idx.graph.tasks[h].ID)
	}
	sort.Strings(ids)
	return ids
}

// ConflictFree reports whether the batch is pairwise file-disjoint. Unknown
// ids contribute no files.
func (idx *ConflictIndex) ConflictFree(batch []string) bool {
	claimed := make(map[string]bool)
	for _, id := range batch {
		for _, f := range idx.FilesOf(id) {
			if claimed[f] {
				return false
			}
			claimed[f] = true
		}
	}
	return true
}

// ConflictPairs lists every conflicting pair (a, b) with a < b, sorted
// lexicographically. The report renderer consumes this ordering.
func (idx *ConflictIndex) ConflictPairs() [][2]string {
	seen := make(map[[2]string]bool)
	var pairs [][2]string
	for _, handles := range idx.fileToTasks {
		for x := 0; x < len(handles); x++ {
			for y := x + 1; y < len(handles); y++ {
				a := idx.graph.tasks[handles[x]].ID
				b := idx.graph.tasks[handles[y]].ID
				if b < a {
					a, b = b, a
				}
				key := [2]string{a, b}
				if !seen[key] {
					seen[key] = true
					pairs = append(pairs, key)
				}
			}
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})
	return pairs
}
