package schedule

import "github.com/vanderheijden86/planwork/pkg/model"

// ParetoFilter returns the non-dominated candidates, preserving input order.
// When every candidate is dominated (impossible unless the set is empty or
// contains duplicates compared against themselves) the first one is kept, so
// a non-empty input always yields a non-empty frontier.
func ParetoFilter(paths []model.PlanPath) []model.PlanPath {
	if len(paths) == 0 {
		return nil
	}
	var frontier []model.PlanPath
	for i := range paths {
		dominated := false
		for j := range paths {
			if i == j {
				continue
			}
			if paths[j].Dominates(&paths[i]) {
				dominated = true
				break
			}
		}
		if !dominated {
			frontier = append(frontier, paths[i])
		}
	}
	if len(frontier) == 0 {
		frontier = paths[:1]
	}
	return frontier
}

// Recommend picks the frontier path with the highest weighted score. Ties go
// to the shorter path, then to the lexically smaller first task id. Returns
// nil for an empty frontier.
func Recommend(paths []model.PlanPath, w model.Weights) *model.PlanPath {
	var best *model.PlanPath
	var bestScore float64
	for i := range paths {
		p := &paths[i]
		score := p.WeightedScore(w)
		if best == nil {
			best, bestScore = p, score
			continue
		}
		switch {
		case score > bestScore:
			best, bestScore = p, score
		case score == bestScore && p.TotalHours < best.TotalHours:
			best, bestScore = p, score
		case score == bestScore && p.TotalHours == best.TotalHours &&
			firstID(p) < firstID(best):
			best, bestScore = p, score
		}
	}
	if best == nil {
		return nil
	}
	chosen := *best
	return &chosen
}

func firstID(p *model.PlanPath) string {
	if len(p.Sequence) == 0 {
		return ""
	}
	return p.Sequence[0]
}
