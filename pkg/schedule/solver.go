package schedule

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/vanderheijden86/planwork/pkg/analysis"
	"github.com/vanderheijden86/planwork/pkg/model"
)

// DefaultDeadline is the soft wall-clock budget for candidate enumeration.
const DefaultDeadline = 10 * time.Second

// Options tunes the solver. The zero value is usable: a ten second budget,
// seed zero, and the system clock.
type Options struct {
	// Deadline is a soft budget. The solver never abandons the first
	// candidate; later candidates are dropped once the budget is spent.
	Deadline time.Duration

	// Seed fixes the order in which alternative tie-break strategies run,
	// which decides what survives a tight deadline. Same seed, same output.
	Seed int64

	// Clock supplies "now" for urgency scoring.
	Clock model.Clock
}

func (o Options) withDefaults() Options {
	if o.Deadline <= 0 {
		o.Deadline = DefaultDeadline
	}
	if o.Clock == nil {
		o.Clock = model.SystemClock{}
	}
	return o
}

// Solver produces scored candidate plans for one request.
type Solver struct {
	opts Options
}

// NewSolver returns a solver with the given options.
func NewSolver(opts Options) *Solver {
	return &Solver{opts: opts.withDefaults()}
}

// Solve enumerates candidate linearizations and scores each one. The first
// candidate is the makespan-optimal emission order (start hour ascending,
// priority descending, id ascending); further candidates come from re-running
// the topological sort under rotated tie-break emphases, deduplicated by
// sequence. A cycle yields no candidates and a *model.CycleError.
func (s *Solver) Solve(ctx context.Context, g *analysis.Graph, req *model.PlanRequest) ([]model.PlanPath, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	begin := time.Now()

	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	sched := BuildSchedule(g, order)
	scorer := NewScorer(req, s.opts.Clock)

	seen := map[string]bool{}
	var paths []model.PlanPath
	admit := func(sequence []string) {
		key := strings.Join(sequence, "\x00")
		if seen[key] {
			return
		}
		seen[key] = true
		paths = append(paths, scorer.Score(sequence, sched.Makespan()))
	}
	admit(sched.Sequence())

	goalRank := make(map[string]int, len(req.Goals))
	for _, goal := range req.Goals {
		goalRank[goal.ID] = goal.Priority
	}

	// Alternative emphases: shortest-first for speed, goal-grouped for
	// coverage, due-date-first for urgency.
	strategies := []func(a, b model.Task) bool{
		func(a, b model.Task) bool {
			if a.EstimateHours != b.EstimateHours {
				return a.EstimateHours < b.EstimateHours
			}
			return a.Priority > b.Priority
		},
		func(a, b model.Task) bool {
			if a.GoalID != b.GoalID {
				ra, rb := goalRank[a.GoalID], goalRank[b.GoalID]
				if ra != rb {
					return ra > rb
				}
				return a.GoalID < b.GoalID
			}
			return a.Priority > b.Priority
		},
		func(a, b model.Task) bool {
			switch {
			case a.Due != nil && b.Due == nil:
				return true
			case a.Due == nil && b.Due != nil:
				return false
			case a.Due != nil && b.Due != nil && !a.Due.Equal(*b.Due):
				return a.Due.Before(*b.Due)
			}
			return a.Priority > b.Priority
		},
	}
	rng := rand.New(rand.NewSource(s.opts.Seed))
	rng.Shuffle(len(strategies), func(i, j int) {
		strategies[i], strategies[j] = strategies[j], strategies[i]
	})

	for _, before := range strategies {
		if err := ctx.Err(); err != nil {
			return paths, nil
		}
		if time.Since(begin) > s.opts.Deadline {
			break
		}
		alt, err := g.OrderBy(before)
		if err != nil {
			return nil, err
		}
		admit(alt)
	}
	return paths, nil
}
