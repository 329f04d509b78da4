// Package planner is the facade over the planning core: it validates a
// request, builds the graph indices, solves and scores candidate paths,
// selects the immediate batch, and matches tasks to solvers.
package planner

import (
	"context"
	"fmt"

	"github.com/vanderheijden86/planwork/pkg/analysis"
	"github.com/vanderheijden86/planwork/pkg/config"
	"github.com/vanderheijden86/planwork/pkg/debug"
	"github.com/vanderheijden86/planwork/pkg/dispatch"
	"github.com/vanderheijden86/planwork/pkg/history"
	"github.com/vanderheijden86/planwork/pkg/metrics"
	"github.com/vanderheijden86/planwork/pkg/model"
	"github.com/vanderheijden86/planwork/pkg/ratelimit"
	"github.com/vanderheijden86/planwork/pkg/report"
	"github.com/vanderheijden86/planwork/pkg/schedule"
)

// Planner runs planning calls against one set of collaborator snapshots.
// A Planner is immutable after construction; concurrent Plan calls are safe.
type Planner struct {
	cfg        *config.Config
	registry   *dispatch.Registry
	limits     ratelimit.View
	calibrator *history.Calibrator
	stats      history.Stats
	clock      model.Clock
	account    string
}

// Option configures a Planner.
type Option func(*Planner)

// WithConfig replaces the default configuration.
func WithConfig(cfg *config.Config) Option {
	return func(p *Planner) { p.cfg = cfg }
}

// WithRegistry replaces the stock solver registry.
func WithRegistry(reg *dispatch.Registry) Option {
	return func(p *Planner) { p.registry = reg }
}

// WithLimits supplies the rate-limit view. Without one, solvers are assumed
// available.
func WithLimits(view ratelimit.View) Option {
	return func(p *Planner) { p.limits = view }
}

// WithHistory supplies the completion history snapshot.
func WithHistory(snap history.Snapshot) Option {
	return func(p *Planner) {
		p.calibrator = history.NewCalibrator(snap, 0)
	}
}

// WithClock pins "now"; tests use this.
func WithClock(clock model.Clock) Option {
	return func(p *Planner) { p.clock = clock }
}

// WithAccount sets the account for rate-limit lookups.
func WithAccount(account string) Option {
	return func(p *Planner) { p.account = account }
}

// New builds a Planner. Defaults: stock registry, default config, no
// rate-limit view, empty history, system clock.
func New(opts ...Option) *Planner {
	p := &Planner{
		cfg:      config.DefaultConfig(),
		registry: dispatch.DefaultRegistry(),
		clock:    model.SystemClock{},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.calibrator == nil {
		p.calibrator = history.NewCalibrator(nil, p.cfg.History.MinSamples)
	}
	p.stats = p.calibrator.Stats()
	return p
}

// Plan runs one planning call.
func (p *Planner) Plan(ctx context.Context, req *model.PlanRequest) (*model.PlanResult, error) {
	return p.PlanWithCompleted(ctx, req, nil)
}

// PlanWithCompleted is Plan with a set of task ids already completed
// elsewhere; those count as satisfied prerequisites during batch selection.
func (p *Planner) PlanWithCompleted(ctx context.Context, req *model.PlanRequest, completed map[string]bool) (*model.PlanResult, error) {
	clone := req.Clone()
	clone.Normalize()
	clone.EnsureDefaultGoal()
	if err := clone.Validate(); err != nil {
		return nil, err
	}

	var g *analysis.Graph
	metrics.Time("graph_build", func() {
		g = analysis.NewGraph(clone.Tasks)
	})

	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}
	debug.Log("plan: %d tasks, %d goals, makespan order ready", len(clone.Tasks), len(clone.Goals))

	solver := schedule.NewSolver(schedule.Options{
		Deadline: p.cfg.SolverDeadline(),
		Seed:     p.cfg.Planner.Seed,
		Clock:    p.clock,
	})
	var paths []model.PlanPath
	var solveErr error
	metrics.Time("solve", func() {
		paths, solveErr = solver.Solve(ctx, g, clone)
	})
	if solveErr != nil {
		return nil, fmt.Errorf("plan: %w", solveErr)
	}
	if len(paths) == 0 {
		// Budget exhausted before the first candidate.
		return &model.PlanResult{
			Explanation: "## Planning Decision\n\nNo feasible schedule found within the solver budget.",
		}, nil
	}

	var pareto []model.PlanPath
	var recommended *model.PlanPath
	metrics.Time("score", func() {
		pareto = schedule.ParetoFilter(paths)
		recommended = schedule.Recommend(pareto, clone.Weights)
	})

	var batch []string
	metrics.Time("batch", func() {
		idx := analysis.NewConflictIndex(g)
		batch = schedule.SelectBatch(g, idx, order, completed, clone.MaxParallel)
	})

	return &model.PlanResult{
		Paths:       pareto,
		Recommended: recommended,
		Batch:       batch,
		Explanation: report.PlanDecision(clone, recommended, batch),
	}, nil
}

// ValueImpact ranks the request's tasks by the downstream work they unlock.
func (p *Planner) ValueImpact(req *model.PlanRequest) ([]model.ValueImpact, error) {
	clone := req.Clone()
	clone.Normalize()
	clone.EnsureDefaultGoal()
	if err := clone.Validate(); err != nil {
		return nil, err
	}
	var impacts []model.ValueImpact
	metrics.Time("impact", func() {
		g := analysis.NewGraph(clone.Tasks)
		impacts = analysis.NewImpactAnalyzer(g, clone.Goals).ValueImpacts()
	})
	return impacts, nil
}

// Match assigns a solver to every task. tagsByID carries explicit #solver
// tags from the tasks' originating records.
func (p *Planner) Match(req *model.PlanRequest, tagsByID map[string][]string, requireAvailable bool) (map[string]model.SolverMatch, error) {
	clone := req.Clone()
	clone.Normalize()
	if err := clone.Validate(); err != nil {
		return nil, err
	}
	var matches map[string]model.SolverMatch
	metrics.Time("match", func() {
		matcher := dispatch.NewMatcher(p.registry, p.prober(), p.calibrator)
		matches = matcher.Match(clone, tagsByID, requireAvailable)
	})
	return matches, nil
}

// Availability probes every registered solver.
func (p *Planner) Availability() []dispatch.Availability {
	return p.prober().CheckAll()
}

// CalibrateEstimate scales an estimate by the solver's historical
// actual/estimate ratio.
func (p *Planner) CalibrateEstimate(hours float64, solver string) float64 {
	return p.calibrator.Calibrate(hours, solver)
}

// HistoryStats returns the aggregated completion history.
func (p *Planner) HistoryStats() history.Stats {
	return p.stats
}

func (p *Planner) prober() *dispatch.Prober {
	return dispatch.NewProber(p.registry, p.limits, p.clock, p.account)
}
