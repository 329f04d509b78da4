package dispatch

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vanderheijden86/planwork/pkg/model"
)

// HistorySource supplies the actual/estimate ratio per solver; the history
// calibrator implements it. A nil source means ratio 1.0 for everyone.
type HistorySource interface {
	Ratio(solver string) float64
}

// Matcher assigns tasks to solvers. Decisions are deterministic: tasks are
// walked in sorted-id order and score ties break by solver name ascending.
type Matcher struct {
	registry *Registry
	prober   *Prober
	history  HistorySource
}

// NewMatcher wires a matcher. prober may be nil, which assumes every solver
// available; history may be nil.
func NewMatcher(registry *Registry, prober *Prober, history HistorySource) *Matcher {
	if prober == nil {
		prober = NewProber(registry, nil, nil, "")
	}
	return &Matcher{registry: registry, prober: prober, history: history}
}

// Match decides a solver for every task in the request. tagsByID carries
// explicit #solver tags from the tasks' originating records, keyed by task
// id.
func (m *Matcher) Match(req *model.PlanRequest, tagsByID map[string][]string, requireAvailable bool) map[string]model.SolverMatch {
	byID := make(map[string]model.Task, len(req.Tasks))
	for _, t := range req.Tasks {
		byID[t.ID] = t
	}
	out := make(map[string]model.SolverMatch, len(req.Tasks))
	for _, id := range req.SortedTaskIDs() {
		out[id] = m.MatchTask(byID[id], tagsByID[id], requireAvailable)
	}
	return out
}

// MatchTask decides a solver for one task. Rules, first hit wins: explicit
// tag (confidence 1.0), summary regex (0.9), capability scoring, then the
// most capable solver as a last resort (0.3).
func (m *Matcher) MatchTask(task model.Task, tags []string, requireAvailable bool) model.SolverMatch {
	match := model.SolverMatch{TaskID: task.ID}

	// 1. Explicit tags; the solver hint counts as the leading tag. Unknown
	// names warn and fall through.
	allTags := tags
	if task.SolverHint != "" {
		allTags = append([]string{task.SolverHint}, tags...)
	}
	for _, raw := range allTags {
		name := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(raw)), "#")
		if name == "" {
			continue
		}
		cap, ok := m.registry.Lookup(name)
		if !ok {
			if match.Warning == "" {
				match.Warning = fmt.Sprintf("unknown solver tag #%s", name)
			}
			continue
		}
		if pass, assumed := m.passes(cap.Name, requireAvailable); pass {
			match.Solver = cap.Name
			match.Confidence = 1.0
			match.Reason = annotate(fmt.Sprintf("explicit tag #%s", name), assumed)
			return match
		}
	}

	// 2. Summary regex, solvers in name order.
	for _, name := range m.registry.Names() {
		re := m.registry.SummaryRegex(name)
		if re == nil || !re.MatchString(task.Summary) {
			continue
		}
		if pass, assumed := m.passes(name, requireAvailable); pass {
			cap, _ := m.registry.Lookup(name)
			match.Solver = cap.Name
			match.Confidence = 0.9
			match.Reason = annotate("summary regex match", assumed)
			return match
		}
	}

	// 3. Capability scoring over solvers that can handle the complexity.
	complexity := complexityOf(task)
	type scored struct {
		name    string
		score   float64
		assumed bool
	}
	var survivors []scored
	for _, name := range m.registry.Names() {
		cap, _ := m.registry.Lookup(name)
		if cap.MaxComplexity < complexity {
			continue
		}
		pass, assumed := m.passes(name, requireAvailable)
		if !pass {
			continue
		}
		survivors = append(survivors, scored{
			name:    cap.Name,
			score:   m.score(task, cap, complexity),
			assumed: assumed,
		})
	}
	if len(survivors) > 0 {
		sort.SliceStable(survivors, func(i, j int) bool {
			if survivors[i].score != survivors[j].score {
				return survivors[i].score > survivors[j].score
			}
			return survivors[i].name < survivors[j].name
		})
		best := survivors[0]
		match.Solver = best.name
		match.Confidence = best.score
		match.Reason = annotate(fmt.Sprintf("capability match (complexity %d)", complexity), best.assumed)
		if len(survivors) > 1 {
			match.Fallback = survivors[1].name
		}
		return match
	}

	// 4. Nothing survived: hand the task to the most capable solver.
	cap, ok := m.registry.MostCapable()
	if !ok {
		match.Warning = "no solvers registered"
		return match
	}
	_, assumed := m.passes(cap.Name, requireAvailable)
	match.Solver = cap.Name
	match.Confidence = 0.3
	match.Reason = annotate("fallback: most capable solver", assumed)
	return match
}

func (m *Matcher) passes(name string, requireAvailable bool) (ok, assumed bool) {
	if !requireAvailable {
		return true, false
	}
	a := m.prober.Check(name)
	return a.Available, a.Assumed
}

func annotate(reason string, assumed bool) string {
	if assumed {
		return reason + " (assuming available)"
	}
	return reason
}

// complexityOf estimates task complexity on a 1-10 scale from estimate
// hours, file spread, and priority.
func complexityOf(task model.Task) int {
	var c int
	switch {
	case task.EstimateHours <= 1:
		c = 2
	case task.EstimateHours <= 4:
		c = 4
	case task.EstimateHours <= 8:
		c = 6
	case task.EstimateHours <= 16:
		c = 8
	default:
		c = 10
	}
	if n := len(task.AffectedFiles); n > 5 {
		c += 2
	} else if n > 2 {
		c++
	}
	switch task.Priority {
	case model.PriorityShowStopper:
		c += 2
	case model.PriorityCritical:
		c++
	case model.PriorityMinor:
		c--
	}
	if c < 1 {
		c = 1
	} else if c > 10 {
		c = 10
	}
	return c
}

func (m *Matcher) score(task model.Task, cap model.SolverCapability, complexity int) float64 {
	capabilityFit := 0.0
	for _, f := range task.AffectedFiles {
		ext := strings.ToLower(filepath.Ext(f))
		for _, supported := range cap.Extensions {
			if ext == strings.ToLower(supported) {
				capabilityFit = 0.4
				break
			}
		}
		if capabilityFit > 0 {
			break
		}
	}

	ratio := 1.0
	if m.history != nil {
		ratio = m.history.Ratio(cap.Name)
	}
	var historyScore float64
	if ratio <= 1 {
		historyScore = 0.8 + 0.2*(1-ratio)
		if historyScore > 1.0 {
			historyScore = 1.0
		}
	} else {
		historyScore = 0.8 - 0.3*(ratio-1)
		if historyScore < 0.3 {
			historyScore = 0.3
		}
	}

	diff := cap.MaxComplexity - complexity
	if diff < 0 {
		diff = -diff
	}
	complexityFit := 1 - float64(diff)/10

	return 0.3*capabilityFit + 0.4*historyScore + 0.3*complexityFit
}
