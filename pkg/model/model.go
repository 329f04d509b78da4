// Package model defines the planning domain: tasks, goals, plan requests and
// results, solver capabilities, and the snapshot records the planner reads
// from collaborator-owned stores.
package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Priority orders tasks from MINOR (1) to SHOW_STOPPER (5). Higher values
// win tie-breaks throughout the planner.
type Priority int

const (
	PriorityMinor       Priority = 1
	PriorityNormal      Priority = 2
	PriorityMajor       Priority = 3
	PriorityCritical    Priority = 4
	PriorityShowStopper Priority = 5
)

var priorityNames = map[Priority]string{
	PriorityMinor:       "MINOR",
	PriorityNormal:      "NORMAL",
	PriorityMajor:       "MAJOR",
	PriorityCritical:    "CRITICAL",
	PriorityShowStopper: "SHOW_STOPPER",
}

// ParsePriority maps a string form to a Priority. Matching is
// case-insensitive; numeric forms "1".."5" are accepted.
func ParsePriority(s string) (Priority, error) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	for p, name := range priorityNames {
		if name == normalized {
			return p, nil
		}
	}
	if n, err := strconv.Atoi(normalized); err == nil {
		p := Priority(n)
		if p.Valid() {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown priority %q", s)
}

// Valid reports whether p is one of the five defined levels.
func (p Priority) Valid() bool {
	return p >= PriorityMinor && p <= PriorityShowStopper
}

func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Priority(%d)", int(p))
}

// Task is one unit of work. Tasks are immutable during a planning run.
type Task struct {
	ID            string     `json:"id"`
	Summary       string     `json:"summary"`
	GoalID        string     `json:"goal_id,omitempty"`
	Priority      Priority   `json:"priority"`
	EstimateHours int        `json:"estimate_hours"`
	DependsOn     []string   `json:"depends_on,omitempty"`
	Blocks        []string   `json:"blocks,omitempty"` // derived: reverse of DependsOn
	AffectedFiles []string   `json:"affected_files,omitempty"`
	SolverHint    string     `json:"solver_hint,omitempty"`
	Due           *time.Time `json:"due_date,omitempty"`
}

// Validate checks the fields a single task controls. Cross-task checks
// (duplicate ids, goal membership) belong to PlanRequest.Validate.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return &RequestError{Field: "task.id", Reason: "empty id"}
	}
	if !t.Priority.Valid() {
		return &RequestError{Field: "task.priority", Reason: fmt.Sprintf("task %s: priority %d out of range", t.ID, t.Priority)}
	}
	if t.EstimateHours < 0 {
		return &RequestError{Field: "task.estimate_hours", Reason: fmt.Sprintf("task %s: negative estimate %d", t.ID, t.EstimateHours)}
	}
	return nil
}

// Goal groups tasks under a shared objective. Higher Priority means more
// important. TaskIDs is informational; the authoritative link is each task's
// GoalID.
type Goal struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Priority int      `json:"priority"`
	TaskIDs  []string `json:"tasks"`
}

// Weights scales the three path objectives when picking a recommendation.
// The zero value means "use defaults" (all 1.0).
type Weights struct {
	Speed    float64 `json:"speed"`
	Coverage float64 `json:"coverage"`
	Urgency  float64 `json:"urgency"`
}

// DefaultWeights weighs all three objectives equally.
func DefaultWeights() Weights {
	return Weights{Speed: 1.0, Coverage: 1.0, Urgency: 1.0}
}

// PlanRequest is the whole input for one planning call.
type PlanRequest struct {
	Tasks          []Task  `json:"tasks"`
	Goals          []Goal  `json:"goals,omitempty"`
	AvailableHours int     `json:"available_hours"`
	MaxParallel    int     `json:"max_parallel"`
	Weights        Weights `json:"objective_weights"`
}

// Default knobs applied by Normalize.
const (
	DefaultAvailableHours = 40
	DefaultMaxParallel    = 15
	DefaultEstimateHours  = 4
)

// Normalize fills zero-value knobs with defaults, drops depends_on references
// to unknown tasks, dedupes the remainder, and rederives every Blocks list
// from the reverse of depends_on. It mutates the request in place and is
// idempotent.
func (r *PlanRequest) Normalize() {
	if r.AvailableHours == 0 {
		r.AvailableHours = DefaultAvailableHours
	}
	if r.MaxParallel == 0 {
		r.MaxParallel = DefaultMaxParallel
	}
	if (r.Weights == Weights{}) {
		r.Weights = DefaultWeights()
	}

	known := make(map[string]bool, len(r.Tasks))
	for i := range r.Tasks {
		known[r.Tasks[i].ID] = true
	}

	blocks := make(map[string][]string, len(r.Tasks))
	for i := range r.Tasks {
		t := &r.Tasks[i]
		if len(t.DependsOn) == 0 {
			t.DependsOn = nil
			continue
		}
		seen := make(map[string]bool, len(t.DependsOn))
		kept := t.DependsOn[:0]
		for _, dep := range t.DependsOn {
			if !known[dep] || seen[dep] || dep == t.ID {
				if dep == t.ID && known[dep] {
					// A self-dependency is a cycle, not an unknown reference;
					// keep it so the graph reports it.
					kept = append(kept, dep)
					seen[dep] = true
				}
				continue
			}
			seen[dep] = true
			kept = append(kept, dep)
			blocks[dep] = append(blocks[dep], t.ID)
		}
		t.DependsOn = kept
	}
	for i := range r.Tasks {
		r.Tasks[i].Blocks = blocks[r.Tasks[i].ID]
	}
}

// Validate rejects requests the planner cannot honor: duplicate or empty ids,
// negative estimates or knobs, weights that are negative or sum to zero, and
// goal links that resolve to no declared goal. Call after Normalize.
func (r *PlanRequest) Validate() error {
	seen := make(map[string]bool, len(r.Tasks))
	for i := range r.Tasks {
		t := &r.Tasks[i]
		if err := t.Validate(); err != nil {
			return err
		}
		if seen[t.ID] {
			return &RequestError{Field: "tasks", Reason: fmt.Sprintf("duplicate task id %s", t.ID)}
		}
		seen[t.ID] = true
	}
	if r.AvailableHours < 0 {
		return &RequestError{Field: "available_hours", Reason: fmt.Sprintf("negative available hours %d", r.AvailableHours)}
	}
	if r.MaxParallel < 0 {
		return &RequestError{Field: "max_parallel", Reason: fmt.Sprintf("negative max parallel %d", r.MaxParallel)}
	}
	if r.Weights.Speed < 0 || r.Weights.Coverage < 0 || r.Weights.Urgency < 0 {
		return &RequestError{Field: "objective_weights", Reason: "negative weight"}
	}
	if r.Weights.Speed+r.Weights.Coverage+r.Weights.Urgency == 0 {
		return &RequestError{Field: "objective_weights", Reason: "weights sum to zero"}
	}

	// A goal_id must resolve when goals are declared. An empty goal set means
	// every task implicitly belongs to the synthetic default goal.
	if len(r.Goals) > 0 {
		goalIDs := make(map[string]bool, len(r.Goals))
		for _, g := range r.Goals {
			goalIDs[g.ID] = true
		}
		for i := range r.Tasks {
			if gid := r.Tasks[i].GoalID; gid != "" && !goalIDs[gid] {
				return &RequestError{Field: "task.goal_id", Reason: fmt.Sprintf("task %s references unknown goal %s", r.Tasks[i].ID, gid)}
			}
		}
	}
	return nil
}

// TotalEstimateHours sums the estimates over all tasks.
func (r *PlanRequest) TotalEstimateHours() int {
	total := 0
	for i := range r.Tasks {
		total += r.Tasks[i].EstimateHours
	}
	return total
}

// PlanPath is one dependency-respecting execution path with its objective
// scores. Sequence may cover a subset of the request when the path targets a
// single goal.
type PlanPath struct {
	Sequence       []string `json:"task_sequence"`
	TotalHours     int      `json:"total_hours"`
	GoalsCompleted []string `json:"goals_completed"`
	GoalsPartial   []string `json:"goals_partial"`
	SpeedScore     float64  `json:"speed_score"`
	CoverageScore  float64  `json:"coverage_score"`
	UrgencyScore   float64  `json:"urgency_score"`
}

// Dominates reports whether p beats other on at least one objective without
// losing on any.
func (p *PlanPath) Dominates(other *PlanPath) bool {
	better := false
	pairs := [3][2]float64{
		{p.SpeedScore, other.SpeedScore},
		{p.CoverageScore, other.CoverageScore},
		{p.UrgencyScore, other.UrgencyScore},
	}
	for _, pair := range pairs {
		if pair[0] < pair[1] {
			return false
		}
		if pair[0] > pair[1] {
			better = true
		}
	}
	return better
}

// WeightedScore collapses the three objectives under the given weights.
func (p *PlanPath) WeightedScore(w Weights) float64 {
	return p.SpeedScore*w.Speed + p.CoverageScore*w.Coverage + p.UrgencyScore*w.Urgency
}

// PlanResult is the whole output of one planning call.
type PlanResult struct {
	Paths       []PlanPath `json:"pareto_paths"`
	Recommended *PlanPath  `json:"recommended_path,omitempty"`
	Batch       []string   `json:"immediate_batch"`
	Explanation string     `json:"explanation"`
}

// ValueImpact describes the downstream work one task unlocks.
type ValueImpact struct {
	TaskID           string   `json:"task_id"`
	Summary          string   `json:"summary"`
	Priority         Priority `json:"priority"`
	DirectBlocks     int      `json:"direct_blockers"`
	TransitiveBlocks []string `json:"blocked_tasks"`
	BlockedHours     int      `json:"blocked_hours"`
	BlockedGoals     []string `json:"blocked_goals"`
	Score            float64  `json:"value_score"`
}

// SolverCapability describes one registered solver. A non-empty
// UnavailableReason marks the solver statically unavailable regardless of
// rate-limit state.
type SolverCapability struct {
	Name              string   `json:"name" yaml:"name"`
	MaxComplexity     int      `json:"max_complexity" yaml:"max_complexity"`
	Concurrency       int      `json:"concurrency" yaml:"concurrency"`
	SummaryRegex      string   `json:"summary_regex,omitempty" yaml:"summary_regex,omitempty"`
	Capabilities      []string `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
	Extensions        []string `json:"extensions,omitempty" yaml:"extensions,omitempty"`
	RequiredTools     []string `json:"required_tools,omitempty" yaml:"required_tools,omitempty"`
	Strengths         []string `json:"strengths,omitempty" yaml:"strengths,omitempty"`
	Models            []string `json:"models,omitempty" yaml:"models,omitempty"`
	UnavailableReason string   `json:"unavailable_reason,omitempty" yaml:"unavailable_reason,omitempty"`
}

// SolverMatch is the matcher's decision for one task.
type SolverMatch struct {
	TaskID     string  `json:"task_id"`
	Solver     string  `json:"solver"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
	Fallback   string  `json:"fallback,omitempty"`
	Warning    string  `json:"warning,omitempty"`
}

// RateLimitRecord mirrors one entry of the external rate-limit store. The
// JSON field names follow the store's camelCase convention.
type RateLimitRecord struct {
	Model           string `json:"model"`
	Account         string `json:"account"`
	IsLimited       bool   `json:"isLimited"`
	AvailableAtUnix int64  `json:"availableAtUnix"` // ms since epoch
	SessionID       string `json:"sessionId,omitempty"`
	DetectedAt      string `json:"detectedAt,omitempty"`
	Source          string `json:"source,omitempty"`
}

// CompletionRecord is one line of the append-only completion log.
type CompletionRecord struct {
	TaskID         string    `json:"task_id"`
	EstimatedHours float64   `json:"estimated_hours"`
	ActualHours    float64   `json:"actual_hours"`
	Solver         string    `json:"solver"`
	CompletedAt    time.Time `json:"completed_at"`
	Success        bool      `json:"success"`
	Notes          string    `json:"notes,omitempty"`
}

// Clock supplies the current instant for availability probes and urgency
// scoring. Tests inject fixed clocks.
type Clock interface {
	NowUnixMilli() int64
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) NowUnixMilli() int64 { return time.Now().UnixMilli() }

// SortedTaskIDs returns the request's task ids in ascending order.
func (r *PlanRequest) SortedTaskIDs() []string {
	ids := make([]string, 0, len(r.Tasks))
	for i := range r.Tasks {
		ids = append(ids, r.Tasks[i].ID)
	}
	sort.Strings(ids)
	return ids
}
