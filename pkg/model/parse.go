package model

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// MarshalJSON serializes a priority as its string form ("MAJOR", ...).
func (p Priority) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON accepts both string forms (case-insensitive) and the numeric
// forms 1-5.
func (p *Priority) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, perr := ParsePriority(s)
		if perr != nil {
			return perr
		}
		*p = parsed
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("priority must be a string or a number: %w", err)
	}
	parsed := Priority(n)
	if !parsed.Valid() {
		return fmt.Errorf("priority %d out of range", n)
	}
	*p = parsed
	return nil
}

// completedAtLayouts are the timestamp shapes the completion log is known to
// carry. RFC3339 first; the external writer sometimes omits the zone.
var completedAtLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// UnmarshalJSON parses one completion-log line. success defaults to true when
// absent; unknown fields are ignored.
func (c *CompletionRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		TaskID         string  `json:"task_id"`
		EstimatedHours float64 `json:"estimated_hours"`
		ActualHours    float64 `json:"actual_hours"`
		Solver         string  `json:"solver"`
		CompletedAt    string  `json:"completed_at"`
		Success        *bool   `json:"success"`
		Notes          string  `json:"notes"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	c.TaskID = raw.TaskID
	c.EstimatedHours = raw.EstimatedHours
	c.ActualHours = raw.ActualHours
	c.Solver = raw.Solver
	c.Notes = raw.Notes
	c.Success = true
	if raw.Success != nil {
		c.Success = *raw.Success
	}

	c.CompletedAt = time.Time{}
	if raw.CompletedAt != "" {
		var parsed time.Time
		var err error
		for _, layout := range completedAtLayouts {
			parsed, err = time.Parse(layout, raw.CompletedAt)
			if err == nil {
				break
			}
		}
		if err != nil {
			return fmt.Errorf("completed_at %q: unrecognized timestamp", raw.CompletedAt)
		}
		c.CompletedAt = parsed
	}
	return nil
}

// MarshalJSON writes the record back in the log's wire shape.
func (c CompletionRecord) MarshalJSON() ([]byte, error) {
	raw := struct {
		TaskID         string  `json:"task_id"`
		EstimatedHours float64 `json:"estimated_hours"`
		ActualHours    float64 `json:"actual_hours"`
		Solver         string  `json:"solver"`
		CompletedAt    string  `json:"completed_at"`
		Success        bool    `json:"success"`
		Notes          string  `json:"notes,omitempty"`
	}{
		TaskID:         c.TaskID,
		EstimatedHours: c.EstimatedHours,
		ActualHours:    c.ActualHours,
		Solver:         c.Solver,
		Success:        c.Success,
		Notes:          c.Notes,
	}
	if !c.CompletedAt.IsZero() {
		raw.CompletedAt = c.CompletedAt.Format(time.RFC3339)
	}
	return json.Marshal(raw)
}

// DefaultGoalID names the synthetic goal used when a request declares none.
const DefaultGoalID = "default"

// EnsureDefaultGoal gives goal-less requests a single synthetic goal covering
// every task, so coverage scoring and blocked-goal analysis have a frame of
// reference. Pre-existing goal_id links are remapped to the synthetic goal;
// with no goal set declared there is nothing else they could resolve to.
// No-op when goals are declared.
func (r *PlanRequest) EnsureDefaultGoal() {
	if len(r.Goals) > 0 {
		return
	}
	ids := make([]string, 0, len(r.Tasks))
	for i := range r.Tasks {
		ids = append(ids, r.Tasks[i].ID)
		r.Tasks[i].GoalID = DefaultGoalID
	}
	r.Goals = []Goal{{ID: DefaultGoalID, Name: "Default", Priority: 1, TaskIDs: ids}}
}

// Clone deep-copies the request so the planner can normalize without
// mutating caller-owned slices.
func (r *PlanRequest) Clone() *PlanRequest {
	out := &PlanRequest{
		Tasks:          make([]Task, len(r.Tasks)),
		Goals:          make([]Goal, len(r.Goals)),
		AvailableHours: r.AvailableHours,
		MaxParallel:    r.MaxParallel,
		Weights:        r.Weights,
	}
	for i := range r.Tasks {
		t := r.Tasks[i]
		t.DependsOn = append([]string(nil), t.DependsOn...)
		t.Blocks = append([]string(nil), t.Blocks...)
		t.AffectedFiles = append([]string(nil), t.AffectedFiles...)
		if t.Due != nil {
			due := *t.Due
			t.Due = &due
		}
		out.Tasks[i] = t
	}
	for i := range r.Goals {
		g := r.Goals[i]
		g.TaskIDs = append([]string(nil), g.TaskIDs...)
		out.Goals[i] = g
	}
	return out
}

// ParsePlanRequest decodes a request from JSON and prepares it for planning:
// estimate/knob/weight defaults, unknown depends_on references dropped, Blocks
// rederived, the synthetic default goal added when goals are absent, and full
// validation. The returned request is ready to hand to the planner.
func ParsePlanRequest(data []byte) (*PlanRequest, error) {
	var req PlanRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, &RequestError{Field: "json", Reason: err.Error()}
	}
	for i := range req.Tasks {
		if req.Tasks[i].Priority == 0 {
			req.Tasks[i].Priority = PriorityNormal
		}
		if req.Tasks[i].EstimateHours == 0 {
			req.Tasks[i].EstimateHours = DefaultEstimateHours
		}
	}
	req.Normalize()
	req.EnsureDefaultGoal()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}
