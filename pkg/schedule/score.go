package schedule

import (
	"time"

	"github.com/vanderheijden86/planwork/pkg/model"
)

// Scorer computes (speed, coverage, urgency) for candidate sequences of one
// request. Urgency depends on "now", which comes from the injected clock.
type Scorer struct {
	req     *model.PlanRequest
	tasks   map[string]model.Task
	members map[string]map[string]bool
	clock   model.Clock
}

// NewScorer indexes the request's tasks and goal membership for scoring. A
// goal's task set is the union of its declared TaskIDs and the tasks linking
// to it via goal_id, the same rule the impact analyzer applies.
func NewScorer(req *model.PlanRequest, clock model.Clock) *Scorer {
	if clock == nil {
		clock = model.SystemClock{}
	}
	tasks := make(map[string]model.Task, len(req.Tasks))
	for _, t := range req.Tasks {
		tasks[t.ID] = t
	}
	members := make(map[string]map[string]bool, len(req.Goals))
	for _, goal := range req.Goals {
		set := make(map[string]bool, len(goal.TaskIDs))
		for _, id := range goal.TaskIDs {
			set[id] = true
		}
		members[goal.ID] = set
	}
	for _, t := range req.Tasks {
		if t.GoalID != "" {
			if set, ok := members[t.GoalID]; ok {
				set[t.ID] = true
			}
		}
	}
	return &Scorer{req: req, tasks: tasks, members: members, clock: clock}
}

// Score builds the path for one sequence. totalHours is the schedule
// makespan, which the speed score measures against a four week horizon of
// available hours.
func (s *Scorer) Score(sequence []string, totalHours int) model.PlanPath {
	inSequence := make(map[string]bool, len(sequence))
	for _, id := range sequence {
		inSequence[id] = true
	}

	var completed, partial []string
	for _, goal := range s.req.Goals {
		hit, miss := 0, 0
		for id := range s.members[goal.ID] {
			if inSequence[id] {
				hit++
			} else {
				miss++
			}
		}
		switch {
		case hit > 0 && miss == 0:
			completed = append(completed, goal.ID)
		case hit > 0:
			partial = append(partial, goal.ID)
		}
	}

	speed := 0.0
	if maxHours := s.req.AvailableHours * 4; maxHours > 0 {
		speed = 100 - float64(totalHours)/float64(maxHours)*100
	}
	if speed < 0 {
		speed = 0
	} else if speed > 100 {
		speed = 100
	}

	coverage := 0.0
	if len(s.req.Goals) > 0 {
		coverage = float64(len(completed)) / float64(len(s.req.Goals)) * 100
	}

	return model.PlanPath{
		Sequence:       sequence,
		TotalHours:     totalHours,
		GoalsCompleted: completed,
		GoalsPartial:   partial,
		SpeedScore:     speed,
		CoverageScore:  coverage,
		UrgencyScore:   s.urgency(sequence),
	}
}

var priorityUrgency = map[model.Priority]float64{
	model.PriorityShowStopper: 30,
	model.PriorityCritical:    24,
	model.PriorityMajor:       18,
	model.PriorityNormal:      12,
	model.PriorityMinor:       6,
}

// urgency combines due-date pressure (up to 50), priority weight (up to 30),
// and a small bonus growing with sequence length (up to 20).
func (s *Scorer) urgency(sequence []string) float64 {
	if len(sequence) == 0 {
		return 50.0
	}
	now := time.UnixMilli(s.clock.NowUnixMilli())

	var dueScores, prioScores []float64
	for _, id := range sequence {
		task, ok := s.tasks[id]
		if !ok {
			continue
		}
		if task.Due != nil {
			days := task.Due.Sub(now).Hours() / 24
			switch {
			case days <= 0:
				dueScores = append(dueScores, 50)
			case days <= 3:
				dueScores = append(dueScores, 40)
			case days <= 7:
				dueScores = append(dueScores, 30)
			case days <= 14:
				dueScores = append(dueScores, 20)
			default:
				dueScores = append(dueScores, 10)
			}
		}
		if w, ok := priorityUrgency[task.Priority]; ok {
			prioScores = append(prioScores, w)
		}
	}

	due := 25.0
	if len(dueScores) > 0 {
		due = mean(dueScores)
	}
	prio := 15.0
	if len(prioScores) > 0 {
		prio = mean(prioScores)
	}
	age := 2 * float64(len(sequence))
	if age > 20 {
		age = 20
	}

	total := due + prio + age
	if total > 100 {
		total = 100
	}
	return total
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
