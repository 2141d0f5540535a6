package planner

import (
	"time"

	"planweaver/internal/ir"
)

// StepStatus tracks the execution state of a single plan step.
// The core records status; enforcement of timeouts and retries belongs to
// whatever executes the plan for real.
type StepStatus string

const (
	StepPending   StepStatus = "/pending"
	StepRunning   StepStatus = "/running"
	StepCompleted StepStatus = "/completed"
	StepFailed    StepStatus = "/failed"
	StepSkipped   StepStatus = "/skipped"
)

// ExecutionStep is one plan entry, 1:1 with exactly one action node.
type ExecutionStep struct {
	// Number is 1-based and contiguous across the plan.
	Number      int            `json:"number"`
	ActionID    string         `json:"action_id"`
	Kind        ir.ActionKind  `json:"kind"`
	Description string         `json:"description"`
	Target      string         `json:"target,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	Priority    ir.Priority    `json:"priority"`

	// DependsOnSteps holds the step numbers of this step's dependencies.
	// Every entry is strictly smaller than Number.
	DependsOnSteps []int `json:"depends_on_steps,omitempty"`

	// ConstraintNotes carries the descriptions of constraints scoped to the
	// underlying action, for the consuming execution pipeline.
	ConstraintNotes []string `json:"constraint_notes,omitempty"`

	TimeoutMs  int64      `json:"timeout_ms"`
	MaxRetries int        `json:"max_retries"`
	Status     StepStatus `json:"status"`
}

// ExecutionPlan is a dependency-ordered sequence of steps. It references its
// source graph by id but does not own the graph.
type ExecutionPlan struct {
	ID        string           `json:"id"`
	GraphID   string           `json:"graph_id"`
	CreatedAt time.Time        `json:"created_at"`
	Steps     []*ExecutionStep `json:"steps"`
}

// Step returns the step with the given 1-based number, or nil.
func (p *ExecutionPlan) Step(number int) *ExecutionStep {
	if number < 1 || number > len(p.Steps) {
		return nil
	}
	return p.Steps[number-1]
}

// ReadySteps returns every pending step whose dependency steps have all
// completed. This is the fan-out surface for a caller-supplied worker pool;
// the core itself never schedules threads.
func (p *ExecutionPlan) ReadySteps() []*ExecutionStep {
	var ready []*ExecutionStep
	for _, step := range p.Steps {
		if step.Status != StepPending {
			continue
		}
		ok := true
		for _, depNum := range step.DependsOnSteps {
			dep := p.Step(depNum)
			if dep == nil || dep.Status != StepCompleted {
				ok = false
				break
			}
		}
		if ok {
			ready = append(ready, step)
		}
	}
	return ready
}
