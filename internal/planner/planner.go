// Package planner turns a validated IR graph into a dependency-ordered
// execution plan.
//
// Ordering is Kahn's algorithm over the action depends_on edges with a
// priority-ranked ready queue: whenever several actions are simultaneously
// ready, the one with the best priority (critical first) gets the next step
// number, with action id as the deterministic tiebreak.
//
// Callers are expected to run the validator first; the planner fails fast
// with ErrUnorderable on cycles instead of looping.
package planner

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"planweaver/internal/ir"
	"planweaver/internal/logging"

	"github.com/google/uuid"
)

// ErrUnorderable is returned when the action set is non-empty but no action
// ever reaches zero in-degree, i.e. the dependency graph contains a cycle.
var ErrUnorderable = errors.New("actions cannot be ordered: dependency cycle")

// Per-kind step timeouts, applied when an action carries no duration
// estimate. An explicit estimate gets a 1.5x margin instead.
var defaultTimeouts = map[ir.ActionKind]time.Duration{
	ir.ActionCodeWrite:  30 * time.Second,
	ir.ActionCodeModify: 30 * time.Second,
	ir.ActionFileCreate: 30 * time.Second,
	ir.ActionFileDelete: 10 * time.Second,
	ir.ActionAPICall:    30 * time.Second,
	ir.ActionSimulation: 30 * time.Second,
	ir.ActionCodeRead:   5 * time.Second,
	ir.ActionValidation: 5 * time.Second,
	ir.ActionReasoning:  90 * time.Second,
}

// ToExecutionPlan synthesizes an ordered plan from the graph's actions.
func ToExecutionPlan(g *ir.Graph) (*ExecutionPlan, error) {
	timer := logging.StartTimer(logging.CategoryPlan, "ToExecutionPlan")
	defer timer.Stop()

	order, err := topoOrder(g)
	if err != nil {
		return nil, err
	}

	plan := &ExecutionPlan{
		ID:        fmt.Sprintf("/plan_%s", uuid.New().String()[:8]),
		GraphID:   g.ID,
		CreatedAt: time.Now().UTC(),
		Steps:     make([]*ExecutionStep, 0, len(order)),
	}

	// Step number already assigned to each placed action.
	stepByAction := make(map[string]int, len(order))

	for i, actionID := range order {
		action := g.Actions[actionID]
		number := i + 1
		stepByAction[actionID] = number

		step := &ExecutionStep{
			Number:      number,
			ActionID:    actionID,
			Kind:        action.Kind,
			Description: action.Description,
			Target:      action.Target,
			Parameters:  action.Parameters,
			Priority:    action.Priority,
			TimeoutMs:   stepTimeout(action).Milliseconds(),
			MaxRetries:  stepRetries(action.Kind),
			Status:      StepPending,
		}
		for _, depID := range action.DependsOn {
			if depNum, ok := stepByAction[depID]; ok {
				step.DependsOnSteps = append(step.DependsOnSteps, depNum)
			}
		}
		sort.Ints(step.DependsOnSteps)
		for _, constraintID := range action.ConstrainedBy {
			if c, ok := g.Constraints[constraintID]; ok {
				step.ConstraintNotes = append(step.ConstraintNotes, c.Description)
			}
		}
		plan.Steps = append(plan.Steps, step)
	}

	logging.Plan("plan %s synthesized from graph %s: %d steps", plan.ID, g.ID, len(plan.Steps))
	return plan, nil
}

// ExecutionOrder returns the action ids in execution order without
// materializing steps - a read-only preview using the same scheduling.
func ExecutionOrder(g *ir.Graph) ([]string, error) {
	return topoOrder(g)
}

// topoOrder runs Kahn's algorithm with the priority-ranked ready queue.
func topoOrder(g *ir.Graph) ([]string, error) {
	indegree := make(map[string]int, len(g.Actions))
	dependents := make(map[string][]string, len(g.Actions))

	for _, id := range g.SortedActionIDs() {
		action := g.Actions[id]
		if _, ok := indegree[id]; !ok {
			indegree[id] = 0
		}
		for _, depID := range action.DependsOn {
			// Dangling dependencies are the validator's problem; counting
			// them here would deadlock planning on a reference typo.
			if _, ok := g.Actions[depID]; !ok {
				continue
			}
			indegree[id]++
			dependents[depID] = append(dependents[depID], id)
		}
	}

	var ready []string
	for _, id := range g.SortedActionIDs() {
		if indegree[id] == 0 {
			ready = append(ready, id)
		}
	}
	sortReady(g, ready)

	order := make([]string, 0, len(g.Actions))
	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		inserted := false
		for _, depID := range dependents[next] {
			indegree[depID]--
			if indegree[depID] == 0 {
				ready = append(ready, depID)
				inserted = true
			}
		}
		if inserted {
			sortReady(g, ready)
		}
	}

	if len(order) < len(g.Actions) {
		logging.Get(logging.CategoryPlan).Error("graph %s: %d of %d actions unorderable",
			g.ID, len(g.Actions)-len(order), len(g.Actions))
		return nil, ErrUnorderable
	}
	return order, nil
}

// sortReady orders the ready queue by priority rank, then id.
func sortReady(g *ir.Graph, ready []string) {
	sort.Slice(ready, func(i, j int) bool {
		ri := g.Actions[ready[i]].Priority.Rank()
		rj := g.Actions[ready[j]].Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		return ready[i] < ready[j]
	})
}

func stepTimeout(action *ir.ActionNode) time.Duration {
	if action.EstimatedDurationMs > 0 {
		return time.Duration(float64(action.EstimatedDurationMs)*1.5) * time.Millisecond
	}
	if d, ok := defaultTimeouts[action.Kind]; ok {
		return d
	}
	return 30 * time.Second
}

func stepRetries(kind ir.ActionKind) int {
	// API calls are the flaky ones; everything else gets a modest budget.
	if kind == ir.ActionAPICall {
		return 3
	}
	return 2
}
