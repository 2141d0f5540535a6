package planner

import "fmt"

// QueueItem is the lightweight task-queue rendering of one plan step,
// consumable by an external work distributor. Everything is
// JSON-serializable; provenance ids tie an item back to its plan and graph.
type QueueItem struct {
	TaskID string `json:"task_id"`
	Kind   string `json:"kind"`
	// Priority is positional: step 1 is priority 1. Queue consumers that
	// want the original scheduling just sort ascending.
	Priority   int            `json:"priority"`
	Payload    map[string]any `json:"payload"`
	DependsOn  []string       `json:"depends_on,omitempty"`
	TimeoutMs  int64          `json:"timeout_ms"`
	MaxRetries int            `json:"max_retries"`
	PlanID     string         `json:"plan_id"`
	GraphID    string         `json:"graph_id"`
}

// ToQueueItems converts a plan into one queue item per step.
func ToQueueItems(p *ExecutionPlan) []QueueItem {
	items := make([]QueueItem, 0, len(p.Steps))
	for _, step := range p.Steps {
		item := QueueItem{
			TaskID:   queueTaskID(p.ID, step.Number),
			Kind:     string(step.Kind),
			Priority: step.Number,
			Payload: map[string]any{
				"action_id":   step.ActionID,
				"description": step.Description,
				"target":      step.Target,
				"parameters":  step.Parameters,
			},
			TimeoutMs:  step.TimeoutMs,
			MaxRetries: step.MaxRetries,
			PlanID:     p.ID,
			GraphID:    p.GraphID,
		}
		for _, depNum := range step.DependsOnSteps {
			item.DependsOn = append(item.DependsOn, queueTaskID(p.ID, depNum))
		}
		items = append(items, item)
	}
	return items
}

func queueTaskID(planID string, stepNumber int) string {
	return fmt.Sprintf("%s_step_%d", planID, stepNumber)
}
