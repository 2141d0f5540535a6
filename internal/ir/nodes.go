package ir

import "fmt"

// IntentNode is a single intent extracted from the task description.
// Nodes are produced by the semantic compiler; the core never mutates them
// beyond status bookkeeping on the owning graph.
type IntentNode struct {
	ID          string         `json:"id"`
	Kind        IntentKind     `json:"kind"`
	Description string         `json:"description"`
	Target      string         `json:"target,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	Priority    Priority       `json:"priority"`
	Confidence  float64        `json:"confidence"`

	// Hierarchy. Both sides must reference existing intents; the validator
	// enforces the referential invariant.
	ParentID string   `json:"parent_id,omitempty"`
	ChildIDs []string `json:"child_ids,omitempty"`
}

// ConstraintNode is a restriction on one or more intents or actions.
type ConstraintNode struct {
	ID          string           `json:"id"`
	Kind        ConstraintKind   `json:"kind"`
	Status      ConstraintStatus `json:"status"`
	Description string           `json:"description"`
	// Expression is an optional machine-checkable form of the constraint.
	Expression string   `json:"expression,omitempty"`
	AppliesTo  []string `json:"applies_to,omitempty"`
	Priority   Priority `json:"priority"`
	Confidence float64  `json:"confidence"`

	// Challenge bookkeeping, populated when Status != /active.
	ChallengeReason    string `json:"challenge_reason,omitempty"`
	Alternative        string `json:"alternative,omitempty"`
	InvalidationReason string `json:"invalidation_reason,omitempty"`
}

// Challenge moves an active constraint to /challenged, recording why and an
// optional alternative. The node stays in the graph. Challenged and
// invalidated constraints never return to active.
func (c *ConstraintNode) Challenge(reason, alternative string) error {
	if c.Status != ConstraintActive {
		return fmt.Errorf("constraint %s is %s, only active constraints can be challenged", c.ID, c.Status)
	}
	c.Status = ConstraintChallenged
	c.ChallengeReason = reason
	c.Alternative = alternative
	return nil
}

// Invalidate moves an active constraint to /invalidated, making it inert.
func (c *ConstraintNode) Invalidate(reason string) error {
	if c.Status != ConstraintActive {
		return fmt.Errorf("constraint %s is %s, only active constraints can be invalidated", c.ID, c.Status)
	}
	c.Status = ConstraintInvalidated
	c.InvalidationReason = reason
	return nil
}

// ActionNode is a concrete executable step derived from an intent.
type ActionNode struct {
	ID          string         `json:"id"`
	Kind        ActionKind     `json:"kind"`
	Description string         `json:"description"`
	Target      string         `json:"target,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	Priority    Priority       `json:"priority"`

	// Provenance and scoping.
	DerivedFromIntent string   `json:"derived_from_intent,omitempty"`
	ConstrainedBy     []string `json:"constrained_by,omitempty"`

	// DependsOn must form a DAG over the graph's actions. The validator
	// reports any cycle as DEPENDENCY_CYCLE.
	DependsOn []string `json:"depends_on,omitempty"`

	// Execution hints.
	EstimatedDurationMs int64  `json:"estimated_duration_ms,omitempty"`
	RiskLevel           string `json:"risk_level,omitempty"`
	Rollback            string `json:"rollback,omitempty"`
}
