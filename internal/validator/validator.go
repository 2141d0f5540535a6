// Package validator gates IR graphs before plan synthesis.
//
// Validation runs five independent passes over a graph - schema, referential
// integrity, constraint consistency, dependency cycles, completeness - each
// appending to a shared Result without short-circuiting the others, so a
// single validation reports everything wrong at once. Errors block promotion
// to /validated; warnings and info are advisory.
//
// Validation never mutates the graph and iterates nodes in sorted-id order,
// so re-validating an unmodified graph yields an identical Result.
package validator

import (
	"fmt"
	"strings"

	"planweaver/internal/ir"
	"planweaver/internal/logging"
)

// Validator holds validation policy knobs.
type Validator struct {
	// RequireActions promotes the zero-actions finding from warning to error.
	RequireActions bool
}

// New creates a Validator with default policy (actions optional).
func New() *Validator {
	return &Validator{}
}

// Validate runs all passes and returns the aggregated result.
func (v *Validator) Validate(g *ir.Graph) *Result {
	timer := logging.StartTimer(logging.CategoryValidate, "Validate")
	defer timer.Stop()

	result := &Result{Valid: true}
	if g == nil {
		result.addError(CodeNoIntents, "no graph supplied", "")
		return result
	}

	v.checkSchema(g, result)
	v.checkReferences(g, result)
	v.checkConstraintConsistency(g, result)
	v.checkDependencyCycles(g, result)
	v.checkCompleteness(g, result)

	logging.Validate("graph %s validated: valid=%v errors=%d warnings=%d info=%d",
		g.ID, result.Valid, len(result.Errors), len(result.Warnings), len(result.Info))
	return result
}

// ValidateAndUpdateStatus validates and moves the graph to /validated on
// success, or forces it back to /draft on failure. Both paths append a
// status_changed log entry, so the audit trail shows every gate decision.
func (v *Validator) ValidateAndUpdateStatus(g *ir.Graph) *Result {
	result := v.Validate(g)
	if g == nil {
		return result
	}
	if result.Valid {
		if err := g.AdvanceStatus(ir.StatusValidated); err != nil {
			logging.Get(logging.CategoryValidate).Warn("status update failed for %s: %v", g.ID, err)
		}
	} else {
		// Revert invites re-compilation instead of silently discarding work.
		prev := g.Status
		g.Status = ir.StatusDraft
		g.AppendLog("status_changed", fmt.Sprintf("%s -> %s (validation failed: %d errors)",
			prev, ir.StatusDraft, len(result.Errors)))
	}
	return result
}

// =============================================================================
// PASS 1: SCHEMA
// =============================================================================

func (v *Validator) checkSchema(g *ir.Graph, result *Result) {
	for _, id := range g.SortedIntentIDs() {
		intent := g.Intents[id]
		if strings.TrimSpace(intent.Description) == "" {
			result.addError(CodeIntentNoDescription, fmt.Sprintf("intent %s has no description", id), id)
		}
		if strings.TrimSpace(intent.Target) == "" {
			result.addWarning(CodeIntentNoTarget, fmt.Sprintf("intent %s has no target", id), id)
		}
		if intent.Confidence < 0 || intent.Confidence > 1 {
			result.addError(CodeIntentConfidenceRange,
				fmt.Sprintf("intent %s confidence %.3f outside [0,1]", id, intent.Confidence), id)
		}
	}

	for _, id := range g.SortedConstraintIDs() {
		constraint := g.Constraints[id]
		if strings.TrimSpace(constraint.Description) == "" {
			result.addError(CodeConstraintNoDescription, fmt.Sprintf("constraint %s has no description", id), id)
		}
		if constraint.Confidence < 0 || constraint.Confidence > 1 {
			result.addError(CodeConstraintConfidence,
				fmt.Sprintf("constraint %s confidence %.3f outside [0,1]", id, constraint.Confidence), id)
		}
	}

	for _, id := range g.SortedActionIDs() {
		action := g.Actions[id]
		if strings.TrimSpace(action.Description) == "" {
			result.addError(CodeActionNoDescription, fmt.Sprintf("action %s has no description", id), id)
		}
		if strings.TrimSpace(action.Target) == "" {
			result.addWarning(CodeActionNoTarget, fmt.Sprintf("action %s has no target", id), id)
		}
	}
}

// =============================================================================
// PASS 2: REFERENTIAL INTEGRITY
// =============================================================================
//
// Required references (intent parent/child, action depends_on) dangle as
// errors; soft references (constraint applies_to, action derived_from_intent,
// constrained_by) dangle as warnings.

func (v *Validator) checkReferences(g *ir.Graph, result *Result) {
	for _, id := range g.SortedIntentIDs() {
		intent := g.Intents[id]
		if intent.ParentID != "" {
			if _, ok := g.Intents[intent.ParentID]; !ok {
				result.addError(CodeIntentParentMissing,
					fmt.Sprintf("intent %s parent %s does not exist", id, intent.ParentID), id)
			}
		}
		for _, childID := range intent.ChildIDs {
			if _, ok := g.Intents[childID]; !ok {
				result.addError(CodeIntentChildMissing,
					fmt.Sprintf("intent %s child %s does not exist", id, childID), id)
			}
		}
	}

	for _, id := range g.SortedConstraintIDs() {
		constraint := g.Constraints[id]
		for _, targetID := range constraint.AppliesTo {
			_, isIntent := g.Intents[targetID]
			_, isAction := g.Actions[targetID]
			if !isIntent && !isAction {
				result.addWarning(CodeConstraintTargetMissing,
					fmt.Sprintf("constraint %s applies to unknown node %s", id, targetID), id)
			}
		}
	}

	for _, id := range g.SortedActionIDs() {
		action := g.Actions[id]
		if action.DerivedFromIntent != "" {
			if _, ok := g.Intents[action.DerivedFromIntent]; !ok {
				result.addWarning(CodeActionIntentMissing,
					fmt.Sprintf("action %s derived from unknown intent %s", id, action.DerivedFromIntent), id)
			}
		}
		for _, constraintID := range action.ConstrainedBy {
			if _, ok := g.Constraints[constraintID]; !ok {
				result.addWarning(CodeActionConstraintMissing,
					fmt.Sprintf("action %s constrained by unknown constraint %s", id, constraintID), id)
			}
		}
		for _, depID := range action.DependsOn {
			if _, ok := g.Actions[depID]; !ok {
				result.addError(CodeActionDependencyMissing,
					fmt.Sprintf("action %s depends on unknown action %s", id, depID), id)
			}
		}
	}
}

// =============================================================================
// PASS 3: CONSTRAINT CONSISTENCY
// =============================================================================

// antonymPairs drive the conflict heuristic. It is a coarse string check and
// stays warning-only: a description containing both members of a pair can
// false-positive against itself, which is accepted behavior.
var antonymPairs = [][2]string{
	{"must", "must not"},
	{"required", "forbidden"},
	{"always", "never"},
	{"include", "exclude"},
}

func (v *Validator) checkConstraintConsistency(g *ir.Graph, result *Result) {
	ids := g.SortedConstraintIDs()

	for _, id := range ids {
		constraint := g.Constraints[id]
		if len(constraint.AppliesTo) == 0 {
			result.addInfo(CodeConstraintUnscoped,
				fmt.Sprintf("constraint %s applies to no nodes", id), id)
		}
		if constraint.Kind == ir.ConstraintFalse && constraint.Status == ir.ConstraintActive {
			result.addWarning(CodeFalseConstraintActive,
				fmt.Sprintf("constraint %s is marked /false but still active", id), id)
		}
	}

	// Unordered pairs of active constraints sharing an applies_to target.
	for i := 0; i < len(ids); i++ {
		a := g.Constraints[ids[i]]
		if a.Status != ir.ConstraintActive {
			continue
		}
		for j := i + 1; j < len(ids); j++ {
			b := g.Constraints[ids[j]]
			if b.Status != ir.ConstraintActive {
				continue
			}
			if !shareTarget(a.AppliesTo, b.AppliesTo) {
				continue
			}
			if conflictHeuristic(a.Description, b.Description) {
				result.addWarning(CodeConstraintConflict,
					fmt.Sprintf("constraints %s and %s may conflict (antonym keywords, shared target)", a.ID, b.ID), a.ID)
			}
		}
	}
}

func shareTarget(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

func conflictHeuristic(descA, descB string) bool {
	la := strings.ToLower(descA)
	lb := strings.ToLower(descB)
	for _, pair := range antonymPairs {
		if (strings.Contains(la, pair[0]) && strings.Contains(lb, pair[1])) ||
			(strings.Contains(la, pair[1]) && strings.Contains(lb, pair[0])) {
			return true
		}
	}
	return false
}

// =============================================================================
// PASS 4: DEPENDENCY CYCLES
// =============================================================================

func (v *Validator) checkDependencyCycles(g *ir.Graph, result *Result) {
	visited := make(map[string]bool, len(g.Actions))
	onStack := make(map[string]bool, len(g.Actions))

	var visit func(id string)
	visit = func(id string) {
		visited[id] = true
		onStack[id] = true
		action, ok := g.Actions[id]
		if ok {
			for _, depID := range action.DependsOn {
				if onStack[depID] {
					// Back-edge: depID is still on the recursion stack.
					result.addError(CodeDependencyCycle,
						fmt.Sprintf("dependency cycle through actions %s and %s", id, depID), id)
					continue
				}
				if !visited[depID] {
					visit(depID)
				}
			}
		}
		onStack[id] = false
	}

	for _, id := range g.SortedActionIDs() {
		if !visited[id] {
			visit(id)
		}
	}
}

// =============================================================================
// PASS 5: COMPLETENESS
// =============================================================================

func (v *Validator) checkCompleteness(g *ir.Graph, result *Result) {
	if len(g.Intents) == 0 {
		result.addError(CodeNoIntents, "graph has no intents", "")
	}
	if len(g.Actions) == 0 {
		if v.RequireActions {
			result.addError(CodeNoActions, "graph has no actions", "")
		} else {
			result.addWarning(CodeNoActions, "graph has no actions", "")
		}
	}

	covered := make(map[string]bool, len(g.Intents))
	for _, action := range g.Actions {
		if action.DerivedFromIntent != "" {
			covered[action.DerivedFromIntent] = true
		}
	}
	for _, id := range g.SortedIntentIDs() {
		if !covered[id] {
			result.addInfo(CodeIntentNoActions,
				fmt.Sprintf("intent %s has no derived actions", id), id)
		}
	}
}
