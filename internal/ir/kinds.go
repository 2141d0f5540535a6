package ir

import "strings"

// =============================================================================
// KIND / STATUS / PRIORITY ENUMERATIONS
// =============================================================================
//
// All enumerations are string types carrying "/atom" values. External
// producers send bare labels ("create", "api_call"); the ParseX functions
// accept both forms and map unknown labels to a documented fallback rather
// than failing, so a slightly off producer never aborts compilation.

// IntentKind classifies what an intent wants done.
type IntentKind string

const (
	IntentCreate    IntentKind = "/create"
	IntentModify    IntentKind = "/modify"
	IntentDelete    IntentKind = "/delete"
	IntentQuery     IntentKind = "/query"
	IntentAnalyze   IntentKind = "/analyze"
	IntentTransform IntentKind = "/transform"
	IntentValidate  IntentKind = "/validate"
	IntentExecute   IntentKind = "/execute"
)

// ParseIntentKind maps an external label to an IntentKind.
// Unknown labels fall back to IntentAnalyze.
func ParseIntentKind(label string) IntentKind {
	switch IntentKind(normalizeAtom(label)) {
	case IntentCreate, IntentModify, IntentDelete, IntentQuery,
		IntentAnalyze, IntentTransform, IntentValidate, IntentExecute:
		return IntentKind(normalizeAtom(label))
	default:
		return IntentAnalyze
	}
}

// ConstraintKind classifies how a constraint entered the graph.
type ConstraintKind string

const (
	ConstraintExplicit ConstraintKind = "/explicit"
	ConstraintImplicit ConstraintKind = "/implicit"
	ConstraintHidden   ConstraintKind = "/hidden"
	ConstraintFalse    ConstraintKind = "/false" // producer-suspected non-constraint
	ConstraintSystem   ConstraintKind = "/system"
)

// ParseConstraintKind maps an external label to a ConstraintKind.
// Unknown labels fall back to ConstraintImplicit.
func ParseConstraintKind(label string) ConstraintKind {
	switch ConstraintKind(normalizeAtom(label)) {
	case ConstraintExplicit, ConstraintImplicit, ConstraintHidden,
		ConstraintFalse, ConstraintSystem:
		return ConstraintKind(normalizeAtom(label))
	default:
		return ConstraintImplicit
	}
}

// ConstraintStatus tracks the challenge lifecycle of a constraint.
// Transitions are one-directional: active constraints can be challenged or
// invalidated, and neither state returns to active.
type ConstraintStatus string

const (
	ConstraintActive      ConstraintStatus = "/active"
	ConstraintChallenged  ConstraintStatus = "/challenged"
	ConstraintInvalidated ConstraintStatus = "/invalidated"
)

// ActionKind classifies an executable action.
type ActionKind string

const (
	ActionCodeWrite  ActionKind = "/code_write"
	ActionCodeRead   ActionKind = "/code_read"
	ActionCodeModify ActionKind = "/code_modify"
	ActionFileCreate ActionKind = "/file_create"
	ActionFileDelete ActionKind = "/file_delete"
	ActionAPICall    ActionKind = "/api_call"
	ActionReasoning  ActionKind = "/reasoning"
	ActionValidation ActionKind = "/validation"
	ActionSimulation ActionKind = "/simulation"
)

// ParseActionKind maps an external label to an ActionKind.
// Unknown labels fall back to ActionReasoning.
func ParseActionKind(label string) ActionKind {
	switch ActionKind(normalizeAtom(label)) {
	case ActionCodeWrite, ActionCodeRead, ActionCodeModify, ActionFileCreate,
		ActionFileDelete, ActionAPICall, ActionReasoning, ActionValidation,
		ActionSimulation:
		return ActionKind(normalizeAtom(label))
	default:
		return ActionReasoning
	}
}

// Priority orders nodes for scheduling. Lower rank dequeues first.
type Priority string

const (
	PriorityCritical Priority = "/critical"
	PriorityHigh     Priority = "/high"
	PriorityMedium   Priority = "/medium"
	PriorityLow      Priority = "/low"
)

// ParsePriority maps an external label to a Priority.
// Unknown labels fall back to PriorityMedium.
func ParsePriority(label string) Priority {
	switch Priority(normalizeAtom(label)) {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return Priority(normalizeAtom(label))
	default:
		return PriorityMedium
	}
}

// Rank returns the scheduling rank of a priority (critical first).
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 2
	}
}

// GraphStatus tracks the pipeline stage a graph has reached.
type GraphStatus string

const (
	StatusDraft      GraphStatus = "/draft"
	StatusCompiled   GraphStatus = "/compiled"
	StatusValidated  GraphStatus = "/validated"
	StatusChallenged GraphStatus = "/challenged"
	StatusSimulated  GraphStatus = "/simulated"
	StatusApproved   GraphStatus = "/approved"
)

// rank positions a status in the monotonic lifecycle.
func (s GraphStatus) rank() int {
	switch s {
	case StatusDraft:
		return 0
	case StatusCompiled:
		return 1
	case StatusValidated:
		return 2
	case StatusChallenged:
		return 3
	case StatusSimulated:
		return 4
	case StatusApproved:
		return 5
	default:
		return 0
	}
}

// ParseGraphStatus maps an external label to a GraphStatus.
// Unknown labels fall back to StatusDraft.
func ParseGraphStatus(label string) GraphStatus {
	switch GraphStatus(normalizeAtom(label)) {
	case StatusDraft, StatusCompiled, StatusValidated, StatusChallenged,
		StatusSimulated, StatusApproved:
		return GraphStatus(normalizeAtom(label))
	default:
		return StatusDraft
	}
}

// normalizeAtom coerces external labels into canonical /atom form.
func normalizeAtom(label string) string {
	l := strings.TrimSpace(strings.ToLower(label))
	if l == "" {
		return ""
	}
	if !strings.HasPrefix(l, "/") {
		l = "/" + l
	}
	return l
}

// StripAtomPrefix strips the leading "/" from an atom value for display.
func StripAtomPrefix(s string) string {
	return strings.TrimPrefix(s, "/")
}
