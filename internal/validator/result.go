package validator

// Issue codes, stable across releases. External tooling (CLI, dashboards)
// keys rendering and filtering off these strings.
const (
	CodeIntentNoDescription     = "INTENT_NO_DESCRIPTION"
	CodeConstraintNoDescription = "CONSTRAINT_NO_DESCRIPTION"
	CodeActionNoDescription     = "ACTION_NO_DESCRIPTION"
	CodeIntentNoTarget          = "INTENT_NO_TARGET"
	CodeActionNoTarget          = "ACTION_NO_TARGET"
	CodeIntentConfidenceRange   = "INTENT_CONFIDENCE_RANGE"
	CodeConstraintConfidence    = "CONSTRAINT_CONFIDENCE_RANGE"

	CodeIntentParentMissing     = "INTENT_PARENT_MISSING"
	CodeIntentChildMissing      = "INTENT_CHILD_MISSING"
	CodeConstraintTargetMissing = "CONSTRAINT_TARGET_MISSING"
	CodeActionIntentMissing     = "ACTION_INTENT_MISSING"
	CodeActionConstraintMissing = "ACTION_CONSTRAINT_MISSING"
	CodeActionDependencyMissing = "ACTION_DEPENDENCY_MISSING"

	CodeConstraintConflict    = "CONSTRAINT_CONFLICT"
	CodeConstraintUnscoped    = "CONSTRAINT_UNSCOPED"
	CodeFalseConstraintActive = "FALSE_CONSTRAINT_ACTIVE"

	CodeDependencyCycle = "DEPENDENCY_CYCLE"

	CodeNoIntents       = "NO_INTENTS"
	CodeNoActions       = "NO_ACTIONS"
	CodeIntentNoActions = "INTENT_NO_ACTIONS"
)

// Issue is a single validation finding.
type Issue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	NodeID  string `json:"node_id,omitempty"`
}

// Result aggregates the findings of all validation passes.
// Valid is false iff at least one error was added; warnings and info never
// affect validity.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
	Info     []Issue `json:"info"`
}

func (r *Result) addError(code, message, nodeID string) {
	r.Errors = append(r.Errors, Issue{Code: code, Message: message, NodeID: nodeID})
	r.Valid = false
}

func (r *Result) addWarning(code, message, nodeID string) {
	r.Warnings = append(r.Warnings, Issue{Code: code, Message: message, NodeID: nodeID})
}

func (r *Result) addInfo(code, message, nodeID string) {
	r.Info = append(r.Info, Issue{Code: code, Message: message, NodeID: nodeID})
}

// HasCode reports whether any error carries the given code.
func (r *Result) HasCode(code string) bool {
	for _, issue := range r.Errors {
		if issue.Code == code {
			return true
		}
	}
	return false
}
