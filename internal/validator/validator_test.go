package validator

import (
	"testing"

	"planweaver/internal/ir"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wellFormedGraph builds a small graph that passes every check.
func wellFormedGraph(t *testing.T) *ir.Graph {
	t.Helper()
	g := ir.NewGraph("add a health endpoint")

	require.NoError(t, g.AddIntent(&ir.IntentNode{
		ID: "/intent_1", Kind: ir.IntentCreate,
		Description: "expose a health endpoint", Target: "server.go", Confidence: 0.9,
	}))
	require.NoError(t, g.AddConstraint(&ir.ConstraintNode{
		ID: "/constraint_1", Kind: ir.ConstraintExplicit,
		Description: "must not break existing routes",
		AppliesTo:   []string{"/action_1"}, Confidence: 0.8,
	}))
	require.NoError(t, g.AddAction(&ir.ActionNode{
		ID: "/action_1", Kind: ir.ActionCodeModify,
		Description: "add /healthz handler", Target: "server.go",
		DerivedFromIntent: "/intent_1", ConstrainedBy: []string{"/constraint_1"},
	}))
	require.NoError(t, g.AddAction(&ir.ActionNode{
		ID: "/action_2", Kind: ir.ActionValidation,
		Description: "verify the endpoint responds", Target: "server_test.go",
		DerivedFromIntent: "/intent_1", DependsOn: []string{"/action_1"},
	}))
	return g
}

func TestValidGraphPasses(t *testing.T) {
	result := New().Validate(wellFormedGraph(t))

	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}

func TestSchemaErrors(t *testing.T) {
	g := ir.NewGraph("task")
	require.NoError(t, g.AddIntent(&ir.IntentNode{ID: "/intent_1", Description: "", Confidence: 1.5}))
	require.NoError(t, g.AddAction(&ir.ActionNode{ID: "/action_1", Description: "   "}))

	result := New().Validate(g)

	assert.False(t, result.Valid)
	assert.True(t, result.HasCode(CodeIntentNoDescription))
	assert.True(t, result.HasCode(CodeIntentConfidenceRange))
	assert.True(t, result.HasCode(CodeActionNoDescription))
}

func TestMissingTargetIsOnlyAWarning(t *testing.T) {
	g := wellFormedGraph(t)
	g.Intents["/intent_1"].Target = ""
	g.Actions["/action_1"].Target = ""

	result := New().Validate(g)

	assert.True(t, result.Valid)
	codes := make([]string, 0, len(result.Warnings))
	for _, w := range result.Warnings {
		codes = append(codes, w.Code)
	}
	assert.Contains(t, codes, CodeIntentNoTarget)
	assert.Contains(t, codes, CodeActionNoTarget)
}

func TestDanglingReferences(t *testing.T) {
	g := wellFormedGraph(t)
	g.Intents["/intent_1"].ParentID = "/intent_ghost"
	g.Actions["/action_1"].DependsOn = []string{"/action_ghost"}
	// Soft references dangle as warnings only.
	g.Actions["/action_1"].DerivedFromIntent = "/intent_ghost"
	g.Constraints["/constraint_1"].AppliesTo = []string{"/node_ghost"}

	result := New().Validate(g)

	assert.False(t, result.Valid)
	assert.True(t, result.HasCode(CodeIntentParentMissing))
	assert.True(t, result.HasCode(CodeActionDependencyMissing))
	assert.False(t, result.HasCode(CodeActionIntentMissing), "soft reference must not be an error")
	assert.False(t, result.HasCode(CodeConstraintTargetMissing), "soft reference must not be an error")

	warnCodes := make([]string, 0, len(result.Warnings))
	for _, w := range result.Warnings {
		warnCodes = append(warnCodes, w.Code)
	}
	assert.Contains(t, warnCodes, CodeActionIntentMissing)
	assert.Contains(t, warnCodes, CodeConstraintTargetMissing)
}

func TestDependencyCycleDetected(t *testing.T) {
	g := ir.NewGraph("task")
	require.NoError(t, g.AddIntent(&ir.IntentNode{ID: "/intent_1", Description: "i", Confidence: 0.5}))
	require.NoError(t, g.AddAction(&ir.ActionNode{ID: "/action_a", Description: "a", DependsOn: []string{"/action_c"}}))
	require.NoError(t, g.AddAction(&ir.ActionNode{ID: "/action_b", Description: "b", DependsOn: []string{"/action_a"}}))
	require.NoError(t, g.AddAction(&ir.ActionNode{ID: "/action_c", Description: "c", DependsOn: []string{"/action_b"}}))

	result := New().Validate(g)

	assert.False(t, result.Valid)
	assert.True(t, result.HasCode(CodeDependencyCycle))
}

func TestSelfDependencyIsACycle(t *testing.T) {
	g := ir.NewGraph("task")
	require.NoError(t, g.AddIntent(&ir.IntentNode{ID: "/intent_1", Description: "i", Confidence: 0.5}))
	require.NoError(t, g.AddAction(&ir.ActionNode{ID: "/action_a", Description: "a", DependsOn: []string{"/action_a"}}))

	result := New().Validate(g)
	assert.True(t, result.HasCode(CodeDependencyCycle))
}

func TestConstraintConflictHeuristic(t *testing.T) {
	g := wellFormedGraph(t)
	require.NoError(t, g.AddConstraint(&ir.ConstraintNode{
		ID: "/constraint_2", Kind: ir.ConstraintImplicit,
		Description: "must not modify the router",
		AppliesTo:   []string{"/action_1"}, Confidence: 0.6,
	}))
	g.Constraints["/constraint_1"].Description = "the handler must be registered"

	result := New().Validate(g)

	// Conflicts are advisory: still valid, but flagged.
	assert.True(t, result.Valid)
	codes := make([]string, 0, len(result.Warnings))
	for _, w := range result.Warnings {
		codes = append(codes, w.Code)
	}
	assert.Contains(t, codes, CodeConstraintConflict)
}

func TestInvalidatedConstraintsAreIgnoredForConflicts(t *testing.T) {
	g := wellFormedGraph(t)
	require.NoError(t, g.AddConstraint(&ir.ConstraintNode{
		ID: "/constraint_2", Description: "must not modify the router",
		AppliesTo: []string{"/action_1"}, Confidence: 0.6,
	}))
	g.Constraints["/constraint_1"].Description = "the handler must be registered"
	require.NoError(t, g.Constraints["/constraint_2"].Invalidate("retracted"))

	result := New().Validate(g)
	for _, w := range result.Warnings {
		assert.NotEqual(t, CodeConstraintConflict, w.Code)
	}
}

func TestCompleteness(t *testing.T) {
	g := ir.NewGraph("empty")

	result := New().Validate(g)

	assert.False(t, result.Valid)
	assert.True(t, result.HasCode(CodeNoIntents))
	// Zero actions is a warning by default.
	assert.False(t, result.HasCode(CodeNoActions))

	strict := New()
	strict.RequireActions = true
	result = strict.Validate(g)
	assert.True(t, result.HasCode(CodeNoActions))
}

func TestIntentWithoutActionsIsInfo(t *testing.T) {
	g := wellFormedGraph(t)
	require.NoError(t, g.AddIntent(&ir.IntentNode{
		ID: "/intent_2", Description: "document the endpoint", Confidence: 0.7,
	}))

	result := New().Validate(g)

	require.True(t, result.Valid)
	found := false
	for _, info := range result.Info {
		if info.Code == CodeIntentNoActions && info.NodeID == "/intent_2" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestValidationIsIdempotent(t *testing.T) {
	g := wellFormedGraph(t)
	g.Actions["/action_1"].DependsOn = []string{"/action_ghost"}

	v := New()
	first := v.Validate(g)
	second := v.Validate(g)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("re-validation of unmodified graph differs (-first +second):\n%s", diff)
	}
}

func TestValidateAndUpdateStatus(t *testing.T) {
	g := wellFormedGraph(t)
	result := New().ValidateAndUpdateStatus(g)
	require.True(t, result.Valid)
	assert.Equal(t, ir.StatusValidated, g.Status)

	// Break the graph; revalidation reverts to draft and logs the gate.
	g.Actions["/action_1"].Description = ""
	result = New().ValidateAndUpdateStatus(g)
	require.False(t, result.Valid)
	assert.Equal(t, ir.StatusDraft, g.Status)

	last := g.Log[len(g.Log)-1]
	assert.Equal(t, "status_changed", last.Event)
	assert.Contains(t, last.Payload, "validation failed")
}

func TestNilGraph(t *testing.T) {
	result := New().Validate(nil)
	assert.False(t, result.Valid)
}
