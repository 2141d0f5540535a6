package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSnapshotListForm(t *testing.T) {
	doc := map[string]any{
		"id":     "/graph_test",
		"task":   "build the widget",
		"status": "compiled",
		"intents": []any{
			map[string]any{
				"id":          "/intent_1",
				"kind":        "create",
				"description": "create the widget",
				"priority":    "high",
				"confidence":  0.9,
			},
		},
		"constraints": []any{
			map[string]any{
				"id":          "/constraint_1",
				"kind":        "explicit",
				"description": "must use Go",
				"applies_to":  []any{"/intent_1"},
			},
		},
		"actions": []any{
			map[string]any{
				"id":                    "/action_1",
				"kind":                  "code_write",
				"description":           "write widget.go",
				"target":                "widget.go",
				"derived_from_intent":   "/intent_1",
				"estimated_duration_ms": 2500,
			},
		},
	}

	g, err := DecodeSnapshot(doc)
	require.NoError(t, err)

	assert.Equal(t, "/graph_test", g.ID)
	assert.Equal(t, StatusCompiled, g.Status)
	require.Len(t, g.Intents, 1)
	assert.Equal(t, IntentCreate, g.Intents["/intent_1"].Kind)
	assert.Equal(t, PriorityHigh, g.Intents["/intent_1"].Priority)
	assert.InDelta(t, 0.9, g.Intents["/intent_1"].Confidence, 1e-9)
	require.Len(t, g.Constraints, 1)
	assert.Equal(t, ConstraintActive, g.Constraints["/constraint_1"].Status)
	assert.Equal(t, []string{"/intent_1"}, g.Constraints["/constraint_1"].AppliesTo)
	require.Len(t, g.Actions, 1)
	assert.Equal(t, ActionCodeWrite, g.Actions["/action_1"].Kind)
	assert.Equal(t, int64(2500), g.Actions["/action_1"].EstimatedDurationMs)
}

func TestDecodeSnapshotMapFormInjectsIDs(t *testing.T) {
	doc := map[string]any{
		"id": "/graph_map",
		"actions": map[string]any{
			"/action_z": map[string]any{"kind": "validation", "description": "check"},
			"/action_a": map[string]any{"kind": "code_read", "description": "read"},
		},
	}

	g, err := DecodeSnapshot(doc)
	require.NoError(t, err)
	require.Len(t, g.Actions, 2)
	assert.Equal(t, ActionCodeRead, g.Actions["/action_a"].Kind)
	assert.Equal(t, ActionValidation, g.Actions["/action_z"].Kind)
}

func TestDecodeSnapshotTolerantScalars(t *testing.T) {
	// YAML producers frequently emit numbers as strings and vice versa.
	doc := map[string]any{
		"intents": []any{
			map[string]any{
				"id":          "/intent_1",
				"description": "a",
				"confidence":  "0.75",
			},
		},
		"actions": []any{
			map[string]any{
				"id":                    "/action_1",
				"description":           "b",
				"estimated_duration_ms": "1200",
				"depends_on":            "/action_2",
			},
			map[string]any{"id": "/action_2", "description": "c"},
		},
	}

	g, err := DecodeSnapshot(doc)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, g.Intents["/intent_1"].Confidence, 1e-9)
	assert.Equal(t, int64(1200), g.Actions["/action_1"].EstimatedDurationMs)
	assert.Equal(t, []string{"/action_2"}, g.Actions["/action_1"].DependsOn)
}

func TestDecodeSnapshotMapAnyAny(t *testing.T) {
	// The map[any]any shape older YAML decoders produce.
	doc := map[string]any{
		"actions": []any{
			map[any]any{"id": "/action_1", "description": "d", "kind": "api_call"},
		},
	}
	g, err := DecodeSnapshot(doc)
	require.NoError(t, err)
	assert.Equal(t, ActionAPICall, g.Actions["/action_1"].Kind)
}

func TestDecodeSnapshotErrors(t *testing.T) {
	_, err := DecodeSnapshot(nil)
	assert.Error(t, err)

	_, err = DecodeSnapshot(map[string]any{"intents": []any{"not-a-map"}})
	assert.Error(t, err)

	_, err = DecodeSnapshot(map[string]any{"actions": "broken"})
	assert.Error(t, err)

	// Duplicate ids must not be silently merged.
	_, err = DecodeSnapshot(map[string]any{
		"actions": []any{
			map[string]any{"id": "/action_1", "description": "x"},
			map[string]any{"id": "/action_1", "description": "y"},
		},
	})
	assert.Error(t, err)
}

func TestDocumentRoundTrip(t *testing.T) {
	g := NewGraph("round trip")
	require.NoError(t, g.AddIntent(&IntentNode{ID: "/intent_1", Kind: IntentModify, Description: "tweak", Confidence: 0.8}))
	require.NoError(t, g.AddAction(&ActionNode{ID: "/action_1", Kind: ActionCodeModify, Description: "edit", DerivedFromIntent: "/intent_1"}))

	doc, err := g.Document()
	require.NoError(t, err)

	decoded, err := DecodeSnapshot(doc)
	require.NoError(t, err)
	assert.Equal(t, g.ID, decoded.ID)
	assert.Equal(t, IntentModify, decoded.Intents["/intent_1"].Kind)
	assert.Equal(t, "/intent_1", decoded.Actions["/action_1"].DerivedFromIntent)
}
