package ir

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// =============================================================================
// SNAPSHOT DECODING
// =============================================================================
//
// The semantic compiler hands the core a plain structured document
// (map/list of maps), typically unmarshaled from YAML or JSON. The decoder
// makes no assumption about the producing library: node collections may be
// either lists of maps (ids inside) or maps keyed by id, and scalar fields
// are extracted type-tolerantly (a confidence of "0.9", 0.9 or 1 all parse).

// DecodeSnapshot builds a Graph from a serialized snapshot document.
// Unknown kind/priority labels fall back per ParseX; structurally broken
// node entries are an error so a truncated document is not silently
// accepted.
func DecodeSnapshot(doc map[string]any) (*Graph, error) {
	if doc == nil {
		return nil, fmt.Errorf("nil snapshot document")
	}

	g := &Graph{
		ID:          asString(doc["id"]),
		Task:        asString(doc["task"]),
		Status:      ParseGraphStatus(asString(doc["status"])),
		Intents:     make(map[string]*IntentNode),
		Constraints: make(map[string]*ConstraintNode),
		Actions:     make(map[string]*ActionNode),
	}
	if g.ID == "" {
		g.ID = NewGraph("").ID
	}

	intents, err := nodeEntries(doc["intents"])
	if err != nil {
		return nil, fmt.Errorf("intents: %w", err)
	}
	for _, entry := range intents {
		n := decodeIntent(entry)
		if err := g.AddIntent(n); err != nil {
			return nil, err
		}
	}

	constraints, err := nodeEntries(doc["constraints"])
	if err != nil {
		return nil, fmt.Errorf("constraints: %w", err)
	}
	for _, entry := range constraints {
		n := decodeConstraint(entry)
		if err := g.AddConstraint(n); err != nil {
			return nil, err
		}
	}

	actions, err := nodeEntries(doc["actions"])
	if err != nil {
		return nil, fmt.Errorf("actions: %w", err)
	}
	for _, entry := range actions {
		n := decodeAction(entry)
		if err := g.AddAction(n); err != nil {
			return nil, err
		}
	}

	g.AppendLog("snapshot_decoded", fmt.Sprintf("intents=%d constraints=%d actions=%d",
		len(g.Intents), len(g.Constraints), len(g.Actions)))
	return g, nil
}

func decodeIntent(m map[string]any) *IntentNode {
	return &IntentNode{
		ID:          asString(m["id"]),
		Kind:        ParseIntentKind(asString(m["kind"])),
		Description: asString(m["description"]),
		Target:      asString(m["target"]),
		Parameters:  asParams(m["parameters"]),
		Priority:    ParsePriority(asString(m["priority"])),
		Confidence:  asFloat(m["confidence"]),
		ParentID:    asString(m["parent_id"]),
		ChildIDs:    asStringSlice(m["child_ids"]),
	}
}

func decodeConstraint(m map[string]any) *ConstraintNode {
	status := ConstraintActive
	if s := asString(m["status"]); s != "" {
		switch ConstraintStatus(normalizeAtom(s)) {
		case ConstraintActive, ConstraintChallenged, ConstraintInvalidated:
			status = ConstraintStatus(normalizeAtom(s))
		}
	}
	return &ConstraintNode{
		ID:                 asString(m["id"]),
		Kind:               ParseConstraintKind(asString(m["kind"])),
		Status:             status,
		Description:        asString(m["description"]),
		Expression:         asString(m["expression"]),
		AppliesTo:          asStringSlice(m["applies_to"]),
		Priority:           ParsePriority(asString(m["priority"])),
		Confidence:         asFloat(m["confidence"]),
		ChallengeReason:    asString(m["challenge_reason"]),
		Alternative:        asString(m["alternative"]),
		InvalidationReason: asString(m["invalidation_reason"]),
	}
}

func decodeAction(m map[string]any) *ActionNode {
	return &ActionNode{
		ID:                  asString(m["id"]),
		Kind:                ParseActionKind(asString(m["kind"])),
		Description:         asString(m["description"]),
		Target:              asString(m["target"]),
		Parameters:          asParams(m["parameters"]),
		Priority:            ParsePriority(asString(m["priority"])),
		DerivedFromIntent:   asString(m["derived_from_intent"]),
		ConstrainedBy:       asStringSlice(m["constrained_by"]),
		DependsOn:           asStringSlice(m["depends_on"]),
		EstimatedDurationMs: asInt64(m["estimated_duration_ms"]),
		RiskLevel:           asString(m["risk_level"]),
		Rollback:            asString(m["rollback"]),
	}
}

// Document renders the graph as a plain, JSON-serializable document with
// all identifiers as strings. The inverse of DecodeSnapshot.
func (g *Graph) Document() (map[string]any, error) {
	raw, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize graph %s: %w", g.ID, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to rebuild document for graph %s: %w", g.ID, err)
	}
	return doc, nil
}

// nodeEntries normalizes a node collection to a list of maps. Accepts a
// list of maps, a map keyed by id (id injected into each entry), or nil.
func nodeEntries(v any) ([]map[string]any, error) {
	switch coll := v.(type) {
	case nil:
		return nil, nil
	case []any:
		entries := make([]map[string]any, 0, len(coll))
		for i, item := range coll {
			m, ok := asMap(item)
			if !ok {
				return nil, fmt.Errorf("entry %d is not a map", i)
			}
			entries = append(entries, m)
		}
		return entries, nil
	case map[string]any:
		// Keyed by id; keep key order deterministic via the ids themselves.
		entries := make([]map[string]any, 0, len(coll))
		for _, id := range sortedKeys(coll) {
			m, ok := asMap(coll[id])
			if !ok {
				return nil, fmt.Errorf("entry %s is not a map", id)
			}
			if asString(m["id"]) == "" {
				m["id"] = id
			}
			entries = append(entries, m)
		}
		return entries, nil
	default:
		return nil, fmt.Errorf("unsupported collection type %T", v)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// =============================================================================
// TYPE-TOLERANT FIELD EXTRACTION
// =============================================================================

func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'g', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case bool:
		return strconv.FormatBool(s)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0
		}
		return i
	default:
		return 0
	}
}

func asStringSlice(v any) []string {
	switch coll := v.(type) {
	case nil:
		return nil
	case []string:
		return append([]string(nil), coll...)
	case []any:
		out := make([]string, 0, len(coll))
		for _, item := range coll {
			if s := asString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if coll == "" {
			return nil
		}
		return []string{coll}
	default:
		return nil
	}
}

func asParams(v any) map[string]any {
	m, ok := asMap(v)
	if !ok {
		return nil
	}
	return m
}

// asMap handles both map[string]any and the map[any]any yaml.v2-style shape
// some producers emit.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[asString(k)] = val
		}
		return out, true
	default:
		return nil, false
	}
}
