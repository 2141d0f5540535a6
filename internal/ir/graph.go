// Package ir defines the intent/constraint/action graph that the rest of
// planweaver validates, plans, and simulates.
//
// The graph is an arena of nodes keyed by opaque string id. All cross-node
// relationships (intent hierarchy, constraint scoping, action dependencies)
// are stored as id references and resolved through the graph container, so
// ownership stays singular and cycles are just edges in an adjacency
// structure, never object cycles.
//
// A graph is exclusively owned by whichever pipeline stage currently holds
// it; stages pass it by reference and mutate in place. Router candidates use
// Snapshot() to get independent copies.
package ir

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// LogEntry is one row of the append-only processing log, used for audit and
// incremental-compilation checks.
type LogEntry struct {
	Event     string    `json:"event"`
	Payload   string    `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Graph owns every node of a compiled task.
type Graph struct {
	ID     string      `json:"id"`
	Task   string      `json:"task,omitempty"` // original natural-language task
	Status GraphStatus `json:"status"`

	Intents     map[string]*IntentNode     `json:"intents"`
	Constraints map[string]*ConstraintNode `json:"constraints"`
	Actions     map[string]*ActionNode     `json:"actions"`

	// Log is append-only; entries are never rewritten or removed.
	Log []LogEntry `json:"processing_log,omitempty"`
}

// NewGraph creates an empty draft graph with a generated id.
func NewGraph(task string) *Graph {
	g := &Graph{
		ID:          fmt.Sprintf("/graph_%s", uuid.New().String()[:8]),
		Task:        task,
		Status:      StatusDraft,
		Intents:     make(map[string]*IntentNode),
		Constraints: make(map[string]*ConstraintNode),
		Actions:     make(map[string]*ActionNode),
	}
	g.AppendLog("graph_created", task)
	return g
}

// AppendLog records a processing event.
func (g *Graph) AppendLog(event, payload string) {
	g.Log = append(g.Log, LogEntry{Event: event, Payload: payload, Timestamp: time.Now().UTC()})
}

// AddIntent inserts an intent node, assigning an id if the node has none.
func (g *Graph) AddIntent(n *IntentNode) error {
	if n == nil {
		return fmt.Errorf("nil intent")
	}
	if n.ID == "" {
		n.ID = fmt.Sprintf("/intent_%s", uuid.New().String()[:8])
	}
	if _, exists := g.Intents[n.ID]; exists {
		return fmt.Errorf("duplicate intent id %s", n.ID)
	}
	g.Intents[n.ID] = n
	return nil
}

// AddConstraint inserts a constraint node, assigning an id and active status
// defaults if missing.
func (g *Graph) AddConstraint(n *ConstraintNode) error {
	if n == nil {
		return fmt.Errorf("nil constraint")
	}
	if n.ID == "" {
		n.ID = fmt.Sprintf("/constraint_%s", uuid.New().String()[:8])
	}
	if n.Status == "" {
		n.Status = ConstraintActive
	}
	if _, exists := g.Constraints[n.ID]; exists {
		return fmt.Errorf("duplicate constraint id %s", n.ID)
	}
	g.Constraints[n.ID] = n
	return nil
}

// AddAction inserts an action node, assigning an id if the node has none.
func (g *Graph) AddAction(n *ActionNode) error {
	if n == nil {
		return fmt.Errorf("nil action")
	}
	if n.ID == "" {
		n.ID = fmt.Sprintf("/action_%s", uuid.New().String()[:8])
	}
	if _, exists := g.Actions[n.ID]; exists {
		return fmt.Errorf("duplicate action id %s", n.ID)
	}
	g.Actions[n.ID] = n
	return nil
}

// AdvanceStatus moves the graph forward through its lifecycle
// (draft -> compiled -> validated -> challenged -> simulated -> approved).
// The only legal backward transition is validated -> draft, which the
// validator uses when a previously validated graph fails revalidation.
// Every transition appends a status_changed log entry.
func (g *Graph) AdvanceStatus(next GraphStatus) error {
	if next == g.Status {
		return nil
	}
	backToDraft := g.Status == StatusValidated && next == StatusDraft
	if next.rank() < g.Status.rank() && !backToDraft {
		return fmt.Errorf("illegal status transition %s -> %s", g.Status, next)
	}
	prev := g.Status
	g.Status = next
	g.AppendLog("status_changed", fmt.Sprintf("%s -> %s", prev, next))
	return nil
}

// SortedIntentIDs returns intent ids in lexical order for deterministic
// iteration. Insertion order is irrelevant for correctness.
func (g *Graph) SortedIntentIDs() []string {
	ids := make([]string, 0, len(g.Intents))
	for id := range g.Intents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SortedConstraintIDs returns constraint ids in lexical order.
func (g *Graph) SortedConstraintIDs() []string {
	ids := make([]string, 0, len(g.Constraints))
	for id := range g.Constraints {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SortedActionIDs returns action ids in lexical order.
func (g *Graph) SortedActionIDs() []string {
	ids := make([]string, 0, len(g.Actions))
	for id := range g.Actions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Snapshot returns a deep copy of the graph. Candidate simulations each
// receive their own snapshot so no mutable state crosses candidates.
func (g *Graph) Snapshot() *Graph {
	cp := &Graph{
		ID:          g.ID,
		Task:        g.Task,
		Status:      g.Status,
		Intents:     make(map[string]*IntentNode, len(g.Intents)),
		Constraints: make(map[string]*ConstraintNode, len(g.Constraints)),
		Actions:     make(map[string]*ActionNode, len(g.Actions)),
		Log:         append([]LogEntry(nil), g.Log...),
	}
	for id, n := range g.Intents {
		c := *n
		c.ChildIDs = append([]string(nil), n.ChildIDs...)
		c.Parameters = copyParams(n.Parameters)
		cp.Intents[id] = &c
	}
	for id, n := range g.Constraints {
		c := *n
		c.AppliesTo = append([]string(nil), n.AppliesTo...)
		cp.Constraints[id] = &c
	}
	for id, n := range g.Actions {
		c := *n
		c.ConstrainedBy = append([]string(nil), n.ConstrainedBy...)
		c.DependsOn = append([]string(nil), n.DependsOn...)
		c.Parameters = copyParams(n.Parameters)
		cp.Actions[id] = &c
	}
	return cp
}

func copyParams(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	cp := make(map[string]any, len(params))
	for k, v := range params {
		cp[k] = v
	}
	return cp
}
