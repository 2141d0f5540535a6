package router

import (
	"sync"
	"testing"

	"planweaver/internal/ir"
	"planweaver/internal/simulation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedEngine returns a fixed score per graph id and records which graph
// pointers it saw, so tests can assert snapshot isolation.
type scriptedEngine struct {
	mu     sync.Mutex
	scores map[string]float64
	seen   []*ir.Graph
	seeds  []int64
}

func (e *scriptedEngine) Simulate(g *ir.Graph, scenario *simulation.Scenario, seed int64) *simulation.Run {
	e.mu.Lock()
	e.seen = append(e.seen, g)
	e.seeds = append(e.seeds, seed)
	e.mu.Unlock()
	return &simulation.Run{
		ID:      "/run_" + ir.StripAtomPrefix(g.ID),
		GraphID: g.ID,
		Seed:    seed,
		Score:   e.scores[g.ID],
	}
}

func namedGraph(t *testing.T, id string) *ir.Graph {
	t.Helper()
	g := ir.NewGraph("candidate " + id)
	g.ID = id
	require.NoError(t, g.AddAction(&ir.ActionNode{
		ID: "/action_1", Kind: ir.ActionCodeWrite, Description: "build it", Target: "main.go",
	}))
	return g
}

func TestRouteRanksDescending(t *testing.T) {
	engine := &scriptedEngine{scores: map[string]float64{
		"/graph_a": 0.6,
		"/graph_b": 0.9,
		"/graph_c": 0.3,
	}}
	r := New(engine)

	candidates := r.Route([]*ir.Graph{
		namedGraph(t, "/graph_a"),
		namedGraph(t, "/graph_b"),
		namedGraph(t, "/graph_c"),
	})

	require.Len(t, candidates, 3)
	assert.Equal(t, "/graph_b", candidates[0].GraphID)
	assert.Equal(t, "/graph_a", candidates[1].GraphID)
	assert.Equal(t, "/graph_c", candidates[2].GraphID)
	for i, c := range candidates {
		assert.Equal(t, i+1, c.Rank)
		assert.NotEmpty(t, c.Reason)
	}
	assert.Contains(t, candidates[0].Reason, "Highest score")
}

func TestSelectBestHonorsMinScore(t *testing.T) {
	engine := &scriptedEngine{scores: map[string]float64{
		"/graph_a": 0.9,
		"/graph_b": 0.6,
		"/graph_c": 0.3,
	}}
	r := New(engine)
	candidates := r.Route([]*ir.Graph{
		namedGraph(t, "/graph_a"),
		namedGraph(t, "/graph_b"),
		namedGraph(t, "/graph_c"),
	})

	best := r.SelectBest(candidates, 0.7)
	require.NotNil(t, best)
	assert.Equal(t, "/graph_a", best.GraphID)

	assert.Nil(t, r.SelectBest(candidates, 0.95))
	assert.Nil(t, r.SelectBest(nil, 0.1))
}

func TestCandidateCapTruncates(t *testing.T) {
	engine := &scriptedEngine{scores: map[string]float64{}}
	r := New(engine)

	var graphs []*ir.Graph
	for _, id := range []string{"/g1", "/g2", "/g3", "/g4", "/g5", "/g6", "/g7"} {
		graphs = append(graphs, namedGraph(t, id))
	}
	candidates := r.Route(graphs)

	assert.Len(t, candidates, DefaultMaxCandidates)
}

func TestCandidatesGetIndependentSnapshotsAndSeeds(t *testing.T) {
	engine := &scriptedEngine{scores: map[string]float64{"/graph_a": 0.5, "/graph_b": 0.5}}
	r := New(engine)
	r.BaseSeed = 100

	a := namedGraph(t, "/graph_a")
	b := namedGraph(t, "/graph_b")
	r.Route([]*ir.Graph{a, b})

	require.Len(t, engine.seen, 2)
	for _, seen := range engine.seen {
		assert.NotSame(t, a, seen)
		assert.NotSame(t, b, seen)
	}
	assert.ElementsMatch(t, []int64{100, 101}, engine.seeds)
}

func TestTieBreaksOnGraphID(t *testing.T) {
	engine := &scriptedEngine{scores: map[string]float64{"/graph_b": 0.5, "/graph_a": 0.5}}
	r := New(engine)

	candidates := r.Route([]*ir.Graph{namedGraph(t, "/graph_b"), namedGraph(t, "/graph_a")})
	assert.Equal(t, "/graph_a", candidates[0].GraphID)
}

func TestHeuristicScorerWithoutEngine(t *testing.T) {
	r := New(nil)

	full := namedGraph(t, "/graph_full")
	require.NoError(t, full.AddIntent(&ir.IntentNode{ID: "/intent_1", Description: "goal"}))
	require.NoError(t, full.AddConstraint(&ir.ConstraintNode{ID: "/constraint_1", Description: "rule"}))

	bare := ir.NewGraph("empty candidate")
	bare.ID = "/graph_bare"

	candidates := r.Route([]*ir.Graph{bare, full})

	require.Len(t, candidates, 2)
	assert.Equal(t, "/graph_full", candidates[0].GraphID)
	assert.Equal(t, 1.0, candidates[0].Score)
	assert.Equal(t, 0.0, candidates[1].Score)
	assert.Nil(t, candidates[0].Run, "heuristic candidates carry no run")
}

func TestRouteEmptyInput(t *testing.T) {
	assert.Nil(t, New(nil).Route(nil))
}
