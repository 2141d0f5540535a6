// Package router ranks candidate IR graphs by simulated outcome.
//
// Each candidate is simulated on an independent graph snapshot with an
// independently derived seed, so no mutable state crosses candidates and the
// fan-out is free to run concurrently. A router built without an engine
// falls back to a cheap structural heuristic, which keeps ranking usable in
// tests and in pipelines that have not configured a simulator.
package router

import (
	"fmt"
	"sort"

	"planweaver/internal/ir"
	"planweaver/internal/logging"
	"planweaver/internal/simulation"

	"golang.org/x/sync/errgroup"
)

// DefaultMaxCandidates is the hard cap on candidates per route call.
const DefaultMaxCandidates = 5

// Engine simulates one candidate. Implementations must not share mutable
// state across calls; the router may invoke Simulate concurrently.
type Engine interface {
	Simulate(g *ir.Graph, scenario *simulation.Scenario, seed int64) *simulation.Run
}

// SimulatorEngine is the production Engine: a fresh seeded Simulator per
// candidate.
type SimulatorEngine struct {
	Mode                   simulation.Mode
	BaseFailureProbability float64
}

func (e *SimulatorEngine) Simulate(g *ir.Graph, scenario *simulation.Scenario, seed int64) *simulation.Run {
	sim := simulation.NewSimulator(simulation.Config{
		Seed:                   seed,
		Mode:                   e.Mode,
		BaseFailureProbability: e.BaseFailureProbability,
	})
	return sim.Simulate(g, scenario)
}

// Candidate is one ranked route entry.
type Candidate struct {
	Rank    int             `json:"rank"` // 1-based, 1 is best
	GraphID string          `json:"graph_id"`
	Score   float64         `json:"score"`
	Reason  string          `json:"reason"`
	Run     *simulation.Run `json:"run,omitempty"`

	// Graph is the snapshot the candidate was scored on.
	Graph *ir.Graph `json:"-"`
}

// CandidateRouter scores and ranks candidate graphs.
type CandidateRouter struct {
	MaxCandidates int
	BaseSeed      int64
	Scenario      *simulation.Scenario

	engine Engine
}

// New creates a router backed by the given engine. A nil engine selects the
// structural heuristic scorer.
func New(engine Engine) *CandidateRouter {
	return &CandidateRouter{
		MaxCandidates: DefaultMaxCandidates,
		engine:        engine,
	}
}

// Route simulates every candidate and returns them ranked best-first.
// Candidates beyond MaxCandidates are truncated with a warning.
func (r *CandidateRouter) Route(graphs []*ir.Graph) []*Candidate {
	timer := logging.StartTimer(logging.CategoryRoute, "Route")
	defer timer.Stop()

	if len(graphs) == 0 {
		return nil
	}

	max := r.MaxCandidates
	if max <= 0 {
		max = DefaultMaxCandidates
	}
	if len(graphs) > max {
		logging.RouteWarn("truncating %d candidates to cap %d", len(graphs), max)
		graphs = graphs[:max]
	}

	candidates := make([]*Candidate, len(graphs))
	var eg errgroup.Group
	for i, g := range graphs {
		i, snapshot := i, g.Snapshot()
		eg.Go(func() error {
			seed := r.BaseSeed + int64(i)
			candidates[i] = r.score(snapshot, seed)
			return nil
		})
	}
	// Engines never error; the group is here for the fan-out/join.
	_ = eg.Wait()

	sort.SliceStable(candidates, func(a, b int) bool {
		if candidates[a].Score != candidates[b].Score {
			return candidates[a].Score > candidates[b].Score
		}
		return candidates[a].GraphID < candidates[b].GraphID
	})
	for i, c := range candidates {
		c.Rank = i + 1
		c.Reason = selectionReason(c)
	}

	logging.Route("routed %d candidates: best=%s score=%.3f",
		len(candidates), candidates[0].GraphID, candidates[0].Score)
	return candidates
}

// SelectBest returns the top-ranked candidate if its score clears minScore,
// else nil. Candidates must already be ranked (as Route returns them).
func (r *CandidateRouter) SelectBest(candidates []*Candidate, minScore float64) *Candidate {
	if len(candidates) == 0 {
		return nil
	}
	best := candidates[0]
	for _, c := range candidates {
		if c.Rank == 1 {
			best = c
			break
		}
	}
	if best.Score < minScore {
		logging.Route("best candidate %s score %.3f below floor %.3f, selecting none",
			best.GraphID, best.Score, minScore)
		return nil
	}
	return best
}

func (r *CandidateRouter) score(g *ir.Graph, seed int64) *Candidate {
	if r.engine == nil {
		score := heuristicScore(g)
		logging.RouteDebug("candidate %s heuristic score %.3f", g.ID, score)
		return &Candidate{GraphID: g.ID, Score: score, Graph: g}
	}
	run := r.engine.Simulate(g, r.Scenario, seed)
	return &Candidate{GraphID: g.ID, Score: run.Score, Run: run, Graph: g}
}

// selectionReason renders the human-readable reason attached to each rank.
func selectionReason(c *Candidate) string {
	if c.Rank == 1 {
		return fmt.Sprintf("Highest score: %.3f", c.Score)
	}
	if c.Run != nil && len(c.Run.FailureModes) > 0 {
		return fmt.Sprintf("Score %.3f with %d failure modes (first: %s)",
			c.Score, len(c.Run.FailureModes), c.Run.FailureModes[0])
	}
	return fmt.Sprintf("Score: %.3f", c.Score)
}

// heuristicScore estimates graph quality from structure alone: node counts
// plus the fraction of actions that are fully described. Used when the
// router has no simulation engine.
func heuristicScore(g *ir.Graph) float64 {
	score := 0.0
	if len(g.Intents) > 0 {
		score += 0.3
	}
	if len(g.Actions) > 0 {
		score += 0.3
	}
	if len(g.Constraints) > 0 {
		score += 0.1
	}

	if len(g.Actions) > 0 {
		complete := 0
		for _, action := range g.Actions {
			if action.Description != "" && action.Target != "" {
				complete++
			}
		}
		score += 0.3 * float64(complete) / float64(len(g.Actions))
	}

	if score > 1 {
		score = 1
	}
	return score
}
