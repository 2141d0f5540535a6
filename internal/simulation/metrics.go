package simulation

import (
	"time"

	"planweaver/internal/ir"
	"planweaver/internal/logging"
)

// analyzeRun derives the structural metrics from the graph and the run's
// step outcomes: critical path, parallelism factor, bottlenecks.
func analyzeRun(g *ir.Graph, run *Run) {
	run.CriticalPathLength = criticalPathLength(g)
	if run.CriticalPathLength > 0 {
		run.ParallelismFactor = float64(len(g.Actions)) / float64(run.CriticalPathLength)
	}
	run.Bottlenecks = findBottlenecks(run)

	logging.SimulateDebug("run %s: critical_path=%d parallelism=%.2f bottlenecks=%d",
		run.ID, run.CriticalPathLength, run.ParallelismFactor, len(run.Bottlenecks))
}

// criticalPathLength returns the longest depends_on chain, counted in
// actions. Memoized per action; the validator has already rejected cycles,
// but an on-stack guard keeps a cyclic graph from recursing forever.
func criticalPathLength(g *ir.Graph) int {
	memo := make(map[string]int, len(g.Actions))
	onStack := make(map[string]bool, len(g.Actions))

	var chain func(id string) int
	chain = func(id string) int {
		if depth, ok := memo[id]; ok {
			return depth
		}
		if onStack[id] {
			return 0
		}
		onStack[id] = true
		defer func() { onStack[id] = false }()

		longest := 0
		action := g.Actions[id]
		for _, depID := range action.DependsOn {
			if _, ok := g.Actions[depID]; !ok {
				continue
			}
			if d := chain(depID); d > longest {
				longest = d
			}
		}
		memo[id] = longest + 1
		return memo[id]
	}

	best := 0
	for _, id := range g.SortedActionIDs() {
		if d := chain(id); d > best {
			best = d
		}
	}
	return best
}

// findBottlenecks returns the action ids of steps whose simulated duration
// exceeded twice the run's mean step duration.
func findBottlenecks(run *Run) []string {
	if len(run.Steps) == 0 {
		return nil
	}
	mean := float64(run.TotalDurationMs) / float64(len(run.Steps))
	var bottlenecks []string
	for _, step := range run.Steps {
		if float64(step.DurationMs) > 2*mean {
			bottlenecks = append(bottlenecks, step.ActionID)
		}
	}
	return bottlenecks
}

// scoreRun folds a run into the single scalar score:
// success rate, minus a capped penalty per distinct failure mode, plus a
// parallelism bonus, clamped to [0,1].
func scoreRun(run *Run) float64 {
	score := run.SuccessRate()

	penalty := 0.05 * float64(len(run.FailureModes))
	if penalty > 0.3 {
		penalty = 0.3
	}
	score -= penalty

	if run.ParallelismFactor > 1.5 {
		score += 0.1
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func (r *Run) finalizeTimestamps() {
	r.CompletedAt = time.Now().UTC()
}
