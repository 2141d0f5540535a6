// Package simulation executes IR graphs against a stochastic
// failure/duration model before anything runs for real.
//
// Determinism is the load-bearing contract: every random decision is drawn
// from a single seeded generator owned by the Simulator, never from a global
// source, so a fixed seed reproduces a bit-identical run. That is what makes
// simulation results testable and candidate comparisons fair.
//
// Simulation never raises: per-action faults become step outcomes plus a
// failure-mode string, and an unexpected internal fault is caught at the run
// boundary and turned into a zero-score failed run.
package simulation

import (
	"fmt"
	"math/rand"
	"sort"

	"planweaver/internal/ir"
	"planweaver/internal/logging"
)

// Config holds simulator construction parameters.
type Config struct {
	Seed int64
	Mode Mode
	// BaseFailureProbability is the pre-multiplier failure chance per
	// action. Zero means the 0.1 default.
	BaseFailureProbability float64
}

// DefaultBaseFailureProbability applies when Config leaves the field zero.
const DefaultBaseFailureProbability = 0.1

// stressPasses is the number of extra doubled-probability runs in thorough mode.
const stressPasses = 3

// kindRisk scales the base failure probability per action kind.
// API calls are the most failure-prone, pure reads the least.
var kindRisk = map[ir.ActionKind]float64{
	ir.ActionAPICall:    2.0,
	ir.ActionCodeModify: 1.3,
	ir.ActionCodeWrite:  1.2,
	ir.ActionFileDelete: 1.0,
	ir.ActionReasoning:  0.9,
	ir.ActionFileCreate: 0.8,
	ir.ActionSimulation: 0.7,
	ir.ActionValidation: 0.5,
	ir.ActionCodeRead:   0.3,
}

// kindDurationMs is the simulated duration per kind when the action carries
// no explicit estimate.
var kindDurationMs = map[ir.ActionKind]int64{
	ir.ActionCodeWrite:  5000,
	ir.ActionCodeModify: 4000,
	ir.ActionCodeRead:   500,
	ir.ActionFileCreate: 1000,
	ir.ActionFileDelete: 500,
	ir.ActionAPICall:    2000,
	ir.ActionReasoning:  8000,
	ir.ActionValidation: 1000,
	ir.ActionSimulation: 3000,
}

// Simulator runs graphs against the risk model.
// Not safe for concurrent use: the generator state is the whole point.
type Simulator struct {
	cfg Config
	rng *rand.Rand
}

// NewSimulator creates a simulator with its own seeded generator.
func NewSimulator(cfg Config) *Simulator {
	if cfg.Mode == "" {
		cfg.Mode = ModeStandard
	}
	if cfg.BaseFailureProbability <= 0 {
		cfg.BaseFailureProbability = DefaultBaseFailureProbability
	}
	return &Simulator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Simulate executes one run over the graph snapshot. It never returns an
// error; every fault is folded into the run document.
func (s *Simulator) Simulate(g *ir.Graph, scenario *Scenario) (run *Run) {
	timer := logging.StartTimer(logging.CategorySimulate, "Simulate")
	defer timer.Stop()

	run = newRun(g, s.cfg.Mode, scenario, s.cfg.Seed)

	defer func() {
		if rec := recover(); rec != nil {
			logging.Get(logging.CategorySimulate).Error("run %s: internal fault: %v", run.ID, rec)
			run.Score = 0
			run.FailedSteps = run.TotalSteps
			run.SuccessfulSteps = 0
			run.addFailureMode(fmt.Sprintf("internal simulation fault: %v", rec))
			run.finalizeTimestamps()
		}
	}()

	if len(g.Actions) == 0 {
		// Nothing to step: neutral outcome, completes immediately.
		run.Score = 0.5
		run.ParallelismFactor = 0
		run.finalizeTimestamps()
		logging.Simulate("run %s: empty action set, neutral score 0.5", run.ID)
		return run
	}

	switch s.cfg.Mode {
	case ModeFast:
		s.fastPass(g, scenario, run)
	case ModeThorough:
		s.standardPass(g, scenario, run, s.cfg.BaseFailureProbability)
		s.stressAnalysis(g, scenario, run)
	default:
		s.standardPass(g, scenario, run, s.cfg.BaseFailureProbability)
	}

	analyzeRun(g, run)
	run.Score = scoreRun(run)
	run.finalizeTimestamps()

	logging.Simulate("run %s over graph %s: mode=%s steps=%d failed=%d score=%.3f",
		run.ID, g.ID, run.Mode, run.TotalSteps, run.FailedSteps, run.Score)
	return run
}

// fastPass draws one independent Bernoulli sample per action, ignoring
// dependency order entirely.
func (s *Simulator) fastPass(g *ir.Graph, scenario *Scenario, run *Run) {
	for _, id := range g.SortedActionIDs() {
		s.stepAction(g.Actions[id], scenario, run, s.cfg.BaseFailureProbability, 0)
	}
}

// standardPass walks the dependency frontier: all currently ready actions
// execute within one simulated time step, then the frontier advances. A
// non-empty remainder with an empty frontier is a deadlock, recorded as a
// failure mode rather than an error.
func (s *Simulator) standardPass(g *ir.Graph, scenario *Scenario, run *Run, baseProb float64) {
	indegree := make(map[string]int, len(g.Actions))
	dependents := make(map[string][]string, len(g.Actions))
	for _, id := range g.SortedActionIDs() {
		action := g.Actions[id]
		if _, ok := indegree[id]; !ok {
			indegree[id] = 0
		}
		for _, depID := range action.DependsOn {
			if _, ok := g.Actions[depID]; !ok {
				continue
			}
			indegree[id]++
			dependents[depID] = append(dependents[depID], id)
		}
	}

	var frontier []string
	for _, id := range g.SortedActionIDs() {
		if indegree[id] == 0 {
			frontier = append(frontier, id)
		}
	}

	resolved := 0
	frontierIdx := 0
	for len(frontier) > 0 {
		// Sorted iteration keeps the draw order reproducible; semantically
		// the whole frontier happens at once.
		sort.Strings(frontier)
		var next []string
		for _, id := range frontier {
			s.stepAction(g.Actions[id], scenario, run, baseProb, frontierIdx)
			resolved++
			for _, depID := range dependents[id] {
				indegree[depID]--
				if indegree[depID] == 0 {
					next = append(next, depID)
				}
			}
		}
		frontier = next
		frontierIdx++
	}

	if resolved < len(g.Actions) {
		logging.Get(logging.CategorySimulate).Warn("run %s: %d actions unreachable",
			run.ID, len(g.Actions)-resolved)
		run.addFailureMode("dependency deadlock detected")
	}
}

// stressAnalysis runs the extra thorough-mode passes at doubled failure
// probability, folding only the novel failure modes back into the run.
func (s *Simulator) stressAnalysis(g *ir.Graph, scenario *Scenario, run *Run) {
	for pass := 0; pass < stressPasses; pass++ {
		stress := newRun(g, ModeStandard, scenario, s.cfg.Seed)
		s.standardPass(g, scenario, stress, s.cfg.BaseFailureProbability*2)
		for _, desc := range stress.FailureModes {
			run.addFailureMode("[stress] " + desc)
		}
	}
}

// stepAction simulates a single action execution and records the outcome.
func (s *Simulator) stepAction(action *ir.ActionNode, scenario *Scenario, run *Run, baseProb float64, frontier int) {
	p := s.failureProbability(action, scenario, baseProb)
	durationMs := s.sampleDuration(action)
	failed := s.rng.Float64() < p

	outcome := StepOutcome{
		ActionID:   action.ID,
		Kind:       action.Kind,
		Frontier:   frontier,
		Succeeded:  !failed,
		DurationMs: durationMs,
	}
	if failed {
		outcome.Failure = fmt.Sprintf("action %s (%s) failed", action.ID, ir.StripAtomPrefix(string(action.Kind)))
		run.addFailureMode(outcome.Failure)
		run.FailedSteps++
	} else {
		run.SuccessfulSteps++
	}
	run.Steps = append(run.Steps, outcome)
	run.TotalSteps++
	run.TotalDurationMs += durationMs
	run.ResourceUsage[ir.StripAtomPrefix(string(action.Kind))] += durationMs
}

// failureProbability applies the risk model:
// base x kind multiplier x 1.2 for parameter-heavy actions, capped at 0.9,
// then scaled by the scenario's risk multiplier.
func (s *Simulator) failureProbability(action *ir.ActionNode, scenario *Scenario, baseProb float64) float64 {
	p := baseProb
	if mult, ok := kindRisk[action.Kind]; ok {
		p *= mult
	}
	if len(action.Parameters) > 5 {
		p *= 1.2
	}
	if p > 0.9 {
		p = 0.9
	}
	if scenario != nil && scenario.RiskMultiplier > 0 {
		p *= scenario.RiskMultiplier
	}
	return p
}

// sampleDuration returns the simulated duration with +/-20% jitter around
// the action's estimate or its kind default.
func (s *Simulator) sampleDuration(action *ir.ActionNode) int64 {
	base := action.EstimatedDurationMs
	if base <= 0 {
		if d, ok := kindDurationMs[action.Kind]; ok {
			base = d
		} else {
			base = 1000
		}
	}
	jitter := 0.8 + 0.4*s.rng.Float64()
	return int64(float64(base) * jitter)
}
