// Package pipeline runs a graph through the full
// validate -> plan -> simulate -> evaluate sequence, owning the stage status
// transitions so callers see one coherent lifecycle.
package pipeline

import (
	"fmt"

	"planweaver/internal/evaluation"
	"planweaver/internal/ir"
	"planweaver/internal/logging"
	"planweaver/internal/planner"
	"planweaver/internal/simulation"
	"planweaver/internal/validator"
)

// Options tunes one pipeline invocation.
type Options struct {
	Seed                   int64
	Mode                   simulation.Mode
	BaseFailureProbability float64
	Scenario               *simulation.Scenario
	RequireActions         bool

	PassThreshold        float64
	ConditionalThreshold float64
	Criteria             []evaluation.Criterion
}

// Result bundles the artifacts of one pipeline invocation. A validation
// failure leaves every later stage nil.
type Result struct {
	Validation *validator.Result      `json:"validation"`
	Plan       *planner.ExecutionPlan `json:"plan,omitempty"`
	Run        *simulation.Run        `json:"run,omitempty"`
	Evaluation *evaluation.Result     `json:"evaluation,omitempty"`
}

// Run executes the pipeline over the graph, mutating its status as stages
// complete. Validation failure is reported as data, not an error; an error
// return means a stage could not run at all (unorderable graph).
func Run(g *ir.Graph, opts Options) (*Result, error) {
	timer := logging.StartTimer(logging.CategoryBoot, "pipeline.Run")
	defer timer.Stop()

	v := validator.New()
	v.RequireActions = opts.RequireActions

	result := &Result{}
	result.Validation = v.ValidateAndUpdateStatus(g)
	if !result.Validation.Valid {
		logging.Boot("graph %s failed validation with %d errors, pipeline stopped",
			g.ID, len(result.Validation.Errors))
		return result, nil
	}

	plan, err := planner.ToExecutionPlan(g)
	if err != nil {
		return result, fmt.Errorf("plan synthesis for %s: %w", g.ID, err)
	}
	result.Plan = plan

	sim := simulation.NewSimulator(simulation.Config{
		Seed:                   opts.Seed,
		Mode:                   opts.Mode,
		BaseFailureProbability: opts.BaseFailureProbability,
	})
	result.Run = sim.Simulate(g, opts.Scenario)
	if err := g.AdvanceStatus(ir.StatusSimulated); err != nil {
		return result, fmt.Errorf("status after simulation for %s: %w", g.ID, err)
	}

	eval := evaluation.New()
	if opts.PassThreshold > 0 {
		eval.PassThreshold = opts.PassThreshold
	}
	if opts.ConditionalThreshold > 0 {
		eval.ConditionalThreshold = opts.ConditionalThreshold
	}
	result.Evaluation = eval.Evaluate(result.Run, opts.Criteria)

	if result.Evaluation.Verdict != evaluation.VerdictFail {
		if err := g.AdvanceStatus(ir.StatusApproved); err != nil {
			return result, fmt.Errorf("status after evaluation for %s: %w", g.ID, err)
		}
	}

	g.AppendLog("pipeline_completed", fmt.Sprintf("verdict=%s score=%.3f",
		result.Evaluation.Verdict, result.Evaluation.OverallScore))
	return result, nil
}
