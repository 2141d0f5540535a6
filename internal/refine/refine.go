// Package refine defines the producer/critic boundary around the IR graph.
//
// The actual producer (the language-model-backed compiler/critic pair) lives
// outside this repository; this package owns the contract it must satisfy
// and the mechanics of applying its proposals: patches only ever add nodes
// or challenge constraints, never rewrite or remove existing work, so a
// refinement round can at worst leave the graph unchanged.
package refine

import (
	"context"
	"fmt"

	"planweaver/internal/ir"
	"planweaver/internal/logging"
)

// Default refinement loop bounds.
const (
	DefaultMaxRounds      = 3
	DefaultConsensusScore = 0.8
)

// Critique is the critic's judgment of the current graph.
type Critique struct {
	Score     float64  `json:"score"` // [0,1]
	Issues    []string `json:"issues,omitempty"`
	Consensus bool     `json:"consensus"`
}

// ConstraintChallenge marks an active constraint as disputed.
type ConstraintChallenge struct {
	ConstraintID string `json:"constraint_id"`
	Reason       string `json:"reason"`
	Alternative  string `json:"alternative,omitempty"`
}

// GraphPatch is an additive change set produced by one refinement round.
type GraphPatch struct {
	Intents     []*ir.IntentNode      `json:"intents,omitempty"`
	Constraints []*ir.ConstraintNode  `json:"constraints,omitempty"`
	Actions     []*ir.ActionNode      `json:"actions,omitempty"`
	Challenges  []ConstraintChallenge `json:"challenges,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p *GraphPatch) Empty() bool {
	return p == nil ||
		len(p.Intents) == 0 && len(p.Constraints) == 0 &&
			len(p.Actions) == 0 && len(p.Challenges) == 0
}

// Producer is the external graph producer/critic pair.
type Producer interface {
	// Propose returns a patch addressing the critique (nil critique on the
	// first round).
	Propose(ctx context.Context, g *ir.Graph, task string, critique *Critique) (*GraphPatch, error)
	// Critique judges the current graph against the task.
	Critique(ctx context.Context, g *ir.Graph, task string) (*Critique, error)
}

// Apply merges a patch into the graph and records it in the processing log.
// The patch is applied atomically per node list: a duplicate or dangling id
// aborts with the graph partially patched, which the caller should treat as
// a discarded candidate.
func Apply(g *ir.Graph, patch *GraphPatch) error {
	if patch.Empty() {
		return nil
	}
	for _, n := range patch.Intents {
		if err := g.AddIntent(n); err != nil {
			return fmt.Errorf("patch intent: %w", err)
		}
	}
	for _, n := range patch.Constraints {
		if err := g.AddConstraint(n); err != nil {
			return fmt.Errorf("patch constraint: %w", err)
		}
	}
	for _, n := range patch.Actions {
		if err := g.AddAction(n); err != nil {
			return fmt.Errorf("patch action: %w", err)
		}
	}
	for _, ch := range patch.Challenges {
		constraint, ok := g.Constraints[ch.ConstraintID]
		if !ok {
			return fmt.Errorf("patch challenges unknown constraint %s", ch.ConstraintID)
		}
		if err := constraint.Challenge(ch.Reason, ch.Alternative); err != nil {
			return fmt.Errorf("patch challenge %s: %w", ch.ConstraintID, err)
		}
	}

	g.AppendLog("patch_applied", fmt.Sprintf("intents=%d constraints=%d actions=%d challenges=%d",
		len(patch.Intents), len(patch.Constraints), len(patch.Actions), len(patch.Challenges)))
	logging.Refine("graph %s patched: +%d intents +%d constraints +%d actions %d challenges",
		g.ID, len(patch.Intents), len(patch.Constraints), len(patch.Actions), len(patch.Challenges))
	return nil
}

// Outcome summarizes a refinement loop.
type Outcome struct {
	Rounds    int       `json:"rounds"`
	Converged bool      `json:"converged"`
	Final     *Critique `json:"final,omitempty"`
}

// Loop drives bounded produce/critique rounds over a graph.
type Loop struct {
	Producer       Producer
	MaxRounds      int
	ConsensusScore float64
}

// NewLoop creates a loop with the default bounds.
func NewLoop(producer Producer) *Loop {
	return &Loop{
		Producer:       producer,
		MaxRounds:      DefaultMaxRounds,
		ConsensusScore: DefaultConsensusScore,
	}
}

// Run critiques and patches the graph until the critic reaches consensus,
// the score clears the consensus threshold, a round proposes nothing, or the
// round budget runs out.
func (l *Loop) Run(ctx context.Context, g *ir.Graph, task string) (*Outcome, error) {
	maxRounds := l.MaxRounds
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	consensus := l.ConsensusScore
	if consensus <= 0 {
		consensus = DefaultConsensusScore
	}

	outcome := &Outcome{}
	var critique *Critique

	for round := 1; round <= maxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}
		outcome.Rounds = round

		var err error
		critique, err = l.Producer.Critique(ctx, g, task)
		if err != nil {
			return outcome, fmt.Errorf("critique round %d: %w", round, err)
		}
		outcome.Final = critique
		logging.RefineDebug("graph %s round %d: score=%.3f consensus=%v issues=%d",
			g.ID, round, critique.Score, critique.Consensus, len(critique.Issues))

		if critique.Consensus || critique.Score >= consensus {
			outcome.Converged = true
			g.AppendLog("refinement_converged", fmt.Sprintf("round=%d score=%.3f", round, critique.Score))
			return outcome, nil
		}

		patch, err := l.Producer.Propose(ctx, g, task, critique)
		if err != nil {
			return outcome, fmt.Errorf("propose round %d: %w", round, err)
		}
		if patch.Empty() {
			// Producer has nothing left to offer; stop without consensus.
			logging.Refine("graph %s round %d: empty patch, stopping", g.ID, round)
			return outcome, nil
		}
		if err := Apply(g, patch); err != nil {
			return outcome, fmt.Errorf("apply round %d: %w", round, err)
		}
	}

	logging.Refine("graph %s: round budget %d exhausted without consensus", g.ID, maxRounds)
	return outcome, nil
}
