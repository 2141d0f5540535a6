package simulation

import (
	"fmt"
	"strings"
	"time"

	"planweaver/internal/ir"

	"github.com/google/uuid"
)

// Mode selects how much work a simulation does.
type Mode string

const (
	// ModeFast draws one independent failure sample per action with no
	// dependency ordering.
	ModeFast Mode = "/fast"
	// ModeStandard executes the action frontier in topological order.
	ModeStandard Mode = "/standard"
	// ModeThorough runs standard once, then three stress passes at doubled
	// failure probability, merging the extra failure modes.
	ModeThorough Mode = "/thorough"
)

// ParseMode maps an external label to a Mode.
// Unknown labels fall back to ModeStandard.
func ParseMode(label string) Mode {
	l := strings.TrimSpace(strings.ToLower(label))
	if l != "" && !strings.HasPrefix(l, "/") {
		l = "/" + l
	}
	switch Mode(l) {
	case ModeFast, ModeStandard, ModeThorough:
		return Mode(l)
	default:
		return ModeStandard
	}
}

// Scenario tunes a simulation without changing the graph.
type Scenario struct {
	Name string `json:"name,omitempty"`
	// RiskMultiplier scales every action's failure probability.
	// Zero means unset (treated as 1.0).
	RiskMultiplier float64 `json:"risk_multiplier,omitempty"`
}

// StepOutcome records one simulated action execution.
type StepOutcome struct {
	ActionID string        `json:"action_id"`
	Kind     ir.ActionKind `json:"kind"`
	// Frontier is the simulated time step this action ran in. Actions in the
	// same frontier logically happen at once; ordering within a frontier is
	// an implementation detail.
	Frontier   int    `json:"frontier"`
	Succeeded  bool   `json:"succeeded"`
	DurationMs int64  `json:"duration_ms"`
	Failure    string `json:"failure,omitempty"`
}

// Run is one simulation execution over a graph's action set.
// The document is fully JSON-serializable for the external audit store.
type Run struct {
	ID       string    `json:"id"`
	GraphID  string    `json:"graph_id"`
	Mode     Mode      `json:"mode"`
	Scenario *Scenario `json:"scenario,omitempty"`
	Seed     int64     `json:"seed"`

	Steps []StepOutcome `json:"steps,omitempty"`

	TotalSteps      int   `json:"total_steps"`
	SuccessfulSteps int   `json:"successful_steps"`
	FailedSteps     int   `json:"failed_steps"`
	TotalDurationMs int64 `json:"total_duration_ms"`

	// ResourceUsage aggregates simulated milliseconds per action kind.
	ResourceUsage map[string]int64 `json:"resource_usage,omitempty"`

	// Bottlenecks lists action ids whose duration exceeded twice the mean.
	Bottlenecks        []string `json:"bottlenecks,omitempty"`
	CriticalPathLength int      `json:"critical_path_length"`
	ParallelismFactor  float64  `json:"parallelism_factor"`

	// FailureModes is a deduplicated list of free-text failure descriptions.
	FailureModes []string `json:"failure_modes,omitempty"`

	// Score is the single scalar quality signal in [0,1].
	Score float64 `json:"score"`

	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

func newRun(g *ir.Graph, mode Mode, scenario *Scenario, seed int64) *Run {
	return &Run{
		ID:            fmt.Sprintf("/run_%s", uuid.New().String()[:8]),
		GraphID:       g.ID,
		Mode:          mode,
		Scenario:      scenario,
		Seed:          seed,
		ResourceUsage: make(map[string]int64),
		StartedAt:     time.Now().UTC(),
	}
}

// addFailureMode appends a failure description if not already present,
// keeping FailureModes an ordered set.
func (r *Run) addFailureMode(desc string) {
	for _, existing := range r.FailureModes {
		if existing == desc {
			return
		}
	}
	r.FailureModes = append(r.FailureModes, desc)
}

// SuccessRate returns successful/total steps, 1.0 for an empty run.
func (r *Run) SuccessRate() float64 {
	if r.TotalSteps == 0 {
		return 1.0
	}
	return float64(r.SuccessfulSteps) / float64(r.TotalSteps)
}
