// Package evaluation turns a simulation run into a categorical verdict.
//
// Each criterion is scored independently, weighted, and normalized into a
// single overall score; the verdict (pass / conditional_pass / fail) falls
// out of the configured thresholds. Results are built once per (run,
// criteria-set) pair and never mutated afterwards.
package evaluation

import (
	"fmt"
	"time"

	"planweaver/internal/logging"
	"planweaver/internal/simulation"

	"github.com/google/uuid"
)

// Verdict is the evaluator's categorical judgment.
type Verdict string

const (
	VerdictPass            Verdict = "/pass"
	VerdictConditionalPass Verdict = "/conditional_pass"
	VerdictFail            Verdict = "/fail"
)

// Default verdict thresholds.
const (
	DefaultPassThreshold        = 0.7
	DefaultConditionalThreshold = 0.5
)

// maxRecommendations bounds the recommendation list.
const maxRecommendations = 5

// heavyweightCriterion marks criteria whose failure is treated as decisive.
const heavyweightCriterion = 2.0

// CriterionResult records one criterion's outcome.
type CriterionResult struct {
	Name       string            `json:"name"`
	Category   CriterionCategory `json:"category"`
	Value      float64           `json:"value"`
	Threshold  float64           `json:"threshold"`
	Weight     float64           `json:"weight"`
	Comparison Comparison        `json:"comparison"`
	Passed     bool              `json:"passed"`
	Score      float64           `json:"score"`
}

// Result is the immutable evaluation document.
type Result struct {
	ID              string            `json:"id"`
	RunID           string            `json:"run_id"`
	Verdict         Verdict           `json:"verdict"`
	OverallScore    float64           `json:"overall_score"`
	Criteria        []CriterionResult `json:"criteria"`
	Recommendations []string          `json:"recommendations,omitempty"`
	EvaluatedAt     time.Time         `json:"evaluated_at"`
}

// Evaluator applies criteria to runs.
type Evaluator struct {
	PassThreshold        float64
	ConditionalThreshold float64
	Criteria             []Criterion
}

// New creates an evaluator with the default criteria and thresholds.
func New() *Evaluator {
	return &Evaluator{
		PassThreshold:        DefaultPassThreshold,
		ConditionalThreshold: DefaultConditionalThreshold,
		Criteria:             DefaultCriteria(),
	}
}

// Evaluate scores the run against the given criteria (nil means the
// evaluator's configured set).
func (e *Evaluator) Evaluate(run *simulation.Run, criteria []Criterion) *Result {
	timer := logging.StartTimer(logging.CategoryEvaluate, "Evaluate")
	defer timer.Stop()

	if criteria == nil {
		criteria = e.Criteria
	}

	result := &Result{
		ID:          fmt.Sprintf("/eval_%s", uuid.New().String()[:8]),
		RunID:       run.ID,
		EvaluatedAt: time.Now().UTC(),
	}

	weightedSum := 0.0
	totalWeight := 0.0
	heavyFailed := false

	for _, criterion := range criteria {
		value := extractValue(criterion.Name, run)
		passed := criterion.Comparison.compare(value, criterion.Threshold)
		score := criterionScore(criterion, value, passed)

		result.Criteria = append(result.Criteria, CriterionResult{
			Name:       criterion.Name,
			Category:   criterion.Category,
			Value:      value,
			Threshold:  criterion.Threshold,
			Weight:     criterion.Weight,
			Comparison: criterion.Comparison,
			Passed:     passed,
			Score:      score,
		})

		weightedSum += criterion.Weight * score
		totalWeight += criterion.Weight
		if !passed && criterion.Weight >= heavyweightCriterion {
			heavyFailed = true
		}
	}

	if totalWeight > 0 {
		result.OverallScore = weightedSum / totalWeight
	}
	result.Verdict = e.verdict(result.OverallScore, heavyFailed)
	result.Recommendations = buildRecommendations(result.Criteria, run)

	logging.Evaluate("run %s evaluated: verdict=%s overall=%.3f criteria=%d",
		run.ID, result.Verdict, result.OverallScore, len(result.Criteria))
	return result
}

// criterionScore maps a criterion outcome onto [0,1].
// gte/gt: value/threshold capped at 1; lte/lt: 1 at or under the threshold
// with a linear falloff past it; eq: all or nothing.
func criterionScore(criterion Criterion, value float64, passed bool) float64 {
	switch criterion.Comparison {
	case CompareGTE, CompareGT:
		if criterion.Threshold <= 0 {
			if passed {
				return 1
			}
			return 0
		}
		score := value / criterion.Threshold
		if score > 1 {
			return 1
		}
		if score < 0 {
			return 0
		}
		return score
	case CompareLTE, CompareLT:
		if value <= criterion.Threshold {
			return 1
		}
		score := 1 - (value-criterion.Threshold)/(criterion.Threshold+1)
		if score < 0 {
			return 0
		}
		return score
	case CompareEQ:
		if passed {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// verdict applies the thresholds. A failed heavyweight criterion blocks the
// conditional band: the run either clears the pass threshold outright or
// fails.
func (e *Evaluator) verdict(overall float64, heavyFailed bool) Verdict {
	if overall < e.ConditionalThreshold {
		return VerdictFail
	}
	if heavyFailed && overall < e.PassThreshold {
		return VerdictFail
	}
	if overall >= e.PassThreshold {
		return VerdictPass
	}
	return VerdictConditionalPass
}

// buildRecommendations emits one suggestion per failing criterion, keyed by
// category, capped at maxRecommendations, plus a closing note when the run
// shows an unusually diverse failure surface.
func buildRecommendations(criteria []CriterionResult, run *simulation.Run) []string {
	var recs []string
	for _, cr := range criteria {
		if cr.Passed {
			continue
		}
		if len(recs) >= maxRecommendations {
			break
		}
		switch cr.Category {
		case CategorySuccess:
			recs = append(recs, "Improve error handling on failing actions to raise the success rate")
		case CategoryReliability:
			recs = append(recs, "Add retry logic around failure-prone actions")
		case CategoryPerformance:
			switch cr.Name {
			case CriterionParallelismFactor:
				recs = append(recs, "Restructure action dependencies to allow more parallel execution")
			case CriterionBottleneckCount:
				recs = append(recs, fmt.Sprintf("Split the %d bottleneck actions into smaller steps", len(run.Bottlenecks)))
			default:
				recs = append(recs, fmt.Sprintf("Investigate performance criterion %s", cr.Name))
			}
		default:
			recs = append(recs, fmt.Sprintf("Investigate failing criterion %s", cr.Name))
		}
	}

	if len(run.FailureModes) > 3 && len(recs) < maxRecommendations+1 {
		recs = append(recs, fmt.Sprintf("Plan exhibits %d distinct failure modes; consider simplifying the graph",
			len(run.FailureModes)))
	}
	return recs
}
