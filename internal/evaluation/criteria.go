package evaluation

import (
	"strings"

	"planweaver/internal/simulation"
)

// Comparison is how a criterion's value is tested against its threshold.
type Comparison string

const (
	CompareGTE Comparison = "/gte"
	CompareLTE Comparison = "/lte"
	CompareGT  Comparison = "/gt"
	CompareLT  Comparison = "/lt"
	CompareEQ  Comparison = "/eq"
)

// ParseComparison maps an external label to a Comparison.
// Unknown labels fall back to CompareGTE.
func ParseComparison(label string) Comparison {
	l := strings.TrimSpace(strings.ToLower(label))
	if l != "" && !strings.HasPrefix(l, "/") {
		l = "/" + l
	}
	switch Comparison(l) {
	case CompareGTE, CompareLTE, CompareGT, CompareLT, CompareEQ:
		return Comparison(l)
	default:
		return CompareGTE
	}
}

// comparisonTolerance absorbs float noise in threshold comparisons.
const comparisonTolerance = 0.001

// compare applies the comparator with tolerance.
func (c Comparison) compare(value, threshold float64) bool {
	switch c {
	case CompareGTE:
		return value >= threshold-comparisonTolerance
	case CompareLTE:
		return value <= threshold+comparisonTolerance
	case CompareGT:
		return value > threshold+comparisonTolerance
	case CompareLT:
		return value < threshold-comparisonTolerance
	case CompareEQ:
		diff := value - threshold
		if diff < 0 {
			diff = -diff
		}
		return diff <= comparisonTolerance
	default:
		return false
	}
}

// CriterionCategory groups criteria for recommendation wording.
type CriterionCategory string

const (
	CategorySuccess     CriterionCategory = "/success"
	CategoryPerformance CriterionCategory = "/performance"
	CategoryReliability CriterionCategory = "/reliability"
)

// Criterion is one weighted, thresholded check against a simulation run.
type Criterion struct {
	Name       string            `json:"name"`
	Category   CriterionCategory `json:"category"`
	Threshold  float64           `json:"threshold"`
	Weight     float64           `json:"weight"`
	Comparison Comparison        `json:"comparison"`
}

// Criterion names with dedicated value extraction.
const (
	CriterionSuccessRate       = "success_rate"
	CriterionCriticalFailures  = "critical_failure_count"
	CriterionParallelismFactor = "parallelism_factor"
	CriterionBottleneckCount   = "bottleneck_count"
)

// DefaultCriteria returns the stock criteria set. The two heavyweight
// criteria (success rate, critical failures) dominate the verdict.
func DefaultCriteria() []Criterion {
	return []Criterion{
		{Name: CriterionSuccessRate, Category: CategorySuccess, Threshold: 0.8, Weight: 2.0, Comparison: CompareGTE},
		{Name: CriterionCriticalFailures, Category: CategoryReliability, Threshold: 0, Weight: 3.0, Comparison: CompareLTE},
		{Name: CriterionParallelismFactor, Category: CategoryPerformance, Threshold: 1.2, Weight: 0.5, Comparison: CompareGTE},
		{Name: CriterionBottleneckCount, Category: CategoryPerformance, Threshold: 3, Weight: 0.5, Comparison: CompareLTE},
	}
}

// extractValue pulls a criterion's raw value out of a run by name.
// Unknown names evaluate to zero.
func extractValue(name string, run *simulation.Run) float64 {
	switch name {
	case CriterionSuccessRate:
		return run.SuccessRate()
	case CriterionCriticalFailures:
		count := 0
		for _, mode := range run.FailureModes {
			lower := strings.ToLower(mode)
			if strings.Contains(lower, "critical") || strings.Contains(lower, "error") {
				count++
			}
		}
		return float64(count)
	case CriterionParallelismFactor:
		return run.ParallelismFactor
	case CriterionBottleneckCount:
		return float64(len(run.Bottlenecks))
	default:
		return 0
	}
}
