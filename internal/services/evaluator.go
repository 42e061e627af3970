package services

import (
	"sort"

	"starview/internal/models"
)

// Evaluation is the verdict for one badge against one user's metrics.
type Evaluation struct {
	Badge        *models.Badge `json:"badge"`
	Satisfied    bool          `json:"satisfied"`
	CurrentValue int64         `json:"current_value"`
}

// EvaluatorConfig carries the defaults applied when a catalog row
// leaves its ratio guard columns NULL.
type EvaluatorConfig struct {
	DefaultMinRatioVotes int
}

// Evaluator judges catalog entries against metric snapshots. It holds
// no I/O: every decision is a function of the badge and the snapshot.
type Evaluator struct {
	config EvaluatorConfig
}

// NewEvaluator creates an evaluator.
func NewEvaluator(config EvaluatorConfig) *Evaluator {
	return &Evaluator{config: config}
}

// Evaluate judges a single badge.
func (e *Evaluator) Evaluate(badge *models.Badge, metrics *CategoryMetrics) Evaluation {
	switch badge.CriteriaType {
	case models.CriteriaNumericThreshold:
		return e.evaluateThreshold(badge, metrics)
	case models.CriteriaPredicateSet:
		return e.evaluatePredicates(badge, metrics)
	case models.CriteriaGlobalRank:
		return e.evaluateRank(badge, metrics)
	default:
		return Evaluation{Badge: badge}
	}
}

// EvaluateAll judges a category's badges. Numeric badges sharing a
// metric form an ascending series, so once one threshold fails every
// higher tier of that metric fails without further checks. The result
// is identical to evaluating each badge independently.
func (e *Evaluator) EvaluateAll(badges []*models.Badge, metrics *CategoryMetrics) []Evaluation {
	ordered := make([]*models.Badge, len(badges))
	copy(ordered, badges)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Metric != ordered[j].Metric {
			return ordered[i].Metric < ordered[j].Metric
		}
		return ordered[i].RequiredValue() < ordered[j].RequiredValue()
	})

	evaluations := make([]Evaluation, 0, len(ordered))
	failedMetric := ""

	for _, badge := range ordered {
		if badge.CriteriaType == models.CriteriaNumericThreshold &&
			badge.MinRatio == nil &&
			badge.Metric != "" && badge.Metric == failedMetric {
			evaluations = append(evaluations, Evaluation{
				Badge:        badge,
				CurrentValue: metrics.Counts[badge.Metric],
			})
			continue
		}

		eval := e.Evaluate(badge, metrics)
		if badge.CriteriaType == models.CriteriaNumericThreshold &&
			badge.MinRatio == nil && !eval.Satisfied {
			failedMetric = badge.Metric
		}
		evaluations = append(evaluations, eval)
	}
	return evaluations
}

func (e *Evaluator) evaluateThreshold(badge *models.Badge, metrics *CategoryMetrics) Evaluation {
	current := metrics.Counts[badge.Metric]
	eval := Evaluation{Badge: badge, CurrentValue: current}

	if current < badge.RequiredValue() {
		return eval
	}

	// Ratio guard: reaching the count is not enough until the user's
	// votes clear both the volume and quality bars.
	if badge.MinRatio != nil {
		minVotes := e.config.DefaultMinRatioVotes
		if badge.MinRatioVotes != nil {
			minVotes = *badge.MinRatioVotes
		}
		if metrics.Votes == nil || metrics.Votes.Total < int64(minVotes) {
			return eval
		}
		if metrics.Votes.Ratio() < *badge.MinRatio {
			return eval
		}
	}

	eval.Satisfied = true
	return eval
}

func (e *Evaluator) evaluatePredicates(badge *models.Badge, metrics *CategoryMetrics) Evaluation {
	eval := Evaluation{Badge: badge}

	if len(badge.Predicates) == 0 {
		return eval
	}
	for _, name := range badge.Predicates {
		if !metrics.Predicates[name] {
			return eval
		}
	}
	eval.Satisfied = true
	return eval
}

func (e *Evaluator) evaluateRank(badge *models.Badge, metrics *CategoryMetrics) Evaluation {
	eval := Evaluation{Badge: badge}
	if metrics.SignupRank == nil {
		return eval
	}

	eval.CurrentValue = *metrics.SignupRank
	eval.Satisfied = *metrics.SignupRank <= badge.RequiredValue()
	return eval
}
