package services

import (
	"testing"

	"starview/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func thresholdBadge(id int64, slug, metric string, value int64, tier int) *models.Badge {
	v := value
	return &models.Badge{
		ID:            id,
		Slug:          slug,
		Category:      models.CategoryExploration,
		CriteriaType:  models.CriteriaNumericThreshold,
		Metric:        metric,
		CriteriaValue: &v,
		Tier:          tier,
		IsActive:      true,
	}
}

func ratioBadge(id int64, slug string, value int64, minRatio float64, minVotes *int) *models.Badge {
	badge := thresholdBadge(id, slug, "reviews_written", value, 1)
	badge.Category = models.CategoryReview
	badge.MinRatio = &minRatio
	badge.MinRatioVotes = minVotes
	return badge
}

func TestEvaluateThreshold(t *testing.T) {
	evaluator := NewEvaluator(EvaluatorConfig{DefaultMinRatioVotes: 10})

	tests := []struct {
		name      string
		current   int64
		required  int64
		satisfied bool
	}{
		{"below threshold", 4, 5, false},
		{"at threshold", 5, 5, true},
		{"above threshold", 6, 5, true},
		{"zero activity", 0, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			badge := thresholdBadge(1, "explorer", "location_visits", tt.required, 2)
			metrics := &CategoryMetrics{
				Counts: map[string]int64{"location_visits": tt.current},
			}

			eval := evaluator.Evaluate(badge, metrics)
			assert.Equal(t, tt.satisfied, eval.Satisfied)
			assert.Equal(t, tt.current, eval.CurrentValue)
		})
	}
}

func TestEvaluateRatioGuard(t *testing.T) {
	evaluator := NewEvaluator(EvaluatorConfig{DefaultMinRatioVotes: 10})
	minVotes := 20

	tests := []struct {
		name      string
		badge     *models.Badge
		counts    int64
		votes     *VoteStats
		satisfied bool
	}{
		{
			name:      "count met ratio met",
			badge:     ratioBadge(1, "expert-reviewer", 25, 0.75, nil),
			counts:    25,
			votes:     &VoteStats{Helpful: 30, Total: 40},
			satisfied: true,
		},
		{
			name:      "count met ratio short",
			badge:     ratioBadge(1, "expert-reviewer", 25, 0.75, nil),
			counts:    25,
			votes:     &VoteStats{Helpful: 20, Total: 40},
			satisfied: false,
		},
		{
			name:      "insufficient vote sample with default guard",
			badge:     ratioBadge(1, "expert-reviewer", 25, 0.75, nil),
			counts:    25,
			votes:     &VoteStats{Helpful: 9, Total: 9},
			satisfied: false,
		},
		{
			name:      "explicit guard overrides default",
			badge:     ratioBadge(1, "trusted-critic", 25, 0.75, &minVotes),
			counts:    25,
			votes:     &VoteStats{Helpful: 15, Total: 15},
			satisfied: false,
		},
		{
			name:      "no votes at all",
			badge:     ratioBadge(1, "expert-reviewer", 25, 0.75, nil),
			counts:    25,
			votes:     nil,
			satisfied: false,
		},
		{
			name:      "count short despite perfect ratio",
			badge:     ratioBadge(1, "expert-reviewer", 25, 0.75, nil),
			counts:    24,
			votes:     &VoteStats{Helpful: 100, Total: 100},
			satisfied: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := &CategoryMetrics{
				Counts: map[string]int64{"reviews_written": tt.counts},
				Votes:  tt.votes,
			}
			eval := evaluator.Evaluate(tt.badge, metrics)
			assert.Equal(t, tt.satisfied, eval.Satisfied)
		})
	}
}

func TestEvaluatePredicateSet(t *testing.T) {
	evaluator := NewEvaluator(EvaluatorConfig{DefaultMinRatioVotes: 10})

	badge := &models.Badge{
		ID:           1,
		Slug:         "stellar-profile",
		Category:     models.CategorySpecial,
		CriteriaType: models.CriteriaPredicateSet,
		Predicates:   []string{"has_bio", "has_location", "has_avatar"},
	}

	t.Run("all predicates hold", func(t *testing.T) {
		eval := evaluator.Evaluate(badge, &CategoryMetrics{
			Predicates: map[string]bool{"has_bio": true, "has_location": true, "has_avatar": true},
		})
		assert.True(t, eval.Satisfied)
	})

	t.Run("one predicate missing", func(t *testing.T) {
		eval := evaluator.Evaluate(badge, &CategoryMetrics{
			Predicates: map[string]bool{"has_bio": true, "has_location": true, "has_avatar": false},
		})
		assert.False(t, eval.Satisfied)
	})

	t.Run("empty predicate list never satisfies", func(t *testing.T) {
		empty := &models.Badge{CriteriaType: models.CriteriaPredicateSet}
		eval := evaluator.Evaluate(empty, &CategoryMetrics{
			Predicates: map[string]bool{"has_bio": true},
		})
		assert.False(t, eval.Satisfied)
	})
}

func TestEvaluateGlobalRank(t *testing.T) {
	evaluator := NewEvaluator(EvaluatorConfig{DefaultMinRatioVotes: 10})

	cutoff := int64(100)
	badge := &models.Badge{
		ID:            1,
		Slug:          "pioneer",
		Category:      models.CategorySpecial,
		CriteriaType:  models.CriteriaGlobalRank,
		CriteriaValue: &cutoff,
	}

	t.Run("within cutoff", func(t *testing.T) {
		rank := int64(57)
		eval := evaluator.Evaluate(badge, &CategoryMetrics{SignupRank: &rank})
		assert.True(t, eval.Satisfied)
		assert.Equal(t, rank, eval.CurrentValue)
	})

	t.Run("exactly at cutoff", func(t *testing.T) {
		rank := int64(100)
		eval := evaluator.Evaluate(badge, &CategoryMetrics{SignupRank: &rank})
		assert.True(t, eval.Satisfied)
	})

	t.Run("past cutoff", func(t *testing.T) {
		rank := int64(101)
		eval := evaluator.Evaluate(badge, &CategoryMetrics{SignupRank: &rank})
		assert.False(t, eval.Satisfied)
	})

	t.Run("rank unavailable", func(t *testing.T) {
		eval := evaluator.Evaluate(badge, &CategoryMetrics{})
		assert.False(t, eval.Satisfied)
	})
}

// A category's ascending thresholds let the evaluator stop checking a
// metric once one tier fails; the outcome must match evaluating every
// badge independently.
func TestEvaluateAllMatchesIndependentEvaluation(t *testing.T) {
	evaluator := NewEvaluator(EvaluatorConfig{DefaultMinRatioVotes: 10})

	badges := []*models.Badge{
		thresholdBadge(1, "first-light", "location_visits", 1, 1),
		thresholdBadge(2, "explorer", "location_visits", 5, 2),
		thresholdBadge(3, "pathfinder", "location_visits", 10, 3),
		thresholdBadge(4, "voyager", "location_visits", 25, 4),
		thresholdBadge(5, "wayfarer", "location_visits", 50, 5),
	}

	for _, visits := range []int64{0, 1, 4, 5, 10, 24, 25, 50, 200} {
		metrics := &CategoryMetrics{
			Counts: map[string]int64{"location_visits": visits},
		}

		all := evaluator.EvaluateAll(badges, metrics)
		require.Len(t, all, len(badges))

		got := make(map[string]bool, len(all))
		for _, eval := range all {
			got[eval.Badge.Slug] = eval.Satisfied
		}
		for _, badge := range badges {
			want := evaluator.Evaluate(badge, metrics).Satisfied
			assert.Equal(t, want, got[badge.Slug],
				"badge %s at %d visits", badge.Slug, visits)
		}
	}
}

// Ratio-guarded badges share a metric with plain thresholds but must
// never be skipped by the series early-exit, and a withheld ratio badge
// must not hide higher plain tiers.
func TestEvaluateAllRatioGuardNotSkipped(t *testing.T) {
	evaluator := NewEvaluator(EvaluatorConfig{DefaultMinRatioVotes: 10})

	badges := []*models.Badge{
		thresholdBadge(1, "reviewer", "reviews_written", 5, 1),
		ratioBadge(2, "expert-reviewer", 25, 0.75, nil),
		ratioBadge(3, "trusted-critic", 50, 0.80, nil),
	}

	metrics := &CategoryMetrics{
		Counts: map[string]int64{"reviews_written": 60},
		Votes:  &VoteStats{Helpful: 45, Total: 60}, // 0.75
	}

	got := make(map[string]bool)
	for _, eval := range evaluator.EvaluateAll(badges, metrics) {
		got[eval.Badge.Slug] = eval.Satisfied
	}

	assert.True(t, got["reviewer"])
	assert.True(t, got["expert-reviewer"])
	assert.False(t, got["trusted-critic"], "ratio below 0.80")
}

func TestEvaluateAllMixedMetrics(t *testing.T) {
	evaluator := NewEvaluator(EvaluatorConfig{DefaultMinRatioVotes: 10})

	badges := []*models.Badge{
		thresholdBadge(1, "scout", "locations_added", 1, 1),
		thresholdBadge(2, "discoverer", "locations_added", 5, 2),
		thresholdBadge(3, "shutterbug", "photos_uploaded", 10, 1),
	}

	// locations_added fails at tier 2; photos_uploaded is a separate
	// series and must still be evaluated.
	metrics := &CategoryMetrics{
		Counts: map[string]int64{"locations_added": 3, "photos_uploaded": 12},
	}

	got := make(map[string]bool)
	for _, eval := range evaluator.EvaluateAll(badges, metrics) {
		got[eval.Badge.Slug] = eval.Satisfied
	}

	assert.True(t, got["scout"])
	assert.False(t, got["discoverer"])
	assert.True(t, got["shutterbug"])
}
