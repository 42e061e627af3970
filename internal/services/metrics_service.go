package services

import (
	"context"

	"starview/internal/models"
	"starview/internal/repositories"

	"go.uber.org/zap"
)

// metricsService assembles per-category metric snapshots. It inspects
// the catalog to learn which aggregates a category actually needs, so
// adding a badge never requires touching this service.
type metricsService struct {
	badgeRepo repositories.BadgeRepository
	statsRepo repositories.StatsRepository
	logger    *zap.Logger
}

// NewMetricsService creates a new metrics service.
func NewMetricsService(
	badgeRepo repositories.BadgeRepository,
	statsRepo repositories.StatsRepository,
	logger *zap.Logger,
) MetricsService {
	return &metricsService{
		badgeRepo: badgeRepo,
		statsRepo: statsRepo,
		logger:    logger,
	}
}

// Snapshot reads every aggregate the category's badges reference.
func (s *metricsService) Snapshot(ctx context.Context, userID int64, category models.BadgeCategory) (*CategoryMetrics, error) {
	badges, err := s.badgeRepo.ListByCategory(ctx, category)
	if err != nil {
		return nil, NewInternalError("failed to load badge catalog")
	}

	metrics := &CategoryMetrics{
		Category: category,
		Counts:   make(map[string]int64),
	}

	needVotes := false
	needPredicates := false
	needRank := false

	for _, badge := range badges {
		switch badge.CriteriaType {
		case models.CriteriaNumericThreshold:
			if _, done := metrics.Counts[badge.Metric]; !done {
				count, err := s.statsRepo.CountMetric(ctx, userID, badge.Metric)
				if err != nil {
					return nil, NewMetricComputationError(badge.Metric, err)
				}
				metrics.Counts[badge.Metric] = count
			}
			if badge.MinRatio != nil {
				needVotes = true
			}
		case models.CriteriaPredicateSet:
			needPredicates = true
		case models.CriteriaGlobalRank:
			needRank = true
		}
	}

	if needVotes {
		helpful, total, err := s.statsRepo.ReviewVotes(ctx, userID)
		if err != nil {
			return nil, NewMetricComputationError("review_votes", err)
		}
		metrics.Votes = &VoteStats{Helpful: helpful, Total: total}
	}

	if needPredicates {
		predicates, err := s.statsRepo.ProfilePredicates(ctx, userID)
		if err != nil {
			return nil, NewMetricComputationError("profile_predicates", err)
		}
		metrics.Predicates = predicates
	}

	if needRank {
		rank, err := s.statsRepo.SignupRank(ctx, userID)
		if err != nil {
			return nil, NewMetricComputationError("signup_rank", err)
		}
		metrics.SignupRank = &rank
	}

	s.logger.Debug("Category metrics computed",
		zap.Int64("user_id", userID),
		zap.String("category", string(category)),
		zap.Int("count_metrics", len(metrics.Counts)),
	)
	return metrics, nil
}
