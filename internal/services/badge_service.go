package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"starview/internal/cache"
	"starview/internal/models"
	"starview/internal/repositories"

	"go.uber.org/zap"
)

// BadgeServiceConfig holds badge service configuration.
type BadgeServiceConfig struct {
	ProgressTTL time.Duration `json:"progress_ttl"`
	PinLimit    int           `json:"pin_limit"`
}

// DefaultBadgeConfig returns default badge service configuration.
func DefaultBadgeConfig() *BadgeServiceConfig {
	return &BadgeServiceConfig{
		ProgressTTL: 5 * time.Minute,
		PinLimit:    models.MaxPinnedBadges,
	}
}

type badgeService struct {
	badgeRepo repositories.BadgeRepository
	awardRepo repositories.AwardRepository
	pinRepo   repositories.PinRepository
	userRepo  repositories.UserRepository
	metrics   MetricsService
	evaluator *Evaluator
	cache     cache.Cache
	logger    *zap.Logger
	config    *BadgeServiceConfig
}

// NewBadgeService creates a new badge service.
func NewBadgeService(
	badgeRepo repositories.BadgeRepository,
	awardRepo repositories.AwardRepository,
	pinRepo repositories.PinRepository,
	userRepo repositories.UserRepository,
	metrics MetricsService,
	evaluator *Evaluator,
	cacheService cache.Cache,
	logger *zap.Logger,
	config *BadgeServiceConfig,
) BadgeService {
	if config == nil {
		config = DefaultBadgeConfig()
	}

	return &badgeService{
		badgeRepo: badgeRepo,
		awardRepo: awardRepo,
		pinRepo:   pinRepo,
		userRepo:  userRepo,
		metrics:   metrics,
		evaluator: evaluator,
		cache:     cacheService,
		logger:    logger,
		config:    config,
	}
}

// collectionCacheKey keys the whole collection per user rather than per
// category: any award invalidates the single entry, so a coarser key
// trades a slightly larger rebuild for one delete per invalidation.
func collectionCacheKey(userID int64) string {
	return fmt.Sprintf("badges:collection:%d", userID)
}

// GetCatalog returns every active badge.
func (s *badgeService) GetCatalog(ctx context.Context) ([]*models.Badge, error) {
	badges, err := s.badgeRepo.ListActive(ctx)
	if err != nil {
		return nil, NewInternalError("failed to load badge catalog")
	}
	return badges, nil
}

// GetBadgeBySlug returns one catalog entry.
func (s *badgeService) GetBadgeBySlug(ctx context.Context, slug string) (*models.Badge, error) {
	badge, err := s.badgeRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, NewInternalError("failed to load badge catalog")
	}
	if badge == nil || !badge.IsActive {
		return nil, EntityNotFoundError("badge", slug)
	}
	return badge, nil
}

// GetCollection returns the owner's progress view. The snapshot is
// cached with a short TTL; a cold or unreachable cache means the view
// is rebuilt from the catalog, the ledger and the metric providers.
func (s *badgeService) GetCollection(ctx context.Context, userID int64) ([]*models.CategoryProgress, error) {
	key := collectionCacheKey(userID)

	if raw, found := s.cache.Get(ctx, key); found {
		if snapshot := decodeCollection(raw); snapshot != nil {
			s.logger.Debug("Collection cache hit", zap.Int64("user_id", userID))
			return snapshot, nil
		}
		// Unreadable entry: drop it and rebuild.
		_ = s.cache.Delete(ctx, key)
	}

	collection, err := s.buildCollection(ctx, userID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(collection); err == nil {
		if cacheErr := s.cache.Set(ctx, key, string(data), s.config.ProgressTTL); cacheErr != nil {
			s.logger.Warn("Failed to cache badge collection",
				zap.Int64("user_id", userID),
				zap.Error(cacheErr),
			)
		}
	}
	return collection, nil
}

func decodeCollection(raw interface{}) []*models.CategoryProgress {
	var data []byte
	switch v := raw.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return nil
	}

	var snapshot []*models.CategoryProgress
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil
	}
	return snapshot
}

// buildCollection reconstructs the progress view from scratch.
func (s *badgeService) buildCollection(ctx context.Context, userID int64) ([]*models.CategoryProgress, error) {
	held, err := s.awardRepo.BadgeIDsByUser(ctx, userID)
	if err != nil {
		return nil, NewInternalError("failed to load awards")
	}

	var collection []*models.CategoryProgress
	for _, category := range models.AllCategories() {
		badges, err := s.badgeRepo.ListByCategory(ctx, category)
		if err != nil {
			return nil, NewInternalError("failed to load badge catalog")
		}
		if len(badges) == 0 {
			continue
		}

		metrics, err := s.metrics.Snapshot(ctx, userID, category)
		if err != nil {
			return nil, err
		}

		progress := &models.CategoryProgress{Category: category}
		for _, eval := range s.evaluator.EvaluateAll(badges, metrics) {
			badge := eval.Badge
			if awardedAt, earned := held[badge.ID]; earned {
				progress.Earned = append(progress.Earned, &models.EarnedBadge{
					Badge:     badge,
					AwardedAt: awardedAt,
				})
				continue
			}

			if badge.CriteriaType == models.CriteriaNumericThreshold && eval.CurrentValue > 0 {
				progress.InProgress = append(progress.InProgress, &models.BadgeProgress{
					Badge:         badge,
					CurrentValue:  eval.CurrentValue,
					RequiredValue: badge.RequiredValue(),
					Percentage:    progressPercentage(eval.CurrentValue, badge.RequiredValue()),
				})
				continue
			}

			progress.Locked = append(progress.Locked, badge)
		}

		sort.Slice(progress.Earned, func(i, j int) bool {
			return progress.Earned[i].AwardedAt.After(progress.Earned[j].AwardedAt)
		})
		collection = append(collection, progress)
	}
	return collection, nil
}

// progressPercentage maps an unearned badge's progress to 0-99. A badge
// at or over its threshold but still withheld (ratio guard) shows 99.
func progressPercentage(current, required int64) int {
	if required <= 0 {
		return 0
	}
	pct := int(current * 100 / required)
	if pct > 99 {
		pct = 99
	}
	return pct
}

// GetPublicCollection returns only earned badges for another user.
func (s *badgeService) GetPublicCollection(ctx context.Context, username string) ([]*models.EarnedBadge, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, NewInternalError("failed to load user")
	}
	if user == nil {
		return nil, EntityNotFoundError("user", username)
	}

	awards, err := s.awardRepo.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, NewInternalError("failed to load awards")
	}

	earned := make([]*models.EarnedBadge, 0, len(awards))
	for _, award := range awards {
		badge, err := s.badgeRepo.GetByID(ctx, award.BadgeID)
		if err != nil {
			return nil, NewInternalError("failed to load badge catalog")
		}
		if badge == nil {
			s.logger.Warn("Award references unknown badge",
				zap.Int64("badge_id", award.BadgeID),
				zap.Int64("user_id", user.ID),
			)
			continue
		}
		earned = append(earned, &models.EarnedBadge{Badge: badge, AwardedAt: award.AwardedAt})
	}
	return earned, nil
}

// InvalidateCollection drops the cached progress snapshot. Invalidation
// is delete-only; the next read rebuilds.
func (s *badgeService) InvalidateCollection(ctx context.Context, userID int64) error {
	if err := s.cache.Delete(ctx, collectionCacheKey(userID)); err != nil {
		s.logger.Warn("Failed to invalidate badge collection",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// GetPinnedBadges returns the user's pinned badges in display order.
func (s *badgeService) GetPinnedBadges(ctx context.Context, userID int64) ([]*models.EarnedBadge, error) {
	selection, err := s.pinRepo.GetSelection(ctx, userID)
	if err != nil {
		return nil, NewInternalError("failed to load pinned badges")
	}

	held, err := s.awardRepo.BadgeIDsByUser(ctx, userID)
	if err != nil {
		return nil, NewInternalError("failed to load awards")
	}

	pinned := make([]*models.EarnedBadge, 0, len(selection.BadgeIDs))
	for _, badgeID := range selection.BadgeIDs {
		badge, err := s.badgeRepo.GetByID(ctx, badgeID)
		if err != nil {
			return nil, NewInternalError("failed to load badge catalog")
		}
		if badge == nil {
			continue
		}
		pinned = append(pinned, &models.EarnedBadge{Badge: badge, AwardedAt: held[badgeID]})
	}
	return pinned, nil
}

// SetPinnedBadges atomically replaces the user's pinned selection. The
// whole list is validated before any write: every ID must name a badge
// the user has earned, with no duplicates and at most the pin limit.
func (s *badgeService) SetPinnedBadges(ctx context.Context, userID int64, badgeIDs []int64) error {
	if len(badgeIDs) > s.config.PinLimit {
		return NewInvalidSelectionError(
			fmt.Sprintf("cannot pin more than %d badges", s.config.PinLimit),
		)
	}

	seen := make(map[int64]bool, len(badgeIDs))
	for _, badgeID := range badgeIDs {
		if seen[badgeID] {
			return NewInvalidSelectionError("pinned badges must be distinct")
		}
		seen[badgeID] = true
	}

	held, err := s.awardRepo.BadgeIDsByUser(ctx, userID)
	if err != nil {
		return NewInternalError("failed to load awards")
	}
	for _, badgeID := range badgeIDs {
		if _, earned := held[badgeID]; !earned {
			return NewInvalidSelectionError(
				fmt.Sprintf("badge %d is not earned", badgeID),
			).WithContext(&ErrorContext{
				UserID:   &userID,
				Resource: "badge",
				Metadata: map[string]interface{}{"badge_id": badgeID},
			})
		}
	}

	if err := s.pinRepo.ReplaceSelection(ctx, userID, badgeIDs); err != nil {
		return NewInternalError("failed to update pinned badges")
	}
	return nil
}
