package services

import (
	"context"
	"fmt"
	"time"

	"starview/internal/events"
	"starview/internal/models"
	"starview/internal/repositories"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// eventCategories is the static routing table from activity events to
// the badge categories they can influence. An event type absent from
// the table triggers no checks.
var eventCategories = map[string][]models.BadgeCategory{
	events.EventTypeCheckinCreated:  {models.CategoryExploration},
	events.EventTypeLocationCreated: {models.CategoryContribution, models.CategoryQuality},
	events.EventTypeReviewCreated:   {models.CategoryReview},
	events.EventTypeVoteReceived:    {models.CategoryReview},
	events.EventTypeFollowCreated:   {models.CategoryCommunity},
	events.EventTypeCommentCreated:  {models.CategoryCommunity},
	events.EventTypePhotoUploaded:   {models.CategoryContribution},
	events.EventTypeProfileUpdated:  {models.CategorySpecial},
	events.EventTypeSignupConfirmed: {models.CategorySpecial, models.CategoryTenure},
}

type dispatcherService struct {
	badgeRepo repositories.BadgeRepository
	awardRepo repositories.AwardRepository
	metrics   MetricsService
	evaluator *Evaluator
	badges    BadgeService
	logger    *zap.Logger
}

// NewDispatcherService creates the event-to-badge-check dispatcher.
func NewDispatcherService(
	badgeRepo repositories.BadgeRepository,
	awardRepo repositories.AwardRepository,
	metrics MetricsService,
	evaluator *Evaluator,
	badges BadgeService,
	logger *zap.Logger,
) DispatcherService {
	return &dispatcherService{
		badgeRepo: badgeRepo,
		awardRepo: awardRepo,
		metrics:   metrics,
		evaluator: evaluator,
		badges:    badges,
		logger:    logger,
	}
}

// Register subscribes the dispatcher to every routed event type.
func (s *dispatcherService) Register(bus events.EventBus) error {
	handler := events.EventHandlerFunc{
		ID: "badge-dispatcher",
		Func: func(ctx context.Context, event events.Event) error {
			_, err := s.HandleEvent(ctx, event)
			return err
		},
	}

	for eventType := range eventCategories {
		if err := bus.Subscribe(eventType, handler); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", eventType, err)
		}
	}
	return nil
}

// HandleEvent runs badge checks for the categories the event routes to.
// A failure in one category never blocks the others; failures are
// collected and reported together.
func (s *dispatcherService) HandleEvent(ctx context.Context, event events.Event) ([]*models.EarnedBadge, error) {
	categories, routed := eventCategories[event.GetEventType()]
	if !routed {
		s.logger.Debug("Event type not routed to badge checks",
			zap.String("event_type", event.GetEventType()),
		)
		return nil, nil
	}

	userID := event.GetUserID()
	if userID == nil {
		return nil, NewValidationError("event carries no user", nil)
	}

	awarded, err := s.CheckUser(ctx, *userID, categories)

	// A new review changes the quality standing of the reviewed
	// location's creator, not the reviewer.
	if review, ok := event.(*events.ReviewCreatedEvent); ok && review.OwnerID > 0 && review.OwnerID != *userID {
		ownerAwarded, ownerErr := s.CheckUser(ctx, review.OwnerID, []models.BadgeCategory{models.CategoryQuality})
		awarded = append(awarded, ownerAwarded...)
		if ownerErr != nil {
			err = multierror.Append(err, ownerErr)
		}
	}
	return awarded, err
}

// CheckUser evaluates the given categories for a user and awards every
// satisfied badge the user does not already hold.
func (s *dispatcherService) CheckUser(ctx context.Context, userID int64, categories []models.BadgeCategory) ([]*models.EarnedBadge, error) {
	var awarded []*models.EarnedBadge
	var result *multierror.Error

	for _, category := range categories {
		newlyAwarded, err := s.checkCategory(ctx, userID, category)
		// A failing category may already have persisted awards; those
		// rows exist, so they must be reported and the cache dropped.
		awarded = append(awarded, newlyAwarded...)
		if err != nil {
			s.logger.Error("Badge check failed for category",
				zap.Int64("user_id", userID),
				zap.String("category", string(category)),
				zap.Error(err),
			)
			result = multierror.Append(result, fmt.Errorf("category %s: %w", category, err))
		}
	}

	if len(awarded) > 0 {
		// Delete-only invalidation; the next read rebuilds the snapshot.
		_ = s.badges.InvalidateCollection(ctx, userID)
	}
	return awarded, result.ErrorOrNil()
}

func (s *dispatcherService) checkCategory(ctx context.Context, userID int64, category models.BadgeCategory) ([]*models.EarnedBadge, error) {
	badges, err := s.badgeRepo.ListByCategory(ctx, category)
	if err != nil {
		return nil, err
	}
	if len(badges) == 0 {
		return nil, nil
	}

	held, err := s.awardRepo.BadgeIDsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Only unearned badges need evaluating.
	pending := badges[:0:0]
	for _, badge := range badges {
		if _, has := held[badge.ID]; !has {
			pending = append(pending, badge)
		}
	}
	if len(pending) == 0 {
		return nil, nil
	}

	metrics, err := s.metrics.Snapshot(ctx, userID, category)
	if err != nil {
		return nil, err
	}

	var awarded []*models.EarnedBadge
	for _, eval := range s.evaluator.EvaluateAll(pending, metrics) {
		if !eval.Satisfied {
			continue
		}

		outcome, err := s.awardRepo.AwardIfAbsent(ctx, userID, eval.Badge.ID)
		if err != nil {
			return awarded, err
		}
		if outcome == models.AlreadyHeld {
			// A concurrent check won the insert; nothing to report.
			continue
		}

		s.logger.Info("Badge earned",
			zap.Int64("user_id", userID),
			zap.String("badge_slug", eval.Badge.Slug),
			zap.String("category", string(category)),
		)
		awarded = append(awarded, &models.EarnedBadge{Badge: eval.Badge, AwardedAt: time.Now()})
	}
	return awarded, nil
}
