package services

import (
	"context"
	"time"

	"starview/internal/models"
	"starview/internal/repositories"

	"go.uber.org/zap"
)

// BackfillConfig holds backfill tunables.
type BackfillConfig struct {
	PageSize int `json:"page_size"`
}

// DefaultBackfillConfig returns default backfill configuration.
func DefaultBackfillConfig() *BackfillConfig {
	return &BackfillConfig{PageSize: 500}
}

// backfillService rescans users against the whole catalog. It exists
// for two reasons: repairing users whose events were missed, and
// granting badges that no event triggers (tenure thresholds are crossed
// by the passage of time alone).
type backfillService struct {
	userRepo   repositories.UserRepository
	dispatcher DispatcherService
	logger     *zap.Logger
	config     *BackfillConfig
}

// NewBackfillService creates a new backfill service.
func NewBackfillService(
	userRepo repositories.UserRepository,
	dispatcher DispatcherService,
	logger *zap.Logger,
	config *BackfillConfig,
) BackfillService {
	if config == nil {
		config = DefaultBackfillConfig()
	}

	return &backfillService{
		userRepo:   userRepo,
		dispatcher: dispatcher,
		logger:     logger,
		config:     config,
	}
}

// Run pages through all active users in ID order. Every grant is
// idempotent, so an interrupted run can simply be started again.
func (s *backfillService) Run(ctx context.Context) (*BackfillReport, error) {
	start := time.Now()
	report := &BackfillReport{}
	afterID := int64(0)

	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		ids, err := s.userRepo.ListActiveIDs(ctx, afterID, s.config.PageSize)
		if err != nil {
			return report, NewInternalError("failed to page users for backfill")
		}
		if len(ids) == 0 {
			break
		}

		for _, userID := range ids {
			awarded, err := s.RunUser(ctx, userID)
			if err != nil {
				// One user's failure never stops the sweep.
				report.UsersFailed++
				s.logger.Error("Backfill failed for user",
					zap.Int64("user_id", userID),
					zap.Error(err),
				)
				continue
			}
			report.UsersScanned++
			report.BadgesIssued += int64(len(awarded))
		}
		afterID = ids[len(ids)-1]
	}

	s.logger.Info("Backfill completed",
		zap.Int64("users_scanned", report.UsersScanned),
		zap.Int64("users_failed", report.UsersFailed),
		zap.Int64("badges_issued", report.BadgesIssued),
		zap.Duration("duration", time.Since(start)),
	)
	return report, nil
}

// RunUser rescans one user across every category.
func (s *backfillService) RunUser(ctx context.Context, userID int64) ([]*models.EarnedBadge, error) {
	return s.dispatcher.CheckUser(ctx, userID, models.AllCategories())
}
