package repositories

import (
	"context"
	"fmt"
	"time"

	"starview/internal/database"
	"starview/internal/models"

	"go.uber.org/zap"
)

type awardRepository struct {
	*BaseRepository
}

// NewAwardRepository creates a new award ledger repository.
func NewAwardRepository(db *database.Manager, logger *zap.Logger) AwardRepository {
	return &awardRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// AwardIfAbsent inserts the award unless one already exists for the
// (user, badge) pair. The unique constraint makes concurrent grants of
// the same badge converge on a single row.
func (r *awardRepository) AwardIfAbsent(ctx context.Context, userID, badgeID int64) (models.AwardOutcome, error) {
	query := `
		INSERT INTO badge_awards (user_id, badge_id, awarded_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id, badge_id) DO NOTHING`

	result, err := r.ExecContext(ctx, query, userID, badgeID)
	if err != nil {
		return models.AlreadyHeld, fmt.Errorf("failed to record award: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return models.AlreadyHeld, fmt.Errorf("failed to read award result: %w", err)
	}

	if affected == 0 {
		return models.AlreadyHeld, nil
	}

	r.GetLogger().Info("Badge awarded",
		zap.Int64("user_id", userID),
		zap.Int64("badge_id", badgeID),
	)
	return models.Awarded, nil
}

// ListByUser returns the user's awards, most recent first.
func (r *awardRepository) ListByUser(ctx context.Context, userID int64) ([]*models.Award, error) {
	query := `
		SELECT id, user_id, badge_id, awarded_at
		FROM badge_awards
		WHERE user_id = $1
		ORDER BY awarded_at DESC, id DESC`

	rows, err := r.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list awards: %w", err)
	}
	defer rows.Close()

	var awards []*models.Award
	for rows.Next() {
		var award models.Award
		if err := rows.Scan(&award.ID, &award.UserID, &award.BadgeID, &award.AwardedAt); err != nil {
			return nil, fmt.Errorf("failed to scan award: %w", err)
		}
		awards = append(awards, &award)
	}
	return awards, rows.Err()
}

// BadgeIDsByUser returns the badge IDs the user holds, keyed to the
// time each was awarded.
func (r *awardRepository) BadgeIDsByUser(ctx context.Context, userID int64) (map[int64]time.Time, error) {
	query := `SELECT badge_id, awarded_at FROM badge_awards WHERE user_id = $1`

	rows, err := r.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list awarded badge IDs: %w", err)
	}
	defer rows.Close()

	held := make(map[int64]time.Time)
	for rows.Next() {
		var badgeID int64
		var awardedAt time.Time
		if err := rows.Scan(&badgeID, &awardedAt); err != nil {
			return nil, fmt.Errorf("failed to scan awarded badge ID: %w", err)
		}
		held[badgeID] = awardedAt
	}
	return held, rows.Err()
}

// HasBadge reports whether the user holds the badge.
func (r *awardRepository) HasBadge(ctx context.Context, userID, badgeID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM badge_awards WHERE user_id = $1 AND badge_id = $2)`

	var exists bool
	if err := r.QueryRowContext(ctx, query, userID, badgeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check award: %w", err)
	}
	return exists, nil
}

// CountByUser returns the number of badges the user holds.
func (r *awardRepository) CountByUser(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.QueryRowContext(ctx, `SELECT COUNT(*) FROM badge_awards WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count awards: %w", err)
	}
	return count, nil
}
