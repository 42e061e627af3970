package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"starview/internal/database"
	"starview/internal/models"

	"go.uber.org/zap"
)

type pinRepository struct {
	*BaseRepository
}

// NewPinRepository creates a new pinned-badge repository.
func NewPinRepository(db *database.Manager, logger *zap.Logger) PinRepository {
	return &pinRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// GetSelection returns the user's pinned badges in display order. A
// user with no pins gets an empty selection, not an error.
func (r *pinRepository) GetSelection(ctx context.Context, userID int64) (*models.PinnedSelection, error) {
	query := `
		SELECT badge_id, updated_at
		FROM badge_pins
		WHERE user_id = $1
		ORDER BY position`

	rows, err := r.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pinned badges: %w", err)
	}
	defer rows.Close()

	selection := &models.PinnedSelection{UserID: userID}
	for rows.Next() {
		var badgeID int64
		var updatedAt time.Time
		if err := rows.Scan(&badgeID, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pinned badge: %w", err)
		}
		selection.BadgeIDs = append(selection.BadgeIDs, badgeID)
		if updatedAt.After(selection.UpdatedAt) {
			selection.UpdatedAt = updatedAt
		}
	}
	return selection, rows.Err()
}

// ReplaceSelection swaps the user's entire pinned set in one
// transaction. Readers never observe a partial selection.
func (r *pinRepository) ReplaceSelection(ctx context.Context, userID int64, badgeIDs []int64) error {
	err := r.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM badge_pins WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("failed to clear pinned badges: %w", err)
		}

		for position, badgeID := range badgeIDs {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO badge_pins (user_id, badge_id, position, updated_at)
				 VALUES ($1, $2, $3, NOW())`,
				userID, badgeID, position,
			)
			if err != nil {
				return fmt.Errorf("failed to insert pinned badge: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.GetLogger().Info("Pinned badges replaced",
		zap.Int64("user_id", userID),
		zap.Int("pin_count", len(badgeIDs)),
	)
	return nil
}
