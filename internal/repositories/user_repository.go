package repositories

import (
	"context"
	"fmt"

	"starview/internal/database"
	"starview/internal/models"

	"go.uber.org/zap"
)

type userRepository struct {
	*BaseRepository
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *database.Manager, logger *zap.Logger) UserRepository {
	return &userRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

const userColumns = `id, username, email, bio, location, avatar_url, is_active, created_at`

func (r *userRepository) scanUser(scanner interface {
	Scan(dest ...interface{}) error
}) (*models.User, error) {
	var user models.User
	err := scanner.Scan(
		&user.ID, &user.Username, &user.Email, &user.Bio,
		&user.Location, &user.AvatarURL, &user.IsActive, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID retrieves an active user by ID. Returns nil when not found.
func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND is_active = true`

	user, err := r.scanUser(r.QueryRowContext(ctx, query, id))
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	return user, nil
}

// GetByUsername retrieves an active user by username. Returns nil when
// not found.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1 AND is_active = true`

	user, err := r.scanUser(r.QueryRowContext(ctx, query, username))
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return user, nil
}

// ListActiveIDs pages through active user IDs in ascending order.
func (r *userRepository) ListActiveIDs(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	query := `
		SELECT id FROM users
		WHERE is_active = true AND id > $1
		ORDER BY id
		LIMIT $2`

	rows, err := r.QueryContext(ctx, query, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list user IDs: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	r.GetLogger().Debug("Listed active user IDs",
		zap.Int64("after_id", afterID),
		zap.Int("count", len(ids)),
	)
	return ids, nil
}
