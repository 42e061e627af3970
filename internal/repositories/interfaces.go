package repositories

import (
	"context"
	"time"

	"starview/internal/models"
)

// BadgeRepository provides read access to the badge catalog. The
// catalog is seeded by migrations and treated as immutable at runtime.
type BadgeRepository interface {
	GetBySlug(ctx context.Context, slug string) (*models.Badge, error)
	GetByID(ctx context.Context, id int64) (*models.Badge, error)
	ListActive(ctx context.Context) ([]*models.Badge, error)
	ListByCategory(ctx context.Context, category models.BadgeCategory) ([]*models.Badge, error)

	// Reload refreshes the in-process catalog snapshot from the database.
	Reload(ctx context.Context) error
}

// AwardRepository manages the append-only award ledger.
type AwardRepository interface {
	// AwardIfAbsent records an award unless the user already holds the
	// badge. Holding it already is not an error.
	AwardIfAbsent(ctx context.Context, userID, badgeID int64) (models.AwardOutcome, error)

	ListByUser(ctx context.Context, userID int64) ([]*models.Award, error)
	BadgeIDsByUser(ctx context.Context, userID int64) (map[int64]time.Time, error)
	HasBadge(ctx context.Context, userID, badgeID int64) (bool, error)
	CountByUser(ctx context.Context, userID int64) (int64, error)
}

// PinRepository manages a user's pinned badge selection.
type PinRepository interface {
	GetSelection(ctx context.Context, userID int64) (*models.PinnedSelection, error)
	// ReplaceSelection atomically swaps the user's entire pinned set.
	ReplaceSelection(ctx context.Context, userID int64, badgeIDs []int64) error
}

// StatsRepository computes per-user activity aggregates from the
// platform's source-of-truth tables.
type StatsRepository interface {
	// CountMetric returns the current value of a named counting metric.
	CountMetric(ctx context.Context, userID int64, metric string) (int64, error)
	// ReviewVotes returns helpful and total vote counts across the
	// user's reviews.
	ReviewVotes(ctx context.Context, userID int64) (helpful, total int64, err error)
	// ProfilePredicates evaluates the named profile completeness checks.
	ProfilePredicates(ctx context.Context, userID int64) (map[string]bool, error)
	// SignupRank returns the user's 1-based position in signup order.
	SignupRank(ctx context.Context, userID int64) (int64, error)
}

// UserRepository provides the minimal user reads the badge engine needs.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	// ListActiveIDs pages through active user IDs in ascending order,
	// returning up to limit IDs greater than afterID.
	ListActiveIDs(ctx context.Context, afterID int64, limit int) ([]int64, error)
}
