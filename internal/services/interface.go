package services

import (
	"context"

	"starview/internal/events"
	"starview/internal/models"
)

// BadgeService exposes the badge catalog, per-user collections and the
// pinned-badge selection.
type BadgeService interface {
	// GetCatalog returns every active badge in catalog order.
	GetCatalog(ctx context.Context) ([]*models.Badge, error)
	// GetBadgeBySlug returns one catalog entry.
	GetBadgeBySlug(ctx context.Context, slug string) (*models.Badge, error)

	// GetCollection returns the owner's full view: earned badges plus
	// progress toward unearned ones, grouped by category.
	GetCollection(ctx context.Context, userID int64) ([]*models.CategoryProgress, error)
	// GetPublicCollection returns only the badges another user has
	// earned. Progress toward unearned badges is never exposed.
	GetPublicCollection(ctx context.Context, username string) ([]*models.EarnedBadge, error)

	// InvalidateCollection drops the user's cached progress snapshot.
	InvalidateCollection(ctx context.Context, userID int64) error

	// GetPinnedBadges returns the user's pinned badges in display order.
	GetPinnedBadges(ctx context.Context, userID int64) ([]*models.EarnedBadge, error)
	// SetPinnedBadges atomically replaces the user's pinned selection.
	SetPinnedBadges(ctx context.Context, userID int64, badgeIDs []int64) error
}

// MetricsService reads per-user activity aggregates for one category at
// a time.
type MetricsService interface {
	Snapshot(ctx context.Context, userID int64, category models.BadgeCategory) (*CategoryMetrics, error)
}

// CategoryMetrics is everything the evaluator needs to judge one
// category's badges for one user.
type CategoryMetrics struct {
	Category models.BadgeCategory `json:"category"`
	// Counts holds the current value per counting metric.
	Counts map[string]int64 `json:"counts"`
	// Votes is set when the category carries ratio-guarded badges.
	Votes *VoteStats `json:"votes,omitempty"`
	// Predicates is set when the category carries predicate badges.
	Predicates map[string]bool `json:"predicates,omitempty"`
	// SignupRank is set when the category carries rank badges.
	SignupRank *int64 `json:"signup_rank,omitempty"`
}

// VoteStats aggregates helpfulness votes across a user's reviews.
type VoteStats struct {
	Helpful int64 `json:"helpful"`
	Total   int64 `json:"total"`
}

// Ratio returns the helpful-vote share, or 0 when no votes exist.
func (v *VoteStats) Ratio() float64 {
	if v == nil || v.Total == 0 {
		return 0
	}
	return float64(v.Helpful) / float64(v.Total)
}

// DispatcherService routes activity events to badge checks for the
// categories each event can influence.
type DispatcherService interface {
	// Register subscribes the dispatcher to every activity event type.
	Register(bus events.EventBus) error
	// HandleEvent runs badge checks for the event's categories and
	// returns any newly awarded badges.
	HandleEvent(ctx context.Context, event events.Event) ([]*models.EarnedBadge, error)
	// CheckUser evaluates the given categories for a user directly,
	// outside of any event.
	CheckUser(ctx context.Context, userID int64, categories []models.BadgeCategory) ([]*models.EarnedBadge, error)
}

// BackfillService rescans users against the catalog to grant awards
// that were missed, and is the delivery vehicle for badges with no
// triggering event.
type BackfillService interface {
	// Run scans all active users. It is restartable: every award it
	// grants is idempotent.
	Run(ctx context.Context) (*BackfillReport, error)
	// RunUser rescans a single user across all categories.
	RunUser(ctx context.Context, userID int64) ([]*models.EarnedBadge, error)
}

// BackfillReport summarizes one backfill pass.
type BackfillReport struct {
	UsersScanned int64 `json:"users_scanned"`
	UsersFailed  int64 `json:"users_failed"`
	BadgesIssued int64 `json:"badges_issued"`
}
