package repositories

import (
	"context"
	"fmt"

	"starview/internal/database"

	"go.uber.org/zap"
)

// Counting metrics the badge catalog can reference.
const (
	MetricLocationVisits   = "location_visits"
	MetricLocationsAdded   = "locations_added"
	MetricPhotosUploaded   = "photos_uploaded"
	MetricQualityLocations = "quality_locations"
	MetricReviewsWritten   = "reviews_written"
	MetricUpvotesReceived  = "upvotes_received"
	MetricFollowerCount    = "follower_count"
	MetricCommentsWritten  = "comments_written"
	MetricAccountAgeDays   = "account_age_days"
)

// Profile predicate names.
const (
	PredicateHasBio      = "has_bio"
	PredicateHasLocation = "has_location"
	PredicateHasAvatar   = "has_avatar"
)

type statsRepository struct {
	*BaseRepository
	qualityRatingFloor float64
}

// NewStatsRepository creates a repository that derives activity
// aggregates from the platform's source-of-truth tables.
func NewStatsRepository(db *database.Manager, logger *zap.Logger, qualityRatingFloor float64) StatsRepository {
	return &statsRepository{
		BaseRepository:     NewBaseRepository(db, logger),
		qualityRatingFloor: qualityRatingFloor,
	}
}

// countQueries maps each counting metric to its aggregate query. Every
// query takes the user ID as $1 and returns a single count.
var countQueries = map[string]string{
	MetricLocationVisits: `
		SELECT COUNT(DISTINCT location_id) FROM checkins WHERE user_id = $1`,
	MetricLocationsAdded: `
		SELECT COUNT(*) FROM locations WHERE created_by = $1`,
	MetricPhotosUploaded: `
		SELECT COUNT(*) FROM photos WHERE user_id = $1`,
	MetricReviewsWritten: `
		SELECT COUNT(*) FROM reviews WHERE user_id = $1`,
	MetricUpvotesReceived: `
		SELECT COUNT(*)
		FROM review_votes rv
		JOIN reviews r ON r.id = rv.review_id
		WHERE r.user_id = $1 AND rv.helpful`,
	MetricFollowerCount: `
		SELECT COUNT(*) FROM follows WHERE followed_id = $1`,
	MetricCommentsWritten: `
		SELECT COUNT(*) FROM comments WHERE user_id = $1`,
	MetricAccountAgeDays: `
		SELECT FLOOR(EXTRACT(EPOCH FROM NOW() - created_at) / 86400)::bigint
		FROM users WHERE id = $1`,
}

// CountMetric returns the current value of a named counting metric.
func (r *statsRepository) CountMetric(ctx context.Context, userID int64, metric string) (int64, error) {
	if metric == MetricQualityLocations {
		return r.countQualityLocations(ctx, userID)
	}

	query, ok := countQueries[metric]
	if !ok {
		return 0, fmt.Errorf("unknown metric: %s", metric)
	}

	var count int64
	if err := r.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to compute metric %s: %w", metric, err)
	}
	return count, nil
}

// countQualityLocations counts locations the user added whose average
// review rating meets the quality floor. Locations without reviews
// never qualify.
func (r *statsRepository) countQualityLocations(ctx context.Context, userID int64) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM (
			SELECT l.id
			FROM locations l
			JOIN reviews rv ON rv.location_id = l.id
			WHERE l.created_by = $1
			GROUP BY l.id
			HAVING AVG(rv.rating) >= $2
		) qualified`

	var count int64
	if err := r.QueryRowContext(ctx, query, userID, r.qualityRatingFloor).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to compute metric %s: %w", MetricQualityLocations, err)
	}
	return count, nil
}

// ReviewVotes returns helpful and total vote counts across the user's
// reviews.
func (r *statsRepository) ReviewVotes(ctx context.Context, userID int64) (helpful, total int64, err error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE rv.helpful),
			COUNT(*)
		FROM review_votes rv
		JOIN reviews r ON r.id = rv.review_id
		WHERE r.user_id = $1`

	if err := r.QueryRowContext(ctx, query, userID).Scan(&helpful, &total); err != nil {
		return 0, 0, fmt.Errorf("failed to compute review votes: %w", err)
	}
	return helpful, total, nil
}

// ProfilePredicates evaluates the profile completeness checks.
func (r *statsRepository) ProfilePredicates(ctx context.Context, userID int64) (map[string]bool, error) {
	query := `
		SELECT
			COALESCE(NULLIF(TRIM(bio), ''), '') <> '',
			COALESCE(NULLIF(TRIM(location), ''), '') <> '',
			COALESCE(NULLIF(TRIM(avatar_url), ''), '') <> ''
		FROM users WHERE id = $1`

	var hasBio, hasLocation, hasAvatar bool
	err := r.QueryRowContext(ctx, query, userID).Scan(&hasBio, &hasLocation, &hasAvatar)
	if err != nil {
		if r.IsNotFound(err) {
			return nil, fmt.Errorf("user %d not found", userID)
		}
		return nil, fmt.Errorf("failed to evaluate profile predicates: %w", err)
	}

	return map[string]bool{
		PredicateHasBio:      hasBio,
		PredicateHasLocation: hasLocation,
		PredicateHasAvatar:   hasAvatar,
	}, nil
}

// SignupRank returns the user's 1-based position in signup order.
// Inactive accounts keep their slot so the rank is stable over time.
func (r *statsRepository) SignupRank(ctx context.Context, userID int64) (int64, error) {
	query := `
		SELECT COUNT(*) + 1
		FROM users u
		WHERE (u.created_at, u.id) < (
			SELECT created_at, id FROM users WHERE id = $1
		)`

	var rank int64
	if err := r.QueryRowContext(ctx, query, userID).Scan(&rank); err != nil {
		return 0, fmt.Errorf("failed to compute signup rank: %w", err)
	}
	return rank, nil
}
