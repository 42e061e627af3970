package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"starview/internal/database"
	"starview/internal/models"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// badgeRepository reads the badge catalog. Since the catalog only
// changes through migrations, it keeps an in-process snapshot and
// serves all reads from it after the first load.
type badgeRepository struct {
	*BaseRepository

	mu      sync.RWMutex
	bySlug  map[string]*models.Badge
	byID    map[int64]*models.Badge
	ordered []*models.Badge
	loaded  bool
}

// NewBadgeRepository creates a new badge catalog repository.
func NewBadgeRepository(db *database.Manager, logger *zap.Logger) BadgeRepository {
	return &badgeRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

const badgeColumns = `
	id, slug, name, description, icon, color, category, criteria_type,
	metric, criteria_value, min_ratio, min_ratio_votes, predicates,
	tier, is_active, created_at`

func (r *badgeRepository) scanBadge(scanner interface {
	Scan(dest ...interface{}) error
}) (*models.Badge, error) {
	var badge models.Badge
	err := scanner.Scan(
		&badge.ID, &badge.Slug, &badge.Name, &badge.Description,
		&badge.Icon, &badge.Color, &badge.Category, &badge.CriteriaType,
		&badge.Metric, &badge.CriteriaValue, &badge.MinRatio,
		&badge.MinRatioVotes, pq.Array(&badge.Predicates),
		&badge.Tier, &badge.IsActive, &badge.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &badge, nil
}

// Reload replaces the in-process snapshot with the current catalog.
func (r *badgeRepository) Reload(ctx context.Context) error {
	query := `SELECT ` + badgeColumns + ` FROM badges ORDER BY category, metric, tier`

	rows, err := r.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to load badge catalog: %w", err)
	}
	defer rows.Close()

	bySlug := make(map[string]*models.Badge)
	byID := make(map[int64]*models.Badge)
	var ordered []*models.Badge

	for rows.Next() {
		badge, err := r.scanBadge(rows)
		if err != nil {
			return fmt.Errorf("failed to scan badge: %w", err)
		}
		bySlug[badge.Slug] = badge
		byID[badge.ID] = badge
		ordered = append(ordered, badge)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate badge catalog: %w", err)
	}

	r.mu.Lock()
	r.bySlug = bySlug
	r.byID = byID
	r.ordered = ordered
	r.loaded = true
	r.mu.Unlock()

	r.GetLogger().Info("Badge catalog loaded", zap.Int("badge_count", len(ordered)))
	return nil
}

func (r *badgeRepository) ensureLoaded(ctx context.Context) error {
	r.mu.RLock()
	loaded := r.loaded
	r.mu.RUnlock()

	if loaded {
		return nil
	}
	return r.Reload(ctx)
}

// GetBySlug returns the badge with the given slug, or nil if unknown.
func (r *badgeRepository) GetBySlug(ctx context.Context, slug string) (*models.Badge, error) {
	if err := r.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bySlug[slug], nil
}

// GetByID returns the badge with the given ID, or nil if unknown.
func (r *badgeRepository) GetByID(ctx context.Context, id int64) (*models.Badge, error) {
	if err := r.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[id], nil
}

// ListActive returns all active badges in catalog order.
func (r *badgeRepository) ListActive(ctx context.Context) ([]*models.Badge, error) {
	if err := r.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.Badge, 0, len(r.ordered))
	for _, badge := range r.ordered {
		if badge.IsActive {
			result = append(result, badge)
		}
	}
	return result, nil
}

// ListByCategory returns active badges in one category, ordered by
// metric then ascending tier.
func (r *badgeRepository) ListByCategory(ctx context.Context, category models.BadgeCategory) ([]*models.Badge, error) {
	badges, err := r.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	var result []*models.Badge
	for _, badge := range badges {
		if badge.Category == category {
			result = append(result, badge)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Metric != result[j].Metric {
			return result[i].Metric < result[j].Metric
		}
		return result[i].Tier < result[j].Tier
	})
	return result, nil
}
