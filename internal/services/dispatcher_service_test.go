package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"starview/internal/events"
	"starview/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockBadgeRepo serves a fixed catalog grouped by category.
type mockBadgeRepo struct {
	badges []*models.Badge
}

func (m *mockBadgeRepo) GetBySlug(ctx context.Context, slug string) (*models.Badge, error) {
	for _, b := range m.badges {
		if b.Slug == slug {
			return b, nil
		}
	}
	return nil, nil
}

func (m *mockBadgeRepo) GetByID(ctx context.Context, id int64) (*models.Badge, error) {
	for _, b := range m.badges {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, nil
}

func (m *mockBadgeRepo) ListActive(ctx context.Context) ([]*models.Badge, error) {
	return m.badges, nil
}

func (m *mockBadgeRepo) ListByCategory(ctx context.Context, category models.BadgeCategory) ([]*models.Badge, error) {
	var out []*models.Badge
	for _, b := range m.badges {
		if b.Category == category {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *mockBadgeRepo) Reload(ctx context.Context) error { return nil }

// mockAwardRepo is an in-memory award ledger with the same conflict
// semantics as the unique constraint.
type mockAwardRepo struct {
	mu     sync.Mutex
	awards map[int64]map[int64]time.Time
}

func newMockAwardRepo() *mockAwardRepo {
	return &mockAwardRepo{awards: make(map[int64]map[int64]time.Time)}
}

func (m *mockAwardRepo) AwardIfAbsent(ctx context.Context, userID, badgeID int64) (models.AwardOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.awards[userID] == nil {
		m.awards[userID] = make(map[int64]time.Time)
	}
	if _, held := m.awards[userID][badgeID]; held {
		return models.AlreadyHeld, nil
	}
	m.awards[userID][badgeID] = time.Now()
	return models.Awarded, nil
}

func (m *mockAwardRepo) ListByUser(ctx context.Context, userID int64) ([]*models.Award, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Award
	for badgeID, at := range m.awards[userID] {
		out = append(out, &models.Award{UserID: userID, BadgeID: badgeID, AwardedAt: at})
	}
	return out, nil
}

func (m *mockAwardRepo) BadgeIDsByUser(ctx context.Context, userID int64) (map[int64]time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]time.Time, len(m.awards[userID]))
	for badgeID, at := range m.awards[userID] {
		out[badgeID] = at
	}
	return out, nil
}

func (m *mockAwardRepo) HasBadge(ctx context.Context, userID, badgeID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, held := m.awards[userID][badgeID]
	return held, nil
}

func (m *mockAwardRepo) CountByUser(ctx context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.awards[userID])), nil
}

// mockMetricsService returns canned snapshots per category, with
// optional injected failures.
type mockMetricsService struct {
	snapshots map[models.BadgeCategory]*CategoryMetrics
	failing   map[models.BadgeCategory]error
}

func (m *mockMetricsService) Snapshot(ctx context.Context, userID int64, category models.BadgeCategory) (*CategoryMetrics, error) {
	if err, ok := m.failing[category]; ok {
		return nil, err
	}
	if snap, ok := m.snapshots[category]; ok {
		return snap, nil
	}
	return &CategoryMetrics{Category: category, Counts: map[string]int64{}}, nil
}

// mockBadgeService records invalidations; nothing else is exercised by
// the dispatcher.
type mockBadgeService struct {
	mu            sync.Mutex
	invalidations []int64
}

func (m *mockBadgeService) GetCatalog(ctx context.Context) ([]*models.Badge, error) {
	return nil, nil
}

func (m *mockBadgeService) GetBadgeBySlug(ctx context.Context, slug string) (*models.Badge, error) {
	return nil, nil
}

func (m *mockBadgeService) GetCollection(ctx context.Context, userID int64) ([]*models.CategoryProgress, error) {
	return nil, nil
}

func (m *mockBadgeService) GetPublicCollection(ctx context.Context, username string) ([]*models.EarnedBadge, error) {
	return nil, nil
}

func (m *mockBadgeService) InvalidateCollection(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidations = append(m.invalidations, userID)
	return nil
}

func (m *mockBadgeService) GetPinnedBadges(ctx context.Context, userID int64) ([]*models.EarnedBadge, error) {
	return nil, nil
}

func (m *mockBadgeService) SetPinnedBadges(ctx context.Context, userID int64, badgeIDs []int64) error {
	return nil
}

func explorationCatalog() []*models.Badge {
	return []*models.Badge{
		thresholdBadge(1, "first-light", "location_visits", 1, 1),
		thresholdBadge(2, "explorer", "location_visits", 5, 2),
		thresholdBadge(3, "pathfinder", "location_visits", 10, 3),
		thresholdBadge(4, "voyager", "location_visits", 25, 4),
	}
}

func newTestDispatcher(badgeRepo *mockBadgeRepo, awardRepo *mockAwardRepo, metrics *mockMetricsService, badges *mockBadgeService) DispatcherService {
	logger := zap.NewNop()
	evaluator := NewEvaluator(EvaluatorConfig{DefaultMinRatioVotes: 10})
	return NewDispatcherService(badgeRepo, awardRepo, metrics, evaluator, badges, logger)
}

func TestCheckUserAwardsAllReachedThresholds(t *testing.T) {
	badgeRepo := &mockBadgeRepo{badges: explorationCatalog()}
	awardRepo := newMockAwardRepo()
	metrics := &mockMetricsService{
		snapshots: map[models.BadgeCategory]*CategoryMetrics{
			models.CategoryExploration: {
				Category: models.CategoryExploration,
				Counts:   map[string]int64{"location_visits": 10},
			},
		},
	}
	badges := &mockBadgeService{}
	dispatcher := newTestDispatcher(badgeRepo, awardRepo, metrics, badges)

	awarded, err := dispatcher.CheckUser(context.Background(), 42, []models.BadgeCategory{models.CategoryExploration})
	require.NoError(t, err)

	slugs := make([]string, 0, len(awarded))
	for _, earned := range awarded {
		slugs = append(slugs, earned.Badge.Slug)
	}
	assert.ElementsMatch(t, []string{"first-light", "explorer", "pathfinder"}, slugs)

	held, _ := awardRepo.BadgeIDsByUser(context.Background(), 42)
	assert.Len(t, held, 3)
	assert.NotContains(t, held, int64(4), "25-visit badge must not be awarded at 10 visits")

	assert.Equal(t, []int64{42}, badges.invalidations)
}

func TestCheckUserIsIdempotent(t *testing.T) {
	badgeRepo := &mockBadgeRepo{badges: explorationCatalog()}
	awardRepo := newMockAwardRepo()
	metrics := &mockMetricsService{
		snapshots: map[models.BadgeCategory]*CategoryMetrics{
			models.CategoryExploration: {
				Category: models.CategoryExploration,
				Counts:   map[string]int64{"location_visits": 5},
			},
		},
	}
	dispatcher := newTestDispatcher(badgeRepo, awardRepo, metrics, &mockBadgeService{})

	for i := 0; i < 5; i++ {
		_, err := dispatcher.CheckUser(context.Background(), 7, []models.BadgeCategory{models.CategoryExploration})
		require.NoError(t, err)
	}

	held, _ := awardRepo.BadgeIDsByUser(context.Background(), 7)
	assert.Len(t, held, 2, "repeated checks must not duplicate awards")
}

func TestCheckUserConcurrent(t *testing.T) {
	badgeRepo := &mockBadgeRepo{badges: explorationCatalog()}
	awardRepo := newMockAwardRepo()
	metrics := &mockMetricsService{
		snapshots: map[models.BadgeCategory]*CategoryMetrics{
			models.CategoryExploration: {
				Category: models.CategoryExploration,
				Counts:   map[string]int64{"location_visits": 10},
			},
		},
	}
	dispatcher := newTestDispatcher(badgeRepo, awardRepo, metrics, &mockBadgeService{})

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := dispatcher.CheckUser(context.Background(), 99, []models.BadgeCategory{models.CategoryExploration})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err, "concurrent checks must all observe success")
	}
	held, _ := awardRepo.BadgeIDsByUser(context.Background(), 99)
	assert.Len(t, held, 3, "exactly one ledger row per badge")
}

func TestCheckUserCategoryIsolation(t *testing.T) {
	catalog := append(explorationCatalog(), func() *models.Badge {
		b := thresholdBadge(10, "scout", "locations_added", 1, 1)
		b.Category = models.CategoryContribution
		return b
	}())

	badgeRepo := &mockBadgeRepo{badges: catalog}
	awardRepo := newMockAwardRepo()
	metrics := &mockMetricsService{
		snapshots: map[models.BadgeCategory]*CategoryMetrics{
			models.CategoryContribution: {
				Category: models.CategoryContribution,
				Counts:   map[string]int64{"locations_added": 1},
			},
		},
		failing: map[models.BadgeCategory]error{
			models.CategoryExploration: NewMetricComputationError("location_visits", errors.New("source table unreachable")),
		},
	}
	dispatcher := newTestDispatcher(badgeRepo, awardRepo, metrics, &mockBadgeService{})

	awarded, err := dispatcher.CheckUser(context.Background(), 5, []models.BadgeCategory{
		models.CategoryExploration,
		models.CategoryContribution,
	})

	require.Error(t, err, "the failing category must be reported")
	require.Len(t, awarded, 1, "the healthy category still awards")
	assert.Equal(t, "scout", awarded[0].Badge.Slug)
}

func TestHandleEventRouting(t *testing.T) {
	badgeRepo := &mockBadgeRepo{badges: explorationCatalog()}
	awardRepo := newMockAwardRepo()
	metrics := &mockMetricsService{
		snapshots: map[models.BadgeCategory]*CategoryMetrics{
			models.CategoryExploration: {
				Category: models.CategoryExploration,
				Counts:   map[string]int64{"location_visits": 1},
			},
		},
	}
	dispatcher := newTestDispatcher(badgeRepo, awardRepo, metrics, &mockBadgeService{})

	t.Run("routed event triggers its categories", func(t *testing.T) {
		event := events.NewCheckinCreatedEvent(11, 1001)
		awarded, err := dispatcher.HandleEvent(context.Background(), event)
		require.NoError(t, err)
		require.Len(t, awarded, 1)
		assert.Equal(t, "first-light", awarded[0].Badge.Slug)
	})

	t.Run("unrouted event is a no-op", func(t *testing.T) {
		event := &events.BaseEvent{
			EventID:   events.GenerateEventID(),
			EventType: "message.sent",
		}
		awarded, err := dispatcher.HandleEvent(context.Background(), event)
		assert.NoError(t, err)
		assert.Nil(t, awarded)
	})

	t.Run("event without user is rejected", func(t *testing.T) {
		event := &events.BaseEvent{
			EventID:   events.GenerateEventID(),
			EventType: events.EventTypeCheckinCreated,
		}
		_, err := dispatcher.HandleEvent(context.Background(), event)
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
	})
}

// failingAwardRepo persists through the embedded ledger until it hits
// the configured badge, then errors.
type failingAwardRepo struct {
	*mockAwardRepo
	failBadgeID int64
}

func (f *failingAwardRepo) AwardIfAbsent(ctx context.Context, userID, badgeID int64) (models.AwardOutcome, error) {
	if badgeID == f.failBadgeID {
		return 0, errors.New("insert failed: connection reset")
	}
	return f.mockAwardRepo.AwardIfAbsent(ctx, userID, badgeID)
}

func TestCheckUserReportsAwardsPersistedBeforeFailure(t *testing.T) {
	badgeRepo := &mockBadgeRepo{badges: explorationCatalog()}
	awardRepo := &failingAwardRepo{mockAwardRepo: newMockAwardRepo(), failBadgeID: 2}
	metrics := &mockMetricsService{
		snapshots: map[models.BadgeCategory]*CategoryMetrics{
			models.CategoryExploration: {
				Category: models.CategoryExploration,
				Counts:   map[string]int64{"location_visits": 10},
			},
		},
	}
	badges := &mockBadgeService{}
	evaluator := NewEvaluator(EvaluatorConfig{DefaultMinRatioVotes: 10})
	dispatcher := NewDispatcherService(badgeRepo, awardRepo, metrics, evaluator, badges, zap.NewNop())

	awarded, err := dispatcher.CheckUser(context.Background(), 42, []models.BadgeCategory{models.CategoryExploration})
	require.Error(t, err)

	// first-light hit the ledger before explorer's insert failed; a
	// retry would see it AlreadyHeld, so this pass must report it.
	require.Len(t, awarded, 1)
	assert.Equal(t, "first-light", awarded[0].Badge.Slug)

	held, _ := awardRepo.BadgeIDsByUser(context.Background(), 42)
	assert.Len(t, held, 1)
	assert.Equal(t, []int64{42}, badges.invalidations, "persisted award must drop the cached collection")
}

func qualityBadge(id int64, slug string, value int64, tier int) *models.Badge {
	b := thresholdBadge(id, slug, "quality_locations", value, tier)
	b.Category = models.CategoryQuality
	return b
}

func TestReviewEventChecksQualityForLocationOwner(t *testing.T) {
	catalog := []*models.Badge{
		qualityBadge(20, "quality-contributor", 1, 1),
		func() *models.Badge {
			b := thresholdBadge(21, "reviewer", "reviews_written", 5, 1)
			b.Category = models.CategoryReview
			return b
		}(),
	}
	badgeRepo := &mockBadgeRepo{badges: catalog}
	awardRepo := newMockAwardRepo()
	metrics := &mockMetricsService{
		snapshots: map[models.BadgeCategory]*CategoryMetrics{
			models.CategoryQuality: {
				Category: models.CategoryQuality,
				Counts:   map[string]int64{"quality_locations": 1},
			},
			models.CategoryReview: {
				Category: models.CategoryReview,
				Counts:   map[string]int64{"reviews_written": 1},
			},
		},
	}
	badges := &mockBadgeService{}
	dispatcher := newTestDispatcher(badgeRepo, awardRepo, metrics, badges)

	t.Run("external review credits the creator", func(t *testing.T) {
		event := events.NewReviewCreatedEvent(11, 300, 1001, 7, 4.5)
		awarded, err := dispatcher.HandleEvent(context.Background(), event)
		require.NoError(t, err)
		require.Len(t, awarded, 1)
		assert.Equal(t, "quality-contributor", awarded[0].Badge.Slug)

		ownerHeld, _ := awardRepo.BadgeIDsByUser(context.Background(), 7)
		assert.Contains(t, ownerHeld, int64(20))
		reviewerHeld, _ := awardRepo.BadgeIDsByUser(context.Background(), 11)
		assert.NotContains(t, reviewerHeld, int64(20), "reviewer must not earn the creator's quality badge")
		assert.Contains(t, badges.invalidations, int64(7))
	})

	t.Run("review of own location runs no quality check", func(t *testing.T) {
		event := events.NewReviewCreatedEvent(13, 301, 1002, 13, 5.0)
		awarded, err := dispatcher.HandleEvent(context.Background(), event)
		require.NoError(t, err)
		assert.Empty(t, awarded)

		held, _ := awardRepo.BadgeIDsByUser(context.Background(), 13)
		assert.NotContains(t, held, int64(20))
	})
}

func TestDispatcherViaEventBus(t *testing.T) {
	badgeRepo := &mockBadgeRepo{badges: explorationCatalog()}
	awardRepo := newMockAwardRepo()
	metrics := &mockMetricsService{
		snapshots: map[models.BadgeCategory]*CategoryMetrics{
			models.CategoryExploration: {
				Category: models.CategoryExploration,
				Counts:   map[string]int64{"location_visits": 1},
			},
		},
	}
	dispatcher := newTestDispatcher(badgeRepo, awardRepo, metrics, &mockBadgeService{})

	bus := events.NewEventBus(events.DefaultEventBusConfig(), zap.NewNop())
	require.NoError(t, dispatcher.Register(bus))
	require.NoError(t, bus.Start(context.Background()))
	defer bus.Stop(context.Background())

	err := bus.Publish(context.Background(), events.NewCheckinCreatedEvent(3, 500))
	require.NoError(t, err)

	held, _ := awardRepo.BadgeIDsByUser(context.Background(), 3)
	assert.Len(t, held, 1)
}
