package services

import (
	"context"
	"fmt"
	"time"

	"starview/internal/cache"
	"starview/internal/config"
	"starview/internal/database"
	"starview/internal/events"
	"starview/internal/repositories"

	"go.uber.org/zap"
)

// ServiceCollection wires every service with its dependencies.
type ServiceCollection struct {
	BadgeService      BadgeService      `json:"-"`
	MetricsService    MetricsService    `json:"-"`
	DispatcherService DispatcherService `json:"-"`
	BackfillService   BackfillService   `json:"-"`

	Repositories *repositories.Collection `json:"-"`

	Cache     cache.Cache       `json:"-"`
	EventBus  events.EventBus   `json:"-"`
	Logger    *zap.Logger       `json:"-"`
	Config    *config.Config    `json:"-"`
	DBManager *database.Manager `json:"-"`

	startTime time.Time
}

// NewServiceCollection creates the service collection in dependency
// order: infrastructure, repositories, then services.
func NewServiceCollection(
	dbManager *database.Manager,
	cfg *config.Config,
	logger *zap.Logger,
) (*ServiceCollection, error) {
	if dbManager == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	sc := &ServiceCollection{
		DBManager: dbManager,
		Config:    cfg,
		Logger:    logger,
		startTime: time.Now(),
	}

	if err := sc.initializeInfrastructure(); err != nil {
		return nil, fmt.Errorf("failed to initialize infrastructure: %w", err)
	}
	if err := sc.initializeRepositories(); err != nil {
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}
	if err := sc.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	logger.Info("Service collection initialized")
	return sc, nil
}

func (sc *ServiceCollection) initializeInfrastructure() error {
	cacheConfig := &cache.Config{
		Provider:        sc.Config.Cache.Provider,
		TTL:             sc.Config.Badges.ProgressTTL,
		MaxKeys:         10000,
		CleanupInterval: time.Minute,
		RedisURL:        sc.Config.Cache.RedisURL,
		RedisDB:         sc.Config.Cache.RedisDB,
		RedisPassword:   sc.Config.Cache.RedisPassword,
		PoolSize:        sc.Config.Cache.PoolSize,
	}

	c, err := cache.NewCache(cacheConfig, sc.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	sc.Cache = c

	sc.EventBus = events.NewEventBus(events.DefaultEventBusConfig(), sc.Logger)
	return nil
}

func (sc *ServiceCollection) initializeRepositories() error {
	repos, err := repositories.NewCollection(sc.DBManager, sc.Logger, &repositories.CollectionConfig{
		QualityRatingFloor: sc.Config.Badges.QualityRatingFloor,
	})
	if err != nil {
		return fmt.Errorf("failed to create repository collection: %w", err)
	}
	sc.Repositories = repos
	return nil
}

func (sc *ServiceCollection) initializeServices() error {
	evaluator := NewEvaluator(EvaluatorConfig{
		DefaultMinRatioVotes: sc.Config.Badges.MinRatioVotes,
	})

	sc.MetricsService = NewMetricsService(
		sc.Repositories.Badge,
		sc.Repositories.Stats,
		sc.Logger,
	)

	sc.BadgeService = NewBadgeService(
		sc.Repositories.Badge,
		sc.Repositories.Award,
		sc.Repositories.Pin,
		sc.Repositories.User,
		sc.MetricsService,
		evaluator,
		sc.Cache,
		sc.Logger,
		&BadgeServiceConfig{
			ProgressTTL: sc.Config.Badges.ProgressTTL,
			PinLimit:    sc.Config.Badges.PinLimit,
		},
	)

	sc.DispatcherService = NewDispatcherService(
		sc.Repositories.Badge,
		sc.Repositories.Award,
		sc.MetricsService,
		evaluator,
		sc.BadgeService,
		sc.Logger,
	)

	sc.BackfillService = NewBackfillService(
		sc.Repositories.User,
		sc.DispatcherService,
		sc.Logger,
		&BackfillConfig{PageSize: sc.Config.Badges.BackfillPageSize},
	)

	return nil
}

// Start warms the catalog snapshot, wires the dispatcher to the event
// bus and launches the bus workers.
func (sc *ServiceCollection) Start(ctx context.Context) error {
	if err := sc.Repositories.Badge.Reload(ctx); err != nil {
		return fmt.Errorf("failed to load badge catalog: %w", err)
	}
	if err := sc.DispatcherService.Register(sc.EventBus); err != nil {
		return fmt.Errorf("failed to register badge dispatcher: %w", err)
	}
	return sc.EventBus.Start(ctx)
}

// Shutdown stops the event bus and closes the cache.
func (sc *ServiceCollection) Shutdown(ctx context.Context) error {
	var firstErr error

	if err := sc.EventBus.Stop(ctx); err != nil {
		firstErr = err
	}
	if err := sc.Cache.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	sc.Logger.Info("Service collection shut down",
		zap.Duration("uptime", time.Since(sc.startTime)),
	)
	return firstErr
}

// Health reports the state of every backing dependency.
func (sc *ServiceCollection) Health(ctx context.Context) map[string]string {
	status := make(map[string]string)

	if err := sc.DBManager.Health(ctx); err != nil {
		status["database"] = err.Error()
	} else {
		status["database"] = "healthy"
	}
	if err := sc.Cache.Health(ctx); err != nil {
		status["cache"] = err.Error()
	} else {
		status["cache"] = "healthy"
	}
	if err := sc.EventBus.Health(); err != nil {
		status["event_bus"] = err.Error()
	} else {
		status["event_bus"] = "healthy"
	}
	return status
}
