package repositories

import (
	"fmt"

	"starview/internal/database"

	"go.uber.org/zap"
)

// Collection holds all repository instances for dependency injection.
type Collection struct {
	User  UserRepository
	Badge BadgeRepository
	Award AwardRepository
	Pin   PinRepository
	Stats StatsRepository

	db     *database.Manager
	logger *zap.Logger
}

// CollectionConfig holds tunables the repositories need at build time.
type CollectionConfig struct {
	QualityRatingFloor float64
}

// NewCollection creates a repository collection with all dependencies.
func NewCollection(db *database.Manager, logger *zap.Logger, config *CollectionConfig) (*Collection, error) {
	if db == nil {
		return nil, fmt.Errorf("database manager is required")
	}
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	if config == nil {
		config = &CollectionConfig{QualityRatingFloor: 4.0}
	}

	return &Collection{
		User:   NewUserRepository(db, logger),
		Badge:  NewBadgeRepository(db, logger),
		Award:  NewAwardRepository(db, logger),
		Pin:    NewPinRepository(db, logger),
		Stats:  NewStatsRepository(db, logger, config.QualityRatingFloor),
		db:     db,
		logger: logger,
	}, nil
}

// DB returns the underlying database manager.
func (c *Collection) DB() *database.Manager {
	return c.db
}
