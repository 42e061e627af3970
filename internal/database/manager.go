package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"starview/internal/config"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Manager owns the database connection pool and wraps query execution
// with slow-query logging and basic counters.
type Manager struct {
	db          *sql.DB
	logger      *zap.Logger
	metrics     *Metrics
	config      *config.DatabaseConfig
	stopMonitor chan struct{}
	monitorOnce sync.Once
	mu          sync.RWMutex
}

// NewManager opens a connection pool and verifies connectivity,
// retrying with exponential backoff while the database comes up.
func NewManager(cfg *config.DatabaseConfig, logger *zap.Logger) (*Manager, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	configureConnectionPool(db, cfg)

	connect := backoff.NewExponentialBackOff()
	connect.MaxElapsedTime = 30 * time.Second

	err = backoff.RetryNotify(
		func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return db.PingContext(ctx)
		},
		connect,
		func(err error, wait time.Duration) {
			logger.Warn("Database not ready, retrying",
				zap.Error(err),
				zap.Duration("wait", wait),
			)
		},
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	manager := &Manager{
		db:          db,
		logger:      logger,
		config:      cfg,
		stopMonitor: make(chan struct{}),
	}
	manager.metrics = NewMetrics(logger)

	if cfg.HealthCheckInterval > 0 {
		go manager.monitorHealth(cfg.HealthCheckInterval)
	}

	logger.Info("Database manager initialized",
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns),
		zap.Duration("conn_max_lifetime", cfg.ConnMaxLifetime),
	)

	return manager, nil
}

func configureConnectionPool(db *sql.DB, cfg *config.DatabaseConfig) {
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
}

// monitorHealth pings the pool on the configured interval so connectivity
// loss is logged as it happens, not when the next query fails.
func (m *Manager) monitorHealth(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopMonitor:
			return
		case <-ticker.C:
			if err := m.Health(context.Background()); err != nil {
				m.logger.Warn("Periodic database health check failed",
					zap.Error(err),
					zap.Int("open_conns", m.db.Stats().OpenConnections),
				)
			}
		}
	}
}

// DB returns the underlying database connection.
func (m *Manager) DB() *sql.DB {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.db
}

// Migrate runs pending migrations on a separate connection so that
// closing the migrator never tears down the main pool.
func (m *Manager) Migrate(migrationsPath string) error {
	migrationDB, err := sql.Open("postgres", m.config.URL)
	if err != nil {
		return fmt.Errorf("failed to create migration connection: %w", err)
	}
	defer migrationDB.Close()

	if err := migrationDB.Ping(); err != nil {
		return fmt.Errorf("migration connection failed: %w", err)
	}

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer migrator.Close()

	currentVersion, dirty, err := migrator.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	if dirty {
		m.logger.Warn("Database is in dirty state", zap.Uint("version", currentVersion))
		return fmt.Errorf("database is in dirty state at version %d", currentVersion)
	}

	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	newVersion, _, err := migrator.Version()
	if err != nil {
		return fmt.Errorf("failed to get new migration version: %w", err)
	}

	m.logger.Info("Migrations completed",
		zap.Uint("from_version", currentVersion),
		zap.Uint("to_version", newVersion),
	)
	return nil
}

// ExecContext executes a statement, recording duration and slow queries.
func (m *Manager) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	start := time.Now()
	result, err := m.db.ExecContext(ctx, query, args...)
	m.observe("exec", query, time.Since(start), m.config.SlowQueryThreshold, err)
	return result, err
}

// QueryContext executes a query, recording duration and slow queries.
func (m *Manager) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	start := time.Now()
	rows, err := m.db.QueryContext(ctx, query, args...)
	m.observe("query", query, time.Since(start), m.config.SlowQueryThreshold, err)
	return rows, err
}

// QueryRowContext executes a single-row query with slow-query logging.
func (m *Manager) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	start := time.Now()
	row := m.db.QueryRowContext(ctx, query, args...)
	// Single-row lookups are held to half the threshold.
	m.observe("query_row", query, time.Since(start), m.config.SlowQueryThreshold/2, nil)
	return row
}

// BeginTx starts a new transaction with context.
func (m *Manager) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	start := time.Now()
	tx, err := m.db.BeginTx(ctx, opts)
	m.metrics.RecordQuery("begin_tx", time.Since(start), err)
	if err != nil {
		m.logger.Error("Failed to begin transaction", zap.Error(err))
	}
	return tx, err
}

func (m *Manager) observe(kind, query string, duration, slowThreshold time.Duration, err error) {
	m.metrics.RecordQuery(kind, duration, err)

	if err != nil {
		m.logger.Error("Query execution failed",
			zap.Error(err),
			zap.String("query", truncateQuery(query)),
		)
		return
	}
	if duration > slowThreshold {
		m.logger.Warn("Slow query detected",
			zap.String("type", kind),
			zap.Duration("duration", duration),
			zap.String("query", truncateQuery(query)),
		)
	}
}

// Health pings the database with a short timeout.
func (m *Manager) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return m.db.PingContext(ctx)
}

// Metrics returns a snapshot of query counters.
func (m *Manager) Metrics() *MetricsSnapshot {
	return m.metrics.Snapshot()
}

// Stats returns connection pool statistics.
func (m *Manager) Stats() sql.DBStats {
	return m.db.Stats()
}

// Close stops the health monitor and closes the connection pool.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.monitorOnce.Do(func() { close(m.stopMonitor) })
	if m.db != nil {
		m.logger.Info("Closing database connection")
		return m.db.Close()
	}
	return nil
}

func truncateQuery(query string) string {
	const maxLength = 200
	if len(query) <= maxLength {
		return query
	}
	return query[:maxLength] + "..."
}
