package monitoring

import (
	"context"
	"runtime"
	"time"

	"starview/internal/cache"
	"starview/internal/database"
	"starview/internal/events"

	"go.uber.org/zap"
)

// Dashboard aggregates runtime observability data from the engine's
// infrastructure components for the internal status endpoints.
type Dashboard struct {
	db        *database.Manager
	cache     cache.Cache
	eventBus  events.EventBus
	logger    *zap.Logger
	startTime time.Time
	version   string
	env       string
}

// NewDashboard creates a monitoring dashboard.
func NewDashboard(db *database.Manager, cacheService cache.Cache, eventBus events.EventBus, logger *zap.Logger) *Dashboard {
	return &Dashboard{
		db:        db,
		cache:     cacheService,
		eventBus:  eventBus,
		logger:    logger,
		startTime: time.Now(),
		version:   Version(),
		env:       Environment(),
	}
}

// Snapshot is the full status view served at /internal/dashboard.
type Snapshot struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Uptime      string    `json:"uptime"`
	Version     string    `json:"version"`
	Environment string    `json:"environment"`

	Components map[string]ComponentStatus `json:"components"`

	Database *database.MetricsSnapshot `json:"database,omitempty"`
	Cache    *cache.CacheStats         `json:"cache,omitempty"`
	EventBus *events.EventBusStats     `json:"event_bus,omitempty"`
	Runtime  RuntimeStats              `json:"runtime"`
}

// ComponentStatus is one dependency's health verdict.
type ComponentStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// RuntimeStats carries process-level resource readings.
type RuntimeStats struct {
	Goroutines   int    `json:"goroutines"`
	HeapAllocMB  uint64 `json:"heap_alloc_mb"`
	HeapSysMB    uint64 `json:"heap_sys_mb"`
	NumGC        uint32 `json:"num_gc"`
	PauseTotalMS uint64 `json:"gc_pause_total_ms"`
}

// Collect assembles the current status snapshot. Failures to read any
// one component degrade the snapshot instead of failing it.
func (d *Dashboard) Collect(ctx context.Context) *Snapshot {
	snap := &Snapshot{
		Status:      "healthy",
		Timestamp:   time.Now(),
		Uptime:      time.Since(d.startTime).Round(time.Second).String(),
		Version:     d.version,
		Environment: d.env,
		Components:  make(map[string]ComponentStatus),
		Runtime:     collectRuntimeStats(),
	}

	if err := d.db.Health(ctx); err != nil {
		snap.Status = "degraded"
		snap.Components["database"] = ComponentStatus{Status: "unhealthy", Error: err.Error()}
	} else {
		snap.Components["database"] = ComponentStatus{Status: "healthy"}
		snap.Database = d.db.Metrics()
	}

	if err := d.cache.Health(ctx); err != nil {
		snap.Status = "degraded"
		snap.Components["cache"] = ComponentStatus{Status: "unhealthy", Error: err.Error()}
	} else {
		snap.Components["cache"] = ComponentStatus{Status: "healthy"}
		if stats, err := d.cache.Stats(ctx); err == nil {
			snap.Cache = stats
		} else {
			d.logger.Warn("Failed to read cache stats", zap.Error(err))
		}
	}

	if err := d.eventBus.Health(); err != nil {
		snap.Status = "degraded"
		snap.Components["event_bus"] = ComponentStatus{Status: "unhealthy", Error: err.Error()}
	} else {
		snap.Components["event_bus"] = ComponentStatus{Status: "healthy"}
		snap.EventBus = d.eventBus.Stats()
	}

	return snap
}

func collectRuntimeStats() RuntimeStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return RuntimeStats{
		Goroutines:   runtime.NumGoroutine(),
		HeapAllocMB:  mem.HeapAlloc / 1024 / 1024,
		HeapSysMB:    mem.HeapSys / 1024 / 1024,
		NumGC:        mem.NumGC,
		PauseTotalMS: mem.PauseTotalNs / uint64(time.Millisecond),
	}
}
