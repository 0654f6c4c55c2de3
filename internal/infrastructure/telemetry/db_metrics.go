package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBMetricsConfig configures database metrics
type DBMetricsConfig struct {
	Enabled            bool
	SlowQueryThreshold time.Duration
	PoolStatsInterval  time.Duration
}

// DefaultDBMetricsConfig returns enabled metrics with a 200ms slow threshold and 15s pool sampling
func DefaultDBMetricsConfig() DBMetricsConfig {
	return DBMetricsConfig{
		Enabled:            true,
		SlowQueryThreshold: 200 * time.Millisecond,
		PoolStatsInterval:  15 * time.Second,
	}
}

// DBMetrics records statement and connection pool metrics. A zero-row UPDATE
// is counted separately: the repositories guard writes with a version check,
// so it marks a stale write that lost an optimistic lock race.
type DBMetrics struct {
	poolConnections    *Gauge
	poolConnectionsMax *Gauge
	queryTotal         *Counter
	queryDuration      *Histogram
	slowQueryTotal     *Counter
	staleWriteTotal    *Counter

	config   DBMetricsConfig
	logger   *zap.Logger
	sqlDB    *sql.DB
	stopCh   chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewDBMetrics creates the instruments on meter. sqlDB may be nil when pool
// stats are not wanted.
func NewDBMetrics(meter metric.Meter, sqlDB *sql.DB, cfg DBMetricsConfig, logger *zap.Logger) (*DBMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultDBMetricsConfig()
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = defaults.SlowQueryThreshold
	}
	if cfg.PoolStatsInterval <= 0 {
		cfg.PoolStatsInterval = defaults.PoolStatsInterval
	}

	m := &DBMetrics{config: cfg, logger: logger, sqlDB: sqlDB, stopCh: make(chan struct{})}

	gauges := []struct {
		target      **Gauge
		name, descr string
	}{
		{&m.poolConnections, "db_pool_connections", "Connections in the pool by state"},
		{&m.poolConnectionsMax, "db_pool_connections_max", "Maximum open connections allowed"},
	}
	for _, g := range gauges {
		gauge, err := NewGauge(meter, g.name, g.descr, "{connection}")
		if err != nil {
			return nil, err
		}
		*g.target = gauge
	}

	counters := []struct {
		target      **Counter
		name, descr string
	}{
		{&m.queryTotal, "db_query_total", "Statements executed by operation"},
		{&m.slowQueryTotal, "db_slow_query_total", "Statements slower than the configured threshold by table"},
		{&m.staleWriteTotal, "db_stale_write_total", "UPDATE statements that matched no row by table"},
	}
	for _, c := range counters {
		counter, err := NewCounter(meter, c.name, c.descr, "{query}")
		if err != nil {
			return nil, err
		}
		*c.target = counter
	}

	var err error
	m.queryDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Statement latency",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// RecordQuery records one completed statement
func (m *DBMetrics) RecordQuery(ctx context.Context, operation, table string, duration time.Duration, rowsAffected int64, err error) {
	if operation == "" {
		operation = "OTHER"
	}
	op := AttrDBOperation.String(operation)
	m.queryTotal.Inc(ctx, op)
	m.queryDuration.RecordDuration(ctx, duration, op)

	if duration > m.config.SlowQueryThreshold {
		m.slowQueryTotal.Inc(ctx, AttrDBTable.String(table))
	}
	if operation == "UPDATE" && err == nil && rowsAffected == 0 {
		m.staleWriteTotal.Inc(ctx, AttrDBTable.String(table))
	}
}

// StartPoolStatsCollection samples the pool immediately and then on every
// interval until Stop is called or ctx is done.
func (m *DBMetrics) StartPoolStatsCollection(ctx context.Context) {
	if m.sqlDB == nil {
		m.logger.Warn("Pool stats collection skipped, no sql.DB")
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.config.PoolStatsInterval)
		defer ticker.Stop()

		m.collectPoolStats(ctx)
		for {
			select {
			case <-ticker.C:
				m.collectPoolStats(ctx)
			case <-m.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (m *DBMetrics) collectPoolStats(ctx context.Context) {
	stats := m.sqlDB.Stats()
	m.poolConnectionsMax.Record(ctx, int64(stats.MaxOpenConnections))
	m.poolConnections.Record(ctx, int64(stats.Idle), AttrDBState.String("idle"))
	m.poolConnections.Record(ctx, int64(stats.InUse), AttrDBState.String("in_use"))
	m.poolConnections.Record(ctx, int64(stats.OpenConnections), AttrDBState.String("open"))
}

// Stop ends pool stats collection. Safe to call more than once.
func (m *DBMetrics) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
		m.wg.Wait()
	})
}

// Name implements gorm.Plugin
func (m *DBMetrics) Name() string {
	return "agrolink:db_metrics"
}

// Initialize implements gorm.Plugin by timing every statement
func (m *DBMetrics) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	return registerHooks([]gormHook{
		{cb.Create().Before("gorm:create"), "db_metrics:before_create", markStatementStart},
		{cb.Query().Before("gorm:query"), "db_metrics:before_query", markStatementStart},
		{cb.Update().Before("gorm:update"), "db_metrics:before_update", markStatementStart},
		{cb.Delete().Before("gorm:delete"), "db_metrics:before_delete", markStatementStart},
		{cb.Row().Before("gorm:row"), "db_metrics:before_row", markStatementStart},
		{cb.Raw().Before("gorm:raw"), "db_metrics:before_raw", markStatementStart},
		{cb.Create().After("gorm:create"), "db_metrics:after_create", m.after("INSERT")},
		{cb.Query().After("gorm:query"), "db_metrics:after_query", m.after("SELECT")},
		{cb.Update().After("gorm:update"), "db_metrics:after_update", m.after("UPDATE")},
		{cb.Delete().After("gorm:delete"), "db_metrics:after_delete", m.after("DELETE")},
		{cb.Row().After("gorm:row"), "db_metrics:after_row", m.after("")},
		{cb.Raw().After("gorm:raw"), "db_metrics:after_raw", m.after("")},
	})
}

func (m *DBMetrics) after(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		elapsed, ok := statementElapsed(db)
		if !ok {
			return
		}
		op := operation
		if op == "" {
			op = statementVerb(db.Statement.SQL.String())
		}
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		err := db.Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = nil
		}
		m.RecordQuery(ctx, op, statementTable(db), elapsed, db.Statement.RowsAffected, err)
	}
}

// RegisterDBMetrics installs the metrics plugin on db. It returns nil without
// error when metrics are disabled. Call Stop on the result at shutdown.
func RegisterDBMetrics(db *gorm.DB, meterProvider *MeterProvider, cfg DBMetricsConfig, logger *zap.Logger) (*DBMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled || !meterProvider.IsEnabled() {
		logger.Debug("Database metrics disabled")
		return nil, nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	m, err := NewDBMetrics(meterProvider.Meter("agrolink.db"), sqlDB, cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := db.Use(m); err != nil {
		return nil, err
	}

	logger.Info("Database metrics registered",
		zap.Duration("slow_query_threshold", m.config.SlowQueryThreshold),
		zap.Duration("pool_stats_interval", m.config.PoolStatsInterval),
	)
	return m, nil
}
