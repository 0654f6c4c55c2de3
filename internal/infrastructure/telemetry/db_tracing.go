package telemetry

import (
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig configures statement spans
type DBTracingConfig struct {
	Enabled bool
	// LogFullSQL keeps bound values in db.statement. Leave off outside development.
	LogFullSQL      bool
	SlowQueryThresh time.Duration
	DBName          string
}

// DBTracingPlugin creates a span per statement through otelgorm and
// annotates it with rows, table, slow-statement and stale-write details.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a DBTracingPlugin
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	return &DBTracingPlugin{config: cfg, logger: logger}
}

// RegisterOtelGorm installs otelgorm and the annotation callbacks on db.
// It does nothing when tracing is disabled.
func (p *DBTracingPlugin) RegisterOtelGorm(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBName)}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	// The annotation runs before otelgorm ends the span
	cb := db.Callback()
	err := registerHooks([]gormHook{
		{cb.Create().Before("gorm:create"), "db_tracing:before_create", markStatementStart},
		{cb.Query().Before("gorm:query"), "db_tracing:before_query", markStatementStart},
		{cb.Update().Before("gorm:update"), "db_tracing:before_update", markStatementStart},
		{cb.Delete().Before("gorm:delete"), "db_tracing:before_delete", markStatementStart},
		{cb.Row().Before("gorm:row"), "db_tracing:before_row", markStatementStart},
		{cb.Raw().Before("gorm:raw"), "db_tracing:before_raw", markStatementStart},
		{cb.Create().After("gorm:create").Before("otel:after:create"), "db_tracing:after_create", p.annotate},
		{cb.Query().After("gorm:query").Before("otel:after:select"), "db_tracing:after_query", p.annotate},
		{cb.Update().After("gorm:update").Before("otel:after:update"), "db_tracing:after_update", p.annotate},
		{cb.Delete().After("gorm:delete").Before("otel:after:delete"), "db_tracing:after_delete", p.annotate},
		{cb.Row().After("gorm:row").Before("otel:after:row"), "db_tracing:after_row", p.annotate},
		{cb.Raw().After("gorm:raw").Before("otel:after:raw"), "db_tracing:after_raw", p.annotate},
	})
	if err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
	)
	return nil
}

// annotate decorates the active statement span
func (p *DBTracingPlugin) annotate(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.SetAttributes(
		attribute.Int64("db.rows_affected", db.Statement.RowsAffected),
		attribute.String("db.sql.table", statementTable(db)),
	)

	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.RecordError(db.Error)
		span.SetStatus(codes.Error, db.Error.Error())
	}

	if db.Error == nil && db.Statement.RowsAffected == 0 && statementVerb(db.Statement.SQL.String()) == "UPDATE" {
		span.AddEvent("stale_write", trace.WithAttributes(
			attribute.String("db.sql.table", statementTable(db)),
		))
	}

	if elapsed, ok := statementElapsed(db); ok && elapsed > p.config.SlowQueryThresh {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		span.AddEvent("slow_query", trace.WithAttributes(
			attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
		))
	}
}
