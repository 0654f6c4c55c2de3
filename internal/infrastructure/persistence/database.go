package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/agrolink/backend/internal/infrastructure/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database owns the GORM handle shared by the order repositories
type Database struct {
	DB *gorm.DB
}

// Option customises Open
type Option func(*openOptions)

type openOptions struct {
	gormLogger  logger.Interface
	dialector   gorm.Dialector
	pingTimeout time.Duration
}

// WithGormLogger sets the GORM logger, typically the zap adapter from the logger package
func WithGormLogger(l logger.Interface) Option {
	return func(o *openOptions) { o.gormLogger = l }
}

// WithDialector replaces the postgres dialector built from the DSN
func WithDialector(d gorm.Dialector) Option {
	return func(o *openOptions) { o.dialector = d }
}

// WithPingTimeout bounds the connectivity check made by Open
func WithPingTimeout(d time.Duration) Option {
	return func(o *openOptions) { o.pingTimeout = d }
}

// Open connects to PostgreSQL, applies the pool limits from cfg and verifies
// the connection before returning.
func Open(ctx context.Context, cfg *config.DatabaseConfig, opts ...Option) (*Database, error) {
	o := openOptions{
		gormLogger:  logger.Default.LogMode(logger.Silent),
		pingTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.dialector == nil {
		o.dialector = postgres.Open(cfg.DSN())
	}

	db, err := gorm.Open(o.dialector, &gorm.Config{
		Logger: o.gormLogger,
		// repositories open their own transactions around version-guarded writes
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)
	}

	d := &Database{DB: db}
	pingCtx, cancel := context.WithTimeout(ctx, o.pingTimeout)
	defer cancel()
	if err := d.Ping(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return d, nil
}

// Ping checks that the database answers
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

// Close releases every pooled connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// PoolSnapshot is the subset of pool statistics reported by the readiness probe
type PoolSnapshot struct {
	Open      int   `json:"open"`
	InUse     int   `json:"in_use"`
	Idle      int   `json:"idle"`
	MaxOpen   int   `json:"max_open"`
	WaitCount int64 `json:"wait_count"`
}

// Pool returns current connection pool statistics
func (d *Database) Pool() (PoolSnapshot, error) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return PoolSnapshot{}, fmt.Errorf("get sql.DB: %w", err)
	}
	s := sqlDB.Stats()
	return PoolSnapshot{
		Open:      s.OpenConnections,
		InUse:     s.InUse,
		Idle:      s.Idle,
		MaxOpen:   s.MaxOpenConnections,
		WaitCount: s.WaitCount,
	}, nil
}
