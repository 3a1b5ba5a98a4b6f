// Package database opens the gorm connection backing the service
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/Aidin1998/visitante_sonoro/internal/config"
	"github.com/Aidin1998/visitante_sonoro/pkg/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	}
}

// Open connects to the driver named in cfg
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Driver {
	case "postgres":
		return NewPostgresDB(cfg.DSN, cfg.MaxOpenConns, cfg.MaxIdleConns, cfg.ConnMaxLifetime)
	case "sqlite":
		return NewSQLiteDB(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Manager owns the connection for the lifetime of the process
type Manager struct {
	db     *gorm.DB
	name   string
	logger *zap.Logger
}

func NewManager(db *gorm.DB, name string, logger *zap.Logger) *Manager {
	return &Manager{db: db, name: name, logger: logger}
}

func (m *Manager) DB() *gorm.DB {
	return m.db
}

// Migrate creates or updates the tables for models
func (m *Manager) Migrate(models ...interface{}) error {
	return m.db.AutoMigrate(models...)
}

func (m *Manager) Ping(ctx context.Context) error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (m *Manager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CollectStats publishes pool gauges every interval until ctx is done
func (m *Manager) CollectStats(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.RecordStats()
		}
	}
}

// RecordStats publishes the current pool gauges once
func (m *Manager) RecordStats() {
	sqlDB, err := m.db.DB()
	if err != nil {
		m.logger.Warn("Failed to read pool stats", zap.Error(err))
		return
	}
	stats := sqlDB.Stats()
	metrics.DBOpenConns.WithLabelValues(m.name).Set(float64(stats.OpenConnections))
	metrics.DBIdleConns.WithLabelValues(m.name).Set(float64(stats.Idle))
	metrics.DBInUseConns.WithLabelValues(m.name).Set(float64(stats.InUse))
}
