package db

import (
	"context"
	"time"

	"github.com/geraldco/bnpl-decision-gateway/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormprometheus "gorm.io/plugin/prometheus"
)

// New opens the GORM connection, applies pool settings, and (outside of
// sqlite, which has no network pool to instrument) registers the
// gorm.io/plugin/prometheus exporter for connection and query metrics.
func New(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*gorm.DB, error) {
	dialector, err := Dialect(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewGormLogger(log, DefaultGormLoggerConfig()),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConn)
	sqlDB.SetMaxOpenConns(cfg.DB.MaxOpenConn)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.DB.ConnMaxLifetime) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.DB.ConnMaxIdleTime) * time.Second)

	if cfg.DB.Type == "postgres" {
		if err := conn.Use(gormprometheus.New(gormprometheus.Config{
			DBName:          cfg.DB.Name,
			RefreshInterval: 15,
		})); err != nil {
			log.Warn("gorm prometheus plugin disabled", zap.Error(err))
		}
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return sqlDB.Close()
		},
	})

	return conn, nil
}

// Module wires the shared *gorm.DB connection into the fx graph.
var Module = fx.Module("db",
	fx.Provide(New),
)
