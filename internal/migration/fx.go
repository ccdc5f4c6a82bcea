package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/geraldco/bnpl-decision-gateway/internal/config"
)

// Module applies the embedded schema migrations at start-up before the HTTP
// server begins accepting traffic.
var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB, cfg.DB.Type)
	}),
)
