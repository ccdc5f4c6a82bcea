// Package db selects the GORM dialector for the gateway's persistence layer
// and wires connection-pool settings, following the teacher's
// pkg/db/dialect.go selection pattern.
package db

import (
	"fmt"

	"github.com/geraldco/bnpl-decision-gateway/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Dialect returns the GORM dialector for cfg.DB.Type. Postgres is the
// production dialect (§6.6); sqlite backs local development and tests.
func Dialect(cfg config.Config) (gorm.Dialector, error) {
	switch cfg.DB.Type {
	case "postgres":
		if cfg.DB.URL != "" {
			return postgres.Open(cfg.DB.URL), nil
		}
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			cfg.DB.Host,
			cfg.DB.User,
			cfg.DB.Password,
			cfg.DB.Name,
			cfg.DB.Port,
			cfg.DB.SSLMode,
		)
		return postgres.Open(dsn), nil
	case "sqlite":
		name := cfg.DB.Name
		if name == "" {
			name = "gateway.db"
		}
		return sqlite.Open(name), nil
	default:
		return nil, fmt.Errorf("unsupported db type %q", cfg.DB.Type)
	}
}
