package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/tradeledger/pkg/config"
	"github.com/angelmondragon/tradeledger/pkg/db"
	"github.com/angelmondragon/tradeledger/pkg/logger"
)

type devMode int

const (
	devModeOff devMode = iota
	devModeSQLite
	devModeGoose
)

func (m devMode) String() string {
	switch m {
	case devModeSQLite:
		return "sqlite_schema"
	case devModeGoose:
		return "goose_up"
	default:
		return "off"
	}
}

// devModeFor decides how a binary prepares its schema on boot. Only dev
// deployments with auto-migrate enabled touch the schema at all.
func devModeFor(cfg *config.Config) devMode {
	if cfg == nil || !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return devModeOff
	}
	if cfg.DB.Driver == config.DriverSQLite {
		return devModeSQLite
	}
	return devModeGoose
}

// MaybeRunDev brings the schema up to date on boot in dev. Postgres goes
// through goose; sqlite gets the mirrored schema.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	mode := devModeFor(cfg)
	if mode == devModeOff {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	ctx = logg.WithFields(ctx, map[string]any{
		"env":    cfg.App.Env,
		"driver": cfg.DB.Driver,
		"mode":   mode.String(),
	})
	logg.Info(ctx, "migrate.dev_autorun_started")

	switch mode {
	case devModeSQLite:
		err = ApplySQLiteSchema(ctx, sqlDB)
	default:
		err = Run(ctx, sqlDB, DefaultDir, CommandUp)
	}
	if err != nil {
		return fmt.Errorf("dev auto-run (%s): %w", mode, err)
	}

	logg.Info(ctx, "migrate.dev_autorun_completed")
	return nil
}
