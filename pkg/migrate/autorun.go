package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/recruitment-backend/pkg/config"
	"github.com/angelmondragon/recruitment-backend/pkg/db"
	"github.com/angelmondragon/recruitment-backend/pkg/logger"
)

// MaybeRunDev applies the embedded migrations on startup, but only in the
// dev environment with RECRUITMENT_AUTO_MIGRATE set.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("auto-migrate: sql handle: %w", err)
	}
	runner, err := NewRunner(sqlDB, nil)
	if err != nil {
		return err
	}

	applied, err := runner.Up(ctx)
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "applied": len(applied)})
	if err != nil {
		return err
	}
	logg.Info(ctx, "migrate.auto_applied")
	return nil
}
