// Package bootstrap wires the database and cache the server runs on.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"murmur/internal/cache"
	"murmur/internal/config"
	"murmur/internal/database"
	"murmur/internal/middleware"
	"murmur/internal/models"
	"murmur/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedPreset names a preset applied when the users table is empty.
	// Ignored in production.
	SeedPreset  string
	PresetsPath string
}

// InitRuntime connects to DB and Redis and optionally seeds an empty database.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := seedEmptyDatabase(ctx, cfg, db, opts); err != nil {
		return nil, nil, fmt.Errorf("failed to seed development data: %w", err)
	}

	return db, r, nil
}

func seedEmptyDatabase(ctx context.Context, cfg *config.Config, db *gorm.DB, opts Options) error {
	name := strings.TrimSpace(opts.SeedPreset)
	if name == "" || cfg.IsProduction() {
		return nil
	}

	var users int64
	if err := db.WithContext(ctx).Model(&models.User{}).Count(&users).Error; err != nil {
		return err
	}
	if users > 0 {
		middleware.Logger.Info("skipping seed, database already has users", slog.Int64("users", users))
		return nil
	}

	path := opts.PresetsPath
	if path == "" {
		path = seed.DefaultPresetsPath
	}
	presets, err := seed.LoadPresets(path)
	if err != nil {
		return err
	}
	preset, err := seed.Lookup(presets, name)
	if err != nil {
		return err
	}
	_, err = seed.NewSeeder(db, seed.Options{}).Apply(ctx, preset)
	return err
}
