// Command migrate manages the Murmur database schema.
//
//	migrate up              apply pending SQL migrations
//	migrate down <version>  roll back to version
//	migrate auto            run GORM AutoMigrate and the toggle indexes
//	migrate indexes         create missing toggle indexes only
//	migrate status          show the schema plan, pending migrations and missing indexes
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"murmur/internal/config"
	"murmur/internal/database"

	"gorm.io/gorm"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: migrate <up|down <version>|auto|indexes|status>")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	ctx := context.Background()
	switch cmd := strings.ToLower(strings.TrimSpace(flag.Arg(0))); cmd {
	case "up":
		if err := database.RunMigrations(ctx, db); err != nil {
			return err
		}
		log.Println("✅ sql migrations applied")
	case "down":
		if flag.NArg() < 2 {
			return usage()
		}
		version, err := strconv.ParseInt(flag.Arg(1), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", flag.Arg(1), err)
		}
		if err := database.RollbackMigration(ctx, db, version); err != nil {
			return err
		}
		log.Printf("⏪ rolled back to migration %d", version)
	case "auto":
		cfg.DBSchemaMode = database.SchemaModeAuto
		plan, err := database.PlanSchema(cfg)
		if err != nil {
			return err
		}
		if err := plan.Apply(ctx, db); err != nil {
			return err
		}
		log.Println("✅ automigrations applied")
	case "indexes":
		if err := database.EnsureActiveUniqueIndexes(ctx, db); err != nil {
			return err
		}
		log.Printf("✅ %d toggle indexes present", len(database.ActiveUniqueIndexes()))
	case "status":
		return printStatus(ctx, db, cfg)
	default:
		return usage()
	}
	return nil
}

func printStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := database.PlanSchema(cfg)
	if err != nil {
		return err
	}
	status, err := plan.Status(ctx, db)
	if err != nil {
		return err
	}

	log.Printf("mode=%s env=%s goose=%t automigrate=%t", status.Mode, status.Env, status.Goose, status.AutoMigrate)
	if status.Goose {
		log.Printf("version=%d pending=%d", status.AppliedVersion, len(status.PendingMigrations))
		for _, m := range status.PendingMigrations {
			log.Printf("  pending %s", m)
		}
	}
	if len(status.MissingIndexes) == 0 {
		log.Println("toggle indexes ok")
		return nil
	}
	for _, name := range status.MissingIndexes {
		log.Printf("  missing index %s", name)
	}
	return fmt.Errorf("%d toggle indexes missing, run `migrate indexes`", len(status.MissingIndexes))
}
