package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"strings"

	"murmur/internal/config"
	"murmur/internal/middleware"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const migrationDir = "migrations"

func init() {
	goose.SetBaseFS(migrationFS)
	goose.SetTableName("goose_db_version")
}

// Schema modes accepted in DB_SCHEMA_MODE.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// Migration is a pending SQL migration.
type Migration struct {
	Version int64
	Source  string
}

func (m Migration) String() string {
	return fmt.Sprintf("%05d %s", m.Version, m.Source)
}

// SchemaPlan is the schema work a configuration calls for: goose SQL
// migrations, GORM AutoMigrate plus the toggle indexes, or both.
type SchemaPlan struct {
	Mode        string
	Env         string
	Goose       bool
	AutoMigrate bool

	allowDestructive bool
}

// PlanSchema resolves the plan for cfg. SQLite databases are always
// auto-migrated since the SQL migrations target Postgres. Hybrid mode skips
// AutoMigrate in production-like environments.
func PlanSchema(cfg *config.Config) (SchemaPlan, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode))
	if mode == "" {
		mode = SchemaModeHybrid
	}
	plan := SchemaPlan{Mode: mode, Env: cfg.Env, allowDestructive: cfg.DBAutoMigrateAllowDestruct}

	if cfg.DBDriver == "sqlite" {
		plan.AutoMigrate = true
		return plan, nil
	}

	env := strings.ToLower(strings.TrimSpace(cfg.Env))
	prodLike := env == "production" || env == "prod" || env == "staging" || env == "stage"

	switch mode {
	case SchemaModeSQL:
		plan.Goose = true
	case SchemaModeAuto:
		if prodLike && !cfg.DBAutoMigrateAllowDestruct {
			return SchemaPlan{}, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q without DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		plan.AutoMigrate = true
	case SchemaModeHybrid:
		plan.Goose = true
		plan.AutoMigrate = !prodLike
	default:
		return SchemaPlan{}, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
	}
	return plan, nil
}

// Apply runs the plan against db.
func (p SchemaPlan) Apply(ctx context.Context, db *gorm.DB) error {
	if p.Goose {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}
	if p.AutoMigrate {
		if p.Mode == SchemaModeAuto && p.allowDestructive {
			middleware.Logger.Warn("DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true set for DB_SCHEMA_MODE=auto; review schema diffs before production deployment")
		}
		middleware.Logger.Info("running GORM AutoMigrate", slog.String("mode", p.Mode), slog.String("env", p.Env))
		if err := AutoMigrate(ctx, db); err != nil {
			return err
		}
	}
	return nil
}

// SchemaStatus reports where a database stands against its plan.
type SchemaStatus struct {
	SchemaPlan
	AppliedVersion    int64
	PendingMigrations []Migration
	// MissingIndexes names toggle indexes absent from the database. Without
	// them concurrent toggles may create duplicate live rows.
	MissingIndexes []string
}

// Status inspects db. Goose versions are only read when the plan runs SQL
// migrations.
func (p SchemaPlan) Status(ctx context.Context, db *gorm.DB) (*SchemaStatus, error) {
	status := &SchemaStatus{SchemaPlan: p}
	if p.Goose {
		current, pending, err := MigrationVersion(ctx, db)
		if err != nil {
			return nil, err
		}
		status.AppliedVersion = current
		status.PendingMigrations = pending
	}
	missing, err := MissingActiveUniqueIndexes(ctx, db)
	if err != nil {
		return nil, err
	}
	status.MissingIndexes = missing
	return status, nil
}

func gooseDB(db *gorm.DB) (*sql.DB, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	if dialect := db.Dialector.Name(); dialect != "postgres" {
		return nil, fmt.Errorf("sql migrations target postgres, got %q", dialect)
	}
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	return sqlDB, nil
}

// RunMigrations applies every pending SQL migration.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := gooseDB(db)
	if err != nil {
		return err
	}
	if err := goose.UpContext(ctx, sqlDB, migrationDir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// RollbackMigration migrates down to version, which stays applied.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int64) error {
	sqlDB, err := gooseDB(db)
	if err != nil {
		return err
	}
	if err := goose.DownToContext(ctx, sqlDB, migrationDir, version); err != nil {
		return fmt.Errorf("goose down to %d: %w", version, err)
	}
	return nil
}

// MigrationVersion returns the applied version and the migrations after it.
func MigrationVersion(ctx context.Context, db *gorm.DB) (int64, []Migration, error) {
	sqlDB, err := gooseDB(db)
	if err != nil {
		return 0, nil, err
	}
	current, err := goose.GetDBVersionContext(ctx, sqlDB)
	if err != nil {
		return 0, nil, fmt.Errorf("goose version: %w", err)
	}
	all, err := goose.CollectMigrations(migrationDir, 0, goose.MaxVersion)
	if err != nil {
		return 0, nil, fmt.Errorf("collect migrations: %w", err)
	}
	var pending []Migration
	for _, m := range all {
		if m.Version > current {
			pending = append(pending, Migration{Version: m.Version, Source: m.Source})
		}
	}
	return current, pending, nil
}
