package infra

import (
	"errors"
	"fmt"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	postgres_wrapper "github.com/joripage/fixsim/pkg/infra/postgres"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// IMigrateTool applies the event database schema.
type IMigrateTool interface {
	// Migrate from current version to latest version.
	Migrate(source string, connStr string) error

	// ConnectAndMigrate opens the database with backoff, then migrates it.
	ConnectAndMigrate(cfg *postgres_wrapper.PostgresConfig) (*gorm.DB, error)
}

type migrateTool struct {
	mu sync.Mutex
}

var once sync.Once         // nolint
var singleton IMigrateTool // nolint

// GetMigrateTool get singleton instance for migrate tool
func GetMigrateTool() IMigrateTool { // nolint
	once.Do(func() {
		singleton = &migrateTool{}
	})
	return singleton
}

// Migrate runs migrations one caller at a time. A dirty version is forced
// back one step before migrating up.
func (mt *migrateTool) Migrate(source string, connStr string) error {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	zap.S().Infow("migrating", "source", source)

	mg, err := migrate.New(source, connStr)
	if err != nil {
		return fmt.Errorf("create migration: %w", err)
	}
	defer mg.Close()

	version, dirty, err := mg.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read migration version: %w", err)
	}

	if dirty {
		if err := mg.Force(int(version) - 1); err != nil {
			return fmt.Errorf("force version %d: %w", version-1, err)
		}
	}

	if err := mg.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}

	zap.S().Info("migration done")
	return nil
}

func (mt *migrateTool) ConnectAndMigrate(cfg *postgres_wrapper.PostgresConfig) (*gorm.DB, error) {
	db, err := postgres_wrapper.InitPostgresWithBackoff(cfg)
	if err != nil {
		return nil, err
	}

	source := cfg.MigrationSource
	if source == "" {
		source = DefaultMigrationSource
	}
	if err := mt.Migrate(source, cfg.MigrationConnURL); err != nil {
		_ = postgres_wrapper.Close(db)
		return nil, err
	}
	return db, nil
}

// DefaultMigrationSource is the schema directory relative to the repo root.
const DefaultMigrationSource = "file://migration/sql"
