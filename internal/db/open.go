package db

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/terraincognita07/telecare/internal/config"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open builds the database handle for the configured driver, syncs the schema
// and applies embedded migrations. The caller owns the handle and must Close it.
// Child rows are removed by the repositories; no FK constraints are created so
// that deleting a user keeps the sessions and audit rows that reference it.
func Open(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	switch cfg.Driver {
	case "postgres":
		return openPostgres(cfg, log)
	case "sqlite", "":
		return OpenSQLite(cfg.Path, log)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func OpenSQLite(dbPath string, log *zap.Logger) (*gorm.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", dbPath)
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   newGormLogger(log, time.Second),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	sqlDB, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	// SQLite allows one writer; a single connection keeps writes serialized.
	sqlDB.SetMaxOpenConns(1)

	if err := prepareSchema(database); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return database, nil
}

func openPostgres(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	database, err := gorm.Open(postgres.Open(cfg.URL), &gorm.Config{
		Logger:                                   newGormLogger(log, cfg.SlowThreshold),
		PrepareStmt:                              true,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlDB, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := prepareSchema(database); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return database, nil
}

func Close(database *gorm.DB) error {
	sqlDB, err := database.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func prepareSchema(database *gorm.DB) error {
	if err := autoMigrate(database); err != nil {
		return fmt.Errorf("sync schema: %w", err)
	}
	if err := applyEmbeddedMigrations(database); err != nil {
		return fmt.Errorf("apply embedded migrations: %w", err)
	}
	return nil
}

func newGormLogger(log *zap.Logger, slowThreshold time.Duration) gormlogger.Interface {
	if log == nil {
		log = zap.NewNop()
	}
	if slowThreshold <= 0 {
		slowThreshold = time.Second
	}
	return gormlogger.New(
		zap.NewStdLog(log.Named("gorm")),
		gormlogger.Config{
			SlowThreshold:             slowThreshold,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}
