package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"podfed/internal/config"
	"podfed/internal/core"
)

type DB struct {
	db     *gorm.DB
	Config *config.Config
}

// NewDB wraps an already opened connection.
func NewDB(db *gorm.DB) *DB {
	return &DB{db: db}
}

// Open opens a gorm connection with query logging disabled.
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return db, nil
}

func (db *DB) Model(a any) *gorm.DB {
	return db.db.Model(a)
}

func (db *DB) Init(_ context.Context) error {
	if db.Config.DatabaseURL == "" {
		return ErrNoDatabaseURL
	}

	gormDB, err := Open(postgres.Open(db.Config.DatabaseURL))
	if err != nil {
		return err
	}

	db.db = gormDB

	return nil
}

func (db *DB) HealthCheck(ctx context.Context) error {
	sqlDB, err := db.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (db *DB) DB() (*sql.DB, error) {
	return db.db.DB()
}

func (db *DB) Shutdown(_ context.Context) error {
	sqlDB, err := db.db.DB()
	if err != nil {
		return nil
	}
	return sqlDB.Close()
}

// Wrap classifies a gorm error: a missing record becomes core.ErrNotFound,
// anything else is an ErrStorage.
func Wrap(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return core.ErrNotFound
	default:
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
}
