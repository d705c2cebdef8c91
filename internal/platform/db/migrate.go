package db

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

// Migrate applies the pending up migrations of fsys to the database behind
// pool and returns the resulting schema version. An up-to-date schema is not
// an error. Migrations run on their own connection; pool stays open.
func Migrate(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS) (uint, error) {
	src, err := iofs.New(fsys, ".")
	if err != nil {
		return 0, fmt.Errorf("platform/db: migration source: %w", err)
	}

	sqlDB := stdlib.OpenDB(*pool.Config().ConnConfig)
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		_ = src.Close()
		return 0, fmt.Errorf("platform/db: migration connection: %w", err)
	}
	driver, err := pgxmigrate.WithInstance(sqlDB, &pgxmigrate.Config{})
	if err != nil {
		_ = sqlDB.Close()
		_ = src.Close()
		return 0, fmt.Errorf("platform/db: migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		_ = driver.Close()
		_ = src.Close()
		return 0, fmt.Errorf("platform/db: migrator: %w", err)
	}
	defer func() {
		_, _ = m.Close()
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("platform/db: apply migrations: %w", err)
	}
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("platform/db: schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("platform/db: schema version %d is dirty", version)
	}
	return version, nil
}
