package db

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// migrationLockID is the advisory lock key held while migrating.
const migrationLockID = 7462839

// ErrMigrationLocked means another migrator holds the advisory lock.
var ErrMigrationLocked = errors.New("another migrator is currently running")

type migration struct {
	version  string
	filename string
	sql      string
	checksum string
}

// Migrate applies every NNN_description.sql file in dir that is not yet recorded in
// schema_migrations. An applied file whose checksum changed is an error.
func Migrate(ctx context.Context, pool *pgxpool.Pool, dir fs.FS, logger *zap.Logger) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection for lock: %w", err)
	}
	defer conn.Release()

	var locked bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", migrationLockID).Scan(&locked); err != nil {
		return fmt.Errorf("failed to query advisory lock: %w", err)
	}
	if !locked {
		return ErrMigrationLocked
	}
	defer func() {
		_, _ = conn.Exec(context.WithoutCancel(ctx), "SELECT pg_advisory_unlock($1)", migrationLockID)
	}()

	if _, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	checksum TEXT NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	migrations, err := discover(dir)
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if err := apply(ctx, pool, m, logger); err != nil {
			return err
		}
	}
	return nil
}

func discover(dir fs.FS) ([]migration, error) {
	entries, err := fs.ReadDir(dir, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	seen := make(map[string]string)
	var out []migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		name := entry.Name()
		version, _, ok := strings.Cut(name, "_")
		if !ok {
			return nil, fmt.Errorf("invalid migration filename %s: expected NNN_description.sql", name)
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("duplicate migration version %s: %s and %s", version, prev, name)
		}
		seen[version] = name

		body, err := fs.ReadFile(dir, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		sum := sha256.Sum256(body)
		out = append(out, migration{version: version, filename: name, sql: string(body), checksum: hex.EncodeToString(sum[:])})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].filename < out[j].filename })
	return out, nil
}

func apply(ctx context.Context, pool *pgxpool.Pool, m migration, logger *zap.Logger) error {
	var existing string
	err := pool.QueryRow(ctx, "SELECT checksum FROM schema_migrations WHERE version = $1", m.version).Scan(&existing)
	switch {
	case err == nil:
		if existing != m.checksum {
			return fmt.Errorf("checksum mismatch for %s: recorded %s, file %s", m.filename, existing, m.checksum)
		}
		logger.Debug("Migration already applied", zap.String("file", m.filename))
		return nil
	case !errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("failed to query schema_migrations for %s: %w", m.filename, err)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for %s: %w", m.filename, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, m.sql); err != nil {
		return fmt.Errorf("failed to execute migration %s: %w", m.filename, err)
	}
	if _, err := tx.Exec(ctx,
		"INSERT INTO schema_migrations (version, filename, checksum) VALUES ($1, $2, $3)",
		m.version, m.filename, m.checksum,
	); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", m.filename, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", m.filename, err)
	}

	logger.Info("Migration applied", zap.String("file", m.filename))
	return nil
}
