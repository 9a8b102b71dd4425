package catalog

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion must be bumped whenever schema.sql changes.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was created by a different build.
var ErrSchemaMismatch = errors.New("schema version mismatch")

func (s *Store) initSchema(ctx context.Context) error {
	var tables int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tables)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tables == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset history)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}
