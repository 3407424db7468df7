package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// Keys under which the session pair is persisted.
const (
	KeySessionToken = "session_token"
	KeyUserRole     = "user_role"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore persists client state in a local SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
			return nil, fmt.Errorf("create state directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	// WAL lets a second logshack process read while another writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// Open opens the store at dbPath and applies migrations.
func Open(ctx context.Context, dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	st, err := NewSQLiteStore(dbPath, logger)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate applies the embedded goose migrations.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")

	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, s.db, fsys)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	for _, r := range results {
		s.logger.Debug("sql", "op", "migrated", "version", r.Source.Version, "duration", r.Duration)
	}
	return nil
}

// Load returns the persisted session token and role. Missing keys come back
// as empty strings; the caller decides whether the pair is usable.
func (s *SQLiteStore) Load(ctx context.Context) (token, role string, err error) {
	s.logger.Debug("sql", "op", "select", "table", "client_state")

	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM client_state WHERE key IN (?, ?)`,
		KeySessionToken, KeyUserRole,
	)
	if err != nil {
		return "", "", fmt.Errorf("load session: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return "", "", fmt.Errorf("scan session: %w", err)
		}
		switch k {
		case KeySessionToken:
			token = v
		case KeyUserRole:
			role = v
		}
	}
	if err := rows.Err(); err != nil {
		return "", "", fmt.Errorf("load session: %w", err)
	}
	return token, role, nil
}

// Save writes the token and role in a single transaction.
func (s *SQLiteStore) Save(ctx context.Context, token, role string) error {
	s.logger.Debug("sql", "op", "upsert", "table", "client_state")

	return s.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC().Format(time.RFC3339Nano)
		for _, kv := range [][2]string{{KeySessionToken, token}, {KeyUserRole, role}} {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO client_state (key, value, updated_at) VALUES (?, ?, ?)
				 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
				kv[0], kv[1], now,
			); err != nil {
				return fmt.Errorf("save %s: %w", kv[0], err)
			}
		}
		return nil
	})
}

// Clear deletes both session keys in a single transaction. Idempotent.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	s.logger.Debug("sql", "op", "delete", "table", "client_state")

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM client_state WHERE key IN (?, ?)`,
			KeySessionToken, KeyUserRole,
		)
		return err
	})
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
