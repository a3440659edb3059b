package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"refloor/internal/calculator/store"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ============================================================
// SQLite Repository
// ============================================================

type SQLite struct {
	db *sql.DB
}

func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

// Init применяет миграции.
func (r *SQLite) Init(ctx context.Context) error {
	if err := r.runMigrations(ctx); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}

func (r *SQLite) ForSession(sessionID string) store.Storage {
	return &sqliteSession{db: r.db, session: sessionID}
}

func (r *SQLite) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLite) Close() error {
	return r.db.Close()
}

type sqliteSession struct {
	db      *sql.DB
	session string
}

func (s *sqliteSession) Get(ctx context.Context, key string) ([]byte, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT data
        FROM calculator_state
        WHERE session_id = ? AND state_key = ?
    `, s.session, key)

	var data []byte
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("select state: %w", err)
	}
	return data, nil
}

func (s *sqliteSession) Set(ctx context.Context, key string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO calculator_state (session_id, state_key, data, updated_at)
        VALUES (?, ?, ?, datetime('now'))
        ON CONFLICT (session_id, state_key) DO UPDATE
        SET data = excluded.data, updated_at = excluded.updated_at
    `, s.session, key, data)
	if err != nil {
		return fmt.Errorf("upsert state: %w", err)
	}
	return nil
}

func (s *sqliteSession) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `
        DELETE FROM calculator_state
        WHERE session_id = ? AND state_key = ?
    `, s.session, key)
	if err != nil {
		return fmt.Errorf("delete state: %w", err)
	}
	return nil
}

// ============================================================
// Migrations
// ============================================================

func (r *SQLite) runMigrations(ctx context.Context) error {
	names, err := migrations.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Slice(names, func(i, j int) bool { return names[i].Name() < names[j].Name() })

	for _, entry := range names {
		data, err := migrations.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := r.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// OpenSQLite открывает sqlite по указанному пути. Файл может быть временно
// занят другим процессом, поэтому первое обращение повторяется с backoff.
func OpenSQLite(ctx context.Context, dbPath string, logger *zap.Logger) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 10 * time.Second
	err = backoff.Retry(func() error {
		if err := db.PingContext(ctx); err != nil {
			logger.Warn("sqlite ping failed", zap.String("path", dbPath), zap.Error(err))
			return err
		}
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, 4), ctx))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}
