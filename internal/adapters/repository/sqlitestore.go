package repository

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/okian/segscore/internal/domain/model"
	"github.com/okian/segscore/pkg/logger"
	"github.com/okian/segscore/pkg/metrics"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore keeps the history in a SQLite table. Append order is the
// autoincrement sequence.
type SQLiteStore struct {
	db     *sql.DB
	closed atomic.Bool
	settings
}

// NewSQLiteStore opens the database at path and applies pending migrations.
func NewSQLiteStore(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer; sqlite serializes anyway and this avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &SQLiteStore{db: db, settings: newSettings(opts)}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrateUp() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	// Not closing m: that would close the shared *sql.DB.
	m.Log = &migrateLogger{log: s.log}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// Append inserts rec.
func (s *SQLiteStore) Append(ctx context.Context, rec model.Record) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := validateRecord(rec); err != nil {
		return err
	}
	if rec.SubmittedAt.IsZero() {
		rec.SubmittedAt = s.now().UTC()
	}
	perSubject, err := json.Marshal(rec.PerSubject)
	if err != nil {
		return fmt.Errorf("encode per-subject scores: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO submissions (id, name, score, per_subject, submitted_at) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.Score, string(perSubject), rec.SubmittedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		metrics.RecordStoreError("append")
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

// List returns every row in insertion order.
func (s *SQLiteStore) List(ctx context.Context) ([]model.Record, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, score, per_subject, submitted_at FROM submissions ORDER BY seq`)
	if err != nil {
		metrics.RecordStoreError("list")
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	records := []model.Record{}
	for rows.Next() {
		var (
			rec        model.Record
			perSubject string
			at         string
		)
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Score, &perSubject, &at); err != nil {
			metrics.RecordStoreError("list")
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		if perSubject != "" && perSubject != "null" {
			if err := json.Unmarshal([]byte(perSubject), &rec.PerSubject); err != nil {
				return nil, fmt.Errorf("%w: per_subject of %q: %w", ErrCorrupt, rec.ID, err)
			}
		}
		if at != "" {
			t, err := time.Parse(time.RFC3339Nano, at)
			if err != nil {
				return nil, fmt.Errorf("%w: submitted_at of %q: %w", ErrCorrupt, rec.ID, err)
			}
			rec.SubmittedAt = t
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		metrics.RecordStoreError("list")
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return records, nil
}

// Count returns the number of rows.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions`).Scan(&n); err != nil {
		metrics.RecordStoreError("count")
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

// migrateLogger adapts the service logger to migrate.Logger.
type migrateLogger struct {
	log logger.Logger
}

func (l *migrateLogger) Printf(format string, v ...any) {
	l.log.Info(context.Background(), fmt.Sprintf(format, v...))
}

func (l *migrateLogger) Verbose() bool { return false }
