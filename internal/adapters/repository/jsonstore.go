package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/okian/segscore/internal/domain/model"
	"github.com/okian/segscore/pkg/logger"
	"github.com/okian/segscore/pkg/metrics"
)

// JSONFileStore keeps the whole history as one JSON array on disk. Every
// Append rewrites the file through a temp file and rename.
type JSONFileStore struct {
	mu     sync.Mutex
	path   string
	closed bool
	settings
}

// NewJSONFileStore opens the file at path, creating it as an empty list when
// absent. An existing file is not read until the first List or Append.
func NewJSONFileStore(path string, opts ...Option) (*JSONFileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidRecord)
	}
	s := &JSONFileStore{path: path, settings: newSettings(opts)}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create leaderboard dir: %w", err)
		}
		if err := s.write(nil); err != nil {
			return nil, err
		}
		s.log.Info(context.Background(), "initialized empty leaderboard", logger.String("path", path))
	} else if err != nil {
		return nil, fmt.Errorf("stat leaderboard: %w", err)
	}
	return s, nil
}

// Append reads the full list, adds rec and writes it back.
func (s *JSONFileStore) Append(ctx context.Context, rec model.Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	if rec.SubmittedAt.IsZero() {
		rec.SubmittedAt = s.now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	records, err := s.read()
	if err != nil {
		metrics.RecordStoreError("append")
		return err
	}
	if err := s.write(append(records, rec)); err != nil {
		metrics.RecordStoreError("append")
		return err
	}
	return nil
}

// List returns the persisted history.
func (s *JSONFileStore) List(ctx context.Context) ([]model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	records, err := s.read()
	if err != nil {
		metrics.RecordStoreError("list")
		return nil, err
	}
	return records, nil
}

// Count returns the number of persisted records.
func (s *JSONFileStore) Count(ctx context.Context) (int, error) {
	records, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// Close marks the store closed. The file is left in place.
func (s *JSONFileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Path returns the backing file location.
func (s *JSONFileStore) Path() string { return s.path }

// read must be called with s.mu held. A missing file is an empty list;
// anything that is not a JSON array of records is corrupt.
func (s *JSONFileStore) read() ([]model.Record, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []model.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read leaderboard: %w", err)
	}

	records := []model.Record{}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, s.path, err)
	}
	if records == nil {
		// literal null
		return nil, fmt.Errorf("%w: %s: not a list", ErrCorrupt, s.path)
	}
	return records, nil
}

// write must be called with s.mu held.
func (s *JSONFileStore) write(records []model.Record) error {
	if records == nil {
		records = []model.Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode leaderboard: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("create leaderboard temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write leaderboard: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync leaderboard: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close leaderboard temp file: %w", err)
	}
	if err := os.Chmod(tmpName, s.fileMode); err != nil {
		return fmt.Errorf("chmod leaderboard: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace leaderboard: %w", err)
	}
	return nil
}
