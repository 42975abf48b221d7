package repository

import (
	"context"
	"maps"
	"sync"

	"github.com/okian/segscore/internal/domain/model"
)

// MemoryStore keeps the history in process memory. Nothing survives a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records []model.Record
	closed  bool
	settings
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{records: []model.Record{}, settings: newSettings(opts)}
}

// Append adds a copy of rec.
func (s *MemoryStore) Append(ctx context.Context, rec model.Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.SubmittedAt.IsZero() {
		rec.SubmittedAt = s.now().UTC()
	}
	rec.PerSubject = maps.Clone(rec.PerSubject)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.records = append(s.records, rec)
	return nil
}

// List returns a snapshot of the history.
func (s *MemoryStore) List(ctx context.Context) ([]model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	out := make([]model.Record, len(s.records))
	copy(out, s.records)
	return out, nil
}

// Count returns the number of records.
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrClosed
	}
	return len(s.records), nil
}

// Close drops the history.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.records = nil
	return nil
}
