// Package repository persists submission records and derives the leaderboard.
package repository

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/okian/segscore/internal/domain/model"
	"github.com/okian/segscore/internal/domain/types"
)

// Backend names accepted by Open.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Store is the append-only submission history.
type Store interface {
	// Append adds rec to the end of the history.
	Append(ctx context.Context, rec model.Record) error
	// List returns every record in append order. An empty store yields an
	// empty slice, not an error.
	List(ctx context.Context) ([]model.Record, error)
	// Count returns the number of records.
	Count(ctx context.Context) (int, error)
	// Close releases resources held by the store.
	Close() error
}

// Open builds the store for backend at path.
func Open(ctx context.Context, backend, path string, opts ...Option) (Store, error) {
	switch strings.ToLower(backend) {
	case BackendJSON:
		return NewJSONFileStore(path, opts...)
	case BackendSQLite:
		return NewSQLiteStore(ctx, path, opts...)
	case BackendMemory:
		return NewMemoryStore(opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStore, backend)
	}
}

func validateRecord(rec model.Record) error {
	if math.IsNaN(rec.Score) || math.IsInf(rec.Score, 0) {
		return fmt.Errorf("%w: score %v", ErrInvalidRecord, rec.Score)
	}
	return nil
}

// Rank reduces the history to each name's best score, ordered by score
// descending. Equal scores keep the order in which their names first appeared.
// Records with an empty name are skipped.
func Rank(records []model.Record) []types.Entry {
	best := make(map[string]int, len(records))
	entries := make([]types.Entry, 0, len(records))
	for _, rec := range records {
		if rec.Name == "" {
			continue
		}
		i, ok := best[rec.Name]
		if !ok {
			best[rec.Name] = len(entries)
			entries = append(entries, types.Entry{Name: rec.Name, Score: rec.Score})
			continue
		}
		if rec.Score > entries[i].Score {
			entries[i].Score = rec.Score
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	assignRanksWithTies(entries)
	return entries
}

// assignRanksWithTies gives equal scores the same rank; the next distinct
// score takes the following rank.
func assignRanksWithTies(entries []types.Entry) {
	rank := 0
	for i := range entries {
		if i == 0 || entries[i].Score != entries[i-1].Score {
			rank++
		}
		entries[i].Rank = rank
	}
}

// Podium splits a ranking into the first size entries and the rest.
func Podium(entries []types.Entry, size int) types.Podium {
	if size < 0 {
		size = 0
	}
	if size > len(entries) {
		size = len(entries)
	}
	p := types.Podium{
		Top:    make([]types.Entry, size),
		Others: make([]types.Entry, len(entries)-size),
	}
	copy(p.Top, entries[:size])
	copy(p.Others, entries[size:])
	return p
}
