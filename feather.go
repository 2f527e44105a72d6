package feather

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/featherdb/feather/store"
)

// SearchResult represents a search result.
type SearchResult struct {
	// ID is the identifier of the matched entry.
	ID uint64

	// Distance is the squared L2 distance between the query vector and
	// the matched entry's vector.
	Distance float32
}

// DB is a handle on a persistent vector index bound to a file path.
//
// The handle exclusively owns its in-memory store. It has no internal
// locking: one writer at a time, and no Add/Save concurrent with any other
// operation on the same handle. Concurrent Search calls on a quiescent
// handle are safe. Two handles opened on the same path are not coordinated;
// the last Save wins.
type DB struct {
	path    string
	store   *store.Store
	metrics MetricsCollector
	logger  *Logger
	closed  bool
}

// Open creates or loads an index at path.
//
// If a file exists at path it is loaded; a nonzero WithDimension hint must
// match the file's stored dimension or Open fails with ErrDimensionMismatch.
// If no file exists, an empty index is created with the hinted dimension;
// with no hint this fails with ErrInvalidDimension. Opening never writes
// the file: a freshly created index exists on disk only after Save.
func Open(path string, optFns ...Option) (*DB, error) {
	o := applyOptions(optFns)

	if o.dimension < 0 {
		return nil, &ErrInvalidDimension{Dimension: o.dimension}
	}

	var s *store.Store

	_, statErr := os.Stat(path)
	switch {
	case statErr == nil:
		loaded, err := store.LoadFromFile(path, store.Options{Dimension: o.dimension})
		if err != nil {
			err = translateError(err)
			o.logger.LogOpen(context.Background(), path, o.dimension, 0, err)
			return nil, err
		}
		s = loaded
	case errors.Is(statErr, fs.ErrNotExist):
		if o.dimension == 0 {
			return nil, &ErrInvalidDimension{Dimension: 0}
		}
		created, err := store.New(o.dimension)
		if err != nil {
			return nil, translateError(err)
		}
		s = created
	default:
		return nil, fmt.Errorf("%w: %w", ErrIO, statErr)
	}

	db := &DB{
		path:    path,
		store:   s,
		metrics: o.metricsCollector,
		logger:  o.logger,
	}

	db.logger.LogOpen(context.Background(), path, s.Dimension(), s.Len(), nil)

	return db, nil
}

// Path returns the file path the index persists to.
func (db *DB) Path() string {
	return db.path
}

// Dimension returns the fixed vector dimensionality of the index.
// It returns 0 on a closed handle.
func (db *DB) Dimension() int {
	if db.closed {
		return 0
	}
	return db.store.Dimension()
}

// Count returns the number of stored entries.
// It returns 0 on a closed handle.
func (db *DB) Count() int {
	if db.closed {
		return 0
	}
	return db.store.Len()
}

// Add appends an entry to the in-memory index. It does not touch the file:
// the entry becomes durable on the next Save and is silently discarded by a
// Close without one.
func (db *DB) Add(ctx context.Context, id uint64, v []float32) error {
	start := time.Now()

	err := db.add(ctx, id, v)

	db.metrics.RecordAdd(time.Since(start), err)
	db.logger.LogAdd(ctx, id, len(v), err)

	return err
}

func (db *DB) add(ctx context.Context, id uint64, v []float32) error {
	if db.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return translateError(db.store.Insert(id, v))
}

// Search returns the k stored entries nearest to q, ascending by squared L2
// distance; entries with equal distance rank by earlier insertion. It never
// mutates the index. The result holds min(k, Count()) entries; k == 0
// yields an empty result.
func (db *DB) Search(ctx context.Context, q []float32, k int) ([]SearchResult, error) {
	start := time.Now()

	results, err := db.search(ctx, q, k)

	db.metrics.RecordSearch(k, time.Since(start), err)
	db.logger.LogSearch(ctx, k, len(results), err)

	return results, err
}

func (db *DB) search(ctx context.Context, q []float32, k int) ([]SearchResult, error) {
	if db.closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	matches, err := db.store.Query(q, k)
	if err != nil {
		return nil, translateError(err)
	}

	results := make([]SearchResult, len(matches))
	for i, m := range matches {
		results[i] = SearchResult{ID: m.ID, Distance: m.Distance}
	}
	return results, nil
}

// Save flushes the in-memory index to its path, rewriting the entire file
// from memory. The write goes to a temp file that atomically replaces the
// target, so a failed Save leaves the previous file intact.
func (db *DB) Save(ctx context.Context) error {
	start := time.Now()

	err := db.save(ctx)

	db.metrics.RecordSave(time.Since(start), err)
	db.logger.LogSave(ctx, db.path, db.Count(), err)

	return err
}

func (db *DB) save(ctx context.Context) error {
	if db.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return translateError(db.store.SaveToFile(db.path))
}

// Close releases the handle's memory. It performs no I/O and never fails;
// entries added since the last Save are discarded. Close is idempotent, and
// every other operation on a closed handle fails with ErrClosed.
func (db *DB) Close() {
	if db.closed {
		return
	}
	db.closed = true
	db.store = nil
}
