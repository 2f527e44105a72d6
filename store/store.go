// Package store implements the in-memory vector store: a fixed-dimension,
// insertion-ordered collection of (id, vector) entries with brute-force
// top-k search and binary persistence.
//
// The store performs no internal locking. Callers must serialize mutations
// (Insert, loading) against every other operation; concurrent read-only
// queries on a quiescent store are safe.
package store

import "fmt"

// ErrDimensionMismatch is a named error type for dimension mismatch
type ErrDimensionMismatch struct {
	Expected int // Expected dimensions
	Actual   int // Actual dimensions
}

// Error returns the error message for dimension mismatch
func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrInvalidDimension is a named error type for an invalid configured
// dimension.
type ErrInvalidDimension struct {
	Dimension int
}

func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("invalid dimension: %d", e.Dimension)
}

// SearchResult represents a search result.
type SearchResult struct {
	// ID is the identifier of the matched entry.
	ID uint64

	// Distance is the squared L2 distance between the query vector and
	// the entry's vector. It is never square-rooted; take the square
	// root for true Euclidean distance.
	Distance float32
}

// Store holds vectors in a columnar (SOA) layout: ids in one slice and all
// vector components in a single contiguous float32 buffer. Entry i occupies
// data[i*dimension : (i+1)*dimension].
//
// Ids are not required to be unique; duplicates are stored and returned
// independently by Query.
type Store struct {
	dimension int
	ids       []uint64
	data      []float32
}

// New creates an empty store with the given fixed dimension.
func New(dimension int) (*Store, error) {
	if dimension <= 0 {
		return nil, &ErrInvalidDimension{Dimension: dimension}
	}
	return &Store{
		dimension: dimension,
	}, nil
}

// Dimension returns the fixed vector dimensionality of the store.
func (s *Store) Dimension() int {
	return s.dimension
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	return len(s.ids)
}

// Insert appends an entry. It fails with ErrDimensionMismatch if the vector
// length differs from the store dimension, leaving the store unchanged.
// The vector is copied; later changes to v do not affect the store.
func (s *Store) Insert(id uint64, v []float32) error {
	if len(v) != s.dimension {
		return &ErrDimensionMismatch{Expected: s.dimension, Actual: len(v)}
	}
	s.ids = append(s.ids, id)
	s.data = append(s.data, v...)
	return nil
}

// ID returns the id of entry i.
func (s *Store) ID(i int) uint64 {
	return s.ids[i]
}

// Vector returns the vector of entry i.
// The returned slice aliases internal memory; callers must not modify it.
func (s *Store) Vector(i int) []float32 {
	return s.data[i*s.dimension : (i+1)*s.dimension]
}
