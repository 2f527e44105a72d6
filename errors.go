package feather

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/featherdb/feather/persistence"
	"github.com/featherdb/feather/snapshot"
	"github.com/featherdb/feather/store"
)

var (
	// ErrInvalidK is returned when k is negative.
	ErrInvalidK = errors.New("k must not be negative")

	// ErrCorruptFile is returned when an index file is malformed: bad
	// magic or version, truncated records, or an entry count that does
	// not match the available bytes.
	ErrCorruptFile = errors.New("corrupt index file")

	// ErrIO is returned for filesystem failures distinct from format
	// problems (permission denied, missing parent directory, disk full).
	ErrIO = errors.New("i/o failure")

	// ErrClosed is returned when an operation is invoked on a closed
	// handle.
	ErrClosed = errors.New("handle is closed")
)

// ErrDimensionMismatch indicates a vector/query/file dimensionality
// mismatch.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// ErrInvalidDimension indicates a zero or negative dimension where a
// positive one is required.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrInvalidDimension struct {
	Dimension int
	cause     error
}

func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("invalid dimension: %d", e.Dimension)
}

func (e *ErrInvalidDimension) Unwrap() error { return e.cause }

// translateError normalizes errors from the store and persistence layers
// into the public error kinds.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Dimension and argument normalization.
	var dm *store.ErrDimensionMismatch
	if errors.As(err, &dm) {
		return &ErrDimensionMismatch{Expected: dm.Expected, Actual: dm.Actual, cause: err}
	}
	var id *store.ErrInvalidDimension
	if errors.As(err, &id) {
		return &ErrInvalidDimension{Dimension: id.Dimension, cause: err}
	}
	if errors.Is(err, store.ErrInvalidK) {
		return fmt.Errorf("%w: %w", ErrInvalidK, err)
	}

	// Format problems.
	if errors.Is(err, persistence.ErrInvalidMagic) ||
		errors.Is(err, persistence.ErrInvalidVersion) ||
		errors.Is(err, persistence.ErrInvalidHeader) ||
		errors.Is(err, persistence.ErrTruncated) ||
		errors.Is(err, persistence.ErrTrailingData) {
		return fmt.Errorf("%w: %w", ErrCorruptFile, err)
	}
	if errors.Is(err, snapshot.ErrInvalidSnapshot) ||
		errors.Is(err, snapshot.ErrBlockSizeMismatch) ||
		errors.Is(err, snapshot.ErrBlockExceedsMaxBytes) {
		return fmt.Errorf("%w: %w", ErrCorruptFile, err)
	}

	// Filesystem failures distinct from format problems.
	var pathErr *fs.PathError
	var linkErr *os.LinkError
	if errors.As(err, &pathErr) || errors.As(err, &linkErr) {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	return err
}
