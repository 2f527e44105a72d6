package feather

import (
	"context"
	"io"

	"github.com/featherdb/feather/persistence"
	"github.com/featherdb/feather/snapshot"
	"github.com/featherdb/feather/store"
)

// Snapshot writes a block-compressed copy of the index to path. The
// snapshot carries the same record stream as Save wrapped in the snapshot
// container, so it captures unsaved entries too. The write is atomic the
// same way Save is. The index file at the handle's path is left untouched.
func (db *DB) Snapshot(ctx context.Context, path string, optFns ...func(o *snapshot.Options)) error {
	written, err := db.snapshot(ctx, path, optFns...)

	db.logger.LogSnapshot(ctx, path, written, err)

	return err
}

func (db *DB) snapshot(ctx context.Context, path string, optFns ...func(o *snapshot.Options)) (int64, error) {
	if db.closed {
		return 0, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var written int64
	err := persistence.SaveToFile(path, func(w io.Writer) error {
		sw, err := snapshot.NewWriter(w, optFns...)
		if err != nil {
			return err
		}
		if _, err := db.store.WriteTo(sw); err != nil {
			return err
		}
		if err := sw.Close(); err != nil {
			return err
		}
		written = sw.BytesWritten()
		return nil
	})
	return written, translateError(err)
}

// Restore rebuilds an index from a snapshot produced by Snapshot. The
// restored index is written to indexPath and an open handle on it is
// returned; an existing file at indexPath is replaced. A nonzero
// WithDimension hint must match the snapshot's dimension.
func Restore(ctx context.Context, snapshotPath, indexPath string, optFns ...Option) (*DB, error) {
	o := applyOptions(optFns)

	if o.dimension < 0 {
		return nil, &ErrInvalidDimension{Dimension: o.dimension}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var s store.Store

	err := persistence.LoadFromFile(snapshotPath, func(r io.Reader) error {
		sr, err := snapshot.NewReader(r)
		if err != nil {
			return err
		}
		return s.ReadFromWithOptions(sr, store.Options{Dimension: o.dimension})
	})
	if err != nil {
		err = translateError(err)
		o.logger.LogOpen(ctx, indexPath, o.dimension, 0, err)
		return nil, err
	}

	if err := s.SaveToFile(indexPath); err != nil {
		return nil, translateError(err)
	}

	db := &DB{
		path:    indexPath,
		store:   &s,
		metrics: o.metricsCollector,
		logger:  o.logger,
	}

	db.logger.LogOpen(ctx, indexPath, s.Dimension(), s.Len(), nil)

	return db, nil
}
