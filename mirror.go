package feather

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/featherdb/feather/blobstore"
	"github.com/featherdb/feather/persistence"
	"github.com/featherdb/feather/store"
	"golang.org/x/sync/errgroup"
)

// Manifest describes a mirrored index. It is stored next to the index
// blob as JSON and lets Pull verify the download before trusting it.
type Manifest struct {
	Version    uint32 `json:"version"`
	Dimension  int    `json:"dimension"`
	EntryCount int    `json:"entry_count"`
	Size       int64  `json:"size"`
	Checksum   uint32 `json:"checksum_crc32"`
}

func indexBlobName(name string) string {
	return name + ".feather"
}

func manifestBlobName(name string) string {
	return name + ".manifest.json"
}

// Push mirrors the in-memory index to a blob store under name, writing
// the index blob and its manifest. Both objects are uploaded
// concurrently; Push captures unsaved entries, like Save would, without
// touching the local file.
func (db *DB) Push(ctx context.Context, bs blobstore.BlobStore, name string) error {
	if db.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	cw := persistence.NewChecksumWriter(&buf)
	n, err := db.store.WriteTo(cw)
	if err != nil {
		return translateError(err)
	}

	manifest := Manifest{
		Version:    persistence.Version,
		Dimension:  db.store.Dimension(),
		EntryCount: db.store.Len(),
		Size:       n,
		Checksum:   cw.Sum(),
	}
	manifestData, err := json.Marshal(manifest)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return bs.Put(gctx, indexBlobName(name), bytes.NewReader(buf.Bytes()), n)
	})
	g.Go(func() error {
		return bs.Put(gctx, manifestBlobName(name), bytes.NewReader(manifestData), int64(len(manifestData)))
	})
	if err := g.Wait(); err != nil {
		db.logger.ErrorContext(ctx, "push failed", "name", name, "error", err)
		return err
	}

	db.logger.InfoContext(ctx, "index pushed",
		"name", name,
		"count", manifest.EntryCount,
		"size", manifest.Size,
	)
	return nil
}

// Pull fetches a mirrored index from a blob store, verifies it against
// its manifest, writes it to path, and returns an open handle on it. An
// existing file at path is replaced. A nonzero WithDimension hint must
// match the mirrored index's dimension.
func Pull(ctx context.Context, bs blobstore.BlobStore, name, path string, optFns ...Option) (*DB, error) {
	o := applyOptions(optFns)

	if o.dimension < 0 {
		return nil, &ErrInvalidDimension{Dimension: o.dimension}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var indexData []byte
	var manifest Manifest

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rc, err := bs.Open(gctx, indexBlobName(name))
		if err != nil {
			return err
		}
		defer rc.Close()

		indexData, err = io.ReadAll(rc)
		return err
	})
	g.Go(func() error {
		rc, err := bs.Open(gctx, manifestBlobName(name))
		if err != nil {
			return err
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			return err
		}
		return json.Unmarshal(data, &manifest)
	})
	if err := g.Wait(); err != nil {
		o.logger.ErrorContext(ctx, "pull failed", "name", name, "error", err)
		return nil, err
	}

	if manifest.Version != persistence.Version {
		return nil, fmt.Errorf("%w: unsupported manifest version %d", ErrCorruptFile, manifest.Version)
	}
	if int64(len(indexData)) != manifest.Size {
		return nil, fmt.Errorf("%w: manifest size %d, blob size %d", ErrCorruptFile, manifest.Size, len(indexData))
	}

	cr := persistence.NewChecksumReader(bytes.NewReader(indexData))

	var s store.Store
	if err := s.ReadFromWithOptions(cr, store.Options{Dimension: o.dimension}); err != nil {
		return nil, translateError(err)
	}
	if err := cr.Verify(manifest.Checksum); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptFile, err)
	}
	if s.Len() != manifest.EntryCount {
		return nil, fmt.Errorf("%w: manifest count %d, blob count %d", ErrCorruptFile, manifest.EntryCount, s.Len())
	}

	if err := s.SaveToFile(path); err != nil {
		return nil, translateError(err)
	}

	db := &DB{
		path:    path,
		store:   &s,
		metrics: o.metricsCollector,
		logger:  o.logger,
	}

	db.logger.InfoContext(ctx, "index pulled",
		"name", name,
		"path", path,
		"count", s.Len(),
	)
	return db, nil
}
