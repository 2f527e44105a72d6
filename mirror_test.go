package feather

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"testing"

	"github.com/featherdb/feather/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushPull(t *testing.T) {
	ctx := context.Background()

	t.Run("RoundTrip", func(t *testing.T) {
		bs := blobstore.NewLocalStore(t.TempDir())

		db, _ := openTestDB(t, 3)
		require.NoError(t, db.Add(ctx, 1, []float32{0, 0, 0}))
		require.NoError(t, db.Add(ctx, 2, []float32{1, 0, 0}))
		require.NoError(t, db.Push(ctx, bs, "prod"))

		names, err := bs.List(ctx, "prod")
		require.NoError(t, err)
		assert.Equal(t, []string{"prod.feather", "prod.manifest.json"}, names)

		pulled, err := Pull(ctx, bs, "prod", filepath.Join(t.TempDir(), "replica.feather"))
		require.NoError(t, err)
		defer pulled.Close()

		assert.Equal(t, 2, pulled.Count())
		assert.Equal(t, 3, pulled.Dimension())

		results, err := pulled.Search(ctx, []float32{0, 0, 0}, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, uint64(1), results[0].ID)
	})

	t.Run("ManifestContents", func(t *testing.T) {
		bs := blobstore.NewLocalStore(t.TempDir())

		db, _ := openTestDB(t, 2)
		require.NoError(t, db.Add(ctx, 7, []float32{1, 1}))
		require.NoError(t, db.Push(ctx, bs, "prod"))

		rc, err := bs.Open(ctx, "prod.manifest.json")
		require.NoError(t, err)
		defer rc.Close()

		var manifest Manifest
		require.NoError(t, json.NewDecoder(rc).Decode(&manifest))

		assert.Equal(t, 2, manifest.Dimension)
		assert.Equal(t, 1, manifest.EntryCount)
		assert.NotZero(t, manifest.Size)
		assert.NotZero(t, manifest.Checksum)
	})

	t.Run("PullMissing", func(t *testing.T) {
		bs := blobstore.NewLocalStore(t.TempDir())

		_, err := Pull(ctx, bs, "absent", filepath.Join(t.TempDir(), "replica.feather"))
		require.ErrorIs(t, err, blobstore.ErrNotFound)
	})

	t.Run("PullDetectsCorruption", func(t *testing.T) {
		bs := blobstore.NewLocalStore(t.TempDir())

		db, _ := openTestDB(t, 2)
		require.NoError(t, db.Add(ctx, 1, []float32{1, 1}))
		require.NoError(t, db.Push(ctx, bs, "prod"))

		// Flip a payload byte without changing the size.
		rc, err := bs.Open(ctx, "prod.feather")
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()

		data[len(data)-1] ^= 0xFF
		require.NoError(t, bs.Put(ctx, "prod.feather", bytes.NewReader(data), int64(len(data))))

		_, err = Pull(ctx, bs, "prod", filepath.Join(t.TempDir(), "replica.feather"))
		require.ErrorIs(t, err, ErrCorruptFile)
	})

	t.Run("PullDetectsSizeMismatch", func(t *testing.T) {
		bs := blobstore.NewLocalStore(t.TempDir())

		db, _ := openTestDB(t, 2)
		require.NoError(t, db.Add(ctx, 1, []float32{1, 1}))
		require.NoError(t, db.Push(ctx, bs, "prod"))

		rc, err := bs.Open(ctx, "prod.feather")
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()

		truncated := data[:len(data)-4]
		require.NoError(t, bs.Put(ctx, "prod.feather", bytes.NewReader(truncated), int64(len(truncated))))

		_, err = Pull(ctx, bs, "prod", filepath.Join(t.TempDir(), "replica.feather"))
		require.ErrorIs(t, err, ErrCorruptFile)
	})

	t.Run("PullWithConflictingHint", func(t *testing.T) {
		bs := blobstore.NewLocalStore(t.TempDir())

		db, _ := openTestDB(t, 3)
		require.NoError(t, db.Push(ctx, bs, "prod"))

		_, err := Pull(ctx, bs, "prod", filepath.Join(t.TempDir(), "replica.feather"), WithDimension(9))
		var dm *ErrDimensionMismatch
		require.ErrorAs(t, err, &dm)
	})

	t.Run("PushClosedHandle", func(t *testing.T) {
		bs := blobstore.NewLocalStore(t.TempDir())

		db, _ := openTestDB(t, 2)
		db.Close()

		require.ErrorIs(t, db.Push(ctx, bs, "prod"), ErrClosed)
	})

	t.Run("PushThroughThrottledStore", func(t *testing.T) {
		bs := blobstore.NewThrottledStore(blobstore.NewLocalStore(t.TempDir()), 1<<30, 1<<20)

		db, _ := openTestDB(t, 2)
		require.NoError(t, db.Add(ctx, 1, []float32{1, 1}))
		require.NoError(t, db.Push(ctx, bs, "prod"))

		pulled, err := Pull(ctx, bs, "prod", filepath.Join(t.TempDir(), "replica.feather"))
		require.NoError(t, err)
		defer pulled.Close()
		assert.Equal(t, 1, pulled.Count())
	})
}
