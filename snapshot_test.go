package feather

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/featherdb/feather/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRestore(t *testing.T) {
	ctx := context.Background()

	t.Run("RoundTrip", func(t *testing.T) {
		db, _ := openTestDB(t, 3)
		require.NoError(t, db.Add(ctx, 1, []float32{0, 0, 0}))
		require.NoError(t, db.Add(ctx, 2, []float32{1, 0, 0}))
		require.NoError(t, db.Add(ctx, 3, []float32{0, 2, 0}))

		dir := t.TempDir()
		snapPath := filepath.Join(dir, "index.fsnap")
		require.NoError(t, db.Snapshot(ctx, snapPath))

		restored, err := Restore(ctx, snapPath, filepath.Join(dir, "restored.feather"))
		require.NoError(t, err)
		defer restored.Close()

		assert.Equal(t, 3, restored.Count())
		assert.Equal(t, 3, restored.Dimension())

		results, err := restored.Search(ctx, []float32{0, 0, 0}, 2)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, uint64(1), results[0].ID)
		assert.Equal(t, uint64(2), results[1].ID)
	})

	t.Run("CapturesUnsavedEntries", func(t *testing.T) {
		db, path := openTestDB(t, 2)
		require.NoError(t, db.Add(ctx, 1, []float32{1, 1}))

		dir := t.TempDir()
		snapPath := filepath.Join(dir, "index.fsnap")
		require.NoError(t, db.Snapshot(ctx, snapPath))

		// The snapshot has the entry even though the index was never saved.
		_, err := os.Stat(path)
		assert.ErrorIs(t, err, os.ErrNotExist)

		restored, err := Restore(ctx, snapPath, filepath.Join(dir, "restored.feather"))
		require.NoError(t, err)
		defer restored.Close()
		assert.Equal(t, 1, restored.Count())
	})

	t.Run("RestoreWritesIndexFile", func(t *testing.T) {
		db, _ := openTestDB(t, 2)
		require.NoError(t, db.Add(ctx, 1, []float32{1, 1}))

		dir := t.TempDir()
		snapPath := filepath.Join(dir, "index.fsnap")
		indexPath := filepath.Join(dir, "restored.feather")
		require.NoError(t, db.Snapshot(ctx, snapPath))

		restored, err := Restore(ctx, snapPath, indexPath)
		require.NoError(t, err)
		restored.Close()

		// The restored index is durable without a further Save.
		reopened, err := Open(indexPath)
		require.NoError(t, err)
		defer reopened.Close()
		assert.Equal(t, 1, reopened.Count())
	})

	t.Run("CompressionOptions", func(t *testing.T) {
		db, _ := openTestDB(t, 2)
		for i := 0; i < 100; i++ {
			require.NoError(t, db.Add(ctx, uint64(i), []float32{float32(i), 0}))
		}

		dir := t.TempDir()
		for _, c := range []snapshot.Compression{snapshot.CompressionNone, snapshot.CompressionLZ4, snapshot.CompressionZSTD} {
			snapPath := filepath.Join(dir, "index-"+c.String()+".fsnap")
			err := db.Snapshot(ctx, snapPath, func(o *snapshot.Options) {
				o.Compression = c
			})
			require.NoError(t, err)

			restored, err := Restore(ctx, snapPath, filepath.Join(dir, "restored-"+c.String()+".feather"))
			require.NoError(t, err)
			assert.Equal(t, 100, restored.Count())
			restored.Close()
		}
	})

	t.Run("RestoreWithConflictingHint", func(t *testing.T) {
		db, _ := openTestDB(t, 3)
		require.NoError(t, db.Add(ctx, 1, []float32{1, 2, 3}))

		dir := t.TempDir()
		snapPath := filepath.Join(dir, "index.fsnap")
		require.NoError(t, db.Snapshot(ctx, snapPath))

		_, err := Restore(ctx, snapPath, filepath.Join(dir, "restored.feather"), WithDimension(5))
		var dm *ErrDimensionMismatch
		require.ErrorAs(t, err, &dm)
	})

	t.Run("RestoreCorruptSnapshot", func(t *testing.T) {
		dir := t.TempDir()
		snapPath := filepath.Join(dir, "bad.fsnap")
		require.NoError(t, os.WriteFile(snapPath, []byte("not a snapshot"), 0o644))

		_, err := Restore(ctx, snapPath, filepath.Join(dir, "restored.feather"))
		require.ErrorIs(t, err, ErrCorruptFile)
	})
}
