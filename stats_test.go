package feather

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStats(t *testing.T) {
	ctx := context.Background()

	t.Run("Empty", func(t *testing.T) {
		db, path := openTestDB(t, 4)

		stats, err := db.Stats()
		require.NoError(t, err)
		assert.Equal(t, path, stats.Path)
		assert.Equal(t, 4, stats.Dimension)
		assert.Equal(t, 0, stats.EntryCount)
		assert.Equal(t, uint64(0), stats.UniqueIDs)
	})

	t.Run("DuplicateIDs", func(t *testing.T) {
		db, _ := openTestDB(t, 2)

		require.NoError(t, db.Add(ctx, 7, []float32{0, 0}))
		require.NoError(t, db.Add(ctx, 7, []float32{1, 1}))
		require.NoError(t, db.Add(ctx, 9, []float32{2, 2}))

		stats, err := db.Stats()
		require.NoError(t, err)
		assert.Equal(t, 3, stats.EntryCount)
		assert.Equal(t, uint64(2), stats.UniqueIDs)
	})
}
