package feather

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClose(t *testing.T) {
	ctx := context.Background()

	t.Run("OperationsFailAfterClose", func(t *testing.T) {
		db, _ := openTestDB(t, 2)
		require.NoError(t, db.Add(ctx, 1, []float32{1, 1}))
		db.Close()

		require.ErrorIs(t, db.Add(ctx, 2, []float32{2, 2}), ErrClosed)

		_, err := db.Search(ctx, []float32{0, 0}, 1)
		require.ErrorIs(t, err, ErrClosed)

		require.ErrorIs(t, db.Save(ctx), ErrClosed)

		_, err = db.Stats()
		require.ErrorIs(t, err, ErrClosed)

		require.ErrorIs(t, db.Snapshot(ctx, db.Path()+".fsnap"), ErrClosed)
	})

	t.Run("Idempotent", func(t *testing.T) {
		db, _ := openTestDB(t, 2)

		db.Close()
		db.Close()
		db.Close()
	})

	t.Run("AccessorsOnClosedHandle", func(t *testing.T) {
		db, path := openTestDB(t, 2)
		db.Close()

		assert.Equal(t, 0, db.Dimension())
		assert.Equal(t, 0, db.Count())
		assert.Equal(t, path, db.Path())
	})
}
