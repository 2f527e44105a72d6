package store

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/featherdb/feather/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(3)
	require.NoError(t, err)
	require.NoError(t, s.Insert(1, []float32{0, 0, 0}))
	require.NoError(t, s.Insert(2, []float32{1, 0, 0}))
	require.NoError(t, s.Insert(3, []float32{0, 2, 0}))
	return s
}

func TestRoundTrip(t *testing.T) {
	t.Run("WriteAndReadBack", func(t *testing.T) {
		s := testStore(t)

		var buf bytes.Buffer
		n, err := s.WriteTo(&buf)
		require.NoError(t, err)
		assert.Equal(t, int64(persistence.HeaderSize+3*persistence.RecordSize(3)), n)

		var loaded Store
		_, err = loaded.ReadFrom(bytes.NewReader(buf.Bytes()))
		require.NoError(t, err)

		assert.Equal(t, 3, loaded.Dimension())
		assert.Equal(t, 3, loaded.Len())
		assert.Equal(t, uint64(2), loaded.ID(1))
		assert.Equal(t, []float32{0, 2, 0}, loaded.Vector(2))
	})

	t.Run("EmptyStore", func(t *testing.T) {
		s, err := New(5)
		require.NoError(t, err)

		var buf bytes.Buffer
		n, err := s.WriteTo(&buf)
		require.NoError(t, err)
		assert.Equal(t, int64(persistence.HeaderSize), n)

		var loaded Store
		_, err = loaded.ReadFrom(bytes.NewReader(buf.Bytes()))
		require.NoError(t, err)
		assert.Equal(t, 5, loaded.Dimension())
		assert.Equal(t, 0, loaded.Len())
	})

	t.Run("SaveAndLoadFile", func(t *testing.T) {
		s := testStore(t)
		path := filepath.Join(t.TempDir(), "index.feather")

		require.NoError(t, s.SaveToFile(path))

		loaded, err := LoadFromFile(path, DefaultOptions)
		require.NoError(t, err)
		assert.Equal(t, 3, loaded.Len())

		results, err := loaded.Query([]float32{0, 0, 0}, 2)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, uint64(1), results[0].ID)
		assert.Equal(t, uint64(2), results[1].ID)
	})

	t.Run("SaveReplacesAtomically", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "index.feather")

		s := testStore(t)
		require.NoError(t, s.SaveToFile(path))
		require.NoError(t, s.Insert(4, []float32{9, 9, 9}))
		require.NoError(t, s.SaveToFile(path))

		loaded, err := LoadFromFile(path, DefaultOptions)
		require.NoError(t, err)
		assert.Equal(t, 4, loaded.Len())
	})
}

func TestDimensionHint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.feather")
	require.NoError(t, testStore(t).SaveToFile(path))

	t.Run("MatchingHint", func(t *testing.T) {
		loaded, err := LoadFromFile(path, Options{Dimension: 3})
		require.NoError(t, err)
		assert.Equal(t, 3, loaded.Dimension())
	})

	t.Run("ZeroHintAdoptsFile", func(t *testing.T) {
		loaded, err := LoadFromFile(path, Options{Dimension: 0})
		require.NoError(t, err)
		assert.Equal(t, 3, loaded.Dimension())
	})

	t.Run("ConflictingHint", func(t *testing.T) {
		_, err := LoadFromFile(path, Options{Dimension: 8})
		require.Error(t, err)

		var dm *ErrDimensionMismatch
		require.ErrorAs(t, err, &dm)
		assert.Equal(t, 8, dm.Expected)
		assert.Equal(t, 3, dm.Actual)
	})
}

func TestReadCorrupt(t *testing.T) {
	validBytes := func(t *testing.T) []byte {
		t.Helper()
		var buf bytes.Buffer
		_, err := testStore(t).WriteTo(&buf)
		require.NoError(t, err)
		return buf.Bytes()
	}

	t.Run("BadMagic", func(t *testing.T) {
		data := validBytes(t)
		binary.LittleEndian.PutUint32(data[0:], 0xDEADBEEF)

		var s Store
		_, err := s.ReadFrom(bytes.NewReader(data))
		require.ErrorIs(t, err, persistence.ErrInvalidMagic)
	})

	t.Run("BadVersion", func(t *testing.T) {
		data := validBytes(t)
		binary.LittleEndian.PutUint32(data[4:], 99)

		var s Store
		_, err := s.ReadFrom(bytes.NewReader(data))
		require.ErrorIs(t, err, persistence.ErrInvalidVersion)
	})

	t.Run("ZeroDimension", func(t *testing.T) {
		data := validBytes(t)
		binary.LittleEndian.PutUint64(data[8:], 0)

		var s Store
		_, err := s.ReadFrom(bytes.NewReader(data))
		require.ErrorIs(t, err, persistence.ErrInvalidHeader)
	})

	t.Run("OversizedPayload", func(t *testing.T) {
		// Dimension and entry count each pass their individual caps,
		// but together declare a multi-terabyte payload. This must come
		// back as a header error, not an allocation failure.
		data := validBytes(t)
		binary.LittleEndian.PutUint64(data[8:], 1<<20)
		binary.LittleEndian.PutUint64(data[16:], 100_000_000)

		var s Store
		_, err := s.ReadFrom(bytes.NewReader(data[:persistence.HeaderSize]))
		require.ErrorIs(t, err, persistence.ErrInvalidHeader)
	})

	t.Run("AbsurdEntryCount", func(t *testing.T) {
		data := validBytes(t)
		binary.LittleEndian.PutUint64(data[16:], uint64(persistence.MaxEntryCount)+1)

		var s Store
		_, err := s.ReadFrom(bytes.NewReader(data))
		require.ErrorIs(t, err, persistence.ErrInvalidHeader)
	})

	t.Run("TruncatedHeader", func(t *testing.T) {
		data := validBytes(t)

		var s Store
		_, err := s.ReadFrom(bytes.NewReader(data[:10]))
		require.ErrorIs(t, err, persistence.ErrTruncated)
	})

	t.Run("TruncatedRecord", func(t *testing.T) {
		data := validBytes(t)

		var s Store
		_, err := s.ReadFrom(bytes.NewReader(data[:len(data)-5]))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "record 2")
	})

	t.Run("TrailingData", func(t *testing.T) {
		data := append(validBytes(t), 0x00)

		var s Store
		_, err := s.ReadFrom(bytes.NewReader(data))
		require.ErrorIs(t, err, persistence.ErrTrailingData)
	})

	t.Run("FailedLoadLeavesNoFileArtifacts", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "index.feather")

		data := validBytes(t)
		binary.LittleEndian.PutUint32(data[0:], 0xDEADBEEF)
		require.NoError(t, os.WriteFile(path, data, 0o644))

		_, err := LoadFromFile(path, DefaultOptions)
		require.Error(t, err)

		// The corrupt file is untouched.
		onDisk, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, data, onDisk)
	})
}
