package npy

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	t.Run("Buffer", func(t *testing.T) {
		v := []float32{0.1, -2.5, 3, 0, 1e20}

		var buf bytes.Buffer
		require.NoError(t, WriteVector(&buf, v))

		got, err := ReadVector(&buf)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	})

	t.Run("File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "query.npy")
		v := []float32{1, 2, 3}

		require.NoError(t, WriteVectorFile(path, v))

		got, err := ReadVectorFile(path)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	})

	t.Run("Empty", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteVector(&buf, nil))

		got, err := ReadVector(&buf)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestReadNumpyProduced(t *testing.T) {
	// A header exactly as numpy 1.x writes it for np.zeros(2, dtype=np.float32).
	header := "{'descr': '<f4', 'fortran_order': False, 'shape': (2,), }"
	pad := 64 - (10+len(header)+1)%64
	header += string(bytes.Repeat([]byte{' '}, pad)) + "\n"

	var buf bytes.Buffer
	buf.Write([]byte{0x93, 'N', 'U', 'M', 'P', 'Y', 1, 0})
	buf.WriteByte(byte(len(header)))
	buf.WriteByte(byte(len(header) >> 8))
	buf.WriteString(header)
	buf.Write([]byte{0, 0, 0, 0, 0, 0, 0, 0})

	got, err := ReadVector(&buf)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0}, got)
}

func TestReadErrors(t *testing.T) {
	write := func(descr, fortran, shape string) *bytes.Buffer {
		header := "{'descr': '" + descr + "', 'fortran_order': " + fortran + ", 'shape': (" + shape + "), }\n"

		var buf bytes.Buffer
		buf.Write([]byte{0x93, 'N', 'U', 'M', 'P', 'Y', 1, 0})
		buf.WriteByte(byte(len(header)))
		buf.WriteByte(byte(len(header) >> 8))
		buf.WriteString(header)
		return &buf
	}

	t.Run("BadMagic", func(t *testing.T) {
		_, err := ReadVector(bytes.NewReader([]byte("not a npy file")))
		require.ErrorIs(t, err, ErrInvalidMagic)
	})

	t.Run("UnsupportedVersion", func(t *testing.T) {
		_, err := ReadVector(bytes.NewReader([]byte{0x93, 'N', 'U', 'M', 'P', 'Y', 3, 0}))
		require.ErrorIs(t, err, ErrVersion)
	})

	t.Run("WrongDType", func(t *testing.T) {
		_, err := ReadVector(write("<f8", "False", "4,"))
		require.ErrorIs(t, err, ErrDType)
	})

	t.Run("FortranOrder", func(t *testing.T) {
		_, err := ReadVector(write("<f4", "True", "4,"))
		require.ErrorIs(t, err, ErrShape)
	})

	t.Run("TwoDimensional", func(t *testing.T) {
		_, err := ReadVector(write("<f4", "False", "4, 2"))
		require.ErrorIs(t, err, ErrShape)
	})

	t.Run("TruncatedData", func(t *testing.T) {
		buf := write("<f4", "False", "4,")
		buf.Write([]byte{0, 0, 0, 0}) // one float, four declared

		_, err := ReadVector(buf)
		require.Error(t, err)
	})
}
