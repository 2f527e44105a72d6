package store

import (
	"fmt"
	"io"

	"github.com/featherdb/feather/persistence"
)

// Options contains load-time configuration for the store.
type Options struct {
	// Dimension is the expected vector dimensionality. Zero means no
	// expectation: the file's stored dimension becomes authoritative.
	Dimension int
}

// DefaultOptions contains the default load configuration.
var DefaultOptions = Options{
	Dimension: 0,
}

// maxDimension caps the declared dimension read from a header; anything
// above it is header corruption, not a real index.
const maxDimension = 1 << 20

// maxPayloadBytes caps the total record payload a header may declare.
// Dimension and entry count can each pass their individual caps while
// their product would still demand an absurd allocation; a corrupt header
// must fail cleanly, never abort the process.
const maxPayloadBytes = 1 << 36 // 64 GiB

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

type countingReader struct {
	r io.Reader
	n int64
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.n += int64(n)
	return n, err
}

// SaveToFile saves the store to a file, atomically replacing the target.
func (s *Store) SaveToFile(filename string) error {
	return persistence.SaveToFile(filename, func(w io.Writer) error {
		_, err := s.WriteTo(w)
		return err
	})
}

// LoadFromFile loads a store from a file.
func LoadFromFile(filename string, opts Options) (*Store, error) {
	s := &Store{}
	err := persistence.LoadFromFile(filename, func(r io.Reader) error {
		return s.ReadFromWithOptions(r, opts)
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// WriteTo writes the store to w in the binary wire format: header, then one
// record per entry in store order. Every save is a full rewrite of the
// stream; there is no append or diff form.
//
// It matches the io.WriterTo interface for toolchain friendliness.
func (s *Store) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	writer := persistence.NewBinaryIndexWriter(cw)

	header := &persistence.FileHeader{
		Dimension:  uint64(s.dimension),
		EntryCount: uint64(len(s.ids)),
	}
	if err := writer.WriteHeader(header); err != nil {
		return cw.n, err
	}

	for i, id := range s.ids {
		if err := writer.WriteUint64(id); err != nil {
			return cw.n, err
		}
		if err := writer.WriteFloat32Slice(s.data[i*s.dimension : (i+1)*s.dimension]); err != nil {
			return cw.n, err
		}
	}

	return cw.n, nil
}

// ReadFrom reads a store from r using DefaultOptions.
//
// It matches the io.ReaderFrom interface for toolchain friendliness.
func (s *Store) ReadFrom(r io.Reader) (int64, error) {
	cr := &countingReader{r: r}
	err := s.ReadFromWithOptions(cr, DefaultOptions)
	return cr.n, err
}

// ReadFromWithOptions reads a store from r in the binary wire format.
// A nonzero opts.Dimension must match the file's stored dimension.
func (s *Store) ReadFromWithOptions(r io.Reader, opts Options) error {
	reader := persistence.NewBinaryIndexReader(r)

	header, err := reader.ReadHeader()
	if err != nil {
		return err
	}

	if header.Dimension == 0 || header.Dimension > maxDimension {
		return fmt.Errorf("%w: dimension %d", persistence.ErrInvalidHeader, header.Dimension)
	}
	if header.EntryCount > persistence.MaxEntryCount {
		return fmt.Errorf("%w: entry count %d", persistence.ErrInvalidHeader, header.EntryCount)
	}
	if payload := header.EntryCount * uint64(persistence.RecordSize(int(header.Dimension))); payload > maxPayloadBytes {
		return fmt.Errorf("%w: declared payload %d bytes", persistence.ErrInvalidHeader, payload)
	}
	if opts.Dimension != 0 && opts.Dimension != int(header.Dimension) {
		return &ErrDimensionMismatch{Expected: opts.Dimension, Actual: int(header.Dimension)}
	}

	dim := int(header.Dimension)
	count := int(header.EntryCount)

	s.dimension = dim
	s.ids = make([]uint64, count)
	s.data = make([]float32, count*dim)

	for i := 0; i < count; i++ {
		id, err := reader.ReadUint64()
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		s.ids[i] = id
		if err := reader.ReadFloat32SliceInto(s.data[i*dim : (i+1)*dim]); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}

	return reader.ExpectEOF()
}
