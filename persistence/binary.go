// Package persistence implements the feather on-disk format: a fixed
// little-endian header followed by raw (id, vector) records, written
// atomically via a temp file and rename.
package persistence

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unsafe"
)

// BinaryIndexWriter writes index data in the binary wire format.
type BinaryIndexWriter struct {
	w         io.Writer
	byteOrder binary.ByteOrder
}

// NewBinaryIndexWriter creates a new binary writer.
func NewBinaryIndexWriter(w io.Writer) *BinaryIndexWriter {
	return &BinaryIndexWriter{
		w:         w,
		byteOrder: binary.LittleEndian, // Native on x86/ARM
	}
}

// WriteHeader writes the file header. Magic and Version are stamped here;
// callers only fill Dimension and EntryCount.
func (bw *BinaryIndexWriter) WriteHeader(header *FileHeader) error {
	header.Magic = MagicNumber
	header.Version = Version
	return binary.Write(bw.w, bw.byteOrder, header)
}

// WriteUint64 writes a single uint64 value.
func (bw *BinaryIndexWriter) WriteUint64(v uint64) error {
	var buf [8]byte
	bw.byteOrder.PutUint64(buf[:], v)
	_, err := bw.w.Write(buf[:])
	return err
}

// WriteFloat32Slice writes a float32 slice as raw bytes (zero-copy).
// Safety: Validates alignment before unsafe conversion.
func (bw *BinaryIndexWriter) WriteFloat32Slice(vec []float32) error {
	if len(vec) == 0 {
		return nil
	}

	if err := validateFloat32SliceAlignment(vec); err != nil {
		return err
	}

	byteSlice := unsafe.Slice((*byte)(unsafe.Pointer(&vec[0])), len(vec)*4)
	_, err := bw.w.Write(byteSlice)
	return err
}

// BinaryIndexReader reads index data from the binary wire format.
type BinaryIndexReader struct {
	r         io.Reader
	byteOrder binary.ByteOrder
}

// NewBinaryIndexReader creates a new binary reader.
func NewBinaryIndexReader(r io.Reader) *BinaryIndexReader {
	return &BinaryIndexReader{
		r:         r,
		byteOrder: binary.LittleEndian,
	}
}

// ReadHeader reads and validates the file header.
func (br *BinaryIndexReader) ReadHeader() (*FileHeader, error) {
	var header FileHeader
	if err := binary.Read(br.r, br.byteOrder, &header); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTruncated, err)
	}
	if header.Magic != MagicNumber {
		return nil, fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, header.Magic)
	}
	if header.Version != Version {
		return nil, fmt.Errorf("%w: got 0x%08x", ErrInvalidVersion, header.Version)
	}
	return &header, nil
}

// ReadUint64 reads a single uint64 value.
func (br *BinaryIndexReader) ReadUint64() (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(br.r, buf[:]); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrTruncated, err)
	}
	return br.byteOrder.Uint64(buf[:]), nil
}

// ReadFloat32SliceInto reads raw float32 data into the provided buffer.
func (br *BinaryIndexReader) ReadFloat32SliceInto(vec []float32) error {
	if len(vec) == 0 {
		return nil
	}
	if err := validateFloat32SliceAlignment(vec); err != nil {
		return err
	}
	byteSlice := unsafe.Slice((*byte)(unsafe.Pointer(&vec[0])), len(vec)*4)
	if _, err := io.ReadFull(br.r, byteSlice); err != nil {
		return fmt.Errorf("%w: %w", ErrTruncated, err)
	}
	return nil
}

// ExpectEOF verifies the stream is exhausted. Any trailing byte means the
// declared entry count does not match the available data.
func (br *BinaryIndexReader) ExpectEOF() error {
	var probe [1]byte
	n, err := br.r.Read(probe[:])
	if n > 0 {
		return ErrTrailingData
	}
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return err
	}
	return ErrTrailingData
}

// SaveToFile writes a file atomically: the payload goes to a temp file in
// the target directory, which is fsynced and renamed over the target.
func SaveToFile(filename string, writeFunc func(io.Writer) error) error {
	dir := filepath.Dir(filename)
	base := filepath.Base(filename)

	// Write to a temp file in the same directory to ensure rename is atomic.
	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	// Match typical file permissions (best-effort).
	_ = tmp.Chmod(0644)

	buf := bufio.NewWriterSize(tmp, 256*1024)
	if err := writeFunc(buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	// Atomically replace target.
	if err := os.Rename(tmpName, filename); err != nil {
		return err
	}

	// Best-effort: fsync the directory so the rename is durable on POSIX.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}

	// Success: prevent deferred cleanup from removing the final file.
	tmpName = ""
	return nil
}

// LoadFromFile reads a file through a buffered reader.
func LoadFromFile(filename string, readFunc func(io.Reader) error) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	buf := bufio.NewReaderSize(f, 256*1024)
	return readFunc(buf)
}
