// Package snapshot implements block-compressed export and import of index
// streams. A snapshot is an 8-byte header followed by independent blocks:
//
//	[UncompressedSize uint32][CompressedSize uint32][Data...]
//
// If CompressedSize == 0, the block is stored uncompressed; blocks that do
// not compress well are stored raw regardless of the configured algorithm.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

const (
	// MagicNumber identifies feather snapshot files (ASCII: "FSN1")
	MagicNumber = 0x46534E31
	// Version is the current snapshot format version
	Version = 1

	headerSize      = 8
	blockHeaderSize = 8
)

var (
	ErrInvalidSnapshot      = errors.New("invalid snapshot")
	ErrUnknownCompression   = errors.New("unknown compression type")
	ErrBlockSizeMismatch    = errors.New("decompressed size mismatch")
	ErrBlockExceedsMaxBytes = errors.New("block size exceeds limit")
)

// maxBlockSize caps declared block sizes so a corrupt snapshot cannot
// drive allocations to absurd sizes.
const maxBlockSize = 64 << 20

// Compression defines the compression algorithm used.
type Compression uint8

const (
	// CompressionNone indicates no compression.
	CompressionNone Compression = 0
	// CompressionLZ4 indicates LZ4 block compression (fast).
	CompressionLZ4 Compression = 1
	// CompressionZSTD indicates ZSTD block compression (better ratio).
	CompressionZSTD Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression maps a name ("none", "lz4", "zstd") to a Compression.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCompression, name)
	}
}

// ZSTD encoder/decoder pools for efficiency
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// Options contains configuration options for snapshot writing.
type Options struct {
	// Compression selects the block compression algorithm.
	Compression Compression

	// BlockSize is the uncompressed size of each block.
	BlockSize int
}

// DefaultOptions contains the default snapshot configuration.
var DefaultOptions = Options{
	Compression: CompressionZSTD,
	BlockSize:   256 * 1024,
}

// Writer writes a snapshot stream to an underlying writer. It buffers
// input into fixed-size blocks and compresses each independently. Callers
// must Close the Writer to flush the final block; the underlying writer is
// not closed.
type Writer struct {
	w           io.Writer
	compression Compression
	blockSize   int
	buffer      *bytes.Buffer
	written     int64
}

// NewWriter creates a snapshot writer and emits the snapshot header.
func NewWriter(w io.Writer, optFns ...func(o *Options)) (*Writer, error) {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.BlockSize <= 0 {
		opts.BlockSize = DefaultOptions.BlockSize
	}
	switch opts.Compression {
	case CompressionNone, CompressionLZ4, CompressionZSTD:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, opts.Compression)
	}

	var header [headerSize]byte
	binary.LittleEndian.PutUint32(header[0:], MagicNumber)
	header[4] = Version
	header[5] = uint8(opts.Compression)
	if _, err := w.Write(header[:]); err != nil {
		return nil, err
	}

	return &Writer{
		w:           w,
		compression: opts.Compression,
		blockSize:   opts.BlockSize,
		buffer:      bytes.NewBuffer(make([]byte, 0, opts.BlockSize)),
	}, nil
}

// Write implements io.Writer, flushing full blocks as they fill.
func (sw *Writer) Write(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		space := sw.blockSize - sw.buffer.Len()
		if space <= 0 {
			if err := sw.flushBlock(); err != nil {
				return total, err
			}
			space = sw.blockSize
		}

		toWrite := len(p)
		if toWrite > space {
			toWrite = space
		}

		n, err := sw.buffer.Write(p[:toWrite])
		if err != nil {
			return total, err
		}
		total += n
		p = p[n:]
	}
	return total, nil
}

// Close flushes any buffered data as a final block. It does not close the
// underlying writer.
func (sw *Writer) Close() error {
	return sw.flushBlock()
}

// BytesWritten returns the total block bytes written, headers included.
func (sw *Writer) BytesWritten() int64 {
	return sw.written
}

func (sw *Writer) flushBlock() error {
	if sw.buffer.Len() == 0 {
		return nil
	}

	block, err := compressBlock(sw.buffer.Bytes(), sw.compression)
	if err != nil {
		return err
	}

	n, err := sw.w.Write(block)
	if err != nil {
		return err
	}
	sw.written += int64(n)
	sw.buffer.Reset()
	return nil
}

// compressBlock compresses a block and prepends the block header. Blocks
// that compress to more than 90% of their input are stored raw.
func compressBlock(data []byte, compression Compression) ([]byte, error) {
	var compressed []byte
	var err error

	switch compression {
	case CompressionLZ4:
		compressed, err = compressBlockLZ4(data)
	case CompressionZSTD:
		compressed, err = compressBlockZSTD(data)
	}
	if err != nil {
		return nil, err
	}

	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		// Store raw with header
		result := make([]byte, blockHeaderSize+len(data))
		binary.LittleEndian.PutUint32(result[0:], uint32(len(data)))
		binary.LittleEndian.PutUint32(result[4:], 0) // 0 = uncompressed
		copy(result[blockHeaderSize:], data)
		return result, nil
	}

	result := make([]byte, blockHeaderSize+len(compressed))
	binary.LittleEndian.PutUint32(result[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(result[4:], uint32(len(compressed)))
	copy(result[blockHeaderSize:], compressed)
	return result, nil
}

func compressBlockLZ4(data []byte) ([]byte, error) {
	maxCompressedSize := lz4.CompressBlockBound(len(data))
	compressed := make([]byte, maxCompressedSize)

	n, err := lz4.CompressBlock(data, compressed, nil)
	if err != nil {
		return nil, err
	}

	if n == 0 {
		return nil, nil // Incompressible
	}

	return compressed[:n], nil
}

func compressBlockZSTD(data []byte) ([]byte, error) {
	enc := getZstdEncoder()
	defer putZstdEncoder(enc)

	return enc.EncodeAll(data, nil), nil
}

// Reader reads a snapshot stream, decompressing block by block.
type Reader struct {
	r           io.Reader
	compression Compression
	block       []byte
	off         int
}

// NewReader creates a snapshot reader, consuming and validating the
// snapshot header.
func NewReader(r io.Reader) (*Reader, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	if binary.LittleEndian.Uint32(header[0:]) != MagicNumber {
		return nil, fmt.Errorf("%w: bad magic", ErrInvalidSnapshot)
	}
	if header[4] != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidSnapshot, header[4])
	}
	compression := Compression(header[5])
	switch compression {
	case CompressionNone, CompressionLZ4, CompressionZSTD:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, compression)
	}

	return &Reader{
		r:           r,
		compression: compression,
	}, nil
}

// Compression returns the algorithm the snapshot was written with.
func (sr *Reader) Compression() Compression {
	return sr.compression
}

// Read implements io.Reader over the decompressed stream.
func (sr *Reader) Read(p []byte) (int, error) {
	for sr.off >= len(sr.block) {
		if err := sr.nextBlock(); err != nil {
			return 0, err
		}
	}
	n := copy(p, sr.block[sr.off:])
	sr.off += n
	return n, nil
}

func (sr *Reader) nextBlock() error {
	var header [blockHeaderSize]byte
	if _, err := io.ReadFull(sr.r, header[:]); err != nil {
		if err == io.EOF {
			return io.EOF
		}
		return fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}

	uncompressedSize := binary.LittleEndian.Uint32(header[0:])
	compressedSize := binary.LittleEndian.Uint32(header[4:])
	if uncompressedSize > maxBlockSize || compressedSize > maxBlockSize {
		return ErrBlockExceedsMaxBytes
	}

	if compressedSize == 0 {
		// Uncompressed block
		block := make([]byte, uncompressedSize)
		if _, err := io.ReadFull(sr.r, block); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
		}
		sr.block = block
		sr.off = 0
		return nil
	}

	compressed := make([]byte, compressedSize)
	if _, err := io.ReadFull(sr.r, compressed); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}

	result := make([]byte, uncompressedSize)

	switch sr.compression {
	case CompressionZSTD:
		dec := getZstdDecoder()
		defer putZstdDecoder(dec)

		decoded, err := dec.DecodeAll(compressed, result[:0])
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
		}
		if uint32(len(decoded)) != uncompressedSize {
			return ErrBlockSizeMismatch
		}
		sr.block = decoded

	case CompressionLZ4:
		n, err := lz4.UncompressBlock(compressed, result)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
		}
		if uint32(n) != uncompressedSize {
			return ErrBlockSizeMismatch
		}
		sr.block = result

	default:
		// CompressionNone snapshots always carry compressedSize == 0.
		return fmt.Errorf("%w: compressed block in uncompressed snapshot", ErrInvalidSnapshot)
	}

	sr.off = 0
	return nil
}
