package persistence

import "errors"

const (
	// MagicNumber identifies feather index files (ASCII: "FTH1")
	MagicNumber = 0x46544831
	// Version is the current file format version
	Version = 0x00000001

	// HeaderSize is the size of FileHeader on disk in bytes.
	HeaderSize = 24

	// MaxEntryCount caps the declared entry count so a corrupt header
	// cannot drive allocations to absurd sizes.
	MaxEntryCount = 100_000_000
)

var (
	ErrInvalidMagic   = errors.New("invalid magic number")
	ErrInvalidVersion = errors.New("unsupported version")
	ErrInvalidHeader  = errors.New("invalid header field")
	ErrTruncated      = errors.New("truncated file")
	ErrTrailingData   = errors.New("trailing data after last record")
)

// FileHeader is the 24-byte header at the start of every index file.
// All fields are little-endian on disk.
type FileHeader struct {
	Magic      uint32 // 0x46544831 ("FTH1")
	Version    uint32 // File format version
	Dimension  uint64 // Vector length for every record
	EntryCount uint64 // Number of records following the header
}

// RecordSize returns the on-disk size of a single record for the given
// dimension: an 8-byte id followed by dimension float32 components.
func RecordSize(dimension int) int {
	return 8 + 4*dimension
}
