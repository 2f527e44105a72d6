// Package npy reads and writes one-dimensional float32 arrays in the
// NumPy .npy format (versions 1.0 and 2.0). It exists so vectors exported
// from Python tooling can be bulk-loaded without a conversion step.
//
// Only little-endian float32 ("<f4"), C-ordered, 1-D arrays are
// supported.
package npy

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
)

var magic = []byte{0x93, 'N', 'U', 'M', 'P', 'Y'}

var (
	ErrInvalidMagic  = errors.New("npy: invalid magic")
	ErrVersion       = errors.New("npy: unsupported version")
	ErrInvalidHeader = errors.New("npy: invalid header")
	ErrDType         = errors.New("npy: unsupported dtype")
	ErrShape         = errors.New("npy: unsupported shape")
)

var headerRe = regexp.MustCompile(`'descr':\s*'([^']+)',\s*'fortran_order':\s*(True|False),\s*'shape':\s*\(([^)]*)\)`)

// ReadVector reads a 1-D float32 array from r.
func ReadVector(r io.Reader) ([]float32, error) {
	br := bufio.NewReader(r)

	var header [8]byte
	if _, err := io.ReadFull(br, header[:]); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidHeader, err)
	}
	if !bytes.Equal(header[:6], magic) {
		return nil, ErrInvalidMagic
	}

	major, minor := header[6], header[7]

	var headerLen int
	switch {
	case major == 1:
		var buf [2]byte
		if _, err := io.ReadFull(br, buf[:]); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidHeader, err)
		}
		headerLen = int(binary.LittleEndian.Uint16(buf[:]))
	case major == 2:
		var buf [4]byte
		if _, err := io.ReadFull(br, buf[:]); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidHeader, err)
		}
		headerLen = int(binary.LittleEndian.Uint32(buf[:]))
	default:
		return nil, fmt.Errorf("%w: %d.%d", ErrVersion, major, minor)
	}

	if headerLen <= 0 || headerLen > 1<<20 {
		return nil, fmt.Errorf("%w: header length %d", ErrInvalidHeader, headerLen)
	}

	dict := make([]byte, headerLen)
	if _, err := io.ReadFull(br, dict); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidHeader, err)
	}

	count, err := parseHeaderDict(string(dict))
	if err != nil {
		return nil, err
	}

	data := make([]byte, count*4)
	if _, err := io.ReadFull(br, data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidHeader, err)
	}

	out := make([]float32, count)
	for i := range out {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		out[i] = math.Float32frombits(bits)
	}
	return out, nil
}

func parseHeaderDict(dict string) (int, error) {
	m := headerRe.FindStringSubmatch(dict)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidHeader, strings.TrimRight(dict, " \n"))
	}

	if m[1] != "<f4" {
		return 0, fmt.Errorf("%w: %q (want \"<f4\")", ErrDType, m[1])
	}
	if m[2] != "False" {
		return 0, fmt.Errorf("%w: fortran order", ErrShape)
	}

	// A 1-D shape renders as "(N,)"
	dims := strings.Split(strings.TrimSuffix(strings.TrimSpace(m[3]), ","), ",")
	if len(dims) != 1 {
		return 0, fmt.Errorf("%w: %d dimensions", ErrShape, len(dims))
	}

	count, err := strconv.Atoi(strings.TrimSpace(dims[0]))
	if err != nil || count < 0 {
		return 0, fmt.Errorf("%w: shape (%s)", ErrShape, m[3])
	}
	return count, nil
}

// ReadVectorFile reads a 1-D float32 array from a .npy file.
func ReadVectorFile(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadVector(f)
}

// WriteVector writes v to w as a version 1.0 .npy file.
func WriteVector(w io.Writer, v []float32) error {
	dict := fmt.Sprintf("{'descr': '<f4', 'fortran_order': False, 'shape': (%d,), }", len(v))

	// Total header (magic + version + length + dict + newline) must be a
	// multiple of 64.
	base := len(magic) + 2 + 2
	pad := 64 - (base+len(dict)+1)%64
	if pad == 64 {
		pad = 0
	}
	dict = dict + strings.Repeat(" ", pad) + "\n"

	bw := bufio.NewWriter(w)
	bw.Write(magic)
	bw.WriteByte(1)
	bw.WriteByte(0)

	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(dict)))
	bw.Write(lenBuf[:])
	bw.WriteString(dict)

	var fbuf [4]byte
	for _, x := range v {
		binary.LittleEndian.PutUint32(fbuf[:], math.Float32bits(x))
		if _, err := bw.Write(fbuf[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteVectorFile writes v to path as a .npy file.
func WriteVectorFile(path string, v []float32) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := WriteVector(f, v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
