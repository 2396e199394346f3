// Package binary reads and writes the fixed-width fields of the vol
// container.
//
// Readers and writers work on plain streams and keep a running xxhash
// digest of every byte that passes, so a record can be checksummed without
// buffering it.
package binary

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/cespare/xxhash/v2"
)

// ErrInvalidSize is returned when an invalid length size is specified.
var ErrInvalidSize = errors.New("invalid length size: must be 2, 4, or 8")

// Config holds the byte order and width of length fields.
type Config struct {
	ByteOrder  binary.ByteOrder
	LengthSize int // 2, 4, or 8 bytes
}

// DefaultConfig returns little-endian byte order and 8-byte lengths.
func DefaultConfig() Config {
	return Config{
		ByteOrder:  binary.LittleEndian,
		LengthSize: 8,
	}
}

func validSize(n int) bool {
	return n == 2 || n == 4 || n == 8
}

// Reader reads fixed-width fields from a stream.
type Reader struct {
	r          io.Reader
	order      binary.ByteOrder
	lengthSize int
	digest     *xxhash.Digest
}

// NewReader creates a binary reader with the given configuration.
func NewReader(r io.Reader, cfg Config) *Reader {
	return &Reader{
		r:          r,
		order:      cfg.ByteOrder,
		lengthSize: cfg.LengthSize,
		digest:     xxhash.New(),
	}
}

// SetLengthSize changes the width of length fields, typically after
// reading it from a preamble.
func (r *Reader) SetLengthSize(n int) error {
	if !validSize(n) {
		return ErrInvalidSize
	}
	r.lengthSize = n
	return nil
}

// ReadBytes reads exactly n bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return nil, err
	}
	r.digest.Write(buf)
	return buf, nil
}

// ReadInto copies exactly n bytes to w. Memory grows with the bytes that
// actually arrive, so a length field larger than the stream fails with
// io.ErrUnexpectedEOF instead of allocating n bytes up front.
func (r *Reader) ReadInto(w io.Writer, n int64) error {
	got, err := io.CopyN(io.MultiWriter(w, r.digest), r.r, n)
	if got < n && (err == nil || err == io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// ReadFull fills buf.
func (r *Reader) ReadFull(buf []byte) error {
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return err
	}
	r.digest.Write(buf)
	return nil
}

// ReadUint8 reads an unsigned 8-bit integer.
func (r *Reader) ReadUint8() (uint8, error) {
	buf, err := r.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadUint16 reads an unsigned 16-bit integer.
func (r *Reader) ReadUint16() (uint16, error) {
	buf, err := r.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return r.order.Uint16(buf), nil
}

// ReadUint32 reads an unsigned 32-bit integer.
func (r *Reader) ReadUint32() (uint32, error) {
	buf, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return r.order.Uint32(buf), nil
}

// ReadUint64 reads an unsigned 64-bit integer.
func (r *Reader) ReadUint64() (uint64, error) {
	buf, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return r.order.Uint64(buf), nil
}

// ReadLength reads a length field of the configured width.
func (r *Reader) ReadLength() (uint64, error) {
	buf, err := r.ReadBytes(r.lengthSize)
	if err != nil {
		return 0, err
	}
	switch r.lengthSize {
	case 2:
		return uint64(r.order.Uint16(buf)), nil
	case 4:
		return uint64(r.order.Uint32(buf)), nil
	default:
		return r.order.Uint64(buf), nil
	}
}

// Skip discards n bytes.
func (r *Reader) Skip(n int64) error {
	_, err := io.CopyN(r.digest, r.r, n)
	return err
}

// Sum returns the digest of the bytes read since the last ResetSum.
func (r *Reader) Sum() uint64 {
	return r.digest.Sum64()
}

// ResetSum restarts the digest.
func (r *Reader) ResetSum() {
	r.digest.Reset()
}
