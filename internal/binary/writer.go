package binary

import (
	"encoding/binary"
	"io"

	"github.com/cespare/xxhash/v2"
)

// Writer writes fixed-width fields to a stream.
type Writer struct {
	w          io.Writer
	order      binary.ByteOrder
	lengthSize int
	digest     *xxhash.Digest
	scratch    [8]byte
}

// NewWriter creates a binary writer with the given configuration.
func NewWriter(w io.Writer, cfg Config) *Writer {
	return &Writer{
		w:          w,
		order:      cfg.ByteOrder,
		lengthSize: cfg.LengthSize,
		digest:     xxhash.New(),
	}
}

// WriteBytes writes data.
func (w *Writer) WriteBytes(data []byte) error {
	n, err := w.w.Write(data)
	w.digest.Write(data[:n])
	return err
}

func (w *Writer) WriteUint8(v uint8) error {
	w.scratch[0] = v
	return w.WriteBytes(w.scratch[:1])
}

func (w *Writer) WriteUint16(v uint16) error {
	w.order.PutUint16(w.scratch[:2], v)
	return w.WriteBytes(w.scratch[:2])
}

func (w *Writer) WriteUint32(v uint32) error {
	w.order.PutUint32(w.scratch[:4], v)
	return w.WriteBytes(w.scratch[:4])
}

func (w *Writer) WriteUint64(v uint64) error {
	w.order.PutUint64(w.scratch[:], v)
	return w.WriteBytes(w.scratch[:])
}

// WriteLength writes v as a length field of the configured width.
func (w *Writer) WriteLength(v uint64) error {
	switch w.lengthSize {
	case 2:
		return w.WriteUint16(uint16(v))
	case 4:
		return w.WriteUint32(uint32(v))
	default:
		return w.WriteUint64(v)
	}
}

// Sum returns the digest of the bytes written since the last ResetSum.
func (w *Writer) Sum() uint64 {
	return w.digest.Sum64()
}

// ResetSum restarts the digest.
func (w *Writer) ResetSum() {
	w.digest.Reset()
}
