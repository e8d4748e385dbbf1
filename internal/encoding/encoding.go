// Package encoding provides the little-endian framing used to serialize
// built functions: fixed-width scalars and length-prefixed integer slices.
//
// Reader errors are sticky. After the first failure every accessor returns a
// zero value, so decoders can read a whole structure and check Err once.
package encoding

import (
	"encoding/binary"
	"fmt"

	mphferrors "github.com/stefanfred/MPHF-Experiments/errors"
)

// Writer appends encoded values to a byte slice.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer appending to buf.
func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf}
}

// Bytes returns the encoded data.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Uint8 writes a single byte.
func (w *Writer) Uint8(v uint8) {
	w.buf = append(w.buf, v)
}

// Uint16 writes v as 2 little-endian bytes.
func (w *Writer) Uint16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

// Uint32 writes v as 4 little-endian bytes.
func (w *Writer) Uint32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// Uint64 writes v as 8 little-endian bytes.
func (w *Writer) Uint64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

// Uint64s writes a uint64 length followed by the values.
func (w *Writer) Uint64s(vs []uint64) {
	w.Uint64(uint64(len(vs)))
	for _, v := range vs {
		w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
	}
}

// Uint32s writes a uint64 length followed by the values.
func (w *Writer) Uint32s(vs []uint32) {
	w.Uint64(uint64(len(vs)))
	for _, v := range vs {
		w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
	}
}

// Uint16s writes a uint64 length followed by the values.
func (w *Writer) Uint16s(vs []uint16) {
	w.Uint64(uint64(len(vs)))
	for _, v := range vs {
		w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
	}
}

// Uint8s writes a uint64 length followed by the raw bytes.
func (w *Writer) Uint8s(vs []uint8) {
	w.Uint64(uint64(len(vs)))
	w.buf = append(w.buf, vs...)
}

// Reader decodes values written by Writer.
type Reader struct {
	data []byte
	off  int
	err  error
}

// NewReader returns a Reader over data. Decoded slices never alias data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Err returns the first decoding error.
func (r *Reader) Err() error {
	return r.err
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

// Fail records err unless an earlier error is already recorded. Decoders use
// it to report semantic validation failures through the same sticky path.
func (r *Reader) Fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.Remaining() < n {
		r.err = mphferrors.ErrTruncatedFile
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

// Uint8 reads a single byte.
func (r *Reader) Uint8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// Uint16 reads a little-endian uint16.
func (r *Reader) Uint16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

// Uint32 reads a little-endian uint32.
func (r *Reader) Uint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// Uint64 reads a little-endian uint64.
func (r *Reader) Uint64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// length reads a slice length and checks that width*length bytes remain.
func (r *Reader) length(width int) int {
	n := r.Uint64()
	if r.err != nil {
		return 0
	}
	if n > uint64(r.Remaining()/width) {
		r.err = fmt.Errorf("%w: slice of %d elements exceeds remaining %d bytes",
			mphferrors.ErrCorruptedIndex, n, r.Remaining())
		return 0
	}
	return int(n)
}

// Uint64s reads a slice written by Writer.Uint64s.
func (r *Reader) Uint64s() []uint64 {
	n := r.length(8)
	b := r.take(n * 8)
	if b == nil {
		return nil
	}
	vs := make([]uint64, n)
	for i := range vs {
		vs[i] = binary.LittleEndian.Uint64(b[i*8:])
	}
	return vs
}

// Uint32s reads a slice written by Writer.Uint32s.
func (r *Reader) Uint32s() []uint32 {
	n := r.length(4)
	b := r.take(n * 4)
	if b == nil {
		return nil
	}
	vs := make([]uint32, n)
	for i := range vs {
		vs[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return vs
}

// Uint16s reads a slice written by Writer.Uint16s.
func (r *Reader) Uint16s() []uint16 {
	n := r.length(2)
	b := r.take(n * 2)
	if b == nil {
		return nil
	}
	vs := make([]uint16, n)
	for i := range vs {
		vs[i] = binary.LittleEndian.Uint16(b[i*2:])
	}
	return vs
}

// Uint8s reads a slice written by Writer.Uint8s. The result is a copy.
func (r *Reader) Uint8s() []uint8 {
	n := r.length(1)
	b := r.take(n)
	if b == nil {
		return nil
	}
	return append([]uint8(nil), b...)
}
