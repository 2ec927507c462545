// Package codec provides pure, allocation-light encoders and decoders for
// AFP's on-the-wire primitives: big-endian integers, Pascal strings, AFPName
// records, fixed-width blocks, and even-byte alignment padding. It performs
// no I/O — Command and Reply layer a growable buffer / read cursor on top.
package codec

import (
	"encoding/binary"

	"github.com/marmos91/afpfs/pkg/afperrors"
)

// Writer is a growable byte buffer that AFP commands append fields to.
// Write operations never fail on the buffer itself — growth is unbounded —
// they only enforce AFP's own limits (Pascal strings truncate silently to
// 255 bytes, matching AFP's one-byte Pascal string length prefix).
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer ready to accept fields.
func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 64)}
}

// Bytes returns the accumulated payload. The returned slice aliases the
// Writer's internal buffer and must not be mutated by the caller.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return len(w.buf) }

// PutU8 appends a single byte.
func (w *Writer) PutU8(v uint8) { w.buf = append(w.buf, v) }

// PutU16 appends a big-endian uint16.
func (w *Writer) PutU16(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

// PutU32 appends a big-endian uint32.
func (w *Writer) PutU32(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

// PutU64 appends a big-endian uint64.
func (w *Writer) PutU64(v uint64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, v)
}

// PutI16 appends a big-endian int16.
func (w *Writer) PutI16(v int16) { w.PutU16(uint16(v)) }

// PutI32 appends a big-endian int32.
func (w *Writer) PutI32(v int32) { w.PutU32(uint32(v)) }

// PutI64 appends a big-endian int64.
func (w *Writer) PutI64(v int64) { w.PutU64(uint64(v)) }

// PutRaw appends bytes verbatim, with no length prefix.
func (w *Writer) PutRaw(b []byte) { w.buf = append(w.buf, b...) }

// PutPascal appends a Pascal string: a one-byte length followed by that many
// raw bytes. Per invariant I6, strings longer than 255 bytes are silently
// truncated — AFP has no way to carry a longer one in this field.
func (w *Writer) PutPascal(s string) {
	b := []byte(s)
	if len(b) > 255 {
		b = b[:255]
	}
	w.PutU8(uint8(len(b)))
	w.PutRaw(b)
}

// PutAFPName appends an AFPName: textEncoding:u32, len:u16, then that many
// bytes. Per invariant I6 the length must be representable in 16 bits.
func (w *Writer) PutAFPName(n AFPName) {
	w.PutU32(n.TextEncoding)
	b := n.Bytes
	if len(b) > 0xFFFF {
		b = b[:0xFFFF]
	}
	w.PutU16(uint16(len(b)))
	w.PutRaw(b)
}

// PadToEven appends one zero byte if the buffer's current length is odd.
func (w *Writer) PadToEven() {
	if len(w.buf)%2 != 0 {
		w.PutU8(0)
	}
}

// Reader is a bounds-checked read cursor over a byte slice. All read
// operations are total: on success the cursor advances and the value is
// returned; on failure the cursor is left exactly where it was.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps b for sequential, bounds-checked reads. The Reader does
// not copy b; callers must not mutate it while the Reader is in use.
func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// Len returns the number of unread bytes remaining.
func (r *Reader) Len() int { return len(r.buf) - r.pos }

// Pos returns the current cursor offset from the start of the buffer.
func (r *Reader) Pos() int { return r.pos }

func (r *Reader) require(n int) error {
	if r.Len() < n {
		return afperrors.New(afperrors.ShortRead, "not enough bytes remaining")
	}
	return nil
}

// ReadU8 reads one byte.
func (r *Reader) ReadU8() (uint8, error) {
	if err := r.require(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

// ReadU16 reads a big-endian uint16.
func (r *Reader) ReadU16() (uint16, error) {
	if err := r.require(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

// ReadU32 reads a big-endian uint32.
func (r *Reader) ReadU32() (uint32, error) {
	if err := r.require(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

// ReadU64 reads a big-endian uint64.
func (r *Reader) ReadU64() (uint64, error) {
	if err := r.require(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

// ReadI16 reads a big-endian int16.
func (r *Reader) ReadI16() (int16, error) {
	v, err := r.ReadU16()
	return int16(v), err
}

// ReadI32 reads a big-endian int32.
func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

// ReadI64 reads a big-endian int64.
func (r *Reader) ReadI64() (int64, error) {
	v, err := r.ReadU64()
	return int64(v), err
}

// ReadRaw reads n raw bytes. The returned slice aliases the Reader's buffer.
func (r *Reader) ReadRaw(n int) ([]byte, error) {
	if err := r.require(n); err != nil {
		return nil, err
	}
	v := r.buf[r.pos : r.pos+n]
	r.pos += n
	return v, nil
}

// ReadPascal reads a one-byte length followed by that many bytes. If the
// declared length exceeds the remaining buffer, the cursor rewinds to its
// entry position and ShortRead is returned.
func (r *Reader) ReadPascal() (string, error) {
	start := r.pos
	length, err := r.ReadU8()
	if err != nil {
		return "", err
	}
	b, err := r.ReadRaw(int(length))
	if err != nil {
		r.pos = start
		return "", err
	}
	return string(b), nil
}

// ReadAFPName reads an AFPName. When readTextEncoding is false, encoding
// defaults to MacRoman (0) and is not present on the wire. On any shortfall
// the cursor is restored to its entry position.
func (r *Reader) ReadAFPName(readTextEncoding bool) (AFPName, error) {
	start := r.pos

	var encoding uint32 = MacRomanEncoding
	if readTextEncoding {
		v, err := r.ReadU32()
		if err != nil {
			r.pos = start
			return AFPName{}, err
		}
		encoding = v
	}

	length, err := r.ReadU16()
	if err != nil {
		r.pos = start
		return AFPName{}, err
	}

	b, err := r.ReadRaw(int(length))
	if err != nil {
		r.pos = start
		return AFPName{}, err
	}

	return AFPName{TextEncoding: encoding, Bytes: append([]byte(nil), b...)}, nil
}

// SeekWhence selects the reference point for Seek.
type SeekWhence int

const (
	SeekStart SeekWhence = iota
	SeekCurrent
	SeekEnd
)

// Seek repositions the cursor, rejecting any position outside [0, len(buf)].
func (r *Reader) Seek(offset int, whence SeekWhence) error {
	var target int
	switch whence {
	case SeekStart:
		target = offset
	case SeekCurrent:
		target = r.pos + offset
	case SeekEnd:
		target = len(r.buf) + offset
	default:
		return afperrors.New(afperrors.Malformed, "invalid seek whence")
	}
	if target < 0 || target > len(r.buf) {
		return afperrors.New(afperrors.Malformed, "seek out of range")
	}
	r.pos = target
	return nil
}

// SkipToEven advances the cursor by one byte if the current position is odd.
func (r *Reader) SkipToEven() error {
	if r.pos%2 != 0 {
		_, err := r.ReadU8()
		return err
	}
	return nil
}
