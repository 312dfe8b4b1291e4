package wire

import (
	"encoding/binary"

	"firestige.xyz/pktforge/internal/core"
)

// ConvertNToBytes encodes value as a big-endian integer of size bytes.
//
// Size 1 returns the low byte without a range check. Sizes 2, 4 and 8 reject
// values that do not fit. Any other size is an *core.InvalidLengthBytesError.
func ConvertNToBytes(value uint64, size int) ([]byte, error) {
	if size == 1 {
		return []byte{byte(value)}, nil
	}
	if size != 2 && size != 4 && size != 8 {
		return nil, &core.InvalidLengthBytesError{Size: size}
	}
	if size < 8 && value >= uint64(1)<<(uint(size)*8) {
		return nil, &core.ValueTooLargeError{Value: value, Size: size}
	}

	buf := make([]byte, size)
	switch size {
	case 2:
		binary.BigEndian.PutUint16(buf, uint16(value))
	case 4:
		binary.BigEndian.PutUint32(buf, uint32(value))
	case 8:
		binary.BigEndian.PutUint64(buf, value)
	}
	return buf, nil
}

// PushBytes copies data into buf at offset and returns the offset just past
// the copied bytes. buf must have room for len(data) bytes at offset.
func PushBytes(buf []byte, offset int, data []byte) int {
	copy(buf[offset:offset+len(data)], data)
	return offset + len(data)
}

// Encoder appends fixed-width fields to a pre-sized buffer. The first
// encoding error sticks and later writes are skipped.
type Encoder struct {
	buf    []byte
	offset int
	err    error
}

// NewEncoder returns an Encoder over a zeroed buffer of exactly size bytes.
func NewEncoder(size int) *Encoder {
	return &Encoder{buf: make([]byte, size)}
}

// Uint writes value as a size-byte big-endian field.
func (e *Encoder) Uint(value uint64, size int) {
	if e.err != nil {
		return
	}
	b, err := ConvertNToBytes(value, size)
	if err != nil {
		e.err = err
		return
	}
	e.offset = PushBytes(e.buf, e.offset, b)
}

// Raw writes data as-is.
func (e *Encoder) Raw(data []byte) {
	if e.err != nil {
		return
	}
	e.offset = PushBytes(e.buf, e.offset, data)
}

// Offset returns the current write position.
func (e *Encoder) Offset() int { return e.offset }

// Bytes returns the encoded buffer or the first error.
func (e *Encoder) Bytes() ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.buf, nil
}
