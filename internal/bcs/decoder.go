// Package bcs implements the minimal subset of Binary Canonical
// Serialization decoding this warehouse needs: unsigned LEB128 lengths,
// fixed-width integers, byte vectors, and fixed-width addresses. No
// third-party Go BCS/LCS library appears anywhere in the reference corpus,
// so this is a from-scratch field-by-field decoder in the same manual style
// the corpus uses for its own wire formats (see DESIGN.md).
package bcs

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrShortBuffer is returned when a decode step needs more bytes than
// remain in the input.
var ErrShortBuffer = errors.New("bcs: unexpected end of buffer")

// Decoder reads BCS-encoded primitives from an in-memory byte slice in
// sequence, advancing an internal cursor.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder wraps buf for sequential BCS decoding.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Remaining reports how many bytes are left unread.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.pos
}

// Bytes returns the unread tail without advancing the cursor.
func (d *Decoder) Bytes() []byte {
	return d.buf[d.pos:]
}

func (d *Decoder) take(n int) ([]byte, error) {
	if n < 0 || d.pos+n > len(d.buf) {
		return nil, ErrShortBuffer
	}
	out := d.buf[d.pos : d.pos+n]
	d.pos += n
	return out, nil
}

// ReadULEB128 decodes an unsigned LEB128-encoded length or enum tag, the
// length-prefix format BCS uses ahead of every variable-size value.
func (d *Decoder) ReadULEB128() (uint64, error) {
	var result uint64
	var shift uint
	for {
		b, err := d.take(1)
		if err != nil {
			return 0, fmt.Errorf("bcs: read uleb128: %w", err)
		}
		v := b[0]
		if shift >= 63 && v > 1 {
			return 0, fmt.Errorf("bcs: uleb128 overflow")
		}
		result |= uint64(v&0x7f) << shift
		if v&0x80 == 0 {
			break
		}
		shift += 7
	}
	return result, nil
}

// ReadBool decodes a single BCS boolean byte.
func (d *Decoder) ReadBool() (bool, error) {
	b, err := d.take(1)
	if err != nil {
		return false, fmt.Errorf("bcs: read bool: %w", err)
	}
	switch b[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("bcs: invalid bool byte %d", b[0])
	}
}

// ReadU8 decodes a single unsigned byte.
func (d *Decoder) ReadU8() (uint8, error) {
	b, err := d.take(1)
	if err != nil {
		return 0, fmt.Errorf("bcs: read u8: %w", err)
	}
	return b[0], nil
}

// ReadU32 decodes a little-endian uint32.
func (d *Decoder) ReadU32() (uint32, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, fmt.Errorf("bcs: read u32: %w", err)
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadU64 decodes a little-endian uint64, the width used for sequence
// numbers, balances, and timestamps throughout the chain's resources.
func (d *Decoder) ReadU64() (uint64, error) {
	b, err := d.take(8)
	if err != nil {
		return 0, fmt.Errorf("bcs: read u64: %w", err)
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadU128 decodes a little-endian 128-bit unsigned integer as two uint64
// limbs (low, high); callers that only need magnitude use low when high is
// zero, which holds for every field this decoder is asked to read.
func (d *Decoder) ReadU128() (low, high uint64, err error) {
	b, err := d.take(16)
	if err != nil {
		return 0, 0, fmt.Errorf("bcs: read u128: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:8]), binary.LittleEndian.Uint64(b[8:]), nil
}

// ReadFixedBytes decodes a fixed-width byte array with no length prefix,
// the form used for account addresses and transaction hashes.
func (d *Decoder) ReadFixedBytes(n int) ([]byte, error) {
	b, err := d.take(n)
	if err != nil {
		return nil, fmt.Errorf("bcs: read fixed bytes(%d): %w", n, err)
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// ReadBytes decodes a ULEB128-length-prefixed byte vector.
func (d *Decoder) ReadBytes() ([]byte, error) {
	n, err := d.ReadULEB128()
	if err != nil {
		return nil, err
	}
	return d.ReadFixedBytes(int(n))
}

// ReadString decodes a ULEB128-length-prefixed UTF-8 string.
func (d *Decoder) ReadString() (string, error) {
	b, err := d.ReadBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadVecLen decodes the ULEB128 element count ahead of a BCS vector,
// leaving the caller to decode each element.
func (d *Decoder) ReadVecLen() (int, error) {
	n, err := d.ReadULEB128()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
