package trace

import (
	"encoding/binary"
	"fmt"

	"github.com/ardnew/devcore/pkg"
)

// Magic starts every record.
const Magic uint32 = 0xDEADBEEF

// Record geometry.
const (
	// HeaderSize is the packed size of [Header] on the wire.
	HeaderSize = 16
	// EntryMaxSize bounds a whole record, header included.
	EntryMaxSize = 256
	// MaxDataSize bounds the payload of one record.
	MaxDataSize = EntryMaxSize - HeaderSize
)

// Type packs a record kind in its low nibble and a kind-specific subtype in
// its high nibble.
type Type uint8

// Record kinds.
const (
	TypeString Type = iota
	TypeKernel
	TypeBinary
	numTypes
)

// MakeType combines kind and subtype.
func MakeType(kind Type, subtype uint8) Type {
	return kind&0xf | Type(subtype&0xf)<<4
}

// Kind returns the record kind.
func (t Type) Kind() Type { return t & 0xf }

// Subtype returns the kind-specific subtype.
func (t Type) Subtype() uint8 { return uint8(t>>4) & 0xf }

// String returns a string representation of the type.
func (t Type) String() string {
	switch t.Kind() {
	case TypeString:
		return "string"
	case TypeKernel:
		return "kernel/" + KernelEvent(t.Subtype()).String()
	case TypeBinary:
		return "binary"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// Header precedes every record payload. On the wire it is packed little
// endian: magic u32, timestamp u64, type u8, cpu u8, len u16.
type Header struct {
	Magic     uint32
	Timestamp uint64
	Type      Type
	CPU       uint8
	Len       uint16
}

// Size returns the size of the whole record.
func (h Header) Size() int { return HeaderSize + int(h.Len) }

// Put encodes h into the first [HeaderSize] bytes of p.
func (h Header) Put(p []byte) {
	_ = p[HeaderSize-1]
	binary.LittleEndian.PutUint32(p[0:], h.Magic)
	binary.LittleEndian.PutUint64(p[4:], h.Timestamp)
	p[12] = uint8(h.Type)
	p[13] = h.CPU
	binary.LittleEndian.PutUint16(p[14:], h.Len)
}

// ParseHeader decodes a header from the start of p without checking the
// magic.
func ParseHeader(p []byte) (Header, error) {
	if len(p) < HeaderSize {
		return Header{}, fmt.Errorf("trace: header needs %d bytes, have %d: %w",
			HeaderSize, len(p), pkg.ErrInvalidArgs)
	}
	return Header{
		Magic:     binary.LittleEndian.Uint32(p[0:]),
		Timestamp: binary.LittleEndian.Uint64(p[4:]),
		Type:      Type(p[12]),
		CPU:       p[13],
		Len:       binary.LittleEndian.Uint16(p[14:]),
	}, nil
}

// ErrBadMagic reports a record that does not start with [Magic].
var ErrBadMagic = fmt.Errorf("trace: wrong magic: %w", pkg.ErrNotValid)

// Decode walks the records in p and calls fn with each header and payload.
// The payload aliases p. A trailing partial record is left undecoded; n is
// the number of bytes consumed by whole records. Decode stops at the first
// record with a wrong magic, returning [ErrBadMagic], or at the first error
// from fn.
func Decode(p []byte, fn func(Header, []byte) error) (n int, err error) {
	for len(p)-n >= HeaderSize {
		h, _ := ParseHeader(p[n:])
		if h.Magic != Magic {
			return n, fmt.Errorf("offset %d: %w", n, ErrBadMagic)
		}
		if len(p)-n < h.Size() {
			break
		}
		if err := fn(h, p[n+HeaderSize:n+h.Size()]); err != nil {
			return n, err
		}
		n += h.Size()
	}
	return n, nil
}
