package cart

import (
	"bytes"
	"encoding/binary"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Key is a byte slice used as a trie key representation. Use the provided
// constructors to build Keys from primitive types or normalized strings
// rather than converting by hand, so that comparisons between Keys built
// from different source types stay meaningful.
//
// Integer encoding policy
// -----------------------
// Every integer constructor produces an 8-byte big-endian representation
// (most-significant byte first) of the value shifted by `intKeyOffset`
// (1<<63). Shifting before encoding makes lexicographic byte comparison of
// the resulting Keys agree with numeric ordering of the original values,
// including negative ones, and makes Keys built from different integer
// widths or signedness comparable: FromInt32(x) and FromInt64(x) produce
// the same Key for the same numeric x, and FromInt64(0) equals
// FromUint64(0).
type Key []byte

const intKeyOffset = uint64(1) << 63

// FromBytes returns a copy of the provided byte slice as a Key. If b is
// nil this returns an empty (zero-length) Key (not nil).
func FromBytes(b []byte) Key {
	if b == nil {
		return Key{}
	}
	kb := make([]byte, len(b))
	copy(kb, b)
	return Key(kb)
}

// FromString returns a Key produced from the provided string after
// normalizing it to Unicode NFC. The resulting Key contains the UTF-8
// encoding of the normalized string; case and surrounding whitespace are
// left untouched.
func FromString(s string) Key {
	return FromBytes([]byte(norm.NFC.String(s)))
}

// encodeOrderPreserving big-endian-encodes u into an 8-byte Key, the
// shared tail of every integer constructor below: each one only differs
// in how it widens its argument into u before getting here.
func encodeOrderPreserving(u uint64) Key {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], u+intKeyOffset)
	return Key(b[:])
}

// FromInt converts an int to an order-preserving 8-byte Key.
func FromInt(i int) Key { return encodeOrderPreserving(uint64(int64(i))) }

// FromInt64 converts an int64 to an order-preserving 8-byte Key.
func FromInt64(i int64) Key { return encodeOrderPreserving(uint64(i)) }

// FromInt32 converts an int32 to an order-preserving 8-byte Key.
func FromInt32(i int32) Key { return encodeOrderPreserving(uint64(int64(i))) }

// FromInt16 converts an int16 to an order-preserving 8-byte Key.
func FromInt16(i int16) Key { return encodeOrderPreserving(uint64(int64(i))) }

// FromInt8 converts an int8 to an order-preserving 8-byte Key.
func FromInt8(i int8) Key { return encodeOrderPreserving(uint64(int64(i))) }

// FromUint converts a uint to an order-preserving 8-byte Key.
func FromUint(u uint) Key { return encodeOrderPreserving(uint64(u)) }

// FromUint64 converts a uint64 to an order-preserving 8-byte Key.
func FromUint64(u uint64) Key { return encodeOrderPreserving(u) }

// FromUint32 converts a uint32 to an order-preserving 8-byte Key.
func FromUint32(u uint32) Key { return encodeOrderPreserving(uint64(u)) }

// FromUint16 converts a uint16 to an order-preserving 8-byte Key.
func FromUint16(u uint16) Key { return encodeOrderPreserving(uint64(u)) }

// FromUint8 converts a uint8 to an order-preserving 8-byte Key.
func FromUint8(u uint8) Key { return encodeOrderPreserving(uint64(u)) }

// FromByte is an alias for FromUint8.
func FromByte(b byte) Key { return FromUint8(b) }

// FromRune converts a rune to its UTF-8 encoding as a Key.
func FromRune(r rune) Key {
	var buf [utf8.UTFMax]byte
	n := utf8.EncodeRune(buf[:], r)
	return FromBytes(buf[:n])
}

// Bytes returns a copy of the Key as a byte slice.
func (k Key) Bytes() []byte {
	if k == nil {
		return nil
	}
	b := make([]byte, len(k))
	copy(b, k)
	return b
}

// Clone returns an independent copy of the Key, or nil if k is nil.
func (k Key) Clone() Key {
	if k == nil {
		return nil
	}
	return Key(k.Bytes())
}

// String renders the Key as uppercase hex byte tuples, e.g. "[01,AB,00]".
func (k Key) String() string {
	if len(k) == 0 {
		return "[]"
	}
	const hex = "0123456789ABCDEF"
	var sb strings.Builder
	sb.Grow(2 + 3*len(k))
	sb.WriteByte('[')
	for i, b := range k {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte(hex[b>>4])
		sb.WriteByte(hex[b&0x0F])
	}
	sb.WriteByte(']')
	return sb.String()
}

// Equal reports whether k and other have the same contents.
func (k Key) Equal(other Key) bool { return bytes.Equal(k, other) }

// LessThan reports whether k sorts lexicographically before other.
func (k Key) LessThan(other Key) bool { return bytes.Compare(k, other) < 0 }

// LessThanOrEqual reports whether k sorts at or before other.
func (k Key) LessThanOrEqual(other Key) bool { return bytes.Compare(k, other) <= 0 }

// IsEmpty reports whether the Key is empty or nil.
func (k Key) IsEmpty() bool { return len(k) == 0 }

// append extends k in place with the bytes of other, growing k's backing
// array as needed the same way the built-in append would.
func (k *Key) append(other Key) {
	*k = append(*k, other...)
}

// LongestCommonPrefix returns the length of the longest common byte prefix
// of a and b. It is the shared helper every navigation, insert and erase
// path uses to compare a node's skip bytes against a key's remaining tail.
func LongestCommonPrefix(a, b []byte) int {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// KeyTrait converts a user key type K to and from the byte representation
// the trie engine stores internally. FixedLen, when ok is true, asserts
// that every key of type K encodes to the same number of bytes, which a
// future fixed-width specialization could use to drop EOS tracking
// entirely (every leaf path would then be a full key by construction).
type KeyTrait[K any] interface {
	ToBytes(k K) []byte
	FromBytes(b []byte) K
	FixedLen() (n int, ok bool)
}

// ByteKeyTrait is the default KeyTrait for Key (and []byte) keys: the
// identity conversion, variable-length.
type ByteKeyTrait struct{}

func (ByteKeyTrait) ToBytes(k Key) []byte   { return k }
func (ByteKeyTrait) FromBytes(b []byte) Key { return FromBytes(b) }
func (ByteKeyTrait) FixedLen() (int, bool)  { return 0, false }
