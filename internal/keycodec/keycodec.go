// Package keycodec implements the fixed, big-endian, deterministic
// encodings shared by every persistent container in the engine (spec.md
// section 4.1 and section 6). Integers are encoded so that lexicographic
// byte order equals numeric order; composite keys concatenate
// fixed-width fields first, then a NUL-terminated string suffix when one
// is present.
package keycodec

import (
	"bytes"
	"encoding/binary"
)

// EncodeUint64 encodes v as 8 fixed big-endian bytes.
func EncodeUint64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// DecodeUint64 decodes 8 fixed big-endian bytes into a uint64. It panics
// if b is shorter than 8 bytes, since malformed keys are a fatal,
// programmer-visible error for the current operation (spec.md section
// 4.1 failure modes).
func DecodeUint64(b []byte) uint64 {
	return binary.BigEndian.Uint64(b[:8])
}

// EncodeUint32 encodes v as 4 fixed big-endian bytes.
func EncodeUint32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

// DecodeUint32 decodes 4 fixed big-endian bytes into a uint32.
func DecodeUint32(b []byte) uint32 {
	return binary.BigEndian.Uint32(b[:4])
}

// EncodeString encodes s as its raw UTF-8 bytes followed by a single NUL
// terminator, so that it can be safely concatenated after fixed-width
// fields in a composite key without ambiguity.
func EncodeString(s string) []byte {
	b := make([]byte, 0, len(s)+1)
	b = append(b, s...)
	b = append(b, 0)
	return b
}

// DecodeString reads a NUL-terminated string starting at the beginning
// of b and returns the decoded string together with the number of bytes
// consumed (including the terminator).
func DecodeString(b []byte) (string, int) {
	idx := bytes.IndexByte(b, 0)
	if idx < 0 {
		return string(b), len(b)
	}
	return string(b[:idx]), idx + 1
}

// Concat joins pre-encoded fields into a single composite key. Callers
// are expected to put fixed-width fields first and at most one trailing
// NUL-terminated string, per the composite-key rule in spec.md section
// 4.1.
func Concat(parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// PrefixUpperBound returns the smallest key that is strictly greater than
// every key with the given prefix, for use as the exclusive upper bound
// of a Range scan. It returns nil when the prefix is all 0xFF bytes (no
// finite upper bound exists).
func PrefixUpperBound(prefix []byte) []byte {
	out := make([]byte, len(prefix))
	copy(out, prefix)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] != 0xFF {
			out[i]++
			return out[:i+1]
		}
	}
	return nil
}
