package keycodec

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUint64OrderMatchesNumericOrder(t *testing.T) {
	values := []uint64{5, 1, 1000, 256, 0, 1 << 40}
	keys := make([][]byte, len(values))
	for i, v := range values {
		keys[i] = EncodeUint64(v)
	}

	sorted := append([][]byte{}, keys...)
	sort.Slice(sorted, func(i, j int) bool {
		return string(sorted[i]) < string(sorted[j])
	})

	decoded := make([]uint64, len(sorted))
	for i, k := range sorted {
		decoded[i] = DecodeUint64(k)
	}

	want := append([]uint64{}, values...)
	sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })
	assert.Equal(t, want, decoded)
}

func TestStringRoundTrip(t *testing.T) {
	enc := EncodeString("hello")
	dec, n := DecodeString(enc)
	assert.Equal(t, "hello", dec)
	assert.Equal(t, len(enc), n)
}

func TestConcatThenDecode(t *testing.T) {
	k := Concat(EncodeUint64(42), EncodeString("node_name"))
	assert.Equal(t, uint64(42), DecodeUint64(k[:8]))
	s, _ := DecodeString(k[8:])
	assert.Equal(t, "node_name", s)
}

func TestPrefixUpperBound(t *testing.T) {
	ub := PrefixUpperBound([]byte{0x01, 0x02})
	assert.Equal(t, []byte{0x01, 0x03}, ub)

	assert.Nil(t, PrefixUpperBound([]byte{0xFF, 0xFF}))
}
