package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTripIntegers(t *testing.T) {
	w := NewWriter()
	w.PutU8(0xAB)
	w.PutU16(0x1234)
	w.PutU32(0xDEADBEEF)
	w.PutU64(0x0102030405060708)
	w.PutI16(-1)
	w.PutI32(-1000000)
	w.PutI64(-1)

	r := NewReader(w.Bytes())

	u8, err := r.ReadU8()
	require.NoError(t, err)
	assert.Equal(t, uint8(0xAB), u8)

	u16, err := r.ReadU16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), u16)

	u32, err := r.ReadU32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xDEADBEEF), u32)

	u64, err := r.ReadU64()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0102030405060708), u64)

	i16, err := r.ReadI16()
	require.NoError(t, err)
	assert.Equal(t, int16(-1), i16)

	i32, err := r.ReadI32()
	require.NoError(t, err)
	assert.Equal(t, int32(-1000000), i32)

	i64, err := r.ReadI64()
	require.NoError(t, err)
	assert.Equal(t, int64(-1), i64)

	assert.Zero(t, r.Len())
}

func TestPascalStringRoundTrip(t *testing.T) {
	w := NewWriter()
	w.PutPascal("hello")
	r := NewReader(w.Bytes())

	s, err := r.ReadPascal()
	require.NoError(t, err)
	assert.Equal(t, "hello", s)
}

func TestPascalStringTruncatesAt255(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}

	w := NewWriter()
	w.PutPascal(string(long))

	assert.Equal(t, uint8(255), w.Bytes()[0])
	assert.Len(t, w.Bytes(), 256)
}

func TestPascalShortReadRewinds(t *testing.T) {
	// length byte claims 10 bytes follow, but only 2 are present.
	buf := []byte{10, 'a', 'b'}
	r := NewReader(buf)

	_, err := r.ReadPascal()
	require.Error(t, err)
	assert.Zero(t, r.Pos(), "cursor must rewind to entry position on short read")
}

func TestAFPNameRoundTrip(t *testing.T) {
	name := NewAFPName(0x00000001, "résumé.txt")

	w := NewWriter()
	w.PutAFPName(name)

	r := NewReader(w.Bytes())
	got, err := r.ReadAFPName(true)
	require.NoError(t, err)
	assert.Equal(t, name.TextEncoding, got.TextEncoding)
	assert.Equal(t, name.Bytes, got.Bytes)
}

func TestAFPNameDefaultsToMacRomanWithoutEncoding(t *testing.T) {
	w := NewWriter()
	w.PutU16(3)
	w.PutRaw([]byte("abc"))

	r := NewReader(w.Bytes())
	got, err := r.ReadAFPName(false)
	require.NoError(t, err)
	assert.Equal(t, MacRomanEncoding, got.TextEncoding)
	assert.Equal(t, "abc", got.String())
}

func TestPadToEven(t *testing.T) {
	w := NewWriter()
	w.PutRaw([]byte{1, 2, 3})
	w.PadToEven()
	assert.Len(t, w.Bytes(), 4)
	assert.Equal(t, uint8(0), w.Bytes()[3])

	w2 := NewWriter()
	w2.PutRaw([]byte{1, 2, 3, 4})
	w2.PadToEven()
	assert.Len(t, w2.Bytes(), 4, "already-even buffer must not grow")
}

func TestSkipToEven(t *testing.T) {
	r := NewReader([]byte{1, 2, 3, 4, 5})
	_, _ = r.ReadU8()
	_, _ = r.ReadU8()
	_, _ = r.ReadU8()
	require.NoError(t, r.SkipToEven())
	assert.Equal(t, 4, r.Pos())
}

func TestSeekBoundsChecked(t *testing.T) {
	r := NewReader([]byte{1, 2, 3})
	require.NoError(t, r.Seek(2, SeekStart))
	assert.Equal(t, 2, r.Pos())

	err := r.Seek(10, SeekStart)
	assert.Error(t, err)

	err = r.Seek(-1, SeekStart)
	assert.Error(t, err)
}
