package reply

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/afpfs/pkg/afperrors"
	"github.com/marmos91/afpfs/pkg/codec"
)

func TestOKReflectsResultCode(t *testing.T) {
	ok := New(afperrors.NoError, nil)
	assert.True(t, ok.OK())

	failed := New(afperrors.ObjectNotFound, nil)
	assert.False(t, failed.OK())
}

func TestReadsUnderlyingPayload(t *testing.T) {
	w := codec.NewWriter()
	w.PutU16(0x1234)
	w.PutPascal("volname")

	rp := New(afperrors.NoError, w.Bytes())

	u16, err := rp.R().ReadU16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), u16)

	name, err := rp.R().ReadPascal()
	require.NoError(t, err)
	assert.Equal(t, "volname", name)

	assert.Zero(t, rp.Len())
}

func TestSeekAndSkipToEven(t *testing.T) {
	rp := New(afperrors.NoError, []byte{1, 2, 3, 4, 5})

	require.NoError(t, rp.Seek(3, codec.SeekStart))
	assert.Equal(t, 3, rp.Pos())

	require.NoError(t, rp.SkipToEven())
	assert.Equal(t, 4, rp.Pos())
}
