package dsi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{
		Flags:           RequestFlag,
		Command:         OpenSession,
		RequestID:       0,
		ErrorOrOffset:   0,
		TotalDataLength: 0,
		Reserved:        0,
	}

	encoded := h.Encode()
	require.Len(t, encoded, HeaderSize)

	got, err := DecodeHeader(encoded)
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

// OPEN_SESSION handshake against a fixed wire vector.
func TestOpenSessionHandshakeVector(t *testing.T) {
	req := Header{Flags: 0, Command: OpenSession, RequestID: 0, ErrorOrOffset: 0, TotalDataLength: 0, Reserved: 0}
	assert.Equal(t, []byte{0, 4, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}, req.Encode())

	replyPayload := []byte{0x00, 0x04, 0x00, 0x00, 0x20, 0x00}
	opts := ParseOpenSessionOptions(replyPayload)
	assert.Equal(t, uint32(0x2000), opts.Quanta)
}

func TestDecodeHeaderShortRead(t *testing.T) {
	_, err := DecodeHeader([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestParseOpenSessionOptionsIgnoresUnknownType(t *testing.T) {
	payload := []byte{
		0xFF, 0x02, 0xAA, 0xBB, // unknown option, ignored
		OptionRequestQuanta, 0x04, 0x00, 0x00, 0x10, 0x00,
	}
	opts := ParseOpenSessionOptions(payload)
	assert.Equal(t, uint32(0x1000), opts.Quanta)
}
