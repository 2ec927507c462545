package connection

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/afpfs/pkg/command"
	"github.com/marmos91/afpfs/pkg/dsi"
)

// fakeServer drives one end of a net.Pipe, answering DSI frames from a
// caller-supplied handler.
func fakeServer(t *testing.T, server net.Conn, handle func(h dsi.Header, payload []byte) (dsi.Header, []byte)) {
	t.Helper()
	go func() {
		for {
			headerBuf := make([]byte, dsi.HeaderSize)
			if _, err := readFull(server, headerBuf); err != nil {
				return
			}
			h, err := dsi.DecodeHeader(headerBuf)
			if err != nil {
				return
			}
			var payload []byte
			if h.TotalDataLength > 0 {
				payload = make([]byte, h.TotalDataLength)
				if _, err := readFull(server, payload); err != nil {
					return
				}
			}

			if h.Command == dsi.Tickle {
				continue
			}

			replyHeader, replyPayload := handle(h, payload)
			replyHeader.TotalDataLength = uint32(len(replyPayload))
			if _, err := server.Write(replyHeader.Encode()); err != nil {
				return
			}
			if len(replyPayload) > 0 {
				if _, err := server.Write(replyPayload); err != nil {
					return
				}
			}
		}
	}()
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func TestSendCommandRoundTrip(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	fakeServer(t, server, func(h dsi.Header, payload []byte) (dsi.Header, []byte) {
		return dsi.Header{Flags: dsi.ReplyFlag, Command: h.Command, RequestID: h.RequestID}, []byte{0xAA, 0xBB}
	})

	conn := New(client, Options{TickleInterval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go conn.Run(ctx)

	cmd := command.New(command.GetSrvrInfo)
	rep, err := conn.SendCommand(context.Background(), cmd, 0)
	require.NoError(t, err)
	assert.True(t, rep.OK())
	assert.Equal(t, 2, rep.Len())
}

func TestSendCommandPropagatesResultCode(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	fakeServer(t, server, func(h dsi.Header, payload []byte) (dsi.Header, []byte) {
		return dsi.Header{Flags: dsi.ReplyFlag, Command: h.Command, RequestID: h.RequestID, ErrorOrOffset: uint32(int32(-5018))}, nil
	})

	conn := New(client, Options{TickleInterval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go conn.Run(ctx)

	rep, err := conn.SendCommand(context.Background(), command.New(command.GetFileDirParms), 0)
	require.NoError(t, err)
	assert.False(t, rep.OK())
	assert.EqualValues(t, -5018, rep.ResultCode)
}

func TestSendCommandCancelledByContext(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	defer client.Close()

	conn := New(client, Options{TickleInterval: time.Hour})
	ctx := context.Background()
	go conn.Run(ctx)

	reqCtx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := conn.SendCommand(reqCtx, command.New(command.GetSrvrInfo), 0)
	assert.Error(t, err)
}

func TestIncomingTickleGetsAnswered(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	conn := New(client, Options{TickleInterval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go conn.Run(ctx)

	require.NoError(t, server.SetWriteDeadline(time.Now().Add(2*time.Second)))
	_, err := server.Write(dsi.Header{Flags: dsi.RequestFlag, Command: dsi.Tickle}.Encode())
	require.NoError(t, err)

	require.NoError(t, server.SetReadDeadline(time.Now().Add(2*time.Second)))
	headerBuf := make([]byte, dsi.HeaderSize)
	_, err = readFull(server, headerBuf)
	require.NoError(t, err)

	h, err := dsi.DecodeHeader(headerBuf)
	require.NoError(t, err)
	assert.Equal(t, dsi.Tickle, h.Command)
	assert.Equal(t, dsi.RequestFlag, h.Flags)
}

func TestConcurrentRequestsGetDistinctIDs(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	fakeServer(t, server, func(h dsi.Header, payload []byte) (dsi.Header, []byte) {
		return dsi.Header{Flags: dsi.ReplyFlag, Command: h.Command, RequestID: h.RequestID}, nil
	})

	conn := New(client, Options{TickleInterval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go conn.Run(ctx)

	results := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func() {
			_, err := conn.SendCommand(context.Background(), command.New(command.GetSrvrInfo), 0)
			results <- err
		}()
	}

	for i := 0; i < 10; i++ {
		require.NoError(t, <-results)
	}
}
