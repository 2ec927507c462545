package volume

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/afpfs/pkg/afperrors"
	"github.com/marmos91/afpfs/pkg/codec"
	"github.com/marmos91/afpfs/pkg/command"
	"github.com/marmos91/afpfs/pkg/connection"
	"github.com/marmos91/afpfs/pkg/dsi"
)

// fakeServer drives one end of a net.Pipe, answering DSI command frames
// from a caller-supplied handler keyed by command type. Tickles are
// swallowed; anything the handler doesn't recognize gets NoError/empty.
func fakeServer(t *testing.T, server net.Conn, handle func(cmdType uint8, body []byte) (afperrors.ResultCode, []byte)) {
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

			var cmdType uint8
			var body []byte
			if len(payload) > 0 {
				cmdType = payload[0]
				body = payload[1:]
			}
			resultCode, replyBody := handle(cmdType, body)

			replyHeader := dsi.Header{
				Flags:           dsi.ReplyFlag,
				Command:         h.Command,
				RequestID:       h.RequestID,
				ErrorOrOffset:   uint32(int32(resultCode)),
				TotalDataLength: uint32(len(replyBody)),
			}
			if _, err := server.Write(replyHeader.Encode()); err != nil {
				return
			}
			if len(replyBody) > 0 {
				if _, err := server.Write(replyBody); err != nil {
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

// newMountedVolume dials an in-process fake AFP server over net.Pipe,
// answers OPEN_VOL, and returns a Volume already mounted against it.
func newMountedVolume(t *testing.T, version string, handle func(cmdType uint8, body []byte) (afperrors.ResultCode, []byte)) (*Volume, func()) {
	t.Helper()
	client, server := net.Pipe()

	fakeServer(t, server, func(cmdType uint8, body []byte) (afperrors.ResultCode, []byte) {
		if cmdType == uint8(command.OpenVol) {
			w := codec.NewWriter()
			w.PutU16(uint16(VolIDBit))
			w.PutU16(1)  // attributes
			w.PutU16(7)  // volume id
			return afperrors.NoError, w.Bytes()
		}
		return handle(cmdType, body)
	})

	conn := connection.New(client, connection.Options{TickleInterval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	go conn.Run(ctx)

	v := New(conn, version)
	require.NoError(t, v.Mount(context.Background(), "Share"))

	return v, func() {
		v.Close()
		cancel()
		server.Close()
	}
}

func TestDeleteRoundTrip(t *testing.T) {
	v, cleanup := newMountedVolume(t, "AFP3.3", func(cmdType uint8, body []byte) (afperrors.ResultCode, []byte) {
		return afperrors.NoError, nil
	})
	defer cleanup()

	err := v.Delete(context.Background(), "/gone.txt")
	assert.NoError(t, err)
}

func TestDeletePropagatesObjectLocked(t *testing.T) {
	v, cleanup := newMountedVolume(t, "AFP3.3", func(cmdType uint8, body []byte) (afperrors.ResultCode, []byte) {
		return afperrors.ObjectLocked, nil
	})
	defer cleanup()

	err := v.Delete(context.Background(), "/locked.txt")
	assert.Error(t, err)
}

func TestCreateDirReturnsNewNodeID(t *testing.T) {
	v, cleanup := newMountedVolume(t, "AFP3.3", func(cmdType uint8, body []byte) (afperrors.ResultCode, []byte) {
		w := codec.NewWriter()
		w.PutU32(42)
		return afperrors.NoError, w.Bytes()
	})
	defer cleanup()

	id, err := v.CreateDir(context.Background(), "/newdir")
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)
}

func TestGetFileDirParmsDecodesDirectoryRecord(t *testing.T) {
	v, cleanup := newMountedVolume(t, "AFP3.3", func(cmdType uint8, body []byte) (afperrors.ResultCode, []byte) {
		bitmap := NodeIDBit | LongNameBit
		w := codec.NewWriter()
		w.PutU16(uint16(bitmap)) // echoed file bitmap
		w.PutU16(uint16(bitmap)) // echoed dir bitmap
		w.PutU8(0x80)            // FileDir: directory
		w.PutU8(0)                // pad

		fields := codec.NewWriter()
		fields.PutU16(6)  // long name offset, relative to start of fields
		fields.PutU32(9)  // node id
		fields.PutPascal("docs")

		w.PutRaw(fields.Bytes())
		return afperrors.NoError, w.Bytes()
	})
	defer cleanup()

	bitmap := NodeIDBit | LongNameBit
	info, err := v.GetFileDirParms(context.Background(), "/docs", bitmap, bitmap)
	require.NoError(t, err)
	assert.True(t, info.IsDirectory)
	assert.EqualValues(t, 9, info.NodeID)
	assert.Equal(t, "docs", info.LongName)
}

func TestEnumerateStopsOnObjectNotFound(t *testing.T) {
	v, cleanup := newMountedVolume(t, "AFP3.3", func(cmdType uint8, body []byte) (afperrors.ResultCode, []byte) {
		return afperrors.ObjectNotFound, nil
	})
	defer cleanup()

	entries, err := v.Enumerate(context.Background(), "/empty", 0, NodeIDBit, NodeIDBit)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEnumerateDecodesTwoRecords(t *testing.T) {
	v, cleanup := newMountedVolume(t, "AFP3.3", func(cmdType uint8, body []byte) (afperrors.ResultCode, []byte) {
		w := codec.NewWriter()
		w.PutU16(uint16(NodeIDBit))
		w.PutU16(uint16(NodeIDBit))
		w.PutI16(2) // count

		for _, id := range []uint32{1, 2} {
			rec := codec.NewWriter()
			rec.PutU8(0) // file
			rec.PutU8(0) // pad
			rec.PutU32(id)

			structLength := 2 + rec.Len()
			w.PutU16(uint16(structLength))
			w.PutRaw(rec.Bytes())
		}
		return afperrors.NoError, w.Bytes()
	})
	defer cleanup()

	entries, err := v.Enumerate(context.Background(), "/dir", 0, NodeIDBit, NodeIDBit)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.EqualValues(t, 1, entries[0].NodeID)
	assert.EqualValues(t, 2, entries[1].NodeID)
}

func TestUseEnumerateExt2(t *testing.T) {
	assert.True(t, useEnumerateExt2("AFP3.1"))
	assert.True(t, useEnumerateExt2("AFP3.4"))
	assert.False(t, useEnumerateExt2("AFP3.0"))
	assert.False(t, useEnumerateExt2("AFPX03"))
	assert.False(t, useEnumerateExt2("AFP2.2"))
}

func TestResolveDirIDRootCases(t *testing.T) {
	v, cleanup := newMountedVolume(t, "AFP3.3", func(cmdType uint8, body []byte) (afperrors.ResultCode, []byte) {
		t.Fatal("resolveDirID should not hit the network for root-relative paths")
		return afperrors.NoError, nil
	})
	defer cleanup()

	for _, dirname := range []string{"", "/", "."} {
		id, err := v.resolveDirID(context.Background(), dirname, NodeIDBit)
		require.NoError(t, err)
		assert.EqualValues(t, rootDirID, id)
	}
}

func TestOperationsFailBeforeMount(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	defer client.Close()

	conn := connection.New(client, connection.Options{TickleInterval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go conn.Run(ctx)

	v := New(conn, "AFP3.3")
	_, err := v.CreateDir(context.Background(), "/x")
	assert.Error(t, err)
}
