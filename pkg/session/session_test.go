package session

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/cast5"

	"github.com/marmos91/afpfs/pkg/codec"
	"github.com/marmos91/afpfs/pkg/command"
	"github.com/marmos91/afpfs/pkg/connection"
	"github.com/marmos91/afpfs/pkg/credentials"
	"github.com/marmos91/afpfs/pkg/dsi"
)

// fakeAFPServer answers the OPEN_SESSION/GET_STATUS/LOGIN/LOGIN_CONT
// sequence Open drives, playing the server side of the DHX handshake with
// the same prime/base/IVs the client uses.
type fakeAFPServer struct {
	conn     net.Conn
	password string
	key      [dhxKeyLen]byte
	nonce    [dhxKeyLen]byte
	loginID  uint16
}

func runFakeAFPServer(t *testing.T, conn net.Conn, password string) {
	t.Helper()
	s := &fakeAFPServer{conn: conn, password: password, loginID: 7}

	go func() {
		for {
			headerBuf := make([]byte, dsi.HeaderSize)
			if _, err := readFullTest(conn, headerBuf); err != nil {
				return
			}
			h, err := dsi.DecodeHeader(headerBuf)
			if err != nil {
				return
			}
			var payload []byte
			if h.TotalDataLength > 0 {
				payload = make([]byte, h.TotalDataLength)
				if _, err := readFullTest(conn, payload); err != nil {
					return
				}
			}

			switch h.Command {
			case dsi.OpenSession:
				s.replyHeader(h, 0, nil)
			case dsi.GetStatus:
				s.replyHeader(h, 0, buildServerInfoFixture())
			case dsi.Command:
				s.handleCommand(h, payload)
			}
		}
	}()
}

func (s *fakeAFPServer) replyHeader(req dsi.Header, resultCode int32, payload []byte) {
	reply := dsi.Header{Flags: dsi.ReplyFlag, Command: req.Command, RequestID: req.RequestID, ErrorOrOffset: uint32(resultCode)}
	reply.TotalDataLength = uint32(len(payload))
	s.conn.Write(reply.Encode())
	if len(payload) > 0 {
		s.conn.Write(payload)
	}
}

func (s *fakeAFPServer) handleCommand(h dsi.Header, payload []byte) {
	if len(payload) == 0 {
		return
	}
	switch command.Type(payload[0]) {
	case command.Login:
		s.handleLogin(h, payload)
	case command.LoginCont:
		s.handleLoginCont(h, payload[1:])
	}
}

func (s *fakeAFPServer) handleLogin(h dsi.Header, body []byte) {
	r := codec.NewReader(body)
	r.ReadU8()     // command byte; LOGIN's even pad counts from it
	r.ReadPascal() // version
	uam, _ := r.ReadPascal()
	r.ReadPascal() // username
	r.SkipToEven()
	ma, _ := r.ReadRaw(dhxKeyLen)

	if uam == uamNoAuth {
		s.replyHeader(h, 0, nil)
		return
	}

	var rb *big.Int
	for {
		buf := make([]byte, 32)
		rand.Read(buf)
		rb = new(big.Int).SetBytes(buf)
		if rb.Sign() != 0 {
			break
		}
	}
	mb := new(big.Int).Exp(dhxBase, rb, dhxPrime)
	var mbBytes [dhxKeyLen]byte
	mb.FillBytes(mbBytes[:])

	shared := new(big.Int).Exp(new(big.Int).SetBytes(ma), rb, dhxPrime)
	shared.FillBytes(s.key[:])

	rand.Read(s.nonce[:])

	plain := make([]byte, 32)
	copy(plain[:dhxKeyLen], s.nonce[:])
	rand.Read(plain[dhxKeyLen:])

	block, _ := cast5.NewCipher(s.key[:])
	ct := make([]byte, 32)
	cipher.NewCBCEncrypter(block, serverToClientIV).CryptBlocks(ct, plain)

	w := codec.NewWriter()
	w.PutU16(s.loginID)
	w.PutRaw(mbBytes[:])
	w.PutRaw(ct)

	s.replyHeader(h, -5001, w.Bytes())
}

func (s *fakeAFPServer) handleLoginCont(h dsi.Header, body []byte) {
	r := codec.NewReader(body)
	r.ReadU8() // pad
	r.ReadU16()
	ct, _ := r.ReadRaw(80)

	block, _ := cast5.NewCipher(s.key[:])
	plain := make([]byte, 80)
	cipher.NewCBCDecrypter(block, clientToServerIV).CryptBlocks(plain, ct)

	expected := incrementNonce(s.nonce)
	gotNonce := plain[:dhxKeyLen]
	gotPassword := trimTrailingZeros(plain[dhxKeyLen:])

	if string(gotNonce) == string(expected[:]) && string(gotPassword) == s.password {
		s.replyHeader(h, 0, nil)
		return
	}
	s.replyHeader(h, -5023, nil) // UserNotAuth
}

func trimTrailingZeros(b []byte) []byte {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	return b[:end]
}

func buildServerInfoFixture() []byte {
	// Layout: 4 offset u16s, flags u16, server name pascal, then the three
	// referenced blocks, in the order the offsets point to.
	const headerLen = 2 + 2 + 2 + 2 + 2 // four offsets + flags
	w := codec.NewWriter()

	nameBlock := codec.NewWriter()
	nameBlock.PutPascal("faketarget")

	machineBlock := codec.NewWriter()
	machineBlock.PutPascal("AFPFS Fixture")

	versionBlock := codec.NewWriter()
	versionBlock.PutU8(2)
	versionBlock.PutPascal("AFP3.3")
	versionBlock.PutPascal("AFP3.1")

	uamBlock := codec.NewWriter()
	uamBlock.PutU8(2)
	uamBlock.PutPascal(uamDHCAST128)
	uamBlock.PutPascal(uamNoAuth)

	machineOff := headerLen + nameBlock.Len()
	versionOff := machineOff + machineBlock.Len()
	uamOff := versionOff + versionBlock.Len()
	iconOff := uamOff + uamBlock.Len()

	w.PutU16(uint16(machineOff))
	w.PutU16(uint16(versionOff))
	w.PutU16(uint16(uamOff))
	w.PutU16(uint16(iconOff))
	w.PutU16(0) // flags
	w.PutRaw(nameBlock.Bytes())
	w.PutRaw(machineBlock.Bytes())
	w.PutRaw(versionBlock.Bytes())
	w.PutRaw(uamBlock.Bytes())

	return w.Bytes()
}

func readFullTest(conn net.Conn, buf []byte) (int, error) {
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

func TestOpenDHXLoginRoundTrip(t *testing.T) {
	infoClient, infoServer := net.Pipe()
	defer infoServer.Close()
	runFakeAFPServer(t, infoServer, "correct horse")

	client, server := net.Pipe()
	defer server.Close()
	runFakeAFPServer(t, server, "correct horse")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sess, err := openOverConn(ctx, infoClient, client, Options{
		Address:     "fixture",
		Credentials: credentials.NewStatic("alice", "correct horse"),
	})
	require.NoError(t, err)
	assert.Equal(t, "AFP3.3", sess.Version)
	assert.False(t, sess.Anonymous)
	assert.Equal(t, "faketarget", sess.ServerInfo.ServerName)
}

func TestOpenDHXLoginWrongPassword(t *testing.T) {
	infoClient, infoServer := net.Pipe()
	defer infoServer.Close()
	runFakeAFPServer(t, infoServer, "correct horse")

	client, server := net.Pipe()
	defer server.Close()
	runFakeAFPServer(t, server, "correct horse")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := openOverConn(ctx, infoClient, client, Options{
		Address:      "fixture",
		Credentials:  credentials.NewStatic("alice", "wrong guess"),
		LoginRetries: 1,
	})
	assert.Error(t, err)
}

// openOverConn runs Open's handshake against two already-established
// net.Conns (one standing in for the throwaway GET_STATUS probe connection,
// one for the real session), bypassing connection.Dial so the test can drive
// both ends of a pair of net.Pipes.
func openOverConn(ctx context.Context, infoConn, conn net.Conn, opts Options) (*Session, error) {
	opts.setDefaults()
	opts.Connection.TickleInterval = time.Hour

	infoC := connection.New(infoConn, opts.Connection)
	info, err := probeServerInfo(infoC)
	infoC.Close()
	if err != nil {
		return nil, err
	}

	version, err := bestVersion(info.Versions)
	if err != nil {
		return nil, err
	}

	c := connection.New(conn, opts.Connection)

	if err := openSession(c); err != nil {
		c.Close()
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	go c.Run(runCtx)

	anonymous, err := login(ctx, c, opts, info, version)
	if err != nil {
		cancel()
		c.Close()
		return nil, err
	}

	return &Session{Conn: c, ServerInfo: info, Version: version, Anonymous: anonymous}, nil
}
