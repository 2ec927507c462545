// Package session negotiates one AFP session on top of a DSI connection:
// the OPEN_SESSION handshake, GET_STATUS version/UAM discovery, and the
// DHX or anonymous LOGIN exchange. Once Open returns, the caller has an
// authenticated *connection.Connection ready for OPEN_VOL.
package session

import (
	"context"

	"github.com/marmos91/afpfs/internal/logger"
	"github.com/marmos91/afpfs/pkg/afperrors"
	"github.com/marmos91/afpfs/pkg/codec"
	"github.com/marmos91/afpfs/pkg/command"
	"github.com/marmos91/afpfs/pkg/connection"
	"github.com/marmos91/afpfs/pkg/credentials"
	"github.com/marmos91/afpfs/pkg/dsi"
	"github.com/marmos91/afpfs/pkg/metrics"
)

// Options configures Open.
type Options struct {
	// Address is the "host:port" DSI endpoint, dialed as given. The afpcli
	// caller appends the default port 548 via net.JoinHostPort when the
	// address carries none.
	Address string

	// Credentials supplies a username/password pair for DHX login. A nil
	// Credentials selects the anonymous UAM if the server offers it; Open
	// does not fall back to anonymous login after a denied DHX login.
	Credentials credentials.Source

	// LoginRetries bounds the total number of DHX login attempts before
	// Open gives up.
	LoginRetries int

	Connection connection.Options
	Metrics    metrics.ConnectionMetrics
	Session    metrics.SessionMetrics
}

func (o *Options) setDefaults() {
	if o.LoginRetries <= 0 {
		o.LoginRetries = 3
	}
}

// Session is one authenticated AFP connection: the negotiated version, the
// server's advertised identity, and the underlying multiplexed Connection
// volume operations are sent over.
type Session struct {
	Conn       *connection.Connection
	ServerInfo ServerInfo
	Version    string
	Anonymous  bool
}

// Open probes the server's version and UAMs over a throwaway connection,
// dials the real connection, performs the OPEN_SESSION handshake, then logs
// in — with DHX when Credentials is set, or anonymously when Credentials is
// nil and the server allows it. A denied DHX login is returned as an error.
func Open(ctx context.Context, opts Options) (*Session, error) {
	opts.setDefaults()

	info, err := getServerInfo(ctx, opts.Address, opts.Connection)
	if err != nil {
		return nil, err
	}

	version, err := bestVersion(info.Versions)
	if err != nil {
		return nil, err
	}

	conn, err := connection.Dial(ctx, opts.Address, opts.Connection)
	if err != nil {
		return nil, err
	}

	if err := openSession(conn); err != nil {
		conn.Close()
		return nil, err
	}

	runCtx, cancelRun := context.WithCancel(ctx)
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		conn.Run(runCtx)
	}()

	anonymous, loginErr := login(ctx, conn, opts, info, version)
	if loginErr != nil {
		cancelRun()
		conn.Close()
		<-runDone
		return nil, loginErr
	}

	return &Session{Conn: conn, ServerInfo: info, Version: version, Anonymous: anonymous}, nil
}

// openSession performs the DSI_OPEN_SESSION handshake synchronously, before
// Connection.Run starts the multiplexed receive loop. It runs on the real
// connection, after getServerInfo has already probed the version on its own
// throwaway one. OPEN_SESSION always uses request ID 0 and carries a TLV
// option for the client's preferred request quantum.
func openSession(conn *connection.Connection) error {
	w := codec.NewWriter()
	w.PutU8(dsi.OptionRequestQuanta)
	w.PutU8(4)
	w.PutU32(1024 * 1024)

	req := dsi.Header{Flags: dsi.RequestFlag, Command: dsi.OpenSession, RequestID: 0}
	if err := conn.WriteRawFrame(req, w.Bytes()); err != nil {
		return err
	}

	header, payload, err := conn.ReadRawFrame()
	if err != nil {
		return err
	}
	if header.Command != dsi.OpenSession {
		return afperrors.New(afperrors.Malformed, "expected OPEN_SESSION reply")
	}
	if header.ResultCode() != 0 {
		return afperrors.New(afperrors.Failed, "server rejected OPEN_SESSION")
	}

	// The reply's own option TLVs (request quanta, replay cache size) are
	// informational; the client has no behavior gated on them beyond
	// acknowledging the handshake completed.
	_ = dsi.ParseOpenSessionOptions(payload)
	return nil
}

// getServerInfo dials its own short-lived connection and issues DSI_GET_STATUS
// with no OPEN_SESSION handshake, exactly as a server's GetSrvrInfo probe
// works before any session exists. The connection is discarded afterward;
// Open dials a second, real connection for OPEN_SESSION once the version is
// known.
func getServerInfo(ctx context.Context, address string, connOpts connection.Options) (ServerInfo, error) {
	conn, err := connection.Dial(ctx, address, connOpts)
	if err != nil {
		return ServerInfo{}, err
	}
	defer conn.Close()
	return probeServerInfo(conn)
}

// probeServerInfo issues DSI_GET_STATUS on an already-connected conn and
// parses the reply. Split out of getServerInfo so tests can drive it over a
// net.Pipe without a real dial.
func probeServerInfo(conn *connection.Connection) (ServerInfo, error) {
	req := dsi.Header{Flags: dsi.RequestFlag, Command: dsi.GetStatus, RequestID: 0}
	if err := conn.WriteRawFrame(req, nil); err != nil {
		return ServerInfo{}, err
	}

	header, payload, err := conn.ReadRawFrame()
	if err != nil {
		return ServerInfo{}, err
	}
	if header.Command != dsi.GetStatus {
		return ServerInfo{}, afperrors.New(afperrors.Malformed, "expected GET_STATUS reply")
	}

	return parseServerInfo(payload)
}

// login uses DHX when Credentials is set and the server offers DHCAST128,
// returning its error if DHX fails. Otherwise it logs in anonymously when
// the server offers "No User Authent".
func login(ctx context.Context, conn *connection.Connection, opts Options, info ServerInfo, version string) (anonymous bool, err error) {
	log := logger.With("server", opts.Address)

	if supportsUAM(info.UAMs, uamDHCAST128) && opts.Credentials != nil {
		anon, err := dhxLogin(ctx, conn, opts, version)
		if err != nil {
			log.Warn("dhx login failed", "error", err)
			return false, err
		}
		return anon, nil
	}

	if supportsUAM(info.UAMs, uamNoAuth) {
		if err := anonymousLogin(ctx, conn, version, opts.Metrics, opts.Session); err != nil {
			return false, err
		}
		return true, nil
	}

	return false, afperrors.New(afperrors.Unsupported, "no usable UAM: server requires DHCAST128 but no credentials were accepted")
}

// anonymousLogin sends LOGIN with the "No User Authent" UAM and an empty
// username, which AFP servers accept without a LOGIN_CONT round trip.
func anonymousLogin(ctx context.Context, conn *connection.Connection, version string, cm metrics.ConnectionMetrics, sm metrics.SessionMetrics) error {
	cmd := command.New(command.Login)
	cmd.W().PutPascal(version)
	cmd.W().PutPascal(uamNoAuth)

	rep, err := conn.SendCommand(ctx, cmd, 0)
	if err != nil {
		if sm != nil {
			sm.RecordLoginAttempt(uamNoAuth, "denied")
		}
		return err
	}
	if !rep.OK() {
		if sm != nil {
			sm.RecordLoginAttempt(uamNoAuth, "denied")
		}
		return afperrors.Translate(rep.ResultCode, "anonymous login", nil)
	}
	if sm != nil {
		sm.RecordLoginAttempt(uamNoAuth, "success")
		sm.RecordNegotiatedVersion(version)
	}
	return nil
}
