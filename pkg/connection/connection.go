// Package connection implements the DSI transport: one TCP connection
// multiplexing AFP commands and replies by request ID, plus tickle keepalive
// and unsolicited attention notifications. Modeled on the accept-loop /
// semaphore / waitgroup shape of the adapter connection types in the
// protocol-adapter packages this module started from, adapted from a
// server-accepts-requests loop into a client-sends-requests one.
package connection

import (
	"context"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/marmos91/afpfs/internal/logger"
	"github.com/marmos91/afpfs/pkg/afperrors"
	"github.com/marmos91/afpfs/pkg/bufpool"
	"github.com/marmos91/afpfs/pkg/command"
	"github.com/marmos91/afpfs/pkg/dsi"
	"github.com/marmos91/afpfs/pkg/metrics"
	"github.com/marmos91/afpfs/pkg/reply"
)

// maxRequestID is the inclusive upper bound of the 16-bit DSI request ID
// space; IDs wrap back to 0 after this.
const maxRequestID = 65535

// Options configures a Connection.
type Options struct {
	// DialTimeout bounds the initial TCP connect.
	DialTimeout time.Duration

	// TickleInterval is how often Run sends DSI_TICKLE, whether or not
	// other traffic is flowing. Zero selects the 30s default.
	TickleInterval time.Duration

	// MaxPendingRequests bounds outstanding unanswered requests.
	MaxPendingRequests int64

	// MaxReplyPayload bounds how large a single reply's TotalDataLength is
	// allowed to be before receiveLoop refuses to allocate a buffer for it.
	// Zero selects defaultMaxReplyPayload. Protects against a misbehaving server
	// claiming an unreasonable length and forcing a huge allocation.
	MaxReplyPayload uint32

	Metrics metrics.ConnectionMetrics
}

// defaultMaxReplyPayload bounds reply payloads at 64MiB absent an explicit
// Options.MaxReplyPayload, comfortably larger than any single ENUMERATE or
// READ_EXT reply this client issues.
const defaultMaxReplyPayload = 64 << 20

func (o *Options) setDefaults() {
	if o.DialTimeout <= 0 {
		o.DialTimeout = 10 * time.Second
	}
	if o.TickleInterval <= 0 {
		o.TickleInterval = 30 * time.Second
	}
	if o.MaxPendingRequests <= 0 {
		o.MaxPendingRequests = maxRequestID
	}
	if o.MaxReplyPayload <= 0 {
		o.MaxReplyPayload = defaultMaxReplyPayload
	}
}

type pendingRequest struct {
	replyCh chan pendingResult
}

type pendingResult struct {
	header  dsi.Header
	payload []byte
	err     error
}

// Connection is one DSI/TCP connection to an AFP server. Zero value is not
// usable; construct with New. Safe for concurrent SendCommand/SendRaw
// calls once Run has been started.
type Connection struct {
	id   string
	conn net.Conn
	opts Options

	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[uint16]*pendingRequest
	nextID    uint16

	sem *semaphore.Weighted

	running  bool
	runMu    sync.Mutex
	closeCh  chan struct{}
	closeErr error

	// Attentions delivers payloads from unsolicited DSI_ATTENTION frames.
	// Unbuffered sends would block the receive loop, so this channel is
	// buffered; a slow consumer drops the oldest notification rather than
	// stalling replies.
	Attentions chan []byte

	wg sync.WaitGroup
}

// Dial opens a TCP connection to addr and wraps it.
func Dial(ctx context.Context, addr string, opts Options) (*Connection, error) {
	opts.setDefaults()

	dialCtx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return nil, afperrors.Wrap(afperrors.TransportError, "dial "+addr, err)
	}

	return New(conn, opts), nil
}

// New wraps an already-established net.Conn. Run must be called before any
// SendCommand/SendRaw call.
func New(conn net.Conn, opts Options) *Connection {
	opts.setDefaults()

	return &Connection{
		id:         uuid.NewString(),
		conn:       conn,
		opts:       opts,
		pending:    make(map[uint16]*pendingRequest),
		sem:        semaphore.NewWeighted(opts.MaxPendingRequests),
		closeCh:    make(chan struct{}),
		Attentions: make(chan []byte, 16),
	}
}

// Run starts the receive loop and tickle ticker. It returns once the
// connection closes; callers typically run it in its own goroutine. Calling
// Run a second time panics, matching the single-use lifecycle of the
// underlying net.Conn.
func (c *Connection) Run(ctx context.Context) error {
	c.runMu.Lock()
	if c.running {
		c.runMu.Unlock()
		panic("connection: Run called twice")
	}
	c.running = true
	c.runMu.Unlock()

	log := logger.With("connection_id", c.id, "remote", c.conn.RemoteAddr().String())
	log.Info("connection established")

	c.wg.Add(1)
	go c.tickleLoop(ctx, log)

	err := c.receiveLoop(ctx, log)

	close(c.closeCh)
	c.runMu.Lock()
	c.closeErr = err
	c.runMu.Unlock()
	c.wg.Wait()
	c.failAllPending(err)

	reason := "eof"
	if err != nil && err != io.EOF {
		reason = "protocol_error"
	}
	if ctx.Err() != nil {
		reason = "closed_by_caller"
	}
	if c.opts.Metrics != nil {
		c.opts.Metrics.RecordConnectionClosed(reason)
	}
	log.Info("connection closed", "reason", reason)

	return err
}

// Close closes the underlying connection, unblocking Run.
func (c *Connection) Close() error {
	return c.conn.Close()
}

// Err returns the error that ended Run's receive loop, once Run has
// returned. Returns nil before that.
func (c *Connection) Err() error {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	return c.closeErr
}

func (c *Connection) tickleLoop(ctx context.Context, log *slog.Logger) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.opts.TickleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closeCh:
			return
		case <-ticker.C:
			if err := c.writeFrame(dsi.Header{Flags: dsi.RequestFlag, Command: dsi.Tickle}, nil); err != nil {
				log.Warn("tickle write failed", "error", err)
				return
			}
			if c.opts.Metrics != nil {
				c.opts.Metrics.RecordTickle()
			}
		}
	}
}

func (c *Connection) receiveLoop(ctx context.Context, log *slog.Logger) error {
	headerBuf := make([]byte, dsi.HeaderSize)

	for {
		if _, err := io.ReadFull(c.conn, headerBuf); err != nil {
			return err
		}

		header, err := dsi.DecodeHeader(headerBuf)
		if err != nil {
			return err
		}

		if header.TotalDataLength > c.opts.MaxReplyPayload {
			return afperrors.New(afperrors.Malformed, "reply payload exceeds configured maximum")
		}

		var payload []byte
		if header.TotalDataLength > 0 {
			payload = bufpool.GetUint32(header.TotalDataLength)
			if _, err := io.ReadFull(c.conn, payload); err != nil {
				return err
			}
		}

		if c.opts.Metrics != nil {
			c.opts.Metrics.RecordBytesTransferred("read", uint64(dsi.HeaderSize)+uint64(header.TotalDataLength))
		}

		switch header.Command {
		case dsi.Tickle:
			bufpool.Put(payload)
			replyHeader := dsi.Header{Flags: dsi.RequestFlag, Command: dsi.Tickle, RequestID: c.nextRequestID()}
			if err := c.writeFrame(replyHeader, nil); err != nil {
				log.Warn("tickle reply failed", "error", err)
				return err
			}
			if c.opts.Metrics != nil {
				c.opts.Metrics.RecordTickle()
			}
		case dsi.Attention:
			if c.opts.Metrics != nil {
				c.opts.Metrics.RecordAttention()
			}
			c.deliverAttention(payload)
		default:
			c.deliverReply(header, payload)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

func (c *Connection) deliverAttention(payload []byte) {
	cp := append([]byte(nil), payload...)
	bufpool.Put(payload)

	select {
	case c.Attentions <- cp:
	default:
		select {
		case <-c.Attentions:
		default:
		}
		select {
		case c.Attentions <- cp:
		default:
		}
	}
}

func (c *Connection) deliverReply(header dsi.Header, payload []byte) {
	c.pendingMu.Lock()
	pr, ok := c.pending[header.RequestID]
	if ok {
		delete(c.pending, header.RequestID)
	}
	pendingCount := len(c.pending)
	c.pendingMu.Unlock()

	if c.opts.Metrics != nil {
		c.opts.Metrics.SetPendingRequests(pendingCount)
	}

	if !ok {
		// Reply for a request we no longer track (cancelled, or a stray
		// duplicate from the server); drop it.
		bufpool.Put(payload)
		return
	}

	pr.replyCh <- pendingResult{header: header, payload: payload}
}

func (c *Connection) failAllPending(err error) {
	if err == nil {
		err = afperrors.ErrConnectionClosed
	}

	c.pendingMu.Lock()
	pending := c.pending
	c.pending = make(map[uint16]*pendingRequest)
	c.pendingMu.Unlock()

	for _, pr := range pending {
		pr.replyCh <- pendingResult{err: err}
	}
}

// nextRequestID allocates the next request ID, wrapping at maxRequestID and
// skipping any ID still awaiting a reply.
func (c *Connection) nextRequestID() uint16 {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	for {
		id := c.nextID
		c.nextID++
		if c.nextID > maxRequestID {
			c.nextID = 0
		}
		if _, taken := c.pending[id]; !taken {
			return id
		}
	}
}

func (c *Connection) writeFrame(header dsi.Header, payload []byte) error {
	header.TotalDataLength = uint32(len(payload))

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if _, err := c.conn.Write(header.Encode()); err != nil {
		return afperrors.Wrap(afperrors.TransportError, "write dsi header", err)
	}
	if len(payload) > 0 {
		if _, err := c.conn.Write(payload); err != nil {
			return afperrors.Wrap(afperrors.TransportError, "write dsi payload", err)
		}
	}
	if c.opts.Metrics != nil {
		c.opts.Metrics.RecordBytesTransferred("write", uint64(dsi.HeaderSize)+uint64(len(payload)))
	}
	return nil
}

// SendCommand sends cmd and blocks until its reply arrives, ctx is
// cancelled, or the connection closes. writeOffset is non-zero only for
// DSI_WRITE commands.
func (c *Connection) SendCommand(ctx context.Context, cmd *command.Command, writeOffset uint32) (*reply.Reply, error) {
	start := time.Now()

	opcode := dsi.Command
	if cmd.Type == command.Write || cmd.Type == command.WriteExt {
		opcode = dsi.Write
	}

	payload := cmd.Payload()
	if len(cmd.ExtraPayload) > 0 {
		payload = append(append([]byte(nil), payload...), cmd.ExtraPayload...)
	}

	header, respPayload, err := c.SendRaw(ctx, opcode, writeOffset, payload)
	if err != nil {
		return nil, err
	}

	if c.opts.Metrics != nil {
		c.opts.Metrics.RecordRequest(cmd.Type.String(), time.Since(start), header.ResultCode())
	}

	return reply.New(afperrors.ResultCode(header.ResultCode()), respPayload), nil
}

// SendRaw sends a DSI frame with the given opcode and awaits its reply
// through the request-ID multiplexer. errorOrOffset is the request header's
// offset field, used only by DSI_WRITE. Exported for the session layer's
// DSI_GET_STATUS and DSI_OPEN_SESSION calls, which are not AFP commands and
// so have no command.Command wrapper.
func (c *Connection) SendRaw(ctx context.Context, opcode dsi.Opcode, errorOrOffset uint32, payload []byte) (dsi.Header, []byte, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return dsi.Header{}, nil, afperrors.Wrap(afperrors.Cancelled, "acquire request slot", err)
	}
	defer c.sem.Release(1)

	id := c.nextRequestID()
	pr := &pendingRequest{replyCh: make(chan pendingResult, 1)}

	c.pendingMu.Lock()
	c.pending[id] = pr
	pendingCount := len(c.pending)
	c.pendingMu.Unlock()

	if c.opts.Metrics != nil {
		c.opts.Metrics.SetPendingRequests(pendingCount)
	}

	header := dsi.Header{
		Flags:         dsi.RequestFlag,
		Command:       opcode,
		RequestID:     id,
		ErrorOrOffset: errorOrOffset,
	}

	if err := c.writeFrame(header, payload); err != nil {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return dsi.Header{}, nil, err
	}

	select {
	case res := <-pr.replyCh:
		if res.err != nil {
			return dsi.Header{}, nil, res.err
		}
		return res.header, res.payload, nil
	case <-ctx.Done():
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return dsi.Header{}, nil, afperrors.Wrap(afperrors.Cancelled, "waiting for reply", ctx.Err())
	case <-c.closeCh:
		return dsi.Header{}, nil, afperrors.ErrConnectionClosed
	}
}

// WriteRawFrame is used by the OPEN_SESSION handshake, which predates
// request-ID bookkeeping (DSI_OPEN_SESSION always carries request ID 0 and
// is answered before Run's receive loop starts).
func (c *Connection) WriteRawFrame(header dsi.Header, payload []byte) error {
	if c.isRunning() {
		return afperrors.ErrPipelineRunning
	}
	return c.writeFrame(header, payload)
}

// ReadRawFrame reads one frame synchronously. Used only before Run starts.
func (c *Connection) ReadRawFrame() (dsi.Header, []byte, error) {
	if c.isRunning() {
		return dsi.Header{}, nil, afperrors.ErrPipelineRunning
	}
	headerBuf := make([]byte, dsi.HeaderSize)
	if _, err := io.ReadFull(c.conn, headerBuf); err != nil {
		return dsi.Header{}, nil, afperrors.Wrap(afperrors.TransportError, "read dsi header", err)
	}
	header, err := dsi.DecodeHeader(headerBuf)
	if err != nil {
		return dsi.Header{}, nil, err
	}
	var payload []byte
	if header.TotalDataLength > 0 {
		payload = make([]byte, header.TotalDataLength)
		if _, err := io.ReadFull(c.conn, payload); err != nil {
			return dsi.Header{}, nil, afperrors.Wrap(afperrors.TransportError, "read dsi payload", err)
		}
	}
	return header, payload, nil
}

// isRunning reports whether Run has been started.
func (c *Connection) isRunning() bool {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	return c.running
}

