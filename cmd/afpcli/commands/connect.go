package commands

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/marmos91/afpfs/internal/logger"
	"github.com/marmos91/afpfs/pkg/config"
	"github.com/marmos91/afpfs/pkg/connection"
	"github.com/marmos91/afpfs/pkg/credentials"
	"github.com/marmos91/afpfs/pkg/metrics/prometheus"
	"github.com/marmos91/afpfs/pkg/session"
	"github.com/marmos91/afpfs/pkg/volume"
)

// mounted bundles a live Session and mounted Volume, plus the teardown
// every subcommand must run before exiting.
type mounted struct {
	Session *session.Session
	Volume  *volume.Volume
}

func (m *mounted) Close() {
	m.Volume.Close()
	m.Session.Conn.Close()
}

// connectAndMount loads config, opens an AFP session against the address
// and credentials supplied on the command line (falling back to config
// file values and then to interactive prompts), and mounts Flags.Volume.
func connectAndMount(ctx context.Context) (*mounted, error) {
	// config.Load validates Connection.Address as required; set it via the
	// env override path it already reads so a bare --address flag with no
	// config file present still passes validation.
	if Flags.Address != "" {
		os.Setenv("AFPFS_CONNECTION_ADDRESS", Flags.Address)
	}

	cfg, err := config.Load(Flags.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.Logging.Level
	if Flags.Debug {
		level = "DEBUG"
	}
	if err := logger.Init(logger.Config{Level: level, Format: cfg.Logging.Format, Output: cfg.Logging.Output}); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	address := Flags.Address
	if address == "" {
		address = cfg.Connection.Address
	}
	if address == "" {
		return nil, fmt.Errorf("no server address: pass --address or set connection.address in config")
	}
	if _, _, err := net.SplitHostPort(address); err != nil {
		address = net.JoinHostPort(address, "548")
	}

	var creds credentials.Source
	if Flags.Username != "" && Flags.Password != "" {
		creds = credentials.NewStatic(Flags.Username, Flags.Password)
	} else {
		creds = credentials.NewInteractive()
	}

	var connMetrics = prometheus.NewConnectionMetrics()
	var sessMetrics = prometheus.NewSessionMetrics()

	sess, err := session.Open(ctx, session.Options{
		Address:      address,
		Credentials:  creds,
		LoginRetries: cfg.Session.LoginRetries,
		Connection: connection.Options{
			DialTimeout:        cfg.Connection.DialTimeout,
			TickleInterval:     cfg.Connection.TickleInterval,
			MaxPendingRequests: int64(cfg.Connection.MaxPendingRequests),
			MaxReplyPayload:    uint32(cfg.Connection.MaxReplyPayload.Uint64()),
			Metrics:            connMetrics,
		},
		Metrics: connMetrics,
		Session: sessMetrics,
	})
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	vol := volume.New(sess.Conn, sess.Version)
	if err := vol.Mount(ctx, Flags.Volume); err != nil {
		sess.Conn.Close()
		return nil, fmt.Errorf("mount %q: %w", Flags.Volume, err)
	}

	return &mounted{Session: sess, Volume: vol}, nil
}
