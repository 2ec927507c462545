package config

import (
	"time"

	"github.com/marmos91/afpfs/internal/bytesize"
)

// DefaultConfig returns a Config with every field set to its default value.
func DefaultConfig() *Config {
	return &Config{
		Connection: ConnectionConfig{
			DialTimeout:        10 * time.Second,
			TickleInterval:     30 * time.Second,
			MaxPendingRequests: 65535,
			MaxReplyPayload:    64 * bytesize.MiB,
		},
		Session: SessionConfig{
			AllowAnonymous: true,
			LoginRetries:   3,
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: ":9090",
		},
	}
}
