package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Connection.Address = "afp.example.com:548"
	require.NoError(t, Validate(cfg))
}

func TestValidateRejectsMissingAddress(t *testing.T) {
	cfg := DefaultConfig()
	err := Validate(cfg)
	assert.Error(t, err)
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Connection.Address = "afp.example.com:548"
	cfg.Logging.Level = "VERBOSE"
	assert.Error(t, Validate(cfg))
}

func TestLoadFallsBackToDefaultsWhenNoFileFound(t *testing.T) {
	cfg, err := Load("/nonexistent/path/afpfs.yaml")
	require.Error(t, err, "missing address should fail validation even on defaults")
	_ = cfg
}
