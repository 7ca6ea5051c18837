package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValidateDefaults(t *testing.T) {
	warnings, err := Validate(Default())
	require.NoError(t, err)
	require.Empty(t, warnings)
}

func TestValidateRejectsInvalidCoreFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "empty socket", mutate: func(c *Config) { c.Socket = " " }, wantErr: "socket must not be empty"},
		{name: "long socket", mutate: func(c *Config) { c.Socket = "/" + strings.Repeat("s", 120) }, wantErr: "socket path exceeds"},
		{name: "empty database", mutate: func(c *Config) { c.Database.Path = "sqlite://" }, wantErr: "database.path"},
		{name: "zero pool", mutate: func(c *Config) { c.Database.MaxOpenConns = 0 }, wantErr: "max_open_conns"},
		{name: "negative busy timeout", mutate: func(c *Config) { c.Database.BusyTimeoutMS = -1 }, wantErr: "busy_timeout_ms"},
		{name: "empty http addr", mutate: func(c *Config) { c.HTTP.Addr = "" }, wantErr: "http.addr"},
		{name: "port too large", mutate: func(c *Config) { c.HTTP.Port = 65536 }, wantErr: "http.port"},
		{name: "negative rate limit", mutate: func(c *Config) { c.HTTP.RateLimitPerMinute = -1 }, wantErr: "rate_limit"},
		{name: "zero shutdown timeout", mutate: func(c *Config) { c.HTTP.ShutdownTimeoutMS = 0 }, wantErr: "shutdown_timeout_ms"},
		{name: "negative read timeout", mutate: func(c *Config) { c.Control.ReadTimeoutMS = -5 }, wantErr: "read_timeout_ms"},
		{name: "zero probe timeout", mutate: func(c *Config) { c.Control.ProbeTimeoutMS = 0 }, wantErr: "probe_timeout_ms"},
		{name: "negative client timeout", mutate: func(c *Config) { c.Control.ClientTimeoutMS = -1 }, wantErr: "client_timeout_ms"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			_, err := Validate(cfg)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := Default()
	require.Equal(t, 5*time.Second, cfg.Database.BusyTimeout())
	require.Equal(t, 5*time.Second, cfg.HTTP.ShutdownTimeout())
	require.Equal(t, 200*time.Millisecond, cfg.Control.ProbeTimeout())
	require.Zero(t, cfg.Control.ReadTimeout())
	require.Zero(t, cfg.Control.ClientTimeout())
}
