package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// maxSocketPathLen is the usable sun_path length on Linux.
const maxSocketPathLen = 107

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	socket := strings.TrimSpace(cfg.Socket)
	if socket == "" {
		return nil, fmt.Errorf("socket must not be empty")
	}
	if len(socket) > maxSocketPathLen {
		return nil, fmt.Errorf("socket path exceeds %d bytes", maxSocketPathLen)
	}
	if !filepath.IsAbs(socket) {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("socket path %q is relative to the working directory", socket)})
	}

	if strings.TrimSpace(strings.TrimPrefix(cfg.Database.Path, "sqlite://")) == "" {
		return nil, fmt.Errorf("database.path must not be empty")
	}
	if cfg.Database.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("database.max_open_conns must be > 0")
	}
	if cfg.Database.BusyTimeoutMS < 0 {
		return nil, fmt.Errorf("database.busy_timeout_ms must be >= 0")
	}

	if strings.TrimSpace(cfg.HTTP.Addr) == "" {
		return nil, fmt.Errorf("http.addr must not be empty")
	}
	if cfg.HTTP.Port < 0 || cfg.HTTP.Port > 65535 {
		return nil, fmt.Errorf("http.port must be between 0 and 65535")
	}
	if cfg.HTTP.RateLimitPerMinute < 0 {
		return nil, fmt.Errorf("http.rate_limit_per_minute must be >= 0")
	}
	if cfg.HTTP.ShutdownTimeoutMS <= 0 {
		return nil, fmt.Errorf("http.shutdown_timeout_ms must be > 0")
	}

	if cfg.Control.ReadTimeoutMS < 0 {
		return nil, fmt.Errorf("control.read_timeout_ms must be >= 0")
	}
	if cfg.Control.ProbeTimeoutMS <= 0 {
		return nil, fmt.Errorf("control.probe_timeout_ms must be > 0")
	}
	if cfg.Control.ClientTimeoutMS < 0 {
		return nil, fmt.Errorf("control.client_timeout_ms must be >= 0")
	}

	return warnings, nil
}
