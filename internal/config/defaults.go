package config

import "github.com/rbright/pose/internal/ipc"

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Socket: ipc.DefaultSocketPath,
		Database: DatabaseConfig{
			Path:          "./pose.db",
			MaxOpenConns:  8,
			BusyTimeoutMS: 5000,
		},
		HTTP: HTTPConfig{
			Addr:               "127.0.0.1",
			Port:               80,
			RateLimitPerMinute: 600,
			ShutdownTimeoutMS:  5000,
		},
		Control: ControlConfig{
			ReadTimeoutMS:   0,
			ProbeTimeoutMS:  200,
			ClientTimeoutMS: 0,
		},
	}
}
