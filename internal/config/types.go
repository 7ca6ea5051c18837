// Package config resolves, parses, validates, and defaults pose configuration.
package config

import "time"

// Config is the fully materialized runtime configuration used by pose.
type Config struct {
	Socket   string
	Database DatabaseConfig
	HTTP     HTTPConfig
	Control  ControlConfig
}

// DatabaseConfig controls the SQLite store.
type DatabaseConfig struct {
	Path          string
	MaxOpenConns  int
	BusyTimeoutMS int
}

// HTTPConfig controls the HTTP front end.
type HTTPConfig struct {
	Addr               string
	Port               int
	RateLimitPerMinute int
	ShutdownTimeoutMS  int
}

// ControlConfig controls control-socket timing.
type ControlConfig struct {
	ReadTimeoutMS   int
	ProbeTimeoutMS  int
	ClientTimeoutMS int
}

// Overrides carries command-line values that win over the file. Nil fields
// are left untouched.
type Overrides struct {
	Socket   *string
	Database *string
	Port     *int
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}

func (c DatabaseConfig) BusyTimeout() time.Duration {
	return time.Duration(c.BusyTimeoutMS) * time.Millisecond
}

func (c HTTPConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMS) * time.Millisecond
}

func (c ControlConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutMS) * time.Millisecond
}

func (c ControlConfig) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutMS) * time.Millisecond
}

func (c ControlConfig) ClientTimeout() time.Duration {
	return time.Duration(c.ClientTimeoutMS) * time.Millisecond
}
