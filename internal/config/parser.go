package config

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	Socket   *string       `yaml:"socket"`
	Database *fileDatabase `yaml:"database"`
	HTTP     *fileHTTP     `yaml:"http"`
	Control  *fileControl  `yaml:"control"`
}

type fileDatabase struct {
	Path          *string `yaml:"path"`
	MaxOpenConns  *int    `yaml:"max_open_conns"`
	BusyTimeoutMS *int    `yaml:"busy_timeout_ms"`
}

type fileHTTP struct {
	Addr               *string `yaml:"addr"`
	Port               *int    `yaml:"port"`
	RateLimitPerMinute *int    `yaml:"rate_limit_per_minute"`
	ShutdownTimeoutMS  *int    `yaml:"shutdown_timeout_ms"`
}

type fileControl struct {
	ReadTimeoutMS   *int `yaml:"read_timeout_ms"`
	ProbeTimeoutMS  *int `yaml:"probe_timeout_ms"`
	ClientTimeoutMS *int `yaml:"client_timeout_ms"`
}

// Parse reads YAML configuration content on top of base. Unknown keys are
// rejected.
func Parse(content string, base Config) (Config, []Warning, error) {
	if strings.TrimSpace(content) == "" {
		warnings, err := Validate(base)
		if err != nil {
			return Config{}, nil, err
		}
		return base, warnings, nil
	}

	decoder := yaml.NewDecoder(strings.NewReader(content))
	decoder.KnownFields(true)

	var payload fileConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, fmt.Errorf("decode yaml: %w", err)
	}

	var extra any
	if err := decoder.Decode(&extra); !errors.Is(err, io.EOF) {
		return Config{}, nil, errors.New("config must contain a single YAML document")
	}

	cfg := base
	payload.applyTo(&cfg)

	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

func (payload fileConfig) applyTo(cfg *Config) {
	if payload.Socket != nil {
		cfg.Socket = strings.TrimSpace(*payload.Socket)
	}

	if db := payload.Database; db != nil {
		if db.Path != nil {
			cfg.Database.Path = strings.TrimSpace(*db.Path)
		}
		if db.MaxOpenConns != nil {
			cfg.Database.MaxOpenConns = *db.MaxOpenConns
		}
		if db.BusyTimeoutMS != nil {
			cfg.Database.BusyTimeoutMS = *db.BusyTimeoutMS
		}
	}

	if h := payload.HTTP; h != nil {
		if h.Addr != nil {
			cfg.HTTP.Addr = strings.TrimSpace(*h.Addr)
		}
		if h.Port != nil {
			cfg.HTTP.Port = *h.Port
		}
		if h.RateLimitPerMinute != nil {
			cfg.HTTP.RateLimitPerMinute = *h.RateLimitPerMinute
		}
		if h.ShutdownTimeoutMS != nil {
			cfg.HTTP.ShutdownTimeoutMS = *h.ShutdownTimeoutMS
		}
	}

	if c := payload.Control; c != nil {
		if c.ReadTimeoutMS != nil {
			cfg.Control.ReadTimeoutMS = *c.ReadTimeoutMS
		}
		if c.ProbeTimeoutMS != nil {
			cfg.Control.ProbeTimeoutMS = *c.ProbeTimeoutMS
		}
		if c.ClientTimeoutMS != nil {
			cfg.Control.ClientTimeoutMS = *c.ClientTimeoutMS
		}
	}
}

// Apply layers command-line overrides onto cfg.
func (o Overrides) Apply(cfg Config) Config {
	if o.Socket != nil {
		cfg.Socket = strings.TrimSpace(*o.Socket)
	}
	if o.Database != nil {
		cfg.Database.Path = strings.TrimSpace(*o.Database)
	}
	if o.Port != nil {
		cfg.HTTP.Port = *o.Port
	}
	return cfg
}
