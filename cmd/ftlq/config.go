package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/andreyvit/ftl"
)

const (
	defaultConfigPath = "/etc/pihole/ftlq.toml"
	envLogLevel       = "FTLQ_LOG_LEVEL"
)

type Config struct {
	Backend BackendConfig `toml:"backend"`
	Log     LogConfig     `toml:"log"`
}

type BackendConfig struct {
	Network      string   `toml:"network"`
	Addr         string   `toml:"addr"`
	DialTimeout  duration `toml:"dial_timeout"`
	ReadTimeout  duration `toml:"read_timeout"`
	MaxStringLen int      `toml:"max_string_len"`
}

type LogConfig struct {
	Level   string `toml:"level"`
	Verbose bool   `toml:"verbose"`
}

type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func defaultConfig() Config {
	def := ftl.DefaultConfig()
	return Config{
		Backend: BackendConfig{
			Network:      def.Network,
			Addr:         def.Addr,
			DialTimeout:  duration{def.DialTimeout},
			ReadTimeout:  duration{def.ReadTimeout},
			MaxStringLen: def.MaxStringLen,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// loadConfig reads path on top of the defaults. A missing file is fine unless
// the user asked for it explicitly.
func loadConfig(path string, explicit bool) (Config, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) || explicit {
			return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
		}
	} else if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	cfg = applyEnvOverrides(cfg)
	if err := validateConfig(cfg); err != nil {
		return Config{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg Config) Config {
	if lvl := strings.TrimSpace(os.Getenv(envLogLevel)); lvl != "" {
		cfg.Log.Level = lvl
	}
	return cfg
}

func validateConfig(cfg Config) error {
	if _, err := parseLevel(cfg.Log.Level); err != nil {
		return err
	}
	return cfg.ftlConfig().Validate()
}

func (cfg Config) ftlConfig() ftl.Config {
	c := ftl.DefaultConfig()
	c.Network = cfg.Backend.Network
	c.Addr = cfg.Backend.Addr
	c.DialTimeout = cfg.Backend.DialTimeout.Duration
	c.ReadTimeout = cfg.Backend.ReadTimeout.Duration
	c.MaxStringLen = cfg.Backend.MaxStringLen
	c.Verbose = cfg.Log.Verbose
	return c
}

// parseEndpoint accepts "unix:/path", "tcp:host:port", a bare socket path or
// a bare host:port.
func parseEndpoint(s string) (network, addr string) {
	if rest, ok := strings.CutPrefix(s, "unix:"); ok {
		return "unix", rest
	}
	if rest, ok := strings.CutPrefix(s, "tcp:"); ok {
		return "tcp", rest
	}
	if strings.HasPrefix(s, "/") || strings.HasPrefix(s, ".") {
		return "unix", s
	}
	return "tcp", s
}
