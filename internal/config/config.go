// Package config loads server and CLI settings from a config file, QRGEN_*
// environment variables and built-in defaults, in that order of precedence
// (env first).
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/harrylevesque/qrgen/internal/utils"
)

const (
	EnvPrefix  = "QRGEN"
	ConfigName = "qrgen"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Store   StoreConfig   `mapstructure:"store"`
	Log     LogConfig     `mapstructure:"log"`
	Render  RenderConfig  `mapstructure:"render"`
	Preview PreviewConfig `mapstructure:"preview"`
	Time    TimeConfig    `mapstructure:"time"`
}

type ServerConfig struct {
	Addr    string `mapstructure:"addr"`
	TLSCert string `mapstructure:"tls_cert"`
	TLSKey  string `mapstructure:"tls_key"`
}

// StoreConfig selects the record backend. Encryption only applies to the file backend.
type StoreConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
	Encrypt bool   `mapstructure:"encrypt"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

type RenderConfig struct {
	DefaultSize int           `mapstructure:"default_size"`
	MaxSize     int           `mapstructure:"max_size"`
	LogoTimeout time.Duration `mapstructure:"logo_timeout"`
}

type PreviewConfig struct {
	CacheSize int `mapstructure:"cache_size"`
	Sessions  int `mapstructure:"sessions"`
}

type TimeConfig struct {
	Zone string `mapstructure:"zone"`
}

// SetDefaults registers every key with its default so env overrides apply.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.tls_cert", "")
	v.SetDefault("server.tls_key", "")
	v.SetDefault("store.backend", "file")
	v.SetDefault("store.path", utils.GetDataDir())
	v.SetDefault("store.encrypt", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "color")
	v.SetDefault("log.file", "")
	v.SetDefault("render.default_size", 512)
	v.SetDefault("render.max_size", 4096)
	v.SetDefault("render.logo_timeout", "5s")
	v.SetDefault("preview.cache_size", 256)
	v.SetDefault("preview.sessions", 1024)
	v.SetDefault("time.zone", "Local")
}

// Load reads configuration. An empty path searches for qrgen.{yaml,json,toml}
// in the working directory and $HOME/.qrgen; a missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(ConfigName)
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join("$HOME", "."+ConfigName))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and backend names.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("store.backend must be file or sqlite, got %q", c.Store.Backend)
	}
	if c.Render.MaxSize <= 0 {
		return fmt.Errorf("render.max_size must be positive")
	}
	if c.Render.DefaultSize <= 0 || c.Render.DefaultSize > c.Render.MaxSize {
		return fmt.Errorf("render.default_size must be in 1..%d", c.Render.MaxSize)
	}
	if c.Preview.CacheSize <= 0 || c.Preview.Sessions <= 0 {
		return fmt.Errorf("preview sizes must be positive")
	}
	if (c.Server.TLSCert == "") != (c.Server.TLSKey == "") {
		return fmt.Errorf("server.tls_cert and server.tls_key must be set together")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves time.zone; calendar form input is interpreted in it.
func (c *Config) Location() (*time.Location, error) {
	if c.Time.Zone == "" || c.Time.Zone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Time.Zone)
	if err != nil {
		return nil, fmt.Errorf("time.zone: %w", err)
	}
	return loc, nil
}

// LogOptions adapts the log section for utils.SetupLogging.
func (c *Config) LogOptions() utils.LogOptions {
	return utils.LogOptions{Level: c.Log.Level, Format: c.Log.Format, File: c.Log.File}
}
