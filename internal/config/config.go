// Package config holds the application configuration.
//
// Values are resolved in order: built-in defaults, an optional TOML or YAML
// file, PDFMERGE_* environment variables, and finally flags the user set
// explicitly on the command line.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "PDFMERGE_"

const (
	defaultAddr        = ":8080"
	defaultOutput      = "merged.pdf"
	defaultDownloadTTL = 30 * time.Second
	defaultSessionTTL  = 30 * time.Minute
	defaultMaxUpload   = 256 << 20
	defaultMaxScan     = 100000
	defaultUserAgent   = "PDFMerge/1.0 (+https://example.local)"
	defaultTimeout     = 60 * time.Second
	defaultRate        = 2.0
	defaultBurst       = 2
	defaultRetries     = 2
)

// Config is the resolved configuration.
type Config struct {
	Addr        string        // http listen address
	LibraryRoot string        // optional directory of PDFs offered by the server
	MaxScan     int           // cap on files listed from LibraryRoot
	SpoolDir    string        // parent of per-session upload dirs; os.TempDir when empty
	MaxUpload   int64         // bytes per upload request
	DownloadTTL time.Duration // how long a merged artifact stays downloadable
	SessionTTL  time.Duration // idle time before a session is torn down
	Output      string        // default output path for merge/tui

	UserAgent     string
	RemoteTimeout time.Duration
	RemoteRate    float64 // requests per second to remote hosts
	RemoteBurst   int
	RemoteRetries int

	StrictValidation bool

	LogLevel  string
	LogFormat string
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Addr:          defaultAddr,
		MaxScan:       defaultMaxScan,
		MaxUpload:     defaultMaxUpload,
		DownloadTTL:   defaultDownloadTTL,
		SessionTTL:    defaultSessionTTL,
		Output:        defaultOutput,
		UserAgent:     defaultUserAgent,
		RemoteTimeout: defaultTimeout,
		RemoteRate:    defaultRate,
		RemoteBurst:   defaultBurst,
		RemoteRetries: defaultRetries,
		LogLevel:      "info",
		LogFormat:     "console",
	}
}

// fileConfig mirrors Config for decoding; durations are strings such as
// "30s" and unset keys stay nil.
type fileConfig struct {
	Addr             *string  `toml:"addr" yaml:"addr"`
	LibraryRoot      *string  `toml:"library_root" yaml:"library_root"`
	MaxScan          *int     `toml:"max_scan" yaml:"max_scan"`
	SpoolDir         *string  `toml:"spool_dir" yaml:"spool_dir"`
	MaxUpload        *int64   `toml:"max_upload" yaml:"max_upload"`
	DownloadTTL      *string  `toml:"download_ttl" yaml:"download_ttl"`
	SessionTTL       *string  `toml:"session_ttl" yaml:"session_ttl"`
	Output           *string  `toml:"output" yaml:"output"`
	UserAgent        *string  `toml:"user_agent" yaml:"user_agent"`
	RemoteTimeout    *string  `toml:"remote_timeout" yaml:"remote_timeout"`
	RemoteRate       *float64 `toml:"remote_rate" yaml:"remote_rate"`
	RemoteBurst      *int     `toml:"remote_burst" yaml:"remote_burst"`
	RemoteRetries    *int     `toml:"remote_retries" yaml:"remote_retries"`
	StrictValidation *bool    `toml:"strict_validation" yaml:"strict_validation"`
	LogLevel         *string  `toml:"log_level" yaml:"log_level"`
	LogFormat        *string  `toml:"log_format" yaml:"log_format"`
}

// Load returns defaults overlaid with the file at path (skipped when path is
// empty) and with environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return cfg, err
		}
	}
	cfg.ApplyEnv()
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &Error{Message: fmt.Sprintf("read config %s: %v", path, err)}
	}

	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &fc)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		return &Error{Message: fmt.Sprintf("config %s: unsupported format (want .toml, .yaml or .yml)", path)}
	}
	if err != nil {
		return &Error{Message: fmt.Sprintf("parse config %s: %v", path, err)}
	}

	setString(&c.Addr, fc.Addr)
	setString(&c.LibraryRoot, fc.LibraryRoot)
	setString(&c.SpoolDir, fc.SpoolDir)
	setString(&c.Output, fc.Output)
	setString(&c.UserAgent, fc.UserAgent)
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.LogFormat, fc.LogFormat)
	if fc.MaxScan != nil {
		c.MaxScan = *fc.MaxScan
	}
	if fc.MaxUpload != nil {
		c.MaxUpload = *fc.MaxUpload
	}
	if fc.RemoteRate != nil {
		c.RemoteRate = *fc.RemoteRate
	}
	if fc.RemoteBurst != nil {
		c.RemoteBurst = *fc.RemoteBurst
	}
	if fc.RemoteRetries != nil {
		c.RemoteRetries = *fc.RemoteRetries
	}
	if fc.StrictValidation != nil {
		c.StrictValidation = *fc.StrictValidation
	}
	for _, d := range []struct {
		key string
		src *string
		dst *time.Duration
	}{
		{"download_ttl", fc.DownloadTTL, &c.DownloadTTL},
		{"session_ttl", fc.SessionTTL, &c.SessionTTL},
		{"remote_timeout", fc.RemoteTimeout, &c.RemoteTimeout},
	} {
		if d.src == nil {
			continue
		}
		v, err := time.ParseDuration(*d.src)
		if err != nil {
			return &Error{Message: fmt.Sprintf("config %s: %s: %v", path, d.key, err)}
		}
		*d.dst = v
	}
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

// Validate checks the resolved values.
func (c Config) Validate() error {
	switch {
	case c.Addr == "":
		return &Error{Message: "addr must not be empty"}
	case c.DownloadTTL <= 0:
		return &Error{Message: "download ttl must be positive"}
	case c.SessionTTL <= 0:
		return &Error{Message: "session ttl must be positive"}
	case c.MaxUpload <= 0:
		return &Error{Message: "max upload must be positive"}
	case c.RemoteRate <= 0 || c.RemoteBurst <= 0:
		return &Error{Message: "remote rate and burst must be positive"}
	case c.RemoteRetries < 0:
		return &Error{Message: "remote retries must not be negative"}
	case c.LogFormat != "console" && c.LogFormat != "json":
		return &Error{Message: fmt.Sprintf("unknown log format %q", c.LogFormat)}
	}
	if c.LibraryRoot != "" {
		st, err := os.Stat(c.LibraryRoot)
		if err != nil || !st.IsDir() {
			return &Error{Message: fmt.Sprintf("library root %q is not a directory", c.LibraryRoot)}
		}
	}
	return nil
}

// Error is a configuration problem the user has to fix.
type Error struct {
	Message string
}

func (e *Error) Error() string { return "config: " + e.Message }
