package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnv overlays PDFMERGE_* environment variables. Unparseable values are
// ignored.
func (c *Config) ApplyEnv() {
	c.Addr = getEnvString("ADDR", c.Addr)
	c.LibraryRoot = getEnvString("LIBRARY_ROOT", c.LibraryRoot)
	c.MaxScan = getEnvInt("MAX_SCAN", c.MaxScan)
	c.SpoolDir = getEnvString("SPOOL_DIR", c.SpoolDir)
	c.MaxUpload = int64(getEnvInt("MAX_UPLOAD", int(c.MaxUpload)))
	c.DownloadTTL = getEnvDuration("DOWNLOAD_TTL", c.DownloadTTL)
	c.SessionTTL = getEnvDuration("SESSION_TTL", c.SessionTTL)
	c.Output = getEnvString("OUTPUT", c.Output)
	c.UserAgent = getEnvString("USER_AGENT", c.UserAgent)
	c.RemoteTimeout = getEnvDuration("REMOTE_TIMEOUT", c.RemoteTimeout)
	c.RemoteRate = getEnvFloat("REMOTE_RATE", c.RemoteRate)
	c.RemoteBurst = getEnvInt("REMOTE_BURST", c.RemoteBurst)
	c.RemoteRetries = getEnvInt("REMOTE_RETRIES", c.RemoteRetries)
	c.StrictValidation = getEnvBool("STRICT_VALIDATION", c.StrictValidation)
	c.LogLevel = getEnvString("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnvString("LOG_FORMAT", c.LogFormat)
}

func getEnvString(key, def string) string {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// getEnvBool accepts true/1/yes and false/0/no in any case.
func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		switch strings.ToLower(v) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
