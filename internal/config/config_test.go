package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "merged.pdf", cfg.Output)
	assert.Equal(t, 30*time.Second, cfg.DownloadTTL)
}

func TestLoadTOML(t *testing.T) {
	p := writeFile(t, "pdfmerge.toml", `
addr = ":9000"
download_ttl = "5s"
remote_rate = 0.5
strict_validation = true
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, 5*time.Second, cfg.DownloadTTL)
	assert.Equal(t, 0.5, cfg.RemoteRate)
	assert.True(t, cfg.StrictValidation)
	assert.Equal(t, defaultSessionTTL, cfg.SessionTTL, "unset keys keep defaults")
}

func TestLoadYAML(t *testing.T) {
	p := writeFile(t, "pdfmerge.yaml", "addr: \":7000\"\nsession_ttl: 1m\nlog_format: json\n")
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Addr)
	assert.Equal(t, time.Minute, cfg.SessionTTL)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	var cerr *Error
	assert.ErrorAs(t, err, &cerr)

	_, err = Load(writeFile(t, "c.ini", "addr=1"))
	assert.ErrorAs(t, err, &cerr)

	_, err = Load(writeFile(t, "c.toml", `download_ttl = "soon"`))
	assert.ErrorAs(t, err, &cerr)
	assert.Contains(t, err.Error(), "download_ttl")
}

func TestEnvOverridesFile(t *testing.T) {
	p := writeFile(t, "c.toml", `addr = ":9000"`)
	t.Setenv("PDFMERGE_ADDR", ":9100")
	t.Setenv("PDFMERGE_DOWNLOAD_TTL", "2m")
	t.Setenv("PDFMERGE_STRICT_VALIDATION", "yes")
	t.Setenv("PDFMERGE_REMOTE_BURST", "not-a-number")

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Addr)
	assert.Equal(t, 2*time.Minute, cfg.DownloadTTL)
	assert.True(t, cfg.StrictValidation)
	assert.Equal(t, defaultBurst, cfg.RemoteBurst)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"empty addr":    func(c *Config) { c.Addr = "" },
		"zero ttl":      func(c *Config) { c.DownloadTTL = 0 },
		"bad format":    func(c *Config) { c.LogFormat = "xml" },
		"missing root":  func(c *Config) { c.LibraryRoot = filepath.Join(os.TempDir(), "does-not-exist-pdfmerge") },
		"no rate":       func(c *Config) { c.RemoteRate = 0 },
		"no upload cap": func(c *Config) { c.MaxUpload = 0 },
	}
	for name, mut := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mut(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := Default()
	cfg.LibraryRoot = t.TempDir()
	assert.NoError(t, cfg.Validate())
}
