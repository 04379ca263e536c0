package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/pmvault/internal/cryptox"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults() *Config {
	c := &Config{}
	c.LoadDefaults()
	return c
}

func TestLoadDefaults(t *testing.T) {
	c := defaults()

	assert.Equal(t, "127.0.0.1:50051", c.ServerEndpointAddr)
	assert.Equal(t, cryptox.DefaultIterations, c.KDFIterations)
	assert.Equal(t, DefaultTTLMinutes, c.DefaultTTLMinutes)
	assert.Equal(t, 10*time.Second, c.RequestTimeout)
	assert.NotEmpty(t, c.SocketPath)
	assert.NotEmpty(t, c.DatabasePath)
}

func TestLoad_NoArgsGivesDefaults(t *testing.T) {
	assert.Empty(t, cmp.Diff(defaults(), Load(nil)))
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		mod         func(c *Config)
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{"-a", "10.0.0.1:9090", "-s", "/tmp/a.sock", "-d", "/tmp/a.db", "-k", "1000", "-t", "30", "-r", "3", "-l", "debug"},
			mod: func(c *Config) {
				c.ServerEndpointAddr = "10.0.0.1:9090"
				c.SocketPath = "/tmp/a.sock"
				c.DatabasePath = "/tmp/a.db"
				c.KDFIterations = 1000
				c.DefaultTTLMinutes = 30
				c.RequestTimeout = 3 * time.Second
				c.LogLevel = "debug"
			},
		},
		{
			name: "unknown flags and subcommand words ignored",
			args: []string{"agent", "--verbose", "-a", "h:1"},
			mod:  func(c *Config) { c.ServerEndpointAddr = "h:1" },
		},
		{name: "bad number", args: []string{"-k", "many"}, expectPanic: true},
		{name: "ttl too large", args: []string{"-t", "1441"}, expectPanic: true},
		{name: "ttl zero", args: []string{"-t", "0"}, expectPanic: true},
		{name: "negative iterations", args: []string{"-k=-1"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(cfg, tt.args) })
				return
			}

			want := defaults()
			tt.mod(want)
			require.NotPanics(t, func() { parseFlags(cfg, tt.args) })
			assert.Empty(t, cmp.Diff(want, cfg))
		})
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "cfg.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{
		"server_endpoint_addr": "json.example:9000",
		"request_timeout": "4s",
		"log_backend": "zerolog"
	}`), 0o600))

	yamlPath := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(
		"server_endpoint_addr: yaml.example:9000\nkdf_iterations: 5000\ndefault_ttl_minutes: 60\n"), 0o600))

	t.Run("json", func(t *testing.T) {
		cfg := defaults()
		parseFile(cfg, []string{"-c", jsonPath})

		assert.Equal(t, "json.example:9000", cfg.ServerEndpointAddr)
		assert.Equal(t, 4*time.Second, cfg.RequestTimeout)
		assert.Equal(t, "zerolog", cfg.LogBackend)
		assert.Equal(t, cryptox.DefaultIterations, cfg.KDFIterations)
	})

	t.Run("yaml", func(t *testing.T) {
		cfg := defaults()
		parseFile(cfg, []string{"-config", yamlPath})

		assert.Equal(t, "yaml.example:9000", cfg.ServerEndpointAddr)
		assert.Equal(t, 5000, cfg.KDFIterations)
		assert.Equal(t, 60, cfg.DefaultTTLMinutes)
	})

	t.Run("no file flag leaves cfg untouched", func(t *testing.T) {
		cfg := defaults()
		parseFile(cfg, []string{"-a", "x:1"})
		assert.Empty(t, cmp.Diff(defaults(), cfg))
	})

	t.Run("invalid file panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ not json`), 0o600))
		require.Panics(t, func() { parseFile(defaults(), []string{"-c", bad}) })
	})
}

func TestLoad_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"server_endpoint_addr":"file:1","log_level":"warn"}`), 0o600))

	cfg := Load([]string{"-c", path, "-a", "flag:2"})

	assert.Equal(t, "flag:2", cfg.ServerEndpointAddr)
	assert.Equal(t, "warn", cfg.LogLevel)
}
