package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/pmvault/internal/cryptox"
)

const (
	DefaultTTLMinutes = 10
	MaxTTLMinutes     = 1440
)

// Config holds runtime settings for the agent and the shell.
type Config struct {
	ServerEndpointAddr  string
	SocketPath          string
	DatabasePath        string
	KDFIterations       int
	DefaultTTLMinutes   int
	RequestTimeout      time.Duration
	// OnlineCheckInterval is how often the shell probes the credential
	// store through the agent.
	OnlineCheckInterval time.Duration
	LogBackend          string
	LogFormat           string
	LogLevel            string
}

// LoadDefaults populates c with defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.SocketPath = filepath.Join(os.TempDir(), "pmvault-agent.sock")
	c.DatabasePath = defaultDatabasePath()
	c.KDFIterations = cryptox.DefaultIterations
	c.DefaultTTLMinutes = DefaultTTLMinutes
	c.RequestTimeout = 10 * time.Second
	c.OnlineCheckInterval = 30 * time.Second
	c.LogBackend = "slog"
	c.LogFormat = "text"
	c.LogLevel = "info"
}

// Load builds a Config from defaults, then the config file named by -c or
// -config (JSON or YAML), then flags. Later sources win. Invalid input
// panics.
func Load(args []string) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg, args)
	parseFlags(cfg, args)
	return cfg
}

func defaultDatabasePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "pmvault.db"
	}
	return filepath.Join(dir, "pmvault", "agent.db")
}
