package config

import (
	"github.com/dmitrijs2005/pmvault/internal/flagx"
	"github.com/dmitrijs2005/pmvault/internal/timex"
)

// fileConfig is the on-disk shape of Config. Zero values leave the
// corresponding setting untouched.
type fileConfig struct {
	ServerEndpointAddr  string         `json:"server_endpoint_addr" yaml:"server_endpoint_addr"`
	SocketPath          string         `json:"socket_path" yaml:"socket_path"`
	DatabasePath        string         `json:"database_path" yaml:"database_path"`
	KDFIterations       int            `json:"kdf_iterations" yaml:"kdf_iterations"`
	DefaultTTLMinutes   int            `json:"default_ttl_minutes" yaml:"default_ttl_minutes"`
	RequestTimeout      timex.Duration `json:"request_timeout" yaml:"request_timeout"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval" yaml:"online_check_interval"`
	LogBackend          string         `json:"log_backend" yaml:"log_backend"`
	LogFormat           string         `json:"log_format" yaml:"log_format"`
	LogLevel            string         `json:"log_level" yaml:"log_level"`
}

// parseFile overlays cfg with the file named by -c/-config in args.
// Panics on read or decode errors.
func parseFile(cfg *Config, args []string) {
	path := flagx.ConfigFile(args)
	if path == "" {
		return
	}

	var fc fileConfig
	if err := flagx.DecodeFile(path, &fc); err != nil {
		panic(err)
	}

	setString(&cfg.ServerEndpointAddr, fc.ServerEndpointAddr)
	setString(&cfg.SocketPath, fc.SocketPath)
	setString(&cfg.DatabasePath, fc.DatabasePath)
	setString(&cfg.LogBackend, fc.LogBackend)
	setString(&cfg.LogFormat, fc.LogFormat)
	setString(&cfg.LogLevel, fc.LogLevel)
	if fc.KDFIterations > 0 {
		cfg.KDFIterations = fc.KDFIterations
	}
	if fc.DefaultTTLMinutes > 0 {
		cfg.DefaultTTLMinutes = fc.DefaultTTLMinutes
	}
	if fc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = fc.RequestTimeout.Duration
	}
	if fc.OnlineCheckInterval.Duration > 0 {
		cfg.OnlineCheckInterval = fc.OnlineCheckInterval.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
