package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/pmvault/internal/flagx"
)

var knownFlags = []string{"-a", "-s", "-d", "-k", "-t", "-r", "-l"}

// parseFlags overlays cfg with the flags it knows about; everything else in
// args is ignored. Panics on malformed values.
func parseFlags(cfg *Config, args []string) {
	args = flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("pmvault", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port of the credential store")
	fs.StringVar(&cfg.SocketPath, "s", cfg.SocketPath, "agent socket path")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "local database path")
	fs.IntVar(&cfg.KDFIterations, "k", cfg.KDFIterations, "PBKDF2 iterations")
	fs.IntVar(&cfg.DefaultTTLMinutes, "t", cfg.DefaultTTLMinutes, "default session TTL (minutes)")
	timeout := fs.Int("r", int(cfg.RequestTimeout.Seconds()), "remote call timeout (seconds)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "r" {
			cfg.RequestTimeout = time.Duration(*timeout) * time.Second
		}
	})

	if cfg.KDFIterations <= 0 {
		panic(fmt.Errorf("kdf iterations must be positive, got %d", cfg.KDFIterations))
	}
	if cfg.DefaultTTLMinutes < 1 || cfg.DefaultTTLMinutes > MaxTTLMinutes {
		panic(fmt.Errorf("ttl must be within 1..%d minutes, got %d", MaxTTLMinutes, cfg.DefaultTTLMinutes))
	}
}
