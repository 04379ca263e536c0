package cli

import (
	"context"
	"fmt"

	"github.com/awnumar/memguard"
	"github.com/dmitrijs2005/pmvault/internal/client/agent"
	"github.com/dmitrijs2005/pmvault/internal/client/client"
	"github.com/dmitrijs2005/pmvault/internal/client/config"
	"github.com/dmitrijs2005/pmvault/internal/client/router"
	"github.com/dmitrijs2005/pmvault/internal/client/session"
	"github.com/dmitrijs2005/pmvault/internal/client/storage"
	"github.com/dmitrijs2005/pmvault/internal/client/vault"
	"github.com/dmitrijs2005/pmvault/internal/logging"
)

// RunAgent wires the agent's components and serves the socket until ctx
// is done. Secrets held in guarded memory are purged on return.
func RunAgent(ctx context.Context, cfg *config.Config, log logging.Logger) error {
	defer memguard.Purge()

	db, err := storage.InitDatabase(ctx, cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("error initializing database: %w", err)
	}
	defer db.Close()
	store := storage.NewSQLiteStore(db)

	// a saved endpoint wins over the configured one
	addr := cfg.ServerEndpointAddr
	if saved, err := storage.GetString(ctx, store, storage.KeyAPI); err == nil && saved != "" {
		addr = saved
	}

	remote, err := client.NewSwitchable(addr, func(addr string) (client.Client, error) {
		c, err := client.New(addr)
		if err != nil {
			return nil, err
		}
		c.SetCallTimeout(cfg.RequestTimeout)
		return c, nil
	})
	if err != nil {
		return err
	}
	defer remote.Close()

	v := vault.New(log, cfg.KDFIterations)
	sess := session.New(remote, store, v, log, cfg.KDFIterations)
	r := router.New(sess, v, remote, store, log, router.Options{
		DefaultAPI: cfg.ServerEndpointAddr,
		DefaultTTL: cfg.DefaultTTLMinutes,
		Endpoint:   remote,
	})

	ln, err := agent.Listen(cfg.SocketPath)
	if err != nil {
		return err
	}

	go func() {
		if _, err := sess.Restore(ctx); err != nil {
			log.Warn(ctx, "session not restored", "err", err)
		}
	}()

	log.Info(ctx, "agent started", "socket", cfg.SocketPath, "store", addr)
	err = agent.NewServer(r, log).Serve(ctx, ln)
	v.Lock()
	log.Info(ctx, "agent stopped")
	return err
}
