package cli

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/pmvault/internal/client/agent"
	"github.com/dmitrijs2005/pmvault/internal/client/config"
	"github.com/dmitrijs2005/pmvault/internal/client/router"
)

// RunShell connects to the agent and runs the REPL until the user quits.
func RunShell(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) error {
	conn, err := agent.Dial(ctx, cfg.SocketPath)
	if err != nil {
		return fmt.Errorf("%w (start it with 'pmvault agent')", err)
	}
	defer conn.Close()

	// the watcher gets its own connection so a timed out probe cannot
	// disturb the shell's request stream
	probe := &redialSender{dial: func(ctx context.Context) (sendCloser, error) {
		c, err := agent.Dial(ctx, cfg.SocketPath)
		if err != nil {
			return nil, err
		}
		return c, nil
	}}
	defer probe.Close()

	// unbounded: an unlock derives one key per distinct salt and may take
	// a while; the agent bounds its own remote calls
	app := NewApp(conn, in, out, 0)
	return app.Run(ctx, probe, cfg.OnlineCheckInterval)
}

// Run shows the welcome banner, syncs the prompt with the agent and blocks
// in the REPL. probe, when set, feeds the online status watcher.
func (a *App) Run(ctx context.Context, probe Sender, interval time.Duration) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fmt.Fprintln(a.out, "Welcome to pmvault (type 'help' for commands)")
	if err := a.Refresh(ctx); err != nil {
		return err
	}

	if probe != nil && interval > 0 {
		a.prober = probe
		go func() {
			a.StartOnlineStatusWatcher(ctx, interval)
		}()
	}

	runREPL(ctx, a, a.getStatus, a.reader)
	return nil
}

type sendCloser interface {
	Sender
	Close() error
}

// redialSender holds one agent connection, dialled on first use. A failed
// Send may leave a late response on the stream, so the connection is
// dropped and the next Send dials a fresh one.
type redialSender struct {
	dial func(ctx context.Context) (sendCloser, error)

	mu   sync.Mutex
	conn sendCloser
}

func (r *redialSender) Send(ctx context.Context, req router.Request) (router.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == nil {
		c, err := r.dial(ctx)
		if err != nil {
			return router.Response{}, err
		}
		r.conn = c
	}
	resp, err := r.conn.Send(ctx, req)
	if err != nil {
		r.conn.Close()
		r.conn = nil
	}
	return resp, err
}

func (r *redialSender) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return nil
	}
	err := r.conn.Close()
	r.conn = nil
	return err
}
