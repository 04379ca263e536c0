package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/pmvault/internal/client/router"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// Sender delivers a request to the agent. *agent.Client implements it.
type Sender interface {
	Send(ctx context.Context, req router.Request) (router.Response, error)
}

// ErrRequestFailed wraps the display text of a failed agent response.
var ErrRequestFailed = errors.New("request failed")

type App struct {
	agent   Sender
	reader  *bufio.Reader
	out     io.Writer
	timeout time.Duration
	// prober, when set, carries the watcher's health checks.
	prober Sender

	mu       sync.Mutex
	userName string
	loggedIn bool
	unlocked bool
	Mode     Mode
}

// NewApp returns a shell reading from in and writing to out. timeout
// bounds every agent round trip; zero means no bound.
func NewApp(agent Sender, in io.Reader, out io.Writer, timeout time.Duration) *App {
	return &App{agent: agent, reader: bufio.NewReader(in), out: out, timeout: timeout}
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.Mode != mode
	a.Mode = mode
	a.mu.Unlock()
	if changed {
		fmt.Fprintf(a.out, "Switched to %s mode\n", mode)
	}
}

func (a *App) isLoggedIn() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loggedIn
}

func (a *App) isUnlocked() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.unlocked
}

func (a *App) setStatus(st *router.Status) {
	if st == nil {
		return
	}
	a.mu.Lock()
	a.loggedIn = st.LoggedIn
	a.unlocked = st.VaultUnlocked
	if st.Username != "" {
		a.userName = st.Username
	}
	a.mu.Unlock()
}

// send performs one agent round trip. A failed response is printed and
// returned as an error wrapping ErrRequestFailed; a session or lock
// failure also updates the prompt state.
func (a *App) send(ctx context.Context, req router.Request) (router.Response, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	resp, err := a.agent.Send(ctx, req)
	if err != nil {
		fmt.Fprintf(a.out, "error: %v\n", err)
		return resp, err
	}
	if !resp.OK {
		switch resp.ErrorKind {
		case router.KindSessionExpired, router.KindNotLoggedIn:
			a.setStatus(&router.Status{})
		case router.KindVaultLocked:
			a.mu.Lock()
			a.unlocked = false
			a.mu.Unlock()
		}
		fmt.Fprintf(a.out, "error: %s\n", resp.Error)
		return resp, fmt.Errorf("%w: %s", ErrRequestFailed, resp.Error)
	}
	return resp, nil
}

// Refresh pulls the agent status into the prompt.
func (a *App) Refresh(ctx context.Context) error {
	resp, err := a.send(ctx, router.Request{Type: router.TypeGetStatus})
	if err != nil {
		return err
	}
	a.setStatus(resp.Status)
	return nil
}

func (a *App) getStatus() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := ""
	if a.userName != "" {
		s = a.userName + " "
	}
	if a.loggedIn {
		if a.unlocked {
			s += "unlocked "
		} else {
			s += "locked "
		}
	}
	if a.Mode != "" {
		s += string(a.Mode)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// StartOnlineStatusWatcher probes the credential store every interval and
// flips Mode accordingly until ctx is done.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) probe(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	s := a.prober
	if s == nil {
		s = a.agent
	}
	resp, err := s.Send(ctx, router.Request{Type: router.TypeAPIHealthCheck})
	if err != nil || !resp.OK {
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)
}
