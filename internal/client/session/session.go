// Package session tracks the user's login with the remote credential store
// and gates access to the vault behind it.
//
// A Manager holds at most one Session. Invalidating it (logout, local
// expiry or a token the store rejects) also locks the vault, so a vault is
// never left unlocked without a live session.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/pmvault/internal/api"
	"github.com/dmitrijs2005/pmvault/internal/client/client"
	"github.com/dmitrijs2005/pmvault/internal/client/storage"
	"github.com/dmitrijs2005/pmvault/internal/common"
	"github.com/dmitrijs2005/pmvault/internal/cryptox"
	"github.com/dmitrijs2005/pmvault/internal/logging"
)

type Session struct {
	Username  string
	Token     string
	ExpiresAt time.Time
}

// Locker is the part of the vault the session needs.
type Locker interface {
	Lock()
}

type Manager struct {
	mu      sync.Mutex
	current *Session
	// retryRestore is set when a persisted token could not be checked
	// because the store was unreachable.
	retryRestore bool
	// gen changes on every Login and Invalidate. A restore commits only
	// when it is unchanged since the restore started.
	gen          uint64
	onInvalidate []func()

	ready     chan struct{}
	readyOnce sync.Once

	remote     client.Client
	store      storage.Store
	vault      Locker
	iterations int
	now        func() time.Time
	log        logging.Logger
}

func New(remote client.Client, store storage.Store, vault Locker, log logging.Logger, iterations int) *Manager {
	if iterations <= 0 {
		iterations = cryptox.DefaultIterations
	}
	return &Manager{
		ready:      make(chan struct{}),
		remote:     remote,
		store:      store,
		vault:      vault,
		iterations: iterations,
		now:        time.Now,
		log:        log.With("module", "session"),
	}
}

// OnInvalidate registers fn to run after every invalidation.
func (m *Manager) OnInvalidate(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onInvalidate = append(m.onInvalidate, fn)
}

// Ready blocks until the first Restore has finished or ctx is done.
func (m *Manager) Ready(ctx context.Context) error {
	select {
	case <-m.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Restore re-establishes the session from the persisted token after the
// store confirmed it. A rejected or locally expired token is deleted and
// (nil, nil) returned. When the store is unreachable the token is kept,
// the transport error returned, and the check is retried by the next Token
// call.
func (m *Manager) Restore(ctx context.Context) (*Session, error) {
	defer m.readyOnce.Do(func() { close(m.ready) })
	return m.restore(ctx)
}

func (m *Manager) restore(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	gen := m.gen
	m.mu.Unlock()

	token, err := storage.GetString(ctx, m.store, storage.KeyToken)
	if err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	if token == "" {
		return nil, nil
	}

	if !cryptox.IsTokenValid(token, m.now()) {
		m.log.Info(ctx, "persisted token expired")
		m.forget(ctx, gen)
		return nil, nil
	}

	username, err := m.remote.ReadUser(ctx, token)
	switch {
	case errors.Is(err, client.ErrUnauthorized):
		m.log.Info(ctx, "persisted token rejected")
		m.forget(ctx, gen)
		return nil, nil
	case err != nil:
		m.mu.Lock()
		if m.gen == gen {
			m.retryRestore = true
		}
		m.mu.Unlock()
		m.log.Warn(ctx, "session restore deferred", "err", err)
		return nil, fmt.Errorf("restore session: %w", err)
	}

	exp, _ := cryptox.TokenExpiry(token)
	s := &Session{Username: username, Token: token, ExpiresAt: exp}

	m.mu.Lock()
	if m.gen != gen || m.current != nil {
		cur := m.current
		m.mu.Unlock()
		m.log.Info(ctx, "stale restore discarded")
		if cur == nil {
			return nil, nil
		}
		c := *cur
		return &c, nil
	}
	m.current = s
	m.retryRestore = false
	if err := m.store.Set(ctx, storage.KeyUsername, []byte(username)); err != nil {
		m.log.Warn(ctx, "persist username failed", "err", err)
	}
	m.mu.Unlock()

	m.log.Info(ctx, "session restored", "username", username, "expires_at", exp)
	c := *s
	return &c, nil
}

// Login authenticates against the store and persists the new token. It
// never touches the vault, except that replacing a live session of another
// user invalidates it first.
func (m *Manager) Login(ctx context.Context, username, password string, ttlMinutes int) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", common.ErrInvalidRequest)
	}

	resp, err := m.remote.Login(ctx, username, password, ttlMinutes)
	if err != nil {
		return nil, err
	}

	exp := resp.ExpiresAt
	if exp.IsZero() {
		exp, _ = cryptox.TokenExpiry(resp.AccessToken)
	}

	m.mu.Lock()
	m.gen++
	m.retryRestore = false
	m.mu.Unlock()

	if prev, ok := m.Current(); ok && prev.Username != username {
		m.Invalidate(ctx, "login as another user")
	}

	if err := m.persist(ctx, resp.AccessToken, username); err != nil {
		m.Invalidate(ctx, "persist session failed")
		return nil, err
	}

	s := &Session{Username: username, Token: resp.AccessToken, ExpiresAt: exp}
	m.mu.Lock()
	m.gen++
	m.current = s
	m.retryRestore = false
	m.mu.Unlock()

	m.log.Info(ctx, "logged in", "username", username, "expires_at", exp)
	c := *s
	return &c, nil
}

// Signup registers a new account together with its verification record,
// encrypted under masterPassword. An empty masterPassword means the
// account password doubles as master password.
func (m *Manager) Signup(ctx context.Context, username, password, masterPassword string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return fmt.Errorf("%w: username and password are required", common.ErrInvalidRequest)
	}
	if masterPassword == "" {
		masterPassword = password
	}

	p, err := cryptox.Encrypt(common.VerificationPlaintext(username), masterPassword, m.iterations)
	if err != nil {
		return err
	}
	verification := api.Credential{
		Domain:     common.VerificationDomain,
		Username:   username,
		Ciphertext: p.Ciphertext,
		IV:         p.IV,
		Salt:       p.Salt,
	}

	if err := m.remote.Signup(ctx, username, password, verification); err != nil {
		return err
	}
	m.log.Info(ctx, "account created", "username", username)
	return nil
}

// Invalidate ends the session: the token is dropped from memory and from
// the store, the vault is locked and OnInvalidate hooks run. It is safe to
// call without a session.
func (m *Manager) Invalidate(ctx context.Context, reason string) {
	m.mu.Lock()
	had := m.current != nil
	m.gen++
	m.current = nil
	m.retryRestore = false
	hooks := append([]func(){}, m.onInvalidate...)
	m.mu.Unlock()

	m.vault.Lock()
	if err := m.store.Delete(ctx, storage.KeyToken); err != nil {
		m.log.Warn(ctx, "delete token failed", "err", err)
	}
	for _, fn := range hooks {
		fn()
	}
	if had {
		m.log.Info(ctx, "session invalidated", "reason", reason)
	}
}

// forget deletes the persisted token unless a Login or Invalidate has
// happened since gen was read.
func (m *Manager) forget(ctx context.Context, gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen {
		return
	}
	if err := m.store.Delete(ctx, storage.KeyToken); err != nil {
		m.log.Warn(ctx, "delete token failed", "err", err)
	}
}

func (m *Manager) persist(ctx context.Context, token, username string) error {
	if err := m.store.Set(ctx, storage.KeyToken, []byte(token)); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	if err := m.store.Set(ctx, storage.KeyUsername, []byte(username)); err != nil {
		return fmt.Errorf("persist username: %w", err)
	}
	return nil
}

// Current returns a copy of the live session.
func (m *Manager) Current() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return Session{}, false
	}
	return *m.current, true
}

// Token is the gate in front of every session-bound request. It returns
// common.ErrNotLoggedIn without a session and invalidates and returns
// common.ErrSessionExpired when the token has expired locally.
func (m *Manager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	cur, retry := m.current, m.retryRestore
	m.mu.Unlock()

	if cur == nil && retry {
		s, err := m.restore(ctx)
		if err != nil {
			return "", err
		}
		if s != nil {
			cur = s
		}
	}
	if cur == nil {
		return "", common.ErrNotLoggedIn
	}

	if !cryptox.IsTokenValid(cur.Token, m.now()) {
		m.Invalidate(ctx, "token expired")
		return "", common.ErrSessionExpired
	}
	return cur.Token, nil
}

// Guard turns a store rejection of the token into an invalidation and
// common.ErrSessionExpired; other errors pass through.
func (m *Manager) Guard(ctx context.Context, err error) error {
	if errors.Is(err, client.ErrUnauthorized) {
		m.Invalidate(ctx, "token rejected")
		return fmt.Errorf("%w: %w", common.ErrSessionExpired, err)
	}
	return err
}
