package client

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/pmvault/internal/api"
)

// Dialer opens a Client for an endpoint address.
type Dialer func(addr string) (Client, error)

// Switchable is a Client that forwards to a connection for the current
// endpoint. SetEndpoint re-points it at runtime; calls already in flight
// finish on the old connection, which is closed once they have returned.
type Switchable struct {
	mu   sync.RWMutex
	addr string
	cur  *tracked
	dial Dialer
}

// tracked counts the calls running on a connection.
type tracked struct {
	Client
	inflight sync.WaitGroup
}

var _ Client = (*Switchable)(nil)

func NewSwitchable(addr string, dial Dialer) (*Switchable, error) {
	c, err := dial(addr)
	if err != nil {
		return nil, err
	}
	return &Switchable{addr: addr, cur: &tracked{Client: c}, dial: dial}, nil
}

func (s *Switchable) Endpoint() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// SetEndpoint dials addr and swaps it in, then waits for the calls still
// running on the previous connection before closing it. On a dial error
// the current connection stays in use. Setting the current address is a
// no-op.
func (s *Switchable) SetEndpoint(addr string) error {
	s.mu.Lock()
	if addr == s.addr {
		s.mu.Unlock()
		return nil
	}
	c, err := s.dial(addr)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	old := s.cur
	s.cur, s.addr = &tracked{Client: c}, addr
	s.mu.Unlock()

	old.inflight.Wait()
	return old.Close()
}

// acquire returns the current connection with the call counted; the
// caller must call inflight.Done when the call returns.
func (s *Switchable) acquire() *tracked {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.cur.inflight.Add(1)
	return s.cur
}

func (s *Switchable) Close() error {
	s.mu.RLock()
	c := s.cur
	s.mu.RUnlock()
	return c.Close()
}

func (s *Switchable) Ping(ctx context.Context) error {
	c := s.acquire()
	defer c.inflight.Done()
	return c.Ping(ctx)
}

func (s *Switchable) Signup(ctx context.Context, username, password string, verification api.Credential) error {
	c := s.acquire()
	defer c.inflight.Done()
	return c.Signup(ctx, username, password, verification)
}

func (s *Switchable) Login(ctx context.Context, username, password string, ttlMinutes int) (*api.LoginResponse, error) {
	c := s.acquire()
	defer c.inflight.Done()
	return c.Login(ctx, username, password, ttlMinutes)
}

func (s *Switchable) ReadUser(ctx context.Context, token string) (string, error) {
	c := s.acquire()
	defer c.inflight.Done()
	return c.ReadUser(ctx, token)
}

func (s *Switchable) ListCredentials(ctx context.Context, token string) ([]api.Credential, error) {
	c := s.acquire()
	defer c.inflight.Done()
	return c.ListCredentials(ctx, token)
}

func (s *Switchable) CreateCredential(ctx context.Context, token string, cred api.Credential) (*api.CreateCredentialResponse, error) {
	c := s.acquire()
	defer c.inflight.Done()
	return c.CreateCredential(ctx, token, cred)
}

func (s *Switchable) ExportVault(ctx context.Context, token string) (*api.ExportVaultResponse, error) {
	c := s.acquire()
	defer c.inflight.Done()
	return c.ExportVault(ctx, token)
}
