// Package clienttest provides an in-memory credential store implementing
// client.Client for tests.
package clienttest

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/pmvault/internal/api"
	"github.com/dmitrijs2005/pmvault/internal/client/client"
	"github.com/golang-jwt/jwt/v5"
)

var secret = []byte("clienttest")

type user struct {
	id       string
	name     string
	password string
	creds    []api.Credential
}

// Store keeps accounts and records in memory and issues real HS256 tokens
// so the local expiry check works against them.
type Store struct {
	mu     sync.Mutex
	users  map[string]*user
	nextID int

	// Down makes every call fail with client.ErrUnavailable.
	Down bool
	// TokenTTL, when set, replaces the requested TTL. A negative value
	// issues tokens that are already expired.
	TokenTTL time.Duration
	// LastTTL is the TTL of the last Login call in minutes.
	LastTTL int
	// Revoked rejects every token issued so far.
	Revoked bool
	// Calls counts calls by method name.
	Calls map[string]int
}

var _ client.Client = (*Store)(nil)

func New() *Store {
	return &Store{users: map[string]*user{}, Calls: map[string]int{}}
}

func (s *Store) enter(method string) error {
	s.Calls[method]++
	if s.Down {
		return client.ErrUnavailable
	}
	return nil
}

func (s *Store) id() string {
	s.nextID++
	return strconv.Itoa(s.nextID)
}

func (s *Store) auth(token string) (*user, error) {
	if s.Revoked {
		return nil, client.ErrUnauthorized
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) { return secret, nil })
	if err != nil {
		return nil, client.ErrUnauthorized
	}
	u, ok := s.users[claims.Subject]
	if !ok {
		return nil, client.ErrUnauthorized
	}
	return u, nil
}

func (s *Store) Close() error { return nil }

func (s *Store) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enter("Ping")
}

func (s *Store) Signup(_ context.Context, username, password string, verification api.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("Signup"); err != nil {
		return err
	}
	if _, ok := s.users[username]; ok {
		return client.ErrConflict
	}
	verification.ID = s.id()
	s.users[username] = &user{id: s.id(), name: username, password: password, creds: []api.Credential{verification}}
	return nil
}

func (s *Store) Login(_ context.Context, username, password string, ttlMinutes int) (*api.LoginResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("Login"); err != nil {
		return nil, err
	}
	u, ok := s.users[username]
	if !ok || u.password != password {
		return nil, client.ErrUnauthorized
	}
	s.LastTTL = ttlMinutes
	s.Revoked = false

	ttl := time.Duration(ttlMinutes) * time.Minute
	if s.TokenTTL != 0 {
		ttl = s.TokenTTL
	}
	exp := time.Now().Add(ttl).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   username,
		ID:        s.id(),
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString(secret)
	if err != nil {
		return nil, err
	}
	return &api.LoginResponse{AccessToken: token, TokenType: "Bearer", ExpiresAt: exp}, nil
}

func (s *Store) ReadUser(_ context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ReadUser"); err != nil {
		return "", err
	}
	u, err := s.auth(token)
	if err != nil {
		return "", err
	}
	return u.name, nil
}

func (s *Store) ListCredentials(_ context.Context, token string) ([]api.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListCredentials"); err != nil {
		return nil, err
	}
	u, err := s.auth(token)
	if err != nil {
		return nil, err
	}
	return append([]api.Credential(nil), u.creds...), nil
}

func (s *Store) CreateCredential(_ context.Context, token string, c api.Credential) (*api.CreateCredentialResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateCredential"); err != nil {
		return nil, err
	}
	u, err := s.auth(token)
	if err != nil {
		return nil, err
	}
	if !c.Complete() {
		return nil, fmt.Errorf("%w: incomplete record", client.ErrRejected)
	}
	c.ID = s.id()
	u.creds = append(u.creds, c)
	return &api.CreateCredentialResponse{ID: c.ID, CreatedAt: time.Now()}, nil
}

func (s *Store) ExportVault(_ context.Context, token string) (*api.ExportVaultResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ExportVault"); err != nil {
		return nil, err
	}
	u, err := s.auth(token)
	if err != nil {
		return nil, err
	}
	key := "exports/" + u.id + ".json"
	return &api.ExportVaultResponse{
		Key:       key,
		URL:       "https://exports.example.test/" + key,
		Count:     len(u.creds),
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}, nil
}

// Inject appends raw records to username's vault.
func (s *Store) Inject(username string, recs ...api.Credential) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[username]
	ids := make([]string, 0, len(recs))
	for _, r := range recs {
		r.ID = s.id()
		u.creds = append(u.creds, r)
		ids = append(ids, r.ID)
	}
	return ids
}

// Records returns a copy of username's stored records.
func (s *Store) Records(username string) []api.Credential {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return nil
	}
	return append([]api.Credential(nil), u.creds...)
}

// SetDown toggles Down under the store's lock.
func (s *Store) SetDown(down bool) {
	s.mu.Lock()
	s.Down = down
	s.mu.Unlock()
}

// Revoke rejects all tokens issued so far until the next Login.
func (s *Store) Revoke() {
	s.mu.Lock()
	s.Revoked = true
	s.mu.Unlock()
}
