// Package router is the agent's message boundary. UI surfaces send typed
// Requests; the router checks the session and vault preconditions of the
// request type, runs it against the session manager, the vault engine and
// the remote store, and answers with a Response that always carries an
// error classification on failure.
package router

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/dmitrijs2005/pmvault/internal/api"
	"github.com/dmitrijs2005/pmvault/internal/client/client"
	"github.com/dmitrijs2005/pmvault/internal/client/session"
	"github.com/dmitrijs2005/pmvault/internal/client/storage"
	"github.com/dmitrijs2005/pmvault/internal/client/vault"
	"github.com/dmitrijs2005/pmvault/internal/common"
	"github.com/dmitrijs2005/pmvault/internal/logging"
)

const maxTTLMinutes = 1440

// EndpointSetter re-points the remote client. *client.Switchable
// implements it.
type EndpointSetter interface {
	SetEndpoint(addr string) error
}

// Options are the router's settings. Zero values are allowed.
type Options struct {
	// DefaultAPI is reported by GET_CONFIG until the user saves one.
	DefaultAPI string
	// DefaultTTL is the session TTL in minutes when neither the request
	// nor the saved config carries one.
	DefaultTTL int
	// Endpoint, when set, is re-pointed by SAVE_CONFIG.
	Endpoint EndpointSetter
}

type handlerFunc func(ctx context.Context, req Request, token string) (Response, error)

type route struct {
	session  bool
	unlocked bool
	fn       handlerFunc
}

type Router struct {
	session *session.Manager
	vault   *vault.Engine
	remote  client.Client
	store   storage.Store
	opts    Options
	log     logging.Logger

	routes map[Type]route

	mu      sync.Mutex
	pending *PendingSave
}

func New(sess *session.Manager, v *vault.Engine, remote client.Client, store storage.Store, log logging.Logger, opts Options) *Router {
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = 10
	}
	r := &Router{
		session: sess,
		vault:   v,
		remote:  remote,
		store:   store,
		opts:    opts,
		log:     log.With("module", "router"),
	}
	r.routes = map[Type]route{
		TypeGetStatus:      {fn: r.getStatus},
		TypeLogin:          {fn: r.login},
		TypeSignup:         {fn: r.signup},
		TypeAPIHealthCheck: {fn: r.healthCheck},
		TypeGetConfig:      {fn: r.getConfig},
		TypeSaveConfig:     {fn: r.saveConfig},

		TypeLogout:      {session: true, fn: r.logout},
		TypeUnlockVault: {session: true, fn: r.unlockVault},
		TypeLockVault:   {session: true, fn: r.lockVault},
		TypeExportVault: {session: true, fn: r.exportVault},

		TypeGetAll:             {session: true, unlocked: true, fn: r.getAll},
		TypeGetForDomain:       {session: true, unlocked: true, fn: r.getForDomain},
		TypeCountForDomain:     {session: true, unlocked: true, fn: r.countForDomain},
		TypeCreateCredential:   {session: true, unlocked: true, fn: r.createCredential},
		TypePromptToSave:       {session: true, unlocked: true, fn: r.promptToSave},
		TypeGetPendingSaveData: {session: true, unlocked: true, fn: r.getPendingSave},
		TypeCancelSave:         {session: true, unlocked: true, fn: r.cancelSave},
		TypeConfirmSave:        {session: true, unlocked: true, fn: r.confirmSave},
	}
	sess.OnInvalidate(r.clearPending)
	return r
}

// Dispatch runs req. It waits for session restoration first, so requests
// arriving while the agent starts see the restored session.
func (r *Router) Dispatch(ctx context.Context, req Request) Response {
	if err := r.session.Ready(ctx); err != nil {
		return r.fail(ctx, req.Type, err)
	}

	rt, ok := r.routes[req.Type]
	if !ok {
		return r.fail(ctx, req.Type, fmt.Errorf("%w: unknown request type %q", common.ErrInvalidRequest, req.Type))
	}

	var token string
	if rt.session {
		var err error
		if token, err = r.session.Token(ctx); err != nil {
			return r.fail(ctx, req.Type, err)
		}
	}
	if rt.unlocked && !r.vault.IsUnlocked() {
		return r.fail(ctx, req.Type, common.ErrVaultLocked)
	}

	resp, err := rt.fn(ctx, req, token)
	if rt.session {
		err = r.session.Guard(ctx, err)
	}
	if err != nil {
		return r.fail(ctx, req.Type, err)
	}
	resp.OK = true
	return resp
}

func (r *Router) fail(ctx context.Context, t Type, err error) Response {
	kind, text := Classify(err)
	if kind == KindInternal {
		r.log.Error(ctx, "request failed", "type", t, "err", err)
	} else {
		r.log.Debug(ctx, "request failed", "type", t, "kind", kind, "err", err)
	}
	return Response{OK: false, ErrorKind: kind, Error: text}
}

// status checks the token first, so an expired session is invalidated
// before the vault state is read.
func (r *Router) status(ctx context.Context) *Status {
	_, err := r.session.Token(ctx)
	st := &Status{VaultUnlocked: r.vault.IsUnlocked()}
	if err == nil {
		if cur, ok := r.session.Current(); ok {
			st.LoggedIn = true
			st.Username = cur.Username
			if !cur.ExpiresAt.IsZero() {
				exp := cur.ExpiresAt
				st.ExpiresAt = &exp
			}
			return st
		}
	}
	if name, err := storage.GetString(ctx, r.store, storage.KeyUsername); err == nil {
		st.Username = name
	}
	return st
}

func (r *Router) getStatus(ctx context.Context, _ Request, _ string) (Response, error) {
	return Response{Status: r.status(ctx)}, nil
}

func (r *Router) login(ctx context.Context, req Request, _ string) (Response, error) {
	ttl := req.TTL
	if ttl == 0 {
		cfg, err := r.config(ctx)
		if err != nil {
			return Response{}, err
		}
		ttl = cfg.TTL
	}
	if err := validTTL(ttl); err != nil {
		return Response{}, err
	}

	sess, err := r.session.Login(ctx, req.Username, req.Password, ttl)
	if err != nil {
		return Response{}, err
	}
	st := &Status{LoggedIn: true, VaultUnlocked: r.vault.IsUnlocked(), Username: sess.Username}
	if !sess.ExpiresAt.IsZero() {
		st.ExpiresAt = &sess.ExpiresAt
	}
	return Response{Message: "logged in", Status: st}, nil
}

func (r *Router) signup(ctx context.Context, req Request, _ string) (Response, error) {
	if err := r.session.Signup(ctx, req.Username, req.Password, req.MasterPassword); err != nil {
		return Response{}, err
	}
	return Response{Message: "account created, please log in"}, nil
}

func (r *Router) healthCheck(ctx context.Context, _ Request, _ string) (Response, error) {
	if err := r.remote.Ping(ctx); err != nil {
		return Response{}, err
	}
	return Response{Message: "credential store reachable"}, nil
}

func (r *Router) config(ctx context.Context) (*Config, error) {
	cfg := &Config{API: r.opts.DefaultAPI, TTL: r.opts.DefaultTTL}

	api, err := storage.GetString(ctx, r.store, storage.KeyAPI)
	if err != nil {
		return nil, err
	}
	if api != "" {
		cfg.API = api
	}

	ttl, err := storage.GetString(ctx, r.store, storage.KeyTTL)
	if err != nil {
		return nil, err
	}
	if n, err := strconv.Atoi(ttl); err == nil && validTTL(n) == nil {
		cfg.TTL = n
	}
	return cfg, nil
}

func (r *Router) getConfig(ctx context.Context, _ Request, _ string) (Response, error) {
	cfg, err := r.config(ctx)
	if err != nil {
		return Response{}, err
	}
	return Response{Config: cfg}, nil
}

func (r *Router) saveConfig(ctx context.Context, req Request, _ string) (Response, error) {
	addr := strings.TrimSpace(req.API)
	if addr == "" && req.TTL == 0 {
		return Response{}, fmt.Errorf("%w: nothing to save", common.ErrInvalidRequest)
	}
	if req.TTL != 0 {
		if err := validTTL(req.TTL); err != nil {
			return Response{}, err
		}
	}

	if addr != "" {
		if r.opts.Endpoint != nil {
			if err := r.opts.Endpoint.SetEndpoint(addr); err != nil {
				return Response{}, fmt.Errorf("%w: endpoint %q: %v", common.ErrInvalidRequest, addr, err)
			}
		}
		if err := r.store.Set(ctx, storage.KeyAPI, []byte(addr)); err != nil {
			return Response{}, err
		}
	}
	if req.TTL != 0 {
		if err := r.store.Set(ctx, storage.KeyTTL, []byte(strconv.Itoa(req.TTL))); err != nil {
			return Response{}, err
		}
	}

	cfg, err := r.config(ctx)
	if err != nil {
		return Response{}, err
	}
	return Response{Message: "settings saved", Config: cfg}, nil
}

func (r *Router) logout(ctx context.Context, _ Request, _ string) (Response, error) {
	r.session.Invalidate(ctx, "logout")
	return Response{Message: "logged out"}, nil
}

func (r *Router) unlockVault(ctx context.Context, req Request, token string) (Response, error) {
	records, err := r.remote.ListCredentials(ctx, token)
	if err != nil {
		return Response{}, err
	}
	cur, ok := r.session.Current()
	if !ok {
		return Response{}, common.ErrNotLoggedIn
	}

	report, err := r.vault.Unlock(ctx, records, req.MasterPassword, cur.Username)
	if err != nil {
		return Response{}, err
	}

	res := &UnlockResult{Decrypted: report.Decrypted}
	for _, s := range report.Skipped {
		res.Skipped = append(res.Skipped, s.ID)
	}
	msg := fmt.Sprintf("vault unlocked, %d credentials", report.Decrypted)
	if n := len(report.Skipped); n > 0 {
		msg += fmt.Sprintf(" (%d could not be decrypted)", n)
	}
	return Response{Message: msg, Unlock: res}, nil
}

func (r *Router) lockVault(_ context.Context, _ Request, _ string) (Response, error) {
	r.vault.Lock()
	r.clearPending()
	return Response{Message: "vault locked"}, nil
}

func (r *Router) exportVault(ctx context.Context, _ Request, token string) (Response, error) {
	exp, err := r.remote.ExportVault(ctx, token)
	if err != nil {
		return Response{}, err
	}
	return Response{Export: exp}, nil
}

func (r *Router) getAll(_ context.Context, _ Request, _ string) (Response, error) {
	all, err := r.vault.All()
	if err != nil {
		return Response{}, err
	}
	return Response{Credentials: all}, nil
}

func lookupKey(req Request) string {
	if req.URL != "" {
		return req.URL
	}
	return req.Domain
}

func (r *Router) getForDomain(_ context.Context, req Request, _ string) (Response, error) {
	matches, err := r.vault.LookupByDomain(lookupKey(req))
	if err != nil {
		return Response{}, err
	}
	return Response{Credentials: matches}, nil
}

func (r *Router) countForDomain(_ context.Context, req Request, _ string) (Response, error) {
	matches, err := r.vault.LookupByDomain(lookupKey(req))
	if err != nil {
		return Response{}, err
	}
	n := len(matches)
	return Response{Count: &n}, nil
}

func (r *Router) persister(token string) vault.Persister {
	return vault.PersistFunc(func(ctx context.Context, c api.Credential) (*api.CreateCredentialResponse, error) {
		return r.remote.CreateCredential(ctx, token, c)
	})
}

func (r *Router) createCredential(ctx context.Context, req Request, token string) (Response, error) {
	created, err := r.vault.CreateCredential(ctx, r.persister(token), vault.NewCredential{
		URL:         req.URL,
		Domain:      req.Domain,
		Username:    req.Username,
		Password:    req.Password,
		Description: req.Description,
	})
	if err != nil {
		return Response{}, err
	}
	return Response{Message: "credential saved", Created: created}, nil
}

func (r *Router) promptToSave(_ context.Context, req Request, _ string) (Response, error) {
	if lookupKey(req) == "" || req.Password == "" {
		return Response{}, fmt.Errorf("%w: url and password are required", common.ErrInvalidRequest)
	}
	r.mu.Lock()
	r.pending = &PendingSave{URL: lookupKey(req), Username: req.Username, Password: req.Password}
	r.mu.Unlock()
	return Response{Message: "waiting for confirmation"}, nil
}

func (r *Router) getPendingSave(_ context.Context, _ Request, _ string) (Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending == nil {
		return Response{}, nil
	}
	p := *r.pending
	return Response{Pending: &p}, nil
}

func (r *Router) cancelSave(_ context.Context, _ Request, _ string) (Response, error) {
	r.clearPending()
	return Response{Message: "save cancelled"}, nil
}

// confirmSave stores the pending credential. The pending entry survives a
// failed attempt so the user can retry.
func (r *Router) confirmSave(ctx context.Context, req Request, token string) (Response, error) {
	r.mu.Lock()
	p := r.pending
	r.mu.Unlock()
	if p == nil {
		return Response{}, common.ErrNoPendingSave
	}

	created, err := r.vault.CreateCredential(ctx, r.persister(token), vault.NewCredential{
		URL:         p.URL,
		Username:    p.Username,
		Password:    p.Password,
		Description: req.Description,
	})
	if err != nil {
		return Response{}, err
	}

	r.mu.Lock()
	if r.pending == p {
		r.pending = nil
	}
	r.mu.Unlock()
	return Response{Message: "credential saved", Created: created}, nil
}

func (r *Router) clearPending() {
	r.mu.Lock()
	r.pending = nil
	r.mu.Unlock()
}

func validTTL(ttl int) error {
	if ttl < 1 || ttl > maxTTLMinutes {
		return fmt.Errorf("%w: ttl must be within 1..%d minutes", common.ErrInvalidRequest, maxTTLMinutes)
	}
	return nil
}
