package router

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/pmvault/internal/api"
	"github.com/dmitrijs2005/pmvault/internal/client/client/clienttest"
	"github.com/dmitrijs2005/pmvault/internal/client/session"
	"github.com/dmitrijs2005/pmvault/internal/client/storage"
	"github.com/dmitrijs2005/pmvault/internal/client/vault"
	"github.com/dmitrijs2005/pmvault/internal/cryptox"
	"github.com/dmitrijs2005/pmvault/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIterations = 1000

type fakeEndpoint struct {
	addr string
	err  error
}

func (f *fakeEndpoint) SetEndpoint(addr string) error {
	if f.err != nil {
		return f.err
	}
	f.addr = addr
	return nil
}

type fixture struct {
	r        *Router
	remote   *clienttest.Store
	store    *storage.MemoryStore
	vault    *vault.Engine
	endpoint *fakeEndpoint
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	remote := clienttest.New()
	store := storage.NewMemoryStore()
	v := vault.New(logging.Nop(), testIterations)
	sess := session.New(remote, store, v, logging.Nop(), testIterations)
	_, err := sess.Restore(context.Background())
	require.NoError(t, err)

	ep := &fakeEndpoint{}
	r := New(sess, v, remote, store, logging.Nop(), Options{DefaultAPI: "localhost:50051", Endpoint: ep})
	return &fixture{r: r, remote: remote, store: store, vault: v, endpoint: ep}
}

func (f *fixture) do(t *testing.T, req Request) Response {
	t.Helper()
	return f.r.Dispatch(context.Background(), req)
}

func (f *fixture) ok(t *testing.T, req Request) Response {
	t.Helper()
	resp := f.do(t, req)
	require.Truef(t, resp.OK, "%s failed: %s (%s)", req.Type, resp.Error, resp.ErrorKind)
	return resp
}

func (f *fixture) fails(t *testing.T, req Request, kind Kind) Response {
	t.Helper()
	resp := f.do(t, req)
	require.False(t, resp.OK, "%s unexpectedly succeeded", req.Type)
	assert.Equal(t, kind, resp.ErrorKind)
	assert.NotEmpty(t, resp.Error)
	return resp
}

// loggedIn signs up and logs in alice; the master password is "Master1!".
func (f *fixture) loggedIn(t *testing.T) {
	t.Helper()
	f.ok(t, Request{Type: TypeSignup, Username: "alice", Password: "Secret1!", MasterPassword: "Master1!"})
	f.ok(t, Request{Type: TypeLogin, Username: "alice", Password: "Secret1!", TTL: 10})
}

func (f *fixture) unlocked(t *testing.T) {
	t.Helper()
	f.loggedIn(t)
	f.ok(t, Request{Type: TypeUnlockVault, MasterPassword: "Master1!"})
}

func TestScenario_SignupLoginUnlockCreateLookup(t *testing.T) {
	f := newFixture(t)

	f.ok(t, Request{Type: TypeSignup, Username: "alice", Password: "Secret1!"})
	resp := f.ok(t, Request{Type: TypeLogin, Username: "alice", Password: "Secret1!", TTL: 10})
	require.NotNil(t, resp.Status)
	assert.True(t, resp.Status.LoggedIn)
	assert.False(t, resp.Status.VaultUnlocked)
	assert.Equal(t, "alice", resp.Status.Username)
	assert.Equal(t, 10, f.remote.LastTTL)

	f.fails(t, Request{Type: TypeUnlockVault, MasterPassword: "nope"}, KindMasterPasswordInvalid)
	assert.False(t, f.vault.IsUnlocked())

	resp = f.ok(t, Request{Type: TypeUnlockVault, MasterPassword: "Secret1!"})
	require.NotNil(t, resp.Unlock)
	assert.Equal(t, 0, resp.Unlock.Decrypted)

	resp = f.ok(t, Request{Type: TypeCreateCredential, URL: "https://www.github.com/login", Username: "alice@gh", Password: "gh-pass"})
	require.NotNil(t, resp.Created)
	assert.Equal(t, "github.com", resp.Created.Domain)
	assert.NotContains(t, resp.Created.Ciphertext, "gh-pass")

	resp = f.ok(t, Request{Type: TypeGetForDomain, URL: "https://github.com/settings"})
	require.Len(t, resp.Credentials, 1)
	assert.Equal(t, "alice@gh", resp.Credentials[0].Username)
	assert.Equal(t, "gh-pass", resp.Credentials[0].Password)

	// a fresh unlock decrypts the stored record again
	f.ok(t, Request{Type: TypeLockVault})
	resp = f.ok(t, Request{Type: TypeUnlockVault, MasterPassword: "Secret1!"})
	assert.Equal(t, 1, resp.Unlock.Decrypted)
}

func TestDispatch_UnknownType(t *testing.T) {
	f := newFixture(t)
	f.fails(t, Request{Type: "FLY_TO_MOON"}, KindInvalidRequest)
}

func TestDispatch_Gating(t *testing.T) {
	f := newFixture(t)

	for _, typ := range []Type{TypeLogout, TypeUnlockVault, TypeLockVault, TypeExportVault, TypeGetAll, TypeConfirmSave} {
		f.fails(t, Request{Type: typ}, KindNotLoggedIn)
	}

	f.loggedIn(t)
	for _, typ := range []Type{TypeGetAll, TypeGetForDomain, TypeCountForDomain, TypeCreateCredential, TypePromptToSave, TypeGetPendingSaveData, TypeCancelSave, TypeConfirmSave} {
		f.fails(t, Request{Type: typ, URL: "https://a.com", Password: "p"}, KindVaultLocked)
	}
	assert.Zero(t, f.remote.Calls["CreateCredential"])
}

func TestDispatch_WorksWithoutSession(t *testing.T) {
	f := newFixture(t)

	resp := f.ok(t, Request{Type: TypeGetStatus})
	assert.False(t, resp.Status.LoggedIn)
	assert.False(t, resp.Status.VaultUnlocked)

	f.ok(t, Request{Type: TypeAPIHealthCheck})
	resp = f.ok(t, Request{Type: TypeGetConfig})
	assert.Equal(t, &Config{API: "localhost:50051", TTL: 10}, resp.Config)
}

func TestLogin_Failures(t *testing.T) {
	f := newFixture(t)
	f.ok(t, Request{Type: TypeSignup, Username: "alice", Password: "Secret1!"})

	f.fails(t, Request{Type: TypeLogin, Username: "alice", Password: "wrong", TTL: 10}, KindAuthentication)
	f.fails(t, Request{Type: TypeLogin, Username: "", Password: "x", TTL: 10}, KindInvalidRequest)
	f.fails(t, Request{Type: TypeLogin, Username: "alice", Password: "Secret1!", TTL: 5000}, KindInvalidRequest)
	f.fails(t, Request{Type: TypeSignup, Username: "alice", Password: "other"}, KindAuthentication)

	f.remote.SetDown(true)
	f.fails(t, Request{Type: TypeLogin, Username: "alice", Password: "Secret1!", TTL: 10}, KindTransport)
	f.fails(t, Request{Type: TypeAPIHealthCheck}, KindTransport)
}

func TestLogin_UsesSavedTTL(t *testing.T) {
	f := newFixture(t)
	f.ok(t, Request{Type: TypeSignup, Username: "alice", Password: "Secret1!"})

	f.ok(t, Request{Type: TypeSaveConfig, TTL: 42})
	f.ok(t, Request{Type: TypeLogin, Username: "alice", Password: "Secret1!"})
	assert.Equal(t, 42, f.remote.LastTTL)
}

func TestConfig_SaveAndRead(t *testing.T) {
	f := newFixture(t)

	resp := f.ok(t, Request{Type: TypeSaveConfig, API: " store.example.com:443 ", TTL: 30})
	assert.Equal(t, &Config{API: "store.example.com:443", TTL: 30}, resp.Config)
	assert.Equal(t, "store.example.com:443", f.endpoint.addr)

	resp = f.ok(t, Request{Type: TypeGetConfig})
	assert.Equal(t, &Config{API: "store.example.com:443", TTL: 30}, resp.Config)

	f.fails(t, Request{Type: TypeSaveConfig, TTL: 0, API: ""}, KindInvalidRequest)
	f.fails(t, Request{Type: TypeSaveConfig, TTL: -1}, KindInvalidRequest)
	f.fails(t, Request{Type: TypeSaveConfig, TTL: 1441}, KindInvalidRequest)

	f.endpoint.err = errors.New("bad address")
	f.fails(t, Request{Type: TypeSaveConfig, API: "::nope"}, KindInvalidRequest)
	resp = f.ok(t, Request{Type: TypeGetConfig})
	assert.Equal(t, "store.example.com:443", resp.Config.API)
}

func TestUnlock_ReportsSkippedRecords(t *testing.T) {
	f := newFixture(t)
	f.loggedIn(t)

	foreign, err := cryptox.Encrypt("pw", "someone else", testIterations)
	require.NoError(t, err)
	ids := f.remote.Inject("alice",
		api.Credential{Domain: "a.com", Username: "u", Ciphertext: foreign.Ciphertext, IV: foreign.IV, Salt: foreign.Salt},
		api.Credential{Domain: "b.com", Username: "u"},
	)

	resp := f.ok(t, Request{Type: TypeUnlockVault, MasterPassword: "Master1!"})
	assert.Equal(t, 0, resp.Unlock.Decrypted)
	assert.ElementsMatch(t, ids, resp.Unlock.Skipped)
	assert.Contains(t, resp.Message, "2 could not be decrypted")
}

func TestReadsAndCounts(t *testing.T) {
	f := newFixture(t)
	f.unlocked(t)

	for _, c := range []Request{
		{URL: "https://github.com", Username: "a", Password: "1"},
		{URL: "https://gist.github.com", Username: "b", Password: "2"},
		{Domain: "example.org", Username: "c", Password: "3", Description: "notes"},
	} {
		c.Type = TypeCreateCredential
		f.ok(t, c)
	}

	resp := f.ok(t, Request{Type: TypeGetAll})
	require.Len(t, resp.Credentials, 3)
	for _, c := range resp.Credentials {
		assert.NotEqual(t, "password-manager", c.Domain)
	}

	resp = f.ok(t, Request{Type: TypeCountForDomain, Domain: "github.com"})
	require.NotNil(t, resp.Count)
	assert.Equal(t, 2, *resp.Count)

	resp = f.ok(t, Request{Type: TypeCountForDomain, Domain: ""})
	assert.Equal(t, 0, *resp.Count)

	resp = f.ok(t, Request{Type: TypeGetForDomain, Domain: "example.org"})
	require.Len(t, resp.Credentials, 1)
	assert.Equal(t, "notes", resp.Credentials[0].Description)

	f.fails(t, Request{Type: TypeCreateCredential, Domain: "password-manager", Password: "x"}, KindInvalidRequest)
	f.fails(t, Request{Type: TypeCreateCredential, Domain: "a.com"}, KindInvalidRequest)

	f.ok(t, Request{Type: TypeLockVault})
	f.fails(t, Request{Type: TypeGetAll}, KindVaultLocked)
}

func TestPendingSave(t *testing.T) {
	f := newFixture(t)
	f.unlocked(t)

	resp := f.ok(t, Request{Type: TypeGetPendingSaveData})
	assert.Nil(t, resp.Pending)
	f.fails(t, Request{Type: TypeConfirmSave}, KindInvalidRequest)

	f.fails(t, Request{Type: TypePromptToSave, URL: "https://a.com"}, KindInvalidRequest)
	f.ok(t, Request{Type: TypePromptToSave, URL: "https://a.com/login", Username: "bob", Password: "pw"})
	resp = f.ok(t, Request{Type: TypeGetPendingSaveData})
	assert.Equal(t, &PendingSave{URL: "https://a.com/login", Username: "bob", Password: "pw"}, resp.Pending)

	f.ok(t, Request{Type: TypeCancelSave})
	resp = f.ok(t, Request{Type: TypeGetPendingSaveData})
	assert.Nil(t, resp.Pending)

	f.ok(t, Request{Type: TypePromptToSave, URL: "https://a.com/login", Username: "bob", Password: "pw"})

	// a failed confirmation keeps the pending entry
	f.remote.SetDown(true)
	f.fails(t, Request{Type: TypeConfirmSave}, KindTransport)
	f.remote.SetDown(false)
	resp = f.ok(t, Request{Type: TypeGetPendingSaveData})
	require.NotNil(t, resp.Pending)

	resp = f.ok(t, Request{Type: TypeConfirmSave})
	assert.Equal(t, "a.com", resp.Created.Domain)
	resp = f.ok(t, Request{Type: TypeGetPendingSaveData})
	assert.Nil(t, resp.Pending)

	resp = f.ok(t, Request{Type: TypeGetForDomain, Domain: "a.com"})
	require.Len(t, resp.Credentials, 1)
	assert.Equal(t, "bob", resp.Credentials[0].Username)
}

func TestLockVault_ClearsPending(t *testing.T) {
	f := newFixture(t)
	f.unlocked(t)

	f.ok(t, Request{Type: TypePromptToSave, URL: "https://a.com", Password: "pw"})
	f.ok(t, Request{Type: TypeLockVault})
	f.ok(t, Request{Type: TypeUnlockVault, MasterPassword: "Master1!"})
	resp := f.ok(t, Request{Type: TypeGetPendingSaveData})
	assert.Nil(t, resp.Pending)
}

func TestLogout_LocksAndForgets(t *testing.T) {
	f := newFixture(t)
	f.unlocked(t)

	f.ok(t, Request{Type: TypeLogout})
	assert.False(t, f.vault.IsUnlocked())
	tok, err := storage.GetString(context.Background(), f.store, storage.KeyToken)
	require.NoError(t, err)
	assert.Empty(t, tok)

	resp := f.ok(t, Request{Type: TypeGetStatus})
	assert.False(t, resp.Status.LoggedIn)
	assert.Equal(t, "alice", resp.Status.Username)

	f.fails(t, Request{Type: TypeGetAll}, KindNotLoggedIn)
}

func TestRejectedToken_InvalidatesSession(t *testing.T) {
	f := newFixture(t)
	f.unlocked(t)
	f.ok(t, Request{Type: TypePromptToSave, URL: "https://a.com", Password: "pw"})

	f.remote.Revoke()
	f.fails(t, Request{Type: TypeExportVault}, KindSessionExpired)

	assert.False(t, f.vault.IsUnlocked())
	resp := f.ok(t, Request{Type: TypeGetStatus})
	assert.False(t, resp.Status.LoggedIn)
	assert.False(t, resp.Status.VaultUnlocked)

	// logging in again does not resurrect the pending save
	f.ok(t, Request{Type: TypeLogin, Username: "alice", Password: "Secret1!", TTL: 10})
	f.ok(t, Request{Type: TypeUnlockVault, MasterPassword: "Master1!"})
	resp = f.ok(t, Request{Type: TypeGetPendingSaveData})
	assert.Nil(t, resp.Pending)
}

func TestExpiredToken_InvalidatesSession(t *testing.T) {
	f := newFixture(t)
	f.ok(t, Request{Type: TypeSignup, Username: "alice", Password: "Secret1!"})

	f.remote.TokenTTL = -time.Minute
	f.ok(t, Request{Type: TypeLogin, Username: "alice", Password: "Secret1!", TTL: 10})

	f.fails(t, Request{Type: TypeUnlockVault, MasterPassword: "Secret1!"}, KindSessionExpired)
	f.fails(t, Request{Type: TypeUnlockVault, MasterPassword: "Secret1!"}, KindNotLoggedIn)
	assert.Zero(t, f.remote.Calls["ListCredentials"])
}

func TestExportVault(t *testing.T) {
	f := newFixture(t)
	f.unlocked(t)
	f.ok(t, Request{Type: TypeCreateCredential, Domain: "a.com", Password: "x"})

	resp := f.ok(t, Request{Type: TypeExportVault})
	require.NotNil(t, resp.Export)
	assert.Equal(t, 2, resp.Export.Count)
	assert.NotEmpty(t, resp.Export.URL)
}

func TestLoginAsAnotherUser_LocksVault(t *testing.T) {
	f := newFixture(t)
	f.unlocked(t)
	f.ok(t, Request{Type: TypeSignup, Username: "bob", Password: "Secret2!"})

	resp := f.ok(t, Request{Type: TypeLogin, Username: "bob", Password: "Secret2!", TTL: 10})
	assert.Equal(t, "bob", resp.Status.Username)
	assert.False(t, resp.Status.VaultUnlocked)
}

func TestClassify(t *testing.T) {
	kind, text := Classify(errors.New("boom"))
	assert.Equal(t, KindInternal, kind)
	assert.Equal(t, "internal error", text)

	kind, _ = Classify(context.DeadlineExceeded)
	assert.Equal(t, KindTransport, kind)
}
