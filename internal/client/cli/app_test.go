package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/pmvault/internal/api"
	"github.com/dmitrijs2005/pmvault/internal/client/router"
	"github.com/dmitrijs2005/pmvault/internal/client/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSender answers from a per-type table and records requests.
type fakeSender struct {
	replies map[router.Type]router.Response
	err     error
	sent    []router.Request
}

func (f *fakeSender) Send(_ context.Context, req router.Request) (router.Response, error) {
	f.sent = append(f.sent, req)
	if f.err != nil {
		return router.Response{}, f.err
	}
	if r, ok := f.replies[req.Type]; ok {
		return r, nil
	}
	return router.Response{OK: true}, nil
}

func (f *fakeSender) last() router.Request {
	return f.sent[len(f.sent)-1]
}

func newTestApp(s Sender, input string) (*App, *bytes.Buffer) {
	var out bytes.Buffer
	return NewApp(s, strings.NewReader(input), &out, time.Second), &out
}

// stubInputs replaces the prompt helpers with canned answers.
func stubInputs(t *testing.T, texts []string, passwords []string) {
	t.Helper()
	origST, origGP, origML, origCF := getSimpleText, getPassword, getMultiline, confirm
	t.Cleanup(func() {
		getSimpleText, getPassword, getMultiline, confirm = origST, origGP, origML, origCF
	})

	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) {
		if len(texts) == 0 {
			return "", io.EOF
		}
		v := texts[0]
		texts = texts[1:]
		return v, nil
	}
	getMultiline = func(r *bufio.Reader, p string, w io.Writer) (string, error) {
		return getSimpleText(r, p, w)
	}
	confirm = func(r *bufio.Reader, p string, w io.Writer) (bool, error) {
		ans, err := getSimpleText(r, p, w)
		return ans == "y", err
	}
	getPassword = func(io.Writer, string) ([]byte, error) {
		if len(passwords) == 0 {
			return nil, io.EOF
		}
		v := passwords[0]
		passwords = passwords[1:]
		return []byte(v), nil
	}
}

func TestSetMode_PrintsOnChangeOnly(t *testing.T) {
	app, out := newTestApp(&fakeSender{}, "")

	app.setMode(ModeOnline)
	assert.Equal(t, ModeOnline, app.Mode)
	assert.Contains(t, out.String(), "online")

	out.Reset()
	app.setMode(ModeOnline)
	assert.Empty(t, out.String())

	app.setMode(ModeOffline)
	assert.Contains(t, out.String(), "offline")
}

func TestGetStatus(t *testing.T) {
	app, _ := newTestApp(&fakeSender{}, "")
	assert.Equal(t, "", app.getStatus())

	app.setStatus(&router.Status{LoggedIn: true, Username: "alice"})
	assert.Equal(t, "(alice locked )", app.getStatus())

	app.setStatus(&router.Status{LoggedIn: true, VaultUnlocked: true, Username: "alice"})
	app.Mode = ModeOnline
	assert.Equal(t, "(alice unlocked online)", app.getStatus())
}

func TestSend_FailureUpdatesState(t *testing.T) {
	s := &fakeSender{replies: map[router.Type]router.Response{
		router.TypeGetAll: {ErrorKind: router.KindSessionExpired, Error: "session expired, please log in again"},
	}}
	app, out := newTestApp(s, "")
	app.setStatus(&router.Status{LoggedIn: true, VaultUnlocked: true, Username: "alice"})

	err := app.List(context.Background())
	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.False(t, app.isLoggedIn())
	assert.False(t, app.isUnlocked())
	assert.Contains(t, out.String(), "session expired, please log in again")
}

func TestSend_TransportError(t *testing.T) {
	s := &fakeSender{err: errors.New("agent is not running")}
	app, out := newTestApp(s, "")

	assert.Error(t, app.Status(context.Background()))
	assert.Contains(t, out.String(), "agent is not running")
}

func TestProbe_FlipsMode(t *testing.T) {
	s := &fakeSender{}
	app, _ := newTestApp(s, "")

	app.probe(context.Background())
	assert.Equal(t, ModeOnline, app.Mode)

	s.replies = map[router.Type]router.Response{router.TypeAPIHealthCheck: {ErrorKind: router.KindTransport}}
	app.probe(context.Background())
	assert.Equal(t, ModeOffline, app.Mode)

	// a dedicated prober wins over the main connection
	p := &fakeSender{}
	app.prober = p
	app.probe(context.Background())
	assert.Equal(t, ModeOnline, app.Mode)
	assert.Len(t, p.sent, 1)
}

func TestSignup_SendsBothPasswords(t *testing.T) {
	stubInputs(t, []string{"alice"}, []string{"Secret1!", "Master1!"})
	s := &fakeSender{replies: map[router.Type]router.Response{
		router.TypeSignup: {OK: true, Message: "account created, please log in"},
	}}
	app, out := newTestApp(s, "")

	require.NoError(t, app.Signup(context.Background()))
	assert.Equal(t, router.Request{Type: router.TypeSignup, Username: "alice", Password: "Secret1!", MasterPassword: "Master1!"}, s.last())
	assert.Contains(t, out.String(), "account created")
}

func TestLogin(t *testing.T) {
	stubInputs(t, []string{"alice", "30"}, []string{"Secret1!"})
	s := &fakeSender{replies: map[router.Type]router.Response{
		router.TypeLogin: {OK: true, Message: "logged in", Status: &router.Status{LoggedIn: true, Username: "alice"}},
	}}
	app, _ := newTestApp(s, "")

	require.NoError(t, app.Login(context.Background()))
	assert.Equal(t, router.Request{Type: router.TypeLogin, Username: "alice", Password: "Secret1!", TTL: 30}, s.last())
	assert.True(t, app.isLoggedIn())
}

func TestLogin_BadTTL(t *testing.T) {
	stubInputs(t, []string{"alice", "soon"}, []string{"Secret1!"})
	s := &fakeSender{}
	app, out := newTestApp(s, "")

	assert.Error(t, app.Login(context.Background()))
	assert.Empty(t, s.sent)
	assert.Contains(t, out.String(), "not a number")
}

func TestUnlockAndLock(t *testing.T) {
	stubInputs(t, nil, []string{"Master1!"})
	s := &fakeSender{}
	app, _ := newTestApp(s, "")

	require.NoError(t, app.Unlock(context.Background()))
	assert.Equal(t, "Master1!", s.last().MasterPassword)
	assert.True(t, app.isUnlocked())

	require.NoError(t, app.Lock(context.Background()))
	assert.Equal(t, router.TypeLockVault, s.last().Type)
	assert.False(t, app.isUnlocked())
}

func TestList_HidesPasswords(t *testing.T) {
	creds := []vault.Credential{{ID: "1", Domain: "github.com", Username: "alice", Password: "hunter2"}}
	s := &fakeSender{replies: map[router.Type]router.Response{
		router.TypeGetAll:       {OK: true, Credentials: creds},
		router.TypeGetForDomain: {OK: true, Credentials: creds},
	}}
	app, out := newTestApp(s, "")

	require.NoError(t, app.List(context.Background()))
	assert.Contains(t, out.String(), "github.com")
	assert.NotContains(t, out.String(), "hunter2")

	out.Reset()
	require.NoError(t, app.Find(context.Background(), "https://github.com/login"))
	assert.Equal(t, "https://github.com/login", s.last().URL)
	assert.Contains(t, out.String(), "hunter2")
}

func TestCount(t *testing.T) {
	n := 2
	s := &fakeSender{replies: map[router.Type]router.Response{router.TypeCountForDomain: {OK: true, Count: &n}}}
	app, out := newTestApp(s, "")

	require.NoError(t, app.Count(context.Background(), "github.com"))
	assert.Contains(t, out.String(), "2 matching credentials")
}

func TestAdd(t *testing.T) {
	stubInputs(t, []string{"https://github.com", "alice", "work account"}, []string{"gh-pass"})
	s := &fakeSender{replies: map[router.Type]router.Response{
		router.TypeCreateCredential: {OK: true, Message: "credential saved", Created: &api.Credential{ID: "42"}},
	}}
	app, out := newTestApp(s, "")

	require.NoError(t, app.Add(context.Background()))
	assert.Equal(t, router.Request{
		Type:        router.TypeCreateCredential,
		URL:         "https://github.com",
		Username:    "alice",
		Password:    "gh-pass",
		Description: "work account",
	}, s.last())
	assert.Contains(t, out.String(), "(42)")
}

func TestSave_ConfirmAndCancel(t *testing.T) {
	pending := &router.PendingSave{URL: "https://a.com", Username: "bob", Password: "pw"}
	s := &fakeSender{replies: map[router.Type]router.Response{
		router.TypeGetPendingSaveData: {OK: true, Pending: pending},
		router.TypeConfirmSave:        {OK: true, Message: "credential saved"},
		router.TypeCancelSave:         {OK: true, Message: "save cancelled"},
	}}

	stubInputs(t, []string{"https://a.com", "bob", "y"}, []string{"pw"})
	app, out := newTestApp(s, "")
	require.NoError(t, app.Save(context.Background()))
	assert.Equal(t, router.TypeConfirmSave, s.last().Type)
	assert.Contains(t, out.String(), "credential saved")

	stubInputs(t, []string{"https://a.com", "bob", "n"}, []string{"pw"})
	app, out = newTestApp(s, "")
	require.NoError(t, app.Save(context.Background()))
	assert.Equal(t, router.TypeCancelSave, s.last().Type)
	assert.Contains(t, out.String(), "save cancelled")
}

func TestConfigure(t *testing.T) {
	stubInputs(t, []string{"store:443", ""}, nil)
	s := &fakeSender{}
	app, _ := newTestApp(s, "")

	require.NoError(t, app.Configure(context.Background()))
	assert.Equal(t, router.Request{Type: router.TypeSaveConfig, API: "store:443"}, s.last())
}

func TestSettingsAndExport(t *testing.T) {
	s := &fakeSender{replies: map[router.Type]router.Response{
		router.TypeGetConfig:   {OK: true, Config: &router.Config{API: "store:443", TTL: 10}},
		router.TypeExportVault: {OK: true, Export: &api.ExportVaultResponse{URL: "https://x/y", Count: 3, ExpiresAt: time.Now()}},
	}}
	app, out := newTestApp(s, "")

	require.NoError(t, app.Settings(context.Background()))
	assert.Contains(t, out.String(), "store: store:443")
	assert.Contains(t, out.String(), "10 min")

	require.NoError(t, app.Export(context.Background(), ""))
	assert.Contains(t, out.String(), "exported 3 records")
	assert.Contains(t, out.String(), "https://x/y")
}

func TestExport_DownloadsToFile(t *testing.T) {
	s := &fakeSender{replies: map[router.Type]router.Response{
		router.TypeExportVault: {OK: true, Export: &api.ExportVaultResponse{URL: "https://x/y", Count: 2, ExpiresAt: time.Now()}},
	}}
	app, out := newTestApp(s, "")

	orig := downloadFn
	t.Cleanup(func() { downloadFn = orig })
	var gotURL string
	downloadFn = func(_ context.Context, url string) ([]byte, error) {
		gotURL = url
		return []byte(`{"credentials":[]}`), nil
	}

	dest := filepath.Join(t.TempDir(), "vault.json")
	require.NoError(t, app.Export(context.Background(), dest))
	assert.Equal(t, "https://x/y", gotURL)
	assert.Contains(t, out.String(), "exported 2 records to "+dest)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.JSONEq(t, `{"credentials":[]}`, string(data))

	downloadFn = func(context.Context, string) ([]byte, error) { return nil, errors.New("403 Forbidden") }
	assert.Error(t, app.Export(context.Background(), dest))
	assert.Contains(t, out.String(), "error: download export: 403 Forbidden")
}
