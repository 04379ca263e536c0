package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/pmvault/internal/common"
	"github.com/dmitrijs2005/pmvault/internal/dbx"
	"github.com/dmitrijs2005/pmvault/internal/server/config"
	"github.com/dmitrijs2005/pmvault/internal/server/models"
	"github.com/dmitrijs2005/pmvault/internal/server/repositories/credentials"
	"github.com/dmitrijs2005/pmvault/internal/server/repositories/users"
	"github.com/stretchr/testify/require"
)

// fakeRepos is an in-memory RepositoryManager. Writes land directly in the
// maps regardless of the transaction outcome; tests check the sqlmock
// expectations for commit or rollback.
type fakeRepos struct {
	mu     sync.Mutex
	users  map[string]*models.User
	creds  []*models.Credential
	nextID int

	userErr error
	credErr error
	listErr error
}

func newFakeRepos() *fakeRepos {
	return &fakeRepos{users: map[string]*models.User{}}
}

func (f *fakeRepos) RunMigrations(context.Context, *sql.DB) error { return nil }
func (f *fakeRepos) Users(dbx.DBTX) users.Repository              { return fakeUsers{f} }
func (f *fakeRepos) Credentials(dbx.DBTX) credentials.Repository  { return fakeCreds{f} }

func (f *fakeRepos) id() string {
	f.nextID++
	return fmt.Sprintf("id-%d", f.nextID)
}

type fakeUsers struct{ f *fakeRepos }

func (r fakeUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if r.f.userErr != nil {
		return nil, r.f.userErr
	}
	if _, ok := r.f.users[u.UserName]; ok {
		return nil, common.ErrorAlreadyExists
	}
	u.ID = r.f.id()
	u.CreatedAt = time.Now()
	r.f.users[u.UserName] = u
	return u, nil
}

func (r fakeUsers) GetUserByLogin(_ context.Context, login string) (*models.User, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if r.f.userErr != nil {
		return nil, r.f.userErr
	}
	u, ok := r.f.users[login]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

func (r fakeUsers) GetUserByID(_ context.Context, id string) (*models.User, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if r.f.userErr != nil {
		return nil, r.f.userErr
	}
	for _, u := range r.f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

type fakeCreds struct{ f *fakeRepos }

func (r fakeCreds) Create(_ context.Context, c *models.Credential) (*models.Credential, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if r.f.credErr != nil {
		return nil, r.f.credErr
	}
	c.ID = r.f.id()
	c.CreatedAt = time.Now()
	r.f.creds = append(r.f.creds, c)
	return c, nil
}

func (r fakeCreds) ListByUser(_ context.Context, userID string) ([]*models.Credential, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if r.f.listErr != nil {
		return nil, r.f.listErr
	}
	var out []*models.Credential
	for _, c := range r.f.creds {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = "test-secret"
	cfg.MaxTokenTTL = time.Hour
	return cfg
}

func verification() *models.Credential {
	return &models.Credential{
		Domain:     common.VerificationDomain,
		Username:   "alice",
		Ciphertext: "Y3Q=",
		IV:         "aXY=",
		Salt:       "c2FsdA==",
	}
}
