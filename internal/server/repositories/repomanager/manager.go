// Package repomanager vends the server repositories bound to a database
// handle or transaction and runs schema migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/pmvault/internal/dbx"
	"github.com/dmitrijs2005/pmvault/internal/server/repositories/credentials"
	"github.com/dmitrijs2005/pmvault/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Credentials(db dbx.DBTX) credentials.Repository
}
