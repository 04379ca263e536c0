// Package credentials persists encrypted credential records per user.
package credentials

import (
	"context"

	"github.com/dmitrijs2005/pmvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, c *models.Credential) (*models.Credential, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Credential, error)
}
