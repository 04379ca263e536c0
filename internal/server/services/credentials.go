package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/pmvault/internal/common"
	"github.com/dmitrijs2005/pmvault/internal/server/models"
	"github.com/dmitrijs2005/pmvault/internal/server/repositories/repomanager"
)

type CredentialService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewCredentialService(db *sql.DB, m repomanager.RepositoryManager) *CredentialService {
	return &CredentialService{db: db, repomanager: m}
}

// Create stores an encrypted record for userID. Incomplete records and
// records claiming the verification domain are rejected.
func (s *CredentialService) Create(ctx context.Context, userID string, c *models.Credential) (*models.Credential, error) {
	if !c.Complete() {
		return nil, fmt.Errorf("%w: ciphertext, iv and salt are required", common.ErrorValidation)
	}
	if c.IsVerification() {
		return nil, fmt.Errorf("%w: domain %q is reserved", common.ErrorValidation, common.VerificationDomain)
	}

	c.UserID = userID
	created, err := s.repomanager.Credentials(s.db).Create(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return created, nil
}

// List returns every record of userID, the verification record included.
func (s *CredentialService) List(ctx context.Context, userID string) ([]*models.Credential, error) {
	list, err := s.repomanager.Credentials(s.db).ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return list, nil
}
