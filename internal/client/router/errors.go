package router

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/pmvault/internal/client/client"
	"github.com/dmitrijs2005/pmvault/internal/common"
)

// Classify maps an error to its Kind and a display text.
func Classify(err error) (Kind, string) {
	switch {
	case errors.Is(err, common.ErrSessionExpired):
		return KindSessionExpired, "session expired, please log in again"
	case errors.Is(err, common.ErrNotLoggedIn):
		return KindNotLoggedIn, "not logged in"
	case errors.Is(err, client.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return KindTransport, "could not reach the credential store, try again later"
	case errors.Is(err, client.ErrUnauthorized):
		return KindAuthentication, "invalid username or password"
	case errors.Is(err, client.ErrConflict):
		return KindAuthentication, "this username is already taken"
	case errors.Is(err, client.ErrRejected):
		return KindRequestRejected, err.Error()
	case errors.Is(err, common.ErrMasterPasswordInvalid):
		return KindMasterPasswordInvalid, "wrong master password"
	case errors.Is(err, common.ErrVaultCorrupt):
		return KindVaultCorrupt, "this account has no verification record; the account must be repaired before the vault can be unlocked"
	case errors.Is(err, common.ErrEmptyVault):
		return KindEmptyVault, "this account's vault is empty; the account must be repaired before the vault can be unlocked"
	case errors.Is(err, common.ErrVaultLocked):
		return KindVaultLocked, "vault is locked"
	case errors.Is(err, common.ErrUnlockInProgress):
		return KindUnlockInProgress, "an unlock is already in progress"
	case errors.Is(err, common.ErrUnlockInterrupted):
		return KindUnlockInProgress, "the vault was locked while unlocking, try again"
	case errors.Is(err, common.ErrInvalidRequest), errors.Is(err, common.ErrNoPendingSave):
		return KindInvalidRequest, err.Error()
	}
	return KindInternal, "internal error"
}
