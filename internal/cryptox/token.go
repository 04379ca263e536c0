package cryptox

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/pmvault/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry decodes the exp claim of a three-part signed token without
// verifying the signature.
func TokenExpiry(token string) (time.Time, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("%w: no exp claim", common.ErrInvalidToken)
	}
	return claims.ExpiresAt.Time, nil
}

// IsTokenValid is an optimistic local pre-check: the token must be well
// formed and its expiry must lie after now. It is not a security boundary;
// signatures are checked by the remote service.
func IsTokenValid(token string, now time.Time) bool {
	if token == "" {
		return false
	}
	exp, err := TokenExpiry(token)
	if err != nil {
		return false
	}
	return now.Before(exp)
}
