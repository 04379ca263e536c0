package cryptox

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("any-secret"))
	require.NoError(t, err)
	return s
}

func TestIsTokenValid(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"future expiry", makeToken(t, now.Add(time.Hour)), true},
		{"past expiry", makeToken(t, now.Add(-time.Second)), false},
		{"expiry equals now", makeToken(t, now), false},
		{"empty", "", false},
		{"two parts", "a.b", false},
		{"garbage payload", "a.!!!.c", false},
		{"no exp", func() string {
			s, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "x"}).SignedString([]byte("k"))
			return s
		}(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTokenValid(tt.token, now))
		})
	}
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Unix(1_800_000_000, 0)
	got, err := TokenExpiry(makeToken(t, exp))
	require.NoError(t, err)
	assert.True(t, exp.Equal(got))
}
