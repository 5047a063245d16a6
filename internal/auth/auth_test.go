package auth_test

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gistapp/gist/internal/auth"
	"github.com/gistapp/gist/internal/model"
)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

func TestIdentityFromToken(t *testing.T) {
	exp := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	tests := map[string]struct {
		token       func(t *testing.T) string
		expIdentity *auth.Identity
		expErr      bool
	}{
		"a token with subject should return the user id": {
			token: func(t *testing.T) string {
				return signToken(t, jwt.MapClaims{"sub": "42", "exp": exp.Unix()})
			},
			expIdentity: &auth.Identity{UserID: "42", ExpiresAt: &exp},
		},

		"a token with email should return it": {
			token: func(t *testing.T) string {
				return signToken(t, jwt.MapClaims{"sub": "42", "email": "me@acme.com"})
			},
			expIdentity: &auth.Identity{UserID: "42", EmailAddress: "me@acme.com"},
		},

		"an expired token should still be readable": {
			token: func(t *testing.T) string {
				return signToken(t, jwt.MapClaims{"sub": "42", "exp": time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).Unix()})
			},
			expIdentity: func() *auth.Identity {
				e := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
				return &auth.Identity{UserID: "42", ExpiresAt: &e}
			}(),
		},

		"a token without subject should fail": {
			token: func(t *testing.T) string {
				return signToken(t, jwt.MapClaims{"user_id": 42})
			},
			expErr: true,
		},

		"a malformed token should fail": {
			token:  func(t *testing.T) string { return "not-a-token" },
			expErr: true,
		},

		"an empty token should fail": {
			token:  func(t *testing.T) string { return "" },
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			id, err := auth.IdentityFromToken(test.token(t))
			if test.expErr {
				require.Error(err)
				require.True(errors.Is(err, model.ErrNotValid))
				return
			}
			require.NoError(err)
			assert.Equal(t, test.expIdentity, id)
		})
	}
}

func TestIdentityExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.False(t, auth.Identity{}.Expired(now))
	assert.True(t, auth.Identity{ExpiresAt: &past}.Expired(now))
	assert.False(t, auth.Identity{ExpiresAt: &future}.Expired(now))
}
