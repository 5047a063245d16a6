package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gistapp/gist/internal/model"
)

// Identity is the user identity carried by a backend access token.
type Identity struct {
	UserID       string
	EmailAddress string
	ExpiresAt    *time.Time
}

// IdentityFromToken reads the identity of a backend access token.
//
// The signature is not verified, the client has no access to the signing
// secret and the backend verifies every request anyway. The token is only
// used to know who the user is.
func IdentityFromToken(token string) (*Identity, error) {
	if token == "" {
		return nil, fmt.Errorf("token is required: %w", model.ErrNotValid)
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("could not parse token: %w: %w", err, model.ErrNotValid)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("token has no subject: %w", model.ErrNotValid)
	}

	id := &Identity{UserID: sub}
	if email, ok := claims["email"].(string); ok {
		id.EmailAddress = email
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.UTC()
		id.ExpiresAt = &t
	}

	return id, nil
}

// Expired returns true when the token expiration is known and already passed.
func (i Identity) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && !now.Before(*i.ExpiresAt)
}
