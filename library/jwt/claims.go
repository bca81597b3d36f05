package jwt

import (
	"github.com/Laisky/errors/v2"
	gutils "github.com/Laisky/go-utils/v6"
	"github.com/golang-jwt/jwt/v5"
)

// UserClaims is the token payload for an authenticated drive user.
// Subject carries the user id, Email the login identity.
type UserClaims struct {
	jwt.RegisteredClaims
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

func (uc *UserClaims) Valid() error {
	now := gutils.Clock.GetUTCNow()
	if uc.ExpiresAt == nil || !uc.ExpiresAt.After(now) {
		return errors.Errorf("token expired")
	}

	if uc.IssuedAt == nil || uc.IssuedAt.After(now) {
		return errors.Errorf("token issueAt invalid")
	}

	return nil
}
