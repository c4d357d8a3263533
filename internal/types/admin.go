package types

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNotJWT = errors.New("access token is not a JWT")

// Admin is the identity carried by a panel access token.
type Admin struct {
	Username  string
	Role      string
	ExpiresAt time.Time
}

type adminClaims struct {
	Access string `json:"access"`
	jwt.RegisteredClaims
}

// AdminFromToken reads the claims of an access token without verifying its
// signature. The panel API remains the authority on the token; the claims are
// only used for display and to drop expired sessions early.
func AdminFromToken(token string) (*Admin, error) {
	claims := &adminClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotJWT, err)
	}

	admin := &Admin{
		Username: claims.Subject,
		Role:     claims.Access,
	}
	if claims.ExpiresAt != nil {
		admin.ExpiresAt = claims.ExpiresAt.Time
	}
	return admin, nil
}

func (a *Admin) GetName() string {
	return a.Username
}

func (a *Admin) Expired(now time.Time) bool {
	return a != nil && !a.ExpiresAt.IsZero() && !now.Before(a.ExpiresAt)
}
