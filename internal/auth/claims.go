package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/congo-pay/congo_auth/internal/identity"
)

// Token types carried in the typ claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Identity is the subject a credential speaks for.
type Identity struct {
	ID   string
	Role string
}

// Claims is the validated body of a credential.
type Claims struct {
	Identity  Identity
	Type      string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// wireClaims is the JWT body. The registered claims carry sub, jti, iat and
// exp; role and typ are ours.
type wireClaims struct {
	Role string `json:"role"`
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

func (c Claims) toWire() wireClaims {
	return wireClaims{
		Role: c.Identity.Role,
		Type: c.Type,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.Identity.ID,
			ID:        c.TokenID,
			IssuedAt:  jwt.NewNumericDate(c.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(c.ExpiresAt),
		},
	}
}

// fromWire rejects any body that is not a complete access or refresh claim set.
func fromWire(w wireClaims) (Claims, bool) {
	switch w.Type {
	case TypeAccess, TypeRefresh:
	default:
		return Claims{}, false
	}
	if w.Subject == "" || w.ID == "" || w.IssuedAt == nil || w.ExpiresAt == nil {
		return Claims{}, false
	}
	if !identity.ValidRole(w.Role) {
		return Claims{}, false
	}
	return Claims{
		Identity:  Identity{ID: w.Subject, Role: w.Role},
		Type:      w.Type,
		TokenID:   w.ID,
		IssuedAt:  w.IssuedAt.Time,
		ExpiresAt: w.ExpiresAt.Time,
	}, true
}
