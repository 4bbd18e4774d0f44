package auth

import (
	"context"
	"errors"

	"github.com/congo-pay/congo_auth/internal/kvstore"
)

const blacklistKeyPrefix = "blacklist:"

// Verifier validates access credentials on every authenticated request.
type Verifier struct {
	signer *Signer
	store  kvstore.Store
}

// NewVerifier builds a verifier.
func NewVerifier(signer *Signer, store kvstore.Store) *Verifier {
	return &Verifier{signer: signer, store: store}
}

// VerifyAccess returns the identity an access token speaks for.
func (v *Verifier) VerifyAccess(ctx context.Context, token string) (Identity, error) {
	claims, err := v.VerifyAccessClaims(ctx, token)
	if err != nil {
		return Identity{}, err
	}
	return claims.Identity, nil
}

// VerifyAccessClaims checks signature, expiry, type and the blacklist. A
// store failure denies access.
func (v *Verifier) VerifyAccessClaims(ctx context.Context, token string) (Claims, error) {
	claims, err := v.signer.Verify(token)
	if err != nil {
		return Claims{}, err
	}
	if claims.Type != TypeAccess {
		return Claims{}, ErrWrongTokenType
	}

	_, err = v.store.Get(ctx, blacklistKey(claims.TokenID))
	switch {
	case err == nil:
		return Claims{}, ErrRevoked
	case errors.Is(err, kvstore.ErrNotFound):
		return claims, nil
	default:
		return Claims{}, storeError("blacklist lookup", err)
	}
}

func blacklistKey(tokenID string) string {
	return blacklistKeyPrefix + tokenID
}
