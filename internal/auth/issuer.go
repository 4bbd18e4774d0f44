package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/congo_auth/internal/kvstore"
)

const refreshKeyPrefix = "refresh:"

// Credential is a signed bearer token plus the metadata handed to clients.
type Credential struct {
	Token     string
	TokenID   string
	ExpiresAt time.Time
}

// TokenPair is an access credential and the refresh credential minted with it.
type TokenPair struct {
	Access  Credential
	Refresh Credential
}

// Issuer mints access and refresh credentials. Refresh credentials are backed
// by a RefreshRecord (refresh:<tokenID> -> identity id) whose TTL ends exactly
// when the credential's exp does.
type Issuer struct {
	signer     *Signer
	store      kvstore.Store
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewIssuer builds an issuer.
func NewIssuer(signer *Signer, store kvstore.Store, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{signer: signer, store: store, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// IssueAccessToken signs a short-lived access credential. Nothing is stored.
func (i *Issuer) IssueAccessToken(id Identity) (Credential, error) {
	token, claims, err := i.signer.Sign(Claims{Identity: id, Type: TypeAccess, TokenID: uuid.NewString()}, i.accessTTL)
	if err != nil {
		return Credential{}, err
	}
	return Credential{Token: token, TokenID: claims.TokenID, ExpiresAt: claims.ExpiresAt}, nil
}

// IssueRefreshToken signs a refresh credential under a fresh token id and
// writes its RefreshRecord.
func (i *Issuer) IssueRefreshToken(ctx context.Context, id Identity) (Credential, error) {
	token, claims, err := i.signer.Sign(Claims{Identity: id, Type: TypeRefresh, TokenID: uuid.NewString()}, i.refreshTTL)
	if err != nil {
		return Credential{}, err
	}

	// The record lives until the signed exp and not a moment longer.
	ttl := claims.ExpiresAt.Sub(i.signer.Now())
	if err := i.store.Set(ctx, refreshKey(claims.TokenID), id.ID, ttl); err != nil {
		return Credential{}, storeError("store refresh record", err)
	}
	return Credential{Token: token, TokenID: claims.TokenID, ExpiresAt: claims.ExpiresAt}, nil
}

// IssueTokenPair issues an access credential and a refresh credential.
func (i *Issuer) IssueTokenPair(ctx context.Context, id Identity) (TokenPair, error) {
	access, err := i.IssueAccessToken(id)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := i.IssueRefreshToken(ctx, id)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

func refreshKey(tokenID string) string {
	return refreshKeyPrefix + tokenID
}
