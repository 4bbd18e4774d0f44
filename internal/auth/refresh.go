package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/congo-pay/congo_auth/internal/kvstore"
)

// RefreshResult carries the new access credential. Refresh is set only when
// rotation is enabled.
type RefreshResult struct {
	Identity Identity
	Access   Credential
	Refresh  *Credential
}

// Refresher exchanges a refresh credential for a new access credential.
//
// Without rotation the refresh credential stays usable until it expires or is
// revoked at logout. With rotation the RefreshRecord is consumed atomically on
// use and a new refresh credential is issued, so a replayed credential fails
// with ErrNotFound. If the new credential cannot be stored, the consumed record
// is written back for the rest of its lifetime so the caller can retry with the
// old credential.
type Refresher struct {
	signer *Signer
	store  kvstore.Store
	issuer *Issuer
	rotate bool
	logger *slog.Logger
}

// NewRefresher builds a refresher.
func NewRefresher(signer *Signer, store kvstore.Store, issuer *Issuer, rotate bool, logger *slog.Logger) *Refresher {
	return &Refresher{signer: signer, store: store, issuer: issuer, rotate: rotate, logger: logger}
}

// Refresh validates refreshToken and issues a new access credential.
func (r *Refresher) Refresh(ctx context.Context, refreshToken string) (RefreshResult, error) {
	claims, err := r.signer.Verify(refreshToken)
	if err != nil {
		return RefreshResult{}, err
	}
	if claims.Type != TypeRefresh {
		return RefreshResult{}, ErrWrongTokenType
	}

	owner, err := r.lookupRecord(ctx, claims.TokenID)
	if err != nil {
		if errors.Is(err, ErrStoreUnavailable) {
			r.logger.ErrorContext(ctx, "refresh record lookup failed", slog.String("token_id", claims.TokenID), slog.Any("error", err))
		}
		return RefreshResult{}, err
	}
	if owner != claims.Identity.ID {
		r.logger.WarnContext(ctx, "refresh record owner mismatch",
			slog.String("token_id", claims.TokenID),
			slog.String("user_id", claims.Identity.ID),
		)
		return RefreshResult{}, ErrNotFound
	}

	access, err := r.issuer.IssueAccessToken(claims.Identity)
	if err != nil {
		return RefreshResult{}, err
	}
	res := RefreshResult{Identity: claims.Identity, Access: access}

	if r.rotate {
		next, err := r.issuer.IssueRefreshToken(ctx, claims.Identity)
		if err != nil {
			r.restoreRecord(ctx, claims)
			return RefreshResult{}, err
		}
		res.Refresh = &next
	}
	return res, nil
}

func (r *Refresher) lookupRecord(ctx context.Context, tokenID string) (string, error) {
	var (
		owner string
		err   error
	)
	if r.rotate {
		owner, err = r.store.GetDel(ctx, refreshKey(tokenID))
	} else {
		owner, err = r.store.Get(ctx, refreshKey(tokenID))
	}
	if err != nil {
		return "", storeError("refresh record lookup", err)
	}
	return owner, nil
}

// restoreRecord puts back a record consumed by rotation. A failure here means
// the session is lost and the user signs in again.
func (r *Refresher) restoreRecord(ctx context.Context, claims Claims) {
	ttl := claims.ExpiresAt.Sub(r.signer.Now())
	if ttl <= 0 {
		return
	}
	if err := r.store.Set(ctx, refreshKey(claims.TokenID), claims.Identity.ID, ttl); err != nil {
		r.logger.ErrorContext(ctx, "refresh record restore failed",
			slog.String("token_id", claims.TokenID),
			slog.Any("error", err),
		)
	}
}
