package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/congo-pay/congo_auth/internal/kvstore"
)

const blacklistReasonLogout = "logout"

// LogoutInput names the credentials to revoke. Either may be empty.
type LogoutInput struct {
	AccessToken  string
	RefreshToken string
}

// LogoutReport describes what logout changed. Failures lists store errors
// that were swallowed so the caller can still answer "logged out".
type LogoutReport struct {
	RefreshRevoked    bool
	AccessBlacklisted bool
	Failures          []error
}

// Revoker deletes refresh records and blacklists access credentials.
type Revoker struct {
	signer *Signer
	store  kvstore.Store
	logger *slog.Logger
}

// NewRevoker builds a revoker.
func NewRevoker(signer *Signer, store kvstore.Store, logger *slog.Logger) *Revoker {
	return &Revoker{signer: signer, store: store, logger: logger}
}

// Logout is best effort and never fails. Tokens that no longer verify are
// skipped since they cannot authenticate anyway.
func (r *Revoker) Logout(ctx context.Context, in LogoutInput) LogoutReport {
	var report LogoutReport

	if in.RefreshToken != "" {
		revoked, err := r.revokeRefresh(ctx, in.RefreshToken)
		report.RefreshRevoked = revoked
		if err != nil {
			report.Failures = append(report.Failures, err)
		}
	}
	if in.AccessToken != "" {
		blacklisted, err := r.blacklistAccess(ctx, in.AccessToken)
		report.AccessBlacklisted = blacklisted
		if err != nil {
			report.Failures = append(report.Failures, err)
		}
	}

	for _, err := range report.Failures {
		r.logger.WarnContext(ctx, "logout step failed", slog.Any("error", err))
	}
	return report
}

func (r *Revoker) revokeRefresh(ctx context.Context, token string) (bool, error) {
	claims, err := r.signer.Verify(token)
	if err != nil {
		r.logger.DebugContext(ctx, "logout: refresh token skipped", slog.Any("error", err))
		return false, nil
	}
	if claims.Type != TypeRefresh {
		r.logger.DebugContext(ctx, "logout: refresh slot carried a non-refresh token", slog.String("typ", claims.Type))
		return false, nil
	}
	if err := r.store.Delete(ctx, refreshKey(claims.TokenID)); err != nil {
		return false, fmt.Errorf("delete refresh record %s: %w", claims.TokenID, storeError("delete", err))
	}
	return true, nil
}

func (r *Revoker) blacklistAccess(ctx context.Context, token string) (bool, error) {
	claims, err := r.signer.Verify(token)
	if err != nil {
		r.logger.DebugContext(ctx, "logout: access token skipped", slog.Any("error", err))
		return false, nil
	}
	if claims.Type != TypeAccess {
		r.logger.DebugContext(ctx, "logout: access slot carried a non-access token", slog.String("typ", claims.Type))
		return false, nil
	}

	remaining := claims.ExpiresAt.Sub(r.signer.Now())
	if remaining <= 0 {
		return false, nil
	}
	if err := r.store.Set(ctx, blacklistKey(claims.TokenID), blacklistReasonLogout, remaining); err != nil {
		if errors.Is(err, kvstore.ErrInvalidTTL) {
			return false, nil
		}
		return false, fmt.Errorf("blacklist access token %s: %w", claims.TokenID, storeError("set", err))
	}
	return true, nil
}
