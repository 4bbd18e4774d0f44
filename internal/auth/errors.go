package auth

import (
	"errors"
	"fmt"

	"github.com/congo-pay/congo_auth/internal/kvstore"
)

// Expected rejections. Callers match them with errors.Is. Errors from token
// verification, refresh, logout reports and OTP issue or verify wrap exactly one
// of them; construction, signing and directory failures are returned as is.
var (
	// ErrMalformedToken means the token could not be parsed or its claims do
	// not have the shape of an access or refresh credential.
	ErrMalformedToken = errors.New("malformed token")

	// ErrSignatureInvalid means the token was not signed with our secret and
	// algorithm.
	ErrSignatureInvalid = errors.New("invalid token signature")

	// ErrExpired means the token's exp claim has passed.
	ErrExpired = errors.New("token expired")

	// ErrWrongTokenType means an access token was presented where a refresh
	// token was required, or the reverse.
	ErrWrongTokenType = errors.New("wrong token type")

	// ErrNotFound means a refresh record or OTP entry is absent: expired,
	// revoked or never issued.
	ErrNotFound = errors.New("expired or not found")

	// ErrMismatch means an OTP code did not match. The code stays valid.
	ErrMismatch = errors.New("code mismatch")

	// ErrRevoked means the access token was blacklisted at logout.
	ErrRevoked = errors.New("token revoked")

	// ErrDeliveryFailure means the OTP could not be handed to the delivery
	// channel. Nothing was stored.
	ErrDeliveryFailure = errors.New("otp delivery failed")

	// ErrStoreUnavailable means the key-value store failed. Verification
	// paths fail closed on it.
	ErrStoreUnavailable = errors.New("credential store unavailable")
)

// storeError converts a kvstore failure into ErrStoreUnavailable, keeping the
// cause for logs.
func storeError(op string, err error) error {
	if errors.Is(err, kvstore.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}
