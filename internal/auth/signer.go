package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Signer signs and verifies credentials with a process-wide HS256 secret.
// It performs no I/O.
type Signer struct {
	secret []byte
	now    func() time.Time
	parser *jwt.Parser
}

// NewSigner builds a signer. now defaults to time.Now.
func NewSigner(secret []byte, now func() time.Time) *Signer {
	if now == nil {
		now = time.Now
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(now),
	)
	return &Signer{secret: secret, now: now, parser: parser}
}

// Now returns the signer's current time.
func (s *Signer) Now() time.Time {
	return s.now()
}

// Sign stamps claims with iat and exp = iat + ttl and returns the compact
// token along with the stamped claims. iat is truncated to whole seconds, the
// precision of JWT numeric dates, so the returned ExpiresAt is exactly what a
// verifier will read back.
func (s *Signer) Sign(claims Claims, ttl time.Duration) (string, Claims, error) {
	if ttl <= 0 {
		return "", Claims{}, fmt.Errorf("sign %s token: ttl must be positive", claims.Type)
	}
	claims.IssuedAt = s.now().Truncate(time.Second)
	claims.ExpiresAt = claims.IssuedAt.Add(ttl)

	if _, ok := fromWire(claims.toWire()); !ok {
		return "", Claims{}, fmt.Errorf("sign %s token: incomplete claims", claims.Type)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims.toWire())
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("sign %s token: %w", claims.Type, err)
	}
	return signed, claims, nil
}

// Verify checks signature and expiry and decodes the claims.
func (s *Signer) Verify(token string) (Claims, error) {
	var wire wireClaims
	_, err := s.parser.ParseWithClaims(token, &wire, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return Claims{}, classifyJWTError(err)
	}

	claims, ok := fromWire(wire)
	if !ok {
		return Claims{}, ErrMalformedToken
	}
	return claims, nil
}

func classifyJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	default:
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
}
