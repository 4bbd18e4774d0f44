package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignerRoundTrip(t *testing.T) {
	clock := newTestClock()
	clock.Advance(750 * time.Millisecond)
	signer := NewSigner(testSecret, clock.Now)

	token, stamped, err := signer.Sign(Claims{Identity: Identity{ID: "u1", Role: "merchant"}, Type: TypeAccess, TokenID: "a1"}, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Truncate(time.Second), stamped.IssuedAt)
	assert.Equal(t, stamped.IssuedAt.Add(time.Minute), stamped.ExpiresAt)

	got, err := signer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, Identity{ID: "u1", Role: "merchant"}, got.Identity)
	assert.Equal(t, TypeAccess, got.Type)
	assert.Equal(t, "a1", got.TokenID)
	assert.True(t, got.ExpiresAt.Equal(stamped.ExpiresAt))
}

func TestSignerRejectsBadTokens(t *testing.T) {
	clock := newTestClock()
	signer := NewSigner(testSecret, clock.Now)
	valid, _, err := signer.Sign(Claims{Identity: Identity{ID: "u1", Role: "customer"}, Type: TypeRefresh, TokenID: "r1"}, time.Hour)
	require.NoError(t, err)

	other := NewSigner([]byte("another-secret-another-secret-xx"), clock.Now)
	forged, _, err := other.Sign(Claims{Identity: Identity{ID: "u1", Role: "customer"}, Type: TypeRefresh, TokenID: "r1"}, time.Hour)
	require.NoError(t, err)

	_, err = signer.Verify("not-a-jwt")
	assert.ErrorIs(t, err, ErrMalformedToken)

	_, err = signer.Verify(forged)
	assert.ErrorIs(t, err, ErrSignatureInvalid)

	_, err = signer.Verify(valid + "x")
	assert.Error(t, err)
}

func TestSignerRejectsUnknownShapes(t *testing.T) {
	clock := newTestClock()
	signer := NewSigner(testSecret, clock.Now)
	now := clock.Now()

	cases := map[string]jwt.MapClaims{
		"missing typ":  {"sub": "u1", "jti": "x", "role": "customer", "iat": now.Unix(), "exp": now.Add(time.Hour).Unix()},
		"unknown typ":  {"sub": "u1", "jti": "x", "role": "customer", "typ": "id", "iat": now.Unix(), "exp": now.Add(time.Hour).Unix()},
		"missing jti":  {"sub": "u1", "role": "customer", "typ": TypeAccess, "iat": now.Unix(), "exp": now.Add(time.Hour).Unix()},
		"unknown role": {"sub": "u1", "jti": "x", "role": "root", "typ": TypeAccess, "iat": now.Unix(), "exp": now.Add(time.Hour).Unix()},
		"missing exp":  {"sub": "u1", "jti": "x", "role": "customer", "typ": TypeAccess, "iat": now.Unix()},
	}
	for name, claims := range cases {
		t.Run(name, func(t *testing.T) {
			token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
			require.NoError(t, err)

			_, err = signer.Verify(token)
			assert.ErrorIs(t, err, ErrMalformedToken)
		})
	}
}

func TestSignerExpiry(t *testing.T) {
	clock := newTestClock()
	signer := NewSigner(testSecret, clock.Now)
	token, _, err := signer.Sign(Claims{Identity: Identity{ID: "u1", Role: "driver"}, Type: TypeAccess, TokenID: "a1"}, time.Minute)
	require.NoError(t, err)

	clock.Advance(59 * time.Second)
	_, err = signer.Verify(token)
	require.NoError(t, err)

	clock.Advance(2 * time.Second)
	_, err = signer.Verify(token)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestSignerRequiresPositiveTTL(t *testing.T) {
	signer := NewSigner(testSecret, nil)
	_, _, err := signer.Sign(Claims{Identity: Identity{ID: "u1", Role: "customer"}, Type: TypeAccess, TokenID: "a1"}, 0)
	assert.Error(t, err)
}
