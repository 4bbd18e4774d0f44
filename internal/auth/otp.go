package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"strconv"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/congo-pay/congo_auth/internal/kvstore"
	"github.com/congo-pay/congo_auth/internal/notification"
)

const (
	otpKeyPrefix = "otp:"
	otpMin       = 100000
	otpSpan      = 900000 // codes are otpMin..otpMin+otpSpan-1
)

var otpSpanBig = big.NewInt(otpSpan)

// OTPManager issues six-digit sign-in codes and verifies them at most once.
//
// Codes are sent before they are stored: a delivery failure leaves nothing
// behind, and a store failure after delivery leaves the user with a code that
// will be rejected as not found, prompting a new request. The store keeps a
// keyed BLAKE2b digest of phone and code, never the code itself.
type OTPManager struct {
	store    kvstore.Store
	notifier notification.Notifier
	ttl      time.Duration
	key      []byte
	random   io.Reader
	logger   *slog.Logger
}

// NewOTPManager builds an OTP manager. pepper keys the stored digests; random
// defaults to crypto/rand.
func NewOTPManager(store kvstore.Store, notifier notification.Notifier, ttl time.Duration, pepper []byte, random io.Reader, logger *slog.Logger) *OTPManager {
	if random == nil {
		random = rand.Reader
	}
	key := pepper
	if len(key) > blake2b.Size {
		sum := blake2b.Sum512(key)
		key = sum[:]
	}
	return &OTPManager{store: store, notifier: notifier, ttl: ttl, key: key, random: random, logger: logger}
}

// TTL is how long an issued code stays valid.
func (m *OTPManager) TTL() time.Duration {
	return m.ttl
}

// Issue generates a code for phone, delivers it and stores its digest,
// replacing any code issued earlier for the same phone.
func (m *OTPManager) Issue(ctx context.Context, phone string) (string, error) {
	code, err := m.generate()
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}

	msg := notification.Message{
		Kind:        notification.KindOTP,
		Destination: phone,
		Body:        fmt.Sprintf("Your verification code is %s. It expires in %s.", code, humanTTL(m.ttl)),
	}
	if err := m.notifier.Send(ctx, msg); err != nil {
		m.logger.WarnContext(ctx, "otp delivery failed", slog.String("phone", phone), slog.Any("error", err))
		return "", fmt.Errorf("%w: %v", ErrDeliveryFailure, err)
	}

	if err := m.store.Set(ctx, otpKey(phone), m.digest(phone, code), m.ttl); err != nil {
		m.logger.ErrorContext(ctx, "otp delivered but not stored", slog.String("phone", phone), slog.Any("error", err))
		return "", storeError("store otp", err)
	}
	return code, nil
}

// Verify consumes the code for phone if candidate matches it exactly. A
// mismatch leaves the code in place so the user can retry until it expires.
func (m *OTPManager) Verify(ctx context.Context, phone, candidate string) error {
	err := m.store.CompareAndDelete(ctx, otpKey(phone), m.digest(phone, candidate))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, kvstore.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, kvstore.ErrMismatch):
		return ErrMismatch
	default:
		return storeError("verify otp", err)
	}
}

func (m *OTPManager) generate() (string, error) {
	n, err := rand.Int(m.random, otpSpanBig)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+otpMin, 10), nil
}

func (m *OTPManager) digest(phone, code string) string {
	h, err := blake2b.New256(m.key)
	if err != nil {
		// key length is bounded in NewOTPManager
		panic(err)
	}
	h.Write([]byte(phone))
	h.Write([]byte{0})
	h.Write([]byte(code))
	return hex.EncodeToString(h.Sum(nil))
}

func otpKey(phone string) string {
	return otpKeyPrefix + phone
}

func humanTTL(d time.Duration) string {
	if d >= time.Minute && d%time.Minute == 0 {
		m := int(d / time.Minute)
		if m == 1 {
			return "1 minute"
		}
		return strconv.Itoa(m) + " minutes"
	}
	return d.Round(time.Second).String()
}
