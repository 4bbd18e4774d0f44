package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/congo-pay/congo_auth/internal/config"
	"github.com/congo-pay/congo_auth/internal/identity"
	"github.com/congo-pay/congo_auth/internal/kvstore"
	"github.com/congo-pay/congo_auth/internal/notification"
)

// Options configures a Service.
type Options struct {
	Secret        []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	OTPTTL        time.Duration
	OTPPepper     []byte
	RotateRefresh bool

	// Now and Random are overridable in tests.
	Now    func() time.Time
	Random io.Reader
}

// OptionsFromConfig maps application config onto service options.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		Secret:        []byte(cfg.JWTSecret),
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
		OTPTTL:        cfg.OTPTTL,
		OTPPepper:     []byte(cfg.OTPPepper),
		RotateRefresh: cfg.RefreshRotation,
	}
}

// Directory resolves the users credentials are issued to.
type Directory interface {
	Lookup(ctx context.Context, id string) (identity.User, error)
	Resolve(ctx context.Context, phone, role string) (identity.User, error)
	RecordLogin(ctx context.Context, id string, at time.Time) error
}

// Service wires the credential components over one store.
type Service struct {
	signer    *Signer
	issuer    *Issuer
	verifier  *Verifier
	refresher *Refresher
	revoker   *Revoker
	otp       *OTPManager
	directory Directory
	logger    *slog.Logger
}

// NewService builds the auth service.
func NewService(opts Options, store kvstore.Store, notifier notification.Notifier, directory Directory, logger *slog.Logger) (*Service, error) {
	if len(opts.Secret) == 0 {
		return nil, errors.New("auth: signing secret is required")
	}
	if opts.AccessTTL <= 0 || opts.RefreshTTL <= 0 || opts.OTPTTL <= 0 {
		return nil, errors.New("auth: token and otp ttls must be positive")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	pepper := opts.OTPPepper
	if len(pepper) == 0 {
		pepper = opts.Secret
	}

	signer := NewSigner(opts.Secret, opts.Now)
	issuer := NewIssuer(signer, store, opts.AccessTTL, opts.RefreshTTL)
	return &Service{
		signer:    signer,
		issuer:    issuer,
		verifier:  NewVerifier(signer, store),
		refresher: NewRefresher(signer, store, issuer, opts.RotateRefresh, logger),
		revoker:   NewRevoker(signer, store, logger),
		otp:       NewOTPManager(store, notifier, opts.OTPTTL, pepper, opts.Random, logger),
		directory: directory,
		logger:    logger,
	}, nil
}

// OTPTTL is how long issued codes remain valid.
func (s *Service) OTPTTL() time.Duration {
	return s.otp.TTL()
}

// Now is the service clock.
func (s *Service) Now() time.Time {
	return s.signer.Now()
}

func (s *Service) IssueAccessToken(id Identity) (Credential, error) {
	return s.issuer.IssueAccessToken(id)
}

func (s *Service) IssueRefreshToken(ctx context.Context, id Identity) (Credential, error) {
	return s.issuer.IssueRefreshToken(ctx, id)
}

func (s *Service) IssueTokenPair(ctx context.Context, id Identity) (TokenPair, error) {
	return s.issuer.IssueTokenPair(ctx, id)
}

func (s *Service) VerifyAccess(ctx context.Context, token string) (Identity, error) {
	return s.verifier.VerifyAccess(ctx, token)
}

// Session is an authenticated request's view of its caller.
type Session struct {
	Claims Claims
	// User is nil when the directory could not be reached.
	User *identity.User
}

// Authenticate verifies an access token and loads the user behind it. The
// token alone decides access; a failed lookup only leaves User unset.
func (s *Service) Authenticate(ctx context.Context, token string) (Session, error) {
	claims, err := s.verifier.VerifyAccessClaims(ctx, token)
	if err != nil {
		return Session{}, err
	}
	sess := Session{Claims: claims}
	if s.directory == nil {
		return sess, nil
	}
	user, err := s.directory.Lookup(ctx, claims.Identity.ID)
	if err != nil {
		s.logger.WarnContext(ctx, "session user lookup failed", slog.String("user_id", claims.Identity.ID), slog.Any("error", err))
		return sess, nil
	}
	sess.User = &user
	return sess, nil
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (RefreshResult, error) {
	return s.refresher.Refresh(ctx, refreshToken)
}

func (s *Service) Logout(ctx context.Context, in LogoutInput) LogoutReport {
	return s.revoker.Logout(ctx, in)
}

// IssueOTP sends a fresh code to phone.
func (s *Service) IssueOTP(ctx context.Context, phone string) error {
	_, err := s.otp.Issue(ctx, phone)
	return err
}

func (s *Service) VerifyOTP(ctx context.Context, phone, code string) error {
	return s.otp.Verify(ctx, phone, code)
}

// SignInInput is a phone, the code sent to it and, for first sign-ins, the
// requested role.
type SignInInput struct {
	Phone string
	Code  string
	Role  string
}

type SignInResult struct {
	User   identity.User
	Tokens TokenPair
}

// SignIn consumes an OTP and issues a token pair for the phone's user,
// creating the user on first sign-in.
func (s *Service) SignIn(ctx context.Context, in SignInInput) (SignInResult, error) {
	if s.directory == nil {
		return SignInResult{}, errors.New("auth: sign-in requires a user directory")
	}
	if in.Role != "" && !identity.SelfServiceRole(in.Role) {
		return SignInResult{}, fmt.Errorf("%w: %s", identity.ErrRoleNotAllowed, in.Role)
	}
	if err := s.otp.Verify(ctx, in.Phone, in.Code); err != nil {
		return SignInResult{}, err
	}

	user, err := s.directory.Resolve(ctx, in.Phone, in.Role)
	if err != nil {
		return SignInResult{}, fmt.Errorf("resolve user: %w", err)
	}
	tokens, err := s.issuer.IssueTokenPair(ctx, Identity{ID: user.ID, Role: user.Role})
	if err != nil {
		return SignInResult{}, err
	}

	if err := s.directory.RecordLogin(ctx, user.ID, s.signer.Now().UTC()); err != nil {
		s.logger.WarnContext(ctx, "record login failed", slog.String("user_id", user.ID), slog.Any("error", err))
	}
	s.logger.InfoContext(ctx, "user signed in", slog.String("user_id", user.ID), slog.String("role", user.Role))
	return SignInResult{User: user, Tokens: tokens}, nil
}
