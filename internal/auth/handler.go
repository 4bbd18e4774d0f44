package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/congo_auth/internal/identity"
)

// SessionLocal is the fiber locals key holding the caller's Session.
const SessionLocal = "session"

var validate = validator.New()

// Handler exposes the phone sign-in, refresh and logout endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type otpRequest struct {
	Phone string `json:"phone" validate:"required,e164"`
}

// RequestOTP sends a sign-in code to the phone in the body. The code itself
// never appears in the response.
func (h *Handler) RequestOTP(c *fiber.Ctx) error {
	var req otpRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "phone must be in E.164 format")
	}
	if err := h.svc.IssueOTP(c.UserContext(), req.Phone); err != nil {
		return fiber.NewError(StatusFor(err), err.Error())
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{
		"status":     "sent",
		"expires_in": int64(h.svc.OTPTTL().Seconds()),
	})
}

type verifyOTPRequest struct {
	Phone string `json:"phone" validate:"required,e164"`
	Code  string `json:"code"  validate:"required,len=6,numeric"`
	Role  string `json:"role"  validate:"omitempty,oneof=customer merchant driver"`
}

type signInResponse struct {
	UserID           string `json:"user_id"`
	Role             string `json:"role"`
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int64  `json:"expires_in"`
	RefreshExpiresIn int64  `json:"refresh_expires_in"`
}

// VerifyOTP consumes the code and signs the phone's user in.
func (h *Handler) VerifyOTP(c *fiber.Ctx) error {
	var req verifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, validationMessage(err))
	}

	res, err := h.svc.SignIn(c.UserContext(), SignInInput{Phone: req.Phone, Code: req.Code, Role: req.Role})
	if err != nil {
		return fiber.NewError(StatusFor(err), err.Error())
	}
	now := h.svc.Now()
	return c.Status(http.StatusOK).JSON(signInResponse{
		UserID:           res.User.ID,
		Role:             res.User.Role,
		AccessToken:      res.Tokens.Access.Token,
		RefreshToken:     res.Tokens.Refresh.Token,
		ExpiresIn:        secondsUntil(res.Tokens.Access, now),
		RefreshExpiresIn: secondsUntil(res.Tokens.Refresh, now),
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Refresh issues a new access token using a valid refresh token.
func (h *Handler) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "refresh_token is required")
	}

	res, err := h.svc.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return fiber.NewError(StatusFor(err), err.Error())
	}
	now := h.svc.Now()
	body := fiber.Map{
		"access_token": res.Access.Token,
		"expires_in":   secondsUntil(res.Access, now),
	}
	if res.Refresh != nil {
		body["refresh_token"] = res.Refresh.Token
		body["refresh_expires_in"] = secondsUntil(*res.Refresh, now)
	}
	return c.Status(http.StatusOK).JSON(body)
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Logout revokes the bearer access token and the refresh token in the body.
// It always answers logged_out.
func (h *Handler) Logout(c *fiber.Ctx) error {
	var req logoutRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}
	h.svc.Logout(c.UserContext(), LogoutInput{
		AccessToken:  BearerToken(c),
		RefreshToken: req.RefreshToken,
	})
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "logged_out"})
}

// Me returns the authenticated caller.
func (h *Handler) Me(c *fiber.Ctx) error {
	sess, ok := c.Locals(SessionLocal).(Session)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "not authenticated")
	}
	body := fiber.Map{
		"user_id":    sess.Claims.Identity.ID,
		"role":       sess.Claims.Identity.Role,
		"expires_at": sess.Claims.ExpiresAt.UTC(),
	}
	if sess.User != nil {
		body["user"] = identity.NewUserResponse(*sess.User)
	}
	return c.Status(http.StatusOK).JSON(body)
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(c *fiber.Ctx) string {
	authz := c.Get(fiber.HeaderAuthorization)
	if len(authz) < len("bearer ") || !strings.EqualFold(authz[:len("bearer ")], "bearer ") {
		return ""
	}
	return strings.TrimSpace(authz[len("bearer "):])
}

// StatusFor maps auth errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrMalformedToken),
		errors.Is(err, ErrSignatureInvalid),
		errors.Is(err, ErrExpired),
		errors.Is(err, ErrWrongTokenType),
		errors.Is(err, ErrRevoked),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrMismatch):
		return http.StatusUnauthorized
	case errors.Is(err, identity.ErrRoleNotAllowed):
		return http.StatusForbidden
	case errors.Is(err, ErrDeliveryFailure):
		return http.StatusBadGateway
	case errors.Is(err, ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func secondsUntil(cred Credential, now time.Time) int64 {
	return int64(cred.ExpiresAt.Sub(now) / time.Second)
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	return strings.ToLower(fe.Field()) + " failed " + fe.Tag() + " validation"
}
