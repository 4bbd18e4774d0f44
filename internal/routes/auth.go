package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/congo_auth/internal/auth"
	"github.com/congo-pay/congo_auth/internal/middleware"
)

// RegisterAuthRoutes wires the public sign-in endpoints. OTP request and
// verification are rate limited per phone; a repeated Idempotency-Key on an
// OTP request replays the first answer instead of sending another SMS.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, d Deps) {
	group := r.Group("/auth")

	group.Post("/otp/request",
		middleware.PhoneRateLimit(d.Cache, "otp_request", d.Cfg.OTPRequestsPerMin, d.Logger),
		middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger),
		h.RequestOTP,
	)
	group.Post("/otp/verify",
		middleware.PhoneRateLimit(d.Cache, "otp_verify", d.Cfg.OTPVerifiesPerMin, d.Logger),
		h.VerifyOTP,
	)
	group.Post("/refresh", h.Refresh)
	group.Post("/logout", h.Logout)
}
