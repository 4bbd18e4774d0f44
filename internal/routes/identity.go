package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/congo_auth/internal/identity"
	"github.com/congo-pay/congo_auth/internal/middleware"
)

// RegisterIdentityRoutes wires staff-only user lookups behind requireSession.
func RegisterIdentityRoutes(r fiber.Router, h *identity.Handler, requireSession fiber.Handler) {
	staff := r.Group("/staff", requireSession, middleware.RequireRole(identity.RoleStaff))
	staff.Get("/users/:id", h.Get)
}
