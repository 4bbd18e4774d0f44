package middleware

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/congo_auth/internal/auth"
)

// Locals keys set by Authenticate.
const (
	LocalUserID = "user_id"
	LocalRole   = "role"
)

// Authenticate validates the bearer access token on every request, including
// the blacklist check, and stores the caller's session in locals.
func Authenticate(svc *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := auth.BearerToken(c)
		if token == "" {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		sess, err := svc.Authenticate(c.UserContext(), token)
		if err != nil {
			return fiber.NewError(auth.StatusFor(err), err.Error())
		}

		c.Locals(auth.SessionLocal, sess)
		c.Locals(LocalUserID, sess.Claims.Identity.ID)
		c.Locals(LocalRole, sess.Claims.Identity.Role)
		return c.Next()
	}
}

// RequireRole admits only callers whose token carries one of roles. It must
// run after Authenticate.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals(LocalRole).(string)
		if _, ok := allowed[role]; !ok {
			return fiber.NewError(http.StatusForbidden, "insufficient role")
		}
		return c.Next()
	}
}
