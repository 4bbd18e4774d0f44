package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/congo_auth/internal/auth"
	"github.com/congo-pay/congo_auth/internal/kvstore"
	"github.com/congo-pay/congo_auth/internal/logging"
	"github.com/congo-pay/congo_auth/internal/notification"
)

func newAuthService(t *testing.T) *auth.Service {
	t.Helper()
	svc, err := auth.NewService(auth.Options{
		Secret:     []byte("middleware-test-secret-0123456789"),
		AccessTTL:  15 * time.Minute,
		RefreshTTL: time.Hour,
		OTPTTL:     5 * time.Minute,
	}, kvstore.NewMemory(), notification.NewLoggerNotifier(nil), nil, logging.Discard())
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}
	return svc
}

func protectedApp(svc *auth.Service) *fiber.App {
	app := fiber.New()
	app.Get("/me", Authenticate(svc), func(c *fiber.Ctx) error {
		uid, _ := c.Locals(LocalUserID).(string)
		return c.SendString(uid)
	})
	app.Get("/staff", Authenticate(svc), RequireRole("staff"), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})
	return app
}

func getWithBearer(t *testing.T, app *fiber.App, path, token string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	return resp.StatusCode
}

func TestAuthenticate(t *testing.T) {
	svc := newAuthService(t)
	app := protectedApp(svc)
	ctx := context.Background()

	access, err := svc.IssueAccessToken(auth.Identity{ID: "u1", Role: "customer"})
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	refresh, err := svc.IssueRefreshToken(ctx, auth.Identity{ID: "u1", Role: "customer"})
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}

	if got := getWithBearer(t, app, "/me", ""); got != http.StatusUnauthorized {
		t.Fatalf("missing token: expected 401, got %d", got)
	}
	if got := getWithBearer(t, app, "/me", "garbage"); got != http.StatusUnauthorized {
		t.Fatalf("garbage token: expected 401, got %d", got)
	}
	if got := getWithBearer(t, app, "/me", refresh.Token); got != http.StatusUnauthorized {
		t.Fatalf("refresh token: expected 401, got %d", got)
	}
	if got := getWithBearer(t, app, "/me", access.Token); got != http.StatusOK {
		t.Fatalf("access token: expected 200, got %d", got)
	}

	svc.Logout(ctx, auth.LogoutInput{AccessToken: access.Token})
	if got := getWithBearer(t, app, "/me", access.Token); got != http.StatusUnauthorized {
		t.Fatalf("revoked token: expected 401, got %d", got)
	}
}

func TestRequireRole(t *testing.T) {
	svc := newAuthService(t)
	app := protectedApp(svc)

	customer, _ := svc.IssueAccessToken(auth.Identity{ID: "u1", Role: "customer"})
	staff, _ := svc.IssueAccessToken(auth.Identity{ID: "s1", Role: "staff"})

	if got := getWithBearer(t, app, "/staff", customer.Token); got != http.StatusForbidden {
		t.Fatalf("customer: expected 403, got %d", got)
	}
	if got := getWithBearer(t, app, "/staff", staff.Token); got != http.StatusNoContent {
		t.Fatalf("staff: expected 204, got %d", got)
	}
}
