package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
)

func TestResolveCreatesThenReuses(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()

	user, err := svc.Resolve(ctx, "+242060000000", RoleMerchant)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if user.Role != RoleMerchant {
		t.Fatalf("expected merchant, got %s", user.Role)
	}

	again, err := svc.Resolve(ctx, "+242060000000", RoleDriver)
	if err != nil {
		t.Fatalf("resolve again: %v", err)
	}
	if again.ID != user.ID || again.Role != RoleMerchant {
		t.Fatalf("expected existing merchant %s, got %+v", user.ID, again)
	}
}

func TestResolveDefaultsToCustomer(t *testing.T) {
	svc := NewService(NewMemoryRepository())

	user, err := svc.Resolve(context.Background(), "+242060000001", "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if user.Role != RoleCustomer {
		t.Fatalf("expected customer, got %s", user.Role)
	}
}

func TestResolveRejectsStaffSignUp(t *testing.T) {
	svc := NewService(NewMemoryRepository())

	if _, err := svc.Resolve(context.Background(), "+242060000002", RoleStaff); !errors.Is(err, ErrRoleNotAllowed) {
		t.Fatalf("expected ErrRoleNotAllowed, got %v", err)
	}
}

func TestResolveConcurrentFirstSignIn(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	const workers = 8
	ids := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user, err := svc.Resolve(ctx, "+242060000003", RoleCustomer)
			if err != nil {
				t.Errorf("resolve %d: %v", i, err)
				return
			}
			ids[i] = user.ID
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("expected a single user, got %v", ids)
		}
	}
}

func TestRecordLogin(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	user, _ := svc.Resolve(ctx, "+242060000004", "")
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := svc.RecordLogin(ctx, user.ID, at); err != nil {
		t.Fatalf("record login: %v", err)
	}
	got, err := svc.Lookup(ctx, user.ID)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.LastLogin == nil || !got.LastLogin.Equal(at) {
		t.Fatalf("expected last login %v, got %v", at, got.LastLogin)
	}

	if err := svc.RecordLogin(ctx, "missing", at); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestHandlerGet(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	user, _ := svc.Resolve(context.Background(), "+242060000005", RoleDriver)

	app := fiber.New()
	app.Get("/users/:id", NewHandler(svc).Get)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/users/"+user.ID, nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/users/nope", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
