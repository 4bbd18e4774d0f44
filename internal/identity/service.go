package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrRoleNotAllowed is returned when a sign-up asks for a role that cannot be
// self-assigned.
var ErrRoleNotAllowed = errors.New("role cannot be self-assigned")

// Service resolves phone numbers to users, creating them on first sign-in.
type Service struct {
	repo Repository
}

// NewService creates a new identity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Lookup returns the user with the given id.
func (s *Service) Lookup(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}

// Resolve returns the user registered under phone, creating one with role
// when none exists. role is ignored for existing users and defaults to
// customer.
func (s *Service) Resolve(ctx context.Context, phone, role string) (User, error) {
	user, err := s.repo.FindByPhone(ctx, phone)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	if role == "" {
		role = RoleCustomer
	}
	if !SelfServiceRole(role) {
		return User{}, fmt.Errorf("%w: %s", ErrRoleNotAllowed, role)
	}

	user = User{
		ID:        uuid.New().String(),
		Phone:     phone,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, ErrExists) {
			// lost a race with a concurrent first sign-in
			return s.repo.FindByPhone(ctx, phone)
		}
		return User{}, err
	}
	return user, nil
}

// RecordLogin stamps the user's last successful sign-in.
func (s *Service) RecordLogin(ctx context.Context, id string, at time.Time) error {
	return s.repo.TouchLogin(ctx, id, at)
}
