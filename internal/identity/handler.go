package identity

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes identity endpoints to staff.
type Handler struct {
	service *Service
}

// NewHandler constructs an identity HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// UserResponse is the JSON shape of a user.
type UserResponse struct {
	UserID    string `json:"user_id"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
	LastLogin string `json:"last_login,omitempty"`
}

// NewUserResponse renders a user for JSON responses.
func NewUserResponse(u User) UserResponse {
	res := UserResponse{UserID: u.ID, Phone: u.Phone, Role: u.Role, CreatedAt: u.CreatedAt.Format(time.RFC3339)}
	if u.LastLogin != nil {
		res.LastLogin = u.LastLogin.Format(time.RFC3339)
	}
	return res
}

// Get returns the user named by the :id path parameter.
func (h *Handler) Get(c *fiber.Ctx) error {
	user, err := h.service.Lookup(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(NewUserResponse(user))
}
