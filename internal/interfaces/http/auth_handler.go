package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/sii-etd-api/internal/application/dto"
)

// AuthService login de usuarios.
type AuthService interface {
	Login(ctx context.Context, in dto.LoginRequest) (*dto.LoginResponse, error)
}

// AuthHandler maneja /api/auth (público).
type AuthHandler struct {
	svc AuthService
}

// NewAuthHandler construye el handler.
func NewAuthHandler(svc AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Login autentica y devuelve el JWT.
// POST /api/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var in dto.LoginRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	out, err := h.svc.Login(c.Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
