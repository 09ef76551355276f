package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-engine/internal/api/dto"
	"github.com/spec-kit/auth-engine/internal/auth"
	apperrors "github.com/spec-kit/auth-engine/pkg/util"
)

// SessionHandler serves endpoints behind the authorization gate.
type SessionHandler struct{}

// NewSessionHandler constructs handler.
func NewSessionHandler() *SessionHandler {
	return &SessionHandler{}
}

// Me handles GET /auth/me.
func (h *SessionHandler) Me(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	roles := claims.Roles
	if roles == nil {
		roles = []string{}
	}
	return c.JSON(dto.SessionResponse{
		TokenID: claims.TokenID.String(),
		Email:   claims.Subject.String(),
		Roles:   roles,
	})
}

// AdminPing handles GET /admin/ping.
func (h *SessionHandler) AdminPing(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
