package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-engine/internal/api/dto"
	"github.com/spec-kit/auth-engine/internal/domain"
	"github.com/spec-kit/auth-engine/internal/service"
	apperrors "github.com/spec-kit/auth-engine/pkg/util"
)

const (
	statusSuccess = "success"
	statusFailure = "failure"

	msgInvalidCredentials = "invalid email or password"
	msgForbidden          = "account is forbidden"
)

// LoginService is the use case behind POST /auth/login.
type LoginService interface {
	Login(ctx context.Context, identity domain.Email, plaintext string) (service.LoginOutcome, error)
}

// AuthHandler exposes the login endpoint.
type AuthHandler struct {
	auth LoginService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(auth LoginService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Login handles POST /auth/login. Unknown accounts and wrong passwords get the same response.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return badRequest(c, "email and password required")
	}
	email, err := domain.ParseEmail(req.Email)
	if err != nil {
		return badRequest(c, "invalid email address")
	}

	outcome, err := h.auth.Login(c.UserContext(), email, req.Password)
	if err != nil {
		return err
	}

	switch outcome.Status {
	case service.LoginSuccess:
		return c.JSON(dto.LoginResponse{
			Status:    statusSuccess,
			Token:     outcome.Token.Token,
			ExpiresAt: outcome.Token.ExpiresAt,
		})
	case service.LoginForbidden:
		return c.Status(fiber.StatusForbidden).JSON(dto.FailureResponse{Status: statusFailure, Message: msgForbidden})
	case service.LoginUserNotFound, service.LoginIncorrectPassword:
		return c.Status(fiber.StatusUnauthorized).JSON(dto.FailureResponse{Status: statusFailure, Message: msgInvalidCredentials})
	default:
		return apperrors.NewInternalError(errors.New("unknown login outcome " + string(outcome.Status)))
	}
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.FailureResponse{Status: statusFailure, Message: message})
}
