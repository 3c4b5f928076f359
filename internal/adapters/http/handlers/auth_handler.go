package handlers

import (
	"mpp-antrian/internal/core/domain"
	"mpp-antrian/internal/core/services"
	"mpp-antrian/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// actorFromCtx builds the acting identity from the auth middleware locals.
func actorFromCtx(c *fiber.Ctx) (domain.Actor, bool) {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return domain.Actor{}, false
	}
	role, _ := c.Locals("role").(string)
	return domain.Actor{UserID: userID, Role: domain.Role(role)}, true
}

// Login handles POST /api/v1/auth/login
// @Summary Log in and receive an access token
// @Tags Auth
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input services.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if input.Username == "" || input.Password == "" {
		return response.BadRequest(c, "username and password are required")
	}

	result, err := h.authService.Login(&input)
	if err != nil {
		switch err {
		case services.ErrInvalidCredentials:
			return response.Unauthorized(c, err.Error())
		case services.ErrUserInactive:
			return response.Forbidden(c, err.Error())
		default:
			return response.InternalServerError(c, "Failed to log in")
		}
	}
	return response.Success(c, "Logged in", result)
}

// Register handles POST /api/v1/auth/register
// @Summary Create a visitor account
// @Tags Auth
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var input services.RegisterUserInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	user, err := h.authService.RegisterUser(&input)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Created(c, "Account created", user)
}
