package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"qualistock/internal/middleware"
	"qualistock/internal/service"
)

type AuthHandler struct {
	authService service.AuthService
}

func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// LoginRequest is accepted as JSON or as an OAuth2 password form.
type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// Login handles user authentication
// POST /api/v1/token, POST /api/v1/users/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("Invalid request body")
	}

	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return badRequest("Username and password are required")
	}

	response, err := h.authService.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(response)
}

// Register handles account creation. An admin caller may grant the admin role.
// POST /api/v1/users/register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req service.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("Invalid request body")
	}

	var caller *service.Actor
	if a, ok := middleware.CurrentActor(c); ok {
		caller = &a
	}

	user, err := h.authService.Register(c.UserContext(), caller, &req)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(user.ToResponse())
}

// Me returns the authenticated user
// GET /api/v1/users/me
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not authenticated"})
	}
	return c.JSON(user.ToResponse())
}

// ChangePassword handles password change for the current user
// POST /api/v1/users/me/password
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var req service.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("Invalid request body")
	}

	if err := h.authService.ChangePassword(c.UserContext(), actor(c), &req); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Password updated successfully"})
}
