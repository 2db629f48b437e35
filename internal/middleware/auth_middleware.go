package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"qualistock/internal/model"
	"qualistock/internal/service"
)

const (
	localUser  = "user"
	localActor = "actor"
)

// RequireAuth validates the bearer token and stores the user in the request locals.
func RequireAuth(auth service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not authenticated"})
		}

		token, ok := bearer(authHeader)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid authorization format. Use: Bearer <token>"})
		}

		user, err := auth.Authenticate(c.UserContext(), token)
		if err != nil {
			var se *service.Error
			if errors.As(err, &se) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": se.Message})
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Could not validate credentials"})
		}

		setUser(c, user)
		return c.Next()
	}
}

// OptionalAuth resolves the caller when a valid token is present and
// continues anonymously otherwise.
func OptionalAuth(auth service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token, ok := bearer(c.Get(fiber.HeaderAuthorization)); ok {
			if user, err := auth.Authenticate(c.UserContext(), token); err == nil {
				setUser(c, user)
			}
		}
		return c.Next()
	}
}

func bearer(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

func setUser(c *fiber.Ctx, user *model.User) {
	c.Locals(localUser, user)
	c.Locals(localActor, service.Actor{ID: user.ID, Username: user.Username, IsAdmin: user.IsAdmin()})
}

// CurrentUser returns the authenticated user or nil.
func CurrentUser(c *fiber.Ctx) *model.User {
	user, _ := c.Locals(localUser).(*model.User)
	return user
}

// CurrentActor returns the caller as a service actor. ok is false for anonymous requests.
func CurrentActor(c *fiber.Ctx) (service.Actor, bool) {
	actor, ok := c.Locals(localActor).(service.Actor)
	return actor, ok
}

// RequirePrivilege checks if the authenticated user has the required privilege
func RequirePrivilege(requiredPrivilege string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "No privileges found"})
		}
		if user.HasPrivilege(requiredPrivilege) {
			return c.Next()
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Forbidden: requires '" + requiredPrivilege + "' privilege",
		})
	}
}

// RequireAnyPrivilege checks if the user has at least one of the specified privileges
func RequireAnyPrivilege(requiredPrivileges ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "No privileges found"})
		}
		for _, p := range requiredPrivileges {
			if user.HasPrivilege(p) {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Forbidden: requires one of " + strings.Join(requiredPrivileges, ", ") + " privileges",
		})
	}
}
