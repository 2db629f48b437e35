package middleware

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qualistock/internal/model"
)

func userWith(codes ...string) *model.User {
	role := &model.Role{Code: model.RoleStaff}
	for _, c := range codes {
		role.Privileges = append(role.Privileges, model.Privilege{Code: c})
	}
	return &model.User{Username: "staff", Role: role}
}

func guarded(user *model.User, guard fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		if user != nil {
			setUser(c, user)
		}
		return c.Next()
	}, guard, func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func call(t *testing.T, app *fiber.App) (int, map[string]string) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	body := map[string]string{}
	if resp.StatusCode != fiber.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	}
	return resp.StatusCode, body
}

func TestRequireAnyPrivilege(t *testing.T) {
	guard := RequireAnyPrivilege(model.PrivForecastWrite, model.PrivCatalogWrite)

	status, _ := call(t, guarded(userWith(model.PrivCatalogWrite), guard))
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = call(t, guarded(userWith(model.PrivForecastWrite, model.PrivStockWrite), guard))
	assert.Equal(t, fiber.StatusOK, status)

	status, body := call(t, guarded(userWith(model.PrivStockWrite), guard))
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "Forbidden: requires one of forecast:write, catalog:write privileges", body["error"])

	status, body = call(t, guarded(nil, guard))
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "No privileges found", body["error"])
}

func TestRequirePrivilege(t *testing.T) {
	guard := RequirePrivilege(model.PrivStockWrite)

	status, _ := call(t, guarded(userWith(model.PrivStockWrite), guard))
	assert.Equal(t, fiber.StatusOK, status)

	status, body := call(t, guarded(userWith(model.PrivCatalogWrite), guard))
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "Forbidden: requires 'stock:write' privilege", body["error"])
}
