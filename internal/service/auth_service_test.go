package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qualistock/internal/model"
	"qualistock/internal/repository"
)

func TestRegisterRoles(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	first := e.register(t, "first", nil, false)
	assert.True(t, first.IsAdmin)

	self := e.register(t, "selfmade", nil, true)
	assert.False(t, self.IsAdmin)

	promoted := e.register(t, "promoted", &first, true)
	assert.True(t, promoted.IsAdmin)

	byStaff := e.register(t, "bystaff", &self, true)
	assert.False(t, byStaff.IsAdmin)

	user, err := e.store.Users().FindByID(ctx, promoted.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID.String(), user.CreatedBy)
	assert.Equal(t, model.RoleAdmin, user.RoleCode())
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.register(t, "alice", nil, false)

	_, err := e.auth.Register(ctx, nil, &RegisterRequest{Username: "alice", Email: "other@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Equal(t, "Username already registered", err.Error())

	_, err = e.auth.Register(ctx, nil, &RegisterRequest{Username: "bob", Email: "ALICE@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Equal(t, "Email already registered", err.Error())

	_, err = e.auth.Register(ctx, nil, &RegisterRequest{Username: "bob", Email: "not-an-email", Password: "secret123"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = e.auth.Register(ctx, nil, &RegisterRequest{Username: "bob", Email: "bob@example.com", Password: "123"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLoginAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	alice := e.register(t, "alice", nil, false)

	_, err := e.auth.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = e.auth.Login(ctx, "nobody", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	tok, err := e.auth.Login(ctx, " alice ", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "bearer", tok.TokenType)
	assert.EqualValues(t, 3600, tok.ExpiresIn)

	user, err := e.auth.Authenticate(ctx, tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, user.ID)
	require.NotNil(t, user.LastLoginAt)
	assert.Equal(t, testNow, *user.LastLoginAt)
	assert.True(t, user.HasPrivilege(model.PrivSystemAdmin))

	_, err = e.auth.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestInactiveUserCannotLogin(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	admin := e.register(t, "admin", nil, false)
	staff := e.register(t, "staff", nil, false)

	tok, err := e.auth.Login(ctx, "staff", "secret123")
	require.NoError(t, err)

	inactive := false
	_, err = e.users.Update(ctx, admin, staff.ID, &UpdateUserRequest{IsActive: &inactive})
	require.NoError(t, err)

	_, err = e.auth.Login(ctx, "staff", "secret123")
	assert.ErrorIs(t, err, ErrUserInactive)
	_, err = e.auth.Authenticate(ctx, tok.AccessToken)
	assert.ErrorIs(t, err, ErrUserInactive)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	alice := e.register(t, "alice", nil, false)

	err := e.auth.ChangePassword(ctx, alice, &ChangePasswordRequest{OldPassword: "nope", NewPassword: "newsecret"})
	assert.ErrorIs(t, err, ErrWrongPassword)

	require.NoError(t, e.auth.ChangePassword(ctx, alice, &ChangePasswordRequest{OldPassword: "secret123", NewPassword: "newsecret"}))
	_, err = e.auth.Login(ctx, "alice", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = e.auth.Login(ctx, "alice", "newsecret")
	assert.NoError(t, err)
}

func TestUserUpdatePermissions(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	admin := e.register(t, "admin", nil, false)
	staff := e.register(t, "staff", nil, false)
	other := e.register(t, "other", nil, false)

	email := "staff@new.example.com"
	_, err := e.users.Update(ctx, staff, other.ID, &UpdateUserRequest{Email: &email})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, "Not enough permissions", err.Error())

	yes := true
	_, err = e.users.Update(ctx, staff, staff.ID, &UpdateUserRequest{IsAdmin: &yes})
	assert.ErrorIs(t, err, ErrForbidden)

	resp, err := e.users.Update(ctx, staff, staff.ID, &UpdateUserRequest{Email: &email})
	require.NoError(t, err)
	assert.Equal(t, email, resp.Email)

	taken := "other"
	_, err = e.users.Update(ctx, staff, staff.ID, &UpdateUserRequest{Username: &taken})
	assert.ErrorIs(t, err, ErrDuplicate)

	resp, err = e.users.Update(ctx, admin, staff.ID, &UpdateUserRequest{IsAdmin: &yes})
	require.NoError(t, err)
	assert.True(t, resp.IsAdmin)
	assert.Equal(t, model.RoleAdmin, resp.Role)
	assert.Contains(t, resp.Privileges, model.PrivUserManage)
}

func TestUserDeleteAndReset(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	admin := e.register(t, "admin", nil, false)
	staff := e.register(t, "staff", nil, false)
	food := e.category(t, admin, "Food")
	apple := e.product(t, admin, food.ID, "Apple", "FOOD001")
	_, err := e.quality.Create(ctx, staff, &QualityCheckRequest{ProductID: apple.ID, Status: "GOOD"})
	require.NoError(t, err)

	err = e.users.Delete(ctx, staff, admin.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	err = e.users.Delete(ctx, admin, staff.ID)
	assert.ErrorIs(t, err, ErrInUse)
	assert.Equal(t, "Cannot delete user that has 1 quality checks", err.Error())

	err = e.users.Delete(ctx, admin, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, e.users.ResetPassword(ctx, "staff", "123"), ErrValidation)
	assert.ErrorIs(t, e.users.ResetPassword(ctx, "ghost", "longenough"), ErrNotFound)
	require.NoError(t, e.users.ResetPassword(ctx, "staff", "longenough"))
	_, err = e.auth.Login(ctx, "staff", "longenough")
	assert.NoError(t, err)

	spare := e.register(t, "spare", nil, false)
	require.NoError(t, e.users.Delete(ctx, spare, spare.ID))
	_, err = e.users.Get(ctx, spare.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := e.users.List(ctx, repository.Page{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "admin", list[0].Username)
}

func TestRolesAndPrivileges(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	roles, err := e.users.Roles(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 2)

	privs, err := e.users.Privileges(ctx)
	require.NoError(t, err)
	assert.Len(t, privs, len(model.DefaultPrivileges))

	for _, role := range roles {
		codes := map[string]bool{}
		for _, p := range role.Privileges {
			codes[p.Code] = true
		}
		assert.True(t, codes[model.PrivStockWrite], role.Code)
		assert.Equal(t, role.Code == model.RoleAdmin, codes[model.PrivUserManage], role.Code)
	}
}
