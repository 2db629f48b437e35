package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"qualistock/internal/model"
	"qualistock/internal/repository"
)

type UserService interface {
	List(ctx context.Context, page repository.Page) ([]model.UserResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*model.UserResponse, error)
	Update(ctx context.Context, actor Actor, id uuid.UUID, req *UpdateUserRequest) (*model.UserResponse, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
	ResetPassword(ctx context.Context, username, newPassword string) error
	Roles(ctx context.Context) ([]model.Role, error)
	Privileges(ctx context.Context) ([]model.Privilege, error)
}

type UpdateUserRequest struct {
	Username *string `json:"username" validate:"omitempty,notblank,min=3,max=50"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=6"`
	IsActive *bool   `json:"is_active"`
	IsAdmin  *bool   `json:"is_admin"`
}

type userService struct {
	users      repository.UserRepository
	roles      repository.RoleRepository
	privileges repository.PrivilegeRepository
	checks     repository.QualityCheckRepository
	deps       Deps
}

func NewUserService(
	users repository.UserRepository,
	roles repository.RoleRepository,
	privileges repository.PrivilegeRepository,
	checks repository.QualityCheckRepository,
	deps Deps,
) UserService {
	return &userService{users: users, roles: roles, privileges: privileges, checks: checks, deps: deps.withDefaults()}
}

func (s *userService) List(ctx context.Context, page repository.Page) ([]model.UserResponse, error) {
	users, err := s.users.FindAll(ctx, page)
	if err != nil {
		return nil, err
	}
	out := make([]model.UserResponse, len(users))
	for i := range users {
		out[i] = users[i].ToResponse()
	}
	return out, nil
}

func (s *userService) Get(ctx context.Context, id uuid.UUID) (*model.UserResponse, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "User")
	}
	resp := user.ToResponse()
	return &resp, nil
}

func canManage(actor Actor, target uuid.UUID) bool {
	return actor.IsAdmin || actor.ID == target
}

func (s *userService) Update(ctx context.Context, actor Actor, id uuid.UUID, req *UpdateUserRequest) (*model.UserResponse, error) {
	if !canManage(actor, id) {
		return nil, newError(ErrForbidden, "Not enough permissions")
	}
	if (req.IsAdmin != nil || req.IsActive != nil) && !actor.IsAdmin {
		return nil, newError(ErrForbidden, "Only administrators can change is_admin or is_active")
	}
	if err := validate(req); err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "User")
	}

	var username, email string
	if req.Username != nil {
		username = strings.TrimSpace(*req.Username)
	}
	if req.Email != nil {
		email = strings.TrimSpace(strings.ToLower(*req.Email))
	}
	if err := ensureUserFree(ctx, s.users, username, email, user); err != nil {
		return nil, err
	}
	if username != "" {
		user.Username = username
	}
	if email != "" {
		user.Email = email
	}
	if req.Password != nil && *req.Password != "" {
		if err := user.SetPassword(*req.Password); err != nil {
			return nil, errors.New("failed to hash password")
		}
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if req.IsAdmin != nil && *req.IsAdmin != user.IsAdmin() {
		code := model.RoleStaff
		if *req.IsAdmin {
			code = model.RoleAdmin
		}
		role, err := s.roles.FindByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		user.RoleID = &role.ID
		user.Role = role
	}
	user.Touch(actor.Audit())
	if err := s.users.Update(ctx, user); err != nil {
		return nil, writeErr(err, "User")
	}
	return s.Get(ctx, id)
}

// Delete refuses while quality checks name the user as checker.
func (s *userService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if !canManage(actor, id) {
		return newError(ErrForbidden, "Not enough permissions")
	}
	if _, err := s.users.FindByID(ctx, id); err != nil {
		return lookupErr(err, "User")
	}
	n, err := s.checks.CountByChecker(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return newError(ErrInUse, "Cannot delete user that has %d quality checks", n)
	}
	return writeErr(s.users.Delete(ctx, id), "User")
}

func (s *userService) ResetPassword(ctx context.Context, username, newPassword string) error {
	if len(newPassword) < 6 {
		return invalid("password must be at least 6 characters")
	}
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return lookupErr(err, "User")
	}
	if err := user.SetPassword(newPassword); err != nil {
		return errors.New("failed to hash password")
	}
	return writeErr(s.users.UpdatePassword(ctx, user.ID, user.Password), "User")
}

func (s *userService) Roles(ctx context.Context) ([]model.Role, error) {
	return s.roles.FindAll(ctx)
}

func (s *userService) Privileges(ctx context.Context) ([]model.Privilege, error) {
	return s.privileges.FindAll(ctx)
}
