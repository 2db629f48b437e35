package service

import (
	"context"
	"errors"
	"strings"

	"qualistock/internal/model"
	"qualistock/internal/repository"
	"qualistock/pkg/jwt"
)

var (
	ErrInvalidCredentials = newError(ErrUnauthorized, "Incorrect username or password")
	ErrUserInactive       = newError(ErrUnauthorized, "Inactive user")
	ErrWrongPassword      = newError(ErrValidation, "Current password is incorrect")
)

type AuthService interface {
	// Register creates an account. caller is nil for anonymous sign-ups.
	Register(ctx context.Context, caller *Actor, req *RegisterRequest) (*model.User, error)
	Login(ctx context.Context, username, password string) (*TokenResponse, error)
	// Authenticate resolves a bearer token to an active user.
	Authenticate(ctx context.Context, token string) (*model.User, error)
	ChangePassword(ctx context.Context, actor Actor, req *ChangePasswordRequest) error
}

type RegisterRequest struct {
	Username string `json:"username" form:"username" validate:"required,notblank,min=3,max=50"`
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required,min=6"`
	IsAdmin  bool   `json:"is_admin" form:"is_admin"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type authService struct {
	users  repository.UserRepository
	roles  repository.RoleRepository
	tokens *jwt.Manager
	deps   Deps
}

func NewAuthService(users repository.UserRepository, roles repository.RoleRepository, tokens *jwt.Manager, deps Deps) AuthService {
	return &authService{users: users, roles: roles, tokens: tokens, deps: deps.withDefaults()}
}

func (s *authService) Register(ctx context.Context, caller *Actor, req *RegisterRequest) (*model.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if err := validate(req); err != nil {
		return nil, err
	}
	if err := ensureUserFree(ctx, s.users, req.Username, req.Email, nil); err != nil {
		return nil, err
	}

	existing, err := s.users.Count(ctx)
	if err != nil {
		return nil, err
	}
	// The first account bootstraps the installation. Later ones only get
	// ADMIN when an admin asks for it.
	roleCode := model.RoleStaff
	if existing == 0 || (req.IsAdmin && caller != nil && caller.IsAdmin) {
		roleCode = model.RoleAdmin
	}
	role, err := s.roles.FindByCode(ctx, roleCode)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username: req.Username,
		Email:    req.Email,
		IsActive: true,
		RoleID:   &role.ID,
	}
	if caller != nil {
		user.Touch(caller.Audit())
	} else {
		user.Touch(SystemActor.Audit())
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, errors.New("failed to hash password")
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, writeErr(err, "User")
	}
	user.Role = role
	return user, nil
}

// ensureUserFree rejects a username or email owned by another account.
func ensureUserFree(ctx context.Context, users repository.UserRepository, username, email string, self *model.User) error {
	if username != "" {
		other, err := users.FindByUsername(ctx, username)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if other != nil && (self == nil || other.ID != self.ID) {
			return newError(ErrDuplicate, "Username already registered")
		}
	}
	if email != "" {
		other, err := users.FindByEmail(ctx, email)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if other != nil && (self == nil || other.ID != self.ID) {
			return newError(ErrDuplicate, "Email already registered")
		}
	}
	return nil
}

func (s *authService) Login(ctx context.Context, username, password string) (*TokenResponse, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Username, user.Email, user.RoleCode(), user.GetPrivilegeCodes())
	if err != nil {
		return nil, errors.New("failed to generate token")
	}
	if err := s.users.UpdateLastLogin(ctx, user.ID, s.deps.Now()); err != nil {
		s.deps.Logger.Warn("update last login failed", "user", user.Username, "error", err)
	}
	return &TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.tokens.TTL().Seconds()),
	}, nil
}

func (s *authService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, newError(ErrUnauthorized, "Could not validate credentials")
	}
	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrUnauthorized, "Could not validate credentials")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	return user, nil
}

func (s *authService) ChangePassword(ctx context.Context, actor Actor, req *ChangePasswordRequest) error {
	if err := validate(req); err != nil {
		return err
	}
	user, err := s.users.FindByID(ctx, actor.ID)
	if err != nil {
		return lookupErr(err, "User")
	}
	if !user.CheckPassword(req.OldPassword) {
		return ErrWrongPassword
	}
	if err := user.SetPassword(req.NewPassword); err != nil {
		return errors.New("failed to hash new password")
	}
	return writeErr(s.users.UpdatePassword(ctx, user.ID, user.Password), "User")
}
