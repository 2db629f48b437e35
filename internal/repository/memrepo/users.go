package memrepo

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"qualistock/internal/model"
	"qualistock/internal/repository"
)

type userRepo struct{ s *Store }

// withRole attaches the role and its privileges, as Preload("Role.Privileges") does.
func (s *Store) withRole(u model.User) model.User {
	u.Role = nil
	if u.RoleID == nil {
		return u
	}
	for _, role := range s.roles {
		if role.ID == *u.RoleID {
			role := role
			role.Privileges = append([]model.Privilege(nil), role.Privileges...)
			u.Role = &role
			break
		}
	}
	return u
}

func (s *Store) userTaken(u *model.User) bool {
	for id, other := range s.users {
		if id != u.ID && (other.Username == u.Username || other.Email == u.Email) {
			return true
		}
	}
	return false
}

func (r *userRepo) find(match func(model.User) bool) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if match(u) {
			u = r.s.withRole(u)
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.Email == email })
}

func (r *userRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.Username == username })
}

func (r *userRepo) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.ID == id })
}

func (r *userRepo) Create(_ context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.userTaken(u) {
		return repository.ErrDuplicate
	}
	r.s.stamp(&u.BaseModel, true)
	stored := *u
	stored.Role = nil
	r.s.users[u.ID] = stored
	return nil
}

func (r *userRepo) Update(_ context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[u.ID]; !ok {
		return repository.ErrNotFound
	}
	if r.s.userTaken(u) {
		return repository.ErrDuplicate
	}
	r.s.stamp(&u.BaseModel, false)
	stored := *u
	stored.Role = nil
	r.s.users[u.ID] = stored
	return nil
}

func (r *userRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return repository.ErrNotFound
	}
	for _, c := range r.s.checks {
		if c.CheckedBy == id {
			return repository.ErrInUse
		}
	}
	delete(r.s.users, id)
	return nil
}

func (r *userRepo) UpdatePassword(_ context.Context, userID uuid.UUID, hashedPassword string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.Password = hashedPassword
	r.s.users[userID] = u
	return nil
}

func (r *userRepo) UpdateLastLogin(_ context.Context, userID uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return nil
	}
	u.LastLoginAt = &at
	r.s.users[userID] = u
	return nil
}

func (r *userRepo) FindAll(_ context.Context, page repository.Page) ([]model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]model.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		out = append(out, r.s.withRole(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return window(out, page), nil
}

func (r *userRepo) Count(_ context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.s.users)), nil
}

type roleRepo struct{ s *Store }

func (r *roleRepo) FindAll(_ context.Context) ([]model.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return append([]model.Role(nil), r.s.roles...), nil
}

func (r *roleRepo) FindByID(_ context.Context, id uint) (*model.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, role := range r.s.roles {
		if role.ID == id {
			role := role
			return &role, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *roleRepo) FindByCode(_ context.Context, code string) (*model.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, role := range r.s.roles {
		if role.Code == code {
			role := role
			return &role, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *roleRepo) SeedDefaults(_ context.Context) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, def := range model.DefaultRoles {
		idx := -1
		for i, role := range r.s.roles {
			if role.Code == def.Code {
				idx = i
			}
		}
		if idx < 0 {
			role := def
			role.ID = uint(len(r.s.roles) + 1)
			r.s.roles = append(r.s.roles, role)
			idx = len(r.s.roles) - 1
		}
		var privs []model.Privilege
		for _, code := range model.PrivilegesForRole(def.Code) {
			for _, p := range r.s.privileges {
				if p.Code == code {
					privs = append(privs, p)
				}
			}
		}
		r.s.roles[idx].Privileges = privs
	}
	return nil
}

type privilegeRepo struct{ s *Store }

func (r *privilegeRepo) FindByCodes(_ context.Context, codes []string) ([]model.Privilege, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []model.Privilege
	for _, p := range r.s.privileges {
		for _, c := range codes {
			if p.Code == c {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (r *privilegeRepo) FindAll(_ context.Context) ([]model.Privilege, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return append([]model.Privilege(nil), r.s.privileges...), nil
}

func (r *privilegeRepo) SeedDefaults(_ context.Context) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, def := range model.DefaultPrivileges {
		exists := false
		for _, p := range r.s.privileges {
			if p.Code == def.Code {
				exists = true
			}
		}
		if !exists {
			p := def
			p.ID = uint(len(r.s.privileges) + 1)
			r.s.privileges = append(r.s.privileges, p)
		}
	}
	return nil
}
