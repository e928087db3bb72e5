package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/memspace/memspace/internal/auth"
	"github.com/memspace/memspace/internal/model"
	"github.com/memspace/memspace/internal/pagination"
	"github.com/memspace/memspace/internal/store"
)

// UserService covers account administration. All operations except Me are
// admin-only.
type UserService struct {
	store store.Store
}

func NewUserService(s store.Store) *UserService {
	return &UserService{store: s}
}

// Me returns the caller's own account.
func (s *UserService) Me(ctx context.Context, p *auth.Principal) (*model.User, error) {
	return s.store.Users().Get(ctx, p.UserID())
}

func (s *UserService) CreateUser(ctx context.Context, p *auth.Principal, name, email string, role model.Role) (*model.User, error) {
	if !p.IsAdmin() {
		return nil, model.ErrForbidden
	}
	if strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" {
		return nil, fmt.Errorf("%w: name and email are required", model.ErrInvalidInput)
	}
	if role == "" {
		role = model.RoleUser
	}
	u := &model.User{
		ID:     uuid.NewString(),
		Name:   name,
		Email:  strings.ToLower(email),
		Role:   role,
		Active: true,
	}
	return s.store.Users().Create(ctx, u)
}

func (s *UserService) ListUsers(ctx context.Context, p *auth.Principal, limit, offset int) ([]*model.User, model.Pagination, error) {
	if !p.IsAdmin() {
		return nil, model.Pagination{}, model.ErrForbidden
	}
	limit = pagination.ClampLimit(limit)
	offset = pagination.ClampOffset(offset)
	users, total, err := s.store.Users().List(ctx, limit, offset)
	if err != nil {
		return nil, model.Pagination{}, err
	}
	return users, model.Pagination{Limit: limit, Offset: offset, Total: total}, nil
}

// UpdateUser changes role and/or active state. Deactivation cuts off every
// session and API key the user holds; accounts are never hard-deleted.
func (s *UserService) UpdateUser(ctx context.Context, p *auth.Principal, userID string, role *model.Role, active *bool) (*model.User, error) {
	if !p.IsAdmin() {
		return nil, model.ErrForbidden
	}
	if role == nil && active == nil {
		return nil, fmt.Errorf("%w: nothing to update", model.ErrInvalidInput)
	}
	return s.store.Users().Update(ctx, userID, role, active)
}
