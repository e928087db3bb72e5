package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/memspace/memspace/internal/auth"
	"github.com/memspace/memspace/internal/model"
	"github.com/memspace/memspace/internal/store"
)

// InviteService admits new users. There is no self-registration; every
// account enters through an admin-issued invite or an admin creating it
// directly.
type InviteService struct {
	store store.Store
	ttl   time.Duration
}

func NewInviteService(s store.Store, ttl time.Duration) *InviteService {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &InviteService{store: s, ttl: ttl}
}

func (s *InviteService) CreateInvite(ctx context.Context, p *auth.Principal, email string, role model.Role) (*model.Invite, error) {
	if !p.IsAdmin() {
		return nil, model.ErrForbidden
	}
	if strings.TrimSpace(email) == "" {
		return nil, fmt.Errorf("%w: email is required", model.ErrInvalidInput)
	}
	if role == "" {
		role = model.RoleUser
	}
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	inv := &model.Invite{
		ID:        uuid.NewString(),
		Email:     strings.ToLower(email),
		Role:      role,
		Token:     hex.EncodeToString(raw),
		ExpiresAt: time.Now().Add(s.ttl),
	}
	return s.store.Invites().Create(ctx, inv)
}

// CheckInvite reports whether a token can still be redeemed. Unknown tokens
// are not found; expired and consumed ones fail with invalid input so the
// caller can show why.
func (s *InviteService) CheckInvite(ctx context.Context, token string) (*model.Invite, error) {
	inv, err := s.store.Invites().GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if time.Now().After(inv.ExpiresAt) {
		return nil, fmt.Errorf("%w: invite has expired", model.ErrInvalidInput)
	}
	if inv.Status == model.InviteUsed {
		return nil, fmt.Errorf("%w: invite has already been used", model.ErrInvalidInput)
	}
	return inv, nil
}

// AcceptInvite redeems a pending invite and creates the account with the
// role the invite carries. The email must match the invited address.
func (s *InviteService) AcceptInvite(ctx context.Context, token, name, email string) (*model.User, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" {
		return nil, fmt.Errorf("%w: name and email are required", model.ErrInvalidInput)
	}
	inv, err := s.CheckInvite(ctx, token)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(inv.Email, email) {
		return nil, fmt.Errorf("%w: invite was issued for a different email", model.ErrInvalidInput)
	}
	u := &model.User{
		ID:     uuid.NewString(),
		Name:   name,
		Email:  strings.ToLower(email),
		Role:   inv.Role,
		Active: true,
	}
	created, err := s.store.Users().Create(ctx, u)
	if err != nil {
		return nil, err
	}
	if err := s.store.Invites().MarkUsed(ctx, inv.ID); err != nil {
		return nil, err
	}
	return created, nil
}
