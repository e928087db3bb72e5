package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/memspace/memspace/internal/auth"
	"github.com/memspace/memspace/internal/model"
	"github.com/memspace/memspace/internal/store"
)

// ApiKeyService manages machine credentials. Keys are created through
// sessions only; a key cannot mint further keys.
type ApiKeyService struct {
	store store.Store
	az    *auth.Authorizer
}

func NewApiKeyService(s store.Store, az *auth.Authorizer) *ApiKeyService {
	return &ApiKeyService{store: s, az: az}
}

// CreatedApiKey carries the plaintext token alongside the stored key. The
// token is shown exactly once.
type CreatedApiKey struct {
	model.ApiKey
	Token string `json:"key"`
}

func (s *ApiKeyService) CreateApiKey(ctx context.Context, p *auth.Principal, name string, spaceIDs []string) (*CreatedApiKey, error) {
	if p.Kind != auth.PrincipalSession {
		return nil, model.ErrForbidden
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: name is required", model.ErrInvalidInput)
	}
	// The caller can only delegate access it holds itself.
	if err := s.az.AuthorizeSpaces(ctx, p, spaceIDs); err != nil {
		return nil, err
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	token := hex.EncodeToString(raw)

	key := &model.ApiKey{
		ID:     uuid.NewString(),
		Name:   name,
		UserID: p.UserID(),
	}
	created, err := s.store.ApiKeys().Create(ctx, key, auth.HashToken(token), spaceIDs)
	if err != nil {
		return nil, err
	}
	return &CreatedApiKey{ApiKey: *created, Token: token}, nil
}

func (s *ApiKeyService) ListApiKeys(ctx context.Context, p *auth.Principal) ([]*model.ApiKey, error) {
	if p.Kind != auth.PrincipalSession {
		return nil, model.ErrForbidden
	}
	return s.store.ApiKeys().ListByUser(ctx, p.UserID())
}

// RevokeApiKey disables the key permanently. The row stays for attribution.
func (s *ApiKeyService) RevokeApiKey(ctx context.Context, p *auth.Principal, keyID string) error {
	if p.Kind != auth.PrincipalSession {
		return model.ErrForbidden
	}
	return s.store.ApiKeys().Revoke(ctx, keyID, p.UserID())
}

// DeleteApiKey removes the key entirely. Memories it created survive with
// their attribution nullified.
func (s *ApiKeyService) DeleteApiKey(ctx context.Context, p *auth.Principal, keyID string) error {
	if p.Kind != auth.PrincipalSession {
		return model.ErrForbidden
	}
	return s.store.ApiKeys().Delete(ctx, keyID, p.UserID())
}
