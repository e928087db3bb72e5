// Package auth resolves request credentials into principals and answers
// space-level authorization questions for them.
package auth

import (
	"github.com/memspace/memspace/internal/model"
)

// PrincipalKind discriminates how the caller authenticated.
type PrincipalKind string

const (
	PrincipalSession PrincipalKind = "session"
	PrincipalAPIKey  PrincipalKind = "api_key"
)

// Principal is an authenticated caller. Session principals carry the user
// they belong to; API key principals additionally carry the key, whose
// space grants bound everything the caller may touch.
type Principal struct {
	Kind PrincipalKind
	User *model.User
	Key  *model.ApiKey
}

// IsAdmin reports whether the caller holds the admin role through a session.
// API key principals are never admin regardless of the owning user's role.
func (p *Principal) IsAdmin() bool {
	return p.Kind == PrincipalSession && p.User != nil && p.User.Role == model.RoleAdmin
}

func (p *Principal) UserID() string {
	if p.User == nil {
		return ""
	}
	return p.User.ID
}

// APIKeyID returns the key id for API key principals, nil otherwise.
// Suitable for attribution columns that are nullable.
func (p *Principal) APIKeyID() *string {
	if p.Kind != PrincipalAPIKey || p.Key == nil {
		return nil
	}
	id := p.Key.ID
	return &id
}
