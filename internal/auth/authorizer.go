package auth

import (
	"context"

	"github.com/memspace/memspace/internal/model"
	"github.com/memspace/memspace/internal/store"
)

// Authorizer answers space-level access questions for a principal.
type Authorizer struct {
	store store.Store
}

func NewAuthorizer(s store.Store) *Authorizer {
	return &Authorizer{store: s}
}

// CanAccessSpace reports whether the principal may read and write memories in
// the given space. Admin sessions may access any space; regular sessions need
// membership; API keys need an explicit grant.
func (a *Authorizer) CanAccessSpace(ctx context.Context, p *Principal, spaceID string) (bool, error) {
	switch p.Kind {
	case PrincipalAPIKey:
		return a.store.ApiKeys().HasSpaceGrant(ctx, p.Key.ID, spaceID)
	case PrincipalSession:
		if p.IsAdmin() {
			return true, nil
		}
		return a.store.Spaces().IsMember(ctx, spaceID, p.UserID())
	default:
		return false, nil
	}
}

// AuthorizeSpaces verifies access to every space in the set, failing closed
// on the first one the principal cannot reach.
func (a *Authorizer) AuthorizeSpaces(ctx context.Context, p *Principal, spaceIDs []string) error {
	for _, spaceID := range spaceIDs {
		ok, err := a.CanAccessSpace(ctx, p, spaceID)
		if err != nil {
			return err
		}
		if !ok {
			return model.ErrForbidden
		}
	}
	return nil
}

// VisibleScope is the default visibility filter when the caller names no
// spaces. API keys see their granted spaces only; admin sessions see
// everything; regular sessions fall back to creator-or-membership.
func (a *Authorizer) VisibleScope(ctx context.Context, p *Principal) (store.MemoryScope, error) {
	switch {
	case p.Kind == PrincipalAPIKey:
		ids, err := a.store.ApiKeys().GrantedSpaceIDs(ctx, p.Key.ID)
		if err != nil {
			return store.MemoryScope{}, err
		}
		return store.MemoryScope{Kind: store.ScopeSpaces, SpaceIDs: ids}, nil
	case p.IsAdmin():
		return store.MemoryScope{Kind: store.ScopeAll}, nil
	default:
		return store.MemoryScope{Kind: store.ScopeUser, UserID: p.UserID()}, nil
	}
}

// CanManageSpace reports whether the principal may update or delete the
// space itself and manage its membership. Only the owner or an admin
// session; API keys never manage spaces.
func (a *Authorizer) CanManageSpace(ctx context.Context, p *Principal, spaceID string) (bool, error) {
	if p.Kind == PrincipalAPIKey {
		return false, nil
	}
	if p.IsAdmin() {
		return true, nil
	}
	sp, err := a.store.Spaces().Get(ctx, spaceID)
	if err != nil {
		return false, err
	}
	return sp.CreatedBy == p.UserID(), nil
}

// CanAccessMemory reports whether the principal can see the memory at all.
// Visibility goes through the memory's spaces, or through creatorship for
// session principals when the memory sits in no space.
func (a *Authorizer) CanAccessMemory(ctx context.Context, p *Principal, m *model.Memory) (bool, error) {
	if p.IsAdmin() {
		return true, nil
	}
	for _, ref := range m.Spaces {
		ok, err := a.CanAccessSpace(ctx, p, ref.ID)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	if p.Kind == PrincipalSession && m.UserID == p.UserID() {
		return true, nil
	}
	return false, nil
}
