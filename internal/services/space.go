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

// SpaceService orchestrates space lifecycle and membership.
type SpaceService struct {
	store store.Store
	az    *auth.Authorizer
}

func NewSpaceService(s store.Store, az *auth.Authorizer) *SpaceService {
	return &SpaceService{store: s, az: az}
}

// CreateSpace makes the caller the owner and first member. API key callers
// cannot create spaces.
func (s *SpaceService) CreateSpace(ctx context.Context, p *auth.Principal, name string, description *string) (*model.Space, error) {
	if p.Kind != auth.PrincipalSession {
		return nil, model.ErrForbidden
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: name is required", model.ErrInvalidInput)
	}
	sp := &model.Space{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		CreatedBy:   p.UserID(),
	}
	return s.store.Spaces().Create(ctx, sp)
}

func (s *SpaceService) GetSpace(ctx context.Context, p *auth.Principal, spaceID string) (*model.Space, error) {
	sp, err := s.store.Spaces().Get(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	ok, err := s.az.CanAccessSpace(ctx, p, spaceID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrForbidden
	}
	return sp, nil
}

// ListSpaces returns the caller's spaces, owner's and member's alike.
func (s *SpaceService) ListSpaces(ctx context.Context, p *auth.Principal) ([]*model.Space, error) {
	if p.Kind == auth.PrincipalAPIKey {
		ids, err := s.store.ApiKeys().GrantedSpaceIDs(ctx, p.Key.ID)
		if err != nil {
			return nil, err
		}
		out := make([]*model.Space, 0, len(ids))
		for _, id := range ids {
			sp, err := s.store.Spaces().Get(ctx, id)
			if err != nil {
				continue
			}
			out = append(out, sp)
		}
		return out, nil
	}
	return s.store.Spaces().ListForUser(ctx, p.UserID())
}

func (s *SpaceService) UpdateSpace(ctx context.Context, p *auth.Principal, spaceID string, name, description *string) (*model.Space, error) {
	if err := s.requireManage(ctx, p, spaceID); err != nil {
		return nil, err
	}
	if name != nil && strings.TrimSpace(*name) == "" {
		return nil, fmt.Errorf("%w: name cannot be empty", model.ErrInvalidInput)
	}
	return s.store.Spaces().Update(ctx, spaceID, name, description)
}

// DeleteSpace removes the space, its memberships, key grants and memory
// associations. The memories themselves survive.
func (s *SpaceService) DeleteSpace(ctx context.Context, p *auth.Principal, spaceID string) error {
	if err := s.requireManage(ctx, p, spaceID); err != nil {
		return err
	}
	return s.store.Spaces().Delete(ctx, spaceID)
}

func (s *SpaceService) AddMember(ctx context.Context, p *auth.Principal, spaceID, userID string) error {
	if err := s.requireManage(ctx, p, spaceID); err != nil {
		return err
	}
	if _, err := s.store.Users().Get(ctx, userID); err != nil {
		return err
	}
	return s.store.Spaces().AddMember(ctx, spaceID, userID)
}

// RemoveMember drops a membership. The owner's membership is permanent for
// the lifetime of the space.
func (s *SpaceService) RemoveMember(ctx context.Context, p *auth.Principal, spaceID, userID string) error {
	if err := s.requireManage(ctx, p, spaceID); err != nil {
		return err
	}
	sp, err := s.store.Spaces().Get(ctx, spaceID)
	if err != nil {
		return err
	}
	if sp.CreatedBy == userID {
		return model.ErrCannotRemoveOwner
	}
	return s.store.Spaces().RemoveMember(ctx, spaceID, userID)
}

// ListMembers pages through a space's members with an opaque cursor.
func (s *SpaceService) ListMembers(ctx context.Context, p *auth.Principal, spaceID string, cursor *string, limit int) (*pagination.CursorPage[*model.SpaceMember], error) {
	ok, err := s.az.CanAccessSpace(ctx, p, spaceID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrForbidden
	}
	var c *pagination.Cursor
	if cursor != nil && *cursor != "" {
		dec, err := pagination.DecodeCursor(*cursor)
		if err != nil {
			return nil, err
		}
		c = &dec
	}
	limit = pagination.ClampLimit(limit)
	members, err := s.store.Spaces().ListMembers(ctx, spaceID, c, limit)
	if err != nil {
		return nil, err
	}
	page := pagination.NewCursorPage(members, limit, func(m *model.SpaceMember) pagination.Cursor {
		return pagination.Cursor{CreatedAt: m.CreatedAt, ID: m.UserID}
	})
	return &page, nil
}

func (s *SpaceService) requireManage(ctx context.Context, p *auth.Principal, spaceID string) error {
	ok, err := s.az.CanManageSpace(ctx, p, spaceID)
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrForbidden
	}
	return nil
}
