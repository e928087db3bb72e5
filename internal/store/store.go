// Package store defines persistence contracts required by services.
// Implementations live under internal/store/<driver>/ (e.g., postgres).
package store

import (
	"context"

	"github.com/memspace/memspace/internal/model"
	"github.com/memspace/memspace/internal/pagination"
)

// Store exposes persistence operations required by services.
type Store interface {
	Users() Users
	Spaces() Spaces
	ApiKeys() ApiKeys
	Memories() Memories
	AccessLogs() AccessLogs
	Invites() Invites
}

type Users interface {
	Create(ctx context.Context, u *model.User) (*model.User, error)
	Get(ctx context.Context, userID string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, limit, offset int) ([]*model.User, int, error)
	// Update applies role and/or active changes; nil fields are left as-is.
	Update(ctx context.Context, userID string, role *model.Role, active *bool) (*model.User, error)
}

type Spaces interface {
	// Create inserts the space and its creator membership in one transaction.
	// Both rows exist afterwards or neither does.
	Create(ctx context.Context, s *model.Space) (*model.Space, error)
	Get(ctx context.Context, spaceID string) (*model.Space, error)
	ListForUser(ctx context.Context, userID string) ([]*model.Space, error)
	Update(ctx context.Context, spaceID string, name, description *string) (*model.Space, error)
	// Delete removes the space along with its memberships, key grants and
	// memory associations.
	Delete(ctx context.Context, spaceID string) error

	// AddMember fails with model.ErrAlreadyMember on a duplicate pair.
	AddMember(ctx context.Context, spaceID, userID string) error
	RemoveMember(ctx context.Context, spaceID, userID string) error
	IsMember(ctx context.Context, spaceID, userID string) (bool, error)
	MemberSpaceIDs(ctx context.Context, userID string) ([]string, error)
	// ListMembers returns up to limit+1 members ordered by
	// (created_at DESC, user_id DESC), starting after the cursor when set.
	// The extra row lets callers detect a following page.
	ListMembers(ctx context.Context, spaceID string, cursor *pagination.Cursor, limit int) ([]*model.SpaceMember, error)
}

type ApiKeys interface {
	// Create stores the hashed token and the space grants; the plaintext
	// never reaches this layer.
	Create(ctx context.Context, k *model.ApiKey, keyHash string, spaceIDs []string) (*model.ApiKey, error)
	Get(ctx context.Context, keyID string) (*model.ApiKey, error)
	// GetActiveByHash returns model.ErrNotFound for unknown or revoked keys.
	GetActiveByHash(ctx context.Context, keyHash string) (*model.ApiKey, error)
	ListByUser(ctx context.Context, userID string) ([]*model.ApiKey, error)
	Revoke(ctx context.Context, keyID, userID string) error
	// Delete nullifies api_key_id on memories the key created, then removes
	// the key (memories outlive the key).
	Delete(ctx context.Context, keyID, userID string) error
	TouchLastUsed(ctx context.Context, keyID string) error

	GrantedSpaceIDs(ctx context.Context, keyID string) ([]string, error)
	HasSpaceGrant(ctx context.Context, keyID, spaceID string) (bool, error)
}

// ScopeKind selects the visibility filter applied to memory listings.
type ScopeKind int

const (
	// ScopeSpaces restricts to memories associated with any of the given
	// spaces (set union). An empty space set matches nothing.
	ScopeSpaces ScopeKind = iota
	// ScopeUser is the creator-or-membership fallback for non-admin session
	// users listing without explicit space filters.
	ScopeUser
	// ScopeAll applies no visibility filter (admin).
	ScopeAll
)

// MemoryScope is the visibility filter shared by List and Search.
type MemoryScope struct {
	Kind     ScopeKind
	SpaceIDs []string
	UserID   string
}

// ListMemoriesRequest captures filters used when listing memories.
type ListMemoriesRequest struct {
	Scope  MemoryScope
	Limit  int
	Offset int
	Order  model.SortOrder
}

// SearchMemoriesRequest ranks scoped memories by cosine similarity to Vector,
// keeping only rows with similarity strictly above Floor.
type SearchMemoriesRequest struct {
	Scope  MemoryScope
	Vector []float32
	Floor  float64
	Limit  int
	Offset int
}

type Memories interface {
	Create(ctx context.Context, m *model.Memory, spaceIDs []string) (*model.Memory, error)
	// Get returns the memory with its resolved space list. Authorization is
	// the caller's concern.
	Get(ctx context.Context, memoryID string) (*model.Memory, error)
	List(ctx context.Context, req ListMemoriesRequest) ([]*model.Memory, int, error)
	Search(ctx context.Context, req SearchMemoriesRequest) ([]*model.SearchResult, int, error)
	// Update rewrites content+embedding together when content is non-nil;
	// metadata-only updates leave the embedding untouched.
	Update(ctx context.Context, memoryID string, content *string, embedding []float32, metadata map[string]interface{}) (*model.Memory, error)
	Delete(ctx context.Context, memoryID string) error
}

type AccessLogs interface {
	Insert(ctx context.Context, memoryID string, apiKeyID string) error
	ListByMemory(ctx context.Context, memoryID string, limit, offset int) ([]*model.AccessLogEntry, int, error)
}

type Invites interface {
	Create(ctx context.Context, inv *model.Invite) (*model.Invite, error)
	GetByToken(ctx context.Context, token string) (*model.Invite, error)
	MarkUsed(ctx context.Context, inviteID string) error
}
