package model

import "time"

// Role is a user's global role.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// ApiKeyStatus is the lifecycle state of an API key. Revocation is permanent.
type ApiKeyStatus string

const (
	ApiKeyActive  ApiKeyStatus = "active"
	ApiKeyRevoked ApiKeyStatus = "revoked"
)

// InviteStatus tracks single-use invite consumption.
type InviteStatus string

const (
	InvitePending InviteStatus = "pending"
	InviteUsed    InviteStatus = "used"
)

// User represents an account in the system. Deactivated users fail
// authentication even with a valid session; users are never hard-deleted.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Space is a named container and the unit of access control for memories.
type Space struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// SpaceRole is derived, not stored: the space creator is its owner.
type SpaceRole string

const (
	SpaceRoleOwner  SpaceRole = "owner"
	SpaceRoleMember SpaceRole = "member"
)

// SpaceMember is one row of a space's membership listing.
type SpaceMember struct {
	UserID    string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	SpaceRole SpaceRole `json:"spaceRole"`
}

// ApiKey is a machine credential owned by one user. Only the sha256 hash of
// the token is stored; the plaintext is returned once at creation.
type ApiKey struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Status     ApiKeyStatus `json:"status"`
	UserID     string       `json:"userId"`
	SpaceIDs   []string     `json:"spaceIds,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
	LastUsedAt *time.Time   `json:"lastUsedAt,omitempty"`
}

// Memory is the core content entity. The embedding is always computed from
// the current content; the two are written together.
type Memory struct {
	ID        string                 `json:"id"`
	Content   string                 `json:"content"`
	Embedding []float32              `json:"-"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	UserID    string                 `json:"userId"`
	ApiKeyID  *string                `json:"apiKeyId,omitempty"`
	Spaces    []SpaceRef             `json:"spaces"`
	CreatedAt time.Time              `json:"createdAt"`
	UpdatedAt time.Time              `json:"updatedAt"`
}

// SpaceRef is the lightweight space projection attached to memories.
type SpaceRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SearchResult is a memory hit with its cosine similarity to the query.
type SearchResult struct {
	Memory
	Similarity float64 `json:"similarity"`
}

// AccessLogEntry is an immutable record of an API key touching a memory.
// Entries outlive both the memory and the key (audit retention).
type AccessLogEntry struct {
	ID         int64     `json:"id"`
	MemoryID   string    `json:"memoryId"`
	ApiKeyID   *string   `json:"apiKeyId"`
	AccessedAt time.Time `json:"accessedAt"`
}

// Invite admits a new user without self-registration. Single-use; expiry is
// enforced both when checked and when consumed.
type Invite struct {
	ID        string       `json:"id"`
	Email     string       `json:"email"`
	Role      Role         `json:"role"`
	Token     string       `json:"token"`
	Status    InviteStatus `json:"status"`
	ExpiresAt time.Time    `json:"expiresAt"`
	CreatedAt time.Time    `json:"createdAt"`
}

// Pagination is the offset envelope returned by list and search operations.
// Total is a full count under the same filter, not len(items).
type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

// SortOrder for createdAt ordering in listings.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)
