// Package storetest provides an in-memory store.Store for service and auth
// tests. Semantics mirror the postgres adapter closely enough for unit tests:
// error taxonomy, scope filters, ordering and totals behave the same.
package storetest

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/memspace/memspace/internal/model"
	"github.com/memspace/memspace/internal/pagination"
	"github.com/memspace/memspace/internal/store"
)

// Fake implements store.Store over maps. The zero value is not usable; call
// New.
type Fake struct {
	mu sync.Mutex

	UsersByID  map[string]*model.User
	SpacesByID map[string]*model.Space
	Members    map[string]map[string]bool // spaceID -> set of userIDs
	KeysByID   map[string]*model.ApiKey
	HashToKey  map[string]string          // keyHash -> keyID
	Grants     map[string]map[string]bool // keyID -> set of spaceIDs
	MemsByID   map[string]*model.Memory
	MemSpaces  map[string]map[string]bool // memoryID -> set of spaceIDs
	Logs       []*model.AccessLogEntry
	ByToken    map[string]*model.Invite

	// TouchedKeys records TouchLastUsed calls in order.
	TouchedKeys []string

	clock time.Time
	seq   int64
}

func New() *Fake {
	return &Fake{
		UsersByID:  map[string]*model.User{},
		SpacesByID: map[string]*model.Space{},
		Members:    map[string]map[string]bool{},
		KeysByID:   map[string]*model.ApiKey{},
		HashToKey:  map[string]string{},
		Grants:     map[string]map[string]bool{},
		MemsByID:   map[string]*model.Memory{},
		MemSpaces:  map[string]map[string]bool{},
		ByToken:    map[string]*model.Invite{},
		clock:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// tick returns a strictly increasing timestamp so insertion order is
// recoverable from created_at.
func (f *Fake) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *Fake) Users() store.Users           { return (*fakeUsers)(f) }
func (f *Fake) Spaces() store.Spaces         { return (*fakeSpaces)(f) }
func (f *Fake) ApiKeys() store.ApiKeys       { return (*fakeKeys)(f) }
func (f *Fake) Memories() store.Memories     { return (*fakeMems)(f) }
func (f *Fake) AccessLogs() store.AccessLogs { return (*fakeLogs)(f) }
func (f *Fake) Invites() store.Invites       { return (*fakeInvites)(f) }

// --- Users ---

type fakeUsers Fake

func (u *fakeUsers) Create(_ context.Context, m *model.User) (*model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, ex := range u.UsersByID {
		if ex.Email == m.Email {
			return nil, fmt.Errorf("%w: email %s", model.ErrAlreadyExists, m.Email)
		}
	}
	out := *m
	out.CreatedAt = (*Fake)(u).tick()
	out.UpdatedAt = out.CreatedAt
	u.UsersByID[out.ID] = &out
	cp := out
	return &cp, nil
}

func (u *fakeUsers) Get(_ context.Context, userID string) (*model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	m, ok := u.UsersByID[userID]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (u *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, m := range u.UsersByID {
		if m.Email == email {
			cp := *m
			return &cp, nil
		}
	}
	return nil, model.ErrNotFound
}

func (u *fakeUsers) List(_ context.Context, limit, offset int) ([]*model.User, int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	all := make([]*model.User, 0, len(u.UsersByID))
	for _, m := range u.UsersByID {
		cp := *m
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	return window(all, limit, offset), total, nil
}

func (u *fakeUsers) Update(_ context.Context, userID string, role *model.Role, active *bool) (*model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	m, ok := u.UsersByID[userID]
	if !ok {
		return nil, model.ErrNotFound
	}
	if role != nil {
		m.Role = *role
	}
	if active != nil {
		m.Active = *active
	}
	m.UpdatedAt = (*Fake)(u).tick()
	cp := *m
	return &cp, nil
}

// --- Spaces ---

type fakeSpaces Fake

func (s *fakeSpaces) Create(_ context.Context, sp *model.Space) (*model.Space, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := *sp
	out.CreatedAt = (*Fake)(s).tick()
	out.UpdatedAt = out.CreatedAt
	s.SpacesByID[out.ID] = &out
	s.Members[out.ID] = map[string]bool{out.CreatedBy: true}
	cp := out
	return &cp, nil
}

func (s *fakeSpaces) Get(_ context.Context, spaceID string) (*model.Space, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.SpacesByID[spaceID]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *sp
	return &cp, nil
}

func (s *fakeSpaces) ListForUser(_ context.Context, userID string) ([]*model.Space, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Space
	for id, members := range s.Members {
		if members[userID] {
			if sp, ok := s.SpacesByID[id]; ok {
				cp := *sp
				out = append(out, &cp)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *fakeSpaces) Update(_ context.Context, spaceID string, name, description *string) (*model.Space, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.SpacesByID[spaceID]
	if !ok {
		return nil, model.ErrNotFound
	}
	if name != nil {
		sp.Name = *name
	}
	if description != nil {
		sp.Description = description
	}
	sp.UpdatedAt = (*Fake)(s).tick()
	cp := *sp
	return &cp, nil
}

func (s *fakeSpaces) Delete(_ context.Context, spaceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.SpacesByID[spaceID]; !ok {
		return model.ErrNotFound
	}
	delete(s.SpacesByID, spaceID)
	delete(s.Members, spaceID)
	for _, grants := range s.Grants {
		delete(grants, spaceID)
	}
	for _, ms := range s.MemSpaces {
		delete(ms, spaceID)
	}
	return nil
}

func (s *fakeSpaces) AddMember(_ context.Context, spaceID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	members, ok := s.Members[spaceID]
	if !ok {
		return model.ErrNotFound
	}
	if members[userID] {
		return model.ErrAlreadyMember
	}
	members[userID] = true
	return nil
}

func (s *fakeSpaces) RemoveMember(_ context.Context, spaceID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	members, ok := s.Members[spaceID]
	if !ok || !members[userID] {
		return model.ErrNotFound
	}
	delete(members, userID)
	return nil
}

func (s *fakeSpaces) IsMember(_ context.Context, spaceID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Members[spaceID][userID], nil
}

func (s *fakeSpaces) MemberSpaceIDs(_ context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for id, members := range s.Members {
		if members[userID] {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *fakeSpaces) ListMembers(_ context.Context, spaceID string, cursor *pagination.Cursor, limit int) ([]*model.SpaceMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.SpacesByID[spaceID]
	if !ok {
		return nil, model.ErrNotFound
	}
	var all []*model.SpaceMember
	for userID := range s.Members[spaceID] {
		u, ok := s.UsersByID[userID]
		if !ok {
			continue
		}
		role := model.SpaceRoleMember
		if sp.CreatedBy == userID {
			role = model.SpaceRoleOwner
		}
		all = append(all, &model.SpaceMember{
			UserID: u.ID, Name: u.Name, Email: u.Email,
			CreatedAt: u.CreatedAt, SpaceRole: role,
		})
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].UserID > all[j].UserID
	})
	if cursor != nil {
		kept := all[:0]
		for _, m := range all {
			if m.CreatedAt.Before(cursor.CreatedAt) ||
				(m.CreatedAt.Equal(cursor.CreatedAt) && m.UserID < cursor.ID) {
				kept = append(kept, m)
			}
		}
		all = kept
	}
	if len(all) > limit+1 {
		all = all[:limit+1]
	}
	return all, nil
}

// --- ApiKeys ---

type fakeKeys Fake

func (k *fakeKeys) Create(_ context.Context, key *model.ApiKey, keyHash string, spaceIDs []string) (*model.ApiKey, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, dup := k.HashToKey[keyHash]; dup {
		return nil, fmt.Errorf("%w: api key", model.ErrAlreadyExists)
	}
	out := *key
	out.Status = model.ApiKeyActive
	out.SpaceIDs = append([]string(nil), spaceIDs...)
	out.CreatedAt = (*Fake)(k).tick()
	k.KeysByID[out.ID] = &out
	k.HashToKey[keyHash] = out.ID
	grants := map[string]bool{}
	for _, id := range spaceIDs {
		grants[id] = true
	}
	k.Grants[out.ID] = grants
	cp := out
	return &cp, nil
}

func (k *fakeKeys) Get(_ context.Context, keyID string) (*model.ApiKey, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	key, ok := k.KeysByID[keyID]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *key
	return &cp, nil
}

func (k *fakeKeys) GetActiveByHash(_ context.Context, keyHash string) (*model.ApiKey, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	id, ok := k.HashToKey[keyHash]
	if !ok {
		return nil, model.ErrNotFound
	}
	key := k.KeysByID[id]
	if key == nil || key.Status != model.ApiKeyActive {
		return nil, model.ErrNotFound
	}
	cp := *key
	return &cp, nil
}

func (k *fakeKeys) ListByUser(_ context.Context, userID string) ([]*model.ApiKey, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	var out []*model.ApiKey
	for _, key := range k.KeysByID {
		if key.UserID != userID {
			continue
		}
		cp := *key
		cp.SpaceIDs = nil
		for id := range k.Grants[key.ID] {
			cp.SpaceIDs = append(cp.SpaceIDs, id)
		}
		sort.Strings(cp.SpaceIDs)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (k *fakeKeys) Revoke(_ context.Context, keyID, userID string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	key, ok := k.KeysByID[keyID]
	if !ok || key.UserID != userID {
		return model.ErrNotFound
	}
	key.Status = model.ApiKeyRevoked
	return nil
}

func (k *fakeKeys) Delete(_ context.Context, keyID, userID string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	key, ok := k.KeysByID[keyID]
	if !ok || key.UserID != userID {
		return model.ErrNotFound
	}
	for _, m := range k.MemsByID {
		if m.ApiKeyID != nil && *m.ApiKeyID == keyID {
			m.ApiKeyID = nil
		}
	}
	delete(k.Grants, keyID)
	for hash, id := range k.HashToKey {
		if id == keyID {
			delete(k.HashToKey, hash)
		}
	}
	delete(k.KeysByID, keyID)
	return nil
}

func (k *fakeKeys) TouchLastUsed(_ context.Context, keyID string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	key, ok := k.KeysByID[keyID]
	if !ok {
		return model.ErrNotFound
	}
	now := (*Fake)(k).tick()
	key.LastUsedAt = &now
	k.TouchedKeys = append(k.TouchedKeys, keyID)
	return nil
}

func (k *fakeKeys) GrantedSpaceIDs(_ context.Context, keyID string) ([]string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	var out []string
	for id := range k.Grants[keyID] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (k *fakeKeys) HasSpaceGrant(_ context.Context, keyID, spaceID string) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.Grants[keyID][spaceID], nil
}

// --- Memories ---

type fakeMems Fake

func (m *fakeMems) Create(_ context.Context, mm *model.Memory, spaceIDs []string) (*model.Memory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := *mm
	out.CreatedAt = (*Fake)(m).tick()
	out.UpdatedAt = out.CreatedAt
	set := map[string]bool{}
	for _, id := range spaceIDs {
		if _, ok := m.SpacesByID[id]; !ok {
			return nil, model.ErrNotFound
		}
		set[id] = true
	}
	m.MemsByID[out.ID] = &out
	m.MemSpaces[out.ID] = set
	cp := out
	cp.Spaces = (*Fake)(m).spaceRefs(out.ID)
	return &cp, nil
}

func (m *fakeMems) Get(_ context.Context, memoryID string) (*model.Memory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mm, ok := m.MemsByID[memoryID]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *mm
	cp.Spaces = (*Fake)(m).spaceRefs(memoryID)
	return &cp, nil
}

func (m *fakeMems) List(_ context.Context, req store.ListMemoriesRequest) ([]*model.Memory, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*model.Memory
	for id, mm := range m.MemsByID {
		if !(*Fake)(m).inScope(id, mm, req.Scope) {
			continue
		}
		cp := *mm
		cp.Spaces = (*Fake)(m).spaceRefs(id)
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool {
		if req.Order == model.SortAsc {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	total := len(all)
	return window(all, req.Limit, req.Offset), total, nil
}

func (m *fakeMems) Search(_ context.Context, req store.SearchMemoriesRequest) ([]*model.SearchResult, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*model.SearchResult
	for id, mm := range m.MemsByID {
		if !(*Fake)(m).inScope(id, mm, req.Scope) {
			continue
		}
		sim := cosineSimilarity(req.Vector, mm.Embedding)
		if sim <= req.Floor {
			continue
		}
		cp := *mm
		cp.Spaces = (*Fake)(m).spaceRefs(id)
		all = append(all, &model.SearchResult{Memory: cp, Similarity: sim})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Similarity != all[j].Similarity {
			return all[i].Similarity > all[j].Similarity
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	total := len(all)
	return window(all, req.Limit, req.Offset), total, nil
}

func (m *fakeMems) Update(_ context.Context, memoryID string, content *string, embedding []float32, metadata map[string]interface{}) (*model.Memory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mm, ok := m.MemsByID[memoryID]
	if !ok {
		return nil, model.ErrNotFound
	}
	if content != nil {
		if len(embedding) == 0 {
			return nil, fmt.Errorf("%w: content update without embedding", model.ErrInvalidInput)
		}
		mm.Content = *content
		mm.Embedding = embedding
	}
	if metadata != nil {
		mm.Metadata = metadata
	}
	mm.UpdatedAt = (*Fake)(m).tick()
	cp := *mm
	cp.Spaces = (*Fake)(m).spaceRefs(memoryID)
	return &cp, nil
}

func (m *fakeMems) Delete(_ context.Context, memoryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.MemsByID[memoryID]; !ok {
		return model.ErrNotFound
	}
	delete(m.MemsByID, memoryID)
	delete(m.MemSpaces, memoryID)
	return nil
}

func (f *Fake) spaceRefs(memoryID string) []model.SpaceRef {
	refs := []model.SpaceRef{}
	for id := range f.MemSpaces[memoryID] {
		if sp, ok := f.SpacesByID[id]; ok {
			refs = append(refs, model.SpaceRef{ID: sp.ID, Name: sp.Name})
		}
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	return refs
}

func (f *Fake) inScope(memoryID string, mm *model.Memory, scope store.MemoryScope) bool {
	switch scope.Kind {
	case store.ScopeSpaces:
		for _, id := range scope.SpaceIDs {
			if f.MemSpaces[memoryID][id] {
				return true
			}
		}
		return false
	case store.ScopeUser:
		if mm.UserID == scope.UserID {
			return true
		}
		for id := range f.MemSpaces[memoryID] {
			if f.Members[id][scope.UserID] {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// --- AccessLogs ---

type fakeLogs Fake

func (l *fakeLogs) Insert(_ context.Context, memoryID string, apiKeyID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	e := &model.AccessLogEntry{ID: l.seq, MemoryID: memoryID, AccessedAt: (*Fake)(l).tick()}
	if apiKeyID != "" {
		id := apiKeyID
		e.ApiKeyID = &id
	}
	l.Logs = append(l.Logs, e)
	return nil
}

func (l *fakeLogs) ListByMemory(_ context.Context, memoryID string, limit, offset int) ([]*model.AccessLogEntry, int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var all []*model.AccessLogEntry
	for _, e := range l.Logs {
		if e.MemoryID == memoryID {
			cp := *e
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := len(all)
	return window(all, limit, offset), total, nil
}

// --- Invites ---

type fakeInvites Fake

func (i *fakeInvites) Create(_ context.Context, inv *model.Invite) (*model.Invite, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, dup := i.ByToken[inv.Token]; dup {
		return nil, fmt.Errorf("%w: invite token", model.ErrAlreadyExists)
	}
	out := *inv
	out.Status = model.InvitePending
	out.CreatedAt = (*Fake)(i).tick()
	i.ByToken[out.Token] = &out
	cp := out
	return &cp, nil
}

func (i *fakeInvites) GetByToken(_ context.Context, token string) (*model.Invite, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	inv, ok := i.ByToken[token]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (i *fakeInvites) MarkUsed(_ context.Context, inviteID string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	for _, inv := range i.ByToken {
		if inv.ID == inviteID && inv.Status == model.InvitePending {
			inv.Status = model.InviteUsed
			return nil
		}
	}
	return model.ErrNotFound
}

// --- helpers ---

func window[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
