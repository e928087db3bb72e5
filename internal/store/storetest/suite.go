package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/memspace/memspace/internal/model"
	"github.com/memspace/memspace/internal/store"
)

// Run exercises a compliance suite against a store.Store implementation.
// Implementations should provide a clean, isolated store from makeStore.
// Embeddings in the suite are 8-dimensional; SQL-backed stores must build
// their schema with matching vector dimensions.
func Run(t *testing.T, makeStore func(t *testing.T) store.Store) {
	t.Helper()

	s := makeStore(t)
	ctx := context.Background()

	// Users
	owner := &model.User{ID: uuid.NewString(), Name: "Owner", Email: uuid.NewString() + "@example.test", Role: model.RoleUser, Active: true}
	other := &model.User{ID: uuid.NewString(), Name: "Other", Email: uuid.NewString() + "@example.test", Role: model.RoleUser, Active: true}
	if _, err := s.Users().Create(ctx, owner); err != nil {
		t.Fatalf("CreateUser owner: %v", err)
	}
	if _, err := s.Users().Create(ctx, other); err != nil {
		t.Fatalf("CreateUser other: %v", err)
	}
	if _, err := s.Users().Create(ctx, &model.User{ID: uuid.NewString(), Name: "Dup", Email: owner.Email, Role: model.RoleUser, Active: true}); !errors.Is(err, model.ErrAlreadyExists) {
		t.Fatalf("duplicate email: want ErrAlreadyExists, got %v", err)
	}
	if got, err := s.Users().GetByEmail(ctx, owner.Email); err != nil || got.ID != owner.ID {
		t.Fatalf("GetByEmail: got=%v err=%v", got, err)
	}
	adminRole := model.RoleAdmin
	if got, err := s.Users().Update(ctx, other.ID, &adminRole, nil); err != nil || got.Role != model.RoleAdmin {
		t.Fatalf("UpdateUser role: got=%v err=%v", got, err)
	}

	// Spaces and membership
	sp, err := s.Spaces().Create(ctx, &model.Space{ID: uuid.NewString(), Name: "research", CreatedBy: owner.ID})
	if err != nil {
		t.Fatalf("CreateSpace: %v", err)
	}
	if ok, err := s.Spaces().IsMember(ctx, sp.ID, owner.ID); err != nil || !ok {
		t.Fatalf("creator must be a member: ok=%v err=%v", ok, err)
	}
	if err := s.Spaces().AddMember(ctx, sp.ID, other.ID); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if err := s.Spaces().AddMember(ctx, sp.ID, other.ID); !errors.Is(err, model.ErrAlreadyMember) {
		t.Fatalf("duplicate member: want ErrAlreadyMember, got %v", err)
	}
	if ids, err := s.Spaces().MemberSpaceIDs(ctx, other.ID); err != nil || len(ids) != 1 || ids[0] != sp.ID {
		t.Fatalf("MemberSpaceIDs: ids=%v err=%v", ids, err)
	}
	members, err := s.Spaces().ListMembers(ctx, sp.ID, nil, 10)
	if err != nil || len(members) != 2 {
		t.Fatalf("ListMembers: n=%d err=%v", len(members), err)
	}
	roles := map[string]model.SpaceRole{}
	for _, m := range members {
		roles[m.UserID] = m.SpaceRole
	}
	if roles[owner.ID] != model.SpaceRoleOwner || roles[other.ID] != model.SpaceRoleMember {
		t.Fatalf("derived roles: %v", roles)
	}

	// API keys
	key := &model.ApiKey{ID: uuid.NewString(), Name: "ci", UserID: owner.ID}
	hash := "hash-" + uuid.NewString()
	if _, err := s.ApiKeys().Create(ctx, key, hash, []string{sp.ID}); err != nil {
		t.Fatalf("CreateApiKey: %v", err)
	}
	if got, err := s.ApiKeys().GetActiveByHash(ctx, hash); err != nil || got.ID != key.ID {
		t.Fatalf("GetActiveByHash: got=%v err=%v", got, err)
	}
	if ok, err := s.ApiKeys().HasSpaceGrant(ctx, key.ID, sp.ID); err != nil || !ok {
		t.Fatalf("HasSpaceGrant: ok=%v err=%v", ok, err)
	}
	if ok, err := s.ApiKeys().HasSpaceGrant(ctx, key.ID, uuid.NewString()); err != nil || ok {
		t.Fatalf("HasSpaceGrant unknown space: ok=%v err=%v", ok, err)
	}
	if err := s.ApiKeys().TouchLastUsed(ctx, key.ID); err != nil {
		t.Fatalf("TouchLastUsed: %v", err)
	}

	// Memories
	vecA := []float32{1, 0, 0, 0, 0, 0, 0, 0}
	vecB := []float32{0, 1, 0, 0, 0, 0, 0, 0}
	m1, err := s.Memories().Create(ctx, &model.Memory{ID: uuid.NewString(), Content: "first", Embedding: vecA, UserID: owner.ID}, []string{sp.ID})
	if err != nil {
		t.Fatalf("CreateMemory m1: %v", err)
	}
	if _, err := s.Memories().Create(ctx, &model.Memory{ID: uuid.NewString(), Content: "second", Embedding: vecB, UserID: owner.ID}, []string{sp.ID}); err != nil {
		t.Fatalf("CreateMemory m2: %v", err)
	}
	if got, err := s.Memories().Get(ctx, m1.ID); err != nil || len(got.Spaces) != 1 || got.Spaces[0].ID != sp.ID {
		t.Fatalf("GetMemory spaces: got=%v err=%v", got, err)
	}

	scope := store.MemoryScope{Kind: store.ScopeSpaces, SpaceIDs: []string{sp.ID}}
	if lst, total, err := s.Memories().List(ctx, store.ListMemoriesRequest{Scope: scope, Limit: 10}); err != nil || len(lst) != 2 || total != 2 {
		t.Fatalf("ListMemories: n=%d total=%d err=%v", len(lst), total, err)
	}
	empty := store.MemoryScope{Kind: store.ScopeSpaces}
	if lst, total, err := s.Memories().List(ctx, store.ListMemoriesRequest{Scope: empty, Limit: 10}); err != nil || len(lst) != 0 || total != 0 {
		t.Fatalf("ListMemories empty scope: n=%d total=%d err=%v", len(lst), total, err)
	}

	// Search: the orthogonal vector sits at similarity 0, below the floor.
	hits, total, err := s.Memories().Search(ctx, store.SearchMemoriesRequest{Scope: scope, Vector: vecA, Floor: 0.5, Limit: 10})
	if err != nil || len(hits) != 1 || total != 1 {
		t.Fatalf("SearchMemories: n=%d total=%d err=%v", len(hits), total, err)
	}
	if hits[0].ID != m1.ID || hits[0].Similarity < 0.99 {
		t.Fatalf("SearchMemories top hit: id=%s sim=%f", hits[0].ID, hits[0].Similarity)
	}

	// Metadata-only update keeps the embedding.
	if _, err := s.Memories().Update(ctx, m1.ID, nil, nil, map[string]interface{}{"tag": "x"}); err != nil {
		t.Fatalf("UpdateMemory metadata: %v", err)
	}
	if hits, _, err := s.Memories().Search(ctx, store.SearchMemoriesRequest{Scope: scope, Vector: vecA, Floor: 0.5, Limit: 10}); err != nil || len(hits) != 1 {
		t.Fatalf("search after metadata update: n=%d err=%v", len(hits), err)
	}
	newContent := "rewritten"
	if got, err := s.Memories().Update(ctx, m1.ID, &newContent, vecB, nil); err != nil || got.Content != newContent {
		t.Fatalf("UpdateMemory content: got=%v err=%v", got, err)
	}

	// Access logs outlive the memory.
	if err := s.AccessLogs().Insert(ctx, m1.ID, key.ID); err != nil {
		t.Fatalf("InsertAccessLog keyed: %v", err)
	}
	if err := s.AccessLogs().Insert(ctx, m1.ID, ""); err != nil {
		t.Fatalf("InsertAccessLog session: %v", err)
	}
	if err := s.Memories().Delete(ctx, m1.ID); err != nil {
		t.Fatalf("DeleteMemory: %v", err)
	}
	if _, err := s.Memories().Get(ctx, m1.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("GetMemory after delete: want ErrNotFound, got %v", err)
	}
	logs, total, err := s.AccessLogs().ListByMemory(ctx, m1.ID, 10, 0)
	if err != nil || len(logs) != 2 || total != 2 {
		t.Fatalf("ListByMemory: n=%d total=%d err=%v", len(logs), total, err)
	}
	var nilAttr, keyAttr bool
	for _, l := range logs {
		if l.ApiKeyID == nil {
			nilAttr = true
		} else if *l.ApiKeyID == key.ID {
			keyAttr = true
		}
	}
	if !nilAttr || !keyAttr {
		t.Fatalf("log attribution: %+v", logs)
	}

	// Key revocation stops hash auth but keeps the row.
	if err := s.ApiKeys().Revoke(ctx, key.ID, owner.ID); err != nil {
		t.Fatalf("RevokeApiKey: %v", err)
	}
	if _, err := s.ApiKeys().GetActiveByHash(ctx, hash); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("GetActiveByHash after revoke: want ErrNotFound, got %v", err)
	}
	if got, err := s.ApiKeys().Get(ctx, key.ID); err != nil || got.Status != model.ApiKeyRevoked {
		t.Fatalf("GetApiKey after revoke: got=%v err=%v", got, err)
	}

	// Invites are single-use.
	inv := &model.Invite{ID: uuid.NewString(), Email: "new@example.test", Role: model.RoleUser, Token: "tok-" + uuid.NewString(), ExpiresAt: time.Now().Add(24 * time.Hour)}
	if _, err := s.Invites().Create(ctx, inv); err != nil {
		t.Fatalf("CreateInvite: %v", err)
	}
	if got, err := s.Invites().GetByToken(ctx, inv.Token); err != nil || got.Status != model.InvitePending {
		t.Fatalf("GetInviteByToken: got=%v err=%v", got, err)
	}
	if err := s.Invites().MarkUsed(ctx, inv.ID); err != nil {
		t.Fatalf("MarkUsed: %v", err)
	}
	if err := s.Invites().MarkUsed(ctx, inv.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("MarkUsed twice: want ErrNotFound, got %v", err)
	}

	// Space teardown
	if err := s.Spaces().RemoveMember(ctx, sp.ID, other.ID); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}
	if err := s.Spaces().Delete(ctx, sp.ID); err != nil {
		t.Fatalf("DeleteSpace: %v", err)
	}
	if _, err := s.Spaces().Get(ctx, sp.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("GetSpace after delete: want ErrNotFound, got %v", err)
	}
}
