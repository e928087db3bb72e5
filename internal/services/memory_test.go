package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"github.com/memspace/memspace/internal/auth"
	"github.com/memspace/memspace/internal/model"
	"github.com/memspace/memspace/internal/store/storetest"
)

// --- Fakes ---

// fakeEmbedder returns a fixed vector per text, defaulting to unit-x. Tests
// steer similarity by choosing vectors explicitly.
type fakeEmbedder struct {
	vectors map[string][]float32
	fail    bool
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.fail {
		return nil, errors.New("provider down")
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 0, 0}, nil
}

// recordingEnqueuer captures access-record batches.
type recordingEnqueuer struct {
	batches [][]string
	keyIDs  []*string
}

func (r *recordingEnqueuer) EnqueueAccessRecords(_ context.Context, ids []string, keyID *string) error {
	r.batches = append(r.batches, ids)
	r.keyIDs = append(r.keyIDs, keyID)
	return nil
}

type world struct {
	fs    *storetest.Fake
	svc   *MemoryService
	emb   *fakeEmbedder
	enq   *recordingEnqueuer
	owner *auth.Principal
	other *auth.Principal
	admin *auth.Principal
	s1    *model.Space
	s2    *model.Space
}

func newWorld(t *testing.T) *world {
	t.Helper()
	ctx := context.Background()
	fs := storetest.New()

	mkUser := func(id string, role model.Role) *model.User {
		u, err := fs.Users().Create(ctx, &model.User{ID: id, Name: id, Email: id + "@example.com", Role: role, Active: true})
		if err != nil {
			t.Fatalf("create user %s: %v", id, err)
		}
		return u
	}
	owner := mkUser("owner", model.RoleUser)
	other := mkUser("other", model.RoleUser)
	admin := mkUser("admin", model.RoleAdmin)

	s1, err := fs.Spaces().Create(ctx, &model.Space{ID: "s1", Name: "research", CreatedBy: owner.ID})
	if err != nil {
		t.Fatalf("create s1: %v", err)
	}
	s2, err := fs.Spaces().Create(ctx, &model.Space{ID: "s2", Name: "private", CreatedBy: owner.ID})
	if err != nil {
		t.Fatalf("create s2: %v", err)
	}

	emb := &fakeEmbedder{vectors: map[string][]float32{}}
	enq := &recordingEnqueuer{}
	az := auth.NewAuthorizer(fs)
	svc := NewMemoryService(fs, az, emb, enq, 0, zerolog.Nop())

	return &world{
		fs: fs, svc: svc, emb: emb, enq: enq,
		owner: &auth.Principal{Kind: auth.PrincipalSession, User: owner},
		other: &auth.Principal{Kind: auth.PrincipalSession, User: other},
		admin: &auth.Principal{Kind: auth.PrincipalSession, User: admin},
		s1:    s1, s2: s2,
	}
}

func (w *world) keyPrincipal(t *testing.T, token string, spaceIDs []string) *auth.Principal {
	t.Helper()
	key, err := w.fs.ApiKeys().Create(context.Background(),
		&model.ApiKey{ID: "key-" + token, Name: token, UserID: w.owner.UserID()},
		auth.HashToken(token), spaceIDs)
	if err != nil {
		t.Fatalf("create key: %v", err)
	}
	return &auth.Principal{Kind: auth.PrincipalAPIKey, User: w.owner.User, Key: key}
}

// --- Tests ---

func TestCreateMemoryRequiresSpaceAccess(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	// Key granted only s1 cannot attach to s2.
	kp := w.keyPrincipal(t, "tok1", []string{w.s1.ID})
	_, err := w.svc.CreateMemory(ctx, kp, CreateMemoryRequest{Content: "note", SpaceIDs: []string{w.s2.ID}})
	if !errors.Is(err, model.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}

	m, err := w.svc.CreateMemory(ctx, kp, CreateMemoryRequest{Content: "note", SpaceIDs: []string{w.s1.ID}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if m.ApiKeyID == nil || *m.ApiKeyID != kp.Key.ID {
		t.Fatalf("attribution = %v, want key %s", m.ApiKeyID, kp.Key.ID)
	}
	if len(m.Spaces) != 1 || m.Spaces[0].ID != w.s1.ID {
		t.Fatalf("spaces = %+v, want [%s]", m.Spaces, w.s1.ID)
	}
}

func TestCreateMemoryRejectsEmptyContent(t *testing.T) {
	w := newWorld(t)
	_, err := w.svc.CreateMemory(context.Background(), w.owner, CreateMemoryRequest{Content: "   "})
	if !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestListScopedByKeyGrants(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	if _, err := w.svc.CreateMemory(ctx, w.owner, CreateMemoryRequest{Content: "in s1", SpaceIDs: []string{w.s1.ID}}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := w.svc.CreateMemory(ctx, w.owner, CreateMemoryRequest{Content: "in s2", SpaceIDs: []string{w.s2.ID}}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := w.svc.CreateMemory(ctx, w.owner, CreateMemoryRequest{Content: "spaceless"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	// The key's owner can see all three; the key sees only its grant.
	kp := w.keyPrincipal(t, "tok2", []string{w.s1.ID})
	items, page, err := w.svc.ListMemories(ctx, kp, ListMemoriesRequest{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 1 || len(items) != 1 || items[0].Content != "in s1" {
		t.Fatalf("key sees %d/%d items, want exactly the s1 memory", len(items), page.Total)
	}

	// Explicit filter outside the grant fails closed.
	if _, _, err := w.svc.ListMemories(ctx, kp, ListMemoriesRequest{SpaceIDs: []string{w.s2.ID}}); !errors.Is(err, model.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestListDefaultScopeForSessionUser(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	if _, err := w.svc.CreateMemory(ctx, w.owner, CreateMemoryRequest{Content: "owner s2", SpaceIDs: []string{w.s2.ID}}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := w.svc.CreateMemory(ctx, w.other, CreateMemoryRequest{Content: "other own"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := w.fs.Spaces().AddMember(ctx, w.s2.ID, w.other.UserID()); err != nil {
		t.Fatalf("add member: %v", err)
	}

	// Creator-or-membership fallback: other sees their own memory plus the
	// one in s2 through membership.
	items, page, err := w.svc.ListMemories(ctx, w.other, ListMemoriesRequest{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 2 || len(items) != 2 {
		t.Fatalf("got %d/%d, want 2/2", len(items), page.Total)
	}

	// Admin default scope is everything.
	_, adminPage, err := w.svc.ListMemories(ctx, w.admin, ListMemoriesRequest{})
	if err != nil {
		t.Fatalf("admin list: %v", err)
	}
	if adminPage.Total != 2 {
		t.Fatalf("admin total = %d, want 2", adminPage.Total)
	}
}

func TestListPaginationEnvelope(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	for i := 0; i < 25; i++ {
		if _, err := w.svc.CreateMemory(ctx, w.owner, CreateMemoryRequest{Content: fmt.Sprintf("note %02d", i), SpaceIDs: []string{w.s1.ID}}); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}
	items, page, err := w.svc.ListMemories(ctx, w.owner, ListMemoriesRequest{Limit: 10, Offset: 20})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 5 {
		t.Fatalf("len(items) = %d, want 5", len(items))
	}
	if page.Total != 25 || page.Limit != 10 || page.Offset != 20 {
		t.Fatalf("page = %+v, want total 25 limit 10 offset 20", page)
	}

	// Limit is clamped, never trusted.
	_, page, err = w.svc.ListMemories(ctx, w.owner, ListMemoriesRequest{Limit: 1000})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Limit != 100 {
		t.Fatalf("clamped limit = %d, want 100", page.Limit)
	}
}

func TestSearchAppliesFloorAndRanking(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	w.emb.vectors["close"] = []float32{1, 0, 0}
	w.emb.vectors["near"] = []float32{0.8, 0.6, 0}
	w.emb.vectors["far"] = []float32{0, 1, 0}
	w.emb.vectors["query"] = []float32{1, 0, 0}

	for _, content := range []string{"close", "near", "far"} {
		if _, err := w.svc.CreateMemory(ctx, w.owner, CreateMemoryRequest{Content: content, SpaceIDs: []string{w.s1.ID}}); err != nil {
			t.Fatalf("create %s: %v", content, err)
		}
	}

	hits, page, err := w.svc.SearchMemories(ctx, w.owner, SearchMemoriesRequest{Query: "query"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	// "far" is orthogonal (sim 0) and stays below the floor; "near" is 0.8.
	if page.Total != 2 || len(hits) != 2 {
		t.Fatalf("got %d/%d hits, want 2/2", len(hits), page.Total)
	}
	if hits[0].Content != "close" || hits[1].Content != "near" {
		t.Fatalf("order = [%s, %s], want [close, near]", hits[0].Content, hits[1].Content)
	}
	if hits[0].Similarity < hits[1].Similarity {
		t.Fatal("results must be ordered by similarity descending")
	}
}

func TestSearchEmbeddingUnavailable(t *testing.T) {
	w := newWorld(t)
	w.emb.fail = true
	_, _, err := w.svc.SearchMemories(context.Background(), w.owner, SearchMemoriesRequest{Query: "anything"})
	if !errors.Is(err, model.ErrEmbeddingUnavailable) {
		t.Fatalf("err = %v, want ErrEmbeddingUnavailable", err)
	}
}

func TestGetMemoryForbiddenBeforeAccessible(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	m, err := w.svc.CreateMemory(ctx, w.owner, CreateMemoryRequest{Content: "secret", SpaceIDs: []string{w.s2.ID}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := w.svc.GetMemory(ctx, w.other, m.ID); !errors.Is(err, model.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	if _, err := w.svc.GetMemory(ctx, w.other, "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	if err := w.fs.Spaces().AddMember(ctx, w.s2.ID, w.other.UserID()); err != nil {
		t.Fatalf("add member: %v", err)
	}
	if _, err := w.svc.GetMemory(ctx, w.other, m.ID); err != nil {
		t.Fatalf("member read: %v", err)
	}
}

func TestReadsEnqueueAccessRecords(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	m, err := w.svc.CreateMemory(ctx, w.owner, CreateMemoryRequest{Content: "tracked", SpaceIDs: []string{w.s1.ID}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	kp := w.keyPrincipal(t, "tok3", []string{w.s1.ID})
	if _, err := w.svc.GetMemory(ctx, kp, m.ID); err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(w.enq.batches) != 1 || len(w.enq.batches[0]) != 1 || w.enq.batches[0][0] != m.ID {
		t.Fatalf("batches = %v, want one batch with %s", w.enq.batches, m.ID)
	}
	if w.enq.keyIDs[0] == nil || *w.enq.keyIDs[0] != kp.Key.ID {
		t.Fatalf("key attribution = %v, want %s", w.enq.keyIDs[0], kp.Key.ID)
	}

	// Session reads record with nil key attribution.
	if _, err := w.svc.GetMemory(ctx, w.owner, m.ID); err != nil {
		t.Fatalf("get: %v", err)
	}
	if w.enq.keyIDs[1] != nil {
		t.Fatalf("session read attribution = %v, want nil", w.enq.keyIDs[1])
	}
}

func TestUpdateMemoryReembedsContent(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	w.emb.vectors["v1"] = []float32{1, 0, 0}
	w.emb.vectors["v2"] = []float32{0, 1, 0}

	m, err := w.svc.CreateMemory(ctx, w.owner, CreateMemoryRequest{Content: "v1", SpaceIDs: []string{w.s1.ID}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	newContent := "v2"
	updated, err := w.svc.UpdateMemory(ctx, w.owner, m.ID, &newContent, nil)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Content != "v2" {
		t.Fatalf("content = %s, want v2", updated.Content)
	}
	if updated.Embedding[0] != 0 || updated.Embedding[1] != 1 {
		t.Fatalf("embedding = %v, want re-embedded [0 1 0]", updated.Embedding)
	}

	// Metadata-only update leaves the embedding alone.
	updated, err = w.svc.UpdateMemory(ctx, w.owner, m.ID, nil, map[string]interface{}{"tag": "x"})
	if err != nil {
		t.Fatalf("metadata update: %v", err)
	}
	if updated.Embedding[1] != 1 {
		t.Fatalf("embedding changed on metadata-only update: %v", updated.Embedding)
	}
}

func TestDeleteMemoryKeepsAccessLogs(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	m, err := w.svc.CreateMemory(ctx, w.owner, CreateMemoryRequest{Content: "short-lived", SpaceIDs: []string{w.s1.ID}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := w.fs.AccessLogs().Insert(ctx, m.ID, ""); err != nil {
		t.Fatalf("insert log: %v", err)
	}
	if err := w.svc.DeleteMemory(ctx, w.owner, m.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := w.svc.GetMemory(ctx, w.owner, m.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	entries, total, err := w.fs.AccessLogs().ListByMemory(ctx, m.ID, 20, 0)
	if err != nil || total != 1 || len(entries) != 1 {
		t.Fatalf("logs after delete = %d/%d (%v), want 1/1", len(entries), total, err)
	}
}
