package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/memspace/memspace/internal/auth"
	"github.com/memspace/memspace/internal/embeddings"
	"github.com/memspace/memspace/internal/model"
	"github.com/memspace/memspace/internal/outbox"
	"github.com/memspace/memspace/internal/pagination"
	"github.com/memspace/memspace/internal/store"
)

// SimilarityFloor excludes weak semantic matches from search results. Rows at
// or below the floor do not rank and do not count toward the total.
const SimilarityFloor = 0.5

// MemoryService orchestrates memory use cases: authorization, embedding and
// the access-log pipeline around the store.
type MemoryService struct {
	store        store.Store
	az           *auth.Authorizer
	emb          embeddings.Provider
	enq          outbox.Enqueuer
	embedTimeout time.Duration
	log          zerolog.Logger
}

func NewMemoryService(s store.Store, az *auth.Authorizer, emb embeddings.Provider, enq outbox.Enqueuer, embedTimeout time.Duration, log zerolog.Logger) *MemoryService {
	if embedTimeout <= 0 {
		embedTimeout = 15 * time.Second
	}
	return &MemoryService{store: s, az: az, emb: emb, enq: enq, embedTimeout: embedTimeout, log: log}
}

type CreateMemoryRequest struct {
	Content  string
	Metadata map[string]interface{}
	SpaceIDs []string
}

func (s *MemoryService) CreateMemory(ctx context.Context, p *auth.Principal, req CreateMemoryRequest) (*model.Memory, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, fmt.Errorf("%w: content is required", model.ErrInvalidInput)
	}
	if err := s.az.AuthorizeSpaces(ctx, p, req.SpaceIDs); err != nil {
		return nil, err
	}
	vec, err := s.embed(ctx, req.Content)
	if err != nil {
		return nil, err
	}
	m := &model.Memory{
		ID:        uuid.NewString(),
		Content:   req.Content,
		Embedding: vec,
		Metadata:  req.Metadata,
		UserID:    p.UserID(),
		ApiKeyID:  p.APIKeyID(),
	}
	return s.store.Memories().Create(ctx, m, req.SpaceIDs)
}

// GetMemory returns the memory if the principal can see it and records the
// access. Existence is revealed to unauthorized callers as forbidden, not as
// absence, because the id itself is not secret.
func (s *MemoryService) GetMemory(ctx context.Context, p *auth.Principal, memoryID string) (*model.Memory, error) {
	m, err := s.store.Memories().Get(ctx, memoryID)
	if err != nil {
		return nil, err
	}
	ok, err := s.az.CanAccessMemory(ctx, p, m)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrForbidden
	}
	s.recordAccess(ctx, p, []string{m.ID})
	return m, nil
}

type ListMemoriesRequest struct {
	SpaceIDs []string
	Limit    int
	Offset   int
	Order    model.SortOrder
}

func (s *MemoryService) ListMemories(ctx context.Context, p *auth.Principal, req ListMemoriesRequest) ([]*model.Memory, model.Pagination, error) {
	scope, err := s.scopeFor(ctx, p, req.SpaceIDs)
	if err != nil {
		return nil, model.Pagination{}, err
	}
	limit := pagination.ClampLimit(req.Limit)
	offset := pagination.ClampOffset(req.Offset)
	order := req.Order
	if order == "" {
		order = model.SortDesc
	}
	items, total, err := s.store.Memories().List(ctx, store.ListMemoriesRequest{
		Scope: scope, Limit: limit, Offset: offset, Order: order,
	})
	if err != nil {
		return nil, model.Pagination{}, err
	}
	s.recordAccess(ctx, p, memoryIDs(items))
	return items, model.Pagination{Limit: limit, Offset: offset, Total: total}, nil
}

type SearchMemoriesRequest struct {
	Query    string
	SpaceIDs []string
	Limit    int
	Offset   int
}

func (s *MemoryService) SearchMemories(ctx context.Context, p *auth.Principal, req SearchMemoriesRequest) ([]*model.SearchResult, model.Pagination, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, model.Pagination{}, fmt.Errorf("%w: query is required", model.ErrInvalidInput)
	}
	scope, err := s.scopeFor(ctx, p, req.SpaceIDs)
	if err != nil {
		return nil, model.Pagination{}, err
	}
	vec, err := s.embed(ctx, req.Query)
	if err != nil {
		return nil, model.Pagination{}, err
	}
	limit := pagination.ClampLimit(req.Limit)
	offset := pagination.ClampOffset(req.Offset)
	hits, total, err := s.store.Memories().Search(ctx, store.SearchMemoriesRequest{
		Scope: scope, Vector: vec, Floor: SimilarityFloor, Limit: limit, Offset: offset,
	})
	if err != nil {
		return nil, model.Pagination{}, err
	}
	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.ID)
	}
	s.recordAccess(ctx, p, ids)
	return hits, model.Pagination{Limit: limit, Offset: offset, Total: total}, nil
}

// UpdateMemory rewrites content and metadata. A content change re-embeds
// before the write so content and embedding never diverge.
func (s *MemoryService) UpdateMemory(ctx context.Context, p *auth.Principal, memoryID string, content *string, metadata map[string]interface{}) (*model.Memory, error) {
	if content != nil && strings.TrimSpace(*content) == "" {
		return nil, fmt.Errorf("%w: content cannot be empty", model.ErrInvalidInput)
	}
	if _, err := s.authorizedMemory(ctx, p, memoryID); err != nil {
		return nil, err
	}
	var vec []float32
	if content != nil {
		v, err := s.embed(ctx, *content)
		if err != nil {
			return nil, err
		}
		vec = v
	}
	return s.store.Memories().Update(ctx, memoryID, content, vec, metadata)
}

func (s *MemoryService) DeleteMemory(ctx context.Context, p *auth.Principal, memoryID string) error {
	if _, err := s.authorizedMemory(ctx, p, memoryID); err != nil {
		return err
	}
	return s.store.Memories().Delete(ctx, memoryID)
}

func (s *MemoryService) GetMemoryLogs(ctx context.Context, p *auth.Principal, memoryID string, limit, offset int) ([]*model.AccessLogEntry, model.Pagination, error) {
	if _, err := s.authorizedMemory(ctx, p, memoryID); err != nil {
		return nil, model.Pagination{}, err
	}
	limit = pagination.ClampLimit(limit)
	offset = pagination.ClampOffset(offset)
	entries, total, err := s.store.AccessLogs().ListByMemory(ctx, memoryID, limit, offset)
	if err != nil {
		return nil, model.Pagination{}, err
	}
	return entries, model.Pagination{Limit: limit, Offset: offset, Total: total}, nil
}

func (s *MemoryService) authorizedMemory(ctx context.Context, p *auth.Principal, memoryID string) (*model.Memory, error) {
	m, err := s.store.Memories().Get(ctx, memoryID)
	if err != nil {
		return nil, err
	}
	ok, err := s.az.CanAccessMemory(ctx, p, m)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrForbidden
	}
	return m, nil
}

// scopeFor resolves explicit space filters against the principal, falling
// back to the principal's full visible scope when none are given.
func (s *MemoryService) scopeFor(ctx context.Context, p *auth.Principal, spaceIDs []string) (store.MemoryScope, error) {
	if len(spaceIDs) > 0 {
		if err := s.az.AuthorizeSpaces(ctx, p, spaceIDs); err != nil {
			return store.MemoryScope{}, err
		}
		return store.MemoryScope{Kind: store.ScopeSpaces, SpaceIDs: spaceIDs}, nil
	}
	return s.az.VisibleScope(ctx, p)
}

func (s *MemoryService) embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, s.embedTimeout)
	defer cancel()
	vec, err := s.emb.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrEmbeddingUnavailable, err)
	}
	return vec, nil
}

// recordAccess enqueues access records best effort. Reads never fail because
// the pipeline is down.
func (s *MemoryService) recordAccess(ctx context.Context, p *auth.Principal, ids []string) {
	if s.enq == nil || len(ids) == 0 {
		return
	}
	if err := s.enq.EnqueueAccessRecords(ctx, ids, p.APIKeyID()); err != nil {
		s.log.Warn().Err(err).Int("count", len(ids)).Msg("failed to enqueue access records")
	}
}

func memoryIDs(items []*model.Memory) []string {
	ids := make([]string, 0, len(items))
	for _, m := range items {
		ids = append(ids, m.ID)
	}
	return ids
}
