package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/memspace/memspace/internal/api/respond"
	"github.com/memspace/memspace/internal/api/validate"
	"github.com/memspace/memspace/internal/model"
	"github.com/memspace/memspace/internal/services"
)

type MemoryHandler struct {
	svc *services.MemoryService
}

func NewMemoryHandler(svc *services.MemoryService) *MemoryHandler {
	return &MemoryHandler{svc: svc}
}

// listEnvelope is the offset-paginated response shape shared by list, search
// and log endpoints.
type listEnvelope struct {
	Data interface{} `json:"data"`
	model.Pagination
}

// CreateMemory POST /v1/memories
func (h *MemoryHandler) CreateMemory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content  string                 `json:"content" validate:"required,max=65536"`
		Metadata map[string]interface{} `json:"metadata,omitempty"`
		SpaceIDs []string               `json:"spaceIds,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	m, err := h.svc.CreateMemory(r.Context(), principalFrom(r), services.CreateMemoryRequest{
		Content:  req.Content,
		Metadata: req.Metadata,
		SpaceIDs: req.SpaceIDs,
	})
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, m)
}

// GetMemory GET /v1/memories/{memoryId}
func (h *MemoryHandler) GetMemory(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.GetMemory(r.Context(), principalFrom(r), mux.Vars(r)["memoryId"])
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, m)
}

// ListMemories GET /v1/memories?spaceIds=a,b&limit=&offset=&order=
func (h *MemoryHandler) ListMemories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	order := model.SortOrder(q.Get("order"))
	if order != "" && order != model.SortAsc && order != model.SortDesc {
		respond.WriteBadRequest(w, "order must be asc or desc")
		return
	}
	items, page, err := h.svc.ListMemories(r.Context(), principalFrom(r), services.ListMemoriesRequest{
		SpaceIDs: splitCSV(q.Get("spaceIds")),
		Limit:    intQuery(q.Get("limit")),
		Offset:   intQuery(q.Get("offset")),
		Order:    order,
	})
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	if items == nil {
		items = []*model.Memory{}
	}
	respond.WriteJSON(w, http.StatusOK, listEnvelope{Data: items, Pagination: page})
}

// UpdateMemory PATCH /v1/memories/{memoryId}
func (h *MemoryHandler) UpdateMemory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content  *string                `json:"content,omitempty" validate:"omitempty,max=65536"`
		Metadata map[string]interface{} `json:"metadata,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	if req.Content == nil && req.Metadata == nil {
		respond.WriteBadRequest(w, "nothing to update")
		return
	}
	m, err := h.svc.UpdateMemory(r.Context(), principalFrom(r), mux.Vars(r)["memoryId"], req.Content, req.Metadata)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, m)
}

// DeleteMemory DELETE /v1/memories/{memoryId}
func (h *MemoryHandler) DeleteMemory(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteMemory(r.Context(), principalFrom(r), mux.Vars(r)["memoryId"]); err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SearchMemories POST /v1/search
func (h *MemoryHandler) SearchMemories(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query    string   `json:"query" validate:"required,max=8192"`
		SpaceIDs []string `json:"spaceIds,omitempty"`
		Limit    int      `json:"limit,omitempty"`
		Offset   int      `json:"offset,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	hits, page, err := h.svc.SearchMemories(r.Context(), principalFrom(r), services.SearchMemoriesRequest{
		Query:    req.Query,
		SpaceIDs: req.SpaceIDs,
		Limit:    req.Limit,
		Offset:   req.Offset,
	})
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	if hits == nil {
		hits = []*model.SearchResult{}
	}
	respond.WriteJSON(w, http.StatusOK, listEnvelope{Data: hits, Pagination: page})
}

// GetMemoryLogs GET /v1/memories/{memoryId}/logs
func (h *MemoryHandler) GetMemoryLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entries, page, err := h.svc.GetMemoryLogs(r.Context(), principalFrom(r), mux.Vars(r)["memoryId"],
		intQuery(q.Get("limit")), intQuery(q.Get("offset")))
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []*model.AccessLogEntry{}
	}
	respond.WriteJSON(w, http.StatusOK, listEnvelope{Data: entries, Pagination: page})
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func intQuery(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
