package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/memspace/memspace/internal/api/respond"
	"github.com/memspace/memspace/internal/api/validate"
	"github.com/memspace/memspace/internal/model"
	"github.com/memspace/memspace/internal/services"
)

type ApiKeyHandler struct {
	svc *services.ApiKeyService
}

func NewApiKeyHandler(svc *services.ApiKeyService) *ApiKeyHandler {
	return &ApiKeyHandler{svc: svc}
}

// CreateApiKey POST /v1/api-keys
// The response carries the plaintext token; it is never retrievable again.
func (h *ApiKeyHandler) CreateApiKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string   `json:"name" validate:"required,max=100"`
		SpaceIDs []string `json:"spaceIds,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	created, err := h.svc.CreateApiKey(r.Context(), principalFrom(r), req.Name, req.SpaceIDs)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, created)
}

// ListApiKeys GET /v1/api-keys
func (h *ApiKeyHandler) ListApiKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.svc.ListApiKeys(r.Context(), principalFrom(r))
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	if keys == nil {
		keys = []*model.ApiKey{}
	}
	respond.WriteJSON(w, http.StatusOK, keys)
}

// RevokeApiKey POST /v1/api-keys/{keyId}/revoke
func (h *ApiKeyHandler) RevokeApiKey(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RevokeApiKey(r.Context(), principalFrom(r), mux.Vars(r)["keyId"]); err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteApiKey DELETE /v1/api-keys/{keyId}
func (h *ApiKeyHandler) DeleteApiKey(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteApiKey(r.Context(), principalFrom(r), mux.Vars(r)["keyId"]); err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
