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

type SpaceHandler struct {
	svc *services.SpaceService
}

func NewSpaceHandler(svc *services.SpaceService) *SpaceHandler {
	return &SpaceHandler{svc: svc}
}

// CreateSpace POST /v1/spaces
func (h *SpaceHandler) CreateSpace(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string  `json:"name" validate:"required,max=100"`
		Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	sp, err := h.svc.CreateSpace(r.Context(), principalFrom(r), req.Name, req.Description)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, sp)
}

// ListSpaces GET /v1/spaces
func (h *SpaceHandler) ListSpaces(w http.ResponseWriter, r *http.Request) {
	spaces, err := h.svc.ListSpaces(r.Context(), principalFrom(r))
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	if spaces == nil {
		spaces = []*model.Space{}
	}
	respond.WriteJSON(w, http.StatusOK, spaces)
}

// GetSpace GET /v1/spaces/{spaceId}
func (h *SpaceHandler) GetSpace(w http.ResponseWriter, r *http.Request) {
	sp, err := h.svc.GetSpace(r.Context(), principalFrom(r), mux.Vars(r)["spaceId"])
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, sp)
}

// UpdateSpace PATCH /v1/spaces/{spaceId}
func (h *SpaceHandler) UpdateSpace(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        *string `json:"name,omitempty" validate:"omitempty,max=100"`
		Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	sp, err := h.svc.UpdateSpace(r.Context(), principalFrom(r), mux.Vars(r)["spaceId"], req.Name, req.Description)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, sp)
}

// DeleteSpace DELETE /v1/spaces/{spaceId}
func (h *SpaceHandler) DeleteSpace(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteSpace(r.Context(), principalFrom(r), mux.Vars(r)["spaceId"]); err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddMember POST /v1/spaces/{spaceId}/members
func (h *SpaceHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	if err := h.svc.AddMember(r.Context(), principalFrom(r), mux.Vars(r)["spaceId"], req.UserID); err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveMember DELETE /v1/spaces/{spaceId}/members/{userId}
func (h *SpaceHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.svc.RemoveMember(r.Context(), principalFrom(r), vars["spaceId"], vars["userId"]); err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListMembers GET /v1/spaces/{spaceId}/members?cursor=&limit=
func (h *SpaceHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var cursor *string
	if c := q.Get("cursor"); c != "" {
		cursor = &c
	}
	page, err := h.svc.ListMembers(r.Context(), principalFrom(r), mux.Vars(r)["spaceId"], cursor, intQuery(q.Get("limit")))
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	if page.Data == nil {
		page.Data = []*model.SpaceMember{}
	}
	respond.WriteJSON(w, http.StatusOK, page)
}
