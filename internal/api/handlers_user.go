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

type UserHandler struct {
	users   *services.UserService
	invites *services.InviteService
}

func NewUserHandler(users *services.UserService, invites *services.InviteService) *UserHandler {
	return &UserHandler{users: users, invites: invites}
}

// Me GET /v1/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.Me(r.Context(), principalFrom(r))
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, u)
}

// CreateUser POST /v1/users (admin)
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string     `json:"name" validate:"required,max=100"`
		Email string     `json:"email" validate:"required,email"`
		Role  model.Role `json:"role,omitempty" validate:"omitempty,oneof=admin user"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	u, err := h.users.CreateUser(r.Context(), principalFrom(r), req.Name, req.Email, req.Role)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, u)
}

// ListUsers GET /v1/users (admin)
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	users, page, err := h.users.ListUsers(r.Context(), principalFrom(r), intQuery(q.Get("limit")), intQuery(q.Get("offset")))
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	if users == nil {
		users = []*model.User{}
	}
	respond.WriteJSON(w, http.StatusOK, listEnvelope{Data: users, Pagination: page})
}

// UpdateUser PATCH /v1/users/{userId} (admin)
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role   *model.Role `json:"role,omitempty" validate:"omitempty,oneof=admin user"`
		Active *bool       `json:"active,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	u, err := h.users.UpdateUser(r.Context(), principalFrom(r), mux.Vars(r)["userId"], req.Role, req.Active)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, u)
}

// CreateInvite POST /v1/invites (admin)
func (h *UserHandler) CreateInvite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string     `json:"email" validate:"required,email"`
		Role  model.Role `json:"role,omitempty" validate:"omitempty,oneof=admin user"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	inv, err := h.invites.CreateInvite(r.Context(), principalFrom(r), req.Email, req.Role)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, inv)
}
