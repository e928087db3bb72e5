package api

import (
	"encoding/json"
	"net/http"

	"github.com/memspace/memspace/internal/api/respond"
	"github.com/memspace/memspace/internal/api/validate"
	"github.com/memspace/memspace/internal/auth"
	"github.com/memspace/memspace/internal/model"
	"github.com/memspace/memspace/internal/services"
)

// AuthHandler serves the unauthenticated endpoints: invite checks, invite
// redemption and API token validation.
type AuthHandler struct {
	resolver *auth.Resolver
	invites  *services.InviteService
}

func NewAuthHandler(resolver *auth.Resolver, invites *services.InviteService) *AuthHandler {
	return &AuthHandler{resolver: resolver, invites: invites}
}

// CheckInvite POST /v1/auth/check-invite
func (h *AuthHandler) CheckInvite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InviteToken string `json:"inviteToken" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	inv, err := h.invites.CheckInvite(r.Context(), req.InviteToken)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"valid": true,
		"email": inv.Email,
		"role":  inv.Role,
	})
}

// AcceptInvite POST /v1/auth/accept-invite
func (h *AuthHandler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InviteToken string `json:"inviteToken" validate:"required"`
		Name        string `json:"name" validate:"required,max=100"`
		Email       string `json:"email" validate:"required,email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	u, err := h.invites.AcceptInvite(r.Context(), req.InviteToken, req.Name, req.Email)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, u)
}

// ValidateToken POST /v1/auth/validate-token
// Authenticates a raw API key token and reports who it belongs to. Counts as
// a use for last_used_at purposes.
func (h *AuthHandler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	p, err := h.resolver.ValidateToken(r.Context(), req.Token)
	if err != nil {
		respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"valid": false})
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"valid":  true,
		"keyId":  p.Key.ID,
		"userId": p.UserID(),
		"name":   p.Key.Name,
		"status": model.ApiKeyActive,
	})
}
