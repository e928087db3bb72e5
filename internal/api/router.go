// Package api wires HTTP routes to services.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/memspace/memspace/internal/api/recovery"
	"github.com/memspace/memspace/internal/auth"
	"github.com/memspace/memspace/internal/services"
)

// Deps carries everything the router needs. All fields are required except
// Health, which is skipped when nil.
type Deps struct {
	Resolver *auth.Resolver
	Memories *services.MemoryService
	Spaces   *services.SpaceService
	ApiKeys  *services.ApiKeyService
	Users    *services.UserService
	Invites  *services.InviteService
	Health   HealthPinger
}

// NewRouter builds the full route table. Public endpoints sit outside the
// auth middleware; everything under /v1 except /v1/auth requires a principal.
func NewRouter(d Deps) *mux.Router {
	router := mux.NewRouter()
	router.Use(recovery.Middleware)

	memoryHandler := NewMemoryHandler(d.Memories)
	spaceHandler := NewSpaceHandler(d.Spaces)
	keyHandler := NewApiKeyHandler(d.ApiKeys)
	userHandler := NewUserHandler(d.Users, d.Invites)
	authHandler := NewAuthHandler(d.Resolver, d.Invites)

	if d.Health != nil {
		healthHandler := NewHealthHandler(d.Health)
		router.HandleFunc("/api/health", healthHandler.CheckHealth).Methods(http.MethodGet)
	}

	// Public auth endpoints.
	router.HandleFunc("/v1/auth/check-invite", authHandler.CheckInvite).Methods(http.MethodPost)
	router.HandleFunc("/v1/auth/accept-invite", authHandler.AcceptInvite).Methods(http.MethodPost)
	router.HandleFunc("/v1/auth/validate-token", authHandler.ValidateToken).Methods(http.MethodPost)

	// Everything else requires authentication.
	v1 := router.PathPrefix("/v1").Subrouter()
	v1.Use(RequireAuth(d.Resolver))

	v1.HandleFunc("/spaces", spaceHandler.CreateSpace).Methods(http.MethodPost)
	v1.HandleFunc("/spaces", spaceHandler.ListSpaces).Methods(http.MethodGet)
	v1.HandleFunc("/spaces/{spaceId}", spaceHandler.GetSpace).Methods(http.MethodGet)
	v1.HandleFunc("/spaces/{spaceId}", spaceHandler.UpdateSpace).Methods(http.MethodPatch)
	v1.HandleFunc("/spaces/{spaceId}", spaceHandler.DeleteSpace).Methods(http.MethodDelete)
	v1.HandleFunc("/spaces/{spaceId}/members", spaceHandler.AddMember).Methods(http.MethodPost)
	v1.HandleFunc("/spaces/{spaceId}/members", spaceHandler.ListMembers).Methods(http.MethodGet)
	v1.HandleFunc("/spaces/{spaceId}/members/{userId}", spaceHandler.RemoveMember).Methods(http.MethodDelete)

	v1.HandleFunc("/memories", memoryHandler.CreateMemory).Methods(http.MethodPost)
	v1.HandleFunc("/memories", memoryHandler.ListMemories).Methods(http.MethodGet)
	v1.HandleFunc("/memories/{memoryId}", memoryHandler.GetMemory).Methods(http.MethodGet)
	v1.HandleFunc("/memories/{memoryId}", memoryHandler.UpdateMemory).Methods(http.MethodPatch)
	v1.HandleFunc("/memories/{memoryId}", memoryHandler.DeleteMemory).Methods(http.MethodDelete)
	v1.HandleFunc("/memories/{memoryId}/logs", memoryHandler.GetMemoryLogs).Methods(http.MethodGet)

	v1.HandleFunc("/search", memoryHandler.SearchMemories).Methods(http.MethodPost)

	v1.HandleFunc("/api-keys", keyHandler.CreateApiKey).Methods(http.MethodPost)
	v1.HandleFunc("/api-keys", keyHandler.ListApiKeys).Methods(http.MethodGet)
	v1.HandleFunc("/api-keys/{keyId}/revoke", keyHandler.RevokeApiKey).Methods(http.MethodPost)
	v1.HandleFunc("/api-keys/{keyId}", keyHandler.DeleteApiKey).Methods(http.MethodDelete)

	v1.HandleFunc("/users/me", userHandler.Me).Methods(http.MethodGet)
	v1.HandleFunc("/users", userHandler.CreateUser).Methods(http.MethodPost)
	v1.HandleFunc("/users", userHandler.ListUsers).Methods(http.MethodGet)
	v1.HandleFunc("/users/{userId}", userHandler.UpdateUser).Methods(http.MethodPatch)

	v1.HandleFunc("/invites", userHandler.CreateInvite).Methods(http.MethodPost)

	return router
}
