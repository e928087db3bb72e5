// Package memspaceservice boots the memspace HTTP service.
package memspaceservice

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/memspace/memspace/internal/api"
	"github.com/memspace/memspace/internal/auth"
	"github.com/memspace/memspace/internal/config"
	"github.com/memspace/memspace/internal/embeddings"
	"github.com/memspace/memspace/internal/embeddings/ollama"
	"github.com/memspace/memspace/internal/logger"
	"github.com/memspace/memspace/internal/outbox"
	"github.com/memspace/memspace/internal/services"
	"github.com/memspace/memspace/internal/store"
	"github.com/memspace/memspace/internal/store/postgres"
)

// Run starts the HTTP server and blocks until shutdown or error.
func Run() error {
	log := logger.New("memspace-service")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	log.Info().
		Str("environment", string(cfg.Environment)).
		Int("http_port", cfg.HTTPPort).
		Str("embed_provider", cfg.EmbedProvider).
		Str("embed_model", cfg.EmbedModel).
		Int("embed_dimensions", cfg.EmbedDimensions).
		Msg("memspace service starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(cfg.PostgresDSN)
	if err != nil {
		log.Error().Stack().Err(err).Msg("postgres unavailable")
		return err
	}
	defer func() { _ = db.Close() }()
	st := postgres.NewWithDB(db)

	emb := ollama.New(cfg.EmbedModel)
	// Fail fast on a wrong provider/model pairing; a dimension mismatch would
	// otherwise surface as insert errors under load.
	if err := embeddings.VerifyDimensions(ctx, emb, cfg.EmbedDimensions); err != nil {
		log.Error().Stack().Err(err).Msg("embedding provider verification failed")
		return err
	}

	router, err := buildRouter(cfg, st, db, emb, log)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Stack().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Stack().Err(err).Msg("HTTP server failed")
		return err
	}
}

// buildRouter wires services, authorization and the access-log pipeline into
// the route table.
func buildRouter(cfg *config.Config, st store.Store, db *sql.DB, emb embeddings.Provider, log zerolog.Logger) (http.Handler, error) {
	var sessions auth.SessionVerifier
	if !cfg.IsProduction() {
		dev, err := auth.NewDevSessionVerifier(false)
		if err != nil {
			return nil, err
		}
		sessions = dev
	}
	resolver := auth.NewResolver(st, sessions, log)
	az := auth.NewAuthorizer(st)

	enq := outbox.NewPostgresEnqueuer(db)
	embedTimeout := time.Duration(cfg.EmbedTimeoutSeconds) * time.Second
	inviteTTL := time.Duration(cfg.InviteTTLHours) * time.Hour

	var health api.HealthPinger
	if hp, ok := st.(api.HealthPinger); ok {
		health = hp
	}

	return api.NewRouter(api.Deps{
		Resolver: resolver,
		Memories: services.NewMemoryService(st, az, emb, enq, embedTimeout, log),
		Spaces:   services.NewSpaceService(st, az),
		ApiKeys:  services.NewApiKeyService(st, az),
		Users:    services.NewUserService(st),
		Invites:  services.NewInviteService(st, inviteTTL),
		Health:   health,
	}), nil
}
