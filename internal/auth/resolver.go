package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/memspace/memspace/internal/model"
	"github.com/memspace/memspace/internal/store"
)

// SessionVerifier checks a browser session credential and returns the user id
// it belongs to. Implementations wrap whatever session mechanism fronts the
// service; expired or unknown sessions return model.ErrUnauthenticated.
type SessionVerifier interface {
	VerifySession(ctx context.Context, r *http.Request) (string, error)
}

// Resolver turns an incoming request into a Principal. Bearer API keys take
// precedence over sessions; a request carrying both is authenticated by the
// key alone.
type Resolver struct {
	store    store.Store
	sessions SessionVerifier
	logger   zerolog.Logger
}

func NewResolver(s store.Store, sessions SessionVerifier, logger zerolog.Logger) *Resolver {
	return &Resolver{store: s, sessions: sessions, logger: logger.With().Str("component", "auth").Logger()}
}

// Resolve authenticates the request. All failures collapse into
// model.ErrUnauthenticated so callers cannot distinguish unknown keys from
// revoked ones.
func (r *Resolver) Resolve(ctx context.Context, req *http.Request) (*Principal, error) {
	if token, ok := bearerToken(req); ok {
		return r.resolveAPIKey(ctx, token)
	}
	if r.sessions != nil {
		return r.resolveSession(ctx, req)
	}
	return nil, model.ErrUnauthenticated
}

func (r *Resolver) resolveAPIKey(ctx context.Context, token string) (*Principal, error) {
	key, err := r.store.ApiKeys().GetActiveByHash(ctx, HashToken(token))
	if err != nil {
		return nil, model.ErrUnauthenticated
	}
	user, err := r.store.Users().Get(ctx, key.UserID)
	if err != nil || !user.Active {
		return nil, model.ErrUnauthenticated
	}
	// Usage tracking is best effort; a failed touch never blocks the request.
	if err := r.store.ApiKeys().TouchLastUsed(ctx, key.ID); err != nil {
		r.logger.Warn().Err(err).Str("key_id", key.ID).Msg("failed to touch last_used_at")
	}
	return &Principal{Kind: PrincipalAPIKey, User: user, Key: key}, nil
}

func (r *Resolver) resolveSession(ctx context.Context, req *http.Request) (*Principal, error) {
	userID, err := r.sessions.VerifySession(ctx, req)
	if err != nil {
		return nil, model.ErrUnauthenticated
	}
	user, err := r.store.Users().Get(ctx, userID)
	if err != nil || !user.Active {
		return nil, model.ErrUnauthenticated
	}
	return &Principal{Kind: PrincipalSession, User: user}, nil
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", false
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// ValidateToken authenticates a raw API key token outside the HTTP path,
// for programmatic verification. It touches last_used_at like a normal
// request would.
func (r *Resolver) ValidateToken(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", model.ErrUnauthenticated)
	}
	return r.resolveAPIKey(ctx, token)
}
