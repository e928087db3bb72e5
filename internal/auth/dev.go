package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/memspace/memspace/internal/model"
)

// DevSessionHeader carries the acting user id in development deployments
// where no session frontend is wired.
const DevSessionHeader = "X-Dev-User"

// ErrDevAuthInProduction guards against the header-based verifier reaching a
// production deployment.
var ErrDevAuthInProduction = errors.New("development session verifier not allowed in production")

// DevSessionVerifier trusts a plain header naming the user. Development and
// testing only; NewDevSessionVerifier refuses to construct one for
// production.
type DevSessionVerifier struct{}

func NewDevSessionVerifier(production bool) (*DevSessionVerifier, error) {
	if production {
		return nil, ErrDevAuthInProduction
	}
	return &DevSessionVerifier{}, nil
}

func (*DevSessionVerifier) VerifySession(_ context.Context, r *http.Request) (string, error) {
	userID := r.Header.Get(DevSessionHeader)
	if userID == "" {
		return "", model.ErrUnauthenticated
	}
	return userID, nil
}
