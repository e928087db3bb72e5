package auth

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/memspace/memspace/internal/model"
	"github.com/memspace/memspace/internal/store/storetest"
)

func seedUserAndKey(t *testing.T, fs *storetest.Fake, token string) (*model.User, *model.ApiKey) {
	t.Helper()
	ctx := context.Background()
	u, err := fs.Users().Create(ctx, &model.User{ID: "u1", Name: "Ada", Email: "ada@example.com", Role: model.RoleUser, Active: true})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	k, err := fs.ApiKeys().Create(ctx, &model.ApiKey{ID: "k1", Name: "ci", UserID: u.ID}, HashToken(token), nil)
	if err != nil {
		t.Fatalf("create key: %v", err)
	}
	return u, k
}

func TestResolveBearerKey(t *testing.T) {
	fs := storetest.New()
	_, key := seedUserAndKey(t, fs, "sk-test-token")

	r := NewResolver(fs, nil, zerolog.Nop())
	req := httptest.NewRequest("GET", "/v1/memories", nil)
	req.Header.Set("Authorization", "Bearer sk-test-token")

	p, err := r.Resolve(context.Background(), req)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p.Kind != PrincipalAPIKey {
		t.Fatalf("kind = %s, want api_key", p.Kind)
	}
	if p.Key.ID != key.ID {
		t.Fatalf("key id = %s, want %s", p.Key.ID, key.ID)
	}
	if got := fs.TouchedKeys; len(got) != 1 || got[0] != key.ID {
		t.Fatalf("touched keys = %v, want [%s]", got, key.ID)
	}
}

func TestResolveUnknownTokenIsUnauthenticated(t *testing.T) {
	fs := storetest.New()
	seedUserAndKey(t, fs, "sk-real")

	r := NewResolver(fs, nil, zerolog.Nop())
	req := httptest.NewRequest("GET", "/v1/memories", nil)
	req.Header.Set("Authorization", "Bearer sk-wrong")

	if _, err := r.Resolve(context.Background(), req); !errors.Is(err, model.ErrUnauthenticated) {
		t.Fatalf("err = %v, want ErrUnauthenticated", err)
	}
}

func TestResolveRevokedKeyIsUnauthenticated(t *testing.T) {
	fs := storetest.New()
	_, key := seedUserAndKey(t, fs, "sk-revoked")
	if err := fs.ApiKeys().Revoke(context.Background(), key.ID, key.UserID); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	r := NewResolver(fs, nil, zerolog.Nop())
	req := httptest.NewRequest("GET", "/v1/memories", nil)
	req.Header.Set("Authorization", "Bearer sk-revoked")

	if _, err := r.Resolve(context.Background(), req); !errors.Is(err, model.ErrUnauthenticated) {
		t.Fatalf("err = %v, want ErrUnauthenticated", err)
	}
}

func TestResolveInactiveOwnerIsUnauthenticated(t *testing.T) {
	fs := storetest.New()
	user, _ := seedUserAndKey(t, fs, "sk-inactive")
	inactive := false
	if _, err := fs.Users().Update(context.Background(), user.ID, nil, &inactive); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	r := NewResolver(fs, nil, zerolog.Nop())
	req := httptest.NewRequest("GET", "/v1/memories", nil)
	req.Header.Set("Authorization", "Bearer sk-inactive")

	if _, err := r.Resolve(context.Background(), req); !errors.Is(err, model.ErrUnauthenticated) {
		t.Fatalf("err = %v, want ErrUnauthenticated", err)
	}
}

func TestResolveNoCredentials(t *testing.T) {
	fs := storetest.New()
	r := NewResolver(fs, nil, zerolog.Nop())
	req := httptest.NewRequest("GET", "/v1/memories", nil)

	if _, err := r.Resolve(context.Background(), req); !errors.Is(err, model.ErrUnauthenticated) {
		t.Fatalf("err = %v, want ErrUnauthenticated", err)
	}
}

func TestBearerTokenParsing(t *testing.T) {
	cases := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Bearer", "", false},
		{"Basic abc", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		req := httptest.NewRequest("GET", "/", nil)
		if c.header != "" {
			req.Header.Set("Authorization", c.header)
		}
		got, ok := bearerToken(req)
		if ok != c.ok || got != c.want {
			t.Errorf("bearerToken(%q) = (%q,%v), want (%q,%v)", c.header, got, ok, c.want, c.ok)
		}
	}
}
