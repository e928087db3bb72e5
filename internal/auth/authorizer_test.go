package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/memspace/memspace/internal/model"
	"github.com/memspace/memspace/internal/store"
	"github.com/memspace/memspace/internal/store/storetest"
)

func seedSpaceWorld(t *testing.T) (*storetest.Fake, *model.User, *model.User, *model.Space) {
	t.Helper()
	ctx := context.Background()
	fs := storetest.New()
	owner, err := fs.Users().Create(ctx, &model.User{ID: "owner", Name: "Owner", Email: "o@example.com", Role: model.RoleUser, Active: true})
	if err != nil {
		t.Fatalf("create owner: %v", err)
	}
	other, err := fs.Users().Create(ctx, &model.User{ID: "other", Name: "Other", Email: "x@example.com", Role: model.RoleUser, Active: true})
	if err != nil {
		t.Fatalf("create other: %v", err)
	}
	sp, err := fs.Spaces().Create(ctx, &model.Space{ID: "s1", Name: "research", CreatedBy: owner.ID})
	if err != nil {
		t.Fatalf("create space: %v", err)
	}
	return fs, owner, other, sp
}

func TestSessionAccessRequiresMembership(t *testing.T) {
	fs, owner, other, sp := seedSpaceWorld(t)
	az := NewAuthorizer(fs)
	ctx := context.Background()

	ownerP := &Principal{Kind: PrincipalSession, User: owner}
	if ok, _ := az.CanAccessSpace(ctx, ownerP, sp.ID); !ok {
		t.Fatal("owner should access own space")
	}

	otherP := &Principal{Kind: PrincipalSession, User: other}
	if ok, _ := az.CanAccessSpace(ctx, otherP, sp.ID); ok {
		t.Fatal("non-member should not access space")
	}

	if err := fs.Spaces().AddMember(ctx, sp.ID, other.ID); err != nil {
		t.Fatalf("add member: %v", err)
	}
	if ok, _ := az.CanAccessSpace(ctx, otherP, sp.ID); !ok {
		t.Fatal("member should access space")
	}
}

func TestAdminSessionAccessesAnySpace(t *testing.T) {
	fs, _, _, sp := seedSpaceWorld(t)
	ctx := context.Background()
	admin, err := fs.Users().Create(ctx, &model.User{ID: "root", Name: "Root", Email: "r@example.com", Role: model.RoleAdmin, Active: true})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	az := NewAuthorizer(fs)
	p := &Principal{Kind: PrincipalSession, User: admin}
	if ok, _ := az.CanAccessSpace(ctx, p, sp.ID); !ok {
		t.Fatal("admin should access any space")
	}
	scope, err := az.VisibleScope(ctx, p)
	if err != nil {
		t.Fatalf("scope: %v", err)
	}
	if scope.Kind != store.ScopeAll {
		t.Fatalf("scope kind = %v, want ScopeAll", scope.Kind)
	}
}

func TestAPIKeyAccessBoundByGrants(t *testing.T) {
	fs, owner, _, sp := seedSpaceWorld(t)
	ctx := context.Background()
	other, err := fs.Spaces().Create(ctx, &model.Space{ID: "s2", Name: "private", CreatedBy: owner.ID})
	if err != nil {
		t.Fatalf("create space: %v", err)
	}
	key, err := fs.ApiKeys().Create(ctx, &model.ApiKey{ID: "k1", Name: "ci", UserID: owner.ID}, HashToken("sk"), []string{sp.ID})
	if err != nil {
		t.Fatalf("create key: %v", err)
	}
	az := NewAuthorizer(fs)
	p := &Principal{Kind: PrincipalAPIKey, User: owner, Key: key}

	if ok, _ := az.CanAccessSpace(ctx, p, sp.ID); !ok {
		t.Fatal("key should access granted space")
	}
	// The owner is a member of s2, but the key was not granted it. Key
	// visibility never widens to the owner's.
	if ok, _ := az.CanAccessSpace(ctx, p, other.ID); ok {
		t.Fatal("key must not access ungranted space")
	}

	scope, err := az.VisibleScope(ctx, p)
	if err != nil {
		t.Fatalf("scope: %v", err)
	}
	if scope.Kind != store.ScopeSpaces || len(scope.SpaceIDs) != 1 || scope.SpaceIDs[0] != sp.ID {
		t.Fatalf("scope = %+v, want spaces [%s]", scope, sp.ID)
	}

	// Admin role on the owning user does not leak through the key.
	adminRole := model.RoleAdmin
	if _, err := fs.Users().Update(ctx, owner.ID, &adminRole, nil); err != nil {
		t.Fatalf("promote: %v", err)
	}
	u, _ := fs.Users().Get(ctx, owner.ID)
	p = &Principal{Kind: PrincipalAPIKey, User: u, Key: key}
	if p.IsAdmin() {
		t.Fatal("api key principal must never be admin")
	}
	if ok, _ := az.CanAccessSpace(ctx, p, other.ID); ok {
		t.Fatal("admin-owned key still bound by grants")
	}
}

func TestAuthorizeSpacesFailsClosed(t *testing.T) {
	fs, owner, _, sp := seedSpaceWorld(t)
	ctx := context.Background()
	az := NewAuthorizer(fs)
	p := &Principal{Kind: PrincipalSession, User: owner}

	if err := az.AuthorizeSpaces(ctx, p, []string{sp.ID}); err != nil {
		t.Fatalf("authorize own space: %v", err)
	}
	err := az.AuthorizeSpaces(ctx, p, []string{sp.ID, "missing"})
	if !errors.Is(err, model.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestCanManageSpace(t *testing.T) {
	fs, owner, other, sp := seedSpaceWorld(t)
	ctx := context.Background()
	if err := fs.Spaces().AddMember(ctx, sp.ID, other.ID); err != nil {
		t.Fatalf("add member: %v", err)
	}
	az := NewAuthorizer(fs)

	if ok, _ := az.CanManageSpace(ctx, &Principal{Kind: PrincipalSession, User: owner}, sp.ID); !ok {
		t.Fatal("owner should manage space")
	}
	if ok, _ := az.CanManageSpace(ctx, &Principal{Kind: PrincipalSession, User: other}, sp.ID); ok {
		t.Fatal("plain member must not manage space")
	}
	key, _ := fs.ApiKeys().Create(ctx, &model.ApiKey{ID: "k9", Name: "ci", UserID: owner.ID}, HashToken("sk9"), []string{sp.ID})
	if ok, _ := az.CanManageSpace(ctx, &Principal{Kind: PrincipalAPIKey, User: owner, Key: key}, sp.ID); ok {
		t.Fatal("api key must not manage space")
	}
}
