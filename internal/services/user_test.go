package services

import (
	"context"
	"errors"
	"testing"

	"github.com/memspace/memspace/internal/auth"
	"github.com/memspace/memspace/internal/model"
	"github.com/memspace/memspace/internal/store/storetest"
)

func newUserWorld(t *testing.T) (*storetest.Fake, *UserService, *auth.Principal, *auth.Principal) {
	t.Helper()
	ctx := context.Background()
	fs := storetest.New()

	admin, err := fs.Users().Create(ctx, &model.User{ID: "admin", Name: "Admin", Email: "admin@example.com", Role: model.RoleAdmin, Active: true})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	regular, err := fs.Users().Create(ctx, &model.User{ID: "regular", Name: "Regular", Email: "regular@example.com", Role: model.RoleUser, Active: true})
	if err != nil {
		t.Fatalf("create regular: %v", err)
	}

	return fs, NewUserService(fs),
		&auth.Principal{Kind: auth.PrincipalSession, User: admin},
		&auth.Principal{Kind: auth.PrincipalSession, User: regular}
}

func TestMeReturnsOwnAccount(t *testing.T) {
	_, svc, _, regular := newUserWorld(t)

	u, err := svc.Me(context.Background(), regular)
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if u.ID != "regular" {
		t.Fatalf("unexpected account: %+v", u)
	}
}

func TestCreateUserAdminOnly(t *testing.T) {
	_, svc, admin, regular := newUserWorld(t)
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, regular, "Eve", "eve@example.com", ""); !errors.Is(err, model.ErrForbidden) {
		t.Fatalf("non-admin create: want ErrForbidden, got %v", err)
	}

	u, err := svc.CreateUser(ctx, admin, "Eve", "Eve@Example.COM", "")
	if err != nil {
		t.Fatalf("admin create: %v", err)
	}
	if u.Email != "eve@example.com" {
		t.Fatalf("email not lowercased: %q", u.Email)
	}
	if u.Role != model.RoleUser || !u.Active {
		t.Fatalf("unexpected defaults: %+v", u)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	_, svc, admin, _ := newUserWorld(t)

	if _, err := svc.CreateUser(context.Background(), admin, "Copy", "regular@example.com", ""); !errors.Is(err, model.ErrAlreadyExists) {
		t.Fatalf("duplicate email: want ErrAlreadyExists, got %v", err)
	}
}

func TestUpdateUserDeactivation(t *testing.T) {
	_, svc, admin, regular := newUserWorld(t)
	ctx := context.Background()

	if _, err := svc.UpdateUser(ctx, regular, "admin", nil, nil); !errors.Is(err, model.ErrForbidden) {
		t.Fatalf("non-admin update: want ErrForbidden, got %v", err)
	}
	if _, err := svc.UpdateUser(ctx, admin, "regular", nil, nil); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("empty update: want ErrInvalidInput, got %v", err)
	}

	inactive := false
	u, err := svc.UpdateUser(ctx, admin, "regular", nil, &inactive)
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if u.Active {
		t.Fatal("user still active after deactivation")
	}
}

func TestListUsersAdminOnly(t *testing.T) {
	_, svc, admin, regular := newUserWorld(t)
	ctx := context.Background()

	if _, _, err := svc.ListUsers(ctx, regular, 10, 0); !errors.Is(err, model.ErrForbidden) {
		t.Fatalf("non-admin list: want ErrForbidden, got %v", err)
	}
	users, page, err := svc.ListUsers(ctx, admin, 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 2 || page.Total != 2 {
		t.Fatalf("list: n=%d total=%d", len(users), page.Total)
	}
}
