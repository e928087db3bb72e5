// Package postgres implements store.Store on PostgreSQL with the pgvector
// extension, using the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/memspace/memspace/internal/model"
	"github.com/memspace/memspace/internal/store"
)

// Open opens a PostgreSQL connection using the pgx stdlib driver and verifies
// connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// NewWithDB constructs a native Postgres store backed directly by database/sql.
func NewWithDB(db *sql.DB) store.Store { return &pgStore{db: db} }

type pgStore struct{ db *sql.DB }

func (s *pgStore) Users() store.Users           { return &users{db: s.db} }
func (s *pgStore) Spaces() store.Spaces         { return &spaces{db: s.db} }
func (s *pgStore) ApiKeys() store.ApiKeys       { return &apiKeys{db: s.db} }
func (s *pgStore) Memories() store.Memories     { return &memories{db: s.db} }
func (s *pgStore) AccessLogs() store.AccessLogs { return &accessLogs{db: s.db} }
func (s *pgStore) Invites() store.Invites       { return &invites{db: s.db} }

// HealthPing implements health.HealthPinger for the Postgres-backed store.
func (s *pgStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// notFound maps driver-level absence onto the model error taxonomy.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}
	return err
}

// isUniqueViolation reports whether err is a Postgres unique constraint error.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// --- Users ---

type users struct{ db *sql.DB }

func (u *users) Create(ctx context.Context, m *model.User) (*model.User, error) {
	var created, updated time.Time
	row := u.db.QueryRowContext(ctx, `
        INSERT INTO users (id, name, email, role, active)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING created_at, updated_at
    `, m.ID, m.Name, m.Email, m.Role, m.Active)
	if err := row.Scan(&created, &updated); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: email %s", model.ErrAlreadyExists, m.Email)
		}
		return nil, err
	}
	out := *m
	out.CreatedAt = created
	out.UpdatedAt = updated
	return &out, nil
}

func (u *users) Get(ctx context.Context, userID string) (*model.User, error) {
	return u.scanOne(u.db.QueryRowContext(ctx, `
        SELECT id, name, email, role, active, created_at, updated_at
        FROM users WHERE id=$1
    `, userID))
}

func (u *users) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return u.scanOne(u.db.QueryRowContext(ctx, `
        SELECT id, name, email, role, active, created_at, updated_at
        FROM users WHERE email=$1
    `, email))
}

func (u *users) scanOne(row *sql.Row) (*model.User, error) {
	var out model.User
	if err := row.Scan(&out.ID, &out.Name, &out.Email, &out.Role, &out.Active, &out.CreatedAt, &out.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	return &out, nil
}

func (u *users) List(ctx context.Context, limit, offset int) ([]*model.User, int, error) {
	var total int
	if err := u.db.QueryRowContext(ctx, `SELECT count(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := u.db.QueryContext(ctx, `
        SELECT id, name, email, role, active, created_at, updated_at
        FROM users ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2
    `, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	var out []*model.User
	for rows.Next() {
		var m model.User
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Role, &m.Active, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, &m)
	}
	return out, total, rows.Err()
}

func (u *users) Update(ctx context.Context, userID string, role *model.Role, active *bool) (*model.User, error) {
	if role == nil && active == nil {
		return nil, fmt.Errorf("%w: no fields to update", model.ErrInvalidInput)
	}
	var out model.User
	row := u.db.QueryRowContext(ctx, `
        UPDATE users
        SET role = COALESCE($2, role),
            active = COALESCE($3, active),
            updated_at = now()
        WHERE id=$1
        RETURNING id, name, email, role, active, created_at, updated_at
    `, userID, role, active)
	if err := row.Scan(&out.ID, &out.Name, &out.Email, &out.Role, &out.Active, &out.CreatedAt, &out.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	return &out, nil
}
