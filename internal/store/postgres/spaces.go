package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/memspace/memspace/internal/model"
	"github.com/memspace/memspace/internal/pagination"
)

type spaces struct{ db *sql.DB }

func (s *spaces) Create(ctx context.Context, sp *model.Space) (*model.Space, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var created, updated time.Time
	row := tx.QueryRowContext(ctx, `
        INSERT INTO spaces (id, name, description, created_by)
        VALUES ($1,$2,$3,$4)
        RETURNING created_at, updated_at
    `, sp.ID, sp.Name, sp.Description, sp.CreatedBy)
	if err := row.Scan(&created, &updated); err != nil {
		return nil, err
	}

	// Creator membership in the same transaction: a space is never without
	// its owner as a member.
	if _, err := tx.ExecContext(ctx, `
        INSERT INTO space_members (space_id, user_id) VALUES ($1,$2)
    `, sp.ID, sp.CreatedBy); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	out := *sp
	out.CreatedAt = created
	out.UpdatedAt = updated
	return &out, nil
}

func (s *spaces) Get(ctx context.Context, spaceID string) (*model.Space, error) {
	var out model.Space
	row := s.db.QueryRowContext(ctx, `
        SELECT id, name, description, created_by, created_at, updated_at
        FROM spaces WHERE id=$1
    `, spaceID)
	if err := row.Scan(&out.ID, &out.Name, &out.Description, &out.CreatedBy, &out.CreatedAt, &out.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	return &out, nil
}

func (s *spaces) ListForUser(ctx context.Context, userID string) ([]*model.Space, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT sp.id, sp.name, sp.description, sp.created_by, sp.created_at, sp.updated_at
        FROM spaces sp
        JOIN space_members sm ON sm.space_id = sp.id
        WHERE sm.user_id=$1
        ORDER BY sp.created_at ASC
    `, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*model.Space
	for rows.Next() {
		var m model.Space
		if err := rows.Scan(&m.ID, &m.Name, &m.Description, &m.CreatedBy, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (s *spaces) Update(ctx context.Context, spaceID string, name, description *string) (*model.Space, error) {
	var out model.Space
	row := s.db.QueryRowContext(ctx, `
        UPDATE spaces
        SET name = COALESCE($2, name),
            description = COALESCE($3, description),
            updated_at = now()
        WHERE id=$1
        RETURNING id, name, description, created_by, created_at, updated_at
    `, spaceID, name, description)
	if err := row.Scan(&out.ID, &out.Name, &out.Description, &out.CreatedBy, &out.CreatedAt, &out.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	return &out, nil
}

func (s *spaces) Delete(ctx context.Context, spaceID string) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM space_members WHERE space_id=$1`, spaceID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM api_key_spaces WHERE space_id=$1`, spaceID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM memory_spaces WHERE space_id=$1`, spaceID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM spaces WHERE id=$1`, spaceID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return tx.Commit()
}

func (s *spaces) AddMember(ctx context.Context, spaceID, userID string) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO space_members (space_id, user_id) VALUES ($1,$2)
    `, spaceID, userID)
	if isUniqueViolation(err) {
		return model.ErrAlreadyMember
	}
	return err
}

func (s *spaces) RemoveMember(ctx context.Context, spaceID, userID string) error {
	res, err := s.db.ExecContext(ctx, `
        DELETE FROM space_members WHERE space_id=$1 AND user_id=$2
    `, spaceID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (s *spaces) IsMember(ctx context.Context, spaceID, userID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
        SELECT 1 FROM space_members WHERE space_id=$1 AND user_id=$2
    `, spaceID, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *spaces) MemberSpaceIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT space_id FROM space_members WHERE user_id=$1
    `, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *spaces) ListMembers(ctx context.Context, spaceID string, cursor *pagination.Cursor, limit int) ([]*model.SpaceMember, error) {
	// Keyset pagination on (created_at DESC, user id DESC) keeps pages stable
	// under concurrent inserts. The derived role is computed against the
	// space's created_by column.
	query := `
        SELECT u.id, u.name, u.email, u.created_at,
               CASE WHEN sp.created_by = u.id THEN 'owner' ELSE 'member' END AS space_role
        FROM space_members sm
        JOIN users u ON u.id = sm.user_id
        JOIN spaces sp ON sp.id = sm.space_id
        WHERE sm.space_id=$1`
	args := []interface{}{spaceID}
	if cursor != nil {
		query += ` AND (u.created_at < $2 OR (u.created_at = $2 AND u.id < $3))`
		args = append(args, cursor.CreatedAt, cursor.ID)
	}
	query += ` ORDER BY u.created_at DESC, u.id DESC`
	if cursor != nil {
		query += ` LIMIT $4`
	} else {
		query += ` LIMIT $2`
	}
	args = append(args, limit+1)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*model.SpaceMember
	for rows.Next() {
		var m model.SpaceMember
		if err := rows.Scan(&m.UserID, &m.Name, &m.Email, &m.CreatedAt, &m.SpaceRole); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}
