package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/memspace/memspace/internal/model"
)

type apiKeys struct{ db *sql.DB }

func (a *apiKeys) Create(ctx context.Context, k *model.ApiKey, keyHash string, spaceIDs []string) (*model.ApiKey, error) {
	tx, err := a.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var created time.Time
	row := tx.QueryRowContext(ctx, `
        INSERT INTO api_keys (id, key_hash, name, status, user_id)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING created_at
    `, k.ID, keyHash, k.Name, model.ApiKeyActive, k.UserID)
	if err := row.Scan(&created); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: api key", model.ErrAlreadyExists)
		}
		return nil, err
	}

	for _, spaceID := range spaceIDs {
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO api_key_spaces (api_key_id, space_id) VALUES ($1,$2)
        `, k.ID, spaceID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	out := *k
	out.Status = model.ApiKeyActive
	out.SpaceIDs = spaceIDs
	out.CreatedAt = created
	return &out, nil
}

func (a *apiKeys) Get(ctx context.Context, keyID string) (*model.ApiKey, error) {
	var out model.ApiKey
	row := a.db.QueryRowContext(ctx, `
        SELECT id, name, status, user_id, created_at, last_used_at
        FROM api_keys WHERE id=$1
    `, keyID)
	if err := row.Scan(&out.ID, &out.Name, &out.Status, &out.UserID, &out.CreatedAt, &out.LastUsedAt); err != nil {
		return nil, notFound(err)
	}
	return &out, nil
}

func (a *apiKeys) GetActiveByHash(ctx context.Context, keyHash string) (*model.ApiKey, error) {
	var out model.ApiKey
	row := a.db.QueryRowContext(ctx, `
        SELECT id, name, status, user_id, created_at, last_used_at
        FROM api_keys WHERE key_hash=$1 AND status=$2
    `, keyHash, model.ApiKeyActive)
	if err := row.Scan(&out.ID, &out.Name, &out.Status, &out.UserID, &out.CreatedAt, &out.LastUsedAt); err != nil {
		return nil, notFound(err)
	}
	return &out, nil
}

func (a *apiKeys) ListByUser(ctx context.Context, userID string) ([]*model.ApiKey, error) {
	rows, err := a.db.QueryContext(ctx, `
        SELECT k.id, k.name, k.status, k.user_id, k.created_at, k.last_used_at,
               COALESCE(json_agg(ks.space_id) FILTER (WHERE ks.space_id IS NOT NULL), '[]'::json)
        FROM api_keys k
        LEFT JOIN api_key_spaces ks ON ks.api_key_id = k.id
        WHERE k.user_id=$1
        GROUP BY k.id
        ORDER BY k.created_at ASC
    `, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*model.ApiKey
	for rows.Next() {
		var m model.ApiKey
		var grants []byte
		if err := rows.Scan(&m.ID, &m.Name, &m.Status, &m.UserID, &m.CreatedAt, &m.LastUsedAt, &grants); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(grants, &m.SpaceIDs); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (a *apiKeys) Revoke(ctx context.Context, keyID, userID string) error {
	res, err := a.db.ExecContext(ctx, `
        UPDATE api_keys SET status=$3 WHERE id=$1 AND user_id=$2
    `, keyID, userID, model.ApiKeyRevoked)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (a *apiKeys) Delete(ctx context.Context, keyID, userID string) error {
	tx, err := a.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Memories outlive the key that created them.
	if _, err := tx.ExecContext(ctx, `
        UPDATE memories SET api_key_id=NULL WHERE api_key_id=$1
    `, keyID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM api_key_spaces WHERE api_key_id=$1`, keyID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM api_keys WHERE id=$1 AND user_id=$2`, keyID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return tx.Commit()
}

func (a *apiKeys) TouchLastUsed(ctx context.Context, keyID string) error {
	_, err := a.db.ExecContext(ctx, `UPDATE api_keys SET last_used_at=now() WHERE id=$1`, keyID)
	return err
}

func (a *apiKeys) GrantedSpaceIDs(ctx context.Context, keyID string) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, `
        SELECT space_id FROM api_key_spaces WHERE api_key_id=$1
    `, keyID)
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

func (a *apiKeys) HasSpaceGrant(ctx context.Context, keyID, spaceID string) (bool, error) {
	var one int
	err := a.db.QueryRowContext(ctx, `
        SELECT 1 FROM api_key_spaces WHERE api_key_id=$1 AND space_id=$2
    `, keyID, spaceID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
