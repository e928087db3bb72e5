package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/memspace/memspace/internal/model"
	"github.com/memspace/memspace/internal/store"
)

type memories struct{ db *sql.DB }

// spacesAgg collapses the memory's space associations into a JSON array so a
// single row carries the full projection.
const spacesAgg = `COALESCE(
    json_agg(json_build_object('id', sp.id, 'name', sp.name))
        FILTER (WHERE sp.id IS NOT NULL),
    '[]'::json
)`

func (m *memories) Create(ctx context.Context, mm *model.Memory, spaceIDs []string) (*model.Memory, error) {
	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	metaJSON, err := json.Marshal(mm.Metadata)
	if err != nil {
		return nil, err
	}

	var created, updated time.Time
	row := tx.QueryRowContext(ctx, `
        INSERT INTO memories (id, content, embedding, metadata, user_id, api_key_id)
        VALUES ($1,$2,$3::vector,$4,$5,$6)
        RETURNING created_at, updated_at
    `, mm.ID, mm.Content, vectorLiteral(mm.Embedding), nullIfEmpty(metaJSON), mm.UserID, mm.ApiKeyID)
	if err := row.Scan(&created, &updated); err != nil {
		return nil, err
	}

	var refs []model.SpaceRef
	for _, spaceID := range spaceIDs {
		var ref model.SpaceRef
		if err := tx.QueryRowContext(ctx, `SELECT id, name FROM spaces WHERE id=$1`, spaceID).Scan(&ref.ID, &ref.Name); err != nil {
			return nil, notFound(err)
		}
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO memory_spaces (memory_id, space_id) VALUES ($1,$2)
        `, mm.ID, spaceID); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	out := *mm
	out.Spaces = refs
	out.CreatedAt = created
	out.UpdatedAt = updated
	return &out, nil
}

func (m *memories) Get(ctx context.Context, memoryID string) (*model.Memory, error) {
	var out model.Memory
	var metaJSON, spacesJSON []byte
	var embText string
	row := m.db.QueryRowContext(ctx, `
        SELECT m.id, m.content, m.embedding::text, m.metadata, m.user_id, m.api_key_id,
               m.created_at, m.updated_at, `+spacesAgg+`
        FROM memories m
        LEFT JOIN memory_spaces ms ON ms.memory_id = m.id
        LEFT JOIN spaces sp ON sp.id = ms.space_id
        WHERE m.id=$1
        GROUP BY m.id
    `, memoryID)
	if err := row.Scan(&out.ID, &out.Content, &embText, &metaJSON, &out.UserID, &out.ApiKeyID,
		&out.CreatedAt, &out.UpdatedAt, &spacesJSON); err != nil {
		return nil, notFound(err)
	}
	if err := finishMemory(&out, embText, metaJSON, spacesJSON); err != nil {
		return nil, err
	}
	return &out, nil
}

func (m *memories) List(ctx context.Context, req store.ListMemoriesRequest) ([]*model.Memory, int, error) {
	cond, args := scopeCondition(req.Scope, 1)

	var total int
	countQuery := `SELECT count(*) FROM memories m WHERE ` + cond
	if err := m.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := "DESC"
	if req.Order == model.SortAsc {
		order = "ASC"
	}
	query := fmt.Sprintf(`
        SELECT m.id, m.content, m.metadata, m.user_id, m.api_key_id,
               m.created_at, m.updated_at, %s
        FROM memories m
        LEFT JOIN memory_spaces ms ON ms.memory_id = m.id
        LEFT JOIN spaces sp ON sp.id = ms.space_id
        WHERE %s
        GROUP BY m.id
        ORDER BY m.created_at %s, m.id %s
        LIMIT $%d OFFSET $%d
    `, spacesAgg, cond, order, order, len(args)+1, len(args)+2)
	args = append(args, req.Limit, req.Offset)

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	var out []*model.Memory
	for rows.Next() {
		var mm model.Memory
		var metaJSON, spacesJSON []byte
		if err := rows.Scan(&mm.ID, &mm.Content, &metaJSON, &mm.UserID, &mm.ApiKeyID,
			&mm.CreatedAt, &mm.UpdatedAt, &spacesJSON); err != nil {
			return nil, 0, err
		}
		if err := finishMemory(&mm, "", metaJSON, spacesJSON); err != nil {
			return nil, 0, err
		}
		out = append(out, &mm)
	}
	return out, total, rows.Err()
}

func (m *memories) Search(ctx context.Context, req store.SearchMemoriesRequest) ([]*model.SearchResult, int, error) {
	// Similarity is computed in SQL against the pgvector cosine distance
	// operator; the floor is applied in the WHERE clause so excluded rows
	// never reach ranking or the total count.
	sim := "1 - (m.embedding <=> $1::vector)"
	args := []interface{}{vectorLiteral(req.Vector), req.Floor}
	cond, scopeArgs := scopeCondition(req.Scope, 3)
	args = append(args, scopeArgs...)

	var total int
	countQuery := fmt.Sprintf(`SELECT count(*) FROM memories m WHERE %s > $2 AND %s`, sim, cond)
	if err := m.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
        SELECT m.id, m.content, m.metadata, m.user_id, m.api_key_id,
               m.created_at, m.updated_at, %s AS similarity, %s
        FROM memories m
        LEFT JOIN memory_spaces ms ON ms.memory_id = m.id
        LEFT JOIN spaces sp ON sp.id = ms.space_id
        WHERE %s > $2 AND %s
        GROUP BY m.id
        ORDER BY similarity DESC, m.created_at ASC, m.id ASC
        LIMIT $%d OFFSET $%d
    `, sim, spacesAgg, sim, cond, len(args)+1, len(args)+2)
	args = append(args, req.Limit, req.Offset)

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	var out []*model.SearchResult
	for rows.Next() {
		var r model.SearchResult
		var metaJSON, spacesJSON []byte
		if err := rows.Scan(&r.ID, &r.Content, &metaJSON, &r.UserID, &r.ApiKeyID,
			&r.CreatedAt, &r.UpdatedAt, &r.Similarity, &spacesJSON); err != nil {
			return nil, 0, err
		}
		if err := finishMemory(&r.Memory, "", metaJSON, spacesJSON); err != nil {
			return nil, 0, err
		}
		out = append(out, &r)
	}
	return out, total, rows.Err()
}

func (m *memories) Update(ctx context.Context, memoryID string, content *string, embedding []float32, metadata map[string]interface{}) (*model.Memory, error) {
	sets := []string{"updated_at = now()"}
	args := []interface{}{memoryID}

	if content != nil {
		// Content and embedding move together; the store never accepts one
		// without the other.
		if len(embedding) == 0 {
			return nil, fmt.Errorf("%w: content update without embedding", model.ErrInvalidInput)
		}
		args = append(args, *content)
		sets = append(sets, fmt.Sprintf("content = $%d", len(args)))
		args = append(args, vectorLiteral(embedding))
		sets = append(sets, fmt.Sprintf("embedding = $%d::vector", len(args)))
	}
	if metadata != nil {
		metaJSON, err := json.Marshal(metadata)
		if err != nil {
			return nil, err
		}
		args = append(args, metaJSON)
		sets = append(sets, fmt.Sprintf("metadata = $%d", len(args)))
	}

	res, err := m.db.ExecContext(ctx, fmt.Sprintf(`UPDATE memories SET %s WHERE id=$1`, strings.Join(sets, ", ")), args...)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, model.ErrNotFound
	}
	return m.Get(ctx, memoryID)
}

func (m *memories) Delete(ctx context.Context, memoryID string) error {
	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Access log rows are retained for audit; only the associations and the
	// memory itself go away.
	if _, err := tx.ExecContext(ctx, `DELETE FROM memory_spaces WHERE memory_id=$1`, memoryID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM memories WHERE id=$1`, memoryID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return tx.Commit()
}

// scopeCondition renders the visibility filter as a WHERE fragment with
// placeholders starting at argIndex.
func scopeCondition(scope store.MemoryScope, argIndex int) (string, []interface{}) {
	switch scope.Kind {
	case store.ScopeSpaces:
		if len(scope.SpaceIDs) == 0 {
			return "FALSE", nil
		}
		ph := make([]string, len(scope.SpaceIDs))
		args := make([]interface{}, len(scope.SpaceIDs))
		for i, id := range scope.SpaceIDs {
			ph[i] = fmt.Sprintf("$%d", argIndex+i)
			args[i] = id
		}
		cond := fmt.Sprintf(`m.id IN (SELECT memory_id FROM memory_spaces WHERE space_id IN (%s))`, strings.Join(ph, ","))
		return cond, args
	case store.ScopeUser:
		cond := fmt.Sprintf(`(m.user_id = $%d OR m.id IN (
            SELECT memory_id FROM memory_spaces
            WHERE space_id IN (SELECT space_id FROM space_members WHERE user_id = $%d)
        ))`, argIndex, argIndex)
		return cond, []interface{}{scope.UserID}
	default:
		return "TRUE", nil
	}
}

func finishMemory(mm *model.Memory, embText string, metaJSON, spacesJSON []byte) error {
	if embText != "" {
		vec, err := parseVector(embText)
		if err != nil {
			return err
		}
		mm.Embedding = vec
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &mm.Metadata); err != nil {
			return err
		}
	}
	mm.Spaces = []model.SpaceRef{}
	if len(spacesJSON) > 0 {
		if err := json.Unmarshal(spacesJSON, &mm.Spaces); err != nil {
			return err
		}
	}
	return nil
}

func nullIfEmpty(b []byte) interface{} {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	return b
}
