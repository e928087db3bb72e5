package postgres

import (
	"context"
	"database/sql"

	"github.com/memspace/memspace/internal/model"
)

type accessLogs struct{ db *sql.DB }

func (a *accessLogs) Insert(ctx context.Context, memoryID string, apiKeyID string) error {
	var key interface{}
	if apiKeyID != "" {
		key = apiKeyID
	}
	_, err := a.db.ExecContext(ctx, `
        INSERT INTO memory_access_logs (memory_id, api_key_id) VALUES ($1,$2)
    `, memoryID, key)
	return err
}

func (a *accessLogs) ListByMemory(ctx context.Context, memoryID string, limit, offset int) ([]*model.AccessLogEntry, int, error) {
	var total int
	if err := a.db.QueryRowContext(ctx, `
        SELECT count(*) FROM memory_access_logs WHERE memory_id=$1
    `, memoryID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := a.db.QueryContext(ctx, `
        SELECT id, memory_id, api_key_id, accessed_at
        FROM memory_access_logs
        WHERE memory_id=$1
        ORDER BY accessed_at DESC, id DESC
        LIMIT $2 OFFSET $3
    `, memoryID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	var out []*model.AccessLogEntry
	for rows.Next() {
		var e model.AccessLogEntry
		if err := rows.Scan(&e.ID, &e.MemoryID, &e.ApiKeyID, &e.AccessedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, &e)
	}
	return out, total, rows.Err()
}
