// Package outbox implements the asynchronous access-log pipeline. Read paths
// enqueue a single outbox row per request; a separate worker drains the table
// into memory_access_logs with retries and backoff.
package outbox

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
)

// OpRecordAccess is the only operation the access-log pipeline carries. One
// row covers every memory a request returned.
const OpRecordAccess = "record_access"

// accessPayload is the outbox payload for OpRecordAccess.
type accessPayload struct {
	MemoryIDs []string `json:"memoryIds"`
	ApiKeyID  *string  `json:"apiKeyId,omitempty"`
}

// Enqueuer records that a set of memories was read. Implementations must be
// cheap; callers invoke this on the hot read path and ignore failures.
type Enqueuer interface {
	EnqueueAccessRecords(ctx context.Context, memoryIDs []string, apiKeyID *string) error
}

// PostgresEnqueuer writes outbox rows through the service's own database so a
// read and its access record share infrastructure without sharing latency.
type PostgresEnqueuer struct {
	db *sql.DB
}

func NewPostgresEnqueuer(db *sql.DB) *PostgresEnqueuer {
	return &PostgresEnqueuer{db: db}
}

func (e *PostgresEnqueuer) EnqueueAccessRecords(ctx context.Context, memoryIDs []string, apiKeyID *string) error {
	if len(memoryIDs) == 0 {
		return nil
	}
	payload, err := json.Marshal(accessPayload{MemoryIDs: memoryIDs, ApiKeyID: apiKeyID})
	if err != nil {
		return err
	}
	_, err = e.db.ExecContext(ctx, `
        INSERT INTO outbox (aggregate_id, op, payload) VALUES ($1,$2,$3)
    `, uuid.NewString(), OpRecordAccess, payload)
	return err
}

// NoopEnqueuer drops access records. Used where the pipeline is not wired,
// e.g. the standalone worker binary's own reads.
type NoopEnqueuer struct{}

func (NoopEnqueuer) EnqueueAccessRecords(context.Context, []string, *string) error { return nil }
