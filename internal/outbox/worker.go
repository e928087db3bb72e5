package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/rs/zerolog"

	"github.com/memspace/memspace/internal/store"
)

const (
	selectReadyRowsSQL = `
SELECT id, op, payload
FROM outbox
WHERE status = 'pending' AND next_attempt_at <= now()
ORDER BY id ASC
FOR UPDATE SKIP LOCKED
LIMIT $1`

	markDoneSQL = `UPDATE outbox SET status='done', updated_at=now() WHERE id=$1`

	// Exponential backoff capped at 5 minutes. Rows past the attempt budget
	// flip to 'dead' and stop being leased.
	markFailedSQL = `
UPDATE outbox
SET attempt_count = attempt_count + 1,
    status = CASE WHEN attempt_count + 1 >= $2 THEN 'dead' ELSE status END,
    next_attempt_at = now() + make_interval(secs => LEAST(POWER(2, attempt_count+1), 300)),
    updated_at = now()
WHERE id=$1`
)

// Config controls batch size, polling cadence and the retry budget.
type Config struct {
	BatchSize   int
	Interval    time.Duration
	MaxAttempts int
}

// Worker drains outbox rows into memory_access_logs.
type Worker struct {
	db   *sql.DB
	logs store.AccessLogs
	cfg  Config
	log  zerolog.Logger
}

func NewWorker(db *sql.DB, logs store.AccessLogs, cfg Config, log zerolog.Logger) *Worker {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 8
	}
	return &Worker{db: db, logs: logs, cfg: cfg, log: log}
}

// Run polls until ctx is canceled.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info().Int("batch", w.cfg.BatchSize).Dur("interval", w.cfg.Interval).Msg("access-log worker starting")
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("access-log worker stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := w.ProcessOnce(ctx); err != nil {
				// Log and continue; per-row backoff prevents hot-looping.
				w.log.Error().Err(err).Msg("outbox processOnce")
			}
		}
	}
}

type job struct {
	id      int64
	op      string
	payload []byte
}

// ProcessOnce leases one batch and applies it. Exported so tests and the
// worker binary's drain mode can step the pipeline without the ticker.
func (w *Worker) ProcessOnce(ctx context.Context) error {
	tx, err := w.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	jobs, err := w.leaseBatch(ctx, tx, w.cfg.BatchSize)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return tx.Commit()
	}

	for _, j := range jobs {
		if err := w.handle(ctx, j); err != nil {
			w.log.Warn().Err(err).Int64("id", j.id).Str("op", j.op).Msg("outbox job failed")
			if e := w.markFailed(ctx, tx, j.id); e != nil {
				w.log.Error().Err(e).Int64("id", j.id).Msg("markFailed error")
			}
			continue
		}
		if e := w.markDone(ctx, tx, j.id); e != nil {
			w.log.Error().Err(e).Int64("id", j.id).Msg("markDone error")
		}
	}

	return tx.Commit()
}

func (w *Worker) leaseBatch(ctx context.Context, tx *sql.Tx, batchSize int) ([]job, error) {
	rows, err := tx.QueryContext(ctx, selectReadyRowsSQL, batchSize)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var jobs []job
	for rows.Next() {
		var j job
		if err := rows.Scan(&j.id, &j.op, &j.payload); err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (w *Worker) handle(ctx context.Context, j job) error {
	switch j.op {
	case OpRecordAccess:
		var p accessPayload
		if err := json.Unmarshal(j.payload, &p); err != nil {
			// Poison pill: fails every attempt and eventually goes dead.
			return errors.New("bad payload")
		}
		keyID := ""
		if p.ApiKeyID != nil {
			keyID = *p.ApiKeyID
		}
		for _, memoryID := range p.MemoryIDs {
			if err := w.logs.Insert(ctx, memoryID, keyID); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown op: %s", j.op)
	}
}

func (w *Worker) markDone(ctx context.Context, tx *sql.Tx, id int64) error {
	_, err := tx.ExecContext(ctx, markDoneSQL, id)
	return err
}

func (w *Worker) markFailed(ctx context.Context, tx *sql.Tx, id int64) error {
	_, err := tx.ExecContext(ctx, markFailedSQL, id, w.cfg.MaxAttempts)
	return err
}
