package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/memspace/memspace/internal/model"
)

type invites struct{ db *sql.DB }

func (i *invites) Create(ctx context.Context, inv *model.Invite) (*model.Invite, error) {
	var created time.Time
	row := i.db.QueryRowContext(ctx, `
        INSERT INTO invites (id, token, email, role, expires_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING created_at
    `, inv.ID, inv.Token, inv.Email, inv.Role, inv.ExpiresAt)
	if err := row.Scan(&created); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: invite token", model.ErrAlreadyExists)
		}
		return nil, err
	}
	out := *inv
	out.Status = model.InvitePending
	out.CreatedAt = created
	return &out, nil
}

func (i *invites) GetByToken(ctx context.Context, token string) (*model.Invite, error) {
	var out model.Invite
	row := i.db.QueryRowContext(ctx, `
        SELECT id, token, email, role, status, expires_at, created_at
        FROM invites WHERE token=$1
    `, token)
	if err := row.Scan(&out.ID, &out.Token, &out.Email, &out.Role, &out.Status, &out.ExpiresAt, &out.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	return &out, nil
}

func (i *invites) MarkUsed(ctx context.Context, inviteID string) error {
	res, err := i.db.ExecContext(ctx, `
        UPDATE invites SET status=$2 WHERE id=$1 AND status=$3
    `, inviteID, model.InviteUsed, model.InvitePending)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}
