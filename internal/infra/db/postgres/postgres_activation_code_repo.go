package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"chat-billing/internal/domain"
	"chat-billing/internal/domain/model"
	"chat-billing/internal/domain/ports/repository"
)

// Ensure implementation satisfies the interface.
var _ repository.ActivationCodeRepository = (*activationCodeRepo)(nil)

type activationCodeRepo struct{ pool *pgxpool.Pool }

func NewActivationCodeRepo(pool *pgxpool.Pool) *activationCodeRepo {
	return &activationCodeRepo{pool: pool}
}

// SaveIfVacant races concurrent generators on the partial unique index over
// (date_trunc('month', created_at)) WHERE status='pending': exactly one insert
// per calendar month lands, the rest see zero rows affected.
func (r *activationCodeRepo) SaveIfVacant(ctx context.Context, tx repository.Tx, code *model.ActivationCode) (bool, error) {
	const q = `
INSERT INTO activation_codes (id, code, status, used_by_user_id, created_at, expires_at, admin_note)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (DATE_TRUNC('month', created_at)) WHERE status = 'pending' DO NOTHING;`

	cmd, err := execSQL(ctx, r.pool, tx, q,
		code.ID, code.Code, code.Status, code.UsedByUserID, code.CreatedAt, code.ExpiresAt, code.AdminNote)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

// FindPendingForMonth keys the one-active-code-per-month invariant: the lookup
// is by calendar month of created_at, pending status and a live expiry.
func (r *activationCodeRepo) FindPendingForMonth(ctx context.Context, tx repository.Tx, at time.Time) (*model.ActivationCode, error) {
	const q = `
SELECT id, code, status, used_by_user_id, created_at, expires_at, admin_note
  FROM activation_codes
 WHERE status = 'pending'
   AND expires_at > $1
   AND DATE_TRUNC('month', created_at) = DATE_TRUNC('month', $1::timestamptz)
 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, at)
	if err != nil {
		return nil, err
	}

	var ac model.ActivationCode
	if err := row.Scan(&ac.ID, &ac.Code, &ac.Status, &ac.UsedByUserID, &ac.CreatedAt, &ac.ExpiresAt, &ac.AdminNote); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &ac, nil
}

func (r *activationCodeRepo) MarkUsed(ctx context.Context, tx repository.Tx, code string, userID string, at time.Time) (bool, error) {
	const q = `
UPDATE activation_codes SET status='used', used_by_user_id=$2
 WHERE code=$1 AND status='pending' AND expires_at > $3;`
	cmd, err := execSQL(ctx, r.pool, tx, q, code, userID, at)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}
