package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"chat-billing/internal/domain"
	"chat-billing/internal/domain/model"
	"chat-billing/internal/domain/ports/repository"
)

var _ repository.BalanceRepository = (*balanceRepo)(nil)

// balanceRepo stores the three buckets as authoritative columns. Every move is
// a single conditional UPDATE so the source bucket can never go negative and
// the bucket sum is preserved by construction.
type balanceRepo struct{ pool *pgxpool.Pool }

func NewBalanceRepo(pool *pgxpool.Pool) *balanceRepo {
	return &balanceRepo{pool: pool}
}

func (r *balanceRepo) FindByUser(ctx context.Context, tx repository.Tx, userID string) (*model.BalanceAccount, error) {
	const q = `SELECT user_id, available, pending, withdrawn, updated_at FROM balance_accounts WHERE user_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}

	b := &model.BalanceAccount{}
	if err := row.Scan(&b.UserID, &b.Available, &b.Pending, &b.Withdrawn, &b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// No deposits yet: an empty account, not an error.
			return &model.BalanceAccount{UserID: userID}, nil
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return b, nil
}

func (r *balanceRepo) MoveAvailableToPending(ctx context.Context, tx repository.Tx, userID string, amount int64) (bool, error) {
	const q = `
UPDATE balance_accounts
   SET available = available - $2, pending = pending + $2, updated_at = NOW()
 WHERE user_id = $1 AND available >= $2;`
	return r.move(ctx, tx, q, userID, amount)
}

func (r *balanceRepo) MovePendingToAvailable(ctx context.Context, tx repository.Tx, userID string, amount int64) (bool, error) {
	const q = `
UPDATE balance_accounts
   SET pending = pending - $2, available = available + $2, updated_at = NOW()
 WHERE user_id = $1 AND pending >= $2;`
	return r.move(ctx, tx, q, userID, amount)
}

func (r *balanceRepo) MovePendingToWithdrawn(ctx context.Context, tx repository.Tx, userID string, amount int64) (bool, error) {
	const q = `
UPDATE balance_accounts
   SET pending = pending - $2, withdrawn = withdrawn + $2, updated_at = NOW()
 WHERE user_id = $1 AND pending >= $2;`
	return r.move(ctx, tx, q, userID, amount)
}

func (r *balanceRepo) move(ctx context.Context, tx repository.Tx, q, userID string, amount int64) (bool, error) {
	if amount <= 0 {
		return false, domain.ErrInvalidArgument
	}
	cmd, err := execSQL(ctx, r.pool, tx, q, userID, amount)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}
