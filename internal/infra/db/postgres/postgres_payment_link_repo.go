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

var _ repository.PaymentLinkRepository = (*paymentLinkRepo)(nil)

type paymentLinkRepo struct{ pool *pgxpool.Pool }

func NewPaymentLinkRepo(pool *pgxpool.Pool) *paymentLinkRepo {
	return &paymentLinkRepo{pool: pool}
}

const linkColumns = `link_id, order_id, user_id, amount, provider, status, created_at, expires_at`

func (r *paymentLinkRepo) Save(ctx context.Context, tx repository.Tx, l *model.PaymentLink) error {
	const q = `
INSERT INTO payment_links (link_id, order_id, user_id, amount, provider, status, created_at, expires_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (link_id) DO UPDATE SET status=EXCLUDED.status;`

	_, err := execSQL(ctx, r.pool, tx, q, l.LinkID, l.OrderID, l.UserID, l.Amount, l.Provider, l.Status, l.CreatedAt, l.ExpiresAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentLinkRepo) FindByID(ctx context.Context, tx repository.Tx, linkOrOrderID string) (*model.PaymentLink, error) {
	q := `SELECT ` + linkColumns + ` FROM payment_links WHERE link_id=$1 OR order_id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, linkOrOrderID)
	if err != nil {
		return nil, err
	}

	l := &model.PaymentLink{}
	if err := row.Scan(&l.LinkID, &l.OrderID, &l.UserID, &l.Amount, &l.Provider, &l.Status, &l.CreatedAt, &l.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return l, nil
}

func (r *paymentLinkRepo) UpdateStatusIf(ctx context.Context, tx repository.Tx, linkID string, from, to model.LinkStatus) (bool, error) {
	const q = `UPDATE payment_links SET status=$3 WHERE link_id=$1 AND status=$2;`
	cmd, err := execSQL(ctx, r.pool, tx, q, linkID, from, to)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *paymentLinkRepo) ExpirePendingBefore(ctx context.Context, tx repository.Tx, cutoff time.Time) (int, error) {
	const q = `UPDATE payment_links SET status='expired' WHERE status='pending' AND expires_at < $1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, cutoff)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return 0, err
		}
		return 0, domain.ErrOperationFailed
	}
	return int(cmd.RowsAffected()), nil
}
