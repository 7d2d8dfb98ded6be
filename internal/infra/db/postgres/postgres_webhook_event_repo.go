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

var _ repository.WebhookEventRepository = (*webhookEventRepo)(nil)

type webhookEventRepo struct{ pool *pgxpool.Pool }

func NewWebhookEventRepo(pool *pgxpool.Pool) *webhookEventRepo {
	return &webhookEventRepo{pool: pool}
}

// InsertIfAbsent is the idempotency guard's atomic check-and-insert. The unique
// index on (link_id, dedup_hash) makes exactly one of two concurrent identical
// deliveries win. A previous attempt that ended in 'failed' is taken over so the
// provider's redelivery can retry it; any other existing row means Duplicate.
func (r *webhookEventRepo) InsertIfAbsent(ctx context.Context, tx repository.Tx, ev *model.WebhookEvent) (bool, error) {
	const q = `
INSERT INTO webhook_events (id, link_id, status_token, success, payload, dedup_hash, received_at, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (link_id, dedup_hash) DO UPDATE SET
  id=EXCLUDED.id, received_at=EXCLUDED.received_at, status='received'
  WHERE webhook_events.status = 'failed';`

	cmd, err := execSQL(ctx, r.pool, tx, q,
		ev.ID, ev.LinkID, ev.StatusToken, ev.Success, ev.Payload, ev.DedupHash, ev.ReceivedAt, ev.Status)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *webhookEventRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.EventStatus) error {
	const q = `UPDATE webhook_events SET status=$2 WHERE id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, id, status)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *webhookEventRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.WebhookEvent, error) {
	const q = `SELECT id, link_id, status_token, success, payload, dedup_hash, received_at, status
  FROM webhook_events WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}

	ev := &model.WebhookEvent{}
	if err := row.Scan(&ev.ID, &ev.LinkID, &ev.StatusToken, &ev.Success, &ev.Payload, &ev.DedupHash, &ev.ReceivedAt, &ev.Status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return ev, nil
}
