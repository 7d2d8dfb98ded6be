package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"

	"chat-billing/internal/domain"
	"chat-billing/internal/domain/ports/repository"
)

var _ repository.DowngradeHistoryRepository = (*downgradeHistoryRepo)(nil)

type downgradeHistoryRepo struct{ pool *pgxpool.Pool }

func NewDowngradeHistoryRepo(pool *pgxpool.Pool) *downgradeHistoryRepo {
	return &downgradeHistoryRepo{pool: pool}
}

func (r *downgradeHistoryRepo) Append(ctx context.Context, tx repository.Tx, userID string, expiredAt, downgradedAt time.Time) error {
	const q = `INSERT INTO subscription_downgrades (id, user_id, expired_at, downgraded_at) VALUES ($1,$2,$3,$4);`
	_, err := execSQL(ctx, r.pool, tx, q, uuid.NewString(), userID, expiredAt, downgradedAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}
