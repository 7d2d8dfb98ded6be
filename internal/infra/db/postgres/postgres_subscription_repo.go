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

var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct{ pool *pgxpool.Pool }

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

const subColumns = `user_id, is_premium, premium_expires_at, renewal_reminder_sent, updated_at`

func (r *subscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	const q = `
INSERT INTO subscriptions (user_id, is_premium, premium_expires_at, renewal_reminder_sent, updated_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (user_id) DO UPDATE SET
  is_premium=EXCLUDED.is_premium,
  premium_expires_at=EXCLUDED.premium_expires_at,
  renewal_reminder_sent=EXCLUDED.renewal_reminder_sent,
  updated_at=EXCLUDED.updated_at;`

	_, err := execSQL(ctx, r.pool, tx, q, s.UserID, s.IsPremium, s.PremiumExpiresAt, s.RenewalReminderSent, s.UpdatedAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *subscriptionRepo) FindByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	q := `SELECT ` + subColumns + ` FROM subscriptions WHERE user_id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}

	s := &model.Subscription{}
	if err := row.Scan(&s.UserID, &s.IsPremium, &s.PremiumExpiresAt, &s.RenewalReminderSent, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return s, nil
}

func (r *subscriptionRepo) ListExpiring(ctx context.Context, tx repository.Tx, now, until time.Time) ([]*model.Subscription, error) {
	const q = `SELECT ` + subColumns + ` FROM subscriptions
 WHERE is_premium = TRUE AND renewal_reminder_sent = FALSE
   AND premium_expires_at > $1 AND premium_expires_at <= $2
 ORDER BY premium_expires_at ASC;`
	return r.list(ctx, tx, q, now, until)
}

func (r *subscriptionRepo) ListExpired(ctx context.Context, tx repository.Tx, now time.Time) ([]*model.Subscription, error) {
	const q = `SELECT ` + subColumns + ` FROM subscriptions
 WHERE is_premium = TRUE AND premium_expires_at < $1
 ORDER BY premium_expires_at ASC;`
	return r.list(ctx, tx, q, now)
}

func (r *subscriptionRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.Subscription, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Subscription
	for rows.Next() {
		s := new(model.Subscription)
		if err := rows.Scan(&s.UserID, &s.IsPremium, &s.PremiumExpiresAt, &s.RenewalReminderSent, &s.UpdatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, s)
	}
	return out, nil
}

// MarkReminderSent claims the reminder with a conditional flip, the same way
// Downgrade claims an expiry, so overlapping batch runs send it once.
func (r *subscriptionRepo) MarkReminderSent(ctx context.Context, tx repository.Tx, userID string) (bool, error) {
	const q = `UPDATE subscriptions SET renewal_reminder_sent = TRUE
 WHERE user_id=$1 AND renewal_reminder_sent = FALSE;`
	cmd, err := execSQL(ctx, r.pool, tx, q, userID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

// Downgrade flips is_premium off only while the row still qualifies, so two
// overlapping batch runs cannot both claim the same downgrade.
func (r *subscriptionRepo) Downgrade(ctx context.Context, tx repository.Tx, userID string, now time.Time) (bool, error) {
	const q = `UPDATE subscriptions SET is_premium = FALSE, updated_at = $2
 WHERE user_id=$1 AND is_premium = TRUE AND premium_expires_at < $2;`
	cmd, err := execSQL(ctx, r.pool, tx, q, userID, now)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}
