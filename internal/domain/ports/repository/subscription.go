package repository

import (
	"context"
	"time"

	"chat-billing/internal/domain/model"
)

type SubscriptionRepository interface {
	// Save upserts the per-user subscription row.
	Save(ctx context.Context, tx Tx, sub *model.Subscription) error
	// FindByUser returns domain.ErrNotFound when the user has never activated.
	FindByUser(ctx context.Context, tx Tx, userID string) (*model.Subscription, error)
	// ListExpiring returns premium subscriptions expiring within (now, until] that
	// have not had a renewal reminder yet.
	ListExpiring(ctx context.Context, tx Tx, now, until time.Time) ([]*model.Subscription, error)
	// ListExpired returns premium subscriptions whose expiry is strictly before now.
	ListExpired(ctx context.Context, tx Tx, now time.Time) ([]*model.Subscription, error)
	// MarkReminderSent flips the reminder flag only while it is still clear;
	// false when another run already claimed the reminder.
	MarkReminderSent(ctx context.Context, tx Tx, userID string) (bool, error)
	// Downgrade clears the premium flag only when the row is still premium and
	// still expired; false when another run got there first.
	Downgrade(ctx context.Context, tx Tx, userID string, now time.Time) (bool, error)
}

type DowngradeHistoryRepository interface {
	Append(ctx context.Context, tx Tx, userID string, expiredAt time.Time, downgradedAt time.Time) error
}
