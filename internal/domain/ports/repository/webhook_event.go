package repository

import (
	"context"

	"chat-billing/internal/domain/model"
)

type WebhookEventRepository interface {
	// InsertIfAbsent atomically records the event keyed by (LinkID, DedupHash).
	// It returns false, nil when a record with the same key already exists; this
	// check-and-insert is the idempotency guard's sole concurrency primitive and
	// must be backed by a unique constraint. An existing record in status failed
	// is taken over (reset to received, id replaced) and counts as inserted, so
	// redelivery can retry a transiently failed event.
	InsertIfAbsent(ctx context.Context, tx Tx, ev *model.WebhookEvent) (bool, error)
	UpdateStatus(ctx context.Context, tx Tx, id string, status model.EventStatus) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.WebhookEvent, error)
}
