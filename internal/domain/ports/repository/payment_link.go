package repository

import (
	"context"
	"time"

	"chat-billing/internal/domain/model"
)

type PaymentLinkRepository interface {
	Save(ctx context.Context, tx Tx, link *model.PaymentLink) error
	// FindByID resolves either a link ID or an order ID to the same link.
	FindByID(ctx context.Context, tx Tx, linkOrOrderID string) (*model.PaymentLink, error)
	// UpdateStatusIf atomically moves the link from `from` to `to`; false when the
	// current status no longer matches.
	UpdateStatusIf(ctx context.Context, tx Tx, linkID string, from, to model.LinkStatus) (bool, error)
	// ExpirePendingBefore marks pending links whose window closed before `cutoff`
	// as expired and returns how many rows changed.
	ExpirePendingBefore(ctx context.Context, tx Tx, cutoff time.Time) (int, error)
}
