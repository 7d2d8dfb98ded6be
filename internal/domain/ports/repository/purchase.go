package repository

import (
	"context"

	"chat-billing/internal/domain/model"
)

// PurchaseRepository is the append-only sink for the purchase-history
// collaborator.
type PurchaseRepository interface {
	Append(ctx context.Context, tx Tx, p *model.Purchase) error
}
