package repository

import (
	"context"
	"time"

	"chat-billing/internal/domain/model"
)

type ActivationCodeRepository interface {
	// SaveIfVacant inserts the code unless its calendar month already holds a
	// pending code; false means a concurrent writer won and nothing was stored.
	SaveIfVacant(ctx context.Context, tx Tx, code *model.ActivationCode) (bool, error)
	// FindPendingForMonth returns the pending, unexpired code created in the
	// calendar month containing `at`, or domain.ErrNotFound.
	FindPendingForMonth(ctx context.Context, tx Tx, at time.Time) (*model.ActivationCode, error)
	// MarkUsed transitions pending->used for userID; false when the code is no
	// longer pending or has expired at `at`.
	MarkUsed(ctx context.Context, tx Tx, code string, userID string, at time.Time) (bool, error)
}
