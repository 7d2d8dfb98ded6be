package repository

import (
	"context"
	"time"

	"chat-billing/internal/domain/model"
)

type WithdrawalRepository interface {
	Save(ctx context.Context, tx Tx, req *model.WithdrawalRequest) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.WithdrawalRequest, error)
	ListByUser(ctx context.Context, tx Tx, userID string, limit int) ([]*model.WithdrawalRequest, error)
	// UpdateStatusIf atomically moves the request from one of `from` to `to`,
	// stamping `at` into the transition timestamp column for `to` and recording
	// `reason` when rejecting. Returns false when the current status no longer
	// permits the transition.
	UpdateStatusIf(ctx context.Context, tx Tx, id string, from []model.WithdrawalStatus, to model.WithdrawalStatus, reason string, at time.Time) (bool, error)
}

type BalanceRepository interface {
	// FindByUser returns a zeroed account (not ErrNotFound) for users without a
	// balance row yet; deposits from outside this core create the row.
	FindByUser(ctx context.Context, tx Tx, userID string) (*model.BalanceAccount, error)
	// MoveAvailableToPending debits available and credits pending by amount in a
	// single conditional UPDATE requiring available >= amount at commit time.
	// Returns false when the guard fails.
	MoveAvailableToPending(ctx context.Context, tx Tx, userID string, amount int64) (bool, error)
	// MovePendingToAvailable is the reverse move, used by cancel/reject.
	MovePendingToAvailable(ctx context.Context, tx Tx, userID string, amount int64) (bool, error)
	// MovePendingToWithdrawn finalizes a completed withdrawal.
	MovePendingToWithdrawn(ctx context.Context, tx Tx, userID string, amount int64) (bool, error)
}
