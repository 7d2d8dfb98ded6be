package usecase

import (
	"context"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"chat-billing/internal/domain"
	"chat-billing/internal/domain/model"
	"chat-billing/internal/domain/ports/adapter"
	"chat-billing/internal/domain/ports/repository"
	"chat-billing/internal/infra/metrics"
)

var (
	accountNumberRe = regexp.MustCompile(`^[0-9]{7}$`)
	// Katakana block plus the prolonged sound mark and full-width space, which
	// bank holder fields conventionally allow between family and given name.
	katakanaRe = regexp.MustCompile(`^[ァ-ヶー][ァ-ヶー　]*$`)
)

// Compile-time check
var _ WithdrawalUseCase = (*withdrawalUC)(nil)

// WithdrawalUseCase drives the request/approval/completion workflow over the
// three-bucket balance. Every status write shares a transaction with its bucket
// move so the conservation invariant survives crashes.
type WithdrawalUseCase interface {
	RequestWithdrawal(ctx context.Context, userID string, amount int64, bank model.BankAccount) (*model.WithdrawalRequest, error)
	Approve(ctx context.Context, requestID string) error
	Complete(ctx context.Context, requestID string) error
	Cancel(ctx context.Context, requestID string) error
	Reject(ctx context.Context, requestID, reason string) error
	Get(ctx context.Context, requestID string) (*model.WithdrawalRequest, error)
	Balance(ctx context.Context, userID string) (*model.BalanceAccount, error)
}

type withdrawalUC struct {
	requests repository.WithdrawalRepository
	balances repository.BalanceRepository
	tm       repository.TransactionManager
	notifier adapter.Notifier
	log      *zerolog.Logger
}

func NewWithdrawalUseCase(
	requests repository.WithdrawalRepository,
	balances repository.BalanceRepository,
	tm repository.TransactionManager,
	notifier adapter.Notifier,
	logger *zerolog.Logger,
) *withdrawalUC {
	l := logger.With().Str("component", "WithdrawalUC").Logger()
	return &withdrawalUC{requests: requests, balances: balances, tm: tm, notifier: notifier, log: &l}
}

func validateBankAccount(b model.BankAccount) error {
	if !accountNumberRe.MatchString(b.Number) {
		return domain.ErrInvalidBankAccount
	}
	if !katakanaRe.MatchString(b.HolderName) {
		return domain.ErrInvalidBankAccount
	}
	switch b.Type {
	case model.BankAccountOrdinary, model.BankAccountChecking, model.BankAccountSavings:
	default:
		return domain.ErrInvalidBankAccount
	}
	return nil
}

func (u *withdrawalUC) RequestWithdrawal(ctx context.Context, userID string, amount int64, bank model.BankAccount) (*model.WithdrawalRequest, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if amount < model.MinWithdrawalAmount {
		return nil, domain.ErrBelowMinimum
	}
	if err := validateBankAccount(bank); err != nil {
		return nil, err
	}

	now := time.Now()
	req := &model.WithdrawalRequest{
		ID:          uuid.NewString(),
		UserID:      userID,
		Amount:      amount,
		Status:      model.WithdrawalStatusPending,
		BankAccount: bank,
		CreatedAt:   now,
	}

	err := u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		// The conditional move carries the overdraft guard: available >= amount
		// is checked at commit time, so two concurrent requests cannot both
		// debit the same funds.
		ok, err := u.balances.MoveAvailableToPending(ctx, tx, userID, amount)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInsufficientBalance
		}
		return u.requests.Save(ctx, tx, req)
	})
	if err != nil {
		return nil, err
	}

	metrics.IncWithdrawalTransition(string(model.WithdrawalStatusPending))
	u.log.Info().Str("request_id", req.ID).Str("user_id", userID).Int64("amount", amount).Msg("withdrawal requested")
	return req, nil
}

func (u *withdrawalUC) Approve(ctx context.Context, requestID string) error {
	err := u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		ok, err := u.requests.UpdateStatusIf(ctx, tx, requestID,
			[]model.WithdrawalStatus{model.WithdrawalStatusPending},
			model.WithdrawalStatusProcessing, "", time.Now())
		if err != nil {
			return err
		}
		if !ok {
			return u.transitionConflict(ctx, tx, requestID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	metrics.IncWithdrawalTransition(string(model.WithdrawalStatusProcessing))
	u.log.Info().Str("request_id", requestID).Msg("withdrawal approved")
	return nil
}

func (u *withdrawalUC) Complete(ctx context.Context, requestID string) error {
	var userID string
	err := u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		req, err := u.requests.FindByID(ctx, tx, requestID)
		if err != nil {
			return err
		}
		ok, err := u.requests.UpdateStatusIf(ctx, tx, requestID,
			[]model.WithdrawalStatus{model.WithdrawalStatusProcessing},
			model.WithdrawalStatusCompleted, "", time.Now())
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInvalidTransition
		}
		ok, err = u.balances.MovePendingToWithdrawn(ctx, tx, req.UserID, req.Amount)
		if err != nil {
			return err
		}
		if !ok {
			// Pending short of the request amount means the buckets and the
			// request table disagree; abort loudly rather than break conservation.
			return domain.ErrOperationFailed
		}
		userID = req.UserID
		return nil
	})
	if err != nil {
		return err
	}

	metrics.IncWithdrawalTransition(string(model.WithdrawalStatusCompleted))
	if err := u.notifier.Notify(ctx, userID, adapter.NotifyWithdrawalCompleted, map[string]string{"request_id": requestID}); err != nil {
		u.log.Error().Err(err).Str("request_id", requestID).Msg("withdrawal completion notification failed")
	}
	u.log.Info().Str("request_id", requestID).Msg("withdrawal completed")
	return nil
}

func (u *withdrawalUC) Cancel(ctx context.Context, requestID string) error {
	return u.release(ctx, requestID,
		[]model.WithdrawalStatus{model.WithdrawalStatusPending},
		model.WithdrawalStatusCancelled, "")
}

func (u *withdrawalUC) Reject(ctx context.Context, requestID, reason string) error {
	if reason == "" {
		return domain.ErrReasonRequired
	}
	return u.release(ctx, requestID,
		[]model.WithdrawalStatus{model.WithdrawalStatusPending, model.WithdrawalStatusProcessing},
		model.WithdrawalStatusRejected, reason)
}

// release is the shared cancel/reject path: status transition plus the
// pending->available refund in one transaction.
func (u *withdrawalUC) release(ctx context.Context, requestID string, from []model.WithdrawalStatus, to model.WithdrawalStatus, reason string) error {
	err := u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		req, err := u.requests.FindByID(ctx, tx, requestID)
		if err != nil {
			return err
		}
		ok, err := u.requests.UpdateStatusIf(ctx, tx, requestID, from, to, reason, time.Now())
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInvalidTransition
		}
		ok, err = u.balances.MovePendingToAvailable(ctx, tx, req.UserID, req.Amount)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrOperationFailed
		}
		return nil
	})
	if err != nil {
		return err
	}
	metrics.IncWithdrawalTransition(string(to))
	u.log.Info().Str("request_id", requestID).Str("status", string(to)).Msg("withdrawal released back to available")
	return nil
}

// transitionConflict maps a failed conditional update to the precise error.
func (u *withdrawalUC) transitionConflict(ctx context.Context, tx repository.Tx, requestID string) error {
	if _, err := u.requests.FindByID(ctx, tx, requestID); err != nil {
		return err
	}
	return domain.ErrInvalidTransition
}

func (u *withdrawalUC) Get(ctx context.Context, requestID string) (*model.WithdrawalRequest, error) {
	return u.requests.FindByID(ctx, repository.NoTX, requestID)
}

func (u *withdrawalUC) Balance(ctx context.Context, userID string) (*model.BalanceAccount, error) {
	return u.balances.FindByUser(ctx, repository.NoTX, userID)
}
