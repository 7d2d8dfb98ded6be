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

var _ repository.WithdrawalRepository = (*withdrawalRepo)(nil)

type withdrawalRepo struct{ pool *pgxpool.Pool }

func NewWithdrawalRepo(pool *pgxpool.Pool) *withdrawalRepo {
	return &withdrawalRepo{pool: pool}
}

const withdrawalColumns = `id, user_id, amount, status, rejection_reason,
  bank_account_number, bank_holder_name, bank_account_type,
  created_at, approved_at, completed_at, closed_at`

func (r *withdrawalRepo) Save(ctx context.Context, tx repository.Tx, w *model.WithdrawalRequest) error {
	const q = `
INSERT INTO withdrawal_requests (
  id, user_id, amount, status, rejection_reason,
  bank_account_number, bank_holder_name, bank_account_type,
  created_at, approved_at, completed_at, closed_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12);`

	_, err := execSQL(ctx, r.pool, tx, q,
		w.ID, w.UserID, w.Amount, w.Status, w.RejectionReason,
		w.BankAccount.Number, w.BankAccount.HolderName, w.BankAccount.Type,
		w.CreatedAt, w.ApprovedAt, w.CompletedAt, w.ClosedAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *withdrawalRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.WithdrawalRequest, error) {
	q := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanWithdrawal(row)
}

func (r *withdrawalRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit int) ([]*model.WithdrawalRequest, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests
 WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID, limit)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.WithdrawalRequest
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

// UpdateStatusIf is the status-machine guard: the row moves only when its
// current status is in `from`, and the matching transition timestamp is stamped
// in the same statement.
func (r *withdrawalRepo) UpdateStatusIf(ctx context.Context, tx repository.Tx, id string, from []model.WithdrawalStatus, to model.WithdrawalStatus, reason string, at time.Time) (bool, error) {
	fromStr := make([]string, len(from))
	for i, s := range from {
		fromStr[i] = string(s)
	}

	const q = `
UPDATE withdrawal_requests
   SET status = $2,
       rejection_reason = CASE WHEN $2 = 'rejected' THEN $3 ELSE rejection_reason END,
       approved_at  = CASE WHEN $2 = 'processing' THEN $4 ELSE approved_at END,
       completed_at = CASE WHEN $2 = 'completed'  THEN $4 ELSE completed_at END,
       closed_at    = CASE WHEN $2 IN ('cancelled','rejected') THEN $4 ELSE closed_at END
 WHERE id = $1 AND status = ANY($5);`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, string(to), reason, at, fromStr)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanWithdrawal(row rowScanner) (*model.WithdrawalRequest, error) {
	w := &model.WithdrawalRequest{}
	err := row.Scan(
		&w.ID, &w.UserID, &w.Amount, &w.Status, &w.RejectionReason,
		&w.BankAccount.Number, &w.BankAccount.HolderName, &w.BankAccount.Type,
		&w.CreatedAt, &w.ApprovedAt, &w.CompletedAt, &w.ClosedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return w, nil
}
