package model

import "time"

type WithdrawalStatus string

const (
	WithdrawalStatusPending    WithdrawalStatus = "pending"
	WithdrawalStatusProcessing WithdrawalStatus = "processing"
	WithdrawalStatusCompleted  WithdrawalStatus = "completed"
	WithdrawalStatusCancelled  WithdrawalStatus = "cancelled"
	WithdrawalStatusRejected   WithdrawalStatus = "rejected"
)

// MinWithdrawalAmount is the smallest amount a user may cash out, in minor units.
const MinWithdrawalAmount = 500

type BankAccountType string

const (
	BankAccountOrdinary BankAccountType = "ordinary"
	BankAccountChecking BankAccountType = "checking"
	BankAccountSavings  BankAccountType = "savings"
)

// BankAccount is the payout destination attached to a withdrawal request.
// Number is a 7-digit account number; HolderName is katakana-only.
type BankAccount struct {
	Number     string
	HolderName string
	Type       BankAccountType
}

// WithdrawalRequest is a user's request to cash out accumulated balance.
// Legal transitions: pending->processing->completed, pending->cancelled,
// pending|processing->rejected. Every transition moves the request amount
// between balance buckets in the same transaction as the status write.
type WithdrawalRequest struct {
	ID              string // UUID
	UserID          string
	Amount          int64 // minor units, >= MinWithdrawalAmount
	Status          WithdrawalStatus
	RejectionReason string // non-empty iff Status is rejected
	BankAccount     BankAccount
	CreatedAt       time.Time
	ApprovedAt      *time.Time
	CompletedAt     *time.Time
	ClosedAt        *time.Time // set on cancel/reject
}

// BalanceAccount is the per-user three-bucket ledger. The sum of the buckets is
// conserved by every withdrawal transition; only deposits from outside this core
// change it.
type BalanceAccount struct {
	UserID    string
	Available int64
	Pending   int64
	Withdrawn int64
	UpdatedAt time.Time
}

// Total returns the conserved quantity.
func (b *BalanceAccount) Total() int64 {
	return b.Available + b.Pending + b.Withdrawn
}
