//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"

	"chat-billing/internal/domain"
	"chat-billing/internal/domain/model"
	"chat-billing/internal/usecase"
)

func validBank() model.BankAccount {
	return model.BankAccount{Number: "1234567", HolderName: "ヤマダ　タロウ", Type: model.BankAccountOrdinary}
}

func newWithdrawalFixture() (*MockWithdrawalRepo, *MockBalanceRepo, *MockNotifier, usecase.WithdrawalUseCase) {
	requests := NewMockWithdrawalRepo()
	balances := NewMockBalanceRepo()
	notifier := NewMockNotifier()
	uc := usecase.NewWithdrawalUseCase(requests, balances, NewMockTxManager(), notifier, newTestLogger())
	return requests, balances, notifier, uc
}

func TestWithdrawalUseCase_RequestWithdrawal(t *testing.T) {
	ctx := context.Background()

	t.Run("moves funds to pending and saves the request", func(t *testing.T) {
		_, balances, _, uc := newWithdrawalFixture()
		balances.Seed("user-1", 1000)

		req, err := uc.RequestWithdrawal(ctx, "user-1", 800, validBank())
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if req.Status != model.WithdrawalStatusPending {
			t.Errorf("status = %q, want pending", req.Status)
		}
		acct, _ := balances.FindByUser(ctx, nil, "user-1")
		if acct.Available != 200 || acct.Pending != 800 || acct.Withdrawn != 0 {
			t.Errorf("buckets = {%d,%d,%d}, want {200,800,0}", acct.Available, acct.Pending, acct.Withdrawn)
		}
	})

	t.Run("insufficient balance leaves buckets untouched", func(t *testing.T) {
		requests, balances, _, uc := newWithdrawalFixture()
		balances.Seed("user-2", 600)

		_, err := uc.RequestWithdrawal(ctx, "user-2", 800, validBank())
		if !errors.Is(err, domain.ErrInsufficientBalance) {
			t.Fatalf("err = %v, want ErrInsufficientBalance", err)
		}
		acct, _ := balances.FindByUser(ctx, nil, "user-2")
		if acct.Available != 600 || acct.Pending != 0 {
			t.Errorf("buckets = {%d,%d}, want {600,0}", acct.Available, acct.Pending)
		}
		if n := len(requests.store); n != 0 {
			t.Errorf("expected no saved requests, got %d", n)
		}
	})

	t.Run("below minimum is rejected before touching the store", func(t *testing.T) {
		_, balances, _, uc := newWithdrawalFixture()
		balances.Seed("user-3", 1000)

		_, err := uc.RequestWithdrawal(ctx, "user-3", 499, validBank())
		if !errors.Is(err, domain.ErrBelowMinimum) {
			t.Errorf("err = %v, want ErrBelowMinimum", err)
		}
	})

	t.Run("minimum amount itself is accepted", func(t *testing.T) {
		_, balances, _, uc := newWithdrawalFixture()
		balances.Seed("user-4", 500)

		if _, err := uc.RequestWithdrawal(ctx, "user-4", 500, validBank()); err != nil {
			t.Errorf("amount 500 should pass the minimum, got: %v", err)
		}
	})

	t.Run("bank account validation", func(t *testing.T) {
		cases := []struct {
			name string
			bank model.BankAccount
		}{
			{"short number", model.BankAccount{Number: "123456", HolderName: "ヤマダ", Type: model.BankAccountOrdinary}},
			{"long number", model.BankAccount{Number: "12345678", HolderName: "ヤマダ", Type: model.BankAccountOrdinary}},
			{"non-digit number", model.BankAccount{Number: "12345a7", HolderName: "ヤマダ", Type: model.BankAccountOrdinary}},
			{"latin holder", model.BankAccount{Number: "1234567", HolderName: "Yamada Taro", Type: model.BankAccountOrdinary}},
			{"hiragana holder", model.BankAccount{Number: "1234567", HolderName: "やまだ", Type: model.BankAccountOrdinary}},
			{"empty holder", model.BankAccount{Number: "1234567", HolderName: "", Type: model.BankAccountOrdinary}},
			{"leading space holder", model.BankAccount{Number: "1234567", HolderName: "　ヤマダ", Type: model.BankAccountOrdinary}},
			{"unknown type", model.BankAccount{Number: "1234567", HolderName: "ヤマダ", Type: "fixed"}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, balances, _, uc := newWithdrawalFixture()
				balances.Seed("user-5", 1000)
				if _, err := uc.RequestWithdrawal(ctx, "user-5", 800, tc.bank); !errors.Is(err, domain.ErrInvalidBankAccount) {
					t.Errorf("err = %v, want ErrInvalidBankAccount", err)
				}
			})
		}

		for _, typ := range []model.BankAccountType{model.BankAccountOrdinary, model.BankAccountChecking, model.BankAccountSavings} {
			_, balances, _, uc := newWithdrawalFixture()
			balances.Seed("user-6", 1000)
			bank := validBank()
			bank.Type = typ
			if _, err := uc.RequestWithdrawal(ctx, "user-6", 800, bank); err != nil {
				t.Errorf("type %q should be accepted, got: %v", typ, err)
			}
		}
	})
}

func TestWithdrawalUseCase_Lifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("request approve complete conserves the total", func(t *testing.T) {
		_, balances, notifier, uc := newWithdrawalFixture()
		balances.Seed("user-1", 1000)

		req, err := uc.RequestWithdrawal(ctx, "user-1", 800, validBank())
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		if err := uc.Approve(ctx, req.ID); err != nil {
			t.Fatalf("approve: %v", err)
		}
		got, _ := uc.Get(ctx, req.ID)
		if got.Status != model.WithdrawalStatusProcessing || got.ApprovedAt == nil {
			t.Fatalf("after approve: %+v", got)
		}

		if err := uc.Complete(ctx, req.ID); err != nil {
			t.Fatalf("complete: %v", err)
		}
		got, _ = uc.Get(ctx, req.ID)
		if got.Status != model.WithdrawalStatusCompleted || got.CompletedAt == nil {
			t.Fatalf("after complete: %+v", got)
		}

		acct, _ := uc.Balance(ctx, "user-1")
		if acct.Available != 200 || acct.Pending != 0 || acct.Withdrawn != 800 {
			t.Errorf("buckets = {%d,%d,%d}, want {200,0,800}", acct.Available, acct.Pending, acct.Withdrawn)
		}
		if acct.Total() != 1000 {
			t.Errorf("total = %d, conservation broken", acct.Total())
		}
		if len(notifier.Sent) != 1 || notifier.Sent[0].Kind != "withdrawal_completed" {
			t.Errorf("completion notification missing, sent: %+v", notifier.Sent)
		}
	})

	t.Run("cancel refunds pending back to available", func(t *testing.T) {
		_, balances, _, uc := newWithdrawalFixture()
		balances.Seed("user-2", 1000)

		req, _ := uc.RequestWithdrawal(ctx, "user-2", 600, validBank())
		if err := uc.Cancel(ctx, req.ID); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		acct, _ := uc.Balance(ctx, "user-2")
		if acct.Available != 1000 || acct.Pending != 0 {
			t.Errorf("buckets = {%d,%d}, want {1000,0}", acct.Available, acct.Pending)
		}
	})

	t.Run("cancel after approval is rejected", func(t *testing.T) {
		_, balances, _, uc := newWithdrawalFixture()
		balances.Seed("user-3", 1000)

		req, _ := uc.RequestWithdrawal(ctx, "user-3", 600, validBank())
		_ = uc.Approve(ctx, req.ID)
		if err := uc.Cancel(ctx, req.ID); !errors.Is(err, domain.ErrInvalidTransition) {
			t.Errorf("err = %v, want ErrInvalidTransition", err)
		}
	})

	t.Run("reject works from both pending and processing and needs a reason", func(t *testing.T) {
		_, balances, _, uc := newWithdrawalFixture()
		balances.Seed("user-4", 2000)

		req1, _ := uc.RequestWithdrawal(ctx, "user-4", 600, validBank())
		if err := uc.Reject(ctx, req1.ID, ""); !errors.Is(err, domain.ErrReasonRequired) {
			t.Fatalf("empty reason: err = %v, want ErrReasonRequired", err)
		}
		if err := uc.Reject(ctx, req1.ID, "account name mismatch"); err != nil {
			t.Fatalf("reject pending: %v", err)
		}
		got, _ := uc.Get(ctx, req1.ID)
		if got.RejectionReason != "account name mismatch" || got.ClosedAt == nil {
			t.Errorf("after reject: %+v", got)
		}

		req2, _ := uc.RequestWithdrawal(ctx, "user-4", 700, validBank())
		_ = uc.Approve(ctx, req2.ID)
		if err := uc.Reject(ctx, req2.ID, "bank returned the transfer"); err != nil {
			t.Fatalf("reject processing: %v", err)
		}

		acct, _ := uc.Balance(ctx, "user-4")
		if acct.Available != 2000 || acct.Pending != 0 || acct.Withdrawn != 0 {
			t.Errorf("buckets = {%d,%d,%d}, want {2000,0,0}", acct.Available, acct.Pending, acct.Withdrawn)
		}
	})

	t.Run("complete before approval is an invalid transition", func(t *testing.T) {
		_, balances, _, uc := newWithdrawalFixture()
		balances.Seed("user-5", 1000)

		req, _ := uc.RequestWithdrawal(ctx, "user-5", 600, validBank())
		if err := uc.Complete(ctx, req.ID); !errors.Is(err, domain.ErrInvalidTransition) {
			t.Errorf("err = %v, want ErrInvalidTransition", err)
		}
	})

	t.Run("approve of unknown request yields ErrNotFound", func(t *testing.T) {
		_, _, _, uc := newWithdrawalFixture()
		if err := uc.Approve(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("balance of an unknown user reads as zeroed buckets", func(t *testing.T) {
		_, _, _, uc := newWithdrawalFixture()
		acct, err := uc.Balance(ctx, "nobody")
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if acct.Total() != 0 {
			t.Errorf("total = %d, want 0", acct.Total())
		}
	})
}
