package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"chat-billing/internal/domain"
	"chat-billing/internal/domain/model"
	"chat-billing/internal/domain/ports/adapter"
	"chat-billing/internal/domain/ports/repository"
	"chat-billing/internal/infra/metrics"
)

// reminderWindow is how far ahead of expiry renewal reminders go out.
const reminderWindow = 72 * time.Hour

// Compile-time check
var _ MaintenanceUseCase = (*maintenanceUC)(nil)

// MaintenanceUseCase hosts the scheduled batch jobs. Each job is idempotent and
// independently schedulable; a cancelled run leaves already-processed rows in
// their new, correct state. Store errors propagate, never a silent partial
// success.
type MaintenanceUseCase interface {
	SendRenewalReminders(ctx context.Context, now time.Time) (int, error)
	ProcessExpiredSubscriptions(ctx context.Context, now time.Time) (int, error)
	GenerateMonthlyActivationCode(ctx context.Context, now time.Time) (*model.ActivationCode, error)
	RunDailySubscriptionTasks(ctx context.Context, now time.Time) error
	RunMonthlySubscriptionTasks(ctx context.Context, now time.Time) error
}

type maintenanceUC struct {
	subs       repository.SubscriptionRepository
	downgrades repository.DowngradeHistoryRepository
	codes      repository.ActivationCodeRepository
	links      repository.PaymentLinkRepository
	notifier   adapter.Notifier
	log        *zerolog.Logger
}

func NewMaintenanceUseCase(
	subs repository.SubscriptionRepository,
	downgrades repository.DowngradeHistoryRepository,
	codes repository.ActivationCodeRepository,
	links repository.PaymentLinkRepository,
	notifier adapter.Notifier,
	logger *zerolog.Logger,
) *maintenanceUC {
	l := logger.With().Str("component", "MaintenanceUC").Logger()
	return &maintenanceUC{subs: subs, downgrades: downgrades, codes: codes, links: links, notifier: notifier, log: &l}
}

// SendRenewalReminders notifies premium users whose expiry falls within the
// reminder window and flags them so a re-run is a no-op.
func (u *maintenanceUC) SendRenewalReminders(ctx context.Context, now time.Time) (int, error) {
	due, err := u.subs.ListExpiring(ctx, repository.NoTX, now, now.Add(reminderWindow))
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, sub := range due {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		// Flag first: a reminder that goes out twice is worse than one that is
		// lost to a crash between notify and flag, and the notifier is
		// fire-and-forget anyway. The conditional flip also keeps an
		// overlapping run from sending a second copy.
		ok, err := u.subs.MarkReminderSent(ctx, repository.NoTX, sub.UserID)
		if err != nil {
			return sent, err
		}
		if !ok {
			continue
		}
		payload := map[string]string{"expires_at": sub.PremiumExpiresAt.Format(time.RFC3339)}
		if err := u.notifier.Notify(ctx, sub.UserID, adapter.NotifyRenewalReminder, payload); err != nil {
			u.log.Error().Err(err).Str("user_id", sub.UserID).Msg("renewal reminder dispatch failed")
		}
		sent++
	}
	if sent > 0 {
		u.log.Info().Int("sent", sent).Msg("renewal reminders dispatched")
	}
	return sent, nil
}

// ProcessExpiredSubscriptions downgrades lapsed premium users. The conditional
// downgrade keeps concurrent runs from double-counting a row.
func (u *maintenanceUC) ProcessExpiredSubscriptions(ctx context.Context, now time.Time) (int, error) {
	expired, err := u.subs.ListExpired(ctx, repository.NoTX, now)
	if err != nil {
		return 0, err
	}

	downgraded := 0
	for _, sub := range expired {
		if err := ctx.Err(); err != nil {
			return downgraded, err
		}
		ok, err := u.subs.Downgrade(ctx, repository.NoTX, sub.UserID, now)
		if err != nil {
			return downgraded, err
		}
		if !ok {
			continue
		}
		if err := u.downgrades.Append(ctx, repository.NoTX, sub.UserID, *sub.PremiumExpiresAt, now); err != nil {
			return downgraded, err
		}
		downgraded++
	}
	if downgraded > 0 {
		metrics.AddSubscriptionsExpired(downgraded)
		u.log.Info().Int("count", downgraded).Msg("expired subscriptions downgraded")
	}
	return downgraded, nil
}

// GenerateMonthlyActivationCode enforces the one-active-code-per-month
// invariant: a no-op when the current calendar month already has a pending,
// unexpired code.
func (u *maintenanceUC) GenerateMonthlyActivationCode(ctx context.Context, now time.Time) (*model.ActivationCode, error) {
	existing, err := u.codes.FindPendingForMonth(ctx, repository.NoTX, now)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	code := &model.ActivationCode{
		ID:        uuid.NewString(),
		Code:      newActivationCode(),
		Status:    model.ActivationCodeStatusPending,
		CreatedAt: now,
		ExpiresAt: now.Add(model.ActivationCodeTTL),
		AdminNote: fmt.Sprintf("monthly code %s", now.Format("2006-01")),
	}
	inserted, err := u.codes.SaveIfVacant(ctx, repository.NoTX, code)
	if err != nil {
		return nil, err
	}
	if !inserted {
		// Another run won the insert between the lookup and here.
		return u.codes.FindPendingForMonth(ctx, repository.NoTX, now)
	}
	metrics.IncActivationCodeIssued()
	if err := u.notifier.Notify(ctx, "admin", adapter.NotifyActivationCode, map[string]string{"code": code.Code}); err != nil {
		u.log.Error().Err(err).Msg("activation code notification failed")
	}
	u.log.Info().Str("month", now.Format("2006-01")).Msg("monthly activation code issued")
	return code, nil
}

func (u *maintenanceUC) RunDailySubscriptionTasks(ctx context.Context, now time.Time) error {
	if _, err := u.SendRenewalReminders(ctx, now); err != nil {
		return fmt.Errorf("renewal reminders: %w", err)
	}
	if _, err := u.ProcessExpiredSubscriptions(ctx, now); err != nil {
		return fmt.Errorf("expire subscriptions: %w", err)
	}
	// Tidy pass over stale pending links; expiry stays lazily computed on read,
	// the sweep just keeps the stored status honest.
	if n, err := u.links.ExpirePendingBefore(ctx, repository.NoTX, now); err != nil {
		return fmt.Errorf("expire links: %w", err)
	} else if n > 0 {
		u.log.Info().Int("count", n).Msg("stale payment links marked expired")
	}
	return nil
}

func (u *maintenanceUC) RunMonthlySubscriptionTasks(ctx context.Context, now time.Time) error {
	if err := u.RunDailySubscriptionTasks(ctx, now); err != nil {
		return err
	}
	if _, err := u.GenerateMonthlyActivationCode(ctx, now); err != nil {
		return fmt.Errorf("monthly activation code: %w", err)
	}
	return nil
}

// newActivationCode builds a "SIX" + 4 digits + 4 alphanumerics token from
// crypto/rand. The alphanumeric tail avoids ambiguous characters.
func newActivationCode() string {
	const digits = "0123456789"
	const chars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	buf := make([]byte, 8)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
	}
	out := make([]byte, 0, 11)
	out = append(out, "SIX"...)
	for i := 0; i < 4; i++ {
		out = append(out, digits[int(buf[i])%len(digits)])
	}
	for i := 4; i < 8; i++ {
		out = append(out, chars[int(buf[i])%len(chars)])
	}
	return string(out)
}
