package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"chat-billing/internal/domain"
	"chat-billing/internal/domain/model"
	"chat-billing/internal/domain/ports/repository"
	"chat-billing/internal/infra/metrics"
)

// ActivationResult reports what an activation did.
type ActivationResult struct {
	UserID    string
	NewExpiry time.Time
	Extended  bool // true when banked time was preserved
}

// Compile-time check
var _ ActivationUseCase = (*activationUC)(nil)

type ActivationUseCase interface {
	// Activate applies an admitted success event: completes the link and grants
	// one calendar month of premium, extending from the current expiry when the
	// subscription has not lapsed.
	Activate(ctx context.Context, linkID string) (*ActivationResult, error)
	// ActivateManual is the operator path: same extension arithmetic for 1-12
	// months, no payment link involved.
	ActivateManual(ctx context.Context, userID string, months int, note string) (*ActivationResult, error)
	// RedeemCode exchanges the monthly shared-secret code for one month of
	// premium. A code redeems once; the conditional mark decides the winner.
	RedeemCode(ctx context.Context, userID, code string) (*ActivationResult, error)
}

type activationUC struct {
	links     repository.PaymentLinkRepository
	subs      repository.SubscriptionRepository
	codes     repository.ActivationCodeRepository
	purchases repository.PurchaseRepository
	tm        repository.TransactionManager
	log       *zerolog.Logger
}

func NewActivationUseCase(
	links repository.PaymentLinkRepository,
	subs repository.SubscriptionRepository,
	codes repository.ActivationCodeRepository,
	purchases repository.PurchaseRepository,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *activationUC {
	l := logger.With().Str("component", "ActivationUC").Logger()
	return &activationUC{links: links, subs: subs, codes: codes, purchases: purchases, tm: tm, log: &l}
}

// AddCalendarMonths advances t by n calendar months, keeping the day-of-month
// and clamping to the last day when the target month is shorter (Jan 31 + 1
// month = Feb 28/29).
func AddCalendarMonths(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	firstOfTarget := time.Date(year, month+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// nextExpiry implements the extend-vs-fresh rule: a live subscription extends
// from its current expiry (banked time preserved); anything else starts fresh
// from now. The rule compares only the stored expiry against now; there are no
// grace-period semantics.
func nextExpiry(sub *model.Subscription, now time.Time, months int) (time.Time, bool) {
	if sub != nil && sub.PremiumExpiresAt != nil && sub.PremiumExpiresAt.After(now) {
		return AddCalendarMonths(*sub.PremiumExpiresAt, months), true
	}
	return AddCalendarMonths(now, months), false
}

func (u *activationUC) Activate(ctx context.Context, linkID string) (*ActivationResult, error) {
	now := time.Now()
	var res *ActivationResult
	var link *model.PaymentLink

	err := u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		var err error
		// FindByID inside a tx takes a row lock, serializing activations per link.
		link, err = u.links.FindByID(ctx, tx, linkID)
		if err != nil {
			return err
		}
		if link.Status != model.LinkStatusPending {
			if link.Status == model.LinkStatusCompleted {
				return domain.ErrLinkAlreadyCompleted
			}
			return domain.ErrInvalidTransition
		}
		if link.Expired(now) {
			return domain.ErrLinkExpired
		}

		res, err = u.grant(ctx, tx, link.UserID, 1, now)
		if err != nil {
			return err
		}

		// Conditional update backstops the guard: even if two activations raced
		// past it, only one flips pending->completed.
		ok, err := u.links.UpdateStatusIf(ctx, tx, link.LinkID, model.LinkStatusPending, model.LinkStatusCompleted)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrLinkAlreadyCompleted
		}

		return u.purchases.Append(ctx, tx, &model.Purchase{
			ID:          uuid.NewString(),
			UserID:      link.UserID,
			Amount:      link.Amount,
			Provider:    link.Provider,
			Type:        "subscription",
			Description: fmt.Sprintf("premium subscription via %s (order %s)", link.Provider, link.OrderID),
			CreatedAt:   now,
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.IncActivation("webhook")
	metrics.IncPaymentLink(string(model.LinkStatusCompleted))
	u.log.Info().Str("link_id", linkID).Str("user_id", res.UserID).
		Time("new_expiry", res.NewExpiry).Bool("extended", res.Extended).Msg("subscription activated")
	return res, nil
}

func (u *activationUC) ActivateManual(ctx context.Context, userID string, months int, note string) (*ActivationResult, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if months < 1 || months > 12 {
		return nil, domain.ErrInvalidArgument
	}

	now := time.Now()
	var res *ActivationResult
	err := u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		var err error
		res, err = u.grant(ctx, tx, userID, months, now)
		if err != nil {
			return err
		}
		desc := fmt.Sprintf("manual activation: %d month(s)", months)
		if note != "" {
			desc += " - " + note
		}
		return u.purchases.Append(ctx, tx, &model.Purchase{
			ID:          uuid.NewString(),
			UserID:      userID,
			Amount:      0,
			Provider:    model.ProviderOther,
			Type:        "admin_grant",
			Description: desc,
			CreatedAt:   now,
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.IncActivation("manual")
	u.log.Info().Str("user_id", userID).Int("months", months).
		Time("new_expiry", res.NewExpiry).Msg("manual activation applied")
	return res, nil
}

func (u *activationUC) RedeemCode(ctx context.Context, userID, code string) (*ActivationResult, error) {
	if userID == "" || code == "" {
		return nil, domain.ErrInvalidArgument
	}

	now := time.Now()
	var res *ActivationResult
	err := u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		ok, err := u.codes.MarkUsed(ctx, tx, code, userID, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInvalidCode
		}
		res, err = u.grant(ctx, tx, userID, 1, now)
		if err != nil {
			return err
		}
		return u.purchases.Append(ctx, tx, &model.Purchase{
			ID:          uuid.NewString(),
			UserID:      userID,
			Amount:      0,
			Provider:    model.ProviderOther,
			Type:        "activation_code",
			Description: "premium month via monthly activation code",
			CreatedAt:   now,
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.IncActivation("code")
	u.log.Info().Str("user_id", userID).Time("new_expiry", res.NewExpiry).Msg("activation code redeemed")
	return res, nil
}

// grant writes the subscription row with the computed expiry. Shared by the
// webhook and operator paths so the extension arithmetic cannot drift apart.
func (u *activationUC) grant(ctx context.Context, tx repository.Tx, userID string, months int, now time.Time) (*ActivationResult, error) {
	sub, err := u.subs.FindByUser(ctx, tx, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	expiry, extended := nextExpiry(sub, now, months)
	if err := u.subs.Save(ctx, tx, &model.Subscription{
		UserID:              userID,
		IsPremium:           true,
		PremiumExpiresAt:    &expiry,
		RenewalReminderSent: false,
		UpdatedAt:           now,
	}); err != nil {
		return nil, err
	}
	return &ActivationResult{UserID: userID, NewExpiry: expiry, Extended: extended}, nil
}
