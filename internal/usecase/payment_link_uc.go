package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"chat-billing/internal/domain"
	"chat-billing/internal/domain/model"
	"chat-billing/internal/domain/ports/repository"
	"chat-billing/internal/infra/metrics"
)

// Compile-time check
var _ PaymentLinkUseCase = (*paymentLinkUC)(nil)

type PaymentLinkUseCase interface {
	// CreateLink issues a pending link valid for model.LinkTTL.
	CreateLink(ctx context.Context, userID string, amount int64, provider model.Provider) (*model.PaymentLink, error)
	// Resolve looks a link up by link ID or order ID.
	Resolve(ctx context.Context, linkOrOrderID string) (*model.PaymentLink, error)
	// Cancel moves a pending link to cancelled.
	Cancel(ctx context.Context, linkID string) error
}

type paymentLinkUC struct {
	links repository.PaymentLinkRepository
	log   *zerolog.Logger
}

func NewPaymentLinkUseCase(links repository.PaymentLinkRepository, logger *zerolog.Logger) *paymentLinkUC {
	l := logger.With().Str("component", "PaymentLinkUC").Logger()
	return &paymentLinkUC{links: links, log: &l}
}

func (u *paymentLinkUC) CreateLink(ctx context.Context, userID string, amount int64, provider model.Provider) (*model.PaymentLink, error) {
	if userID == "" || amount <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if !model.KnownProvider(provider) {
		return nil, domain.ErrInvalidProvider
	}

	now := time.Now()
	link := &model.PaymentLink{
		LinkID:    NewLinkID(),
		OrderID:   NewOrderID(),
		UserID:    userID,
		Amount:    amount,
		Provider:  provider,
		Status:    model.LinkStatusPending,
		CreatedAt: now,
		ExpiresAt: now.Add(model.LinkTTL),
	}
	if err := u.links.Save(ctx, repository.NoTX, link); err != nil {
		return nil, err
	}
	metrics.IncPaymentLink(string(model.LinkStatusPending))
	u.log.Info().Str("link_id", link.LinkID).Str("order_id", link.OrderID).
		Str("user_id", userID).Int64("amount", amount).Msg("payment link issued")
	return link, nil
}

func (u *paymentLinkUC) Resolve(ctx context.Context, linkOrOrderID string) (*model.PaymentLink, error) {
	if linkOrOrderID == "" {
		return nil, domain.ErrInvalidArgument
	}
	link, err := u.links.FindByID(ctx, repository.NoTX, linkOrOrderID)
	if err != nil {
		return nil, err
	}
	// Lazy expiry: a pending link past its window reads as expired even when the
	// stored row has not been swept yet.
	if link.Status == model.LinkStatusPending && link.Expired(time.Now()) {
		link.Status = model.LinkStatusExpired
	}
	return link, nil
}

func (u *paymentLinkUC) Cancel(ctx context.Context, linkID string) error {
	ok, err := u.links.UpdateStatusIf(ctx, repository.NoTX, linkID, model.LinkStatusPending, model.LinkStatusCancelled)
	if err != nil {
		return err
	}
	if !ok {
		// Either missing or not pending anymore; distinguish for the caller.
		if _, ferr := u.links.FindByID(ctx, repository.NoTX, linkID); ferr != nil {
			return ferr
		}
		return domain.ErrInvalidTransition
	}
	metrics.IncPaymentLink(string(model.LinkStatusCancelled))
	u.log.Info().Str("link_id", linkID).Msg("payment link cancelled")
	return nil
}
