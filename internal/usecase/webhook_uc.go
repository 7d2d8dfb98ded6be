package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"chat-billing/internal/domain"
	"chat-billing/internal/domain/model"
	"chat-billing/internal/domain/ports/repository"
	"chat-billing/internal/infra/metrics"
)

// Decision is the idempotency guard's disposition for a delivery.
type Decision string

const (
	DecisionProcess   Decision = "process"
	DecisionDuplicate Decision = "duplicate"
	DecisionIgnore    Decision = "ignore"
)

// failMarkTimeout bounds the detached write that marks an event failed after a
// transient activation error.
const failMarkTimeout = 5 * time.Second

// Compile-time check
var _ WebhookUseCase = (*webhookUC)(nil)

type WebhookUseCase interface {
	// Ingest normalizes a raw delivery, runs it through the idempotency guard and,
	// for an admitted success event, activates the subscription. Duplicate and
	// Ignore are successful outcomes from the provider's point of view.
	Ingest(ctx context.Context, raw []byte) (Decision, error)
	// Admit is the guard alone: atomic check-and-insert keyed by
	// (linkID, payload hash).
	Admit(ctx context.Context, ev *model.WebhookEvent) (Decision, error)
}

type webhookUC struct {
	events     repository.WebhookEventRepository
	activation ActivationUseCase
	log        *zerolog.Logger
}

func NewWebhookUseCase(events repository.WebhookEventRepository, activation ActivationUseCase, logger *zerolog.Logger) *webhookUC {
	l := logger.With().Str("component", "WebhookUC").Logger()
	return &webhookUC{events: events, activation: activation, log: &l}
}

// Admit decides the disposition of a normalized event. An event with no
// resolvable link id is ignored. Otherwise the decision rides entirely on the
// atomic insert: two concurrent deliveries of the same payload race on the
// unique key and exactly one receives Process. An event whose previous attempt
// ended in failed is re-admitted so provider redelivery can retry it.
func (u *webhookUC) Admit(ctx context.Context, ev *model.WebhookEvent) (Decision, error) {
	if ev.LinkID == "" {
		return DecisionIgnore, nil
	}
	if ev.ID == "" {
		ev.ID = ulid.MustNew(ulid.Timestamp(ev.ReceivedAt), rand.Reader).String()
	}
	inserted, err := u.events.InsertIfAbsent(ctx, repository.NoTX, ev)
	if err != nil {
		return "", err
	}
	if !inserted {
		return DecisionDuplicate, nil
	}
	return DecisionProcess, nil
}

func (u *webhookUC) Ingest(ctx context.Context, raw []byte) (Decision, error) {
	ev := Normalize(raw)

	decision, err := u.Admit(ctx, ev)
	if err != nil {
		return "", err
	}
	metrics.IncWebhookDecision(string(decision))

	switch decision {
	case DecisionIgnore:
		u.log.Warn().Str("dedup_hash", ev.DedupHash).Msg("webhook without resolvable link id ignored")
		return DecisionIgnore, nil
	case DecisionDuplicate:
		u.log.Info().Str("link_id", ev.LinkID).Str("dedup_hash", ev.DedupHash).Msg("duplicate webhook delivery")
		return DecisionDuplicate, nil
	}

	if !ev.Success {
		// Non-success events are recorded for audit but carry no state change.
		if err := u.events.UpdateStatus(ctx, repository.NoTX, ev.ID, model.EventStatusIgnored); err != nil {
			return DecisionProcess, err
		}
		u.log.Info().Str("link_id", ev.LinkID).Str("status_token", ev.StatusToken).Msg("non-success webhook recorded")
		return DecisionProcess, nil
	}

	if _, err := u.activation.Activate(ctx, ev.LinkID); err != nil {
		// State conflicts mean the work is already done or impossible; close the
		// event out so redelivery reads as Duplicate.
		if errors.Is(err, domain.ErrLinkAlreadyCompleted) || errors.Is(err, domain.ErrLinkExpired) || errors.Is(err, domain.ErrNotFound) {
			if uerr := u.events.UpdateStatus(ctx, repository.NoTX, ev.ID, model.EventStatusIgnored); uerr != nil {
				return DecisionProcess, uerr
			}
			u.log.Warn().Err(err).Str("link_id", ev.LinkID).Msg("success webhook not applicable")
			return DecisionProcess, nil
		}
		// Transient failure: mark failed and propagate. A failed record does not
		// block re-admission, so the provider's at-least-once redelivery retries
		// the activation safely. The caller's context may itself be what killed
		// the activation, so the mark rides a detached one; a row stuck in
		// received would answer every redelivery with Duplicate.
		markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failMarkTimeout)
		defer cancel()
		if uerr := u.events.UpdateStatus(markCtx, repository.NoTX, ev.ID, model.EventStatusFailed); uerr != nil {
			u.log.Error().Err(uerr).Str("event_id", ev.ID).Msg("failed to mark event failed")
		}
		return DecisionProcess, err
	}

	if err := u.events.UpdateStatus(ctx, repository.NoTX, ev.ID, model.EventStatusProcessed); err != nil {
		return DecisionProcess, err
	}
	u.log.Info().Str("link_id", ev.LinkID).Msg("webhook processed, subscription activated")
	return DecisionProcess, nil
}
