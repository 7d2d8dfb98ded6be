package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"chat-billing/internal/domain/ports/adapter"
	"chat-billing/internal/infra/worker"
)

// Compile-time checks
var (
	_ adapter.Notifier = (*HTTPNotifier)(nil)
	_ adapter.Notifier = (*LogNotifier)(nil)
)

// HTTPNotifier posts notifications to the chat application's callback endpoint.
// Delivery runs on the worker pool; Notify returns once the task is queued, so
// the calling transaction never waits on the collaborator.
type HTTPNotifier struct {
	endpoint string
	client   *http.Client
	pool     *worker.Pool
	log      *zerolog.Logger
}

func NewHTTPNotifier(endpoint string, timeout time.Duration, pool *worker.Pool, logger *zerolog.Logger) *HTTPNotifier {
	compLog := logger.With().Str("component", "HTTPNotifier").Logger()
	return &HTTPNotifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		pool:     pool,
		log:      &compLog,
	}
}

type notification struct {
	UserID  string            `json:"user_id"`
	Kind    string            `json:"kind"`
	Payload map[string]string `json:"payload,omitempty"`
	SentAt  time.Time         `json:"sent_at"`
}

func (n *HTTPNotifier) Notify(_ context.Context, userID string, kind adapter.NotificationKind, payload map[string]string) error {
	msg := notification{UserID: userID, Kind: string(kind), Payload: payload, SentAt: time.Now()}
	// The pool's context outlives the request context that triggered delivery.
	return n.pool.Submit(func(ctx context.Context) error {
		return n.deliver(ctx, msg)
	})
}

func (n *HTTPNotifier) deliver(ctx context.Context, msg notification) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver notification: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("deliver notification: collaborator returned %d", resp.StatusCode)
	}
	n.log.Debug().Str("user_id", msg.UserID).Str("kind", msg.Kind).Msg("notification delivered")
	return nil
}

// LogNotifier writes notifications to the log. It stands in when no
// collaborator endpoint is configured, typically in development.
type LogNotifier struct {
	log *zerolog.Logger
}

func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	compLog := logger.With().Str("component", "LogNotifier").Logger()
	return &LogNotifier{log: &compLog}
}

func (n *LogNotifier) Notify(_ context.Context, userID string, kind adapter.NotificationKind, payload map[string]string) error {
	n.log.Info().Str("user_id", userID).Str("kind", string(kind)).
		Interface("payload", payload).Msg("notification")
	return nil
}
