package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"chat-billing/internal/infra/redis"
	"chat-billing/internal/usecase"
)

type Server struct {
	linkUC       usecase.PaymentLinkUseCase
	webhookUC    usecase.WebhookUseCase
	activationUC usecase.ActivationUseCase
	withdrawalUC usecase.WithdrawalUseCase
	maintUC      usecase.MaintenanceUseCase

	auth    *AuthManager
	apiKey  string
	limiter *redis.RateLimiter
	rlLimit int
	rlWin   time.Duration

	log *zerolog.Logger
}

func NewServer(
	linkUC usecase.PaymentLinkUseCase,
	webhookUC usecase.WebhookUseCase,
	activationUC usecase.ActivationUseCase,
	withdrawalUC usecase.WithdrawalUseCase,
	maintUC usecase.MaintenanceUseCase,
	auth *AuthManager,
	apiKey string,
	limiter *redis.RateLimiter,
	rateLimit int,
	rateWindow time.Duration,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "web").Logger()
	return &Server{
		linkUC:       linkUC,
		webhookUC:    webhookUC,
		activationUC: activationUC,
		withdrawalUC: withdrawalUC,
		maintUC:      maintUC,
		auth:         auth,
		apiKey:       apiKey,
		limiter:      limiter,
		rlLimit:      rateLimit,
		rlWin:        rateWindow,
		log:          &l,
	}
}

// Router builds the full route tree.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Public, provider- and user-facing surface.
		r.Group(func(r chi.Router) {
			r.Use(s.rateLimitMiddleware)

			r.Post("/webhooks/payment", s.handleWebhook)

			r.Post("/links", s.handleCreateLink)
			r.Get("/links/{id}", s.handleGetLink)
			r.Post("/links/{id}/cancel", s.handleCancelLink)

			r.Post("/activation-codes/redeem", s.handleRedeemCode)

			r.Post("/withdrawals", s.handleRequestWithdrawal)
			r.Get("/withdrawals/{id}", s.handleGetWithdrawal)
			r.Post("/withdrawals/{id}/cancel", s.handleCancelWithdrawal)
			r.Get("/users/{id}/balance", s.handleGetBalance)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", s.handleAdminLogin)

			r.Group(func(r chi.Router) {
				r.Use(s.adminAuthMiddleware)

				r.Post("/activate", s.handleManualActivation)
				r.Post("/withdrawals/{id}/approve", s.handleApproveWithdrawal)
				r.Post("/withdrawals/{id}/complete", s.handleCompleteWithdrawal)
				r.Post("/withdrawals/{id}/reject", s.handleRejectWithdrawal)
				r.Post("/jobs/daily", s.handleDailyJobs)
				r.Post("/jobs/monthly", s.handleMonthlyJobs)
			})
		})
	})

	return r
}

// rateLimitMiddleware budgets requests per remote address and route. A limiter
// outage fails open: dropping provider webhooks over a redis hiccup would cost
// more than the flood it prevents.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := redis.RemoteAddrKey(r.RemoteAddr, r.URL.Path)
		ok, err := s.limiter.Allow(r.Context(), key, s.rlLimit, s.rlWin)
		if err != nil {
			s.log.Warn().Err(err).Msg("rate limiter unavailable; allowing request")
		} else if !ok {
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// adminAuthMiddleware requires a valid admin session token.
func (s *Server) adminAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.auth.ParseFromRequest(r); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
