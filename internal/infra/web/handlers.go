package web

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"chat-billing/internal/domain"
	"chat-billing/internal/domain/model"
)

// maxWebhookBody caps provider payload size.
const maxWebhookBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps sentinel errors onto HTTP statuses. Unknown errors are
// 500 with a generic body; details stay in the log.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrInvalidProvider),
		errors.Is(err, domain.ErrInvalidBankAccount),
		errors.Is(err, domain.ErrReasonRequired):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrBelowMinimum),
		errors.Is(err, domain.ErrInsufficientBalance):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrLinkAlreadyCompleted),
		errors.Is(err, domain.ErrLinkExpired),
		errors.Is(err, domain.ErrInvalidCode),
		errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type linkResponse struct {
	LinkID    string    `json:"link_id"`
	OrderID   string    `json:"order_id"`
	UserID    string    `json:"user_id"`
	Amount    int64     `json:"amount"`
	Provider  string    `json:"provider"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func toLinkResponse(l *model.PaymentLink) linkResponse {
	return linkResponse{
		LinkID:    l.LinkID,
		OrderID:   l.OrderID,
		UserID:    l.UserID,
		Amount:    l.Amount,
		Provider:  string(l.Provider),
		Status:    string(l.Status),
		CreatedAt: l.CreatedAt,
		ExpiresAt: l.ExpiresAt,
	}
}

func (s *Server) handleCreateLink(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID   string `json:"user_id"`
		Amount   int64  `json:"amount"`
		Provider string `json:"provider"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON")
		return
	}
	link, err := s.linkUC.CreateLink(r.Context(), req.UserID, req.Amount, model.Provider(req.Provider))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLinkResponse(link))
}

func (s *Server) handleGetLink(w http.ResponseWriter, r *http.Request) {
	link, err := s.linkUC.Resolve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLinkResponse(link))
}

func (s *Server) handleCancelLink(w http.ResponseWriter, r *http.Request) {
	if err := s.linkUC.Cancel(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(model.LinkStatusCancelled)})
}

// handleWebhook ingests a provider delivery. Duplicate and Ignore are 200s: a
// non-2xx would make the provider redeliver a payload we have already settled.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	decision, err := s.webhookUC.Ingest(r.Context(), raw)
	if err != nil {
		// Transient failure; the dedup record is released so redelivery can retry.
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": string(decision)})
}

// handleRedeemCode exchanges the monthly activation code for a premium month.
func (s *Server) handleRedeemCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
		Code   string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON")
		return
	}
	res, err := s.activationUC.RedeemCode(r.Context(), req.UserID, req.Code)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":    res.UserID,
		"new_expiry": res.NewExpiry,
		"extended":   res.Extended,
	})
}

type withdrawalResponse struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	Amount          int64      `json:"amount"`
	Status          string     `json:"status"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	ClosedAt        *time.Time `json:"closed_at,omitempty"`
}

func toWithdrawalResponse(wr *model.WithdrawalRequest) withdrawalResponse {
	return withdrawalResponse{
		ID:              wr.ID,
		UserID:          wr.UserID,
		Amount:          wr.Amount,
		Status:          string(wr.Status),
		RejectionReason: wr.RejectionReason,
		CreatedAt:       wr.CreatedAt,
		ApprovedAt:      wr.ApprovedAt,
		CompletedAt:     wr.CompletedAt,
		ClosedAt:        wr.ClosedAt,
	}
}

func (s *Server) handleRequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
		Amount int64  `json:"amount"`
		Bank   struct {
			Number     string `json:"number"`
			HolderName string `json:"holder_name"`
			Type       string `json:"type"`
		} `json:"bank_account"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON")
		return
	}
	wr, err := s.withdrawalUC.RequestWithdrawal(r.Context(), req.UserID, req.Amount, model.BankAccount{
		Number:     req.Bank.Number,
		HolderName: req.Bank.HolderName,
		Type:       model.BankAccountType(req.Bank.Type),
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWithdrawalResponse(wr))
}

func (s *Server) handleGetWithdrawal(w http.ResponseWriter, r *http.Request) {
	wr, err := s.withdrawalUC.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWithdrawalResponse(wr))
}

func (s *Server) handleCancelWithdrawal(w http.ResponseWriter, r *http.Request) {
	if err := s.withdrawalUC.Cancel(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(model.WithdrawalStatusCancelled)})
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	acct, err := s.withdrawalUC.Balance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":   acct.UserID,
		"available": acct.Available,
		"pending":   acct.Pending,
		"withdrawn": acct.Withdrawn,
	})
}

// handleAdminLogin exchanges the operator API key for a session token.
func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		APIKey string `json:"api_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON")
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.APIKey), []byte(s.apiKey)) != 1 {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	token, err := s.auth.Mint()
	if err != nil {
		s.log.Error().Err(err).Msg("token mint failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleManualActivation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
		Months int    `json:"months"`
		Note   string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON")
		return
	}
	res, err := s.activationUC.ActivateManual(r.Context(), req.UserID, req.Months, req.Note)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":    res.UserID,
		"new_expiry": res.NewExpiry,
		"extended":   res.Extended,
	})
}

func (s *Server) handleApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	if err := s.withdrawalUC.Approve(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(model.WithdrawalStatusProcessing)})
}

func (s *Server) handleCompleteWithdrawal(w http.ResponseWriter, r *http.Request) {
	if err := s.withdrawalUC.Complete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(model.WithdrawalStatusCompleted)})
}

func (s *Server) handleRejectWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON")
		return
	}
	if err := s.withdrawalUC.Reject(r.Context(), chi.URLParam(r, "id"), req.Reason); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(model.WithdrawalStatusRejected)})
}

func (s *Server) handleDailyJobs(w http.ResponseWriter, r *http.Request) {
	if err := s.maintUC.RunDailySubscriptionTasks(r.Context(), time.Now()); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}

func (s *Server) handleMonthlyJobs(w http.ResponseWriter, r *http.Request) {
	if err := s.maintUC.RunMonthlySubscriptionTasks(r.Context(), time.Now()); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}
