/**
 * @description
 * This file contains HTTP handlers for the internal administrative endpoints:
 * status transitions (approve, fail, refund), user provisioning, and account
 * suspension. These routes sit behind the internal API key middleware and are
 * called by back-office tooling and sibling services, never by end users.
 *
 * @dependencies
 * - context, encoding/json, log, net/http, strings: Standard Go libraries.
 * - github.com/go-chi/chi/v5, github.com/google/uuid: For routing params and ids.
 * - internal/domain: For domain models.
 */

package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kudipoint/ledger-service/internal/domain"
)

// ApproveTransactionHandler moves a pending transaction to approved.
func (h *LedgerHandlers) ApproveTransactionHandler(w http.ResponseWriter, r *http.Request) {
	h.transitionHandler(w, r, "approve_transaction", h.service.ApproveTransaction)
}

// FailTransactionHandler moves a pending transaction to failed and reverses
// its balance delta.
func (h *LedgerHandlers) FailTransactionHandler(w http.ResponseWriter, r *http.Request) {
	h.transitionHandler(w, r, "fail_transaction", h.service.FailTransaction)
}

// RefundTransactionHandler refunds a settled transaction.
func (h *LedgerHandlers) RefundTransactionHandler(w http.ResponseWriter, r *http.Request) {
	h.transitionHandler(w, r, "refund_transaction", h.service.RefundTransaction)
}

func (h *LedgerHandlers) transitionHandler(
	w http.ResponseWriter,
	r *http.Request,
	endpoint string,
	transition func(ctx context.Context, referenceID string) (*domain.Transaction, error),
) {
	referenceID := strings.TrimSpace(chi.URLParam(r, "reference"))
	if referenceID == "" {
		h.writeError(w, http.StatusBadRequest, "Reference ID is required")
		return
	}

	tx, err := transition(r.Context(), referenceID)
	if err != nil {
		log.Printf("level=warn component=api endpoint=%s outcome=failed reference_id=%s err=%v", endpoint, referenceID, err)
		h.writeServiceError(w, err)
		return
	}

	log.Printf("level=info component=api endpoint=%s outcome=applied reference_id=%s status=%s", endpoint, referenceID, tx.Status)
	h.writeJSON(w, http.StatusOK, tx)
}

// CreateUserHandler provisions a new ledger user with a zero balance.
func (h *LedgerHandlers) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	userID := uuid.New()
	if strings.TrimSpace(req.UserID) != "" {
		parsed, err := uuid.Parse(req.UserID)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid user ID format")
			return
		}
		userID = parsed
	}

	user := &domain.User{ID: userID, Status: domain.UserActive}
	if err := h.service.CreateUser(r.Context(), user); err != nil {
		log.Printf("level=error component=api endpoint=create_user outcome=failed user_id=%s err=%v", userID, err)
		h.writeServiceError(w, err)
		return
	}

	log.Printf("level=info component=api endpoint=create_user outcome=created user_id=%s", userID)
	h.writeJSON(w, http.StatusCreated, user)
}

// SetUserStatusHandler suspends or reactivates a user account.
func (h *LedgerHandlers) SetUserStatusHandler(w http.ResponseWriter, r *http.Request) {
	userIDStr := chi.URLParam(r, "id")
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	status := domain.UserStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if err := h.service.SetUserStatus(r.Context(), userID, status); err != nil {
		log.Printf("level=warn component=api endpoint=set_user_status outcome=failed user_id=%s status=%s err=%v", userID, status, err)
		h.writeServiceError(w, err)
		return
	}

	log.Printf("level=info component=api endpoint=set_user_status outcome=applied user_id=%s status=%s", userID, status)
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "User status updated"})
}
