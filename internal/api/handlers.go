/**
 * @description
 * This file contains the HTTP handlers for the ledger-service's API endpoints.
 * Handlers are responsible for parsing incoming requests, calling the appropriate
 * methods on the application service, and writing the HTTP response. They act as the
 * bridge between the web layer and the business logic layer.
 *
 * @dependencies
 * - encoding/json, errors, fmt, log, net/http, strconv, strings, time: Standard Go libraries.
 * - github.com/go-chi/chi/v5: For URL parameter extraction.
 * - github.com/google/uuid: For parsing the authenticated user id.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kudipoint/ledger-service/internal/app"
	"github.com/kudipoint/ledger-service/internal/domain"
	"github.com/kudipoint/ledger-service/internal/store"
)

// LedgerHandlers holds the application service that handlers will use.
type LedgerHandlers struct {
	service *app.Service
}

// NewLedgerHandlers creates a new instance of LedgerHandlers.
func NewLedgerHandlers(service *app.Service) *LedgerHandlers {
	return &LedgerHandlers{service: service}
}

// transactionResponse is sent back to the client after a transaction has been
// recorded. NewBalance reflects the account after the entry's delta.
type transactionResponse struct {
	TransactionID string         `json:"transaction_id"`
	ReferenceID   string         `json:"reference_id"`
	Type          string         `json:"type"`
	Status        string         `json:"status"`
	Amount        int64          `json:"amount"`
	NewBalance    int64          `json:"new_balance"`
	Details       domain.Details `json:"details,omitempty"`
	Message       string         `json:"message"`
}

func buildTransactionResponse(record *domain.LedgerRecord, message string) transactionResponse {
	return transactionResponse{
		TransactionID: record.Transaction.ID.String(),
		ReferenceID:   record.Transaction.ReferenceID,
		Type:          string(record.Transaction.Type),
		Status:        string(record.Transaction.Status),
		Amount:        record.Transaction.Amount,
		NewBalance:    record.NewBalance,
		Details:       record.Details,
		Message:       message,
	}
}

// requestUserID resolves the authenticated user's UUID from the request
// context. The JWT subject claim carries the internal user id.
func (h *LedgerHandlers) requestUserID(w http.ResponseWriter, r *http.Request, endpoint string) (uuid.UUID, bool) {
	userIDStr, ok := GetAuthUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		log.Printf("level=warn component=api endpoint=%s outcome=reject reason=invalid_user_id user_id=%s", endpoint, userIDStr)
		h.writeError(w, http.StatusBadRequest, "Invalid user ID format")
		return uuid.Nil, false
	}
	return userID, true
}

// VerifyAirtimeMerchantHandler returns the merchant line to send airtime to
// for a network, the first step of an airtime-to-cash conversion.
func (h *LedgerHandlers) VerifyAirtimeMerchantHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requestUserID(w, r, "verify_airtime_merchant"); !ok {
		return
	}

	network := strings.TrimSpace(r.URL.Query().Get("network"))
	info, err := h.service.VerifyAirtimeMerchant(r.Context(), network)
	if err != nil {
		log.Printf("level=warn component=api endpoint=verify_airtime_merchant outcome=failed network=%s err=%v", network, err)
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, info)
}

// AirtimeConversionHandler handles requests to convert airtime to wallet cash.
func (h *LedgerHandlers) AirtimeConversionHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requestUserID(w, r, "airtime_conversion")
	if !ok {
		return
	}

	var req domain.AirtimeConversionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=airtime_conversion outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	log.Printf("level=info component=api endpoint=airtime_conversion outcome=accepted user_id=%s network=%s amount=%d", userID, req.Network, req.Amount)

	record, err := h.service.ProcessAirtimeConversion(r.Context(), userID, req)
	if err != nil {
		log.Printf("level=warn component=api endpoint=airtime_conversion outcome=failed user_id=%s err=%v", userID, err)
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, buildTransactionResponse(record, "Airtime conversion recorded"))
}

// DepositHandler handles requests to initialize a wallet deposit.
func (h *LedgerHandlers) DepositHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requestUserID(w, r, "deposit")
	if !ok {
		return
	}

	var req domain.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=deposit outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	log.Printf("level=info component=api endpoint=deposit outcome=accepted user_id=%s amount=%d", userID, req.Amount)

	initiation, err := h.service.ProcessDeposit(r.Context(), userID, req)
	if err != nil {
		log.Printf("level=warn component=api endpoint=deposit outcome=failed user_id=%s err=%v", userID, err)
		h.writeServiceError(w, err)
		return
	}

	response := map[string]interface{}{
		"transaction":       buildTransactionResponse(initiation.Record, "Deposit initiated"),
		"authorization_url": initiation.AuthorizationURL,
	}
	h.writeJSON(w, http.StatusCreated, response)
}

// ConfirmDepositHandler verifies a pending deposit with the payment gateway.
// The service rejects references owned by other users.
func (h *LedgerHandlers) ConfirmDepositHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requestUserID(w, r, "confirm_deposit")
	if !ok {
		return
	}

	referenceID := strings.TrimSpace(chi.URLParam(r, "reference"))
	if referenceID == "" {
		h.writeError(w, http.StatusBadRequest, "Reference ID is required")
		return
	}

	tx, err := h.service.ConfirmDeposit(r.Context(), userID, referenceID)
	if err != nil {
		log.Printf("level=warn component=api endpoint=confirm_deposit outcome=failed reference_id=%s err=%v", referenceID, err)
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, tx)
}

// WithdrawalHandler handles requests to withdraw wallet funds to a bank account.
func (h *LedgerHandlers) WithdrawalHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requestUserID(w, r, "withdrawal")
	if !ok {
		return
	}

	var req domain.WithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=withdrawal outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	log.Printf("level=info component=api endpoint=withdrawal outcome=accepted user_id=%s amount=%d", userID, req.Amount)

	record, err := h.service.ProcessWithdrawal(r.Context(), userID, req)
	if err != nil {
		log.Printf("level=warn component=api endpoint=withdrawal outcome=failed user_id=%s err=%v", userID, err)
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, buildTransactionResponse(record, "Withdrawal initiated"))
}

// BillPaymentHandler handles requests to pay a bill from wallet funds.
func (h *LedgerHandlers) BillPaymentHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requestUserID(w, r, "bill_payment")
	if !ok {
		return
	}

	var req domain.BillPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=bill_payment outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	log.Printf("level=info component=api endpoint=bill_payment outcome=accepted user_id=%s bill_type=%s amount=%d", userID, req.BillType, req.Amount)

	record, err := h.service.ProcessBillPayment(r.Context(), userID, req)
	if err != nil {
		log.Printf("level=warn component=api endpoint=bill_payment outcome=failed user_id=%s err=%v", userID, err)
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, buildTransactionResponse(record, "Bill payment recorded"))
}

// GetBalanceHandler handles requests to get the user's account balance.
func (h *LedgerHandlers) GetBalanceHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requestUserID(w, r, "get_balance")
	if !ok {
		return
	}

	balance, err := h.service.GetBalance(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			log.Printf("level=warn component=api endpoint=get_balance outcome=not_found user_id=%s", userID)
			h.writeError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("level=error component=api endpoint=get_balance outcome=failed user_id=%s err=%v", userID, err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]int64{"account_balance": balance})
}

// GetTransactionHandler handles requests to fetch one transaction by reference.
func (h *LedgerHandlers) GetTransactionHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requestUserID(w, r, "get_transaction")
	if !ok {
		return
	}

	referenceID := strings.TrimSpace(chi.URLParam(r, "reference"))
	if referenceID == "" {
		h.writeError(w, http.StatusBadRequest, "Reference ID is required")
		return
	}

	tx, err := h.service.GetTransaction(r.Context(), referenceID)
	if err != nil {
		if errors.Is(err, store.ErrTransactionNotFound) {
			h.writeError(w, http.StatusNotFound, "Transaction not found")
			return
		}
		log.Printf("level=error component=api endpoint=get_transaction outcome=failed reference_id=%s err=%v", referenceID, err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// Users may only read their own ledger entries.
	if tx.UserID != userID {
		h.writeError(w, http.StatusNotFound, "Transaction not found")
		return
	}

	h.writeJSON(w, http.StatusOK, tx)
}

// GetHistoryHandler handles requests for the user's transaction history.
// Supported query parameters: type, from, to (RFC 3339), limit, offset.
func (h *LedgerHandlers) GetHistoryHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requestUserID(w, r, "get_history")
	if !ok {
		return
	}

	filter := domain.HistoryFilter{UserID: &userID}

	if rawType := strings.TrimSpace(r.URL.Query().Get("type")); rawType != "" {
		txType := domain.TransactionType(rawType)
		if !txType.Valid() {
			h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown transaction type %q", rawType))
			return
		}
		filter.Type = &txType
	}

	if rawFrom := strings.TrimSpace(r.URL.Query().Get("from")); rawFrom != "" {
		from, err := time.Parse(time.RFC3339, rawFrom)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid 'from' timestamp; expected RFC 3339")
			return
		}
		filter.From = &from
	}
	if rawTo := strings.TrimSpace(r.URL.Query().Get("to")); rawTo != "" {
		to, err := time.Parse(time.RFC3339, rawTo)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid 'to' timestamp; expected RFC 3339")
			return
		}
		filter.To = &to
	}

	limit, err := parseOptionalInt(r.URL.Query().Get("limit"), 0)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid limit")
		return
	}
	offset, err := parseOptionalInt(r.URL.Query().Get("offset"), 0)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid offset")
		return
	}
	filter.Limit = limit
	filter.Offset = offset

	entries, err := h.service.History(r.Context(), filter)
	if err != nil {
		log.Printf("level=error component=api endpoint=get_history outcome=failed user_id=%s err=%v", userID, err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"transactions": entries})
}

// writeServiceError maps service-layer errors onto HTTP status codes.
func (h *LedgerHandlers) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrInsufficientFunds):
		h.writeError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, store.ErrUserNotFound):
		h.writeError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, store.ErrAccountSuspended):
		h.writeError(w, http.StatusForbidden, "Account is suspended")
	case errors.Is(err, store.ErrDuplicateReference):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrTransactionNotFound):
		h.writeError(w, http.StatusNotFound, "Transaction not found")
	case errors.Is(err, app.ErrRateLimited):
		h.writeError(w, http.StatusTooManyRequests, "Too many requests; slow down")
	case errors.Is(err, app.ErrInvalidTransition):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrValidation),
		errors.Is(err, app.ErrInvalidAmount),
		errors.Is(err, app.ErrInvalidType),
		errors.Is(err, app.ErrDetailMismatch):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func parseOptionalInt(raw string, fallback int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(trimmed)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("invalid integer %q", raw)
	}
	return value, nil
}

// writeJSON is a helper for writing JSON responses.
func (h *LedgerHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *LedgerHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
