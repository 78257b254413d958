/**
 * @description
 * This file sets up the HTTP router for the ledger-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies any
 * necessary middleware, such as for authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// LedgerRoutes creates and returns a new router for the ledger service.
func LedgerRoutes(h *LedgerHandlers, jwksURL, internalAPIKey string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Group routes that require end-user authentication.
	r.Group(func(r chi.Router) {
		r.Use(JWTAuthMiddleware(jwksURL))

		r.Get("/transactions/airtime/merchant", h.VerifyAirtimeMerchantHandler)
		r.Post("/transactions/airtime", h.AirtimeConversionHandler)
		r.Post("/transactions/deposits", h.DepositHandler)
		r.Post("/transactions/deposits/{reference}/confirm", h.ConfirmDepositHandler)
		r.Post("/transactions/withdrawals", h.WithdrawalHandler)
		r.Post("/transactions/bills", h.BillPaymentHandler)

		r.Get("/transactions", h.GetHistoryHandler)
		r.Get("/transactions/{reference}", h.GetTransactionHandler)
		r.Get("/balance", h.GetBalanceHandler)
	})

	// Internal administrative endpoints, gated by the shared internal API key.
	r.Group(func(r chi.Router) {
		r.Use(InternalAPIKeyMiddleware(internalAPIKey))

		r.Post("/internal/transactions/{reference}/approve", h.ApproveTransactionHandler)
		r.Post("/internal/transactions/{reference}/fail", h.FailTransactionHandler)
		r.Post("/internal/transactions/{reference}/refund", h.RefundTransactionHandler)
		r.Post("/internal/users", h.CreateUserHandler)
		r.Put("/internal/users/{id}/status", h.SetUserStatusHandler)
	})

	return r
}
