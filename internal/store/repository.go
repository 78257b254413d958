/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract for all
 * data access operations required by the ledger-service. By defining an interface,
 * we decouple the application's business logic from the specific database implementation
 * (e.g., PostgreSQL), making the code more modular and easier to test.
 *
 * @dependencies
 * - context: Standard Go library.
 * - github.com/google/uuid: For UUID handling.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kudipoint/ledger-service/internal/domain"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrAccountSuspended    = errors.New("account is suspended")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrDuplicateReference  = errors.New("reference id already in use")
	ErrTransactionNotFound = errors.New("transaction not found")
)

// TransitionResult reports the outcome of an atomic status transition. When the
// transaction was already outside the transition's origin set, Applied is false
// and Transaction holds the untouched current row so the caller can decide
// between an idempotent no-op and an invalid transition.
type TransitionResult struct {
	Transaction domain.Transaction
	NewBalance  *int64
	Applied     bool
}

// Repository defines the set of methods for interacting with the database.
// Every method that moves money executes as one database transaction: either
// all of its writes commit or none of them do.
type Repository interface {
	// User and account methods
	FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	CreateUser(ctx context.Context, user *domain.User) error
	UpdateUserStatus(ctx context.Context, userID uuid.UUID, status domain.UserStatus) error
	GetBalance(ctx context.Context, userID uuid.UUID) (int64, error)

	// Reference allocation support. ReferenceExists is an advisory pre-check;
	// the UNIQUE constraint on transactions.reference_id is authoritative and
	// surfaces as ErrDuplicateReference at insert time.
	ReferenceExists(ctx context.Context, referenceID string) (bool, error)

	// Ledger recording: inserts the transaction row, its type-specific detail
	// row, and applies the signed balance delta in one unit of work.
	RecordTransaction(ctx context.Context, tx *domain.Transaction, details domain.Details) (*domain.LedgerRecord, error)

	// State machine transitions. Each locks the transaction row and, when a
	// balance reversal is involved, the user row, in a single unit of work.
	ApproveTransaction(ctx context.Context, referenceID string) (*TransitionResult, error)
	FailTransaction(ctx context.Context, referenceID string) (*TransitionResult, error)
	RefundTransaction(ctx context.Context, referenceID string, origins []domain.TransactionStatus) (*TransitionResult, error)

	// Read paths
	FindTransactionByReference(ctx context.Context, referenceID string) (*domain.Transaction, error)
	ListHistory(ctx context.Context, filter domain.HistoryFilter) ([]domain.HistoryEntry, error)
}
