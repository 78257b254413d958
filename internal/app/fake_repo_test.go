package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kudipoint/ledger-service/internal/domain"
	"github.com/kudipoint/ledger-service/internal/store"
)

// ledgerRepoFake is an in-memory stand-in for the Postgres repository. It
// mirrors the repository's unit-of-work semantics closely enough to exercise
// the recorder and state machine: balance deltas apply at record time, reversals
// apply on fail/refund, and duplicate references are rejected at insert.
type ledgerRepoFake struct {
	store.Repository

	users   map[uuid.UUID]*domain.User
	txs     map[string]*domain.Transaction
	details map[string]domain.Details

	// order holds reference ids in insertion order; ListHistory walks it
	// backwards to serve the newest-first contract.
	order []string

	// taken marks references the advisory pre-check reports as in use.
	taken map[string]bool

	// forcedDuplicates makes the next N inserts fail with ErrDuplicateReference
	// regardless of the candidate, simulating a pre-check race.
	forcedDuplicates int

	insertAttempts int
}

func newLedgerRepoFake() *ledgerRepoFake {
	return &ledgerRepoFake{
		users:   make(map[uuid.UUID]*domain.User),
		txs:     make(map[string]*domain.Transaction),
		details: make(map[string]domain.Details),
		taken:   make(map[string]bool),
	}
}

func (f *ledgerRepoFake) addUser(balance int64, status domain.UserStatus) uuid.UUID {
	id := uuid.New()
	f.users[id] = &domain.User{ID: id, AccountBalance: balance, Status: status}
	return id
}

func (f *ledgerRepoFake) FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, ok := f.users[userID]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *ledgerRepoFake) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	user, ok := f.users[userID]
	if !ok {
		return 0, store.ErrUserNotFound
	}
	return user.AccountBalance, nil
}

func (f *ledgerRepoFake) ReferenceExists(ctx context.Context, referenceID string) (bool, error) {
	if f.taken[referenceID] {
		return true, nil
	}
	_, ok := f.txs[referenceID]
	return ok, nil
}

func (f *ledgerRepoFake) RecordTransaction(ctx context.Context, tx *domain.Transaction, details domain.Details) (*domain.LedgerRecord, error) {
	f.insertAttempts++

	user, ok := f.users[tx.UserID]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	if user.Status == domain.UserSuspended {
		return nil, store.ErrAccountSuspended
	}
	if f.forcedDuplicates > 0 {
		f.forcedDuplicates--
		return nil, store.ErrDuplicateReference
	}
	if _, dup := f.txs[tx.ReferenceID]; dup || f.taken[tx.ReferenceID] {
		return nil, store.ErrDuplicateReference
	}

	newBalance := user.AccountBalance + tx.Type.Direction()*tx.Amount
	if newBalance < 0 {
		return nil, store.ErrInsufficientFunds
	}

	tx.ID = uuid.New()
	now := time.Now().UTC()
	tx.CreatedAt = now
	tx.UpdatedAt = now

	stored := *tx
	f.txs[tx.ReferenceID] = &stored
	f.details[tx.ReferenceID] = details
	f.order = append(f.order, tx.ReferenceID)
	user.AccountBalance = newBalance

	return &domain.LedgerRecord{Transaction: stored, Details: details, NewBalance: newBalance}, nil
}

func (f *ledgerRepoFake) ApproveTransaction(ctx context.Context, referenceID string) (*store.TransitionResult, error) {
	tx, ok := f.txs[referenceID]
	if !ok {
		return nil, store.ErrTransactionNotFound
	}
	if tx.Status != domain.StatusPending {
		return &store.TransitionResult{Transaction: *tx, Applied: false}, nil
	}
	tx.Status = domain.StatusApproved
	tx.UpdatedAt = time.Now().UTC()
	return &store.TransitionResult{Transaction: *tx, Applied: true}, nil
}

func (f *ledgerRepoFake) FailTransaction(ctx context.Context, referenceID string) (*store.TransitionResult, error) {
	tx, ok := f.txs[referenceID]
	if !ok {
		return nil, store.ErrTransactionNotFound
	}
	if tx.Status != domain.StatusPending {
		return &store.TransitionResult{Transaction: *tx, Applied: false}, nil
	}
	newBalance, err := f.reverseDelta(tx)
	if err != nil {
		return nil, err
	}
	tx.Status = domain.StatusFailed
	tx.UpdatedAt = time.Now().UTC()
	return &store.TransitionResult{Transaction: *tx, NewBalance: &newBalance, Applied: true}, nil
}

func (f *ledgerRepoFake) RefundTransaction(ctx context.Context, referenceID string, origins []domain.TransactionStatus) (*store.TransitionResult, error) {
	tx, ok := f.txs[referenceID]
	if !ok {
		return nil, store.ErrTransactionNotFound
	}
	matched := false
	for _, origin := range origins {
		if tx.Status == origin {
			matched = true
			break
		}
	}
	if !matched {
		return &store.TransitionResult{Transaction: *tx, Applied: false}, nil
	}
	newBalance, err := f.reverseDelta(tx)
	if err != nil {
		return nil, err
	}
	tx.Status = domain.StatusRefunded
	tx.UpdatedAt = time.Now().UTC()
	return &store.TransitionResult{Transaction: *tx, NewBalance: &newBalance, Applied: true}, nil
}

func (f *ledgerRepoFake) reverseDelta(tx *domain.Transaction) (int64, error) {
	user, ok := f.users[tx.UserID]
	if !ok {
		return 0, store.ErrUserNotFound
	}
	newBalance := user.AccountBalance - tx.Type.Direction()*tx.Amount
	if newBalance < 0 {
		return 0, store.ErrInsufficientFunds
	}
	user.AccountBalance = newBalance
	return newBalance, nil
}

func (f *ledgerRepoFake) ListHistory(ctx context.Context, filter domain.HistoryFilter) ([]domain.HistoryEntry, error) {
	var matched []domain.HistoryEntry
	for i := len(f.order) - 1; i >= 0; i-- {
		tx := f.txs[f.order[i]]
		if filter.UserID != nil && tx.UserID != *filter.UserID {
			continue
		}
		if filter.Type != nil && tx.Type != *filter.Type {
			continue
		}
		if filter.From != nil && tx.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && tx.CreatedAt.After(*filter.To) {
			continue
		}
		matched = append(matched, domain.HistoryEntry{Transaction: *tx, Details: f.details[tx.ReferenceID]})
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (f *ledgerRepoFake) FindTransactionByReference(ctx context.Context, referenceID string) (*domain.Transaction, error) {
	tx, ok := f.txs[referenceID]
	if !ok {
		return nil, store.ErrTransactionNotFound
	}
	copied := *tx
	return &copied, nil
}
