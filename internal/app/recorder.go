/**
 * @description
 * The transaction recorder orchestrates one atomic unit of work: create the
 * generic transaction row, create the type-specific detail row keyed by the
 * same reference id, and apply the signed balance delta. Validation happens
 * here, before any atomic work begins; atomicity itself is owned by the
 * repository (a single database transaction per Record call).
 */

package app

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kudipoint/ledger-service/internal/domain"
	"github.com/kudipoint/ledger-service/internal/store"
)

// RecordParams describes one fully-formed money-movement event. The caller has
// already obtained a definitive gateway result; Confirmed reports whether the
// gateway settled synchronously, in which case the entry is recorded as
// successful instead of pending.
type RecordParams struct {
	UserID      uuid.UUID
	Type        domain.TransactionType
	Amount      int64  // in kobo
	ReferenceID string // empty means the recorder allocates one
	Details     domain.Details
	Confirmed   bool
}

// Recorder records ledger entries. It is safe for concurrent use; all shared
// state lives in the storage backend.
type Recorder struct {
	repo      store.Repository
	allocator *ReferenceAllocator
}

// NewRecorder creates a Recorder backed by the given repository and allocator.
func NewRecorder(repo store.Repository, allocator *ReferenceAllocator) *Recorder {
	return &Recorder{repo: repo, allocator: allocator}
}

// Record validates params and executes the atomic unit of work. On a duplicate
// reference it fails with store.ErrDuplicateReference when the reference was
// caller-supplied; a generated reference that collides at insert time (the
// advisory pre-check raced a concurrent insert) is replaced with a fresh
// candidate within the allocator's retry budget.
func (rec *Recorder) Record(ctx context.Context, params RecordParams) (*domain.LedgerRecord, error) {
	if params.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if !params.Type.Valid() {
		return nil, ErrInvalidType
	}
	if params.Details == nil || params.Details.TransactionType() != params.Type {
		return nil, ErrDetailMismatch
	}
	if params.UserID == uuid.Nil {
		return nil, store.ErrUserNotFound
	}

	status := domain.StatusPending
	if params.Confirmed {
		status = domain.StatusSuccessful
	}

	generated := params.ReferenceID == ""
	referenceID := params.ReferenceID

	for attempt := 0; ; attempt++ {
		if referenceID == "" {
			allocated, err := rec.allocator.Allocate(ctx)
			if err != nil {
				return nil, err
			}
			referenceID = allocated
		}

		entry := &domain.Transaction{
			ReferenceID: referenceID,
			UserID:      params.UserID,
			Type:        params.Type,
			Amount:      params.Amount,
			Status:      status,
		}
		record, err := rec.repo.RecordTransaction(ctx, entry, params.Details)
		if err == nil {
			return record, nil
		}
		if errors.Is(err, store.ErrDuplicateReference) && generated && attempt+1 < rec.allocator.maxAttempts {
			referenceID = ""
			continue
		}
		return nil, err
	}
}
