/**
 * @description
 * The transaction state machine governs the lifecycle of recorded ledger
 * entries: pending → {approved, failed}; refund-authorized origins → refunded;
 * failed and refunded are terminal. Transitions are administrative actions and
 * each is idempotent against re-application to the state it already produced,
 * so caller-side retries never surface spurious errors.
 *
 * Which originating statuses authorize a refund is a configuration point
 * (REFUND_FROM_STATUSES) rather than a hard-coded rule; the default authorizes
 * refunds of approved and successful transactions.
 */

package app

import (
	"context"
	"fmt"

	"github.com/kudipoint/ledger-service/internal/domain"
	"github.com/kudipoint/ledger-service/internal/store"
)

// DefaultRefundOrigins authorizes refunds of settled transactions.
var DefaultRefundOrigins = []domain.TransactionStatus{domain.StatusApproved, domain.StatusSuccessful}

// StateMachine applies administrative status transitions.
type StateMachine struct {
	repo          store.Repository
	refundOrigins []domain.TransactionStatus
}

// NewStateMachine creates a StateMachine. A nil/empty origin list falls back
// to DefaultRefundOrigins.
func NewStateMachine(repo store.Repository, refundOrigins []domain.TransactionStatus) *StateMachine {
	if len(refundOrigins) == 0 {
		refundOrigins = DefaultRefundOrigins
	}
	return &StateMachine{repo: repo, refundOrigins: refundOrigins}
}

// Approve moves a pending transaction to approved. Approving a transaction
// that has already settled is a no-op success; any other state rejects with
// ErrInvalidTransition.
func (m *StateMachine) Approve(ctx context.Context, referenceID string) (*domain.Transaction, error) {
	res, err := m.repo.ApproveTransaction(ctx, referenceID)
	if err != nil {
		return nil, err
	}
	if res.Applied || res.Transaction.Status.Settled() {
		return &res.Transaction, nil
	}
	return nil, fmt.Errorf("cannot approve transaction in status %q: %w", res.Transaction.Status, ErrInvalidTransition)
}

// Fail moves a pending transaction to failed, reversing the balance delta that
// was applied when it was recorded. Failing an already-failed transaction is a
// no-op success.
func (m *StateMachine) Fail(ctx context.Context, referenceID string) (*domain.Transaction, error) {
	res, err := m.repo.FailTransaction(ctx, referenceID)
	if err != nil {
		return nil, err
	}
	if res.Applied || res.Transaction.Status == domain.StatusFailed {
		return &res.Transaction, nil
	}
	return nil, fmt.Errorf("cannot fail transaction in status %q: %w", res.Transaction.Status, ErrInvalidTransition)
}

// Refund reverses the original balance delta of a transaction whose current
// status is one of the configured refund origins and marks it refunded.
// Refunding an already-refunded transaction is a no-op success.
func (m *StateMachine) Refund(ctx context.Context, referenceID string) (*domain.Transaction, error) {
	res, err := m.repo.RefundTransaction(ctx, referenceID, m.refundOrigins)
	if err != nil {
		return nil, err
	}
	if res.Applied || res.Transaction.Status == domain.StatusRefunded {
		return &res.Transaction, nil
	}
	return nil, fmt.Errorf("cannot refund transaction in status %q: %w", res.Transaction.Status, ErrInvalidTransition)
}
