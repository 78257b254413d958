package app

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/kudipoint/ledger-service/internal/domain"
)

// recordEntry seeds the fake with one recorded transaction and returns its
// reference id.
func recordEntry(t *testing.T, repo *ledgerRepoFake, userID uuid.UUID, txType domain.TransactionType, amount int64, details domain.Details, confirmed bool) string {
	t.Helper()
	record, err := newTestRecorder(repo).Record(context.Background(), RecordParams{
		UserID:    userID,
		Type:      txType,
		Amount:    amount,
		Details:   details,
		Confirmed: confirmed,
	})
	if err != nil {
		t.Fatalf("failed to seed transaction: %v", err)
	}
	return record.Transaction.ReferenceID
}

func mustBalance(t *testing.T, repo *ledgerRepoFake, userID uuid.UUID) int64 {
	t.Helper()
	balance, err := repo.GetBalance(context.Background(), userID)
	if err != nil {
		t.Fatalf("failed to read balance: %v", err)
	}
	return balance
}

func TestApprove_PendingBecomesApprovedWithoutBalanceChange(t *testing.T) {
	repo := newLedgerRepoFake()
	userID := repo.addUser(0, domain.UserActive)
	ref := recordEntry(t, repo, userID, domain.TypeDeposit, 500, domain.DepositDetail{}, false)
	states := NewStateMachine(repo, nil)

	tx, err := states.Approve(context.Background(), ref)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if tx.Status != domain.StatusApproved {
		t.Fatalf("expected approved, got %q", tx.Status)
	}
	if got := mustBalance(t, repo, userID); got != 500 {
		t.Fatalf("expected balance unchanged at 500, got %d", got)
	}
}

func TestApprove_ReapplyingIsIdempotent(t *testing.T) {
	repo := newLedgerRepoFake()
	userID := repo.addUser(0, domain.UserActive)
	ref := recordEntry(t, repo, userID, domain.TypeDeposit, 500, domain.DepositDetail{}, false)
	states := NewStateMachine(repo, nil)

	if _, err := states.Approve(context.Background(), ref); err != nil {
		t.Fatalf("first approve failed: %v", err)
	}
	tx, err := states.Approve(context.Background(), ref)
	if err != nil {
		t.Fatalf("expected idempotent re-approve, got %v", err)
	}
	if tx.Status != domain.StatusApproved {
		t.Fatalf("expected approved, got %q", tx.Status)
	}
	if got := mustBalance(t, repo, userID); got != 500 {
		t.Fatalf("expected balance 500 after re-approve, got %d", got)
	}
}

func TestApprove_FailedTransactionRejected(t *testing.T) {
	repo := newLedgerRepoFake()
	userID := repo.addUser(0, domain.UserActive)
	ref := recordEntry(t, repo, userID, domain.TypeDeposit, 500, domain.DepositDetail{}, false)
	states := NewStateMachine(repo, nil)

	if _, err := states.Fail(context.Background(), ref); err != nil {
		t.Fatalf("fail transition failed: %v", err)
	}
	_, err := states.Approve(context.Background(), ref)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestFail_ReversesDepositCredit(t *testing.T) {
	repo := newLedgerRepoFake()
	userID := repo.addUser(0, domain.UserActive)
	ref := recordEntry(t, repo, userID, domain.TypeDeposit, 500, domain.DepositDetail{}, false)
	states := NewStateMachine(repo, nil)

	tx, err := states.Fail(context.Background(), ref)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if tx.Status != domain.StatusFailed {
		t.Fatalf("expected failed, got %q", tx.Status)
	}
	if got := mustBalance(t, repo, userID); got != 0 {
		t.Fatalf("expected credit reversed to 0, got %d", got)
	}
}

func TestFail_ReversesDebitHold(t *testing.T) {
	repo := newLedgerRepoFake()
	userID := repo.addUser(1000, domain.UserActive)
	ref := recordEntry(t, repo, userID, domain.TypeDebit, 400, domain.DebitDetail{Recipient: "0123456789"}, false)
	states := NewStateMachine(repo, nil)

	if got := mustBalance(t, repo, userID); got != 600 {
		t.Fatalf("expected 600 after debit hold, got %d", got)
	}
	if _, err := states.Fail(context.Background(), ref); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if got := mustBalance(t, repo, userID); got != 1000 {
		t.Fatalf("expected debit reversed to 1000, got %d", got)
	}
}

func TestFail_ReapplyingIsIdempotent(t *testing.T) {
	repo := newLedgerRepoFake()
	userID := repo.addUser(0, domain.UserActive)
	ref := recordEntry(t, repo, userID, domain.TypeDeposit, 500, domain.DepositDetail{}, false)
	states := NewStateMachine(repo, nil)

	if _, err := states.Fail(context.Background(), ref); err != nil {
		t.Fatalf("first fail failed: %v", err)
	}
	if _, err := states.Fail(context.Background(), ref); err != nil {
		t.Fatalf("expected idempotent re-fail, got %v", err)
	}
	if got := mustBalance(t, repo, userID); got != 0 {
		t.Fatalf("expected reversal applied exactly once, balance %d", got)
	}
}

func TestRefund_DefaultOriginsRefundSettledDebit(t *testing.T) {
	repo := newLedgerRepoFake()
	userID := repo.addUser(1000, domain.UserActive)
	ref := recordEntry(t, repo, userID, domain.TypeBillPayment, 300, domain.BillDetail{BillType: "tv", BillProvider: "dstv"}, true)
	states := NewStateMachine(repo, nil)

	tx, err := states.Refund(context.Background(), ref)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if tx.Status != domain.StatusRefunded {
		t.Fatalf("expected refunded, got %q", tx.Status)
	}
	if got := mustBalance(t, repo, userID); got != 1000 {
		t.Fatalf("expected balance restored to 1000, got %d", got)
	}
}

func TestRefund_PendingRejectedUnderDefaultOrigins(t *testing.T) {
	repo := newLedgerRepoFake()
	userID := repo.addUser(1000, domain.UserActive)
	ref := recordEntry(t, repo, userID, domain.TypeDebit, 300, domain.DebitDetail{Recipient: "0123456789"}, false)
	states := NewStateMachine(repo, nil)

	_, err := states.Refund(context.Background(), ref)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if got := mustBalance(t, repo, userID); got != 700 {
		t.Fatalf("expected balance untouched at 700, got %d", got)
	}
}

func TestRefund_ConfiguredOriginsCanIncludePending(t *testing.T) {
	repo := newLedgerRepoFake()
	userID := repo.addUser(1000, domain.UserActive)
	ref := recordEntry(t, repo, userID, domain.TypeDebit, 300, domain.DebitDetail{Recipient: "0123456789"}, false)
	states := NewStateMachine(repo, []domain.TransactionStatus{domain.StatusPending, domain.StatusSuccessful})

	tx, err := states.Refund(context.Background(), ref)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if tx.Status != domain.StatusRefunded {
		t.Fatalf("expected refunded, got %q", tx.Status)
	}
	if got := mustBalance(t, repo, userID); got != 1000 {
		t.Fatalf("expected balance restored to 1000, got %d", got)
	}
}

func TestRefund_ReapplyingIsIdempotent(t *testing.T) {
	repo := newLedgerRepoFake()
	userID := repo.addUser(1000, domain.UserActive)
	ref := recordEntry(t, repo, userID, domain.TypeBillPayment, 300, domain.BillDetail{BillType: "tv", BillProvider: "dstv"}, true)
	states := NewStateMachine(repo, nil)

	if _, err := states.Refund(context.Background(), ref); err != nil {
		t.Fatalf("first refund failed: %v", err)
	}
	if _, err := states.Refund(context.Background(), ref); err != nil {
		t.Fatalf("expected idempotent re-refund, got %v", err)
	}
	if got := mustBalance(t, repo, userID); got != 1000 {
		t.Fatalf("expected reversal applied exactly once, balance %d", got)
	}
}
