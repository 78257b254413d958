package app

import (
	"context"
	"testing"

	"github.com/kudipoint/ledger-service/internal/domain"
)

func newTestConsumer(repo *ledgerRepoFake) *GatewayStatusConsumer {
	return NewGatewayStatusConsumer(repo, NewStateMachine(repo, nil))
}

func TestHandleMessage_AcksMalformedPayload(t *testing.T) {
	consumer := newTestConsumer(newLedgerRepoFake())

	if !consumer.HandleMessage([]byte("{not json")) {
		t.Fatal("expected malformed payload to be acknowledged")
	}
}

func TestHandleMessage_AcksMissingReference(t *testing.T) {
	consumer := newTestConsumer(newLedgerRepoFake())

	if !consumer.HandleMessage([]byte(`{"status":"successful"}`)) {
		t.Fatal("expected event without reference id to be acknowledged")
	}
}

func TestProcessEvent_SuccessfulSettlesPendingDeposit(t *testing.T) {
	repo := newLedgerRepoFake()
	userID := repo.addUser(0, domain.UserActive)
	ref := recordEntry(t, repo, userID, domain.TypeDeposit, 500, domain.DepositDetail{}, false)
	consumer := newTestConsumer(repo)

	err := consumer.processEvent(context.Background(), domain.GatewayStatusEvent{
		ReferenceID: ref,
		Status:      "success",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	tx, _ := repo.FindTransactionByReference(context.Background(), ref)
	if tx.Status != domain.StatusApproved {
		t.Fatalf("expected approved, got %q", tx.Status)
	}
	if got := mustBalance(t, repo, userID); got != 500 {
		t.Fatalf("expected balance 500, got %d", got)
	}
}

func TestProcessEvent_FailedReversesPendingDeposit(t *testing.T) {
	repo := newLedgerRepoFake()
	userID := repo.addUser(0, domain.UserActive)
	ref := recordEntry(t, repo, userID, domain.TypeDeposit, 500, domain.DepositDetail{}, false)
	consumer := newTestConsumer(repo)

	err := consumer.processEvent(context.Background(), domain.GatewayStatusEvent{
		ReferenceID: ref,
		Status:      "failed",
		Reason:      "card declined",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	tx, _ := repo.FindTransactionByReference(context.Background(), ref)
	if tx.Status != domain.StatusFailed {
		t.Fatalf("expected failed, got %q", tx.Status)
	}
	if got := mustBalance(t, repo, userID); got != 0 {
		t.Fatalf("expected credit reversed to 0, got %d", got)
	}
}

func TestHandleMessage_AcksIrreversibleFailedDeposit(t *testing.T) {
	repo := newLedgerRepoFake()
	userID := repo.addUser(0, domain.UserActive)
	ref := recordEntry(t, repo, userID, domain.TypeDeposit, 500, domain.DepositDetail{}, false)
	// The unsettled credit has already been spent, so the reversal would
	// drive the balance negative and can never succeed on redelivery.
	recordEntry(t, repo, userID, domain.TypeDebit, 500, domain.DebitDetail{Recipient: "0023456789"}, true)
	consumer := newTestConsumer(repo)

	if !consumer.HandleMessage([]byte(`{"reference_id":"` + ref + `","status":"failed"}`)) {
		t.Fatal("expected irreversible failed deposit to be acknowledged, not requeued")
	}

	tx, _ := repo.FindTransactionByReference(context.Background(), ref)
	if tx.Status != domain.StatusPending {
		t.Fatalf("expected deposit left pending for reconciliation, got %q", tx.Status)
	}
	if got := mustBalance(t, repo, userID); got != 0 {
		t.Fatalf("expected balance untouched at 0, got %d", got)
	}
}

func TestProcessEvent_IgnoresReplayForSettledTransaction(t *testing.T) {
	repo := newLedgerRepoFake()
	userID := repo.addUser(0, domain.UserActive)
	ref := recordEntry(t, repo, userID, domain.TypeAirtimeConversion, 800, domain.AirtimeDetail{TelecomProvider: "mtn", Phone: "08030000000"}, true)
	consumer := newTestConsumer(repo)

	err := consumer.processEvent(context.Background(), domain.GatewayStatusEvent{
		ReferenceID: ref,
		Status:      "failed",
		Reason:      "late failed replay",
	})
	if err != nil {
		t.Fatalf("expected stale replay to be acknowledged, got %v", err)
	}

	tx, _ := repo.FindTransactionByReference(context.Background(), ref)
	if tx.Status != domain.StatusSuccessful {
		t.Fatalf("expected settled status to survive replay, got %q", tx.Status)
	}
	if got := mustBalance(t, repo, userID); got != 800 {
		t.Fatalf("expected balance untouched at 800, got %d", got)
	}
}

func TestProcessEvent_AcksUnknownReference(t *testing.T) {
	consumer := newTestConsumer(newLedgerRepoFake())

	err := consumer.processEvent(context.Background(), domain.GatewayStatusEvent{
		ReferenceID: "999900001111",
		Status:      "successful",
	})
	if err != nil {
		t.Fatalf("expected unknown reference to be acknowledged, got %v", err)
	}
}

func TestProcessEvent_AcksUnhandledStatus(t *testing.T) {
	repo := newLedgerRepoFake()
	userID := repo.addUser(0, domain.UserActive)
	ref := recordEntry(t, repo, userID, domain.TypeDeposit, 500, domain.DepositDetail{}, false)
	consumer := newTestConsumer(repo)

	err := consumer.processEvent(context.Background(), domain.GatewayStatusEvent{
		ReferenceID: ref,
		Status:      "processing",
	})
	if err != nil {
		t.Fatalf("expected unhandled status to be acknowledged, got %v", err)
	}

	tx, _ := repo.FindTransactionByReference(context.Background(), ref)
	if tx.Status != domain.StatusPending {
		t.Fatalf("expected pending to survive processing event, got %q", tx.Status)
	}
}
