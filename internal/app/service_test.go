package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kudipoint/ledger-service/internal/domain"
	"github.com/kudipoint/ledger-service/internal/store"
	"github.com/kudipoint/ledger-service/pkg/paystackclient"
	"github.com/kudipoint/ledger-service/pkg/vtuclient"
)

func newTestService(repo *ledgerRepoFake, paystackURL, vtuURL string) *Service {
	allocator := NewReferenceAllocator(repo, 12, 20)
	return NewService(
		repo,
		NewRecorder(repo, allocator),
		NewStateMachine(repo, nil),
		NewHistoryQuery(repo),
		allocator,
		paystackclient.NewClient(paystackURL, "sk_test_x"),
		vtuclient.NewClient(vtuURL, "test-key"),
		nil,
	)
}

func TestConfirmDeposit_RejectsForeignReference(t *testing.T) {
	gatewayCalls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gatewayCalls++
		w.Write([]byte(`{"status":true,"data":{"status":"success"}}`))
	}))
	defer server.Close()

	repo := newLedgerRepoFake()
	owner := repo.addUser(0, domain.UserActive)
	other := repo.addUser(0, domain.UserActive)
	ref := recordEntry(t, repo, owner, domain.TypeDeposit, 500, domain.DepositDetail{}, false)
	service := newTestService(repo, server.URL, server.URL)

	_, err := service.ConfirmDeposit(context.Background(), other, ref)
	if !errors.Is(err, store.ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound for foreign reference, got %v", err)
	}
	if gatewayCalls != 0 {
		t.Fatalf("expected no gateway call for foreign reference, got %d", gatewayCalls)
	}

	tx, _ := repo.FindTransactionByReference(context.Background(), ref)
	if tx.Status != domain.StatusPending {
		t.Fatalf("expected deposit untouched at pending, got %q", tx.Status)
	}
}

func TestConfirmDeposit_SuccessfulVerificationApprovesOwnDeposit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":true,"message":"Verification successful","data":{"status":"success","amount":500}}`))
	}))
	defer server.Close()

	repo := newLedgerRepoFake()
	owner := repo.addUser(0, domain.UserActive)
	ref := recordEntry(t, repo, owner, domain.TypeDeposit, 500, domain.DepositDetail{}, false)
	service := newTestService(repo, server.URL, server.URL)

	tx, err := service.ConfirmDeposit(context.Background(), owner, ref)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if tx.Status != domain.StatusApproved {
		t.Fatalf("expected approved, got %q", tx.Status)
	}
	if got := mustBalance(t, repo, owner); got != 500 {
		t.Fatalf("expected balance 500, got %d", got)
	}
}

func TestVerifyAirtimeMerchant_RequiresNetwork(t *testing.T) {
	service := newTestService(newLedgerRepoFake(), "", "")

	_, err := service.VerifyAirtimeMerchant(context.Background(), "  ")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for missing network, got %v", err)
	}
}

func TestVerifyAirtimeMerchant_ReturnsMerchantLine(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("network"); got != "mtn" {
			t.Errorf("expected network=mtn, got %q", got)
		}
		w.Write([]byte(`{"code":101,"description":{"message":"Send airtime to the line below","Phone_Number":"08031112222"}}`))
	}))
	defer server.Close()

	service := newTestService(newLedgerRepoFake(), "", server.URL)

	info, err := service.VerifyAirtimeMerchant(context.Background(), "mtn")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if info.PhoneNumber != "08031112222" {
		t.Fatalf("expected merchant line 08031112222, got %q", info.PhoneNumber)
	}
}
