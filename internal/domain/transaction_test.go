package domain

import "testing"

func TestTransactionType_Direction(t *testing.T) {
	tests := []struct {
		txType TransactionType
		want   int64
	}{
		{TypeAirtimeConversion, 1},
		{TypeDeposit, 1},
		{TypeDebit, -1},
		{TypeBillPayment, -1},
		{TransactionType("unknown"), 0},
	}

	for _, tc := range tests {
		if got := tc.txType.Direction(); got != tc.want {
			t.Fatalf("Direction(%q) = %d, want %d", tc.txType, got, tc.want)
		}
	}
}

func TestTransactionType_Valid(t *testing.T) {
	for _, valid := range []TransactionType{TypeAirtimeConversion, TypeDebit, TypeDeposit, TypeBillPayment} {
		if !valid.Valid() {
			t.Fatalf("expected %q to be valid", valid)
		}
	}
	if TransactionType("chargeback").Valid() {
		t.Fatal("expected unknown type to be invalid")
	}
}

func TestTransactionStatus_SettledAndTerminal(t *testing.T) {
	tests := []struct {
		status   TransactionStatus
		settled  bool
		terminal bool
	}{
		{StatusPending, false, false},
		{StatusApproved, true, false},
		{StatusSuccessful, true, false},
		{StatusFailed, false, true},
		{StatusRefunded, false, true},
	}

	for _, tc := range tests {
		if got := tc.status.Settled(); got != tc.settled {
			t.Fatalf("Settled(%q) = %v, want %v", tc.status, got, tc.settled)
		}
		if got := tc.status.Terminal(); got != tc.terminal {
			t.Fatalf("Terminal(%q) = %v, want %v", tc.status, got, tc.terminal)
		}
	}
}

func TestDetails_TagMatchesVariant(t *testing.T) {
	tests := []struct {
		details Details
		want    TransactionType
	}{
		{AirtimeDetail{}, TypeAirtimeConversion},
		{DebitDetail{}, TypeDebit},
		{DepositDetail{}, TypeDeposit},
		{BillDetail{}, TypeBillPayment},
	}

	for _, tc := range tests {
		if got := tc.details.TransactionType(); got != tc.want {
			t.Fatalf("%T tagged %q, want %q", tc.details, got, tc.want)
		}
	}
}
