/**
 * @description
 * This file defines the core domain models for the ledger-service. These structs
 * represent the main entities and data transfer objects (DTOs) used throughout the
 * service's business logic, database interactions, and API layers.
 *
 * @notes
 * - Amounts are stored as `int64` in the smallest currency unit (kobo), which
 *   avoids floating-point inaccuracies with financial data.
 * - Transaction types form a closed set of tagged variants; the type-specific
 *   payload is resolved once at the API boundary and carried as a `Details` value.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType identifies which money-movement variant a ledger entry records.
type TransactionType string

const (
	TypeAirtimeConversion TransactionType = "airtime_conversion"
	TypeDebit             TransactionType = "debit"
	TypeDeposit           TransactionType = "deposit"
	TypeBillPayment       TransactionType = "bill_payment"
)

// Valid reports whether t is one of the known transaction variants.
func (t TransactionType) Valid() bool {
	switch t {
	case TypeAirtimeConversion, TypeDebit, TypeDeposit, TypeBillPayment:
		return true
	}
	return false
}

// Direction returns the sign of the balance delta for the variant:
// +1 for credits (airtime conversion proceeds, deposits), -1 for debits
// (debit transfers, bill payments).
func (t TransactionType) Direction() int64 {
	switch t {
	case TypeAirtimeConversion, TypeDeposit:
		return 1
	case TypeDebit, TypeBillPayment:
		return -1
	}
	return 0
}

// TransactionStatus is the lifecycle state of a ledger entry.
type TransactionStatus string

const (
	StatusPending    TransactionStatus = "pending"
	StatusApproved   TransactionStatus = "approved"
	StatusSuccessful TransactionStatus = "successful"
	StatusFailed     TransactionStatus = "failed"
	StatusRefunded   TransactionStatus = "refunded"
)

// Settled reports whether the status represents a completed, balance-affecting entry.
func (s TransactionStatus) Settled() bool {
	return s == StatusApproved || s == StatusSuccessful
}

// Terminal reports whether no further transitions are permitted from s.
func (s TransactionStatus) Terminal() bool {
	return s == StatusFailed || s == StatusRefunded
}

// Transaction is the ledger entry of record. Exactly one transaction exists per
// reference id; the amount is immutable once the entry leaves `pending`.
type Transaction struct {
	ID          uuid.UUID         `json:"id"`
	ReferenceID string            `json:"reference_id"`
	UserID      uuid.UUID         `json:"user_id"`
	Type        TransactionType   `json:"type"`
	Amount      int64             `json:"amount"` // in kobo
	Status      TransactionStatus `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Details is the type-specific payload attached to a transaction. Each variant
// declares which transaction type it belongs to, so mismatches are caught before
// any atomic work begins.
type Details interface {
	TransactionType() TransactionType
}

// AirtimeDetail records the telecom metadata for an airtime-to-cash conversion.
type AirtimeDetail struct {
	TelecomProvider string `json:"telecom_provider"`
	Phone           string `json:"phone"`
}

func (AirtimeDetail) TransactionType() TransactionType { return TypeAirtimeConversion }

// DebitDetail records the recipient of an outbound debit transfer.
type DebitDetail struct {
	Recipient string  `json:"recipient"`
	Remarks   *string `json:"remarks,omitempty"`
}

func (DebitDetail) TransactionType() TransactionType { return TypeDebit }

// DepositDetail carries no extra fields; the row exists to satisfy the
// one-detail-per-transaction invariant.
type DepositDetail struct{}

func (DepositDetail) TransactionType() TransactionType { return TypeDeposit }

// BillDetail records which bill was paid through which provider.
type BillDetail struct {
	BillType     string `json:"bill_type"`
	BillProvider string `json:"bill_provider"`
}

func (BillDetail) TransactionType() TransactionType { return TypeBillPayment }

// UserStatus is the account standing of a user.
type UserStatus string

const (
	UserActive    UserStatus = "active"
	UserSuspended UserStatus = "suspended"
)

// User represents the account whose balance the ledger owns. AccountBalance is
// written only inside recorder/state-machine units of work.
type User struct {
	ID             uuid.UUID  `json:"id"`
	AccountBalance int64      `json:"account_balance"` // in kobo
	Status         UserStatus `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// LedgerRecord is the result of recording one transaction: the entry, its
// detail payload, and the balance after the delta was applied.
type LedgerRecord struct {
	Transaction Transaction `json:"transaction"`
	Details     Details     `json:"details"`
	NewBalance  int64       `json:"new_balance"`
}

// HistoryFilter narrows a transaction history query. Nil fields match everything.
type HistoryFilter struct {
	UserID *uuid.UUID
	Type   *TransactionType
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// HistoryEntry joins a transaction with its type-specific detail. Details is nil
// when the detail row is missing, so one integrity gap never hides the rest of
// the history.
type HistoryEntry struct {
	Transaction Transaction `json:"transaction"`
	Details     Details     `json:"details"`
}

// AirtimeConversionRequest is the DTO for initiating an airtime-to-cash conversion.
type AirtimeConversionRequest struct {
	Network       string `json:"network"`
	SenderPhone   string `json:"sender_phone"`
	ReceiverPhone string `json:"receiver_phone"`
	Amount        int64  `json:"amount"` // in kobo
}

// DepositRequest is the DTO for initiating a gateway deposit.
type DepositRequest struct {
	Amount int64  `json:"amount"` // in kobo
	Email  string `json:"email"`
}

// WithdrawalRequest is the DTO for initiating a withdrawal to a bank account.
type WithdrawalRequest struct {
	Amount        int64   `json:"amount"` // in kobo
	BankCode      string  `json:"bank_code"`
	AccountNumber string  `json:"account_number"`
	Remarks       *string `json:"remarks,omitempty"`
}

// BillPaymentRequest is the DTO for paying a bill through a provider.
type BillPaymentRequest struct {
	Amount       int64  `json:"amount"` // in kobo
	BillType     string `json:"bill_type"`
	BillProvider string `json:"bill_provider"`
}
