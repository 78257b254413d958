/**
 * @description
 * This file contains the orchestration layer for the ledger-service. The
 * `Service` struct coordinates each money-movement use case: it validates the
 * request, invokes the payment gateway (Paystack for deposits and withdrawals,
 * VTU Africa for airtime conversions and bill payments), hands the confirmed or
 * pending result to the transaction recorder, and publishes a lifecycle event.
 *
 * The ledger core (recorder, state machine, history) never performs network
 * calls itself; gateways are always invoked before the ledger and their result
 * is passed in as already-validated input.
 *
 * @dependencies
 * - context, fmt, log, strings, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID handling.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/paystackclient, pkg/vtuclient, pkg/rabbitmq: For external service communication.
 */

package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kudipoint/ledger-service/internal/domain"
	"github.com/kudipoint/ledger-service/internal/store"
	"github.com/kudipoint/ledger-service/pkg/paystackclient"
	"github.com/kudipoint/ledger-service/pkg/rabbitmq"
	"github.com/kudipoint/ledger-service/pkg/vtuclient"
)

// EventsExchange is the topic exchange transaction lifecycle events are published to.
const EventsExchange = "kudipoint.events"

// RateLimiter throttles gateway-facing initiations per user. A nil limiter
// disables throttling.
type RateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// Service provides the use-case orchestration for the ledger-service.
type Service struct {
	repo      store.Repository
	recorder  *Recorder
	states    *StateMachine
	history   *HistoryQuery
	allocator *ReferenceAllocator
	paystack  *paystackclient.Client
	vtu       *vtuclient.Client
	producer  rabbitmq.Publisher

	limiter           RateLimiter
	initiationsPerMin int
}

// NewService creates a new Service instance wiring the ledger core to its
// gateway clients and event producer.
func NewService(
	repo store.Repository,
	recorder *Recorder,
	states *StateMachine,
	history *HistoryQuery,
	allocator *ReferenceAllocator,
	paystack *paystackclient.Client,
	vtu *vtuclient.Client,
	producer rabbitmq.Publisher,
) *Service {
	return &Service{
		repo:      repo,
		recorder:  recorder,
		states:    states,
		history:   history,
		allocator: allocator,
		paystack:  paystack,
		vtu:       vtu,
		producer:  producer,
	}
}

// SetRateLimiter installs a distributed rate limiter applied to gateway-facing
// initiations (airtime conversions, bill payments).
func (s *Service) SetRateLimiter(limiter RateLimiter, perMinute int) {
	s.limiter = limiter
	s.initiationsPerMin = perMinute
}

// activeUser resolves the user and rejects suspended accounts before any
// gateway call or atomic work begins.
func (s *Service) activeUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.repo.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Status == domain.UserSuspended {
		return nil, store.ErrAccountSuspended
	}
	return user, nil
}

// throttle consumes one rate-limit token for the scope. Limiter errors fail
// open: a broken limiter must not take payments down with it.
func (s *Service) throttle(ctx context.Context, scope string, userID uuid.UUID) error {
	if s.limiter == nil || s.initiationsPerMin <= 0 {
		return nil
	}
	count, _, err := s.limiter.ConsumeRateLimit(ctx, scope, userID.String(), s.initiationsPerMin, time.Minute)
	if err != nil {
		log.Printf("level=warn component=service msg=\"rate limiter unavailable; allowing request\" scope=%s err=%v", scope, err)
		return nil
	}
	if count > s.initiationsPerMin {
		return ErrRateLimited
	}
	return nil
}

// VerifyAirtimeMerchant returns the merchant line airtime must be sent to for
// the given network, as the first step of a conversion.
func (s *Service) VerifyAirtimeMerchant(ctx context.Context, network string) (*vtuclient.MerchantInfo, error) {
	if strings.TrimSpace(network) == "" {
		return nil, fmt.Errorf("%w: network is required", ErrValidation)
	}
	info, err := s.vtu.VerifyAirtimeMerchant(ctx, network)
	if err != nil {
		return nil, fmt.Errorf("merchant verification gateway call failed: %w", err)
	}
	return info, nil
}

// ProcessAirtimeConversion runs the airtime-to-cash flow: submit the conversion
// to VTU Africa under a freshly allocated ledger reference, then record the
// credit. A gateway-confirmed conversion is recorded as successful, otherwise
// it stays pending until the settlement event arrives.
func (s *Service) ProcessAirtimeConversion(ctx context.Context, userID uuid.UUID, req domain.AirtimeConversionRequest) (*domain.LedgerRecord, error) {
	if strings.TrimSpace(req.Network) == "" {
		return nil, fmt.Errorf("%w: network is required", ErrValidation)
	}
	if strings.TrimSpace(req.SenderPhone) == "" || strings.TrimSpace(req.ReceiverPhone) == "" {
		return nil, fmt.Errorf("%w: sender and receiver phone are required", ErrValidation)
	}
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if _, err := s.activeUser(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.throttle(ctx, "airtime", userID); err != nil {
		return nil, err
	}

	referenceID, err := s.allocator.Allocate(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.vtu.CompleteAirtimeConversion(ctx, req.Network, req.SenderPhone, req.ReceiverPhone, referenceID, req.Amount)
	if err != nil {
		return nil, fmt.Errorf("airtime conversion gateway call failed: %w", err)
	}

	record, err := s.recorder.Record(ctx, RecordParams{
		UserID:      userID,
		Type:        domain.TypeAirtimeConversion,
		Amount:      req.Amount,
		ReferenceID: referenceID,
		Details:     domain.AirtimeDetail{TelecomProvider: req.Network, Phone: req.SenderPhone},
		Confirmed:   result.Confirmed,
	})
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, record.Transaction)
	return record, nil
}

// DepositInitiation is returned when a deposit has been initialized with the
// gateway and recorded as pending.
type DepositInitiation struct {
	Record           *domain.LedgerRecord `json:"record"`
	AuthorizationURL string               `json:"authorization_url"`
}

// ProcessDeposit initializes a Paystack transaction and records the pending
// deposit under the gateway-issued reference. The credit is reversed by the
// state machine if the gateway later reports failure.
func (s *Service) ProcessDeposit(ctx context.Context, userID uuid.UUID, req domain.DepositRequest) (*DepositInitiation, error) {
	if strings.TrimSpace(req.Email) == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if _, err := s.activeUser(ctx, userID); err != nil {
		return nil, err
	}

	init, err := s.paystack.InitializeDeposit(ctx, req.Email, req.Amount)
	if err != nil {
		return nil, fmt.Errorf("deposit gateway call failed: %w", err)
	}

	record, err := s.recorder.Record(ctx, RecordParams{
		UserID:      userID,
		Type:        domain.TypeDeposit,
		Amount:      req.Amount,
		ReferenceID: init.Data.Reference,
		Details:     domain.DepositDetail{},
		Confirmed:   false,
	})
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, record.Transaction)
	return &DepositInitiation{Record: record, AuthorizationURL: init.Data.AuthorizationURL}, nil
}

// ConfirmDeposit verifies a pending deposit against Paystack and drives the
// state machine accordingly. A deposit the gateway still reports as pending is
// returned unchanged. Only the deposit's owner may confirm it; a foreign
// reference reads as not found.
func (s *Service) ConfirmDeposit(ctx context.Context, userID uuid.UUID, referenceID string) (*domain.Transaction, error) {
	tx, err := s.repo.FindTransactionByReference(ctx, referenceID)
	if err != nil {
		return nil, err
	}
	if tx.UserID != userID {
		return nil, store.ErrTransactionNotFound
	}

	verification, err := s.paystack.VerifyDeposit(ctx, referenceID)
	if err != nil {
		return nil, fmt.Errorf("deposit verification failed: %w", err)
	}

	switch verification.Data.Status {
	case "success":
		return s.ApproveTransaction(ctx, referenceID)
	case "failed", "abandoned":
		return s.FailTransaction(ctx, referenceID)
	default:
		return tx, nil
	}
}

// ProcessWithdrawal resolves the destination bank account, initiates a Paystack
// transfer under a freshly allocated ledger reference, and records the debit.
func (s *Service) ProcessWithdrawal(ctx context.Context, userID uuid.UUID, req domain.WithdrawalRequest) (*domain.LedgerRecord, error) {
	if strings.TrimSpace(req.BankCode) == "" || strings.TrimSpace(req.AccountNumber) == "" {
		return nil, fmt.Errorf("%w: bank code and account number are required", ErrValidation)
	}
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	// Fail fast on obviously insufficient funds before touching the gateway;
	// the authoritative check happens under lock inside the recording unit of work.
	if user.AccountBalance < req.Amount {
		return nil, store.ErrInsufficientFunds
	}

	resolved, err := s.paystack.ResolveBankAccount(ctx, req.AccountNumber, req.BankCode)
	if err != nil {
		return nil, fmt.Errorf("bank account resolution failed: %w", err)
	}

	referenceID, err := s.allocator.Allocate(ctx)
	if err != nil {
		return nil, err
	}

	transfer, err := s.paystack.InitiateTransfer(ctx, req.AccountNumber, referenceID, "kudipoint withdrawal", req.Amount)
	if err != nil {
		return nil, fmt.Errorf("withdrawal gateway call failed: %w", err)
	}

	recipient := resolved.Data.AccountName
	if recipient == "" {
		recipient = req.AccountNumber
	}
	record, err := s.recorder.Record(ctx, RecordParams{
		UserID:      userID,
		Type:        domain.TypeDebit,
		Amount:      req.Amount,
		ReferenceID: referenceID,
		Details:     domain.DebitDetail{Recipient: recipient, Remarks: req.Remarks},
		Confirmed:   transfer.Data.Status == "success",
	})
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, record.Transaction)
	return record, nil
}

// ProcessBillPayment pays a bill through VTU Africa and records the debit.
func (s *Service) ProcessBillPayment(ctx context.Context, userID uuid.UUID, req domain.BillPaymentRequest) (*domain.LedgerRecord, error) {
	if strings.TrimSpace(req.BillType) == "" || strings.TrimSpace(req.BillProvider) == "" {
		return nil, fmt.Errorf("%w: bill type and provider are required", ErrValidation)
	}
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.AccountBalance < req.Amount {
		return nil, store.ErrInsufficientFunds
	}
	if err := s.throttle(ctx, "bills", userID); err != nil {
		return nil, err
	}

	referenceID, err := s.allocator.Allocate(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.vtu.PayBill(ctx, req.BillType, req.BillProvider, referenceID, req.Amount)
	if err != nil {
		return nil, fmt.Errorf("bill payment gateway call failed: %w", err)
	}

	record, err := s.recorder.Record(ctx, RecordParams{
		UserID:      userID,
		Type:        domain.TypeBillPayment,
		Amount:      req.Amount,
		ReferenceID: referenceID,
		Details:     domain.BillDetail{BillType: req.BillType, BillProvider: req.BillProvider},
		Confirmed:   result.Confirmed,
	})
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, record.Transaction)
	return record, nil
}

// GetBalance returns the user's current balance in kobo.
func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.GetBalance(ctx, userID)
}

// GetTransaction returns a single transaction by reference id.
func (s *Service) GetTransaction(ctx context.Context, referenceID string) (*domain.Transaction, error) {
	return s.repo.FindTransactionByReference(ctx, referenceID)
}

// History lists transactions joined with their details, newest first.
func (s *Service) History(ctx context.Context, filter domain.HistoryFilter) ([]domain.HistoryEntry, error) {
	return s.history.List(ctx, filter)
}

// ApproveTransaction applies the administrative approve transition.
func (s *Service) ApproveTransaction(ctx context.Context, referenceID string) (*domain.Transaction, error) {
	t, err := s.states.Approve(ctx, referenceID)
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, *t)
	return t, nil
}

// FailTransaction applies the administrative fail transition, reversing the
// balance delta applied at record time.
func (s *Service) FailTransaction(ctx context.Context, referenceID string) (*domain.Transaction, error) {
	t, err := s.states.Fail(ctx, referenceID)
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, *t)
	return t, nil
}

// RefundTransaction applies the administrative refund transition.
func (s *Service) RefundTransaction(ctx context.Context, referenceID string) (*domain.Transaction, error) {
	t, err := s.states.Refund(ctx, referenceID)
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, *t)
	return t, nil
}

// SetUserStatus suspends or reactivates a user account.
func (s *Service) SetUserStatus(ctx context.Context, userID uuid.UUID, status domain.UserStatus) error {
	if status != domain.UserActive && status != domain.UserSuspended {
		return fmt.Errorf("%w: unknown user status %q", ErrValidation, status)
	}
	return s.repo.UpdateUserStatus(ctx, userID, status)
}

// CreateUser provisions a new user account with a zero balance.
func (s *Service) CreateUser(ctx context.Context, user *domain.User) error {
	return s.repo.CreateUser(ctx, user)
}

// GatewayStatusConsumer returns the consumer that applies asynchronous gateway
// settlement events to the ledger.
func (s *Service) GatewayStatusConsumer() *GatewayStatusConsumer {
	return NewGatewayStatusConsumer(s.repo, s.states)
}

// publishEvent publishes a lifecycle event for downstream consumers. Publishing
// is best-effort: the unit of work has already committed and a broker outage
// must not fail the request.
func (s *Service) publishEvent(ctx context.Context, t domain.Transaction) {
	if s.producer == nil {
		return
	}
	event := domain.TransactionEvent{
		ReferenceID: t.ReferenceID,
		UserID:      t.UserID,
		Type:        t.Type,
		Status:      t.Status,
		Amount:      t.Amount,
		Timestamp:   time.Now().UTC(),
	}
	routingKey := fmt.Sprintf("transaction.%s.%s", t.Type, t.Status)
	if err := s.producer.Publish(ctx, EventsExchange, routingKey, event); err != nil {
		log.Printf("level=warn component=service msg=\"event publish failed\" reference_id=%s routing_key=%s err=%v", t.ReferenceID, routingKey, err)
	}
}
