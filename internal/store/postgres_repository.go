/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface.
 * It contains all the necessary SQL queries to interact with the database tables
 * backing the ledger: users, transactions, and the four type-specific detail tables.
 *
 * Money movement runs inside explicit pgx transactions. The user row is locked
 * with FOR UPDATE for the duration of each unit of work, so concurrent
 * debits/credits on the same account serialize instead of racing on a stale
 * balance read. Reference uniqueness is enforced by the UNIQUE constraint on
 * transactions.reference_id; a 23505 at insert time surfaces as
 * ErrDuplicateReference.
 *
 * @dependencies
 * - context, errors, fmt, strings: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kudipoint/ledger-service/internal/domain"
)

const uniqueViolationCode = "23505"

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// FindUserByID retrieves a user and their current balance.
func (r *PostgresRepository) FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	var user domain.User
	query := `SELECT id, account_balance, status, created_at, updated_at FROM users WHERE id = $1`
	err := r.db.QueryRow(ctx, query, userID).Scan(&user.ID, &user.AccountBalance, &user.Status, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// CreateUser inserts a new user account. A zero balance and active status are
// applied when the caller leaves them unset.
func (r *PostgresRepository) CreateUser(ctx context.Context, user *domain.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Status == "" {
		user.Status = domain.UserActive
	}
	query := `
		INSERT INTO users (id, account_balance, status, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	return r.db.QueryRow(ctx, query, user.ID, user.AccountBalance, user.Status).Scan(&user.CreatedAt, &user.UpdatedAt)
}

// UpdateUserStatus suspends or reactivates a user account.
func (r *PostgresRepository) UpdateUserStatus(ctx context.Context, userID uuid.UUID, status domain.UserStatus) error {
	result, err := r.db.Exec(ctx, `UPDATE users SET status = $1, updated_at = NOW() WHERE id = $2`, status, userID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// GetBalance returns the current account balance in kobo.
func (r *PostgresRepository) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	var balance int64
	err := r.db.QueryRow(ctx, `SELECT account_balance FROM users WHERE id = $1`, userID).Scan(&balance)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	return balance, nil
}

// ReferenceExists reports whether a reference id is already present in the
// transactions table. This is only an advisory pre-check for the allocator;
// the UNIQUE constraint remains the authority at insert time.
func (r *PostgresRepository) ReferenceExists(ctx context.Context, referenceID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM transactions WHERE reference_id = $1)`, referenceID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// RecordTransaction performs one atomic unit of work: lock the user row, insert
// the transaction row, insert the variant-specific detail row keyed by the same
// reference id, and apply the signed balance delta. Any failure rolls the whole
// unit back; no partial ledger state is ever visible.
func (r *PostgresRepository) RecordTransaction(ctx context.Context, entry *domain.Transaction, details domain.Details) (*domain.LedgerRecord, error) {
	dbtx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin unit of work: %w", err)
	}
	defer dbtx.Rollback(ctx)

	// Lock the user row first so concurrent recordings for the same user
	// serialize on this lock for the remainder of the unit of work.
	var balance int64
	var status domain.UserStatus
	err = dbtx.QueryRow(ctx, `SELECT account_balance, status FROM users WHERE id = $1 FOR UPDATE`, entry.UserID).Scan(&balance, &status)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to lock user row: %w", err)
	}
	if status == domain.UserSuspended {
		return nil, ErrAccountSuspended
	}

	delta := entry.Type.Direction() * entry.Amount
	newBalance := balance + delta
	if newBalance < 0 {
		return nil, ErrInsufficientFunds
	}

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	err = dbtx.QueryRow(ctx, `
		INSERT INTO transactions (id, reference_id, user_id, type, amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING created_at, updated_at
	`, entry.ID, entry.ReferenceID, entry.UserID, entry.Type, entry.Amount, entry.Status).Scan(&entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return nil, ErrDuplicateReference
		}
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}

	if err := insertDetails(ctx, dbtx, entry, details); err != nil {
		return nil, err
	}

	_, err = dbtx.Exec(ctx, `UPDATE users SET account_balance = $1, updated_at = NOW() WHERE id = $2`, newBalance, entry.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to apply balance delta: %w", err)
	}

	if err := dbtx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit unit of work: %w", err)
	}

	return &domain.LedgerRecord{Transaction: *entry, Details: details, NewBalance: newBalance}, nil
}

// insertDetails writes the type-specific row keyed by the shared reference id.
func insertDetails(ctx context.Context, dbtx pgx.Tx, entry *domain.Transaction, details domain.Details) error {
	var err error
	switch d := details.(type) {
	case domain.AirtimeDetail:
		_, err = dbtx.Exec(ctx, `
			INSERT INTO airtime_conversions (reference_id, user_id, amount, telecom_provider, phone)
			VALUES ($1, $2, $3, $4, $5)
		`, entry.ReferenceID, entry.UserID, entry.Amount, d.TelecomProvider, d.Phone)
	case domain.DebitDetail:
		_, err = dbtx.Exec(ctx, `
			INSERT INTO debits (reference_id, user_id, amount, recipient, remarks)
			VALUES ($1, $2, $3, $4, $5)
		`, entry.ReferenceID, entry.UserID, entry.Amount, d.Recipient, d.Remarks)
	case domain.DepositDetail:
		_, err = dbtx.Exec(ctx, `
			INSERT INTO deposits (reference_id, user_id, amount)
			VALUES ($1, $2, $3)
		`, entry.ReferenceID, entry.UserID, entry.Amount)
	case domain.BillDetail:
		_, err = dbtx.Exec(ctx, `
			INSERT INTO bill_payments (reference_id, user_id, amount, bill_type, bill_provider)
			VALUES ($1, $2, $3, $4, $5)
		`, entry.ReferenceID, entry.UserID, entry.Amount, d.BillType, d.BillProvider)
	default:
		return fmt.Errorf("unsupported details payload %T", details)
	}
	if err != nil {
		return fmt.Errorf("failed to insert %s detail: %w", entry.Type, err)
	}
	return nil
}

// lockTransaction loads a transaction row under FOR UPDATE inside an open unit of work.
func lockTransaction(ctx context.Context, dbtx pgx.Tx, referenceID string) (*domain.Transaction, error) {
	var t domain.Transaction
	err := dbtx.QueryRow(ctx, `
		SELECT id, reference_id, user_id, type, amount, status, created_at, updated_at
		FROM transactions WHERE reference_id = $1 FOR UPDATE
	`, referenceID).Scan(&t.ID, &t.ReferenceID, &t.UserID, &t.Type, &t.Amount, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to lock transaction row: %w", err)
	}
	return &t, nil
}

// applyBalanceDelta locks the user row and applies a signed delta, rejecting
// any negative delta that would drive the balance below zero. It must only be
// called inside an open unit of work.
func applyBalanceDelta(ctx context.Context, dbtx pgx.Tx, userID uuid.UUID, delta int64) (int64, error) {
	var balance int64
	err := dbtx.QueryRow(ctx, `SELECT account_balance FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&balance)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to lock user row: %w", err)
	}
	newBalance := balance + delta
	if newBalance < 0 {
		return 0, ErrInsufficientFunds
	}
	_, err = dbtx.Exec(ctx, `UPDATE users SET account_balance = $1, updated_at = NOW() WHERE id = $2`, newBalance, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to apply balance delta: %w", err)
	}
	return newBalance, nil
}

// setTransactionStatus updates the status column inside an open unit of work.
func setTransactionStatus(ctx context.Context, dbtx pgx.Tx, t *domain.Transaction, status domain.TransactionStatus) error {
	err := dbtx.QueryRow(ctx, `
		UPDATE transactions SET status = $1, updated_at = NOW() WHERE reference_id = $2
		RETURNING updated_at
	`, status, t.ReferenceID).Scan(&t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}
	t.Status = status
	return nil
}

// ApproveTransaction moves a pending transaction to approved. The balance delta
// was already applied at record time, so approval is a pure status transition.
// When the row is not pending, no write happens and the current row is returned
// with Applied=false.
func (r *PostgresRepository) ApproveTransaction(ctx context.Context, referenceID string) (*TransitionResult, error) {
	dbtx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin unit of work: %w", err)
	}
	defer dbtx.Rollback(ctx)

	t, err := lockTransaction(ctx, dbtx, referenceID)
	if err != nil {
		return nil, err
	}
	if t.Status != domain.StatusPending {
		return &TransitionResult{Transaction: *t, Applied: false}, nil
	}
	if err := setTransactionStatus(ctx, dbtx, t, domain.StatusApproved); err != nil {
		return nil, err
	}
	if err := dbtx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit unit of work: %w", err)
	}
	return &TransitionResult{Transaction: *t, Applied: true}, nil
}

// FailTransaction moves a pending transaction to failed and reverses the delta
// applied when it was recorded.
func (r *PostgresRepository) FailTransaction(ctx context.Context, referenceID string) (*TransitionResult, error) {
	dbtx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin unit of work: %w", err)
	}
	defer dbtx.Rollback(ctx)

	t, err := lockTransaction(ctx, dbtx, referenceID)
	if err != nil {
		return nil, err
	}
	if t.Status != domain.StatusPending {
		return &TransitionResult{Transaction: *t, Applied: false}, nil
	}
	newBalance, err := applyBalanceDelta(ctx, dbtx, t.UserID, -t.Type.Direction()*t.Amount)
	if err != nil {
		return nil, err
	}
	if err := setTransactionStatus(ctx, dbtx, t, domain.StatusFailed); err != nil {
		return nil, err
	}
	if err := dbtx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit unit of work: %w", err)
	}
	return &TransitionResult{Transaction: *t, NewBalance: &newBalance, Applied: true}, nil
}

// RefundTransaction reverses the original balance delta and marks the entry
// refunded, provided its current status is one of the authorized origins.
func (r *PostgresRepository) RefundTransaction(ctx context.Context, referenceID string, origins []domain.TransactionStatus) (*TransitionResult, error) {
	dbtx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin unit of work: %w", err)
	}
	defer dbtx.Rollback(ctx)

	t, err := lockTransaction(ctx, dbtx, referenceID)
	if err != nil {
		return nil, err
	}
	if !statusIn(t.Status, origins) {
		return &TransitionResult{Transaction: *t, Applied: false}, nil
	}
	newBalance, err := applyBalanceDelta(ctx, dbtx, t.UserID, -t.Type.Direction()*t.Amount)
	if err != nil {
		return nil, err
	}
	if err := setTransactionStatus(ctx, dbtx, t, domain.StatusRefunded); err != nil {
		return nil, err
	}
	if err := dbtx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit unit of work: %w", err)
	}
	return &TransitionResult{Transaction: *t, NewBalance: &newBalance, Applied: true}, nil
}

func statusIn(status domain.TransactionStatus, set []domain.TransactionStatus) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}

// FindTransactionByReference retrieves a single transaction by its reference id.
func (r *PostgresRepository) FindTransactionByReference(ctx context.Context, referenceID string) (*domain.Transaction, error) {
	var t domain.Transaction
	err := r.db.QueryRow(ctx, `
		SELECT id, reference_id, user_id, type, amount, status, created_at, updated_at
		FROM transactions WHERE reference_id = $1
	`, referenceID).Scan(&t.ID, &t.ReferenceID, &t.UserID, &t.Type, &t.Amount, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &t, nil
}

// ListHistory returns transactions newest-first, each joined to its
// type-specific detail row. A transaction whose detail row is missing is
// returned with nil Details rather than failing the whole query.
func (r *PostgresRepository) ListHistory(ctx context.Context, filter domain.HistoryFilter) ([]domain.HistoryEntry, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT t.id, t.reference_id, t.user_id, t.type, t.amount, t.status, t.created_at, t.updated_at,
		       a.telecom_provider, a.phone,
		       d.recipient, d.remarks,
		       dp.reference_id,
		       b.bill_type, b.bill_provider
		FROM transactions t
		LEFT JOIN airtime_conversions a ON a.reference_id = t.reference_id AND t.type = 'airtime_conversion'
		LEFT JOIN debits d ON d.reference_id = t.reference_id AND t.type = 'debit'
		LEFT JOIN deposits dp ON dp.reference_id = t.reference_id AND t.type = 'deposit'
		LEFT JOIN bill_payments b ON b.reference_id = t.reference_id AND t.type = 'bill_payment'
		WHERE 1=1
	`)

	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.UserID != nil {
		sb.WriteString(" AND t.user_id = " + arg(*filter.UserID))
	}
	if filter.Type != nil {
		sb.WriteString(" AND t.type = " + arg(*filter.Type))
	}
	if filter.From != nil {
		sb.WriteString(" AND t.created_at >= " + arg(*filter.From))
	}
	if filter.To != nil {
		sb.WriteString(" AND t.created_at <= " + arg(*filter.To))
	}

	sb.WriteString(" ORDER BY t.created_at DESC")
	if filter.Limit > 0 {
		sb.WriteString(" LIMIT " + arg(filter.Limit))
	}
	if filter.Offset > 0 {
		sb.WriteString(" OFFSET " + arg(filter.Offset))
	}

	rows, err := r.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.HistoryEntry
	for rows.Next() {
		var t domain.Transaction
		var telecomProvider, phone *string
		var recipient, remarks *string
		var depositRef *string
		var billType, billProvider *string
		err := rows.Scan(
			&t.ID, &t.ReferenceID, &t.UserID, &t.Type, &t.Amount, &t.Status, &t.CreatedAt, &t.UpdatedAt,
			&telecomProvider, &phone,
			&recipient, &remarks,
			&depositRef,
			&billType, &billProvider,
		)
		if err != nil {
			return nil, err
		}

		entry := domain.HistoryEntry{Transaction: t}
		switch t.Type {
		case domain.TypeAirtimeConversion:
			if telecomProvider != nil && phone != nil {
				entry.Details = domain.AirtimeDetail{TelecomProvider: *telecomProvider, Phone: *phone}
			}
		case domain.TypeDebit:
			if recipient != nil {
				entry.Details = domain.DebitDetail{Recipient: *recipient, Remarks: remarks}
			}
		case domain.TypeDeposit:
			if depositRef != nil {
				entry.Details = domain.DepositDetail{}
			}
		case domain.TypeBillPayment:
			if billType != nil && billProvider != nil {
				entry.Details = domain.BillDetail{BillType: *billType, BillProvider: *billProvider}
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
