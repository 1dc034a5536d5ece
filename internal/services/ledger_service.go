package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/deltabank/backend/internal/metrics"
	"github.com/deltabank/backend/internal/models"
)

// LedgerService is the transfer engine. Every transfer writes signed
// movements sharing a correlation id; an account balance is always the sum
// of its movements. The balance-check-then-write sequence runs under a
// database transaction holding a row lock on the debit account, so two
// concurrent transfers cannot both pass the check against a stale balance.
type LedgerService struct {
	db      *sql.DB
	pending *PendingTransferTracker
}

func NewLedgerService(db *sql.DB, pending *PendingTransferTracker) *LedgerService {
	return &LedgerService{
		db:      db,
		pending: pending,
	}
}

// Transfer moves amount from debitAccount to creditAccount as one atomic
// unit: both legs become visible together or not at all. A loan-flagged
// transfer skips the balance gate and may overdraw the debit account.
// Returns the correlation id shared by the two movements.
func (s *LedgerService) Transfer(ctx context.Context, amount decimal.Decimal, debitAccount int64, debitMemo string, creditAccount int64, creditMemo string, isLoan bool) (uuid.UUID, error) {
	if amount.IsNegative() || !FitsLedger(amount) {
		metrics.TransfersTotal.WithLabelValues("invalid_amount").Inc()
		return uuid.Nil, ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	correlationID, err := s.transferTx(ctx, tx, amount, debitAccount, debitMemo, creditAccount, creditMemo, isLoan)
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			metrics.TransfersTotal.WithLabelValues("insufficient_funds").Inc()
		}
		return uuid.Nil, err
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	metrics.TransfersTotal.WithLabelValues("ok").Inc()
	log.Printf("[LEDGER] Transfer completed: %s, amount: %s, debit: %d, credit: %d", correlationID, amount, debitAccount, creditAccount)
	return correlationID, nil
}

// transferTx writes both legs of a transfer inside the caller's transaction.
func (s *LedgerService) transferTx(ctx context.Context, tx *sql.Tx, amount decimal.Decimal, debitAccount int64, debitMemo string, creditAccount int64, creditMemo string, isLoan bool) (uuid.UUID, error) {
	// Lock accounts in consistent order to prevent deadlocks
	firstLock, secondLock := debitAccount, creditAccount
	if debitAccount > creditAccount {
		firstLock, secondLock = creditAccount, debitAccount
	}

	if err := s.lockAccount(ctx, tx, firstLock); err != nil {
		return uuid.Nil, err
	}
	if secondLock != firstLock {
		if err := s.lockAccount(ctx, tx, secondLock); err != nil {
			return uuid.Nil, err
		}
	}

	if !isLoan {
		balance, err := s.balanceTx(ctx, tx, debitAccount)
		if err != nil {
			return uuid.Nil, err
		}
		if balance.LessThan(amount) {
			return uuid.Nil, ErrInsufficientFunds
		}
	}

	correlationID := uuid.New()
	now := time.Now()

	if err := s.insertMovement(ctx, tx, debitAccount, correlationID, amount.Neg(), debitMemo, now); err != nil {
		return uuid.Nil, err
	}
	if err := s.insertMovement(ctx, tx, creditAccount, correlationID, amount, creditMemo, now); err != nil {
		return uuid.Nil, err
	}

	return correlationID, nil
}

// TransferFrom writes only the debit leg of a split transfer and returns the
// new correlation id. The credit leg is the caller's responsibility: the
// engine does not pair, time out or reverse an unmatched debit. It records
// the id with the pending tracker so unmatched debits are at least observed.
func (s *LedgerService) TransferFrom(ctx context.Context, amount decimal.Decimal, debitAccount int64, debitMemo string, isLoan bool) (uuid.UUID, error) {
	if amount.IsNegative() || !FitsLedger(amount) {
		metrics.TransfersTotal.WithLabelValues("invalid_amount").Inc()
		return uuid.Nil, ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.lockAccount(ctx, tx, debitAccount); err != nil {
		return uuid.Nil, err
	}

	if !isLoan {
		balance, err := s.balanceTx(ctx, tx, debitAccount)
		if err != nil {
			return uuid.Nil, err
		}
		if balance.LessThan(amount) {
			metrics.TransfersTotal.WithLabelValues("insufficient_funds").Inc()
			return uuid.Nil, ErrInsufficientFunds
		}
	}

	correlationID := uuid.New()
	if err := s.insertMovement(ctx, tx, debitAccount, correlationID, amount.Neg(), debitMemo, time.Now()); err != nil {
		return uuid.Nil, err
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if err := s.pending.Record(ctx, correlationID, amount); err != nil {
		log.Printf("[LEDGER] Failed to record pending transfer %s: %v", correlationID, err)
	}

	metrics.TransfersTotal.WithLabelValues("ok").Inc()
	log.Printf("[LEDGER] Debit leg written: %s, amount: %s, debit: %d", correlationID, amount, debitAccount)
	return correlationID, nil
}

// TransferTo writes the credit leg of a split transfer under the
// caller-supplied correlation id, trusted to come from a prior TransferFrom.
func (s *LedgerService) TransferTo(ctx context.Context, amount decimal.Decimal, creditAccount int64, creditMemo string, correlationID uuid.UUID) error {
	if amount.IsNegative() || !FitsLedger(amount) {
		metrics.TransfersTotal.WithLabelValues("invalid_amount").Inc()
		return ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.lockAccount(ctx, tx, creditAccount); err != nil {
		return err
	}

	if err := s.insertMovement(ctx, tx, creditAccount, correlationID, amount, creditMemo, time.Now()); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	if err := s.pending.Clear(ctx, correlationID); err != nil {
		log.Printf("[LEDGER] Failed to clear pending transfer %s: %v", correlationID, err)
	}

	metrics.TransfersTotal.WithLabelValues("ok").Inc()
	log.Printf("[LEDGER] Credit leg written: %s, amount: %s, credit: %d", correlationID, amount, creditAccount)
	return nil
}

// MovementsByCorrelation returns every leg written under one correlation id.
func (s *LedgerService) MovementsByCorrelation(ctx context.Context, correlationID uuid.UUID) ([]models.Movement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_number, correlation_id, amount, memo, created_at
		FROM movements
		WHERE correlation_id = $1
		ORDER BY created_at, id`, correlationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query movements: %w", err)
	}
	defer rows.Close()

	var movements []models.Movement
	for rows.Next() {
		var m models.Movement
		if err := rows.Scan(&m.ID, &m.AccountNumber, &m.CorrelationID, &m.Amount, &m.Memo, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan movement: %w", err)
		}
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate movements: %w", err)
	}
	if len(movements) == 0 {
		return nil, ErrNotFound
	}
	return movements, nil
}

func (s *LedgerService) lockAccount(ctx context.Context, tx *sql.Tx, accountNumber int64) error {
	var locked int64
	err := tx.QueryRowContext(ctx, `
		SELECT account_number
		FROM accounts
		WHERE account_number = $1
		FOR UPDATE`, accountNumber).Scan(&locked)
	if err == sql.ErrNoRows {
		return fmt.Errorf("account %d: %w", accountNumber, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to lock account %d: %w", accountNumber, err)
	}
	return nil
}

func (s *LedgerService) balanceTx(ctx context.Context, tx *sql.Tx, accountNumber int64) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM movements
		WHERE account_number = $1`, accountNumber).Scan(&balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum movements for account %d: %w", accountNumber, err)
	}
	return balance, nil
}

func (s *LedgerService) insertMovement(ctx context.Context, tx *sql.Tx, accountNumber int64, correlationID uuid.UUID, amount decimal.Decimal, memo string, createdAt time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO movements (account_number, correlation_id, amount, memo, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		accountNumber, correlationID, amount, memo, createdAt)
	if err != nil {
		return fmt.Errorf("failed to insert movement: %w", err)
	}
	return nil
}
