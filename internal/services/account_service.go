package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"github.com/deltabank/backend/internal/models"
)

// AccountService reads and creates accounts. Balances are always computed
// by summing movements at read time.
type AccountService struct {
	db *sql.DB
}

func NewAccountService(db *sql.DB) *AccountService {
	return &AccountService{db: db}
}

// Create opens a new account for the given user. The balance starts at zero
// because there are no movements yet.
func (s *AccountService) Create(ctx context.Context, userID int64, name string) (models.Account, error) {
	var account models.Account
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO accounts (user_id, name)
		VALUES ($1, $2)
		RETURNING account_number, user_id, name, created_at`,
		userID, name).Scan(&account.AccountNumber, &account.UserID, &account.Name, &account.CreatedAt)
	if err != nil {
		return models.Account{}, fmt.Errorf("failed to create account: %w", err)
	}
	log.Printf("[ACCOUNT] Created account %d (%s) for user %d", account.AccountNumber, account.Name, userID)
	return account, nil
}

// Get returns the account or ErrNotFound.
func (s *AccountService) Get(ctx context.Context, accountNumber int64) (models.Account, error) {
	var account models.Account
	err := s.db.QueryRowContext(ctx, `
		SELECT account_number, user_id, name, created_at
		FROM accounts
		WHERE account_number = $1`,
		accountNumber).Scan(&account.AccountNumber, &account.UserID, &account.Name, &account.CreatedAt)
	if err == sql.ErrNoRows {
		return models.Account{}, fmt.Errorf("account %d: %w", accountNumber, ErrNotFound)
	}
	if err != nil {
		return models.Account{}, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

// Exists reports whether the account exists, without reading anything else.
func (s *AccountService) Exists(ctx context.Context, accountNumber int64) (bool, error) {
	var found bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM accounts WHERE account_number = $1)`,
		accountNumber).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("failed to check account: %w", err)
	}
	return found, nil
}

// Balance sums the account's movements. An account with no movements has a
// balance of zero, not an error.
func (s *AccountService) Balance(ctx context.Context, accountNumber int64) (decimal.Decimal, error) {
	found, err := s.Exists(ctx, accountNumber)
	if err != nil {
		return decimal.Zero, err
	}
	if !found {
		return decimal.Zero, fmt.Errorf("account %d: %w", accountNumber, ErrNotFound)
	}

	var balance decimal.Decimal
	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM movements
		WHERE account_number = $1`,
		accountNumber).Scan(&balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum movements: %w", err)
	}
	return balance, nil
}

// Movements returns the account's ledger entries ordered by creation time,
// id as tiebreak.
func (s *AccountService) Movements(ctx context.Context, accountNumber int64) ([]models.Movement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_number, correlation_id, amount, memo, created_at
		FROM movements
		WHERE account_number = $1
		ORDER BY created_at, id`,
		accountNumber)
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
	return movements, nil
}

// ListForUser returns the user's accounts with derived balances, oldest
// account first.
func (s *AccountService) ListForUser(ctx context.Context, userID int64) ([]models.AccountWithBalance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.account_number, a.user_id, a.name, a.created_at, COALESCE(SUM(m.amount), 0)
		FROM accounts a
		LEFT JOIN movements m ON m.account_number = a.account_number
		WHERE a.user_id = $1
		GROUP BY a.account_number, a.user_id, a.name, a.created_at
		ORDER BY a.account_number`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.AccountWithBalance
	for rows.Next() {
		var a models.AccountWithBalance
		if err := rows.Scan(&a.AccountNumber, &a.UserID, &a.Name, &a.CreatedAt, &a.Balance); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	return accounts, nil
}
