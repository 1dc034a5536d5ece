package services

import (
	"context"
	cryptorand "crypto/rand"
	"database/sql"
	"encoding/base64"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/deltabank/backend/internal/metrics"
	"github.com/deltabank/backend/internal/models"
)

// CustomerService manages banking profiles: loan issuance, staff search and
// customer creation. Loan issuance is a constrained transfer: a new loan
// account is overdrawn in favor of the customer's default account.
type CustomerService struct {
	db       *sql.DB
	ledger   *LedgerService
	accounts *AccountService
}

func NewCustomerService(db *sql.DB, ledger *LedgerService, accounts *AccountService) *CustomerService {
	viper.SetDefault("loan.rank_threshold", 20)
	return &CustomerService{
		db:       db,
		ledger:   ledger,
		accounts: accounts,
	}
}

// Get returns the customer profile joined with its user and rank.
func (s *CustomerService) Get(ctx context.Context, userID int64) (models.Customer, error) {
	var c models.Customer
	err := s.db.QueryRowContext(ctx, `
		SELECT c.user_id, u.username, u.first_name, u.last_name, u.email, c.personal_id, c.phone, r.name, r.value
		FROM customers c
		JOIN users u ON u.id = c.user_id
		JOIN ranks r ON r.id = c.rank_id
		WHERE c.user_id = $1`,
		userID).Scan(&c.UserID, &c.Username, &c.FirstName, &c.LastName, &c.Email, &c.PersonalID, &c.Phone, &c.RankName, &c.RankValue)
	if err == sql.ErrNoRows {
		return models.Customer{}, fmt.Errorf("customer %d: %w", userID, ErrNotFound)
	}
	if err != nil {
		return models.Customer{}, fmt.Errorf("failed to get customer: %w", err)
	}
	return c, nil
}

// CanMakeLoan reports whether the customer's rank value reaches the
// configured loan threshold.
func (s *CustomerService) CanMakeLoan(ctx context.Context, userID int64) (bool, error) {
	customer, err := s.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	return customer.RankValue >= viper.GetInt("loan.rank_threshold"), nil
}

// DefaultAccount returns the customer's first-created account, the one loan
// proceeds are paid into.
func (s *CustomerService) DefaultAccount(ctx context.Context, userID int64) (models.Account, error) {
	var account models.Account
	err := s.db.QueryRowContext(ctx, `
		SELECT account_number, user_id, name, created_at
		FROM accounts
		WHERE user_id = $1
		ORDER BY account_number
		LIMIT 1`,
		userID).Scan(&account.AccountNumber, &account.UserID, &account.Name, &account.CreatedAt)
	if err == sql.ErrNoRows {
		return models.Account{}, fmt.Errorf("no accounts for user %d: %w", userID, ErrNotFound)
	}
	if err != nil {
		return models.Account{}, fmt.Errorf("failed to get default account: %w", err)
	}
	return account, nil
}

// MakeLoan opens a loan account named "Loan: {name}" owned by the customer
// and funds the customer's default account from it with a loan-flagged
// transfer. The loan account ends at -amount (the bank's claim), the
// default account gains +amount. Requires sufficient rank.
func (s *CustomerService) MakeLoan(ctx context.Context, userID int64, amount decimal.Decimal, name string) (uuid.UUID, error) {
	canLoan, err := s.CanMakeLoan(ctx, userID)
	if err != nil {
		return uuid.Nil, err
	}
	if !canLoan {
		metrics.LoansTotal.WithLabelValues("permission_denied").Inc()
		return uuid.Nil, fmt.Errorf("user rank does not allow for making loans: %w", ErrPermissionDenied)
	}
	if amount.IsNegative() {
		return uuid.Nil, ErrInvalidAmount
	}

	defaultAccount, err := s.DefaultAccount(ctx, userID)
	if err != nil {
		return uuid.Nil, err
	}

	loanAccount, err := s.accounts.Create(ctx, userID, fmt.Sprintf("Loan: %s", name))
	if err != nil {
		return uuid.Nil, err
	}

	correlationID, err := s.ledger.Transfer(ctx,
		amount,
		loanAccount.AccountNumber,
		fmt.Sprintf("Loan paid out to account %d", defaultAccount.AccountNumber),
		defaultAccount.AccountNumber,
		fmt.Sprintf("Credit from loan %d: %s", loanAccount.AccountNumber, loanAccount.Name),
		true)
	if err != nil {
		return uuid.Nil, err
	}

	metrics.LoansTotal.WithLabelValues("ok").Inc()
	log.Printf("[CUSTOMER] Loan issued: user %d, account %d, amount %s", userID, loanAccount.AccountNumber, amount)
	return correlationID, nil
}

// Search returns up to 15 customers whose identity or profile fields
// contain the term as a substring.
func (s *CustomerService) Search(ctx context.Context, term string) ([]models.Customer, error) {
	pattern := "%" + term + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.user_id, u.username, u.first_name, u.last_name, u.email, c.personal_id, c.phone, r.name, r.value
		FROM customers c
		JOIN users u ON u.id = c.user_id
		JOIN ranks r ON r.id = c.rank_id
		WHERE u.username ILIKE $1
		   OR u.first_name ILIKE $1
		   OR u.last_name ILIKE $1
		   OR u.email ILIKE $1
		   OR c.personal_id ILIKE $1
		   OR c.phone ILIKE $1
		ORDER BY c.user_id
		LIMIT 15`,
		pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search customers: %w", err)
	}
	defer rows.Close()

	var customers []models.Customer
	for rows.Next() {
		var c models.Customer
		if err := rows.Scan(&c.UserID, &c.Username, &c.FirstName, &c.LastName, &c.Email, &c.PersonalID, &c.Phone, &c.RankName, &c.RankValue); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate customers: %w", err)
	}
	return customers, nil
}

// CreateWithUser creates the user, its banking profile and a default
// account in one transaction. The generated password is returned so staff
// can hand it to the customer out of band.
func (s *CustomerService) CreateWithUser(ctx context.Context, username, email, firstName, lastName string, rankID int64, personalID, phone string) (models.User, string, error) {
	rawPassword := make([]byte, 16)
	if _, err := cryptorand.Read(rawPassword); err != nil {
		return models.User{}, "", fmt.Errorf("failed to generate password: %w", err)
	}
	password := base64.RawURLEncoding.EncodeToString(rawPassword)

	hashedPassword, err := hashPassword(password)
	if err != nil {
		return models.User{}, "", fmt.Errorf("failed to hash password: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.User{}, "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var user models.User
	err = tx.QueryRowContext(ctx, `
		INSERT INTO users (username, email, password, first_name, last_name)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, username, email, first_name, last_name, is_staff, created_at`,
		username, email, hashedPassword, firstName, lastName).
		Scan(&user.ID, &user.Username, &user.Email, &user.FirstName, &user.LastName, &user.IsStaff, &user.CreatedAt)
	if err != nil {
		return models.User{}, "", fmt.Errorf("failed to create user: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO customers (user_id, rank_id, personal_id, phone)
		VALUES ($1, $2, $3, $4)`,
		user.ID, rankID, personalID, phone)
	if err != nil {
		return models.User{}, "", fmt.Errorf("failed to create customer: %w", err)
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO accounts (user_id, name) VALUES ($1, $2)`, user.ID, "Main account")
	if err != nil {
		return models.User{}, "", fmt.Errorf("failed to create default account: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.User{}, "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("[CUSTOMER] Created user %d (%s) with customer profile", user.ID, user.Username)
	return user, password, nil
}

// Create attaches a banking profile to an existing user.
func (s *CustomerService) Create(ctx context.Context, userID, rankID int64, personalID, phone string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (user_id, rank_id, personal_id, phone)
		VALUES ($1, $2, $3, $4)`,
		userID, rankID, personalID, phone)
	if err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}
	log.Printf("[CUSTOMER] Created customer profile for user %d", userID)
	return nil
}
