package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func newTestCustomers(t *testing.T) (*CustomerService, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	ledger := NewLedgerService(db, NewPendingTransferTracker(nil))
	accounts := NewAccountService(db)
	return NewCustomerService(db, ledger, accounts), mock, func() { db.Close() }
}

func expectCustomer(mock sqlmock.Sqlmock, userID int64, rankValue int) {
	mock.ExpectQuery("SELECT c.user_id, u.username, u.first_name, u.last_name, u.email, c.personal_id, c.phone, r.name, r.value FROM customers").
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "username", "first_name", "last_name", "email", "personal_id", "phone", "name", "value"}).
			AddRow(userID, "evelyn", "Evelyn", "Smith", "evelyn@smith.com", "00010001", "87351233", "Gold", rankValue))
}

func TestCustomerService_MakeLoan(t *testing.T) {
	viper.Set("loan.rank_threshold", 20)

	t.Run("issues loan account and funds default account", func(t *testing.T) {
		service, mock, closeDB := newTestCustomers(t)
		defer closeDB()

		amount := decimal.NewFromInt(5000)

		expectCustomer(mock, 7, 30)

		// Default account lookup
		mock.ExpectQuery("SELECT account_number, user_id, name, created_at FROM accounts WHERE user_id").
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"account_number", "user_id", "name", "created_at"}).
				AddRow(1, 7, "Main account", time.Now()))

		// New loan account
		mock.ExpectQuery("INSERT INTO accounts").
			WithArgs(int64(7), "Loan: car").
			WillReturnRows(sqlmock.NewRows([]string{"account_number", "user_id", "name", "created_at"}).
				AddRow(9, 7, "Loan: car", time.Now()))

		// Loan-flagged transfer: debit the new loan account, credit the
		// default account, no balance check.
		mock.ExpectBegin()
		expectAccountLock(mock, 1)
		expectAccountLock(mock, 9)
		mock.ExpectExec("INSERT INTO movements").
			WithArgs(int64(9), sqlmock.AnyArg(), amount.Neg(), "Loan paid out to account 1", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO movements").
			WithArgs(int64(1), sqlmock.AnyArg(), amount, "Credit from loan 9: Loan: car", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(2, 1))
		mock.ExpectCommit()

		correlationID, err := service.MakeLoan(context.Background(), 7, amount, "car")
		assert.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, correlationID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rank below threshold is denied before any write", func(t *testing.T) {
		service, mock, closeDB := newTestCustomers(t)
		defer closeDB()

		expectCustomer(mock, 7, 10)

		_, err := service.MakeLoan(context.Background(), 7, decimal.NewFromInt(5000), "car")
		assert.ErrorIs(t, err, ErrPermissionDenied)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("negative amount rejected", func(t *testing.T) {
		service, mock, closeDB := newTestCustomers(t)
		defer closeDB()

		expectCustomer(mock, 7, 30)

		_, err := service.MakeLoan(context.Background(), 7, decimal.NewFromInt(-1), "car")
		assert.ErrorIs(t, err, ErrInvalidAmount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown customer", func(t *testing.T) {
		service, mock, closeDB := newTestCustomers(t)
		defer closeDB()

		mock.ExpectQuery("SELECT c.user_id, u.username, u.first_name, u.last_name, u.email, c.personal_id, c.phone, r.name, r.value FROM customers").
			WithArgs(int64(404)).
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "username", "first_name", "last_name", "email", "personal_id", "phone", "name", "value"}))

		_, err := service.MakeLoan(context.Background(), 404, decimal.NewFromInt(1), "car")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCustomerService_Search(t *testing.T) {
	service, mock, closeDB := newTestCustomers(t)
	defer closeDB()

	t.Run("substring match finds customer", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"user_id", "username", "first_name", "last_name", "email", "personal_id", "phone", "name", "value"}).
			AddRow(7, "evelyn", "Evelyn", "Smith", "evelyn@smith.com", "00010001", "87351233", "Silver", 20)
		mock.ExpectQuery("SELECT c.user_id, u.username, u.first_name, u.last_name, u.email, c.personal_id, c.phone, r.name, r.value FROM customers").
			WithArgs("%smith%").
			WillReturnRows(rows)

		customers, err := service.Search(context.Background(), "smith")
		assert.NoError(t, err)
		assert.Len(t, customers, 1)
		assert.Equal(t, "Evelyn Smith", customers[0].FullName())
	})

	t.Run("no match yields empty result", func(t *testing.T) {
		mock.ExpectQuery("SELECT c.user_id, u.username, u.first_name, u.last_name, u.email, c.personal_id, c.phone, r.name, r.value FROM customers").
			WithArgs("%nobody%").
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "username", "first_name", "last_name", "email", "personal_id", "phone", "name", "value"}))

		customers, err := service.Search(context.Background(), "nobody")
		assert.NoError(t, err)
		assert.Empty(t, customers)
	})
}

func TestCustomerService_DefaultAccount(t *testing.T) {
	service, mock, closeDB := newTestCustomers(t)
	defer closeDB()

	t.Run("first-created account wins", func(t *testing.T) {
		mock.ExpectQuery("SELECT account_number, user_id, name, created_at FROM accounts WHERE user_id").
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"account_number", "user_id", "name", "created_at"}).
				AddRow(1, 7, "Main account", time.Now()))

		account, err := service.DefaultAccount(context.Background(), 7)
		assert.NoError(t, err)
		assert.Equal(t, int64(1), account.AccountNumber)
	})

	t.Run("customer without accounts", func(t *testing.T) {
		mock.ExpectQuery("SELECT account_number, user_id, name, created_at FROM accounts WHERE user_id").
			WithArgs(int64(8)).
			WillReturnRows(sqlmock.NewRows([]string{"account_number", "user_id", "name", "created_at"}))

		_, err := service.DefaultAccount(context.Background(), 8)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
