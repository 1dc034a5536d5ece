package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a named balance-holding entity owned by exactly one user.
// The balance is never stored: it is derived by summing the account's
// movements, so a stale cached balance cannot exist.
type Account struct {
	AccountNumber int64     `json:"account_number" db:"account_number"`
	UserID        int64     `json:"user_id" db:"user_id"`
	Name          string    `json:"name" db:"name"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// AccountWithBalance pairs an account with its derived balance for
// list/detail responses.
type AccountWithBalance struct {
	Account
	Balance decimal.Decimal `json:"balance"`
}
