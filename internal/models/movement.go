package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Movement is one signed entry in the append-only ledger: negative for a
// debit leg, positive for a credit leg. Movements sharing a correlation id
// form one logical transfer. Rows are never updated or deleted; a
// correction is a new movement with the opposite sign.
type Movement struct {
	ID            int64           `json:"id" db:"id"`
	AccountNumber int64           `json:"account_number" db:"account_number"`
	CorrelationID uuid.UUID       `json:"correlation_id" db:"correlation_id"`
	Amount        decimal.Decimal `json:"amount" db:"amount"` // NUMERIC(10,2)
	Memo          string          `json:"memo" db:"memo"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}
