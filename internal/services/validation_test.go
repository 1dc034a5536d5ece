package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

type transferPayload struct {
	Amount        int64  `validate:"gte=0"`
	DebitAccount  int64  `validate:"required"`
	CreditAccount int64  `validate:"required"`
	CorrelationID string `validate:"omitempty,uuid"`
}

func TestValidationHelper_ValidateStruct(t *testing.T) {
	vh := NewValidationHelper()

	t.Run("valid payload", func(t *testing.T) {
		valid := transferPayload{
			Amount:        300,
			DebitAccount:  5,
			CreditAccount: 9,
		}

		assert.NoError(t, vh.ValidateStruct(&valid))
	})

	t.Run("negative amount and missing accounts", func(t *testing.T) {
		invalid := transferPayload{Amount: -1}

		err := vh.ValidateStruct(&invalid)
		assert.Error(t, err)

		validationErrors, ok := err.(validator.ValidationErrors)
		assert.True(t, ok)
		assert.Len(t, validationErrors, 3) // Amount, DebitAccount, CreditAccount
	})

	t.Run("malformed correlation id", func(t *testing.T) {
		invalid := transferPayload{
			Amount:        300,
			DebitAccount:  5,
			CreditAccount: 9,
			CorrelationID: "not-a-uuid",
		}

		err := vh.ValidateStruct(&invalid)
		assert.Error(t, err)

		validationErrors, ok := err.(validator.ValidationErrors)
		assert.True(t, ok)
		assert.Len(t, validationErrors, 1)
		assert.Equal(t, "CorrelationID", validationErrors[0].Field())
		assert.Equal(t, "uuid", validationErrors[0].Tag())
	})
}

func TestSendErrorResponse(t *testing.T) {
	t.Run("plain error", func(t *testing.T) {
		w := httptest.NewRecorder()

		SendErrorResponse(w, "insufficient funds for transfer", http.StatusPaymentRequired, nil)

		assert.Equal(t, http.StatusPaymentRequired, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var response ErrorResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "insufficient funds for transfer", response.Error)
		assert.Nil(t, response.Details)
	})

	t.Run("error with validation details", func(t *testing.T) {
		vh := NewValidationHelper()
		invalid := transferPayload{Amount: -1}

		validationErr := vh.ValidateStruct(&invalid)
		assert.Error(t, validationErr)

		w := httptest.NewRecorder()
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, validationErr)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response ErrorResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "Validation failed", response.Error)
		assert.Contains(t, response.Details, "Amount")
		assert.Contains(t, response.Details, "DebitAccount")
		assert.Contains(t, response.Details, "CreditAccount")
	})

	t.Run("non-validation error carries no details", func(t *testing.T) {
		w := httptest.NewRecorder()

		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, assert.AnError)

		assert.Equal(t, http.StatusUnauthorized, w.Code)

		var response ErrorResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "Unauthorized", response.Error)
		assert.Nil(t, response.Details)
	})
}
