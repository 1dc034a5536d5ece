package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/deltabank/backend/internal/services"
)

// TransferHandler exposes the transfer engine over HTTP: the internal
// atomic transfer, the split two-phase protocol used across the bank
// boundary, and transaction lookup.
type TransferHandler struct {
	ledger    *services.LedgerService
	accounts  *services.AccountService
	validator *services.ValidationHelper
}

func NewTransferHandler(ledger *services.LedgerService, accounts *services.AccountService) *TransferHandler {
	return &TransferHandler{
		ledger:    ledger,
		accounts:  accounts,
		validator: services.NewValidationHelper(),
	}
}

func (h *TransferHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}
	if err := h.validator.ValidateStruct(v); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return false
	}
	return true
}

// MakeTransfer performs an atomic transfer between accounts
// @Summary Atomic transfer
// @Description Move an amount between two accounts as one all-or-nothing unit
// @Tags transfers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{amount=int64,debit_account=int64,debit_text=string,credit_account=int64,credit_text=string} true "Transfer request"
// @Success 200 {object} object{correlation_id=string}
// @Failure 400 {object} services.ErrorResponse
// @Failure 402 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /transfers [post]
func (h *TransferHandler) MakeTransfer(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		Amount        int64  `json:"amount" validate:"gte=0"`
		DebitAccount  int64  `json:"debit_account" validate:"required"`
		DebitText     string `json:"debit_text"`
		CreditAccount int64  `json:"credit_account" validate:"required"`
		CreditText    string `json:"credit_text"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	// The debit side must be the caller's own account; staff may move
	// funds out of any account.
	debitAccount, err := h.accounts.Get(r.Context(), req.DebitAccount)
	if err != nil {
		services.SendErrorResponse(w, "Debit account not found", statusForError(err), nil)
		return
	}
	if debitAccount.UserID != userID && !callerIsStaff(r) {
		services.SendErrorResponse(w, "Debit account does not belong to caller", http.StatusForbidden, nil)
		return
	}

	correlationID, err := h.ledger.Transfer(r.Context(), services.AmountFromUnits(req.Amount),
		req.DebitAccount, req.DebitText, req.CreditAccount, req.CreditText, false)
	if err != nil {
		log.Printf("[TRANSFER] Transfer failed: %v", err)
		services.SendErrorResponse(w, err.Error(), statusForError(err), nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"correlation_id": correlationID.String()})
}

// TransferFrom writes the debit leg of a split transfer
// @Summary Split transfer, debit leg
// @Description Debit an account and return the correlation id the credit leg must carry
// @Tags transfers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{amount=int64,debit_account=int64,debit_text=string} true "Debit request"
// @Success 200 {object} object{correlation_id=string}
// @Failure 400 {object} services.ErrorResponse
// @Failure 402 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /transfers/from [post]
func (h *TransferHandler) TransferFrom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount       int64  `json:"amount" validate:"gte=0"`
		DebitAccount int64  `json:"debit_account" validate:"required"`
		DebitText    string `json:"debit_text"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	correlationID, err := h.ledger.TransferFrom(r.Context(), services.AmountFromUnits(req.Amount),
		req.DebitAccount, req.DebitText, false)
	if err != nil {
		log.Printf("[TRANSFER] Debit leg failed: %v", err)
		services.SendErrorResponse(w, err.Error(), statusForError(err), nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"correlation_id": correlationID.String()})
}

// TransferTo writes the credit leg of a split transfer
// @Summary Split transfer, credit leg
// @Description Credit an account under the correlation id returned by the debit leg
// @Tags transfers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{amount=int64,credit_account=int64,credit_text=string,correlation_id=string} true "Credit request"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /transfers/to [post]
func (h *TransferHandler) TransferTo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount        int64  `json:"amount" validate:"gte=0"`
		CreditAccount int64  `json:"credit_account" validate:"required"`
		CreditText    string `json:"credit_text"`
		CorrelationID string `json:"correlation_id" validate:"required,uuid"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	correlationID, err := uuid.Parse(req.CorrelationID)
	if err != nil {
		services.SendErrorResponse(w, "Invalid correlation id", http.StatusBadRequest, nil)
		return
	}

	if err := h.ledger.TransferTo(r.Context(), services.AmountFromUnits(req.Amount),
		req.CreditAccount, req.CreditText, correlationID); err != nil {
		log.Printf("[TRANSFER] Credit leg failed: %v", err)
		services.SendErrorResponse(w, err.Error(), statusForError(err), nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "money transferred to account"})
}

// ValidateCreditAccount checks that a credit account exists
// @Summary Validate credit account
// @Description Existence check performed before starting a split transfer; no mutation
// @Tags transfers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{credit_account=int64} true "Account to check"
// @Success 200 {object} object{found=bool}
// @Failure 403 {object} object{found=bool}
// @Router /accounts/validate [post]
func (h *TransferHandler) ValidateCreditAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CreditAccount int64 `json:"credit_account" validate:"required"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	found, err := h.accounts.Exists(r.Context(), req.CreditAccount)
	if err != nil {
		services.SendErrorResponse(w, "Failed to check account", http.StatusInternalServerError, nil)
		return
	}
	if !found {
		writeJSON(w, http.StatusForbidden, map[string]bool{"found": false})
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"found": true})
}

// GetTransaction returns all legs of one transfer
// @Summary Transaction details
// @Description Every movement written under the correlation id; callers must own one of the involved accounts unless staff
// @Tags transfers
// @Produce json
// @Security BearerAuth
// @Param correlationID path string true "Correlation id"
// @Success 200 {array} models.Movement
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /transactions/{correlationID} [get]
func (h *TransferHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	correlationID, err := uuid.Parse(chi.URLParam(r, "correlationID"))
	if err != nil {
		services.SendErrorResponse(w, "Invalid correlation id", http.StatusBadRequest, nil)
		return
	}

	movements, err := h.ledger.MovementsByCorrelation(r.Context(), correlationID)
	if err != nil {
		services.SendErrorResponse(w, "Transaction not found", statusForError(err), nil)
		return
	}

	if !callerIsStaff(r) {
		involved := false
		for _, m := range movements {
			account, err := h.accounts.Get(r.Context(), m.AccountNumber)
			if err == nil && account.UserID == userID {
				involved = true
				break
			}
		}
		if !involved {
			services.SendErrorResponse(w, "Caller is not part of the transaction", http.StatusForbidden, nil)
			return
		}
	}

	writeJSON(w, http.StatusOK, movements)
}
