package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/deltabank/backend/internal/models"
	"github.com/deltabank/backend/internal/services"
)

// AccountHandler serves account listings and details. Balances in every
// response are derived from movements at request time.
type AccountHandler struct {
	accounts *services.AccountService
}

func NewAccountHandler(accounts *services.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// ListAccounts returns the caller's accounts
// @Summary List accounts
// @Description The caller's accounts with derived balances, oldest first
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.AccountWithBalance
// @Router /accounts [get]
func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	accounts, err := h.accounts.ListForUser(r.Context(), userID)
	if err != nil {
		services.SendErrorResponse(w, "Failed to list accounts", http.StatusInternalServerError, nil)
		return
	}

	if accounts == nil {
		accounts = []models.AccountWithBalance{}
	}
	writeJSON(w, http.StatusOK, accounts)
}

// GetAccount returns one account with its movements
// @Summary Account details
// @Description Account, derived balance and ordered movement history; owners and staff only
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param accountNumber path int true "Account number"
// @Success 200 {object} object{account=models.Account,balance=string,movements=[]models.Movement}
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{accountNumber} [get]
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	accountNumber, err := strconv.ParseInt(chi.URLParam(r, "accountNumber"), 10, 64)
	if err != nil {
		services.SendErrorResponse(w, "Invalid account number", http.StatusBadRequest, nil)
		return
	}

	account, err := h.accounts.Get(r.Context(), accountNumber)
	if err != nil {
		services.SendErrorResponse(w, "Account not found", statusForError(err), nil)
		return
	}

	if account.UserID != userID && !callerIsStaff(r) {
		services.SendErrorResponse(w, "Account does not belong to caller", http.StatusForbidden, nil)
		return
	}

	balance, err := h.accounts.Balance(r.Context(), accountNumber)
	if err != nil {
		services.SendErrorResponse(w, "Failed to compute balance", http.StatusInternalServerError, nil)
		return
	}

	movements, err := h.accounts.Movements(r.Context(), accountNumber)
	if err != nil {
		services.SendErrorResponse(w, "Failed to fetch movements", http.StatusInternalServerError, nil)
		return
	}
	if movements == nil {
		movements = []models.Movement{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"account":   account,
		"balance":   balance,
		"movements": movements,
	})
}
