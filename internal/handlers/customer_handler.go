package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/deltabank/backend/internal/models"
	"github.com/deltabank/backend/internal/services"
)

// CustomerHandler serves loan issuance and the staff endpoints: customer
// search, customer creation and extra account creation.
type CustomerHandler struct {
	customers *services.CustomerService
	accounts  *services.AccountService
	validator *services.ValidationHelper
}

func NewCustomerHandler(customers *services.CustomerService, accounts *services.AccountService) *CustomerHandler {
	return &CustomerHandler{
		customers: customers,
		accounts:  accounts,
		validator: services.NewValidationHelper(),
	}
}

func (h *CustomerHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
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

// MakeLoan issues a loan to the calling customer
// @Summary Issue loan
// @Description Open a loan account and fund the caller's default account from it; rank-gated
// @Tags loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{amount=int64,name=string} true "Loan request"
// @Success 200 {object} object{correlation_id=string}
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Router /loans [post]
func (h *CustomerHandler) MakeLoan(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		Amount int64  `json:"amount" validate:"gte=0"`
		Name   string `json:"name" validate:"required"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	correlationID, err := h.customers.MakeLoan(r.Context(), userID, services.AmountFromUnits(req.Amount), req.Name)
	if err != nil {
		log.Printf("[LOAN] Loan issuance failed for user %d: %v", userID, err)
		services.SendErrorResponse(w, "Loan could not be completed", statusForError(err), nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"correlation_id": correlationID.String()})
}

// Search finds customers by identity or profile fields
// @Summary Search customers
// @Description Substring match across username, name, email, personal id and phone; at most 15 results
// @Tags staff
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{search_term=string} true "Search request"
// @Success 200 {array} models.Customer
// @Router /staff/search [post]
func (h *CustomerHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SearchTerm string `json:"search_term" validate:"required"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	customers, err := h.customers.Search(r.Context(), req.SearchTerm)
	if err != nil {
		services.SendErrorResponse(w, "Search failed", http.StatusInternalServerError, nil)
		return
	}

	if customers == nil {
		customers = []models.Customer{}
	}
	writeJSON(w, http.StatusOK, customers)
}

// NewCustomer creates a customer with a fresh user and default account
// @Summary Create customer
// @Description Staff onboarding: user, customer profile and default account in one step
// @Tags staff
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{username=string,email=string,first_name=string,last_name=string,rank_id=int64,personal_id=string,phone=string} true "New customer"
// @Success 200 {object} object{user=models.User,password=string}
// @Failure 409 {object} services.ErrorResponse
// @Router /staff/customers [post]
func (h *CustomerHandler) NewCustomer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username   string `json:"username" validate:"required,min=3"`
		Email      string `json:"email" validate:"required,email"`
		FirstName  string `json:"first_name" validate:"required"`
		LastName   string `json:"last_name" validate:"required"`
		RankID     int64  `json:"rank_id" validate:"required"`
		PersonalID string `json:"personal_id" validate:"required"`
		Phone      string `json:"phone" validate:"required"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	user, password, err := h.customers.CreateWithUser(r.Context(), req.Username, req.Email,
		req.FirstName, req.LastName, req.RankID, req.PersonalID, req.Phone)
	if err != nil {
		log.Printf("[STAFF] Customer creation failed: %v", err)
		services.SendErrorResponse(w, "User could not be created", http.StatusConflict, nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":     user,
		"password": password,
	})
}

// NewAccount opens an extra account for an existing customer
// @Summary Create account
// @Description Staff action: open a named account owned by the given user
// @Tags staff
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{user_id=int64,name=string} true "New account"
// @Success 200 {object} models.Account
// @Router /staff/accounts [post]
func (h *CustomerHandler) NewAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID int64  `json:"user_id" validate:"required"`
		Name   string `json:"name" validate:"required"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	account, err := h.accounts.Create(r.Context(), req.UserID, req.Name)
	if err != nil {
		log.Printf("[STAFF] Account creation failed: %v", err)
		services.SendErrorResponse(w, "Account could not be created", http.StatusInternalServerError, nil)
		return
	}

	writeJSON(w, http.StatusOK, account)
}
