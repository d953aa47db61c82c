package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/mango0422/hwanbee-bank/internal/ledger"
	"github.com/mango0422/hwanbee-bank/internal/middleware"
	"github.com/mango0422/hwanbee-bank/internal/models"
	"github.com/mango0422/hwanbee-bank/internal/rates"
	"github.com/mango0422/hwanbee-bank/internal/service"
	"github.com/mango0422/hwanbee-bank/internal/utils/email"
)

// Handler exposes the ledger, auth, and rate operations over HTTP.
type Handler struct {
	svc    *service.Service
	ledger *ledger.Ledger
	rates  *rates.Table
	mail   *email.Sender
	log    *logrus.Logger
}

func NewHandler(svc *service.Service, ldg *ledger.Ledger, table *rates.Table, mail *email.Sender, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, ledger: ldg, rates: table, mail: mail, log: log}
}

type authResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	User         *models.User `json:"user"`
}

// Signup handles user registration
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		Name        string `json:"name"`
		PhoneNumber string `json:"phoneNumber"`
		Address     string `json:"address"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.svc.Register(r.Context(), req.Email, req.Password, req.Name, req.PhoneNumber, req.Address)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	tokens, err := h.svc.IssueTokens(user)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{tokens.AccessToken, tokens.RefreshToken, user})
}

// Login handles user authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	tokens, err := h.svc.IssueTokens(user)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{tokens.AccessToken, tokens.RefreshToken, user})
}

// Refresh exchanges a refresh token for a new token pair
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	tokens, err := h.svc.Refresh(req.RefreshToken)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

// Logout acknowledges a logout. Tokens are stateless, so the client simply
// discards them.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// GetProfile returns the authenticated user's profile
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	user, err := h.svc.GetUser(userID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateProfile updates name, phone number, or address
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	var req struct {
		Name        string `json:"name"`
		PhoneNumber string `json:"phoneNumber"`
		Address     string `json:"address"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.svc.UpdateProfile(r.Context(), userID, req.Name, req.PhoneNumber, req.Address)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ChangePassword verifies and replaces the user's password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.svc.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ListAccounts returns all accounts
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ledger.ListAccounts())
}

// GetAccount returns one account by ID
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.ledger.GetAccount(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// CreateAccount opens a new account
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountName string          `json:"accountName"`
		Type        string          `json:"type"`
		Currency    string          `json:"currency"`
		Balance     decimal.Decimal `json:"balance"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	account, err := h.ledger.CreateAccount(r.Context(), req.AccountName, models.AccountType(req.Type), req.Currency, req.Balance)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

// ListTransactions returns every transaction, newest first
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ledger.ListAllTransactions())
}

// ListAccountTransactions returns one account's history, newest first
func (h *Handler) ListAccountTransactions(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["accountId"]
	if _, err := h.ledger.GetAccount(accountID); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, h.ledger.ListTransactions(accountID))
}

// GetTransaction returns one transaction by ID
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.ledger.GetTransaction(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// Transfer debits the source account in favor of an external account number
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FromAccountID   string          `json:"fromAccountId"`
		ToAccountNumber string          `json:"toAccountNumber"`
		RecipientName   string          `json:"recipientName"`
		Amount          decimal.Decimal `json:"amount"`
		Description     string          `json:"description"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	tx, err := h.ledger.Transfer(r.Context(), req.FromAccountID, req.ToAccountNumber, req.RecipientName, req.Amount, req.Description)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	h.sendReceipt(r, tx)
	writeJSON(w, http.StatusCreated, tx)
}

// Exchange converts part of an account balance into a foreign currency
func (h *Handler) Exchange(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FromAccountID string          `json:"fromAccountId"`
		ToCurrency    string          `json:"toCurrency"`
		Amount        decimal.Decimal `json:"amount"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	tx, err := h.ledger.Exchange(r.Context(), req.FromAccountID, req.ToCurrency, req.Amount)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	h.sendReceipt(r, tx)
	writeJSON(w, http.StatusCreated, tx)
}

// Deposit credits an account
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID   string          `json:"accountId"`
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	tx, err := h.ledger.Deposit(r.Context(), req.AccountID, req.Amount, req.Description)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

// Withdraw debits an account
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID   string          `json:"accountId"`
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	tx, err := h.ledger.Withdraw(r.Context(), req.AccountID, req.Amount, req.Description)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

// GetRates returns the reference exchange-rate table
func (h *Handler) GetRates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.rates.All())
}

// sendReceipt emails a receipt for a completed transfer or exchange.
// Best-effort: failures are logged by the sender and never affect the
// committed operation.
func (h *Handler) sendReceipt(r *http.Request, tx *models.Transaction) {
	if !h.mail.Enabled() {
		return
	}
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		return
	}
	user, err := h.svc.GetUser(userID)
	if err != nil {
		return
	}
	account, err := h.ledger.GetAccount(tx.AccountID)
	if err != nil {
		return
	}

	go func() {
		switch tx.Type {
		case models.TransactionTypeTransfer:
			h.mail.SendTransferReceipt(user.Email, user.Name, tx, account.Balance, account.Currency)
		case models.TransactionTypeExchange:
			h.mail.SendExchangeReceipt(user.Email, user.Name, tx, account.Balance, account.Currency)
		}
	}()
}
