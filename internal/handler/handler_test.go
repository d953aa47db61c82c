package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/mango0422/hwanbee-bank/internal/config"
	"github.com/mango0422/hwanbee-bank/internal/ledger"
	"github.com/mango0422/hwanbee-bank/internal/middleware"
	"github.com/mango0422/hwanbee-bank/internal/rates"
	"github.com/mango0422/hwanbee-bank/internal/service"
	"github.com/mango0422/hwanbee-bank/internal/storage"
	"github.com/mango0422/hwanbee-bank/internal/utils/email"
)

// newTestRouter wires the full API the way cmd/api does, over an in-memory
// store with no SMTP configured.
func newTestRouter(t *testing.T) *mux.Router {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cfg := &config.Config{JWTSecret: "test-secret"}

	store := storage.NewMemoryStore()
	table := rates.NewTable(rates.Defaults())
	ldg, err := ledger.New(store, table, ledger.NoFees(), logger)
	if err != nil {
		t.Fatalf("ledger.New: %v", err)
	}
	svc, err := service.NewService(store, logger, cfg)
	if err != nil {
		t.Fatalf("service.NewService: %v", err)
	}
	h := NewHandler(svc, ldg, table, email.NewSender(cfg, logger), logger)

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/signup", h.Signup).Methods("POST")
	api.HandleFunc("/auth/login", h.Login).Methods("POST")
	api.HandleFunc("/auth/refresh", h.Refresh).Methods("POST")
	api.HandleFunc("/auth/logout", h.Logout).Methods("POST")
	api.HandleFunc("/exchange/rates", h.GetRates).Methods("GET")

	authRouter := api.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(cfg))
	authRouter.HandleFunc("/users/profile", h.GetProfile).Methods("GET")
	authRouter.HandleFunc("/users/profile", h.UpdateProfile).Methods("PUT")
	authRouter.HandleFunc("/users/password", h.ChangePassword).Methods("PUT")
	authRouter.HandleFunc("/accounts", h.ListAccounts).Methods("GET")
	authRouter.HandleFunc("/accounts", h.CreateAccount).Methods("POST")
	authRouter.HandleFunc("/accounts/{id}", h.GetAccount).Methods("GET")
	authRouter.HandleFunc("/transactions", h.ListTransactions).Methods("GET")
	authRouter.HandleFunc("/transactions/transfer", h.Transfer).Methods("POST")
	authRouter.HandleFunc("/transactions/exchange", h.Exchange).Methods("POST")
	authRouter.HandleFunc("/transactions/deposit", h.Deposit).Methods("POST")
	authRouter.HandleFunc("/transactions/withdrawal", h.Withdraw).Methods("POST")
	authRouter.HandleFunc("/transactions/account/{accountId}", h.ListAccountTransactions).Methods("GET")
	authRouter.HandleFunc("/transactions/{id}", h.GetTransaction).Methods("GET")
	return r
}

func doJSON(t *testing.T, r *mux.Router, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

// login authenticates as the seeded demo user and returns an access token.
func login(t *testing.T, r *mux.Router) string {
	t.Helper()
	rec := doJSON(t, r, "POST", "/api/auth/login", "", map[string]string{
		"email":    "test@mail.com",
		"password": "test1234",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	decodeResponse(t, rec, &resp)
	if resp.AccessToken == "" {
		t.Fatal("login returned no access token")
	}
	return resp.AccessToken
}

func TestLoginAndProfile(t *testing.T) {
	r := newTestRouter(t)
	token := login(t, r)

	rec := doJSON(t, r, "GET", "/api/users/profile", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("profile status = %d", rec.Code)
	}
	var user struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	decodeResponse(t, rec, &user)
	if user.ID != "1" || user.Email != "test@mail.com" {
		t.Fatalf("profile = %+v", user)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	r := newTestRouter(t)
	rec := doJSON(t, r, "POST", "/api/auth/login", "", map[string]string{
		"email":    "test@mail.com",
		"password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r := newTestRouter(t)

	for _, path := range []string{"/api/accounts", "/api/transactions", "/api/users/profile"} {
		rec := doJSON(t, r, "GET", path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s without token: status = %d, want 401", path, rec.Code)
		}
	}

	rec := doJSON(t, r, "GET", "/api/accounts", "not-a-jwt", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: status = %d, want 401", rec.Code)
	}
}

func TestRefreshTokenRejectedAsAccessToken(t *testing.T) {
	r := newTestRouter(t)
	rec := doJSON(t, r, "POST", "/api/auth/login", "", map[string]string{
		"email":    "test@mail.com",
		"password": "test1234",
	})
	var resp struct {
		RefreshToken string `json:"refreshToken"`
	}
	decodeResponse(t, rec, &resp)

	got := doJSON(t, r, "GET", "/api/accounts", resp.RefreshToken, nil)
	if got.Code != http.StatusUnauthorized {
		t.Fatalf("refresh token on protected route: status = %d, want 401", got.Code)
	}
}

func TestRatesArePublic(t *testing.T) {
	r := newTestRouter(t)
	rec := doJSON(t, r, "GET", "/api/exchange/rates", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var list []struct {
		Currency string `json:"currency"`
	}
	decodeResponse(t, rec, &list)
	if len(list) != 5 {
		t.Fatalf("got %d rates, want 5", len(list))
	}
}

func TestListAccounts(t *testing.T) {
	r := newTestRouter(t)
	token := login(t, r)

	rec := doJSON(t, r, "GET", "/api/accounts", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var accounts []struct {
		ID      string `json:"id"`
		Balance string `json:"balance"`
	}
	decodeResponse(t, rec, &accounts)
	if len(accounts) != 2 {
		t.Fatalf("got %d accounts, want 2", len(accounts))
	}
}

func TestCreateAccountEndpoint(t *testing.T) {
	r := newTestRouter(t)
	token := login(t, r)

	rec := doJSON(t, r, "POST", "/api/accounts", token, map[string]interface{}{
		"accountName": "새 통장",
		"type":        "CHECKING",
		"currency":    "KRW",
		"balance":     100000,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var account struct {
		ID            string `json:"id"`
		AccountNumber string `json:"accountNumber"`
	}
	decodeResponse(t, rec, &account)
	if account.ID == "" || account.AccountNumber == "" {
		t.Fatalf("account = %+v", account)
	}

	got := doJSON(t, r, "GET", "/api/accounts/"+account.ID, token, nil)
	if got.Code != http.StatusOK {
		t.Fatalf("get created account: status = %d", got.Code)
	}

	bad := doJSON(t, r, "POST", "/api/accounts", token, map[string]interface{}{
		"accountName": "음수 통장",
		"type":        "CHECKING",
		"currency":    "KRW",
		"balance":     -1,
	})
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("negative balance: status = %d, want 400", bad.Code)
	}
}

func TestTransferEndpoint(t *testing.T) {
	r := newTestRouter(t)
	token := login(t, r)

	rec := doJSON(t, r, "POST", "/api/transactions/transfer", token, map[string]interface{}{
		"fromAccountId":   "1",
		"toAccountNumber": "987-654-321098",
		"recipientName":   "홍길동",
		"amount":          120000,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var tx struct {
		ID     string `json:"id"`
		Type   string `json:"type"`
		Amount string `json:"amount"`
	}
	decodeResponse(t, rec, &tx)
	if tx.Type != "TRANSFER" || tx.Amount != "-120000" {
		t.Fatalf("transaction = %+v", tx)
	}

	var account struct {
		Balance string `json:"balance"`
	}
	got := doJSON(t, r, "GET", "/api/accounts/1", token, nil)
	decodeResponse(t, got, &account)
	if account.Balance != "1130000" {
		t.Fatalf("balance after transfer = %s, want 1130000", account.Balance)
	}

	byID := doJSON(t, r, "GET", "/api/transactions/"+tx.ID, token, nil)
	if byID.Code != http.StatusOK {
		t.Fatalf("get transaction: status = %d", byID.Code)
	}
}

func TestTransferInsufficientFundsEndpoint(t *testing.T) {
	r := newTestRouter(t)
	token := login(t, r)

	rec := doJSON(t, r, "POST", "/api/transactions/transfer", token, map[string]interface{}{
		"fromAccountId":   "1",
		"toAccountNumber": "987-654-321098",
		"amount":          999999999,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	var resp struct {
		Error string `json:"error"`
	}
	decodeResponse(t, rec, &resp)
	if resp.Error == "" {
		t.Fatal("expected error message in body")
	}
}

func TestExchangeEndpoint(t *testing.T) {
	r := newTestRouter(t)
	token := login(t, r)

	rec := doJSON(t, r, "POST", "/api/transactions/exchange", token, map[string]interface{}{
		"fromAccountId": "1",
		"toCurrency":    "USD",
		"amount":        200000,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var tx struct {
		Type     string `json:"type"`
		Exchange struct {
			ToCurrency string `json:"toCurrency"`
			Rate       string `json:"rate"`
		} `json:"exchange"`
	}
	decodeResponse(t, rec, &tx)
	if tx.Type != "EXCHANGE" || tx.Exchange.ToCurrency != "USD" || tx.Exchange.Rate != "1350.45" {
		t.Fatalf("transaction = %+v", tx)
	}

	unknown := doJSON(t, r, "POST", "/api/transactions/exchange", token, map[string]interface{}{
		"fromAccountId": "1",
		"toCurrency":    "XYZ",
		"amount":        1000,
	})
	if unknown.Code != http.StatusBadRequest {
		t.Fatalf("unknown currency: status = %d, want 400", unknown.Code)
	}
}

func TestTransactionRoutes(t *testing.T) {
	r := newTestRouter(t)
	token := login(t, r)

	all := doJSON(t, r, "GET", "/api/transactions", token, nil)
	if all.Code != http.StatusOK {
		t.Fatalf("list all: status = %d", all.Code)
	}
	var txs []struct {
		AccountID string `json:"accountId"`
	}
	decodeResponse(t, all, &txs)
	if len(txs) != 4 {
		t.Fatalf("got %d transactions, want 4 seeded", len(txs))
	}

	byAccount := doJSON(t, r, "GET", "/api/transactions/account/1", token, nil)
	if byAccount.Code != http.StatusOK {
		t.Fatalf("list by account: status = %d", byAccount.Code)
	}
	decodeResponse(t, byAccount, &txs)
	for _, tx := range txs {
		if tx.AccountID != "1" {
			t.Fatalf("foreign transaction in account history: %+v", tx)
		}
	}

	missingAccount := doJSON(t, r, "GET", "/api/transactions/account/nope", token, nil)
	if missingAccount.Code != http.StatusNotFound {
		t.Fatalf("unknown account history: status = %d, want 404", missingAccount.Code)
	}

	missingTx := doJSON(t, r, "GET", "/api/transactions/nonexistent", token, nil)
	if missingTx.Code != http.StatusNotFound {
		t.Fatalf("unknown transaction: status = %d, want 404", missingTx.Code)
	}
}

func TestDepositAndWithdrawEndpoints(t *testing.T) {
	r := newTestRouter(t)
	token := login(t, r)

	dep := doJSON(t, r, "POST", "/api/transactions/deposit", token, map[string]interface{}{
		"accountId": "1",
		"amount":    50000,
	})
	if dep.Code != http.StatusCreated {
		t.Fatalf("deposit status = %d", dep.Code)
	}
	wd := doJSON(t, r, "POST", "/api/transactions/withdrawal", token, map[string]interface{}{
		"accountId":   "1",
		"amount":      30000,
		"description": "ATM 출금",
	})
	if wd.Code != http.StatusCreated {
		t.Fatalf("withdrawal status = %d", wd.Code)
	}

	var account struct {
		Balance string `json:"balance"`
	}
	got := doJSON(t, r, "GET", "/api/accounts/1", token, nil)
	decodeResponse(t, got, &account)
	if account.Balance != "1270000" {
		t.Fatalf("balance = %s, want 1270000", account.Balance)
	}
}

func TestSignupEndpoint(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, "POST", "/api/auth/signup", "", map[string]string{
		"email":    "new@mail.com",
		"password": "password1",
		"name":     "김신규",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		AccessToken string `json:"accessToken"`
		User        struct {
			Email string `json:"email"`
		} `json:"user"`
	}
	decodeResponse(t, rec, &resp)
	if resp.AccessToken == "" || resp.User.Email != "new@mail.com" {
		t.Fatalf("response = %+v", resp)
	}

	dup := doJSON(t, r, "POST", "/api/auth/signup", "", map[string]string{
		"email":    "new@mail.com",
		"password": "other",
		"name":     "중복",
	})
	if dup.Code != http.StatusConflict {
		t.Fatalf("duplicate signup: status = %d, want 409", dup.Code)
	}
}

func TestRefreshEndpoint(t *testing.T) {
	r := newTestRouter(t)
	rec := doJSON(t, r, "POST", "/api/auth/login", "", map[string]string{
		"email":    "test@mail.com",
		"password": "test1234",
	})
	var resp struct {
		RefreshToken string `json:"refreshToken"`
	}
	decodeResponse(t, rec, &resp)

	ok := doJSON(t, r, "POST", "/api/auth/refresh", "", map[string]string{
		"refreshToken": resp.RefreshToken,
	})
	if ok.Code != http.StatusOK {
		t.Fatalf("refresh status = %d", ok.Code)
	}
	var pair struct {
		AccessToken string `json:"accessToken"`
	}
	decodeResponse(t, ok, &pair)
	if pair.AccessToken == "" {
		t.Fatal("refresh returned no access token")
	}

	bad := doJSON(t, r, "POST", "/api/auth/refresh", "", map[string]string{
		"refreshToken": "garbage",
	})
	if bad.Code != http.StatusUnauthorized {
		t.Fatalf("bad refresh: status = %d, want 401", bad.Code)
	}
}

func TestChangePasswordEndpoint(t *testing.T) {
	r := newTestRouter(t)
	token := login(t, r)

	wrong := doJSON(t, r, "PUT", "/api/users/password", token, map[string]string{
		"currentPassword": "nope",
		"newPassword":     "newpass1",
	})
	if wrong.Code != http.StatusUnauthorized {
		t.Fatalf("wrong current password: status = %d, want 401", wrong.Code)
	}

	ok := doJSON(t, r, "PUT", "/api/users/password", token, map[string]string{
		"currentPassword": "test1234",
		"newPassword":     "newpass1",
	})
	if ok.Code != http.StatusOK {
		t.Fatalf("change password: status = %d", ok.Code)
	}

	relogin := doJSON(t, r, "POST", "/api/auth/login", "", map[string]string{
		"email":    "test@mail.com",
		"password": "newpass1",
	})
	if relogin.Code != http.StatusOK {
		t.Fatalf("login with new password: status = %d", relogin.Code)
	}
}

func TestInvalidRequestBody(t *testing.T) {
	r := newTestRouter(t)
	token := login(t, r)

	req := httptest.NewRequest("POST", "/api/transactions/transfer", bytes.NewBufferString("{not json"))
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
