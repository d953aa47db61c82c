package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/mango0422/hwanbee-bank/internal/config"
	"github.com/mango0422/hwanbee-bank/internal/handler"
	"github.com/mango0422/hwanbee-bank/internal/integrations/exr"
	"github.com/mango0422/hwanbee-bank/internal/ledger"
	"github.com/mango0422/hwanbee-bank/internal/middleware"
	"github.com/mango0422/hwanbee-bank/internal/rates"
	"github.com/mango0422/hwanbee-bank/internal/service"
	"github.com/mango0422/hwanbee-bank/internal/storage"
	"github.com/mango0422/hwanbee-bank/internal/utils/email"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Initialize storage backend
	store, err := newStore(cfg)
	if err != nil {
		logger.Fatalf("Failed to init storage: %v", err)
	}

	// Load reference rates
	table, err := newRateTable(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to load rates: %v", err)
	}

	// Schedule rate feed refresh when a feed URL is configured
	if cfg.RatesFeedURL != "" {
		feed := exr.NewClient(cfg.RatesFeedURL, logger)
		refresh := func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			rs, err := feed.FetchRates(ctx)
			if err != nil {
				logger.Errorf("Rate feed refresh failed: %v", err)
				return
			}
			table.Replace(rs)
			logger.Infof("Refreshed %d exchange rates from feed", len(rs))
		}
		refresh()

		c := cron.New()
		if _, err := c.AddFunc(cfg.RatesRefreshSpec, refresh); err != nil {
			logger.Fatalf("Invalid RATES_REFRESH_SPEC: %v", err)
		}
		c.Start()
		defer c.Stop()
	}

	// Initialize layers
	fees, err := newFeePolicy(cfg)
	if err != nil {
		logger.Fatalf("Invalid fee configuration: %v", err)
	}
	ldg, err := ledger.New(store, table, fees, logger)
	if err != nil {
		logger.Fatalf("Failed to init ledger: %v", err)
	}
	svc, err := service.NewService(store, logger, cfg)
	if err != nil {
		logger.Fatalf("Failed to init service: %v", err)
	}
	mail := email.NewSender(cfg, logger)
	h := handler.NewHandler(svc, ldg, table, mail, logger)

	// Setup router
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	// Public routes
	api.HandleFunc("/auth/signup", h.Signup).Methods("POST")
	api.HandleFunc("/auth/login", h.Login).Methods("POST")
	api.HandleFunc("/auth/refresh", h.Refresh).Methods("POST")
	api.HandleFunc("/auth/logout", h.Logout).Methods("POST")
	api.HandleFunc("/exchange/rates", h.GetRates).Methods("GET")

	// Protected routes
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

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
}

func newStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.StoreDriver {
	case "file":
		return storage.NewFileStore(cfg.StorePath)
	case "redis":
		return storage.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	case "postgres":
		return storage.NewPostgresStore(cfg.DBConn)
	default:
		return storage.NewMemoryStore(), nil
	}
}

func newRateTable(cfg *config.Config, logger *logrus.Logger) (*rates.Table, error) {
	if cfg.RatesFile == "" {
		return rates.NewTable(rates.Defaults()), nil
	}
	rs, err := rates.LoadFile(cfg.RatesFile)
	if err != nil {
		return nil, err
	}
	logger.Infof("Loaded %d exchange rates from %s", len(rs), cfg.RatesFile)
	return rates.NewTable(rs), nil
}

func newFeePolicy(cfg *config.Config) (ledger.FeePolicy, error) {
	transfer, err := decimal.NewFromString(cfg.TransferFee)
	if err != nil {
		return ledger.FeePolicy{}, fmt.Errorf("invalid TRANSFER_FEE: %w", err)
	}
	exchange, err := decimal.NewFromString(cfg.ExchangeFee)
	if err != nil {
		return ledger.FeePolicy{}, fmt.Errorf("invalid EXCHANGE_FEE: %w", err)
	}
	withdrawal, err := decimal.NewFromString(cfg.WithdrawalFee)
	if err != nil {
		return ledger.FeePolicy{}, fmt.Errorf("invalid WITHDRAWAL_FEE: %w", err)
	}
	return ledger.FeePolicy{Transfer: transfer, Exchange: exchange, Withdrawal: withdrawal}, nil
}
