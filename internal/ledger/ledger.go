// Package ledger owns the account and transaction collections and the rules
// governing their mutation. Every balance change goes through Apply, which
// updates the balance and appends the transaction record as one step, so the
// invariant "balance equals the sum of applied transaction amounts, net of
// fees" holds after any sequence of operations.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/mango0422/hwanbee-bank/internal/models"
	"github.com/mango0422/hwanbee-bank/internal/rates"
	"github.com/mango0422/hwanbee-bank/internal/storage"
	"github.com/mango0422/hwanbee-bank/internal/utils"
)

// Details carries the kind-specific metadata for a ledger operation.
type Details struct {
	Description string
	Transfer    *models.TransferDetails
	Exchange    *models.ExchangeDetails
}

// Ledger is the sole writer of the account and transaction collections.
// State is held in memory and written through the injected store on every
// mutation.
type Ledger struct {
	log   *logrus.Logger
	store storage.Store
	rates *rates.Table
	fees  FeePolicy

	mu           sync.RWMutex
	accounts     map[string]*models.Account
	order        []string // account IDs in insertion order
	transactions []*models.Transaction

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex

	persistMu sync.Mutex
}

// New loads ledger state from the store. A store with no "accounts" key is
// treated as a fresh installation and seeded with the demo dataset.
func New(store storage.Store, table *rates.Table, fees FeePolicy, log *logrus.Logger) (*Ledger, error) {
	l := &Ledger{
		log:      log,
		store:    store,
		rates:    table,
		fees:     fees,
		accounts: make(map[string]*models.Account),
		locks:    make(map[string]*sync.Mutex),
	}
	if err := l.load(context.Background()); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Ledger) load(ctx context.Context) error {
	data, err := l.store.Load(ctx, storage.KeyAccounts)
	if err == storage.ErrKeyNotFound {
		l.seed()
		if err := l.persist(ctx); err != nil {
			return fmt.Errorf("failed to persist seed data: %w", err)
		}
		l.log.Infof("Seeded demo ledger with %d accounts", len(l.order))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load accounts: %w", err)
	}

	var accounts []*models.Account
	if err := json.Unmarshal(data, &accounts); err != nil {
		return fmt.Errorf("failed to decode accounts: %w", err)
	}
	for _, a := range accounts {
		l.accounts[a.ID] = a
		l.order = append(l.order, a.ID)
	}

	txData, err := l.store.Load(ctx, storage.KeyTransactions)
	if err != nil && err != storage.ErrKeyNotFound {
		return fmt.Errorf("failed to load transactions: %w", err)
	}
	if err == nil {
		if err := json.Unmarshal(txData, &l.transactions); err != nil {
			return fmt.Errorf("failed to decode transactions: %w", err)
		}
	}

	l.log.Infof("Loaded %d accounts and %d transactions", len(l.order), len(l.transactions))
	return nil
}

// GetAccount returns a snapshot of the account, or ErrNotFound.
func (l *Ledger) GetAccount(id string) (*models.Account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

// ListAccounts returns snapshots of all accounts in creation order.
func (l *Ledger) ListAccounts() []*models.Account {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*models.Account, 0, len(l.order))
	for _, id := range l.order {
		cp := *l.accounts[id]
		out = append(out, &cp)
	}
	return out
}

// GetTransaction returns a snapshot of a transaction by ID, or ErrNotFound.
func (l *Ledger) GetTransaction(id string) (*models.Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, t := range l.transactions {
		if t.ID == id {
			return cloneTransaction(t), nil
		}
	}
	return nil, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
}

// ListTransactions returns the account's history, newest first. Entries with
// equal timestamps keep their insertion order.
func (l *Ledger) ListTransactions(accountID string) []*models.Transaction {
	l.mu.RLock()
	out := make([]*models.Transaction, 0)
	for _, t := range l.transactions {
		if t.AccountID == accountID {
			out = append(out, cloneTransaction(t))
		}
	}
	l.mu.RUnlock()
	sortNewestFirst(out)
	return out
}

// ListAllTransactions returns every transaction, newest first.
func (l *Ledger) ListAllTransactions() []*models.Transaction {
	l.mu.RLock()
	out := make([]*models.Transaction, 0, len(l.transactions))
	for _, t := range l.transactions {
		out = append(out, cloneTransaction(t))
	}
	l.mu.RUnlock()
	sortNewestFirst(out)
	return out
}

// CreateAccount opens a new account. An opening balance greater than zero is
// recorded as a DEPOSIT transaction written together with the account, so the
// balance invariant holds from the first entry.
func (l *Ledger) CreateAccount(ctx context.Context, name string, kind models.AccountType, currency string, initialBalance decimal.Decimal) (*models.Account, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: account name is required", ErrValidation)
	}
	if !models.ValidAccountType(kind) {
		return nil, fmt.Errorf("%w: unknown account type %q", ErrValidation, kind)
	}
	if currency == "" {
		return nil, fmt.Errorf("%w: currency is required", ErrValidation)
	}
	if initialBalance.IsNegative() {
		return nil, fmt.Errorf("%w: initial balance must not be negative", ErrValidation)
	}

	number, err := utils.GenerateAccountNumber()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	account := &models.Account{
		ID:            uuid.NewString(),
		AccountNumber: number,
		AccountName:   name,
		Balance:       initialBalance,
		Currency:      currency,
		Type:          kind,
		CreatedAt:     now,
	}

	var opening *models.Transaction
	if initialBalance.IsPositive() {
		opening = &models.Transaction{
			ID:          uuid.NewString(),
			AccountID:   account.ID,
			Amount:      initialBalance,
			Type:        models.TransactionTypeDeposit,
			Description: "계좌 개설 입금",
			Status:      models.TransactionStatusCompleted,
			Date:        now,
		}
	}

	l.mu.Lock()
	l.accounts[account.ID] = account
	l.order = append(l.order, account.ID)
	if opening != nil {
		l.transactions = append(l.transactions, opening)
	}
	l.mu.Unlock()

	if err := l.persist(ctx); err != nil {
		l.mu.Lock()
		delete(l.accounts, account.ID)
		for i := len(l.order) - 1; i >= 0; i-- {
			if l.order[i] == account.ID {
				l.order = append(l.order[:i], l.order[i+1:]...)
				break
			}
		}
		if opening != nil {
			l.removeTransactionLocked(opening.ID)
		}
		l.mu.Unlock()
		return nil, err
	}

	l.log.Infof("Account created: %s (%s)", account.ID, account.AccountNumber)
	cp := *account
	return &cp, nil
}

// Apply is the single mutation entry point. It charges the policy fee for
// the operation kind, verifies that a debit leaves the balance non-negative,
// then updates the balance and appends a COMPLETED transaction as one step.
// Callers never observe one effect without the other.
func (l *Ledger) Apply(ctx context.Context, accountID string, amount decimal.Decimal, kind models.TransactionType, details Details) (*models.Transaction, error) {
	unlock := l.lockAccount(accountID)
	defer unlock()

	fee := l.fees.For(kind)
	delta := amount.Sub(fee)

	l.mu.Lock()
	account, ok := l.accounts[accountID]
	if !ok {
		l.mu.Unlock()
		return nil, fmt.Errorf("account %s: %w", accountID, ErrNotFound)
	}

	newBalance := account.Balance.Add(delta)
	if delta.IsNegative() && newBalance.IsNegative() {
		l.mu.Unlock()
		return nil, fmt.Errorf("account %s: %w", accountID, ErrInsufficientFunds)
	}

	tx := &models.Transaction{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		Amount:      amount,
		Type:        kind,
		Description: details.Description,
		Status:      models.TransactionStatusCompleted,
		Fee:         fee,
		Date:        time.Now().UTC(),
		Transfer:    details.Transfer,
		Exchange:    details.Exchange,
	}
	previous := account.Balance
	account.Balance = newBalance
	l.transactions = append(l.transactions, tx)
	l.mu.Unlock()

	if err := l.persist(ctx); err != nil {
		// The write did not commit; undo both effects. The account lock is
		// still held, so no other mutation of this account can interleave.
		l.mu.Lock()
		account.Balance = previous
		l.removeTransactionLocked(tx.ID)
		l.mu.Unlock()
		return nil, err
	}

	l.log.WithFields(logrus.Fields{
		"account": accountID,
		"type":    kind,
		"amount":  amount.String(),
	}).Info("Ledger operation applied")
	return cloneTransaction(tx), nil
}

// Transfer debits the source account in favor of an external account number.
func (l *Ledger) Transfer(ctx context.Context, fromAccountID, toAccountNumber, recipientName string, amount decimal.Decimal, description string) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: transfer amount must be positive", ErrValidation)
	}
	if toAccountNumber == "" {
		return nil, fmt.Errorf("%w: recipient account number is required", ErrValidation)
	}
	if description == "" {
		if recipientName != "" {
			description = fmt.Sprintf("%s님에게 송금", recipientName)
		} else {
			description = "송금"
		}
	}

	return l.Apply(ctx, fromAccountID, amount.Neg(), models.TransactionTypeTransfer, Details{
		Description: description,
		Transfer: &models.TransferDetails{
			RecipientName:    recipientName,
			RecipientAccount: utils.FormatAccountNumber(toAccountNumber),
		},
	})
}

// Exchange converts part of the account balance into a foreign currency at
// the current reference rate. The exchanged amount is stored unrounded.
func (l *Ledger) Exchange(ctx context.Context, fromAccountID, toCurrency string, amount decimal.Decimal) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: exchange amount must be positive", ErrValidation)
	}
	rate, ok := l.rates.Lookup(toCurrency)
	if !ok {
		return nil, fmt.Errorf("%q: %w", toCurrency, ErrUnknownCurrency)
	}
	account, err := l.GetAccount(fromAccountID)
	if err != nil {
		return nil, err
	}

	exchanged := amount.Div(rate.Rate)
	description := fmt.Sprintf("%s %s를 %s로 환전", amount.String(), account.Currency, toCurrency)

	return l.Apply(ctx, fromAccountID, amount.Neg(), models.TransactionTypeExchange, Details{
		Description: description,
		Exchange: &models.ExchangeDetails{
			ToCurrency:      toCurrency,
			Rate:            rate.Rate,
			ExchangedAmount: exchanged,
		},
	})
}

// Deposit credits the account.
func (l *Ledger) Deposit(ctx context.Context, accountID string, amount decimal.Decimal, description string) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: deposit amount must be positive", ErrValidation)
	}
	if description == "" {
		description = "입금"
	}
	return l.Apply(ctx, accountID, amount, models.TransactionTypeDeposit, Details{Description: description})
}

// Withdraw debits the account.
func (l *Ledger) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal, description string) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: withdrawal amount must be positive", ErrValidation)
	}
	if description == "" {
		description = "출금"
	}
	return l.Apply(ctx, accountID, amount.Neg(), models.TransactionTypeWithdrawal, Details{Description: description})
}

// lockAccount acquires the per-account mutex, creating it on first use.
// Two concurrent debits against the same account would otherwise both pass
// the sufficient-funds check before either commits.
func (l *Ledger) lockAccount(id string) func() {
	l.lockMu.Lock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.lockMu.Unlock()
	m.Lock()
	return m.Unlock
}

// persist writes both collections through the store. Writers are serialized
// so a later snapshot can never be overwritten by an earlier one.
func (l *Ledger) persist(ctx context.Context) error {
	l.persistMu.Lock()
	defer l.persistMu.Unlock()

	l.mu.RLock()
	accounts := make([]*models.Account, 0, len(l.order))
	for _, id := range l.order {
		accounts = append(accounts, l.accounts[id])
	}
	accData, err := json.Marshal(accounts)
	if err != nil {
		l.mu.RUnlock()
		return fmt.Errorf("failed to encode accounts: %w", err)
	}
	txData, err := json.Marshal(l.transactions)
	if err != nil {
		l.mu.RUnlock()
		return fmt.Errorf("failed to encode transactions: %w", err)
	}
	l.mu.RUnlock()

	if err := l.store.Save(ctx, storage.KeyAccounts, accData); err != nil {
		return fmt.Errorf("failed to save accounts: %w", err)
	}
	if err := l.store.Save(ctx, storage.KeyTransactions, txData); err != nil {
		return fmt.Errorf("failed to save transactions: %w", err)
	}
	return nil
}

// removeTransactionLocked drops the entry with the given ID. Callers hold mu.
func (l *Ledger) removeTransactionLocked(id string) {
	for i := len(l.transactions) - 1; i >= 0; i-- {
		if l.transactions[i].ID == id {
			l.transactions = append(l.transactions[:i], l.transactions[i+1:]...)
			return
		}
	}
}

func sortNewestFirst(txs []*models.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Date.After(txs[j].Date)
	})
}

func cloneTransaction(t *models.Transaction) *models.Transaction {
	cp := *t
	if t.Transfer != nil {
		d := *t.Transfer
		cp.Transfer = &d
	}
	if t.Exchange != nil {
		d := *t.Exchange
		cp.Exchange = &d
	}
	return &cp
}
