package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType categorizes an account.
type AccountType string

const (
	AccountTypeChecking AccountType = "CHECKING"
	AccountTypeSavings  AccountType = "SAVINGS"
	AccountTypeDeposit  AccountType = "DEPOSIT"
)

// ValidAccountType reports whether t is one of the known account types.
func ValidAccountType(t AccountType) bool {
	switch t {
	case AccountTypeChecking, AccountTypeSavings, AccountTypeDeposit:
		return true
	}
	return false
}

// Account represents a bank account
type Account struct {
	ID            string          `json:"id"`
	AccountNumber string          `json:"accountNumber"`
	AccountName   string          `json:"accountName"`
	Balance       decimal.Decimal `json:"balance"`
	Currency      string          `json:"currency"`
	Type          AccountType     `json:"type"`
	CreatedAt     time.Time       `json:"createdAt"`
}
