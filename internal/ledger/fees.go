package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/mango0422/hwanbee-bank/internal/models"
)

// FeePolicy fixes the fee charged per operation kind. The ledger computes
// fees itself so the recorded fee can never diverge from the amount actually
// debited.
type FeePolicy struct {
	Transfer   decimal.Decimal
	Exchange   decimal.Decimal
	Withdrawal decimal.Decimal
}

// NoFees is the default policy: every operation is free of charge.
func NoFees() FeePolicy {
	return FeePolicy{}
}

// For returns the fee for the given transaction kind. Credits are never
// charged.
func (p FeePolicy) For(kind models.TransactionType) decimal.Decimal {
	switch kind {
	case models.TransactionTypeTransfer:
		return p.Transfer
	case models.TransactionTypeExchange:
		return p.Exchange
	case models.TransactionTypeWithdrawal:
		return p.Withdrawal
	}
	return decimal.Zero
}
