package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType categorizes a ledger transaction.
type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal TransactionType = "WITHDRAWAL"
	TransactionTypeTransfer   TransactionType = "TRANSFER"
	TransactionTypeExchange   TransactionType = "EXCHANGE"
)

// TransactionStatus represents the settlement state of a transaction.
// All operations currently settle synchronously, so the ledger only ever
// writes COMPLETED; PENDING and FAILED anticipate an asynchronous path.
type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

// Transaction is a single ledger entry. A negative amount is a debit, a
// positive amount a credit. Once written with status COMPLETED, the amount
// and account ID are immutable; entries are the sole legitimate cause of a
// balance change.
//
// Kind-specific data lives in the Transfer/Exchange payloads rather than in
// flat optional fields; at most one payload is set, matching Type.
type Transaction struct {
	ID          string            `json:"id"`
	AccountID   string            `json:"accountId"`
	Amount      decimal.Decimal   `json:"amount"`
	Type        TransactionType   `json:"type"`
	Description string            `json:"description"`
	Status      TransactionStatus `json:"status"`
	Fee         decimal.Decimal   `json:"fee"`
	Date        time.Time         `json:"date"`

	Transfer *TransferDetails `json:"transfer,omitempty"`
	Exchange *ExchangeDetails `json:"exchange,omitempty"`
}

// TransferDetails carries counterparty information for TRANSFER entries
// and, for incoming DEPOSIT entries, the sender.
type TransferDetails struct {
	RecipientName    string `json:"recipientName,omitempty"`
	RecipientAccount string `json:"recipientAccount,omitempty"`
	SenderName       string `json:"senderName,omitempty"`
	SenderAccount    string `json:"senderAccount,omitempty"`
}

// ExchangeDetails carries conversion data for EXCHANGE entries. Rate is the
// amount of home currency per 1 unit of the foreign currency; ExchangedAmount
// is stored unrounded, display formatting rounds.
type ExchangeDetails struct {
	ToCurrency      string          `json:"toCurrency"`
	Rate            decimal.Decimal `json:"rate"`
	ExchangedAmount decimal.Decimal `json:"exchangedAmount"`
}
