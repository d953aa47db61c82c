package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mango0422/hwanbee-bank/internal/models"
)

// seed fills an empty store with the demo dataset. Note that the sample
// balances predate their recorded history, so the sum invariant only binds
// operations applied from here on.
func (l *Ledger) seed() {
	accounts := []*models.Account{
		{
			ID:            "1",
			AccountNumber: "123-456-789012",
			AccountName:   "일반 입출금 계좌",
			Balance:       decimal.NewFromInt(1250000),
			Currency:      "KRW",
			Type:          models.AccountTypeChecking,
			CreatedAt:     seedTime("2023-01-15T09:30:00Z"),
		},
		{
			ID:            "2",
			AccountNumber: "123-456-789013",
			AccountName:   "적금 계좌",
			Balance:       decimal.NewFromInt(5000000),
			Currency:      "KRW",
			Type:          models.AccountTypeSavings,
			CreatedAt:     seedTime("2023-02-20T14:15:00Z"),
		},
	}

	transactions := []*models.Transaction{
		{
			ID:          "1",
			AccountID:   "1",
			Amount:      decimal.NewFromInt(500000),
			Type:        models.TransactionTypeDeposit,
			Description: "월급",
			Status:      models.TransactionStatusCompleted,
			Date:        seedTime("2023-05-25T09:00:00Z"),
		},
		{
			ID:          "2",
			AccountID:   "1",
			Amount:      decimal.NewFromInt(-50000),
			Type:        models.TransactionTypeWithdrawal,
			Description: "ATM 출금",
			Status:      models.TransactionStatusCompleted,
			Date:        seedTime("2023-05-26T15:30:00Z"),
		},
		{
			ID:          "3",
			AccountID:   "1",
			Amount:      decimal.NewFromInt(-120000),
			Type:        models.TransactionTypeTransfer,
			Description: "친구에게 송금",
			Status:      models.TransactionStatusCompleted,
			Date:        seedTime("2023-05-27T11:45:00Z"),
			Transfer: &models.TransferDetails{
				RecipientName:    "홍길동",
				RecipientAccount: "987-654-321098",
			},
		},
		{
			ID:          "4",
			AccountID:   "2",
			Amount:      decimal.NewFromInt(100000),
			Type:        models.TransactionTypeDeposit,
			Description: "적금 입금",
			Status:      models.TransactionStatusCompleted,
			Date:        seedTime("2023-05-20T10:15:00Z"),
		},
	}

	for _, a := range accounts {
		l.accounts[a.ID] = a
		l.order = append(l.order, a.ID)
	}
	l.transactions = transactions
}

func seedTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}
