package models

import "github.com/shopspring/decimal"

// ExchangeRate is one row of the reference rate table: how much home
// currency (KRW) buys 1 unit of the foreign currency.
type ExchangeRate struct {
	Currency string          `json:"currency"`
	Rate     decimal.Decimal `json:"rate"`
	Name     string          `json:"name"`
	Flag     string          `json:"flag"`
}
