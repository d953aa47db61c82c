// Package rates holds the reference exchange-rate table: how much KRW buys
// 1 unit of each supported foreign currency. The table is loaded once at
// startup and is read-only for a session unless a rate feed replaces it.
package rates

import (
	"fmt"
	"os"
	"sync"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/mango0422/hwanbee-bank/internal/models"
)

// Table is a concurrency-safe view over the current rate list.
type Table struct {
	mu    sync.RWMutex
	rates []models.ExchangeRate
}

// NewTable creates a table over the given rates.
func NewTable(rates []models.ExchangeRate) *Table {
	t := &Table{}
	t.Replace(rates)
	return t
}

// All returns a copy of the current rate list, preserving order.
func (t *Table) All() []models.ExchangeRate {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]models.ExchangeRate, len(t.rates))
	copy(out, t.rates)
	return out
}

// Lookup returns the rate entry for a currency code.
func (t *Table) Lookup(currency string) (models.ExchangeRate, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, r := range t.rates {
		if r.Currency == currency {
			return r, true
		}
	}
	return models.ExchangeRate{}, false
}

// Replace swaps in a new rate list, e.g. after a feed refresh.
func (t *Table) Replace(rates []models.ExchangeRate) {
	cp := make([]models.ExchangeRate, len(rates))
	copy(cp, rates)
	t.mu.Lock()
	t.rates = cp
	t.mu.Unlock()
}

// rateFile is the YAML shape of a rate table file.
type rateFile struct {
	Rates []struct {
		Currency string `yaml:"currency"`
		Rate     string `yaml:"rate"`
		Name     string `yaml:"name"`
		Flag     string `yaml:"flag"`
	} `yaml:"rates"`
}

// LoadFile reads a rate table from a YAML file.
func LoadFile(path string) ([]models.ExchangeRate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rates file: %w", err)
	}
	var rf rateFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("failed to parse rates file: %w", err)
	}
	if len(rf.Rates) == 0 {
		return nil, fmt.Errorf("rates file %s contains no rates", path)
	}

	out := make([]models.ExchangeRate, 0, len(rf.Rates))
	for _, r := range rf.Rates {
		rate, err := decimal.NewFromString(r.Rate)
		if err != nil {
			return nil, fmt.Errorf("invalid rate for %s: %w", r.Currency, err)
		}
		if r.Currency == "" || !rate.IsPositive() {
			return nil, fmt.Errorf("invalid rate entry %q", r.Currency)
		}
		out = append(out, models.ExchangeRate{
			Currency: r.Currency,
			Rate:     rate,
			Name:     r.Name,
			Flag:     r.Flag,
		})
	}
	return out, nil
}

// Defaults returns the built-in rate table used when no file or feed is
// configured.
func Defaults() []models.ExchangeRate {
	return []models.ExchangeRate{
		{Currency: "USD", Rate: decimal.RequireFromString("1350.45"), Name: "미국 달러", Flag: "🇺🇸"},
		{Currency: "EUR", Rate: decimal.RequireFromString("1450.32"), Name: "유로", Flag: "🇪🇺"},
		{Currency: "JPY", Rate: decimal.RequireFromString("9.12"), Name: "일본 엔", Flag: "🇯🇵"},
		{Currency: "CNY", Rate: decimal.RequireFromString("186.75"), Name: "중국 위안", Flag: "🇨🇳"},
		{Currency: "GBP", Rate: decimal.RequireFromString("1720.5"), Name: "영국 파운드", Flag: "🇬🇧"},
	}
}
