package utils

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var accountNumberPattern = regexp.MustCompile(`^(\d{3})(\d{3})(\d{6})$`)

// GenerateAccountNumber generates a random external-facing account number in
// the bank's 3-3-6 digit format, e.g. "123-456-789012".
func GenerateAccountNumber() (string, error) {
	digits := make([]byte, 12)
	if _, err := rand.Read(digits); err != nil {
		return "", fmt.Errorf("failed to generate random digits: %w", err)
	}

	var builder strings.Builder
	for i, b := range digits {
		if i == 3 || i == 6 {
			builder.WriteByte('-')
		}
		builder.WriteByte(b%10 + '0') // Convert to ASCII digit
	}
	return builder.String(), nil
}

// FormatAccountNumber normalizes a raw digit string into the 3-3-6 display
// format. Input that does not consist of exactly 12 digits is returned as-is.
func FormatAccountNumber(accountNumber string) string {
	if accountNumber == "" {
		return ""
	}
	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, accountNumber)

	m := accountNumberPattern.FindStringSubmatch(cleaned)
	if m == nil {
		return accountNumber
	}
	return fmt.Sprintf("%s-%s-%s", m[1], m[2], m[3])
}

// FormatCurrency rounds an amount for display: KRW has no fractional digits,
// every other currency shows two. Stored amounts are never rounded.
func FormatCurrency(amount decimal.Decimal, currency string) string {
	if currency == "KRW" {
		return amount.StringFixed(0)
	}
	return amount.StringFixed(2)
}
