package util

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var maxAmount = decimal.NewFromInt(10000000)

// ParseAmount parses a decimal amount string and checks it is positive and
// below the sanity cap.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("amount must be positive, got %s", d)
	}
	if d.GreaterThanOrEqual(maxAmount) {
		return decimal.Zero, fmt.Errorf("amount too large, got %s", d)
	}
	return d, nil
}

// ValidateDate checks a date string is YYYY-MM-DD.
func ValidateDate(dateStr string) error {
	if dateStr == "" {
		return fmt.Errorf("date is empty")
	}
	_, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return fmt.Errorf("invalid date format: %w", err)
	}
	return nil
}

// ValidateCurrency checks a currency code is a 3-letter uppercase code.
func ValidateCurrency(code string) error {
	if len(code) != 3 {
		return fmt.Errorf("currency code must be 3 letters, got %q", code)
	}
	for _, ch := range code {
		if ch < 'A' || ch > 'Z' {
			return fmt.Errorf("currency code must be uppercase letters, got %q", code)
		}
	}
	return nil
}
