package valueobject

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	ErrInvalidAmount   = errors.New("amount must be non-negative")
	ErrInvalidCurrency = errors.New("invalid currency code")
)

// Price is the localized price of a catalog product
type Price struct {
	Amount   decimal.Decimal
	Currency string // ISO 4217 currency code (e.g., "USD", "EUR")
}

// NewPrice creates a new Price value object
func NewPrice(amount decimal.Decimal, currencyCode string) (Price, error) {
	if amount.IsNegative() {
		return Price{}, fmt.Errorf("%w: %s", ErrInvalidAmount, amount.String())
	}
	if !isValidCurrency(currencyCode) {
		return Price{}, fmt.Errorf("%w: %s", ErrInvalidCurrency, currencyCode)
	}
	return Price{
		Amount:   amount,
		Currency: currencyCode,
	}, nil
}

// MustPrice parses a decimal string and panics on invalid input. Intended for fixtures.
func MustPrice(amount, currencyCode string) Price {
	p, err := NewPrice(decimal.RequireFromString(amount), currencyCode)
	if err != nil {
		panic(err)
	}
	return p
}

// isValidCurrency checks if the currency code is valid (3 letters)
func isValidCurrency(currencyCode string) bool {
	if len(currencyCode) != 3 {
		return false
	}
	for _, c := range currencyCode {
		if !((c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')) {
			return false
		}
	}
	return true
}

// String returns a locale-independent representation of the price
func (p Price) String() string {
	return fmt.Sprintf("%s %s", p.Amount.StringFixed(2), p.Currency)
}

// IsZero returns true if the amount is zero
func (p Price) IsZero() bool {
	return p.Amount.IsZero()
}

// Localized formats the price with the currency symbol for the given BCP 47 locale.
// Unknown currencies or locales fall back to String.
func (p Price) Localized(locale string) string {
	unit, err := currency.ParseISO(p.Currency)
	if err != nil {
		return p.String()
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return p.String()
	}

	printer := message.NewPrinter(tag)
	return printer.Sprint(currency.Symbol(unit.Amount(p.Amount.InexactFloat64())))
}
