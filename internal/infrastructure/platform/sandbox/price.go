package sandbox

import (
	"github.com/shopspring/decimal"

	"github.com/bivex/storekit-manager/internal/domain/valueobject"
)

func parsePrice(amount, currencyCode string) (valueobject.Price, error) {
	value, err := decimal.NewFromString(amount)
	if err != nil {
		return valueobject.Price{}, err
	}
	return valueobject.NewPrice(value, currencyCode)
}
