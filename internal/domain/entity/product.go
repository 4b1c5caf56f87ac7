package entity

import (
	"github.com/bivex/storekit-manager/internal/domain/valueobject"
)

// Product is a purchasable catalog entry returned by the platform
type Product struct {
	Identifier  string
	Title       string
	Description string
	Price       valueobject.Price
	Locale      string // BCP 47 tag the price is localized for
}

// LocalizedPrice formats the product price for its locale
func (p *Product) LocalizedPrice() string {
	return p.Price.Localized(p.Locale)
}
