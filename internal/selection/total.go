package selection

import "github.com/noah-isme/toko-storefront/internal/pricing"

// PricingItems converts the entries into pricing lines.
func (s Set) PricingItems() []pricing.Item {
	entries := s.Entries()
	items := make([]pricing.Item, 0, len(entries))
	for _, e := range entries {
		items = append(items, pricing.Item{Qty: e.Quantity, UnitPrice: e.Price})
	}
	return items
}

// Total prices the selection against the catalog and product base price.
func Total(c Catalog, s Set, base pricing.Money) pricing.Money {
	return pricing.Total(c.HasOptions(), s.PricingItems(), base)
}
