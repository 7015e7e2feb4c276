package optimizer

import (
	"strings"

	"github.com/mmynk/cartsaver/internal/models"
)

// Filtered is the outcome of applying item constraints to a run.
type Filtered struct {
	// Eligible items may be reassigned to another store.
	Eligible []models.ShoppingItem

	// PassThrough items keep their store, price and brand.
	PassThrough []models.ShoppingItem

	// Quotes holds only the quotes of eligible items that satisfy their
	// brand lock.
	Quotes []models.PriceQuote
}

// FilterConstraints splits items into eligible and pass-through sets and
// removes quotes that a lock rules out. constraints is keyed by item ID;
// items without an entry are unconstrained.
func FilterConstraints(items []models.ShoppingItem, constraints map[string]models.ItemConstraint, quotes []models.PriceQuote) Filtered {
	var f Filtered
	brands := make(map[string]string)
	eligible := make(map[string]bool, len(items))

	for _, item := range items {
		c := constraints[item.ID]
		switch {
		case c.Locked():
			f.PassThrough = append(f.PassThrough, item)
		case c.BrandLocked:
			brand := strings.TrimSpace(c.LockedBrand)
			if brand == "" {
				brand = strings.TrimSpace(item.Brand)
			}
			if brand == "" {
				f.PassThrough = append(f.PassThrough, item)
				continue
			}
			brands[item.ID] = brand
			eligible[item.ID] = true
			f.Eligible = append(f.Eligible, item)
		default:
			eligible[item.ID] = true
			f.Eligible = append(f.Eligible, item)
		}
	}

	f.Quotes = make([]models.PriceQuote, 0, len(quotes))
	for _, q := range quotes {
		if !eligible[q.ItemID] {
			continue
		}
		if want, ok := brands[q.ItemID]; ok && !strings.EqualFold(strings.TrimSpace(q.Brand), want) {
			continue
		}
		f.Quotes = append(f.Quotes, q)
	}
	return f
}
