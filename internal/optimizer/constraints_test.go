package optimizer

import (
	"testing"

	"github.com/mmynk/cartsaver/internal/models"
)

func TestFilterConstraints(t *testing.T) {
	items := []models.ShoppingItem{
		{ID: "milk", Name: "Milk", Quantity: 1, Price: ptr(4.00), Store: "Safeway"},
		{ID: "coffee", Name: "Coffee", Quantity: 1, Price: ptr(12.00), Brand: "Folgers"},
		{ID: "beans", Name: "Beans", Quantity: 1, Price: ptr(1.50)},
		{ID: "rice", Name: "Rice", Quantity: 1, Price: ptr(3.00), Store: "QFC"},
		{ID: "salt", Name: "Salt", Quantity: 1},
	}
	constraints := map[string]models.ItemConstraint{
		"milk":   {StoreLocked: true, LockedStore: "Safeway"},
		"coffee": {BrandLocked: true},
		"rice":   {PriceLocked: true},
		"salt":   {BrandLocked: true},
	}

	acme := quote("coffee", "Aldi", 9.00, 8)
	acme.Brand = "Acme"
	folgers := quote("coffee", "Costco", 10.00, 8)
	folgers.Brand = "folgers"
	quotes := []models.PriceQuote{
		quote("milk", "Aldi", 2.00, 9),
		acme,
		folgers,
		quote("beans", "Aldi", 1.00, 7),
		quote("rice", "Aldi", 1.00, 7),
		quote("salt", "Aldi", 0.50, 7),
	}

	f := FilterConstraints(items, constraints, quotes)

	ids := func(items []models.ShoppingItem) []string {
		var out []string
		for _, item := range items {
			out = append(out, item.ID)
		}
		return out
	}
	if got := ids(f.Eligible); len(got) != 2 || got[0] != "coffee" || got[1] != "beans" {
		t.Errorf("eligible = %v, want [coffee beans]", got)
	}
	if got := ids(f.PassThrough); len(got) != 3 || got[0] != "milk" || got[1] != "rice" || got[2] != "salt" {
		t.Errorf("pass-through = %v, want [milk rice salt]", got)
	}

	if len(f.Quotes) != 2 {
		t.Fatalf("expected 2 surviving quotes, got %d: %+v", len(f.Quotes), f.Quotes)
	}
	if f.Quotes[0].Store != "Costco" || f.Quotes[1].ItemID != "beans" {
		t.Errorf("unexpected quotes: %+v", f.Quotes)
	}
}

func TestFilterConstraints_LockedBrandOverridesItemBrand(t *testing.T) {
	items := []models.ShoppingItem{{ID: "coffee", Name: "Coffee", Quantity: 1, Brand: "Folgers"}}
	constraints := map[string]models.ItemConstraint{"coffee": {BrandLocked: true, LockedBrand: "Acme"}}

	acme := quote("coffee", "Aldi", 9.00, 8)
	acme.Brand = "ACME"
	folgers := quote("coffee", "Costco", 8.00, 9)
	folgers.Brand = "Folgers"
	unbranded := quote("coffee", "QFC", 7.00, 9)

	f := FilterConstraints(items, constraints, []models.PriceQuote{acme, folgers, unbranded})
	if len(f.Quotes) != 1 || f.Quotes[0].Store != "Aldi" {
		t.Errorf("expected only the Acme quote, got %+v", f.Quotes)
	}
}
