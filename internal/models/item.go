package models

// ShoppingItem represents a single line on a shopping list.
// Items are created and edited by the list service; the optimizer only reads
// them and, after a plan is accepted, rewrites their pricing fields.
type ShoppingItem struct {
	// ID is the unique identifier for the item (UUID format).
	ID string `json:"id" yaml:"id"`

	// ListID is the shopping list that owns this item.
	ListID string `json:"list_id,omitempty" yaml:"list_id,omitempty"`

	// Name is the product name as the shopper wrote it (e.g., "Whole milk").
	Name string `json:"name" yaml:"name"`

	// Quantity is how many units are wanted. Must be greater than zero.
	Quantity float64 `json:"quantity" yaml:"quantity"`

	// QuantityUnit is the unit for Quantity (e.g., "each", "lb", "gallon").
	QuantityUnit string `json:"quantity_unit,omitempty" yaml:"quantity_unit,omitempty"`

	// Category is the aisle-style grouping (e.g., "dairy", "produce").
	Category string `json:"category,omitempty" yaml:"category,omitempty"`

	// Brand is the preferred brand, empty when the shopper has no preference.
	Brand string `json:"brand,omitempty" yaml:"brand,omitempty"`

	// Price is the currently recorded price, nil when no price is known.
	// Whether it is a per-unit or a total price is decided by PricePerUnit.
	Price *float64 `json:"price,omitempty" yaml:"price,omitempty"`

	// PricePerUnit is true when Price must be multiplied by Quantity.
	PricePerUnit bool `json:"price_per_unit" yaml:"price_per_unit"`

	// Store is the store the item is currently planned to be bought at.
	Store string `json:"store,omitempty" yaml:"store,omitempty"`

	// IsPurchased marks items already bought. Purchased items are still
	// optimized if sent; filtering them is the caller's choice.
	IsPurchased bool `json:"is_purchased" yaml:"is_purchased"`

	// UpdatedAt is the Unix timestamp of the last write.
	UpdatedAt int64 `json:"updated_at,omitempty" yaml:"-"`
}

// HasPrice reports whether the item carries a recorded price.
func (i ShoppingItem) HasPrice() bool {
	return i.Price != nil
}

// ItemUpdate carries the fields the plan applier writes back for one item.
type ItemUpdate struct {
	Store        string
	Price        float64
	PricePerUnit bool
	Brand        string
}
