package models

// Location is a point on the map in decimal degrees.
type Location struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// Valid reports whether the coordinates are within range.
func (l Location) Valid() bool {
	return l.Latitude >= -90 && l.Latitude <= 90 &&
		l.Longitude >= -180 && l.Longitude <= 180
}

// ItemConstraint holds the user's locks for one item during one session.
// Constraints are discarded when the session ends and are never persisted.
type ItemConstraint struct {
	// PriceLocked keeps the item's current price; the item is not reassigned.
	PriceLocked bool `json:"price_locked" yaml:"price_locked"`

	// StoreLocked keeps the item's current store; the item is not reassigned.
	StoreLocked bool `json:"store_locked" yaml:"store_locked"`

	// BrandLocked restricts quotes to LockedBrand, or to the item's own brand
	// when LockedBrand is empty.
	BrandLocked bool `json:"brand_locked" yaml:"brand_locked"`

	// LockedStore records the store the user pinned. Informational; the item's
	// own Store is what passes through.
	LockedStore string `json:"locked_store,omitempty" yaml:"locked_store,omitempty"`

	// LockedBrand is the brand quotes must match.
	LockedBrand string `json:"locked_brand,omitempty" yaml:"locked_brand,omitempty"`

	// MaxPrice caps the total cost of an accepted quote.
	MaxPrice *float64 `json:"max_price,omitempty" yaml:"max_price,omitempty"`
}

// Locked reports whether the item must keep its store and price.
func (c ItemConstraint) Locked() bool {
	return c.PriceLocked || c.StoreLocked
}

// StoreCandidate is a store proposed by the store oracle.
type StoreCandidate struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`

	// Type is the kind of store (e.g., "supermarket", "discount", "warehouse").
	Type string `json:"type"`

	// Likelihood is how likely the store carries the list, from 1 to 10.
	Likelihood int `json:"likelihood"`

	// Distance is a free-text travel estimate from the shopper (e.g., "1.2 mi").
	Distance string `json:"distance,omitempty"`
}

// Availability is the price oracle's stock estimate for an item at a store.
type Availability string

const (
	AvailabilityAvailable       Availability = "available"
	AvailabilityLikelyAvailable Availability = "likely_available"
	AvailabilityUncertain       Availability = "uncertain"
	AvailabilityUnavailable     Availability = "unavailable"
)

// Acceptable reports whether a quote with this availability may be selected.
func (a Availability) Acceptable() bool {
	return a == AvailabilityAvailable || a == AvailabilityLikelyAvailable
}

// PriceQuote is one price estimate for one item at one store.
// Quotes only live for the duration of a single optimization run.
type PriceQuote struct {
	ItemID       string       `json:"item_id"`
	Store        string       `json:"store"`
	Price        float64      `json:"price"`
	PricePerUnit bool         `json:"price_per_unit"`
	Availability Availability `json:"availability"`

	// Confidence is the oracle's confidence in the estimate, from 1 to 10.
	Confidence int    `json:"confidence"`
	Brand      string `json:"brand,omitempty"`
}

// PlanItem is one item reassignment inside a store group.
type PlanItem struct {
	ItemID string `json:"item_id"`

	// OriginalPrice is the item's recorded price before optimization, if any.
	OriginalPrice        *float64 `json:"original_price,omitempty"`
	OriginalPricePerUnit bool     `json:"original_price_per_unit"`

	OptimizedPrice float64 `json:"optimized_price"`
	PricePerUnit   bool    `json:"price_per_unit"`

	// Savings is original total cost minus optimized total cost, in cents
	// precision. Zero for items without an original price and for locked items.
	Savings    float64 `json:"savings"`
	Confidence int     `json:"confidence"`
	Brand      string  `json:"brand,omitempty"`

	// Locked marks items that pass through unchanged because of a constraint.
	Locked bool `json:"locked,omitempty"`
}

// StoreGroup is the set of items the plan assigns to one store.
type StoreGroup struct {
	StoreName    string     `json:"store_name"`
	StoreAddress string     `json:"store_address,omitempty"`
	Items        []PlanItem `json:"items"`

	// TotalSavings always equals the sum of Items[].Savings.
	TotalSavings float64 `json:"total_savings"`

	// TravelDistance is a free-text estimate; no routing is performed.
	TravelDistance string `json:"travel_distance,omitempty"`
}

// OptimizationPlan is the store-grouped proposal returned to the user.
type OptimizationPlan struct {
	Groups []StoreGroup `json:"optimized_groups"`

	// TotalPotentialSavings always equals the sum of Groups[].TotalSavings.
	TotalPotentialSavings float64 `json:"total_potential_savings"`
}

// ItemCount returns the number of plan items across all groups.
func (p *OptimizationPlan) ItemCount() int {
	if p == nil {
		return 0
	}
	n := 0
	for _, g := range p.Groups {
		n += len(g.Items)
	}
	return n
}
