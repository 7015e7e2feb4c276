// Package models defines the core domain models for cartsaver.
//
// # Item models
//
//   - ShoppingItem: a line on a shopping list, owned by the list service
//   - ItemUpdate: the pricing fields the engine is allowed to write back
//
// # Optimization models
//
//   - Location: where the shopper is, used to pick stores and regional prices
//   - ItemConstraint: per-item locks supplied for one optimization session
//   - StoreCandidate: a store proposed by the store oracle
//   - PriceQuote: a price estimate for one item at one store
//   - OptimizationPlan: store-grouped reassignments pending user acceptance
//   - OptimizationRun: persisted summary of a session
//
// # Design Principles
//
// 1. **Money is a float64 in a single currency unit**, rounded to cents at the
// edges by the calculator package.
// 2. **Optional numbers are pointers** (a recorded price of 0 is different from
// no recorded price); optional strings use the empty string.
// 3. **Relationships use ID strings**, never pointers between models.
// 4. **Constraints and quotes are transient** and never written to storage.
package models
