package optimizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mmynk/cartsaver/internal/metrics"
	"github.com/mmynk/cartsaver/internal/models"
	"github.com/mmynk/cartsaver/internal/storage"
)

// ItemFailure records one item whose write-back failed.
type ItemFailure struct {
	ItemID string `json:"item_id"`
	Error  string `json:"error"`
}

// ApplyResult summarizes a plan write-back.
type ApplyResult struct {
	Applied  []string      `json:"applied"`
	Skipped  []string      `json:"skipped,omitempty"`
	Failed   []ItemFailure `json:"failed,omitempty"`
	Warnings []Warning     `json:"warnings,omitempty"`
}

// Applier writes an accepted plan back to the item store.
type Applier struct {
	items   storage.ItemStore
	metrics *metrics.Metrics
}

// NewApplier creates an Applier.
func NewApplier(items storage.ItemStore, m *metrics.Metrics) *Applier {
	return &Applier{items: items, metrics: m}
}

// Apply updates store, price, price_per_unit and brand of every non-locked
// plan item. Each item is written independently; a failure is recorded and the
// rest continue. When every attempted write fails, ErrApplyFailed is returned
// together with the result.
func (a *Applier) Apply(ctx context.Context, plan *models.OptimizationPlan) (*ApplyResult, error) {
	if plan == nil {
		return nil, fmt.Errorf("%w: no plan to apply", ErrInvalidInput)
	}

	result := &ApplyResult{Applied: []string{}}
	attempted := 0
	for _, group := range plan.Groups {
		for _, pi := range group.Items {
			if pi.Locked {
				result.Skipped = append(result.Skipped, pi.ItemID)
				continue
			}
			attempted++
			if err := a.applyItem(ctx, group.StoreName, pi); err != nil {
				slog.Warn("Failed to apply plan item", "item_id", pi.ItemID, "store", group.StoreName, "error", err)
				result.Failed = append(result.Failed, ItemFailure{ItemID: pi.ItemID, Error: err.Error()})
				continue
			}
			result.Applied = append(result.Applied, pi.ItemID)
		}
	}

	a.metrics.ObserveApply(len(result.Applied), len(result.Failed))

	if len(result.Failed) > 0 {
		result.Warnings = append(result.Warnings, WarnApplyPartialFailure)
	}
	if attempted > 0 && len(result.Applied) == 0 {
		return result, ErrApplyFailed
	}

	slog.Info("Plan applied", "applied", len(result.Applied), "skipped", len(result.Skipped), "failed", len(result.Failed))
	return result, nil
}

func (a *Applier) applyItem(ctx context.Context, store string, pi models.PlanItem) error {
	item, err := a.items.GetItem(ctx, pi.ItemID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("item %s: %w", pi.ItemID, err)
		}
		return fmt.Errorf("failed to load item: %w", err)
	}

	brand := pi.Brand
	if brand == "" {
		brand = item.Brand
	}

	update := models.ItemUpdate{
		Store:        store,
		Price:        pi.OptimizedPrice,
		PricePerUnit: pi.PricePerUnit,
		Brand:        brand,
	}
	if err := a.items.UpdateItem(ctx, pi.ItemID, update); err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	return nil
}
