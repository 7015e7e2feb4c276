package optimizer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmynk/cartsaver/internal/metrics"
	"github.com/mmynk/cartsaver/internal/models"
)

// Request is one optimization run's input.
type Request struct {
	Items    []models.ShoppingItem
	Location *models.Location

	// Constraints is keyed by item ID.
	Constraints map[string]models.ItemConstraint
}

// Result is the outcome of one run.
type Result struct {
	Outcome Outcome

	// Plan is nil unless Outcome is OutcomePlan.
	Plan *models.OptimizationPlan

	// TotalPotentialSavings is reported for non-viable plans too.
	TotalPotentialSavings float64

	CandidateStores  []models.StoreCandidate
	FailedStores     int
	QuotesConsidered int
	Warnings         []Warning
	Duration         time.Duration
}

// Engine runs the whole pipeline: select, research, filter, aggregate.
type Engine struct {
	selector   *Selector
	researcher *Researcher
	aggregator *Aggregator
	metrics    *metrics.Metrics
}

// NewEngine wires the pipeline stages around the two oracles.
func NewEngine(stores StoreOracle, prices PriceOracle, opts Options, m *metrics.Metrics) *Engine {
	return &Engine{
		selector:   NewSelector(stores, opts.MaxCandidates, m),
		researcher: NewResearcher(prices, opts.StoreTimeout, opts.Thresholds.UncertainPenalty, m),
		aggregator: NewAggregator(opts.Thresholds),
		metrics:    m,
	}
}

// Optimize runs one optimization. Oracle failures never surface as errors:
// they become warnings and, at worst, OutcomeNoViablePlan. Errors are
// returned for invalid input and for a cancelled context.
func (e *Engine) Optimize(ctx context.Context, req Request) (*Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	start := time.Now()
	loc := *req.Location
	result := &Result{Outcome: OutcomeNoViablePlan}

	stores, err := e.selector.SelectStores(ctx, req.Items, loc)
	if err != nil {
		result.Warnings = append(result.Warnings, WarnStoreDiscoveryFailed)
	}
	result.CandidateStores = stores

	var research Research
	if len(stores) > 0 {
		research = e.researcher.Research(ctx, stores, req.Items, loc)
		result.FailedStores = research.Failed
		if research.Failed > 0 {
			result.Warnings = append(result.Warnings, WarnPriceResearchPartialFailure)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("optimization cancelled: %w", err)
	}

	filtered := FilterConstraints(req.Items, req.Constraints, research.Quotes())
	result.QuotesConsidered = len(filtered.Quotes)

	agg := e.aggregator.Aggregate(filtered, stores, req.Constraints)
	result.TotalPotentialSavings = agg.Plan.TotalPotentialSavings
	if agg.Viable {
		plan := agg.Plan
		result.Outcome = OutcomePlan
		result.Plan = &plan
	}
	result.Duration = time.Since(start)

	e.metrics.ObserveRun(string(result.Outcome), result.TotalPotentialSavings, agg.Viable)
	slog.Info("Optimization finished",
		"outcome", result.Outcome,
		"items_count", len(req.Items),
		"stores", len(stores),
		"failed_stores", result.FailedStores,
		"total_potential_savings", result.TotalPotentialSavings,
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

func validate(req Request) error {
	if len(req.Items) == 0 {
		return fmt.Errorf("%w: items list is empty", ErrInvalidInput)
	}
	if req.Location == nil {
		return fmt.Errorf("%w: location is required", ErrInvalidInput)
	}
	if !req.Location.Valid() {
		return fmt.Errorf("%w: location out of range", ErrInvalidInput)
	}

	seen := make(map[string]bool, len(req.Items))
	for i, item := range req.Items {
		if item.ID == "" {
			return fmt.Errorf("%w: item %d has no id", ErrInvalidInput, i)
		}
		if seen[item.ID] {
			return fmt.Errorf("%w: duplicate item id %s", ErrInvalidInput, item.ID)
		}
		seen[item.ID] = true
		if item.Name == "" {
			return fmt.Errorf("%w: item %s has no name", ErrInvalidInput, item.ID)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item %s quantity must be positive", ErrInvalidInput, item.ID)
		}
		if item.Price != nil && *item.Price < 0 {
			return fmt.Errorf("%w: item %s price cannot be negative", ErrInvalidInput, item.ID)
		}
	}

	for id, c := range req.Constraints {
		if !seen[id] {
			return fmt.Errorf("%w: constraint for unknown item %s", ErrInvalidInput, id)
		}
		if c.MaxPrice != nil && *c.MaxPrice < 0 {
			return fmt.Errorf("%w: item %s max price cannot be negative", ErrInvalidInput, id)
		}
	}
	return nil
}
