// Package optimizer implements the cart optimization pipeline: store
// selection, concurrent price research, constraint filtering, plan
// aggregation and plan write-back.
package optimizer

import (
	"context"
	"errors"
	"time"

	"github.com/mmynk/cartsaver/internal/config"
	"github.com/mmynk/cartsaver/internal/models"
)

var (
	// ErrInvalidInput is returned when the request is missing items or a
	// usable location. No oracle is called when it is returned.
	ErrInvalidInput = errors.New("INPUT_INVALID")

	// ErrApplyFailed is returned when every item write-back failed.
	ErrApplyFailed = errors.New("item store unavailable: every item update failed")
)

// Outcome is the result kind of an optimization run.
type Outcome string

const (
	OutcomePlan         Outcome = "plan"
	OutcomeNoViablePlan Outcome = "no_viable_plan"
)

// Warning is a non-fatal condition recorded on a run or an apply.
type Warning string

const (
	WarnStoreDiscoveryFailed        Warning = "STORE_DISCOVERY_FAILED"
	WarnPriceResearchPartialFailure Warning = "PRICE_RESEARCH_PARTIAL_FAILURE"
	WarnApplyPartialFailure         Warning = "APPLY_PARTIAL_FAILURE"
)

// StoreOracle proposes candidate stores for a list near a location.
type StoreOracle interface {
	FindCandidateStores(ctx context.Context, items []models.ShoppingItem, loc models.Location) ([]models.StoreCandidate, error)
}

// PriceOracle estimates prices for a list at one store.
type PriceOracle interface {
	EstimatePrices(ctx context.Context, store models.StoreCandidate, items []models.ShoppingItem, loc models.Location) ([]models.PriceQuote, error)
}

// Options tunes the pipeline.
type Options struct {
	// MaxCandidates caps the number of stores researched.
	MaxCandidates int

	// StoreTimeout bounds each per-store price request.
	StoreTimeout time.Duration

	Thresholds config.Thresholds
}

// DefaultOptions returns five candidates, a 45s store timeout and the stock gates.
func DefaultOptions() Options {
	return Options{
		MaxCandidates: 5,
		StoreTimeout:  45 * time.Second,
		Thresholds:    config.DefaultThresholds(),
	}
}
