package optimizer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mmynk/cartsaver/internal/metrics"
	"github.com/mmynk/cartsaver/internal/models"
)

// StoreOutcome is the settled result of researching one store.
type StoreOutcome struct {
	Store  models.StoreCandidate
	Quotes []models.PriceQuote
	Err    error
	Took   time.Duration
}

// Research holds every store outcome, in candidate order.
type Research struct {
	Outcomes []StoreOutcome

	// Failed counts stores whose request errored or timed out.
	Failed int
}

// Quotes flattens the quotes of all stores, preserving candidate order.
func (r Research) Quotes() []models.PriceQuote {
	var quotes []models.PriceQuote
	for _, o := range r.Outcomes {
		quotes = append(quotes, o.Quotes...)
	}
	return quotes
}

// Researcher fans price requests out to every candidate store.
type Researcher struct {
	oracle           PriceOracle
	storeTimeout     time.Duration
	uncertainPenalty int
	metrics          *metrics.Metrics
}

// NewResearcher creates a Researcher. storeTimeout <= 0 disables the per-store bound.
func NewResearcher(oracle PriceOracle, storeTimeout time.Duration, uncertainPenalty int, m *metrics.Metrics) *Researcher {
	return &Researcher{
		oracle:           oracle,
		storeTimeout:     storeTimeout,
		uncertainPenalty: uncertainPenalty,
		metrics:          m,
	}
}

// Research queries the price oracle once per store, concurrently, and waits
// for every request to settle. A failing store contributes no quotes and is
// counted in Failed; it never cancels the other requests.
func (r *Researcher) Research(ctx context.Context, stores []models.StoreCandidate, items []models.ShoppingItem, loc models.Location) Research {
	outcomes := make([]StoreOutcome, len(stores))
	known := make(map[string]bool, len(items))
	for _, item := range items {
		known[item.ID] = true
	}

	// Tasks always return nil so one failure cannot cancel its siblings.
	var g errgroup.Group
	for i, store := range stores {
		g.Go(func() error {
			outcomes[i] = r.researchStore(ctx, store, items, loc, known)
			return nil
		})
	}
	_ = g.Wait()

	res := Research{Outcomes: outcomes}
	for _, o := range outcomes {
		if o.Err != nil {
			res.Failed++
		}
	}
	return res
}

func (r *Researcher) researchStore(ctx context.Context, store models.StoreCandidate, items []models.ShoppingItem, loc models.Location, known map[string]bool) (out StoreOutcome) {
	out.Store = store
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			out.Quotes = nil
			out.Err = fmt.Errorf("price oracle panicked: %v", p)
		}
		out.Took = time.Since(start)
		r.metrics.ObserveOracle(metrics.OraclePrice, out.Took, out.Err)
		if out.Err != nil {
			slog.Warn("Price research failed for store", "store", store.Name, "error", out.Err, "duration_ms", out.Took.Milliseconds())
		} else {
			slog.Debug("Price research finished for store", "store", store.Name, "quotes", len(out.Quotes), "duration_ms", out.Took.Milliseconds())
		}
	}()

	if r.storeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.storeTimeout)
		defer cancel()
	}

	quotes, err := r.oracle.EstimatePrices(ctx, store, items, loc)
	if err == nil && ctx.Err() != nil {
		// the oracle ignored cancellation; its answer arrived too late
		err = ctx.Err()
	}
	if err != nil {
		out.Err = err
		return out
	}

	out.Quotes = r.cleanQuotes(store, quotes, known)
	return out
}

// cleanQuotes drops quotes for unknown items, negative prices and unavailable
// stock, pins the store name, clamps confidence and lowers the confidence of
// uncertain quotes.
func (r *Researcher) cleanQuotes(store models.StoreCandidate, quotes []models.PriceQuote, known map[string]bool) []models.PriceQuote {
	cleaned := make([]models.PriceQuote, 0, len(quotes))
	for _, q := range quotes {
		if !known[q.ItemID] || q.Price < 0 {
			continue
		}
		if q.Availability == models.AvailabilityUnavailable {
			continue
		}
		q.Store = store.Name
		q.Confidence = clamp(q.Confidence, 1, 10)
		if q.Availability == models.AvailabilityUncertain {
			q.Confidence = clamp(q.Confidence-r.uncertainPenalty, 1, 10)
		}
		cleaned = append(cleaned, q)
	}
	return cleaned
}
