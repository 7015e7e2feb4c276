package optimizer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mmynk/cartsaver/internal/models"
)

var researchItems = []models.ShoppingItem{
	{ID: "milk", Name: "Whole milk", Quantity: 1},
	{ID: "eggs", Name: "Eggs", Quantity: 12, QuantityUnit: "each"},
}

func TestResearch_PartialFailure(t *testing.T) {
	oracle := &fakePriceOracle{
		quotes: map[string][]models.PriceQuote{
			"Aldi":   {quote("milk", "Aldi", 2.99, 8)},
			"Costco": {quote("eggs", "Costco", 0.25, 7)},
		},
		errs:   map[string]error{"Safeway": errors.New("rate limited")},
		panics: map[string]bool{"QFC": true},
	}
	r := NewResearcher(oracle, time.Second, 2, nil)

	res := r.Research(context.Background(), candidates("Aldi", "Safeway", "Costco", "QFC"), researchItems, *testLoc)

	if oracle.callCount() != 4 {
		t.Errorf("expected one call per store, got %d", oracle.callCount())
	}
	if res.Failed != 2 {
		t.Errorf("Failed = %d, want 2", res.Failed)
	}
	if len(res.Outcomes) != 4 {
		t.Fatalf("expected 4 outcomes, got %d", len(res.Outcomes))
	}
	for i, name := range []string{"Aldi", "Safeway", "Costco", "QFC"} {
		if res.Outcomes[i].Store.Name != name {
			t.Errorf("outcome %d store = %s, want %s", i, res.Outcomes[i].Store.Name, name)
		}
	}
	if res.Outcomes[3].Err == nil {
		t.Error("expected panic to be recorded as an error")
	}

	quotes := res.Quotes()
	if len(quotes) != 2 {
		t.Fatalf("expected 2 quotes, got %d", len(quotes))
	}
	if quotes[0].Store != "Aldi" || quotes[1].Store != "Costco" {
		t.Errorf("quotes out of candidate order: %+v", quotes)
	}
}

func TestResearch_StoreTimeout(t *testing.T) {
	oracle := &fakePriceOracle{
		quotes: map[string][]models.PriceQuote{
			"Aldi": {quote("milk", "Aldi", 2.99, 8)},
		},
		delays: map[string]time.Duration{"Slow Mart": 5 * time.Second},
	}
	r := NewResearcher(oracle, 50*time.Millisecond, 2, nil)

	start := time.Now()
	res := r.Research(context.Background(), candidates("Aldi", "Slow Mart"), researchItems, *testLoc)
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("research did not honour the store timeout, took %s", elapsed)
	}

	if res.Failed != 1 {
		t.Errorf("Failed = %d, want 1", res.Failed)
	}
	if !errors.Is(res.Outcomes[1].Err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", res.Outcomes[1].Err)
	}
	if len(res.Quotes()) != 1 {
		t.Errorf("expected the fast store's quote to survive, got %d", len(res.Quotes()))
	}
}

func TestResearch_StoresQueriedConcurrently(t *testing.T) {
	const delay = 200 * time.Millisecond
	names := []string{"Aldi", "Safeway", "Costco", "QFC"}
	oracle := &fakePriceOracle{
		quotes: map[string][]models.PriceQuote{},
		delays: map[string]time.Duration{},
	}
	for _, name := range names {
		oracle.quotes[name] = []models.PriceQuote{quote("milk", name, 2.99, 8)}
		oracle.delays[name] = delay
	}
	r := NewResearcher(oracle, 5*time.Second, 2, nil)

	start := time.Now()
	res := r.Research(context.Background(), candidates(names...), researchItems, *testLoc)
	elapsed := time.Since(start)

	if sequential := time.Duration(len(names)) * delay; elapsed >= sequential/2 {
		t.Errorf("stores were not queried concurrently: took %s, sequential would take %s", elapsed, sequential)
	}
	if res.Failed != 0 || len(res.Quotes()) != len(names) {
		t.Errorf("expected a quote from every store, got %d quotes and %d failures", len(res.Quotes()), res.Failed)
	}
}

func TestResearch_CleansQuotes(t *testing.T) {
	uncertain := quote("eggs", "whoever", 0.30, 6)
	uncertain.Availability = models.AvailabilityUncertain
	lowUncertain := quote("milk", "Aldi", 2.50, 2)
	lowUncertain.Availability = models.AvailabilityUncertain
	gone := quote("milk", "Aldi", 1.00, 9)
	gone.Availability = models.AvailabilityUnavailable

	oracle := &fakePriceOracle{quotes: map[string][]models.PriceQuote{
		"Aldi": {
			quote("bread", "Aldi", 2.00, 8),
			quote("milk", "Aldi", -1, 8),
			gone,
			uncertain,
			lowUncertain,
			quote("milk", "Aldi", 3.10, 15),
		},
	}}
	r := NewResearcher(oracle, time.Second, 2, nil)

	quotes := r.Research(context.Background(), candidates("Aldi"), researchItems, *testLoc).Quotes()

	if len(quotes) != 3 {
		t.Fatalf("expected 3 quotes after cleaning, got %d: %+v", len(quotes), quotes)
	}
	if quotes[0].Store != "Aldi" {
		t.Errorf("store name should be pinned to candidate, got %q", quotes[0].Store)
	}
	if quotes[0].Confidence != 4 {
		t.Errorf("uncertain confidence = %d, want 4", quotes[0].Confidence)
	}
	if quotes[1].Confidence != 1 {
		t.Errorf("uncertain confidence floor = %d, want 1", quotes[1].Confidence)
	}
	if quotes[2].Confidence != 10 {
		t.Errorf("confidence clamp = %d, want 10", quotes[2].Confidence)
	}
}

func TestResearch_NoStores(t *testing.T) {
	r := NewResearcher(&fakePriceOracle{}, time.Second, 2, nil)
	res := r.Research(context.Background(), nil, researchItems, *testLoc)
	if res.Failed != 0 || len(res.Quotes()) != 0 {
		t.Errorf("expected empty research, got %+v", res)
	}
}
