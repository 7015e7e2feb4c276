package optimizer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/mmynk/cartsaver/internal/models"
	"github.com/mmynk/cartsaver/internal/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func ptr(v float64) *float64 { return &v }

var testLoc = &models.Location{Latitude: 47.61, Longitude: -122.33}

type fakeStoreOracle struct {
	stores []models.StoreCandidate
	err    error
	calls  atomic.Int32
}

func (f *fakeStoreOracle) FindCandidateStores(ctx context.Context, items []models.ShoppingItem, loc models.Location) ([]models.StoreCandidate, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.stores, nil
}

// fakePriceOracle answers per store name. delays are honoured with the
// caller's context so timed-out goroutines exit promptly.
type fakePriceOracle struct {
	quotes map[string][]models.PriceQuote
	errs   map[string]error
	delays map[string]time.Duration
	panics map[string]bool

	mu    sync.Mutex
	calls []string
}

func (f *fakePriceOracle) EstimatePrices(ctx context.Context, store models.StoreCandidate, items []models.ShoppingItem, loc models.Location) ([]models.PriceQuote, error) {
	f.mu.Lock()
	f.calls = append(f.calls, store.Name)
	f.mu.Unlock()

	if d, ok := f.delays[store.Name]; ok {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(d):
		}
	}
	if f.panics[store.Name] {
		panic("oracle blew up")
	}
	if err := f.errs[store.Name]; err != nil {
		return nil, err
	}
	return f.quotes[store.Name], nil
}

func (f *fakePriceOracle) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// memItemStore is an in-memory ItemStore whose writes can be made to fail per item.
type memItemStore struct {
	mu      sync.Mutex
	items   map[string]*models.ShoppingItem
	failing map[string]bool
	writes  int
}

func newMemItemStore(items ...models.ShoppingItem) *memItemStore {
	s := &memItemStore{items: make(map[string]*models.ShoppingItem), failing: make(map[string]bool)}
	for i := range items {
		item := items[i]
		s.items[item.ID] = &item
	}
	return s
}

func (s *memItemStore) CreateItem(ctx context.Context, item *models.ShoppingItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *item
	s.items[item.ID] = &copied
	return nil
}

func (s *memItemStore) GetItem(ctx context.Context, itemID string) (*models.ShoppingItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[itemID]
	if !ok {
		return nil, fmt.Errorf("item %s: %w", itemID, storage.ErrNotFound)
	}
	copied := *item
	return &copied, nil
}

func (s *memItemStore) ListItems(ctx context.Context, listID string) ([]*models.ShoppingItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.ShoppingItem
	for _, item := range s.items {
		if item.ListID == listID {
			copied := *item
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *memItemStore) UpdateItem(ctx context.Context, itemID string, update models.ItemUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing[itemID] {
		return errors.New("disk full")
	}
	item, ok := s.items[itemID]
	if !ok {
		return storage.ErrNotFound
	}
	price := update.Price
	item.Store = update.Store
	item.Price = &price
	item.PricePerUnit = update.PricePerUnit
	item.Brand = update.Brand
	s.writes++
	return nil
}

func quote(item, store string, price float64, confidence int) models.PriceQuote {
	return models.PriceQuote{
		ItemID:       item,
		Store:        store,
		Price:        price,
		Availability: models.AvailabilityAvailable,
		Confidence:   confidence,
	}
}

func candidates(names ...string) []models.StoreCandidate {
	stores := make([]models.StoreCandidate, len(names))
	for i, name := range names {
		stores[i] = models.StoreCandidate{Name: name, Type: "supermarket", Likelihood: 10 - i}
	}
	return stores
}

func assertMoney(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 0.001 {
		t.Errorf("%s = %.2f, want %.2f", name, got, want)
	}
}

// assertPlanSums checks that group totals add up from items and the plan
// total adds up from groups.
func assertPlanSums(t *testing.T, plan models.OptimizationPlan) {
	t.Helper()
	var total float64
	for _, g := range plan.Groups {
		var groupSum float64
		for _, item := range g.Items {
			groupSum += item.Savings
		}
		assertMoney(t, "group "+g.StoreName+" total", g.TotalSavings, groupSum)
		total += g.TotalSavings
	}
	assertMoney(t, "total potential savings", plan.TotalPotentialSavings, total)
}
